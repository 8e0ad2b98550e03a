package mapper

import (
	"net/url"
	"path/filepath"

	"go.lsp.dev/uri"
)

// DocumentPath resolves filePath against workspaceRoot unless it is already absolute.
func DocumentPath(workspaceRoot, filePath string) string {
	if filepath.IsAbs(filePath) {
		return filepath.Clean(filePath)
	}
	return filepath.Join(workspaceRoot, filePath)
}

// PathToDocumentURI maps an absolute path to the URI used as the document identity.
func PathToDocumentURI(path string) uri.URI {
	return uri.File(path)
}

// NormalizeDocumentURI re-derives file URIs received from a language server so that differences
// in percent-encoding do not break identity matching. Other URIs are returned unchanged.
func NormalizeDocumentURI(u uri.URI) uri.URI {
	parsed, err := url.Parse(string(u))
	if err != nil || parsed.Scheme != uri.FileScheme || parsed.Path == "" {
		return u
	}
	return uri.File(parsed.Path)
}
