package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.lsp.dev/uri"
)

func TestDocumentPath(t *testing.T) {
	tests := []struct {
		name     string
		root     string
		filePath string
		want     string
	}{
		{
			name:     "relative",
			root:     "/home/user/proj",
			filePath: "src/index.ts",
			want:     "/home/user/proj/src/index.ts",
		},
		{
			name:     "relative with dots",
			root:     "/home/user/proj",
			filePath: "./src/../lib/a.ts",
			want:     "/home/user/proj/lib/a.ts",
		},
		{
			name:     "absolute",
			root:     "/home/user/proj",
			filePath: "/tmp/other//b.ts",
			want:     "/tmp/other/b.ts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DocumentPath(tt.root, tt.filePath))
		})
	}
}

func TestPathToDocumentURI(t *testing.T) {
	assert.Equal(t, uri.URI("file:///tmp/a.ts"), PathToDocumentURI("/tmp/a.ts"))
	// stable across calls
	assert.Equal(t, PathToDocumentURI("/tmp/a b.ts"), PathToDocumentURI("/tmp/a b.ts"))
}

func TestNormalizeDocumentURI(t *testing.T) {
	tests := []struct {
		name string
		in   uri.URI
		want uri.URI
	}{
		{
			name: "already normalized",
			in:   uri.File("/tmp/a.ts"),
			want: uri.File("/tmp/a.ts"),
		},
		{
			name: "percent encoded",
			in:   "file:///tmp/a%20b.ts",
			want: uri.File("/tmp/a b.ts"),
		},
		{
			name: "other scheme",
			in:   "untitled:Untitled-1",
			want: "untitled:Untitled-1",
		},
		{
			name: "unparseable",
			in:   "file://%zz",
			want: "file://%zz",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDocumentURI(tt.in))
		})
	}
}
