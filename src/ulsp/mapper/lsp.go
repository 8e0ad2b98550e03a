package mapper

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/uber/ulsp-bridge/src/ulsp/entity"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/errors"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// Version 1 is sent on every open, each call announces the supplied content as a fresh document.
const _documentVersion int32 = 1

// PublishDiagnostics keeps the diagnostics of an inbound textDocument/publishDiagnostics
// notification as raw JSON so they can be returned verbatim.
type PublishDiagnostics struct {
	URI         uri.URI         `json:"uri"`
	Diagnostics json.RawMessage `json:"diagnostics"`
}

// RequestToToolCallParams maps the parameters from a jsonrpc2.Request into entity.ToolCallParams.
func RequestToToolCallParams(req jsonrpc2.Request) (*entity.ToolCallParams, error) {
	params := entity.ToolCallParams{}
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return nil, wrapErrParse(err)
	}
	if params.Name == "" {
		return nil, errors.NoToolNameOnWireError
	}
	return &params, nil
}

// ToolArgumentsToPositionArguments maps raw tool arguments into entity.PositionToolArguments.
func ToolArgumentsToPositionArguments(raw json.RawMessage) (*entity.PositionToolArguments, error) {
	args := entity.PositionToolArguments{}
	if err := unmarshalArguments(raw, &args); err != nil {
		return nil, err
	}
	if err := validateDocumentArguments(args.Document()); err != nil {
		return nil, err
	}
	return &args, nil
}

// ToolArgumentsToDocumentArguments maps raw tool arguments into entity.DocumentToolArguments.
func ToolArgumentsToDocumentArguments(raw json.RawMessage) (*entity.DocumentToolArguments, error) {
	args := entity.DocumentToolArguments{}
	if err := unmarshalArguments(raw, &args); err != nil {
		return nil, err
	}
	if err := validateDocumentArguments(args); err != nil {
		return nil, err
	}
	return &args, nil
}

// NotificationToPublishDiagnostics maps the parameters of a publishDiagnostics notification.
// The document URI is normalized for identity matching.
func NotificationToPublishDiagnostics(raw json.RawMessage) (*PublishDiagnostics, error) {
	params := PublishDiagnostics{}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, wrapErrParse(err)
	}
	if params.URI == "" {
		return nil, fmt.Errorf("%s: missing uri", jsonrpc2.ErrParse)
	}
	params.URI = NormalizeDocumentURI(params.URI)
	if len(params.Diagnostics) == 0 || string(params.Diagnostics) == "null" {
		params.Diagnostics = json.RawMessage("[]")
	}
	return &params, nil
}

// NotificationToLogMessageParams maps the parameters of a window/logMessage notification.
func NotificationToLogMessageParams(raw json.RawMessage) (*protocol.LogMessageParams, error) {
	params := protocol.LogMessageParams{}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, wrapErrParse(err)
	}
	return &params, nil
}

// RequestToConfigurationParams maps the parameters of a workspace/configuration request.
func RequestToConfigurationParams(raw json.RawMessage) (*protocol.ConfigurationParams, error) {
	params := protocol.ConfigurationParams{}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, wrapErrParse(err)
	}
	return &params, nil
}

// WorkspaceRootToInitializeParams builds the initialize request describing the features the bridge uses.
// The workspace root is sent as both root and sole workspace folder.
func WorkspaceRootToInitializeParams(workspaceRoot string, processID int32, client protocol.ClientInfo) *protocol.InitializeParams {
	rootURI := uri.File(workspaceRoot)
	return &protocol.InitializeParams{
		ProcessID:  processID,
		ClientInfo: &client,
		RootPath:   workspaceRoot,
		RootURI:    rootURI,
		Capabilities: protocol.ClientCapabilities{
			Workspace: &protocol.WorkspaceClientCapabilities{
				Configuration:          true,
				WorkspaceFolders:       true,
				DidChangeConfiguration: &protocol.DidChangeConfigurationWorkspaceClientCapabilities{},
			},
			TextDocument: &protocol.TextDocumentClientCapabilities{
				Synchronization: &protocol.TextDocumentSyncClientCapabilities{
					DidSave: true,
				},
				Completion: &protocol.CompletionTextDocumentClientCapabilities{
					CompletionItem: &protocol.CompletionTextDocumentClientCapabilitiesItem{
						SnippetSupport:      false,
						DocumentationFormat: []protocol.MarkupKind{protocol.Markdown, protocol.PlainText},
						DeprecatedSupport:   true,
					},
				},
				Hover: &protocol.HoverTextDocumentClientCapabilities{
					ContentFormat: []protocol.MarkupKind{protocol.Markdown, protocol.PlainText},
				},
				PublishDiagnostics: &protocol.PublishDiagnosticsClientCapabilities{
					RelatedInformation: true,
					TagSupport: &protocol.PublishDiagnosticsClientCapabilitiesTagSupport{
						ValueSet: []protocol.DiagnosticTag{protocol.DiagnosticTagUnnecessary, protocol.DiagnosticTagDeprecated},
					},
				},
			},
		},
		WorkspaceFolders: []protocol.WorkspaceFolder{
			{
				URI:  string(rootURI),
				Name: filepath.Base(workspaceRoot),
			},
		},
	}
}

// DocumentToDidOpenTextDocumentParams builds a didOpen notification carrying the full document content.
func DocumentToDidOpenTextDocumentParams(documentURI uri.URI, languageID string, content string) *protocol.DidOpenTextDocumentParams {
	return &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        documentURI,
			LanguageID: protocol.LanguageIdentifier(languageID),
			Version:    _documentVersion,
			Text:       content,
		},
	}
}

// PositionArgumentsToHoverParams builds a hover request for the position in the arguments.
func PositionArgumentsToHoverParams(documentURI uri.URI, args *entity.PositionToolArguments) *protocol.HoverParams {
	return &protocol.HoverParams{
		TextDocumentPositionParams: positionParams(documentURI, args),
	}
}

// PositionArgumentsToCompletionParams builds a completion request for the position in the arguments.
func PositionArgumentsToCompletionParams(documentURI uri.URI, args *entity.PositionToolArguments) *protocol.CompletionParams {
	return &protocol.CompletionParams{
		TextDocumentPositionParams: positionParams(documentURI, args),
	}
}

// SettingsToDidChangeConfigurationParams wraps language settings for workspace/didChangeConfiguration.
func SettingsToDidChangeConfigurationParams(settings map[string]interface{}) *protocol.DidChangeConfigurationParams {
	return &protocol.DidChangeConfigurationParams{
		Settings: settings,
	}
}

func positionParams(documentURI uri.URI, args *entity.PositionToolArguments) protocol.TextDocumentPositionParams {
	return protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: documentURI},
		Position: protocol.Position{
			Line:      args.Line,
			Character: args.Character,
		},
	}
}

func unmarshalArguments(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return errors.NoArgumentsOnWireError
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return wrapErrParse(err)
	}
	return nil
}

func validateDocumentArguments(args entity.DocumentToolArguments) error {
	if args.LanguageID == "" {
		return fmt.Errorf("%w: languageId", errors.NoArgumentsOnWireError)
	}
	if args.FilePath == "" {
		return fmt.Errorf("%w: filePath", errors.NoArgumentsOnWireError)
	}
	return nil
}

func wrapErrParse(err error) error {
	return fmt.Errorf("%s: %w", jsonrpc2.ErrParse, err)
}
