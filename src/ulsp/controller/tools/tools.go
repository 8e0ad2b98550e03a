// Package tools answers tool calls by exchanging messages with the language server session of the call.
package tools

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/uber-go/tally"
	"github.com/uber/ulsp-bridge/src/ulsp/controller/diagnostics"
	"github.com/uber/ulsp-bridge/src/ulsp/controller/registry"
	"github.com/uber/ulsp-bridge/src/ulsp/entity"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/fs"
	"github.com/uber/ulsp-bridge/src/ulsp/mapper"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

//go:generate mockgen -source=tools.go -destination=toolsmock/tools_mock.go -package=toolsmock

const _nameKey = "tools"

// Controller runs the hover, completions and diagnostics tools.
// A returned error means no session could be acquired. Failures after that are reported in the result.
type Controller interface {
	Hover(ctx context.Context, args *entity.PositionToolArguments) (*entity.ToolResult, error)
	Completions(ctx context.Context, args *entity.PositionToolArguments) (*entity.ToolResult, error)
	Diagnostics(ctx context.Context, args *entity.DocumentToolArguments) (*entity.ToolResult, error)
}

// Params are inbound parameters to initialize a new tools controller.
type Params struct {
	fx.In

	Registry    registry.Controller
	Diagnostics diagnostics.Controller
	FS          fs.UlspFS
	Logger      *zap.SugaredLogger
	Stats       tally.Scope
}

type controller struct {
	registry    registry.Controller
	diagnostics diagnostics.Controller
	fs          fs.UlspFS
	logger      *zap.SugaredLogger
	stats       tally.Scope
}

// New creates a new tools controller.
func New(p Params) Controller {
	return &controller{
		registry:    p.Registry,
		diagnostics: p.Diagnostics,
		fs:          p.FS,
		logger:      p.Logger.With("plugin", _nameKey),
		stats:       p.Stats.SubScope(_nameKey),
	}
}

func (c *controller) Hover(ctx context.Context, args *entity.PositionToolArguments) (*entity.ToolResult, error) {
	defer c.measure(entity.ToolHover)()

	s, err := c.registry.Acquire(ctx, args.Document().Key())
	if err != nil {
		return c.fail(entity.ToolHover, err)
	}
	documentURI, err := c.document(s, args.Document())
	if err != nil {
		return c.inBand(entity.ToolHover, args.Document(), err)
	}

	if err := s.Conn.Notify(ctx, protocol.MethodTextDocumentDidOpen, mapper.DocumentToDidOpenTextDocumentParams(documentURI, args.LanguageID, args.Content)); err != nil {
		return c.inBand(entity.ToolHover, args.Document(), err)
	}

	raw, err := s.Conn.Request(ctx, protocol.MethodTextDocumentHover, mapper.PositionArgumentsToHoverParams(documentURI, args))
	if err != nil {
		return c.inBand(entity.ToolHover, args.Document(), err)
	}

	result, err := mapper.HoverResultToToolResult(raw)
	if err != nil {
		return c.inBand(entity.ToolHover, args.Document(), err)
	}
	return result, nil
}

func (c *controller) Completions(ctx context.Context, args *entity.PositionToolArguments) (*entity.ToolResult, error) {
	defer c.measure(entity.ToolCompletions)()

	s, err := c.registry.Acquire(ctx, args.Document().Key())
	if err != nil {
		return c.fail(entity.ToolCompletions, err)
	}
	documentURI, err := c.document(s, args.Document())
	if err != nil {
		return c.inBand(entity.ToolCompletions, args.Document(), err)
	}

	if err := s.Conn.Notify(ctx, protocol.MethodTextDocumentDidOpen, mapper.DocumentToDidOpenTextDocumentParams(documentURI, args.LanguageID, args.Content)); err != nil {
		return c.inBand(entity.ToolCompletions, args.Document(), err)
	}

	raw, err := s.Conn.Request(ctx, protocol.MethodTextDocumentCompletion, mapper.PositionArgumentsToCompletionParams(documentURI, args))
	if err != nil {
		return c.inBand(entity.ToolCompletions, args.Document(), err)
	}

	result, err := mapper.CompletionResultToToolResult(raw)
	if err != nil {
		return c.inBand(entity.ToolCompletions, args.Document(), err)
	}
	return result, nil
}

func (c *controller) Diagnostics(ctx context.Context, args *entity.DocumentToolArguments) (*entity.ToolResult, error) {
	defer c.measure(entity.ToolDiagnostics)()

	s, err := c.registry.Acquire(ctx, args.Key())
	if err != nil {
		return c.fail(entity.ToolDiagnostics, err)
	}
	documentURI, err := c.document(s, *args)
	if err != nil {
		return c.inBand(entity.ToolDiagnostics, *args, err)
	}

	// The waiter must exist before didOpen, the push can arrive before Notify returns.
	w := c.diagnostics.Register(ctx, entity.DocumentIdentity{SessionUUID: s.UUID, URI: documentURI})
	if err := s.Conn.Notify(ctx, protocol.MethodTextDocumentDidOpen, mapper.DocumentToDidOpenTextDocumentParams(documentURI, args.LanguageID, args.Content)); err != nil {
		c.diagnostics.Cancel(w)
		return c.inBand(entity.ToolDiagnostics, *args, err)
	}

	diags, ok := c.diagnostics.Await(ctx, w)
	if !ok {
		return mapper.DiagnosticsTimeoutToolResult(), nil
	}

	result, err := mapper.DiagnosticsToToolResult(diags)
	if err != nil {
		return c.inBand(entity.ToolDiagnostics, *args, err)
	}
	return result, nil
}

// document resolves the document against the session's workspace root and makes sure its directory exists.
func (c *controller) document(s *entity.Session, args entity.DocumentToolArguments) (uri.URI, error) {
	path := mapper.DocumentPath(s.WorkspaceRoot, args.FilePath)
	if err := c.fs.MkdirAll(filepath.Dir(path)); err != nil {
		return "", fmt.Errorf("creating directory for %s: %w", path, err)
	}
	return mapper.PathToDocumentURI(path), nil
}

func (c *controller) fail(tool entity.ToolName, err error) (*entity.ToolResult, error) {
	c.stats.SubScope(string(tool)).Counter("errors").Inc(1)
	return nil, err
}

// inBand reports a failure as a flagged result rather than an error.
func (c *controller) inBand(tool entity.ToolName, args entity.DocumentToolArguments, err error) (*entity.ToolResult, error) {
	c.stats.SubScope(string(tool)).Counter("errors").Inc(1)
	c.logger.Warnw("tool call failed", "tool", tool, "language", args.LanguageID, "filePath", args.FilePath, zap.Error(err))
	return mapper.ErrorToToolResult(err), nil
}

func (c *controller) measure(tool entity.ToolName) func() {
	scope := c.stats.SubScope(string(tool))
	scope.Counter("calls").Inc(1)
	sw := scope.Timer("latency").Start()
	return sw.Stop
}
