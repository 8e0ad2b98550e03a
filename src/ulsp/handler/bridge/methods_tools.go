package bridge

import (
	"context"

	"github.com/uber/ulsp-bridge/src/ulsp/entity"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/errors"
	"github.com/uber/ulsp-bridge/src/ulsp/mapper"
	"go.lsp.dev/jsonrpc2"
	"go.uber.org/zap"
)

var _positionProperties = map[string]entity.SchemaProperty{
	"languageId":  {Type: "string", Description: "Language identifier of the document, such as typescript"},
	"filePath":    {Type: "string", Description: "Path of the document, absolute or relative to projectRoot"},
	"content":     {Type: "string", Description: "Full text of the document"},
	"line":        {Type: "number", Description: "Zero based line of the position"},
	"character":   {Type: "number", Description: "Zero based character offset of the position"},
	"projectRoot": {Type: "string", Description: "Root directory of the project the document belongs to"},
}

var _toolDescriptions = []entity.ToolDescription{
	{
		Name:        entity.ToolHover,
		Description: "Get hover information at a position in a document",
		InputSchema: entity.InputSchema{
			Type:       "object",
			Properties: _positionProperties,
			Required:   []string{"languageId", "filePath", "content", "line", "character", "projectRoot"},
		},
	},
	{
		Name:        entity.ToolCompletions,
		Description: "Get completion suggestions at a position in a document",
		InputSchema: entity.InputSchema{
			Type:       "object",
			Properties: _positionProperties,
			Required:   []string{"languageId", "filePath", "content", "line", "character", "projectRoot"},
		},
	},
	{
		Name:        entity.ToolDiagnostics,
		Description: "Get diagnostics for a document",
		InputSchema: entity.InputSchema{
			Type: "object",
			Properties: map[string]entity.SchemaProperty{
				"languageId":  _positionProperties["languageId"],
				"filePath":    _positionProperties["filePath"],
				"content":     _positionProperties["content"],
				"projectRoot": _positionProperties["projectRoot"],
			},
			Required: []string{"languageId", "filePath", "content", "projectRoot"},
		},
	},
}

// ListTools returns the tools exposed by the bridge.
func (r *jsonRPCRouter) ListTools(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	return reply(ctx, &entity.ToolListResult{Tools: _toolDescriptions}, nil)
}

// CallTool runs a tool on its own goroutine so a slow call does not hold up the connection.
func (r *jsonRPCRouter) CallTool(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	params, err := mapper.RequestToToolCallParams(req)
	if err != nil {
		return reply(ctx, nil, mapper.ToJSONRPCError(err))
	}

	if !r.track() {
		return reply(ctx, nil, mapper.ToJSONRPCError(errors.RegistryClosedError))
	}

	go func() {
		defer r.inflight.Done()
		if err := r.callTool(r.base, reply, params); err != nil {
			r.logger.Warnw("replying to tool call failed", zap.String("tool", string(params.Name)), zap.Error(err))
		}
	}()
	return nil
}

func (r *jsonRPCRouter) callTool(ctx context.Context, reply jsonrpc2.Replier, params *entity.ToolCallParams) error {
	r.stats.Tagged(map[string]string{"tool": string(params.Name)}).Counter("tool_calls").Inc(1)

	var (
		result *entity.ToolResult
		err    error
	)
	switch params.Name {
	case entity.ToolHover:
		args, argsErr := mapper.ToolArgumentsToPositionArguments(params.Arguments)
		if argsErr != nil {
			return reply(ctx, nil, mapper.ToJSONRPCError(argsErr))
		}
		result, err = r.tools.Hover(ctx, args)

	case entity.ToolCompletions:
		args, argsErr := mapper.ToolArgumentsToPositionArguments(params.Arguments)
		if argsErr != nil {
			return reply(ctx, nil, mapper.ToJSONRPCError(argsErr))
		}
		result, err = r.tools.Completions(ctx, args)

	case entity.ToolDiagnostics:
		args, argsErr := mapper.ToolArgumentsToDocumentArguments(params.Arguments)
		if argsErr != nil {
			return reply(ctx, nil, mapper.ToJSONRPCError(argsErr))
		}
		result, err = r.tools.Diagnostics(ctx, args)

	default:
		err = &errors.UnknownToolError{Name: string(params.Name)}
	}

	if err != nil {
		r.logger.Warnw("tool call failed", zap.String("tool", string(params.Name)), zap.Error(err))
		return reply(ctx, nil, mapper.ToJSONRPCError(err))
	}
	return reply(ctx, mapper.ToolResultToToolCallResult(result), nil)
}
