package bridge

import (
	"context"

	"go.lsp.dev/jsonrpc2"
)

// Front methods served by the bridge.
const (
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodPing        = "ping"
	MethodToolsList   = "tools/list"
	MethodToolsCall   = "tools/call"
)

// HandleReq handles routing for a single request.
func (r *jsonRPCRouter) HandleReq(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	r.stats.Counter("requests").Inc(1)

	switch req.Method() {
	// Lifecycle related methods.
	case MethodInitialize:
		return r.Initialize(ctx, reply, req)

	case MethodInitialized:
		return r.Initialized(ctx, reply, req)

	case MethodPing:
		return r.Ping(ctx, reply, req)

	// Tool methods.
	case MethodToolsList:
		return r.ListTools(ctx, reply, req)

	case MethodToolsCall:
		return r.CallTool(ctx, reply, req)

	default:
		return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
	}
}
