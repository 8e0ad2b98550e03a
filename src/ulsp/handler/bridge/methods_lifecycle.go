package bridge

import (
	"context"
	"encoding/json"

	"github.com/uber/ulsp-bridge/src/ulsp/entity"
	"go.lsp.dev/jsonrpc2"
	"go.uber.org/zap"
)

const (
	_protocolVersion = "2024-11-05"
	_serverName      = "ulsp-bridge"
	_serverVersion   = "1.0.0"
)

// Initialize answers the caller's handshake, advertising the tools capability.
// The caller's protocol version is echoed when it sends one.
func (r *jsonRPCRouter) Initialize(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params struct {
		ProtocolVersion string `json:"protocolVersion"`
		ClientInfo      struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"clientInfo"`
	}
	if len(req.Params()) > 0 {
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return reply(ctx, nil, jsonrpc2.NewError(jsonrpc2.InvalidParams, err.Error()))
		}
	}

	version := params.ProtocolVersion
	if version == "" {
		version = _protocolVersion
	}
	r.logger.Infow("caller connected", zap.String("client", params.ClientInfo.Name), zap.String("protocolVersion", version))

	return reply(ctx, &entity.InitializeResult{
		ProtocolVersion: version,
		Capabilities: map[string]interface{}{
			"tools": map[string]interface{}{},
		},
		ServerInfo: entity.ServerInfo{
			Name:    _serverName,
			Version: _serverVersion,
		},
	}, nil)
}

// Initialized is sent by the caller once it received the result of initialize.
func (r *jsonRPCRouter) Initialized(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	return reply(ctx, nil, nil)
}

// Ping answers a liveness check.
func (r *jsonRPCRouter) Ping(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	return reply(ctx, map[string]interface{}{}, nil)
}
