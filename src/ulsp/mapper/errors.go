package mapper

import (
	"github.com/uber/ulsp-bridge/src/ulsp/internal/errors"
	"go.lsp.dev/jsonrpc2"
)

// ToJSONRPCError maps errors raised at the tool boundary to the error codes returned to callers.
func ToJSONRPCError(e error) error {
	if e == nil {
		return nil
	}

	if errors.IsConfigurationMissing(e) {
		return jsonrpc2.NewError(jsonrpc2.InvalidParams, e.Error())
	}

	if errors.IsUnknownTool(e) {
		return jsonrpc2.NewError(jsonrpc2.MethodNotFound, e.Error())
	}

	return jsonrpc2.NewError(jsonrpc2.InternalError, e.Error())
}
