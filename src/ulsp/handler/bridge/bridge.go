// Package bridge implements the tool call front of the bridge over JSON-RPC.
package bridge

import (
	"context"
	"sync"

	"github.com/uber-go/tally"
	"github.com/uber/ulsp-bridge/src/ulsp/controller/registry"
	"github.com/uber/ulsp-bridge/src/ulsp/controller/tools"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/jsonrpcfx"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Handler represents the bridge's JSON-RPC API.
type Handler = jsonrpcfx.Router

// Params are inbound parameters to initialize the handler.
type Params struct {
	fx.In

	Tools    tools.Controller
	Registry registry.Controller
	JSONRPC  jsonrpcfx.JSONRPCModule
	Logger   *zap.SugaredLogger
	Stats    tally.Scope
}

type jsonRPCRouter struct {
	tools    tools.Controller
	registry registry.Controller
	logger   *zap.SugaredLogger
	stats    tally.Scope

	// base is the parent context of every tool call, cancelled when shutdown gives up waiting.
	base   context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	closing  bool
	inflight sync.WaitGroup
}

// New constructs a new bridge Handler and registers it with the JSON-RPC module.
func New(p Params) (Handler, error) {
	base, cancel := context.WithCancel(context.Background())
	r := &jsonRPCRouter{
		tools:    p.Tools,
		registry: p.Registry,
		logger:   p.Logger,
		stats:    p.Stats.SubScope("json_rpc"),
		base:     base,
		cancel:   cancel,
	}

	if err := p.JSONRPC.RegisterRouter(r); err != nil {
		cancel()
		return nil, err
	}
	return r, nil
}

// Shutdown waits for in-flight tool calls, cancelling them if ctx ends first, and then tears down every session.
func (r *jsonRPCRouter) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closing = true
	r.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		r.inflight.Wait()
		close(drained)
	}()

	var errs error
	select {
	case <-drained:
	case <-ctx.Done():
		r.logger.Warnw("cancelling in-flight tool calls")
		r.cancel()
		<-drained
	}
	r.cancel()

	errs = multierr.Append(errs, r.registry.Shutdown(ctx))
	return errs
}

// track registers a tool call, returning false once shutdown has begun.
func (r *jsonRPCRouter) track() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closing {
		return false
	}
	r.inflight.Add(1)
	return true
}
