package jsonrpcfx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/uber/ulsp-bridge/src/ulsp/internal/serverinfofile"
	"go.lsp.dev/jsonrpc2"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

//go:generate mockgen -source=json_rpc.go -destination=jsonrpcfxmock/json_rpc_mock.go -package=jsonrpcfxmock

const (
	_configKeyTransport = "jsonrpc.transport"
	_outputKey          = "jsonrpc-transport"
	_transportStdio     = "stdio"
)

// Module is an fx module to handle JSON-RPC requests.
var Module = fx.Provide(New)

// JSONRPCModule represents a module to manage the JSON-RPC connection with the caller.
type JSONRPCModule interface {
	OnStart(ctx context.Context) error
	OnStop(ctx context.Context) error
	ServeStream(ctx context.Context, conn jsonrpc2.Conn) error
	RegisterRouter(router Router) error
}

// Router serves as the interface through which handling of requests will be implemented.
type Router interface {
	HandleReq(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error
	// Shutdown finishes in-flight requests and releases everything the router started. It runs before the connection is closed.
	Shutdown(ctx context.Context) error
}

type module struct {
	Transport string `json:"transport"`

	in             io.Reader
	out            io.Writer
	router         Router
	conn           jsonrpc2.Conn
	served         chan struct{}
	stopping       atomic.Bool
	logger         *zap.SugaredLogger
	serverInfoFile serverinfofile.ServerInfoFile
	shutdowner     fx.Shutdowner
}

// Params define values to be used by the JSON-RPC module.
type Params struct {
	fx.In

	Config         config.Provider
	Lifecycle      fx.Lifecycle
	Logger         *zap.SugaredLogger
	ServerInfoFile serverinfofile.ServerInfoFile
	Shutdowner     fx.Shutdowner
}

// New creates the JSON-RPC connection served over standard input and output.
func New(p Params) (JSONRPCModule, error) {
	if p.Lifecycle == nil || p.Config == nil {
		return nil, errors.New("required parameters are missing")
	}

	m := module{
		in:             os.Stdin,
		out:            os.Stdout,
		logger:         p.Logger,
		serverInfoFile: p.ServerInfoFile,
		shutdowner:     p.Shutdowner,
	}

	if err := m.processConfig(p.Config); err != nil {
		return nil, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: m.OnStart,
		OnStop:  m.OnStop,
	})

	return &m, nil
}

// OnStart begins serving requests from the caller.
func (m *module) OnStart(ctx context.Context) error {
	if m.router == nil {
		return errors.New("cannot serve connection, no router set")
	}

	in := m.in
	if f, ok := in.(*os.File); ok {
		// Closing a blocking descriptor leaves a pending read in place, so stop could never finish.
		p, err := pollable(f)
		if err != nil {
			m.logger.Warnw("reading input without the poller, stop waits for its deadline", zap.String("file", f.Name()), zap.Error(err))
		} else {
			in = p
		}
	}

	m.conn = jsonrpc2.NewConn(newLineStream(in, m.out, m.logger))
	m.served = make(chan struct{})

	if err := m.serverInfoFile.UpdateField(_outputKey, m.Transport); err != nil {
		m.logger.Warnw("recording transport in server info file failed", zap.Error(err))
	}

	go m.start()
	return nil
}

// OnStop lets the router release its resources, then closes the connection.
func (m *module) OnStop(ctx context.Context) error {
	if m.conn == nil {
		return nil
	}
	m.stopping.Store(true)

	var errs error
	errs = multierr.Append(errs, m.router.Shutdown(ctx))
	if err := m.conn.Close(); err != nil && !errors.Is(err, os.ErrClosed) && !errors.Is(err, io.ErrClosedPipe) {
		errs = multierr.Append(errs, err)
	}

	select {
	case <-m.served:
	case <-ctx.Done():
		errs = multierr.Append(errs, ctx.Err())
	}
	return errs
}

// ServeStream routes requests received via the connection to the router, and answers via the connection's replier.
// It blocks until the connection is closed.
func (m *module) ServeStream(ctx context.Context, conn jsonrpc2.Conn) error {
	if m.router == nil {
		m.logger.Errorf("cannot serve connection, no router set")
		return errors.New("cannot serve connection, no router set")
	}

	conn.Go(ctx, m.router.HandleReq)
	m.logger.Infow("serving JSON-RPC", zap.String("transport", m.Transport))

	// Block indefinitely until connection closed.
	<-conn.Done()
	m.logger.Infow("JSON-RPC connection closed")

	return conn.Err()
}

// RegisterRouter sets the router which handles every request of the connection.
func (m *module) RegisterRouter(router Router) error {
	if m.router != nil {
		return errors.New("cannot register a duplicate router")
	}
	m.router = router
	return nil
}

// start serves the connection, and shuts the application down once the caller goes away.
func (m *module) start() {
	defer close(m.served)

	err := m.ServeStream(context.Background(), m.conn)
	if m.stopping.Load() {
		return
	}

	if err != nil && !errors.Is(err, io.EOF) {
		m.logger.Warnw("JSON-RPC connection failed", zap.Error(err))
	}
	if m.shutdowner != nil {
		if err := m.shutdowner.Shutdown(); err != nil {
			m.logger.Errorw("requesting shutdown failed", zap.Error(err))
		}
	}
}

// processConfig will parse the configuration for any values required by this module.
func (m *module) processConfig(cfg config.Provider) error {
	val := cfg.Get(_configKeyTransport)
	if err := val.Populate(&m.Transport); err != nil {
		// incorrectly formatted config
		return fmt.Errorf("getting config field %q: %w", _configKeyTransport, err)
	}

	if m.Transport == "" {
		m.Transport = _transportStdio
	}
	if m.Transport != _transportStdio {
		return fmt.Errorf("unsupported transport %q in config field %q", m.Transport, _configKeyTransport)
	}

	return nil
}
