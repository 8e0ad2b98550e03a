package app

import (
	"context"
	"time"

	"github.com/uber-go/tally"
	"github.com/uber/ulsp-bridge/src/ulsp/handler"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/clock"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/core"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/executor"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/fs"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/jsonrpcfx"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/logfilewriter"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/serverconfig"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/serverinfofile"
	"go.uber.org/fx"
)

const _reportInterval = 1 * time.Second

// Module defines the ulsp-bridge application module.
var Module = fx.Options(
	handler.Module, // inbounds
	jsonrpcfx.Module,
	fs.Module,
	executor.Module,
	serverconfig.Module,
	serverinfofile.Module,
	logfilewriter.Module,
	core.ConfigModule,
	core.LoggerModule,
	fx.Provide(clock.New),
	fx.Provide(newRootScope),
	fx.Decorate(decorateEnvContext),
	fx.Decorate(decorateConfigProvider),
	fx.Provide(func() Context {
		return Context{
			Environment:        EnvLocal,
			RuntimeEnvironment: EnvLocal,
		}
	}),
)

func newRootScope(lc fx.Lifecycle, env Context) tally.Scope {
	rs, closer := tally.NewRootScope(tally.ScopeOptions{
		Tags: map[string]string{
			"service":     "ulsp-bridge",
			"environment": env.Environment,
		},
	}, _reportInterval)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return closer.Close()
		},
	})

	return rs
}
