package main

import (
	"github.com/uber/ulsp-bridge/src/ulsp/app"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func opts() fx.Option {
	return fx.Options(
		app.Module,
		// Standard output carries the JSON-RPC transport, so Fx events go to the bridge's logger.
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger}
		}),
	)
}

func main() {
	fx.New(opts()).Run()
}
