package handler

import (
	controller "github.com/uber/ulsp-bridge/src/ulsp/controller"
	"github.com/uber/ulsp-bridge/src/ulsp/controller/registry"
	"github.com/uber/ulsp-bridge/src/ulsp/handler/bridge"
	"github.com/uber/ulsp-bridge/src/ulsp/repository/session"
	"go.uber.org/fx"
)

// Module provides the bridge's tool front into an Fx application.
var Module = fx.Options(
	controller.Module,
	fx.Provide(session.New),
	fx.Provide(bridge.New),
	fx.Invoke(outputLanguageServerInfo),
	fx.Invoke(func(h bridge.Handler) {}),
	fx.Invoke(func(r registry.Controller) {}),
)
