package controller

import (
	"github.com/uber/ulsp-bridge/src/ulsp/controller/diagnostics"
	"github.com/uber/ulsp-bridge/src/ulsp/controller/registry"
	"github.com/uber/ulsp-bridge/src/ulsp/controller/tools"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(diagnostics.New),
	fx.Provide(registry.New),
	fx.Provide(tools.New),
)
