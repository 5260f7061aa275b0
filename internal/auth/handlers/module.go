package handlers

import "go.uber.org/fx"

// Module provides the authorization HTTP handlers
var Module = fx.Module("handlers",
	fx.Provide(NewHandler),
)
