package providers

import "go.uber.org/fx"

// Module provides the OAuth provider
var Module = fx.Module("providers",
	fx.Provide(
		fx.Annotate(
			NewOAuth2Provider,
			fx.As(new(Provider)),
		),
	),
)
