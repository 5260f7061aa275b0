package auth

import (
	"github.com/brizzai/monzo2discord/internal/webhook"
	"go.uber.org/fx"
)

// Module provides the authorization flow service
var Module = fx.Module("auth",
	fx.Provide(
		func(c *webhook.Client) WebhookValidator { return c },
		NewService,
	),
)
