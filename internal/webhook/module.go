package webhook

import (
	"github.com/brizzai/monzo2discord/internal/config"
	"github.com/brizzai/monzo2discord/internal/requester"
	"go.uber.org/fx"
)

// Module provides the webhook client for the configured chat service
var Module = fx.Module("webhook",
	fx.Provide(func(cfg *config.WebhookConfig, r *requester.HTTPRequester) (*Client, error) {
		target, err := NewTarget(cfg.TargetURL, cfg.PathPrefix)
		if err != nil {
			return nil, err
		}
		return NewClient(target, r), nil
	}),
)
