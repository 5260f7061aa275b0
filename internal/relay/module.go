package relay

import (
	"context"

	"github.com/brizzai/monzo2discord/internal/auth"
	"github.com/brizzai/monzo2discord/internal/auth/providers"
	"github.com/brizzai/monzo2discord/internal/config"
	"github.com/brizzai/monzo2discord/internal/logger"
	"github.com/brizzai/monzo2discord/internal/webhook"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the relay registry, service and ingress handler
var Module = fx.Module("relay",
	fx.Provide(
		func(cfg *config.RelayConfig) *Registry {
			return NewRegistry(cfg.StateFile)
		},
		newService,
		func(s *Service) auth.Activator { return s },
		NewHandler,
	),
	fx.Invoke(loadRegistry),
)

type serviceParams struct {
	fx.In

	Registry *Registry
	Webhooks *webhook.Client
	Provider providers.Provider
	Relay    *config.RelayConfig
	OAuth    *config.OAuthConfig
	HTTP     *config.HTTPClientConfig
}

func newService(p serviceParams) *Service {
	var registrar ProviderRegistrar
	if p.Relay.RegisterWithProvider {
		registrar = NewRegistrar(p.OAuth.APIURL, p.Provider, p.HTTP.Timeout)
	}
	return NewService(p.Registry, p.Webhooks, registrar, *p.Relay)
}

func loadRegistry(lc fx.Lifecycle, registry *Registry, webhooks *webhook.Client) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			n, err := registry.Load(ctx, webhooks)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("Loaded relays", zap.Int("count", n))
			}
			return nil
		},
	})
}
