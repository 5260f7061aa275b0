package pending

import (
	"context"

	"github.com/brizzai/monzo2discord/internal/config"
	"go.uber.org/fx"
)

// Module provides the pending store and runs its sweeper for the app lifetime.
var Module = fx.Module("pending",
	fx.Provide(func(cfg *config.OAuthConfig) *Store {
		return NewStore(cfg.PendingTTL)
	}),
	fx.Invoke(registerSweeper),
)

func registerSweeper(lc fx.Lifecycle, s *Store, cfg *config.OAuthConfig) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				s.Run(ctx, cfg.SweepInterval)
			}()
			return nil
		},
		OnStop: func(stop context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stop.Done():
				return stop.Err()
			}
		},
	})
}
