package relay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brizzai/monzo2discord/internal/config"
	"github.com/brizzai/monzo2discord/internal/logger"
	"github.com/brizzai/monzo2discord/internal/models"
	"github.com/brizzai/monzo2discord/internal/webhook"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// AnnounceMessage is posted to a webhook once it is linked.
const AnnounceMessage = "Linked to Monzo. New transactions will be posted here."

// IngressPath is the route prefix providers push events to.
const IngressPath = "/relay/"

// Validator turns a raw address into a verified endpoint.
type Validator interface {
	Validate(ctx context.Context, address string) (*webhook.Endpoint, error)
}

// Poster delivers a message to a verified endpoint.
type Poster interface {
	Post(ctx context.Context, endpoint *webhook.Endpoint, message string) error
}

// ProviderRegistrar attaches relay ingress URLs to provider accounts.
type ProviderRegistrar interface {
	Register(ctx context.Context, token *oauth2.Token, callbackURL string) (Registration, error)
	Unregister(ctx context.Context, token *oauth2.Token, webhookID string) error
}

// Service activates relays and forwards messages through them.
type Service struct {
	registry  *Registry
	poster    Poster
	registrar ProviderRegistrar
	cfg       config.RelayConfig
	now       func() time.Time
}

// NewService creates a relay Service. registrar may be nil when relays are
// not registered with the provider.
func NewService(registry *Registry, poster Poster, registrar ProviderRegistrar, cfg config.RelayConfig) *Service {
	return &Service{
		registry:  registry,
		poster:    poster,
		registrar: registrar,
		cfg:       cfg,
		now:       time.Now,
	}
}

// IngressURL returns the public URL the provider should push events for id to.
func (s *Service) IngressURL(id string) string {
	return strings.TrimRight(s.cfg.PublicURL, "/") + IngressPath + id
}

// Activate creates a relay for endpoint authorized by token. Nothing is kept
// if any step fails.
func (s *Service) Activate(ctx context.Context, endpoint *webhook.Endpoint, token *oauth2.Token) (models.Relay, error) {
	relay := models.Relay{
		ID:        uuid.NewString(),
		Token:     models.NewRelayToken(token),
		CreatedAt: s.now().UTC(),
	}

	if s.cfg.RegisterWithProvider && s.registrar != nil {
		registration, err := s.registrar.Register(ctx, token, s.IngressURL(relay.ID))
		if err != nil {
			return models.Relay{}, fmt.Errorf("register provider webhook: %w", err)
		}
		relay.AccountID = registration.AccountID
		relay.ProviderID = registration.WebhookID
	}

	if s.cfg.Announce {
		if err := s.poster.Post(ctx, endpoint, AnnounceMessage); err != nil {
			s.unregister(ctx, relay)
			return models.Relay{}, fmt.Errorf("announce relay: %w", err)
		}
	}

	if err := s.registry.Add(relay, endpoint); err != nil {
		s.unregister(ctx, relay)
		return models.Relay{}, fmt.Errorf("store relay: %w", err)
	}

	logger.Info("Relay activated",
		zap.String("relay_id", relay.ID),
		zap.String("webhook_host", endpoint.Host()),
		zap.Bool("provider_registered", relay.ProviderID != ""),
	)
	return s.lookup(relay.ID)
}

// Relay posts message verbatim to the webhook of relay id.
func (s *Service) Relay(ctx context.Context, id, message string) error {
	_, endpoint, err := s.registry.Get(id)
	if err != nil {
		messagesRelayed.WithLabelValues("unknown_relay").Inc()
		return err
	}
	if err := s.poster.Post(ctx, endpoint, message); err != nil {
		messagesRelayed.WithLabelValues("failed").Inc()
		logger.Warn("Relay failed",
			zap.String("relay_id", id),
			zap.String("webhook_host", endpoint.Host()),
			zap.Error(err),
		)
		return err
	}
	messagesRelayed.WithLabelValues("delivered").Inc()
	return nil
}

// Deactivate removes relay id and, when it was registered, its provider webhook.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	relay, err := s.registry.Remove(id)
	if err != nil {
		return err
	}
	s.unregister(ctx, relay)
	logger.Info("Relay deactivated", zap.String("relay_id", id))
	return nil
}

// List returns all active relays.
func (s *Service) List() []models.Relay {
	return s.registry.List()
}

func (s *Service) lookup(id string) (models.Relay, error) {
	relay, _, err := s.registry.Get(id)
	return relay, err
}

func (s *Service) unregister(ctx context.Context, relay models.Relay) {
	if relay.ProviderID == "" || s.registrar == nil {
		return
	}
	if err := s.registrar.Unregister(ctx, relay.Token.OAuth2(), relay.ProviderID); err != nil {
		logger.Warn("Failed to delete provider webhook",
			zap.String("relay_id", relay.ID),
			zap.Error(err),
		)
	}
}
