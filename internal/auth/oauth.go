// Package auth correlates an OAuth authorization attempt with the webhook it
// was started for, and completes it exactly once.
package auth

import (
	"context"
	"errors"
	"fmt"

	authmodels "github.com/brizzai/monzo2discord/internal/auth/models"
	"github.com/brizzai/monzo2discord/internal/auth/pending"
	"github.com/brizzai/monzo2discord/internal/auth/providers"
	"github.com/brizzai/monzo2discord/internal/logger"
	"github.com/brizzai/monzo2discord/internal/models"
	"github.com/brizzai/monzo2discord/internal/webhook"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// WebhookValidator turns a raw address into a verified endpoint.
type WebhookValidator interface {
	Validate(ctx context.Context, address string) (*webhook.Endpoint, error)
}

// Activator puts a freshly authorized webhook into service.
type Activator interface {
	Activate(ctx context.Context, endpoint *webhook.Endpoint, token *oauth2.Token) (models.Relay, error)
}

// Completion is the result of a successful callback.
type Completion struct {
	Relay models.Relay
}

// Service represents the authorization flow
type Service struct {
	webhooks  WebhookValidator
	provider  providers.Provider
	store     *pending.Store
	activator Activator
}

type ServiceParams struct {
	fx.In

	Webhooks  WebhookValidator
	Provider  providers.Provider
	Store     *pending.Store
	Activator Activator
}

// NewService creates a new authorization service
func NewService(params ServiceParams) *Service {
	return &Service{
		webhooks:  params.Webhooks,
		provider:  params.Provider,
		store:     params.Store,
		activator: params.Activator,
	}
}

// BeginAuthorization validates rawWebhook and returns the provider URL the
// user should be sent to. Nothing is stored unless the webhook is valid.
func (s *Service) BeginAuthorization(ctx context.Context, rawWebhook string) (redirectURL string, err error) {
	defer func() { observe("begin", err) }()

	if rawWebhook == "" {
		return "", &FlowError{Outcome: OutcomeInvalidRequest, Err: errors.New("webhook is required")}
	}

	endpoint, err := s.webhooks.Validate(ctx, rawWebhook)
	if err != nil {
		logger.Info("Webhook validation failed", zap.Error(err))
		switch {
		case errors.Is(err, webhook.ErrInvalidWebhook):
			return "", &FlowError{Outcome: OutcomeInvalidWebhook, Err: err}
		case errors.Is(err, webhook.ErrUnreachable):
			return "", &FlowError{Outcome: OutcomeUnreachable, Err: err}
		default:
			return "", &FlowError{Outcome: OutcomeInternal, Err: err}
		}
	}

	authorization, err := s.provider.BeginAuthorization()
	if err != nil {
		return "", &FlowError{Outcome: OutcomeInternal, Err: err}
	}

	entry := authmodels.PendingAuthorization{
		Webhook:      endpoint,
		CodeVerifier: authorization.CodeVerifier,
	}
	if err := s.store.Put(authorization.State, entry); err != nil {
		return "", &FlowError{Outcome: OutcomeInternal, Err: fmt.Errorf("store pending authorization: %w", err)}
	}

	logger.Info("Authorization started",
		zap.String("webhook_host", endpoint.Host()),
		logger.Redacted("state", string(authorization.State)),
	)
	return authorization.URL, nil
}

// CompleteAuthorization consumes the attempt identified by state, exchanges
// code for a token and activates the webhook. An unknown, expired or already
// used state never reaches the token endpoint.
func (s *Service) CompleteAuthorization(ctx context.Context, code string, state authmodels.StateToken) (completion *Completion, err error) {
	defer func() { observe("complete", err) }()

	if code == "" || state == "" {
		return nil, &FlowError{Outcome: OutcomeInvalidRequest, Err: errors.New("code and state are required")}
	}

	entry, err := s.take(state)
	if err != nil {
		return nil, err
	}

	token, err := s.provider.ExchangeCode(ctx, code, entry.CodeVerifier)
	if err != nil {
		if errors.Is(err, providers.ErrTokenExchangeFailed) {
			return nil, &FlowError{Outcome: OutcomeExchangeFailed, Err: err}
		}
		return nil, &FlowError{Outcome: OutcomeInternal, Err: err}
	}

	relay, err := s.activator.Activate(ctx, entry.Webhook, token)
	if err != nil {
		logger.Warn("Activation failed",
			zap.String("webhook_host", entry.Webhook.Host()),
			zap.Error(err),
		)
		return nil, &FlowError{Outcome: OutcomeActivationFailed, Err: err}
	}

	logger.Info("Authorization completed",
		zap.String("relay_id", relay.ID),
		zap.String("webhook_host", entry.Webhook.Host()),
	)
	return &Completion{Relay: relay}, nil
}

// RejectAuthorization handles a callback where the provider reported an
// error instead of a code. The attempt is consumed either way.
func (s *Service) RejectAuthorization(state authmodels.StateToken, reason string) (err error) {
	defer func() { observe("reject", err) }()

	if _, err := s.take(state); err != nil {
		return err
	}
	logger.Info("Authorization denied by provider",
		logger.Redacted("state", string(state)),
		zap.String("reason", reason),
	)
	return &FlowError{Outcome: OutcomeRejected, Err: fmt.Errorf("provider returned %s", reason)}
}

// Pending reports how many attempts are waiting for a callback.
func (s *Service) Pending() int {
	return s.store.Len()
}

func (s *Service) take(state authmodels.StateToken) (authmodels.PendingAuthorization, error) {
	entry, err := s.store.TakeAndRemove(state)
	switch {
	case err == nil:
		return entry, nil
	case errors.Is(err, pending.ErrNotFound), errors.Is(err, pending.ErrExpired):
		logger.Info("Callback for unknown authorization",
			logger.Redacted("state", string(state)),
			zap.Error(err),
		)
		return entry, &FlowError{Outcome: OutcomeGone, Err: err}
	default:
		return entry, &FlowError{Outcome: OutcomeInternal, Err: err}
	}
}
