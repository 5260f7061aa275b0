package models

import (
	"time"

	"github.com/brizzai/monzo2discord/internal/webhook"
)

// StateToken is the anti-forgery value carried through the provider
// redirect as the OAuth "state" parameter.
type StateToken string

// PendingAuthorization is an authorization attempt waiting for its callback
type PendingAuthorization struct {
	Token        StateToken
	Webhook      *webhook.Endpoint
	CodeVerifier string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Expired reports whether the attempt is past its deadline at now.
func (p PendingAuthorization) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && !now.Before(p.ExpiresAt)
}
