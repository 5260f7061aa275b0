package providers

import (
	"context"
	"net/http"

	"github.com/brizzai/monzo2discord/internal/auth/models"
	"golang.org/x/oauth2"
)

// Authorization is a freshly started authorization attempt.
type Authorization struct {
	// URL is where the user agent should be redirected.
	URL string
	// State is embedded in URL and comes back on the callback.
	State models.StateToken
	// CodeVerifier is the PKCE secret kept server-side; empty without PKCE.
	CodeVerifier string
}

// Provider defines the interface that the OAuth provider must implement
type Provider interface {
	// BeginAuthorization returns a redirect URL carrying a new state token
	BeginAuthorization() (Authorization, error)

	// ExchangeCode exchanges an authorization code for tokens
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*oauth2.Token, error)

	// Client returns an HTTP client authorized with token for provider API calls
	Client(ctx context.Context, token *oauth2.Token) *http.Client
}
