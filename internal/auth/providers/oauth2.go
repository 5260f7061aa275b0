package providers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/brizzai/monzo2discord/internal/auth/models"
	"github.com/brizzai/monzo2discord/internal/config"
	"github.com/brizzai/monzo2discord/internal/logger"
	"github.com/brizzai/monzo2discord/internal/requester"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// stateBytes is the entropy of a state token before encoding.
const stateBytes = 32

// OAuth2Provider runs the authorization code grant against a single
// provider, Monzo by default.
type OAuth2Provider struct {
	oauth2Config *oauth2.Config
	requester    *requester.HTTPRequester
	pkce         bool
	random       io.Reader
}

// NewOAuth2Provider builds a provider from configuration. All token endpoint
// and API traffic goes through r so the service keeps a single HTTP client.
func NewOAuth2Provider(cfg *config.OAuthConfig, r *requester.HTTPRequester) *OAuth2Provider {
	return &OAuth2Provider{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret.Reveal(),
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
				// Monzo reads client_id and client_secret from the form body
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		requester: r,
		pkce:      cfg.PKCE,
		random:    rand.Reader,
	}
}

// BeginAuthorization generates a new state token and the matching provider URL.
func (p *OAuth2Provider) BeginAuthorization() (Authorization, error) {
	state, err := p.newState()
	if err != nil {
		return Authorization{}, fmt.Errorf("generate state: %w", err)
	}

	auth := Authorization{State: state}
	opts := []oauth2.AuthCodeOption{}
	if p.pkce {
		auth.CodeVerifier = oauth2.GenerateVerifier()
		opts = append(opts, oauth2.S256ChallengeOption(auth.CodeVerifier))
	}
	auth.URL = p.oauth2Config.AuthCodeURL(string(state), opts...)
	return auth, nil
}

func (p *OAuth2Provider) newState() (models.StateToken, error) {
	buf := make([]byte, stateBytes)
	if _, err := io.ReadFull(p.random, buf); err != nil {
		return "", err
	}
	return models.StateToken(base64.RawURLEncoding.EncodeToString(buf)), nil
}

// ExchangeCode trades code for a token. Codes are single-use, so a failure
// is final and not retried.
func (p *OAuth2Provider) ExchangeCode(ctx context.Context, code, codeVerifier string) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(p.httpContext(ctx), p.requester.Timeout())
	defer cancel()

	opts := []oauth2.AuthCodeOption{}
	if codeVerifier != "" {
		opts = append(opts, oauth2.VerifierOption(codeVerifier))
	}

	token, err := p.oauth2Config.Exchange(ctx, code, opts...)
	if err != nil {
		exchangeErr := &ExchangeError{Err: err}
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			exchangeErr.ErrorCode = retrieveErr.ErrorCode
			if retrieveErr.Response != nil {
				exchangeErr.StatusCode = retrieveErr.Response.StatusCode
			}
		}
		logger.Warn("Failed to exchange code",
			zap.Int("status", exchangeErr.StatusCode),
			zap.String("error_code", exchangeErr.ErrorCode),
		)
		return nil, exchangeErr
	}
	return token, nil
}

// Client returns a client that authorizes with token and refreshes it
// through the shared transport.
func (p *OAuth2Provider) Client(ctx context.Context, token *oauth2.Token) *http.Client {
	return p.oauth2Config.Client(p.httpContext(ctx), token)
}

func (p *OAuth2Provider) httpContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.requester.Client())
}
