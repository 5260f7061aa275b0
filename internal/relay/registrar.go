package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brizzai/monzo2discord/internal/auth/providers"
	"github.com/brizzai/monzo2discord/internal/requester"
	"golang.org/x/oauth2"
)

// ErrNoAccount means the authorized user has no account to attach a webhook to.
var ErrNoAccount = errors.New("no account available")

// APIError is a non-2xx answer from the provider API.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: provider answered %d", e.Op, e.StatusCode)
}

// Registration identifies a webhook registered with the provider.
type Registration struct {
	AccountID string
	WebhookID string
}

// Registrar registers relay ingress URLs as provider webhooks, so that the
// provider pushes account events to this service.
type Registrar struct {
	apiURL   string
	provider providers.Provider
	timeout  time.Duration
}

// NewRegistrar creates a Registrar for the API at apiURL.
func NewRegistrar(apiURL string, provider providers.Provider, timeout time.Duration) *Registrar {
	return &Registrar{
		apiURL:   strings.TrimRight(apiURL, "/"),
		provider: provider,
		timeout:  timeout,
	}
}

type accountsResponse struct {
	Accounts []struct {
		ID     string `json:"id"`
		Closed bool   `json:"closed"`
	} `json:"accounts"`
}

type webhookResponse struct {
	Webhook struct {
		ID        string `json:"id"`
		AccountID string `json:"account_id"`
		URL       string `json:"url"`
	} `json:"webhook"`
}

// Register attaches callbackURL to the first open account of the user.
func (r *Registrar) Register(ctx context.Context, token *oauth2.Token, callbackURL string) (Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	client := r.provider.Client(ctx, token)

	var accounts accountsResponse
	if err := r.do(ctx, client, "list accounts", http.MethodGet, "/accounts", nil, &accounts); err != nil {
		return Registration{}, err
	}
	accountID := ""
	for _, account := range accounts.Accounts {
		if !account.Closed {
			accountID = account.ID
			break
		}
	}
	if accountID == "" {
		return Registration{}, ErrNoAccount
	}

	form := url.Values{"account_id": {accountID}, "url": {callbackURL}}
	var created webhookResponse
	if err := r.do(ctx, client, "register webhook", http.MethodPost, "/webhooks", form, &created); err != nil {
		return Registration{}, err
	}
	return Registration{AccountID: accountID, WebhookID: created.Webhook.ID}, nil
}

// Unregister deletes a webhook registered earlier.
func (r *Registrar) Unregister(ctx context.Context, token *oauth2.Token, webhookID string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	client := r.provider.Client(ctx, token)
	return r.do(ctx, client, "delete webhook", http.MethodDelete, "/webhooks/"+url.PathEscape(webhookID), nil, nil)
}

func (r *Registrar) do(ctx context.Context, client *http.Client, op, method, path string, form url.Values, out interface{}) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, r.apiURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, requester.MaxBodyBytes))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		result := &requester.Response{StatusCode: resp.StatusCode, Body: data}
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: result.Snippet(512)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
