package requester

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/brizzai/monzo2discord/internal/config"
	"go.uber.org/fx"
)

// HTTPRequester executes outbound requests on one shared, bounded client.
type HTTPRequester struct {
	client *http.Client
}

type HTTPRequesterParams struct {
	fx.In

	Config    *config.HTTPClientConfig
	Transport http.RoundTripper `optional:"true"`
}

// NewHTTPRequester creates the requester used by every outbound call.
func NewHTTPRequester(params HTTPRequesterParams) *HTTPRequester {
	timeout := config.DefaultHTTPTimeout
	if params.Config != nil && params.Config.Timeout > 0 {
		timeout = params.Config.Timeout
	}
	return New(params.Transport, timeout)
}

// New builds a requester over transport (http.DefaultTransport when nil).
func New(transport http.RoundTripper, timeout time.Duration) *HTTPRequester {
	if transport == nil {
		transport = http.DefaultTransport
	}
	if timeout <= 0 {
		timeout = config.DefaultHTTPTimeout
	}
	return &HTTPRequester{
		client: &http.Client{
			Transport: &instrumentedTransport{base: transport},
			Timeout:   timeout,
			// Webhook and token endpoints answer directly; following a redirect
			// would send the request somewhere that was never validated.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Client returns the underlying client, shared with the OAuth2 exchange.
func (r *HTTPRequester) Client() *http.Client {
	return r.client
}

// Timeout returns the per-request deadline.
func (r *HTTPRequester) Timeout() time.Duration {
	return r.client.Timeout
}

// Execute sends req with the requester's deadline and buffers the response.
func (r *HTTPRequester) Execute(ctx context.Context, req *http.Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, r.client.Timeout)
	defer cancel()

	resp, err := r.client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       bodyBytes,
		Headers:    resp.Header,
	}, nil
}
