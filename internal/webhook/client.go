package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/brizzai/monzo2discord/internal/logger"
	"github.com/brizzai/monzo2discord/internal/requester"
	"go.uber.org/zap"
)

const snippetLen = 512

// Message is the JSON body the chat service expects.
type Message struct {
	Content string `json:"content"`
}

// webhookObject is the part of the chat service's webhook resource a
// successful GET must carry.
type webhookObject struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

// Client validates webhook addresses against a Target and posts to them.
type Client struct {
	target    Target
	requester *requester.HTTPRequester
}

// NewClient creates a Client.
func NewClient(target Target, r *requester.HTTPRequester) *Client {
	return &Client{target: target, requester: r}
}

// Validate checks address without side effects beyond a single GET to it.
// Addresses outside the target are refused before any network call.
func (c *Client) Validate(ctx context.Context, address string) (*Endpoint, error) {
	u, err := c.target.parse(address)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &InvalidWebhookError{Reason: ReasonParse, Detail: "address cannot be requested", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.requester.Execute(ctx, req)
	if err != nil {
		return nil, &UnreachableError{Op: "validate", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, rejected(u, resp, "target did not confirm the webhook")
	}
	var object webhookObject
	if err := json.Unmarshal(resp.Body, &object); err != nil || object.ID == "" || object.Token == "" {
		return nil, rejected(u, resp, "response is not a webhook object")
	}

	return &Endpoint{address: u}, nil
}

func rejected(u *url.URL, resp *requester.Response, detail string) *InvalidWebhookError {
	logger.Info("Webhook rejected by target",
		zap.String("host", u.Host),
		zap.Int("status", resp.StatusCode),
		zap.String("detail", detail),
	)
	return &InvalidWebhookError{
		Reason:     ReasonRemoteRejected,
		Detail:     detail,
		StatusCode: resp.StatusCode,
		Body:       resp.Snippet(snippetLen),
	}
}

// Post delivers message to endpoint once. Retrying is the caller's decision.
func (c *Client) Post(ctx context.Context, endpoint *Endpoint, message string) error {
	if endpoint == nil || endpoint.address == nil {
		return fmt.Errorf("post: endpoint was not validated")
	}

	payload, err := json.Marshal(Message{Content: message})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.url().String(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.requester.Execute(ctx, req)
	if err != nil {
		return &UnreachableError{Op: "post", Err: err}
	}
	if !resp.OK() {
		return &PostError{StatusCode: resp.StatusCode, Body: resp.Snippet(snippetLen)}
	}
	return nil
}
