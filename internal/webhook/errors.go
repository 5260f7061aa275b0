package webhook

import (
	"errors"
	"fmt"
	"net/url"
)

var (
	// ErrInvalidWebhook matches every validation failure.
	ErrInvalidWebhook = errors.New("invalid webhook")

	// ErrUnreachable means the chat service could not be contacted at all.
	ErrUnreachable = errors.New("webhook target unreachable")

	// ErrPostFailed means the chat service answered a relay with a non-2xx status.
	ErrPostFailed = errors.New("webhook post failed")
)

// Reason says why a webhook address was refused.
type Reason int

const (
	ReasonParse Reason = iota
	ReasonDisallowedURL
	ReasonRemoteRejected
)

func (r Reason) String() string {
	switch r {
	case ReasonParse:
		return "parse_error"
	case ReasonDisallowedURL:
		return "disallowed_url"
	case ReasonRemoteRejected:
		return "remote_rejected"
	default:
		return "unknown"
	}
}

// InvalidWebhookError is returned by Client.Validate for addresses that can
// never become an Endpoint.
type InvalidWebhookError struct {
	Reason Reason
	// Detail is safe to show to the caller; it never contains the webhook token.
	Detail string
	// StatusCode and Body are set for ReasonRemoteRejected.
	StatusCode int
	Body       string
	Err        error
}

func (e *InvalidWebhookError) Error() string {
	switch e.Reason {
	case ReasonRemoteRejected:
		return fmt.Sprintf("invalid webhook: %s: target answered %d", e.Reason, e.StatusCode)
	default:
		return fmt.Sprintf("invalid webhook: %s: %s", e.Reason, e.Detail)
	}
}

func (e *InvalidWebhookError) Is(target error) bool {
	return target == ErrInvalidWebhook
}

func (e *InvalidWebhookError) Unwrap() error {
	return e.Err
}

// UnreachableError wraps a transport failure (DNS, connect, timeout).
type UnreachableError struct {
	Op  string
	Err error
}

// Error leaves out the request URL, whose path carries the webhook token.
func (e *UnreachableError) Error() string {
	cause := e.Err
	var urlErr *url.Error
	if errors.As(cause, &urlErr) {
		cause = urlErr.Err
	}
	return fmt.Sprintf("%s webhook: target unreachable: %v", e.Op, cause)
}

func (e *UnreachableError) Is(target error) bool {
	return target == ErrUnreachable
}

func (e *UnreachableError) Unwrap() error {
	return e.Err
}

// PostError carries the chat service's answer to a rejected relay.
type PostError struct {
	StatusCode int
	Body       string
}

func (e *PostError) Error() string {
	return fmt.Sprintf("webhook post failed with status %d", e.StatusCode)
}

func (e *PostError) Is(target error) bool {
	return target == ErrPostFailed
}
