// Package webhook validates chat webhook addresses and delivers messages to them.
package webhook

import (
	"fmt"
	"net/url"
	"strings"
)

// Endpoint is a webhook address that passed validation. The zero value is
// not usable; obtain one from Client.Validate.
type Endpoint struct {
	address *url.URL
}

// Address returns the validated URL, without query or fragment.
func (e *Endpoint) Address() string {
	if e == nil || e.address == nil {
		return ""
	}
	return e.address.String()
}

// Host returns the host of the address, which is safe to log.
func (e *Endpoint) Host() string {
	if e == nil || e.address == nil {
		return ""
	}
	return e.address.Host
}

func (e *Endpoint) url() *url.URL {
	u := *e.address
	return &u
}

// Target describes the chat service webhooks must belong to.
type Target struct {
	scheme     string
	host       string
	pathPrefix string
}

// NewTarget parses the service base URL (e.g. https://discord.com) and the
// API prefix every webhook path must start with (e.g. /api/webhooks/).
func NewTarget(baseURL, pathPrefix string) (Target, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return Target{}, fmt.Errorf("parse webhook target: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return Target{}, fmt.Errorf("webhook target %q is not an absolute URL", baseURL)
	}
	if !strings.HasPrefix(pathPrefix, "/") {
		return Target{}, fmt.Errorf("webhook path prefix %q must start with /", pathPrefix)
	}
	return Target{
		scheme:     strings.ToLower(u.Scheme),
		host:       u.Host,
		pathPrefix: pathPrefix,
	}, nil
}

// parse turns a raw address into a canonical URL, or explains why not.
// It does no I/O.
func (t Target) parse(address string) (*url.URL, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, &InvalidWebhookError{Reason: ReasonParse, Detail: "address is empty"}
	}

	u, err := url.Parse(address)
	if err != nil {
		return nil, &InvalidWebhookError{Reason: ReasonParse, Detail: "address is not a URL", Err: err}
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, &InvalidWebhookError{Reason: ReasonParse, Detail: "address is not an absolute URL"}
	}
	if u.User != nil {
		return nil, &InvalidWebhookError{Reason: ReasonDisallowedURL, Detail: "address must not carry credentials"}
	}

	// Query parameters would let a caller point the verification and the
	// relay at something other than the bare webhook.
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	u.Host = strings.ToLower(u.Host)

	if !strings.EqualFold(u.Scheme, t.scheme) || !strings.EqualFold(u.Host, t.host) {
		return nil, &InvalidWebhookError{
			Reason: ReasonDisallowedURL,
			Detail: fmt.Sprintf("host %q is not %s://%s", u.Host, t.scheme, t.host),
		}
	}
	path := u.EscapedPath()
	if !strings.HasPrefix(path, t.pathPrefix) || len(path) == len(t.pathPrefix) ||
		hasEncodedSeparator(path) || hasDotSegment(u.Path) {
		return nil, &InvalidWebhookError{
			Reason: ReasonDisallowedURL,
			Detail: fmt.Sprintf("path must start with %s", t.pathPrefix),
		}
	}
	return u, nil
}

func hasDotSegment(path string) bool {
	for _, seg := range strings.Split(path, "/") {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}

// hasEncodedSeparator reports escaped dots or slashes, which a server may
// decode into dot segments after the prefix check.
func hasEncodedSeparator(escaped string) bool {
	lower := strings.ToLower(escaped)
	return strings.Contains(lower, "%2e") || strings.Contains(lower, "%2f") || strings.Contains(lower, "%5c")
}
