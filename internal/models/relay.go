package models

import (
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

// Relay is an activated link between an authorized account and a chat webhook.
type Relay struct {
	ID         string      `yaml:"id"`
	WebhookURL string      `yaml:"webhook_url"`
	AccountID  string      `yaml:"account_id,omitempty"`
	ProviderID string      `yaml:"provider_webhook_id,omitempty"`
	Token      *RelayToken `yaml:"token,omitempty"`
	CreatedAt  time.Time   `yaml:"created_at"`
}

// RelayToken is the persisted form of the provider token.
type RelayToken struct {
	AccessToken  string    `yaml:"access_token"`
	RefreshToken string    `yaml:"refresh_token,omitempty"`
	TokenType    string    `yaml:"token_type,omitempty"`
	Expiry       time.Time `yaml:"expiry,omitempty"`
}

func NewRelayToken(t *oauth2.Token) *RelayToken {
	if t == nil {
		return nil
	}
	return &RelayToken{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.Expiry,
	}
}

// OAuth2 converts back for use with an oauth2.TokenSource.
func (t *RelayToken) OAuth2() *oauth2.Token {
	if t == nil {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.Expiry,
	}
}

// RelayState is the on-disk snapshot of all activated relays.
type RelayState struct {
	Relays []Relay `yaml:"relays,omitempty"`
}

// WebhookHost returns the host of the webhook, which is safe to display.
func (r Relay) WebhookHost() string {
	u, err := url.Parse(r.WebhookURL)
	if err != nil {
		return ""
	}
	return u.Host
}
