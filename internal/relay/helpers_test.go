package relay

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brizzai/monzo2discord/internal/requester"
	"github.com/brizzai/monzo2discord/internal/requester/requestertest"
	"github.com/brizzai/monzo2discord/internal/webhook"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// newWebhookClient answers GETs with 200 unless the path contains "dead",
// and POSTs with postStatus.
func newWebhookClient(t *testing.T, postStatus int) (*webhook.Client, *requestertest.Recorder) {
	t.Helper()
	rec := requestertest.NewRecorder(func(req *http.Request) (*http.Response, error) {
		if strings.Contains(req.URL.Path, "dead") {
			return requestertest.NewResponse(req, http.StatusNotFound, `{"message":"Unknown Webhook"}`), nil
		}
		if req.Method == http.MethodPost {
			return requestertest.NewResponse(req, postStatus, ""), nil
		}
		return requestertest.NewResponse(req, http.StatusOK, requestertest.WebhookObject), nil
	})
	target, err := webhook.NewTarget("https://discord.com", "/api/webhooks/")
	require.NoError(t, err)
	return webhook.NewClient(target, requester.New(rec, time.Second)), rec
}

func validEndpoint(t *testing.T, client *webhook.Client, address string) *webhook.Endpoint {
	t.Helper()
	ep, err := client.Validate(context.Background(), address)
	require.NoError(t, err)
	return ep
}

type fakeRegistrar struct {
	mu           sync.Mutex
	registerErr  error
	callbackURLs []string
	unregistered []string
}

func (f *fakeRegistrar) Register(_ context.Context, _ *oauth2.Token, callbackURL string) (Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callbackURLs = append(f.callbackURLs, callbackURL)
	if f.registerErr != nil {
		return Registration{}, f.registerErr
	}
	return Registration{AccountID: "acc_1", WebhookID: "webhook_1"}, nil
}

func (f *fakeRegistrar) Unregister(_ context.Context, _ *oauth2.Token, webhookID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unregistered = append(f.unregistered, webhookID)
	return nil
}
