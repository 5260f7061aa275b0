package relay

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/brizzai/monzo2discord/internal/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestRegistryAddGetRemove(t *testing.T) {
	client, _ := newWebhookClient(t, 204)
	ep := validEndpoint(t, client, "https://discord.com/api/webhooks/1/a")
	r := NewRegistry("")

	require.NoError(t, r.Add(models.Relay{ID: "r1"}, ep))

	relay, got, err := r.Get("r1")
	require.NoError(t, err)
	assert.Same(t, ep, got)
	assert.Equal(t, "https://discord.com/api/webhooks/1/a", relay.WebhookURL)

	_, err = r.Remove("r1")
	require.NoError(t, err)
	_, _, err = r.Get("r1")
	assert.ErrorIs(t, err, ErrRelayNotFound)
	_, err = r.Remove("r1")
	assert.ErrorIs(t, err, ErrRelayNotFound)
}

func TestRegistryRejectsIncompleteRelays(t *testing.T) {
	client, _ := newWebhookClient(t, 204)
	r := NewRegistry("")

	assert.Error(t, r.Add(models.Relay{}, validEndpoint(t, client, "https://discord.com/api/webhooks/1/a")))
	assert.Error(t, r.Add(models.Relay{ID: "r1"}, nil))
	assert.Equal(t, 0, r.Len())
}

func TestRegistryListOrder(t *testing.T) {
	client, _ := newWebhookClient(t, 204)
	ep := validEndpoint(t, client, "https://discord.com/api/webhooks/1/a")
	r := NewRegistry("")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, r.Add(models.Relay{ID: "b", CreatedAt: base.Add(time.Hour)}, ep))
	require.NoError(t, r.Add(models.Relay{ID: "a", CreatedAt: base.Add(2 * time.Hour)}, ep))
	require.NoError(t, r.Add(models.Relay{ID: "c", CreatedAt: base}, ep))

	var ids []string
	for _, relay := range r.List() {
		ids = append(ids, relay.ID)
	}
	assert.Equal(t, []string{"c", "b", "a"}, ids)
}

func TestRegistrySaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "relays.yaml")
	client, rec := newWebhookClient(t, 204)
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	saved := NewRegistry(path)
	require.NoError(t, saved.Add(models.Relay{
		ID:         "r1",
		AccountID:  "acc_1",
		ProviderID: "webhook_1",
		Token:      &models.RelayToken{AccessToken: "acc", RefreshToken: "ref", TokenType: "Bearer"},
		CreatedAt:  created,
	}, validEndpoint(t, client, "https://discord.com/api/webhooks/1/a")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), "state file holds tokens")

	loaded := NewRegistry(path)
	callsBefore := rec.Calls()
	n, err := loaded.Load(context.Background(), client)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, callsBefore+1, rec.Calls(), "loaded webhooks are validated again")

	if diff := cmp.Diff(saved.List(), loaded.List()); diff != "" {
		t.Errorf("loaded relays differ (-saved +loaded):\n%s", diff)
	}
}

func TestRegistryLoadDropsInvalidWebhooks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relays.yaml")
	state := models.RelayState{Relays: []models.Relay{
		{ID: "live", WebhookURL: "https://discord.com/api/webhooks/1/a"},
		{ID: "dead", WebhookURL: "https://discord.com/api/webhooks/dead/b"},
		{ID: "foreign", WebhookURL: "https://evil.example/api/webhooks/2/c"},
	}}
	data, err := yaml.Marshal(state)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	client, _ := newWebhookClient(t, 204)
	r := NewRegistry(path)
	n, err := r.Load(context.Background(), client)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, _, err = r.Get("live")
	assert.NoError(t, err)
	_, _, err = r.Get("dead")
	assert.ErrorIs(t, err, ErrRelayNotFound)

	var rewritten models.RelayState
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, yaml.Unmarshal(data, &rewritten))
	assert.Len(t, rewritten.Relays, 1)
}

func TestRegistryLoadMissingFile(t *testing.T) {
	client, _ := newWebhookClient(t, 204)
	r := NewRegistry(filepath.Join(t.TempDir(), "missing.yaml"))

	n, err := r.Load(context.Background(), client)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRegistryLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relays.yaml")
	require.NoError(t, os.WriteFile(path, []byte("relays: [\n"), 0o600))
	client, _ := newWebhookClient(t, 204)

	_, err := NewRegistry(path).Load(context.Background(), client)
	assert.Error(t, err)
}
