// Package relay keeps activated relays and forwards provider events to their
// chat webhooks.
package relay

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/brizzai/monzo2discord/internal/logger"
	"github.com/brizzai/monzo2discord/internal/models"
	"github.com/brizzai/monzo2discord/internal/webhook"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ErrRelayNotFound means no relay has the requested id.
var ErrRelayNotFound = errors.New("relay not found")

type entry struct {
	relay    models.Relay
	endpoint *webhook.Endpoint
}

// Registry holds activated relays by id. When a state file is configured
// every change is written to it.
type Registry struct {
	mu     sync.RWMutex
	relays map[string]entry
	path   string
	saveMu sync.Mutex
}

// NewRegistry creates an empty registry persisted to path; an empty path
// keeps relays in memory only.
func NewRegistry(path string) *Registry {
	return &Registry{
		relays: make(map[string]entry),
		path:   path,
	}
}

// Add stores relay with its verified endpoint and saves the snapshot.
func (r *Registry) Add(relay models.Relay, endpoint *webhook.Endpoint) error {
	if relay.ID == "" {
		return errors.New("relay id is required")
	}
	if endpoint == nil {
		return errors.New("relay endpoint is required")
	}
	relay.WebhookURL = endpoint.Address()

	r.mu.Lock()
	r.relays[relay.ID] = entry{relay: relay, endpoint: endpoint}
	size := len(r.relays)
	r.mu.Unlock()

	relaysActive.Set(float64(size))
	return r.Save()
}

// Get returns the relay and endpoint for id.
func (r *Registry) Get(id string) (models.Relay, *webhook.Endpoint, error) {
	r.mu.RLock()
	e, ok := r.relays[id]
	r.mu.RUnlock()
	if !ok {
		return models.Relay{}, nil, ErrRelayNotFound
	}
	return e.relay, e.endpoint, nil
}

// List returns all relays, oldest first.
func (r *Registry) List() []models.Relay {
	r.mu.RLock()
	relays := make([]models.Relay, 0, len(r.relays))
	for _, e := range r.relays {
		relays = append(relays, e.relay)
	}
	r.mu.RUnlock()

	sort.Slice(relays, func(i, j int) bool {
		if relays[i].CreatedAt.Equal(relays[j].CreatedAt) {
			return relays[i].ID < relays[j].ID
		}
		return relays[i].CreatedAt.Before(relays[j].CreatedAt)
	})
	return relays
}

// Remove deletes the relay with id and saves the snapshot.
func (r *Registry) Remove(id string) (models.Relay, error) {
	r.mu.Lock()
	e, ok := r.relays[id]
	delete(r.relays, id)
	size := len(r.relays)
	r.mu.Unlock()

	if !ok {
		return models.Relay{}, ErrRelayNotFound
	}
	relaysActive.Set(float64(size))
	return e.relay, r.Save()
}

// Len returns the number of relays.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.relays)
}

// Save writes the current relays to the state file.
func (r *Registry) Save() error {
	if r.path == "" {
		return nil
	}
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	data, err := yaml.Marshal(models.RelayState{Relays: r.List()})
	if err != nil {
		return fmt.Errorf("marshal relay state: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".relays-*.yaml")
	if err != nil {
		return fmt.Errorf("create state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// Load reads the state file and re-validates every webhook in it. Relays
// whose webhook no longer validates are dropped. A missing file is not an
// error.
func (r *Registry) Load(ctx context.Context, validator Validator) (int, error) {
	if r.path == "" {
		return 0, nil
	}
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read relay state: %w", err)
	}

	var state models.RelayState
	if err := yaml.Unmarshal(data, &state); err != nil {
		return 0, fmt.Errorf("parse relay state %s: %w", r.path, err)
	}

	loaded := 0
	for _, relay := range state.Relays {
		endpoint, err := validator.Validate(ctx, relay.WebhookURL)
		if err != nil {
			logger.Warn("Dropping relay with invalid webhook",
				zap.String("relay_id", relay.ID),
				zap.Error(err),
			)
			continue
		}
		r.mu.Lock()
		r.relays[relay.ID] = entry{relay: relay, endpoint: endpoint}
		r.mu.Unlock()
		loaded++
	}
	relaysActive.Set(float64(r.Len()))

	if loaded != len(state.Relays) {
		if err := r.Save(); err != nil {
			return loaded, err
		}
	}
	return loaded, nil
}
