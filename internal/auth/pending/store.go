// Package pending keeps authorization attempts that are waiting for the
// provider callback, keyed by their state token.
package pending

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/brizzai/monzo2discord/internal/auth/models"
	"github.com/brizzai/monzo2discord/internal/logger"
	"go.uber.org/zap"
)

var (
	// ErrNotFound means the token was never stored or was already consumed.
	ErrNotFound = errors.New("pending authorization not found")
	// ErrExpired means the token existed but outlived its TTL. The entry is
	// removed by the lookup that reports it.
	ErrExpired = errors.New("pending authorization expired")
	// ErrDuplicateToken means Put was called with a token already in the store.
	ErrDuplicateToken = errors.New("pending authorization already exists")
)

// Store is a concurrency-safe map from state token to pending authorization.
// Each entry can be taken at most once.
type Store struct {
	mu      sync.Mutex
	entries map[models.StateToken]models.PendingAuthorization
	ttl     time.Duration
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates an empty store whose entries live for ttl.
func NewStore(ttl time.Duration, opts ...Option) *Store {
	s := &Store{
		entries: make(map[models.StateToken]models.PendingAuthorization),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put stores entry under token. CreatedAt and ExpiresAt are filled in when
// zero.
func (s *Store) Put(token models.StateToken, entry models.PendingAuthorization) error {
	now := s.now()
	entry.Token = token
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.ExpiresAt.IsZero() && s.ttl > 0 {
		entry.ExpiresAt = entry.CreatedAt.Add(s.ttl)
	}

	s.mu.Lock()
	if _, ok := s.entries[token]; ok {
		s.mu.Unlock()
		return ErrDuplicateToken
	}
	s.entries[token] = entry
	size := len(s.entries)
	s.mu.Unlock()

	pendingEntries.Set(float64(size))
	return nil
}

// TakeAndRemove returns the entry for token and deletes it in the same
// critical section, so concurrent callers with the same token get exactly
// one success.
func (s *Store) TakeAndRemove(token models.StateToken) (models.PendingAuthorization, error) {
	now := s.now()

	s.mu.Lock()
	entry, ok := s.entries[token]
	if ok {
		delete(s.entries, token)
	}
	size := len(s.entries)
	s.mu.Unlock()

	if !ok {
		return models.PendingAuthorization{}, ErrNotFound
	}
	pendingEntries.Set(float64(size))
	if entry.Expired(now) {
		pendingEvictions.WithLabelValues("expired_on_take").Inc()
		return models.PendingAuthorization{}, ErrExpired
	}
	return entry, nil
}

// Cleanup removes every entry that expired at or before now and returns how
// many were removed.
func (s *Store) Cleanup(now time.Time) int {
	s.mu.Lock()
	removed := 0
	for token, entry := range s.entries {
		if entry.Expired(now) {
			delete(s.entries, token)
			removed++
		}
	}
	size := len(s.entries)
	s.mu.Unlock()

	pendingEntries.Set(float64(size))
	if removed > 0 {
		pendingEvictions.WithLabelValues("swept").Add(float64(removed))
	}
	return removed
}

// Run sweeps expired entries every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Cleanup(s.now()); n > 0 {
				logger.Debug("Evicted expired pending authorizations", zap.Int("count", n))
			}
		}
	}
}

// Len returns the number of entries, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
