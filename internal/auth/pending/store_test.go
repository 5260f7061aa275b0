package pending

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brizzai/monzo2discord/internal/auth/models"
	"github.com/brizzai/monzo2discord/internal/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestPutThenTakeExactlyOnce(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(10*time.Minute, WithClock(clock.Now))
	ep := &webhook.Endpoint{}

	require.NoError(t, s.Put("tok", models.PendingAuthorization{Webhook: ep}))
	assert.Equal(t, 1, s.Len())

	got, err := s.TakeAndRemove("tok")
	require.NoError(t, err)
	assert.Same(t, ep, got.Webhook)
	assert.Equal(t, models.StateToken("tok"), got.Token)
	assert.Equal(t, clock.Now(), got.CreatedAt)
	assert.Equal(t, clock.Now().Add(10*time.Minute), got.ExpiresAt)
	assert.Equal(t, 0, s.Len())

	_, err = s.TakeAndRemove("tok")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTakeUnknownToken(t *testing.T) {
	s := NewStore(time.Minute)
	_, err := s.TakeAndRemove("never-issued")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPutDuplicateToken(t *testing.T) {
	s := NewStore(time.Minute)
	first := &webhook.Endpoint{}
	require.NoError(t, s.Put("tok", models.PendingAuthorization{Webhook: first}))

	err := s.Put("tok", models.PendingAuthorization{Webhook: &webhook.Endpoint{}})
	assert.ErrorIs(t, err, ErrDuplicateToken)

	got, err := s.TakeAndRemove("tok")
	require.NoError(t, err)
	assert.Same(t, first, got.Webhook, "the original entry must survive")
}

func TestExpiredEntryIsReportedOnceThenGone(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(time.Minute, WithClock(clock.Now))
	require.NoError(t, s.Put("tok", models.PendingAuthorization{}))

	clock.Advance(time.Minute)

	_, err := s.TakeAndRemove("tok")
	assert.ErrorIs(t, err, ErrExpired)
	assert.Equal(t, 0, s.Len())

	_, err = s.TakeAndRemove("tok")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCleanup(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(time.Minute, WithClock(clock.Now))

	require.NoError(t, s.Put("old-1", models.PendingAuthorization{}))
	require.NoError(t, s.Put("old-2", models.PendingAuthorization{}))
	clock.Advance(45 * time.Second)
	require.NoError(t, s.Put("fresh", models.PendingAuthorization{}))
	clock.Advance(30 * time.Second)

	assert.Equal(t, 2, s.Cleanup(clock.Now()))
	assert.Equal(t, 1, s.Len())

	_, err := s.TakeAndRemove("fresh")
	assert.NoError(t, err)
}

func TestExplicitExpiryIsKept(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(time.Hour, WithClock(clock.Now))
	expires := clock.Now().Add(time.Second)

	require.NoError(t, s.Put("tok", models.PendingAuthorization{ExpiresAt: expires}))
	clock.Advance(2 * time.Second)

	_, err := s.TakeAndRemove("tok")
	assert.ErrorIs(t, err, ErrExpired)
}

func TestConcurrentTakersHaveOneWinner(t *testing.T) {
	const takers = 64
	s := NewStore(time.Minute)
	require.NoError(t, s.Put("tok", models.PendingAuthorization{Webhook: &webhook.Endpoint{}}))

	var wins, misses atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < takers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := s.TakeAndRemove("tok"); err == nil {
				wins.Add(1)
			} else {
				assert.ErrorIs(t, err, ErrNotFound)
				misses.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(takers-1), misses.Load())
}

func TestConcurrentDistinctTokens(t *testing.T) {
	const n = 100
	s := NewStore(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token := models.StateToken(fmt.Sprintf("tok-%d", i))
			assert.NoError(t, s.Put(token, models.PendingAuthorization{}))
			_, err := s.TakeAndRemove(token)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 0, s.Len())
}

func TestRunSweepsUntilCancelled(t *testing.T) {
	s := NewStore(time.Millisecond)
	require.NoError(t, s.Put("tok", models.PendingAuthorization{}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx, 5*time.Millisecond)
	}()

	assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
