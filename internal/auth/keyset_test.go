package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is an adjustable clock for cache expiry tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func TestKeySetResolve(t *testing.T) {
	t.Parallel()

	key := newTestKey(t)
	clock := newFakeClock()

	var fetches atomic.Int64
	ks, err := NewKeySet(&KeySetConfig{
		Fetch: func(ctx context.Context) (map[string]*rsa.PublicKey, error) {
			fetches.Add(1)
			return map[string]*rsa.PublicKey{"key-1": &key.PublicKey}, nil
		},
		Now: clock.Now,
	})
	require.NoError(t, err)

	// first resolve fetches the set
	got, err := ks.Resolve(context.Background(), "key-1")
	require.NoError(t, err)
	assert.Equal(t, &key.PublicKey, got)
	assert.EqualValues(t, 1, fetches.Load())

	// second resolve is served from the cache
	_, err = ks.Resolve(context.Background(), "key-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, fetches.Load())

	// an unknown kid forces one refresh before failing
	_, err = ks.Resolve(context.Background(), "no-such-key")
	require.Error(t, err)
	assert.ErrorIs(t, err, errKeyNotFound)
	assert.EqualValues(t, 2, fetches.Load())
}

func TestKeySetExpiryTriggersRefetch(t *testing.T) {
	t.Parallel()

	key := newTestKey(t)
	clock := newFakeClock()

	var fetches atomic.Int64
	ks, err := NewKeySet(&KeySetConfig{
		Fetch: func(ctx context.Context) (map[string]*rsa.PublicKey, error) {
			fetches.Add(1)
			return map[string]*rsa.PublicKey{"key-1": &key.PublicKey}, nil
		},
		TTL: time.Hour,
		Now: clock.Now,
	})
	require.NoError(t, err)

	_, err = ks.Resolve(context.Background(), "key-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, fetches.Load())

	clock.Advance(2 * time.Hour)

	_, err = ks.Resolve(context.Background(), "key-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, fetches.Load())
}

func TestKeySetStaleGraceOnFailedRefresh(t *testing.T) {
	t.Parallel()

	key := newTestKey(t)
	clock := newFakeClock()

	var failFetches atomic.Bool
	ks, err := NewKeySet(&KeySetConfig{
		Fetch: func(ctx context.Context) (map[string]*rsa.PublicKey, error) {
			if failFetches.Load() {
				return nil, errors.New("endpoint unreachable")
			}
			return map[string]*rsa.PublicKey{"key-1": &key.PublicKey}, nil
		},
		TTL:   time.Hour,
		Grace: 30 * time.Minute,
		Now:   clock.Now,
	})
	require.NoError(t, err)

	_, err = ks.Resolve(context.Background(), "key-1")
	require.NoError(t, err)

	failFetches.Store(true)

	// expired but within the grace window: the stale set is served
	clock.Advance(70 * time.Minute)
	got, err := ks.Resolve(context.Background(), "key-1")
	require.NoError(t, err)
	assert.Equal(t, &key.PublicKey, got)

	// beyond the grace window the failure surfaces
	clock.Advance(time.Hour)
	_, err = ks.Resolve(context.Background(), "key-1")
	require.Error(t, err)
}

func TestKeySetSingleFetchUnderConcurrency(t *testing.T) {
	t.Parallel()

	key := newTestKey(t)

	var fetches atomic.Int64
	ks, err := NewKeySet(&KeySetConfig{
		Fetch: func(ctx context.Context) (map[string]*rsa.PublicKey, error) {
			fetches.Add(1)
			// widen the race window
			time.Sleep(50 * time.Millisecond)
			return map[string]*rsa.PublicKey{"key-1": &key.PublicKey}, nil
		},
	})
	require.NoError(t, err)

	const workers = 10
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ks.Resolve(context.Background(), "key-1")
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		assert.NoError(t, errs[i])
	}
	// exactly one outbound fetch for the whole miss window
	assert.EqualValues(t, 1, fetches.Load())
}

func TestKeySetFetchTimeout(t *testing.T) {
	t.Parallel()

	ks, err := NewKeySet(&KeySetConfig{
		Fetch: func(ctx context.Context) (map[string]*rsa.PublicKey, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
		FetchTimeout: 20 * time.Millisecond,
	})
	require.NoError(t, err)

	start := time.Now()
	_, err = ks.Resolve(context.Background(), "key-1")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestNewKeySetRequiresFetcherOrURL(t *testing.T) {
	t.Parallel()

	_, err := NewKeySet(&KeySetConfig{})
	assert.Error(t, err)

	_, err = NewKeySet(&KeySetConfig{URL: "https://issuer.example.com/.well-known/jwks.json"})
	assert.NoError(t, err)
}
