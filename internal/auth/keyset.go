package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/toolgate/toolgate/internal/telemetry"
	"go.uber.org/zap"
)

const (
	// KeySetTTLDefault is how long a fetched signing key set stays fresh.
	KeySetTTLDefault = 24 * time.Hour

	// KeySetGraceDefault is how long past expiry a stale key set may still be
	// used when a refresh attempt fails.
	KeySetGraceDefault = 1 * time.Hour

	// KeySetFetchTimeoutDefault bounds a single key set fetch.
	KeySetFetchTimeoutDefault = 10 * time.Second
)

// errKeyNotFound is returned when a key id cannot be resolved even after a refresh.
var errKeyNotFound = errors.New("signing key not found in key set")

// FetchKeysFunc retrieves the signing key set from the remote endpoint.
// Tests inject a fake to control fetch behavior.
type FetchKeysFunc func(ctx context.Context) (map[string]*rsa.PublicKey, error)

// KeySetConfig holds the configuration parameters for initializing a KeySet.
type KeySetConfig struct {
	// URL is the HTTPS endpoint serving the JWKS document.
	// Ignored if Fetch is set.
	URL string

	// Fetch overrides the default HTTP fetcher. Used by tests.
	Fetch FetchKeysFunc

	// HTTPClient is used by the default fetcher. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// TTL is the freshness window of a fetched key set.
	TTL time.Duration
	// Grace is how long a stale set may be served after a failed refresh.
	Grace time.Duration
	// FetchTimeout bounds a single synchronous refresh.
	FetchTimeout time.Duration

	// Now overrides the clock. Used by tests.
	Now func() time.Time

	Metrics telemetry.CustomMetrics
	Logger  *zap.Logger
}

// KeySet caches the remote signing key set used to verify credentials.
// Reads never block on the network; a cache miss or expiry triggers a
// synchronous refresh that is serialized across concurrent requests, so a
// single miss window produces at most one outbound fetch.
type KeySet struct {
	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time

	// refreshMu serializes refreshes. Concurrent requests racing a cache miss
	// wait here and find the set already refreshed when they get the lock.
	refreshMu sync.Mutex

	fetch        FetchKeysFunc
	ttl          time.Duration
	grace        time.Duration
	fetchTimeout time.Duration
	now          func() time.Time

	metrics telemetry.CustomMetrics
	logger  *zap.Logger
}

// NewKeySet creates a KeySet. No fetch happens until the first Resolve call.
func NewKeySet(cfg *KeySetConfig) (*KeySet, error) {
	k := &KeySet{
		fetch:        cfg.Fetch,
		ttl:          cfg.TTL,
		grace:        cfg.Grace,
		fetchTimeout: cfg.FetchTimeout,
		now:          cfg.Now,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
	}
	if k.fetch == nil {
		if cfg.URL == "" {
			return nil, errors.New("key set requires either a URL or a fetch function")
		}
		httpClient := cfg.HTTPClient
		if httpClient == nil {
			httpClient = http.DefaultClient
		}
		k.fetch = NewJWKSFetcher(cfg.URL, httpClient)
	}
	if k.ttl <= 0 {
		k.ttl = KeySetTTLDefault
	}
	if k.grace <= 0 {
		k.grace = KeySetGraceDefault
	}
	if k.fetchTimeout <= 0 {
		k.fetchTimeout = KeySetFetchTimeoutDefault
	}
	if k.now == nil {
		k.now = time.Now
	}
	if k.metrics == nil {
		k.metrics = telemetry.NewNoopCustomMetrics()
	}
	if k.logger == nil {
		k.logger = zap.NewNop()
	}
	return k, nil
}

// Resolve returns the public key for the given key id.
// On a cache miss or an expired cache it triggers one synchronous refresh and
// retries the lookup once. If the refresh fails, a stale set within the grace
// window is used as a fallback.
func (k *KeySet) Resolve(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	key, observed := k.lookup(kid, false)
	if key != nil {
		return key, nil
	}

	if err := k.refresh(ctx, observed); err != nil {
		if stale, _ := k.lookup(kid, true); stale != nil {
			k.logger.Warn("using stale signing key set after failed refresh", zap.Error(err))
			return stale, nil
		}
		return nil, fmt.Errorf("failed to refresh signing key set: %w", err)
	}

	key, _ = k.lookup(kid, false)
	if key == nil {
		return nil, errKeyNotFound
	}
	return key, nil
}

// lookup returns the key for kid if the cached set is usable, along with the
// timestamp of the set it consulted. A set is usable when it is within its TTL,
// or within TTL+grace when allowStale is set.
func (k *KeySet) lookup(kid string, allowStale bool) (*rsa.PublicKey, time.Time) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.keys == nil {
		return nil, k.fetchedAt
	}
	age := k.now().Sub(k.fetchedAt)
	limit := k.ttl
	if allowStale {
		limit += k.grace
	}
	if age >= limit {
		return nil, k.fetchedAt
	}
	return k.keys[kid], k.fetchedAt
}

// refresh fetches the key set unless another refresh already completed after
// the caller observed the miss.
func (k *KeySet) refresh(ctx context.Context, observed time.Time) error {
	k.refreshMu.Lock()
	defer k.refreshMu.Unlock()

	k.mu.RLock()
	current := k.fetchedAt
	k.mu.RUnlock()
	if current.After(observed) {
		// another request refreshed the set while we waited on the lock
		return nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, k.fetchTimeout)
	defer cancel()

	keys, err := k.fetch(fetchCtx)
	k.metrics.RecordKeySetRefresh(ctx, err == nil)
	if err != nil {
		return err
	}

	k.mu.Lock()
	k.keys = keys
	k.fetchedAt = k.now()
	k.mu.Unlock()

	k.logger.Info("signing key set refreshed", zap.Int("keys", len(keys)))
	return nil
}

// jwksDocument is the wire format of the remote key set endpoint.
type jwksDocument struct {
	Keys []jwksKey `json:"keys"`
}

type jwksKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// NewJWKSFetcher returns a FetchKeysFunc that retrieves and parses a JWKS
// document from the given URL. Keys that are not RSA or lack a key id are skipped.
func NewJWKSFetcher(url string, httpClient *http.Client) FetchKeysFunc {
	return func(ctx context.Context) (map[string]*rsa.PublicKey, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create key set request: %w", err)
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch key set: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("key set endpoint returned status %d", resp.StatusCode)
		}

		var doc jwksDocument
		if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode key set document: %w", err)
		}

		keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
		for _, jk := range doc.Keys {
			if jk.Kty != "RSA" || jk.Kid == "" {
				continue
			}
			pub, err := parseRSAKey(jk)
			if err != nil {
				return nil, fmt.Errorf("failed to parse key %q: %w", jk.Kid, err)
			}
			keys[jk.Kid] = pub
		}
		if len(keys) == 0 {
			return nil, errors.New("key set document contains no usable RSA keys")
		}
		return keys, nil
	}
}

// parseRSAKey builds an RSA public key from the base64url modulus and exponent
// of a JWKS entry.
func parseRSAKey(jk jwksKey) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(jk.N)
	if err != nil {
		return nil, fmt.Errorf("invalid modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(jk.E)
	if err != nil {
		return nil, fmt.Errorf("invalid exponent: %w", err)
	}
	e := new(big.Int).SetBytes(eBytes)
	if !e.IsInt64() || e.Int64() <= 0 {
		return nil, errors.New("exponent out of range")
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(e.Int64()),
	}, nil
}
