package commvault

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/sync/singleflight"
)

const (
	// The backend does not reliably report token lifetimes, so the
	// nominal lifetime is assumed and a margin is subtracted to avoid
	// racing backend-side expiry.
	tokenLifetime     = 30 * time.Minute
	tokenSafetyMargin = 5 * time.Minute
)

type cachedToken struct {
	value   string
	expires time.Time
}

func (t cachedToken) valid(now time.Time) bool {
	return t.value != "" && now.Before(t.expires)
}

// LoginFunc performs one login and returns the token with its expiry.
type LoginFunc func(ctx context.Context) (string, time.Time, error)

// TokenCache shares authentication tokens across probes, keyed by target
// name. Lookups are lock-free; refreshes are serialized per target via
// singleflight, so concurrent probes for the same target trigger at most
// one login while probes for different targets never block each other.
type TokenCache struct {
	entries *xsync.Map[string, cachedToken]
	flight  singleflight.Group
}

func NewTokenCache() *TokenCache {
	return &TokenCache{
		entries: xsync.NewMap[string, cachedToken](),
	}
}

// Token returns the cached token for target if still valid, otherwise
// runs login and caches the result. All callers waiting on the same
// in-flight login observe its outcome, success or failure alike.
func (tc *TokenCache) Token(ctx context.Context, target string, login LoginFunc) (string, error) {
	if token, ok := tc.entries.Load(target); ok && token.valid(time.Now()) {
		return token.value, nil
	}

	value, err, _ := tc.flight.Do(target, func() (interface{}, error) {
		// A login that finished while this caller was queueing may
		// already have refreshed the entry.
		if token, ok := tc.entries.Load(target); ok && token.valid(time.Now()) {
			return token.value, nil
		}

		value, expires, err := login(ctx)
		if err != nil {
			tc.entries.Delete(target)
			return "", err
		}

		tc.entries.Store(target, cachedToken{value: value, expires: expires})
		return value, nil
	})
	if err != nil {
		return "", err
	}

	return value.(string), nil
}

// Invalidate drops the cached token for target so the next probe
// performs a fresh login.
func (tc *TokenCache) Invalidate(target string) {
	tc.entries.Delete(target)
}

// Len reports the number of cached entries, valid or not.
func (tc *TokenCache) Len() int {
	return tc.entries.Size()
}
