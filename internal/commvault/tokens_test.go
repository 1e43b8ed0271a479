package commvault

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validLogin(token string, calls *atomic.Int64) LoginFunc {
	return func(ctx context.Context) (string, time.Time, error) {
		if calls != nil {
			calls.Add(1)
		}
		return token, time.Now().Add(25 * time.Minute), nil
	}
}

func TestTokenReuse(t *testing.T) {
	cache := NewTokenCache()
	var calls atomic.Int64

	token, err := cache.Token(t.Context(), "prod", validLogin("tok-1", &calls))
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
	assert.Equal(t, int64(1), calls.Load())

	// A valid cached token must not trigger another login.
	token, err = cache.Token(t.Context(), "prod", func(ctx context.Context) (string, time.Time, error) {
		t.Fatal("login called despite valid cached token")
		return "", time.Time{}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
}

func TestTokenExpiry(t *testing.T) {
	cache := NewTokenCache()
	var calls atomic.Int64

	expiredLogin := func(ctx context.Context) (string, time.Time, error) {
		calls.Add(1)
		return "stale", time.Now().Add(-time.Minute), nil
	}

	_, err := cache.Token(t.Context(), "prod", expiredLogin)
	require.NoError(t, err)

	token, err := cache.Token(t.Context(), "prod", validLogin("fresh", &calls))
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
	assert.Equal(t, int64(2), calls.Load())
}

func TestSingleLoginUnderConcurrency(t *testing.T) {
	cache := NewTokenCache()
	var calls atomic.Int64

	slowLogin := func(ctx context.Context) (string, time.Time, error) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)
		return "shared", time.Now().Add(25 * time.Minute), nil
	}

	const probes = 20
	start := make(chan struct{})
	var wg sync.WaitGroup
	tokens := make([]string, probes)
	errs := make([]error, probes)

	for i := 0; i < probes; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			tokens[idx], errs[idx] = cache.Token(context.Background(), "prod", slowLogin)
		}(i)
	}

	close(start)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load(), "expected exactly one login for concurrent same-target probes")
	for i := 0; i < probes; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "shared", tokens[i])
	}
}

func TestNoCrossTargetSerialization(t *testing.T) {
	cache := NewTokenCache()

	// Target A's login cannot finish until target B's has. If logins
	// were serialized behind one lock this would deadlock.
	bDone := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_, err := cache.Token(context.Background(), "a", func(ctx context.Context) (string, time.Time, error) {
			<-bDone
			return "ta", time.Now().Add(25 * time.Minute), nil
		})
		assert.NoError(t, err)
	}()

	go func() {
		time.Sleep(10 * time.Millisecond)
		_, err := cache.Token(context.Background(), "b", func(ctx context.Context) (string, time.Time, error) {
			close(bDone)
			return "tb", time.Now().Add(25 * time.Minute), nil
		})
		assert.NoError(t, err)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cross-target login serialization detected")
	}
}

func TestLoginFailureInvalidates(t *testing.T) {
	cache := NewTokenCache()
	loginErr := errors.New("backend unreachable")

	_, err := cache.Token(t.Context(), "prod", func(ctx context.Context) (string, time.Time, error) {
		return "", time.Time{}, loginErr
	})
	require.ErrorIs(t, err, loginErr)
	assert.Equal(t, 0, cache.Len())

	// The next call retries fresh.
	var calls atomic.Int64
	token, err := cache.Token(t.Context(), "prod", validLogin("recovered", &calls))
	require.NoError(t, err)
	assert.Equal(t, "recovered", token)
	assert.Equal(t, int64(1), calls.Load())
}

func TestInvalidate(t *testing.T) {
	cache := NewTokenCache()
	var calls atomic.Int64

	_, err := cache.Token(t.Context(), "prod", validLogin("tok", &calls))
	require.NoError(t, err)

	cache.Invalidate("prod")

	_, err = cache.Token(t.Context(), "prod", validLogin("tok", &calls))
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())
}
