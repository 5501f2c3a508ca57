package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdhe/game-catalog-proxy/pkg/cache"
	"github.com/abdhe/game-catalog-proxy/pkg/keyring"
)

func newCachedFetcher(t *testing.T, cfg Config) (*Fetcher, *cache.ResponseCache) {
	t.Helper()
	c := cache.New(cache.NewMemoryStore(), "test_", time.Hour)
	if cfg.Family == "" {
		cfg.Family = "test"
	}
	return New(cfg, c), c
}

func TestFetchSuccessStoresInCache(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "k1", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(`{"count":1,"results":[{"id":7}]}`))
	}))
	defer srv.Close()

	f, c := newCachedFetcher(t, Config{})
	ring := keyring.New([]string{"k1", "k2"})

	payload, err := f.Fetch(context.Background(), srv.URL+"/games", "games", ring)
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":1,"results":[{"id":7}]}`, string(payload))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	cached, ok := c.Get(context.Background(), "games")
	require.True(t, ok)
	assert.JSONEq(t, string(payload), string(cached))
}

func TestFetchCacheHitSkipsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":1}`))
	}))

	f, _ := newCachedFetcher(t, Config{})
	ring := keyring.New([]string{"k1"})

	_, err := f.Fetch(context.Background(), srv.URL, "k", ring)
	require.NoError(t, err)

	// Kill the upstream entirely; the cached value must still be served.
	srv.Close()

	payload, err := f.Fetch(context.Background(), srv.URL, "k", ring)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1}`, string(payload))
}

func TestFetchRetryBoundOnRateLimit(t *testing.T) {
	var calls int32
	var mu sync.Mutex
	var seenKeys []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		mu.Lock()
		seenKeys = append(seenKeys, r.URL.Query().Get("key"))
		mu.Unlock()
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f, _ := newCachedFetcher(t, Config{})
	ring := keyring.New([]string{"k1", "k2", "k3"})

	_, err := f.Fetch(context.Background(), srv.URL, "k", ring)

	var exhausted *ExhaustionError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)

	var rateLimited *RateLimitError
	assert.ErrorAs(t, exhausted.Cause, &rateLimited)
	assert.Equal(t, http.StatusTooManyRequests, rateLimited.Status)

	assert.EqualValues(t, 3, atomic.LoadInt32(&calls), "one attempt per configured key")
	assert.Equal(t, []string{"k1", "k2", "k3"}, seenKeys)

	// n-1 rotations: the cursor rests on the last key, not back at the first.
	cur, err := ring.Current()
	require.NoError(t, err)
	assert.Equal(t, "k3", cur)
}

func TestFetchQuotaStatusIsRetryable(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	f, _ := newCachedFetcher(t, Config{})
	ring := keyring.New([]string{"k1", "k2"})

	payload, err := f.Fetch(context.Background(), srv.URL, "k", ring)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(payload))
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestFetchFatalStatusShortCircuits(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f, _ := newCachedFetcher(t, Config{})
	ring := keyring.New([]string{"k1", "k2", "k3"})

	_, err := f.Fetch(context.Background(), srv.URL, "k", ring)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusInternalServerError, httpErr.Status)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "fatal errors consume no retries")

	// zero rotations
	cur, err := ring.Current()
	require.NoError(t, err)
	assert.Equal(t, "k1", cur)
}

func TestFetchInvalidJSONIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	f, _ := newCachedFetcher(t, Config{})
	ring := keyring.New([]string{"k1", "k2"})

	_, err := f.Fetch(context.Background(), srv.URL, "k", ring)

	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestFetchEmptyRingFailsFast(t *testing.T) {
	f, _ := newCachedFetcher(t, Config{})
	ring := keyring.New(nil)

	_, err := f.Fetch(context.Background(), "http://localhost:1/games", "k", ring)
	assert.ErrorIs(t, err, keyring.ErrNoKeys)
}

func TestFetchTransportFailureExhaustsRing(t *testing.T) {
	f, _ := newCachedFetcher(t, Config{})
	ring := keyring.New([]string{"k1", "k2"})

	// Nothing listens here; every attempt is a transport failure.
	_, err := f.Fetch(context.Background(), "http://127.0.0.1:1", "k", ring)

	var exhausted *ExhaustionError
	require.ErrorAs(t, err, &exhausted)

	var transport *TransportError
	assert.ErrorAs(t, exhausted.Cause, &transport)
}

// keyedDoer routes each attempt by the key query parameter, so tests can
// give different keys different behavior.
type keyedDoer struct {
	byKey map[string]func(req *http.Request) (*http.Response, error)
}

func (d *keyedDoer) Do(req *http.Request) (*http.Response, error) {
	fn, ok := d.byKey[req.URL.Query().Get("key")]
	if !ok {
		return nil, errors.New("no handler for key")
	}
	return fn(req)
}

func jsonResponse(body string) *http.Response {
	rec := httptest.NewRecorder()
	_, _ = rec.WriteString(body)
	return rec.Result()
}

func TestFetchTimeoutBudgetResetsPerAttempt(t *testing.T) {
	// Attempt 1 hangs past the per-attempt deadline; attempt 2 answers
	// promptly and must succeed with its own fresh budget.
	doer := &keyedDoer{byKey: map[string]func(req *http.Request) (*http.Response, error){
		"slow": func(req *http.Request) (*http.Response, error) {
			<-req.Context().Done()
			return nil, req.Context().Err()
		},
		"fast": func(req *http.Request) (*http.Response, error) {
			return jsonResponse(`{"fast":true}`), nil
		},
	}}

	f := New(Config{Family: "test", Timeout: 50 * time.Millisecond, Client: doer}, nil)
	ring := keyring.New([]string{"slow", "fast"})

	start := time.Now()
	payload, err := f.Fetch(context.Background(), "http://upstream.test/games", "k", ring)
	require.NoError(t, err)
	assert.JSONEq(t, `{"fast":true}`, string(payload))
	assert.Less(t, time.Since(start), time.Second)
}

func TestFetchTimeoutOnAllKeysExhausts(t *testing.T) {
	hang := func(req *http.Request) (*http.Response, error) {
		<-req.Context().Done()
		return nil, req.Context().Err()
	}
	doer := &keyedDoer{byKey: map[string]func(req *http.Request) (*http.Response, error){
		"k1": hang,
		"k2": hang,
	}}

	f := New(Config{Family: "test", Timeout: 20 * time.Millisecond, Client: doer}, nil)
	ring := keyring.New([]string{"k1", "k2"})

	_, err := f.Fetch(context.Background(), "http://upstream.test/games", "k", ring)

	var exhausted *ExhaustionError
	require.ErrorAs(t, err, &exhausted)
	assert.ErrorIs(t, exhausted.Cause, ErrTimeout)
}

func TestFetchCallerCancellationAbortsChain(t *testing.T) {
	var calls int32
	hang := func(req *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		<-req.Context().Done()
		return nil, req.Context().Err()
	}
	doer := &keyedDoer{byKey: map[string]func(req *http.Request) (*http.Response, error){
		"k1": hang, "k2": hang, "k3": hang,
	}}

	f := New(Config{Family: "test", Timeout: 10 * time.Second, Client: doer}, nil)
	ring := keyring.New([]string{"k1", "k2", "k3"})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	_, err := f.Fetch(ctx, "http://upstream.test/games", "k", ring)
	assert.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "no further attempts after cancellation")
}

func TestFetchConfigurableRetryStatuses(t *testing.T) {
	// Video-platform family: only 403 rotates; 429 is fatal there.
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := New(Config{Family: "video", RetryStatuses: []int{http.StatusForbidden}}, nil)
	ring := keyring.New([]string{"k1", "k2"})

	_, err := f.Fetch(context.Background(), srv.URL, "k", ring)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusTooManyRequests, httpErr.Status)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestFetchNilCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	f := New(Config{Family: "test"}, nil)
	ring := keyring.New([]string{"k1"})

	payload, err := f.Fetch(context.Background(), srv.URL, "k", ring)
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage(`[]`), payload)
}
