// Package fetch orchestrates resilient calls to credentialed JSON APIs:
// cache lookup, per-attempt timeouts, response classification, and
// key-rotation retries bounded by the size of the key ring.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/abdhe/game-catalog-proxy/pkg/cache"
	"github.com/abdhe/game-catalog-proxy/pkg/keyring"
	"github.com/abdhe/game-catalog-proxy/pkg/metrics"
)

// Doer abstracts *http.Client so tests can substitute the transport.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// outcome is the classifier's verdict on a single attempt.
type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeRetryable
	outcomeFatal
)

func (o outcome) String() string {
	switch o {
	case outcomeSuccess:
		return "success"
	case outcomeRetryable:
		return "retryable"
	default:
		return "fatal"
	}
}

// maxBodyBytes caps how much of an upstream response we will buffer.
const maxBodyBytes = 8 << 20 // 8MB

// Config holds per-family tuning for a Fetcher.
type Config struct {
	// Family labels this fetcher in logs and metrics ("catalog", "detail", "video").
	Family string

	// Timeout bounds each individual attempt. Every retry gets a fresh
	// full budget. Defaults to 10s.
	Timeout time.Duration

	// RetryStatuses are the HTTP statuses that trigger key rotation.
	// Defaults to 429 and 403.
	RetryStatuses []int

	// KeyParam is the query parameter carrying the credential.
	// Defaults to "key".
	KeyParam string

	// Client performs the HTTP calls. Defaults to a plain http.Client;
	// attempt deadlines come from the request context, not the client.
	Client Doer
}

// Fetcher performs one logical GET with caching and credential failover.
// A Fetcher is safe for concurrent use; state lives in the shared ring
// and cache it is given per call.
type Fetcher struct {
	family    string
	timeout   time.Duration
	retryable map[int]struct{}
	keyParam  string
	client    Doer
	cache     *cache.ResponseCache
	log       *logrus.Entry
}

// New creates a Fetcher over the given response cache. A nil cache
// disables caching entirely.
func New(cfg Config, responseCache *cache.ResponseCache) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if len(cfg.RetryStatuses) == 0 {
		cfg.RetryStatuses = []int{http.StatusTooManyRequests, http.StatusForbidden}
	}
	if cfg.KeyParam == "" {
		cfg.KeyParam = "key"
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}

	retryable := make(map[int]struct{}, len(cfg.RetryStatuses))
	for _, s := range cfg.RetryStatuses {
		retryable[s] = struct{}{}
	}

	return &Fetcher{
		family:    cfg.Family,
		timeout:   cfg.Timeout,
		retryable: retryable,
		keyParam:  cfg.KeyParam,
		client:    cfg.Client,
		cache:     responseCache,
		log:       logrus.WithField("component", "fetch").WithField("family", cfg.Family),
	}
}

// Fetch performs one logical request against rawURL.
//
// The cache is consulted first; on a hit no credential is read and no
// network call is made. On a miss the current credential is appended to
// the URL and the call attempted with a fresh timeout. Retryable
// failures (429/403 per config, timeouts, transport errors) rotate the
// ring and try the next key; other non-2xx statuses and invalid JSON
// bodies fail immediately. After every key has been tried the last
// retryable cause is wrapped in an ExhaustionError.
//
// Cancelling ctx aborts the whole retry chain.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, cacheKey string, ring *keyring.Ring) (json.RawMessage, error) {
	start := time.Now()

	if f.cache != nil {
		if payload, ok := f.cache.Get(ctx, cacheKey); ok {
			metrics.RecordCacheLookup(true)
			metrics.FetchLatency.WithLabelValues(f.family, "hit").Observe(time.Since(start).Seconds())
			return payload, nil
		}
		metrics.RecordCacheLookup(false)
	}

	attempts := ring.Size()
	if attempts == 0 {
		return nil, keyring.ErrNoKeys
	}

	var lastCause error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		key, err := ring.Current()
		if err != nil {
			return nil, err
		}

		payload, verdict, attemptErr := f.attempt(ctx, rawURL, key)
		metrics.UpstreamAttemptsTotal.WithLabelValues(f.family, verdict.String()).Inc()

		switch verdict {
		case outcomeSuccess:
			if f.cache != nil {
				f.cache.Set(ctx, cacheKey, payload)
			}
			metrics.FetchLatency.WithLabelValues(f.family, "miss").Observe(time.Since(start).Seconds())
			return payload, nil

		case outcomeFatal:
			return nil, attemptErr

		case outcomeRetryable:
			lastCause = attemptErr
			if attempt < attempts-1 {
				f.log.WithError(attemptErr).WithField("attempt", attempt+1).
					Warn("retryable upstream failure, rotating API key")
				ring.Rotate()
				metrics.KeyRotationsTotal.WithLabelValues(f.family).Inc()
			}
		}
	}

	return nil, &ExhaustionError{Attempts: attempts, Cause: lastCause}
}

// attempt performs one timed HTTP call with the given credential and
// classifies the result.
func (f *Fetcher) attempt(ctx context.Context, rawURL, key string) (json.RawMessage, outcome, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	u, err := withCredential(rawURL, f.keyParam, key)
	if err != nil {
		return nil, outcomeFatal, err
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, u, nil)
	if err != nil {
		return nil, outcomeFatal, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		// Caller cancellation aborts the chain; the attempt's own
		// deadline is a retryable timeout.
		if ctx.Err() != nil {
			return nil, outcomeFatal, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, outcomeRetryable, ErrTimeout
		}
		return nil, outcomeRetryable, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if verdict, statusErr := f.classify(resp.StatusCode); verdict != outcomeSuccess {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, verdict, statusErr
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, outcomeFatal, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, outcomeRetryable, ErrTimeout
		}
		return nil, outcomeRetryable, &TransportError{Err: err}
	}

	if !json.Valid(body) {
		return nil, outcomeFatal, &ParseError{Err: errors.New("body is not well-formed JSON")}
	}
	return body, outcomeSuccess, nil
}

// classify maps an HTTP status to a verdict. Classification lives in
// one place so the retry policy is defined and tested once.
func (f *Fetcher) classify(status int) (outcome, error) {
	if status >= 200 && status < 300 {
		return outcomeSuccess, nil
	}
	if _, ok := f.retryable[status]; ok {
		return outcomeRetryable, &RateLimitError{Status: status}
	}
	return outcomeFatal, &HTTPError{Status: status}
}

// withCredential appends the credential to rawURL as a query parameter.
func withCredential(rawURL, param, key string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("fetch: bad request URL: %w", err)
	}
	q := u.Query()
	q.Set(param, key)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
