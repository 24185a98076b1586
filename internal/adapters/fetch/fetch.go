// Package fetch is the resilient HTTP GET layer shared by the game-history
// and evaluation clients: per-attempt timeout, transient-status detection,
// Retry-After aware exponential backoff.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"

	"github.com/okian/leakscan/pkg/logger"
	"github.com/okian/leakscan/pkg/metrics"
)

// Default fetch configuration constants.
const (
	defaultTimeout     = 12 * time.Second
	defaultMaxRetries  = 3
	defaultBaseBackoff = 500 * time.Millisecond
	maxRetryAfter      = 60 * time.Second
	maxBackoff         = maxRetryAfter
	maxBodySize        = 64 << 20
	defaultUserAgent   = "leakscan/1.0"
)

// Client performs GET requests with retries.
type Client struct {
	http        *http.Client
	timeout     time.Duration
	maxRetries  int
	baseBackoff time.Duration
	limiter     *rate.Limiter
	userAgent   string
	endpoint    string
	sleep       func(ctx context.Context, d time.Duration) error
	logger      logger.Logger
}

// New creates a Client with configuration options.
func New(opts ...Option) *Client {
	c := &Client{
		http:        &http.Client{},
		timeout:     defaultTimeout,
		maxRetries:  defaultMaxRetries,
		baseBackoff: defaultBaseBackoff,
		userAgent:   defaultUserAgent,
		endpoint:    "default",
		sleep:       sleepContext,
		logger:      logger.Get().Named("fetch"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Text fetches url and returns the body as a string.
func (c *Client) Text(ctx context.Context, url string, header http.Header) (string, error) {
	body, err := c.do(ctx, "fetch.text", url, header)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// JSON fetches url and decodes the body into v.
func (c *Client) JSON(ctx context.Context, url string, header http.Header, v any) error {
	const op = "fetch.json"
	h := header.Clone()
	if h == nil {
		h = http.Header{}
	}
	if h.Get("Accept") == "" {
		h.Set("Accept", "application/json")
	}

	body, err := c.do(ctx, op, url, h)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &Error{Op: op, Kind: ErrDecode, URL: url, Status: http.StatusOK, Err: err}
	}
	return nil
}

// result is the outcome of one attempt.
type result struct {
	body       []byte
	status     int
	retryAfter time.Duration
	hasRetry   bool
	err        error
}

func (c *Client) do(ctx context.Context, op, url string, header http.Header) ([]byte, error) {
	var (
		lastStatus int
		lastErr    error
	)

	schedule := c.newBackoff()
	attempts := c.maxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, c.canceled(ctx, op, url, lastStatus, err)
			}
		}

		start := time.Now()
		res := c.attempt(ctx, url, header)
		metrics.RecordFetchLatency(c.endpoint, float64(time.Since(start).Milliseconds()))

		var wait time.Duration
		switch {
		case res.err == nil && res.status >= 200 && res.status < 300:
			metrics.RecordFetchAttempt(c.endpoint, "ok")
			return res.body, nil

		case res.err == nil && res.status == http.StatusNotFound:
			metrics.RecordFetchAttempt(c.endpoint, "not_found")
			return nil, &Error{Op: op, Kind: ErrNotFound, URL: url, Status: res.status}

		case res.err == nil && isTransient(res.status):
			metrics.RecordFetchAttempt(c.endpoint, "transient")
			lastStatus, lastErr = res.status, nil
			wait = schedule.NextBackOff()
			if res.hasRetry {
				wait = res.retryAfter
			}

		case res.err == nil:
			metrics.RecordFetchAttempt(c.endpoint, "rejected")
			return nil, &Error{Op: op, Kind: ErrUnexpectedStatus, URL: url, Status: res.status}

		default:
			if ctx.Err() != nil {
				return nil, c.canceled(ctx, op, url, lastStatus, ctx.Err())
			}
			var reqErr *requestError
			if errors.As(res.err, &reqErr) {
				return nil, &Error{Op: op, Kind: ErrUnexpectedStatus, URL: url, Err: reqErr.err}
			}
			metrics.RecordFetchAttempt(c.endpoint, "network_error")
			lastErr = res.err
			wait = schedule.NextBackOff()
		}

		if attempt == attempts-1 {
			break
		}

		metrics.RecordFetchRetry(c.endpoint)
		c.logger.Debug(ctx, "retrying request",
			logger.String("endpoint", c.endpoint),
			logger.String("url", url),
			logger.Int("attempt", attempt+1),
			logger.Int("status", lastStatus),
			logger.Any("wait", wait),
		)
		if err := c.sleep(ctx, wait); err != nil {
			return nil, c.canceled(ctx, op, url, lastStatus, err)
		}
	}

	c.logger.Warn(ctx, "retries exhausted",
		logger.String("endpoint", c.endpoint),
		logger.String("url", url),
		logger.Int("attempts", attempts),
		logger.Int("status", lastStatus),
	)
	return nil, &Error{Op: op, Kind: ErrTransient, URL: url, Status: lastStatus, Err: lastErr}
}

// requestError marks failures to build a request; those are not retried.
type requestError struct{ err error }

func (e *requestError) Error() string { return e.err.Error() }

func (c *Client) attempt(ctx context.Context, url string, header http.Header) result {
	actx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodGet, url, nil)
	if err != nil {
		return result{err: &requestError{err: err}}
	}
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return result{err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	res := result{status: resp.StatusCode}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		res.retryAfter, res.hasRetry = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		return res
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return result{err: err}
	}
	res.body = body
	return res
}

// newBackoff returns the retry schedule for one request: baseBackoff doubling
// per attempt, capped at maxBackoff. Retry-After replaces a step but the
// schedule still advances.
func (c *Client) newBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.baseBackoff
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = maxBackoff
	b.Reset()
	return b
}

func (c *Client) canceled(ctx context.Context, op, url string, status int, cause error) error {
	metrics.RecordFetchAttempt(c.endpoint, "canceled")
	if ctxErr := ctx.Err(); ctxErr != nil {
		cause = ctxErr
	}
	return &Error{Op: op, Kind: ErrCanceled, URL: url, Status: status, Err: cause}
}

// isTransient reports statuses worth retrying: 408, 425, 429 and 5xx.
func isTransient(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return true
	}
	return status >= 500 && status <= 599
}

// parseRetryAfter accepts delta-seconds or an HTTP date. Waits are capped.
func parseRetryAfter(v string, now time.Time) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	var d time.Duration
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, false
		}
		d = time.Duration(secs) * time.Second
	} else if t, err := http.ParseTime(v); err == nil {
		d = max(t.Sub(now), 0)
	} else {
		return 0, false
	}
	return min(d, maxRetryAfter), true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
