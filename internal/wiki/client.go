// Package wiki talks to the Wikipedia search and pageview APIs.
//
// Client is the low-level transport: it identifies itself on every call, attaches the access
// token while the server accepts it and retries rate-limited requests under a RetryPolicy.
// Resolver builds the search-then-pageviews lookup on top of it.
package wiki

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	domainerrors "github.com/Edward-Muir/when/internal/errors"
	"github.com/Edward-Muir/when/internal/metrics"
	"github.com/Edward-Muir/when/internal/ratelimit"
)

const (
	defaultTimeout      = 10 * time.Second
	defaultUserAgent    = "WhenGame/1.0 (difficulty-metric-script; github.com/timeline/when)"
	maxResponseBodySize = 8 << 20
)

// RetryPolicy bounds how a request is retried.
type RetryPolicy struct {
	MaxAttempts       int           // Total attempts per request, including the first
	RateLimitWait     time.Duration // Wait after a 429 without a usable Retry-After hint
	MaxWait           time.Duration // Upper bound on any single wait; 0 means no bound
	RespectServerHint bool          // Honor Retry-After on 429 responses
	ErrorBackoff      time.Duration // Base wait after a connection error, doubled per attempt
}

// DefaultRetryPolicy returns the policy used by the command-line tools.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       3,
		RateLimitWait:     60 * time.Second,
		MaxWait:           5 * time.Minute,
		RespectServerHint: true,
		ErrorBackoff:      2 * time.Second,
	}
}

// ClientConfig configures a Client.
type ClientConfig struct {
	UserAgent   string
	AccessToken string // Optional bearer token; empty means unauthenticated
	Timeout     time.Duration
	Policy      RetryPolicy
}

// Response is a successful (2xx) reply with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client is a retrying Wikipedia HTTP client.
//
// Authentication state belongs to the instance: once the server rejects the token with a 403,
// the client stops sending it for the rest of its lifetime.
type Client struct {
	http      *http.Client
	userAgent string
	token     string
	policy    RetryPolicy

	authDisabled atomic.Bool

	clock   ratelimit.Clock
	sleeper ratelimit.Sleeper
	metrics *metrics.Recorder
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithClock sets the clock used to interpret HTTP-date Retry-After hints.
func WithClock(clock ratelimit.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// WithSleeper sets the sleeper used for retry waits.
func WithSleeper(s ratelimit.Sleeper) Option {
	return func(c *Client) { c.sleeper = s }
}

// WithMetrics records request outcomes.
func WithMetrics(m *metrics.Recorder) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client.
func NewClient(cfg ClientConfig, opts ...Option) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Policy.MaxAttempts <= 0 {
		cfg.Policy.MaxAttempts = 1
	}

	c := &Client{
		http:      &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
		token:     cfg.AccessToken,
		policy:    cfg.Policy,
		clock:     ratelimit.SystemClock{},
		sleeper:   ratelimit.SystemSleeper{},
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the retry policy in effect.
func (c *Client) Policy() RetryPolicy {
	return c.policy
}

// AuthDisabled reports whether a 403 has turned authentication off.
func (c *Client) AuthDisabled() bool {
	return c.authDisabled.Load()
}

// Authenticated reports whether requests asking for auth will carry the token.
func (c *Client) Authenticated() bool {
	return c.token != "" && !c.authDisabled.Load()
}

// Get issues a GET request for rawURL with params merged into its query.
//
// A 403 on an authenticated request disables auth and repeats the request once without the
// token; that repeat does not count as an attempt. 429 responses and connection errors are
// retried until the policy's attempts run out, which yields an ErrRetriesExhausted error.
// A 404 yields ErrNotFound and any other non-2xx status an ErrUpstream error.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values, useAuth bool) (*Response, error) {
	target, err := buildURL(rawURL, params)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= c.policy.MaxAttempts; {
		withAuth := useAuth && c.Authenticated()

		resp, err := c.do(ctx, target, withAuth)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			c.metrics.HTTPRequest(0)
			lastErr = err
			if attempt == c.policy.MaxAttempts {
				break
			}
			wait := c.capWait(c.policy.ErrorBackoff << (attempt - 1))
			c.logger.Warn("wikipedia request failed, retrying",
				"attempt", attempt,
				"wait", wait,
				"error", err,
			)
			if err := c.sleeper.Sleep(ctx, wait); err != nil {
				return nil, err
			}
			attempt++
			continue
		}

		c.metrics.HTTPRequest(resp.StatusCode)

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp, nil

		case resp.StatusCode == http.StatusForbidden && withAuth:
			if c.authDisabled.CompareAndSwap(false, true) {
				c.metrics.AuthFallback()
				c.logger.Warn("access token rejected, continuing unauthenticated")
			}
			continue

		case resp.StatusCode == http.StatusTooManyRequests:
			c.metrics.RateLimited()
			lastErr = ErrRateLimited
			if attempt < c.policy.MaxAttempts {
				wait := c.retryAfter(resp.Header)
				c.logger.Warn("rate limited",
					"attempt", attempt,
					"max_attempts", c.policy.MaxAttempts,
					"wait", wait,
				)
				if err := c.sleeper.Sleep(ctx, wait); err != nil {
					return nil, err
				}
			}

		case resp.StatusCode == http.StatusNotFound:
			return nil, ErrNotFound

		default:
			return nil, domainerrors.Upstream(fmt.Sprintf("unexpected status %d", resp.StatusCode)).
				WithDetails(map[string]any{"status": resp.StatusCode, "url": target.Redacted()})
		}
		attempt++
	}

	return nil, domainerrors.RetriesExhausted(
		fmt.Sprintf("gave up after %d attempts", c.policy.MaxAttempts),
	).WithCause(lastErr)
}

// do performs one HTTP exchange. A non-nil error means no response was received.
func (c *Client) do(ctx context.Context, target *url.URL, withAuth bool) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if withAuth {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug("wikipedia request",
		"host", target.Host,
		"path", target.EscapedPath(),
		"auth", withAuth,
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// retryAfter returns how long to wait after a 429. Retry-After may be delta-seconds or an
// HTTP-date; anything else falls back to the policy's RateLimitWait.
func (c *Client) retryAfter(h http.Header) time.Duration {
	wait := c.policy.RateLimitWait
	if v := h.Get("Retry-After"); v != "" && c.policy.RespectServerHint {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			wait = time.Duration(secs) * time.Second
		} else if at, err := http.ParseTime(v); err == nil {
			wait = max(at.Sub(c.clock.Now()), 0)
		}
	}
	return c.capWait(wait)
}

func (c *Client) capWait(d time.Duration) time.Duration {
	if c.policy.MaxWait > 0 && d > c.policy.MaxWait {
		return c.policy.MaxWait
	}
	return d
}

func buildURL(rawURL string, params url.Values) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u, nil
}
