// Package fetcher is the shared HTTP client for public page and feed
// requests: per-host adaptive rate limiting, retries on transient failures,
// and a response size cap.
package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/recap-cli/internal/resilience"
)

// DefaultUserAgent mimics a desktop browser; several YouTube endpoints serve
// reduced pages to unknown agents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// Options configures a Client.
type Options struct {
	UserAgent string
	Timeout   time.Duration
	Retry     resilience.RetryConfig
	// HostRates sets requests per second for specific hosts.
	HostRates map[string]rate.Limit
	// DefaultRate applies to hosts without an entry in HostRates.
	DefaultRate  rate.Limit
	MaxBodyBytes int64
	// HTTPClient overrides the underlying client; tests pass httptest clients.
	HTTPClient *http.Client
}

// DefaultHostRates returns the per-host limits used for YouTube endpoints.
func DefaultHostRates() map[string]rate.Limit {
	return map[string]rate.Limit{
		"www.youtube.com": 2,
		"youtube.com":     2,
		"m.youtube.com":   2,
	}
}

// Client performs rate-limited, retried HTTP requests.
type Client struct {
	http *http.Client
	opts Options

	mu       sync.Mutex
	limiters map[string]*AdaptiveLimiter
}

// New creates a Client.
func New(opts Options) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.DefaultRate <= 0 {
		opts.DefaultRate = 10
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 16 << 20
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{http: hc, opts: opts, limiters: make(map[string]*AdaptiveLimiter)}
}

// Get fetches rawURL and returns the body.
func (c *Client) Get(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	return c.Do(ctx, http.MethodGet, rawURL, header, nil)
}

// PostJSON posts payload as JSON and returns the response body.
func (c *Client) PostJSON(ctx context.Context, rawURL string, header http.Header, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: marshal payload")
	}
	h := header.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set("Content-Type", "application/json")
	return c.Do(ctx, http.MethodPost, rawURL, h, body)
}

// Do sends one request, retrying transient failures, and returns the body of
// a 2xx response.
func (c *Client) Do(ctx context.Context, method, rawURL string, header http.Header, body []byte) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: parse url %q", rawURL)
	}
	lim := c.limiterFor(u.Host)

	retry := c.opts.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger(u.Host, method)
	}

	return resilience.Retry(ctx, retry, func(ctx context.Context) ([]byte, error) {
		if err := lim.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetcher: rate limiter wait")
		}

		req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(body))
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: create request")
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		if req.Header.Get("User-Agent") == "" {
			req.Header.Set("User-Agent", c.opts.UserAgent)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: %s %s", method, u.Host)
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode == http.StatusTooManyRequests {
			lim.OnRateLimit()
		}
		if err := resilience.CheckStatus(resp); err != nil {
			return nil, err
		}
		lim.OnSuccess()

		data, err := io.ReadAll(io.LimitReader(resp.Body, c.opts.MaxBodyBytes))
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: read body")
		}
		return data, nil
	})
}

func (c *Client) limiterFor(host string) *AdaptiveLimiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	if lim, ok := c.limiters[host]; ok {
		return lim
	}
	r, ok := c.opts.HostRates[host]
	if !ok {
		r = c.opts.DefaultRate
	}
	lim := NewAdaptiveLimiter(r, max(1, int(r)))
	c.limiters[host] = lim
	return lim
}

// AdaptiveLimiter is a rate.Limiter that speeds up by 20% on success (to 2x
// its initial rate) and halves on 429 (to 1/4 of its initial rate).
type AdaptiveLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	current rate.Limit
	max     rate.Limit
	min     rate.Limit
}

// NewAdaptiveLimiter creates an AdaptiveLimiter.
func NewAdaptiveLimiter(initial rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter: rate.NewLimiter(initial, burst),
		current: initial,
		max:     initial * 2,
		min:     initial / 4,
	}
}

// Wait blocks until a request is allowed.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess raises the rate.
func (a *AdaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.set(min(a.current*1.2, a.max))
}

// OnRateLimit halves the rate.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.set(max(a.current*0.5, a.min))
	zap.L().Warn("fetcher: rate limited, slowing down", zap.Float64("rate", float64(a.current)))
}

// Limit returns the current rate.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

func (a *AdaptiveLimiter) set(r rate.Limit) {
	a.current = r
	a.limiter.SetLimit(r)
}
