// Package coingecko fetches spot prices from the CoinGecko simple-price API.
package coingecko

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultBaseURL = "https://api.coingecko.com/api/v3"
	demoKeyHeader  = "x-cg-demo-api-key"
)

// Client looks up spot prices.
type Client interface {
	// SimplePrice returns the price of each coin id in the given fiat
	// currency. Ids without a quote are absent from the result.
	SimplePrice(ctx context.Context, ids []string, vsCurrency string) (map[string]float64, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a CoinGecko client. apiKey is optional; when set it is
// sent as the demo-plan key header.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) SimplePrice(ctx context.Context, ids []string, vsCurrency string) (map[string]float64, error) {
	if len(ids) == 0 {
		return map[string]float64{}, nil
	}
	vs := strings.ToLower(vsCurrency)
	if vs == "" {
		vs = "usd"
	}

	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	q := url.Values{
		"ids":           {strings.Join(sorted, ",")},
		"vs_currencies": {vs},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/simple/price?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "coingecko: create request")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(demoKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "coingecko: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "coingecko: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("coingecko: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var raw map[string]map[string]float64
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, eris.Wrap(err, "coingecko: unmarshal response")
	}

	out := make(map[string]float64, len(raw))
	for id, quotes := range raw {
		if p, ok := quotes[vs]; ok && p > 0 {
			out[id] = p
		}
	}
	return out, nil
}
