// Package rates fetches crypto spot prices from CoinGecko with a short
// in-process cache.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const defaultAPIBase = "https://api.coingecko.com/api/v3"

// cacheTTL is how long a snapshot stays fresh. CoinGecko's free tier rate
// limits aggressively, so every dashboard poll inside the window shares one
// upstream call.
const cacheTTL = 60 * time.Second

// symbolToID maps ticker symbols to CoinGecko asset ids.
var symbolToID = map[string]string{
	"LINK":   "chainlink",
	"XRP":    "ripple",
	"PEPE":   "pepe",
	"SUI":    "sui",
	"ONDO":   "ondo-finance",
	"POPCAT": "popcat",
	"UNI":    "uniswap",
	"AERO":   "aerodrome-finance",
	"ARB":    "arbitrum",
}

// Price is one asset's quote in both currencies.
type Price struct {
	USD          float64 `json:"usd"`
	MXN          float64 `json:"mxn"`
	USD24hChange float64 `json:"usd_24h_change"`
}

// Snapshot is a fetched set of prices with its age. Stale reports whether
// the snapshot outlived the cache TTL; a stale snapshot is still served
// when the upstream call fails.
type Snapshot struct {
	Prices    map[string]Price
	FetchedAt time.Time
}

// Stale reports whether the snapshot is older than the cache TTL at now.
func (s Snapshot) Stale(now time.Time) bool {
	return s.FetchedAt.IsZero() || now.Sub(s.FetchedAt) >= cacheTTL
}

// Client caches CoinGecko quotes for the configured asset set.
type Client struct {
	apiBase string
	http    *http.Client
	now     func() time.Time

	group singleflight.Group

	mu   sync.Mutex
	last Snapshot
}

func NewClient() *Client {
	return &Client{
		apiBase: defaultAPIBase,
		http:    &http.Client{Timeout: 10 * time.Second},
		now:     time.Now,
	}
}

// SetAPIBase points the client at a different host. Used by tests.
func (c *Client) SetAPIBase(base string) {
	c.apiBase = strings.TrimRight(base, "/")
}

// SetClock overrides the cache clock. Used by tests.
func (c *Client) SetClock(now func() time.Time) {
	c.now = now
}

// SymbolMap returns the ticker-to-id mapping.
func SymbolMap() map[string]string {
	out := make(map[string]string, len(symbolToID))
	for k, v := range symbolToID {
		out[k] = v
	}
	return out
}

// Prices returns the current snapshot. A fresh cached snapshot is returned
// as is; otherwise one fetch runs (deduplicated across concurrent callers)
// and on failure the previous snapshot is served stale rather than erroring
// out, as long as one exists.
func (c *Client) Prices(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	last := c.last
	c.mu.Unlock()

	if !last.Stale(c.now()) {
		return last, nil
	}

	v, err, _ := c.group.Do("prices", func() (any, error) {
		snap, err := c.fetch(ctx)
		if err != nil {
			return Snapshot{}, err
		}
		c.mu.Lock()
		c.last = snap
		c.mu.Unlock()
		return snap, nil
	})
	if err != nil {
		if last.FetchedAt.IsZero() {
			return Snapshot{}, err
		}
		slog.WarnContext(ctx, "Price fetch failed, serving stale snapshot",
			"age", c.now().Sub(last.FetchedAt).String(),
			"error", err)
		return last, nil
	}
	return v.(Snapshot), nil
}

func (c *Client) fetch(ctx context.Context) (Snapshot, error) {
	ids := make([]string, 0, len(symbolToID))
	for _, id := range symbolToID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))
	params.Set("vs_currencies", "usd,mxn")
	params.Set("include_24hr_change", "true")

	endpoint := c.apiBase + "/simple/price?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("build price request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetch prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Snapshot{}, fmt.Errorf("fetch prices: status %d", resp.StatusCode)
	}

	var prices map[string]Price
	if err := json.NewDecoder(resp.Body).Decode(&prices); err != nil {
		return Snapshot{}, fmt.Errorf("decode prices: %w", err)
	}

	slog.InfoContext(ctx, "Fetched crypto prices", "assets", len(prices))
	return Snapshot{Prices: prices, FetchedAt: c.now()}, nil
}
