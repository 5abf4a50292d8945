package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const priceBody = `{
	"chainlink": {"usd": 18.5, "mxn": 340.2, "usd_24h_change": 2.1},
	"ripple": {"usd": 0.62, "mxn": 11.4, "usd_24h_change": -1.3}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient()
	c.SetAPIBase(srv.URL)
	return c, srv
}

func TestClient_Prices(t *testing.T) {
	var calls atomic.Int64
	var gotQuery string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		gotQuery = r.URL.RawQuery
		if r.URL.Path != "/simple/price" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(priceBody))
	})

	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	c.SetClock(func() time.Time { return now })

	snap, err := c.Prices(context.Background())
	if err != nil {
		t.Fatalf("Prices: %v", err)
	}
	if len(snap.Prices) != 2 {
		t.Fatalf("got %d prices, want 2", len(snap.Prices))
	}
	if p := snap.Prices["chainlink"]; p.USD != 18.5 || p.MXN != 340.2 {
		t.Errorf("chainlink = %+v", p)
	}

	q := gotQuery
	if !strings.Contains(q, "vs_currencies=usd%2Cmxn") {
		t.Errorf("query missing currencies: %q", q)
	}
	if !strings.Contains(q, "include_24hr_change=true") {
		t.Errorf("query missing 24h change: %q", q)
	}
	if !strings.Contains(q, "chainlink") {
		t.Errorf("query missing asset ids: %q", q)
	}

	// Within the TTL the snapshot is served from cache.
	if _, err := c.Prices(context.Background()); err != nil {
		t.Fatalf("Prices (cached): %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("upstream calls = %d, want 1", calls.Load())
	}

	// Past the TTL a new fetch runs.
	c.SetClock(func() time.Time { return now.Add(cacheTTL + time.Second) })
	if _, err := c.Prices(context.Background()); err != nil {
		t.Fatalf("Prices (expired): %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("upstream calls = %d, want 2", calls.Load())
	}
}

func TestClient_Prices_ServesStaleOnError(t *testing.T) {
	var fail atomic.Bool
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(priceBody))
	})

	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	c.SetClock(func() time.Time { return now })

	first, err := c.Prices(context.Background())
	if err != nil {
		t.Fatalf("Prices: %v", err)
	}

	fail.Store(true)
	c.SetClock(func() time.Time { return now.Add(cacheTTL + time.Second) })

	stale, err := c.Prices(context.Background())
	if err != nil {
		t.Fatalf("Prices should serve the stale snapshot, got error: %v", err)
	}
	if !stale.FetchedAt.Equal(first.FetchedAt) {
		t.Errorf("stale snapshot FetchedAt = %v, want %v", stale.FetchedAt, first.FetchedAt)
	}
}

func TestClient_Prices_ErrorWithoutSnapshot(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	if _, err := c.Prices(context.Background()); err == nil {
		t.Fatal("Prices should fail when no snapshot exists yet")
	}
}

func TestSnapshot_Stale(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	if (Snapshot{}).Stale(now) != true {
		t.Error("zero snapshot should be stale")
	}
	fresh := Snapshot{FetchedAt: now.Add(-cacheTTL / 2)}
	if fresh.Stale(now) {
		t.Error("half-TTL snapshot should be fresh")
	}
	old := Snapshot{FetchedAt: now.Add(-cacheTTL)}
	if !old.Stale(now) {
		t.Error("TTL-old snapshot should be stale")
	}
}

func TestSymbolMap(t *testing.T) {
	m := SymbolMap()
	if m["LINK"] != "chainlink" || m["XRP"] != "ripple" {
		t.Errorf("SymbolMap = %v", m)
	}

	// Mutating the copy must not leak into the package map.
	m["LINK"] = "tampered"
	if SymbolMap()["LINK"] != "chainlink" {
		t.Error("SymbolMap should return a copy")
	}
}
