package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/sentichart/pkg/errors"
	"github.com/matzehuels/sentichart/pkg/source"
)

const sampleResponse = `{
  "status": "success",
  "results": {
    "ticker": "AAPL",
    "start": "2025-10-01",
    "end": "2025-10-03",
    "initial_capital": 100000.0,
    "metrics": {"ROI%": 1.234, "MaxDrawdown%": -0.5},
    "transactions": [
      {"date": "2025-10-01", "action": "BUY", "qty": 39, "price": 255.45, "sentiment": 0.35},
      {"date": "2025-10-03", "action": "SELL", "qty": 39, "price": 258.02, "sentiment": 0.4},
      {"date": "2025-12-01", "action": "BUY", "qty": 1, "price": 260.0, "sentiment": 0.5}
    ],
    "portfolio_values": [
      {"date": "2025-10-01", "Close": 255.45, "sentiment_score": 0.35, "total_value": 100000.0},
      {"date": "2025-10-02", "Close": 257.13, "sentiment_score": 0.3, "total_value": 100065.5},
      {"date": "2025-10-03", "Close": 258.02, "sentiment_score": 0.4, "total_value": 100100.2}
    ]
  }
}`

// memCache is an in-memory cache.Cache for tests.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.data[key]
	return d, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	c.sets++
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) Close() error { return nil }

// memStore is an in-memory source.Store for tests.
type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (s *memStore) Save(_ context.Context, key source.Key, raw []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = map[string][]byte{}
	}
	s.data[key.ID()] = raw
	return nil
}

func (s *memStore) Load(_ context.Context, key source.Key) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.data[key.ID()]
	return d, ok, nil
}

func (s *memStore) List(context.Context) ([]source.Entry, error) { return nil, nil }
func (s *memStore) Close() error                                  { return nil }

func newBackend(t *testing.T, calls *atomic.Int32) *source.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleResponse))
	}))
	t.Cleanup(srv.Close)
	c, err := source.NewClient(srv.URL, source.WithRetry(1, time.Millisecond))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func tickerOpts() Options {
	return Options{Ticker: "AAPL", Start: "2025-10-01", End: "2025-10-03", Formats: []string{FormatSVG, FormatJSON}}
}

func TestRunnerExecute(t *testing.T) {
	var calls atomic.Int32
	store := &memStore{}
	r := NewRunner(newMemCache(), nil, nil)
	r.Client = newBackend(t, &calls)
	r.Store = store

	res, err := r.Execute(context.Background(), tickerOpts())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if res.Stats.Points != 3 || res.Stats.Events != 3 {
		t.Errorf("Stats = %+v, want 3 points and 3 events", res.Stats)
	}
	// The December trade has no series point.
	if res.Stats.Markers != 2 || len(res.Model.Markers) != 2 {
		t.Errorf("Markers = %d, want 2", res.Stats.Markers)
	}
	if res.InputHash == "" {
		t.Error("InputHash should be set")
	}
	svg := string(res.Artifacts[FormatSVG])
	if !strings.HasPrefix(svg, "<svg") || !strings.Contains(svg, "Market Reaction &amp; Simulation for AAPL") {
		t.Errorf("svg missing title: %.120s", svg)
	}
	if !strings.Contains(svg, "ROI 1.23%") {
		t.Error("svg should carry the performance subtitle")
	}
	if !strings.Contains(string(res.Artifacts[FormatJSON]), `"ticker":"AAPL"`) {
		t.Error("json artifact should carry the ticker")
	}
	if res.CacheInfo != (CacheInfo{}) {
		t.Errorf("first run should miss every cache, got %+v", res.CacheInfo)
	}
	if _, ok, _ := store.Load(context.Background(), source.Key{Ticker: "AAPL", Start: "2025-10-01", End: "2025-10-03"}); !ok {
		t.Error("fetched response should be saved to the store")
	}

	again, err := r.Execute(context.Background(), tickerOpts())
	if err != nil {
		t.Fatalf("second Execute() error = %v", err)
	}
	if !again.CacheInfo.FetchHit || !again.CacheInfo.LayoutHit || !again.CacheInfo.RenderHit {
		t.Errorf("second run should hit every cache, got %+v", again.CacheInfo)
	}
	if calls.Load() != 1 {
		t.Errorf("backend called %d times, want 1", calls.Load())
	}
	if string(again.Artifacts[FormatSVG]) != svg {
		t.Error("cached svg differs from rendered svg")
	}
}

func TestRunnerRefreshBypassesCache(t *testing.T) {
	var calls atomic.Int32
	r := NewRunner(newMemCache(), nil, nil)
	r.Client = newBackend(t, &calls)

	opts := tickerOpts()
	if _, err := r.Fetch(context.Background(), opts); err != nil {
		t.Fatal(err)
	}
	opts.Refresh = true
	if _, err := r.Fetch(context.Background(), opts); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Errorf("backend called %d times, want 2", calls.Load())
	}
}

func TestRunnerFetchFromStore(t *testing.T) {
	store := &memStore{}
	key := source.Key{Ticker: "AAPL", Start: "2025-10-01", End: "2025-10-03"}
	_ = store.Save(context.Background(), key, []byte(sampleResponse))

	r := NewRunner(nil, nil, nil)
	r.Store = store

	res, _, hit, err := r.FetchWithCacheInfo(context.Background(), tickerOpts())
	if err != nil {
		t.Fatalf("FetchWithCacheInfo() error = %v", err)
	}
	if !hit || len(res.Series) != 3 {
		t.Errorf("store hit = %v, points = %d", hit, len(res.Series))
	}
}

func TestRunnerFetchWithoutBackend(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	_, err := r.Fetch(context.Background(), tickerOpts())
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("Fetch() = %v, want NOT_FOUND", err)
	}
}

func TestRunnerRawInput(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	res, err := r.Execute(context.Background(), Options{Input: []byte(sampleResponse), Formats: []string{FormatJSON}})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Source.Ticker != "AAPL" || len(res.Model.PrimaryPath) != 3 {
		t.Errorf("unexpected result: ticker=%q path=%d", res.Source.Ticker, len(res.Model.PrimaryPath))
	}
}

func TestRunnerRejectsBadOptions(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"format", Options{Input: []byte(sampleResponse), Formats: []string{"gif"}}, errors.ErrCodeInvalidFormat},
		{"style", Options{Input: []byte(sampleResponse), Style: "neon"}, errors.ErrCodeInvalidStyle},
		{"viewport", Options{Input: []byte(sampleResponse), Width: 10, Height: 10}, errors.ErrCodeInvalidViewport},
		{"ticker", Options{Ticker: "??"}, errors.ErrCodeInvalidTicker},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.Execute(context.Background(), tt.opts); !errors.Is(err, tt.code) {
				t.Errorf("Execute() = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestRunnerLayoutCacheKeyedByViewport(t *testing.T) {
	c := newMemCache()
	r := NewRunner(c, nil, nil)
	res, err := source.DecodeBytes([]byte(sampleResponse))
	if err != nil {
		t.Fatal(err)
	}

	small, _, err := r.LayoutWithCacheInfo(context.Background(), res, Options{Width: 500, Height: 300})
	if err != nil {
		t.Fatal(err)
	}
	big, hit, err := r.LayoutWithCacheInfo(context.Background(), res, Options{Width: 1200, Height: 300})
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Error("a different viewport must not hit the layout cache")
	}
	if small.PrimaryPath[2].X == big.PrimaryPath[2].X {
		t.Error("layouts for different widths should differ")
	}
}
