package server

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/sentichart/pkg/chart"
	"github.com/matzehuels/sentichart/pkg/pipeline"
	"github.com/matzehuels/sentichart/pkg/source"
)

const backendResponse = `{
  "status": "success",
  "results": {
    "ticker": "AAPL",
    "initial_capital": 100000,
    "metrics": {"ROI%": 0.1, "MaxDrawdown%": -0.05},
    "transactions": [{"date": "2025-10-02", "action": "BUY", "qty": 10, "price": 257.13}],
    "portfolio_values": [
      {"date": "2025-10-01", "Close": 255.45, "sentiment_score": -0.3, "total_value": 100000},
      {"date": "2025-10-02", "Close": 257.13, "sentiment_score": -0.25, "total_value": 100000},
      {"date": "2025-10-03", "Close": 258.02, "sentiment_score": -0.4, "total_value": 100100}
    ]
  }
}`

// newTestServer wires a server to a fake backend. Unknown tickers get the
// backend's "No price data" 500.
func newTestServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req struct {
			Ticker string `json:"ticker"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Ticker != "AAPL" {
			http.Error(w, `{"detail":"No price data for ticker"}`, http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(backendResponse))
	}))
	t.Cleanup(backend.Close)

	client, err := source.NewClient(backend.URL, source.WithRetry(1, time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	runner := pipeline.NewRunner(nil, nil, nil)
	runner.Client = client

	srv := httptest.NewServer(New(runner).Handler())
	t.Cleanup(srv.Close)
	return srv, &calls
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, body
}

func decodeError(t *testing.T, body []byte) errorDetail {
	t.Helper()
	var e errorBody
	if err := json.Unmarshal(body, &e); err != nil {
		t.Fatalf("error body %q: %v", body, err)
	}
	return e.Error
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := get(t, srv.URL+"/healthz")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"status":"ok"`) {
		t.Errorf("GET /healthz = %d %s", resp.StatusCode, body)
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Error("response should carry a request ID")
	}
}

func TestLayoutEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := get(t, srv.URL+"/api/tickers/aapl/layout?start=2025-10-01&end=2025-10-03&width=600&height=300")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var m chart.RenderModel
	if err := json.Unmarshal(body, &m); err != nil {
		t.Fatal(err)
	}
	if len(m.PrimaryPath) != 3 || len(m.Markers) != 1 {
		t.Errorf("paths = %d, markers = %d", len(m.PrimaryPath), len(m.Markers))
	}
	if m.Viewport.Width != 600 || m.PrimaryPath[2].X != 600-20 {
		t.Errorf("viewport = %+v, last x = %g", m.Viewport, m.PrimaryPath[2].X)
	}
}

func TestChartSVGEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := get(t, srv.URL+"/api/tickers/AAPL/chart.svg?style=light&legend=true")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.HasPrefix(string(body), "<svg") || !strings.Contains(string(body), "BUY Marker") {
		t.Errorf("unexpected svg: %.200s", body)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := get(t, srv.URL+"/api/tickers/AAPL/summary")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var s source.Summary
	if err := json.Unmarshal(body, &s); err != nil {
		t.Fatal(err)
	}
	if s.Points != 3 || s.Buys != 1 || s.Mood.Label != source.Bearish {
		t.Errorf("summary = %+v", s)
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	_, body := get(t, srv.URL+"/api/tickers/AAPL/status")
	if !strings.Contains(string(body), `"state":"idle"`) {
		t.Errorf("before fetch: %s", body)
	}

	get(t, srv.URL+"/api/tickers/AAPL/summary")
	_, body = get(t, srv.URL+"/api/tickers/AAPL/status")
	if !strings.Contains(string(body), `"state":"ready"`) {
		t.Errorf("after fetch: %s", body)
	}

	get(t, srv.URL+"/api/tickers/ZZZZ/summary")
	_, body = get(t, srv.URL+"/api/tickers/ZZZZ/status")
	if !strings.Contains(string(body), `"state":"failed"`) {
		t.Errorf("after failed fetch: %s", body)
	}
}

func TestErrorMapping(t *testing.T) {
	srv, calls := newTestServer(t)
	tests := []struct {
		name   string
		path   string
		status int
		code   string
	}{
		{"invalid ticker", "/api/tickers/$$$/layout", http.StatusBadRequest, "INVALID_TICKER"},
		{"invalid date", "/api/tickers/AAPL/layout?start=yesterday", http.StatusBadRequest, "INVALID_DATE"},
		{"invalid width", "/api/tickers/AAPL/layout?width=wide", http.StatusBadRequest, "INVALID_INPUT"},
		{"invalid viewport", "/api/tickers/AAPL/layout?width=10", http.StatusBadRequest, "INVALID_VIEWPORT"},
		{"NaN width", "/api/tickers/AAPL/layout?width=NaN", http.StatusBadRequest, "INVALID_VIEWPORT"},
		{"Inf height", "/api/tickers/AAPL/chart.svg?height=Inf", http.StatusBadRequest, "INVALID_VIEWPORT"},
		{"negative Inf width", "/api/tickers/AAPL/summary?width=-Inf", http.StatusBadRequest, "INVALID_VIEWPORT"},
		{"invalid style", "/api/tickers/AAPL/chart.svg?style=neon", http.StatusBadRequest, "INVALID_STYLE"},
		{"unknown ticker", "/api/tickers/ZZZZ/layout", http.StatusNotFound, "TICKER_NOT_FOUND"},
		{"unknown route", "/nope", http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := get(t, srv.URL+tt.path)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d (%s)", resp.StatusCode, tt.status, body)
			}
			if got := decodeError(t, body); got.Code != tt.code || got.Message == "" {
				t.Errorf("error = %+v, want code %s", got, tt.code)
			}
		})
	}
	if calls.Load() != 3 {
		t.Errorf("backend called %d times, want 3 (requests rejected before fetch must not reach it)", calls.Load())
	}
}

func TestPostLayout(t *testing.T) {
	srv, calls := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/layout", "application/json", strings.NewReader(backendResponse))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var m chart.RenderModel
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		t.Fatal(err)
	}
	if len(m.PrimaryPath) != 3 {
		t.Errorf("len(PrimaryPath) = %d", len(m.PrimaryPath))
	}
	if calls.Load() != 0 {
		t.Error("posted data must not call the backend")
	}

	bad, err := http.Post(srv.URL+"/api/layout", "application/json", strings.NewReader(`{"portfolio_values":[{"date":"2025-10-01"}]}`))
	if err != nil {
		t.Fatal(err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Errorf("bad body status = %d, want 400", bad.StatusCode)
	}

	nan, err := http.Post(srv.URL+"/api/layout?width=NaN", "application/json", strings.NewReader(backendResponse))
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(nan.Body)
	nan.Body.Close()
	if nan.StatusCode != http.StatusBadRequest || decodeError(t, body).Code != "INVALID_VIEWPORT" {
		t.Errorf("NaN width: status %d body %s", nan.StatusCode, body)
	}
}

func TestWriteJSONEncodeFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]float64{"width": math.NaN()})

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if got := decodeError(t, rec.Body.Bytes()); got.Code != "INTERNAL_ERROR" {
		t.Errorf("error = %+v, want INTERNAL_ERROR", got)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestRequestIDPropagation(t *testing.T) {
	srv, _ := newTestServer(t)
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	const id = "2b1d3f7e-8c4a-4f7e-9b62-1f0e5c3a9d10"
	req.Header.Set(RequestIDHeader, id)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(RequestIDHeader); got != id {
		t.Errorf("request ID = %q, want %q", got, id)
	}
}

func TestListenAndServeShutdown(t *testing.T) {
	s := New(pipeline.NewRunner(nil, nil, nil))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0", Timeouts{}) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ListenAndServe() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
