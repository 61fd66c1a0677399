package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sentichart/pkg/cache"
	"github.com/matzehuels/sentichart/pkg/chart"
	"github.com/matzehuels/sentichart/pkg/errors"
	"github.com/matzehuels/sentichart/pkg/observability"
	"github.com/matzehuels/sentichart/pkg/source"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and server use this to avoid duplicating caching logic.
//
// The Runner is stateless except for its cache, store and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// Client fetches results from the backend. Fetch fails without it
	// unless the options carry raw input or the store has the result.
	Client *source.Client

	// Store, when set, is consulted before the backend and receives every
	// fetched response.
	Store source.Store
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete fetch → layout → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	r.applyLogger(&opts)

	result := &Result{}

	// Stage 1: Fetch
	fetchStart := time.Now()
	res, raw, fetchHit, err := r.FetchWithCacheInfo(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	result.Source = res
	result.Raw = raw
	result.Stats.FetchTime = time.Since(fetchStart)
	result.Stats.Points = len(res.Series)
	result.Stats.Events = len(res.Events)
	result.CacheInfo.FetchHit = fetchHit

	r.Logger.Info("loaded simulation",
		"ticker", res.Ticker,
		"points", len(res.Series),
		"trades", len(res.Events),
		"cached", fetchHit,
		"duration", result.Stats.FetchTime)

	// Stage 2: Layout
	layoutStart := time.Now()
	model, layoutHit, err := r.LayoutWithCacheInfo(ctx, res, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Model = model
	result.InputHash, _ = InputHash(res)
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.Stats.Markers = len(model.Markers)
	result.CacheInfo.LayoutHit = layoutHit

	r.Logger.Info("computed layout",
		"markers", len(model.Markers),
		"duration", result.Stats.LayoutTime)

	// Stage 3: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, model, res, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// FetchWithCacheInfo loads a simulation result and returns cache hit info.
// Sources are tried in order: raw input, cache, store, backend.
func (r *Runner) FetchWithCacheInfo(ctx context.Context, opts Options) (*source.Result, []byte, bool, error) {
	if err := opts.ValidateForFetch(); err != nil {
		return nil, nil, false, err
	}
	r.applyLogger(&opts)

	if len(opts.Input) > 0 {
		res, err := source.DecodeBytes(opts.Input)
		return res, opts.Input, false, err
	}

	hooks := observability.Pipeline()
	hooks.OnFetchStart(ctx, opts.Ticker)
	start := time.Now()

	raw, hit, err := r.fetchRaw(ctx, opts)
	if err != nil {
		hooks.OnFetchComplete(ctx, opts.Ticker, 0, time.Since(start), err)
		return nil, nil, false, err
	}
	res, err := source.DecodeBytes(raw)
	if err != nil {
		hooks.OnFetchComplete(ctx, opts.Ticker, 0, time.Since(start), err)
		return nil, nil, false, err
	}
	if res.Ticker == "" {
		res.Ticker = opts.Ticker
	}
	hooks.OnFetchComplete(ctx, opts.Ticker, len(res.Series), time.Since(start), nil)
	return res, raw, hit, nil
}

// Fetch is a convenience wrapper that calls FetchWithCacheInfo and discards the cache hit info.
func (r *Runner) Fetch(ctx context.Context, opts Options) (*source.Result, error) {
	res, _, _, err := r.FetchWithCacheInfo(ctx, opts)
	return res, err
}

func (r *Runner) fetchRaw(ctx context.Context, opts Options) ([]byte, bool, error) {
	key := source.Key{Ticker: opts.Ticker, Start: opts.Start, End: opts.End}
	cacheKey := r.Keyer.ResponseKey(key.Ticker, key.Start, key.End)

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, cache.KeyTypeResponse)
			return data, true, nil
		}
		observability.Cache().OnCacheMiss(ctx, cache.KeyTypeResponse)

		if r.Store != nil {
			if data, ok, err := r.Store.Load(ctx, key); err != nil {
				r.Logger.Warn("store lookup failed", "key", key.ID(), "err", err)
			} else if ok {
				r.setCache(ctx, cacheKey, cache.KeyTypeResponse, data, cache.TTLResponse)
				return data, true, nil
			}
		}
	}

	if r.Client == nil {
		return nil, false, errors.New(errors.ErrCodeNotFound, "no stored result for %s and no backend configured", key.ID())
	}
	data, err := r.Client.Simulate(ctx, key.Ticker, key.Start, key.End)
	if err != nil {
		return nil, false, err
	}

	r.setCache(ctx, cacheKey, cache.KeyTypeResponse, data, cache.TTLResponse)
	if r.Store != nil {
		if err := r.Store.Save(ctx, key, data); err != nil {
			r.Logger.Warn("store save failed", "key", key.ID(), "err", err)
		}
	}
	return data, false, nil
}

// LayoutWithCacheInfo computes the chart model with caching and returns cache hit info.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, res *source.Result, opts Options) (chart.RenderModel, bool, error) {
	if err := opts.ValidateForLayout(); err != nil {
		return chart.RenderModel{}, false, err
	}
	r.applyLogger(&opts)

	hooks := observability.Pipeline()
	hooks.OnLayoutStart(ctx, res.Ticker, len(res.Series))
	start := time.Now()

	inputHash, err := InputHash(res)
	if err != nil {
		hooks.OnLayoutComplete(ctx, res.Ticker, 0, time.Since(start), err)
		return chart.RenderModel{}, false, fmt.Errorf("hash layout input: %w", err)
	}
	cacheKey := r.Keyer.LayoutKey(inputHash, opts.LayoutKeyOpts())

	if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
		var cached chart.RenderModel
		if err := json.Unmarshal(data, &cached); err == nil {
			observability.Cache().OnCacheHit(ctx, cache.KeyTypeLayout)
			hooks.OnLayoutComplete(ctx, res.Ticker, len(cached.Markers), time.Since(start), nil)
			return cached, true, nil
		}
		// If deserialization fails, fall through to recompute
	}
	observability.Cache().OnCacheMiss(ctx, cache.KeyTypeLayout)

	model := ComputeLayout(res, opts)
	if dropped := len(res.Events) - len(model.Markers); dropped > 0 {
		r.Logger.Debug("events without a matching series point", "ticker", res.Ticker, "dropped", dropped)
	}

	if data, err := json.Marshal(model); err == nil {
		r.setCache(ctx, cacheKey, cache.KeyTypeLayout, data, cache.TTLLayout)
	}

	hooks.OnLayoutComplete(ctx, res.Ticker, len(model.Markers), time.Since(start), nil)
	return model, false, nil
}

// Layout is a convenience wrapper that calls LayoutWithCacheInfo and discards the cache hit info.
func (r *Runner) Layout(ctx context.Context, res *source.Result, opts Options) (chart.RenderModel, error) {
	m, _, err := r.LayoutWithCacheInfo(ctx, res, opts)
	return m, err
}

// RenderWithCacheInfo generates artifacts with caching and returns cache hit info.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, m chart.RenderModel, res *source.Result, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, opts.Formats)
	start := time.Now()

	// Compute cache key from the model and the data shown alongside it
	modelData, err := json.Marshal(struct {
		Model   chart.RenderModel `json:"model"`
		Summary any               `json:"summary,omitempty"`
	}{m, summaryOf(res)})
	if err != nil {
		hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
		return nil, false, fmt.Errorf("serialize model for cache key: %w", err)
	}
	modelHash := cache.Hash(modelData)
	title := opts.ChartTitle(tickerOf(res, opts))
	subtitle := ""
	if title != "" {
		subtitle = Subtitle(res)
	}
	keyFor := func(format string) string {
		return r.Keyer.ArtifactKey(modelHash, opts.ArtifactKeyOpts(format, title, subtitle))
	}

	// Try to get all formats from cache
	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		data, hit, err := r.Cache.Get(ctx, keyFor(format))
		if err != nil || !hit {
			break
		}
		artifacts[format] = data
	}
	if len(artifacts) == len(opts.Formats) {
		observability.Cache().OnCacheHit(ctx, cache.KeyTypeArtifact)
		hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), nil)
		return artifacts, true, nil // All artifacts from cache
	}
	observability.Cache().OnCacheMiss(ctx, cache.KeyTypeArtifact)

	rendered, err := Render(ctx, m, res, opts)
	if err != nil {
		hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
		return nil, false, err
	}

	for format, data := range rendered {
		r.setCache(ctx, keyFor(format), cache.KeyTypeArtifact, data, cache.TTLArtifact)
	}

	hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), nil)
	return rendered, false, nil // Cache miss
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, m chart.RenderModel, res *source.Result, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, m, res, opts)
	return artifacts, err
}

// Close releases resources held by the runner (cache and store).
func (r *Runner) Close() error {
	var firstErr error
	if r.Store != nil {
		firstErr = r.Store.Close()
	}
	if r.Cache != nil {
		if err := r.Cache.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Runner) setCache(ctx context.Context, key, keyType string, data []byte, ttl time.Duration) {
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Debug("cache write failed", "type", keyType, "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func summaryOf(res *source.Result) any {
	if res == nil {
		return nil
	}
	return res.Summary()
}
