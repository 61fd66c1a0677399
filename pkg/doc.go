// Package pkg provides the core libraries for Sentichart price and sentiment charts.
//
// # Overview
//
// Sentichart takes the result of a sentiment-driven trading simulation (a
// daily price series with sentiment scores plus BUY/SELL transactions) and
// lays it out as a single chart: a price line on the left axis, sentiment
// bars and an area on the right axis, and trade markers pinned to the price
// line. The pkg directory is organized as follows:
//
//  1. [chart] - Pure layout (series + events + viewport → RenderModel)
//  2. [chart/sink] - Output formats (SVG, PNG, PDF, JSON)
//  3. [source] - Backend client, response decoding, metrics and result stores
//  4. [pipeline] - Orchestration (fetch → layout → render) with caching
//  5. [cache], [config], [errors], [observability] - Shared infrastructure
//
// # Architecture
//
// The typical data flow through Sentichart:
//
//	Strategy backend (POST /simulate)
//	         ↓
//	    [source] package (decode, summarise, store)
//	         ↓
//	    [chart] package (scales, paths, ticks, markers)
//	         ↓
//	    [chart/sink] package (SVG/PDF/PNG/JSON)
//
// # Quick Start
//
//	import (
//	    "github.com/matzehuels/sentichart/pkg/chart"
//	    "github.com/matzehuels/sentichart/pkg/chart/sink"
//	    "github.com/matzehuels/sentichart/pkg/source"
//	)
//
//	// 1. Run a simulation
//	client, _ := source.NewClient("http://localhost:8000")
//	res, _ := client.Fetch(ctx, "AAPL", "2025-10-01", "2025-11-12")
//
//	// 2. Compute layout
//	m := chart.Layout(res.Series, res.Events, chart.DefaultViewport())
//
//	// 3. Render to SVG
//	svg := sink.RenderSVG(m, sink.WithTitle(sink.ChartTitle(res.Ticker)))
//
// # Main Packages
//
// [chart] - Deterministic layout. Sorts the series by date, derives the price
// and sentiment domains, maps every point to pixel space, and pins each
// transaction to the price point of its date. Transactions without a matching
// date are dropped. The result is a [chart.RenderModel] with no drawing logic.
//
// [chart/sink] - Renders a RenderModel. SVG is produced directly; PNG and PDF
// are converted from the SVG by [render].
//
// [source] - HTTP client for the simulation backend with retries, decoding of
// its JSON response, ROI/drawdown metrics, the sentiment mood reading, and
// stores for raw responses (a directory or MongoDB).
//
// [pipeline] - The complete fetch → layout → render pipeline used by the CLI
// and the HTTP server. Each stage is cached by content hash.
//
// [cache] - Cache backends (file, Redis, null) with namespaced keys.
//
// [config] - TOML/YAML configuration with SENTICHART_* environment overrides.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...           # All tests
//	go test ./pkg/chart/...     # Specific package
//	go test -run Example        # Examples only
//
// [chart]: https://pkg.go.dev/github.com/matzehuels/sentichart/pkg/chart
// [chart/sink]: https://pkg.go.dev/github.com/matzehuels/sentichart/pkg/chart/sink
// [source]: https://pkg.go.dev/github.com/matzehuels/sentichart/pkg/source
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/sentichart/pkg/pipeline
// [render]: https://pkg.go.dev/github.com/matzehuels/sentichart/pkg/render
// [cache]: https://pkg.go.dev/github.com/matzehuels/sentichart/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/sentichart/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/sentichart/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/sentichart/pkg/observability
package pkg
