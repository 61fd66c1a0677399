// Package chart computes the geometry of a dual-metric price/sentiment chart.
//
// # Overview
//
// [Layout] is a pure function: it takes a time series of [SeriesPoint]
// samples (price plus news sentiment), a list of discrete trade [Event]s and
// a [Viewport], and returns a [RenderModel] holding everything a renderer
// needs to paint the chart:
//
//   - PrimaryPath: the price line
//   - SecondaryPath and SecondaryBars: the sentiment line and bars, drawn
//     inside a fixed-height band at the bottom of the plot area
//   - XTicks and YTicksPrimary: axis label positions
//   - Markers: BUY/SELL markers placed on the price line
//
// The model is renderer-agnostic. It carries geometry and semantic tags
// ([Buy], [Sell], bar sign) but never colors or stroke widths; those are
// chosen by a sink such as [sink.RenderSVG].
//
// # Scales
//
// The horizontal axis is ordinal: points are spaced evenly by their index
// in the sorted series, not by elapsed time. Two samples a day apart and
// two samples a month apart occupy the same horizontal distance if they are
// adjacent.
//
// The price axis maps [min, max] of the series onto the inner plot height,
// inverted so larger prices sit higher. A flat series (min == max) uses a
// span of 1.
//
// The sentiment axis always includes -1 and +1 in its domain, so the band
// shows at least the canonical sentiment range even when the data is
// quiet.
//
// # Degenerate Input
//
// Layout never fails. An empty series yields a model whose collections are
// all empty. Non-finite values are coerced to 0. Events whose timestamp
// does not exactly match a series point are dropped. Callers that want to
// surface a "no data" state should check [RenderModel.Empty].
//
// # Usage
//
//	model := chart.Layout(series, events, chart.DefaultViewport())
//	for _, p := range model.PrimaryPath {
//	    // draw line segment to (p.X, p.Y)
//	}
//
// Layout has no shared state and may be called from any number of
// goroutines.
//
// [sink.RenderSVG]: github.com/matzehuels/sentichart/pkg/chart/sink.RenderSVG
package chart
