// Package sink writes a [chart.RenderModel] to output formats.
//
// [RenderSVG] draws the model as a standalone SVG document: price grid and
// labels, the sentiment band with its bars and line, the price line, date
// ticks and BUY/SELL markers. Optional title and legend strips are added
// above and below the viewport, so the model's coordinates are used as-is.
//
// [RenderJSON] exports the model itself for clients that draw their own
// chart. [RenderPNG] and [RenderPDF] convert the SVG through rsvg-convert
// (see package render).
//
// Colors come from a [Style]; [Dark] matches the dashboard and [Light] suits
// print.
package sink
