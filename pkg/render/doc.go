// Package render converts SVG documents to raster and print formats.
//
// [ToPNG] and [ToPDF] pipe the SVG through the external rsvg-convert tool
// (from librsvg). Use [Available] to check for it before offering those
// formats.
//
//	svg := sink.RenderSVG(model)
//	pdf, err := render.ToPDF(ctx, svg)
//	png, err := render.ToPNG(ctx, svg, 2.0) // 2x scale
package render
