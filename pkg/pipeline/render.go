package pipeline

import (
	"context"
	"fmt"

	"github.com/matzehuels/sentichart/pkg/chart"
	"github.com/matzehuels/sentichart/pkg/chart/sink"
	"github.com/matzehuels/sentichart/pkg/source"
)

// Render generates output artifacts in the requested formats. res supplies
// the ticker and the summary shown in the header; it may be nil.
func Render(ctx context.Context, m chart.RenderModel, res *source.Result, opts Options) (map[string][]byte, error) {
	svgOpts := buildSVGOptions(res, opts)
	artifacts := make(map[string][]byte, len(opts.Formats))

	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatSVG:
			data = sink.RenderSVG(m, svgOpts...)
		case FormatPNG:
			data, err = sink.RenderPNG(ctx, m, sink.WithPNGSVGOptions(svgOpts...), sink.WithScale(opts.Scale))
		case FormatPDF:
			data, err = sink.RenderPDF(ctx, m, sink.WithPDFSVGOptions(svgOpts...))
		case FormatJSON:
			data, err = sink.RenderJSON(m, buildJSONOptions(res, opts)...)
		default:
			return nil, fmt.Errorf("unsupported format: %s", format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}

	return artifacts, nil
}

func buildSVGOptions(res *source.Result, opts Options) []sink.SVGOption {
	style, _ := sink.StyleByName(opts.Style)
	svgOpts := []sink.SVGOption{
		sink.WithStyle(style),
		sink.WithDateFormat(opts.DateFormat),
	}
	if title := opts.ChartTitle(tickerOf(res, opts)); title != "" {
		svgOpts = append(svgOpts, sink.WithTitle(title))
		if sub := Subtitle(res); sub != "" {
			svgOpts = append(svgOpts, sink.WithSubtitle(sub))
		}
	}
	if opts.Legend {
		svgOpts = append(svgOpts, sink.WithLegend())
	}
	return svgOpts
}

func buildJSONOptions(res *source.Result, opts Options) []sink.JSONOption {
	jsonOpts := []sink.JSONOption{sink.WithJSONStyle(opts.Style)}
	if t := tickerOf(res, opts); t != "" {
		jsonOpts = append(jsonOpts, sink.WithJSONTicker(t))
	}
	if res != nil {
		jsonOpts = append(jsonOpts, sink.WithJSONSummary(res.Summary()))
	}
	return jsonOpts
}

// Subtitle summarises performance for the chart header, e.g.
// "ROI 1.23% | Max drawdown -0.50% | Mood bullish".
func Subtitle(res *source.Result) string {
	if res == nil || len(res.Series) == 0 {
		return ""
	}
	s := res.Summary()
	return fmt.Sprintf("ROI %s%% | Max drawdown %s%% | Mood %s",
		s.Metrics.ROI.StringFixed(2), s.Metrics.MaxDrawdown.StringFixed(2), s.Mood.Label)
}

func tickerOf(res *source.Result, opts Options) string {
	if res != nil && res.Ticker != "" {
		return res.Ticker
	}
	return opts.Ticker
}
