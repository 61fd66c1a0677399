package pipeline

import (
	"github.com/matzehuels/sentichart/pkg/cache"
	"github.com/matzehuels/sentichart/pkg/chart"
	"github.com/matzehuels/sentichart/pkg/source"
)

// layoutInput is the hashed identity of a layout's data.
type layoutInput struct {
	Series []chart.SeriesPoint `json:"series"`
	Events []chart.Event       `json:"events"`
}

// InputHash returns the content hash of the series and events in res.
func InputHash(res *source.Result) (string, error) {
	return cache.HashJSON(layoutInput{Series: res.Series, Events: res.Events})
}

// ComputeLayout runs the layout engine for res inside the options viewport.
// Call ValidateForLayout first.
func ComputeLayout(res *source.Result, opts Options) chart.RenderModel {
	return chart.Layout(res.Series, res.Events, opts.Viewport())
}
