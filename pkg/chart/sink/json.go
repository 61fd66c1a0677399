package sink

import (
	"encoding/json"

	"github.com/matzehuels/sentichart/pkg/chart"
)

// JSONOption configures JSON rendering via [RenderJSON].
type JSONOption func(*jsonRenderer)

type jsonRenderer struct {
	ticker  string
	style   string
	summary any
}

// WithJSONTicker records the ticker the model was computed for.
func WithJSONTicker(t string) JSONOption { return func(r *jsonRenderer) { r.ticker = t } }

// WithJSONStyle records the style name for clients that re-render the model.
func WithJSONStyle(s string) JSONOption { return func(r *jsonRenderer) { r.style = s } }

// WithJSONSummary attaches a result summary (metrics and mood) to the output.
func WithJSONSummary(s any) JSONOption { return func(r *jsonRenderer) { r.summary = s } }

type jsonOutput struct {
	Ticker  string            `json:"ticker,omitempty"`
	Style   string            `json:"style,omitempty"`
	Summary any               `json:"summary,omitempty"`
	Model   chart.RenderModel `json:"model"`
}

// RenderJSON exports the model as a pretty-printed JSON document. It does not
// modify m and is safe to call concurrently.
func RenderJSON(m chart.RenderModel, opts ...JSONOption) ([]byte, error) {
	r := jsonRenderer{}
	for _, opt := range opts {
		opt(&r)
	}
	return json.MarshalIndent(jsonOutput{
		Ticker:  r.ticker,
		Style:   r.style,
		Summary: r.summary,
		Model:   m,
	}, "", "  ")
}

// ReadJSON parses a document written by RenderJSON and returns its model.
func ReadJSON(data []byte) (chart.RenderModel, error) {
	var out jsonOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return chart.RenderModel{}, err
	}
	return out.Model, nil
}
