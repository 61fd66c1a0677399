package source

import (
	"github.com/shopspring/decimal"

	"github.com/matzehuels/sentichart/pkg/chart"
)

// Result is a decoded simulation run.
type Result struct {
	Ticker         string
	Start          string
	End            string
	InitialCapital decimal.Decimal
	Metrics        Metrics

	// Series holds one point per trading day in backend order.
	Series []chart.SeriesPoint
	// Values holds total_value for each entry of Series. It is nil when the
	// backend sent none.
	Values []float64
	Events []chart.Event
}

// Metrics summarises portfolio performance in percent, rounded to cents.
type Metrics struct {
	ROI         decimal.Decimal `json:"roi_pct"`
	MaxDrawdown decimal.Decimal `json:"max_drawdown_pct"`
}

// Summary is the compact description of a result used by the CLI table
// and the server's summary endpoint.
type Summary struct {
	Ticker         string          `json:"ticker"`
	Start          string          `json:"start,omitempty"`
	End            string          `json:"end,omitempty"`
	Points         int             `json:"points"`
	Buys           int             `json:"buys"`
	Sells          int             `json:"sells"`
	InitialCapital decimal.Decimal `json:"initial_capital"`
	FinalValue     decimal.Decimal `json:"final_value"`
	Metrics        Metrics         `json:"metrics"`
	Mood           MoodReading     `json:"mood"`
}

// Summary condenses r.
func (r *Result) Summary() Summary {
	s := Summary{
		Ticker:         r.Ticker,
		Start:          r.Start,
		End:            r.End,
		Points:         len(r.Series),
		InitialCapital: r.InitialCapital,
		Metrics:        r.Metrics,
		Mood:           Mood(r.Series),
	}
	for _, e := range r.Events {
		switch e.Kind {
		case chart.Buy:
			s.Buys++
		case chart.Sell:
			s.Sells++
		}
	}
	if n := len(r.Values); n > 0 {
		s.FinalValue = dec(r.Values[n-1]).Round(2)
	}
	return s
}
