package source

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/matzehuels/sentichart/pkg/chart"
)

// Strategy thresholds. Average sentiment above BuyThreshold reads as
// bullish and below SellThreshold as bearish.
const (
	BuyThreshold  = 0.2
	SellThreshold = -0.2
)

// Mood labels.
const (
	Bullish = "bullish"
	Bearish = "bearish"
	Neutral = "neutral"
)

var hundred = decimal.NewFromInt(100)

// dec converts v to a decimal, mapping NaN and infinities to zero since
// decimal.NewFromFloat panics on them.
func dec(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

// ComputeMetrics derives return on investment and maximum drawdown from a
// series of portfolio values. Fewer than two values, or a non-positive
// starting value, yield zero metrics.
func ComputeMetrics(values []float64) Metrics {
	if len(values) < 2 {
		return Metrics{ROI: decimal.Zero, MaxDrawdown: decimal.Zero}
	}
	first := dec(values[0])
	if !first.IsPositive() {
		return Metrics{ROI: decimal.Zero, MaxDrawdown: decimal.Zero}
	}
	last := dec(values[len(values)-1])
	roi := last.Sub(first).Div(first).Mul(hundred)

	peak := first
	worst := decimal.Zero
	for _, v := range values {
		d := dec(v)
		if d.GreaterThan(peak) {
			peak = d
		}
		if !peak.IsPositive() {
			continue
		}
		if dd := d.Sub(peak).Div(peak); dd.LessThan(worst) {
			worst = dd
		}
	}

	return Metrics{
		ROI:         roi.Round(2),
		MaxDrawdown: worst.Mul(hundred).Round(2),
	}
}

// MoodReading is the average sentiment of a series and its label.
type MoodReading struct {
	Label   string  `json:"label"`
	Average float64 `json:"average"`
}

// Mood averages the sentiment of series and labels it against the strategy
// thresholds. An empty series is neutral.
func Mood(series []chart.SeriesPoint) MoodReading {
	if len(series) == 0 {
		return MoodReading{Label: Neutral}
	}
	sum := decimal.Zero
	for _, p := range series {
		sum = sum.Add(dec(p.Sentiment))
	}
	avg, _ := sum.Div(decimal.NewFromInt(int64(len(series)))).Round(3).Float64()

	label := Neutral
	switch {
	case avg > BuyThreshold:
		label = Bullish
	case avg < SellThreshold:
		label = Bearish
	}
	return MoodReading{Label: label, Average: avg}
}
