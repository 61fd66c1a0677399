package source

import (
	"math"
	"testing"

	"github.com/matzehuels/sentichart/pkg/chart"
)

func TestComputeMetrics(t *testing.T) {
	tests := []struct {
		name    string
		values  []float64
		wantROI string
		wantMDD string
	}{
		{"rise and dip", []float64{100, 110, 99, 121}, "21.00", "-10.00"},
		{"monotonic rise", []float64{100, 101, 102}, "2.00", "0.00"},
		{"loss", []float64{200, 150}, "-25.00", "-25.00"},
		{"single value", []float64{100}, "0.00", "0.00"},
		{"empty", nil, "0.00", "0.00"},
		{"zero start", []float64{0, 10}, "0.00", "0.00"},
		{"nan start", []float64{math.NaN(), 10}, "0.00", "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ComputeMetrics(tt.values)
			if got := m.ROI.StringFixed(2); got != tt.wantROI {
				t.Errorf("ROI = %s, want %s", got, tt.wantROI)
			}
			if got := m.MaxDrawdown.StringFixed(2); got != tt.wantMDD {
				t.Errorf("MaxDrawdown = %s, want %s", got, tt.wantMDD)
			}
		})
	}
}

func TestMood(t *testing.T) {
	pts := func(s ...float64) []chart.SeriesPoint {
		out := make([]chart.SeriesPoint, len(s))
		for i, v := range s {
			out[i] = chart.SeriesPoint{Sentiment: v}
		}
		return out
	}
	tests := []struct {
		name   string
		series []chart.SeriesPoint
		label  string
		avg    float64
	}{
		{"bullish", pts(0.3, 0.5, 0.1), Bullish, 0.3},
		{"bearish", pts(-0.5, -0.1), Bearish, -0.3},
		{"threshold is neutral", pts(0.2, 0.2), Neutral, 0.2},
		{"empty", nil, Neutral, 0},
		{"non-finite ignored as zero", pts(math.Inf(1), 0.9), Bullish, 0.45},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Mood(tt.series)
			if got.Label != tt.label || got.Average != tt.avg {
				t.Errorf("Mood() = %+v, want {%s %v}", got, tt.label, tt.avg)
			}
		})
	}
}

func TestSummary(t *testing.T) {
	res, err := DecodeBytes([]byte(backendResponse))
	if err != nil {
		t.Fatal(err)
	}
	s := res.Summary()
	if s.Points != 3 || s.Buys != 1 || s.Sells != 1 {
		t.Errorf("Summary counts = %+v", s)
	}
	if got := s.FinalValue.StringFixed(2); got != "100100.20" {
		t.Errorf("FinalValue = %s", got)
	}
	if s.Mood.Label != Neutral {
		t.Errorf("Mood = %+v, want neutral", s.Mood)
	}
}
