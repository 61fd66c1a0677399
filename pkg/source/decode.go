package source

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/matzehuels/sentichart/pkg/chart"
	"github.com/matzehuels/sentichart/pkg/errors"
)

// MaxResponseSize bounds how much of a backend response is read.
const MaxResponseSize = 32 << 20

// dateLayouts are tried in order when parsing backend dates. Dates without
// a zone are read as UTC.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
}

type wireResult struct {
	Ticker          string             `json:"ticker"`
	Start           string             `json:"start"`
	End             string             `json:"end"`
	InitialCapital  *float64           `json:"initial_capital"`
	Metrics         map[string]float64 `json:"metrics"`
	PortfolioValues []wirePoint        `json:"portfolio_values"`
	PriceHistory    []wirePoint        `json:"price_history"`
	Transactions    []wireTransaction  `json:"transactions"`
}

type wirePoint struct {
	Date       string   `json:"date"`
	Price      *float64 `json:"price"`
	Close      *float64 `json:"Close"`
	Sentiment  *float64 `json:"sentiment_score"`
	TotalValue *float64 `json:"total_value"`
}

type wireTransaction struct {
	Date      string  `json:"date"`
	Action    string  `json:"action"`
	Qty       float64 `json:"qty"`
	Price     float64 `json:"price"`
	Sentiment float64 `json:"sentiment"`
}

// Decode reads a backend response from r.
func Decode(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxResponseSize+1))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read response")
	}
	if len(data) > MaxResponseSize {
		return nil, errors.New(errors.ErrCodeInvalidInput, "response exceeds %d bytes", MaxResponseSize)
	}
	return DecodeBytes(data)
}

// DecodeBytes parses a backend response held in memory.
func DecodeBytes(data []byte) (*Result, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "empty response")
	}

	var env struct {
		Status  string          `json:"status"`
		Results json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse response")
	}
	if env.Status != "" && env.Status != "success" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "backend status %q", env.Status)
	}
	if len(env.Results) > 0 && !bytes.Equal(env.Results, []byte("null")) {
		data = env.Results
	}

	var w wireResult
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse results")
	}
	return w.result()
}

func (w *wireResult) result() (*Result, error) {
	res := &Result{
		Ticker:         strings.ToUpper(strings.TrimSpace(w.Ticker)),
		Start:          w.Start,
		End:            w.End,
		InitialCapital: decimal.Zero,
	}
	if w.InitialCapital != nil {
		res.InitialCapital = dec(*w.InitialCapital)
	}

	points := w.PortfolioValues
	if len(points) == 0 {
		points = w.PriceHistory
	}

	res.Series = make([]chart.SeriesPoint, 0, len(points))
	values := make([]float64, 0, len(points))
	for i, p := range points {
		ts, err := ParseDate(p.Date)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "point %d", i)
		}
		price := p.Close
		if price == nil {
			price = p.Price
		}
		if price == nil {
			return nil, errors.New(errors.ErrCodeInvalidInput, "point %d (%s) has no price", i, p.Date)
		}
		sp := chart.SeriesPoint{Timestamp: ts, Price: *price}
		if p.Sentiment != nil {
			sp.Sentiment = *p.Sentiment
		}
		res.Series = append(res.Series, sp)
		if p.TotalValue != nil {
			values = append(values, *p.TotalValue)
		}
	}
	if len(values) == len(points) && len(values) > 0 {
		res.Values = values
	}

	res.Events = make([]chart.Event, 0, len(w.Transactions))
	for i, t := range w.Transactions {
		ts, err := ParseDate(t.Date)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "transaction %d", i)
		}
		kind, err := chart.ParseEventKind(t.Action)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "transaction %d", i)
		}
		res.Events = append(res.Events, chart.Event{
			Timestamp: ts,
			Kind:      kind,
			Price:     t.Price,
			Quantity:  t.Qty,
		})
	}

	roi, okROI := w.Metrics["ROI%"]
	mdd, okMDD := w.Metrics["MaxDrawdown%"]
	switch {
	case okROI && okMDD:
		res.Metrics = Metrics{ROI: dec(roi).Round(2), MaxDrawdown: dec(mdd).Round(2)}
	default:
		res.Metrics = ComputeMetrics(res.Values)
	}
	return res, nil
}

// ParseDate parses the date formats the backend emits. Values without a zone
// are taken as UTC midnight or UTC wall time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New(errors.ErrCodeInvalidDate, "missing date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New(errors.ErrCodeInvalidDate, "unrecognised date %q", s)
}
