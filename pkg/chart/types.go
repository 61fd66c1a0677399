package chart

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// EventKind tags a trade event as a purchase or a sale.
type EventKind string

const (
	Buy  EventKind = "BUY"
	Sell EventKind = "SELL"
)

// ErrInvalidEventKind is returned by [ParseEventKind] for anything other
// than BUY or SELL.
var ErrInvalidEventKind = errors.New("invalid event kind")

// ParseEventKind converts a case-insensitive action string into an EventKind.
func ParseEventKind(s string) (EventKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(Buy):
		return Buy, nil
	case string(Sell):
		return Sell, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidEventKind, s)
	}
}

// Valid reports whether k is one of the two known kinds.
func (k EventKind) Valid() bool { return k == Buy || k == Sell }

// SeriesPoint is one sample of the chart's time series.
type SeriesPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	Sentiment float64   `json:"sentiment"`
}

// Event is a discrete trade to overlay on the price line.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      EventKind `json:"kind"`
	Price     float64   `json:"price"`
	Quantity  float64   `json:"quantity"`
}

// Margins are the paddings between the viewport edge and the plot area.
type Margins struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// Viewport describes the rendering surface in pixels.
type Viewport struct {
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Margins Margins `json:"margins"`
}

// Default viewport dimensions, matching the dashboard chart.
const (
	DefaultWidth        = 1000.0
	DefaultHeight       = 360.0
	DefaultMarginTop    = 20.0
	DefaultMarginRight  = 20.0
	DefaultMarginBottom = 50.0
	DefaultMarginLeft   = 60.0
)

// ErrInvalidViewport is wrapped by [Viewport.Validate] failures.
var ErrInvalidViewport = errors.New("invalid viewport")

// DefaultViewport returns the 1000x360 dashboard viewport.
func DefaultViewport() Viewport {
	return Viewport{
		Width:  DefaultWidth,
		Height: DefaultHeight,
		Margins: Margins{
			Top:    DefaultMarginTop,
			Right:  DefaultMarginRight,
			Bottom: DefaultMarginBottom,
			Left:   DefaultMarginLeft,
		},
	}
}

// InnerWidth is the horizontal extent of the plot area.
func (v Viewport) InnerWidth() float64 { return v.Width - v.Margins.Left - v.Margins.Right }

// InnerHeight is the vertical extent of the plot area.
func (v Viewport) InnerHeight() float64 { return v.Height - v.Margins.Top - v.Margins.Bottom }

// Validate checks that the viewport is finite with positive dimensions,
// non-negative margins and a non-empty plot area. [Layout] does not call it.
func (v Viewport) Validate() error {
	switch {
	case !allFinite(v.Width, v.Height, v.Margins.Top, v.Margins.Right, v.Margins.Bottom, v.Margins.Left):
		return fmt.Errorf("%w: dimensions and margins must be finite", ErrInvalidViewport)
	case v.Width <= 0 || v.Height <= 0:
		return fmt.Errorf("%w: dimensions must be positive (got %gx%g)", ErrInvalidViewport, v.Width, v.Height)
	case v.Margins.Top < 0 || v.Margins.Right < 0 || v.Margins.Bottom < 0 || v.Margins.Left < 0:
		return fmt.Errorf("%w: margins must not be negative", ErrInvalidViewport)
	case v.InnerWidth() <= 0 || v.InnerHeight() <= 0:
		return fmt.Errorf("%w: margins leave no plot area", ErrInvalidViewport)
	}
	return nil
}

// Point is a vertex of a path in viewport pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Bar is one sentiment bar inside the sentiment band.
// Sign is +1 for non-negative sentiment and -1 otherwise.
type Bar struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Sign   int     `json:"sign"`
}

// XTick is a horizontal axis label anchored at a series index.
type XTick struct {
	X     float64   `json:"x"`
	Index int       `json:"index"`
	Label time.Time `json:"label"`
}

// YTick is a price axis label; Value is the un-scaled price.
type YTick struct {
	Y     float64 `json:"y"`
	Value float64 `json:"value"`
}

// Marker places a trade event on the price line.
type Marker struct {
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Kind     EventKind `json:"kind"`
	Price    float64   `json:"price"`
	Quantity float64   `json:"quantity"`
	Time     time.Time `json:"time"`
}

// Domain is a raw value range before scaling.
type Domain struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Span returns Max-Min, or 1 when the domain is degenerate. A span too wide
// for a float64 saturates at math.MaxFloat64.
func (d Domain) Span() float64 {
	s := d.Max - d.Min
	switch {
	case math.IsInf(s, 0):
		return math.MaxFloat64
	case s == 0:
		return 1
	}
	return s
}

// Band is the rectangle reserved for the sentiment sub-plot.
type Band struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RenderModel is the output of [Layout]. All coordinates are viewport pixels.
type RenderModel struct {
	Viewport        Viewport `json:"viewport"`
	PrimaryPath     []Point  `json:"primary_path"`
	SecondaryPath   []Point  `json:"secondary_path"`
	SecondaryBars   []Bar    `json:"secondary_bars"`
	XTicks          []XTick  `json:"x_ticks"`
	YTicksPrimary   []YTick  `json:"y_ticks_primary"`
	Markers         []Marker `json:"markers"`
	PriceDomain     Domain   `json:"price_domain"`
	SentimentDomain Domain   `json:"sentiment_domain"`
	Band            Band     `json:"band"`
}

// Empty reports whether the model has nothing to draw.
func (m RenderModel) Empty() bool { return len(m.PrimaryPath) == 0 }
