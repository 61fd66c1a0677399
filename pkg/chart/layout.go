package chart

import (
	"math"
	"slices"
	"time"
)

// Layout constants. BandHeight is in pixels and does not scale with the
// viewport.
const (
	BandHeight  = 60.0
	BarGutter   = 1.0
	MinBarWidth = 1.0
	MaxXTicks   = 6
)

// YTickFractions are the positions of the price labels along the inner
// height, top to bottom.
var YTickFractions = [...]float64{0, 0.25, 0.5, 0.75, 1}

// Layout computes the chart geometry for series and events inside vp.
//
// The series is copied and stable-sorted by timestamp, so callers may pass
// it in any order. Events are matched to series points by exact timestamp;
// unmatched events produce no marker. The returned model shares no memory
// with the inputs.
func Layout(series []SeriesPoint, events []Event, vp Viewport) RenderModel {
	m := RenderModel{
		Viewport:      vp,
		PrimaryPath:   []Point{},
		SecondaryPath: []Point{},
		SecondaryBars: []Bar{},
		XTicks:        []XTick{},
		YTicksPrimary: []YTick{},
		Markers:       []Marker{},
	}
	if len(series) == 0 {
		return m
	}

	pts := sortedSeries(series)
	n := len(pts)

	left, right := vp.Margins.Left, vp.Width-vp.Margins.Right
	top, bottom := vp.Margins.Top, vp.Height-vp.Margins.Bottom
	innerW, innerH := vp.InnerWidth(), vp.InnerHeight()

	bandH := clamp(BandHeight, 0, innerH)
	bandTop := bottom - bandH

	m.PriceDomain = priceDomain(pts)
	m.SentimentDomain = sentimentDomain(pts)
	m.Band = Band{X: left, Y: bandTop, Width: math.Max(innerW, 0), Height: bandH}

	xs := indexScale{n: n, left: left, width: innerW}
	yPrice := linearScale{d0: m.PriceDomain.Max, d1: m.PriceDomain.Min, r0: top, r1: top + innerH}
	ySent := linearScale{d0: m.SentimentDomain.Min, d1: m.SentimentDomain.Max, r0: bandTop + bandH, r1: bandTop}

	px := func(i int) float64 { return clamp(xs.Map(i), left, right) }
	py := func(v float64) float64 { return clamp(yPrice.Map(v), top, bottom) }
	sy := func(v float64) float64 { return clamp(ySent.Map(v), bandTop, bottom) }

	m.PrimaryPath = make([]Point, n)
	m.SecondaryPath = make([]Point, n)
	m.SecondaryBars = make([]Bar, n)

	barW := math.Max(MinBarWidth, innerW/float64(n)-BarGutter)
	for i, p := range pts {
		x := px(i)
		m.PrimaryPath[i] = Point{X: x, Y: py(p.Price)}
		m.SecondaryPath[i] = Point{X: x, Y: sy(p.Sentiment)}
		m.SecondaryBars[i] = sentimentBar(x, barW, p.Sentiment, m.SentimentDomain, bandTop, bandH, left, right)
	}

	m.XTicks = xTicks(pts, px)
	m.YTicksPrimary = yTicks(m.PriceDomain, top, innerH)
	m.Markers = placeMarkers(pts, events, px, py)
	return m
}

// sortedSeries copies series, coerces non-finite values to 0 and stable-sorts
// by timestamp.
func sortedSeries(series []SeriesPoint) []SeriesPoint {
	pts := make([]SeriesPoint, len(series))
	for i, p := range series {
		pts[i] = SeriesPoint{Timestamp: p.Timestamp, Price: finite(p.Price), Sentiment: finite(p.Sentiment)}
	}
	slices.SortStableFunc(pts, func(a, b SeriesPoint) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return pts
}

// sentimentBar builds a bar centered on cx that grows up from the bottom of
// the band. The bar is trimmed to [left, right] but kept at least
// MinBarWidth wide where the plot area allows it.
func sentimentBar(cx, w, s float64, d Domain, bandTop, bandH, left, right float64) Bar {
	h := clamp(fraction(s, d.Min, d.Max)*bandH, 0, bandH)

	x0 := math.Max(cx-w/2, left)
	x1 := math.Min(cx+w/2, right)
	if x1-x0 < MinBarWidth {
		if x0 == left {
			x1 = math.Min(x0+MinBarWidth, right)
		} else {
			x0 = math.Max(x1-MinBarWidth, left)
		}
	}

	sign := 1
	if s < 0 {
		sign = -1
	}
	return Bar{X: x0, Y: bandTop + bandH - h, Width: math.Max(x1-x0, 0), Height: h, Sign: sign}
}

// xTicks picks at most MaxXTicks evenly spaced indices, first and last
// included.
func xTicks(pts []SeriesPoint, px func(int) float64) []XTick {
	n := len(pts)
	count := min(MaxXTicks, n)
	ticks := make([]XTick, 0, count)
	last := -1
	for k := 0; k < count; k++ {
		idx := int(math.Round(float64(k) / float64(max(1, count-1)) * float64(n-1)))
		if idx == last {
			continue
		}
		last = idx
		ticks = append(ticks, XTick{X: px(idx), Index: idx, Label: pts[idx].Timestamp})
	}
	return ticks
}

func yTicks(d Domain, top, innerH float64) []YTick {
	ticks := make([]YTick, len(YTickFractions))
	for i, f := range YTickFractions {
		ticks[i] = YTick{
			Y:     top + f*math.Max(innerH, 0),
			Value: d.Max*(1-f) + d.Min*f,
		}
	}
	return ticks
}

type instant struct {
	sec  int64
	nsec int
}

func instantOf(t time.Time) instant { return instant{sec: t.Unix(), nsec: t.Nanosecond()} }

// placeMarkers emits one marker per event whose timestamp equals a series
// point's timestamp, in event order. The first matching point wins.
func placeMarkers(pts []SeriesPoint, events []Event, px func(int) float64, py func(float64) float64) []Marker {
	index := make(map[instant]int, len(pts))
	for i := len(pts) - 1; i >= 0; i-- {
		index[instantOf(pts[i].Timestamp)] = i
	}

	markers := make([]Marker, 0, len(events))
	for _, e := range events {
		i, ok := index[instantOf(e.Timestamp)]
		if !ok {
			continue
		}
		markers = append(markers, Marker{
			X:        px(i),
			Y:        py(pts[i].Price),
			Kind:     e.Kind,
			Price:    e.Price,
			Quantity: e.Quantity,
			Time:     pts[i].Timestamp,
		})
	}
	return markers
}

// MatchedEvents counts how many events would produce a marker for series.
func MatchedEvents(series []SeriesPoint, events []Event) int {
	seen := make(map[instant]struct{}, len(series))
	for _, p := range series {
		seen[instantOf(p.Timestamp)] = struct{}{}
	}
	matched := 0
	for _, e := range events {
		if _, ok := seen[instantOf(e.Timestamp)]; ok {
			matched++
		}
	}
	return matched
}
