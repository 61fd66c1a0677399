package chart

import "math"

// linearScale maps a domain [d0, d1] onto a pixel range [r0, r1].
// d0 may be larger than d1; that is how the inverted price axis is built.
type linearScale struct {
	d0, d1 float64
	r0, r1 float64
}

func (s linearScale) Map(v float64) float64 {
	return s.r0 + fraction(v, s.d0, s.d1)*(s.r1-s.r0)
}

// fraction is the position of v within [d0, d1], 0 at d0 and 1 at d1. It
// works on halved values so that spans near ±MaxFloat64 do not overflow. A
// degenerate domain has span 1.
func fraction(v, d0, d1 float64) float64 {
	half := d1/2 - d0/2
	if half == 0 {
		half = 0.5
	}
	return (v/2 - d0/2) / half
}

// indexScale spaces n points evenly across [left, left+width].
type indexScale struct {
	n     int
	left  float64
	width float64
}

func (s indexScale) Map(i int) float64 {
	return s.left + float64(i)/float64(max(1, s.n-1))*s.width
}

// finite replaces NaN and infinities with 0.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func allFinite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// clamp bounds v to [lo, hi]. NaN maps to lo.
func clamp(v, lo, hi float64) float64 {
	if hi < lo || math.IsNaN(v) {
		return lo
	}
	return math.Min(math.Max(v, lo), hi)
}

func priceDomain(pts []SeriesPoint) Domain {
	d := Domain{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, p := range pts {
		d.Min = math.Min(d.Min, p.Price)
		d.Max = math.Max(d.Max, p.Price)
	}
	return d
}

// sentimentDomain always contains [-1, 1].
func sentimentDomain(pts []SeriesPoint) Domain {
	d := Domain{Min: -1, Max: 1}
	for _, p := range pts {
		d.Min = math.Min(d.Min, p.Sentiment)
		d.Max = math.Max(d.Max, p.Sentiment)
	}
	return d
}
