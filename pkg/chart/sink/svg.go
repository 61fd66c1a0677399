package sink

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/matzehuels/sentichart/pkg/chart"
)

const (
	titleHeight  = 36.0
	legendHeight = 28.0
	markerRadius = 10.0

	// DefaultDateFormat labels x ticks as e.g. "Oct 1".
	DefaultDateFormat = "Jan 2"
)

// SVGOption configures RenderSVG.
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	style      Style
	title      string
	subtitle   string
	legend     bool
	dateFormat string
	emptyText  string
}

// WithStyle selects the color palette.
func WithStyle(s Style) SVGOption { return func(r *svgRenderer) { r.style = s } }

// WithTitle adds a title strip above the chart.
func WithTitle(t string) SVGOption { return func(r *svgRenderer) { r.title = t } }

// WithSubtitle adds a second, smaller line to the title strip.
func WithSubtitle(t string) SVGOption { return func(r *svgRenderer) { r.subtitle = t } }

// WithLegend adds a legend strip below the chart.
func WithLegend() SVGOption { return func(r *svgRenderer) { r.legend = true } }

// WithDateFormat sets the time layout for x tick labels.
func WithDateFormat(layout string) SVGOption {
	return func(r *svgRenderer) {
		if layout != "" {
			r.dateFormat = layout
		}
	}
}

// WithEmptyText replaces the message drawn for an empty model.
func WithEmptyText(t string) SVGOption { return func(r *svgRenderer) { r.emptyText = t } }

// ChartTitle is the standard title for a ticker's chart.
func ChartTitle(ticker string) string {
	return "Market Reaction & Simulation for " + ticker
}

// RenderSVG draws m as a standalone SVG document. An empty model yields a
// panel with a "No chart data" message.
func RenderSVG(m chart.RenderModel, opts ...SVGOption) []byte {
	r := svgRenderer{style: Dark, dateFormat: DefaultDateFormat, emptyText: "No chart data"}
	for _, opt := range opts {
		opt(&r)
	}

	vp := m.Viewport
	top := 0.0
	if r.title != "" {
		top = titleHeight
	}
	bottom := 0.0
	if r.legend {
		bottom = legendHeight
	}
	total := vp.Height + top + bottom

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %s %s" width="%.0f" height="%.0f" font-family="Inter, Helvetica, Arial, sans-serif">`+"\n",
		num(vp.Width), num(total), vp.Width, total)
	fmt.Fprintf(&buf, `  <rect x="0" y="0" width="%s" height="%s" fill="%s"/>`+"\n", num(vp.Width), num(total), r.style.Background)

	if r.title != "" {
		r.renderTitle(&buf, vp.Width)
	}

	fmt.Fprintf(&buf, `  <g class="chart" transform="translate(0 %s)">`+"\n", num(top))
	if m.Empty() {
		r.renderEmpty(&buf, vp)
	} else {
		r.renderGrid(&buf, m)
		r.renderBand(&buf, m)
		r.renderPaths(&buf, m)
		r.renderXTicks(&buf, m)
		r.renderMarkers(&buf, m)
	}
	buf.WriteString("  </g>\n")

	if r.legend {
		r.renderLegend(&buf, top+vp.Height)
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

// ===== Sections =====

func (r *svgRenderer) renderTitle(buf *bytes.Buffer, width float64) {
	fmt.Fprintf(buf, `  <text class="title" x="16" y="22" font-size="16" font-weight="bold" fill="%s">%s</text>`+"\n",
		r.style.Title, escape(r.title))
	if r.subtitle != "" {
		fmt.Fprintf(buf, `  <text class="subtitle" x="%s" y="22" font-size="11" text-anchor="end" fill="%s">%s</text>`+"\n",
			num(width-16), r.style.Label, escape(r.subtitle))
	}
}

func (r *svgRenderer) renderEmpty(buf *bytes.Buffer, vp chart.Viewport) {
	fmt.Fprintf(buf, `    <rect class="empty" x="%s" y="%s" width="%s" height="%s" fill="%s" rx="8"/>`+"\n",
		num(vp.Margins.Left), num(vp.Margins.Top), num(math.Max(vp.InnerWidth(), 0)), num(math.Max(vp.InnerHeight(), 0)), r.style.BandFill)
	fmt.Fprintf(buf, `    <text x="%s" y="%s" font-size="14" font-style="italic" text-anchor="middle" fill="%s">%s</text>`+"\n",
		num(vp.Width/2), num(vp.Height/2), r.style.Label, escape(r.emptyText))
}

// renderGrid draws a horizontal rule and a price label at every y tick.
func (r *svgRenderer) renderGrid(buf *bytes.Buffer, m chart.RenderModel) {
	x1, x2 := m.Viewport.Margins.Left, m.Viewport.Width-m.Viewport.Margins.Right
	buf.WriteString(`    <g class="grid">` + "\n")
	for _, t := range m.YTicksPrimary {
		fmt.Fprintf(buf, `      <line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="1"/>`+"\n",
			num(x1), num(t.Y), num(x2), num(t.Y), r.style.Grid)
		fmt.Fprintf(buf, `      <text x="12" y="%s" font-size="11" fill="%s">%s</text>`+"\n",
			num(t.Y+4), r.style.Label, PriceLabel(t.Value))
	}
	buf.WriteString("    </g>\n")
}

func (r *svgRenderer) renderBand(buf *bytes.Buffer, m chart.RenderModel) {
	b := m.Band
	if b.Height <= 0 {
		return
	}
	buf.WriteString(`    <g class="sentiment-band">` + "\n")
	fmt.Fprintf(buf, `      <rect x="%s" y="%s" width="%s" height="%s" fill="%s"/>`+"\n",
		num(b.X), num(b.Y), num(b.Width), num(b.Height), r.style.BandFill)
	fmt.Fprintf(buf, `      <text x="%s" y="%s" font-size="11" fill="%s">Sentiment</text>`+"\n",
		num(b.X+6), num(b.Y+14), r.style.Label)
	for _, bar := range m.SecondaryBars {
		color := r.style.PositiveBar
		if bar.Sign < 0 {
			color = r.style.NegativeBar
		}
		fmt.Fprintf(buf, `      <rect x="%s" y="%s" width="%s" height="%s" fill="%s" opacity="0.9"/>`+"\n",
			num(bar.X), num(bar.Y), num(bar.Width), num(bar.Height), color)
	}
	buf.WriteString("    </g>\n")
}

func (r *svgRenderer) renderPaths(buf *bytes.Buffer, m chart.RenderModel) {
	fmt.Fprintf(buf, `    <path class="price" d="%s" fill="none" stroke="%s" stroke-width="2.4" stroke-linecap="round" stroke-linejoin="round"/>`+"\n",
		PathData(m.PrimaryPath), r.style.Price)
	fmt.Fprintf(buf, `    <path class="sentiment" d="%s" fill="none" stroke="%s" stroke-width="1.8" opacity="0.95"/>`+"\n",
		PathData(m.SecondaryPath), r.style.Sentiment)
}

func (r *svgRenderer) renderXTicks(buf *bytes.Buffer, m chart.RenderModel) {
	base := m.Viewport.Height - m.Viewport.Margins.Bottom
	buf.WriteString(`    <g class="x-axis">` + "\n")
	for _, t := range m.XTicks {
		fmt.Fprintf(buf, `      <g transform="translate(%s %s)"><line x1="0" y1="0" x2="0" y2="6" stroke="%s"/><text x="0" y="20" font-size="10" text-anchor="middle" fill="%s">%s</text></g>`+"\n",
			num(t.X), num(base), r.style.Axis, r.style.Label, escape(t.Label.Format(r.dateFormat)))
	}
	buf.WriteString("    </g>\n")
}

func (r *svgRenderer) renderMarkers(buf *bytes.Buffer, m chart.RenderModel) {
	buf.WriteString(`    <g class="markers">` + "\n")
	for _, mk := range m.Markers {
		fill := r.style.Buy
		if mk.Kind == chart.Sell {
			fill = r.style.Sell
		}
		fmt.Fprintf(buf, `      <g class="marker %s" transform="translate(%s %s)">`, strings.ToLower(string(mk.Kind)), num(mk.X), num(mk.Y))
		fmt.Fprintf(buf, `<title>%s</title>`, escape(markerTooltip(mk)))
		fmt.Fprintf(buf, `<circle r="%s" fill="%s" stroke="%s" stroke-width="1"/>`, num(markerRadius), fill, r.style.MarkerStroke)
		fmt.Fprintf(buf, `<text x="0" y="4" font-size="10" text-anchor="middle" fill="%s">%s</text></g>`+"\n", r.style.MarkerText, mk.Kind)
	}
	buf.WriteString("    </g>\n")
}

func (r *svgRenderer) renderLegend(buf *bytes.Buffer, y float64) {
	items := []struct {
		label, color string
	}{
		{"Stock Price", r.style.Price},
		{"Sentiment Score", r.style.Sentiment},
		{"BUY Marker", r.style.Buy},
		{"SELL Marker", r.style.Sell},
	}
	fmt.Fprintf(buf, `  <g class="legend" transform="translate(0 %s)">`+"\n", num(y))
	x := 60.0
	for _, it := range items {
		fmt.Fprintf(buf, `    <circle cx="%s" cy="14" r="5" fill="%s"/><text x="%s" y="18" font-size="12" fill="%s">%s</text>`+"\n",
			num(x), it.color, num(x+10), it.color, it.label)
		x += 30 + 7*float64(len(it.label))
	}
	buf.WriteString("  </g>\n")
}

// ===== Helpers =====

// PathData builds an SVG path "d" attribute from pts.
func PathData(pts []chart.Point) string {
	var sb strings.Builder
	for i, p := range pts {
		if i > 0 {
			sb.WriteByte(' ')
		}
		cmd := "L"
		if i == 0 {
			cmd = "M"
		}
		fmt.Fprintf(&sb, "%s %s %s", cmd, num(p.X), num(p.Y))
	}
	return sb.String()
}

// PriceLabel formats a price as dollars with two decimals, e.g. "$255.45".
func PriceLabel(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "$0.00"
	}
	return "$" + decimal.NewFromFloat(v).StringFixed(2)
}

func markerTooltip(mk chart.Marker) string {
	return fmt.Sprintf("%s %g @ %s on %s", mk.Kind, mk.Quantity, PriceLabel(mk.Price), mk.Time.Format("2006-01-02"))
}

// num formats a coordinate with at most two decimals and no trailing zeros.
func num(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
