// Package pipeline runs the fetch → layout → render pipeline for sentichart.
//
// The CLI and the HTTP server both go through this package, so caching,
// validation and logging behave the same for every entry point.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Fetch: load a simulation result from the backend, the store, or raw input
//  2. Layout: compute chart geometry with [chart.Layout]
//  3. Render: write the model as SVG, PNG, PDF or JSON
//
// Each stage can be run on its own or as part of [Runner.Execute].
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	runner.Client = client
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Ticker:  "AAPL",
//	    Start:   "2025-10-01",
//	    End:     "2025-11-12",
//	    Formats: []string{"svg"},
//	})
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sentichart/pkg/cache"
	"github.com/matzehuels/sentichart/pkg/chart"
	"github.com/matzehuels/sentichart/pkg/chart/sink"
	"github.com/matzehuels/sentichart/pkg/errors"
	"github.com/matzehuels/sentichart/pkg/source"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Server
// =============================================================================

// DefaultStyle is the default visual style.
const DefaultStyle = "dark"

// Format constants for output formats.
const (
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
	FormatJSON = "json"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:  true,
	FormatPNG:  true,
	FormatPDF:  true,
	FormatJSON: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the chart pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Fetch options
	Ticker  string `json:"ticker,omitempty"`
	Start   string `json:"start,omitempty"`
	End     string `json:"end,omitempty"`
	Refresh bool   `json:"refresh,omitempty"`

	// Input is a raw backend response. When set, Fetch decodes it instead of
	// calling the backend.
	Input []byte `json:"-"`

	// Layout options
	Width   float64        `json:"width,omitempty"`
	Height  float64        `json:"height,omitempty"`
	Margins *chart.Margins `json:"margins,omitempty"` // nil selects the default margins

	// Render options
	Formats    []string `json:"formats,omitempty"`
	Style      string   `json:"style,omitempty"`
	Title      string   `json:"title,omitempty"` // defaults to the standard chart title
	NoTitle    bool     `json:"no_title,omitempty"`
	Legend     bool     `json:"legend,omitempty"`
	DateFormat string   `json:"date_format,omitempty"`
	Scale      float64  `json:"scale,omitempty"` // PNG scale factor

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Source is the decoded simulation result.
	Source *source.Result

	// Raw is the backend response the result was decoded from.
	Raw []byte

	// InputHash is the content hash of the series and events.
	InputHash string

	// Model is the computed chart geometry.
	Model chart.RenderModel

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Points     int
	Events     int
	Markers    int
	FetchTime  time.Duration
	LayoutTime time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	FetchHit  bool // Whether the response came from cache or store
	LayoutHit bool // Whether the model came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: svg, png, pdf, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateStyle checks that a style is valid.
func ValidateStyle(style string) error {
	_, err := sink.StyleByName(style)
	return err
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the full pipeline.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForFetch(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForFetch checks the ticker and date range. Raw input needs neither.
func (o *Options) ValidateForFetch() error {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if len(o.Input) > 0 {
		return nil
	}
	o.Ticker = errors.NormalizeTicker(o.Ticker)
	if err := errors.ValidateTicker(o.Ticker); err != nil {
		return err
	}
	return errors.ValidateDateRange(o.Start, o.End)
}

// SetLayoutDefaults sets default values for layout computation.
func (o *Options) SetLayoutDefaults() {
	if o.Width == 0 {
		o.Width = chart.DefaultWidth
	}
	if o.Height == 0 {
		o.Height = chart.DefaultHeight
	}
	if o.Margins == nil {
		m := chart.DefaultViewport().Margins
		o.Margins = &m
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Viewport returns the layout viewport. Call SetLayoutDefaults first.
func (o *Options) Viewport() chart.Viewport {
	vp := chart.Viewport{Width: o.Width, Height: o.Height}
	if o.Margins != nil {
		vp.Margins = *o.Margins
	}
	return vp
}

// ValidateForLayout validates and sets defaults for layout computation.
func (o *Options) ValidateForLayout() error {
	o.SetLayoutDefaults()
	if err := o.Viewport().Validate(); err != nil {
		return errors.New(errors.ErrCodeInvalidViewport, "%v", err)
	}
	return nil
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Style == "" {
		o.Style = DefaultStyle
	}
	if o.DateFormat == "" {
		o.DateFormat = sink.DefaultDateFormat
	}
	if o.Scale == 0 {
		o.Scale = 2.0
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	o.SetRenderDefaults()
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if o.Scale < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "scale must be positive (got %g)", o.Scale)
	}
	return ValidateStyle(o.Style)
}

// ChartTitle returns the title to draw for ticker, or "" when disabled.
func (o *Options) ChartTitle(ticker string) string {
	switch {
	case o.NoTitle:
		return ""
	case o.Title != "":
		return o.Title
	case ticker == "":
		return ""
	default:
		return sink.ChartTitle(ticker)
	}
}

// LayoutKeyOpts returns cache key options for layout computation.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{Viewport: o.Viewport()}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format, title, subtitle string) cache.ArtifactKeyOpts {
	opts := cache.ArtifactKeyOpts{
		Format:     format,
		Style:      o.Style,
		Title:      title,
		Subtitle:   subtitle,
		Legend:     o.Legend,
		DateFormat: o.DateFormat,
	}
	if format == FormatPNG {
		opts.Scale = o.Scale
	}
	return opts
}
