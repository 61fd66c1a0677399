package cache

import "github.com/matzehuels/sentichart/pkg/chart"

// Keyer builds cache keys for each pipeline stage.
type Keyer interface {
	// ResponseKey identifies a backend simulation response.
	ResponseKey(ticker, start, end string) string

	// LayoutKey identifies a layout computed from an input with the given hash.
	LayoutKey(inputHash string, opts LayoutKeyOpts) string

	// ArtifactKey identifies a rendered artifact of a layout.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// LayoutKeyOpts are the layout inputs that change the geometry.
type LayoutKeyOpts struct {
	Viewport chart.Viewport `json:"viewport"`
}

// ArtifactKeyOpts are the render inputs that change the output bytes.
type ArtifactKeyOpts struct {
	Format     string  `json:"format"`
	Style      string  `json:"style"`
	Title      string  `json:"title,omitempty"`
	Subtitle   string  `json:"subtitle,omitempty"`
	Legend     bool    `json:"legend,omitempty"`
	DateFormat string  `json:"date_format,omitempty"`
	Scale      float64 `json:"scale,omitempty"`
}

// DefaultKeyer produces keys of the form "type:sha256".
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

func (DefaultKeyer) ResponseKey(ticker, start, end string) string {
	return hashKey(KeyTypeResponse, ticker, start, end)
}

func (DefaultKeyer) LayoutKey(inputHash string, opts LayoutKeyOpts) string {
	return hashKey(KeyTypeLayout, inputHash, opts)
}

func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey(KeyTypeArtifact, layoutHash, opts)
}

var _ Keyer = DefaultKeyer{}
