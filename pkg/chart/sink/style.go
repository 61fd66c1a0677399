package sink

import (
	"strings"

	"github.com/matzehuels/sentichart/pkg/errors"
)

// Style holds the colors used by RenderSVG.
type Style struct {
	Name         string
	Background   string
	Grid         string
	Axis         string
	Label        string
	Title        string
	Price        string
	Sentiment    string
	BandFill     string
	PositiveBar  string
	NegativeBar  string
	Buy          string
	Sell         string
	MarkerStroke string
	MarkerText   string
}

// Dark is the dashboard palette.
var Dark = Style{
	Name:         "dark",
	Background:   "#0f1724",
	Grid:         "#1f2937",
	Axis:         "#374151",
	Label:        "#94a3b8",
	Title:        "#38bdf8",
	Price:        "#38BDF8",
	Sentiment:    "#FACC15",
	BandFill:     "#071126",
	PositiveBar:  "#10B981",
	NegativeBar:  "#EF4444",
	Buy:          "#059669",
	Sell:         "#dc2626",
	MarkerStroke: "#000000",
	MarkerText:   "#ffffff",
}

// Light is a print-friendly palette.
var Light = Style{
	Name:         "light",
	Background:   "#ffffff",
	Grid:         "#e5e7eb",
	Axis:         "#9ca3af",
	Label:        "#4b5563",
	Title:        "#0369a1",
	Price:        "#0284c7",
	Sentiment:    "#ca8a04",
	BandFill:     "#f1f5f9",
	PositiveBar:  "#059669",
	NegativeBar:  "#dc2626",
	Buy:          "#047857",
	Sell:         "#b91c1c",
	MarkerStroke: "#111827",
	MarkerText:   "#ffffff",
}

// Styles lists the built-in styles by name.
var Styles = map[string]Style{
	Dark.Name:  Dark,
	Light.Name: Light,
}

// StyleByName looks up a built-in style. The empty name selects Dark.
func StyleByName(name string) (Style, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Dark, nil
	}
	s, ok := Styles[name]
	if !ok {
		return Style{}, errors.New(errors.ErrCodeInvalidStyle, "unknown style %q (want dark or light)", name)
	}
	return s, nil
}
