// Package glyph supplies symbol and text metrics to the layout engine.
//
// The engine never draws outlines; it only needs to know how wide and how
// tall a symbol is at a given point size. A [Provider] answers two kinds of
// question: the metrics of a named notation glyph (SMuFL code names such as
// "noteheadBlack" or "accidentalSharp") and the metrics of a text run
// (annotations, tuplet digits when no notation glyph is available).
//
// Three implementations are provided:
//   - [Static]: a table of Bravura-derived advance widths in staff spaces
//   - [TrueType]: text metrics measured from a TrueType face (Go Regular by default)
//   - [Chain]: tries providers in order until one knows the symbol
//
// [Default] chains the two so text comes from real font metrics and notation
// symbols fall through to the table.
package glyph

import (
	"sync"

	"github.com/matzehuels/engrave/pkg/errors"
)

// Metrics describes the horizontal and vertical extent of a symbol in pixels.
type Metrics struct {
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	LeftBearing float64 `json:"left_bearing,omitempty"`
}

// Provider looks up symbol metrics.
type Provider interface {
	// Glyph returns the metrics of a notation symbol at the given point size.
	Glyph(code string, point float64) (Metrics, error)
	// Text returns the metrics of a text run at the given size in points.
	Text(s string, size float64) (Metrics, error)
}

// NotFound returns the error providers report for unknown symbols.
func NotFound(code string) error {
	return errors.New(errors.ErrCodeGlyphNotFound, "no metrics for glyph %q", code)
}

// Chain tries each provider in order. A provider that reports
// GLYPH_NOT_FOUND passes the lookup to the next one; any other error stops
// the chain.
type Chain []Provider

// Glyph implements Provider.
func (c Chain) Glyph(code string, point float64) (Metrics, error) {
	for _, p := range c {
		m, err := p.Glyph(code, point)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, errors.ErrCodeGlyphNotFound) {
			return Metrics{}, err
		}
	}
	return Metrics{}, NotFound(code)
}

// Text implements Provider.
func (c Chain) Text(s string, size float64) (Metrics, error) {
	for _, p := range c {
		m, err := p.Text(s, size)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, errors.ErrCodeGlyphNotFound) {
			return Metrics{}, err
		}
	}
	return Metrics{}, NotFound(s)
}

// Default returns Go Regular text metrics chained with the static notation
// table. If the embedded font cannot be parsed the static table is returned
// alone. The provider is built once and shared.
var Default = sync.OnceValue(func() Provider {
	tt, err := NewTrueType(nil)
	if err != nil {
		return Static{}
	}
	return Chain{tt, Static{}}
})
