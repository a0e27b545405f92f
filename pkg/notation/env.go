package notation

import (
	"github.com/matzehuels/engrave/pkg/errors"
	"github.com/matzehuels/engrave/pkg/glyph"
)

// Default layout settings, in pixels unless noted.
const (
	DefaultPoint                = 40
	DefaultStavePadding         = 12
	DefaultEndPaddingMin        = 5
	DefaultEndPaddingMax        = 10
	DefaultUnalignedNotePadding = 10
	DefaultNoteHeadPadding      = 2
	DefaultContextPadding       = 1
	DefaultSoftmaxFactor        = 10
	DefaultMaxIterations        = 5
	DefaultTextSize             = 10
	DefaultLineSpacing          = 10
)

// BeamSettings controls beam geometry and the slope search.
type BeamSettings struct {
	Width             float64 `toml:"width"`
	MaxSlope          float64 `toml:"max_slope"`
	MinSlope          float64 `toml:"min_slope"`
	SlopeIterations   int     `toml:"slope_iterations"`
	SlopeCost         float64 `toml:"slope_cost"`
	StemletExtension  float64 `toml:"stemlet_extension"`
	PartialBeamLength float64 `toml:"partial_beam_length"`
	MinFlatBeamOffset float64 `toml:"min_flat_beam_offset"`
	ShowStemlets      bool    `toml:"show_stemlets"`
}

// TupletSettings controls tuplet bracket placement.
type TupletSettings struct {
	NestingOffset float64 `toml:"nesting_offset"`
	YOffset       float64 `toml:"y_offset"`
	// Point is the digit size; zero means three fifths of the notation point.
	Point float64 `toml:"point"`
}

// Env is the layout environment: font metrics and spacing constants shared
// by one formatting pass. Passes that must not interfere use separate Env
// values.
type Env struct {
	Glyphs glyph.Provider

	Point    float64
	TextSize float64

	StavePadding         float64
	EndPaddingMin        float64
	EndPaddingMax        float64
	UnalignedNotePadding float64
	LineSpacing          float64

	NoteHeadPadding float64
	ContextPadding  float64

	AccidentalSpacing float64
	AccidentalPadding float64
	DotSpacing        float64

	SoftmaxFactor float64
	MaxIterations int

	Beam   BeamSettings
	Tuplet TupletSettings
}

// DefaultEnv returns an environment with the built-in glyph provider and
// default constants.
func DefaultEnv() *Env {
	return &Env{
		Glyphs:               glyph.Default(),
		Point:                DefaultPoint,
		TextSize:             DefaultTextSize,
		StavePadding:         DefaultStavePadding,
		EndPaddingMin:        DefaultEndPaddingMin,
		EndPaddingMax:        DefaultEndPaddingMax,
		UnalignedNotePadding: DefaultUnalignedNotePadding,
		LineSpacing:          DefaultLineSpacing,
		NoteHeadPadding:      DefaultNoteHeadPadding,
		ContextPadding:       DefaultContextPadding,
		AccidentalSpacing:    3,
		AccidentalPadding:    2,
		DotSpacing:           1,
		SoftmaxFactor:        DefaultSoftmaxFactor,
		MaxIterations:        DefaultMaxIterations,
		Beam: BeamSettings{
			Width:             5,
			MaxSlope:          0.25,
			MinSlope:          -0.25,
			SlopeIterations:   20,
			SlopeCost:         100,
			StemletExtension:  7,
			PartialBeamLength: 10,
			MinFlatBeamOffset: 15,
		},
		Tuplet: TupletSettings{
			NestingOffset: 15,
		},
	}
}

// Validate checks the settings for values the algorithms cannot work with.
func (e *Env) Validate() error {
	switch {
	case e.Glyphs == nil:
		return errors.New(errors.ErrCodeInvalidConfig, "env has no glyph provider")
	case e.Point <= 0:
		return errors.New(errors.ErrCodeInvalidConfig, "point must be positive, got %g", e.Point)
	case e.TextSize <= 0:
		return errors.New(errors.ErrCodeInvalidConfig, "text size must be positive, got %g", e.TextSize)
	case e.LineSpacing <= 0:
		return errors.New(errors.ErrCodeInvalidConfig, "line spacing must be positive, got %g", e.LineSpacing)
	case e.EndPaddingMin < 0 || e.EndPaddingMax < e.EndPaddingMin:
		return errors.New(errors.ErrCodeInvalidConfig, "end padding range [%g, %g] is invalid", e.EndPaddingMin, e.EndPaddingMax)
	case e.SoftmaxFactor <= 1:
		return errors.New(errors.ErrCodeInvalidConfig, "softmax factor must exceed 1, got %g", e.SoftmaxFactor)
	case e.MaxIterations < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "max iterations must not be negative, got %d", e.MaxIterations)
	case e.Beam.SlopeIterations <= 0:
		return errors.New(errors.ErrCodeInvalidConfig, "beam slope iterations must be positive, got %d", e.Beam.SlopeIterations)
	case e.Beam.MinSlope > e.Beam.MaxSlope:
		return errors.New(errors.ErrCodeInvalidConfig, "beam slope range [%g, %g] is invalid", e.Beam.MinSlope, e.Beam.MaxSlope)
	}
	return nil
}

// Glyph looks up a notation symbol at the environment's point size.
func (e *Env) Glyph(code string) (glyph.Metrics, error) {
	return e.Glyphs.Glyph(code, e.Point)
}

// Text measures an annotation string at the environment's text size.
func (e *Env) Text(s string) (glyph.Metrics, error) {
	return e.Glyphs.Text(s, e.TextSize)
}

// TupletPoint returns the point size of tuplet digits.
func (e *Env) TupletPoint() float64 {
	if e.Tuplet.Point > 0 {
		return e.Tuplet.Point
	}
	return e.Point * 3 / 5
}

func envOrDefault(e *Env) *Env {
	if e == nil {
		return DefaultEnv()
	}
	return e
}
