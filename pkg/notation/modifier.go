package notation

import (
	"github.com/matzehuels/engrave/pkg/errors"
)

// Modifier categories.
const (
	CategoryAccidental = "accidental"
	CategoryDot        = "dot"
	CategoryAnnotation = "annotation"
)

// Modifier is a decoration attached to one head of a [StaveNote]. Its
// horizontal offset is resolved by the note's [ModifierContext].
type Modifier interface {
	Category() string
	Note() *StaveNote
	Index() int
	Width() float64
	// XShift is the distance from the note edge the modifier sits on.
	XShift() float64

	attach(n *StaveNote, index int)
}

type modifier struct {
	note   *StaveNote
	index  int
	width  float64
	xShift float64
}

func (m *modifier) Note() *StaveNote { return m.note }
func (m *modifier) Index() int       { return m.index }
func (m *modifier) Width() float64   { return m.width }
func (m *modifier) XShift() float64  { return m.xShift }

func (m *modifier) attach(n *StaveNote, index int) {
	m.note = n
	m.index = index
}

// Accidental is drawn to the left of a head.
type Accidental struct {
	modifier
	Type string
	code string
}

// NewAccidental returns an accidental of type "#", "b", "n", "##" or "bb".
func NewAccidental(typ string) (*Accidental, error) {
	code, ok := accidentalCodes[typ]
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown accidental %q", typ)
	}
	return &Accidental{Type: typ, code: code}, nil
}

func (a *Accidental) Category() string { return CategoryAccidental }

// GlyphCode returns the accidental's glyph.
func (a *Accidental) GlyphCode() string { return a.code }

// Dot is an augmentation dot drawn to the right of a head.
type Dot struct {
	modifier
	// YShift is the vertical offset in lines, moving dots on staff lines
	// into the adjacent space.
	YShift float64
}

// NewDot returns an augmentation dot.
func NewDot() *Dot { return &Dot{} }

func (d *Dot) Category() string { return CategoryDot }

// Justification is the horizontal alignment of an annotation to its note.
type Justification int

const (
	JustifyCenter Justification = iota
	JustifyLeft
	JustifyRight
)

// Position is the side of the stave an annotation is placed on.
type Position int

const (
	PositionAbove Position = iota
	PositionBelow
)

// Annotation is a text label above or below a note.
type Annotation struct {
	modifier
	Text     string
	Justify  Justification
	Position Position
	// TextLine is the stacking slot assigned during formatting.
	TextLine float64
}

// NewAnnotation returns a centered annotation above the note.
func NewAnnotation(text string) *Annotation {
	return &Annotation{Text: text}
}

func (a *Annotation) Category() string { return CategoryAnnotation }
