package notation

import (
	"math"
	"strconv"

	"github.com/matzehuels/engrave/pkg/errors"
)

// TupletLocation is the side of the notes a tuplet is drawn on. The values
// double as the sign of the offset away from the notes.
type TupletLocation int

const (
	LocationTop    TupletLocation = 1
	LocationBottom TupletLocation = -1
)

// TupletOptions configures a tuplet. Zero values select the defaults.
type TupletOptions struct {
	// NumNotes is the written note count; default len(notes).
	NumNotes int
	// NotesOccupied is how many notes of the written value the group
	// spans in time; default 2.
	NotesOccupied int
	// Bracketed defaults to true when any note is unbeamed.
	Bracketed *bool
	// Ratioed shows "n:m"; default true when the counts differ by more
	// than one.
	Ratioed  *bool
	Location TupletLocation
	YOffset  float64
}

// TupletLayout is the computed geometry of a tuplet.
type TupletLayout struct {
	X     float64 `json:"x"`
	Width float64 `json:"width"`
	Y     float64 `json:"y"`

	Glyphs []PlacedGlyph `json:"glyphs"`
	// ColonX is the center of the ratio colon; zero when not ratioed.
	ColonX   float64         `json:"colon_x,omitempty"`
	Brackets []BracketStroke `json:"brackets,omitempty"`
}

// PlacedGlyph is a glyph at a position.
type PlacedGlyph struct {
	Code  string  `json:"code"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Width float64 `json:"width"`
}

// BracketStroke is one straight stroke of a tuplet bracket.
type BracketStroke struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Tuplet scales the duration of its notes by notesOccupied/numNotes and
// draws the ratio above or below them.
type Tuplet struct {
	notes         []*StaveNote
	numNotes      int
	notesOccupied int
	bracketed     bool
	ratioed       bool
	location      TupletLocation
	yOffset       float64

	numeratorGlyphs   []string
	denominatorGlyphs []string

	layout TupletLayout
}

// NewTuplet groups notes into a tuplet and attaches it, scaling each
// note's ticks. Default rests in the group are moved to the lines of the
// surrounding notes.
func NewTuplet(notes []*StaveNote, opts TupletOptions) (*Tuplet, error) {
	if len(notes) == 0 {
		return nil, errors.New(errors.ErrCodeTooFewNotes, "tuplet needs at least one note")
	}
	t := &Tuplet{
		notes:         notes,
		numNotes:      opts.NumNotes,
		notesOccupied: opts.NotesOccupied,
		location:      opts.Location,
		yOffset:       opts.YOffset,
	}
	if t.numNotes == 0 {
		t.numNotes = len(notes)
	}
	if t.notesOccupied == 0 {
		t.notesOccupied = 2
	}
	if t.numNotes < 0 || t.notesOccupied < 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "tuplet ratio %d:%d must be positive", t.numNotes, t.notesOccupied)
	}

	if opts.Bracketed != nil {
		t.bracketed = *opts.Bracketed
	} else {
		t.bracketed = anyUnbeamed(notes)
	}
	if opts.Ratioed != nil {
		t.ratioed = *opts.Ratioed
	} else {
		t.ratioed = DefaultRatioed(t.numNotes, t.notesOccupied)
	}
	if t.location != LocationTop && t.location != LocationBottom {
		t.location = LocationTop
	}

	tickables := make([]Tickable, len(notes))
	for i, n := range notes {
		tickables[i] = n
	}
	AlignRestsToNotes(tickables, true, true)

	t.resolveGlyphs()
	t.Attach()
	return t, nil
}

// DefaultRatioed reports whether a tuplet shows its full ratio by default:
// when the two counts differ by more than one.
func DefaultRatioed(numNotes, notesOccupied int) bool {
	d := notesOccupied - numNotes
	if d < 0 {
		d = -d
	}
	return d > 1
}

func anyUnbeamed(notes []*StaveNote) bool {
	for _, n := range notes {
		if n.Beam() == nil {
			return true
		}
	}
	return false
}

// Notes returns the member notes.
func (t *Tuplet) Notes() []*StaveNote { return t.notes }

// NoteCount is the written note count.
func (t *Tuplet) NoteCount() int { return t.numNotes }

// NotesOccupied is the count of written notes the group spans.
func (t *Tuplet) NotesOccupied() int { return t.notesOccupied }

// Bracketed reports whether a bracket is drawn.
func (t *Tuplet) Bracketed() bool { return t.bracketed }

// SetBracketed overrides bracket drawing.
func (t *Tuplet) SetBracketed(v bool) { t.bracketed = v }

// Ratioed reports whether the full ratio is shown.
func (t *Tuplet) Ratioed() bool { return t.ratioed }

// SetRatioed overrides ratio display.
func (t *Tuplet) SetRatioed(v bool) { t.ratioed = v }

// Location returns the side the tuplet is drawn on.
func (t *Tuplet) Location() TupletLocation { return t.location }

// SetLocation moves the tuplet. Invalid values select the top.
func (t *Tuplet) SetLocation(l TupletLocation) {
	if l != LocationTop && l != LocationBottom {
		l = LocationTop
	}
	t.location = l
}

// Attach applies the tuplet to every note.
func (t *Tuplet) Attach() {
	for _, n := range t.notes {
		n.SetTuplet(t)
	}
}

// Detach removes the tuplet from every note.
func (t *Tuplet) Detach() {
	for _, n := range t.notes {
		n.ResetTuplet(t)
	}
}

// SetNotesOccupied changes the ratio, rescaling the notes.
func (t *Tuplet) SetNotesOccupied(n int) error {
	if n <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "notes occupied must be positive, got %d", n)
	}
	t.Detach()
	t.notesOccupied = n
	t.resolveGlyphs()
	t.Attach()
	return nil
}

// NumeratorGlyphs returns the digit glyphs of the note count.
func (t *Tuplet) NumeratorGlyphs() []string { return t.numeratorGlyphs }

// DenominatorGlyphs returns the digit glyphs of the occupied count.
func (t *Tuplet) DenominatorGlyphs() []string { return t.denominatorGlyphs }

func (t *Tuplet) resolveGlyphs() {
	t.numeratorGlyphs = digitGlyphs(t.numNotes)
	t.denominatorGlyphs = digitGlyphs(t.notesOccupied)
}

func digitGlyphs(n int) []string {
	s := strconv.Itoa(n)
	out := make([]string, len(s))
	for i, r := range s {
		out[i] = "tuplet" + string(r)
	}
	return out
}

// relocate puts the tuplet on the stem side and brackets it when any note
// is unbeamed. Auto-beaming calls it after beams are assigned.
func (t *Tuplet) relocate() {
	if t.notes[0].StemDirection() == StemDown {
		t.location = LocationBottom
	} else {
		t.location = LocationTop
	}
	t.bracketed = anyUnbeamed(t.notes)
}

// NestedTupletCount is the number of same-side tuplets stacked between
// this tuplet and its notes.
func (t *Tuplet) NestedTupletCount() int {
	count := func(n *StaveNote) int {
		c := 0
		for _, s := range n.TupletStack() {
			if s.location == t.location {
				c++
			}
		}
		return c
	}
	lo, hi := count(t.notes[0]), count(t.notes[0])
	for _, n := range t.notes {
		c := count(n)
		lo, hi = min(lo, c), max(hi, c)
	}
	return hi - lo
}

// YPosition returns the y of the bracket line: clear of stems, rest
// positions and stacked text, offset for nested tuplets.
func (t *Tuplet) YPosition(env *Env) (float64, error) {
	env = envOrDefault(env)
	nested := float64(t.NestedTupletCount()) * env.Tuplet.NestingOffset * -float64(t.location)
	first := t.notes[0]
	stave, err := first.Stave()
	if err != nil {
		return 0, err
	}

	var y float64
	if t.location == LocationTop {
		y = stave.YForLine(0) - 15
		for _, n := range t.notes {
			if !n.HasStem() && !n.IsRest() {
				continue
			}
			var textLines float64
			if mc := n.ModifierContext(); mc != nil {
				textLines = mc.State().TopTextLine
			}
			modY, err := n.YForTopText(textLines)
			if err != nil {
				return 0, err
			}
			tip, base, err := n.StemExtents()
			if err != nil {
				return 0, err
			}
			top := base - 20
			if n.StemDirection() == StemUp {
				top = tip - 10
			}
			y = math.Min(y, math.Min(top, modY-15))
		}
	} else {
		lineCheck := 4.0
		for _, n := range t.notes {
			if mc := n.ModifierContext(); mc != nil {
				lineCheck = math.Max(lineCheck, mc.State().TextLine+1)
			}
		}
		y = stave.YForLine(lineCheck) + 15
		for _, n := range t.notes {
			if !n.HasStem() && !n.IsRest() {
				continue
			}
			tip, base, err := n.StemExtents()
			if err != nil {
				return 0, err
			}
			bottom := tip + 10
			if n.StemDirection() == StemUp {
				bottom = base + 20
			}
			y = math.Max(y, bottom)
		}
	}
	return y + nested + t.yOffset, nil
}

// Layout computes the tuplet's span, digits and bracket strokes. The notes
// must be formatted and on a stave.
func (t *Tuplet) Layout(env *Env) (TupletLayout, error) {
	env = envOrDefault(env)
	first, last := t.notes[0], t.notes[len(t.notes)-1]

	var l TupletLayout
	if t.bracketed {
		left, err := first.TieLeftX()
		if err != nil {
			return l, err
		}
		right, err := last.TieRightX()
		if err != nil {
			return l, err
		}
		l.X = left - 5
		l.Width = right - l.X + 5
	} else {
		left, err := first.StemX()
		if err != nil {
			return l, err
		}
		right, err := last.StemX()
		if err != nil {
			return l, err
		}
		l.X = left
		l.Width = right - left
	}

	y, err := t.YPosition(env)
	if err != nil {
		return l, err
	}
	l.Y = y

	point := env.TupletPoint()
	widths := func(codes []string) ([]float64, float64, error) {
		ws := make([]float64, len(codes))
		var total float64
		for i, c := range codes {
			m, err := env.Glyphs.Glyph(c, point)
			if err != nil {
				return nil, 0, err
			}
			ws[i] = m.Width
			total += m.Width
		}
		return ws, total, nil
	}
	numW, total, err := widths(t.numeratorGlyphs)
	if err != nil {
		return l, err
	}
	var denW []float64
	if t.ratioed {
		var denTotal float64
		if denW, denTotal, err = widths(t.denominatorGlyphs); err != nil {
			return l, err
		}
		total += denTotal + point*0.32
	}

	center := l.X + l.Width/2
	start := center - total/2
	glyphY := y + point/3 - 2
	x := start
	for i, c := range t.numeratorGlyphs {
		l.Glyphs = append(l.Glyphs, PlacedGlyph{Code: c, X: x, Y: glyphY, Width: numW[i]})
		x += numW[i]
	}
	if t.ratioed {
		l.ColonX = x + point*0.16
		x += point * 0.32
		for i, c := range t.denominatorGlyphs {
			l.Glyphs = append(l.Glyphs, PlacedGlyph{Code: c, X: x, Y: glyphY, Width: denW[i]})
			x += denW[i]
		}
	}

	if t.bracketed {
		lineWidth := l.Width/2 - total/2 - 5
		if lineWidth > 0 {
			hook := float64(t.location) * 10
			right := l.X + l.Width/2 + total/2 + 5
			l.Brackets = []BracketStroke{
				{X1: l.X, Y1: y, X2: l.X + lineWidth, Y2: y},
				{X1: right, Y1: y, X2: right + lineWidth, Y2: y},
				{X1: l.X, Y1: y, X2: l.X, Y2: y + hook},
				{X1: l.X + l.Width, Y1: y, X2: l.X + l.Width, Y2: y + hook},
			}
		}
	}
	t.layout = l
	return l, nil
}

// LastLayout returns the result of the latest Layout call.
func (t *Tuplet) LastLayout() TupletLayout { return t.layout }
