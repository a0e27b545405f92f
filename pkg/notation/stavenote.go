package notation

import (
	"math"
	"slices"

	"github.com/matzehuels/engrave/pkg/errors"
)

// NoteStruct describes a note or rest to construct.
type NoteStruct struct {
	Duration string
	Dots     int
	// Lines are notehead positions counted from the bottom staff line (1)
	// in half steps; 3 is the middle line. A rest takes its first line, or
	// the middle line when none is given.
	Lines []float64
	Rest  bool
	// StemDirection is StemUp, StemDown, or 0 to choose from the lines.
	StemDirection int
}

// StaveNote is a note or a rest drawn on a stave.
type StaveNote struct {
	tickable

	duration       string
	dots           int
	props          durationProps
	lines          []float64
	rest           bool
	restPositioned bool

	stemDirection int
	stem          Stem
	beam          *Beam

	displaced []bool
	modifiers []Modifier
}

// NewStaveNote validates ns and builds the note.
func NewStaveNote(ns NoteStruct) (*StaveNote, error) {
	d, err := SanitizeDuration(ns.Duration)
	if err != nil {
		return nil, err
	}
	ticks, err := DottedTicks(d, ns.Dots)
	if err != nil {
		return nil, err
	}

	n := &StaveNote{
		tickable: newTickable(ticks),
		duration: d,
		dots:     ns.Dots,
		props:    durations[d],
		rest:     ns.Rest,
	}

	switch {
	case len(ns.Lines) > 0:
		n.lines = slices.Clone(ns.Lines)
		slices.Sort(n.lines)
		n.restPositioned = ns.Rest && n.lines[0] != 3
	case ns.Rest:
		n.lines = []float64{3}
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "note needs at least one line")
	}
	if n.rest {
		n.lines = n.lines[:1]
	}

	switch ns.StemDirection {
	case StemUp, StemDown:
		n.stemDirection = ns.StemDirection
	case 0:
		n.stemDirection = n.optimalStemDirection()
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "invalid stem direction %d", ns.StemDirection)
	}
	n.stem = Stem{Direction: n.stemDirection, Extension: n.props.stemExtension, Hidden: !n.HasStem()}
	n.calculateDisplacement()

	for i := 0; i < ns.Dots; i++ {
		for idx := range n.lines {
			if err := n.AddModifier(NewDot(), idx); err != nil {
				return nil, err
			}
		}
	}
	return n, nil
}

// Kind reports KindRest for rests and KindNote otherwise.
func (n *StaveNote) Kind() Kind {
	if n.rest {
		return KindRest
	}
	return KindNote
}

// Duration returns the sanitized duration string.
func (n *StaveNote) Duration() string { return n.duration }

// Dots returns the number of augmentation dots.
func (n *StaveNote) Dots() int { return n.dots }

// IsRest reports whether the note is a rest.
func (n *StaveNote) IsRest() bool { return n.rest }

// Lines returns the notehead lines, lowest first.
func (n *StaveNote) Lines() []float64 { return n.lines }

// KeyLine returns the line of the ith head.
func (n *StaveNote) KeyLine(i int) float64 { return n.lines[i] }

// SetKeyLine moves the ith head.
func (n *StaveNote) SetKeyLine(i int, line float64) {
	n.lines[i] = line
	n.calculateDisplacement()
	n.preFormatted = false
}

// RestPositioned reports whether a rest was placed explicitly and must not
// be realigned.
func (n *StaveNote) RestPositioned() bool { return n.restPositioned }

func (n *StaveNote) minLine() float64 { return n.lines[0] }
func (n *StaveNote) maxLine() float64 { return n.lines[len(n.lines)-1] }

func (n *StaveNote) optimalStemDirection() int {
	if (n.minLine()+n.maxLine())/2 < 3 {
		return StemUp
	}
	return StemDown
}

// LineForRest returns the line a rest next to this note should sit on: the
// head line, or the midpoint of a chord.
func (n *StaveNote) LineForRest() float64 {
	if len(n.lines) == 1 {
		return n.lines[0]
	}
	return midLine(n.maxLine(), n.minLine())
}

// midLine returns the line halfway between top and bottom, snapped down to
// a whole line.
func midLine(top, bottom float64) float64 {
	mid := bottom + (top-bottom)/2
	if math.Mod(mid, 2) > 0 {
		mid -= 0.5
	}
	return mid
}

// StemDirection returns StemUp or StemDown.
func (n *StaveNote) StemDirection() int { return n.stemDirection }

// SetStemDirection changes the stem direction.
func (n *StaveNote) SetStemDirection(dir int) error {
	if dir != StemUp && dir != StemDown {
		return errors.New(errors.ErrCodeInvalidInput, "invalid stem direction %d", dir)
	}
	n.stemDirection = dir
	n.stem.Direction = dir
	n.calculateDisplacement()
	n.preFormatted = false
	return nil
}

// HasStem reports whether the duration is drawn with a stem.
func (n *StaveNote) HasStem() bool { return n.props.stem && !n.rest }

// HasFlag reports whether the note draws its own flag, which it does not
// when beamed.
func (n *StaveNote) HasFlag() bool { return n.props.flagUp != "" && !n.rest && n.beam == nil }

// BeamCount is the number of beams or flags the duration carries.
func (n *StaveNote) BeamCount() int { return n.props.beamCount }

// Beam returns the beam the note belongs to, or nil.
func (n *StaveNote) Beam() *Beam { return n.beam }

func (n *StaveNote) setBeam(b *Beam) {
	n.beam = b
	n.calculateDisplacement()
	n.preFormatted = false
}

// Stem returns the note's stem.
func (n *StaveNote) Stem() *Stem { return &n.stem }

// GlyphCode returns the notehead or rest glyph.
func (n *StaveNote) GlyphCode() string {
	if n.rest {
		return n.props.rest
	}
	return n.props.head
}

// FlagCode returns the flag glyph for the current stem direction, or "".
func (n *StaveNote) FlagCode() string {
	if !n.HasFlag() {
		return ""
	}
	if n.stemDirection == StemUp {
		return n.props.flagUp
	}
	return n.props.flagDown
}

// Displaced reports which heads sit on the opposite side of the stem.
func (n *StaveNote) Displaced() []bool { return n.displaced }

// calculateDisplacement flags heads a second apart so they alternate sides
// of the stem.
func (n *StaveNote) calculateDisplacement() {
	n.displaced = make([]bool, len(n.lines))
	displaced := false
	for i := 1; i < len(n.lines); i++ {
		diff := math.Abs(n.lines[i] - n.lines[i-1])
		if diff == 0 || diff == 0.5 {
			displaced = !displaced
		} else {
			displaced = false
		}
		n.displaced[i] = displaced
	}
}

func (n *StaveNote) anyDisplaced() bool {
	return slices.Contains(n.displaced, true)
}

// measure resolves glyph widths and displaced-head offsets. It runs before
// the modifier context formats, since dots and accidentals depend on it.
func (n *StaveNote) measure(env *Env) error {
	m, err := env.Glyph(n.GlyphCode())
	if err != nil {
		return err
	}
	n.glyphWidth = m.Width
	n.leftDisplacedHeadPx, n.rightDisplacedHeadPx = 0, 0
	if n.anyDisplaced() {
		if n.stemDirection == StemDown {
			n.leftDisplacedHeadPx = n.glyphWidth
		} else if !n.HasFlag() {
			n.rightDisplacedHeadPx = n.glyphWidth
		}
	}
	return nil
}

// PreFormat computes the note's width. It is idempotent until the note is
// changed.
func (n *StaveNote) PreFormat(env *Env) error {
	if n.preFormatted {
		return nil
	}
	env = envOrDefault(env)
	if err := n.measure(env); err != nil {
		return err
	}
	if mc := n.modifierContext; mc != nil {
		if err := mc.PreFormat(env); err != nil {
			return err
		}
	}

	width := n.glyphWidth + n.leftDisplacedHeadPx + n.rightDisplacedHeadPx
	if n.modifierContext == nil || n.modifierContext.Width() == 0 {
		width += env.NoteHeadPadding
	}
	if n.HasFlag() && n.stemDirection == StemUp {
		flag, err := env.Glyph(n.props.flagUp)
		if err != nil {
			return err
		}
		width += flag.Width
	}
	n.width = width
	n.preFormatted = true
	return nil
}

// AddToModifierContext registers the note and its modifiers with mc.
func (n *StaveNote) AddToModifierContext(mc *ModifierContext) {
	n.tickable.AddToModifierContext(mc)
	mc.addNote(n)
	for _, m := range n.modifiers {
		mc.addModifier(m)
	}
}

// AddModifier attaches m to the head at index.
func (n *StaveNote) AddModifier(m Modifier, index int) error {
	if index < 0 || index >= len(n.lines) {
		return errors.New(errors.ErrCodeInvalidInput, "modifier index %d out of range for %d heads", index, len(n.lines))
	}
	m.attach(n, index)
	n.modifiers = append(n.modifiers, m)
	if n.modifierContext != nil {
		n.modifierContext.addModifier(m)
	}
	n.preFormatted = false
	return nil
}

// Modifiers returns the attached modifiers.
func (n *StaveNote) Modifiers() []Modifier { return n.modifiers }

// Ys returns the y of each head. It requires a stave.
func (n *StaveNote) Ys() ([]float64, error) {
	s, err := n.Stave()
	if err != nil {
		return nil, err
	}
	ys := make([]float64, len(n.lines))
	for i, l := range n.lines {
		ys[i] = s.YForNote(l)
	}
	return ys, nil
}

// StemX returns the x of the stem: the right edge of the head for up
// stems, the left edge for down stems.
func (n *StaveNote) StemX() (float64, error) {
	if !n.preFormatted {
		return 0, errors.New(errors.ErrCodeUnformatted, "stem x queried before pre-format")
	}
	x, err := n.AbsoluteX()
	if err != nil {
		return 0, err
	}
	if n.stemDirection == StemUp {
		return x + n.glyphWidth, nil
	}
	return x, nil
}

// StemExtents returns the stem tip y and the outermost head y, updating
// the stem's vertical bounds from the stave.
func (n *StaveNote) StemExtents() (tip, base float64, err error) {
	ys, err := n.Ys()
	if err != nil {
		return 0, 0, err
	}
	n.stem.YTop, n.stem.YBottom = slices.Min(ys), slices.Max(ys)
	tip, base = n.stem.Extents()
	return tip, base, nil
}

// TieLeftX is the left edge of the heads.
func (n *StaveNote) TieLeftX() (float64, error) {
	x, err := n.AbsoluteX()
	if err != nil {
		return 0, err
	}
	return x - n.leftDisplacedHeadPx, nil
}

// TieRightX is the right edge of the heads.
func (n *StaveNote) TieRightX() (float64, error) {
	x, err := n.AbsoluteX()
	if err != nil {
		return 0, err
	}
	return x + n.glyphWidth + n.rightDisplacedHeadPx, nil
}

// YForTopText returns the baseline of the given text line above the stave.
func (n *StaveNote) YForTopText(lines float64) (float64, error) {
	s, err := n.Stave()
	if err != nil {
		return 0, err
	}
	return s.YForTopText(lines), nil
}
