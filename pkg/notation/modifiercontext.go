package notation

import (
	"math"
	"slices"
	"sort"
)

// ModifierState is the running layout state of a modifier context.
type ModifierState struct {
	LeftShift   float64 `json:"left_shift"`
	RightShift  float64 `json:"right_shift"`
	TextLine    float64 `json:"text_line"`
	TopTextLine float64 `json:"top_text_line"`
}

// ModifierContext resolves collisions between the notes of one stave at
// one instant and lays out their accidentals, dots and annotations.
type ModifierContext struct {
	notes       []*StaveNote
	dots        []*Dot
	accidentals []*Accidental
	annotations []*Annotation

	state         ModifierState
	width         float64
	preFormatted  bool
	postFormatted bool
}

// NewModifierContext returns an empty context.
func NewModifierContext() *ModifierContext {
	return &ModifierContext{}
}

func (mc *ModifierContext) addNote(n *StaveNote) {
	mc.notes = append(mc.notes, n)
	mc.preFormatted = false
}

func (mc *ModifierContext) addModifier(m Modifier) {
	switch m := m.(type) {
	case *Dot:
		mc.dots = append(mc.dots, m)
	case *Accidental:
		mc.accidentals = append(mc.accidentals, m)
	case *Annotation:
		mc.annotations = append(mc.annotations, m)
	}
	mc.preFormatted = false
}

// Notes returns the member notes.
func (mc *ModifierContext) Notes() []*StaveNote { return mc.notes }

// State returns the layout state after PreFormat.
func (mc *ModifierContext) State() ModifierState { return mc.state }

// Width is the total modifier width, left plus right.
func (mc *ModifierContext) Width() float64 { return mc.width }

// PreFormat lays out all members once.
func (mc *ModifierContext) PreFormat(env *Env) error {
	if mc.preFormatted {
		return nil
	}
	env = envOrDefault(env)
	mc.state = ModifierState{}
	for _, n := range mc.notes {
		if err := n.measure(env); err != nil {
			return err
		}
	}
	mc.formatNotes()
	if err := mc.formatDots(env); err != nil {
		return err
	}
	if err := mc.formatAccidentals(env); err != nil {
		return err
	}
	if err := mc.formatAnnotations(env); err != nil {
		return err
	}
	mc.width = mc.state.LeftShift + mc.state.RightShift
	mc.preFormatted = true
	return nil
}

// PostFormat finalizes member notes.
func (mc *ModifierContext) PostFormat() error {
	if mc.postFormatted {
		return nil
	}
	for _, n := range mc.notes {
		if n.preFormatted {
			if err := n.PostFormat(); err != nil {
				return err
			}
		}
	}
	mc.postFormatted = true
	return nil
}

// formatNotes shifts a lower voice right when its heads reach into the
// range of the voice above.
func (mc *ModifierContext) formatNotes() {
	if len(mc.notes) < 2 {
		return
	}
	sorted := slices.Clone(mc.notes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].maxLine() > sorted[j].maxLine()
	})
	for _, n := range sorted {
		n.xShift = 0
	}
	var maxShift float64
	for i := 1; i < len(sorted); i++ {
		upper, lower := sorted[i-1], sorted[i]
		if upper.minLine() > lower.maxLine()+0.5 {
			continue
		}
		shift := upper.xShift + math.Max(upper.glyphWidth, lower.glyphWidth) + 3
		lower.xShift = shift
		maxShift = math.Max(maxShift, shift)
	}
	mc.state.RightShift += maxShift
}

// formatDots places dots right of the heads, one column per head line,
// moving dots on lines into the space above or below.
func (mc *ModifierContext) formatDots(env *Env) error {
	if len(mc.dots) == 0 {
		return nil
	}
	type entry struct {
		dot  *Dot
		note *StaveNote
		line float64
	}
	entries := make([]entry, 0, len(mc.dots))
	maxShift := make(map[*StaveNote]float64)
	for _, d := range mc.dots {
		n := d.note
		entries = append(entries, entry{dot: d, note: n, line: n.lines[d.index]})
		maxShift[n] = math.Max(maxShift[n], n.rightDisplacedHeadPx)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].line > entries[j].line })

	m, err := env.Glyph("augmentationDot")
	if err != nil {
		return err
	}

	var (
		dotShift, xWidth float64
		lastLine         = math.NaN()
		lastNote         *StaveNote
		prevDotted       = math.NaN()
		halfShift        float64
	)
	for _, e := range entries {
		if e.line != lastLine || e.note != lastNote {
			dotShift = maxShift[e.note]
		}
		if !e.note.rest && e.line != lastLine {
			if math.Abs(math.Mod(e.line, 1)) == 0.5 {
				halfShift = 0
			} else {
				halfShift = 0.5
				if lastNote != nil && !lastNote.rest && lastLine-e.line == 0.5 {
					halfShift = -0.5
				} else if e.line+halfShift == prevDotted {
					halfShift = -0.5
				}
			}
		}
		e.dot.YShift = halfShift
		prevDotted = e.line + halfShift
		e.dot.width = m.Width
		e.dot.xShift = dotShift
		dotShift += m.Width + env.DotSpacing
		xWidth = math.Max(xWidth, dotShift)
		lastLine, lastNote = e.line, e.note
	}
	mc.state.RightShift += xWidth
	return nil
}

// formatAccidentals stacks accidentals into columns left of the heads. An
// accidental joins the nearest column whose lowest accidental is at least
// three lines above it; otherwise it opens a new column further left.
func (mc *ModifierContext) formatAccidentals(env *Env) error {
	if len(mc.accidentals) == 0 {
		return nil
	}
	accs := slices.Clone(mc.accidentals)
	sort.SliceStable(accs, func(i, j int) bool {
		return accs[i].note.lines[accs[i].index] > accs[j].note.lines[accs[j].index]
	})

	var displaced float64
	for _, n := range mc.notes {
		displaced = math.Max(displaced, n.leftDisplacedHeadPx)
	}

	var (
		lastLine []float64
		colWidth []float64
		column   = make([]int, len(accs))
	)
	for i, a := range accs {
		m, err := env.Glyph(a.code)
		if err != nil {
			return err
		}
		a.width = m.Width
		line := a.note.lines[a.index]
		c := slices.IndexFunc(lastLine, func(l float64) bool { return l-line >= 3 })
		if c < 0 {
			lastLine = append(lastLine, line)
			colWidth = append(colWidth, a.width)
			c = len(lastLine) - 1
		} else {
			lastLine[c] = line
			colWidth[c] = math.Max(colWidth[c], a.width)
		}
		column[i] = c
	}

	offsets := make([]float64, len(colWidth))
	total := mc.state.LeftShift + displaced + env.AccidentalPadding
	for c, w := range colWidth {
		if c > 0 {
			total += env.AccidentalSpacing
		}
		total += w
		offsets[c] = total
	}
	for i, a := range accs {
		a.xShift = offsets[column[i]]
	}
	mc.state.LeftShift = total - displaced
	return nil
}

// formatAnnotations stacks annotations into text lines and widens the
// context where text overhangs the heads.
func (mc *ModifierContext) formatAnnotations(env *Env) error {
	if len(mc.annotations) == 0 {
		return nil
	}
	var leftWidth, rightWidth, maxLeftGlyph, maxRightGlyph float64
	for _, a := range mc.annotations {
		m, err := env.Text(a.Text)
		if err != nil {
			return err
		}
		a.width = m.Width
		lines := (2 + m.Height) / env.LineSpacing
		glyphWidth := a.note.glyphWidth

		switch a.Justify {
		case JustifyLeft:
			maxLeftGlyph = math.Max(maxLeftGlyph, glyphWidth)
			rightWidth = math.Max(rightWidth, m.Width)
		case JustifyRight:
			maxRightGlyph = math.Max(maxRightGlyph, glyphWidth)
			leftWidth = math.Max(leftWidth, m.Width)
		default:
			leftWidth = math.Max(leftWidth, m.Width/2)
			rightWidth = math.Max(rightWidth, m.Width/2)
			maxLeftGlyph = math.Max(maxLeftGlyph, glyphWidth/2)
			maxRightGlyph = math.Max(maxRightGlyph, glyphWidth/2)
		}

		if a.Position == PositionBelow {
			a.TextLine = mc.state.TextLine
			mc.state.TextLine += lines
		} else {
			a.TextLine = mc.state.TopTextLine
			mc.state.TopTextLine += lines
		}
	}
	rightOverlap := math.Min(math.Max(rightWidth-maxRightGlyph, 0), math.Max(rightWidth-mc.state.RightShift, 0))
	leftOverlap := math.Min(math.Max(leftWidth-maxLeftGlyph, 0), math.Max(leftWidth-mc.state.LeftShift, 0))
	mc.state.LeftShift += leftOverlap
	mc.state.RightShift += rightOverlap
	return nil
}
