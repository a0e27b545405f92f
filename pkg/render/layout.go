package render

import (
	"github.com/google/uuid"

	"github.com/matzehuels/engrave/pkg/errors"
	"github.com/matzehuels/engrave/pkg/format"
	"github.com/matzehuels/engrave/pkg/notation"
	"github.com/matzehuels/engrave/pkg/score"
)

// Layout is a formatted score as plain data.
type Layout struct {
	ID     string  `json:"id"`
	Title  string  `json:"title,omitempty"`
	Time   string  `json:"time"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	JustifyWidth  float64   `json:"justify_width"`
	MinTotalWidth float64   `json:"min_total_width"`
	Cost          float64   `json:"cost"`
	Iterations    int       `json:"iterations"`
	LossHistory   []float64 `json:"loss_history,omitempty"`
	Envelope      *Envelope `json:"envelope,omitempty"`

	Staves   []Stave                 `json:"staves"`
	Contexts []Context               `json:"contexts"`
	Notes    []Note                  `json:"notes"`
	Beams    []Beam                  `json:"beams,omitempty"`
	Tuplets  []notation.TupletLayout `json:"tuplets,omitempty"`
}

// Envelope is the range the right edge of the justified line fell in.
type Envelope struct {
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	RightEdge float64 `json:"right_edge"`
}

// Stave is a drawn stave.
type Stave struct {
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	Width      float64   `json:"width"`
	NoteStartX float64   `json:"note_start_x"`
	NoteEndX   float64   `json:"note_end_x"`
	Lines      []float64 `json:"lines"`
}

// Context is one tick context: a column shared by simultaneous notes.
type Context struct {
	Tick      int64   `json:"tick"`
	X         float64 `json:"x"`
	AbsoluteX float64 `json:"absolute_x"`
	Width     float64 `json:"width"`
	Tickables int     `json:"tickables"`
}

// Note is a drawn tickable.
type Note struct {
	Stave    int           `json:"stave"`
	Voice    int           `json:"voice"`
	Index    int           `json:"index"`
	Kind     notation.Kind `json:"kind"`
	Duration string        `json:"duration,omitempty"`
	Dots     int           `json:"dots,omitempty"`
	Tick     string        `json:"tick"`

	X         float64          `json:"x"`
	Width     float64          `json:"width"`
	Metrics   notation.Metrics `json:"metrics"`
	Glyph     string           `json:"glyph,omitempty"`
	Heads     []Head           `json:"heads,omitempty"`
	Stem      *Stem            `json:"stem,omitempty"`
	Flag      string           `json:"flag,omitempty"`
	Modifiers []Modifier       `json:"modifiers,omitempty"`
	// Top and Bottom bound bar lines.
	Top    float64 `json:"top,omitempty"`
	Bottom float64 `json:"bottom,omitempty"`
}

// Head is one notehead.
type Head struct {
	Line  float64 `json:"line"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Width float64 `json:"width"`
}

// Stem is a drawn stem from Y1 (at the heads) to Y2 (the tip).
type Stem struct {
	X         float64 `json:"x"`
	Y1        float64 `json:"y1"`
	Y2        float64 `json:"y2"`
	Direction int     `json:"direction"`
}

// Modifier is a placed accidental, dot or annotation.
type Modifier struct {
	Category string  `json:"category"`
	Glyph    string  `json:"glyph,omitempty"`
	Text     string  `json:"text,omitempty"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
}

// Beam is a drawn beam.
type Beam struct {
	Voice     int                    `json:"voice"`
	Direction int                    `json:"direction"`
	Slope     float64                `json:"slope"`
	Segments  []notation.BeamSegment `json:"segments"`
}

// Build formats beams and tuplets and captures the result. f must have
// finished formatting sc's voices, including post-format.
func Build(sc *score.Score, f *format.Formatter, env *notation.Env) (*Layout, error) {
	if sc == nil || f == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "build needs a score and a formatter")
	}
	minWidth, err := f.MinTotalWidth()
	if err != nil {
		return nil, err
	}
	l := &Layout{
		ID:            uuid.NewString(),
		Title:         sc.Doc.Title,
		Time:          sc.Doc.Time,
		Width:         sc.Width(),
		Height:        sc.Height(),
		JustifyWidth:  f.JustifyWidth(),
		MinTotalWidth: minWidth,
		Cost:          f.TotalCost(),
		Iterations:    f.Iterations(),
		LossHistory:   append([]float64(nil), f.LossHistory()...),
	}
	if e, err := f.JustifyEnvelope(); err == nil {
		edge, err := f.RightEdge()
		if err != nil {
			return nil, err
		}
		l.Envelope = &Envelope{Min: e.Min, Max: e.Max, RightEdge: edge}
	}

	for _, s := range sc.Staves {
		st := Stave{X: s.X, Y: s.Y, Width: s.Width, NoteStartX: s.NoteStartX(), NoteEndX: s.NoteEndX()}
		for i := 0; i < s.NumLines; i++ {
			st.Lines = append(st.Lines, s.YForLine(float64(i)))
		}
		l.Staves = append(l.Staves, st)
	}

	// Contexts are shared by every stave; absolute positions use the first.
	var startX float64
	if len(sc.Staves) > 0 {
		startX = sc.Staves[0].NoteStartX() + sc.Staves[0].Padding
	}
	for _, tc := range f.TickContexts() {
		w, err := tc.Width()
		if err != nil {
			return nil, err
		}
		l.Contexts = append(l.Contexts, Context{
			Tick:      tc.TickID(),
			X:         tc.X(),
			AbsoluteX: startX + tc.X(),
			Width:     w,
			Tickables: len(tc.Tickables()),
		})
	}

	// Beams adjust stems, so they are formatted before notes are read.
	voiceOf := make(map[*notation.Voice]int, len(sc.Voices))
	for i, v := range sc.Voices {
		voiceOf[v] = i
	}
	for _, b := range sc.Beams {
		segs, err := b.PostFormat(env)
		if err != nil {
			return nil, err
		}
		voice := -1
		if v, err := b.Notes()[0].Voice(); err == nil {
			voice = voiceOf[v]
		}
		l.Beams = append(l.Beams, Beam{Voice: voice, Direction: b.StemDirection(), Slope: b.Slope(), Segments: segs})
	}

	for vi, v := range sc.Voices {
		stave := sc.Staves[sc.VoiceStave[vi]]
		for i, t := range v.Tickables() {
			n, err := buildNote(t, stave, env)
			if err != nil {
				return nil, err
			}
			n.Stave, n.Voice, n.Index = sc.VoiceStave[vi], vi, i
			l.Notes = append(l.Notes, n)
		}
	}

	for _, tu := range sc.Tuplets {
		tl, err := tu.Layout(env)
		if err != nil {
			return nil, err
		}
		l.Tuplets = append(l.Tuplets, tl)
	}
	return l, nil
}

func buildNote(t notation.Tickable, stave *notation.Stave, env *notation.Env) (Note, error) {
	x, err := t.AbsoluteX()
	if err != nil {
		return Note{}, err
	}
	m, err := t.Metrics()
	if err != nil {
		return Note{}, err
	}
	n := Note{
		Kind:     t.Kind(),
		Duration: t.Duration(),
		Tick:     t.Ticks().String(),
		X:        x,
		Width:    m.Width,
		Metrics:  m,
	}

	sn, ok := t.(*notation.StaveNote)
	if !ok {
		if t.Kind() == notation.KindBar {
			n.Top, n.Bottom = stave.YForLine(0), stave.YForLine(float64(stave.NumLines-1))
		}
		return n, nil
	}

	n.Dots = sn.Dots()
	n.Glyph = sn.GlyphCode()
	ys, err := sn.Ys()
	if err != nil {
		return Note{}, err
	}
	displaced := sn.Displaced()
	for i, line := range sn.Lines() {
		hx := x
		if i < len(displaced) && displaced[i] {
			hx += m.GlyphWidth * float64(sn.StemDirection())
		}
		n.Heads = append(n.Heads, Head{Line: line, X: hx, Y: ys[i], Width: m.GlyphWidth})
	}

	if sn.HasStem() || sn.Stem().Stemlet {
		sx, err := sn.StemX()
		if err != nil {
			return Note{}, err
		}
		tip, base, err := sn.StemExtents()
		if err != nil {
			return Note{}, err
		}
		y1 := base
		if sn.Stem().Stemlet {
			y1 = tip + sn.Stem().StemletHeight*float64(sn.StemDirection())
		}
		n.Stem = &Stem{X: sx, Y1: y1, Y2: tip, Direction: sn.StemDirection()}
		n.Flag = sn.FlagCode()
	}

	for _, mod := range sn.Modifiers() {
		pm, err := placeModifier(mod, sn, x, m, stave, env)
		if err != nil {
			return Note{}, err
		}
		n.Modifiers = append(n.Modifiers, pm)
	}
	return n, nil
}

func placeModifier(mod notation.Modifier, n *notation.StaveNote, x float64, m notation.Metrics, stave *notation.Stave, env *notation.Env) (Modifier, error) {
	line := n.KeyLine(mod.Index())
	pm := Modifier{Category: mod.Category(), Width: mod.Width(), Y: stave.YForNote(line)}
	switch mod := mod.(type) {
	case *notation.Accidental:
		pm.Glyph = mod.GlyphCode()
		pm.X = x - m.LeftDisplacedHeadPx - mod.XShift()
	case *notation.Dot:
		pm.Glyph = "augmentationDot"
		pm.X = x + m.GlyphWidth + m.RightDisplacedHeadPx + mod.XShift() + env.DotSpacing
		pm.Y = stave.YForNote(line + mod.YShift)
	case *notation.Annotation:
		pm.Text = mod.Text
		switch mod.Justify {
		case notation.JustifyLeft:
			pm.X = x
		case notation.JustifyRight:
			pm.X = x + m.GlyphWidth - mod.Width()
		default:
			pm.X = x + m.GlyphWidth/2 - mod.Width()/2
		}
		if mod.Position == notation.PositionBelow {
			pm.Y = stave.YForBottomText(mod.TextLine + 1)
		} else {
			pm.Y = stave.YForTopText(mod.TextLine)
		}
	default:
		return pm, errors.New(errors.ErrCodeUnsupported, "cannot place %s modifier", mod.Category())
	}
	return pm, nil
}
