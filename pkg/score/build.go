package score

import (
	"fmt"

	"github.com/matzehuels/engrave/pkg/errors"
	"github.com/matzehuels/engrave/pkg/fraction"
	"github.com/matzehuels/engrave/pkg/notation"
)

// Layout geometry of built staves.
const (
	MarginX      = 10
	MarginY      = 10
	StaveSpacing = 120
)

// Score is a built document: notation objects ready for formatting.
type Score struct {
	Doc     *Document
	Staves  []*notation.Stave
	Voices  []*notation.Voice
	Beams   []*notation.Beam
	Tuplets []*notation.Tuplet
	// VoiceStave maps each voice to the index of its stave.
	VoiceStave []int
}

// Height is the vertical extent of all staves plus margins.
func (s *Score) Height() float64 {
	return 2*MarginY + float64(len(s.Staves))*StaveSpacing
}

// Width is the stave width plus margins.
func (s *Score) Width() float64 {
	return 2*MarginX + s.Doc.StaveWidth()
}

// Build creates staves, voices, beams and tuplets for the document. The
// result is independent of any earlier build.
func (d *Document) Build(env *notation.Env) (*Score, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	tm, err := notation.ParseTime(d.Time)
	if err != nil {
		return nil, err
	}

	sc := &Score{Doc: d}
	for si, sd := range d.Staves {
		stave := notation.NewStave(MarginX, MarginY+float64(si)*StaveSpacing, d.StaveWidth(), env)
		stave.StartWidth = sd.StartWidth
		stave.EndWidth = sd.EndWidth
		sc.Staves = append(sc.Staves, stave)

		for vi, vd := range sd.Voices {
			v, beams, tuplets, err := buildVoice(vd, tm, d.Time)
			if err != nil {
				return nil, fmt.Errorf("stave %d voice %d: %w", si, vi, err)
			}
			v.SetStave(stave)
			if err := v.PreFormat(); err != nil {
				return nil, err
			}
			sc.Voices = append(sc.Voices, v)
			sc.VoiceStave = append(sc.VoiceStave, si)
			sc.Beams = append(sc.Beams, beams...)
			sc.Tuplets = append(sc.Tuplets, tuplets...)
		}
	}
	return sc, nil
}

func buildVoice(vd Voice, tm notation.Time, timeSig string) (*notation.Voice, []*notation.Beam, []*notation.Tuplet, error) {
	mode, err := notation.ParseMode(vd.Mode)
	if err != nil {
		return nil, nil, nil, err
	}
	v, err := notation.NewVoice(tm)
	if err != nil {
		return nil, nil, nil, err
	}
	v.SetMode(mode)

	tickables := make([]notation.Tickable, len(vd.Notes))
	for i, nd := range vd.Notes {
		t, err := buildNote(nd)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("note %d: %w", i, err)
		}
		tickables[i] = t
	}
	staveNote := func(kind string, i int) (*notation.StaveNote, error) {
		n, ok := tickables[i].(*notation.StaveNote)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "%s member %d is not a note or rest", kind, i)
		}
		return n, nil
	}

	// Tuplets scale ticks, so they attach before the voice counts them.
	var tuplets []*notation.Tuplet
	for i, td := range vd.Tuplets {
		notes := make([]*notation.StaveNote, 0, len(td.Notes))
		for _, idx := range td.Notes {
			n, err := staveNote("tuplet", idx)
			if err != nil {
				return nil, nil, nil, err
			}
			notes = append(notes, n)
		}
		loc, err := parseLocation(td.Location)
		if err != nil {
			return nil, nil, nil, err
		}
		tu, err := notation.NewTuplet(notes, notation.TupletOptions{
			NumNotes:      td.Num,
			NotesOccupied: td.Occupied,
			Bracketed:     td.Bracketed,
			Ratioed:       td.Ratioed,
			Location:      loc,
			YOffset:       td.YOffset,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("tuplet %d: %w", i, err)
		}
		tuplets = append(tuplets, tu)
	}

	if err := v.AddTickables(tickables...); err != nil {
		return nil, nil, nil, err
	}

	var beams []*notation.Beam
	for i, idx := range vd.Beams {
		notes := make([]*notation.StaveNote, 0, len(idx))
		for _, j := range idx {
			n, err := staveNote("beam", j)
			if err != nil {
				return nil, nil, nil, err
			}
			notes = append(notes, n)
		}
		b, err := notation.NewBeam(notes, true)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("beam %d: %w", i, err)
		}
		beams = append(beams, b)
	}
	if ab := vd.AutoBeam; ab != nil {
		cfg, err := ab.config(timeSig)
		if err != nil {
			return nil, nil, nil, err
		}
		candidates, err := unbeamed(tickables)
		if err != nil {
			return nil, nil, nil, err
		}
		auto, err := notation.GenerateBeams(candidates, cfg)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("auto beam: %w", err)
		}
		beams = append(beams, auto...)
	}

	// Explicit settings win over what beaming decided.
	for i, tu := range tuplets {
		td := vd.Tuplets[i]
		if td.Bracketed == nil {
			tu.SetBracketed(anyUnbeamed(tu.Notes()))
		}
		if td.Location != "" {
			loc, _ := parseLocation(td.Location)
			tu.SetLocation(loc)
		}
	}
	return v, beams, tuplets, nil
}

// unbeamed hides explicitly beamed notes from auto-beaming behind ghost
// notes of the same length, so beat groups stay aligned.
func unbeamed(ts []notation.Tickable) ([]notation.Tickable, error) {
	out := make([]notation.Tickable, 0, len(ts))
	for _, t := range ts {
		if n, ok := t.(*notation.StaveNote); ok && n.Beam() != nil {
			g, err := notation.NewGhostNote(n.Duration(), 0)
			if err != nil {
				return nil, err
			}
			g.SetIntrinsicTicks(n.Ticks())
			out = append(out, g)
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func anyUnbeamed(notes []*notation.StaveNote) bool {
	for _, n := range notes {
		if n.Beam() == nil {
			return true
		}
	}
	return false
}

func buildNote(nd Note) (notation.Tickable, error) {
	switch {
	case nd.Bar:
		return notation.NewBarNote(), nil
	case nd.Ghost:
		return notation.NewGhostNote(nd.Duration, nd.Dots)
	}
	stem, err := parseStem(nd.Stem)
	if err != nil {
		return nil, err
	}
	n, err := notation.NewStaveNote(notation.NoteStruct{
		Duration:      nd.Duration,
		Dots:          nd.Dots,
		Lines:         nd.Lines,
		Rest:          nd.Rest,
		StemDirection: stem,
	})
	if err != nil {
		return nil, err
	}
	for _, ad := range nd.Accidentals {
		a, err := notation.NewAccidental(ad.Type)
		if err != nil {
			return nil, err
		}
		if err := n.AddModifier(a, ad.Index); err != nil {
			return nil, err
		}
	}
	for _, ad := range nd.Annotations {
		a := notation.NewAnnotation(ad.Text)
		switch ad.Position {
		case "", "above":
			a.Position = notation.PositionAbove
		case "below":
			a.Position = notation.PositionBelow
		default:
			return nil, errors.New(errors.ErrCodeInvalidInput, "unknown annotation position %q", ad.Position)
		}
		switch ad.Justify {
		case "", "center":
			a.Justify = notation.JustifyCenter
		case "left":
			a.Justify = notation.JustifyLeft
		case "right":
			a.Justify = notation.JustifyRight
		default:
			return nil, errors.New(errors.ErrCodeInvalidInput, "unknown annotation justification %q", ad.Justify)
		}
		if err := n.AddModifier(a, 0); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func (ab *AutoBeam) config(timeSig string) (notation.BeamConfig, error) {
	cfg := notation.BeamConfig{
		MaintainStemDirections: ab.MaintainStems,
		BeamRests:              ab.BeamRests,
		BeamMiddleOnly:         ab.BeamMiddleOnly,
		ShowStemlets:           ab.ShowStemlets,
		SecondaryBreaks:        ab.SecondaryBreaks,
		FlatBeams:              ab.Flat,
		FlatBeamOffset:         ab.FlatOffset,
	}
	stem, err := parseStem(ab.Stem)
	if err != nil {
		return cfg, err
	}
	cfg.StemDirection = stem
	if len(ab.Groups) == 0 {
		cfg.Groups = notation.DefaultBeamGroups(timeSig)
		return cfg, nil
	}
	for _, g := range ab.Groups {
		f, err := fraction.Parse(g)
		if err != nil {
			return cfg, err
		}
		cfg.Groups = append(cfg.Groups, f)
	}
	return cfg, nil
}

func parseStem(s string) (int, error) {
	switch s {
	case "", "auto":
		return 0, nil
	case "up":
		return notation.StemUp, nil
	case "down":
		return notation.StemDown, nil
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown stem direction %q", s)
}

func parseLocation(s string) (notation.TupletLocation, error) {
	switch s {
	case "", "top":
		return notation.LocationTop, nil
	case "bottom":
		return notation.LocationBottom, nil
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown tuplet location %q", s)
}
