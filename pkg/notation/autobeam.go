package notation

import (
	"strconv"
	"strings"

	"github.com/matzehuels/engrave/pkg/fraction"
)

// BeamConfig controls automatic beaming.
type BeamConfig struct {
	// Groups are beat groupings as fractions of a whole note, cycled
	// through the voice. Empty means 2/8.
	Groups []fraction.Fraction
	// StemDirection forces a direction; 0 votes per group.
	StemDirection          int
	MaintainStemDirections bool
	BeamRests              bool
	BeamMiddleOnly         bool
	ShowStemlets           bool
	// SecondaryBreaks is a duration ("8") after which secondary beams
	// break.
	SecondaryBreaks string
	FlatBeams       bool
	FlatBeamOffset  float64
}

var defaultBeamGroups = map[string][]string{
	"1/2": {"1/2"}, "2/2": {"1/2"}, "3/2": {"1/2"}, "4/2": {"1/2"},
	"1/4": {"1/4"}, "2/4": {"1/4"}, "3/4": {"1/4"}, "4/4": {"1/4"},
	"1/8": {"1/8"}, "2/8": {"2/8"}, "3/8": {"3/8"}, "4/8": {"2/8"},
	"1/16": {"1/16"}, "2/16": {"2/16"}, "3/16": {"3/16"}, "4/16": {"2/16"},
}

// DefaultBeamGroups returns conventional beat groupings for a time
// signature. Unlisted compound meters group in threes; others group by
// beat, or by pairs of beats shorter than a quarter.
func DefaultBeamGroups(timeSig string) []fraction.Fraction {
	timeSig = strings.TrimSpace(timeSig)
	if timeSig == "" || timeSig == "C" {
		timeSig = "4/4"
	}
	if groups, ok := defaultBeamGroups[timeSig]; ok {
		out := make([]fraction.Fraction, 0, len(groups))
		for _, g := range groups {
			f, err := fraction.Parse(g)
			if err == nil {
				out = append(out, f)
			}
		}
		return out
	}

	beats, value, ok := strings.Cut(timeSig, "/")
	b, errB := strconv.Atoi(beats)
	v, errV := strconv.Atoi(value)
	if !ok || errB != nil || errV != nil || b <= 0 || v <= 0 {
		return []fraction.Fraction{fraction.New(1, 4)}
	}
	switch {
	case b%3 == 0:
		return []fraction.Fraction{fraction.New(3, int64(v))}
	case v > 4:
		return []fraction.Fraction{fraction.New(2, int64(v))}
	}
	return []fraction.Fraction{fraction.New(1, int64(v))}
}

// GenerateBeams groups the notes of one voice by beat and beams every
// group of two or more notes shorter than a quarter. Rests break groups
// unless BeamRests is set. Tuplets over the notes are relocated to the
// stem side and bracketed when any of their notes stays unbeamed.
func GenerateBeams(tickables []Tickable, cfg BeamConfig) ([]*Beam, error) {
	groups := cfg.Groups
	if len(groups) == 0 {
		groups = []fraction.Fraction{fraction.New(2, 8)}
	}
	tickGroups := make([]fraction.Fraction, len(groups))
	for i, g := range groups {
		tickGroups[i] = g
		tickGroups[i].MulInt(Resolution)
	}

	noteGroups := sanitizeBeamGroups(createBeamGroups(tickables, tickGroups), cfg)

	for _, group := range noteGroups {
		dir := cfg.StemDirection
		switch {
		case cfg.MaintainStemDirections:
			dir = StemUp
			for _, n := range group {
				if !n.IsRest() {
					dir = n.StemDirection()
					break
				}
			}
		case dir == 0:
			dir = stemDirectionFor(group)
		}
		for _, n := range group {
			if err := n.SetStemDirection(dir); err != nil {
				return nil, err
			}
		}
	}

	var secondary float64
	if cfg.SecondaryBreaks != "" {
		t, err := DurationToTicks(cfg.SecondaryBreaks)
		if err != nil {
			return nil, err
		}
		secondary = float64(t)
	}

	var beams []*Beam
	for _, group := range noteGroups {
		if len(group) < 2 || !allBeamable(group) {
			continue
		}
		b, err := NewBeam(group, false)
		if err != nil {
			return nil, err
		}
		b.ShowStemlets(cfg.ShowStemlets)
		b.SetSecondaryBreakTicks(secondary)
		if cfg.FlatBeams {
			b.SetFlat(true, cfg.FlatBeamOffset)
		}
		beams = append(beams, b)
	}

	seen := make(map[*Tuplet]bool)
	for _, t := range tickables {
		tu := t.Tuplet()
		if tu == nil || seen[tu] {
			continue
		}
		seen[tu] = true
		tu.relocate()
	}
	return beams, nil
}

func allBeamable(group []*StaveNote) bool {
	for _, n := range group {
		if n.IntrinsicTicks().Value() >= QuarterTicks {
			return false
		}
	}
	return true
}

// createBeamGroups splits the voice into runs that fill successive beat
// groups.
func createBeamGroups(tickables []Tickable, tickGroups []fraction.Fraction) [][]Tickable {
	var (
		groups  [][]Tickable
		current []Tickable
		idx     int
	)
	next := func() { idx = (idx + 1) % len(tickGroups) }
	total := func(ts []Tickable) fraction.Fraction {
		sum := fraction.FromInt(0)
		for _, t := range ts {
			sum.Add(t.Ticks())
		}
		return sum
	}

	for _, t := range tickables {
		if t.ShouldIgnoreTicks() {
			groups = append(groups, current)
			current = nil
			continue
		}
		current = append(current, t)
		perGroup := tickGroups[idx]
		sum := total(current)

		unbeamable := true
		if n, ok := t.(*StaveNote); ok {
			unbeamable = n.BeamCount() == 0
		}
		if unbeamable && t.Tuplet() != nil {
			perGroup.MulInt(2)
		}

		switch {
		case sum.GreaterThan(perGroup):
			var carry []Tickable
			if !unbeamable {
				carry = []Tickable{current[len(current)-1]}
				current = current[:len(current)-1]
			}
			groups = append(groups, current)
			for {
				sum.Sub(tickGroups[idx])
				next()
				if !sum.GreaterThanEquals(tickGroups[idx]) {
					break
				}
			}
			current = carry
		case sum.Equals(perGroup):
			groups = append(groups, current)
			current = nil
			next()
		}
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

// sanitizeBeamGroups breaks groups at rests, unbeamable durations, stem
// changes and anything that is not a note.
func sanitizeBeamGroups(groups [][]Tickable, cfg BeamConfig) [][]*StaveNote {
	var out [][]*StaveNote
	for _, group := range groups {
		var temp []*StaveNote
		for i, t := range group {
			n, ok := t.(*StaveNote)
			if !ok {
				if len(temp) > 0 {
					out = append(out, temp)
				}
				temp = nil
				continue
			}
			firstOrLast := i == 0 || i == len(group)-1
			breaksOnRest := !cfg.BeamRests && n.IsRest()
			breaksOnEdgeRest := cfg.BeamRests && cfg.BeamMiddleOnly && n.IsRest() && firstOrLast

			stemChange := false
			if cfg.MaintainStemDirections && len(temp) > 0 {
				prev := temp[len(temp)-1]
				stemChange = !n.IsRest() && !prev.IsRest() && prev.StemDirection() != n.StemDirection()
			}
			unbeamable := n.BeamCount() == 0

			if breaksOnRest || breaksOnEdgeRest || stemChange || unbeamable {
				if len(temp) > 0 {
					out = append(out, temp)
				}
				temp = nil
				if stemChange {
					temp = []*StaveNote{n}
				}
				continue
			}
			temp = append(temp, n)
		}
		if len(temp) > 0 {
			out = append(out, temp)
		}
	}
	return out
}
