package notation

import (
	"math"
	"slices"

	"github.com/matzehuels/engrave/pkg/errors"
)

// BeamLine is the horizontal span of one beam segment at one level.
type BeamLine struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// BeamSegment is a drawn beam: a parallelogram from (X1, Y1) to (X2, Y2)
// with the given thickness, positive downward.
type BeamSegment struct {
	Level     int     `json:"level"`
	X1        float64 `json:"x1"`
	Y1        float64 `json:"y1"`
	X2        float64 `json:"x2"`
	Y2        float64 `json:"y2"`
	Thickness float64 `json:"thickness"`
}

// Beam connects the stems of a run of notes shorter than a quarter.
type Beam struct {
	notes         []*StaveNote
	stemDirection int

	slope  float64
	yShift float64

	flat          bool
	flatOffset    float64
	hasFlatOffset bool

	breakOnIndices      []int
	secondaryBreakTicks float64
	showStemlets        bool
	unbeamable          bool

	segments      []BeamSegment
	postFormatted bool
}

// NewBeam beams notes together. With autoStem the stem direction is chosen
// by majority vote over the head lines and applied to every note;
// otherwise it is taken from the first stemmed note.
func NewBeam(notes []*StaveNote, autoStem bool) (*Beam, error) {
	if len(notes) < 2 {
		return nil, errors.New(errors.ErrCodeTooFewNotes, "beam needs at least 2 notes, got %d", len(notes))
	}
	for i, n := range notes {
		if n.IntrinsicTicks().Value() >= QuarterTicks {
			return nil, errors.New(errors.ErrCodeUnbeamable, "note %d (duration %s) is not shorter than a quarter", i, n.Duration())
		}
	}

	b := &Beam{notes: notes, stemDirection: StemUp}
	for _, n := range notes {
		if n.HasStem() {
			b.stemDirection = n.StemDirection()
			break
		}
	}
	if autoStem {
		b.stemDirection = stemDirectionFor(notes)
	}
	for _, n := range notes {
		if autoStem {
			n.SetStemDirection(b.stemDirection)
		}
		n.setBeam(b)
	}
	return b, nil
}

// stemDirectionFor votes by head position: notes on or above the middle
// line pull stems down.
func stemDirectionFor(notes []*StaveNote) int {
	var sum float64
	for _, n := range notes {
		for _, l := range n.lines {
			sum += l - 3
		}
	}
	if sum >= 0 {
		return StemDown
	}
	return StemUp
}

// Notes returns the beamed notes.
func (b *Beam) Notes() []*StaveNote { return b.notes }

// StemDirection returns the shared stem direction.
func (b *Beam) StemDirection() int { return b.stemDirection }

// Slope is the fitted beam slope, dy per dx.
func (b *Beam) Slope() float64 { return b.slope }

// YShift is the vertical offset applied to the fitted line.
func (b *Beam) YShift() float64 { return b.yShift }

// FlatOffset is the y of a flat beam, valid after CalculateFlatSlope.
func (b *Beam) FlatOffset() float64 { return b.flatOffset }

// Unbeamable reports whether layout was suppressed for this group.
func (b *Beam) Unbeamable() bool { return b.unbeamable }

// SetUnbeamable suppresses layout; PostFormat then yields no segments.
func (b *Beam) SetUnbeamable(v bool) { b.unbeamable = v }

// SetFlat switches to a horizontal beam. A non-zero offset fixes the beam
// y; otherwise it is computed from the notes.
func (b *Beam) SetFlat(flat bool, offset float64) {
	b.flat = flat
	b.flatOffset = offset
	b.hasFlatOffset = offset != 0
}

// ShowStemlets draws short stems on rests under the beam.
func (b *Beam) ShowStemlets(v bool) { b.showStemlets = v }

// BreakSecondaryAt ends secondary beams at the given note indices.
func (b *Beam) BreakSecondaryAt(indices ...int) {
	b.breakOnIndices = append(b.breakOnIndices, indices...)
}

// SetSecondaryBreakTicks breaks secondary beams every ticks.
func (b *Beam) SetSecondaryBreakTicks(ticks float64) { b.secondaryBreakTicks = ticks }

// BeamCount is the largest number of beams any note needs.
func (b *Beam) BeamCount() int {
	count := 0
	for _, n := range b.notes {
		count = max(count, n.BeamCount())
	}
	return count
}

// Segments returns the segments computed by PostFormat.
func (b *Beam) Segments() []BeamSegment { return b.segments }

// stemTip returns the x and tip y of a note's stem.
func stemTip(n *StaveNote) (x, tip float64, err error) {
	if x, err = n.StemX(); err != nil {
		return 0, 0, err
	}
	if tip, _, err = n.StemExtents(); err != nil {
		return 0, 0, err
	}
	return x, tip, nil
}

// CalculateSlope scans candidate slopes and keeps the one with the least
// cost: the stem extension every note needs to reach the beam, plus a
// penalty for straying from half the slope between the first and last
// stem tips.
func (b *Beam) CalculateSlope(env *Env) error {
	env = envOrDefault(env)
	s := env.Beam
	first, last := b.notes[0], b.notes[len(b.notes)-1]
	firstX, firstTip, err := stemTip(first)
	if err != nil {
		return err
	}
	lastX, lastTip, err := stemTip(last)
	if err != nil {
		return err
	}
	initialSlope := 0.0
	if lastX != firstX {
		initialSlope = (lastTip - firstTip) / (lastX - firstX)
	}

	xs := make([]float64, len(b.notes))
	tips := make([]float64, len(b.notes))
	for i, n := range b.notes {
		if xs[i], tips[i], err = stemTip(n); err != nil {
			return err
		}
	}

	dir := float64(b.stemDirection)
	minCost := math.MaxFloat64
	bestSlope, bestShift := 0.0, 0.0
	for step := 0; step <= s.SlopeIterations; step++ {
		slope := s.MinSlope + (s.MaxSlope-s.MinSlope)*float64(step)/float64(s.SlopeIterations)
		var extension, shift float64
		for i := 1; i < len(b.notes); i++ {
			n := b.notes[i]
			if !n.HasStem() && !n.IsRest() {
				continue
			}
			adjusted := firstTip + (xs[i]-firstX)*slope + shift
			if tips[i]*dir < adjusted*dir {
				diff := math.Abs(tips[i] - adjusted)
				shift += diff * -dir
				extension += diff * float64(i)
			} else {
				extension += (tips[i] - adjusted) * dir
			}
		}
		cost := s.SlopeCost*math.Abs(initialSlope/2-slope) + math.Abs(extension)
		if cost < minCost {
			minCost = cost
			bestSlope = slope
			bestShift = shift
		}
	}
	b.slope = bestSlope
	b.yShift = bestShift
	return nil
}

// CalculateFlatSlope places a horizontal beam at the average stem tip,
// pushed clear of the most extreme note by a margin that grows with its
// beam count. Repeated calls only move the beam further from the heads.
func (b *Beam) CalculateFlatSlope(env *Env) error {
	env = envOrDefault(env)
	s := env.Beam
	var (
		total, extremeY, current float64
		extremeBeams             int
		haveExtreme              bool
	)
	for _, n := range b.notes {
		tip, _, err := n.StemExtents()
		if err != nil {
			return err
		}
		total += tip
		ys, err := n.Ys()
		if err != nil {
			return err
		}
		switch {
		case b.stemDirection == StemDown && (!haveExtreme || current < tip):
			current, extremeY, extremeBeams, haveExtreme = tip, slices.Max(ys), n.BeamCount(), true
		case b.stemDirection == StemUp && (!haveExtreme || current > tip):
			current, extremeY, extremeBeams, haveExtreme = tip, slices.Min(ys), n.BeamCount(), true
		}
	}

	offset := total / float64(len(b.notes))
	clearance := s.MinFlatBeamOffset + float64(extremeBeams)*s.Width*1.5
	limit := extremeY + clearance*-float64(b.stemDirection)
	if b.stemDirection == StemDown && offset < limit {
		offset = limit
	} else if b.stemDirection == StemUp && offset > limit {
		offset = limit
	}

	switch {
	case !b.hasFlatOffset:
		b.flatOffset = offset
		b.hasFlatOffset = true
	case b.stemDirection == StemDown && offset > b.flatOffset:
		b.flatOffset = offset
	case b.stemDirection == StemUp && offset < b.flatOffset:
		b.flatOffset = offset
	}
	b.slope = 0
	b.yShift = 0
	return nil
}

// beamY returns the y of the primary beam at x.
func (b *Beam) beamY(x, firstX, firstTip float64) float64 {
	if b.flat {
		return b.flatOffset
	}
	return firstTip + (x-firstX)*b.slope + b.yShift
}

// ApplyStemExtensions lengthens every stem to meet the beam and gives
// rests stemlets when enabled.
func (b *Beam) ApplyStemExtensions(env *Env) error {
	env = envOrDefault(env)
	firstX, firstTip, err := stemTip(b.notes[0])
	if err != nil {
		return err
	}
	beamCount := b.BeamCount()
	for _, n := range b.notes {
		x, tip, err := stemTip(n)
		if err != nil {
			return err
		}
		beamed := b.beamY(x, firstX, firstTip)
		ext := beamed - tip
		if n.StemDirection() == StemUp {
			ext = tip - beamed
		}
		n.stem.Extension += ext
		if n.IsRest() && b.showStemlets {
			thickness := float64(beamCount-1)*env.Beam.Width*1.5 + env.Beam.Width
			n.stem.Hidden = false
			n.stem.Stemlet = true
			n.stem.StemletHeight = thickness + env.Beam.StemletExtension
		}
	}
	return nil
}

// BeamLines returns the spans of the beam level that notes shorter than
// duration get, e.g. 4 for the primary (eighth) beam and 8 for the
// sixteenth beam. Isolated notes get partial beams whose side is decided
// by their rhythmic neighbors.
func (b *Beam) BeamLines(duration int, env *Env) ([]BeamLine, error) {
	env = envOrDefault(env)
	partial := env.Beam.PartialBeamLength
	threshold := float64(Resolution / duration)
	getsBeam := func(i int) bool {
		return i >= 0 && i < len(b.notes) && b.notes[i].IntrinsicTicks().Value() < threshold
	}

	var (
		lines         []BeamLine
		open          = -1
		started       bool
		previousBreak bool
		tally         float64
	)
	for i, n := range b.notes {
		tally += n.Ticks().Value()
		shouldBreak := false
		if duration >= 8 {
			shouldBreak = slices.Contains(b.breakOnIndices, i)
			if b.secondaryBreakTicks > 0 && tally >= b.secondaryBreakTicks {
				tally = 0
				shouldBreak = true
			}
		}

		x, err := n.StemX()
		if err != nil {
			return nil, err
		}
		x -= StemWidth / 2

		hasPrev, hasNext := i > 0, i < len(b.notes)-1
		if getsBeam(i) {
			if started {
				lines[open].End = x
				if shouldBreak {
					started = false
				}
			} else {
				line := BeamLine{Start: x, End: math.NaN()}
				started = true
				alone := hasPrev && hasNext && !getsBeam(i-1) && !getsBeam(i+1)
				switch {
				case alone:
					side := lookupBeamDirection(duration,
						b.notes[i-1].IntrinsicTicks().Value(),
						n.IntrinsicTicks().Value(),
						b.notes[i+1].IntrinsicTicks().Value())
					if side == partialLeft || side == partialBoth {
						line.End = line.Start - partial
					} else {
						line.End = line.Start + partial
					}
				case !getsBeam(i + 1):
					if (previousBreak || i == 0) && hasNext {
						line.End = line.Start + partial
					} else {
						line.End = line.Start - partial
					}
				case shouldBreak:
					line.End = line.Start - partial
					started = false
				}
				lines = append(lines, line)
				open = len(lines) - 1
			}
		} else {
			started = false
		}
		previousBreak = shouldBreak
	}

	if n := len(lines); n > 0 && math.IsNaN(lines[n-1].End) {
		lines[n-1].End = lines[n-1].Start - partial
	}
	return lines, nil
}

type partialSide int

const (
	partialLeft partialSide = iota
	partialRight
	partialBoth
)

// lookupBeamDirection decides which side a partial beam of an isolated
// note points to by checking, one level up at a time, whether its
// neighbors share the next shorter beam.
func lookupBeamDirection(duration int, prev, tick, next float64) partialSide {
	if duration <= 4 {
		return partialLeft
	}
	lookup := duration / 2
	threshold := float64(Resolution / lookup)
	prevBeam, nextBeam, noteBeam := prev < threshold, next < threshold, tick < threshold
	switch {
	case prevBeam && nextBeam && noteBeam:
		return partialBoth
	case prevBeam && !nextBeam && noteBeam:
		return partialLeft
	case !prevBeam && nextBeam && noteBeam:
		return partialRight
	}
	return lookupBeamDirection(lookup, prev, tick, next)
}

// PostFormat fits the beam, extends the stems and computes the drawn
// segments. It runs once; later calls return the stored segments.
func (b *Beam) PostFormat(env *Env) ([]BeamSegment, error) {
	if b.postFormatted || b.unbeamable {
		return b.segments, nil
	}
	env = envOrDefault(env)
	var err error
	if b.flat {
		err = b.CalculateFlatSlope(env)
	} else {
		err = b.CalculateSlope(env)
	}
	if err != nil {
		return nil, err
	}

	firstX, firstTip, err := stemTip(b.notes[0])
	if err != nil {
		return nil, err
	}
	if err := b.ApplyStemExtensions(env); err != nil {
		return nil, err
	}

	thickness := env.Beam.Width * float64(b.stemDirection)
	var segments []BeamSegment
	for level, duration := range []int{4, 8, 16, 32, 64} {
		lines, err := b.BeamLines(duration, env)
		if err != nil {
			return nil, err
		}
		offset := float64(level) * thickness * 1.5
		for _, l := range lines {
			segments = append(segments, BeamSegment{
				Level:     level,
				X1:        l.Start,
				Y1:        b.beamY(l.Start, firstX, firstTip) + offset,
				X2:        l.End,
				Y2:        b.beamY(l.End, firstX, firstTip) + offset,
				Thickness: thickness,
			})
		}
	}
	b.segments = segments
	b.postFormatted = true
	return segments, nil
}
