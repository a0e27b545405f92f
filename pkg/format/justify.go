package format

import (
	"math"
	"slices"

	"github.com/matzehuels/engrave/pkg/errors"
	"github.com/matzehuels/engrave/pkg/notation"
)

// idealDistance is where a context wants to sit relative to the nearest
// earlier context that shares a voice with it.
type idealDistance struct {
	expected float64
	// maxNegativeShift bounds how far the context may move left of its
	// current position before noteheads of a voice would overlap.
	maxNegativeShift float64
	from             notation.Tickable
}

const (
	// justifyTolerance is how close the spread must come to its bound.
	justifyTolerance = 1e-7
	// minSecantSlope guards the secant step on flat stretches, where every
	// shift is clamped and the target no longer moves the spread.
	minSecantSlope = 1e-3
)

// PreFormat lays the contexts out at their minimum widths and records the
// minimum total width. With a positive justifyWidth the contexts are then
// spread to fill it. A non-nil stave is assigned to every voice first. It
// returns the cost of the resulting layout.
func (f *Formatter) PreFormat(justifyWidth float64, stave *notation.Stave) (float64, error) {
	if f.tickContexts == nil {
		return 0, errors.New(errors.ErrCodePrecondition, "pre-format before tick contexts were created")
	}
	if len(f.tickContexts) == 0 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "voices contain no tickables")
	}
	if stave != nil {
		for _, v := range f.voices {
			if err := v.SetStave(stave).PreFormat(); err != nil {
				return 0, err
			}
		}
	}

	var x, shift float64
	f.baseX = make([]float64, len(f.tickContexts))
	for i, tc := range f.tickContexts {
		if err := tc.PreFormat(f.env); err != nil {
			return 0, err
		}
		width, err := tc.Width()
		if err != nil {
			return 0, err
		}
		m, err := tc.Metrics()
		if err != nil {
			return 0, err
		}
		x += shift + m.TotalLeftPx
		tc.SetX(x)
		f.baseX[i] = x
		shift = width - m.TotalLeftPx
	}
	f.minTotalWidth = x + shift
	f.hasMinTotalWidth = true
	f.preFormatted = true
	f.justified = false
	f.justifyWidth = 0
	f.iterations = 0

	if justifyWidth > 0 && len(f.tickContexts) > 1 {
		if err := f.justify(justifyWidth); err != nil {
			return 0, err
		}
		f.justifyWidth = justifyWidth
	}
	return f.Evaluate()
}

func (f *Formatter) justify(justifyWidth float64) error {
	first, last := f.tickContexts[0], f.tickContexts[len(f.tickContexts)-1]
	fm, _ := first.Metrics()
	lm, _ := last.Metrics()
	adjusted := justifyWidth - lm.NotePx - lm.TotalRightPx - fm.TotalLeftPx

	// Shifting cannot pull the contexts closer than they sit at a zero
	// target; that spread is the floor of every justification.
	distances, err := f.idealDistances(0)
	if err != nil {
		return err
	}
	floor, err := f.shiftToIdealDistances(distances, adjusted)
	if err != nil {
		return err
	}

	target := adjusted
	if distances, err = f.idealDistances(target); err != nil {
		return err
	}
	actual, err := f.shiftToIdealDistances(distances, adjusted)
	if err != nil {
		return err
	}

	minDistance := target / 2
	for _, d := range distances[1:] {
		minDistance = math.Min(minDistance, d.expected/2)
	}

	cfgMin, cfgMax := f.env.EndPaddingMin, f.env.EndPaddingMax
	paddingMax := func(target float64) (float64, error) {
		lastTickable := last.MaxTickable()
		if lastTickable == nil {
			return cfgMax, nil
		}
		voice, err := lastTickable.Voice()
		if err != nil {
			return 0, err
		}
		if voice.TicksUsed().GreaterThan(voice.TotalTicks()) {
			if cfgMax*2 < minDistance {
				return minDistance, nil
			}
			return cfgMax, nil
		}
		tickWidth, err := lastTickable.Width()
		if err != nil {
			return 0, err
		}
		pad := voice.Softmax(last.MaxTicks().Value())*target - (tickWidth + f.env.StavePadding)
		if cfgMax*2 < pad {
			return pad, nil
		}
		return cfgMax, nil
	}

	padMax, err := paddingMax(target)
	if err != nil {
		return err
	}
	padMin := padMax - (cfgMax - cfgMin)
	maxX := math.Max(adjusted-padMin, floor)

	// Each step aims at the middle of [maxX-padMax, maxX]. The first
	// assumes the spread follows the target one to one; later steps use
	// the secant through the last two estimates, which lands exactly
	// while no shift is clamped. Below the floor the target bottoms out
	// at zero, which yields the floor itself.
	iterations := f.maxIterations
	prevTarget, prevActual := math.NaN(), math.NaN()
	for (actual > maxX+justifyTolerance && iterations > 0) || (actual+padMax < maxX-justifyTolerance && iterations > 1) {
		if math.Abs(actual-prevActual) < justifyTolerance {
			break
		}
		slope := 1.0
		if !math.IsNaN(prevTarget) && target != prevTarget {
			if s := (actual - prevActual) / (target - prevTarget); s > minSecantSlope {
				slope = s
			}
		}
		goal := maxX - padMax/2
		prevTarget, prevActual = target, actual
		target = math.Max(0, target-(actual-goal)/slope)
		if padMax, err = paddingMax(target); err != nil {
			return err
		}
		padMin = padMax - (cfgMax - cfgMin)
		if distances, err = f.idealDistances(target); err != nil {
			return err
		}
		if actual, err = f.shiftToIdealDistances(distances, adjusted); err != nil {
			return err
		}
		iterations--
		f.logger.Debug("justify iteration", "target", target, "actual", actual, "max_x", maxX, "pad_max", padMax)
	}
	f.iterations = f.maxIterations - iterations

	// maxX is fixed before iterating; only the lower bound follows padMax.
	hi := justifyWidth - (adjusted - maxX)
	f.envelope = Envelope{Min: hi - padMax, Max: hi}
	f.justified = true
	return nil
}

// resetX returns every context to its minimum-width position.
func (f *Formatter) resetX() {
	for i, tc := range f.tickContexts {
		tc.SetX(f.baseX[i])
	}
}

// idealDistances computes, for every context after the first, the softmax
// distance from the nearest earlier context that shares a voice with it.
func (f *Formatter) idealDistances(target float64) ([]idealDistance, error) {
	f.resetX()
	distances := make([]idealDistance, len(f.tickContexts))
	for i, tc := range f.tickContexts {
		d := idealDistance{maxNegativeShift: math.Inf(1)}
		if i == 0 {
			distances[i] = d
			continue
		}
		voices := tc.TickablesByVoice()
		indices := make([]int, 0, len(voices))
		for v := range voices {
			indices = append(indices, v)
		}
		slices.Sort(indices)

		for j := i - 1; j >= 0; j-- {
			back := f.tickContexts[j]
			backVoices := back.TickablesByVoice()
			var matching []int
			for _, v := range indices {
				if _, ok := backVoices[v]; ok {
					matching = append(matching, v)
				}
			}
			if len(matching) == 0 {
				continue
			}

			var maxTicks float64
			for _, v := range matching {
				if ticks := backVoices[v].Ticks().Value(); d.from == nil || ticks > maxTicks {
					maxTicks = ticks
					d.from = backVoices[v]
				}
			}
			for _, v := range matching {
				left, right := voices[v], backVoices[v]
				lx, err := left.X()
				if err != nil {
					return nil, err
				}
				rx, err := right.X()
				if err != nil {
					return nil, err
				}
				lm, err := left.Metrics()
				if err != nil {
					return nil, err
				}
				rm, err := right.Metrics()
				if err != nil {
					return nil, err
				}
				insideRight := rx + rm.NotePx + rm.ModRightPx + rm.RightDisplacedHeadPx
				insideLeft := lx - lm.ModLeftPx - lm.LeftDisplacedHeadPx
				d.maxNegativeShift = math.Min(d.maxNegativeShift, insideLeft-insideRight)
			}
			d.maxNegativeShift = math.Min(d.maxNegativeShift, tc.X()-(back.X()+target*0.05))

			voice, err := d.from.Voice()
			if err != nil {
				return nil, err
			}
			d.expected = voice.Softmax(maxTicks) * target
			break
		}
		distances[i] = d
	}
	return distances, nil
}

// shiftToIdealDistances moves every context toward its ideal distance,
// carrying the accumulated error forward, and centers center-aligned
// tickables. It returns the distance between the first and last context.
func (f *Formatter) shiftToIdealDistances(distances []idealDistance, adjusted float64) (float64, error) {
	centerX := adjusted / 2
	var accumulated float64
	for i, tc := range f.tickContexts {
		if i > 0 {
			x := tc.X()
			if d := distances[i]; d.from != nil {
				fromX, err := d.from.X()
				if err != nil {
					return 0, err
				}
				errorPx := fromX + d.expected - (x + accumulated)
				switch {
				case errorPx > 0:
					accumulated += errorPx
				case errorPx < 0:
					accumulated -= math.Min(d.maxNegativeShift, -errorPx)
				}
			}
			tc.SetX(x + accumulated)
		}
		for _, t := range tc.CenterAlignedTickables() {
			t.SetXShift(centerX - tc.X())
		}
	}
	first, last := f.tickContexts[0], f.tickContexts[len(f.tickContexts)-1]
	return last.X() - first.X(), nil
}
