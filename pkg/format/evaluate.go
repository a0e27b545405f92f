package format

import (
	"math"

	"github.com/matzehuels/engrave/pkg/errors"
	"github.com/matzehuels/engrave/pkg/notation"
)

// Evaluate scores the current layout. For every tickable it measures the
// space used up to the next tickable of its voice (the last one measures
// to the justify width, or the minimum total width when unjustified) and
// compares it with the mean space of all tickables of the same duration.
// The cost is the root of the summed squared deviations and is appended to
// the loss history.
func (f *Formatter) Evaluate() (float64, error) {
	if !f.preFormatted {
		return 0, errors.New(errors.ErrCodeUnformatted, "evaluate before pre-format")
	}
	width := f.justifyWidth
	if width <= 0 {
		width = f.minTotalWidth
	}

	type stat struct {
		sum   float64
		count int
	}
	stats := make(map[string]*stat)
	prev := f.spaces
	f.spaces = make(map[notation.Tickable]*SpaceMetrics)

	for _, v := range f.voices {
		tickables := v.Tickables()
		for i, t := range tickables {
			x, err := t.X()
			if err != nil {
				return 0, err
			}
			m, err := t.Metrics()
			if err != nil {
				return 0, err
			}
			s := f.space(t, prev)
			s.Duration = t.Ticks().String()

			leftEdge := x + m.NotePx + m.ModRightPx + m.RightDisplacedHeadPx
			var gap float64
			if i < len(tickables)-1 {
				next := tickables[i+1]
				nx, err := next.X()
				if err != nil {
					return 0, err
				}
				nm, err := next.Metrics()
				if err != nil {
					return 0, err
				}
				gap = nx - nm.ModLeftPx - nm.LeftDisplacedHeadPx - leftEdge
				s.Used = nx - x
				f.space(next, prev).FreedomLeft = gap
			} else {
				gap = width - leftEdge
				s.Used = width - x
			}
			s.FreedomRight = gap

			st, ok := stats[s.Duration]
			if !ok {
				st = &stat{}
				stats[s.Duration] = st
			}
			st.sum += s.Used
			st.count++
		}
	}

	var total float64
	for _, v := range f.voices {
		for _, t := range v.Tickables() {
			s := f.spaces[t]
			st := stats[s.Duration]
			s.Mean = st.sum / float64(st.count)
			s.Deviation = s.Used - s.Mean
			s.Iterations++
			total += s.Deviation * s.Deviation
		}
	}

	f.freedoms = make(map[*notation.TickContext]*freedom, len(f.tickContexts))
	for _, tc := range f.tickContexts {
		fr := &freedom{left: math.Inf(1), right: math.Inf(1)}
		for _, t := range tc.Tickables() {
			if s, ok := f.spaces[t]; ok {
				fr.left = math.Min(fr.left, s.FreedomLeft)
				fr.right = math.Min(fr.right, s.FreedomRight)
			}
		}
		if math.IsInf(fr.left, 1) {
			fr.left = 0
		}
		if math.IsInf(fr.right, 1) {
			fr.right = 0
		}
		f.freedoms[tc] = fr
	}

	f.totalCost = math.Sqrt(total)
	f.lossHistory = append(f.lossHistory, f.totalCost)
	f.evaluated = true
	return f.totalCost, nil
}

// space returns the record for t in the current evaluation, carrying over
// the iteration count of the previous one.
func (f *Formatter) space(t notation.Tickable, prev map[notation.Tickable]*SpaceMetrics) *SpaceMetrics {
	if s, ok := f.spaces[t]; ok {
		return s
	}
	s := &SpaceMetrics{}
	if p, ok := prev[t]; ok {
		s.Iterations = p.Iterations
	}
	f.spaces[t] = s
	return s
}

// Tune shifts each context after the first toward the position that
// reduces the deviation of its tickables, by at most the free space on
// that side, scaled by alpha (DefaultTuneAlpha when zero). A step that
// would raise the cost is undone. It returns the resulting cost.
func (f *Formatter) Tune(alpha float64) (float64, error) {
	if !f.preFormatted {
		return 0, errors.New(errors.ErrCodeUnformatted, "tune before pre-format")
	}
	if alpha == 0 {
		alpha = DefaultTuneAlpha
	}
	if !f.evaluated {
		if _, err := f.Evaluate(); err != nil {
			return 0, err
		}
	}
	before := f.totalCost
	saved := make([]float64, len(f.tickContexts))
	for i, tc := range f.tickContexts {
		saved[i] = tc.X()
	}

	f.totalShift = 0
	for i := 1; i < len(f.tickContexts); i++ {
		tc := f.tickContexts[i]
		var cost float64
		for _, t := range tc.Tickables() {
			if s, ok := f.spaces[t]; ok {
				cost -= s.Deviation
			}
		}
		fr := f.freedoms[tc]
		var shift float64
		switch {
		case cost > 0:
			shift = -math.Min(math.Max(fr.left, 0), cost)
		case cost < 0:
			shift = math.Min(math.Max(fr.right, 0), -cost)
		}
		shift *= alpha
		if shift == 0 {
			continue
		}

		tc.SetX(tc.X() + shift)
		fr.left += shift
		fr.right -= shift
		f.freedoms[f.tickContexts[i-1]].right += shift
		if i+1 < len(f.tickContexts) {
			f.freedoms[f.tickContexts[i+1]].left -= shift
		}
		f.totalShift += shift
	}

	after, err := f.Evaluate()
	if err != nil {
		return 0, err
	}
	if after > before {
		f.logger.Debug("tune step rejected", "before", before, "after", after)
		for i, tc := range f.tickContexts {
			tc.SetX(saved[i])
		}
		f.totalShift = 0
		return f.Evaluate()
	}
	f.logger.Debug("tune step", "cost", after, "shift", f.totalShift)
	return after, nil
}
