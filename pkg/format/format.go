package format

import (
	"math"

	"github.com/matzehuels/engrave/pkg/errors"
	"github.com/matzehuels/engrave/pkg/notation"
)

// DefaultPaddingBetween is the gap SimpleFormat leaves between notes.
const DefaultPaddingBetween = 10

// Options controls a Format call.
type Options struct {
	// AlignRests moves default rests to the lines of their neighbors.
	AlignRests bool
	// Stave is assigned to every voice; when set the contexts are also
	// post-formatted.
	Stave *notation.Stave
}

// Format runs the full sequence over voices: join, tick contexts and
// pre-format with the given target width, then post-format when a stave
// is given. A width of zero leaves the minimum-width layout. It returns the
// cost of the layout.
func (f *Formatter) Format(voices []*notation.Voice, justifyWidth float64, opts Options) (float64, error) {
	for _, v := range voices {
		v.SetSoftmaxFactor(f.softmaxFactor)
	}
	if opts.AlignRests {
		if err := f.AlignRests(voices, true); err != nil {
			return 0, err
		}
	}
	if err := f.JoinVoices(voices); err != nil {
		return 0, err
	}
	if err := f.CreateTickContexts(voices); err != nil {
		return 0, err
	}
	cost, err := f.PreFormat(justifyWidth, opts.Stave)
	if err != nil {
		return 0, err
	}
	f.logger.Debug("formatted", "voices", len(voices), "contexts", len(f.tickContexts),
		"width", justifyWidth, "min_width", f.minTotalWidth, "cost", cost)
	if opts.Stave != nil {
		if err := f.PostFormat(); err != nil {
			return 0, err
		}
	}
	return cost, nil
}

// FormatToStave formats voices to fill the note area of stave, less its
// default padding.
func (f *Formatter) FormatToStave(voices []*notation.Voice, stave *notation.Stave, opts Options) (float64, error) {
	if stave == nil {
		return 0, errors.New(errors.ErrCodeNoStave, "format to a nil stave")
	}
	opts.Stave = stave
	width := stave.NoteEndX() - stave.NoteStartX() - notation.DefaultPadding(f.env)
	return f.Format(voices, width, opts)
}

// PostFormat finalizes the modifier contexts, then the tick contexts.
func (f *Formatter) PostFormat() error {
	if !f.preFormatted {
		return errors.New(errors.ErrCodeUnformatted, "post-format before pre-format")
	}
	for _, mc := range f.modifierContexts {
		if err := mc.PostFormat(); err != nil {
			return err
		}
	}
	for _, tc := range f.tickContexts {
		if err := tc.PostFormat(); err != nil {
			return err
		}
	}
	return nil
}

// AlignRests aligns the default rests of every voice with their
// neighboring notes; with alignAll unbeamed rests move too.
func (f *Formatter) AlignRests(voices []*notation.Voice, alignAll bool) error {
	if len(voices) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "no voices to align rests in")
	}
	for _, v := range voices {
		notation.AlignRestsToNotes(v.Tickables(), alignAll, false)
	}
	return nil
}

// PreCalculateMinTotalWidth estimates the width voices need before any
// stave is chosen: the summed context widths plus padding for contexts not
// every voice takes part in, or for uneven widths and durations, whichever
// is larger.
func (f *Formatter) PreCalculateMinTotalWidth(voices []*notation.Voice) (float64, error) {
	if err := f.JoinVoices(voices); err != nil {
		return 0, err
	}
	if err := f.CreateTickContexts(voices); err != nil {
		return 0, err
	}
	unalignedPadding := f.env.UnalignedNotePadding

	var (
		unaligned  int
		widths     []float64
		durations  []float64
		wsum, dsum float64
		total      float64
	)
	for _, tc := range f.tickContexts {
		if err := tc.PreFormat(f.env); err != nil {
			return 0, err
		}
		if len(tc.Tickables()) < len(voices) {
			unaligned++
		}
		for _, t := range tc.Tickables() {
			m, err := t.Metrics()
			if err != nil {
				return 0, err
			}
			wsum += m.Width
			dsum += t.Ticks().Value()
			widths = append(widths, m.Width)
			durations = append(durations, t.Ticks().Value())
		}
		w, err := tc.Width()
		if err != nil {
			return 0, err
		}
		total += w
	}
	f.minTotalWidth = total
	f.hasMinTotalWidth = true
	if len(widths) == 0 {
		return total, nil
	}

	wavg := 1 / float64(len(widths))
	if wsum > 0 {
		wavg = wsum / float64(len(widths))
	}
	wpads := relativeSpread(widths, wavg)
	var dpads float64
	if dsum > 0 {
		dpads = relativeSpread(durations, dsum/float64(len(durations)))
	}
	padMax := math.Max(dpads, wpads) * float64(len(f.tickContexts)) * unalignedPadding
	unalignedPad := unalignedPadding * float64(unaligned)
	return total + math.Max(unalignedPad, padMax), nil
}

// relativeSpread is the standard deviation of values divided by avg.
func relativeSpread(values []float64, avg float64) float64 {
	var variance float64
	for _, v := range values {
		variance += (v - avg) * (v - avg)
	}
	return math.Sqrt(variance/float64(len(values))) / avg
}

// SimpleFormat places tickables left to right from x without voices or
// justification, each in its own contexts, separated by paddingBetween.
func SimpleFormat(tickables []notation.Tickable, x, paddingBetween float64, env *notation.Env) error {
	if env == nil {
		env = notation.DefaultEnv()
	}
	for i, t := range tickables {
		t.AddToModifierContext(notation.NewModifierContext())
		tc := notation.NewTickContext(int64(i))
		tc.AddTickable(t, 0)
		if err := tc.PreFormat(env); err != nil {
			return err
		}
		m, err := tc.Metrics()
		if err != nil {
			return err
		}
		w, err := tc.Width()
		if err != nil {
			return err
		}
		tc.SetX(x + m.TotalLeftPx)
		x += w + m.TotalRightPx + paddingBetween
	}
	return nil
}
