package format

import (
	"slices"

	"github.com/matzehuels/engrave/pkg/errors"
	"github.com/matzehuels/engrave/pkg/fraction"
	"github.com/matzehuels/engrave/pkg/notation"
)

// tickOffsets returns the start offset of every tickable of every voice
// as exact fractions, and the multiplier that turns them into integers.
func tickOffsets(voices []*notation.Voice) ([][]fraction.Fraction, int64) {
	offsets := make([][]fraction.Fraction, len(voices))
	dens := []int64{1}
	for i, v := range voices {
		total := fraction.FromInt(0)
		for _, t := range v.Tickables() {
			offsets[i] = append(offsets[i], total)
			dens = append(dens, total.Den)
			total.Add(t.Ticks())
		}
		dens = append(dens, v.ResolutionMultiplier())
	}
	return offsets, fraction.LCMM(dens...)
}

func integerTick(f fraction.Fraction, resMult int64) int64 {
	return f.Num * (resMult / f.Den)
}

// JoinVoices builds one modifier context per stave and tick offset and
// registers every tickable with it, so decorations of simultaneous notes
// on the same stave are laid out together.
func (f *Formatter) JoinVoices(voices []*notation.Voice) error {
	if len(voices) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "no voices to join")
	}
	offsets, resMult := tickOffsets(voices)
	f.modifierContexts = nil
	f.modifierByKey = make(map[modifierKey]*notation.ModifierContext)
	for i, v := range voices {
		for j, t := range v.Tickables() {
			stave, err := t.Stave()
			if err != nil {
				stave = v.Stave()
			}
			key := modifierKey{stave: stave, tick: integerTick(offsets[i][j], resMult)}
			mc, ok := f.modifierByKey[key]
			if !ok {
				mc = notation.NewModifierContext()
				f.modifierByKey[key] = mc
				f.modifierContexts = append(f.modifierContexts, mc)
			}
			t.AddToModifierContext(mc)
		}
	}
	return nil
}

// CreateTickContexts groups the tickables of all voices by cumulative tick
// offset. The voices must have equal total ticks, and strict or full
// voices must be complete.
func (f *Formatter) CreateTickContexts(voices []*notation.Voice) error {
	if len(voices) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "no voices to format")
	}
	total := voices[0].TotalTicks()
	for i, v := range voices {
		if !v.TotalTicks().Equals(total) {
			return errors.New(errors.ErrCodeTickMismatch,
				"voice %d has %s total ticks, voice 0 has %s", i, v.TotalTicks(), total)
		}
		if (v.Mode() == notation.ModeStrict || v.Mode() == notation.ModeFull) && !v.IsComplete() {
			return errors.New(errors.ErrCodeIncompleteVoice,
				"%s voice %d uses %s of %s ticks", v.Mode(), i, v.TicksUsed(), v.TotalTicks())
		}
	}

	offsets, resMult := tickOffsets(voices)
	byTick := make(map[int64]*notation.TickContext)
	var ticks []int64
	for i, v := range voices {
		for j, t := range v.Tickables() {
			tick := integerTick(offsets[i][j], resMult)
			tc, ok := byTick[tick]
			if !ok {
				tc = notation.NewTickContext(tick)
				byTick[tick] = tc
				ticks = append(ticks, tick)
			}
			tc.AddTickable(t, i)
		}
	}
	slices.Sort(ticks)

	contexts := make([]*notation.TickContext, len(ticks))
	for i, tick := range ticks {
		contexts[i] = byTick[tick]
	}
	for i, tc := range contexts {
		tc.SetSiblings(contexts, i)
	}

	f.voices = voices
	f.tickContexts = contexts
	f.resolutionMultiplier = resMult
	f.preFormatted = false
	f.hasMinTotalWidth = false
	f.justified = false
	f.evaluated = false
	return nil
}
