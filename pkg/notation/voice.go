package notation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/matzehuels/engrave/pkg/errors"
	"github.com/matzehuels/engrave/pkg/fraction"
)

// Mode controls how strictly a voice enforces its duration budget.
type Mode int

const (
	// ModeStrict rejects overflow and must be filled exactly.
	ModeStrict Mode = iota + 1
	// ModeSoft accepts both over- and under-filled voices.
	ModeSoft
	// ModeFull rejects overflow and must be filled exactly before
	// formatting, like strict; it marks voices filled by generated rests.
	ModeFull
)

// String returns the mode name used in score documents.
func (m Mode) String() string {
	switch m {
	case ModeStrict:
		return "strict"
	case ModeSoft:
		return "soft"
	case ModeFull:
		return "full"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode reads "strict", "soft" or "full". The empty string is strict.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return ModeStrict, nil
	case "soft":
		return ModeSoft, nil
	case "full":
		return ModeFull, nil
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown voice mode %q", s)
}

// Time is a time signature with the tick resolution it is measured in.
type Time struct {
	Beats      int
	BeatValue  int
	Resolution int64
}

// ParseTime reads a signature like "3/4". "C" and "C|" are common and cut
// time.
func ParseTime(s string) (Time, error) {
	switch strings.TrimSpace(s) {
	case "C":
		return Time{Beats: 4, BeatValue: 4, Resolution: Resolution}, nil
	case "C|":
		return Time{Beats: 2, BeatValue: 2, Resolution: Resolution}, nil
	}
	beats, value, ok := strings.Cut(s, "/")
	if !ok {
		return Time{}, errors.New(errors.ErrCodeInvalidMeter, "time signature %q is not of the form n/d", s)
	}
	b, err := strconv.Atoi(strings.TrimSpace(beats))
	if err != nil {
		return Time{}, errors.Wrap(errors.ErrCodeInvalidMeter, err, "time signature %q", s)
	}
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return Time{}, errors.Wrap(errors.ErrCodeInvalidMeter, err, "time signature %q", s)
	}
	t := Time{Beats: b, BeatValue: v, Resolution: Resolution}
	return t, t.Validate()
}

// Validate checks that the signature is a proper meter.
func (t Time) Validate() error {
	if err := errors.ValidateTimeSignature(t.String()); err != nil {
		return err
	}
	if t.Resolution <= 0 || t.Resolution%int64(t.BeatValue) != 0 {
		return errors.New(errors.ErrCodeInvalidMeter, "resolution %d is not divisible by beat value %d", t.Resolution, t.BeatValue)
	}
	return nil
}

// String formats as "beats/value".
func (t Time) String() string {
	return fmt.Sprintf("%d/%d", t.Beats, t.BeatValue)
}

// Voice is an ordered run of tickables with a duration budget.
type Voice struct {
	time       Time
	totalTicks fraction.Fraction
	ticksUsed  fraction.Fraction
	mode       Mode

	resolutionMultiplier int64
	smallestTickCount    fraction.Fraction

	tickables []Tickable
	stave     *Stave

	softmaxFactor float64
	expTicksUsed  float64

	preFormatted bool
}

// NewVoice returns an empty strict voice with a budget of
// beats × resolution/beatValue ticks.
func NewVoice(t Time) (*Voice, error) {
	if t.Resolution == 0 {
		t.Resolution = Resolution
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	total := fraction.FromInt(int64(t.Beats) * (t.Resolution / int64(t.BeatValue)))
	return &Voice{
		time:                 t,
		totalTicks:           total,
		ticksUsed:            fraction.FromInt(0),
		mode:                 ModeStrict,
		resolutionMultiplier: 1,
		smallestTickCount:    total,
		softmaxFactor:        DefaultSoftmaxFactor,
	}, nil
}

// Time returns the voice's time signature.
func (v *Voice) Time() Time { return v.time }

// TotalTicks is the budget.
func (v *Voice) TotalTicks() fraction.Fraction { return v.totalTicks }

// TicksUsed is the sum of appended durations.
func (v *Voice) TicksUsed() fraction.Fraction { return v.ticksUsed }

// SmallestTickCount is the shortest appended duration.
func (v *Voice) SmallestTickCount() fraction.Fraction { return v.smallestTickCount }

// ResolutionMultiplier is the lcm of all denominators seen in the running
// tick total.
func (v *Voice) ResolutionMultiplier() int64 { return v.resolutionMultiplier }

// Mode returns the budget mode.
func (v *Voice) Mode() Mode { return v.mode }

// SetMode changes the budget mode.
func (v *Voice) SetMode(m Mode) *Voice {
	v.mode = m
	return v
}

// Tickables returns the members in order.
func (v *Voice) Tickables() []Tickable { return v.tickables }

// Stave returns the voice's stave, or nil.
func (v *Voice) Stave() *Stave { return v.stave }

// SetStave assigns the stave members fall back to.
func (v *Voice) SetStave(s *Stave) *Voice {
	v.stave = s
	v.preFormatted = false
	return v
}

// SoftmaxFactor returns the exponential base of the spacing weights.
func (v *Voice) SoftmaxFactor() float64 { return v.softmaxFactor }

// SetSoftmaxFactor changes the base and invalidates cached weights.
func (v *Voice) SetSoftmaxFactor(f float64) *Voice {
	v.softmaxFactor = f
	v.expTicksUsed = 0
	return v
}

// IsComplete reports whether a strict or full voice is exactly filled.
// Soft voices are always complete.
func (v *Voice) IsComplete() bool {
	if v.mode == ModeStrict || v.mode == ModeFull {
		return v.ticksUsed.Equals(v.totalTicks)
	}
	return true
}

// AddTickable appends t. In strict and full mode an append that would
// exceed the budget is rejected with ErrCodeTooManyTicks and leaves the
// voice unchanged.
func (v *Voice) AddTickable(t Tickable) error {
	if !t.ShouldIgnoreTicks() {
		ticks := t.Ticks()
		used := v.ticksUsed
		used.Add(ticks)
		if (v.mode == ModeStrict || v.mode == ModeFull) && used.GreaterThan(v.totalTicks) {
			return errors.New(errors.ErrCodeTooManyTicks, "adding %s ticks would exceed %s (used %s)", ticks, v.totalTicks, v.ticksUsed)
		}
		v.ticksUsed = used
		v.expTicksUsed = 0
		if ticks.LessThan(v.smallestTickCount) {
			v.smallestTickCount = ticks
		}
		v.resolutionMultiplier = fraction.LCM(v.resolutionMultiplier, v.ticksUsed.Den)
	}
	b := t.base()
	b.voice = v
	v.tickables = append(v.tickables, t)
	v.preFormatted = false
	return nil
}

// AddTickables appends each tickable, stopping at the first error.
func (v *Voice) AddTickables(ts ...Tickable) error {
	for i, t := range ts {
		if err := v.AddTickable(t); err != nil {
			return fmt.Errorf("tickable %d: %w", i, err)
		}
	}
	return nil
}

// Softmax returns the spacing weight of a duration relative to the voice:
// f^(tick/T) / Σ f^(t_i/T), where T is the ticks used.
func (v *Voice) Softmax(tickValue float64) float64 {
	total := v.ticksUsed.Value()
	if total == 0 {
		return 0
	}
	if v.expTicksUsed == 0 {
		for _, t := range v.tickables {
			v.expTicksUsed += math.Pow(v.softmaxFactor, t.Ticks().Value()/total)
		}
	}
	return math.Pow(v.softmaxFactor, tickValue/total) / v.expTicksUsed
}

// PreFormat assigns the voice stave to members that have none.
func (v *Voice) PreFormat() error {
	if v.preFormatted {
		return nil
	}
	if v.stave == nil {
		return errors.New(errors.ErrCodeNoStave, "voice has no stave")
	}
	for _, t := range v.tickables {
		if _, err := t.Stave(); err != nil {
			t.SetStave(v.stave)
		}
	}
	v.preFormatted = true
	return nil
}
