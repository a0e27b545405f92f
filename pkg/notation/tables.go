package notation

import (
	"strings"

	"github.com/matzehuels/engrave/pkg/errors"
	"github.com/matzehuels/engrave/pkg/fraction"
)

// Resolution is the number of ticks in a whole note.
const Resolution = 16384

// Stem directions. Y grows downward, so an up stem has its tip above the
// noteheads.
const (
	StemUp   = 1
	StemDown = -1
)

// Stem geometry in pixels.
const (
	StemHeight = 35.0
	StemWidth  = 1.5
)

// durationAliases maps letter names to numeric durations.
var durationAliases = map[string]string{
	"w": "1",
	"h": "2",
	"q": "4",
}

// durationProps describes the glyphs and beam behavior of a written
// duration.
type durationProps struct {
	ticks         int64
	head          string
	rest          string
	flagUp        string
	flagDown      string
	stem          bool
	beamCount     int
	stemExtension float64
}

var durations = map[string]durationProps{
	"1/2": {ticks: Resolution * 2, head: "noteheadDoubleWhole", rest: "restDoubleWhole"},
	"1":   {ticks: Resolution, head: "noteheadWhole", rest: "restWhole"},
	"2":   {ticks: Resolution / 2, head: "noteheadHalf", rest: "restHalf", stem: true},
	"4":   {ticks: Resolution / 4, head: "noteheadBlack", rest: "restQuarter", stem: true},
	"8": {ticks: Resolution / 8, head: "noteheadBlack", rest: "rest8th", stem: true,
		flagUp: "flag8thUp", flagDown: "flag8thDown", beamCount: 1},
	"16": {ticks: Resolution / 16, head: "noteheadBlack", rest: "rest16th", stem: true,
		flagUp: "flag16thUp", flagDown: "flag16thDown", beamCount: 2},
	"32": {ticks: Resolution / 32, head: "noteheadBlack", rest: "rest32nd", stem: true,
		flagUp: "flag32ndUp", flagDown: "flag32ndDown", beamCount: 3, stemExtension: 9},
	"64": {ticks: Resolution / 64, head: "noteheadBlack", rest: "rest64th", stem: true,
		flagUp: "flag64thUp", flagDown: "flag64thDown", beamCount: 4, stemExtension: 13},
	"128": {ticks: Resolution / 128, head: "noteheadBlack", rest: "rest128th", stem: true,
		flagUp: "flag128thUp", flagDown: "flag128thDown", beamCount: 5, stemExtension: 22},
}

// SanitizeDuration resolves aliases and validates a duration string such
// as "8", "q" or "1/2".
func SanitizeDuration(d string) (string, error) {
	d = strings.TrimSpace(d)
	if alias, ok := durationAliases[d]; ok {
		d = alias
	}
	if _, ok := durations[d]; !ok {
		return "", errors.New(errors.ErrCodeInvalidDuration, "unknown duration %q", d)
	}
	return d, nil
}

// DurationToTicks returns the ticks of an undotted duration.
func DurationToTicks(d string) (int64, error) {
	d, err := SanitizeDuration(d)
	if err != nil {
		return 0, err
	}
	return durations[d].ticks, nil
}

// DottedTicks returns the ticks of a duration with the given number of
// augmentation dots. Each dot adds half of what the previous one added.
func DottedTicks(d string, dots int) (fraction.Fraction, error) {
	base, err := DurationToTicks(d)
	if err != nil {
		return fraction.Fraction{}, err
	}
	if dots < 0 || dots > 4 {
		return fraction.Fraction{}, errors.New(errors.ErrCodeInvalidDuration, "unsupported dot count %d", dots)
	}
	total := fraction.FromInt(base)
	add := fraction.FromInt(base)
	for i := 0; i < dots; i++ {
		add.Div(fraction.FromInt(2))
		total.Add(add)
	}
	return total, nil
}

// QuarterTicks is the tick length of a quarter note.
const QuarterTicks = Resolution / 4

// Accidental glyph codes by type.
var accidentalCodes = map[string]string{
	"#":  "accidentalSharp",
	"b":  "accidentalFlat",
	"n":  "accidentalNatural",
	"##": "accidentalDoubleSharp",
	"bb": "accidentalDoubleFlat",
}
