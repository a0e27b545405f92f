package notation

import (
	"math"
	"testing"

	"github.com/matzehuels/engrave/pkg/glyph"
)

func testEnv() *Env {
	env := DefaultEnv()
	env.Glyphs = glyph.Static{}
	return env
}

func note(t *testing.T, duration string, lines ...float64) *StaveNote {
	t.Helper()
	n, err := NewStaveNote(NoteStruct{Duration: duration, Lines: lines})
	if err != nil {
		t.Fatalf("NewStaveNote(%q, %v) error: %v", duration, lines, err)
	}
	return n
}

func rest(t *testing.T, duration string) *StaveNote {
	t.Helper()
	n, err := NewStaveNote(NoteStruct{Duration: duration, Rest: true})
	if err != nil {
		t.Fatalf("NewStaveNote(rest %q) error: %v", duration, err)
	}
	return n
}

// place puts each note on stave in its own tick context at the given x.
func place(t *testing.T, env *Env, stave *Stave, notes []*StaveNote, xs []float64) {
	t.Helper()
	for i, n := range notes {
		n.SetStave(stave)
		tc := NewTickContext(int64(i))
		tc.AddTickable(n, 0)
		if err := tc.PreFormat(env); err != nil {
			t.Fatalf("PreFormat() error: %v", err)
		}
		tc.SetX(xs[i])
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }
