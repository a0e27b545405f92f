package notation

import (
	"slices"
	"testing"

	"github.com/matzehuels/engrave/pkg/errors"
)

func TestNewStaveNote_StemDirection(t *testing.T) {
	tests := []struct {
		name  string
		lines []float64
		want  int
	}{
		{"below middle", []float64{2}, StemUp},
		{"middle line", []float64{3}, StemDown},
		{"above middle", []float64{4.5}, StemDown},
		{"chord averaging low", []float64{1, 4}, StemUp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := note(t, "4", tt.lines...)
			if got := n.StemDirection(); got != tt.want {
				t.Errorf("StemDirection() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNewStaveNote_Invalid(t *testing.T) {
	if _, err := NewStaveNote(NoteStruct{Duration: "4"}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("note without lines error = %v, want INVALID_INPUT", err)
	}
	if _, err := NewStaveNote(NoteStruct{Duration: "5", Lines: []float64{3}}); !errors.Is(err, errors.ErrCodeInvalidDuration) {
		t.Errorf("bad duration error = %v, want INVALID_DURATION", err)
	}
	if _, err := NewStaveNote(NoteStruct{Duration: "4", Lines: []float64{3}, StemDirection: 2}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("bad stem direction error = %v, want INVALID_INPUT", err)
	}
}

func TestNewStaveNote_Rest(t *testing.T) {
	r := rest(t, "8")
	if r.Kind() != KindRest || !r.IsRest() {
		t.Errorf("Kind() = %v, IsRest() = %v", r.Kind(), r.IsRest())
	}
	if got := r.KeyLine(0); got != 3 {
		t.Errorf("KeyLine(0) = %g, want 3", got)
	}
	if r.RestPositioned() {
		t.Error("RestPositioned() = true for a default rest")
	}
	if r.HasStem() || r.HasFlag() {
		t.Error("rest reports a stem or flag")
	}

	placed, err := NewStaveNote(NoteStruct{Duration: "4", Rest: true, Lines: []float64{4}})
	if err != nil {
		t.Fatalf("NewStaveNote() error: %v", err)
	}
	if !placed.RestPositioned() {
		t.Error("RestPositioned() = false for an explicit rest line")
	}
}

func TestStaveNote_Displacement(t *testing.T) {
	n := note(t, "4", 3.5, 3, 1)
	if got, want := n.Lines(), []float64{1, 3, 3.5}; !slices.Equal(got, want) {
		t.Fatalf("Lines() = %v, want %v", got, want)
	}
	if got, want := n.Displaced(), []bool{false, false, true}; !slices.Equal(got, want) {
		t.Errorf("Displaced() = %v, want %v", got, want)
	}
}

func TestStaveNote_WidthBeforePreFormat(t *testing.T) {
	n := note(t, "4", 3)
	if _, err := n.Width(); !errors.Is(err, errors.ErrCodeUnformatted) {
		t.Errorf("Width() error = %v, want UNFORMATTED", err)
	}
	if _, err := n.StemX(); !errors.Is(err, errors.ErrCodeUnformatted) {
		t.Errorf("StemX() error = %v, want UNFORMATTED", err)
	}
	if _, err := n.TickContext(); !errors.Is(err, errors.ErrCodeNoTickContext) {
		t.Errorf("TickContext() error = %v, want NO_TICK_CONTEXT", err)
	}
	if _, err := n.Voice(); !errors.Is(err, errors.ErrCodeNoVoice) {
		t.Errorf("Voice() error = %v, want NO_VOICE", err)
	}
}

func TestStaveNote_PreFormatWidth(t *testing.T) {
	env := testEnv()
	tests := []struct {
		name  string
		note  *StaveNote
		width float64
	}{
		// notehead 11.8 plus head padding
		{"quarter", note(t, "4", 3), 13.8},
		{"half", note(t, "2", 3), 13.8},
		// up flag adds 10.56
		{"eighth stem up", note(t, "8", 2), 24.36},
		{"eighth stem down", note(t, "8", 4), 13.8},
		// second interval on a down stem displaces a head to the left
		{"second down", note(t, "4", 4, 4.5), 25.6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.note.PreFormat(env); err != nil {
				t.Fatalf("PreFormat() error: %v", err)
			}
			w, err := tt.note.Width()
			if err != nil {
				t.Fatalf("Width() error: %v", err)
			}
			if !approx(w, tt.width) {
				t.Errorf("Width() = %g, want %g", w, tt.width)
			}
		})
	}
}

func TestStaveNote_BeamRemovesFlagWidth(t *testing.T) {
	env := testEnv()
	a, b := note(t, "8", 2), note(t, "8", 2)
	if err := a.PreFormat(env); err != nil {
		t.Fatal(err)
	}
	flagged, _ := a.Width()

	if _, err := NewBeam([]*StaveNote{a, b}, false); err != nil {
		t.Fatalf("NewBeam() error: %v", err)
	}
	if a.PreFormatted() {
		t.Error("PreFormatted() = true after beaming")
	}
	if err := a.PreFormat(env); err != nil {
		t.Fatal(err)
	}
	beamed, _ := a.Width()
	if beamed >= flagged {
		t.Errorf("beamed width %g, want less than flagged width %g", beamed, flagged)
	}
}

func TestStaveNote_AddModifierOutOfRange(t *testing.T) {
	n := note(t, "4", 3)
	acc, err := NewAccidental("#")
	if err != nil {
		t.Fatalf("NewAccidental() error: %v", err)
	}
	if err := n.AddModifier(acc, 1); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("AddModifier() error = %v, want INVALID_INPUT", err)
	}
	if _, err := NewAccidental("x"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("NewAccidental(x) error = %v, want INVALID_INPUT", err)
	}
}

func TestStaveNote_StemExtents(t *testing.T) {
	stave := NewStave(0, 0, 300, nil)
	n := note(t, "4", 2)
	n.SetStave(stave)
	tip, base, err := n.StemExtents()
	if err != nil {
		t.Fatalf("StemExtents() error: %v", err)
	}
	// line 2 sits at y 70; the up stem reaches 35 above it
	if tip != 35 || base != 70 {
		t.Errorf("StemExtents() = (%g, %g), want (35, 70)", tip, base)
	}
}
