package score

import (
	"bytes"
	"strings"
	"testing"

	"github.com/matzehuels/engrave/pkg/errors"
	"github.com/matzehuels/engrave/pkg/glyph"
	"github.com/matzehuels/engrave/pkg/notation"
)

func testEnv() *notation.Env {
	env := notation.DefaultEnv()
	env.Glyphs = glyph.Static{}
	return env
}

func TestLoadAndBuild(t *testing.T) {
	doc, err := Load("testdata/triplets.yaml")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if doc.Title != "Triplets over quarters" || doc.StaveWidth() != 400 {
		t.Errorf("doc = %q width %g", doc.Title, doc.StaveWidth())
	}

	sc, err := doc.Build(testEnv())
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if len(sc.Staves) != 2 || len(sc.Voices) != 2 {
		t.Fatalf("built %d staves, %d voices; want 2, 2", len(sc.Staves), len(sc.Voices))
	}
	if sc.VoiceStave[1] != 1 {
		t.Errorf("VoiceStave = %v, want [0 1]", sc.VoiceStave)
	}
	if sc.Staves[1].Y != MarginY+StaveSpacing {
		t.Errorf("second stave Y = %g, want %d", sc.Staves[1].Y, MarginY+StaveSpacing)
	}
	if !sc.Voices[0].IsComplete() {
		t.Errorf("first voice uses %s of %s", sc.Voices[0].TicksUsed(), sc.Voices[0].TotalTicks())
	}

	// triplet in the first beat, a pair of eighths in the third
	if len(sc.Beams) != 2 {
		t.Fatalf("len(Beams) = %d, want 2", len(sc.Beams))
	}
	if got := len(sc.Beams[0].Notes()); got != 3 {
		t.Errorf("first beam has %d notes, want 3", got)
	}
	if len(sc.Tuplets) != 1 {
		t.Fatalf("len(Tuplets) = %d, want 1", len(sc.Tuplets))
	}
	tu := sc.Tuplets[0]
	if tu.Bracketed() {
		t.Error("beamed triplet is bracketed")
	}
	if tu.NoteCount() != 3 || tu.NotesOccupied() != 2 {
		t.Errorf("tuplet %d:%d, want 3:2", tu.NoteCount(), tu.NotesOccupied())
	}

	first := sc.Voices[0].Tickables()[1].(*notation.StaveNote)
	if len(first.Modifiers()) != 1 {
		t.Errorf("second note has %d modifiers, want 1 accidental", len(first.Modifiers()))
	}
	s, err := first.Stave()
	if err != nil || s != sc.Staves[0] {
		t.Errorf("note stave = %v, %v", s, err)
	}
}

func TestExplicitBeams(t *testing.T) {
	doc, err := Parse([]byte(`
time: 2/4
staves:
  - voices:
      - notes:
          - {duration: "8", lines: [3]}
          - {duration: "8", lines: [3]}
          - {duration: "8", lines: [3]}
          - {duration: "8", lines: [3]}
        beams: [[1, 2]]
        auto_beam: {}
`))
	if err != nil {
		t.Fatal(err)
	}
	sc, err := doc.Build(testEnv())
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	// the explicit middle pair leaves single eighths on both sides
	if len(sc.Beams) != 1 {
		t.Errorf("len(Beams) = %d, want 1", len(sc.Beams))
	}
	notes := sc.Voices[0].Tickables()
	if notes[0].(*notation.StaveNote).Beam() != nil || notes[3].(*notation.StaveNote).Beam() != nil {
		t.Error("auto-beaming joined notes around an explicit beam")
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		code errors.Code
	}{
		{"empty", "", errors.ErrCodeInvalidFormat},
		{"unknown field", "time: 4/4\ntempo: 90\nstaves: []\n", errors.ErrCodeInvalidFormat},
		{"bad meter", "time: 4/3\nstaves: [{voices: [{notes: [{duration: '4', lines: [3]}]}]}]\n", errors.ErrCodeInvalidMeter},
		{"no staves", "time: 4/4\n", errors.ErrCodeInvalidInput},
		{"no notes", "time: 4/4\nstaves: [{voices: [{notes: []}]}]\n", errors.ErrCodeInvalidInput},
		{"beam index", "time: 4/4\nstaves: [{voices: [{notes: [{duration: '8', lines: [3]}], beams: [[0, 4]]}]}]\n", errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if !errors.Is(err, tt.code) {
				t.Errorf("Parse() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		code errors.Code
	}{
		{"overflow", "time: 2/4\nstaves: [{voices: [{notes: [{duration: '2', lines: [3]}, {duration: '4', lines: [3]}]}]}]\n", errors.ErrCodeTooManyTicks},
		{"duration", "time: 4/4\nstaves: [{voices: [{notes: [{duration: '7', lines: [3]}]}]}]\n", errors.ErrCodeInvalidDuration},
		{"accidental", "time: 4/4\nstaves: [{voices: [{notes: [{duration: '1', lines: [3], accidentals: [{type: x}]}]}]}]\n", errors.ErrCodeInvalidInput},
		{"stem", "time: 4/4\nstaves: [{voices: [{notes: [{duration: '1', lines: [3], stem: sideways}]}]}]\n", errors.ErrCodeInvalidInput},
		{"unbeamable", "time: 2/4\nstaves: [{voices: [{notes: [{duration: '4', lines: [3]}, {duration: '4', lines: [3]}], beams: [[0, 1]]}]}]\n", errors.ErrCodeUnbeamable},
		{"tuplet on bar", "time: 4/4\nstaves: [{voices: [{mode: soft, notes: [{bar: true}, {duration: '8', lines: [3]}], tuplets: [{notes: [0, 1]}]}]}]\n", errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte(tt.yaml))
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}
			_, err = doc.Build(testEnv())
			if !errors.Is(err, tt.code) {
				t.Errorf("Build() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestEncodeStable(t *testing.T) {
	doc, err := Load("testdata/triplets.yaml")
	if err != nil {
		t.Fatal(err)
	}
	a, err := doc.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	again, err := Parse(a)
	if err != nil {
		t.Fatalf("Parse(Bytes()) error: %v", err)
	}
	b, _ := again.Bytes()
	if !bytes.Equal(a, b) {
		t.Errorf("encoding is not stable:\n%s\n---\n%s", a, b)
	}
	if !strings.Contains(string(a), "lines: [3]") {
		t.Errorf("lines not written in flow style:\n%s", a)
	}
}
