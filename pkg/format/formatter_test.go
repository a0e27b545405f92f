package format

import (
	"math"
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

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

// voice builds a voice of notes on the given line, one per duration.
func voice(t *testing.T, sig string, line float64, durations ...string) *notation.Voice {
	t.Helper()
	tm, err := notation.ParseTime(sig)
	if err != nil {
		t.Fatal(err)
	}
	v, err := notation.NewVoice(tm)
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range durations {
		n, err := notation.NewStaveNote(notation.NoteStruct{Duration: d, Lines: []float64{line}})
		if err != nil {
			t.Fatal(err)
		}
		if err := v.AddTickable(n); err != nil {
			t.Fatalf("AddTickable(%s) error: %v", d, err)
		}
	}
	return v
}

// onStaves gives every voice its own stave.
func onStaves(t *testing.T, env *notation.Env, voices ...*notation.Voice) []*notation.Voice {
	t.Helper()
	for i, v := range voices {
		v.SetStave(notation.NewStave(0, float64(i)*100, 500, env))
		if err := v.PreFormat(); err != nil {
			t.Fatal(err)
		}
	}
	return voices
}

func quarterVoices(t *testing.T, env *notation.Env) []*notation.Voice {
	return onStaves(t, env,
		voice(t, "4/4", 3, "4", "4", "4", "4"),
		voice(t, "4/4", 3, "4", "4", "4", "4"),
		voice(t, "4/4", 3, "4", "4", "4", "4"),
	)
}

func TestFormat_ThreeVoicesOfQuarters(t *testing.T) {
	env := testEnv()
	f := New(WithEnv(env))
	cost, err := f.Format(quarterVoices(t, env), 400, Options{})
	if err != nil {
		t.Fatalf("Format() error: %v", err)
	}

	contexts := f.TickContexts()
	if len(contexts) != 4 {
		t.Fatalf("len(TickContexts()) = %d, want 4", len(contexts))
	}
	want := []float64{0, 96.55, 193.1, 289.65}
	for i, tc := range contexts {
		if !near(tc.X(), want[i]) {
			t.Errorf("context %d X = %g, want %g", i, tc.X(), want[i])
		}
		if i > 0 && tc.X() <= contexts[i-1].X() {
			t.Errorf("context %d X = %g is not right of %g", i, tc.X(), contexts[i-1].X())
		}
		if got := len(tc.Tickables()); got != 3 {
			t.Errorf("context %d has %d tickables, want 3", i, got)
		}
	}

	minWidth, err := f.MinTotalWidth()
	if err != nil {
		t.Fatal(err)
	}
	if !near(minWidth, 4*15.8) {
		t.Errorf("MinTotalWidth() = %g, want %g", minWidth, 4*15.8)
	}

	envelope, err := f.JustifyEnvelope()
	if err != nil {
		t.Fatalf("JustifyEnvelope() error: %v", err)
	}
	// The envelope spans padMax and ends padMin short of the width, where
	// padMin trails padMax by the configured end padding range.
	padMax := envelope.Max - envelope.Min
	padMin := padMax - (env.EndPaddingMax - env.EndPaddingMin)
	if padMax < env.EndPaddingMax {
		t.Errorf("envelope span = %g, want at least EndPaddingMax %g", padMax, env.EndPaddingMax)
	}
	if !near(envelope.Max, 400-padMin) {
		t.Errorf("JustifyEnvelope().Max = %g, want 400 - padMin = %g", envelope.Max, 400-padMin)
	}
	edge, err := f.RightEdge()
	if err != nil {
		t.Fatal(err)
	}
	if !envelope.Contains(edge) || edge > 400 || edge < 400-(padMin+padMax) {
		t.Errorf("RightEdge() = %g, outside %+v", edge, envelope)
	}
	if f.Iterations() != 0 {
		t.Errorf("Iterations() = %d, want 0", f.Iterations())
	}

	// every quarter but the last uses 96.55 px; the last runs to 400
	if !near(cost, 20.7) {
		t.Errorf("cost = %g, want 20.7", cost)
	}
}

// justifyVoices builds one voice per duration list, each on its own stave.
func justifyVoices(t *testing.T, env *notation.Env, durations [][]string) []*notation.Voice {
	t.Helper()
	var voices []*notation.Voice
	for _, ds := range durations {
		voices = append(voices, voice(t, "4/4", 2, ds...))
	}
	return onStaves(t, env, voices...)
}

// checkJustified formats at width and checks the right edge landed in the
// envelope without passing the width.
func checkJustified(t *testing.T, durations [][]string, width float64) {
	t.Helper()
	env := testEnv()
	f := New(WithEnv(env))
	if _, err := f.Format(justifyVoices(t, env, durations), width, Options{}); err != nil {
		t.Fatalf("Format(%g) error: %v", width, err)
	}
	envelope, err := f.JustifyEnvelope()
	if err != nil {
		t.Fatal(err)
	}
	edge, err := f.RightEdge()
	if err != nil {
		t.Fatal(err)
	}
	if !envelope.Contains(edge) {
		t.Errorf("width %g: RightEdge() = %g, outside %+v after %d iterations", width, edge, envelope, f.Iterations())
	}
	if edge > width+1e-6 {
		t.Errorf("width %g: RightEdge() = %g beyond the width", width, edge)
	}
	if f.Iterations() > env.MaxIterations {
		t.Errorf("width %g: Iterations() = %d, cap %d", width, f.Iterations(), env.MaxIterations)
	}
}

// minWidthOf is the minimum total width of the voices.
func minWidthOf(t *testing.T, durations [][]string) float64 {
	t.Helper()
	env := testEnv()
	f := New(WithEnv(env))
	if _, err := f.Format(justifyVoices(t, env, durations), 0, Options{}); err != nil {
		t.Fatal(err)
	}
	w, err := f.MinTotalWidth()
	if err != nil {
		t.Fatal(err)
	}
	return w
}

var justifySets = []struct {
	name      string
	durations [][]string
}{
	{"quarters", [][]string{{"4", "4", "4", "4"}}},
	{"mixed", [][]string{{"2", "4", "4"}}},
	{"two voices", [][]string{{"2", "4", "8", "8"}, {"4", "4", "4", "4"}}},
	{"sixteenths", [][]string{{"16", "16", "16", "16", "8", "8", "2"}}},
	{"three voices", [][]string{{"8", "8", "8", "8", "2"}, {"4", "4", "2"}, {"1"}}},
	{"dense", [][]string{{"16", "16", "16", "16", "16", "16", "16", "16", "4", "4"}}},
}

func TestFormat_JustificationConverges(t *testing.T) {
	tests := []struct {
		name      string
		durations [][]string
		width     float64
	}{
		{"quarters narrow", [][]string{{"4", "4", "4", "4"}}, 200},
		{"quarters wide", [][]string{{"4", "4", "4", "4"}}, 800},
		{"mixed", [][]string{{"2", "4", "4"}}, 400},
		{"two voices", [][]string{{"2", "4", "8", "8"}, {"4", "4", "4", "4"}}, 500},
		{"two voices mid", [][]string{{"2", "4", "8", "8"}, {"4", "4", "4", "4"}}, 550},
		{"sixteenths", [][]string{{"16", "16", "16", "16", "8", "8", "2"}}, 600},
		{"sixteenths tight", [][]string{{"16", "16", "16", "16", "8", "8", "2"}}, 179},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if minW := minWidthOf(t, tt.durations); minW > tt.width {
				t.Fatalf("MinTotalWidth() = %g exceeds the target %g", minW, tt.width)
			}
			checkJustified(t, tt.durations, tt.width)
		})
	}
}

func TestFormat_JustificationAtMinimumWidth(t *testing.T) {
	for _, set := range justifySets {
		t.Run(set.name, func(t *testing.T) {
			minW := minWidthOf(t, set.durations)
			for _, eps := range []float64{0, 0.01, 0.5, 1, 5} {
				checkJustified(t, set.durations, minW+eps)
			}
		})
	}
}

func TestFormat_JustificationSweep(t *testing.T) {
	for _, set := range justifySets {
		t.Run(set.name, func(t *testing.T) {
			minW := minWidthOf(t, set.durations)
			for w := math.Ceil(minW); w <= 1200; w += 7 {
				checkJustified(t, set.durations, w)
			}
		})
	}
}

// softVoice is like voice but switches to soft mode before appending, so
// the durations may overrun the bar.
func softVoice(t *testing.T, sig string, line float64, durations ...string) *notation.Voice {
	t.Helper()
	tm, err := notation.ParseTime(sig)
	if err != nil {
		t.Fatal(err)
	}
	v, err := notation.NewVoice(tm)
	if err != nil {
		t.Fatal(err)
	}
	v.SetMode(notation.ModeSoft)
	for _, d := range durations {
		n, err := notation.NewStaveNote(notation.NoteStruct{Duration: d, Lines: []float64{line}})
		if err != nil {
			t.Fatal(err)
		}
		if err := v.AddTickable(n); err != nil {
			t.Fatalf("AddTickable(%s) error: %v", d, err)
		}
	}
	return v
}

func minTotalWidth(t *testing.T, env *notation.Env, voices ...*notation.Voice) float64 {
	t.Helper()
	f := New(WithEnv(env))
	if _, err := f.Format(onStaves(t, env, voices...), 0, Options{}); err != nil {
		t.Fatalf("Format() error: %v", err)
	}
	w, err := f.MinTotalWidth()
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func TestFormat_MinimumWidthGrowsWithNotes(t *testing.T) {
	tests := []struct {
		name      string
		durations []string
	}{
		{"quarters", []string{"4", "4", "4", "4", "4", "4"}},
		{"mixed", []string{"8", "8", "4", "2", "1"}},
		{"flags", []string{"16", "16", "8", "4", "32", "2"}},
		{"shortening", []string{"2", "4", "8", "16", "16"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testEnv()
			prev := 0.0
			for i := 1; i <= len(tt.durations); i++ {
				prefix := tt.durations[:i]
				w := minTotalWidth(t, env, softVoice(t, "4/4", 2, prefix...))
				if w < prev {
					t.Errorf("MinTotalWidth(%v) = %g, less than %g before the last note", prefix, w, prev)
				}
				prev = w
			}
		})
	}
}

func TestFormat_MinimumWidthGrowsWithSecondVoice(t *testing.T) {
	env := testEnv()
	single := minTotalWidth(t, env, softVoice(t, "4/4", 2, "4", "4", "4", "4"))
	both := minTotalWidth(t, env,
		softVoice(t, "4/4", 2, "4", "4", "4", "4"),
		softVoice(t, "4/4", 2, "8", "8", "4", "4", "4"),
	)
	if both < single {
		t.Errorf("MinTotalWidth() with a second voice = %g, want >= %g", both, single)
	}
}

func TestFormat_LongerDurationKeepsWidth(t *testing.T) {
	durations := []string{"8", "8", "4", "16", "16", "4"}
	for idx := range durations {
		for _, factor := range []int64{2, 3, 4} {
			env := testEnv()
			v := softVoice(t, "4/4", 2, durations...)
			before := minTotalWidth(t, env, v)

			tk := v.Tickables()[idx]
			longer := tk.IntrinsicTicks()
			longer.MulInt(factor)
			tk.SetIntrinsicTicks(longer)
			after := minTotalWidth(t, env, v)

			if after < before {
				t.Errorf("MinTotalWidth() fell from %g to %g after lengthening note %d by %d", before, after, idx, factor)
			}
		}
	}
}

func TestEvaluate_CostNonNegative(t *testing.T) {
	env := testEnv()
	for _, width := range []float64{0, 300, 500} {
		voices := onStaves(t, env,
			voice(t, "4/4", 2, "2", "8", "8", "4"),
			voice(t, "4/4", 2, "4", "4", "4", "4"),
		)
		f := New(WithEnv(env))
		cost, err := f.Format(voices, width, Options{})
		if err != nil {
			t.Fatal(err)
		}
		if cost < 0 || math.IsNaN(cost) {
			t.Errorf("cost at width %g = %g, want >= 0", width, cost)
		}
	}
}

func TestTune_NeverIncreasesCost(t *testing.T) {
	env := testEnv()
	voices := onStaves(t, env,
		voice(t, "4/4", 2, "2", "8", "8", "4"),
		voice(t, "4/4", 2, "4", "4", "4", "4"),
	)
	f := New(WithEnv(env))
	cost, err := f.Format(voices, 500, Options{})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 6; i++ {
		next, err := f.Tune(0)
		if err != nil {
			t.Fatalf("Tune() error: %v", err)
		}
		if next > cost+1e-9 {
			t.Errorf("Tune() pass %d raised cost from %g to %g", i, cost, next)
		}
		cost = next
	}
	if got := len(f.LossHistory()); got < 7 {
		t.Errorf("len(LossHistory()) = %d, want at least 7", got)
	}
	for i := 1; i < len(f.TickContexts()); i++ {
		if f.TickContexts()[i].X() < f.TickContexts()[i-1].X() {
			t.Errorf("context %d moved left of its predecessor", i)
		}
	}
}

func TestFormatter_Sequencing(t *testing.T) {
	f := New(WithEnv(testEnv()))
	if _, err := f.MinTotalWidth(); !errors.Is(err, errors.ErrCodeUnformatted) {
		t.Errorf("MinTotalWidth() error = %v, want UNFORMATTED", err)
	}
	if _, err := f.Evaluate(); !errors.Is(err, errors.ErrCodeUnformatted) {
		t.Errorf("Evaluate() error = %v, want UNFORMATTED", err)
	}
	if _, err := f.Tune(0.5); !errors.Is(err, errors.ErrCodeUnformatted) {
		t.Errorf("Tune() error = %v, want UNFORMATTED", err)
	}
	if _, err := f.PreFormat(400, nil); !errors.Is(err, errors.ErrCodePrecondition) {
		t.Errorf("PreFormat() error = %v, want PRECONDITION", err)
	}
	if err := f.PostFormat(); !errors.Is(err, errors.ErrCodeUnformatted) {
		t.Errorf("PostFormat() error = %v, want UNFORMATTED", err)
	}
	if _, err := f.JustifyEnvelope(); !errors.Is(err, errors.ErrCodeUnformatted) {
		t.Errorf("JustifyEnvelope() error = %v, want UNFORMATTED", err)
	}
	if _, err := f.Format(nil, 400, Options{}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Format(nil) error = %v, want INVALID_INPUT", err)
	}
}

func TestCreateTickContexts_Consistency(t *testing.T) {
	env := testEnv()
	f := New(WithEnv(env))

	mismatch := []*notation.Voice{
		voice(t, "4/4", 2, "1"),
		voice(t, "3/4", 2, "2", "4"),
	}
	if err := f.CreateTickContexts(mismatch); !errors.Is(err, errors.ErrCodeTickMismatch) {
		t.Errorf("CreateTickContexts() error = %v, want TICK_MISMATCH", err)
	}

	incomplete := []*notation.Voice{voice(t, "4/4", 2, "2")}
	if err := f.CreateTickContexts(incomplete); !errors.Is(err, errors.ErrCodeIncompleteVoice) {
		t.Errorf("CreateTickContexts() error = %v, want INCOMPLETE_VOICE", err)
	}
	if f.TickContexts() != nil {
		t.Error("failed pass left tick contexts behind")
	}

	incomplete[0].SetMode(notation.ModeSoft)
	if err := f.CreateTickContexts(incomplete); err != nil {
		t.Errorf("CreateTickContexts(soft) error: %v", err)
	}
}

func TestCreateTickContexts_Triplets(t *testing.T) {
	tm, _ := notation.ParseTime("4/4")
	v, _ := notation.NewVoice(tm)
	var triplet []*notation.StaveNote
	for i := 0; i < 3; i++ {
		n, _ := notation.NewStaveNote(notation.NoteStruct{Duration: "8", Lines: []float64{2}})
		triplet = append(triplet, n)
	}
	if _, err := notation.NewTuplet(triplet, notation.TupletOptions{}); err != nil {
		t.Fatal(err)
	}
	for _, n := range triplet {
		if err := v.AddTickable(n); err != nil {
			t.Fatal(err)
		}
	}
	for _, d := range []string{"4", "2"} {
		n, _ := notation.NewStaveNote(notation.NoteStruct{Duration: d, Lines: []float64{2}})
		if err := v.AddTickable(n); err != nil {
			t.Fatal(err)
		}
	}
	quarters := voice(t, "4/4", 4, "4", "4", "4", "4")

	f := New(WithEnv(testEnv()))
	if err := f.CreateTickContexts([]*notation.Voice{v, quarters}); err != nil {
		t.Fatalf("CreateTickContexts() error: %v", err)
	}
	if got := f.ResolutionMultiplier(); got != 3 {
		t.Errorf("ResolutionMultiplier() = %d, want 3", got)
	}
	var ids []int64
	for _, tc := range f.TickContexts() {
		ids = append(ids, tc.TickID())
	}
	want := []int64{0, 4096, 8192, 12288, 24576, 36864}
	if len(ids) != len(want) {
		t.Fatalf("tick ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("tick ids = %v, want %v", ids, want)
			break
		}
	}
}

func TestFormatToStave(t *testing.T) {
	env := testEnv()
	stave := notation.NewStave(10, 0, 400, env)
	v := voice(t, "4/4", 2, "4", "4", "4", "4")
	f := New(WithEnv(env))
	if _, err := f.FormatToStave([]*notation.Voice{v}, stave, Options{}); err != nil {
		t.Fatalf("FormatToStave() error: %v", err)
	}
	if got := f.JustifyWidth(); got != 378 {
		t.Errorf("JustifyWidth() = %g, want 378", got)
	}
	for i, tc := range f.TickContexts() {
		if !tc.PostFormatted() {
			t.Errorf("context %d not post-formatted", i)
		}
	}
	s, err := v.Tickables()[0].Stave()
	if err != nil || s != stave {
		t.Errorf("Stave() = %v, %v; want the target stave", s, err)
	}
	if _, err := f.FormatToStave([]*notation.Voice{v}, nil, Options{}); !errors.Is(err, errors.ErrCodeNoStave) {
		t.Errorf("FormatToStave(nil) error = %v, want NO_STAVE", err)
	}
}

func TestPreCalculateMinTotalWidth(t *testing.T) {
	env := testEnv()
	f := New(WithEnv(env))
	w, err := f.PreCalculateMinTotalWidth([]*notation.Voice{voice(t, "4/4", 2, "4", "4", "4", "4")})
	if err != nil {
		t.Fatal(err)
	}
	if !near(w, 4*15.8) {
		t.Errorf("aligned width = %g, want %g", w, 4*15.8)
	}

	g := New(WithEnv(env))
	w, err = g.PreCalculateMinTotalWidth([]*notation.Voice{
		voice(t, "4/4", 5, "4", "4", "4", "4"),
		voice(t, "4/4", 1, "2", "2"),
	})
	if err != nil {
		t.Fatal(err)
	}
	// two contexts lack the second voice: 2 × 10 px
	if !near(w, 4*15.8+20) {
		t.Errorf("unaligned width = %g, want %g", w, 4*15.8+20)
	}
}

func TestSimpleFormat(t *testing.T) {
	var ts []notation.Tickable
	for i := 0; i < 3; i++ {
		n, _ := notation.NewStaveNote(notation.NoteStruct{Duration: "4", Lines: []float64{3}})
		ts = append(ts, n)
	}
	if err := SimpleFormat(ts, 0, DefaultPaddingBetween, testEnv()); err != nil {
		t.Fatalf("SimpleFormat() error: %v", err)
	}
	for i, tk := range ts {
		x, err := tk.X()
		if err != nil {
			t.Fatal(err)
		}
		if want := float64(i) * 25.8; !near(x, want) {
			t.Errorf("note %d X = %g, want %g", i, x, want)
		}
	}
}

func TestAlignRests(t *testing.T) {
	f := New()
	if err := f.AlignRests(nil, true); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("AlignRests(nil) error = %v, want INVALID_INPUT", err)
	}

	tm, _ := notation.ParseTime("3/4")
	v, _ := notation.NewVoice(tm)
	n1, _ := notation.NewStaveNote(notation.NoteStruct{Duration: "4", Lines: []float64{5}})
	r, _ := notation.NewStaveNote(notation.NoteStruct{Duration: "4", Rest: true})
	n2, _ := notation.NewStaveNote(notation.NoteStruct{Duration: "4", Lines: []float64{5}})
	if err := v.AddTickables(n1, r, n2); err != nil {
		t.Fatal(err)
	}
	if err := f.AlignRests([]*notation.Voice{v}, true); err != nil {
		t.Fatal(err)
	}
	if got := r.KeyLine(0); got != 5 {
		t.Errorf("rest line = %g, want 5", got)
	}
}

func TestFormat_SingleContext(t *testing.T) {
	env := testEnv()
	v := onStaves(t, env, voice(t, "4/4", 2, "1"))
	f := New(WithEnv(env))
	cost, err := f.Format(v, 400, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if cost < 0 {
		t.Errorf("cost = %g, want >= 0", cost)
	}
	if _, err := f.JustifyEnvelope(); err == nil {
		t.Error("single context reported a justification envelope")
	}
}
