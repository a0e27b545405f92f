package pipeline

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/engrave/pkg/cache"
	"github.com/matzehuels/engrave/pkg/config"
	"github.com/matzehuels/engrave/pkg/errors"
	"github.com/matzehuels/engrave/pkg/observability"
	"github.com/matzehuels/engrave/pkg/render"
	"github.com/matzehuels/engrave/pkg/score"
)

const quarters = `
title: Three voices
time: 4/4
width: 400
staves:
  - voices:
      - notes: [{duration: "4", lines: [4]}, {duration: "4", lines: [4]}, {duration: "4", lines: [4]}, {duration: "4", lines: [4]}]
      - notes: [{duration: "4", lines: [2]}, {duration: "4", lines: [2]}, {duration: "4", lines: [2]}, {duration: "4", lines: [2]}]
      - notes: [{duration: "4", lines: [0]}, {duration: "4", lines: [0]}, {duration: "4", lines: [0]}, {duration: "4", lines: [0]}]
`

const mixed = `
time: 4/4
staves:
  - voices:
      - notes:
          - {duration: "8", lines: [3]}
          - {duration: "8", lines: [4]}
          - {duration: "4", dots: 1, lines: [2]}
          - {duration: "16", lines: [3]}
          - {duration: "16", lines: [4]}
          - {duration: "4", rest: true}
        auto_beam: {}
  - voices:
      - notes: [{duration: "2", lines: [1]}, {duration: "2", lines: [2]}]
`

func testDoc(t *testing.T, text string) *score.Document {
	t.Helper()
	doc, err := score.Parse([]byte(text))
	if err != nil {
		t.Fatalf("score.Parse() error: %v", err)
	}
	return doc
}

func testOptions() Options {
	cfg := config.Default()
	cfg.Font.TextFont = "static"
	return Options{Config: cfg}
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"svg", false},
		{"png", false},
		{"json", false},
		{"pdf", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}

func TestOptionsSetDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Formatter.TunePasses = 3
	cfg.Formatter.AlignRests = true

	opts := Options{Config: cfg}
	opts.SetDefaults()
	if opts.TunePasses != 3 || !opts.AlignRests {
		t.Errorf("config not applied: passes %d, align %v", opts.TunePasses, opts.AlignRests)
	}
	if len(opts.Formats) != 1 || opts.Formats[0] != FormatSVG {
		t.Errorf("Formats = %v, want [svg]", opts.Formats)
	}
	if opts.Scale != DefaultScale || opts.Logger == nil {
		t.Errorf("Scale = %g, Logger = %v", opts.Scale, opts.Logger)
	}

	explicit := Options{Config: cfg, TunePasses: 1}
	explicit.SetDefaults()
	if explicit.TunePasses != 1 {
		t.Errorf("TunePasses = %d, want 1", explicit.TunePasses)
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"negative width", Options{Width: -1}},
		{"negative passes", Options{TunePasses: -2}},
		{"negative scale", Options{Scale: -1}},
		{"bad format", Options{Formats: []string{"pdf"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.opts
			opts.SetDefaults()
			if err := opts.Validate(); !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("Validate() = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestComputeLayout(t *testing.T) {
	l, err := ComputeLayout(context.Background(), testDoc(t, quarters), testOptions())
	if err != nil {
		t.Fatalf("ComputeLayout() error: %v", err)
	}
	if len(l.Contexts) != 4 {
		t.Fatalf("len(Contexts) = %d, want 4", len(l.Contexts))
	}
	if len(l.Notes) != 12 {
		t.Errorf("len(Notes) = %d, want 12", len(l.Notes))
	}
	for i := 1; i < len(l.Contexts); i++ {
		if l.Contexts[i].X <= l.Contexts[i-1].X {
			t.Errorf("context %d at %g is not right of %g", i, l.Contexts[i].X, l.Contexts[i-1].X)
		}
	}
	if l.Envelope == nil {
		t.Fatal("justified layout has no envelope")
	}
	const eps = 1e-6
	if l.Envelope.RightEdge < l.Envelope.Min-eps || l.Envelope.RightEdge > l.Envelope.Max+eps {
		t.Errorf("right edge %g outside [%g, %g]", l.Envelope.RightEdge, l.Envelope.Min, l.Envelope.Max)
	}
	if l.Cost < 0 {
		t.Errorf("Cost = %g, want >= 0", l.Cost)
	}
}

func TestComputeLayoutWidth(t *testing.T) {
	ctx := context.Background()
	doc := testDoc(t, quarters)

	narrow := testOptions()
	narrow.Width = 300
	wide := testOptions()
	wide.Width = 700

	ln, err := ComputeLayout(ctx, doc, narrow)
	if err != nil {
		t.Fatal(err)
	}
	lw, err := ComputeLayout(ctx, doc, wide)
	if err != nil {
		t.Fatal(err)
	}
	if ln.Width >= lw.Width {
		t.Errorf("layout widths %g and %g do not follow the option", ln.Width, lw.Width)
	}
	last := len(ln.Contexts) - 1
	if ln.Contexts[last].X >= lw.Contexts[last].X {
		t.Errorf("last context at %g in narrow layout, %g in wide", ln.Contexts[last].X, lw.Contexts[last].X)
	}
	if doc.Width != 400 {
		t.Errorf("document width changed to %g", doc.Width)
	}
}

func TestEngineTune(t *testing.T) {
	ctx := context.Background()
	e, err := Prepare(ctx, testDoc(t, mixed), testOptions())
	if err != nil {
		t.Fatalf("Prepare() error: %v", err)
	}
	cost := e.Cost()
	for i := 0; i < 5; i++ {
		next, err := e.Tune(ctx)
		if err != nil {
			t.Fatalf("Tune() error: %v", err)
		}
		if next > cost+1e-9 {
			t.Errorf("pass %d raised cost from %g to %g", i+1, cost, next)
		}
		cost = next
	}
	if e.Passes() != 5 {
		t.Errorf("Passes() = %d, want 5", e.Passes())
	}

	l, err := e.Finish()
	if err != nil {
		t.Fatalf("Finish() error: %v", err)
	}
	again, err := e.Finish()
	if err != nil || again != l {
		t.Errorf("second Finish() = %p, %v; want the same layout", again, err)
	}
	if _, err := e.Tune(ctx); !errors.Is(err, errors.ErrCodePrecondition) {
		t.Errorf("Tune() after Finish = %v, want PRECONDITION", err)
	}
}

func TestPrepareErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := Prepare(ctx, nil, testOptions()); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Prepare(nil) = %v, want INVALID_INPUT", err)
	}

	overfull := testDoc(t, `
time: 2/4
staves:
  - voices:
      - notes: [{duration: "2", lines: [3]}, {duration: "4", lines: [3]}]
`)
	if _, err := Prepare(ctx, overfull, testOptions()); !errors.Is(err, errors.ErrCodeTooManyTicks) {
		t.Errorf("Prepare(overfull) = %v, want TOO_MANY_TICKS", err)
	}
}

func TestRenderLayout(t *testing.T) {
	ctx := context.Background()
	l, err := ComputeLayout(ctx, testDoc(t, mixed), testOptions())
	if err != nil {
		t.Fatal(err)
	}
	opts := testOptions()
	opts.Formats = []string{FormatJSON, FormatSVG, FormatPNG}
	opts.Scale = 1
	artifacts, err := RenderLayout(ctx, l, opts)
	if err != nil {
		t.Fatalf("RenderLayout() error: %v", err)
	}
	if len(artifacts) != 3 {
		t.Fatalf("got %d artifacts, want 3", len(artifacts))
	}
	if !strings.HasPrefix(string(artifacts[FormatSVG]), "<svg") {
		t.Error("svg artifact does not start with <svg")
	}
	if !bytes.HasPrefix(artifacts[FormatPNG], []byte("\x89PNG")) {
		t.Error("png artifact has no PNG signature")
	}
	parsed, err := render.ParseJSON(artifacts[FormatJSON])
	if err != nil {
		t.Fatalf("ParseJSON() error: %v", err)
	}
	if parsed.ID != l.ID || len(parsed.Contexts) != len(l.Contexts) {
		t.Errorf("json artifact does not describe the layout")
	}
}

func TestRunnerCaching(t *testing.T) {
	ctx := context.Background()
	fc, err := cache.NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(fc, nil, nil)
	defer r.Close()

	doc := testDoc(t, quarters)
	opts := testOptions()
	opts.Formats = []string{FormatSVG, FormatJSON}

	first, err := r.Execute(ctx, doc, opts)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if first.CacheInfo.LayoutHit || first.CacheInfo.RenderHit {
		t.Errorf("first run hit the cache: %+v", first.CacheInfo)
	}
	if first.Stats.Voices != 3 || first.Stats.Contexts != 4 {
		t.Errorf("Stats = %+v", first.Stats)
	}

	second, err := r.Execute(ctx, doc, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheInfo.LayoutHit || !second.CacheInfo.RenderHit {
		t.Errorf("second run missed the cache: %+v", second.CacheInfo)
	}
	if second.Layout.ID != first.Layout.ID || second.LayoutKey != first.LayoutKey {
		t.Error("cached layout differs from the computed one")
	}
	if !bytes.Equal(second.Artifacts[FormatSVG], first.Artifacts[FormatSVG]) {
		t.Error("cached svg differs")
	}

	// Other settings are separate entries.
	opts.Width = 600
	other, err := r.Execute(ctx, doc, opts)
	if err != nil {
		t.Fatal(err)
	}
	if other.CacheInfo.LayoutHit || other.LayoutKey == first.LayoutKey {
		t.Error("a different width reused the cached layout")
	}

	opts.Width = 0
	opts.Refresh = true
	refreshed, err := r.Execute(ctx, doc, opts)
	if err != nil {
		t.Fatal(err)
	}
	if refreshed.CacheInfo.LayoutHit {
		t.Error("refresh read the cache")
	}
}

func TestRunnerRenderWithoutKey(t *testing.T) {
	ctx := context.Background()
	r := NewRunner(nil, nil, nil)
	if _, err := r.Render(ctx, nil, testOptions()); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Render(nil) = %v, want INVALID_INPUT", err)
	}
	l, err := r.Layout(ctx, testDoc(t, quarters), testOptions())
	if err != nil {
		t.Fatal(err)
	}
	artifacts, err := r.Render(ctx, l, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := artifacts[FormatSVG]; !ok {
		t.Error("default format svg was not rendered")
	}
}

type recordingHooks struct {
	observability.NoopPipelineHooks
	mu     sync.Mutex
	events []string
}

func (h *recordingHooks) record(e string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
}

func (h *recordingHooks) OnBuildStart(context.Context, int, int) { h.record("build") }
func (h *recordingHooks) OnFormatComplete(_ context.Context, s observability.FormatStats, _ time.Duration, err error) {
	if err == nil && s.Contexts > 0 {
		h.record("format")
	}
}
func (h *recordingHooks) OnTuneStep(context.Context, int, float64) { h.record("tune") }
func (h *recordingHooks) OnRenderComplete(context.Context, []string, time.Duration, error) {
	h.record("render")
}

func TestPipelineHooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetPipelineHooks(hooks)
	defer observability.Reset()

	opts := testOptions()
	opts.TunePasses = 2
	if _, err := NewRunner(nil, nil, nil).Execute(context.Background(), testDoc(t, mixed), opts); err != nil {
		t.Fatal(err)
	}
	want := "build format tune tune render"
	if got := strings.Join(hooks.events, " "); got != want {
		t.Errorf("events = %q, want %q", got, want)
	}
}
