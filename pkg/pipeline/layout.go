package pipeline

import (
	"context"
	"time"

	"github.com/matzehuels/engrave/pkg/errors"
	"github.com/matzehuels/engrave/pkg/format"
	"github.com/matzehuels/engrave/pkg/notation"
	"github.com/matzehuels/engrave/pkg/observability"
	"github.com/matzehuels/engrave/pkg/render"
	"github.com/matzehuels/engrave/pkg/score"
)

// =============================================================================
// Layout Generation
// =============================================================================

// Engine holds one built and formatted score between the format and export
// steps, so callers can tune it pass by pass before exporting.
type Engine struct {
	Score     *score.Score
	Formatter *format.Formatter
	Env       *notation.Env

	opts   Options
	passes int
	layout *render.Layout
}

// Prepare builds doc and justifies all of its voices against the stave
// width. The result is formatted but not tuned or post-formatted.
func Prepare(ctx context.Context, doc *score.Document, opts Options) (*Engine, error) {
	if doc == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no score document")
	}
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Width > 0 {
		d := *doc
		d.Width = opts.Width
		doc = &d
	}
	env, err := opts.Config.Env()
	if err != nil {
		return nil, err
	}

	hooks := observability.Pipeline()
	voices := 0
	for _, s := range doc.Staves {
		voices += len(s.Voices)
	}
	hooks.OnBuildStart(ctx, len(doc.Staves), voices)
	start := time.Now()
	sc, err := doc.Build(env)
	hooks.OnBuildComplete(ctx, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	f := format.New(format.WithEnv(env), format.WithLogger(opts.Logger))
	stave := sc.Staves[0]
	width := stave.NoteEndX() - stave.NoteStartX() - notation.DefaultPadding(env)

	hooks.OnFormatStart(ctx, len(sc.Voices), width)
	start = time.Now()
	_, err = f.Format(sc.Voices, width, format.Options{AlignRests: opts.AlignRests})
	stats := observability.FormatStats{
		Contexts:   len(f.TickContexts()),
		Iterations: f.Iterations(),
		Cost:       f.TotalCost(),
	}
	if w, werr := f.MinTotalWidth(); werr == nil {
		stats.MinTotalWidth = w
	}
	hooks.OnFormatComplete(ctx, stats, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	opts.Logger.Debug("justified score",
		"staves", len(sc.Staves),
		"voices", len(sc.Voices),
		"contexts", stats.Contexts,
		"iterations", stats.Iterations,
		"cost", stats.Cost)

	return &Engine{Score: sc, Formatter: f, Env: env, opts: opts}, nil
}

// Tune runs one tuning pass with the configured step size and returns the
// resulting cost.
func (e *Engine) Tune(ctx context.Context) (float64, error) {
	if e.layout != nil {
		return 0, errors.New(errors.ErrCodePrecondition, "tune after export")
	}
	cost, err := e.Formatter.Tune(e.opts.Config.Formatter.TuneAlpha)
	if err != nil {
		return 0, err
	}
	e.passes++
	observability.Pipeline().OnTuneStep(ctx, e.passes, cost)
	e.opts.Logger.Debug("tuned", "pass", e.passes, "cost", cost)
	return cost, nil
}

// Passes returns the number of tuning passes run so far.
func (e *Engine) Passes() int { return e.passes }

// Cost returns the cost of the current positions.
func (e *Engine) Cost() float64 { return e.Formatter.TotalCost() }

// Finish post-formats the score and exports its layout document. Later
// calls return the same layout.
func (e *Engine) Finish() (*render.Layout, error) {
	if e.layout != nil {
		return e.layout, nil
	}
	if err := e.Formatter.PostFormat(); err != nil {
		return nil, err
	}
	l, err := render.Build(e.Score, e.Formatter, e.Env)
	if err != nil {
		return nil, err
	}
	e.layout = l
	return l, nil
}

// ComputeLayout formats doc, runs opts.TunePasses tuning passes and exports
// the layout. It does not use a cache; see Runner.Layout.
func ComputeLayout(ctx context.Context, doc *score.Document, opts Options) (*render.Layout, error) {
	e, err := Prepare(ctx, doc, opts)
	if err != nil {
		return nil, err
	}
	for i := 0; i < e.opts.TunePasses; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := e.Tune(ctx); err != nil {
			return nil, err
		}
	}
	return e.Finish()
}
