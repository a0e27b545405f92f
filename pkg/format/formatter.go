package format

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/engrave/pkg/errors"
	"github.com/matzehuels/engrave/pkg/notation"
)

// DefaultTuneAlpha is the step size Tune uses when given zero.
const DefaultTuneAlpha = 0.5

// Option configures a Formatter.
type Option func(*Formatter)

// WithEnv sets the layout environment. Nil selects notation.DefaultEnv.
func WithEnv(env *notation.Env) Option {
	return func(f *Formatter) {
		if env != nil {
			f.env = env
		}
	}
}

// WithLogger sets the logger justification and tuning steps are reported
// to at debug level.
func WithLogger(l *log.Logger) Option {
	return func(f *Formatter) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithSoftmaxFactor overrides the environment's softmax base for the
// voices being formatted.
func WithSoftmaxFactor(factor float64) Option {
	return func(f *Formatter) { f.softmaxFactor = factor }
}

// WithMaxIterations overrides the environment's justification iteration cap.
func WithMaxIterations(n int) Option {
	return func(f *Formatter) { f.maxIterations = n }
}

// Envelope is the range the right edge of a justified layout must land in.
type Envelope struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether x lies inside the envelope, allowing for
// floating-point rounding.
func (e Envelope) Contains(x float64) bool {
	const eps = 1e-6
	return x >= e.Min-eps && x <= e.Max+eps
}

// SpaceMetrics is the per-tickable spacing record of the latest Evaluate.
type SpaceMetrics struct {
	// Duration is the simplified tick string the tickable is grouped by.
	Duration string `json:"duration"`
	// Used is the distance to the next tickable of the voice, or to the
	// justify width for the last one.
	Used float64 `json:"used"`
	// Mean is the average Used over all tickables of the same duration.
	Mean      float64 `json:"mean"`
	Deviation float64 `json:"deviation"`
	// FreedomLeft and FreedomRight are the gaps to the neighboring noteheads.
	FreedomLeft  float64 `json:"freedom_left"`
	FreedomRight float64 `json:"freedom_right"`
	Iterations   int     `json:"iterations"`
}

type freedom struct {
	left, right float64
}

type modifierKey struct {
	stave *notation.Stave
	tick  int64
}

// Formatter aligns and justifies voices. The zero value is not usable;
// call New.
type Formatter struct {
	env           *notation.Env
	logger        *log.Logger
	softmaxFactor float64
	maxIterations int

	voices []*notation.Voice

	modifierContexts []*notation.ModifierContext
	modifierByKey    map[modifierKey]*notation.ModifierContext

	tickContexts         []*notation.TickContext
	resolutionMultiplier int64

	preFormatted     bool
	hasMinTotalWidth bool
	minTotalWidth    float64
	baseX            []float64

	justifyWidth float64
	justified    bool
	envelope     Envelope
	iterations   int

	spaces      map[notation.Tickable]*SpaceMetrics
	freedoms    map[*notation.TickContext]*freedom
	evaluated   bool
	totalCost   float64
	totalShift  float64
	lossHistory []float64
}

// New returns a formatter using the default environment unless overridden.
func New(opts ...Option) *Formatter {
	f := &Formatter{
		env:    notation.DefaultEnv(),
		logger: log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.softmaxFactor == 0 {
		f.softmaxFactor = f.env.SoftmaxFactor
	}
	if f.maxIterations == 0 {
		f.maxIterations = f.env.MaxIterations
	}
	return f
}

// Env returns the layout environment.
func (f *Formatter) Env() *notation.Env { return f.env }

// Voices returns the voices of the current pass.
func (f *Formatter) Voices() []*notation.Voice { return f.voices }

// TickContexts returns the contexts of the current pass in tick order.
func (f *Formatter) TickContexts() []*notation.TickContext { return f.tickContexts }

// ModifierContexts returns the contexts built by JoinVoices.
func (f *Formatter) ModifierContexts() []*notation.ModifierContext { return f.modifierContexts }

// ResolutionMultiplier is the factor that makes every tick offset of the
// pass an integer.
func (f *Formatter) ResolutionMultiplier() int64 { return f.resolutionMultiplier }

// MinTotalWidth is the width of the minimum-width layout. It fails before
// PreFormat or PreCalculateMinTotalWidth.
func (f *Formatter) MinTotalWidth() (float64, error) {
	if !f.hasMinTotalWidth {
		return 0, errors.New(errors.ErrCodeUnformatted, "minimum total width queried before pre-format")
	}
	return f.minTotalWidth, nil
}

// JustifyWidth is the target width of the latest PreFormat; zero when the
// layout was not justified.
func (f *Formatter) JustifyWidth() float64 { return f.justifyWidth }

// JustifyEnvelope returns the range the right edge of the last context was
// justified into. It fails unless the latest PreFormat justified.
func (f *Formatter) JustifyEnvelope() (Envelope, error) {
	if !f.justified {
		return Envelope{}, errors.New(errors.ErrCodeUnformatted, "layout was not justified")
	}
	return f.envelope, nil
}

// Iterations is the number of padding iterations the latest justification
// took.
func (f *Formatter) Iterations() int { return f.iterations }

// TotalCost is the cost of the latest Evaluate.
func (f *Formatter) TotalCost() float64 { return f.totalCost }

// TotalShift is the sum of the shifts of the latest Tune.
func (f *Formatter) TotalShift() float64 { return f.totalShift }

// LossHistory returns every cost Evaluate computed, oldest first.
func (f *Formatter) LossHistory() []float64 { return f.lossHistory }

// Space returns the spacing record of t from the latest Evaluate.
func (f *Formatter) Space(t notation.Tickable) (SpaceMetrics, bool) {
	m, ok := f.spaces[t]
	if !ok {
		return SpaceMetrics{}, false
	}
	return *m, true
}

// RightEdge is the right edge of the last context's noteheads relative to
// the note start: the quantity justification fits into the envelope.
func (f *Formatter) RightEdge() (float64, error) {
	if !f.preFormatted {
		return 0, errors.New(errors.ErrCodeUnformatted, "right edge queried before pre-format")
	}
	first, last := f.tickContexts[0], f.tickContexts[len(f.tickContexts)-1]
	fm, err := first.Metrics()
	if err != nil {
		return 0, err
	}
	lm, err := last.Metrics()
	if err != nil {
		return 0, err
	}
	return fm.TotalLeftPx + (last.X() - first.X()) + lm.NotePx + lm.TotalRightPx, nil
}
