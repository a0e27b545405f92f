package notation

import (
	"math"

	"github.com/matzehuels/engrave/pkg/errors"
	"github.com/matzehuels/engrave/pkg/fraction"
)

// ContextMetrics are the aggregated extents of a tick context.
type ContextMetrics struct {
	Width                float64 `json:"width"`
	GlyphPx              float64 `json:"glyph_px"`
	NotePx               float64 `json:"note_px"`
	ModLeftPx            float64 `json:"mod_left_px"`
	ModRightPx           float64 `json:"mod_right_px"`
	LeftDisplacedHeadPx  float64 `json:"left_displaced_head_px"`
	RightDisplacedHeadPx float64 `json:"right_displaced_head_px"`
	TotalLeftPx          float64 `json:"total_left_px"`
	TotalRightPx         float64 `json:"total_right_px"`
}

// TickContext groups the tickables of all voices that start at the same
// cumulative tick. At most one tickable per voice is kept.
type TickContext struct {
	tickID int64

	tickables     []Tickable
	byVoice       map[int]Tickable
	centerAligned []Tickable

	maxTicks    fraction.Fraction
	minTicks    fraction.Fraction
	hasTicks    bool
	maxTickable Tickable
	ignoreTicks bool

	metrics ContextMetrics
	padding float64
	x       float64

	siblings []*TickContext
	index    int

	preFormatted  bool
	postFormatted bool
}

// NewTickContext returns an empty context for the given integer tick.
func NewTickContext(tickID int64) *TickContext {
	return &TickContext{
		tickID:      tickID,
		byVoice:     make(map[int]Tickable),
		maxTicks:    fraction.FromInt(0),
		minTicks:    fraction.FromInt(0),
		ignoreTicks: true,
	}
}

// TickID is the integer tick offset the context was created for.
func (tc *TickContext) TickID() int64 { return tc.tickID }

// AddTickable adds t as the member for voiceIndex.
func (tc *TickContext) AddTickable(t Tickable, voiceIndex int) {
	if !t.ShouldIgnoreTicks() {
		tc.ignoreTicks = false
		ticks := t.Ticks()
		if !tc.hasTicks || ticks.GreaterThan(tc.maxTicks) {
			tc.maxTicks = ticks
			tc.maxTickable = t
		}
		if !tc.hasTicks || ticks.LessThan(tc.minTicks) {
			tc.minTicks = ticks
		}
		tc.hasTicks = true
	}
	t.SetTickContext(tc)
	tc.tickables = append(tc.tickables, t)
	tc.byVoice[voiceIndex] = t
	if t.CenterAligned() {
		tc.centerAligned = append(tc.centerAligned, t)
	}
	tc.preFormatted = false
}

// Tickables returns the members in insertion order.
func (tc *TickContext) Tickables() []Tickable { return tc.tickables }

// TickablesByVoice maps voice index to member.
func (tc *TickContext) TickablesByVoice() map[int]Tickable { return tc.byVoice }

// CenterAlignedTickables returns the members centered in their measure.
func (tc *TickContext) CenterAlignedTickables() []Tickable { return tc.centerAligned }

// MaxTicks is the longest member duration.
func (tc *TickContext) MaxTicks() fraction.Fraction { return tc.maxTicks }

// MinTicks is the shortest member duration.
func (tc *TickContext) MinTicks() fraction.Fraction { return tc.minTicks }

// MaxTickable is the member with the longest duration, or nil.
func (tc *TickContext) MaxTickable() Tickable { return tc.maxTickable }

// ShouldIgnoreTicks reports whether every member ignores ticks.
func (tc *TickContext) ShouldIgnoreTicks() bool { return tc.ignoreTicks }

// X is the context's position relative to the note start.
func (tc *TickContext) X() float64 { return tc.x }

// SetX moves the context.
func (tc *TickContext) SetX(x float64) { tc.x = x }

// Padding is added on both sides of the context width.
func (tc *TickContext) Padding() float64 { return tc.padding }

// SetPadding overrides the environment padding.
func (tc *TickContext) SetPadding(p float64) { tc.padding = p }

// PreFormat pre-formats every member and aggregates their extents.
func (tc *TickContext) PreFormat(env *Env) error {
	if tc.preFormatted {
		return nil
	}
	env = envOrDefault(env)
	tc.padding = env.ContextPadding
	tc.metrics = ContextMetrics{}
	m := &tc.metrics
	for _, t := range tc.tickables {
		if err := t.PreFormat(env); err != nil {
			return err
		}
		tm, err := t.Metrics()
		if err != nil {
			return err
		}
		m.LeftDisplacedHeadPx = math.Max(m.LeftDisplacedHeadPx, tm.LeftDisplacedHeadPx)
		m.RightDisplacedHeadPx = math.Max(m.RightDisplacedHeadPx, tm.RightDisplacedHeadPx)
		m.NotePx = math.Max(m.NotePx, tm.NotePx)
		m.GlyphPx = math.Max(m.GlyphPx, tm.GlyphWidth)
		m.ModLeftPx = math.Max(m.ModLeftPx, tm.ModLeftPx)
		m.ModRightPx = math.Max(m.ModRightPx, tm.ModRightPx)
		m.TotalLeftPx = math.Max(m.TotalLeftPx, tm.ModLeftPx+tm.LeftDisplacedHeadPx)
		m.TotalRightPx = math.Max(m.TotalRightPx, tm.ModRightPx+tm.RightDisplacedHeadPx)
	}
	m.Width = m.NotePx + m.TotalLeftPx + m.TotalRightPx
	tc.preFormatted = true
	return nil
}

// PreFormatted reports whether metrics are current.
func (tc *TickContext) PreFormatted() bool { return tc.preFormatted }

// Metrics returns the aggregated extents. It fails before PreFormat.
func (tc *TickContext) Metrics() (ContextMetrics, error) {
	if !tc.preFormatted {
		return ContextMetrics{}, errors.New(errors.ErrCodeUnformatted, "tick context %d metrics queried before pre-format", tc.tickID)
	}
	return tc.metrics, nil
}

// Width is the content width plus padding on both sides. It fails before
// PreFormat.
func (tc *TickContext) Width() (float64, error) {
	if !tc.preFormatted {
		return 0, errors.New(errors.ErrCodeUnformatted, "tick context %d width queried before pre-format", tc.tickID)
	}
	return tc.metrics.Width + 2*tc.padding, nil
}

// PostFormat marks the context final.
func (tc *TickContext) PostFormat() error {
	if !tc.preFormatted {
		return errors.New(errors.ErrCodeUnformatted, "tick context %d post-formatted before pre-format", tc.tickID)
	}
	tc.postFormatted = true
	return nil
}

// PostFormatted reports whether PostFormat has run.
func (tc *TickContext) PostFormatted() bool { return tc.postFormatted }

// SetSiblings records the contexts of the formatting pass, in tick order.
func (tc *TickContext) SetSiblings(all []*TickContext, index int) {
	tc.siblings = all
	tc.index = index
}

// Siblings returns the contexts of the formatting pass.
func (tc *TickContext) Siblings() []*TickContext { return tc.siblings }

// Next returns the following context of the pass, or nil for the last.
func (tc *TickContext) Next() *TickContext {
	if tc.index+1 < len(tc.siblings) {
		return tc.siblings[tc.index+1]
	}
	return nil
}
