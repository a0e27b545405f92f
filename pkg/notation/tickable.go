package notation

import (
	"github.com/matzehuels/engrave/pkg/errors"
	"github.com/matzehuels/engrave/pkg/fraction"
)

// Kind identifies the concrete symbol behind a Tickable.
type Kind string

const (
	KindNote  Kind = "note"
	KindRest  Kind = "rest"
	KindGhost Kind = "ghost"
	KindBar   Kind = "bar"
)

// Metrics are the horizontal extents of a formatted tickable.
type Metrics struct {
	Width                float64 `json:"width"`
	GlyphWidth           float64 `json:"glyph_width"`
	NotePx               float64 `json:"note_px"`
	ModLeftPx            float64 `json:"mod_left_px"`
	ModRightPx           float64 `json:"mod_right_px"`
	LeftDisplacedHeadPx  float64 `json:"left_displaced_head_px"`
	RightDisplacedHeadPx float64 `json:"right_displaced_head_px"`
}

// Tickable is anything that occupies rhythmic time and horizontal space.
// The set of implementations is closed: [StaveNote], [GhostNote] and
// [BarNote].
type Tickable interface {
	Kind() Kind
	Duration() string

	Ticks() fraction.Fraction
	IntrinsicTicks() fraction.Fraction
	SetIntrinsicTicks(v fraction.Fraction)
	TickMultiplier() fraction.Fraction
	ShouldIgnoreTicks() bool

	Voice() (*Voice, error)
	Stave() (*Stave, error)
	SetStave(s *Stave)
	TickContext() (*TickContext, error)
	SetTickContext(tc *TickContext)
	ModifierContext() *ModifierContext
	AddToModifierContext(mc *ModifierContext)

	SetTuplet(t *Tuplet)
	ResetTuplet(t *Tuplet)
	Tuplet() *Tuplet
	TupletStack() []*Tuplet

	PreFormat(env *Env) error
	PreFormatted() bool
	PostFormat() error
	PostFormatted() bool

	Width() (float64, error)
	Metrics() (Metrics, error)
	X() (float64, error)
	AbsoluteX() (float64, error)
	XShift() float64
	SetXShift(x float64)
	CenterAligned() bool

	base() *tickable
}

// tickable holds the state every Tickable shares.
type tickable struct {
	intrinsicTicks fraction.Fraction
	tickMultiplier fraction.Fraction
	ticks          fraction.Fraction
	ignoreTicks    bool
	centerAligned  bool

	voice           *Voice
	stave           *Stave
	tickContext     *TickContext
	modifierContext *ModifierContext
	tupletStack     []*Tuplet

	xShift               float64
	width                float64
	glyphWidth           float64
	leftDisplacedHeadPx  float64
	rightDisplacedHeadPx float64

	preFormatted  bool
	postFormatted bool
}

func newTickable(ticks fraction.Fraction) tickable {
	return tickable{
		intrinsicTicks: ticks,
		tickMultiplier: fraction.New(1, 1),
		ticks:          ticks,
	}
}

func (t *tickable) base() *tickable { return t }

// Ticks returns the effective duration: intrinsic ticks times the tuplet
// multiplier.
func (t *tickable) Ticks() fraction.Fraction { return t.ticks }

// IntrinsicTicks returns the written duration in ticks.
func (t *tickable) IntrinsicTicks() fraction.Fraction { return t.intrinsicTicks }

// SetIntrinsicTicks replaces the written duration and recomputes ticks.
func (t *tickable) SetIntrinsicTicks(v fraction.Fraction) {
	t.intrinsicTicks = v
	t.ticks = v
	t.ticks.Mul(t.tickMultiplier)
	t.preFormatted = false
}

// TickMultiplier returns the accumulated tuplet scaling.
func (t *tickable) TickMultiplier() fraction.Fraction { return t.tickMultiplier }

func (t *tickable) applyTickMultiplier(num, den int64) {
	t.tickMultiplier.Mul(fraction.New(num, den))
	t.ticks = t.intrinsicTicks
	t.ticks.Mul(t.tickMultiplier)
	t.preFormatted = false
}

// ShouldIgnoreTicks reports whether the tickable consumes no time.
func (t *tickable) ShouldIgnoreTicks() bool { return t.ignoreTicks }

// CenterAligned reports whether the tickable is centered in its measure.
func (t *tickable) CenterAligned() bool { return t.centerAligned }

// SetCenterAligned marks the tickable for centering during justification.
func (t *tickable) SetCenterAligned(v bool) { t.centerAligned = v }

// Voice returns the owning voice.
func (t *tickable) Voice() (*Voice, error) {
	if t.voice == nil {
		return nil, errors.New(errors.ErrCodeNoVoice, "tickable has no voice")
	}
	return t.voice, nil
}

// Stave returns the stave the tickable is drawn on.
func (t *tickable) Stave() (*Stave, error) {
	if t.stave == nil {
		return nil, errors.New(errors.ErrCodeNoStave, "tickable has no stave")
	}
	return t.stave, nil
}

// SetStave attaches the tickable to a stave.
func (t *tickable) SetStave(s *Stave) { t.stave = s }

// TickContext returns the tick context assigned by the formatter.
func (t *tickable) TickContext() (*TickContext, error) {
	if t.tickContext == nil {
		return nil, errors.New(errors.ErrCodeNoTickContext, "tickable has no tick context")
	}
	return t.tickContext, nil
}

// SetTickContext assigns a tick context and invalidates formatting.
func (t *tickable) SetTickContext(tc *TickContext) {
	t.tickContext = tc
	t.preFormatted = false
}

// ModifierContext returns the collision group, or nil before joining.
func (t *tickable) ModifierContext() *ModifierContext { return t.modifierContext }

// AddToModifierContext assigns a modifier context and invalidates
// formatting.
func (t *tickable) AddToModifierContext(mc *ModifierContext) {
	t.modifierContext = mc
	t.preFormatted = false
}

// SetTuplet scales the tickable by the tuplet's ratio and pushes it on the
// tuplet stack.
func (t *tickable) SetTuplet(tu *Tuplet) {
	if tu == nil {
		return
	}
	t.tupletStack = append(t.tupletStack, tu)
	t.applyTickMultiplier(int64(tu.NotesOccupied()), int64(tu.NoteCount()))
}

// ResetTuplet removes tu and reverses its scaling. A nil tuplet removes
// every tuplet on the stack.
func (t *tickable) ResetTuplet(tu *Tuplet) {
	if tu != nil {
		for i, s := range t.tupletStack {
			if s == tu {
				t.tupletStack = append(t.tupletStack[:i], t.tupletStack[i+1:]...)
				t.applyTickMultiplier(int64(tu.NoteCount()), int64(tu.NotesOccupied()))
				return
			}
		}
		return
	}
	for len(t.tupletStack) > 0 {
		last := t.tupletStack[len(t.tupletStack)-1]
		t.tupletStack = t.tupletStack[:len(t.tupletStack)-1]
		t.applyTickMultiplier(int64(last.NoteCount()), int64(last.NotesOccupied()))
	}
}

// Tuplet returns the innermost tuplet, or nil.
func (t *tickable) Tuplet() *Tuplet {
	if len(t.tupletStack) == 0 {
		return nil
	}
	return t.tupletStack[len(t.tupletStack)-1]
}

// TupletStack returns the tuplets the tickable belongs to, outermost first.
func (t *tickable) TupletStack() []*Tuplet { return t.tupletStack }

// PreFormatted reports whether metrics are current.
func (t *tickable) PreFormatted() bool { return t.preFormatted }

// PostFormat marks the tickable as finalized.
func (t *tickable) PostFormat() error {
	if !t.preFormatted {
		return errors.New(errors.ErrCodeUnformatted, "post-format before pre-format")
	}
	t.postFormatted = true
	return nil
}

// PostFormatted reports whether PostFormat has run.
func (t *tickable) PostFormatted() bool { return t.postFormatted }

// Width returns the tickable's own width plus its modifier context's.
func (t *tickable) Width() (float64, error) {
	if !t.preFormatted {
		return 0, errors.New(errors.ErrCodeUnformatted, "width queried before pre-format")
	}
	w := t.width
	if t.modifierContext != nil {
		w += t.modifierContext.Width()
	}
	return w, nil
}

// Metrics splits the width into notehead, modifier and displaced-head
// parts.
func (t *tickable) Metrics() (Metrics, error) {
	w, err := t.Width()
	if err != nil {
		return Metrics{}, err
	}
	var left, right float64
	if mc := t.modifierContext; mc != nil {
		left, right = mc.state.LeftShift, mc.state.RightShift
	}
	return Metrics{
		Width:                w,
		GlyphWidth:           t.glyphWidth,
		NotePx:               w - left - right - t.leftDisplacedHeadPx - t.rightDisplacedHeadPx,
		ModLeftPx:            left,
		ModRightPx:           right,
		LeftDisplacedHeadPx:  t.leftDisplacedHeadPx,
		RightDisplacedHeadPx: t.rightDisplacedHeadPx,
	}, nil
}

// X returns the position relative to the note start of the stave.
func (t *tickable) X() (float64, error) {
	tc, err := t.TickContext()
	if err != nil {
		return 0, err
	}
	return tc.X() + t.xShift, nil
}

// AbsoluteX returns the page x of the tickable's left edge. Without a
// stave it equals X.
func (t *tickable) AbsoluteX() (float64, error) {
	x, err := t.X()
	if err != nil {
		return 0, err
	}
	if t.stave != nil {
		x += t.stave.NoteStartX() + t.stave.Padding
	}
	return x, nil
}

// XShift returns the displacement within the tick context.
func (t *tickable) XShift() float64 { return t.xShift }

// SetXShift displaces the tickable within its tick context.
func (t *tickable) SetXShift(x float64) { t.xShift = x }
