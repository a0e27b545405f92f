package notation

import (
	"github.com/matzehuels/engrave/pkg/fraction"
)

// GhostNote occupies time without being drawn. It keeps a voice's budget
// intact where another voice carries the music.
type GhostNote struct {
	tickable
	duration string
}

// NewGhostNote returns an invisible tickable of the given duration.
func NewGhostNote(duration string, dots int) (*GhostNote, error) {
	d, err := SanitizeDuration(duration)
	if err != nil {
		return nil, err
	}
	ticks, err := DottedTicks(d, dots)
	if err != nil {
		return nil, err
	}
	return &GhostNote{tickable: newTickable(ticks), duration: d}, nil
}

func (g *GhostNote) Kind() Kind       { return KindGhost }
func (g *GhostNote) Duration() string { return g.duration }

// PreFormat gives the ghost note zero width.
func (g *GhostNote) PreFormat(env *Env) error {
	g.width = 0
	g.preFormatted = true
	return nil
}

// BarNote is a bar line inside a voice. It takes horizontal space but no
// time.
type BarNote struct {
	tickable
}

// BarNoteWidth is the width a bar line claims.
const BarNoteWidth = 8

// NewBarNote returns a single bar line.
func NewBarNote() *BarNote {
	b := &BarNote{tickable: newTickable(fraction.FromInt(0))}
	b.ignoreTicks = true
	return b
}

func (b *BarNote) Kind() Kind       { return KindBar }
func (b *BarNote) Duration() string { return "" }

// PreFormat gives the bar line its fixed width.
func (b *BarNote) PreFormat(env *Env) error {
	b.width = BarNoteWidth
	b.preFormatted = true
	return nil
}
