package render

import (
	"strings"

	"github.com/matzehuels/engrave/pkg/notation"
)

// Preview sizes in pixels.
const (
	staffLineWidth = 1
	stemWidth      = 1.5
	headRadiusY    = 4.5
	flagLength     = 12
	restHeight     = 6
	dotRadius      = 2
	accidentalSize = 16
	textSize       = 10
	tupletSize     = 12
)

type anchor int

const (
	anchorStart anchor = iota
	anchorMiddle
)

type point struct{ x, y float64 }

// canvas is the drawing surface shared by the SVG and PNG sinks.
type canvas interface {
	line(x1, y1, x2, y2, width float64)
	guide(x, y1, y2 float64)
	polygon(pts ...point)
	ellipse(cx, cy, rx, ry float64, filled bool)
	text(s string, x, y, size float64, a anchor)
}

type drawOptions struct {
	contextGuides bool
	title         bool
}

var accidentalText = map[string]string{
	"accidentalSharp":       "♯",
	"accidentalFlat":        "♭",
	"accidentalNatural":     "♮",
	"accidentalDoubleSharp": "𝄪",
	"accidentalDoubleFlat":  "𝄫",
}

func draw(l *Layout, c canvas, o drawOptions) {
	if o.title && l.Title != "" {
		c.text(l.Title, l.Width/2, textSize+2, textSize+2, anchorMiddle)
	}
	for _, s := range l.Staves {
		for _, y := range s.Lines {
			c.line(s.X, y, s.X+s.Width, y, staffLineWidth)
		}
		if len(s.Lines) > 0 {
			c.line(s.X, s.Lines[0], s.X, s.Lines[len(s.Lines)-1], staffLineWidth)
			c.line(s.X+s.Width, s.Lines[0], s.X+s.Width, s.Lines[len(s.Lines)-1], staffLineWidth)
		}
	}
	if o.contextGuides && len(l.Staves) > 0 {
		last := l.Staves[len(l.Staves)-1]
		top, bottom := l.Staves[0].Y, last.Y
		if len(last.Lines) > 0 {
			bottom = last.Lines[len(last.Lines)-1]
		}
		for _, ctx := range l.Contexts {
			c.guide(ctx.AbsoluteX, top, bottom)
		}
	}
	for _, n := range l.Notes {
		drawNote(c, l, n)
	}
	for _, b := range l.Beams {
		for _, s := range b.Segments {
			c.polygon(point{s.X1, s.Y1}, point{s.X2, s.Y2}, point{s.X2, s.Y2 + s.Thickness}, point{s.X1, s.Y1 + s.Thickness})
		}
	}
	for _, t := range l.Tuplets {
		for _, g := range t.Glyphs {
			c.text(strings.TrimPrefix(g.Code, "tuplet"), g.X+g.Width/2, g.Y, tupletSize, anchorMiddle)
		}
		if t.ColonX != 0 && len(t.Glyphs) > 0 {
			c.text(":", t.ColonX, t.Glyphs[0].Y, tupletSize, anchorMiddle)
		}
		for _, b := range t.Brackets {
			c.line(b.X1, b.Y1, b.X2, b.Y2, staffLineWidth)
		}
	}
}

func drawNote(c canvas, l *Layout, n Note) {
	switch n.Kind {
	case notation.KindGhost:
		return
	case notation.KindBar:
		x := n.X + n.Width/2
		c.line(x, n.Top, x, n.Bottom, staffLineWidth)
		return
	case notation.KindRest:
		for _, h := range n.Heads {
			c.polygon(point{h.X, h.Y - restHeight/2}, point{h.X + h.Width, h.Y - restHeight/2},
				point{h.X + h.Width, h.Y + restHeight/2}, point{h.X, h.Y + restHeight/2})
		}
		drawModifiers(c, n)
		return
	}

	hollow := strings.HasSuffix(n.Glyph, "Half") || strings.Contains(n.Glyph, "Whole")
	for _, h := range n.Heads {
		drawLedgers(c, l.Staves[n.Stave], h)
		c.ellipse(h.X+h.Width/2, h.Y, h.Width/2, headRadiusY, !hollow)
	}
	if s := n.Stem; s != nil {
		c.line(s.X, s.Y1, s.X, s.Y2, stemWidth)
		if n.Flag != "" {
			c.line(s.X, s.Y2, s.X+flagLength*0.6, s.Y2+flagLength*float64(s.Direction), stemWidth)
		}
	}
	drawModifiers(c, n)
}

func drawModifiers(c canvas, n Note) {
	for _, m := range n.Modifiers {
		switch m.Category {
		case notation.CategoryAccidental:
			c.text(accidentalText[m.Glyph], m.X+m.Width/2, m.Y+accidentalSize/3, accidentalSize, anchorMiddle)
		case notation.CategoryDot:
			c.ellipse(m.X+dotRadius, m.Y, dotRadius, dotRadius, true)
		case notation.CategoryAnnotation:
			c.text(m.Text, m.X, m.Y, textSize, anchorStart)
		}
	}
}

// drawLedgers draws the ledger lines a head outside the staff needs.
func drawLedgers(c canvas, s Stave, h Head) {
	if len(s.Lines) < 2 {
		return
	}
	spacing := s.Lines[1] - s.Lines[0]
	bottom := s.Lines[len(s.Lines)-1]
	top := s.Lines[0]
	for y := bottom + spacing; y <= h.Y+0.5; y += spacing {
		c.line(h.X-3, y, h.X+h.Width+3, y, staffLineWidth)
	}
	for y := top - spacing; y >= h.Y-0.5; y -= spacing {
		c.line(h.X-3, y, h.X+h.Width+3, y, staffLineWidth)
	}
}
