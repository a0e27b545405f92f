package render

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// SVGOption configures [RenderSVG].
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	drawOptions
	buf bytes.Buffer
}

// WithContextGuides draws a faint vertical line at every tick context.
func WithContextGuides() SVGOption { return func(r *svgRenderer) { r.contextGuides = true } }

// WithTitle draws the score title above the first stave.
func WithTitle() SVGOption { return func(r *svgRenderer) { r.title = true } }

// RenderSVG draws a preview of the layout.
func RenderSVG(l *Layout, opts ...SVGOption) []byte {
	r := &svgRenderer{}
	for _, opt := range opts {
		opt(r)
	}
	fmt.Fprintf(&r.buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		l.Width, l.Height, l.Width, l.Height)
	fmt.Fprintf(&r.buf, `  <rect width="100%%" height="100%%" fill="white"/>`+"\n")
	r.buf.WriteString(`  <g stroke="black" fill="black" font-family="sans-serif">` + "\n")
	draw(l, r, r.drawOptions)
	r.buf.WriteString("  </g>\n</svg>\n")
	return r.buf.Bytes()
}

func (r *svgRenderer) line(x1, y1, x2, y2, width float64) {
	fmt.Fprintf(&r.buf, `    <line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke-width="%.1f"/>`+"\n", x1, y1, x2, y2, width)
}

func (r *svgRenderer) guide(x, y1, y2 float64) {
	fmt.Fprintf(&r.buf, `    <line class="context" x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="#4a90d9" stroke-width="0.5" stroke-dasharray="2,2"/>`+"\n", x, y1, x, y2)
}

func (r *svgRenderer) polygon(pts ...point) {
	r.buf.WriteString(`    <polygon stroke="none" points="`)
	for i, p := range pts {
		if i > 0 {
			r.buf.WriteByte(' ')
		}
		fmt.Fprintf(&r.buf, "%.2f,%.2f", p.x, p.y)
	}
	r.buf.WriteString(`"/>` + "\n")
}

func (r *svgRenderer) ellipse(cx, cy, rx, ry float64, filled bool) {
	fill := "black"
	if !filled {
		fill = "none"
	}
	fmt.Fprintf(&r.buf, `    <ellipse cx="%.2f" cy="%.2f" rx="%.2f" ry="%.2f" fill="%s" stroke-width="1.5" transform="rotate(-20 %.2f %.2f)"/>`+"\n",
		cx, cy, rx, ry, fill, cx, cy)
}

func (r *svgRenderer) text(s string, x, y, size float64, a anchor) {
	ta := "start"
	if a == anchorMiddle {
		ta = "middle"
	}
	var esc bytes.Buffer
	_ = xml.EscapeText(&esc, []byte(s))
	fmt.Fprintf(&r.buf, `    <text x="%.2f" y="%.2f" font-size="%.1f" text-anchor="%s" stroke="none">%s</text>`+"\n", x, y, size, ta, esc.String())
}
