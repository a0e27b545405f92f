package render

import (
	"bytes"
	"image/color"

	"github.com/fogleman/gg"

	"github.com/matzehuels/engrave/pkg/errors"
	"github.com/matzehuels/engrave/pkg/glyph"
)

// PNGOption configures [RenderPNG].
type PNGOption func(*pngRenderer)

type pngRenderer struct {
	drawOptions
	scale float64
	dc    *gg.Context
	fonts *glyph.TrueType
}

// WithScale sets the PNG scale factor (default 2.0 for 2x resolution).
func WithScale(s float64) PNGOption {
	return func(r *pngRenderer) {
		if s > 0 {
			r.scale = s
		}
	}
}

// WithPNGContextGuides draws a faint vertical line at every tick context.
func WithPNGContextGuides() PNGOption { return func(r *pngRenderer) { r.contextGuides = true } }

// WithPNGTitle draws the score title above the first stave.
func WithPNGTitle() PNGOption { return func(r *pngRenderer) { r.title = true } }

// RenderPNG rasterizes the layout preview.
func RenderPNG(l *Layout, opts ...PNGOption) ([]byte, error) {
	r := &pngRenderer{scale: 2.0}
	for _, opt := range opts {
		opt(r)
	}
	tt, err := glyph.NewTrueType(nil)
	if err != nil {
		return nil, err
	}
	r.fonts = tt

	r.dc = gg.NewContext(int(l.Width*r.scale+0.5), int(l.Height*r.scale+0.5))
	r.dc.SetColor(color.White)
	r.dc.Clear()
	r.dc.Scale(r.scale, r.scale)
	r.dc.SetColor(color.Black)
	draw(l, r, r.drawOptions)

	var buf bytes.Buffer
	if err := r.dc.EncodePNG(&buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode png")
	}
	return buf.Bytes(), nil
}

func (r *pngRenderer) line(x1, y1, x2, y2, width float64) {
	r.dc.SetLineWidth(width)
	r.dc.DrawLine(x1, y1, x2, y2)
	r.dc.Stroke()
}

func (r *pngRenderer) guide(x, y1, y2 float64) {
	r.dc.Push()
	r.dc.SetRGB255(74, 144, 217)
	r.dc.SetLineWidth(0.5)
	r.dc.SetDash(2, 2)
	r.dc.DrawLine(x, y1, x, y2)
	r.dc.Stroke()
	r.dc.Pop()
}

func (r *pngRenderer) polygon(pts ...point) {
	for i, p := range pts {
		if i == 0 {
			r.dc.MoveTo(p.x, p.y)
			continue
		}
		r.dc.LineTo(p.x, p.y)
	}
	r.dc.ClosePath()
	r.dc.Fill()
}

func (r *pngRenderer) ellipse(cx, cy, rx, ry float64, filled bool) {
	r.dc.Push()
	r.dc.RotateAbout(gg.Radians(-20), cx, cy)
	r.dc.DrawEllipse(cx, cy, rx, ry)
	r.dc.Pop()
	if filled {
		r.dc.Fill()
		return
	}
	r.dc.SetLineWidth(1.5)
	r.dc.Stroke()
}

func (r *pngRenderer) text(s string, x, y, size float64, a anchor) {
	r.dc.SetFontFace(r.fonts.Face(size))
	ax := 0.0
	if a == anchorMiddle {
		ax = 0.5
	}
	r.dc.DrawStringAnchored(s, x, y, ax, 0)
}
