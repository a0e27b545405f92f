// Package render turns a formatted score into output documents.
//
// [Build] reads the positions the formatter and the post-format passes
// computed and captures them in a [Layout]: a plain data document that the
// sinks draw without touching the notation objects again. Sinks only read
// the layout, so one layout can be rendered to several formats at once.
//
//	l, err := render.Build(sc, f, env)
//	data, err := render.RenderJSON(l)
//	svg := render.RenderSVG(l, render.WithContextGuides())
//	png, err := render.RenderPNG(l, render.WithScale(2))
//
// The SVG and PNG sinks draw a preview with simple shapes (ellipse heads,
// straight flags, text accidentals). They show spacing, not engraving.
package render
