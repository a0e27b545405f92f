// Package pkg provides the libraries behind engrave, a horizontal
// justification engine for music notation.
//
// # Overview
//
// engrave takes a score (staves, voices and notes described in YAML), aligns
// every note that starts at the same musical time into a shared tick context,
// and distributes the available stave width across those contexts so that
// spacing follows note durations. The result is a layout: absolute x
// positions for every context and note, ready to be drawn.
//
// The pkg directory is organized by stage:
//
//  1. [fraction] - exact rational arithmetic for durations and ticks
//  2. [notation] - tickables, voices, beams, tuplets, modifiers and tick contexts
//  3. [glyph] - font metrics used to size noteheads and text
//  4. [format] - the formatter: context creation, justification and tuning
//  5. [score] - the YAML score document and its construction into voices
//  6. [render] - layout snapshots and the JSON, SVG and PNG sinks
//  7. [pipeline] - orchestration (build, format, tune, render) with caching
//
// Supporting packages: [config] (engrave.toml), [cache] (file, Redis and
// null backends), [errors] (coded errors), [observability] (hooks) and
// [buildinfo] (version stamping).
//
// # Architecture
//
//	score YAML
//	     ↓
//	[score] Build (staves, voices, beams, tuplets)
//	     ↓
//	[format] Format (tick contexts, justification, optional Tune)
//	     ↓
//	[render] Build (layout snapshot)
//	     ↓
//	JSON/SVG/PNG output
//
// # Quick Start
//
//	doc, err := score.Parse(data)
//	if err != nil {
//	    return err
//	}
//	result, err := pipeline.NewRunner(nil, nil, nil).Execute(ctx, doc, pipeline.Options{
//	    Formats: []string{pipeline.FormatSVG},
//	})
//	if err != nil {
//	    return err
//	}
//	os.WriteFile("score.svg", result.Artifacts[pipeline.FormatSVG], 0o644)
//
// For direct control over the formatter:
//
//	f := format.New(format.WithEnv(env))
//	if _, err := f.Format(voices, 400, format.Options{AlignRests: true}); err != nil {
//	    return err
//	}
//	f.Tune(0.5)
//	if err := f.PostFormat(); err != nil {
//	    return err
//	}
//
// # Testing
//
//	go test ./pkg/...          # All tests
//	go test ./pkg/format/...   # Specific package
//	go test -run Example ./... # Examples only
//
// Redis-backed cache tests run only when ENGRAVE_REDIS_ADDR is set.
//
// [fraction]: https://pkg.go.dev/github.com/matzehuels/engrave/pkg/fraction
// [notation]: https://pkg.go.dev/github.com/matzehuels/engrave/pkg/notation
// [glyph]: https://pkg.go.dev/github.com/matzehuels/engrave/pkg/glyph
// [format]: https://pkg.go.dev/github.com/matzehuels/engrave/pkg/format
// [score]: https://pkg.go.dev/github.com/matzehuels/engrave/pkg/score
// [render]: https://pkg.go.dev/github.com/matzehuels/engrave/pkg/render
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/engrave/pkg/pipeline
// [config]: https://pkg.go.dev/github.com/matzehuels/engrave/pkg/config
// [cache]: https://pkg.go.dev/github.com/matzehuels/engrave/pkg/cache
// [errors]: https://pkg.go.dev/github.com/matzehuels/engrave/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/engrave/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/engrave/pkg/buildinfo
package pkg
