// Package pipeline runs the engraving pipeline for engrave.
//
// This package implements the complete decode → build → format → render
// sequence that the CLI and the HTTP server share. By centralizing it here,
// both entry points cache, log and report the same way.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Build: Turn a score document into staves, voices, beams and tuplets
//  2. Format: Justify all voices against the stave width, optionally tune
//     the result, then post-format and export a layout document
//  3. Render: Generate output in various formats (JSON, SVG, PNG)
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, doc, pipeline.Options{
//	    Formats: []string{"svg"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
//
// Run individual stages:
//
//	// Format only
//	l, err := runner.Layout(ctx, doc, opts)
//
//	// Render an existing layout
//	artifacts, err := runner.Render(ctx, l, opts)
package pipeline

import (
	"bytes"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/engrave/pkg/cache"
	"github.com/matzehuels/engrave/pkg/config"
	"github.com/matzehuels/engrave/pkg/errors"
	"github.com/matzehuels/engrave/pkg/render"
)

// DefaultScale is the PNG pixel density used when Options.Scale is zero.
const DefaultScale = 2.0

// Format constants for output formats.
const (
	FormatJSON = "json"
	FormatSVG  = "svg"
	FormatPNG  = "png"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON: true,
	FormatSVG:  true,
	FormatPNG:  true,
}

// Options contains all configuration for one pipeline run.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Layout options
	Width      float64 `json:"width,omitempty"` // overrides the document's stave width
	TunePasses int     `json:"tune_passes,omitempty"`
	AlignRests bool    `json:"align_rests,omitempty"`

	// Render options
	Formats []string `json:"formats,omitempty"`
	Scale   float64  `json:"scale,omitempty"`
	Guides  bool     `json:"guides,omitempty"` // draw tick context guides
	Title   bool     `json:"title,omitempty"`

	// Runtime options (not serialized)
	Config  *config.Config `json:"-"`
	Logger  *log.Logger    `json:"-"`
	Refresh bool           `json:"-"` // ignore cached entries
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Layout is the exported layout document.
	Layout *render.Layout

	// LayoutKey is the cache key of the layout.
	LayoutKey string

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Voices     int
	Contexts   int
	Iterations int
	Cost       float64
	LayoutTime time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LayoutHit bool // Whether the layout came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidInput, "invalid format: %q (must be one of: json, svg, png)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// SetDefaults fills unset options. Tune passes and rest alignment fall
// back to the config's values.
func (o *Options) SetDefaults() {
	if o.Config == nil {
		o.Config = config.Default()
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if o.TunePasses == 0 {
		o.TunePasses = o.Config.Formatter.TunePasses
	}
	if !o.AlignRests {
		o.AlignRests = o.Config.Formatter.AlignRests
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Scale == 0 {
		o.Scale = DefaultScale
	}
}

// Validate checks option values after defaults are applied.
func (o *Options) Validate() error {
	if o.Width < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "width must not be negative, got %g", o.Width)
	}
	if o.TunePasses < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "tune passes must not be negative, got %d", o.TunePasses)
	}
	if o.Scale < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "scale must not be negative, got %g", o.Scale)
	}
	return ValidateFormats(o.Formats)
}

// ConfigHash identifies the engine settings in cache keys.
func (o *Options) ConfigHash() string {
	var buf bytes.Buffer
	if err := o.Config.Encode(&buf); err != nil {
		return ""
	}
	return cache.Hash(buf.Bytes())
}

// LayoutKeyOpts returns cache key options for layout computation.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		ConfigHash: o.ConfigHash(),
		Width:      o.Width,
		TunePasses: o.TunePasses,
		AlignRests: o.AlignRests,
	}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	opts := cache.ArtifactKeyOpts{Format: format, Guides: o.Guides, Title: o.Title}
	if format == FormatPNG {
		opts.Scale = o.Scale
	}
	return opts
}
