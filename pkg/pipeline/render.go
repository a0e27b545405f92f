package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/engrave/pkg/observability"
	"github.com/matzehuels/engrave/pkg/render"
)

// RenderLayout generates output artifacts in the requested formats.
// Formats are rendered concurrently; the sinks only read l.
func RenderLayout(ctx context.Context, l *render.Layout, opts Options) (map[string][]byte, error) {
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, opts.Formats)
	start := time.Now()

	var mu sync.Mutex
	artifacts := make(map[string][]byte, len(opts.Formats))
	g, gctx := errgroup.WithContext(ctx)
	for _, format := range opts.Formats {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := renderFormat(l, format, opts)
			if err != nil {
				return fmt.Errorf("render %s: %w", format, err)
			}
			mu.Lock()
			artifacts[format] = data
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return artifacts, nil
}

func renderFormat(l *render.Layout, format string, opts Options) ([]byte, error) {
	switch format {
	case FormatJSON:
		return render.RenderJSON(l)
	case FormatSVG:
		var svgOpts []render.SVGOption
		if opts.Guides {
			svgOpts = append(svgOpts, render.WithContextGuides())
		}
		if opts.Title {
			svgOpts = append(svgOpts, render.WithTitle())
		}
		return render.RenderSVG(l, svgOpts...), nil
	case FormatPNG:
		pngOpts := []render.PNGOption{render.WithScale(opts.Scale)}
		if opts.Guides {
			pngOpts = append(pngOpts, render.WithPNGContextGuides())
		}
		if opts.Title {
			pngOpts = append(pngOpts, render.WithPNGTitle())
		}
		return render.RenderPNG(l, pngOpts...)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}
