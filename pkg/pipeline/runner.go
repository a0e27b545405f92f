package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/engrave/pkg/cache"
	"github.com/matzehuels/engrave/pkg/errors"
	"github.com/matzehuels/engrave/pkg/observability"
	"github.com/matzehuels/engrave/pkg/render"
	"github.com/matzehuels/engrave/pkg/score"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and server use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
	// TTL applies to every entry the runner writes; zero uses the cache
	// package defaults.
	TTL time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete build → format → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, doc *score.Document, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{}

	layoutStart := time.Now()
	l, key, hit, err := r.LayoutWithCacheInfo(ctx, doc, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Layout = l
	result.LayoutKey = key
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.Stats.Contexts = len(l.Contexts)
	result.Stats.Iterations = l.Iterations
	result.Stats.Cost = l.Cost
	for _, s := range doc.Staves {
		result.Stats.Voices += len(s.Voices)
	}
	result.CacheInfo.LayoutHit = hit

	r.Logger.Info("computed layout",
		"contexts", len(l.Contexts),
		"iterations", l.Iterations,
		"cost", fmt.Sprintf("%.2f", l.Cost),
		"cached", hit,
		"duration", result.Stats.LayoutTime)

	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, l, key, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// LayoutWithCacheInfo formats doc with caching and returns the layout, its
// cache key and whether it came from the cache.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, doc *score.Document, opts Options) (*render.Layout, string, bool, error) {
	if doc == nil {
		return nil, "", false, errors.New(errors.ErrCodeInvalidInput, "no score document")
	}
	r.applyLogger(&opts)
	opts.SetDefaults()

	data, err := doc.Bytes()
	if err != nil {
		return nil, "", false, err
	}
	key := r.Keyer.LayoutKey(cache.Hash(data), opts.LayoutKeyOpts())

	if !opts.Refresh {
		if cached, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			if l, err := render.ParseJSON(cached); err == nil {
				observability.Cache().OnCacheHit(ctx, "layout")
				return l, key, true, nil
			}
			// A corrupt entry is recomputed and overwritten.
		} else if err != nil {
			r.Logger.Warn("cache read failed", "key", key, "error", err)
		}
		observability.Cache().OnCacheMiss(ctx, "layout")
	}

	l, err := ComputeLayout(ctx, doc, opts)
	if err != nil {
		return nil, "", false, err
	}

	if encoded, err := render.RenderJSON(l); err == nil {
		if err := r.Cache.Set(ctx, key, encoded, r.ttl(cache.LayoutTTL)); err != nil {
			r.Logger.Warn("cache write failed", "key", key, "error", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "layout", len(encoded))
		}
	}
	return l, key, false, nil
}

// Layout is a convenience wrapper that calls LayoutWithCacheInfo and discards the cache info.
func (r *Runner) Layout(ctx context.Context, doc *score.Document, opts Options) (*render.Layout, error) {
	l, _, _, err := r.LayoutWithCacheInfo(ctx, doc, opts)
	return l, err
}

// RenderWithCacheInfo generates artifacts with caching and returns cache hit info.
// An empty layoutKey disables artifact caching.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, l *render.Layout, layoutKey string, opts Options) (map[string][]byte, bool, error) {
	if l == nil {
		return nil, false, errors.New(errors.ErrCodeInvalidInput, "no layout")
	}
	r.applyLogger(&opts)
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, false, err
	}

	if layoutKey != "" && !opts.Refresh {
		artifacts := make(map[string][]byte, len(opts.Formats))
		for _, format := range opts.Formats {
			key := r.Keyer.ArtifactKey(layoutKey, opts.ArtifactKeyOpts(format))
			data, hit, err := r.Cache.Get(ctx, key)
			if err != nil || !hit {
				observability.Cache().OnCacheMiss(ctx, "artifact")
				break
			}
			observability.Cache().OnCacheHit(ctx, "artifact")
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			return artifacts, true, nil
		}
	}

	rendered, err := RenderLayout(ctx, l, opts)
	if err != nil {
		return nil, false, err
	}

	if layoutKey != "" {
		for format, data := range rendered {
			key := r.Keyer.ArtifactKey(layoutKey, opts.ArtifactKeyOpts(format))
			if err := r.Cache.Set(ctx, key, data, r.ttl(cache.ArtifactTTL)); err == nil {
				observability.Cache().OnCacheSet(ctx, "artifact", len(data))
			}
		}
	}
	return rendered, false, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo without a
// layout key, so nothing is cached.
func (r *Runner) Render(ctx context.Context, l *render.Layout, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, l, "", opts)
	return artifacts, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) ttl(def time.Duration) time.Duration {
	if r.TTL > 0 {
		return r.TTL
	}
	return def
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
