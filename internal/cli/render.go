package cli

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/matzehuels/engrave/pkg/pipeline"
	"github.com/matzehuels/engrave/pkg/render"
	"github.com/matzehuels/engrave/pkg/score"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output  string  // output file path (or base path for multiple outputs)
	formats string  // comma-separated output formats
	scale   float64 // PNG pixel density
	guides  bool    // draw tick context guides
	title   bool    // draw the score title
	layout  layoutFlags
}

// renderCommand creates the render command for generating previews.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render [score.yaml | layout.json]",
		Short: "Render a score or layout to SVG, PNG or JSON",
		Long: `Render a score or layout to SVG, PNG or JSON.

A YAML score is justified first (using the cache when possible). A layout.json
produced by 'layout' is drawn as is.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formats := parseFormats(opts.formats)
			if err := pipeline.ValidateFormats(formats); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args[0], formats, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output format(s): svg (default), png, json (comma-separated)")
	cmd.Flags().Float64Var(&opts.scale, "scale", pipeline.DefaultScale, "PNG pixel density")
	cmd.Flags().BoolVar(&opts.guides, "guides", false, "draw tick context guides")
	cmd.Flags().BoolVar(&opts.title, "title", false, "draw the score title")
	opts.layout.register(cmd)

	return cmd
}

// runRender lays out or loads input and writes one file per format.
func (c *CLI) runRender(ctx context.Context, input string, formats []string, ro renderOpts) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, cfg, ro.layout.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts := ro.layout.options()
	opts.Formats = formats
	opts.Scale = ro.scale
	opts.Guides = ro.guides
	opts.Title = ro.title
	setCLIDefaults(&opts, cfg, c.Logger)

	prog := newProgress(c.Logger)
	var (
		artifacts map[string][]byte
		l         *render.Layout
		cached    bool
	)
	if isLayoutFile(input) {
		data, err := os.ReadFile(input)
		if err != nil {
			return fmt.Errorf("read layout %s: %w", input, err)
		}
		if l, err = render.ParseJSON(data); err != nil {
			return fmt.Errorf("parse layout %s: %w", input, err)
		}
		if artifacts, err = runner.Render(ctx, l, opts); err != nil {
			return err
		}
	} else {
		doc, err := score.Load(input)
		if err != nil {
			return fmt.Errorf("load score %s: %w", input, err)
		}
		result, err := runner.Execute(ctx, doc, opts)
		if err != nil {
			return err
		}
		artifacts, l = result.Artifacts, result.Layout
		cached = result.CacheInfo.LayoutHit
	}
	prog.done(fmt.Sprintf("Rendered %d format(s)", len(artifacts)))

	paths, err := writeArtifacts(artifacts, input, ro.output)
	if err != nil {
		return err
	}

	printSuccess("Render complete")
	for _, p := range paths {
		printFile(p)
	}
	printStats(len(l.Contexts), l.Iterations, l.Cost, cached)
	return nil
}

// writeArtifacts writes each artifact to its own file and returns the paths
// in format order. A single artifact goes to output verbatim when given.
func writeArtifacts(artifacts map[string][]byte, input, output string) ([]string, error) {
	formats := make([]string, 0, len(artifacts))
	for f := range artifacts {
		formats = append(formats, f)
	}
	sort.Strings(formats)

	base := basePath(output, input)
	var paths []string
	for _, format := range formats {
		path := base + "." + format
		if len(formats) == 1 && output != "" {
			path = output
		}
		if err := os.WriteFile(path, artifacts[format], 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
