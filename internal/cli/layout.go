package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/engrave/pkg/pipeline"
	"github.com/matzehuels/engrave/pkg/render"
	"github.com/matzehuels/engrave/pkg/score"
)

// layoutFlags are the formatting flags shared by layout, render, inspect and tune.
type layoutFlags struct {
	width      float64
	tunePasses int
	alignRests bool
	noCache    bool
}

func (f *layoutFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.width, "width", 0, "stave width (default: the score's width)")
	cmd.Flags().IntVar(&f.tunePasses, "tune", 0, "tuning passes after justification (default: from config)")
	cmd.Flags().BoolVar(&f.alignRests, "align-rests", false, "align rests to neighboring notes")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching")
}

func (f *layoutFlags) options() pipeline.Options {
	return pipeline.Options{Width: f.width, TunePasses: f.tunePasses, AlignRests: f.alignRests}
}

// layoutCommand creates the layout command for justifying a score.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output string
		flags  layoutFlags
	)

	cmd := &cobra.Command{
		Use:   "layout [score.yaml]",
		Short: "Justify a score and write its layout document",
		Long: `Justify a score and write its layout document.

The layout command reads a YAML score, aligns simultaneous notes of all voices
into tick contexts and spaces them to fill the stave width. The output is a
layout.json file (same format as 'render -f json') that 'render' can draw
without formatting again.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), args[0], flags, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json, - for stdout)")
	flags.register(cmd)

	return cmd
}

// runLayout loads the score, computes the layout, and writes output.
func (c *CLI) runLayout(ctx context.Context, input string, flags layoutFlags, output string) error {
	doc, err := score.Load(input)
	if err != nil {
		return fmt.Errorf("load score %s: %w", input, err)
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, cfg, flags.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts := flags.options()
	setCLIDefaults(&opts, cfg, c.Logger)

	spinner := newSpinnerWithContext(ctx, "Justifying score...")
	spinner.Start()

	l, _, cacheHit, err := runner.LayoutWithCacheInfo(ctx, doc, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	outputPath := output
	if outputPath == "" {
		outputPath = basePath("", input) + ".layout.json"
	}
	if err := writeLayout(l, outputPath); err != nil {
		return err
	}
	if outputPath == "-" {
		return nil
	}

	printSuccess("Layout complete")
	printFile(outputPath)
	printStats(len(l.Contexts), l.Iterations, l.Cost, cacheHit)
	printNewline()
	printNextStep("Render", appName+" render "+outputPath)

	return nil
}

func writeLayout(l *render.Layout, path string) error {
	data, err := render.RenderJSON(l)
	if err != nil {
		return fmt.Errorf("encode layout: %w", err)
	}
	out, err := openOutput(path)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := out.Write(data); err != nil {
		return fmt.Errorf("write output %s: %w", path, err)
	}
	return nil
}
