package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/engrave/pkg/pipeline"
	"github.com/matzehuels/engrave/pkg/score"
)

var tableHeaderStyle = lipgloss.NewStyle().Foreground(colorGray).Bold(true)

// inspectCommand creates the inspect command for printing spacing details.
func (c *CLI) inspectCommand() *cobra.Command {
	var (
		flags  layoutFlags
		voices bool
	)

	cmd := &cobra.Command{
		Use:   "inspect [score.yaml]",
		Short: "Print tick contexts and spacing metrics of a justified score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInspect(cmd.Context(), args[0], flags, voices)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&voices, "voices", false, "also print per-note spacing metrics")

	return cmd
}

func (c *CLI) runInspect(ctx context.Context, input string, flags layoutFlags, voices bool) error {
	doc, err := score.Load(input)
	if err != nil {
		return fmt.Errorf("load score %s: %w", input, err)
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	opts := flags.options()
	setCLIDefaults(&opts, cfg, c.Logger)

	e, err := pipeline.Prepare(ctx, doc, opts)
	if err != nil {
		return err
	}
	for i := 0; i < opts.TunePasses; i++ {
		if _, err := e.Tune(ctx); err != nil {
			return err
		}
	}

	fmt.Println(StyleTitle.Render(input))
	printInspectSummary(e)
	fmt.Println(contextTable(e).Render())
	if voices {
		fmt.Println(noteTable(e).Render())
	}
	return nil
}

func printInspectSummary(e *pipeline.Engine) {
	f := e.Formatter
	minWidth, _ := f.MinTotalWidth()
	printKeyValue("voices", strconv.Itoa(len(f.Voices())))
	printKeyValue("contexts", strconv.Itoa(len(f.TickContexts())))
	printKeyValue("resolution", fmt.Sprintf("x%d", f.ResolutionMultiplier()))
	printKeyValue("min width", fmt.Sprintf("%.2f", minWidth))
	if env, err := f.JustifyEnvelope(); err == nil {
		edge, _ := f.RightEdge()
		printKeyValue("justify", fmt.Sprintf("%.2f", f.JustifyWidth()))
		printKeyValue("envelope", fmt.Sprintf("[%.2f, %.2f] edge %.2f", env.Min, env.Max, edge))
		printKeyValue("iterations", strconv.Itoa(f.Iterations()))
	}
	printKeyValue("cost", fmt.Sprintf("%.3f", f.TotalCost()))
	if e.Passes() > 0 {
		printKeyValue("tuned", fmt.Sprintf("%d passes", e.Passes()))
	}
}

func contextTable(e *pipeline.Engine) *table.Table {
	var rows [][]string
	for _, tc := range e.Formatter.TickContexts() {
		width, _ := tc.Width()
		rows = append(rows, []string{
			strconv.FormatInt(tc.TickID(), 10),
			fmt.Sprintf("%.2f", tc.X()),
			fmt.Sprintf("%.2f", width),
			strconv.Itoa(len(tc.Tickables())),
		})
	}
	return newTable("Tick", "X", "Width", "Tickables").Rows(rows...)
}

func noteTable(e *pipeline.Engine) *table.Table {
	var rows [][]string
	for vi, v := range e.Formatter.Voices() {
		for i, t := range v.Tickables() {
			s, ok := e.Formatter.Space(t)
			if !ok {
				continue
			}
			rows = append(rows, []string{
				strconv.Itoa(vi),
				strconv.Itoa(i),
				s.Duration,
				fmt.Sprintf("%.2f", s.Used),
				fmt.Sprintf("%.2f", s.Mean),
				fmt.Sprintf("%+.2f", s.Deviation),
				fmt.Sprintf("%.2f", s.FreedomLeft),
				fmt.Sprintf("%.2f", s.FreedomRight),
			})
		}
	}
	return newTable("Voice", "Note", "Ticks", "Used", "Mean", "Dev", "Free L", "Free R").Rows(rows...)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 { // header
				return tableHeaderStyle
			}
			if col == 0 {
				return StyleNumber
			}
			return StyleValue
		})
}
