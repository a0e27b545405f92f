package cli

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/engrave/pkg/pipeline"
	"github.com/matzehuels/engrave/pkg/score"
)

const (
	defaultTunePasses = 10
	// tuneEpsilon is the smallest cost change that counts as progress.
	tuneEpsilon = 1e-9
)

// tuneCommand creates the tune command.
func (c *CLI) tuneCommand() *cobra.Command {
	var (
		flags       layoutFlags
		passes      int
		interactive bool
		output      string
	)

	cmd := &cobra.Command{
		Use:   "tune [score.yaml]",
		Short: "Run tuning passes over a justified score",
		Long: `Run tuning passes over a justified score.

Each pass moves every tick context toward the position that evens out the
space between notes of equal duration, within the free space around it.
Passes stop early once the cost no longer falls.

With -i the passes run in an interactive viewer: n or space runs one pass,
a toggles automatic passes, q quits.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTune(cmd.Context(), args[0], flags, passes, interactive, output)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&passes, "passes", "n", defaultTunePasses, "maximum tuning passes")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "step through passes in an interactive viewer")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the tuned layout to this file")

	return cmd
}

func (c *CLI) runTune(ctx context.Context, input string, flags layoutFlags, passes int, interactive bool, output string) error {
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

	if interactive {
		m := newTuneModel(ctx, e, input, passes)
		final, err := tea.NewProgram(m, tea.WithContext(ctx)).Run()
		if err != nil {
			return fmt.Errorf("tune viewer: %w", err)
		}
		if fm, ok := final.(tuneModel); ok && fm.err != nil {
			return fm.err
		}
	} else {
		printInfo("initial cost %s", StyleNumber.Render(fmt.Sprintf("%.4f", e.Cost())))
		prev := e.Cost()
		for i := 0; i < passes; i++ {
			cost, err := e.Tune(ctx)
			if err != nil {
				return err
			}
			printDetail("pass %d: cost %.4f", i+1, cost)
			if prev-cost < tuneEpsilon {
				break
			}
			prev = cost
		}
		printSuccess("Tuned %d passes, cost %.4f", e.Passes(), e.Cost())
	}

	if output == "" {
		return nil
	}
	l, err := e.Finish()
	if err != nil {
		return err
	}
	if err := writeLayout(l, output); err != nil {
		return err
	}
	printFile(output)
	return nil
}

// =============================================================================
// tuneModel - Interactive tuning viewer
// =============================================================================

// autoStepMsg triggers the next automatic pass.
type autoStepMsg struct{}

// tuneModel is the bubbletea model for stepping through tuning passes.
type tuneModel struct {
	ctx       context.Context
	engine    *pipeline.Engine
	title     string
	maxPasses int

	history   []float64
	auto      bool
	converged bool
	err       error
	width     int
}

func newTuneModel(ctx context.Context, e *pipeline.Engine, title string, maxPasses int) tuneModel {
	return tuneModel{
		ctx:       ctx,
		engine:    e,
		title:     title,
		maxPasses: maxPasses,
		history:   []float64{e.Cost()},
		width:     60,
	}
}

func (m tuneModel) Init() tea.Cmd {
	return nil
}

func (m tuneModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "n", " ", "space", "enter":
			m = m.step()
			if m.err != nil {
				return m, tea.Quit
			}
		case "a":
			m.auto = !m.auto
			if m.auto && !m.stopped() {
				return m, autoStep()
			}
		}
	case autoStepMsg:
		if !m.auto || m.stopped() {
			m.auto = false
			return m, nil
		}
		m = m.step()
		if m.err != nil {
			return m, tea.Quit
		}
		return m, autoStep()
	case tea.WindowSizeMsg:
		m.width = msg.Width - 4
		if m.width < 20 {
			m.width = 20
		}
	}
	return m, nil
}

func autoStep() tea.Cmd {
	return tea.Tick(150*time.Millisecond, func(time.Time) tea.Msg { return autoStepMsg{} })
}

func (m tuneModel) stopped() bool {
	return m.converged || m.engine.Passes() >= m.maxPasses
}

// step runs one pass unless the model has stopped.
func (m tuneModel) step() tuneModel {
	if m.stopped() {
		return m
	}
	prev := m.history[len(m.history)-1]
	cost, err := m.engine.Tune(m.ctx)
	if err != nil {
		m.err = err
		return m
	}
	m.history = append(append([]float64(nil), m.history...), cost)
	if prev-cost < tuneEpsilon {
		m.converged = true
	}
	return m
}

func (m tuneModel) View() string {
	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteString("\n")
	}

	line(StyleTitle.Render("Tune " + m.title))
	line(StyleDim.Render("n/space step  a auto  q quit"))
	line("")
	line(StyleDim.Render("contexts ") + m.ruler())
	line(StyleDim.Render("cost     ") + StyleHighlight.Render(sparkline(m.history, m.width)))
	line("")

	status := fmt.Sprintf("pass %d/%d  cost %.4f", m.engine.Passes(), m.maxPasses, m.history[len(m.history)-1])
	switch {
	case m.err != nil:
		line(StyleWarning.Render(m.err.Error()))
	case m.converged:
		line(StyleSuccess.Render(status + "  converged"))
	case m.auto:
		line(StyleValue.Render(status + "  running"))
	default:
		line(StyleValue.Render(status))
	}
	return b.String()
}

// ruler marks each tick context on a line scaled to the justify width.
func (m tuneModel) ruler() string {
	f := m.engine.Formatter
	span := f.JustifyWidth()
	if span <= 0 {
		span, _ = f.MinTotalWidth()
	}
	cells := []rune(strings.Repeat("·", m.width))
	if span <= 0 {
		return string(cells)
	}
	for _, tc := range f.TickContexts() {
		i := int(math.Round(tc.X() / span * float64(m.width-1)))
		if i >= 0 && i < len(cells) {
			cells[i] = '│'
		}
	}
	return string(cells)
}

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// sparkline draws the most recent values that fit in width.
func sparkline(values []float64, width int) string {
	if len(values) > width {
		values = values[len(values)-width:]
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	out := make([]rune, len(values))
	for i, v := range values {
		level := len(sparkRunes) - 1
		if hi > lo {
			level = int((v - lo) / (hi - lo) * float64(len(sparkRunes)-1))
		}
		out[i] = sparkRunes[level]
	}
	return string(out)
}
