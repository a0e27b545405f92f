package cli

import (
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/engrave/pkg/pipeline"
)

var (
	scoreExts     = []string{"yaml", "yml"}
	layoutExts    = []string{"yaml", "yml", "json"}
	renderFormats = []string{pipeline.FormatSVG, pipeline.FormatPNG, pipeline.FormatJSON}
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for engrave.

Score arguments complete to .yaml and .yml files (render also offers
.layout.json files), and --format completes the output formats.

  bash:        source <(engrave completion bash)
  zsh:         engrave completion zsh > "${fpath[1]}/_engrave"
  fish:        engrave completion fish > ~/.config/fish/completions/engrave.fish
  powershell:  engrave completion powershell | Out-String | Invoke-Expression`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			default:
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
		},
	}
}

// registerCompletions attaches argument and flag completions to the
// commands that read scores.
func registerCompletions(root *cobra.Command) {
	for _, cmd := range root.Commands() {
		switch cmd.Name() {
		case "layout", "inspect", "tune":
			cmd.ValidArgsFunction = completeFiles(scoreExts)
		case "render":
			cmd.ValidArgsFunction = completeFiles(layoutExts)
			_ = cmd.RegisterFlagCompletionFunc("format", completeFormats)
		}
	}
}

// completeFiles offers files with the given extensions for the single
// positional argument.
func completeFiles(exts []string) cobra.CompletionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return exts, cobra.ShellCompDirectiveFilterFileExt
	}
}

// completeFormats completes a comma-separated format list, offering only
// formats not already named.
func completeFormats(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	prefix := ""
	var chosen []string
	if i := strings.LastIndex(toComplete, ","); i >= 0 {
		prefix = toComplete[:i+1]
		chosen = strings.Split(toComplete[:i], ",")
	}

	var out []string
	for _, f := range renderFormats {
		if !slices.Contains(chosen, f) {
			out = append(out, prefix+f)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
}
