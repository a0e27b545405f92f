package cli

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

func TestScoreArgCompletion(t *testing.T) {
	root := New(&bytes.Buffer{}, log.InfoLevel).RootCommand()

	tests := []struct {
		command  string
		wantExts []string
	}{
		{"layout", []string{"yaml", "yml"}},
		{"inspect", []string{"yaml", "yml"}},
		{"tune", []string{"yaml", "yml"}},
		{"render", []string{"yaml", "yml", "json"}},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			cmd, _, err := root.Find([]string{tt.command})
			if err != nil {
				t.Fatal(err)
			}
			if cmd.ValidArgsFunction == nil {
				t.Fatalf("%s has no argument completion", tt.command)
			}

			exts, directive := cmd.ValidArgsFunction(cmd, nil, "")
			if directive != cobra.ShellCompDirectiveFilterFileExt {
				t.Errorf("directive = %d, want FilterFileExt", directive)
			}
			if !slices.Equal(exts, tt.wantExts) {
				t.Errorf("extensions = %v, want %v", exts, tt.wantExts)
			}

			if _, directive := cmd.ValidArgsFunction(cmd, []string{"score.yaml"}, ""); directive != cobra.ShellCompDirectiveNoFileComp {
				t.Errorf("second argument directive = %d, want NoFileComp", directive)
			}
		})
	}
}

func TestCompleteFormats(t *testing.T) {
	tests := []struct {
		toComplete string
		want       []string
	}{
		{"", []string{"svg", "png", "json"}},
		{"s", []string{"svg", "png", "json"}},
		{"svg,", []string{"svg,png", "svg,json"}},
		{"svg,png,", []string{"svg,png,json"}},
	}
	for _, tt := range tests {
		t.Run(tt.toComplete, func(t *testing.T) {
			got, directive := completeFormats(nil, nil, tt.toComplete)
			if !slices.Equal(got, tt.want) {
				t.Errorf("completeFormats(%q) = %v, want %v", tt.toComplete, got, tt.want)
			}
			if directive&cobra.ShellCompDirectiveNoFileComp == 0 {
				t.Errorf("completeFormats(%q) allows file completion", tt.toComplete)
			}
		})
	}
}

func TestRenderFormatFlagCompletion(t *testing.T) {
	root := New(&bytes.Buffer{}, log.InfoLevel).RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{cobra.ShellCompRequestCmd, "render", "--format", "png,"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("__complete error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	for _, want := range []string{"png,svg", "png,json"} {
		if !slices.Contains(lines, want) {
			t.Errorf("completions %q missing %q", lines, want)
		}
	}
}

func TestCompletionScripts(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			root := New(&bytes.Buffer{}, log.InfoLevel).RootCommand()
			var out bytes.Buffer
			root.SetOut(&out)
			root.SetArgs([]string{"completion", shell})
			if err := root.ExecuteContext(context.Background()); err != nil {
				t.Fatalf("completion %s error: %v", shell, err)
			}
			if !strings.Contains(out.String(), appName) {
				t.Errorf("completion %s script does not mention %s", shell, appName)
			}
		})
	}
}
