package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/linkscope/internal/config"
	"github.com/matzehuels/linkscope/pkg/layout"
	"github.com/matzehuels/linkscope/pkg/render"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for linkscope.

Besides commands and flags, the scripts complete layout algorithms,
export formats, view stores and the ids of saved views.

  $ source <(linkscope completion bash)
  $ linkscope completion zsh > "${fpath[1]}/_linkscope"
  $ linkscope completion fish | source
  PS> linkscope completion powershell | Out-String | Invoke-Expression`,
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
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}

	return cmd
}

// =============================================================================
// Dynamic Completions
// =============================================================================

func completeAlgorithms(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return layout.Default().Algorithms(), cobra.ShellCompDirectiveNoFileComp
}

func completeFormats(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return []string{string(render.SVG), string(render.PNG), string(render.DOT)}, cobra.ShellCompDirectiveNoFileComp
}

func completeStores(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return []string{
		config.StoreMemory, config.StoreFile, config.StoreRedis, config.StoreMongo, config.StoreBadger,
	}, cobra.ShellCompDirectiveNoFileComp
}

// completeViewIDs lists saved views of the session selected by src as
// "id<TAB>name" pairs. Backend errors yield no suggestions.
func (c *CLI) completeViewIDs(src *sourceFlags) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		if cfg, err := config.Load(c.configPath); err == nil {
			c.cfg = cfg
		}
		session, err := c.openBackend(*src)
		if err != nil || session.views == nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		list, err := session.views.List(cmd.Context())
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		out := make([]string, 0, len(list))
		for _, v := range list {
			out = append(out, v.ID+"\t"+v.Name)
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	}
}
