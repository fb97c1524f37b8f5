package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/graphstudio/pkg/layout"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for graphstudio.

To load completions:

Bash:
  $ source <(graphstudio completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ graphstudio completion bash > /etc/bash_completion.d/graphstudio
  # macOS:
  $ graphstudio completion bash > $(brew --prefix)/etc/bash_completion.d/graphstudio

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ graphstudio completion zsh > "${fpath[1]}/_graphstudio"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ graphstudio completion fish | source

  # To load completions for each session, execute once:
  $ graphstudio completion fish > ~/.config/fish/completions/graphstudio.fish

PowerShell:
  PS> graphstudio completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> graphstudio completion powershell > graphstudio.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(w)
			case "zsh":
				return cmd.Root().GenZshCompletion(w)
			case "fish":
				return cmd.Root().GenFishCompletion(w, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(w)
			}
			return nil
		},
	}

	return cmd
}

// registerLayoutCompletions completes the layout selection flags of cmd.
func registerLayoutCompletions(cmd *cobra.Command) {
	_ = cmd.RegisterFlagCompletionFunc("strategy", cobra.FixedCompletions(
		[]string{layout.StrategyAuto, layout.StrategyHeuristic, layout.StrategyGraphviz}, cobra.ShellCompDirectiveNoFileComp))
	_ = cmd.RegisterFlagCompletionFunc("leveling", cobra.FixedCompletions(
		[]string{"longest", "shortest"}, cobra.ShellCompDirectiveNoFileComp))
}
