package cli

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sentichart/pkg/source"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for sentichart.

To load completions:

Bash:
  $ source <(sentichart completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ sentichart completion bash > /etc/bash_completion.d/sentichart
  # macOS:
  $ sentichart completion bash > $(brew --prefix)/etc/bash_completion.d/sentichart

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ sentichart completion zsh > "${fpath[1]}/_sentichart"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ sentichart completion fish | source

  # To load completions for each session, execute once:
  $ sentichart completion fish > ~/.config/fish/completions/sentichart.fish

PowerShell:
  PS> sentichart completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> sentichart completion powershell > sentichart.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
			}
			return nil
		},
	}

	return cmd
}

// completeStoredTickers completes ticker arguments from stored simulations.
func (c *CLI) completeStoredTickers(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	cfg, err := c.config()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	dir, err := storeDir(cfg)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	store, err := source.NewDirStore(dir)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	entries, err := store.List(cmd.Context())
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return matchTickers(entries, toComplete), cobra.ShellCompDirectiveNoFileComp
}

// matchTickers returns the distinct tickers in entries starting with prefix.
func matchTickers(entries []source.Entry, prefix string) []string {
	prefix = strings.ToUpper(prefix)
	seen := map[string]bool{}
	var tickers []string
	for _, e := range entries {
		t := e.Key.Ticker
		if !seen[t] && strings.HasPrefix(t, prefix) {
			seen[t] = true
			tickers = append(tickers, t)
		}
	}
	sort.Strings(tickers)
	return tickers
}
