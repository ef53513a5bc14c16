package app

import (
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/jobfile"
	"github.com/spf13/cobra"
)

// Domain: Shell Completion
// This file contains logic for shell completion

// CompleteParameterNames completes the parameter names of the job file
func CompleteParameterNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) != 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	jobFile, _ := cmd.Flags().GetString("file")
	job, err := jobfile.NewLoader(".").Load(jobFile)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	var completions []string
	for _, p := range job.Parameters {
		completions = append(completions, p.Name+"\t["+string(p.Type)+"] "+p.Description)
	}

	return completions, cobra.ShellCompDirectiveNoFileComp
}

// createCompletionCommand creates the completion subcommand
func (a *App) createCompletionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate completion script",
		Long: `Generate shell completion script for choicectl.

To load completions:

Bash:

  $ source <(choicectl completion bash)

Zsh:

  $ choicectl completion zsh > "${fpath[1]}/_choicectl"

Fish:

  $ choicectl completion fish | source

PowerShell:

  PS> choicectl completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return a.rootCmd.GenBashCompletion(a.out)
			case "zsh":
				return a.rootCmd.GenZshCompletion(a.out)
			case "fish":
				return a.rootCmd.GenFishCompletion(a.out, true)
			default:
				return a.rootCmd.GenPowerShellCompletionWithDesc(a.out)
			}
		},
	}
}
