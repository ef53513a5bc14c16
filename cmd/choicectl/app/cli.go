package app

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Domain: CLI Application Structure
// This file contains the main CLI application setup with Cobra commands and flags

// App represents the CLI application
type App struct {
	version string
	commit  string
	date    string

	rootCmd *cobra.Command
	out     io.Writer
	in      io.Reader

	// Flags
	jobFile string
	envFile string
	user    string
	verbose bool
}

// NewApp creates a new CLI application
func NewApp(version, commit, date string) *App {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		out:     os.Stdout,
		in:      os.Stdin,
	}

	app.rootCmd = &cobra.Command{
		Use:   "choicectl",
		Short: "Resolve extended choice build parameters",
		Long: `choicectl computes the values of extended choice build parameters.

Parameters are defined in a job file (choices.yml by default). Their candidates
come from inline lists, property files, tab-delimited hierarchies or a
Subversion repository, optionally filtered by the caller's roles.

Examples:
  choicectl values ENV                   # Effective candidates of ENV
  choicectl values --all -u alice        # Every parameter as seen by alice
  choicectl submit ENV prod qa           # Match a form submission
  choicectl submit BRANCH --json '["a"]' # Match a structured submission
  choicectl hierarchy GENOME             # Dependent dropdowns of a multi-level parameter
  choicectl serve                        # Serve the HTTP host adapter`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	app.setupFlags()
	app.setupCommands()

	return app
}

// Execute runs the CLI application
func (a *App) Execute() error {
	return a.rootCmd.Execute()
}

// ExecuteContext runs the CLI application with ctx
func (a *App) ExecuteContext(ctx context.Context) error {
	return a.rootCmd.ExecuteContext(ctx)
}

// SetArgs overrides the command line, for tests
func (a *App) SetArgs(args []string) {
	a.rootCmd.SetArgs(args)
}

// SetOutput redirects command output
func (a *App) SetOutput(w io.Writer) {
	a.out = w
	a.rootCmd.SetOut(w)
	a.rootCmd.SetErr(w)
}

// SetInput redirects standard input
func (a *App) SetInput(r io.Reader) {
	a.in = r
	a.rootCmd.SetIn(r)
}

// setupFlags sets up all command-line flags
func (a *App) setupFlags() {
	flags := a.rootCmd.PersistentFlags()

	flags.StringVarP(&a.jobFile, "file", "f", "", "Job file (default: choices.yml, choices.yaml, .choices/choices.yml, .choices.yml)")
	flags.StringVar(&a.envFile, "env-file", ".env", "Environment file applied before reading CHOICES_* settings")
	flags.StringVarP(&a.user, "user", "u", "", "Caller identity used for role-based filtering")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Log at debug level")
}

// setupCommands sets up subcommands
func (a *App) setupCommands() {
	a.rootCmd.AddCommand(
		a.createValuesCommand(),
		a.createDefaultsCommand(),
		a.createSubmitCommand(),
		a.createHierarchyCommand(),
		a.createBoundCommand(),
		a.createCheckCommand(),
		a.createRolesCommand(),
		a.createSecretCommand(),
		a.createServeCommand(),
		a.createVersionCommand(),
		a.createCompletionCommand(),
	)
}
