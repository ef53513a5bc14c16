// Package shell runs external commands for the repository client
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"al.essio.dev/pkg/shellescape"
)

// Result represents the result of a command execution
type Result struct {
	Command  string        // The command line that was executed, quoted for display
	ExitCode int           // Exit code of the command
	Stdout   string        // Standard output
	Stderr   string        // Standard error
	Duration time.Duration // How long the command took
	Success  bool          // Whether the command succeeded (exit code 0)
}

// Command is one program invocation. Args[0] is the program; no shell is involved.
type Command struct {
	Args []string
	// Stdin is written to the program's standard input; empty means no input
	Stdin string
}

// String renders the command line. Stdin is never included.
func (c Command) String() string {
	return shellescape.QuoteCommand(c.Args)
}

// Options configures command execution
type Options struct {
	WorkingDir  string            // Working directory for the command
	Environment map[string]string // Additional environment variables
	Timeout     time.Duration     // Command timeout (0 = only ctx bounds it)
}

// DefaultOptions returns the options used when none are given
func DefaultOptions() *Options {
	return &Options{
		Environment: make(map[string]string, 4),
	}
}

// Runner executes a command
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// Executor is the Runner backed by the operating system
type Executor struct {
	Options *Options
}

// NewExecutor creates an executor; nil opts means DefaultOptions
func NewExecutor(opts *Options) *Executor {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Executor{Options: opts}
}

// Run implements Runner. It is safe for concurrent use.
func (e *Executor) Run(ctx context.Context, cmd Command) (*Result, error) {
	return Execute(ctx, cmd, e.Options)
}

// Execute runs cmd and captures its output. opts is only read.
// A non-zero exit code is returned as an error together with the result.
func Execute(ctx context.Context, command Command, opts *Options) (*Result, error) {
	if len(command.Args) == 0 {
		return nil, errors.New("empty command")
	}
	var o Options
	if opts != nil {
		o = *opts
	}

	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	start := time.Now()

	cmd := exec.CommandContext(ctx, command.Args[0], command.Args[1:]...)
	cmd.WaitDelay = time.Second

	// nil stdin reads from the null device, so the program never prompts
	if command.Stdin != "" {
		cmd.Stdin = strings.NewReader(command.Stdin)
	}

	if o.WorkingDir != "" {
		cmd.Dir = o.WorkingDir
	}

	if len(o.Environment) > 0 {
		env := os.Environ()
		for key, value := range o.Environment {
			env = append(env, fmt.Sprintf("%s=%s", key, value))
		}
		cmd.Env = env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	result := &Result{Command: command.String()}

	err := cmd.Run()
	result.Duration = time.Since(start)
	result.Stdout = strings.TrimSpace(stdout.String())
	result.Stderr = strings.TrimSpace(stderr.String())

	if err != nil {
		var exitError *exec.ExitError
		if !errors.As(err, &exitError) {
			return nil, fmt.Errorf("command execution failed: %w", err)
		}
		result.ExitCode = exitError.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, fmt.Errorf("command interrupted: %w", ctxErr)
	}

	result.Success = result.ExitCode == 0
	if !result.Success {
		return result, fmt.Errorf("command failed with exit code %d: %s", result.ExitCode, result.Stderr)
	}

	return result, nil
}
