package kadmin

import (
	"context"
	"errors"
	"os/exec"
	"strings"
)

// Command is one subprocess invocation. Args are passed verbatim, no shell is
// involved anywhere.
type Command struct {
	Path  string
	Args  []string
	Stdin string
}

// ExecResult is the outcome of a command that actually ran.
type ExecResult struct {
	ExitCode int
	Output   string
}

// CommandRunner executes commands. The production implementation shells out
// via os/exec, tests substitute a fake to script exit codes and output.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) (ExecResult, error)
}

type execRunner struct{}

// Run executes the command and captures combined stdout and stderr. A nonzero
// exit is reported through ExecResult, not as an error. An error is returned
// only when the process could not run at all, e.g. the binary is missing or
// the context expired.
func (execRunner) Run(ctx context.Context, cmd Command) (ExecResult, error) {
	execCmd := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	if cmd.Stdin != "" {
		execCmd.Stdin = strings.NewReader(cmd.Stdin)
	}

	out, err := execCmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ExecResult{}, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return ExecResult{ExitCode: exitErr.ExitCode(), Output: string(out)}, nil
		}
		return ExecResult{}, err
	}

	return ExecResult{ExitCode: 0, Output: string(out)}, nil
}
