package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	osexec "os/exec"
)

// Runner implements CommandExecutor using os/exec.
type Runner struct{}

// NewRunner creates a new Runner.
func NewRunner() *Runner {
	return &Runner{}
}

// Execute runs the command, capturing stdout and stderr separately.
func (r *Runner) Execute(ctx context.Context, cmd Command) (Result, error) {
	c := osexec.CommandContext(ctx, cmd.Program, cmd.Args...)
	if cmd.Dir != "" {
		c.Dir = cmd.Dir
	}
	if len(cmd.Env) > 0 {
		c.Env = os.Environ()
		for k, v := range cmd.Env {
			c.Env = append(c.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *osexec.ExitError
		if errors.As(err, &exitErr) {
			// The process ran and exited non-zero: that is a command
			// failure, not an execution error.
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("run %s: %w", cmd.Program, err)
	}

	result.ExitCode = 0
	result.Success = true
	return result, nil
}

// Verify Runner implements CommandExecutor at compile time.
var _ CommandExecutor = (*Runner)(nil)
