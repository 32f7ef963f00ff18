// Package exec provides an interface for external command execution.
// It is the only I/O seam for process invocation: the session runner and
// orchestrator depend solely on the CommandExecutor contract, which keeps
// everything above it deterministic under test.
package exec

import "context"

// Command describes one external process invocation.
type Command struct {
	// Program is the binary to invoke.
	Program string
	// Args are the program arguments.
	Args []string
	// Dir is the working directory; empty means the caller's.
	Dir string
	// Env holds extra environment variables, merged over the parent's.
	Env map[string]string
}

// Result carries the outcome of a command invocation.
type Result struct {
	// Stdout is the captured standard output.
	Stdout string
	// Stderr is the captured standard error.
	Stderr string
	// ExitCode is the process exit code.
	ExitCode int
	// Success is true when the process exited zero.
	Success bool
}

// CommandExecutor defines the contract for running external commands.
// Exactly two implementations exist: the os/exec-backed Runner and the
// deterministic Mock used in tests.
type CommandExecutor interface {
	// Execute runs the command and returns its result. A non-zero exit
	// is reported through Result, not err; err is reserved for failures
	// to spawn or context cancellation.
	Execute(ctx context.Context, cmd Command) (Result, error)
}
