// Package sys wraps the process and filesystem operations the credential
// backends depend on, so they can be replaced with fakes in tests.
package sys

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"
)

// Command describes one invocation of an external helper
type Command struct {
	Path string
	Args []string

	// Stdout receives output as it is produced. Nil discards it.
	Stdout io.Writer

	// Stderr receives the error stream. Nil discards it.
	Stderr io.Writer
}

// ExitError is returned when a command runs but exits with a non-zero status
type ExitError struct {
	Path string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Path, e.Code)
}

// ExitCode reports the exit status carried by err, if it is an ExitError
func ExitCode(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}

// CommandRunner runs external helpers
type CommandRunner interface {
	// Run executes the command and blocks until it exits.
	// A non-zero exit yields *ExitError; failing to start yields a wrapped error.
	Run(ctx context.Context, cmd Command) error
}

// ExecRunner runs commands with os/exec. Each invocation is bounded by
// Timeout and the child is killed when it expires.
type ExecRunner struct {
	Timeout time.Duration
}

// NewExecRunner creates a runner with the given per-command timeout
func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{Timeout: timeout}
}

// Run implements CommandRunner
func (r *ExecRunner) Run(ctx context.Context, cmd Command) error {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	c.Stdout = cmd.Stdout
	c.Stderr = cmd.Stderr
	c.WaitDelay = time.Second

	err := c.Run()
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", cmd.Path, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Path: cmd.Path, Code: exitErr.ExitCode()}
	}

	return fmt.Errorf("failed to run %s: %w", cmd.Path, err)
}
