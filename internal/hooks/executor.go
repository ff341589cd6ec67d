package hooks

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"time"
)

// DefaultTimeout applies when a hook definition carries no timeout of its
// own.
const DefaultTimeout = 60 * time.Second

// Command is an immutable description of one hook invocation.
type Command struct {
	Name    string
	Line    string // shell command line, run via the platform shell
	Dir     string
	Env     []string // extra KEY=VALUE pairs appended to the environment
	Stdin   []byte
	Timeout time.Duration
}

// ExecResult captures everything observable about one hook run.
type ExecResult struct {
	ExitCode int
	TimedOut bool
	Stdout   string
	Stderr   string
	Duration time.Duration
	Err      error // spawn failure; nil for a process that ran to an exit code
}

// Executor is the process-spawning capability the orchestrator consumes.
// Production code uses ShellExecutor; tests substitute fakes.
type Executor interface {
	Execute(ctx context.Context, cmd Command) ExecResult
}

// ShellExecutor runs commands through the platform shell with a timeout.
// On timeout the whole process group is killed so backgrounded children
// do not outlive the hook.
type ShellExecutor struct{}

// Execute runs the command, honoring cmd.Timeout (DefaultTimeout when
// unset). The command line goes through the shell, with cmd.Stdin on
// standard input.
func (ShellExecutor) Execute(ctx context.Context, cmd Command) ExecResult {
	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// #nosec G204 -- command comes from the user's own hook configuration
	proc := shellCommand(runCtx, cmd.Line)
	proc.Dir = cmd.Dir
	proc.Env = append(os.Environ(), cmd.Env...)
	proc.Stdin = bytes.NewReader(cmd.Stdin)

	var stdout, stderr bytes.Buffer
	proc.Stdout = &stdout
	proc.Stderr = &stderr

	setProcessGroup(proc)

	start := time.Now()
	if err := proc.Start(); err != nil {
		return ExecResult{ExitCode: -1, Err: err, Duration: time.Since(start)}
	}

	done := make(chan error, 1)
	go func() {
		done <- proc.Wait()
	}()

	var waitErr error
	timedOut := false
	select {
	case <-runCtx.Done():
		killProcessGroup(proc)
		<-done
		timedOut = errors.Is(runCtx.Err(), context.DeadlineExceeded)
		waitErr = runCtx.Err()
	case waitErr = <-done:
	}

	result := ExecResult{
		TimedOut: timedOut,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	switch {
	case timedOut:
		result.ExitCode = -1
	case waitErr == nil:
		result.ExitCode = 0
	default:
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
			result.Err = waitErr
		}
	}
	return result
}
