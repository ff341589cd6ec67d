package hooks

import "fmt"

// BlockingHookError reports a blocking hook that failed and halted its
// pipeline. During pre-hooks it aborts the transition before any state
// mutation; during post-hooks the state change is already committed and
// the error marks the overall result as failed instead.
type BlockingHookError struct {
	Hook     string
	Phase    string // "pre" or "post"
	ExitCode int
	TimedOut bool
	Stderr   string
}

func (e *BlockingHookError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("blocking %s-hook %s timed out", e.Phase, e.Hook)
	}
	return fmt.Sprintf("blocking %s-hook %s failed (exit %d)", e.Phase, e.Hook, e.ExitCode)
}
