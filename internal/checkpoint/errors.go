package checkpoint

import (
	"errors"
	"fmt"
)

// ErrCheckpointNotFound is returned when a restore or cleanup target does
// not exist for the unit.
var ErrCheckpointNotFound = errors.New("checkpoint not found")

// ErrCheckpointNameCollision is returned when creating a checkpoint whose
// name is already taken within the unit. Checkpoints are never silently
// overwritten; delete first to reuse a name.
var ErrCheckpointNameCollision = errors.New("checkpoint name already exists")

// ErrDirtyWorkingTree classifies failures that require the caller to
// choose a remediation for local modifications (commit, stash, or force).
var ErrDirtyWorkingTree = errors.New("working tree has conflicting local modifications")

// Conflict is one path that cannot be cleanly restored, annotated with
// both versions. Working is nil when the file is absent from the working
// tree.
type Conflict struct {
	Path     string `json:"path"`
	Working  []byte `json:"working,omitempty"`
	Snapshot []byte `json:"snapshot"`
}

// ConflictError reports a restore aborted by its pre-flight check: the
// full conflict set, zero files written. It is a structured result for
// caller-mediated resolution, not a hard failure of the engine.
type ConflictError struct {
	WorkUnitID string
	Name       string
	Conflicts  []Conflict
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("restore %s/%s: %d conflicting file(s), nothing restored",
		e.WorkUnitID, e.Name, len(e.Conflicts))
}

// Is makes errors.Is(err, ErrDirtyWorkingTree) hold: an unresolved
// conflict is exactly a dirty-tree remediation decision.
func (e *ConflictError) Is(target error) bool {
	return target == ErrDirtyWorkingTree
}

// Paths returns the conflicting paths in snapshot order.
func (e *ConflictError) Paths() []string {
	out := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		out[i] = c.Path
	}
	return out
}
