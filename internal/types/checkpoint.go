package types

import "time"

// CheckpointKind distinguishes user-requested checkpoints from the
// automatic ones the transition coordinator takes on dirty trees.
type CheckpointKind string

// Checkpoint kind constants.
const (
	CheckpointManual    CheckpointKind = "manual"
	CheckpointAutomatic CheckpointKind = "automatic"
)

// IsValid checks if the checkpoint kind is valid.
func (k CheckpointKind) IsValid() bool {
	return k == CheckpointManual || k == CheckpointAutomatic
}

// Checkpoint maps a name (unique within its work unit) to a working-tree
// snapshot. Checkpoints are never mutated; restoring one does not consume
// it.
type Checkpoint struct {
	Name        string         `json:"name"`
	Kind        CheckpointKind `json:"kind"`
	CreatedAt   time.Time      `json:"created_at"`
	WorkUnitID  string         `json:"work_unit_id"`
	SnapshotRef string         `json:"snapshot_ref"`
}
