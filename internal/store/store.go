// Package store persists work units and checkpoint records as JSONL
// documents under the workspace .weft directory.
//
// The document is not protected by any in-process or cross-process lock:
// two invocations mutating the same workspace race last-write-wins. This
// is a documented limitation, not an oversight.
package store

import (
	"context"
	"errors"

	"github.com/weftlabs/weft/internal/types"
)

// ErrNotFound is returned when a requested entity does not exist in the store.
var ErrNotFound = errors.New("not found")

// ErrExists is returned when creating an entity whose ID is already taken.
var ErrExists = errors.New("already exists")

// UnitRepository is the persistence boundary for work units. The
// transition coordinator and hook management are its only writers.
type UnitRepository interface {
	Create(ctx context.Context, unit *types.WorkUnit) error
	Load(ctx context.Context, id string) (*types.WorkUnit, error)
	Save(ctx context.Context, unit *types.WorkUnit) error
	List(ctx context.Context) ([]*types.WorkUnit, error)
	// NextID allocates the next sequential id for the given prefix
	// (AUTH-001, AUTH-002, ...). Allocation is not reserved: the id is
	// only taken once Create succeeds.
	NextID(ctx context.Context, prefix string) (string, error)
}

// CheckpointLog records the (work unit, name) -> snapshot ref mapping.
// Snapshot content itself lives in the snapshot store.
type CheckpointLog interface {
	Append(ctx context.Context, cp *types.Checkpoint) error
	ListByUnit(ctx context.Context, unitID string) ([]*types.Checkpoint, error)
	Find(ctx context.Context, unitID, name string) (*types.Checkpoint, error)
	Remove(ctx context.Context, unitID, name string) error
}
