// Package checkpoint saves and restores working-tree state per work unit.
//
// The engine owns the mapping from (work unit, name) to snapshot ref;
// snapshot content is owned by the snapshot store behind the Snapshotter
// interface. Restore is all-or-nothing: the full conflict set is computed
// before a single byte is written.
package checkpoint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/weftlabs/weft/internal/gitvc"
	"github.com/weftlabs/weft/internal/store"
	"github.com/weftlabs/weft/internal/telemetry"
	"github.com/weftlabs/weft/internal/types"
)

// Snapshotter is the narrow version-control capability the engine
// consumes. Implementations signal an absent path with
// gitvc.ErrPathNotInSnapshot, the way fs implementations share
// fs.ErrNotExist.
type Snapshotter interface {
	DirtyPaths(ctx context.Context) ([]string, error)
	Snapshot(ctx context.Context, paths []string) (string, error)
	ReadFile(ctx context.Context, ref, path string) ([]byte, error)
	ReadBaseFile(ctx context.Context, ref, path string) ([]byte, error)
	ListFiles(ctx context.Context, ref string) ([]string, error)
	Drop(ctx context.Context, ref string) error
}

// Engine implements create/list/restore/cleanup over a Snapshotter and a
// checkpoint log.
type Engine struct {
	snaps Snapshotter
	log   store.CheckpointLog
	root  string

	// Now is the clock used for CreatedAt stamps. Tests substitute it.
	Now func() time.Time
}

// NewEngine returns an engine writing restored files under root (the
// working tree the Snapshotter captures from).
func NewEngine(snaps Snapshotter, log store.CheckpointLog, root string) *Engine {
	return &Engine{snaps: snaps, log: log, root: root, Now: time.Now}
}

// RestoreResult reports a successful restore.
type RestoreResult struct {
	Name     string   `json:"name"`
	Restored []string `json:"restored"`
}

// CleanupResult reports retention counts after a cleanup.
type CleanupResult struct {
	Deleted   int `json:"deleted"`
	Preserved int `json:"preserved"`
}

// Create captures every modified and untracked file in the working tree
// as a new checkpoint. An empty dirty set still records a (empty)
// checkpoint: the call is an explicit request for a restore point.
func (e *Engine) Create(ctx context.Context, unitID, name string, kind types.CheckpointKind) (*types.Checkpoint, error) {
	if name == "" {
		return nil, fmt.Errorf("checkpoint name must not be empty")
	}
	if !kind.IsValid() {
		return nil, fmt.Errorf("invalid checkpoint kind %q", kind)
	}

	if _, err := e.log.Find(ctx, unitID, name); err == nil {
		return nil, fmt.Errorf("checkpoint %s/%s: %w", unitID, name, ErrCheckpointNameCollision)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	paths, err := e.snaps.DirtyPaths(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect dirty paths: %w", err)
	}
	ref, err := e.snaps.Snapshot(ctx, paths)
	if err != nil {
		return nil, fmt.Errorf("create snapshot: %w", err)
	}

	cp := &types.Checkpoint{
		Name:        name,
		Kind:        kind,
		CreatedAt:   e.Now(),
		WorkUnitID:  unitID,
		SnapshotRef: ref,
	}
	if err := e.log.Append(ctx, cp); err != nil {
		// The log is the source of truth; an unrecorded snapshot ref is
		// garbage, so drop it best-effort.
		_ = e.snaps.Drop(ctx, ref)
		if errors.Is(err, store.ErrExists) {
			return nil, fmt.Errorf("checkpoint %s/%s: %w", unitID, name, ErrCheckpointNameCollision)
		}
		return nil, err
	}
	telemetry.RecordCheckpoint(ctx, string(kind))
	return cp, nil
}

// List returns the unit's checkpoints newest-created-first.
func (e *Engine) List(ctx context.Context, unitID string) ([]*types.Checkpoint, error) {
	cps, err := e.log.ListByUnit(ctx, unitID)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(cps)
	return cps, nil
}

// Restore writes every file recorded in the named checkpoint back to the
// working tree. If any path conflicts it writes nothing and returns a
// *ConflictError carrying the full conflict set. Restoring does not
// consume the checkpoint.
func (e *Engine) Restore(ctx context.Context, unitID, name string) (*RestoreResult, error) {
	cp, err := e.findCheckpoint(ctx, unitID, name)
	if err != nil {
		return nil, err
	}

	files, err := e.snaps.ListFiles(ctx, cp.SnapshotRef)
	if err != nil {
		return nil, fmt.Errorf("list snapshot files: %w", err)
	}

	// Pre-flight: decide every path before writing any.
	type pending struct {
		path    string
		content []byte
	}
	var (
		writes    []pending
		conflicts []Conflict
	)
	for _, path := range files {
		snapContent, err := e.snaps.ReadFile(ctx, cp.SnapshotRef, path)
		if err != nil {
			return nil, fmt.Errorf("read %s from snapshot: %w", path, err)
		}

		working, workingExists, err := readWorkingFile(filepath.Join(e.root, filepath.FromSlash(path)))
		if err != nil {
			return nil, fmt.Errorf("read working copy of %s: %w", path, err)
		}

		if workingExists && bytes.Equal(working, snapContent) {
			// Already at the snapshot content; still rewritten below so a
			// restore means what it says, but never a conflict.
			writes = append(writes, pending{path, snapContent})
			continue
		}

		base, baseExists, err := e.readBase(ctx, cp.SnapshotRef, path)
		if err != nil {
			return nil, fmt.Errorf("read base copy of %s: %w", path, err)
		}

		// Conflict iff the working content diverged from both the snapshot
		// and the base it was taken against. Absence counts as a content
		// value on both sides.
		unmodifiedSinceBase := workingExists == baseExists && (!workingExists || bytes.Equal(working, base))
		if unmodifiedSinceBase {
			writes = append(writes, pending{path, snapContent})
			continue
		}
		conflicts = append(conflicts, Conflict{Path: path, Working: working, Snapshot: snapContent})
	}

	if len(conflicts) > 0 {
		return nil, &ConflictError{WorkUnitID: unitID, Name: name, Conflicts: conflicts}
	}

	result := &RestoreResult{Name: name}
	for _, w := range writes {
		dest := filepath.Join(e.root, filepath.FromSlash(w.path))
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return result, fmt.Errorf("restore %s: %w", w.path, err)
		}
		if err := os.WriteFile(dest, w.content, 0644); err != nil {
			return result, fmt.Errorf("restore %s: %w", w.path, err)
		}
		result.Restored = append(result.Restored, w.path)
	}
	return result, nil
}

// Cleanup keeps the keepLast most recently created checkpoints and drops
// the rest, automatic and manual alike.
func (e *Engine) Cleanup(ctx context.Context, unitID string, keepLast int) (*CleanupResult, error) {
	if keepLast < 0 {
		return nil, fmt.Errorf("keepLast must be >= 0, got %d", keepLast)
	}
	cps, err := e.List(ctx, unitID)
	if err != nil {
		return nil, err
	}

	keep := keepLast
	if keep > len(cps) {
		keep = len(cps)
	}
	result := &CleanupResult{Preserved: keep}
	for _, cp := range cps[keep:] {
		if err := e.drop(ctx, cp); err != nil {
			return result, err
		}
		result.Deleted++
	}
	return result, nil
}

// CleanupOlderThan drops every checkpoint created before the cutoff,
// regardless of how many remain.
func (e *Engine) CleanupOlderThan(ctx context.Context, unitID string, cutoff time.Time) (*CleanupResult, error) {
	cps, err := e.List(ctx, unitID)
	if err != nil {
		return nil, err
	}
	result := &CleanupResult{}
	for _, cp := range cps {
		if !cp.CreatedAt.Before(cutoff) {
			result.Preserved++
			continue
		}
		if err := e.drop(ctx, cp); err != nil {
			return result, err
		}
		result.Deleted++
	}
	return result, nil
}

func (e *Engine) drop(ctx context.Context, cp *types.Checkpoint) error {
	if err := e.snaps.Drop(ctx, cp.SnapshotRef); err != nil {
		return fmt.Errorf("drop snapshot for %s/%s: %w", cp.WorkUnitID, cp.Name, err)
	}
	if err := e.log.Remove(ctx, cp.WorkUnitID, cp.Name); err != nil {
		return fmt.Errorf("remove checkpoint record %s/%s: %w", cp.WorkUnitID, cp.Name, err)
	}
	return nil
}

func (e *Engine) findCheckpoint(ctx context.Context, unitID, name string) (*types.Checkpoint, error) {
	cp, err := e.log.Find(ctx, unitID, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("checkpoint %s/%s: %w", unitID, name, ErrCheckpointNotFound)
		}
		return nil, err
	}
	return cp, nil
}

func (e *Engine) readBase(ctx context.Context, ref, path string) (content []byte, exists bool, err error) {
	content, err = e.snaps.ReadBaseFile(ctx, ref, path)
	if err != nil {
		if errors.Is(err, gitvc.ErrPathNotInSnapshot) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return content, true, nil
}

func readWorkingFile(path string) (content []byte, exists bool, err error) {
	content, err = os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return content, true, nil
}

// sortNewestFirst orders by CreatedAt descending; on equal timestamps the
// later-appended checkpoint wins.
func sortNewestFirst(cps []*types.Checkpoint) {
	slices.SortStableFunc(cps, func(a, b *types.Checkpoint) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	slices.Reverse(cps)
}
