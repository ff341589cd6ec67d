// Package weft provides the public API for driving work units through
// their lifecycle programmatically.
//
// The CLI under cmd/wf is a thin consumer of this package; Go-based
// automation can use it directly. Open a project rooted at a .weft
// workspace, then call the transition, checkpoint, and hook operations.
package weft

import (
	"context"
	"fmt"
	"time"

	"github.com/weftlabs/weft/internal/checkpoint"
	"github.com/weftlabs/weft/internal/config"
	"github.com/weftlabs/weft/internal/gitvc"
	"github.com/weftlabs/weft/internal/hooks"
	"github.com/weftlabs/weft/internal/store"
	"github.com/weftlabs/weft/internal/temporal"
	"github.com/weftlabs/weft/internal/transition"
	"github.com/weftlabs/weft/internal/types"
	"github.com/weftlabs/weft/internal/workspace"
)

// Core types re-exported for consumers.
type (
	WorkUnit       = types.WorkUnit
	State          = types.State
	UnitType       = types.UnitType
	Checkpoint     = types.Checkpoint
	HookDefinition = types.HookDefinition
	HookCondition  = types.HookCondition

	TransitionOptions = transition.Options
	TransitionResult  = transition.Result
	RestoreResult     = checkpoint.RestoreResult
	CleanupResult     = checkpoint.CleanupResult
)

// Lifecycle state constants.
const (
	StateBacklog      = types.StateBacklog
	StateSpecifying   = types.StateSpecifying
	StateTesting      = types.StateTesting
	StateImplementing = types.StateImplementing
	StateValidating   = types.StateValidating
	StateDone         = types.StateDone
	StateBlocked      = types.StateBlocked
)

// Unit type constants.
const (
	TypeStory = types.TypeStory
	TypeBug   = types.TypeBug
	TypeTask  = types.TypeTask
)

// Project is an opened workspace with the full engine wired.
type Project struct {
	ws     *workspace.Workspace
	files  *store.FileStore
	snaps  *gitvc.Store
	engine *checkpoint.Engine
	coord  *transition.Coordinator
	orch   *hooks.Orchestrator
}

// Open discovers the workspace containing startDir and wires the engine
// against its documents, its git repository, and its configuration.
func Open(startDir string) (*Project, error) {
	ws, err := workspace.Find(startDir)
	if err != nil {
		return nil, err
	}
	if err := config.Initialize(ws.WeftDir); err != nil {
		return nil, err
	}
	files, err := store.Open(ws.WeftDir)
	if err != nil {
		return nil, err
	}
	globals, err := config.GlobalHooks(ws.WeftDir)
	if err != nil {
		return nil, err
	}

	snaps := gitvc.NewStore(ws.Root)
	engine := checkpoint.NewEngine(snaps, files, ws.Root)
	orch := hooks.NewOrchestrator(
		hooks.ShellExecutor{},
		globals,
		hooks.GitChangeLister{Dir: ws.Root},
		ws.Root,
	)
	resolver := &temporal.Resolver{
		Root:    ws.Root,
		SpecDir: config.SpecDir(),
		TestDir: config.TestDir(),
	}
	coord := transition.NewCoordinator(files, engine, orch, resolver, snaps)

	return &Project{
		ws:     ws,
		files:  files,
		snaps:  snaps,
		engine: engine,
		coord:  coord,
		orch:   orch,
	}, nil
}

// Root returns the workspace root directory.
func (p *Project) Root() string { return p.ws.Root }

// WeftDir returns the .weft directory.
func (p *Project) WeftDir() string { return p.ws.WeftDir }

// Units returns the unit repository for read access.
func (p *Project) Units() store.UnitRepository { return p.files }

// Orchestrator exposes hook resolution for `wf hook list --event`.
func (p *Project) Orchestrator() *hooks.Orchestrator { return p.orch }

// Transition moves a unit to the target state through the coordinator's
// fixed sequence: automatic checkpoint, pre-hooks, temporal validation,
// commit, post-hooks.
func (p *Project) Transition(ctx context.Context, id string, target State, opts TransitionOptions) (*TransitionResult, error) {
	return p.coord.Transition(ctx, id, target, opts)
}

// CreateUnit files a new work unit in backlog with the next sequential id.
func (p *Project) CreateUnit(ctx context.Context, unit *WorkUnit) (*WorkUnit, error) {
	if !unit.Type.IsValid() {
		return nil, fmt.Errorf("invalid unit type %q", unit.Type)
	}
	if unit.ID == "" {
		id, err := p.files.NextID(ctx, config.IDPrefix())
		if err != nil {
			return nil, err
		}
		unit.ID = id
	}
	if err := p.files.Create(ctx, unit); err != nil {
		return nil, err
	}
	return unit, nil
}

// GetUnit loads one unit.
func (p *Project) GetUnit(ctx context.Context, id string) (*WorkUnit, error) {
	return p.files.Load(ctx, id)
}

// ListUnits returns all units sorted by id.
func (p *Project) ListUnits(ctx context.Context) ([]*WorkUnit, error) {
	return p.files.List(ctx)
}

// CreateCheckpoint captures the dirty working tree as a named manual
// checkpoint for the unit.
func (p *Project) CreateCheckpoint(ctx context.Context, id, name string) (*Checkpoint, error) {
	if _, err := p.files.Load(ctx, id); err != nil {
		return nil, err
	}
	return p.engine.Create(ctx, id, name, types.CheckpointManual)
}

// ListCheckpoints returns the unit's checkpoints newest-first.
func (p *Project) ListCheckpoints(ctx context.Context, id string) ([]*Checkpoint, error) {
	return p.engine.List(ctx, id)
}

// RestoreCheckpoint writes the named checkpoint back to the working tree,
// or returns a *checkpoint.ConflictError with nothing written.
func (p *Project) RestoreCheckpoint(ctx context.Context, id, name string) (*RestoreResult, error) {
	return p.engine.Restore(ctx, id, name)
}

// CleanupCheckpoints keeps the unit's keepLast newest checkpoints and
// drops the rest.
func (p *Project) CleanupCheckpoints(ctx context.Context, id string, keepLast int) (*CleanupResult, error) {
	return p.engine.Cleanup(ctx, id, keepLast)
}

// CleanupCheckpointsOlderThan drops the unit's checkpoints created
// before the cutoff, regardless of count.
func (p *Project) CleanupCheckpointsOlderThan(ctx context.Context, id string, cutoff time.Time) (*CleanupResult, error) {
	return p.engine.CleanupOlderThan(ctx, id, cutoff)
}

// AddHook attaches a hook: globally when unitID is empty, virtually to
// the named unit otherwise.
func (p *Project) AddHook(ctx context.Context, unitID string, hook HookDefinition) error {
	if err := hook.Validate(); err != nil {
		return err
	}
	if unitID == "" {
		if err := config.AddGlobalHook(p.ws.WeftDir, hook); err != nil {
			return err
		}
		return p.reloadGlobals()
	}
	unit, err := p.files.Load(ctx, unitID)
	if err != nil {
		return err
	}
	for _, h := range unit.VirtualHooks {
		if h.Name == hook.Name {
			return fmt.Errorf("virtual hook %s already exists on %s", hook.Name, unitID)
		}
	}
	unit.VirtualHooks = append(unit.VirtualHooks, hook)
	return p.files.Save(ctx, unit)
}

// RemoveHook detaches a hook by name: globally when unitID is empty.
func (p *Project) RemoveHook(ctx context.Context, unitID, name string) error {
	if unitID == "" {
		if err := config.RemoveGlobalHook(p.ws.WeftDir, name); err != nil {
			return err
		}
		return p.reloadGlobals()
	}
	unit, err := p.files.Load(ctx, unitID)
	if err != nil {
		return err
	}
	for i, h := range unit.VirtualHooks {
		if h.Name == name {
			unit.VirtualHooks = append(unit.VirtualHooks[:i], unit.VirtualHooks[i+1:]...)
			return p.files.Save(ctx, unit)
		}
	}
	return fmt.Errorf("virtual hook %s not found on %s", name, unitID)
}

// reloadGlobals rebuilds the orchestrator after config.yaml changed so
// the same Project sees the new global hook list.
func (p *Project) reloadGlobals() error {
	globals, err := config.GlobalHooks(p.ws.WeftDir)
	if err != nil {
		return err
	}
	p.orch = hooks.NewOrchestrator(
		hooks.ShellExecutor{},
		globals,
		hooks.GitChangeLister{Dir: p.ws.Root},
		p.ws.Root,
	)
	resolver := &temporal.Resolver{
		Root:    p.ws.Root,
		SpecDir: config.SpecDir(),
		TestDir: config.TestDir(),
	}
	p.coord = transition.NewCoordinator(p.files, p.engine, p.orch, resolver, p.snaps)
	return nil
}
