// Package transition sequences one lifecycle transition: automatic
// checkpoint, pre-hooks, temporal validation, state commit, post-hooks.
//
// Everything before the commit guarantees zero persisted mutation on
// failure. A blocking post-hook failure is the single asymmetric case:
// the state change stands and the overall result reports failure.
package transition

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/weftlabs/weft/internal/checkpoint"
	"github.com/weftlabs/weft/internal/hooks"
	"github.com/weftlabs/weft/internal/store"
	"github.com/weftlabs/weft/internal/telemetry"
	"github.com/weftlabs/weft/internal/temporal"
	"github.com/weftlabs/weft/internal/types"
)

// ErrInvalidTarget is returned for an unknown target state.
var ErrInvalidTarget = errors.New("invalid target state")

// Options modify one transition request.
type Options struct {
	// SkipTemporalValidation bypasses the temporal check for this
	// invocation only; the skip is never recorded in history.
	SkipTemporalValidation bool
	// BlockedReason is recorded on the history entry when the target is
	// blocked. Optional.
	BlockedReason string
}

// Result reports one transition attempt. Committed is false on any abort
// before the state change was persisted.
type Result struct {
	UnitID            string                `json:"unit_id"`
	From              types.State           `json:"from"`
	To                types.State           `json:"to"`
	AutoCheckpoint    string                `json:"auto_checkpoint,omitempty"`
	CheckpointWarning string                `json:"checkpoint_warning,omitempty"`
	PreHooks          *hooks.PipelineResult `json:"pre_hooks,omitempty"`
	PostHooks         *hooks.PipelineResult `json:"post_hooks,omitempty"`
	Violations        []temporal.Violation  `json:"violations,omitempty"`
	Committed         bool                  `json:"committed"`
}

// Failed reports whether the overall outcome is a failure for exit-code
// purposes, including the committed-but-post-hook-failed case.
func (r *Result) Failed() bool {
	if !r.Committed {
		return true
	}
	return r.PostHooks != nil && r.PostHooks.Halted
}

// DirtySource reports working-tree modifications; the coordinator only
// checkpoints dirty trees.
type DirtySource interface {
	DirtyPaths(ctx context.Context) ([]string, error)
}

// Coordinator is the single entry point for lifecycle transitions.
type Coordinator struct {
	units    store.UnitRepository
	engine   *checkpoint.Engine
	orch     *hooks.Orchestrator
	resolver temporal.ArtifactResolver
	dirty    DirtySource

	// Now is the clock for history timestamps. Tests substitute it.
	Now func() time.Time
}

// NewCoordinator wires the coordinator's collaborators.
func NewCoordinator(units store.UnitRepository, engine *checkpoint.Engine, orch *hooks.Orchestrator, resolver temporal.ArtifactResolver, dirty DirtySource) *Coordinator {
	return &Coordinator{
		units:    units,
		engine:   engine,
		orch:     orch,
		resolver: resolver,
		dirty:    dirty,
		Now:      time.Now,
	}
}

// Transition moves the unit to the target state through the fixed
// sequence. The returned Result is populated as far as the operation got;
// a non-nil error always comes with the partial Result.
func (c *Coordinator) Transition(ctx context.Context, unitID string, target types.State, opts Options) (*Result, error) {
	if !target.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTarget, target)
	}
	unit, err := c.units.Load(ctx, unitID)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.Tracer("").Start(ctx, "transition")
	defer span.End()
	span.SetAttributes(
		attribute.String("unit.id", unit.ID),
		attribute.String("transition.from", string(unit.Status)),
		attribute.String("transition.to", string(target)),
	)

	result := &Result{UnitID: unit.ID, From: unit.Status, To: target}
	defer func() {
		span.SetAttributes(attribute.Bool("transition.committed", result.Committed))
		telemetry.RecordTransition(ctx, string(result.From), string(result.To), result.Committed)
	}()

	// 1. Pre-checkpoint: dirty trees get an automatic restore point named
	// from the unit and its pre-transition state. Failure here is reported
	// but never blocks the transition.
	c.preCheckpoint(ctx, unit, result)

	// 2. Pre-hooks: a blocking failure aborts before any mutation.
	hctx := hooks.Context{From: unit.Status, To: target}
	result.PreHooks = c.orch.Run(ctx, types.PreEvent(target), unit, hctx)
	if blocking := result.PreHooks.BlockingFailure("pre"); blocking != nil {
		return result, blocking
	}

	// 3. Temporal validation, unless bypassed for this invocation.
	if !opts.SkipTemporalValidation {
		violations, err := temporal.Validate(unit, target, c.resolver)
		if err != nil {
			return result, err
		}
		if len(violations) > 0 {
			result.Violations = violations
			return result, &temporal.ViolationError{UnitID: unit.ID, Target: target, Violations: violations}
		}
	}

	// 4. Commit.
	unit.RecordState(target, opts.BlockedReason, c.Now())
	if err := c.units.Save(ctx, unit); err != nil {
		return result, fmt.Errorf("save unit %s: %w", unit.ID, err)
	}
	result.Committed = true

	// 5. Post-hooks. The commit above stands even if these fail; a
	// blocking failure only marks the overall result failed.
	result.PostHooks = c.orch.Run(ctx, types.PostEvent(target), unit, hctx)

	// Virtual hooks are ephemeral: once the unit is done and its
	// post-done pipeline has had them, they are cleared.
	if target == types.StateDone && len(unit.VirtualHooks) > 0 {
		unit.VirtualHooks = nil
		unit.UpdatedAt = c.Now()
		if err := c.units.Save(ctx, unit); err != nil {
			return result, fmt.Errorf("clear virtual hooks on %s: %w", unit.ID, err)
		}
	}

	if blocking := result.PostHooks.BlockingFailure("post"); blocking != nil {
		return result, blocking
	}
	return result, nil
}

func (c *Coordinator) preCheckpoint(ctx context.Context, unit *types.WorkUnit, result *Result) {
	paths, err := c.dirty.DirtyPaths(ctx)
	if err != nil {
		result.CheckpointWarning = fmt.Sprintf("dirty-tree check failed: %v", err)
		return
	}
	if len(paths) == 0 {
		return
	}
	name := AutoCheckpointName(unit.ID, unit.Status, c.Now())
	if _, err := c.engine.Create(ctx, unit.ID, name, types.CheckpointAutomatic); err != nil {
		result.CheckpointWarning = fmt.Sprintf("automatic checkpoint failed: %v", err)
		return
	}
	result.AutoCheckpoint = name
}

// AutoCheckpointName is the naming convention for automatic checkpoints:
// the unit id and its pre-transition state, with a timestamp suffix so
// repeat transitions from the same state never collide.
func AutoCheckpointName(unitID string, current types.State, now time.Time) string {
	return fmt.Sprintf("auto-%s-%s-%d", unitID, current, now.Unix())
}
