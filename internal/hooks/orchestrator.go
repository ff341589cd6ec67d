// Package hooks resolves and executes the lifecycle hook pipeline.
//
// For one event the pipeline is: the unit's virtual hooks in attachment
// order, then global hooks in configuration order, strictly sequential.
// Hooks run as external processes through the Executor capability; the
// orchestrator itself never spawns anything.
package hooks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/weftlabs/weft/internal/telemetry"
	"github.com/weftlabs/weft/internal/types"
)

// Change is one working-tree modification passed to hooks that request
// git context.
type Change struct {
	Path   string `json:"path"`
	Status string `json:"status"` // two-letter porcelain status, e.g. " M", "??"
}

// ChangeLister supplies the current change-set for GitContext hooks.
// Production code uses GitChangeLister; tests substitute fakes.
type ChangeLister interface {
	Changes(ctx context.Context) ([]Change, error)
}

// Context carries the transition being hooked.
type Context struct {
	From types.State
	To   types.State
}

// HookResult records one executed hook.
type HookResult struct {
	Name     string          `json:"name"`
	Scope    types.HookScope `json:"scope"`
	Blocking bool            `json:"blocking"`
	ExitCode int             `json:"exit_code"`
	TimedOut bool            `json:"timed_out,omitempty"`
	Stdout   string          `json:"stdout,omitempty"`
	Stderr   string          `json:"stderr,omitempty"`
	Duration time.Duration   `json:"duration"`
	Err      error           `json:"-"`
}

// Failed reports whether the hook counts as failed: non-zero exit,
// timeout, or a spawn error.
func (r *HookResult) Failed() bool {
	return r.ExitCode != 0 || r.TimedOut || r.Err != nil
}

// PipelineResult is the outcome of one event's pipeline.
type PipelineResult struct {
	Executed    []HookResult `json:"executed"`
	Halted      bool         `json:"halted_on_blocking_failure"`
	FailingHook string       `json:"failing_hook,omitempty"`
}

// BlockingFailure returns the halt as a *BlockingHookError for the given
// phase, or nil when the pipeline ran through.
func (p *PipelineResult) BlockingFailure(phase string) *BlockingHookError {
	if !p.Halted {
		return nil
	}
	for _, r := range p.Executed {
		if r.Name == p.FailingHook {
			return &BlockingHookError{
				Hook:     r.Name,
				Phase:    phase,
				ExitCode: r.ExitCode,
				TimedOut: r.TimedOut,
				Stderr:   r.Stderr,
			}
		}
	}
	return &BlockingHookError{Hook: p.FailingHook, Phase: phase}
}

// Orchestrator resolves and runs hook pipelines.
type Orchestrator struct {
	exec    Executor
	globals []types.HookDefinition
	changes ChangeLister
	dir     string // working directory hooks run in
}

// NewOrchestrator builds an orchestrator. globals is the project-wide hook
// list in configuration order; changes may be nil when no hook will
// request git context.
func NewOrchestrator(exec Executor, globals []types.HookDefinition, changes ChangeLister, dir string) *Orchestrator {
	return &Orchestrator{exec: exec, globals: globals, changes: changes, dir: dir}
}

// resolved pairs a definition with the scope it came from.
type resolved struct {
	def   types.HookDefinition
	scope types.HookScope
}

// Resolve returns the hooks that would run for the event, virtual first
// then global, conditions applied. Exposed for `wf hook list --event`.
func (o *Orchestrator) Resolve(event string, unit *types.WorkUnit) []types.HookDefinition {
	var out []types.HookDefinition
	for _, r := range o.resolve(event, unit) {
		out = append(out, r.def)
	}
	return out
}

func (o *Orchestrator) resolve(event string, unit *types.WorkUnit) []resolved {
	var out []resolved
	for _, h := range unit.VirtualHooks {
		if h.Event == event && h.Condition.Matches(unit) {
			out = append(out, resolved{h, types.ScopeVirtual})
		}
	}
	for _, h := range o.globals {
		if h.Event == event && h.Condition.Matches(unit) {
			out = append(out, resolved{h, types.ScopeGlobal})
		}
	}
	return out
}

// stdinPayload is the JSON document every hook receives on stdin.
type stdinPayload struct {
	Event    string      `json:"event"`
	WorkUnit stdinUnit   `json:"work_unit"`
	From     types.State `json:"from_state"`
	To       types.State `json:"to_state"`
	Changes  []Change    `json:"changes,omitempty"`
}

type stdinUnit struct {
	ID       string         `json:"id"`
	Type     types.UnitType `json:"type"`
	Status   types.State    `json:"status"`
	Title    string         `json:"title"`
	Tags     []string       `json:"tags,omitempty"`
	Epic     string         `json:"epic,omitempty"`
	Estimate *int           `json:"estimate,omitempty"`
}

// Run executes the pipeline for the event. Non-blocking failures are
// recorded and the pipeline continues; the first blocking failure halts
// it. Run itself never errors: resolution problems surface as failed
// hook results and the returned pipeline result is always complete.
func (o *Orchestrator) Run(ctx context.Context, event string, unit *types.WorkUnit, hctx Context) *PipelineResult {
	pipeline := o.resolve(event, unit)
	result := &PipelineResult{}
	if len(pipeline) == 0 {
		return result
	}

	// The change-set is computed at most once per pipeline, and only when
	// some hook asks for it.
	var (
		changes       []Change
		changesLoaded bool
	)

	for _, r := range pipeline {
		payload := stdinPayload{
			Event: event,
			WorkUnit: stdinUnit{
				ID:       unit.ID,
				Type:     unit.Type,
				Status:   unit.Status,
				Title:    unit.Title,
				Tags:     unit.Tags,
				Epic:     unit.Epic,
				Estimate: unit.Estimate,
			},
			From: hctx.From,
			To:   hctx.To,
		}
		if r.def.GitContext {
			if !changesLoaded {
				changesLoaded = true
				if o.changes != nil {
					cs, err := o.changes.Changes(ctx)
					if err == nil {
						changes = cs
					}
					// A change-set failure degrades to an empty set rather
					// than failing the hook: the hook still runs.
				}
			}
			payload.Changes = changes
			if payload.Changes == nil {
				payload.Changes = []Change{}
			}
		}

		stdin, err := json.Marshal(payload)
		if err != nil {
			hr := HookResult{Name: r.def.Name, Scope: r.scope, Blocking: r.def.Blocking, ExitCode: -1, Err: err}
			result.Executed = append(result.Executed, hr)
			if r.def.Blocking {
				result.Halted = true
				result.FailingHook = r.def.Name
				return result
			}
			continue
		}

		cmd := Command{
			Name:  r.def.Name,
			Line:  r.def.Command,
			Dir:   o.dir,
			Stdin: stdin,
			Env: []string{
				"WEFT_HOOK_EVENT=" + event,
				"WEFT_UNIT_ID=" + unit.ID,
				"WEFT_UNIT_STATUS=" + string(unit.Status),
				"WEFT_FROM_STATE=" + string(hctx.From),
				"WEFT_TO_STATE=" + string(hctx.To),
			},
			Timeout: time.Duration(r.def.TimeoutSeconds) * time.Second,
		}

		hr := o.runOne(ctx, r, cmd)
		result.Executed = append(result.Executed, hr)

		if hr.Failed() && r.def.Blocking {
			result.Halted = true
			result.FailingHook = r.def.Name
			return result
		}
	}
	return result
}

func (o *Orchestrator) runOne(ctx context.Context, r resolved, cmd Command) HookResult {
	spanCtx, span := telemetry.Tracer("").Start(ctx, "hooks.run")
	span.SetAttributes(
		attribute.String("hook.name", r.def.Name),
		attribute.String("hook.scope", string(r.scope)),
		attribute.Bool("hook.blocking", r.def.Blocking),
	)
	defer span.End()

	res := o.exec.Execute(spanCtx, cmd)
	addHookOutputEvents(span, res.Stdout, res.Stderr)
	span.SetAttributes(attribute.Int("hook.exit_code", res.ExitCode))
	telemetry.RecordHookDuration(spanCtx, r.def.Name, res.Duration)

	hr := HookResult{
		Name:     r.def.Name,
		Scope:    r.scope,
		Blocking: r.def.Blocking,
		ExitCode: res.ExitCode,
		TimedOut: res.TimedOut,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		Duration: res.Duration,
		Err:      res.Err,
	}
	if res.Err != nil {
		hr.Stderr = fmt.Sprintf("%s\nspawn error: %v", res.Stderr, res.Err)
	}
	return hr
}
