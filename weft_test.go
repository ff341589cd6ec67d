package weft

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/weftlabs/weft/internal/checkpoint"
	"github.com/weftlabs/weft/internal/config"
	"github.com/weftlabs/weft/internal/types"
	"github.com/weftlabs/weft/internal/workspace"
)

func gitRun(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

// newProject initializes a workspace inside a fresh git repo and opens it.
func newProject(t *testing.T) *Project {
	t.Helper()
	dir := t.TempDir()
	gitRun(t, dir, "init", "--initial-branch=main")
	gitRun(t, dir, "config", "user.email", "test@test.com")
	gitRun(t, dir, "config", "user.name", "Test User")

	ws, err := workspace.Init(dir)
	if err != nil {
		t.Fatalf("workspace init: %v", err)
	}
	if err := config.WriteDefault(ws.WeftDir, "AUTH"); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Cleanup(config.Reset)

	p, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return p
}

func writeProjectFile(t *testing.T, p *Project, rel, content string) {
	t.Helper()
	path := filepath.Join(p.Root(), filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func TestOpen_OutsideWorkspace(t *testing.T) {
	if _, err := Open(t.TempDir()); !errors.Is(err, workspace.ErrNotFound) {
		t.Errorf("error = %v, want workspace.ErrNotFound", err)
	}
}

func TestCreateUnit_SequentialIDs(t *testing.T) {
	p := newProject(t)
	ctx := context.Background()

	first, err := p.CreateUnit(ctx, types.NewWorkUnit("", TypeStory, "Login", time.Now()))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := p.CreateUnit(ctx, types.NewWorkUnit("", TypeBug, "Fix logout", time.Now()))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.ID != "AUTH-001" || second.ID != "AUTH-002" {
		t.Errorf("ids = %s, %s", first.ID, second.ID)
	}
	if first.Status != StateBacklog {
		t.Errorf("new unit status = %s", first.Status)
	}

	units, err := p.ListUnits(ctx)
	if err != nil || len(units) != 2 {
		t.Errorf("list = %v, %v", units, err)
	}
}

func TestFullLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	p := newProject(t)
	ctx := context.Background()

	unit, err := p.CreateUnit(ctx, types.NewWorkUnit("", TypeStory, "Login flow", time.Now()))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	mustMove := func(target State) *TransitionResult {
		t.Helper()
		res, err := p.Transition(ctx, unit.ID, target, TransitionOptions{})
		if err != nil {
			t.Fatalf("move to %s: %v", target, err)
		}
		if !res.Committed {
			t.Fatalf("move to %s not committed: %+v", target, res)
		}
		return res
	}

	mustMove(StateSpecifying)
	// Spec artifact written while specifying, so entering testing passes.
	writeProjectFile(t, p, "specs/login.feature", "Feature: login\n@"+unit.ID+"\n")
	mustMove(StateTesting)
	writeProjectFile(t, p, "tests/"+unit.ID+"_test.py", "def test_login(): pass\n")
	mustMove(StateImplementing)
	mustMove(StateValidating)
	mustMove(StateDone)

	got, err := p.GetUnit(ctx, unit.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StateDone {
		t.Errorf("status = %s", got.Status)
	}
	if err := got.ValidateHistory(); err != nil {
		t.Errorf("history: %v", err)
	}
}

func TestTransition_TemporalViolationThroughFacade(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	p := newProject(t)
	ctx := context.Background()

	unit, err := p.CreateUnit(ctx, types.NewWorkUnit("", TypeStory, "Login flow", time.Now()))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// Artifact written before the unit enters specifying.
	writeProjectFile(t, p, "specs/prewritten.feature", "@"+unit.ID+"\n")
	if _, err := p.Transition(ctx, unit.ID, StateSpecifying, TransitionOptions{}); err != nil {
		t.Fatalf("to specifying: %v", err)
	}

	if _, err := p.Transition(ctx, unit.ID, StateTesting, TransitionOptions{}); err == nil {
		t.Fatal("pre-written artifact passed the ordering check")
	}

	// The bypass commits.
	res, err := p.Transition(ctx, unit.ID, StateTesting, TransitionOptions{SkipTemporalValidation: true})
	if err != nil || !res.Committed {
		t.Fatalf("bypassed transition: %v, %+v", err, res)
	}
}

func TestCheckpointRoundTripThroughFacade(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	p := newProject(t)
	ctx := context.Background()

	unit, err := p.CreateUnit(ctx, types.NewWorkUnit("", TypeTask, "Chore", time.Now()))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	writeProjectFile(t, p, "notes.txt", "draft one\n")
	if _, err := p.CreateCheckpoint(ctx, unit.ID, "draft"); err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	if _, err := p.CreateCheckpoint(ctx, unit.ID, "draft"); !errors.Is(err, checkpoint.ErrCheckpointNameCollision) {
		t.Errorf("duplicate name error = %v", err)
	}
	if _, err := p.CreateCheckpoint(ctx, "AUTH-404", "x"); err == nil {
		t.Error("checkpoint for unknown unit succeeded")
	}

	// Diverge and confirm the conflict refuses to clobber.
	writeProjectFile(t, p, "notes.txt", "diverged\n")
	_, err = p.RestoreCheckpoint(ctx, unit.ID, "draft")
	var conflict *checkpoint.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("restore error = %v, want *ConflictError", err)
	}

	// Back at the base content (file absent counts once removed), the
	// restore applies.
	if err := os.Remove(filepath.Join(p.Root(), "notes.txt")); err != nil {
		t.Fatal(err)
	}
	res, err := p.RestoreCheckpoint(ctx, unit.ID, "draft")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if len(res.Restored) != 1 {
		t.Errorf("restored = %v", res.Restored)
	}
	content, err := os.ReadFile(filepath.Join(p.Root(), "notes.txt"))
	if err != nil || string(content) != "draft one\n" {
		t.Errorf("notes.txt = %q, %v", content, err)
	}

	cleanup, err := p.CleanupCheckpoints(ctx, unit.ID, 0)
	if err != nil || cleanup.Deleted != 1 {
		t.Errorf("cleanup = %+v, %v", cleanup, err)
	}
}

func TestHookManagementThroughFacade(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	p := newProject(t)
	ctx := context.Background()

	unit, err := p.CreateUnit(ctx, types.NewWorkUnit("", TypeStory, "Login", time.Now()))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	global := HookDefinition{Name: "announce", Event: "post-specifying", Command: "true"}
	if err := p.AddHook(ctx, "", global); err != nil {
		t.Fatalf("add global: %v", err)
	}
	virtual := HookDefinition{Name: "check", Event: "post-specifying", Command: "true"}
	if err := p.AddHook(ctx, unit.ID, virtual); err != nil {
		t.Fatalf("add virtual: %v", err)
	}
	if err := p.AddHook(ctx, unit.ID, virtual); err == nil {
		t.Error("duplicate virtual hook accepted")
	}

	res, err := p.Transition(ctx, unit.ID, StateSpecifying, TransitionOptions{})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	var ran []string
	for _, h := range res.PostHooks.Executed {
		ran = append(ran, h.Name)
	}
	if len(ran) != 2 || ran[0] != "check" || ran[1] != "announce" {
		t.Errorf("post pipeline order = %v, want virtual then global", ran)
	}

	if err := p.RemoveHook(ctx, "", "announce"); err != nil {
		t.Fatalf("remove global: %v", err)
	}
	if err := p.RemoveHook(ctx, unit.ID, "check"); err != nil {
		t.Fatalf("remove virtual: %v", err)
	}
	if err := p.RemoveHook(ctx, unit.ID, "check"); err == nil {
		t.Error("removing absent virtual hook succeeded")
	}
}
