package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/weftlabs/weft/internal/gitvc"
	"github.com/weftlabs/weft/internal/store"
	"github.com/weftlabs/weft/internal/types"
)

// fakeSnapshotter keeps snapshot and base content in maps, signalling
// absent paths with gitvc.ErrPathNotInSnapshot like the real store.
type fakeSnapshotter struct {
	dirty     []string
	snapshots map[string]map[string][]byte
	bases     map[string]map[string][]byte
	nextRef   int
	dropped   []string

	snapshotErr error
	dropErr     error
}

func newFakeSnapshotter() *fakeSnapshotter {
	return &fakeSnapshotter{
		snapshots: make(map[string]map[string][]byte),
		bases:     make(map[string]map[string][]byte),
	}
}

func (f *fakeSnapshotter) DirtyPaths(ctx context.Context) ([]string, error) {
	return slices.Clone(f.dirty), nil
}

func (f *fakeSnapshotter) Snapshot(ctx context.Context, paths []string) (string, error) {
	if f.snapshotErr != nil {
		return "", f.snapshotErr
	}
	f.nextRef++
	ref := fmt.Sprintf("snap-%d", f.nextRef)
	content := make(map[string][]byte, len(paths))
	for _, p := range paths {
		content[p] = []byte("captured:" + p)
	}
	f.snapshots[ref] = content
	return ref, nil
}

func (f *fakeSnapshotter) ReadFile(ctx context.Context, ref, path string) ([]byte, error) {
	snap, ok := f.snapshots[ref]
	if !ok {
		return nil, fmt.Errorf("unknown ref %s", ref)
	}
	content, ok := snap[path]
	if !ok {
		return nil, fmt.Errorf("%s:%s: %w", ref, path, gitvc.ErrPathNotInSnapshot)
	}
	return content, nil
}

func (f *fakeSnapshotter) ReadBaseFile(ctx context.Context, ref, path string) ([]byte, error) {
	base, ok := f.bases[ref]
	if !ok {
		return nil, fmt.Errorf("%s^:%s: %w", ref, path, gitvc.ErrPathNotInSnapshot)
	}
	content, ok := base[path]
	if !ok {
		return nil, fmt.Errorf("%s^:%s: %w", ref, path, gitvc.ErrPathNotInSnapshot)
	}
	return content, nil
}

func (f *fakeSnapshotter) ListFiles(ctx context.Context, ref string) ([]string, error) {
	snap, ok := f.snapshots[ref]
	if !ok {
		return nil, fmt.Errorf("unknown ref %s", ref)
	}
	paths := make([]string, 0, len(snap))
	for p := range snap {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths, nil
}

func (f *fakeSnapshotter) Drop(ctx context.Context, ref string) error {
	if f.dropErr != nil {
		return f.dropErr
	}
	f.dropped = append(f.dropped, ref)
	delete(f.snapshots, ref)
	delete(f.bases, ref)
	return nil
}

func newTestEngine(t *testing.T) (*Engine, *fakeSnapshotter, *store.MemoryStore, string) {
	t.Helper()
	fake := newFakeSnapshotter()
	mem := store.NewMemory()
	root := t.TempDir()
	e := NewEngine(fake, mem, root)
	return e, fake, mem, root
}

func writeWorkingFile(t *testing.T, root, path, content string) {
	t.Helper()
	dest := filepath.Join(root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(dest, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func readWorking(t *testing.T, root, path string) (string, bool) {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(path)))
	if os.IsNotExist(err) {
		return "", false
	}
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(content), true
}

// seedCheckpoint registers a checkpoint whose snapshot and base content
// the test controls directly.
func seedCheckpoint(t *testing.T, fake *fakeSnapshotter, mem *store.MemoryStore, unitID, name string, createdAt time.Time, snapshot, base map[string][]byte) {
	t.Helper()
	fake.nextRef++
	ref := fmt.Sprintf("snap-%d", fake.nextRef)
	fake.snapshots[ref] = snapshot
	if base != nil {
		fake.bases[ref] = base
	}
	err := mem.Append(context.Background(), &types.Checkpoint{
		Name:        name,
		Kind:        types.CheckpointManual,
		CreatedAt:   createdAt,
		WorkUnitID:  unitID,
		SnapshotRef: ref,
	})
	if err != nil {
		t.Fatalf("seed checkpoint: %v", err)
	}
}

func TestCreate_RecordsCheckpoint(t *testing.T) {
	e, fake, mem, _ := newTestEngine(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	e.Now = func() time.Time { return now }
	fake.dirty = []string{"a.txt", "sub/b.txt"}

	cp, err := e.Create(ctx, "AUTH-001", "before-refactor", types.CheckpointManual)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if cp.Name != "before-refactor" || cp.Kind != types.CheckpointManual || !cp.CreatedAt.Equal(now) {
		t.Errorf("checkpoint = %+v", cp)
	}
	if cp.SnapshotRef == "" {
		t.Error("empty snapshot ref")
	}

	stored, err := mem.Find(ctx, "AUTH-001", "before-refactor")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.SnapshotRef != cp.SnapshotRef {
		t.Errorf("stored ref %s != returned ref %s", stored.SnapshotRef, cp.SnapshotRef)
	}

	files, err := fake.ListFiles(ctx, cp.SnapshotRef)
	if err != nil {
		t.Fatalf("list snapshot: %v", err)
	}
	if want := []string{"a.txt", "sub/b.txt"}; !slices.Equal(files, want) {
		t.Errorf("snapshot captured %v, want %v", files, want)
	}
}

func TestCreate_NameCollision(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.Create(ctx, "AUTH-001", "cp", types.CheckpointManual); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := e.Create(ctx, "AUTH-001", "cp", types.CheckpointManual)
	if !errors.Is(err, ErrCheckpointNameCollision) {
		t.Errorf("second create error = %v, want ErrCheckpointNameCollision", err)
	}

	// Same name on another unit is fine: names are unit-scoped.
	if _, err := e.Create(ctx, "PAY-001", "cp", types.CheckpointManual); err != nil {
		t.Errorf("same name on other unit: %v", err)
	}
}

func TestCreate_EmptyDirtySet(t *testing.T) {
	e, fake, _, _ := newTestEngine(t)
	fake.dirty = nil

	cp, err := e.Create(context.Background(), "AUTH-001", "clean-point", types.CheckpointManual)
	if err != nil {
		t.Fatalf("create on clean tree: %v", err)
	}
	files, err := fake.ListFiles(context.Background(), cp.SnapshotRef)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("clean-tree snapshot captured %v", files)
	}
}

func TestCreate_SnapshotFailureSurfaced(t *testing.T) {
	e, fake, mem, _ := newTestEngine(t)
	fake.snapshotErr = errors.New("object store unavailable")

	_, err := e.Create(context.Background(), "AUTH-001", "cp", types.CheckpointManual)
	if err == nil || !errors.Is(err, fake.snapshotErr) {
		t.Errorf("error = %v, want wrapped snapshot failure", err)
	}
	if _, err := mem.Find(context.Background(), "AUTH-001", "cp"); !errors.Is(err, store.ErrNotFound) {
		t.Error("failed create left a checkpoint record")
	}
}

func TestList_NewestFirst(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, name := range []string{"first", "second", "third"} {
		at := base.Add(time.Duration(i) * time.Hour)
		e.Now = func() time.Time { return at }
		if _, err := e.Create(ctx, "AUTH-001", name, types.CheckpointManual); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	cps, err := e.List(ctx, "AUTH-001")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var names []string
	for _, cp := range cps {
		names = append(names, cp.Name)
	}
	if want := []string{"third", "second", "first"}; !slices.Equal(names, want) {
		t.Errorf("list order = %v, want %v", names, want)
	}
}

func TestList_TiedTimestampsLaterAppendedFirst(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	e.Now = func() time.Time { return at }

	for _, name := range []string{"a", "b"} {
		if _, err := e.Create(ctx, "AUTH-001", name, types.CheckpointManual); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	cps, err := e.List(ctx, "AUTH-001")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if cps[0].Name != "b" || cps[1].Name != "a" {
		t.Errorf("tie order = [%s %s], want [b a]", cps[0].Name, cps[1].Name)
	}
}

func TestRestore_CleanWhenUnmodifiedSinceBase(t *testing.T) {
	e, fake, mem, root := newTestEngine(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seedCheckpoint(t, fake, mem, "AUTH-001", "cp", now,
		map[string][]byte{"a.txt": []byte("snapshot-a"), "sub/b.txt": []byte("snapshot-b")},
		map[string][]byte{"a.txt": []byte("base-a")})
	writeWorkingFile(t, root, "a.txt", "base-a") // unmodified since base

	res, err := e.Restore(ctx, "AUTH-001", "cp")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if len(res.Restored) != 2 {
		t.Errorf("restored %v, want 2 paths", res.Restored)
	}
	if got, _ := readWorking(t, root, "a.txt"); got != "snapshot-a" {
		t.Errorf("a.txt = %q, want snapshot-a", got)
	}
	if got, ok := readWorking(t, root, "sub/b.txt"); !ok || got != "snapshot-b" {
		t.Errorf("sub/b.txt = %q (present=%v), want snapshot-b", got, ok)
	}
}

func TestRestore_NoConflictWhenAlreadyAtSnapshot(t *testing.T) {
	e, fake, mem, root := newTestEngine(t)
	ctx := context.Background()

	seedCheckpoint(t, fake, mem, "AUTH-001", "cp", time.Now().UTC(),
		map[string][]byte{"a.txt": []byte("same")}, nil)
	writeWorkingFile(t, root, "a.txt", "same")

	if _, err := e.Restore(ctx, "AUTH-001", "cp"); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got, _ := readWorking(t, root, "a.txt"); got != "same" {
		t.Errorf("a.txt = %q", got)
	}
}

func TestRestore_ConflictWhenDiverged(t *testing.T) {
	e, fake, mem, root := newTestEngine(t)
	ctx := context.Background()

	seedCheckpoint(t, fake, mem, "AUTH-001", "cp", time.Now().UTC(),
		map[string][]byte{"a.txt": []byte("snapshot-a")},
		map[string][]byte{"a.txt": []byte("base-a")})
	writeWorkingFile(t, root, "a.txt", "diverged")

	_, err := e.Restore(ctx, "AUTH-001", "cp")
	var conflictErr *ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("error = %v, want *ConflictError", err)
	}
	if !errors.Is(err, ErrDirtyWorkingTree) {
		t.Error("conflict does not satisfy errors.Is(_, ErrDirtyWorkingTree)")
	}
	if len(conflictErr.Conflicts) != 1 {
		t.Fatalf("conflicts = %+v, want 1", conflictErr.Conflicts)
	}
	c := conflictErr.Conflicts[0]
	if c.Path != "a.txt" || string(c.Working) != "diverged" || string(c.Snapshot) != "snapshot-a" {
		t.Errorf("conflict = %+v", c)
	}
	if got, _ := readWorking(t, root, "a.txt"); got != "diverged" {
		t.Errorf("conflicting file was modified: %q", got)
	}
}

func TestRestore_ConflictWhenModifiedFileDeleted(t *testing.T) {
	e, fake, mem, root := newTestEngine(t)
	ctx := context.Background()

	// Tracked file was modified at checkpoint time, then deleted locally.
	seedCheckpoint(t, fake, mem, "AUTH-001", "cp", time.Now().UTC(),
		map[string][]byte{"a.txt": []byte("snapshot-a")},
		map[string][]byte{"a.txt": []byte("base-a")})

	_, err := e.Restore(ctx, "AUTH-001", "cp")
	var conflictErr *ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("error = %v, want *ConflictError", err)
	}
	if conflictErr.Conflicts[0].Working != nil {
		t.Errorf("deleted working version = %q, want nil", conflictErr.Conflicts[0].Working)
	}
	if _, ok := readWorking(t, root, "a.txt"); ok {
		t.Error("conflicting restore recreated the file")
	}
}

func TestRestore_CleanWhenUntrackedFileDeleted(t *testing.T) {
	e, fake, mem, root := newTestEngine(t)
	ctx := context.Background()

	// File was untracked-new at checkpoint time (no base) and has since
	// been deleted: working matches base (both absent), clean re-apply.
	seedCheckpoint(t, fake, mem, "AUTH-001", "cp", time.Now().UTC(),
		map[string][]byte{"new.txt": []byte("snapshot-new")}, nil)

	res, err := e.Restore(ctx, "AUTH-001", "cp")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if len(res.Restored) != 1 {
		t.Errorf("restored = %v", res.Restored)
	}
	if got, ok := readWorking(t, root, "new.txt"); !ok || got != "snapshot-new" {
		t.Errorf("new.txt = %q (present=%v)", got, ok)
	}
}

func TestRestore_AllOrNothing(t *testing.T) {
	e, fake, mem, root := newTestEngine(t)
	ctx := context.Background()

	seedCheckpoint(t, fake, mem, "AUTH-001", "cp", time.Now().UTC(),
		map[string][]byte{
			"clean.txt":    []byte("snapshot-clean"),
			"conflict.txt": []byte("snapshot-conflict"),
		},
		map[string][]byte{
			"clean.txt":    []byte("base-clean"),
			"conflict.txt": []byte("base-conflict"),
		})
	writeWorkingFile(t, root, "clean.txt", "base-clean")
	writeWorkingFile(t, root, "conflict.txt", "diverged")

	_, err := e.Restore(ctx, "AUTH-001", "cp")
	var conflictErr *ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("error = %v, want *ConflictError", err)
	}
	if got, _ := readWorking(t, root, "clean.txt"); got != "base-clean" {
		t.Errorf("clean.txt was written despite conflict elsewhere: %q", got)
	}
	if got, _ := readWorking(t, root, "conflict.txt"); got != "diverged" {
		t.Errorf("conflict.txt was written: %q", got)
	}
}

func TestRestore_Idempotent(t *testing.T) {
	e, fake, mem, root := newTestEngine(t)
	ctx := context.Background()

	seedCheckpoint(t, fake, mem, "AUTH-001", "cp", time.Now().UTC(),
		map[string][]byte{"a.txt": []byte("snapshot-a")},
		map[string][]byte{"a.txt": []byte("base-a")})
	writeWorkingFile(t, root, "a.txt", "base-a")

	for i := 0; i < 2; i++ {
		if _, err := e.Restore(ctx, "AUTH-001", "cp"); err != nil {
			t.Fatalf("restore %d: %v", i, err)
		}
		if got, _ := readWorking(t, root, "a.txt"); got != "snapshot-a" {
			t.Errorf("restore %d: a.txt = %q", i, got)
		}
	}

	// Still listed: restore does not consume the checkpoint.
	cps, err := e.List(ctx, "AUTH-001")
	if err != nil || len(cps) != 1 {
		t.Errorf("after restores: list = %v, %v", cps, err)
	}
}

func TestRestore_NotFound(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	_, err := e.Restore(context.Background(), "AUTH-001", "nope")
	if !errors.Is(err, ErrCheckpointNotFound) {
		t.Errorf("error = %v, want ErrCheckpointNotFound", err)
	}
}

func TestCleanup_KeepsNewest(t *testing.T) {
	e, fake, _, _ := newTestEngine(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	names := []string{"one", "two", "three", "four", "five"}
	for i, name := range names {
		at := base.Add(time.Duration(i) * time.Hour)
		e.Now = func() time.Time { return at }
		kind := types.CheckpointManual
		if i%2 == 0 {
			kind = types.CheckpointAutomatic
		}
		if _, err := e.Create(ctx, "AUTH-001", name, kind); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	res, err := e.Cleanup(ctx, "AUTH-001", 2)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if res.Deleted != 3 || res.Preserved != 2 {
		t.Errorf("cleanup = %+v, want deleted 3 preserved 2", res)
	}

	cps, err := e.List(ctx, "AUTH-001")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var kept []string
	for _, cp := range cps {
		kept = append(kept, cp.Name)
	}
	if want := []string{"five", "four"}; !slices.Equal(kept, want) {
		t.Errorf("kept = %v, want %v", kept, want)
	}
	if len(fake.dropped) != 3 {
		t.Errorf("dropped %d snapshots, want 3", len(fake.dropped))
	}
}

func TestCleanup_KeepMoreThanTotal(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.Create(ctx, "AUTH-001", "only", types.CheckpointManual); err != nil {
		t.Fatalf("create: %v", err)
	}
	res, err := e.Cleanup(ctx, "AUTH-001", 10)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if res.Deleted != 0 || res.Preserved != 1 {
		t.Errorf("cleanup = %+v, want deleted 0 preserved 1", res)
	}
}

func TestCleanup_KeepZeroDeletesAll(t *testing.T) {
	e, _, mem, _ := newTestEngine(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b"} {
		if _, err := e.Create(ctx, "AUTH-001", name, types.CheckpointAutomatic); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	res, err := e.Cleanup(ctx, "AUTH-001", 0)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if res.Deleted != 2 || res.Preserved != 0 {
		t.Errorf("cleanup = %+v", res)
	}
	left, _ := mem.ListByUnit(ctx, "AUTH-001")
	if len(left) != 0 {
		t.Errorf("records left after keep-0 cleanup: %v", left)
	}
}

func TestCleanup_NegativeKeep(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	if _, err := e.Cleanup(context.Background(), "AUTH-001", -1); err == nil {
		t.Error("negative keepLast accepted")
	}
}

func TestCleanupOlderThan(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, name := range []string{"old", "older", "fresh"} {
		at := base.Add(time.Duration(i) * 24 * time.Hour)
		e.Now = func() time.Time { return at }
		if _, err := e.Create(ctx, "AUTH-001", name, types.CheckpointManual); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	res, err := e.CleanupOlderThan(ctx, "AUTH-001", base.Add(12*time.Hour))
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if res.Deleted != 1 || res.Preserved != 2 {
		t.Errorf("cleanup = %+v, want deleted 1 preserved 2", res)
	}
	cps, _ := e.List(ctx, "AUTH-001")
	for _, cp := range cps {
		if cp.Name == "old" {
			t.Error("checkpoint older than cutoff survived")
		}
	}
}
