package store

import (
	"context"
	"testing"
	"time"

	"github.com/weftlabs/weft/internal/types"
)

var (
	_ UnitRepository = (*MemoryStore)(nil)
	_ CheckpointLog  = (*MemoryStore)(nil)
	_ UnitRepository = (*FileStore)(nil)
	_ CheckpointLog  = (*FileStore)(nil)
)

func TestMemoryStore_CopiesOnLoad(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	unit := types.NewWorkUnit("AUTH-001", types.TypeStory, "Login", now)
	unit.Tags = []string{"security"}
	if err := m.Create(ctx, unit); err != nil {
		t.Fatalf("create: %v", err)
	}

	loaded, err := m.Load(ctx, "AUTH-001")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	loaded.Tags[0] = "mutated"
	loaded.RecordState(types.StateDone, "", now.Add(time.Hour))

	again, err := m.Load(ctx, "AUTH-001")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Tags[0] != "security" {
		t.Error("mutating a loaded unit leaked into the store")
	}
	if again.Status != types.StateBacklog {
		t.Errorf("status = %s, want backlog (unsaved RecordState leaked)", again.Status)
	}
}

func TestMemoryStore_SaveThenLoad(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	unit := types.NewWorkUnit("AUTH-001", types.TypeStory, "Login", now)
	if err := m.Create(ctx, unit); err != nil {
		t.Fatalf("create: %v", err)
	}
	unit.RecordState(types.StateSpecifying, "", now.Add(time.Hour))
	if err := m.Save(ctx, unit); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := m.Load(ctx, "AUTH-001")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Status != types.StateSpecifying {
		t.Errorf("status = %s, want specifying", got.Status)
	}
}

func TestMemoryStore_NextID(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Now().UTC()

	_ = m.Create(ctx, types.NewWorkUnit("CORE-041", types.TypeTask, "x", now))
	id, err := m.NextID(ctx, "CORE")
	if err != nil {
		t.Fatalf("next id: %v", err)
	}
	if id != "CORE-042" {
		t.Errorf("next id = %s, want CORE-042", id)
	}
}
