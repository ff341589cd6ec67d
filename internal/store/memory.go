package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/weftlabs/weft/internal/types"
)

// MemoryStore is an in-memory UnitRepository + CheckpointLog for tests.
// Units are deep-copied on the way in and out so callers cannot mutate
// stored state behind the repository's back.
type MemoryStore struct {
	units       map[string]*types.WorkUnit
	checkpoints []*types.Checkpoint
}

// NewMemory returns an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{units: make(map[string]*types.WorkUnit)}
}

func copyUnit(u *types.WorkUnit) *types.WorkUnit {
	c := *u
	c.Tags = slices.Clone(u.Tags)
	c.StateHistory = slices.Clone(u.StateHistory)
	c.VirtualHooks = slices.Clone(u.VirtualHooks)
	if u.Estimate != nil {
		e := *u.Estimate
		c.Estimate = &e
	}
	return &c
}

// Create stores a new unit, failing with ErrExists on id collision.
func (m *MemoryStore) Create(ctx context.Context, unit *types.WorkUnit) error {
	if _, ok := m.units[unit.ID]; ok {
		return fmt.Errorf("unit %s: %w", unit.ID, ErrExists)
	}
	m.units[unit.ID] = copyUnit(unit)
	return nil
}

// Load returns a copy of the unit, or ErrNotFound.
func (m *MemoryStore) Load(ctx context.Context, id string) (*types.WorkUnit, error) {
	u, ok := m.units[id]
	if !ok {
		return nil, fmt.Errorf("unit %s: %w", id, ErrNotFound)
	}
	return copyUnit(u), nil
}

// Save replaces the stored unit with the same id.
func (m *MemoryStore) Save(ctx context.Context, unit *types.WorkUnit) error {
	if _, ok := m.units[unit.ID]; !ok {
		return fmt.Errorf("unit %s: %w", unit.ID, ErrNotFound)
	}
	m.units[unit.ID] = copyUnit(unit)
	return nil
}

// List returns all units sorted by id.
func (m *MemoryStore) List(ctx context.Context) ([]*types.WorkUnit, error) {
	out := make([]*types.WorkUnit, 0, len(m.units))
	for _, u := range m.units {
		out = append(out, copyUnit(u))
	}
	slices.SortFunc(out, func(a, b *types.WorkUnit) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// NextID allocates prefix-NNN past the highest existing sequence.
func (m *MemoryStore) NextID(ctx context.Context, prefix string) (string, error) {
	max := 0
	for id := range m.units {
		rest, ok := strings.CutPrefix(id, prefix+"-")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s-%03d", prefix, max+1), nil
}

// Append records a checkpoint, enforcing (unit, name) uniqueness.
func (m *MemoryStore) Append(ctx context.Context, cp *types.Checkpoint) error {
	for _, existing := range m.checkpoints {
		if existing.WorkUnitID == cp.WorkUnitID && existing.Name == cp.Name {
			return fmt.Errorf("checkpoint %s/%s: %w", cp.WorkUnitID, cp.Name, ErrExists)
		}
	}
	c := *cp
	m.checkpoints = append(m.checkpoints, &c)
	return nil
}

// ListByUnit returns the unit's checkpoints in append order.
func (m *MemoryStore) ListByUnit(ctx context.Context, unitID string) ([]*types.Checkpoint, error) {
	var out []*types.Checkpoint
	for _, cp := range m.checkpoints {
		if cp.WorkUnitID == unitID {
			c := *cp
			out = append(out, &c)
		}
	}
	return out, nil
}

// Find returns the named checkpoint, or ErrNotFound.
func (m *MemoryStore) Find(ctx context.Context, unitID, name string) (*types.Checkpoint, error) {
	for _, cp := range m.checkpoints {
		if cp.WorkUnitID == unitID && cp.Name == name {
			c := *cp
			return &c, nil
		}
	}
	return nil, fmt.Errorf("checkpoint %s/%s: %w", unitID, name, ErrNotFound)
}

// Remove drops the named checkpoint, or returns ErrNotFound.
func (m *MemoryStore) Remove(ctx context.Context, unitID, name string) error {
	for i, cp := range m.checkpoints {
		if cp.WorkUnitID == unitID && cp.Name == name {
			m.checkpoints = append(m.checkpoints[:i], m.checkpoints[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("checkpoint %s/%s: %w", unitID, name, ErrNotFound)
}
