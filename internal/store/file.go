package store

import (
	"bufio"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/weftlabs/weft/internal/types"
)

// File names inside the .weft directory.
const (
	UnitsFile       = "work-units.jsonl"
	CheckpointsFile = "checkpoints.jsonl"
)

// maxLineBytes bounds a single JSONL record (large markdown descriptions).
const maxLineBytes = 4 * 1024 * 1024

// FileStore implements UnitRepository and CheckpointLog over two JSONL
// files. Every operation is a full read-modify-write of the relevant
// file; writes go through a temp file and an atomic rename.
type FileStore struct {
	dir string
}

// Open returns a FileStore rooted at the given .weft directory. The
// directory must already exist (created by workspace init).
func Open(dir string) (*FileStore, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open store: %s is not a directory", dir)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) unitsPath() string       { return filepath.Join(s.dir, UnitsFile) }
func (s *FileStore) checkpointsPath() string { return filepath.Join(s.dir, CheckpointsFile) }

// Create appends a new unit. Fails with ErrExists if the id is taken.
func (s *FileStore) Create(ctx context.Context, unit *types.WorkUnit) error {
	units, err := s.readUnits()
	if err != nil {
		return err
	}
	for _, u := range units {
		if u.ID == unit.ID {
			return fmt.Errorf("unit %s: %w", unit.ID, ErrExists)
		}
	}
	units = append(units, unit)
	return s.writeUnits(units)
}

// Load returns the unit with the given id, or ErrNotFound.
func (s *FileStore) Load(ctx context.Context, id string) (*types.WorkUnit, error) {
	units, err := s.readUnits()
	if err != nil {
		return nil, err
	}
	for _, u := range units {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, fmt.Errorf("unit %s: %w", id, ErrNotFound)
}

// Save replaces the stored unit with the same id.
func (s *FileStore) Save(ctx context.Context, unit *types.WorkUnit) error {
	units, err := s.readUnits()
	if err != nil {
		return err
	}
	for i, u := range units {
		if u.ID == unit.ID {
			units[i] = unit
			return s.writeUnits(units)
		}
	}
	return fmt.Errorf("unit %s: %w", unit.ID, ErrNotFound)
}

// List returns all units sorted by id.
func (s *FileStore) List(ctx context.Context) ([]*types.WorkUnit, error) {
	units, err := s.readUnits()
	if err != nil {
		return nil, err
	}
	slices.SortFunc(units, func(a, b *types.WorkUnit) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return units, nil
}

// NextID scans existing ids with the prefix and returns prefix-NNN for
// the next free sequence number, zero-padded to three digits.
func (s *FileStore) NextID(ctx context.Context, prefix string) (string, error) {
	units, err := s.readUnits()
	if err != nil {
		return "", err
	}
	max := 0
	for _, u := range units {
		rest, ok := strings.CutPrefix(u.ID, prefix+"-")
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

// Append records a checkpoint. Uniqueness of (unit, name) is enforced by
// the checkpoint engine before the snapshot is taken; the log re-checks
// to keep the file coherent.
func (s *FileStore) Append(ctx context.Context, cp *types.Checkpoint) error {
	cps, err := s.readCheckpoints()
	if err != nil {
		return err
	}
	for _, existing := range cps {
		if existing.WorkUnitID == cp.WorkUnitID && existing.Name == cp.Name {
			return fmt.Errorf("checkpoint %s/%s: %w", cp.WorkUnitID, cp.Name, ErrExists)
		}
	}
	cps = append(cps, cp)
	return s.writeCheckpoints(cps)
}

// ListByUnit returns the unit's checkpoints in append order.
func (s *FileStore) ListByUnit(ctx context.Context, unitID string) ([]*types.Checkpoint, error) {
	cps, err := s.readCheckpoints()
	if err != nil {
		return nil, err
	}
	var out []*types.Checkpoint
	for _, cp := range cps {
		if cp.WorkUnitID == unitID {
			out = append(out, cp)
		}
	}
	return out, nil
}

// Find returns the named checkpoint for the unit, or ErrNotFound.
func (s *FileStore) Find(ctx context.Context, unitID, name string) (*types.Checkpoint, error) {
	cps, err := s.readCheckpoints()
	if err != nil {
		return nil, err
	}
	for _, cp := range cps {
		if cp.WorkUnitID == unitID && cp.Name == name {
			return cp, nil
		}
	}
	return nil, fmt.Errorf("checkpoint %s/%s: %w", unitID, name, ErrNotFound)
}

// Remove drops the named checkpoint record, or returns ErrNotFound.
func (s *FileStore) Remove(ctx context.Context, unitID, name string) error {
	cps, err := s.readCheckpoints()
	if err != nil {
		return err
	}
	for i, cp := range cps {
		if cp.WorkUnitID == unitID && cp.Name == name {
			cps = append(cps[:i], cps[i+1:]...)
			return s.writeCheckpoints(cps)
		}
	}
	return fmt.Errorf("checkpoint %s/%s: %w", unitID, name, ErrNotFound)
}

func (s *FileStore) readUnits() ([]*types.WorkUnit, error) {
	var units []*types.WorkUnit
	err := readJSONL(s.unitsPath(), func(line []byte) error {
		var u types.WorkUnit
		if err := json.Unmarshal(line, &u); err != nil {
			return err
		}
		units = append(units, &u)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", UnitsFile, err)
	}
	return units, nil
}

func (s *FileStore) writeUnits(units []*types.WorkUnit) error {
	slices.SortFunc(units, func(a, b *types.WorkUnit) int {
		return cmp.Compare(a.ID, b.ID)
	})
	records := make([]any, len(units))
	for i, u := range units {
		records[i] = u
	}
	if err := writeJSONLAtomic(s.unitsPath(), records); err != nil {
		return fmt.Errorf("write %s: %w", UnitsFile, err)
	}
	return nil
}

func (s *FileStore) readCheckpoints() ([]*types.Checkpoint, error) {
	var cps []*types.Checkpoint
	err := readJSONL(s.checkpointsPath(), func(line []byte) error {
		var cp types.Checkpoint
		if err := json.Unmarshal(line, &cp); err != nil {
			return err
		}
		cps = append(cps, &cp)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", CheckpointsFile, err)
	}
	return cps, nil
}

func (s *FileStore) writeCheckpoints(cps []*types.Checkpoint) error {
	records := make([]any, len(cps))
	for i, cp := range cps {
		records[i] = cp
	}
	if err := writeJSONLAtomic(s.checkpointsPath(), records); err != nil {
		return fmt.Errorf("write %s: %w", CheckpointsFile, err)
	}
	return nil
}

// readJSONL streams non-empty lines of the file to fn. A missing file is
// an empty store, not an error.
func readJSONL(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := fn([]byte(line)); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	return scanner.Err()
}

// writeJSONLAtomic writes one JSON record per line to a temp file (pid
// suffix avoids collisions) and renames it into place.
func writeJSONLAtomic(path string, records []any) error {
	tempPath := fmt.Sprintf("%s.tmp.%d", path, os.Getpid())
	f, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if f != nil {
			_ = f.Close()
			_ = os.Remove(tempPath)
		}
	}()

	encoder := json.NewEncoder(f)
	for _, r := range records {
		if err := encoder.Encode(r); err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	f = nil

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("rename: %w", err)
	}
	// nolint:gosec // G302: the document is meant to be readable by other tools
	_ = os.Chmod(path, 0644)
	return nil
}
