// Package workspace locates and initializes the .weft directory that
// roots a project.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/weftlabs/weft/internal/gitvc"
	"github.com/weftlabs/weft/internal/store"
)

// DirName is the workspace marker directory.
const DirName = ".weft"

// ErrNotFound is returned when no .weft directory exists here or in any
// parent.
var ErrNotFound = errors.New("no .weft workspace found (run 'wf init' first)")

// ErrAlreadyInitialized is returned when init targets an existing
// workspace.
var ErrAlreadyInitialized = errors.New("workspace already initialized")

// Workspace is a discovered project root.
type Workspace struct {
	Root    string // directory containing .weft
	WeftDir string // the .weft directory itself
}

// Find walks up from startDir looking for a .weft directory.
func Find(startDir string) (*Workspace, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", startDir, err)
	}
	for {
		weftDir := filepath.Join(dir, DirName)
		if info, err := os.Stat(weftDir); err == nil && info.IsDir() {
			return &Workspace{Root: dir, WeftDir: weftDir}, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, ErrNotFound
		}
		dir = parent
	}
}

// Init creates .weft under dir with empty document files. The directory
// must be inside a git work tree: the snapshot store needs one.
func Init(dir string) (*Workspace, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}
	if !gitvc.IsRepo(root) {
		return nil, fmt.Errorf("%s is not inside a git repository (checkpoints need one; run 'git init' first)", root)
	}

	weftDir := filepath.Join(root, DirName)
	if _, err := os.Stat(weftDir); err == nil {
		return nil, fmt.Errorf("%s: %w", weftDir, ErrAlreadyInitialized)
	}
	if err := os.Mkdir(weftDir, 0755); err != nil {
		return nil, fmt.Errorf("create %s: %w", weftDir, err)
	}

	for _, name := range []string{store.UnitsFile, store.CheckpointsFile} {
		path := filepath.Join(weftDir, name)
		if err := os.WriteFile(path, nil, 0644); err != nil {
			return nil, fmt.Errorf("create %s: %w", path, err)
		}
	}
	return &Workspace{Root: root, WeftDir: weftDir}, nil
}
