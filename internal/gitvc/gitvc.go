// Package gitvc implements working-tree snapshots on git plumbing.
//
// A snapshot is a dangling commit built through a private temporary index,
// anchored by a ref under refs/weft/snapshots/ so git never garbage-collects
// it. The working tree, the real index, and HEAD are never touched.
package gitvc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrPathNotInSnapshot is returned when reading a path absent from a
// snapshot (or from its base, for parentless snapshots).
var ErrPathNotInSnapshot = errors.New("path not in snapshot")

// ErrNotARepo is returned when the directory is not inside a git work tree.
var ErrNotARepo = errors.New("not a git repository")

const refPrefix = "refs/weft/snapshots/"

// Store shells out to git in a fixed repository root.
type Store struct {
	root string
}

// NewStore returns a snapshot store rooted at the given working tree.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root returns the working tree root commands run in.
func (s *Store) Root() string { return s.root }

// IsRepo reports whether dir is inside a git work tree.
func IsRepo(dir string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = dir
	out, err := cmd.Output()
	return err == nil && strings.TrimSpace(string(out)) == "true"
}

// DirtyPaths lists modified and untracked files relative to the repo root,
// excluding ignored paths. Files deleted from the working tree are
// excluded: a snapshot captures content, and restore never deletes files.
func (s *Store) DirtyPaths(ctx context.Context) ([]string, error) {
	out, err := s.runGit(ctx, nil, "status", "--porcelain", "-z", "--untracked-files=all")
	if err != nil {
		return nil, err
	}

	var paths []string
	entries := bytes.Split(out, []byte{0})
	for i := 0; i < len(entries); i++ {
		entry := entries[i]
		if len(entry) < 4 {
			continue
		}
		status := string(entry[:2])
		path := string(entry[3:])
		if path == "" {
			continue
		}

		// Rename/copy entries carry the old name as the next field.
		if status[0] == 'R' || status[0] == 'C' {
			i++
		}

		// The workspace's own documents never belong in a snapshot: the
		// checkpoint log mutates right after every capture, which would make
		// each checkpoint conflict with itself on restore.
		if path == ".weft" || strings.HasPrefix(path, ".weft/") {
			continue
		}

		if _, err := os.Stat(filepath.Join(s.root, filepath.FromSlash(path))); err != nil {
			continue
		}
		paths = append(paths, filepath.ToSlash(path))
	}
	return paths, nil
}

// Snapshot records the given working-tree paths as a commit reachable from
// a refs/weft/snapshots/ ref and returns the ref name. The commit's parent
// is HEAD when one exists, which is what base-content reads resolve
// against. An empty path list produces a valid empty snapshot.
func (s *Store) Snapshot(ctx context.Context, paths []string) (string, error) {
	idx, err := os.CreateTemp("", "weft-index-*")
	if err != nil {
		return "", fmt.Errorf("create temp index: %w", err)
	}
	idxPath := idx.Name()
	_ = idx.Close()
	defer func() { _ = os.Remove(idxPath) }()

	env := []string{"GIT_INDEX_FILE=" + idxPath}

	if _, err := s.runGit(ctx, env, "read-tree", "--empty"); err != nil {
		return "", err
	}
	if len(paths) > 0 {
		args := append([]string{"add", "-f", "--"}, paths...)
		if _, err := s.runGit(ctx, env, args...); err != nil {
			return "", err
		}
	}

	treeOut, err := s.runGit(ctx, env, "write-tree")
	if err != nil {
		return "", err
	}
	treeSHA := strings.TrimSpace(string(treeOut))

	commitArgs := []string{"commit-tree", treeSHA, "-m", "weft snapshot"}
	if headOut, err := s.runGit(ctx, nil, "rev-parse", "--verify", "-q", "HEAD"); err == nil {
		commitArgs = append(commitArgs, "-p", strings.TrimSpace(string(headOut)))
	}
	commitOut, err := s.runGit(ctx, nil, commitArgs...)
	if err != nil {
		return "", err
	}
	commitSHA := strings.TrimSpace(string(commitOut))

	ref := refPrefix + commitSHA
	err = s.withRefRetry(ctx, func() error {
		_, err := s.runGit(ctx, nil, "update-ref", ref, commitSHA)
		return err
	})
	if err != nil {
		return "", err
	}
	return ref, nil
}

// ReadFile returns the snapshot's content for path, or ErrPathNotInSnapshot.
func (s *Store) ReadFile(ctx context.Context, ref, path string) ([]byte, error) {
	return s.readObject(ctx, ref, path)
}

// ReadBaseFile returns the content path had at the snapshot's parent
// commit. A path untracked at the parent, or a parentless snapshot,
// yields ErrPathNotInSnapshot.
func (s *Store) ReadBaseFile(ctx context.Context, ref, path string) ([]byte, error) {
	return s.readObject(ctx, ref+"^", path)
}

func (s *Store) readObject(ctx context.Context, rev, path string) ([]byte, error) {
	spec := rev + ":" + path
	if _, err := s.runGit(ctx, nil, "cat-file", "-e", spec); err != nil {
		return nil, fmt.Errorf("%s: %w", spec, ErrPathNotInSnapshot)
	}
	out, err := s.runGit(ctx, nil, "cat-file", "-p", spec)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListFiles returns every path recorded in the snapshot.
func (s *Store) ListFiles(ctx context.Context, ref string) ([]string, error) {
	out, err := s.runGit(ctx, nil, "ls-tree", "-r", "--name-only", "-z", ref)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, p := range bytes.Split(out, []byte{0}) {
		if len(p) > 0 {
			paths = append(paths, string(p))
		}
	}
	return paths, nil
}

// Drop deletes the snapshot's anchoring ref. The underlying objects become
// garbage for git to collect.
func (s *Store) Drop(ctx context.Context, ref string) error {
	return s.withRefRetry(ctx, func() error {
		_, err := s.runGit(ctx, nil, "update-ref", "-d", ref)
		return err
	})
}

func (s *Store) runGit(ctx context.Context, extraEnv []string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = s.root
	if len(extraEnv) > 0 {
		cmd.Env = append(os.Environ(), extraEnv...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git %s: %w\nstderr: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
