package hooks

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// GitChangeLister reads the staged and unstaged change-set from git,
// giving GitContext hooks their "only touch changed files" input.
type GitChangeLister struct {
	Dir string
}

// Changes returns every modified and untracked path with its porcelain
// status, excluding ignored files.
func (g GitChangeLister) Changes(ctx context.Context) ([]Change, error) {
	cmd := exec.CommandContext(ctx, "git", "status", "--porcelain", "-z", "--untracked-files=all")
	cmd.Dir = g.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git status: %w\nstderr: %s", err, strings.TrimSpace(stderr.String()))
	}

	var changes []Change
	entries := bytes.Split(stdout.Bytes(), []byte{0})
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
		// Workspace metadata churns on every transition; hooks only care
		// about the user's files.
		if path == ".weft" || strings.HasPrefix(path, ".weft/") {
			continue
		}
		changes = append(changes, Change{Path: path, Status: status})
	}
	return changes, nil
}
