//go:build regression

// Package regression runs CLI scenarios against a wf binary built from
// the current worktree. Each scenario gets an isolated git repository and
// drives the binary the way a user would, asserting on --json output.
//
// Run: go test -tags=regression -timeout=10m ./tests/regression/...
package regression

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// wfBin is the path to the wf binary built from the current worktree.
var wfBin string

func TestMain(m *testing.M) {
	tmpDir, err := os.MkdirTemp("", "wf-regression-bin-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating temp dir: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(tmpDir)

	wfBin = filepath.Join(tmpDir, "wf")
	if runtime.GOOS == "windows" {
		wfBin += ".exe"
	}
	fmt.Fprintln(os.Stderr, "Building wf binary...")
	if err := buildBinary(wfBin); err != nil {
		fmt.Fprintf(os.Stderr, "building wf: %v\n", err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

func findModuleRoot() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		panic("could not determine test file location")
	}
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			panic("could not find go.mod")
		}
		dir = parent
	}
}

func buildBinary(outPath string) error {
	cmd := exec.Command("go", "build", "-o", outPath, "./cmd/wf")
	cmd.Dir = findModuleRoot()
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("go build: %w\n%s", err, out)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Workspace helper
// ---------------------------------------------------------------------------

// workspace is one initialized wf project inside a fresh git repository.
type workspace struct {
	t   *testing.T
	dir string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	w := &workspace{t: t, dir: t.TempDir()}
	w.git("init", "--initial-branch=main")
	w.git("config", "user.email", "test@test.com")
	w.git("config", "user.name", "Test User")
	w.run("init", "--prefix", "REG")
	return w
}

func (w *workspace) git(args ...string) {
	w.t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = w.dir
	if out, err := cmd.CombinedOutput(); err != nil {
		w.t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

// run executes wf and fails the test on non-zero exit.
func (w *workspace) run(args ...string) string {
	w.t.Helper()
	out, err := w.tryRun(args...)
	if err != nil {
		w.t.Fatalf("wf %v: %v\n%s", args, err, out)
	}
	return out
}

// tryRun executes wf and returns combined output and the exit error.
func (w *workspace) tryRun(args ...string) (string, error) {
	w.t.Helper()
	cmd := exec.Command(wfBin, args...)
	cmd.Dir = w.dir
	cmd.Env = append(os.Environ(), "WEFT_AGENT_MODE=1", "NO_COLOR=1")
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// runJSON executes wf with --json and unmarshals the output into v.
func (w *workspace) runJSON(v any, args ...string) {
	w.t.Helper()
	out := w.run(append(args, "--json")...)
	if err := json.Unmarshal([]byte(out), v); err != nil {
		w.t.Fatalf("wf %v: bad json: %v\n%s", args, err, out)
	}
}

// create makes a work unit and returns its id.
func (w *workspace) create(title, unitType string) string {
	w.t.Helper()
	var unit struct {
		ID string `json:"id"`
	}
	w.runJSON(&unit, "create", title, "--type", unitType)
	if unit.ID == "" {
		w.t.Fatal("create returned no id")
	}
	return unit.ID
}

func (w *workspace) writeFile(rel, content string) {
	w.t.Helper()
	path := filepath.Join(w.dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		w.t.Fatalf("mkdir for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		w.t.Fatalf("write %s: %v", rel, err)
	}
}

func (w *workspace) readFile(rel string) string {
	w.t.Helper()
	content, err := os.ReadFile(filepath.Join(w.dir, filepath.FromSlash(rel)))
	if err != nil {
		w.t.Fatalf("read %s: %v", rel, err)
	}
	return string(content)
}

func mustContain(t *testing.T, out string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
