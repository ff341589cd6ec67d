package temporal

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// maxScanBytes bounds how much of a file is searched for the unit id tag.
const maxScanBytes = 1 * 1024 * 1024

// Resolver locates artifacts by walking the configured directories.
//
// Spec artifacts are files under SpecDir whose text mentions the unit id
// (tagged `@AUTH-001` or bare). Test artifacts are files under TestDir
// whose basename contains the lowercased unit id.
type Resolver struct {
	Root    string // workspace root
	SpecDir string // relative to Root, e.g. "specs"
	TestDir string // relative to Root, e.g. "tests"
}

// SpecArtifacts returns every file under SpecDir containing the unit id.
func (r *Resolver) SpecArtifacts(unitID string) ([]Artifact, error) {
	return r.scan(r.SpecDir, func(path string) (bool, error) {
		return fileMentions(path, unitID)
	})
}

// TestArtifacts returns every file under TestDir whose name contains the
// unit id (case-insensitive).
func (r *Resolver) TestArtifacts(unitID string) ([]Artifact, error) {
	needle := strings.ToLower(unitID)
	return r.scan(r.TestDir, func(path string) (bool, error) {
		return strings.Contains(strings.ToLower(filepath.Base(path)), needle), nil
	})
}

func (r *Resolver) scan(dir string, match func(path string) (bool, error)) ([]Artifact, error) {
	scanPath := dir
	if !filepath.IsAbs(scanPath) {
		scanPath = filepath.Join(r.Root, scanPath)
	}
	if _, err := os.Stat(scanPath); os.IsNotExist(err) {
		// No artifact directory means no artifacts, not an error: the
		// validator then reports no violations for this transition.
		return nil, nil
	}

	var artifacts []Artifact
	err := filepath.WalkDir(scanPath, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if skipDir(d.Name(), path != scanPath) {
				return filepath.SkipDir
			}
			return nil
		}
		ok, err := match(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		rel, err := filepath.Rel(r.Root, path)
		if err != nil {
			rel = path
		}
		artifacts = append(artifacts, Artifact{
			Path:    filepath.ToSlash(rel),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	return artifacts, nil
}

func skipDir(name string, nested bool) bool {
	if !nested {
		return false
	}
	switch name {
	case ".git", ".weft", "node_modules", "vendor":
		return true
	}
	return strings.HasPrefix(name, ".")
}

// fileMentions reports whether the file's text contains the unit id,
// scanning line by line up to maxScanBytes.
func fileMentions(path, unitID string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxScanBytes)
	for scanner.Scan() {
		if strings.Contains(scanner.Text(), unitID) {
			return true, nil
		}
	}
	// Binary files with over-long lines are simply not spec artifacts.
	if err := scanner.Err(); err != nil && err != bufio.ErrTooLong {
		return false, err
	}
	return false, nil
}
