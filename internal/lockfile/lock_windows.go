//go:build windows

package lockfile

import "os"

// Windows has no flock; watch mode falls back to advisory-by-existence.
// Opening the file exclusively enough for our single-instance purpose is
// not portable, so locking is a no-op here.
func flockExclusive(f *os.File) error { return nil }

func flockUnlock(f *os.File) error { return nil }
