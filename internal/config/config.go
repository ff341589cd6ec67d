// Package config reads workspace settings from .weft/config.yaml.
//
// Scalar settings go through a package-level viper instance (env
// overrides with the WEFT_ prefix); the global hook list is read and
// rewritten directly as yaml, since hook definitions are structured
// records the config surface owns.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Setting keys and defaults.
const (
	KeyIDPrefix    = "id-prefix"
	KeySpecDir     = "spec-dir"
	KeyTestDir     = "test-dir"
	KeyHookTimeout = "hook-timeout"

	DefaultIDPrefix    = "WU"
	DefaultSpecDir     = "specs"
	DefaultTestDir     = "tests"
	DefaultHookTimeout = 60
)

// FileName is the config file inside .weft.
const FileName = "config.yaml"

var v *viper.Viper

// Initialize loads .weft/config.yaml and wires WEFT_ environment
// overrides. A missing file leaves every setting at its default.
func Initialize(weftDir string) error {
	nv := viper.New()
	nv.SetConfigFile(filepath.Join(weftDir, FileName))
	nv.SetConfigType("yaml")
	nv.SetEnvPrefix("WEFT")
	nv.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	nv.AutomaticEnv()

	nv.SetDefault(KeyIDPrefix, DefaultIDPrefix)
	nv.SetDefault(KeySpecDir, DefaultSpecDir)
	nv.SetDefault(KeyTestDir, DefaultTestDir)
	nv.SetDefault(KeyHookTimeout, DefaultHookTimeout)

	if err := nv.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read %s: %w", FileName, err)
	}
	v = nv
	return nil
}

// GetString returns a string setting. Nil-safe: returns "" before
// Initialize.
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetInt returns an int setting. Nil-safe: returns 0 before Initialize.
func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

// GetBool returns a bool setting. Nil-safe: returns false before
// Initialize.
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// IDPrefix returns the work-unit id prefix (AUTH in AUTH-001).
func IDPrefix() string {
	if s := GetString(KeyIDPrefix); s != "" {
		return s
	}
	return DefaultIDPrefix
}

// SpecDir returns the specification artifact directory, relative to the
// workspace root.
func SpecDir() string {
	if s := GetString(KeySpecDir); s != "" {
		return s
	}
	return DefaultSpecDir
}

// TestDir returns the test artifact directory, relative to the workspace
// root.
func TestDir() string {
	if s := GetString(KeyTestDir); s != "" {
		return s
	}
	return DefaultTestDir
}

// HookTimeoutSeconds returns the default hook timeout.
func HookTimeoutSeconds() int {
	if n := GetInt(KeyHookTimeout); n > 0 {
		return n
	}
	return DefaultHookTimeout
}

// Reset clears the loaded config. Test helper.
func Reset() { v = nil }
