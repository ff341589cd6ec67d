package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/weftlabs/weft/internal/types"
)

// fileConfig is the on-disk shape of config.yaml. Scalar settings are
// also readable through viper; hook definitions only live here.
type fileConfig struct {
	IDPrefix    string                 `yaml:"id-prefix,omitempty"`
	SpecDir     string                 `yaml:"spec-dir,omitempty"`
	TestDir     string                 `yaml:"test-dir,omitempty"`
	HookTimeout int                    `yaml:"hook-timeout,omitempty"`
	Hooks       []types.HookDefinition `yaml:"hooks,omitempty"`
}

func configPath(weftDir string) string {
	return filepath.Join(weftDir, FileName)
}

func readFileConfig(weftDir string) (*fileConfig, error) {
	data, err := os.ReadFile(configPath(weftDir))
	if err != nil {
		if os.IsNotExist(err) {
			return &fileConfig{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", FileName, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", FileName, err)
	}
	return &fc, nil
}

func writeFileConfig(weftDir string, fc *fileConfig) error {
	data, err := yaml.Marshal(fc)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", FileName, err)
	}
	if err := os.WriteFile(configPath(weftDir), data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", FileName, err)
	}
	return nil
}

// WriteDefault creates the initial config.yaml for a fresh workspace.
func WriteDefault(weftDir, idPrefix string) error {
	return writeFileConfig(weftDir, &fileConfig{
		IDPrefix:    idPrefix,
		SpecDir:     DefaultSpecDir,
		TestDir:     DefaultTestDir,
		HookTimeout: DefaultHookTimeout,
	})
}

// GlobalHooks returns the project-wide hook list in configuration order.
func GlobalHooks(weftDir string) ([]types.HookDefinition, error) {
	fc, err := readFileConfig(weftDir)
	if err != nil {
		return nil, err
	}
	return fc.Hooks, nil
}

// AddGlobalHook appends a hook to config.yaml. Names are unique within
// the global list.
func AddGlobalHook(weftDir string, hook types.HookDefinition) error {
	if err := hook.Validate(); err != nil {
		return err
	}
	fc, err := readFileConfig(weftDir)
	if err != nil {
		return err
	}
	for _, h := range fc.Hooks {
		if h.Name == hook.Name {
			return fmt.Errorf("global hook %s already exists", hook.Name)
		}
	}
	fc.Hooks = append(fc.Hooks, hook)
	return writeFileConfig(weftDir, fc)
}

// RemoveGlobalHook deletes the named hook from config.yaml.
func RemoveGlobalHook(weftDir, name string) error {
	fc, err := readFileConfig(weftDir)
	if err != nil {
		return err
	}
	for i, h := range fc.Hooks {
		if h.Name == name {
			fc.Hooks = append(fc.Hooks[:i], fc.Hooks[i+1:]...)
			return writeFileConfig(weftDir, fc)
		}
	}
	return fmt.Errorf("global hook %s not found", name)
}
