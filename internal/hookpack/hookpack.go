// Package hookpack loads TOML bundles of hook definitions for
// `wf hook install`.
//
// A pack is a named set of hooks installed together, globally or onto
// one work unit:
//
//	name = "quality-gates"
//	description = "lint and test gates for go units"
//
//	[[hooks]]
//	name = "lint"
//	event = "pre-validating"
//	command = "golangci-lint run"
//	blocking = true
//	timeout_seconds = 120
//	git_context = true
//
//	[hooks.condition]
//	tags = ["go"]
package hookpack

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/weftlabs/weft/internal/types"
)

// Pack is one parsed bundle.
type Pack struct {
	Name        string                 `toml:"name"`
	Description string                 `toml:"description,omitempty"`
	Hooks       []types.HookDefinition `toml:"hooks"`
}

// Load reads and validates a pack file.
func Load(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pack: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates pack TOML.
func Parse(data []byte) (*Pack, error) {
	var p Pack
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("toml: %w", err)
	}
	if p.Name == "" {
		return nil, fmt.Errorf("pack has no name")
	}
	if len(p.Hooks) == 0 {
		return nil, fmt.Errorf("pack %s defines no hooks", p.Name)
	}
	seen := make(map[string]bool, len(p.Hooks))
	for i := range p.Hooks {
		h := &p.Hooks[i]
		if err := h.Validate(); err != nil {
			return nil, fmt.Errorf("pack %s: %w", p.Name, err)
		}
		if seen[h.Name] {
			return nil, fmt.Errorf("pack %s: duplicate hook name %s", p.Name, h.Name)
		}
		seen[h.Name] = true
	}
	return &p, nil
}
