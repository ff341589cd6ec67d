package types

import (
	"fmt"
	"strings"
)

// HookScope distinguishes where a hook definition lives.
type HookScope string

// Hook scope constants. Virtual hooks are embedded in one work unit and
// cleared when it reaches done; global hooks live in project config.
const (
	ScopeVirtual HookScope = "virtual"
	ScopeGlobal  HookScope = "global"
)

// PreEvent returns the hook event fired before entering a state.
func PreEvent(s State) string { return "pre-" + string(s) }

// PostEvent returns the hook event fired after entering a state.
func PostEvent(s State) string { return "post-" + string(s) }

// ParseEvent splits an event name into its phase and state, validating
// both. Accepted forms: pre-<state>, post-<state>.
func ParseEvent(event string) (phase string, s State, err error) {
	phase, rest, ok := strings.Cut(event, "-")
	if !ok || (phase != "pre" && phase != "post") {
		return "", "", fmt.Errorf("invalid hook event %q (want pre-<state> or post-<state>)", event)
	}
	st, err := ParseState(rest)
	if err != nil {
		return "", "", fmt.Errorf("invalid hook event %q: %w", event, err)
	}
	return phase, st, nil
}

// HookDefinition describes one lifecycle hook: a command run when its
// event fires and its condition (if any) matches the unit.
type HookDefinition struct {
	Name           string         `json:"name" yaml:"name" toml:"name"`
	Event          string         `json:"event" yaml:"event" toml:"event"`
	Command        string         `json:"command" yaml:"command" toml:"command"`
	Blocking       bool           `json:"blocking,omitempty" yaml:"blocking,omitempty" toml:"blocking,omitempty"`
	TimeoutSeconds int            `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" toml:"timeout_seconds,omitempty"`
	Condition      *HookCondition `json:"condition,omitempty" yaml:"condition,omitempty" toml:"condition,omitempty"`
	GitContext     bool           `json:"git_context,omitempty" yaml:"git_context,omitempty" toml:"git_context,omitempty"`
}

// Validate checks the definition is executable: named, a parseable event,
// and a non-empty command.
func (h *HookDefinition) Validate() error {
	if h.Name == "" {
		return fmt.Errorf("hook has no name")
	}
	if _, _, err := ParseEvent(h.Event); err != nil {
		return fmt.Errorf("hook %s: %w", h.Name, err)
	}
	if strings.TrimSpace(h.Command) == "" {
		return fmt.Errorf("hook %s: empty command", h.Name)
	}
	return nil
}

// HookCondition narrows a hook's applicability. Every present field must
// match (AND); within a set field, any member matching suffices (OR).
type HookCondition struct {
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty" toml:"tags,omitempty"`
	IDPrefixes  []string `json:"id_prefixes,omitempty" yaml:"id_prefixes,omitempty" toml:"id_prefixes,omitempty"`
	Epic        string   `json:"epic,omitempty" yaml:"epic,omitempty" toml:"epic,omitempty"`
	MinEstimate *int     `json:"min_estimate,omitempty" yaml:"min_estimate,omitempty" toml:"min_estimate,omitempty"`
	MaxEstimate *int     `json:"max_estimate,omitempty" yaml:"max_estimate,omitempty" toml:"max_estimate,omitempty"`
}

// Matches reports whether the unit satisfies the condition. A nil
// condition matches everything. Estimate bounds never match a unit with
// no estimate.
func (c *HookCondition) Matches(u *WorkUnit) bool {
	if c == nil {
		return true
	}
	if len(c.Tags) > 0 {
		found := false
		for _, t := range c.Tags {
			if u.HasTag(t) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(c.IDPrefixes) > 0 {
		found := false
		for _, p := range c.IDPrefixes {
			if strings.HasPrefix(u.ID, p) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if c.Epic != "" && u.Epic != c.Epic {
		return false
	}
	if c.MinEstimate != nil || c.MaxEstimate != nil {
		if u.Estimate == nil {
			return false
		}
		if c.MinEstimate != nil && *u.Estimate < *c.MinEstimate {
			return false
		}
		if c.MaxEstimate != nil && *u.Estimate > *c.MaxEstimate {
			return false
		}
	}
	return true
}
