// Package types defines core data structures for the weft work-unit tracker.
package types

import (
	"errors"
	"fmt"
	"time"
)

// State represents a work unit's position in the lifecycle.
type State string

// Lifecycle states. The first six form the main line; blocked is a
// side-state enterable from any non-done state.
const (
	StateBacklog      State = "backlog"
	StateSpecifying   State = "specifying"
	StateTesting      State = "testing"
	StateImplementing State = "implementing"
	StateValidating   State = "validating"
	StateDone         State = "done"
	StateBlocked      State = "blocked"
)

// MainLine is the forward ordering of the lifecycle, used for display and
// for computing a unit's progress. Blocked is deliberately absent.
var MainLine = []State{
	StateBacklog,
	StateSpecifying,
	StateTesting,
	StateImplementing,
	StateValidating,
	StateDone,
}

// AllStates lists every valid state including the blocked side-state.
var AllStates = append(append([]State{}, MainLine...), StateBlocked)

// ErrInvalidState is wrapped by ParseState for unrecognized input.
var ErrInvalidState = errors.New("invalid state")

// IsValid checks if the state value is one of the seven lifecycle states.
func (s State) IsValid() bool {
	switch s {
	case StateBacklog, StateSpecifying, StateTesting, StateImplementing,
		StateValidating, StateDone, StateBlocked:
		return true
	}
	return false
}

// IsTerminal reports whether the state ends the lifecycle.
func (s State) IsTerminal() bool {
	return s == StateDone
}

// ParseState converts user input to a State, wrapping ErrInvalidState on
// unrecognized values so callers can errors.Is it.
func ParseState(s string) (State, error) {
	st := State(s)
	if !st.IsValid() {
		return "", fmt.Errorf("%w: %q (valid: backlog, specifying, testing, implementing, validating, done, blocked)", ErrInvalidState, s)
	}
	return st, nil
}

// UnitType categorizes a work unit.
type UnitType string

// Work unit type constants. Tasks carry no test-artifact expectation.
const (
	TypeStory UnitType = "story"
	TypeBug   UnitType = "bug"
	TypeTask  UnitType = "task"
)

// IsValid checks if the unit type is valid.
func (t UnitType) IsValid() bool {
	switch t {
	case TypeStory, TypeBug, TypeTask:
		return true
	}
	return false
}

// StateEntry is one record in a unit's state history.
type StateEntry struct {
	State     State     `json:"state"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason,omitempty"` // recorded for blocked entries
}

// WorkUnit represents a trackable unit of work moving through the lifecycle.
//
// Status and StateHistory are mutated only through RecordState (called by
// the transition coordinator); VirtualHooks only through explicit hook
// management. History is append-only with non-decreasing timestamps, and
// the last entry always matches Status.
type WorkUnit struct {
	ID           string           `json:"id"`
	Type         UnitType         `json:"type"`
	Status       State            `json:"status"`
	Title        string           `json:"title"`
	Description  string           `json:"description,omitempty"`
	Tags         []string         `json:"tags,omitempty"`
	Epic         string           `json:"epic,omitempty"`
	Estimate     *int             `json:"estimate,omitempty"`
	StateHistory []StateEntry     `json:"state_history"`
	VirtualHooks []HookDefinition `json:"virtual_hooks,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// NewWorkUnit creates a unit in backlog with its creation recorded as the
// first history entry.
func NewWorkUnit(id string, unitType UnitType, title string, now time.Time) *WorkUnit {
	return &WorkUnit{
		ID:     id,
		Type:   unitType,
		Status: StateBacklog,
		Title:  title,
		StateHistory: []StateEntry{
			{State: StateBacklog, Timestamp: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// RecordState sets the unit's status and appends the matching history
// entry, keeping the append-only invariant in one place. Reason is stored
// on the entry (used for blocked).
func (u *WorkUnit) RecordState(s State, reason string, now time.Time) {
	u.Status = s
	u.StateHistory = append(u.StateHistory, StateEntry{
		State:     s,
		Timestamp: now,
		Reason:    reason,
	})
	u.UpdatedAt = now
}

// EnteredAt returns the timestamp of the most recent history entry for the
// given state, or false if the unit never entered it.
func (u *WorkUnit) EnteredAt(s State) (time.Time, bool) {
	for i := len(u.StateHistory) - 1; i >= 0; i-- {
		if u.StateHistory[i].State == s {
			return u.StateHistory[i].Timestamp, true
		}
	}
	return time.Time{}, false
}

// HasTag reports whether the unit carries the given tag.
func (u *WorkUnit) HasTag(tag string) bool {
	for _, t := range u.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ValidateHistory checks the history invariants: non-empty, timestamps
// non-decreasing, last entry's state equals Status.
func (u *WorkUnit) ValidateHistory() error {
	if len(u.StateHistory) == 0 {
		return fmt.Errorf("unit %s: empty state history", u.ID)
	}
	for i := 1; i < len(u.StateHistory); i++ {
		if u.StateHistory[i].Timestamp.Before(u.StateHistory[i-1].Timestamp) {
			return fmt.Errorf("unit %s: history entry %d precedes entry %d", u.ID, i, i-1)
		}
	}
	if last := u.StateHistory[len(u.StateHistory)-1].State; last != u.Status {
		return fmt.Errorf("unit %s: status %s does not match last history entry %s", u.ID, u.Status, last)
	}
	return nil
}
