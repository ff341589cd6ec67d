// Package temporal checks that lifecycle artifacts were produced during
// the state that should have produced them.
//
// The check is a pure decision over filesystem metadata and the unit's
// state history: a specification file must have been touched after the
// unit entered specifying, a test file after it entered testing.
// Pre-written artifacts walked retroactively through the lifecycle fail
// the check.
package temporal

import (
	"fmt"
	"strings"
	"time"

	"github.com/weftlabs/weft/internal/types"
)

// Artifact is one file relevant to the transition under validation.
type Artifact struct {
	Path    string
	ModTime time.Time
}

// ArtifactResolver locates the artifacts a unit is expected to have
// produced. Production code uses Resolver; tests substitute fakes.
type ArtifactResolver interface {
	// SpecArtifacts returns specification files tagged with the unit id.
	SpecArtifacts(unitID string) ([]Artifact, error)
	// TestArtifacts returns test files associated with the unit by naming
	// convention.
	TestArtifacts(unitID string) ([]Artifact, error)
}

// Violation is one artifact modified at or before the source state was
// entered.
type Violation struct {
	Path           string        `json:"path"`
	ModTime        time.Time     `json:"mod_time"`
	StateEnteredAt time.Time     `json:"state_entered_at"`
	Gap            time.Duration `json:"gap"` // how long before state entry the file was last touched
}

// ViolationError aborts a transition with the full violation list.
type ViolationError struct {
	UnitID     string
	Target     types.State
	Violations []Violation
}

func (e *ViolationError) Error() string {
	paths := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		paths[i] = v.Path
	}
	return fmt.Sprintf("temporal ordering violation moving %s to %s: %d file(s) predate the state that should have produced them: %s",
		e.UnitID, e.Target, len(e.Violations), strings.Join(paths, ", "))
}

// Validate decides whether the (from, to) transition passes temporal
// ordering. Only two transitions are checked: entering testing (spec
// artifacts against the specifying entry time) and entering implementing
// (test artifacts against the testing entry time); everything else
// passes. Task units are exempt entirely.
func Validate(unit *types.WorkUnit, to types.State, res ArtifactResolver) ([]Violation, error) {
	if unit.Type == types.TypeTask {
		return nil, nil
	}

	var (
		artifacts []Artifact
		source    types.State
		err       error
	)
	switch to {
	case types.StateTesting:
		source = types.StateSpecifying
		artifacts, err = res.SpecArtifacts(unit.ID)
	case types.StateImplementing:
		source = types.StateTesting
		artifacts, err = res.TestArtifacts(unit.ID)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve artifacts for %s: %w", unit.ID, err)
	}

	enteredAt := sourceEntryTime(unit, source)

	var violations []Violation
	for _, a := range artifacts {
		if a.ModTime.After(enteredAt) {
			continue
		}
		violations = append(violations, Violation{
			Path:           a.Path,
			ModTime:        a.ModTime,
			StateEnteredAt: enteredAt,
			Gap:            enteredAt.Sub(a.ModTime),
		})
	}
	return violations, nil
}

// sourceEntryTime anchors the comparison at the most recent entry into
// the source state. A unit rushed forward without ever recording that
// state anchors at its first history entry instead, so the check runs
// against creation time rather than passing vacuously.
func sourceEntryTime(unit *types.WorkUnit, source types.State) time.Time {
	if t, ok := unit.EnteredAt(source); ok {
		return t
	}
	if len(unit.StateHistory) > 0 {
		return unit.StateHistory[0].Timestamp
	}
	return unit.CreatedAt
}
