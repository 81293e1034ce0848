package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCycleDetected indicates the dependency template contains a cycle.
	// Template data integrity bug; never auto-recovered.
	ErrCycleDetected = errors.New("dependency cycle detected")

	// ErrConfiguration indicates required calendar or duration data is
	// missing or inconsistent.
	ErrConfiguration = errors.New("schedule configuration error")

	// ErrConcurrencyConflict indicates a write observed a stale row
	// version. Recoverable: retry from a fresh read.
	ErrConcurrencyConflict = errors.New("concurrent modification conflict")

	// ErrIllegalTransition indicates a state-machine violation, e.g.
	// approving an already-decided request.
	ErrIllegalTransition = errors.New("illegal state transition")

	// ErrInvariantViolation indicates stored data breaks a schema
	// invariant, e.g. a completed stage with no completion date and no
	// backfill flag.
	ErrInvariantViolation = errors.New("data invariant violation")

	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")
)

// CycleError reports one cycle found in a dependency template, with a
// stable witness path for template authors.
type CycleError struct {
	Version string
	Path    []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle in template %s: %s",
		e.Version, strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCycleDetected }
