package shared

import "fmt"

// DomainError is the base error type for all domain errors
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func NewDomainError(message string) *DomainError {
	return &DomainError{Message: message}
}

// StaleActionStateError is returned by a completion task that finds its entity
// no longer in the action it was scheduled for. The fire is abandoned without
// mutating anything; it is not retried.
type StaleActionStateError struct {
	*DomainError
	EntityID string
	Expected string
	Actual   string
}

func NewStaleActionStateError(entityID, expected, actual string) *StaleActionStateError {
	return &StaleActionStateError{
		DomainError: &DomainError{Message: fmt.Sprintf(
			"entity %s is %s, expected %s", entityID, actual, expected)},
		EntityID: entityID,
		Expected: expected,
		Actual:   actual,
	}
}

// MissingReferenceError indicates a static-data row (ship type, resource,
// blueprint, system) that should exist does not. This is a data-integrity
// problem, not a business outcome.
type MissingReferenceError struct {
	*DomainError
	Kind string
	ID   string
}

func NewMissingReferenceError(kind, id string) *MissingReferenceError {
	return &MissingReferenceError{
		DomainError: &DomainError{Message: fmt.Sprintf("unknown %s: %s", kind, id)},
		Kind:        kind,
		ID:          id,
	}
}

// InvalidActionError is returned when a command tries a transition the
// current action does not allow (e.g. starting travel while mining).
type InvalidActionError struct {
	*DomainError
	EntityID string
	Action   string
}

func NewInvalidActionError(entityID, action, attempted string) *InvalidActionError {
	return &InvalidActionError{
		DomainError: &DomainError{Message: fmt.Sprintf(
			"fleet %s cannot %s while %s", entityID, attempted, action)},
		EntityID: entityID,
		Action:   action,
	}
}
