package domain

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrInvalidState          = errors.New("invalid state")
	ErrCapacityExceeded      = errors.New("capacity exceeded")
	ErrDuplicateRegistration = errors.New("duplicate registration")
	ErrNotRegistered         = errors.New("not registered")
)

// ArgumentError reports caller-supplied data that violates an invariant.
type ArgumentError struct {
	Field string
	Msg   string
}

func (e *ArgumentError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func (e *ArgumentError) Is(target error) bool { return target == ErrInvalidArgument }

// InvalidStateError reports an operation that is illegal in the current
// lifecycle state. Msg names the rule that fired.
type InvalidStateError struct {
	State State
	Msg   string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s (state %s)", e.Msg, e.State)
}

func (e *InvalidStateError) Is(target error) bool { return target == ErrInvalidState }

// CapacityExceededError is returned when the roster is already full.
type CapacityExceededError struct {
	EventID  string
	Capacity int
}

func (e *CapacityExceededError) Error() string { return "evento está completo" }

func (e *CapacityExceededError) Is(target error) bool { return target == ErrCapacityExceeded }

// DuplicateRegistrationError is returned when a user registers twice.
type DuplicateRegistrationError struct {
	EventID string
	UserID  string
}

func (e *DuplicateRegistrationError) Error() string {
	return fmt.Sprintf("user %s is already registered for event %s", e.UserID, e.EventID)
}

func (e *DuplicateRegistrationError) Is(target error) bool {
	return target == ErrDuplicateRegistration
}

// NotRegisteredError is returned when cancelling a registration that does
// not exist.
type NotRegisteredError struct {
	EventID string
	UserID  string
}

func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("user %s is not registered for event %s", e.UserID, e.EventID)
}

func (e *NotRegisteredError) Is(target error) bool { return target == ErrNotRegistered }

func argErr(field, msg string) error {
	return &ArgumentError{Field: field, Msg: msg}
}
