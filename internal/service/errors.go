package service

import "fmt"

// Typed domain errors. Handlers map these to HTTP statuses at the edge;
// inside the service layer they carry enough context to act on.

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// InvalidTransitionError rejects an operation the entity's current status
// does not permit.
type InvalidTransitionError struct {
	Entity string
	ID     string
	Status string
	Detail string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s %s in status %s: %s", e.Entity, e.ID, e.Status, e.Detail)
}

type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string { return e.Detail }

// ConflictError rejects a submission that already happened (e.g. a second
// first-count on the same line).
type ConflictError struct {
	Detail string
}

func (e *ConflictError) Error() string { return e.Detail }
