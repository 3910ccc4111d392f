package app

import (
	"errors"
	"sync"

	"notes-go/internal/notes"
)

// Operation tracks one CLI invocation and collects the non-fatal problems
// reported while it runs, such as a snapshot that could not be saved.
// It is the Notifier handed to the persistence layer.
type Operation struct {
	Name   string
	Status string // "success", "warning" or "error"

	mu       sync.Mutex
	warnings []error
}

// NewOperation creates a new operation in the success state.
func NewOperation(name string) *Operation {
	return &Operation{
		Name:   name,
		Status: "success",
	}
}

// Notify records err as a warning. It never calls back into the store.
func (op *Operation) Notify(err error) {
	op.mu.Lock()
	defer op.mu.Unlock()
	op.warnings = append(op.warnings, err)
	if op.Status == "success" {
		op.Status = "warning"
	}
}

// Fail marks the operation as failed.
func (op *Operation) Fail() {
	op.mu.Lock()
	defer op.mu.Unlock()
	op.Status = "error"
}

// Warnings returns a copy of the recorded warnings in order.
func (op *Operation) Warnings() []error {
	op.mu.Lock()
	defer op.mu.Unlock()
	return append([]error(nil), op.warnings...)
}

// Err joins all warnings into one error, or returns nil if there are none.
func (op *Operation) Err() error {
	return errors.Join(op.Warnings()...)
}

var _ notes.Notifier = (*Operation)(nil)
