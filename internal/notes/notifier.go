package notes

import "fmt"

// PersistenceError reports a snapshot read or write that failed.
// It is non-fatal: the in-memory state stays the source of truth.
type PersistenceError struct {
	Op  string // "load" or "save"
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Notifier surfaces non-fatal conditions to the user, e.g. a failed write.
// Notify may run while the store holds its lock and must not call back into it.
type Notifier interface {
	Notify(err error)
}

// NotifierFunc adapts a plain function to the Notifier interface.
type NotifierFunc func(err error)

func (f NotifierFunc) Notify(err error) { f(err) }
