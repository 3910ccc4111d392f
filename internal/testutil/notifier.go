package testutil

import (
	"sync"

	"notes-go/internal/notes"
)

// RecordingNotifier collects every error it is notified of.
type RecordingNotifier struct {
	mu   sync.Mutex
	errs []error
}

func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

func (n *RecordingNotifier) Notify(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errs = append(n.errs, err)
}

// Errors returns a copy of the recorded errors in notification order.
func (n *RecordingNotifier) Errors() []error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]error(nil), n.errs...)
}

// Reset forgets all recorded errors.
func (n *RecordingNotifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errs = nil
}

var _ notes.Notifier = (*RecordingNotifier)(nil)
