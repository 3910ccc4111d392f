package notes

import "time"

// EventType represents the kind of change committed to the store.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
	EventFilter EventType = "FILTER"
)

// Subject names what an event refers to.
type Subject string

const (
	SubjectNote     Subject = "note"
	SubjectCategory Subject = "category"
	SubjectFilter   Subject = "filter"
)

// Event is delivered to subscribers after a change has been committed.
type Event struct {
	Type      EventType
	Subject   Subject
	ID        string // note or category id; empty for filter changes
	Timestamp time.Time
}
