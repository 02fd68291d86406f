package watch

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// EventType classifies a single watch notification.
type EventType string

const (
	Added    EventType = "Added"
	Modified EventType = "Modified"
	Deleted  EventType = "Deleted"
	Bookmark EventType = "Bookmark"
	Error    EventType = "Error"
)

// Event is one notification delivered by a Session.
type Event struct {
	Type EventType

	// Object is the resource the notification refers to. Nil for Error
	// events and for Bookmark events without payload.
	Object *unstructured.Unstructured

	// Position is the resumption position observed at this event. Within
	// one (resource kind, scope) it is monotonically non-decreasing and
	// seeds the next subscription attempt.
	Position string

	// Resync is set on events replayed after a compaction forced a full
	// re-list. Consumers should replace cached state rather than merge.
	Resync bool

	// Err carries the backend failure for Error events, nil otherwise.
	Err error
}
