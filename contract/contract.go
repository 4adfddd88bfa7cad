package contract

import (
	"chat-relay/domain"
	"context"
	"reflect"
)

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Registry is the session table owned by the dispatcher. Lookups are safe
// from any goroutine; session field mutation is reserved to the dispatcher.
type Registry interface {
	Get(slot int) *domain.Session
	ByName(name string) *domain.Session
	Connected() []*domain.Session
	Send(slot int, line string) bool
	Free(slot int)
	Count() int
}

// RoomIndex tracks every room name ever referenced. "global" is a reserved
// pseudo-room and is never stored.
type RoomIndex interface {
	Add(name string) bool
	Has(name string) bool
	List() []string
	Count() int
}

// Broadcaster fans a message out to a room ("global" means every session).
type Broadcaster interface {
	Broadcast(room, from, text string)
}

// Filter is the content-filter collaborator invoked before any message is
// broadcast, private-messaged, or logged. An error means the caller must
// fall back to the original text.
type Filter interface {
	Apply(text string) (string, error)
}
