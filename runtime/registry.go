// Package runtime wires the chat relay together: the session registry, the
// room/broadcast engine, the dispatcher loop and the TCP listener. It
// orchestrates the system without containing moderation or storage logic.
package runtime

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"chat-relay/domain"
	"chat-relay/errors"
)

// Registry owns the bounded session slot table and the downlink channel of
// every connected session. Allocation always picks the lowest free slot and
// a slot is reusable only after Free closed its downlink.
//
// The lock makes lookups and Send safe from the listener, the stats worker
// and the engine; mutation of session fields (name, room, flags) stays the
// dispatcher's exclusive business.
type Registry struct {
	mu     sync.RWMutex
	log    *slog.Logger
	buffer int
	slots  []*domain.Session
	links  []chan string
}

func NewRegistry(capacity, buffer int, log *slog.Logger) *Registry {
	return &Registry{
		log:    log,
		buffer: buffer,
		slots:  make([]*domain.Session, capacity),
		links:  make([]chan string, capacity),
	}
}

// Allocate reserves the lowest free slot and returns the new session with
// its downlink. It fails closed with ErrServerFull when every slot is taken.
func (r *Registry) Allocate() (*domain.Session, chan string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for slot := range r.slots {
		if r.slots[slot] != nil {
			continue
		}
		sess := &domain.Session{
			Slot:      slot,
			ID:        uuid.New(),
			Room:      domain.DefaultRoom,
			Connected: true,
		}
		link := make(chan string, r.buffer)
		r.slots[slot] = sess
		r.links[slot] = link
		return sess, link, nil
	}
	return nil, nil, errors.ErrServerFull
}

// Free releases a slot and closes its downlink. Closing tells the connection
// worker to drain remaining lines and hang up. Free is idempotent.
func (r *Registry) Free(slot int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if slot < 0 || slot >= len(r.slots) || r.slots[slot] == nil {
		return
	}
	sess := r.slots[slot]
	link := r.links[slot]
	sess.Connected = false
	r.slots[slot] = nil
	r.links[slot] = nil
	close(link)
}

func (r *Registry) Get(slot int) *domain.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if slot < 0 || slot >= len(r.slots) {
		return nil
	}
	return r.slots[slot]
}

func (r *Registry) ByName(name string) *domain.Session {
	if name == "" {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, sess := range r.slots {
		if sess != nil && sess.Name == name {
			return sess
		}
	}
	return nil
}

// Connected snapshots the live sessions in slot order.
func (r *Registry) Connected() []*domain.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Session
	for _, sess := range r.slots {
		if sess != nil {
			out = append(out, sess)
		}
	}
	return out
}

// Send queues one line on a session's downlink without blocking. A full
// downlink drops the line: a reader that stopped draining must not stall
// the dispatcher.
func (r *Registry) Send(slot int, line string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if slot < 0 || slot >= len(r.links) || r.links[slot] == nil {
		return false
	}
	select {
	case r.links[slot] <- line:
		return true
	default:
		r.log.Warn("Downlink full, dropping line", "slot", slot)
		return false
	}
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, sess := range r.slots {
		if sess != nil {
			n++
		}
	}
	return n
}
