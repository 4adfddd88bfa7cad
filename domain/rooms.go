package domain

import "sync"

// Rooms is the bounded set of every room name referenced so far. Rooms are
// created on first reference and never removed; their logs outlive their
// members. GlobalRoom is a broadcast target, not a room, and is rejected.
type Rooms struct {
	mu    sync.RWMutex
	max   int
	names []string
	index map[string]struct{}
}

func NewRooms(max int) *Rooms {
	return &Rooms{
		max:   max,
		index: make(map[string]struct{}),
	}
}

// Add registers a room on first reference. It reports whether the set
// changed: empty names, GlobalRoom, duplicates and a full table are no-ops.
func (r *Rooms) Add(name string) bool {
	if name == "" || name == GlobalRoom {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.index[name]; ok {
		return false
	}
	if len(r.names) >= r.max {
		return false
	}
	r.index[name] = struct{}{}
	r.names = append(r.names, name)
	return true
}

func (r *Rooms) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.index[name]
	return ok
}

// List returns the room names in creation order.
func (r *Rooms) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func (r *Rooms) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}
