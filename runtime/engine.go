package runtime

import (
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/repositories"
)

// Engine is the room and broadcast engine: it ensures rooms exist, runs the
// content filter, appends the room log line and fans the message out. The
// filter call is synchronous; at most one filter invocation is in flight at
// a time because only the dispatch loop calls into the engine.
type Engine struct {
	log      *slog.Logger
	registry *Registry
	rooms    *domain.Rooms
	filter   contract.Filter
	history  repositories.RoomLog
}

func NewEngine(log *slog.Logger, registry *Registry, rooms *domain.Rooms,
	filter contract.Filter, history repositories.RoomLog) *Engine {
	return &Engine{
		log:      log,
		registry: registry,
		rooms:    rooms,
		filter:   filter,
		history:  history,
	}
}

// Broadcast filters, logs and delivers one message. Room "global" reaches
// every connected session; any other room reaches the sessions whose current
// room matches at delivery time.
func (e *Engine) Broadcast(room, from, text string) {
	if room == "" {
		return
	}
	e.rooms.Add(room)

	line := fmt.Sprintf("[%s] %s: %s", room, from, e.filterText(text))
	if err := e.history.Append(room, line); err != nil {
		e.log.Error("Room log append failed", "room", room, "err", err)
	}

	targets := e.registry.Connected()
	if room != domain.GlobalRoom {
		targets = lo.Filter(targets, func(sess *domain.Session, _ int) bool {
			return sess.Room == room
		})
	}
	for _, sess := range targets {
		e.registry.Send(sess.Slot, line)
	}
}

// SendPrivate filters and delivers a direct message. It reports whether a
// connected session with that name was found; private messages are neither
// logged nor room-scoped.
func (e *Engine) SendPrivate(from, to, text string) bool {
	target := e.registry.ByName(to)
	if target == nil {
		return false
	}
	line := fmt.Sprintf("[PM] %s -> you: %s", from, e.filterText(text))
	e.registry.Send(target.Slot, line)
	return true
}

// filterText degrades to the original text when the collaborator fails.
func (e *Engine) filterText(text string) string {
	filtered, err := e.filter.Apply(text)
	if err != nil {
		e.log.Warn("Filter unavailable, forwarding original text", "err", err)
		return text
	}
	return filtered
}
