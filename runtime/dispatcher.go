package runtime

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"time"

	"chat-relay/admin"
	"chat-relay/domain"
	"chat-relay/protocol"
	"chat-relay/repositories"
)

// ShutdownNotice is the line every session receives before teardown.
// Clients recognize it and exit; it is deliberately command-shaped so plain
// text can never collide with it inside a broadcast.
const ShutdownNotice = "/server_shutdown"

// Dispatcher is the single consumer of the uplink channel and the only
// goroutine that mutates session and room state. Commands are processed to
// completion one at a time, which serializes all table mutations without
// locks. The tick bounds the wait so the loop stays responsive to
// cancellation even when no client is talking.
type Dispatcher struct {
	log      *slog.Logger
	registry *Registry
	rooms    *domain.Rooms
	engine   *Engine
	admin    *admin.Service
	history  repositories.RoomLog
	uplink   <-chan protocol.Envelope
	tick     time.Duration
}

func NewDispatcher(log *slog.Logger, registry *Registry, rooms *domain.Rooms,
	engine *Engine, adminService *admin.Service, history repositories.RoomLog,
	uplink <-chan protocol.Envelope, tick time.Duration) *Dispatcher {
	return &Dispatcher{
		log:      log,
		registry: registry,
		rooms:    rooms,
		engine:   engine,
		admin:    adminService,
		history:  history,
		uplink:   uplink,
		tick:     tick,
	}
}

func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.shutdown()
			return nil
		case env := <-d.uplink:
			d.handle(env)
		case <-ticker.C:
			// Bounded wait: wake up even on an idle relay so cancellation
			// is observed promptly.
		}
	}
}

// handle executes one uplink envelope to completion.
func (d *Dispatcher) handle(env protocol.Envelope) {
	sess := d.registry.Get(env.Slot)
	if sess == nil || sess.ID != env.Session {
		// A line from a torn-down worker whose slot was freed (and possibly
		// reallocated). Dropping it protects the slot's next occupant.
		return
	}

	cmd, err := protocol.Parse(env.Line)
	if err != nil {
		d.log.Debug("Dropping malformed uplink line", "slot", env.Slot, "err", err)
		return
	}

	switch c := cmd.(type) {
	case protocol.Join:
		d.join(sess, c)
	case protocol.Message:
		d.message(sess, c)
	case protocol.Private:
		d.private(sess, c)
	case protocol.Appeal:
		d.appeal(sess, c)
	case protocol.History:
		d.sendHistory(sess, c.Room)
	case protocol.Rooms:
		d.listRooms(sess)
	case protocol.Quit:
		d.registry.Send(sess.Slot, "Goodbye")
		d.registry.Free(sess.Slot)
	case protocol.Admin:
		d.admin.Execute(sess, c.Body)
	case protocol.Unknown:
		d.registry.Send(sess.Slot, fmt.Sprintf("Unknown command: %s", c.Raw))
	}
}

func (d *Dispatcher) join(sess *domain.Session, c protocol.Join) {
	sess.Name = domain.Truncate(c.User, domain.MaxNameLen)
	sess.Room = domain.Truncate(c.Room, domain.MaxRoomLen)
	d.rooms.Add(sess.Room)
	d.registry.Send(sess.Slot, fmt.Sprintf("Welcome %s to %s", sess.Name, sess.Room))
	d.engine.Broadcast(sess.Room, "server", "a new user has joined")
}

func (d *Dispatcher) message(sess *domain.Session, c protocol.Message) {
	if sess.Muted {
		d.registry.Send(sess.Slot, "You are muted.")
		return
	}
	d.engine.Broadcast(c.Room, c.User, c.Text)
}

func (d *Dispatcher) private(sess *domain.Session, c protocol.Private) {
	if d.engine.SendPrivate(c.From, c.To, c.Text) {
		d.registry.Send(sess.Slot, fmt.Sprintf("PM sent to %s", c.To))
	} else {
		d.registry.Send(sess.Slot, fmt.Sprintf("User %s not found", c.To))
	}
}

func (d *Dispatcher) appeal(sess *domain.Session, c protocol.Appeal) {
	if sess.LastAppeal != "" && sess.LastAppeal == c.Text {
		d.registry.Send(sess.Slot, "Your appeal was already sent to admins recently.")
		return
	}
	sess.LastAppeal = c.Text

	notice := fmt.Sprintf("[APPEAL] %s: %s", c.From, c.Text)
	sent := 0
	for _, target := range d.registry.Connected() {
		if !target.IsAdmin {
			continue
		}
		d.registry.Send(target.Slot, notice)
		sent++
		d.log.Info("Forwarded appeal",
			"from", c.From, "admin", target.Name, "slot", target.Slot)
	}

	if sent == 0 {
		d.registry.Send(sess.Slot, "No admins currently online. Try again later.")
	} else {
		d.registry.Send(sess.Slot, fmt.Sprintf("Your appeal was sent to %d admin(s).", sent))
	}
}

func (d *Dispatcher) sendHistory(sess *domain.Session, room string) {
	reader, err := d.history.Reader(room)
	if err != nil {
		d.registry.Send(sess.Slot, fmt.Sprintf("No history for %s", room))
		return
	}
	defer reader.Close()

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, protocol.MaxFrame), protocol.MaxFrame)
	for scanner.Scan() {
		d.registry.Send(sess.Slot, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		d.log.Error("Room history read failed", "room", room, "err", err)
	}
}

func (d *Dispatcher) listRooms(sess *domain.Session) {
	names := d.rooms.List()
	if len(names) == 0 {
		d.registry.Send(sess.Slot, "No rooms")
		return
	}
	for _, name := range names {
		d.registry.Send(sess.Slot, name)
	}
}

// shutdown notifies every session, then frees every slot, closing all
// downlinks so connection workers hang up.
func (d *Dispatcher) shutdown() {
	sessions := d.registry.Connected()
	d.log.Info("Dispatcher shutting down", "sessions", len(sessions))
	for _, sess := range sessions {
		d.registry.Send(sess.Slot, ShutdownNotice)
	}
	for _, sess := range sessions {
		d.registry.Free(sess.Slot)
	}
}
