package admin

import (
	"fmt"
	"log/slog"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/protocol"
)

// Service executes admin commands on behalf of the dispatcher. It shares the
// dispatcher's single-threaded execution model: Execute is only ever called
// from the dispatch loop, so session mutations here never race.
type Service struct {
	log         *slog.Logger
	registry    contract.Registry
	rooms       contract.RoomIndex
	broadcaster contract.Broadcaster
	secret      Secret
}

func NewService(log *slog.Logger, registry contract.Registry, rooms contract.RoomIndex,
	broadcaster contract.Broadcaster, secret Secret) *Service {
	return &Service{
		log:         log,
		registry:    registry,
		rooms:       rooms,
		broadcaster: broadcaster,
		secret:      secret,
	}
}

// Execute normalizes the admin body, authenticates, promotes the session and
// dispatches on the action word. Authentication failure has no side effect
// besides the failure reply.
func (s *Service) Execute(sess *domain.Session, body string) {
	req, ok := protocol.ParseAdminBody(body)
	if !ok {
		s.reply(sess, "Admin malformed")
		return
	}

	if !s.secret.Verify(req.Password) {
		s.log.Warn("Admin auth failed", "user", sess.Name, "slot", sess.Slot)
		s.reply(sess, "Admin auth failed")
		return
	}

	// Promotion is idempotent and sticks until disconnection.
	sess.IsAdmin = true

	if req.Action == "" {
		s.reply(sess, "Admin: no action")
		return
	}

	switch req.Action {
	case "KICK":
		s.kick(sess, req.Args)
	case "MUTE":
		s.setMuted(sess, req.Args, true)
	case "UNMUTE":
		s.setMuted(sess, req.Args, false)
	case "BROADCAST":
		s.broadcaster.Broadcast(domain.GlobalRoom, "admin", req.Args)
	case "ROOMS":
		s.listRooms(sess)
	case "USERS":
		s.listUsers(sess)
	default:
		s.reply(sess, fmt.Sprintf("Unknown admin action: %s", req.Action))
	}
}

func (s *Service) kick(sess *domain.Session, target string) {
	if target == "" {
		s.reply(sess, "KICK requires username")
		return
	}
	victim := s.registry.ByName(target)
	if victim == nil {
		s.reply(sess, "User not found")
		return
	}
	s.registry.Send(victim.Slot, "You have been kicked by admin")
	s.registry.Free(victim.Slot)
	s.log.Info("Kicked user", "user", target, "slot", victim.Slot, "by", sess.Name)
}

func (s *Service) setMuted(sess *domain.Session, target string, muted bool) {
	action := "MUTE"
	notice := "You are muted by admin"
	if !muted {
		action = "UNMUTE"
		notice = "You are unmuted by admin"
	}

	if target == "" {
		s.reply(sess, action+" requires username")
		return
	}
	victim := s.registry.ByName(target)
	if victim == nil {
		s.reply(sess, "User not found")
		return
	}
	victim.Muted = muted
	s.registry.Send(victim.Slot, notice)
}

func (s *Service) listRooms(sess *domain.Session) {
	names := s.rooms.List()
	if len(names) == 0 {
		s.reply(sess, "No rooms")
		return
	}
	s.reply(sess, fmt.Sprintf("Rooms (%d):", len(names)))
	for _, name := range names {
		s.reply(sess, " - "+name)
	}
}

func (s *Service) listUsers(sess *domain.Session) {
	connected := s.registry.Connected()
	s.reply(sess, fmt.Sprintf("Active users: %d", len(connected)))
	for _, user := range connected {
		if user.Name == "" {
			continue
		}
		room := user.Room
		if room == "" {
			room = "none"
		}
		s.reply(sess, fmt.Sprintf(" - %s (room: %s)", user.Name, room))
	}
}

func (s *Service) reply(sess *domain.Session, line string) {
	s.registry.Send(sess.Slot, line)
}
