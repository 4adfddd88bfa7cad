package runtime

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chat-relay/admin"
	"chat-relay/domain"
	"chat-relay/protocol"
)

type dispatcherFixture struct {
	dispatcher *Dispatcher
	registry   *Registry
	rooms      *domain.Rooms
	history    *memLog
	uplink     chan protocol.Envelope
}

func newDispatcherFixture(capacity int) *dispatcherFixture {
	log := discardLogger()
	registry := NewRegistry(capacity, 16, log)
	rooms := domain.NewRooms(16)
	rooms.Add(domain.DefaultRoom)
	history := newMemLog()
	engine := NewEngine(log, registry, rooms, stubFilter{}, history)
	adminService := admin.NewService(log, registry, rooms, engine, admin.NewSecret("pw"))
	uplink := make(chan protocol.Envelope, 16)
	dispatcher := NewDispatcher(log, registry, rooms, engine, adminService,
		history, uplink, 10*time.Millisecond)

	return &dispatcherFixture{
		dispatcher: dispatcher,
		registry:   registry,
		rooms:      rooms,
		history:    history,
		uplink:     uplink,
	}
}

// post runs one command through the dispatch path as if it arrived on the
// uplink.
func (f *dispatcherFixture) post(sess *domain.Session, cmd protocol.Command) {
	f.dispatcher.handle(protocol.Envelope{
		Slot:    sess.Slot,
		Session: sess.ID,
		Line:    protocol.Encode(cmd),
	})
}

func TestDispatcher_Join(t *testing.T) {
	req := require.New(t)
	f := newDispatcherFixture(4)

	sess, link, _ := f.registry.Allocate()

	// When the client picks a name and a room
	f.post(sess, protocol.Join{User: "bob", Room: "red"})

	// Then the session record is updated and the room exists
	req.Equal("bob", sess.Name)
	req.Equal("red", sess.Room)
	req.True(f.rooms.Has("red"))

	// And the joiner sees the welcome plus the room notice
	req.Equal([]string{
		"Welcome bob to red",
		"[red] server: a new user has joined",
	}, drainLink(link))
}

func TestDispatcher_Join_TruncatesLongNames(t *testing.T) {
	req := require.New(t)
	f := newDispatcherFixture(4)

	sess, _, _ := f.registry.Allocate()

	long := make([]byte, 200)
	for i := range long {
		long[i] = 'x'
	}
	f.post(sess, protocol.Join{User: string(long), Room: string(long)})

	req.Len(sess.Name, domain.MaxNameLen)
	req.Len(sess.Room, domain.MaxRoomLen)
}

func TestDispatcher_StaleEnvelopeIgnored(t *testing.T) {
	req := require.New(t)
	f := newDispatcherFixture(4)

	// Given a session whose slot was freed and reallocated
	old, _, _ := f.registry.Allocate()
	f.registry.Free(old.Slot)
	current, link, _ := f.registry.Allocate()
	req.Equal(old.Slot, current.Slot)

	// When a line from the previous occupant arrives late
	f.dispatcher.handle(protocol.Envelope{
		Slot:    old.Slot,
		Session: old.ID,
		Line:    protocol.Encode(protocol.Message{User: "ghost", Room: "lobby", Text: "boo"}),
	})

	// Then the new occupant is untouched
	req.Empty(drainLink(link))
	req.Empty(f.history.entries)
}

func TestDispatcher_MalformedLineDropped(t *testing.T) {
	req := require.New(t)
	f := newDispatcherFixture(4)

	sess, link, _ := f.registry.Allocate()
	f.dispatcher.handle(protocol.Envelope{Slot: sess.Slot, Session: sess.ID, Line: "JOIN|bob"})

	req.Empty(drainLink(link))
}

func TestDispatcher_MutedSenderRejected(t *testing.T) {
	req := require.New(t)
	f := newDispatcherFixture(4)

	sess, link, _ := f.registry.Allocate()
	sess.Name = "bob"
	sess.Muted = true

	f.post(sess, protocol.Message{User: "bob", Room: "lobby", Text: "hi"})

	// The message never reaches the room, only the refusal comes back
	req.Equal([]string{"You are muted."}, drainLink(link))
	req.Empty(f.history.entries)
}

func TestDispatcher_PrivateMessage(t *testing.T) {
	req := require.New(t)
	f := newDispatcherFixture(4)

	bob, bobLink, _ := f.registry.Allocate()
	bob.Name = "bob"
	alice, aliceLink, _ := f.registry.Allocate()
	alice.Name = "alice"

	// When the recipient exists both sides hear about it
	f.post(bob, protocol.Private{From: "bob", To: "alice", Text: "psst"})
	req.Equal([]string{"PM sent to alice"}, drainLink(bobLink))
	req.Equal([]string{"[PM] bob -> you: psst"}, drainLink(aliceLink))

	// When the recipient is unknown only the sender hears about it
	f.post(bob, protocol.Private{From: "bob", To: "nobody", Text: "psst"})
	req.Equal([]string{"User nobody not found"}, drainLink(bobLink))
}

func TestDispatcher_Appeal(t *testing.T) {
	req := require.New(t)
	f := newDispatcherFixture(4)

	bob, bobLink, _ := f.registry.Allocate()
	bob.Name = "bob"

	// Given no admin is online
	f.post(bob, protocol.Appeal{From: "bob", Text: "please unmute me"})
	req.Equal([]string{"No admins currently online. Try again later."}, drainLink(bobLink))

	// Given an admin session
	root, rootLink, _ := f.registry.Allocate()
	root.Name = "root"
	root.IsAdmin = true

	// When bob appeals with a new text
	f.post(bob, protocol.Appeal{From: "bob", Text: "second try"})
	req.Equal([]string{"Your appeal was sent to 1 admin(s)."}, drainLink(bobLink))
	req.Equal([]string{"[APPEAL] bob: second try"}, drainLink(rootLink))

	// Then the identical resubmission is suppressed
	f.post(bob, protocol.Appeal{From: "bob", Text: "second try"})
	req.Equal([]string{"Your appeal was already sent to admins recently."}, drainLink(bobLink))
	req.Empty(drainLink(rootLink))

	// And a different text goes through again
	f.post(bob, protocol.Appeal{From: "bob", Text: "third try"})
	req.Equal([]string{"Your appeal was sent to 1 admin(s)."}, drainLink(bobLink))
	req.Equal([]string{"[APPEAL] bob: third try"}, drainLink(rootLink))
}

func TestDispatcher_History(t *testing.T) {
	req := require.New(t)
	f := newDispatcherFixture(4)

	sess, link, _ := f.registry.Allocate()

	// Given a room with no log file
	f.post(sess, protocol.History{Room: "empty"})
	req.Equal([]string{"No history for empty"}, drainLink(link))

	// Given recorded traffic
	f.history.entries["red"] = []string{"[red] bob: one", "[red] bob: two"}
	f.post(sess, protocol.History{Room: "red"})
	req.Equal([]string{"[red] bob: one", "[red] bob: two"}, drainLink(link))
}

func TestDispatcher_History_ReplaysMaximumLengthLines(t *testing.T) {
	req := require.New(t)
	f := newDispatcherFixture(4)

	// Given a sender with a maximal name in a maximal room
	name := strings.Repeat("n", domain.MaxNameLen)
	room := strings.Repeat("r", domain.MaxRoomLen)
	sess, link, _ := f.registry.Allocate()
	f.post(sess, protocol.Join{User: name, Room: room})
	drainLink(link)

	// When a message of the maximum text length is broadcast
	longest := strings.Repeat("x", protocol.MaxMessage)
	f.post(sess, protocol.Message{User: name, Room: room, Text: longest})
	drainLink(link)

	f.post(sess, protocol.Message{User: name, Room: room, Text: "short one"})
	drainLink(link)

	// Then the full log replays, the oversized line included
	f.post(sess, protocol.History{Room: room})
	replayed := drainLink(link)
	req.Contains(replayed, fmt.Sprintf("[%s] %s: %s", room, name, longest))
	req.Contains(replayed, fmt.Sprintf("[%s] %s: short one", room, name))
}

func TestDispatcher_Rooms(t *testing.T) {
	req := require.New(t)
	f := newDispatcherFixture(4)

	sess, link, _ := f.registry.Allocate()
	f.rooms.Add("red")

	f.post(sess, protocol.Rooms{})
	req.Equal([]string{domain.DefaultRoom, "red"}, drainLink(link))
}

func TestDispatcher_Quit(t *testing.T) {
	req := require.New(t)
	f := newDispatcherFixture(4)

	sess, link, _ := f.registry.Allocate()

	f.post(sess, protocol.Quit{})

	// The farewell is queued before the downlink closes
	req.Equal([]string{"Goodbye"}, drainLink(link))
	req.Nil(f.registry.Get(sess.Slot))
}

func TestDispatcher_AdminKick(t *testing.T) {
	req := require.New(t)
	f := newDispatcherFixture(4)

	bob, _, _ := f.registry.Allocate()
	bob.Name = "bob"
	alice, aliceLink, _ := f.registry.Allocate()
	alice.Name = "alice"

	// When bob authenticates and kicks alice
	f.post(bob, protocol.Admin{User: "bob", Body: "pw|KICK|alice"})

	// Then bob is promoted, alice is notified and freed
	req.True(bob.IsAdmin)
	req.Equal([]string{"You have been kicked by admin"}, drainLink(aliceLink))
	req.Nil(f.registry.Get(alice.Slot))
}

func TestDispatcher_AdminAuthFailure(t *testing.T) {
	req := require.New(t)
	f := newDispatcherFixture(4)

	bob, link, _ := f.registry.Allocate()
	bob.Name = "bob"

	f.post(bob, protocol.Admin{User: "bob", Body: "wrong|KICK|alice"})

	req.False(bob.IsAdmin)
	req.Equal([]string{"Admin auth failed"}, drainLink(link))
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	req := require.New(t)
	f := newDispatcherFixture(4)

	sess, link, _ := f.registry.Allocate()
	f.dispatcher.handle(protocol.Envelope{Slot: sess.Slot, Session: sess.ID, Line: "DANCE|x"})

	req.Equal([]string{"Unknown command: DANCE"}, drainLink(link))
}

func TestDispatcher_Run_ShutdownNotifiesSessions(t *testing.T) {
	req := require.New(t)
	f := newDispatcherFixture(4)

	_, link, _ := f.registry.Allocate()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- f.dispatcher.Run(ctx)
	}()

	// When the context is canceled
	cancel()

	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(time.Second):
		req.Fail("dispatcher did not stop")
	}

	// Then every session got the shutdown notice and its downlink closed
	req.Equal([]string{ShutdownNotice}, drainLink(link))
	_, open := <-link
	req.False(open)
	req.Equal(0, f.registry.Count())
}
