// Package protocol defines the pipe-delimited line protocol spoken between
// connection workers and the dispatcher, and its typed command variants.
// Workers encode commands into lines; the dispatcher parses lines back into
// commands at its receiving edge, so everything past that boundary is typed.
package protocol

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"chat-relay/errors"
)

const (
	// MaxFrame bounds one protocol line end to end.
	MaxFrame = 8192
	// frameOverhead reserves space for the tag, a maximal sender name, a
	// maximal room name, the delimiters and the "[room] from: " prefix of
	// a history line, so a maximal message fits in one frame both on the
	// wire and in the room log.
	frameOverhead = 192
	// MaxMessage is the largest client message text a worker forwards.
	MaxMessage = MaxFrame - frameOverhead
)

const (
	TagJoin    = "JOIN"
	TagMessage = "MSG"
	TagPrivate = "PM"
	TagAppeal  = "APPEAL"
	TagHistory = "HISTORY"
	TagRooms   = "ROOMS"
	TagQuit    = "QUIT"
	TagAdmin   = "ADMIN"
)

// Command is one structured uplink message.
type Command interface {
	Tag() string
}

// Join sets the sender's display name and current room.
type Join struct {
	User string
	Room string
}

func (Join) Tag() string { return TagJoin }

// Message is a plain room message.
type Message struct {
	User string
	Room string
	Text string
}

func (Message) Tag() string { return TagMessage }

// Private is a direct message to one named user.
type Private struct {
	From string
	To   string
	Text string
}

func (Private) Tag() string { return TagPrivate }

// Appeal is a message routed to every admin session.
type Appeal struct {
	From string
	Text string
}

func (Appeal) Tag() string { return TagAppeal }

// History requests the room's log contents.
type History struct {
	Room string
}

func (History) Tag() string { return TagHistory }

// Rooms requests the list of known room names.
type Rooms struct{}

func (Rooms) Tag() string { return TagRooms }

// Quit announces the sender's disconnection.
type Quit struct{}

func (Quit) Tag() string { return TagQuit }

// Admin carries the raw admin command body; the dispatcher side parses the
// admin sub-syntax, not the worker.
type Admin struct {
	User string
	Body string
}

func (Admin) Tag() string { return TagAdmin }

// Unknown is the catch-all for unrecognized tags. The dispatcher answers it
// with "Unknown command: {tag}".
type Unknown struct {
	Raw string
}

func (u Unknown) Tag() string { return u.Raw }

// Envelope is what actually travels on the uplink channel. Session pins the
// envelope to one occupant of the slot so a late line from a torn-down
// worker cannot reach the slot's next occupant.
type Envelope struct {
	Slot    int
	Session uuid.UUID
	Line    string
}

// Encode renders a command as one pipe-delimited wire line (no newline).
func Encode(cmd Command) string {
	switch c := cmd.(type) {
	case Join:
		return fmt.Sprintf("%s|%s|%s", TagJoin, c.User, c.Room)
	case Message:
		return fmt.Sprintf("%s|%s|%s|%s", TagMessage, c.User, c.Room, c.Text)
	case Private:
		return fmt.Sprintf("%s|%s|%s|%s", TagPrivate, c.From, c.To, c.Text)
	case Appeal:
		return fmt.Sprintf("%s|%s|%s", TagAppeal, c.From, c.Text)
	case History:
		return fmt.Sprintf("%s|%s", TagHistory, c.Room)
	case Rooms:
		return TagRooms + "|"
	case Quit:
		return TagQuit + "|"
	case Admin:
		return fmt.Sprintf("%s|%s|%s", TagAdmin, c.User, c.Body)
	default:
		return cmd.Tag() + "|"
	}
}

// Parse decodes one wire line into its command variant. Lines with a
// recognized tag but missing mandatory fields are malformed; lines with an
// unrecognized tag decode to Unknown so the dispatcher can answer them.
func Parse(line string) (Command, error) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return nil, errors.ErrMalformedLine
	}
	tag, rest, _ := strings.Cut(line, "|")

	switch tag {
	case TagJoin:
		user, room, ok := cut2(rest)
		if !ok {
			return nil, errors.ErrMalformedLine
		}
		return Join{User: user, Room: room}, nil

	case TagMessage:
		parts := strings.SplitN(rest, "|", 3)
		if len(parts) < 3 || parts[0] == "" || parts[1] == "" {
			return nil, errors.ErrMalformedLine
		}
		return Message{User: parts[0], Room: parts[1], Text: parts[2]}, nil

	case TagPrivate:
		parts := strings.SplitN(rest, "|", 3)
		if len(parts) < 3 || parts[0] == "" || parts[1] == "" {
			return nil, errors.ErrMalformedLine
		}
		return Private{From: parts[0], To: parts[1], Text: parts[2]}, nil

	case TagAppeal:
		from, text, ok := cut2(rest)
		if !ok {
			return nil, errors.ErrMalformedLine
		}
		return Appeal{From: from, Text: text}, nil

	case TagHistory:
		if rest == "" {
			return nil, errors.ErrMalformedLine
		}
		return History{Room: rest}, nil

	case TagRooms:
		return Rooms{}, nil

	case TagQuit:
		return Quit{}, nil

	case TagAdmin:
		user, body, _ := strings.Cut(rest, "|")
		if user == "" {
			return nil, errors.ErrMalformedLine
		}
		return Admin{User: user, Body: body}, nil

	default:
		return Unknown{Raw: tag}, nil
	}
}

// cut2 splits "a|b" requiring both halves; b may contain further pipes.
func cut2(s string) (string, string, bool) {
	a, b, found := strings.Cut(s, "|")
	if !found || a == "" || b == "" {
		return "", "", false
	}
	return a, b, true
}
