// Package domain contains core concepts of the chat relay.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// DefaultRoom is the room every session starts in.
	DefaultRoom = "lobby"
	// GlobalRoom is the reserved pseudo-room meaning "every session".
	// It is never stored in the room table and has no membership.
	GlobalRoom = "global"
	// PlaceholderName is the name a connection worker reports until the
	// client picks one with /nick.
	PlaceholderName = "unnamed"

	MaxNameLen = 64
	MaxRoomLen = 64
)

// Session is the server-side record of one connected client. The slot is
// stable for the lifetime of the connection and reusable only after Free.
// The ID disambiguates successive occupants of the same slot.
type Session struct {
	Slot      int
	ID        uuid.UUID
	Name      string
	Room      string
	Connected bool
	Muted     bool
	IsAdmin   bool

	// LastAppeal caches the last appeal text forwarded to admins so an
	// immediate identical resubmission is suppressed.
	LastAppeal string
}

// Truncate bounds s to at most max bytes without splitting the trailing rune.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
