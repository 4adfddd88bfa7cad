// Package workers holds the supervised tasks of the relay: the
// per-connection protocol translator, the restarting supervisor and the
// SIGUSR1 stats reporter.
package workers

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"

	"chat-relay/domain"
	"chat-relay/protocol"
)

// Connection bridges one client socket to the dispatcher. It keeps a local
// view of the client's name and room so it can frame uplink commands; the
// authoritative copy lives in the dispatcher's session table. Downlink lines
// are forwarded verbatim to the socket.
//
// The worker never touches shared state: it only moves bytes and posts
// structured lines.
type Connection struct {
	log      *slog.Logger
	conn     net.Conn
	slot     int
	session  uuid.UUID
	uplink   chan<- protocol.Envelope
	downlink <-chan string

	// local translation state, owned by the read loop
	name string
	room string
}

func NewConnection(log *slog.Logger, conn net.Conn, slot int, session uuid.UUID,
	uplink chan<- protocol.Envelope, downlink <-chan string) *Connection {
	return &Connection{
		log:      log,
		conn:     conn,
		slot:     slot,
		session:  session,
		uplink:   uplink,
		downlink: downlink,
		name:     domain.PlaceholderName,
		room:     domain.DefaultRoom,
	}
}

// Run forwards downlink lines to the socket until the downlink closes (the
// dispatcher freed the slot) or the context is canceled. Closing the socket
// is what unblocks the read loop, which then reports QUIT upstream.
func (w *Connection) Run(ctx context.Context) error {
	go w.readLoop(ctx)

	defer w.conn.Close()
	for {
		select {
		case <-ctx.Done():
			w.flush()
			return nil
		case line, ok := <-w.downlink:
			if !ok {
				return nil
			}
			if _, err := w.conn.Write([]byte(line + "\n")); err != nil {
				w.log.Debug("Socket write failed", "slot", w.slot, "err", err)
				return nil
			}
		}
	}
}

// flush keeps forwarding queued downlink lines after cancellation until the
// dispatcher closes the downlink, so the shutdown notice reaches the socket.
// The deadline covers a dispatcher that died without freeing the slot.
func (w *Connection) flush() {
	deadline := time.After(time.Second)
	for {
		select {
		case line, ok := <-w.downlink:
			if !ok {
				return
			}
			if _, err := w.conn.Write([]byte(line + "\n")); err != nil {
				return
			}
		case <-deadline:
			return
		}
	}
}

// readLoop turns socket lines into uplink envelopes. EOF or a read error is
// an implicit /quit.
func (w *Connection) readLoop(ctx context.Context) {
	reader := bufio.NewReaderSize(w.conn, protocol.MaxFrame)

	for {
		line, err := readLine(reader)
		if err != nil {
			break
		}
		line = strings.TrimRight(line, "\r")
		if quit := w.translate(ctx, line); quit {
			return
		}
	}
	w.post(ctx, protocol.Quit{})
}

// readLine returns the next line, truncated to the reader's buffer size. The
// remainder of an over-long line is drained and discarded so one oversized
// message never desynchronizes or kills the session.
func readLine(r *bufio.Reader) (string, error) {
	var head string
	truncated := false
	for {
		slice, err := r.ReadSlice('\n')
		switch {
		case err == nil:
			if !truncated {
				head = string(slice[:len(slice)-1])
			}
			return head, nil
		case err == bufio.ErrBufferFull:
			if !truncated {
				head = string(slice)
				truncated = true
			}
		case err == io.EOF && (truncated || len(slice) > 0):
			// A final line without a newline still counts.
			if !truncated {
				head = string(slice)
			}
			return head, nil
		default:
			return "", err
		}
	}
}

// translate classifies one client line. It reports true when the worker must
// stop reading.
func (w *Connection) translate(ctx context.Context, line string) bool {
	if line == "" {
		return false
	}

	if !strings.HasPrefix(line, "/") {
		text := domain.Truncate(line, protocol.MaxMessage)
		w.post(ctx, protocol.Message{User: w.name, Room: w.room, Text: text})
		return false
	}

	switch {
	case strings.HasPrefix(line, "/nick "):
		w.name = domain.Truncate(line[len("/nick "):], domain.MaxNameLen)
		w.post(ctx, protocol.Join{User: w.name, Room: w.room})

	case strings.HasPrefix(line, "/join "):
		w.room = domain.Truncate(line[len("/join "):], domain.MaxRoomLen)
		w.post(ctx, protocol.Join{User: w.name, Room: w.room})

	case line == "/rooms":
		w.post(ctx, protocol.Rooms{})

	case line == "/history":
		w.post(ctx, protocol.History{Room: w.room})

	case strings.HasPrefix(line, "/pm "):
		to, text, found := strings.Cut(line[len("/pm "):], " ")
		if !found || to == "" || text == "" {
			// Malformed PMs are answered locally, the dispatcher never
			// hears about them.
			w.reply("Usage: /pm <user> <msg>")
			return false
		}
		w.post(ctx, protocol.Private{From: w.name, To: to, Text: text})

	case strings.HasPrefix(line, "/appeal "):
		w.post(ctx, protocol.Appeal{From: w.name, Text: line[len("/appeal "):]})

	case strings.HasPrefix(line, "/admin "):
		// Forwarded verbatim: the dispatcher owns the admin sub-syntax.
		w.post(ctx, protocol.Admin{User: w.name, Body: line[len("/admin "):]})

	case line == "/quit":
		w.post(ctx, protocol.Quit{})
		return true

	default:
		w.reply("Unknown command")
	}
	return false
}

func (w *Connection) post(ctx context.Context, cmd protocol.Command) {
	env := protocol.Envelope{
		Slot:    w.slot,
		Session: w.session,
		Line:    protocol.Encode(cmd),
	}
	select {
	case w.uplink <- env:
	case <-ctx.Done():
	}
}

func (w *Connection) reply(line string) {
	if _, err := w.conn.Write([]byte(line + "\n")); err != nil {
		w.log.Debug("Socket write failed", "slot", w.slot, "err", err)
	}
}
