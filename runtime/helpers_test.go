package runtime

import (
	"io"
	"log/slog"
	"strings"

	"chat-relay/errors"
)

// memLog is an in-memory RoomLog for tests.
type memLog struct {
	entries map[string][]string
	fail    error
}

func newMemLog() *memLog {
	return &memLog{entries: make(map[string][]string)}
}

func (m *memLog) Append(room, line string) error {
	if m.fail != nil {
		return m.fail
	}
	m.entries[room] = append(m.entries[room], line)
	return nil
}

func (m *memLog) Reader(room string) (io.ReadCloser, error) {
	lines, ok := m.entries[room]
	if !ok {
		return nil, errors.ErrNoHistory
	}
	return io.NopCloser(strings.NewReader(strings.Join(lines, "\n") + "\n")), nil
}

// stubFilter lets a test choose the filter outcome per call.
type stubFilter struct {
	apply func(string) (string, error)
}

func (s stubFilter) Apply(text string) (string, error) {
	if s.apply == nil {
		return text, nil
	}
	return s.apply(text)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// drainLink collects every line currently buffered on a downlink without
// blocking.
func drainLink(link chan string) []string {
	var out []string
	for {
		select {
		case line, ok := <-link:
			if !ok {
				return out
			}
			out = append(out, line)
		default:
			return out
		}
	}
}
