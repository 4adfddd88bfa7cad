// Package repositories persists chat state. The only persisted state is one
// append-only log file per room; sessions and the room table are rebuilt
// lazily from traffic after a restart.
package repositories

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"chat-relay/errors"
)

// RoomLog is the append-only history store consumed by the broadcast engine
// and the HISTORY command.
type RoomLog interface {
	Append(room, line string) error
	// Reader streams the room's log verbatim. It never creates the file:
	// a room without history yields errors.ErrNoHistory.
	Reader(room string) (io.ReadCloser, error)
}

// FileRoomLog stores one "<room>.log" file per room under a base directory.
type FileRoomLog struct {
	dir string
	log *slog.Logger
}

// NewFileRoomLog creates the log directory if needed.
func NewFileRoomLog(dir string, log *slog.Logger) (*FileRoomLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	return &FileRoomLog{dir: dir, log: log}, nil
}

func (f *FileRoomLog) Append(room, line string) error {
	path, err := f.path(room)
	if err != nil {
		return err
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open room log: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("append room log: %w", err)
	}
	return nil
}

func (f *FileRoomLog) Reader(room string) (io.ReadCloser, error) {
	path, err := f.path(room)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.ErrNoHistory
	}
	if err != nil {
		return nil, fmt.Errorf("open room log: %w", err)
	}
	return file, nil
}

// path rejects room names that would escape the log directory.
func (f *FileRoomLog) path(room string) (string, error) {
	if room == "" || strings.ContainsAny(room, `/\`) || strings.Contains(room, "..") {
		return "", errors.ErrBadRoomName
	}
	return filepath.Join(f.dir, room+".log"), nil
}
