package filter

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"chat-relay/errors"
)

// Exec runs an external filter program once per message: the text plus a
// trailing newline goes to its stdin, and exactly one filtered line is read
// back from its stdout. The call is synchronous; the timeout kills a filter
// that never answers. Any failure is returned so the caller falls back to
// the original text.
type Exec struct {
	binPath string
	timeout time.Duration
	log     *slog.Logger
}

func NewExec(binPath string, timeout time.Duration, log *slog.Logger) *Exec {
	return &Exec{binPath: binPath, timeout: timeout, log: log}
}

func (f *Exec) Apply(text string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, f.binPath)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return "", fmt.Errorf("filter stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("filter stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("filter start: %w", err)
	}

	if _, err := io.WriteString(stdin, text+"\n"); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return "", fmt.Errorf("filter write: %w", err)
	}
	_ = stdin.Close()

	scanner := bufio.NewScanner(stdout)
	var out string
	if scanner.Scan() {
		out = strings.TrimRight(scanner.Text(), "\r")
	} else {
		_ = cmd.Wait()
		return "", errors.ErrFilterNoReply
	}

	if err := cmd.Wait(); err != nil {
		// The line was already produced; a dirty exit is only worth a log.
		f.log.Debug("Filter exited uncleanly", "bin", f.binPath, "err", err)
	}
	return out, nil
}
