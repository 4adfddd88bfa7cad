package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"chat-relay/protocol"
	"chat-relay/runtime/workers"
)

// WelcomeBanner greets every accepted connection.
const WelcomeBanner = "Welcome to MultiChat! Use /nick, /join, /pm, /rooms"

// Listener accepts TCP connections, allocates a session slot for each and
// starts its connection worker. A full registry rejects the connection with
// a fixed notice before it ever enters the session table. The listener takes
// no part in teardown; that is the dispatcher's job.
type Listener struct {
	log      *slog.Logger
	addr     string
	registry *Registry
	uplink   chan<- protocol.Envelope

	ln net.Listener
	wg sync.WaitGroup
}

func NewListener(log *slog.Logger, addr string, registry *Registry,
	uplink chan<- protocol.Envelope) *Listener {
	return &Listener{
		log:      log,
		addr:     addr,
		registry: registry,
		uplink:   uplink,
	}
}

// Listen binds the TCP socket. Called before supervision starts so a bad
// address fails startup instead of being retried forever.
func (l *Listener) Listen() error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", l.addr, err)
	}
	l.ln = ln
	return nil
}

// Addr reports the bound address; it differs from the configured one when
// listening on port 0.
func (l *Listener) Addr() string {
	if l.ln == nil {
		return l.addr
	}
	return l.ln.Addr().String()
}

// Run accepts until the context is canceled, then waits for every
// connection worker to finish.
func (l *Listener) Run(ctx context.Context) error {
	if l.ln == nil {
		if err := l.Listen(); err != nil {
			return err
		}
	}
	l.log.Info("Server listening", "addr", l.ln.Addr().String())

	go func() {
		<-ctx.Done()
		_ = l.ln.Close()
	}()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			l.log.Warn("Accept failed", "err", err)
			continue
		}
		l.accept(ctx, conn)
	}

	l.wg.Wait()
	return nil
}

func (l *Listener) accept(ctx context.Context, conn net.Conn) {
	sess, downlink, err := l.registry.Allocate()
	if err != nil {
		_, _ = conn.Write([]byte("Server full\n"))
		_ = conn.Close()
		l.log.Warn("Connection rejected, no free slot",
			"remote", conn.RemoteAddr().String())
		return
	}

	l.registry.Send(sess.Slot, WelcomeBanner)
	l.log.Info("Session opened",
		"slot", sess.Slot, "id", sess.ID, "remote", conn.RemoteAddr().String())

	worker := workers.NewConnection(l.log, conn, sess.Slot, sess.ID, l.uplink, downlink)
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		_ = worker.Run(ctx)
	}()
}
