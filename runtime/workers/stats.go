package workers

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shirou/gopsutil/process"

	"chat-relay/contract"
)

// Stats answers SIGUSR1 with a one-shot status report: active sessions,
// known rooms and the process's own memory and CPU footprint. It mutates
// nothing.
type Stats struct {
	log      *slog.Logger
	registry contract.Registry
	rooms    contract.RoomIndex
}

func NewStats(log *slog.Logger, registry contract.Registry, rooms contract.RoomIndex) *Stats {
	return &Stats{log: log, registry: registry, rooms: rooms}
}

func (w *Stats) Run(ctx context.Context) error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGUSR1)
	defer signal.Stop(sig)

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sig:
			w.report(proc)
		}
	}
}

func (w *Stats) report(proc *process.Process) {
	attrs := []any{
		"clients", w.registry.Count(),
		"rooms", w.rooms.Count(),
	}
	if mem, err := proc.MemoryInfo(); err == nil {
		attrs = append(attrs, "rss_mb", mem.RSS/(1024*1024))
	}
	if cpu, err := proc.CPUPercent(); err == nil {
		attrs = append(attrs, "cpu_percent", cpu)
	}
	w.log.Info("Stats", attrs...)
}
