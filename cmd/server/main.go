package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mama165/sdk-go/logs"

	"chat-relay/admin"
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/filter"
	"chat-relay/internal"
	"chat-relay/moderation"
	"chat-relay/protocol"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
)

// Exit codes to provide meaningful status to the operating system or
// service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// main is a thin wrapper: call run() and translate its outcome into an
	// OS exit code, letting every defer fire first.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	// 1. Configuration & logger
	config, err := internal.Load()
	if err != nil {
		return exitConfig, err
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	charReplacement, err := config.CharacterRune()
	if err != nil {
		return exitConfig, err
	}

	// 2. Persistence (per-room append-only logs)
	history, err := repositories.NewFileRoomLog(config.LogDir, logger)
	if err != nil {
		return exitRuntime, err
	}

	// 3. Content filter: external binary when configured, in-process
	// moderation otherwise.
	contentFilter, err := buildFilter(config, charReplacement, logger)
	if err != nil {
		return exitRuntime, err
	}

	// 4. Session/room state and the engine around it
	registry := runtime.NewRegistry(config.MaxClients, config.ConnectionBufferSize, logger)
	rooms := domain.NewRooms(config.MaxRooms)
	rooms.Add(domain.DefaultRoom)

	engine := runtime.NewEngine(logger, registry, rooms, contentFilter, history)
	adminService := admin.NewService(logger, registry, rooms, engine,
		admin.NewSecret(config.AdminSecret))

	uplink := make(chan protocol.Envelope, config.UplinkBufferSize)
	dispatcher := runtime.NewDispatcher(logger, registry, rooms, engine,
		adminService, history, uplink, config.DispatchTick)
	listener := runtime.NewListener(logger, config.Addr(), registry, uplink)

	// Bind before supervising so a bad address fails startup instead of
	// being retried forever.
	if err := listener.Listen(); err != nil {
		return exitRuntime, err
	}

	stats := workers.NewStats(logger, registry, rooms)

	// 5. Signals & supervision
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup := workers.NewSupervisor(logger, config.RestartInterval)
	sup.Add(dispatcher, listener, stats)

	logger.Info("Starting chat relay", "addr", config.Addr(), "log_dir", config.LogDir)
	sup.Run(ctx)

	logger.Info("Program stopped cleanly")
	return exitOK, nil
}

// buildFilter picks the content-filter collaborator. When FILTER_BIN_PATH
// is set the external program is used (original subprocess contract); the
// embedded Aho-Corasick moderator is the default.
func buildFilter(config internal.Config, replacement rune, logger *slog.Logger) (contract.Filter, error) {
	if config.FilterBinPath != "" {
		logger.Info("Using external filter", "bin", config.FilterBinPath)
		return filter.NewExec(config.FilterBinPath, config.FilterTimeout, logger), nil
	}

	dictionary, err := moderation.LoadDefault()
	if err != nil {
		return nil, err
	}
	logger.Info(fmt.Sprintf("%d censored words loaded [%s]",
		len(dictionary.Words), strings.Join(dictionary.Languages, ",")))

	moderator, err := moderation.NewModerator(dictionary.Words, replacement, logger)
	if err != nil {
		return nil, err
	}
	return filter.NewModeration(moderator, logger), nil
}
