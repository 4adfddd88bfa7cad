// Standalone content filter. Reads lines on stdin, writes the censored
// version of each line to stdout. The server talks to it through
// FILTER_BIN_PATH with one request line per invocation, but the loop also
// makes it usable interactively for dictionary checks.
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"chat-relay/moderation"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

type Config struct {
	LogLevel        string `env:"LOG_LEVEL,default=ERROR"`
	CharReplacement string `env:"CHARACTER_REPLACEMENT,default=*"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Filter error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	// Defaults to ERROR so the stdout protocol stays clean.
	logger := logs.GetLoggerFromString(config.LogLevel)

	replacement := []rune(config.CharReplacement)
	if len(replacement) != 1 {
		return exitConfig, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			config.CharReplacement,
		)
	}

	dictionary, err := moderation.LoadDefault()
	if err != nil {
		return exitRuntime, err
	}
	moderator, err := moderation.NewModerator(dictionary.Words, replacement[0], logger)
	if err != nil {
		return exitRuntime, err
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		censored, _ := moderator.Censor(scanner.Text())
		fmt.Fprintln(out, censored)
		out.Flush()
	}
	return exitOK, scanner.Err()
}
