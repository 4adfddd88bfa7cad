package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddr string `env:"CHAT_SERVER_ADDR,default=localhost:12345"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	conn, err := net.Dial("tcp", config.ServerAddr)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to %s: %w", config.ServerAddr, err)
	}
	defer conn.Close()

	color.Green.Printf("Connected to %s\n", config.ServerAddr)
	fmt.Println("Commands: /nick <name>, /join <room>, /rooms, /history, /pm <user> <msg>, /appeal <msg>, /admin <pwd> <CMD>, /quit")

	// Reader goroutine: print incoming lines until the server hangs up.
	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			printServerLine(scanner.Text())
		}
		color.Red.Println("Disconnected from server")
	}()

	stdin := bufio.NewScanner(os.Stdin)
	for stdin.Scan() {
		line := strings.TrimRight(stdin.Text(), "\r\n")
		if _, err := conn.Write([]byte(line + "\n")); err != nil {
			return exitRuntime, fmt.Errorf("write to server: %w", err)
		}
		if isQuitCommand(line) {
			break
		}
	}

	<-done
	return exitOK, nil
}

// isQuitCommand requires an exact match so lines like "/quitters" are sent
// as ordinary traffic instead of ending the session.
func isQuitCommand(line string) bool {
	return line == "/quit"
}

// printServerLine color-codes the interesting traffic classes.
func printServerLine(line string) {
	switch {
	case line == "/server_shutdown":
		color.Red.Println("Server is shutting down")
	case strings.HasPrefix(line, "[PM] "):
		color.Cyan.Println(line)
	case strings.HasPrefix(line, "[APPEAL] "):
		color.Yellow.Println(line)
	case strings.HasPrefix(line, "[global] "):
		color.Magenta.Println(line)
	default:
		fmt.Println(line)
	}
}
