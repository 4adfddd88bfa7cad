// Admin console with a persistent 'admin> ' prompt and immediate incoming
// message handling. Composes the pipe form of the /admin wire command; the
// password is read without terminal echo.
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/term"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

type Config struct {
	ServerAddr string `env:"CHAT_SERVER_ADDR,default=localhost:12345"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Admin client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	stdin := bufio.NewReader(os.Stdin)

	fmt.Print("Admin name: ")
	name, err := stdin.ReadString('\n')
	if err != nil {
		return exitRuntime, fmt.Errorf("read admin name: %w", err)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "admin"
	}

	fmt.Print("Admin password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return exitRuntime, fmt.Errorf("read password: %w", err)
	}

	conn, err := net.Dial("tcp", config.ServerAddr)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to %s: %w", config.ServerAddr, err)
	}
	defer conn.Close()

	// Register a display name so USERS and appeals show who this is.
	if _, err := fmt.Fprintf(conn, "/nick %s\n", name); err != nil {
		return exitRuntime, fmt.Errorf("write to server: %w", err)
	}

	fmt.Printf("Connected to %s as admin '%s'\n", config.ServerAddr, name)
	printHelp()
	prompt()

	// Incoming traffic interrupts the prompt, prints, then redraws it.
	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			fmt.Printf("\n%s\n", scanner.Text())
			prompt()
		}
		fmt.Println("\nServer closed connection")
	}()

	lines := bufio.NewScanner(os.Stdin)
input:
	for lines.Scan() {
		line := strings.TrimSpace(lines.Text())
		switch {
		case line == "":
			prompt()
			continue
		case strings.EqualFold(line, "quit"), strings.EqualFold(line, "exit"):
			_, _ = conn.Write([]byte("/quit\n"))
			break input
		case strings.EqualFold(line, "help"):
			printHelp()
			prompt()
			continue
		}

		action, args, _ := strings.Cut(line, " ")
		var wire string
		if args != "" {
			wire = fmt.Sprintf("/admin %s|%s|%s\n", password, action, args)
		} else {
			wire = fmt.Sprintf("/admin %s|%s\n", password, action)
		}
		if _, err := conn.Write([]byte(wire)); err != nil {
			return exitRuntime, fmt.Errorf("write to server: %w", err)
		}
		prompt()
	}

	<-done
	fmt.Println("Admin client exiting.")
	return exitOK, nil
}

func prompt() {
	fmt.Print("admin> ")
}

func printHelp() {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Command", "Effect"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.Append([]string{"KICK <user>", "disconnect a user and free their slot"})
	table.Append([]string{"MUTE <user>", "reject the user's room messages"})
	table.Append([]string{"UNMUTE <user>", "restore the user's room messages"})
	table.Append([]string{"BROADCAST <text>", "message every connected session"})
	table.Append([]string{"ROOMS", "list known rooms"})
	table.Append([]string{"USERS", "list connected sessions"})
	table.Append([]string{"quit | exit", "leave the console"})
	table.Render()
}
