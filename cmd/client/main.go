package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aeolun/multichat/pkg/client"
	"github.com/charmbracelet/lipgloss"
)

var (
	// Version is set at build time via ldflags
	Version = "dev"
)

var (
	pmStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	appealStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	serverStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func main() {
	serverAddr := flag.String("server", "localhost:12345", "Server address (host:port, tcp://, ssh:// or ws://)")
	nick := flag.String("nick", "", "Nickname to set after connecting")
	room := flag.String("room", "", "Room to join after connecting")
	plain := flag.Bool("plain", false, "Disable colored output")
	version := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *version {
		fmt.Printf("MultiChat Client %s\n", Version)
		os.Exit(0)
	}

	if *plain {
		noColor := lipgloss.NewStyle()
		pmStyle, appealStyle, serverStyle, errorStyle = noColor, noColor, noColor, noColor
	}

	conn, err := client.NewConnection(*serverAddr)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
	if err := conn.Connect(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
	defer conn.Close()

	if *nick != "" {
		conn.Sendf("/nick %s", *nick)
	}
	if *room != "" {
		conn.Sendf("/join %s", *room)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for line := range conn.Lines() {
			printServerLine(line)
		}
	}()

	stdin := bufio.NewScanner(os.Stdin)
	stdin.Buffer(make([]byte, 64*1024), 64*1024)
	for stdin.Scan() {
		line := stdin.Text()
		if err := conn.Send(line); err != nil {
			break
		}
		if strings.TrimSpace(line) == "/quit" {
			break
		}
	}

	// Give the goodbye (or the shutdown notice) a moment to arrive.
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
	fmt.Println(serverStyle.Render("Disconnected."))
}

// printServerLine styles a line from the server by shape. Everything
// unrecognized prints verbatim, which keeps history replay readable.
func printServerLine(line string) {
	switch {
	case strings.HasPrefix(line, "[PM] "):
		fmt.Println(pmStyle.Render(line))
	case strings.HasPrefix(line, "[APPEAL] "):
		fmt.Println(appealStyle.Render(line))
	case line == "/server_shutdown":
		fmt.Println(errorStyle.Render("Server is shutting down."))
	case strings.HasPrefix(line, "You are muted") || strings.HasPrefix(line, "You have been kicked"):
		fmt.Println(errorStyle.Render(line))
	case strings.HasPrefix(line, "Welcome ") || strings.HasPrefix(line, "Goodbye"):
		fmt.Println(serverStyle.Render(line))
	default:
		fmt.Println(line)
	}
}
