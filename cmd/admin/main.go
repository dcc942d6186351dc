package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/aeolun/multichat/pkg/client"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	// Version is set at build time via ldflags
	Version = "dev"
)

const maxScrollback = 500

var (
	appealStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
)

func main() {
	serverAddr := flag.String("server", "localhost:12345", "Server address (host:port, tcp://, ssh:// or ws://)")
	name := flag.String("name", "admin", "Admin nickname")
	version := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *version {
		fmt.Printf("MultiChat Admin Console %s\n", Version)
		os.Exit(0)
	}

	password := os.Getenv("MULTICHAT_ADMIN_PASSWORD")
	if password == "" {
		fmt.Print("Admin password: ")
		pw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read password: %v\n", err)
			os.Exit(1)
		}
		password = string(pw)
	}

	conn, err := client.NewConnection(*serverAddr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := conn.Connect(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer conn.Close()

	conn.Sendf("/nick %s", *name)
	// Authenticate immediately so appeals route here even before the
	// operator types anything.
	conn.Sendf("/admin %s|", password)

	model := newModel(conn, password)
	p := tea.NewProgram(model)

	// Server lines arrive asynchronously; push them into the program so
	// the prompt redraws instead of being torn mid-line.
	go func() {
		for line := range conn.Lines() {
			p.Send(serverLineMsg(line))
		}
		p.Send(disconnectedMsg{})
	}()

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running program: %v\n", err)
		os.Exit(1)
	}
}

type serverLineMsg string
type disconnectedMsg struct{}

type model struct {
	conn     *client.Connection
	password string
	input    textinput.Model
	lines    []string
	gone     bool
}

func newModel(conn *client.Connection, password string) model {
	ti := textinput.New()
	ti.Placeholder = "KICK <user> | MUTE <user> | UNMUTE <user> | BROADCAST <text> | ROOMS | USERS"
	ti.Prompt = "admin> "
	ti.CharLimit = 512
	ti.Focus()

	return model{
		conn:     conn,
		password: password,
		input:    ti,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case serverLineMsg:
		m.appendLine(string(msg))
		return m, nil

	case disconnectedMsg:
		m.gone = true
		m.appendLine(statusStyle.Render("Connection closed by server."))
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.conn.Send("/quit")
			return m, tea.Quit
		case tea.KeyEnter:
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "" {
				return m, nil
			}
			if m.gone {
				return m, tea.Quit
			}
			return m.submit(line)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit turns the typed line into wire traffic. Bare words are admin
// actions and get wrapped with the password; slash commands pass
// through so the operator can still chat, PM, or quit.
func (m model) submit(line string) (tea.Model, tea.Cmd) {
	if strings.HasPrefix(line, "/") {
		m.conn.Send(line)
		if strings.TrimSpace(line) == "/quit" {
			return m, tea.Quit
		}
		return m, nil
	}

	action, args, _ := strings.Cut(line, " ")
	m.conn.Sendf("/admin %s|%s|%s", m.password, strings.ToUpper(action), args)
	return m, nil
}

func (m *model) appendLine(line string) {
	if strings.HasPrefix(line, "[APPEAL] ") {
		line = appealStyle.Render(line)
	}
	m.lines = append(m.lines, line)
	if len(m.lines) > maxScrollback {
		m.lines = m.lines[len(m.lines)-maxScrollback:]
	}
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("MultiChat admin console (%s)", m.conn.Addr())))
	b.WriteString("\n\n")
	for _, line := range m.lines {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(statusStyle.Render("esc/ctrl+c to quit"))
	b.WriteString("\n")
	return b.String()
}
