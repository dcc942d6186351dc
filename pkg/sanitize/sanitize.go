// Package sanitize cleans outgoing chat text through an external filter
// program. The filter is an isolation boundary: it runs as a separate
// process per message, and any failure (missing binary, crash, timeout,
// garbage output) degrades to passing the original text through. A
// broken filter must never take the chat pipeline down with it.
package sanitize

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"
)

// Sanitizer transforms one outgoing message.
type Sanitizer interface {
	Sanitize(text string) string
}

// Passthrough returns text unchanged. Used when no filter is configured
// and as the implicit fallback of every other implementation.
type Passthrough struct{}

func (Passthrough) Sanitize(text string) string { return text }

// CommandSanitizer pipes each message through an external command:
// the raw text (newline-terminated) on stdin, the cleaned text on the
// first line of stdout.
type CommandSanitizer struct {
	// Path is the filter executable.
	Path string
	// Timeout bounds a single filter run. Zero means DefaultTimeout.
	Timeout time.Duration
}

// DefaultTimeout is how long a single filter invocation may take before
// the message is passed through unfiltered.
const DefaultTimeout = 2 * time.Second

// NewCommand builds a CommandSanitizer for the given executable path.
func NewCommand(path string) *CommandSanitizer {
	return &CommandSanitizer{Path: path, Timeout: DefaultTimeout}
}

// Sanitize runs the filter once. On any error the input is returned
// unchanged.
func (s *CommandSanitizer) Sanitize(text string) string {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.Path)
	cmd.Stdin = strings.NewReader(text + "\n")

	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return text
	}

	cleaned := out.String()
	if cleaned == "" {
		return text
	}
	// First line only; the filter contract is line-for-line.
	cleaned = strings.TrimRight(strings.SplitN(cleaned, "\n", 2)[0], "\r")
	if cleaned == "" {
		return text
	}
	return cleaned
}
