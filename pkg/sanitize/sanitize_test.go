package sanitize

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassthrough(t *testing.T) {
	var s Sanitizer = Passthrough{}
	assert.Equal(t, "hello", s.Sanitize("hello"))
	assert.Equal(t, "", s.Sanitize(""))
}

// writeScript drops an executable shell script into a temp dir.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script filters not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "filter")
	err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755)
	require.NoError(t, err)
	return path
}

func TestCommandSanitizerTransforms(t *testing.T) {
	path := writeScript(t, `tr 'a-z' 'A-Z'`)
	s := NewCommand(path)
	assert.Equal(t, "HELLO", s.Sanitize("hello"))
}

func TestCommandSanitizerMissingBinary(t *testing.T) {
	s := NewCommand(filepath.Join(t.TempDir(), "nope"))
	assert.Equal(t, "unchanged", s.Sanitize("unchanged"))
}

func TestCommandSanitizerCrash(t *testing.T) {
	path := writeScript(t, `exit 1`)
	s := NewCommand(path)
	assert.Equal(t, "still here", s.Sanitize("still here"))
}

func TestCommandSanitizerEmptyOutput(t *testing.T) {
	path := writeScript(t, `exit 0`)
	s := NewCommand(path)
	assert.Equal(t, "kept", s.Sanitize("kept"))
}

func TestCommandSanitizerTimeout(t *testing.T) {
	path := writeScript(t, `sleep 10`)
	s := &CommandSanitizer{Path: path, Timeout: 100 * time.Millisecond}

	start := time.Now()
	got := s.Sanitize("slow")
	assert.Equal(t, "slow", got)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestCommandSanitizerFirstLineOnly(t *testing.T) {
	path := writeScript(t, "echo cleaned\necho extra junk")
	s := NewCommand(path)
	assert.Equal(t, "cleaned", s.Sanitize("whatever"))
}
