package protocol

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

// nameGen draws identifiers that pass ValidName.
func nameGen() *rapid.Generator[string] {
	return rapid.StringMatching(`[a-zA-Z0-9_-]{1,32}`)
}

// textGen draws free text for trailing fields: any printable junk,
// pipes included, but no newlines (the line framing owns those).
func textGen() *rapid.Generator[string] {
	return rapid.StringMatching(`[^\n\r]{1,200}`)
}

// TestCommandRoundTrip checks that every encodable command survives an
// encode/parse cycle byte for byte.
func TestCommandRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		kind := rapid.SampledFrom([]Kind{
			KindJoin, KindMsg, KindPM, KindAppeal, KindHistory, KindRooms, KindQuit, KindAdmin,
		}).Draw(t, "kind")

		original := Command{Kind: kind}
		switch kind {
		case KindJoin:
			original.Name = nameGen().Draw(t, "name")
			original.Room = nameGen().Draw(t, "room")
		case KindMsg:
			original.Name = nameGen().Draw(t, "name")
			original.Room = nameGen().Draw(t, "room")
			original.Text = textGen().Draw(t, "text")
		case KindPM:
			original.Name = nameGen().Draw(t, "name")
			original.Target = nameGen().Draw(t, "target")
			original.Text = textGen().Draw(t, "text")
		case KindAppeal:
			original.Name = nameGen().Draw(t, "name")
			original.Text = textGen().Draw(t, "text")
		case KindHistory:
			original.Room = nameGen().Draw(t, "room")
		case KindAdmin:
			original.Name = nameGen().Draw(t, "name")
			original.Text = textGen().Draw(t, "text")
		}

		decoded, err := Parse(original.Encode())
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if decoded != original {
			t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, original)
		}
	})
}

// TestParseJunkStable feeds arbitrary junk lines to the parser; it must
// either reject them or yield a command whose re-encoding parses back
// to the same command.
func TestParseJunkStable(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		line := rapid.StringMatching(`[^\n\r]{0,300}`).Draw(t, "line")
		cmd, err := Parse(line)
		if err != nil {
			if !strings.Contains(err.Error(), "record") {
				t.Fatalf("unexpected error shape: %v", err)
			}
			return
		}
		again, err := Parse(cmd.Encode())
		if err != nil {
			t.Fatalf("re-parse failed: %v", err)
		}
		if again != cmd {
			t.Fatalf("unstable parse: %+v vs %+v", again, cmd)
		}
	})
}
