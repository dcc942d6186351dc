package server

import (
	"strings"
	"testing"
)

func TestRoomStoreEnsureAndList(t *testing.T) {
	rs := NewRoomStore(t.TempDir(), 8)

	for _, name := range []string{"lobby", "dev", "random"} {
		if _, err := rs.Ensure(name); err != nil {
			t.Fatalf("Ensure(%q) failed: %v", name, err)
		}
	}
	// Ensure is idempotent.
	if _, err := rs.Ensure("dev"); err != nil {
		t.Fatalf("repeat Ensure failed: %v", err)
	}

	names := rs.List()
	if len(names) != 3 {
		t.Fatalf("expected 3 rooms, got %d", len(names))
	}
	// Creation order preserved.
	if names[0] != "lobby" || names[1] != "dev" || names[2] != "random" {
		t.Errorf("unexpected room order: %v", names)
	}
	if rs.Count() != 3 {
		t.Errorf("expected count 3, got %d", rs.Count())
	}
}

func TestRoomStoreRejectsBadNames(t *testing.T) {
	rs := NewRoomStore(t.TempDir(), 8)

	bad := []string{"", "has space", "a|b", "../escape", "way/out", strings.Repeat("x", 33)}
	for _, name := range bad {
		if _, err := rs.Ensure(name); err != ErrBadRoomName {
			t.Errorf("Ensure(%q): expected ErrBadRoomName, got %v", name, err)
		}
	}
}

func TestRoomStoreTableFull(t *testing.T) {
	rs := NewRoomStore(t.TempDir(), 2)

	rs.Ensure("one")
	rs.Ensure("two")

	if _, err := rs.Ensure("three"); err != ErrRoomTableFull {
		t.Fatalf("expected ErrRoomTableFull, got %v", err)
	}
	// Known rooms still resolve when the table is full.
	if _, err := rs.Ensure("one"); err != nil {
		t.Fatalf("existing room should still resolve: %v", err)
	}
}

func TestRoomStoreHistoryRoundTrip(t *testing.T) {
	rs := NewRoomStore(t.TempDir(), 8)
	defer rs.CloseAll()

	lines := []string{
		"[dev] alice: hello",
		"[dev] bob: pipes | are | fine here",
		"[dev] server: a new user has joined",
	}
	for _, line := range lines {
		if err := rs.Append("dev", line); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	data, ok, err := rs.History("dev")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if !ok {
		t.Fatal("expected history to exist")
	}

	want := strings.Join(lines, "\n") + "\n"
	if string(data) != want {
		t.Errorf("history not byte-identical:\ngot:  %q\nwant: %q", data, want)
	}
}

func TestRoomStoreHistoryMissingIsNotAnError(t *testing.T) {
	rs := NewRoomStore(t.TempDir(), 8)

	// Known room, but nothing was ever logged to it.
	rs.Ensure("quiet")

	data, ok, err := rs.History("quiet")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if ok || data != nil {
		t.Error("expected ok=false for a room with no log")
	}

	if _, _, err := rs.History("../escape"); err != ErrBadRoomName {
		t.Errorf("expected ErrBadRoomName for hostile name, got %v", err)
	}
}

func TestRoomStoreAppendSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	rs := NewRoomStore(dir, 8)
	if err := rs.Append("dev", "[dev] alice: before restart"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	rs.CloseAll()

	// A fresh store over the same directory appends, not truncates.
	rs2 := NewRoomStore(dir, 8)
	defer rs2.CloseAll()
	if err := rs2.Append("dev", "[dev] alice: after restart"); err != nil {
		t.Fatalf("Append after reopen failed: %v", err)
	}

	data, ok, err := rs2.History("dev")
	if err != nil || !ok {
		t.Fatalf("History failed: ok=%v err=%v", ok, err)
	}
	want := "[dev] alice: before restart\n[dev] alice: after restart\n"
	if string(data) != want {
		t.Errorf("expected both runs in history, got %q", data)
	}
}
