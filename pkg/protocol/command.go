// Package protocol defines the control-plane records exchanged between
// session workers and the broker. Records are newline-terminated,
// pipe-delimited text: the tag word, then fixed fields, then (for some
// records) a trailing free-text field that may itself contain pipes.
package protocol

import (
	"fmt"
	"strings"
)

// Kind identifies a control-plane record type.
type Kind string

const (
	KindJoin    Kind = "JOIN"
	KindMsg     Kind = "MSG"
	KindPM      Kind = "PM"
	KindAppeal  Kind = "APPEAL"
	KindHistory Kind = "HISTORY"
	KindRooms   Kind = "ROOMS"
	KindQuit    Kind = "QUIT"
	KindAdmin   Kind = "ADMIN"
)

// Command is one parsed control-plane record.
//
// Field usage by kind:
//
//	JOIN    Name, Room
//	MSG     Name, Room, Text
//	PM      Name (sender), Target, Text
//	APPEAL  Name (sender), Text
//	HISTORY Room
//	ROOMS   -
//	QUIT    -
//	ADMIN   Name, Text (raw payload, parsed separately by the broker)
type Command struct {
	Kind   Kind
	Name   string
	Room   string
	Target string
	Text   string
}

// ParseError describes a malformed control record.
type ParseError struct {
	Record string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed %s record: %s", e.Record, e.Reason)
}

// Parse decodes one control-plane line (without trailing newline).
//
// The trailing field of MSG, PM, APPEAL and ADMIN is free text: it is
// split off with SplitN so embedded pipes survive. Pipes in name, room
// and target fields are not representable; workers reject them before a
// record is ever built (see ValidName).
func Parse(line string) (Command, error) {
	tag, rest, _ := strings.Cut(line, "|")

	switch Kind(tag) {
	case KindJoin:
		parts := strings.SplitN(rest, "|", 2)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return Command{}, &ParseError{Record: tag, Reason: "want JOIN|name|room"}
		}
		return Command{Kind: KindJoin, Name: parts[0], Room: parts[1]}, nil

	case KindMsg:
		parts := strings.SplitN(rest, "|", 3)
		if len(parts) < 3 || parts[0] == "" || parts[1] == "" {
			return Command{}, &ParseError{Record: tag, Reason: "want MSG|name|room|text"}
		}
		return Command{Kind: KindMsg, Name: parts[0], Room: parts[1], Text: parts[2]}, nil

	case KindPM:
		parts := strings.SplitN(rest, "|", 3)
		if len(parts) < 3 || parts[0] == "" || parts[1] == "" {
			return Command{}, &ParseError{Record: tag, Reason: "want PM|from|to|text"}
		}
		return Command{Kind: KindPM, Name: parts[0], Target: parts[1], Text: parts[2]}, nil

	case KindAppeal:
		parts := strings.SplitN(rest, "|", 2)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return Command{}, &ParseError{Record: tag, Reason: "want APPEAL|from|text"}
		}
		return Command{Kind: KindAppeal, Name: parts[0], Text: parts[1]}, nil

	case KindHistory:
		if rest == "" {
			return Command{}, &ParseError{Record: tag, Reason: "want HISTORY|room"}
		}
		return Command{Kind: KindHistory, Room: rest}, nil

	case KindRooms:
		return Command{Kind: KindRooms}, nil

	case KindQuit:
		return Command{Kind: KindQuit}, nil

	case KindAdmin:
		parts := strings.SplitN(rest, "|", 2)
		if len(parts) < 2 || parts[0] == "" {
			return Command{}, &ParseError{Record: tag, Reason: "want ADMIN|name|payload"}
		}
		return Command{Kind: KindAdmin, Name: parts[0], Text: parts[1]}, nil

	default:
		word := tag
		if word == "" {
			word = "(empty)"
		}
		return Command{}, &ParseError{Record: word, Reason: "unknown record tag"}
	}
}

// Encode renders the command as one wire line (without newline).
func (c Command) Encode() string {
	switch c.Kind {
	case KindJoin:
		return fmt.Sprintf("JOIN|%s|%s", c.Name, c.Room)
	case KindMsg:
		return fmt.Sprintf("MSG|%s|%s|%s", c.Name, c.Room, c.Text)
	case KindPM:
		return fmt.Sprintf("PM|%s|%s|%s", c.Name, c.Target, c.Text)
	case KindAppeal:
		return fmt.Sprintf("APPEAL|%s|%s", c.Name, c.Text)
	case KindHistory:
		return fmt.Sprintf("HISTORY|%s", c.Room)
	case KindRooms:
		return "ROOMS|"
	case KindQuit:
		return "QUIT|"
	case KindAdmin:
		return fmt.Sprintf("ADMIN|%s|%s", c.Name, c.Text)
	default:
		return string(c.Kind)
	}
}
