package protocol

import (
	"regexp"
	"strings"
)

// AdminPayload is the parsed payload of an ADMIN record.
//
// Action is empty when the client authenticated without requesting an
// action; that is still a valid payload (auth alone grants the role).
type AdminPayload struct {
	Password string
	Action   string
	Args     string
}

// ParseAdminPayload decodes the ADMIN payload. Two wire shapes are
// accepted and must stay accepted: the admin console sends the
// pipe-delimited form
//
//	password|ACTION|args
//
// while a user typing /admin by hand produces the hybrid form
//
//	password ACTION args
//
// with everything after the password space-separated. Both parse to the
// same tuple. Returns ok=false only when the password field is missing.
func ParseAdminPayload(rest string) (AdminPayload, bool) {
	if rest == "" {
		return AdminPayload{}, false
	}

	var p AdminPayload

	if pwd, tail, found := strings.Cut(rest, "|"); found {
		// Pipe form: password|ACTION|args. Args is free text.
		p.Password = pwd
		action, args, _ := strings.Cut(tail, "|")
		p.Action = action
		p.Args = args
	} else {
		// Hybrid form: password [ACTION [args]].
		pwd, tail, _ := strings.Cut(rest, " ")
		p.Password = pwd
		action, args, _ := strings.Cut(tail, " ")
		p.Action = action
		p.Args = args
	}

	if p.Password == "" {
		return AdminPayload{}, false
	}

	// The action word itself may carry space-separated args even in the
	// pipe form (console sends "BROADCAST|hello world" but also
	// tolerates "BROADCAST hello world" inside one field).
	if p.Args == "" {
		if action, args, found := strings.Cut(p.Action, " "); found {
			p.Action = action
			p.Args = args
		}
	}

	p.Action = strings.ToUpper(p.Action)
	return p, true
}

// nameRegex bounds names and room identifiers: pipes would corrupt the
// control-plane records and path separators would escape the log
// directory, so neither is representable.
var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,32}$`)

// ValidName reports whether s is usable as a display name or room name.
func ValidName(s string) bool {
	return nameRegex.MatchString(s)
}
