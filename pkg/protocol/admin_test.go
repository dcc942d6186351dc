package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAdminPayload(t *testing.T) {
	tests := []struct {
		name string
		rest string
		want AdminPayload
		ok   bool
	}{
		{
			name: "pipe form with args",
			rest: "secret|KICK|bob",
			want: AdminPayload{Password: "secret", Action: "KICK", Args: "bob"},
			ok:   true,
		},
		{
			name: "hybrid form with args",
			rest: "secret KICK bob",
			want: AdminPayload{Password: "secret", Action: "KICK", Args: "bob"},
			ok:   true,
		},
		{
			name: "pipe form no args",
			rest: "secret|USERS",
			want: AdminPayload{Password: "secret", Action: "USERS"},
			ok:   true,
		},
		{
			name: "hybrid form no args",
			rest: "secret USERS",
			want: AdminPayload{Password: "secret", Action: "USERS"},
			ok:   true,
		},
		{
			name: "password only",
			rest: "secret",
			want: AdminPayload{Password: "secret"},
			ok:   true,
		},
		{
			name: "broadcast keeps spaces in args",
			rest: "secret|BROADCAST|hello everyone out there",
			want: AdminPayload{Password: "secret", Action: "BROADCAST", Args: "hello everyone out there"},
			ok:   true,
		},
		{
			name: "hybrid broadcast keeps spaces in args",
			rest: "secret BROADCAST hello everyone",
			want: AdminPayload{Password: "secret", Action: "BROADCAST", Args: "hello everyone"},
			ok:   true,
		},
		{
			name: "pipe form with spaced action field",
			rest: "secret|BROADCAST server restarting soon",
			want: AdminPayload{Password: "secret", Action: "BROADCAST", Args: "server restarting soon"},
			ok:   true,
		},
		{
			name: "action lowercased on the wire",
			rest: "secret|kick|bob",
			want: AdminPayload{Password: "secret", Action: "KICK", Args: "bob"},
			ok:   true,
		},
		{
			name: "empty payload",
			rest: "",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseAdminPayload(tt.rest)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

// Both wire shapes must decode to the same tuple for every action.
func TestParseAdminPayloadShapesAgree(t *testing.T) {
	cases := []struct{ action, args string }{
		{"KICK", "bob"},
		{"MUTE", "bob"},
		{"UNMUTE", "bob"},
		{"USERS", ""},
		{"ROOMS", ""},
	}

	for _, c := range cases {
		pipe := "pwd|" + c.action
		hybrid := "pwd " + c.action
		if c.args != "" {
			pipe += "|" + c.args
			hybrid += " " + c.args
		}

		fromPipe, ok := ParseAdminPayload(pipe)
		require.True(t, ok)
		fromHybrid, ok := ParseAdminPayload(hybrid)
		require.True(t, ok)

		assert.Equal(t, fromPipe, fromHybrid, "shapes disagree for %s", c.action)
	}
}
