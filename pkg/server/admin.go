package server

import (
	"crypto/subtle"
	"fmt"

	"github.com/aeolun/multichat/pkg/protocol"
)

// handleAdmin authenticates and executes a privileged action. A correct
// secret grants the admin role to the requesting session for its whole
// lifetime, even when no action follows; the grant is what routes
// future appeals to this session.
func (s *Server) handleAdmin(sess *Session, cmd protocol.Command) {
	payload, ok := protocol.ParseAdminPayload(cmd.Text)
	if !ok {
		sess.Sendf("Admin malformed")
		return
	}

	if subtle.ConstantTimeCompare([]byte(payload.Password), []byte(s.config.AdminPassword)) != 1 {
		sess.Sendf("Admin auth failed")
		s.metrics.RecordAdminAuthFailure()
		errorLog.Printf("Session %d: admin auth failure", sess.ID)
		return
	}

	sess.IsAdmin = true

	if payload.Action == "" {
		sess.Sendf("Admin: no action")
		return
	}

	s.metrics.RecordModerationAction(payload.Action)

	switch payload.Action {
	case "KICK":
		s.adminKick(sess, payload.Args)
	case "MUTE":
		s.adminSetMuted(sess, payload.Args, true)
	case "UNMUTE":
		s.adminSetMuted(sess, payload.Args, false)
	case "BROADCAST":
		s.broadcast(GlobalRoom, "admin", payload.Args)
	case "ROOMS":
		s.adminRooms(sess)
	case "USERS":
		s.adminUsers(sess)
	default:
		sess.Sendf(fmt.Sprintf("Unknown admin action: %s", payload.Action))
	}
}

// adminKick disconnects the named user and frees their slot.
func (s *Server) adminKick(sess *Session, target string) {
	if target == "" {
		sess.Sendf("KICK requires username")
		return
	}
	victim, ok := s.registry.FindByName(target)
	if !ok {
		sess.Sendf("User not found")
		return
	}
	victim.Sendf("You have been kicked by admin")
	s.release(victim)
	debugLog.Printf("Session %d: kicked %q (slot %d)", sess.ID, target, victim.ID)
}

// adminSetMuted flips the named user's mute flag and notifies them.
func (s *Server) adminSetMuted(sess *Session, target string, muted bool) {
	if target == "" {
		if muted {
			sess.Sendf("MUTE requires username")
		} else {
			sess.Sendf("UNMUTE requires username")
		}
		return
	}
	victim, ok := s.registry.FindByName(target)
	if !ok {
		sess.Sendf("User not found")
		return
	}
	victim.Muted = muted
	if muted {
		victim.Sendf("You are muted by admin")
	} else {
		victim.Sendf("You are unmuted by admin")
	}
}

// adminRooms lists the room directory with a count header.
func (s *Server) adminRooms(sess *Session) {
	names := s.rooms.List()
	if len(names) == 0 {
		sess.Sendf("No rooms")
		return
	}
	sess.Sendf(fmt.Sprintf("Rooms (%d):", len(names)))
	for _, name := range names {
		sess.Sendf(fmt.Sprintf(" - %s", name))
	}
}

// adminUsers lists every connected user and their current room.
func (s *Server) adminUsers(sess *Session) {
	all := s.registry.All()
	sess.Sendf(fmt.Sprintf("Active users: %d", len(all)))
	for _, user := range all {
		sess.Sendf(fmt.Sprintf(" - %s (room: %s)", user.Name, user.Room))
	}
}
