package server

import (
	"errors"
	"fmt"

	"github.com/aeolun/multichat/pkg/protocol"
)

// dispatch executes one control record against the shared state. Runs
// on the broker goroutine only.
func (s *Server) dispatch(sess *Session, cmd protocol.Command) {
	if sess == nil || !sess.Connected {
		// Stale record from a worker whose session was already
		// released (kicked mid-flight, say). Drop it.
		return
	}

	s.metrics.RecordCommand(string(cmd.Kind))
	debugLog.Printf("Session %d: %s", sess.ID, cmd.Kind)

	switch cmd.Kind {
	case protocol.KindJoin:
		s.handleJoin(sess, cmd)
	case protocol.KindMsg:
		s.handleMsg(sess, cmd)
	case protocol.KindPM:
		s.handlePM(sess, cmd)
	case protocol.KindAppeal:
		s.handleAppeal(sess, cmd)
	case protocol.KindHistory:
		s.handleHistory(sess, cmd)
	case protocol.KindRooms:
		s.handleRooms(sess)
	case protocol.KindQuit:
		s.handleQuit(sess)
	case protocol.KindAdmin:
		s.handleAdmin(sess, cmd)
	default:
		sess.Sendf(fmt.Sprintf("Unknown command: %s", cmd.Kind))
	}
}

// handleJoin updates the session's name and room. Both /nick and /join
// arrive as JOIN records; last write wins.
func (s *Server) handleJoin(sess *Session, cmd protocol.Command) {
	if _, err := s.rooms.Ensure(cmd.Room); err != nil {
		if errors.Is(err, ErrRoomTableFull) {
			sess.Sendf("Room table full")
		} else {
			sess.Sendf("Invalid room name")
		}
		return
	}

	sess.Name = cmd.Name
	sess.Room = cmd.Room
	sess.Sendf(fmt.Sprintf("Welcome %s to %s", cmd.Name, cmd.Room))
	s.broadcast(cmd.Room, "server", "a new user has joined")
}

// handleMsg routes a room message, or bounces it for muted senders.
func (s *Server) handleMsg(sess *Session, cmd protocol.Command) {
	if sess.Muted {
		sess.Sendf("You are muted.")
		return
	}
	s.broadcast(cmd.Room, cmd.Name, cmd.Text)
}

// handlePM delivers a private message to the first connected session
// with the target name.
func (s *Server) handlePM(sess *Session, cmd protocol.Command) {
	target, ok := s.registry.FindByName(cmd.Target)
	if !ok {
		sess.Sendf(fmt.Sprintf("User %s not found", cmd.Target))
		return
	}
	cleaned := s.sanitizer.Sanitize(cmd.Text)
	target.Sendf(fmt.Sprintf("[PM] %s -> you: %s", cmd.Name, cleaned))
	sess.Sendf(fmt.Sprintf("PM sent to %s", cmd.Target))
}

// handleAppeal forwards an escalation to every admin session, deduping
// identical repeats from the same sender.
func (s *Server) handleAppeal(sess *Session, cmd protocol.Command) {
	if sess.LastAppeal != "" && sess.LastAppeal == cmd.Text {
		sess.Sendf("Your appeal was already sent to admins recently.")
		s.metrics.RecordAppealDeduped()
		return
	}
	sess.LastAppeal = cmd.Text

	sent := 0
	for _, admin := range s.registry.All() {
		if admin.IsAdmin {
			admin.Sendf(fmt.Sprintf("[APPEAL] %s: %s", cmd.Name, cmd.Text))
			sent++
			debugLog.Printf("Forwarded appeal from %q to admin slot %d (user=%q)", cmd.Name, admin.ID, admin.Name)
		}
	}

	if sent == 0 {
		sess.Sendf("No admins currently online. Try again later.")
		return
	}
	s.metrics.RecordAppealForwarded()
	sess.Sendf(fmt.Sprintf("Your appeal was sent to %d admin(s).", sent))
}

// handleHistory streams the room log verbatim to the requester.
func (s *Server) handleHistory(sess *Session, cmd protocol.Command) {
	data, ok, err := s.rooms.History(cmd.Room)
	if err != nil || !ok {
		if err != nil {
			errorLog.Printf("Session %d: history read for %q failed: %v", sess.ID, cmd.Room, err)
		}
		sess.Sendf(fmt.Sprintf("No history for %s", cmd.Room))
		return
	}
	sess.Send(string(data))
}

// handleRooms lists all known room names.
func (s *Server) handleRooms(sess *Session) {
	names := s.rooms.List()
	if len(names) == 0 {
		sess.Sendf("No rooms")
		return
	}
	for _, name := range names {
		sess.Sendf(name)
	}
}

// handleQuit says goodbye and frees the slot.
func (s *Server) handleQuit(sess *Session) {
	sess.Sendf("Goodbye")
	s.release(sess)
}

// broadcast sanitizes, logs, and fans out one message. Messages to the
// reserved global room reach every connected session; otherwise only
// sessions currently in the room.
func (s *Server) broadcast(room, from, text string) {
	cleaned := s.sanitizer.Sanitize(text)
	line := fmt.Sprintf("[%s] %s: %s", room, from, cleaned)

	if err := s.rooms.Append(room, line); err != nil {
		errorLog.Printf("Failed to log message for room %q: %v", room, err)
	}

	delivered := 0
	for _, sess := range s.registry.All() {
		if room == GlobalRoom || sess.Room == room {
			sess.Sendf(line)
			delivered++
		}
	}
	s.metrics.RecordBroadcast(delivered)
}
