package server

import (
	"bufio"
	"io"
	"strings"

	"github.com/aeolun/multichat/pkg/protocol"
)

// startWorker spawns the per-session goroutine pair: a read loop that
// turns client lines into control records, and a write loop that
// relays broker output back to the client. Workers never touch shared
// state; everything goes through the broker's command channel.
func (s *Server) startWorker(sess *Session) {
	s.wg.Add(2)
	go s.readLoop(sess)
	go s.writeLoop(sess)
}

// writeLoop drains the session's outbound queue to the client stream,
// verbatim. When the broker releases the session the queue is closed;
// remaining output (the "Goodbye", say) is flushed first, then the
// stream is closed, which also unblocks the read loop.
func (s *Server) writeLoop(sess *Session) {
	defer s.wg.Done()
	defer sess.stream.Close()

	for chunk := range sess.outbound {
		if _, err := io.WriteString(sess.stream, chunk); err != nil {
			debugLog.Printf("Session %d: write failed: %v", sess.ID, err)
			// Keep draining so the broker-side close is the only exit
			// condition; the dead stream just eats the rest.
		}
	}
}

// readLoop reads client lines, applies the slash-command grammar, and
// submits control records to the broker. The worker tracks its own
// idea of the session's name and room so records can be built without
// consulting broker state.
func (s *Server) readLoop(sess *Session) {
	defer s.wg.Done()

	name := "unnamed"
	room := DefaultRoom

	scanner := bufio.NewScanner(sess.stream)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		if !strings.HasPrefix(line, "/") {
			// Plain room message, bounded before it ever reaches the
			// control plane.
			if len(line) > s.config.MaxMessageLength {
				line = line[:s.config.MaxMessageLength]
			}
			s.submit(sess, protocol.Command{Kind: protocol.KindMsg, Name: name, Room: room, Text: line})
			continue
		}

		word, rest, _ := strings.Cut(line, " ")
		switch word {
		case "/nick":
			if !protocol.ValidName(rest) {
				s.replyLocal(sess, "Invalid name. Use letters, digits, - or _ (max 32)")
				continue
			}
			name = rest
			s.submit(sess, protocol.Command{Kind: protocol.KindJoin, Name: name, Room: room})

		case "/join":
			if !protocol.ValidName(rest) {
				s.replyLocal(sess, "Invalid room name. Use letters, digits, - or _ (max 32)")
				continue
			}
			room = rest
			s.submit(sess, protocol.Command{Kind: protocol.KindJoin, Name: name, Room: room})

		case "/rooms":
			s.submit(sess, protocol.Command{Kind: protocol.KindRooms})

		case "/history":
			s.submit(sess, protocol.Command{Kind: protocol.KindHistory, Room: room})

		case "/pm":
			to, msg, found := strings.Cut(rest, " ")
			if !found || to == "" {
				s.replyLocal(sess, "Usage: /pm <user> <msg>")
				continue
			}
			if !protocol.ValidName(to) {
				s.replyLocal(sess, "Usage: /pm <user> <msg>")
				continue
			}
			s.submit(sess, protocol.Command{Kind: protocol.KindPM, Name: name, Target: to, Text: msg})

		case "/appeal":
			if rest == "" {
				s.replyLocal(sess, "Usage: /appeal <msg>")
				continue
			}
			s.submit(sess, protocol.Command{Kind: protocol.KindAppeal, Name: name, Text: rest})

		case "/admin":
			// Forwarded verbatim; the broker applies the dual-format
			// admin grammar.
			s.submit(sess, protocol.Command{Kind: protocol.KindAdmin, Name: name, Text: rest})

		case "/quit":
			s.submit(sess, protocol.Command{Kind: protocol.KindQuit})
			return

		default:
			s.replyLocal(sess, "Unknown command")
		}
	}

	// EOF or transport error: either way the session is done.
	if err := scanner.Err(); err != nil {
		debugLog.Printf("Session %d: read failed: %v", sess.ID, err)
	}
	s.submit(sess, protocol.Command{Kind: protocol.KindQuit})
}

// replyLocal answers a malformed line directly from the worker, without
// involving the broker. Writing to the stream here is safe: concurrent
// Write calls don't interleave within a single call.
func (s *Server) replyLocal(sess *Session, line string) {
	if _, err := io.WriteString(sess.stream, line+"\n"); err != nil {
		debugLog.Printf("Session %d: local reply failed: %v", sess.ID, err)
	}
}
