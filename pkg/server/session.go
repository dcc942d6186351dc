package server

import (
	"errors"
	"io"
	"sync/atomic"
)

// outboundBuffer is the per-session queue of lines waiting to be
// relayed to the client socket. The broker never blocks on a slow
// client; if the queue is full the line is dropped and the drop logged.
const outboundBuffer = 256

// Session is the broker-side state for one connected client. All
// fields except the channel plumbing are owned and mutated exclusively
// by the broker goroutine; workers only touch the stream and the
// outbound channel.
type Session struct {
	// ID is the slot index. Stable for the life of the connection.
	ID int

	stream   io.ReadWriteCloser
	remote   string
	outbound chan string

	// Broker-owned state.
	Name       string
	Room       string
	Connected  bool
	Muted      bool
	IsAdmin    bool
	LastAppeal string
}

// Send queues one chunk of output for the client, verbatim. Reports
// whether the chunk was accepted (false when the session is gone or
// the client is too slow to keep up).
func (sess *Session) Send(chunk string) bool {
	if !sess.Connected {
		return false
	}
	select {
	case sess.outbound <- chunk:
		return true
	default:
		debugLog.Printf("Session %d: outbound queue full, dropping %d bytes", sess.ID, len(chunk))
		return false
	}
}

// Sendf is Send with the line terminator appended.
func (sess *Session) Sendf(line string) bool {
	return sess.Send(line + "\n")
}

// ErrServerFull is returned by Allocate when every slot is taken.
var ErrServerFull = errors.New("server full")

// Registry is the fixed-capacity session slot table. It is owned by
// the broker goroutine; the only cross-goroutine access is the atomic
// connected counter used by metrics and health reporting.
type Registry struct {
	slots     []*Session
	connected atomic.Int64
}

// NewRegistry creates a registry with the given slot capacity.
func NewRegistry(capacity int) *Registry {
	return &Registry{
		slots: make([]*Session, capacity),
	}
}

// Allocate claims the first free slot for a new connection. The new
// session starts unnamed, in the lobby, unmuted and unprivileged.
func (r *Registry) Allocate(stream io.ReadWriteCloser, remote string) (*Session, error) {
	for i, sess := range r.slots {
		if sess != nil {
			continue
		}
		fresh := &Session{
			ID:        i,
			stream:    stream,
			remote:    remote,
			outbound:  make(chan string, outboundBuffer),
			Name:      "unnamed",
			Room:      "lobby",
			Connected: true,
		}
		r.slots[i] = fresh
		r.connected.Add(1)
		return fresh, nil
	}
	return nil, ErrServerFull
}

// Release frees a session's slot and closes its outbound channel,
// which in turn makes the write loop close the client stream.
// Idempotent: releasing twice (quit racing a kick, say) is a no-op the
// second time.
func (r *Registry) Release(sess *Session) {
	if sess == nil || !sess.Connected {
		return
	}
	sess.Connected = false
	close(sess.outbound)
	if r.slots[sess.ID] == sess {
		r.slots[sess.ID] = nil
	}
	r.connected.Add(-1)
}

// FindByName returns the first connected session with the given display
// name. Lookup is linear, case-sensitive, exact.
func (r *Registry) FindByName(name string) (*Session, bool) {
	for _, sess := range r.slots {
		if sess != nil && sess.Connected && sess.Name == name {
			return sess, true
		}
	}
	return nil, false
}

// All returns the connected sessions in slot order.
func (r *Registry) All() []*Session {
	out := make([]*Session, 0, len(r.slots))
	for _, sess := range r.slots {
		if sess != nil && sess.Connected {
			out = append(out, sess)
		}
	}
	return out
}

// Count returns the number of connected sessions. Safe from any
// goroutine.
func (r *Registry) Count() int {
	return int(r.connected.Load())
}

// Capacity returns the slot table size.
func (r *Registry) Capacity() int {
	return len(r.slots)
}
