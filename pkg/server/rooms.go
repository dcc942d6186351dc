package server

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/aeolun/multichat/pkg/protocol"
)

// GlobalRoom is reserved for admin broadcasts: messages sent to it fan
// out to every connected session regardless of room membership.
const GlobalRoom = "global"

var (
	// ErrRoomTableFull is returned when the room directory is at
	// capacity.
	ErrRoomTableFull = errors.New("room table full")
	// ErrBadRoomName is returned for names that could corrupt the wire
	// protocol or escape the log directory.
	ErrBadRoomName = errors.New("invalid room name")
)

// Room is one named message scope with its lazily created append log.
type Room struct {
	Name string
	log  *os.File
}

// RoomStore owns the room directory and the per-room append-only log
// files under dir. Rooms are created on first reference and never
// deleted during a run. The store is owned by the broker goroutine;
// the only cross-goroutine access is the atomic room counter.
type RoomStore struct {
	dir   string
	max   int
	names []string
	rooms map[string]*Room
	count atomic.Int64
}

// NewRoomStore creates a store writing logs beneath dir, holding at
// most max rooms.
func NewRoomStore(dir string, max int) *RoomStore {
	return &RoomStore{
		dir:   dir,
		max:   max,
		rooms: make(map[string]*Room),
	}
}

// Ensure registers a room if it is not yet known. Room names are
// validated here even though workers validate first: nothing
// path-hostile may ever reach the filesystem.
func (rs *RoomStore) Ensure(name string) (*Room, error) {
	if room, ok := rs.rooms[name]; ok {
		return room, nil
	}
	if !protocol.ValidName(name) {
		return nil, ErrBadRoomName
	}
	if len(rs.names) >= rs.max {
		return nil, ErrRoomTableFull
	}
	room := &Room{Name: name}
	rs.rooms[name] = room
	rs.names = append(rs.names, name)
	rs.count.Add(1)
	return room, nil
}

// Append writes one line to the room's log, creating the log directory
// and file on first write.
func (rs *RoomStore) Append(name, line string) error {
	room, err := rs.Ensure(name)
	if err != nil {
		return err
	}
	if room.log == nil {
		if err := os.MkdirAll(rs.dir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(rs.logPath(name), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open room log: %w", err)
		}
		room.log = f
	}
	_, err = room.log.WriteString(line + "\n")
	return err
}

// History returns the room's full log, byte for byte. ok=false means
// the room has no log yet; that is a report, not an error.
func (rs *RoomStore) History(name string) ([]byte, bool, error) {
	if !protocol.ValidName(name) {
		return nil, false, ErrBadRoomName
	}
	data, err := os.ReadFile(rs.logPath(name))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// List returns all known room names in creation order.
func (rs *RoomStore) List() []string {
	out := make([]string, len(rs.names))
	copy(out, rs.names)
	return out
}

// Count returns the number of known rooms. Safe from any goroutine.
func (rs *RoomStore) Count() int {
	return int(rs.count.Load())
}

// CloseAll closes every open log handle.
func (rs *RoomStore) CloseAll() {
	for _, room := range rs.rooms {
		if room.log != nil {
			room.log.Close()
			room.log = nil
		}
	}
}

func (rs *RoomStore) logPath(name string) string {
	return filepath.Join(rs.dir, name+".log")
}
