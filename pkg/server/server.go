package server

import (
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/aeolun/multichat/pkg/protocol"
	"github.com/aeolun/multichat/pkg/sanitize"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultRoom is where every new session starts.
const DefaultRoom = "lobby"

// greeting is the banner sent to every accepted connection.
const greeting = "Welcome to MultiChat! Use /nick, /join, /pm, /rooms"

// housekeepingInterval bounds how long the broker sleeps without work,
// so shutdown and stats stay responsive even on an idle server.
const housekeepingInterval = 300 * time.Millisecond

// request is one control record submitted by a session worker.
type request struct {
	sess *Session
	cmd  protocol.Command
}

// acceptedConn is a freshly accepted client stream waiting for the
// broker to admit it.
type acceptedConn struct {
	stream io.ReadWriteCloser
	remote string
}

// Server is the MultiChat server: one broker goroutine owning all
// shared chat state (registry, rooms, admin grants), one worker pair
// per connected session, and TCP/SSH/WebSocket listeners all feeding
// the same session pipeline.
type Server struct {
	config     ServerConfig
	configPath string

	registry  *Registry
	rooms     *RoomStore
	sanitizer sanitize.Sanitizer

	metrics  *Metrics
	gatherer prometheus.Gatherer

	listener    net.Listener
	sshListener net.Listener
	httpCloser  io.Closer
	httpAddr    string

	conns    chan acceptedConn
	commands chan request

	shutdown   chan struct{}
	brokerDone chan struct{}
	wg         sync.WaitGroup

	startTime time.Time
}

// NewServer creates a new server instance.
func NewServer(config ServerConfig, configPath string) *Server {
	var s sanitize.Sanitizer = sanitize.Passthrough{}
	if config.FilterCommand != "" {
		s = sanitize.NewCommand(config.FilterCommand)
	}

	reg := prometheus.NewRegistry()

	return &Server{
		config:     config,
		configPath: configPath,
		registry:   NewRegistry(config.MaxClients),
		rooms:      NewRoomStore(config.LogDir, config.MaxRooms),
		sanitizer:  s,
		metrics:    NewMetrics(reg),
		gatherer:   reg,
		conns:      make(chan acceptedConn, 16),
		commands:   make(chan request, 256),
		shutdown:   make(chan struct{}),
		brokerDone: make(chan struct{}),
		startTime:  time.Now(),
	}
}

// SetSanitizer replaces the outgoing-message sanitizer. Must be called
// before Start.
func (s *Server) SetSanitizer(sanitizer sanitize.Sanitizer) {
	s.sanitizer = sanitizer
}

// Start starts the broker and all configured listeners.
func (s *Server) Start() error {
	if _, err := s.rooms.Ensure(DefaultRoom); err != nil {
		return fmt.Errorf("failed to seed default room: %w", err)
	}

	addr := fmt.Sprintf(":%d", s.config.TCPPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener
	errorLog.Printf("TCP server listening on %s", listener.Addr())

	if err := s.startSSHServer(); err != nil {
		s.listener.Close()
		return fmt.Errorf("failed to start SSH server: %w", err)
	}

	if err := s.startHTTPServer(); err != nil {
		s.closeListeners()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	s.wg.Add(1)
	go s.acceptLoop()

	go s.brokerLoop()

	return nil
}

// Addr returns the TCP listen address (useful when port 0 was given).
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop gracefully stops the server: every session gets the shutdown
// notice, workers are waited for (no forced timeout), then listeners
// and room logs are closed.
func (s *Server) Stop() error {
	close(s.shutdown)
	<-s.brokerDone

	s.closeListeners()
	s.wg.Wait()
	s.rooms.CloseAll()
	return nil
}

func (s *Server) closeListeners() {
	if s.listener != nil {
		s.listener.Close()
		s.listener = nil
	}
	if s.sshListener != nil {
		s.sshListener.Close()
		s.sshListener = nil
	}
	if s.httpCloser != nil {
		s.httpCloser.Close()
		s.httpCloser = nil
	}
}

// acceptLoop accepts incoming TCP connections and hands them to the
// broker for admission.
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return
			default:
				errorLog.Printf("Accept error: %v", err)
				continue
			}
		}

		if tcpConn, ok := conn.(*net.TCPConn); ok {
			tcpConn.SetNoDelay(true)
		}

		s.offerConn(conn, conn.RemoteAddr().String())
	}
}

// offerConn queues a new client stream for broker admission, closing it
// if the server is shutting down instead.
func (s *Server) offerConn(stream io.ReadWriteCloser, remote string) {
	select {
	case s.conns <- acceptedConn{stream: stream, remote: remote}:
	case <-s.shutdown:
		stream.Close()
	}
}

// submit passes a worker's control record to the broker. Returns false
// during shutdown, when the broker no longer drains the channel.
func (s *Server) submit(sess *Session, cmd protocol.Command) bool {
	select {
	case s.commands <- request{sess: sess, cmd: cmd}:
		return true
	case <-s.shutdown:
		return false
	}
}

// brokerLoop is the single owner of all shared chat state. Every
// mutation of the registry, the room store, and admin grants happens
// here, which is what makes the rest of the server lock-free.
func (s *Server) brokerLoop() {
	defer close(s.brokerDone)

	ticker := time.NewTicker(housekeepingInterval)
	defer ticker.Stop()

	for {
		select {
		case ac := <-s.conns:
			s.admitSession(ac)
		case req := <-s.commands:
			s.dispatch(req.sess, req.cmd)
		case <-ticker.C:
			s.housekeeping()
		case <-s.shutdown:
			s.notifyShutdown()
			return
		}
	}
}

// admitSession allocates a slot for a new connection, or turns it away
// when the table is full.
func (s *Server) admitSession(ac acceptedConn) {
	sess, err := s.registry.Allocate(ac.stream, ac.remote)
	if err != nil {
		io.WriteString(ac.stream, "Server full\n")
		ac.stream.Close()
		s.metrics.RecordSessionRejected()
		errorLog.Printf("Rejected connection from %s: %v", ac.remote, err)
		return
	}

	s.metrics.RecordSessionCreated()
	s.metrics.RecordActiveSessions(s.registry.Count())
	debugLog.Printf("Session %d: new connection from %s", sess.ID, ac.remote)

	sess.Sendf(greeting)
	s.startWorker(sess)
}

// release tears a session down: slot freed, outbound closed (which
// closes the stream via the write loop), metrics updated.
func (s *Server) release(sess *Session) {
	if !sess.Connected {
		return
	}
	s.registry.Release(sess)
	s.metrics.RecordSessionDisconnected()
	s.metrics.RecordActiveSessions(s.registry.Count())
	debugLog.Printf("Session %d: released", sess.ID)
}

// notifyShutdown tells every connected session the server is going
// away and releases them all.
func (s *Server) notifyShutdown() {
	for _, sess := range s.registry.All() {
		sess.Sendf("/server_shutdown")
		s.release(sess)
	}
}

// housekeeping runs on the broker's idle tick.
func (s *Server) housekeeping() {
	s.metrics.RecordKnownRooms(s.rooms.Count())
	debugLog.Printf("Stats: %d clients, %d rooms", s.registry.Count(), s.rooms.Count())
}
