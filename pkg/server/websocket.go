package server

import (
	"bytes"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// wsStream adapts a WebSocket connection to the byte-stream interface
// the session pipeline expects, so browser clients speak exactly the
// same line protocol as TCP and SSH clients. Each text message is
// treated as raw bytes of the stream; clients send newline-terminated
// lines just like over TCP.
type wsStream struct {
	ws      *websocket.Conn
	readBuf bytes.Buffer
	readMu  sync.Mutex
	writeMu sync.Mutex
	closed  bool
	closeMu sync.Mutex
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Terminal-style clients connect from anywhere.
		return true
	},
}

// handleWebSocket upgrades the HTTP connection and hands the stream to
// the broker for admission like any other transport.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		errorLog.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	debugLog.Printf("WebSocket connection from %s", ws.RemoteAddr())
	s.offerConn(&wsStream{ws: ws}, ws.RemoteAddr().String())
}

// Read implements io.Reader.
func (c *wsStream) Read(b []byte) (int, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	if c.readBuf.Len() > 0 {
		return c.readBuf.Read(b)
	}

	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return 0, err
	}

	c.readBuf.Write(data)
	return c.readBuf.Read(b)
}

// Write implements io.Writer. Each call becomes one text message,
// which is fine because the server always writes whole lines or whole
// history chunks.
func (c *wsStream) Write(b []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.closeMu.Lock()
	if c.closed {
		c.closeMu.Unlock()
		return 0, net.ErrClosed
	}
	c.closeMu.Unlock()

	if err := c.ws.WriteMessage(websocket.TextMessage, b); err != nil {
		return 0, err
	}
	return len(b), nil
}

// Close implements io.Closer.
func (c *wsStream) Close() error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.ws.Close()
}
