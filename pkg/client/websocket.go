package client

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/gorilla/websocket"
)

// wsStream adapts a WebSocket connection to the byte-stream interface
// the rest of the client expects. Mirrors the adapter on the server
// side: each Write is one text message, reads drain whole messages
// through a buffer.
type wsStream struct {
	ws      *websocket.Conn
	readBuf bytes.Buffer
	writeMu sync.Mutex
	closed  bool
	closeMu sync.Mutex
}

func dialWebSocket(scheme, hostport string) (io.ReadWriteCloser, error) {
	url := fmt.Sprintf("%s://%s/ws", scheme, hostport)

	dialer := websocket.Dialer{
		HandshakeTimeout: DialTimeout,
	}
	ws, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return &wsStream{ws: ws}, nil
}

func (c *wsStream) Read(b []byte) (int, error) {
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

func (c *wsStream) Close() error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.ws.Close()
}
