package client

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"
)

// startFakeServer runs a minimal line server: greets, then echoes every
// line back prefixed with "echo: ".
func startFakeServer(t *testing.T) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				conn.Write([]byte("hello\n"))
				scanner := bufio.NewScanner(conn)
				for scanner.Scan() {
					if scanner.Text() == "/quit" {
						conn.Write([]byte("bye\n"))
						return
					}
					conn.Write([]byte("echo: " + scanner.Text() + "\n"))
				}
			}(conn)
		}
	}()

	return listener.Addr().String()
}

func expectLine(t *testing.T, c *Connection, want string) {
	t.Helper()
	select {
	case line, ok := <-c.Lines():
		if !ok {
			t.Fatalf("lines channel closed before %q", want)
		}
		if line != want {
			t.Fatalf("expected %q, got %q", want, line)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for %q", want)
	}
}

func TestConnectionSendAndReceive(t *testing.T) {
	addr := startFakeServer(t)

	c, err := NewConnection(addr)
	if err != nil {
		t.Fatalf("NewConnection failed: %v", err)
	}
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Close()

	expectLine(t, c, "hello")

	if err := c.Send("ping"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	expectLine(t, c, "echo: ping")

	if err := c.Sendf("/pm %s %s", "bob", "hi"); err != nil {
		t.Fatalf("Sendf failed: %v", err)
	}
	expectLine(t, c, "echo: /pm bob hi")
}

func TestConnectionLinesCloseOnServerDisconnect(t *testing.T) {
	addr := startFakeServer(t)

	c, err := NewConnection("tcp://" + addr)
	if err != nil {
		t.Fatalf("NewConnection failed: %v", err)
	}
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Close()

	expectLine(t, c, "hello")
	c.Send("/quit")
	expectLine(t, c, "bye")

	select {
	case _, ok := <-c.Lines():
		if ok {
			t.Fatal("expected lines channel to close after server hangup")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("lines channel did not close")
	}
}

func TestConnectionErrors(t *testing.T) {
	if _, err := NewConnection("gopher://example.com:70"); err == nil {
		t.Fatal("expected unsupported scheme error")
	}

	c, err := NewConnection("127.0.0.1:1") // nothing listens here
	if err != nil {
		t.Fatalf("NewConnection failed: %v", err)
	}
	if err := c.Connect(); err == nil {
		t.Fatal("expected connection failure")
	}

	if err := c.Send("into the void"); err == nil || !strings.Contains(err.Error(), "not connected") {
		t.Fatalf("expected not connected error, got %v", err)
	}
}

func TestConnectionDoubleConnect(t *testing.T) {
	addr := startFakeServer(t)

	c, err := NewConnection(addr)
	if err != nil {
		t.Fatalf("NewConnection failed: %v", err)
	}
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Close()

	if err := c.Connect(); err == nil {
		t.Fatal("expected second Connect to fail")
	}
}
