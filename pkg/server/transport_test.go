package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/crypto/ssh"
)

func TestSSHTransportSpeaksLineProtocol(t *testing.T) {
	config := DefaultConfig()
	config.SSHPort = 0 // random port
	config.SSHHostKeyPath = filepath.Join(t.TempDir(), "host_key")

	srv, _, _ := startTestServer(t, config)

	clientConfig := &ssh.ClientConfig{
		User:            "anonymous",
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	}

	client, err := ssh.Dial("tcp", srv.sshListener.Addr().String(), clientConfig)
	if err != nil {
		t.Fatalf("SSH dial failed: %v", err)
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		t.Fatalf("SSH session failed: %v", err)
	}
	defer session.Close()

	stdin, err := session.StdinPipe()
	if err != nil {
		t.Fatal(err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		t.Fatal(err)
	}
	if err := session.Shell(); err != nil {
		t.Fatalf("SSH shell request failed: %v", err)
	}

	reader := bufio.NewReader(stdout)
	expect := func(want string) {
		t.Helper()
		deadline := time.Now().Add(3 * time.Second)
		for time.Now().Before(deadline) {
			line, err := reader.ReadString('\n')
			if strings.Contains(line, want) {
				return
			}
			if err != nil {
				t.Fatalf("SSH stream ended before %q: %v", want, err)
			}
		}
		t.Fatalf("never saw %q over SSH", want)
	}

	expect("Welcome to MultiChat!")
	fmt.Fprintf(stdin, "/nick sshuser\n")
	expect("Welcome sshuser to lobby")
	fmt.Fprintf(stdin, "hello from ssh\n")
	expect("[lobby] sshuser: hello from ssh")
}

func TestSSHHostKeyPersistsAcrossRestarts(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "host_key")

	config := DefaultConfig()
	config.SSHHostKeyPath = keyPath
	srv := NewServer(config, "")

	first, err := srv.loadOrGenerateHostKey()
	if err != nil {
		t.Fatalf("first key load failed: %v", err)
	}

	second, err := srv.loadOrGenerateHostKey()
	if err != nil {
		t.Fatalf("second key load failed: %v", err)
	}

	if string(first.PublicKey().Marshal()) != string(second.PublicKey().Marshal()) {
		t.Error("expected the generated host key to be reloaded, not regenerated")
	}
}

func TestWebSocketTransportSpeaksLineProtocol(t *testing.T) {
	config := DefaultConfig()
	config.HTTPPort = 0 // random port
	srv, _, _ := startTestServer(t, config)

	url := fmt.Sprintf("ws://%s/ws", srv.httpAddr)
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("WebSocket dial failed: %v", err)
	}
	defer ws.Close()

	expect := func(want string) {
		t.Helper()
		deadline := time.Now().Add(3 * time.Second)
		for time.Now().Before(deadline) {
			ws.SetReadDeadline(deadline)
			_, data, err := ws.ReadMessage()
			if err != nil {
				t.Fatalf("WebSocket read failed before %q: %v", want, err)
			}
			if strings.Contains(string(data), want) {
				return
			}
		}
		t.Fatalf("never saw %q over WebSocket", want)
	}

	expect("Welcome to MultiChat!")

	ws.WriteMessage(websocket.TextMessage, []byte("/nick webuser\n"))
	expect("Welcome webuser to lobby")

	ws.WriteMessage(websocket.TextMessage, []byte("hello from the browser\n"))
	expect("[lobby] webuser: hello from the browser")
}

func TestHealthEndpoint(t *testing.T) {
	config := DefaultConfig()
	config.HTTPPort = 0
	srv, addr, _ := startTestServer(t, config)

	client := connectClient(t, addr)
	client.expectLine("Welcome to MultiChat!")

	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", srv.httpAddr))
	if err != nil {
		t.Fatalf("healthz request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var health struct {
		Status         string `json:"status"`
		ActiveSessions int    `json:"active_sessions"`
		MaxSessions    int    `json:"max_sessions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("failed to decode health JSON: %v", err)
	}

	if health.Status != "healthy" {
		t.Errorf("expected healthy, got %q", health.Status)
	}
	if health.ActiveSessions != 1 {
		t.Errorf("expected 1 active session, got %d", health.ActiveSessions)
	}
	if health.MaxSessions != DefaultConfig().MaxClients {
		t.Errorf("expected max sessions %d, got %d", DefaultConfig().MaxClients, health.MaxSessions)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	config := DefaultConfig()
	config.HTTPPort = 0
	srv, addr, _ := startTestServer(t, config)

	client := connectClient(t, addr)
	client.expectLine("Welcome to MultiChat!")
	client.send("/nick alice")
	client.expectLine("Welcome alice to lobby")

	resp, err := http.Get(fmt.Sprintf("http://%s/metrics", srv.httpAddr))
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	defer resp.Body.Close()

	var body strings.Builder
	buf := make([]byte, 64*1024)
	for {
		n, err := resp.Body.Read(buf)
		body.Write(buf[:n])
		if err != nil {
			break
		}
	}

	for _, metric := range []string{
		"multichat_active_sessions",
		"multichat_sessions_created_total",
		"multichat_commands_received_total",
	} {
		if !strings.Contains(body.String(), metric) {
			t.Errorf("expected metric %s in /metrics output", metric)
		}
	}
}
