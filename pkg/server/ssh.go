package server

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
)

// startSSHServer starts the SSH transport on the configured port. SSH
// sessions carry the same line protocol as plain TCP; the draw is
// ubiquitous clients (`ssh -p 12346 chat.example.com`) and transport
// encryption without any client install.
func (s *Server) startSSHServer() error {
	if s.config.SSHPort < 0 {
		debugLog.Printf("SSH server disabled (ssh_port=%d)", s.config.SSHPort)
		return nil
	}

	hostKey, err := s.loadOrGenerateHostKey()
	if err != nil {
		return fmt.Errorf("failed to load host key: %w", err)
	}

	// Anonymous chat: no client auth, same as the TCP listener.
	config := &ssh.ServerConfig{
		NoClientAuth: true,
	}
	config.ServerVersion = "SSH-2.0-MultiChat"
	config.AddHostKey(hostKey)

	addr := fmt.Sprintf(":%d", s.config.SSHPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.sshListener = listener

	errorLog.Printf("SSH server listening on %s", listener.Addr())

	s.wg.Add(1)
	go s.acceptSSHLoop(listener, config)

	return nil
}

// acceptSSHLoop accepts incoming SSH connections.
func (s *Server) acceptSSHLoop(listener net.Listener, config *ssh.ServerConfig) {
	defer s.wg.Done()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return
			default:
				errorLog.Printf("SSH accept error: %v", err)
				continue
			}
		}

		s.wg.Add(1)
		go s.handleSSHConnection(conn, config)
	}
}

// handleSSHConnection runs the handshake and admits each session
// channel as its own chat session.
func (s *Server) handleSSHConnection(conn net.Conn, config *ssh.ServerConfig) {
	defer s.wg.Done()
	defer conn.Close()

	sshConn, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		debugLog.Printf("SSH handshake failed: %v", err)
		return
	}
	defer sshConn.Close()

	go ssh.DiscardRequests(reqs)

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			newChannel.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}

		channel, requests, err := newChannel.Accept()
		if err != nil {
			errorLog.Printf("Could not accept SSH channel: %v", err)
			continue
		}

		go handleSSHChannelRequests(requests)

		debugLog.Printf("SSH session channel from %s", sshConn.RemoteAddr())
		s.offerConn(channel, sshConn.RemoteAddr().String())
	}
}

// handleSSHChannelRequests accepts the terminal-ish requests ssh
// clients send and declines everything else.
func handleSSHChannelRequests(requests <-chan *ssh.Request) {
	for req := range requests {
		switch req.Type {
		case "shell", "pty-req", "env", "window-change":
			if req.WantReply {
				req.Reply(true, nil)
			}
		default:
			if req.WantReply {
				req.Reply(false, nil)
			}
		}
	}
}

// loadOrGenerateHostKey loads the SSH host key, generating and saving
// one on first run.
func (s *Server) loadOrGenerateHostKey() (ssh.Signer, error) {
	keyPath, err := expandHome(s.config.SSHHostKeyPath)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(keyPath) == "" {
		return nil, fmt.Errorf("ssh host key path is empty; set [server].ssh_host_key or remove it to use the default (%s)", DefaultConfig().SSHHostKeyPath)
	}

	keyBytes, err := os.ReadFile(keyPath)
	if err == nil {
		key, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse host key: %w", err)
		}
		debugLog.Printf("Loaded SSH host key from %s", keyPath)
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read host key: %w", err)
	}

	errorLog.Printf("Generating new SSH host key at %s...", keyPath)

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	privateKeyPEM := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	}

	if err := os.MkdirAll(filepath.Dir(keyPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	keyFile, err := os.OpenFile(keyPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create key file: %w", err)
	}
	defer keyFile.Close()

	if err := pem.Encode(keyFile, privateKeyPEM); err != nil {
		return nil, fmt.Errorf("failed to write key: %w", err)
	}

	key, err := ssh.ParsePrivateKey(pem.EncodeToMemory(privateKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("failed to parse generated key: %w", err)
	}

	return key, nil
}
