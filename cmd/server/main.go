package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aeolun/multichat/pkg/server"
)

var (
	// Version is set at build time via ldflags
	Version = "dev"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	configPath := flag.String("config", "~/.multichat/config.toml", "Path to config file")
	port := flag.Int("port", 0, "TCP port to listen on (overrides config)")
	sshPort := flag.Int("ssh-port", 0, "SSH port to listen on (overrides config, -1 disables)")
	httpPort := flag.Int("http-port", 0, "HTTP port for metrics/health/websocket (overrides config, -1 disables)")
	logDir := flag.String("log-dir", "", "Directory for room history logs (overrides config)")
	filter := flag.String("filter", "", "Path to profanity filter executable (overrides config)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	version := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *version {
		fmt.Printf("MultiChat Server %s\n", Version)
		os.Exit(0)
	}

	// Load configuration (creates default if not found)
	config, err := server.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Command-line flags override config file
	if *port != 0 {
		config.Server.TCPPort = *port
	}
	if *sshPort != 0 {
		config.Server.SSHPort = *sshPort
	}
	if *httpPort != 0 {
		config.Server.HTTPPort = *httpPort
	}
	if *logDir != "" {
		config.Server.LogDir = *logDir
	}
	if *filter != "" {
		config.Filter.Command = *filter
	}

	serverConfig := config.ToServerConfig()

	srv := server.NewServer(serverConfig, *configPath)

	if *debug {
		srv.EnableDebugLogging()
		log.Printf("Debug logging enabled")
	}

	if err := srv.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Printf("MultiChat server %s started successfully", Version)
	log.Printf("Available connection methods:")
	log.Printf("  - TCP: port %d", serverConfig.TCPPort)
	if serverConfig.SSHPort > 0 {
		log.Printf("  - SSH: port %d (host key: %s)", serverConfig.SSHPort, serverConfig.SSHHostKeyPath)
	}
	if serverConfig.HTTPPort > 0 {
		log.Printf("  - WebSocket: port %d (ws://server:%d/ws)", serverConfig.HTTPPort, serverConfig.HTTPPort)
		log.Printf("Metrics: http://localhost:%d/metrics", serverConfig.HTTPPort)
	}
	log.Printf("Room history: %s/", serverConfig.LogDir)
	if serverConfig.FilterCommand != "" {
		log.Printf("Profanity filter: %s", serverConfig.FilterCommand)
	} else {
		log.Printf("Profanity filter disabled (messages pass through)")
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down server...")
	if err := srv.Stop(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	log.Println("Server stopped")
}
