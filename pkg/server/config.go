package server

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ServerConfig holds the resolved runtime configuration.
type ServerConfig struct {
	TCPPort          int
	SSHPort          int
	HTTPPort         int
	SSHHostKeyPath   string
	LogDir           string
	AdminPassword    string
	FilterCommand    string
	MaxClients       int
	MaxRooms         int
	MaxMessageLength int
}

// DefaultConfig returns default server configuration.
func DefaultConfig() ServerConfig {
	return ServerConfig{
		TCPPort:          12345,
		SSHPort:          12346,
		HTTPPort:         12380,
		SSHHostKeyPath:   "~/.multichat/ssh_host_key",
		LogDir:           "logs",
		AdminPassword:    "admin123",
		FilterCommand:    "",
		MaxClients:       128,
		MaxRooms:         128,
		MaxMessageLength: 4096,
	}
}

// TOMLConfig represents the structure of the server config file.
type TOMLConfig struct {
	Server ServerSection `toml:"server"`
	Limits LimitsSection `toml:"limits"`
	Admin  AdminSection  `toml:"admin"`
	Filter FilterSection `toml:"filter"`
}

type ServerSection struct {
	TCPPort    int    `toml:"tcp_port"`
	SSHPort    int    `toml:"ssh_port"`
	HTTPPort   int    `toml:"http_port"`
	SSHHostKey string `toml:"ssh_host_key"`
	LogDir     string `toml:"log_dir"`
}

type LimitsSection struct {
	MaxClients       int `toml:"max_clients"`
	MaxRooms         int `toml:"max_rooms"`
	MaxMessageLength int `toml:"max_message_length"`
}

type AdminSection struct {
	Password string `toml:"password"`
}

type FilterSection struct {
	Command string `toml:"command"`
}

// DefaultTOMLConfig returns the default TOML configuration.
func DefaultTOMLConfig() TOMLConfig {
	def := DefaultConfig()
	return TOMLConfig{
		Server: ServerSection{
			TCPPort:    def.TCPPort,
			SSHPort:    def.SSHPort,
			HTTPPort:   def.HTTPPort,
			SSHHostKey: def.SSHHostKeyPath,
			LogDir:     def.LogDir,
		},
		Limits: LimitsSection{
			MaxClients:       def.MaxClients,
			MaxRooms:         def.MaxRooms,
			MaxMessageLength: def.MaxMessageLength,
		},
		Admin: AdminSection{
			Password: def.AdminPassword,
		},
		Filter: FilterSection{
			Command: def.FilterCommand,
		},
	}
}

// LoadConfig loads configuration from a TOML file, creating a default
// file if none exists yet.
func LoadConfig(path string) (TOMLConfig, error) {
	expanded, err := expandHome(path)
	if err != nil {
		return TOMLConfig{}, err
	}

	if _, err := os.Stat(expanded); os.IsNotExist(err) {
		config := DefaultTOMLConfig()
		if err := writeDefaultConfig(expanded, config); err != nil {
			// Could not write (permissions, read-only fs); still run
			// with defaults.
			return config, nil
		}
		return config, nil
	}

	var config TOMLConfig
	if _, err := toml.DecodeFile(expanded, &config); err != nil {
		return TOMLConfig{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// writeDefaultConfig writes the default config to a file.
func writeDefaultConfig(path string, config TOMLConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	header := `# MultiChat Server Configuration
# This file was auto-generated with default values
# Edit as needed and restart the server for changes to take effect

`
	if _, err := f.WriteString(header); err != nil {
		return err
	}

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// ToServerConfig converts TOMLConfig to ServerConfig. The admin secret
// can additionally be overridden via MULTICHAT_ADMIN_PASSWORD so it
// never has to live in the config file.
func (c *TOMLConfig) ToServerConfig() ServerConfig {
	cfg := DefaultConfig()

	if c.Server.TCPPort != 0 {
		cfg.TCPPort = c.Server.TCPPort
	}
	// SSH and HTTP may be deliberately disabled with negative values.
	if c.Server.SSHPort != 0 {
		cfg.SSHPort = c.Server.SSHPort
	}
	if c.Server.HTTPPort != 0 {
		cfg.HTTPPort = c.Server.HTTPPort
	}
	if strings.TrimSpace(c.Server.SSHHostKey) != "" {
		cfg.SSHHostKeyPath = c.Server.SSHHostKey
	}
	if strings.TrimSpace(c.Server.LogDir) != "" {
		cfg.LogDir = c.Server.LogDir
	}
	if c.Limits.MaxClients != 0 {
		cfg.MaxClients = c.Limits.MaxClients
	}
	if c.Limits.MaxRooms != 0 {
		cfg.MaxRooms = c.Limits.MaxRooms
	}
	if c.Limits.MaxMessageLength != 0 {
		cfg.MaxMessageLength = c.Limits.MaxMessageLength
	}
	if c.Admin.Password != "" {
		cfg.AdminPassword = c.Admin.Password
	}
	if c.Filter.Command != "" {
		cfg.FilterCommand = c.Filter.Command
	}

	if env := os.Getenv("MULTICHAT_ADMIN_PASSWORD"); env != "" {
		cfg.AdminPassword = env
	}

	return cfg
}

// expandHome expands a leading ~/ in a path.
func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, path[2:]), nil
}
