// ABOUTME: Configuration loading for the charla CLI client
// ABOUTME: Loads TOML config from XDG path with environment variable expansion

package main

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server  ServerConfig  `toml:"server"`
	Logging LoggingConfig `toml:"logging"`
}

type ServerConfig struct {
	URL       string `toml:"url"`
	SocketURL string `toml:"socket_url"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

// defaultConfig is used when no config file exists.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:       "http://localhost:8080",
			SocketURL: "ws://localhost:8080/socket",
		},
		Logging: LoggingConfig{Level: "warn"},
	}
}

// configPath returns the CLI config file path.
// Priority: CHARLA_CLI_CONFIG env var > XDG_CONFIG_HOME/charla/cli.toml > ~/.config/charla/cli.toml
func configPath() string {
	if envPath := os.Getenv("CHARLA_CLI_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "cli.toml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "charla", "cli.toml")
}

// loadConfig reads config from the default path, expanding environment
// variables. A missing file yields the defaults.
func loadConfig() (*Config, error) {
	data, err := os.ReadFile(configPath())
	if os.IsNotExist(err) {
		return defaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables (${VAR} syntax)
	expanded := expandEnvVars(string(data))

	cfg := defaultConfig()
	if _, err := toml.Decode(expanded, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR} with environment variable values.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(varName)
	})
}

// Validate checks that required config fields are present and valid.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.URL)
	if err != nil {
		return fmt.Errorf("server.url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server.url must use http or https scheme")
	}

	s, err := url.Parse(c.Server.SocketURL)
	if err != nil {
		return fmt.Errorf("server.socket_url is not a valid URL: %w", err)
	}
	if s.Scheme != "ws" && s.Scheme != "wss" {
		return fmt.Errorf("server.socket_url must use ws or wss scheme")
	}
	return nil
}
