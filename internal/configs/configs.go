/*
Package configs is responsible for loading and parsing the application's
configuration settings.

It configures the client by reading operating system environment variables
(optionally seeded from a .env file), including the running environment, the REST and
WebSocket endpoints of the room service, and the credential and display name used to
join rooms.
*/
package configs

import (
	"fmt"
	"net/url"
	"os"

	"github.com/joho/godotenv"
)

// AppConfig contains all configuration parameters required for the client to run.
// All configuration values are loaded from environment variables; the command line
// may override individual fields afterwards.
type AppConfig struct {
	// General Settings
	Environment string

	// Room Service Endpoints
	ServerURL string
	WSURL     string

	// Identity Settings
	AuthToken   string
	DisplayName string
}

// LoadConfig reads and parses the application configuration from environment
// variables. A .env file in the working directory is loaded first when present.
// It provides development defaults for the service endpoints and validates that
// both parse as URLs with the expected schemes.
func LoadConfig() (*AppConfig, error) {
	// Missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	// --- General Settings ---
	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	// --- Room Service Endpoints ---
	cfg.ServerURL = os.Getenv("SERVER_URL")
	if cfg.ServerURL == "" {
		if cfg.Environment == "development" {
			cfg.ServerURL = "http://localhost:8080"
		} else {
			return nil, fmt.Errorf("SERVER_URL environment variable is required in %s environment", cfg.Environment)
		}
	}
	if err := validateURL(cfg.ServerURL, "http", "https"); err != nil {
		return nil, fmt.Errorf("invalid SERVER_URL: %w", err)
	}

	cfg.WSURL = os.Getenv("WS_URL")
	if cfg.WSURL == "" {
		if cfg.Environment == "development" {
			cfg.WSURL = "ws://localhost:8080"
		} else {
			return nil, fmt.Errorf("WS_URL environment variable is required in %s environment", cfg.Environment)
		}
	}
	if err := validateURL(cfg.WSURL, "ws", "wss"); err != nil {
		return nil, fmt.Errorf("invalid WS_URL: %w", err)
	}

	// --- Identity Settings ---
	// Both may instead arrive via command-line flags, so neither is required here.
	cfg.AuthToken = os.Getenv("AUTH_TOKEN")
	cfg.DisplayName = os.Getenv("DISPLAY_NAME")

	return cfg, nil
}

// validateURL parses raw and checks its scheme against the allowed set.
func validateURL(raw string, schemes ...string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}

	for _, scheme := range schemes {
		if parsed.Scheme == scheme {
			return nil
		}
	}

	return fmt.Errorf("unsupported scheme %q (expected one of %v)", parsed.Scheme, schemes)
}
