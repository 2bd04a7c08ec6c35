/*
Package configs loads the server configuration.

Values come from environment variables. When CONFIG_PATH names a YAML file, that file
is read first and environment variables still override it.
*/
package configs

import (
	"fmt"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"

	"nearby/internal/pkg/randx"
)

// Click suppression policies.
const (
	// SuppressOff never hides a clicked user.
	SuppressOff = "off"

	// SuppressSession hides a clicked user from the clicker for the rest of its connection.
	SuppressSession = "session"

	// SuppressUntilMove hides a clicked user until the clicker sends its next location update.
	SuppressUntilMove = "until_move"
)

// AppConfig contains every configuration parameter the server reads at startup.
type AppConfig struct {
	// General Server Settings
	Environment string `yaml:"environment" env:"ENVIRONMENT" env-default:"development"`
	Port        int    `yaml:"port" env:"PORT" env-default:"8080"`
	ServerID    string `yaml:"server_id" env:"SERVER_ID"`

	// Security Settings
	AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" env-separator:","`
	ConnectRate    float64  `yaml:"connect_rate" env:"CONNECT_RATE" env-default:"20"`
	ConnectBurst   int      `yaml:"connect_burst" env:"CONNECT_BURST" env-default:"100"`

	// Proximity Settings
	RadiusKm         float64 `yaml:"radius_km" env:"RADIUS_KM" env-default:"0.1"`
	ClickSuppression string  `yaml:"click_suppression" env:"CLICK_SUPPRESSION" env-default:"session"`
	BroadcastOnLeave bool    `yaml:"broadcast_on_leave" env:"BROADCAST_ON_LEAVE" env-default:"false"`
	SendBuffer       int     `yaml:"send_buffer" env:"SEND_BUFFER" env-default:"256"`
}

// IsDevelopment reports whether the server runs with development defaults.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// LoadConfig reads the configuration and validates it.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("cannot read environment: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// normalize trims list values, fills derived defaults, and rejects invalid settings.
func (c *AppConfig) normalize() error {
	if c.Port < 1024 || c.Port > 65535 {
		return fmt.Errorf("port number %d is outside the allowed range (%d-%d)", c.Port, 1024, 65535)
	}

	origins := make([]string, 0, len(c.AllowedOrigins))
	for _, origin := range c.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.AllowedOrigins = origins

	c.ServerID = strings.TrimSpace(c.ServerID)
	if c.ServerID == "" {
		c.ServerID = randx.InstanceID()
	}

	if c.RadiusKm <= 0 {
		return fmt.Errorf("RADIUS_KM must be positive, got %v", c.RadiusKm)
	}

	switch c.ClickSuppression {
	case SuppressOff, SuppressSession, SuppressUntilMove:
	default:
		return fmt.Errorf("CLICK_SUPPRESSION must be one of %q, %q, %q, got %q",
			SuppressOff, SuppressSession, SuppressUntilMove, c.ClickSuppression)
	}

	if c.ConnectRate <= 0 || c.ConnectBurst <= 0 {
		return fmt.Errorf("CONNECT_RATE and CONNECT_BURST must be positive")
	}

	if c.SendBuffer <= 0 {
		return fmt.Errorf("SEND_BUFFER must be positive, got %d", c.SendBuffer)
	}

	return nil
}
