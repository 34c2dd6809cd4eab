package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pscheid92/overlayd/internal/domain"
	"go-simpler.org/env"
)

// Config is the overlayd daemon configuration.
type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	// RedisURL enables the Redis command subscriber when set.
	RedisURL       string `env:"REDIS_URL"`
	ControlChannel string `env:"CONTROL_CHANNEL" default:"overlay:commands"`

	TickInterval   time.Duration `env:"OVERLAY_TICK_INTERVAL" default:"100ms"`
	SampleInterval time.Duration `env:"OVERLAY_SAMPLE_INTERVAL" default:"1s"`
	QueueSize      int           `env:"OVERLAY_QUEUE_SIZE" default:"64"`
	OverlayX       int           `env:"OVERLAY_X" default:"100"`
	OverlayY       int           `env:"OVERLAY_Y" default:"100"`

	DisplayWidth  int           `env:"DISPLAY_WIDTH" default:"1080"`
	DisplayHeight int           `env:"DISPLAY_HEIGHT" default:"1920"`
	FrameInterval time.Duration `env:"DISPLAY_FRAME_INTERVAL" default:"16ms"`
	AttachLatency time.Duration `env:"DISPLAY_ATTACH_LATENCY" default:"0s"`

	// GrantedPermissions is a comma-separated list of permission kinds granted at startup.
	GrantedPermissions string `env:"GRANTED_PERMISSIONS" default:"draw-overlay"`
	// PermissionsFile, when set, is a YAML settings file that overrides GrantedPermissions and is
	// followed for edits.
	PermissionsFile string `env:"PERMISSIONS_FILE"`

	// AllowedOrigins is a comma-separated list of extra origins allowed on /ws/overlay.
	AllowedOrigins string `env:"ALLOWED_ORIGINS"`

	APIRateLimit       int           `env:"API_RATE_LIMIT" default:"20"`
	APIRateBurst       int           `env:"API_RATE_BURST" default:"40"`
	StatusPushInterval time.Duration `env:"STATUS_PUSH_INTERVAL" default:"500ms"`
	MaxStatusClients   int           `env:"MAX_STATUS_CLIENTS" default:"64"`
}

// ClientConfig configures overlayctl.
type ClientConfig struct {
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	// Transport is "http" or "redis".
	Transport      string        `env:"CONTROL_TRANSPORT" default:"http"`
	ControlURL     string        `env:"CONTROL_URL" default:"http://localhost:8080"`
	RedisURL       string        `env:"REDIS_URL"`
	ControlChannel string        `env:"CONTROL_CHANNEL" default:"overlay:commands"`
	RequestTimeout time.Duration `env:"CONTROL_REQUEST_TIMEOUT" default:"5s"`

	ToggleCadence  time.Duration `env:"TOGGLE_CADENCE" default:"1s"`
	ToggleCooldown time.Duration `env:"TOGGLE_COOLDOWN" default:"2s"`
}

// Load reads the daemon configuration from the environment and an optional .env file.
func Load() (*Config, error) {
	loadDotEnv()

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadClient reads the overlayctl configuration.
func LoadClient() (*ClientConfig, error) {
	loadDotEnv()

	var cfg ClientConfig
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validateClient(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}
}

// Permissions parses GrantedPermissions.
func (c *Config) Permissions() ([]domain.PermissionKind, error) {
	var kinds []domain.PermissionKind
	for _, part := range strings.Split(c.GrantedPermissions, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kind, err := domain.ParsePermissionKind(part)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

// Origins splits AllowedOrigins, dropping blanks.
func (c *Config) Origins() []string {
	var origins []string
	for _, part := range strings.Split(c.AllowedOrigins, ",") {
		if part = strings.TrimSpace(part); part != "" {
			origins = append(origins, part)
		}
	}
	return origins
}

func validate(cfg *Config) error {
	if err := validateLogging(cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"OVERLAY_TICK_INTERVAL", cfg.TickInterval},
		{"OVERLAY_SAMPLE_INTERVAL", cfg.SampleInterval},
		{"DISPLAY_FRAME_INTERVAL", cfg.FrameInterval},
		{"STATUS_PUSH_INTERVAL", cfg.StatusPushInterval},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive", d.name)
		}
	}
	if cfg.AttachLatency < 0 {
		return errors.New("DISPLAY_ATTACH_LATENCY must not be negative")
	}

	if cfg.QueueSize < 1 || cfg.QueueSize > 4096 {
		return fmt.Errorf("OVERLAY_QUEUE_SIZE must be between 1 and 4096, got %d", cfg.QueueSize)
	}
	if cfg.DisplayWidth <= 0 || cfg.DisplayHeight <= 0 {
		return errors.New("DISPLAY_WIDTH and DISPLAY_HEIGHT must be positive")
	}
	if cfg.APIRateLimit <= 0 || cfg.APIRateBurst <= 0 {
		return errors.New("API_RATE_LIMIT and API_RATE_BURST must be positive")
	}
	if cfg.MaxStatusClients <= 0 {
		return errors.New("MAX_STATUS_CLIENTS must be positive")
	}
	if _, err := cfg.Permissions(); err != nil {
		return fmt.Errorf("GRANTED_PERMISSIONS: %w", err)
	}
	if cfg.RedisURL != "" && cfg.ControlChannel == "" {
		return errors.New("CONTROL_CHANNEL is required when REDIS_URL is set")
	}

	return nil
}

func validateClient(cfg *ClientConfig) error {
	if err := validateLogging(cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}

	switch cfg.Transport {
	case "http":
		u, err := url.Parse(cfg.ControlURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("CONTROL_URL must be an absolute URL, got %q", cfg.ControlURL)
		}
	case "redis":
		if cfg.RedisURL == "" {
			return errors.New("REDIS_URL is required for the redis transport")
		}
	default:
		return fmt.Errorf("CONTROL_TRANSPORT must be http or redis, got %q", cfg.Transport)
	}

	if cfg.ToggleCadence <= 0 || cfg.ToggleCooldown <= 0 || cfg.RequestTimeout <= 0 {
		return errors.New("TOGGLE_CADENCE, TOGGLE_COOLDOWN and CONTROL_REQUEST_TIMEOUT must be positive")
	}
	return nil
}

func validateLogging(level, format string) error {
	switch level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", level)
	}
	switch format {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", format)
	}
	return nil
}
