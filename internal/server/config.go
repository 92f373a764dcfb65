// Package server provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the room chat service.
package server

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Tyrowin/roomchat/internal/chat"
	"github.com/Tyrowin/roomchat/internal/logging"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Configuration keys. Each one is also read from the environment under its
// upper-case name (SERVER_PORT, ALLOWED_ORIGINS, ...).
const (
	keyConfigFile      = "config_file"
	keyPort            = "server_port"
	keyAllowedOrigins  = "allowed_origins"
	keyMaxMessageSize  = "max_message_size"
	keyRateBurst       = "rate_limit_burst"
	keyRateRefill      = "rate_limit_refill_interval"
	keyDataCooldown    = "data_cooldown"
	keyShutdownTimeout = "shutdown_timeout"
	keyLogLevel        = "log_level"
	keyLogFormat       = "log_format"
)

// RateLimitConfig defines the per-connection inbound frame flood guard.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the server configuration settings including security controls.
type Config struct {
	Port            string
	AllowedOrigins  []string
	MaxMessageSize  int64
	RateLimit       RateLimitConfig
	DataCooldown    time.Duration
	ShutdownTimeout time.Duration
	LogLevel        string
	LogFormat       string
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

func defaultConfig() Config {
	return Config{
		Port: ":8080",
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
		MaxMessageSize: 1 << 20,
		RateLimit: RateLimitConfig{
			Burst:          20,
			RefillInterval: time.Second,
		},
		DataCooldown:    chat.DefaultDataCooldown,
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        "info",
		LogFormat:       logging.FormatJSON,
	}
}

// sanitize replaces unusable values with defaults.
func (c Config) sanitize() Config {
	def := defaultConfig()

	if c.Port == "" {
		c.Port = def.Port
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = def.MaxMessageSize
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = def.RateLimit.Burst
	}
	if c.RateLimit.RefillInterval <= 0 {
		c.RateLimit.RefillInterval = def.RateLimit.RefillInterval
	}
	if c.DataCooldown < 0 {
		c.DataCooldown = def.DataCooldown
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}
	if _, err := zapcore.ParseLevel(strings.TrimSpace(c.LogLevel)); err != nil || c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	switch strings.ToLower(strings.TrimSpace(c.LogFormat)) {
	case logging.FormatJSON, logging.FormatConsole:
	default:
		c.LogFormat = def.LogFormat
	}
	c.AllowedOrigins = append([]string(nil), c.AllowedOrigins...)
	return c
}

// LoadConfig reads defaults, the optional file named by CONFIG_FILE, and
// environment overrides. Malformed values fall back to their defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(viper.New())
}

func loadConfig(v *viper.Viper) (*Config, error) {
	for _, key := range []string{
		keyConfigFile, keyPort, keyAllowedOrigins, keyMaxMessageSize, keyRateBurst,
		keyRateRefill, keyDataCooldown, keyShutdownTimeout, keyLogLevel, keyLogFormat,
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("server: bind %s: %w", key, err)
		}
	}

	if file := v.GetString(keyConfigFile); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("server: read config %s: %w", file, err)
		}
	}

	cfg := defaultConfig()

	if port := v.GetString(keyPort); port != "" {
		cfg.Port = port
	}

	if origins := v.GetString(keyAllowedOrigins); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	} else if list := v.GetStringSlice(keyAllowedOrigins); len(list) > 0 {
		cfg.AllowedOrigins = list
	}

	if maxSize := v.GetString(keyMaxMessageSize); maxSize != "" {
		cfg.MaxMessageSize = parseMaxMessageSize(maxSize, cfg.MaxMessageSize)
	}

	if burst := v.GetString(keyRateBurst); burst != "" {
		cfg.RateLimit.Burst = parseIntValue(burst, cfg.RateLimit.Burst)
	}

	if interval := v.GetString(keyRateRefill); interval != "" {
		cfg.RateLimit.RefillInterval = parseRefillInterval(interval, cfg.RateLimit.RefillInterval)
	}

	if cooldown := v.GetString(keyDataCooldown); cooldown != "" {
		cfg.DataCooldown = parseDuration(cooldown, cfg.DataCooldown, true)
	}

	if timeout := v.GetString(keyShutdownTimeout); timeout != "" {
		cfg.ShutdownTimeout = parseDuration(timeout, cfg.ShutdownTimeout, false)
	}

	if level := v.GetString(keyLogLevel); level != "" {
		cfg.LogLevel = level
	}
	if format := v.GetString(keyLogFormat); format != "" {
		cfg.LogFormat = format
	}

	cfg = cfg.sanitize()
	return &cfg, nil
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseMaxMessageSize(value string, defaultValue int64) int64 {
	if size, err := strconv.ParseInt(value, 10, 64); err == nil && size > 0 {
		return size
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

// parseRefillInterval accepts whole seconds.
func parseRefillInterval(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

// parseDuration accepts Go duration syntax ("5s", "1500ms").
func parseDuration(value string, defaultValue time.Duration, allowZero bool) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		return defaultValue
	}
	return d
}
