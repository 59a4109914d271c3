// Package config assembles runtime settings from defaults, an optional YAML file,
// an optional .env file and the process environment, in that order of precedence.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/brightshare/internal/errors"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultScoringEndpoint is where the scoring service listens in local development
const DefaultScoringEndpoint = "http://localhost:8000/analyse_tiktok"

var validate = validator.New()

// ScoringConfig configures the outbound call to the scoring service
type ScoringConfig struct {
	Endpoint         string        `yaml:"endpoint" validate:"required,url"`
	Timeout          time.Duration `yaml:"timeout" validate:"min=0"`
	MaxIdleConns     int           `yaml:"max_idle_conns" validate:"min=1"`
	MaxActiveConns   int           `yaml:"max_active_conns" validate:"min=1"`
	FailureThreshold int           `yaml:"failure_threshold" validate:"min=1"`
	RecoveryTimeout  time.Duration `yaml:"recovery_timeout" validate:"min=0"`
}

// ServerConfig configures the HTTP listener and the dashboard surface
type ServerConfig struct {
	Port           string        `yaml:"port" validate:"required,numeric"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	SessionTTL     time.Duration `yaml:"session_ttl" validate:"min=1m"`
	MaxInputLength int           `yaml:"max_input_length" validate:"min=16,max=4096"`
	DefaultLocale  string        `yaml:"default_locale" validate:"required,bcp47_language_tag"`
	EnableSwagger  bool          `yaml:"enable_swagger"`
	// SecureCookies marks the session cookie Secure and turns on HSTS
	SecureCookies bool `yaml:"secure_cookies"`
}

// RateLimitConfig configures submission throttling
type RateLimitConfig struct {
	PerMinute       int    `yaml:"per_minute" validate:"min=1"`
	BurstMultiplier int    `yaml:"burst_multiplier" validate:"min=1"`
	RedisAddr       string `yaml:"redis_addr"`
	RedisPassword   string `yaml:"redis_password"`
	RedisDB         int    `yaml:"redis_db" validate:"min=0"`
}

// Config is the full application configuration
type Config struct {
	Scoring   ScoringConfig   `yaml:"scoring"`
	Server    ServerConfig    `yaml:"server"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Default returns the configuration used when nothing is overridden
func Default() Config {
	return Config{
		Scoring: ScoringConfig{
			Endpoint:         DefaultScoringEndpoint,
			Timeout:          60 * time.Second,
			MaxIdleConns:     4,
			MaxActiveConns:   16,
			FailureThreshold: 5,
			RecoveryTimeout:  30 * time.Second,
		},
		Server: ServerConfig{
			Port:           "8080",
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
			SessionTTL:     2 * time.Hour,
			MaxInputLength: 2048,
			DefaultLocale:  "en",
			EnableSwagger:  true,
		},
		RateLimit: RateLimitConfig{
			PerMinute:       30,
			BurstMultiplier: 2,
		},
	}
}

// Load builds the configuration. path may be empty; a missing .env is not an error.
// Every failure is a configuration AppError.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.NewConfigurationError("failed to read config file", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, errors.NewConfigurationError("failed to parse config file", err)
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, errors.NewConfigurationError("invalid environment", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks every section against its struct tags
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.NewConfigurationError("invalid configuration", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("SCORING_ENDPOINT"); v != "" {
		cfg.Scoring.Endpoint = v
	}
	if err := envDuration("SCORING_TIMEOUT", &cfg.Scoring.Timeout); err != nil {
		return err
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}
	if err := envDuration("SESSION_TTL", &cfg.Server.SessionTTL); err != nil {
		return err
	}
	if v := os.Getenv("DEFAULT_LOCALE"); v != "" {
		cfg.Server.DefaultLocale = v
	}
	if v := os.Getenv("ENABLE_SWAGGER"); v != "" {
		cfg.Server.EnableSwagger = v == "true"
	}
	if v := os.Getenv("SECURE_COOKIES"); v != "" {
		cfg.Server.SecureCookies = v == "true"
	}
	if err := envInt("RATE_LIMIT_PER_MIN", &cfg.RateLimit.PerMinute); err != nil {
		return err
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RateLimit.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RateLimit.RedisPassword = v
	}
	return envInt("REDIS_DB", &cfg.RateLimit.RedisDB)
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
