// Package config loads server settings from the environment, after reading an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// DevSecret signs tokens when JWT_SECRET is unset in development.
	DevSecret = "dev-secret-change-me"
)

var ErrMissingSecret = errors.New("JWT_SECRET is required in production")

type Config struct {
	Env               string
	Port              string
	DatabaseURL       string
	JWTSecret         string
	TokenTTL          time.Duration
	AllowedOrigins    []string
	RegisterRateLimit int

	LineChannelSecret string
	LineChannelToken  string

	// UsingDevSecret is set when JWTSecret fell back to DevSecret.
	UsingDevSecret bool
}

func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// LineEnabled reports whether both LINE credentials are configured.
func (c *Config) LineEnabled() bool {
	return c.LineChannelSecret != "" && c.LineChannelToken != ""
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary variable source.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
		return ""
	}

	cfg := &Config{
		Env:               strings.ToLower(get("APP_ENV", "NODE_ENV")),
		Port:              get("PORT"),
		DatabaseURL:       get("DATABASE_URL", "MONGODB_URI"),
		JWTSecret:         get("JWT_SECRET"),
		TokenTTL:          7 * 24 * time.Hour,
		AllowedOrigins:    []string{"*"},
		RegisterRateLimit: 10,
		LineChannelSecret: get("LINE_CHANNEL_SECRET"),
		LineChannelToken:  get("LINE_CHANNEL_TOKEN"),
	}

	if cfg.Env == "" {
		cfg.Env = EnvDevelopment
	}
	if cfg.Env != EnvDevelopment && cfg.Env != EnvProduction {
		return nil, fmt.Errorf("unknown environment mode %q", cfg.Env)
	}

	if cfg.Port == "" {
		cfg.Port = "5000"
	}

	if cfg.DatabaseURL == "" {
		if project := get("GOOGLE_CLOUD_PROJECT"); project != "" {
			cfg.DatabaseURL = "firestore://" + project
		} else if cfg.IsDevelopment() {
			cfg.DatabaseURL = "memory://"
		} else {
			return nil, errors.New("DATABASE_URL environment variable is required")
		}
	}

	if cfg.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			return nil, ErrMissingSecret
		}
		cfg.JWTSecret = DevSecret
		cfg.UsingDevSecret = true
	}

	if v := get("TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TOKEN_TTL: %v", err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("TOKEN_TTL must be positive, got %s", d)
		}
		cfg.TokenTTL = d
	}

	if v := get("CORS_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}

	if v := get("REGISTER_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("REGISTER_RATE_LIMIT must be a positive integer, got %q", v)
		}
		cfg.RegisterRateLimit = n
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
