/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment   string
	HTTPBind      string
	HTTPPort      int
	BaseURL       string // Public base URL (e.g., http://192.168.195.6:8080)
	DBBackend     DatabaseBackend
	DBDSN         string
	JWTSigningKey string
	MetricsBind   string

	// Vendor speaker cloud configuration
	SpeakerAPIBaseURL    string
	OAuthClientID        string
	OAuthClientSecret    string
	OAuthAuthURL         string
	OAuthTokenURL        string
	TokenRefreshInterval time.Duration

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	// Redis cache configuration
	CacheEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	InstanceID    string

	LegacyEnvWarnings []string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:   getEnvAny([]string{"VIBEDECK_ENV", "VD_ENV"}, "development"),
		HTTPBind:      getEnvAny([]string{"VIBEDECK_HTTP_BIND", "VD_HTTP_BIND"}, "0.0.0.0"),
		HTTPPort:      getEnvIntAny([]string{"VIBEDECK_HTTP_PORT", "VD_HTTP_PORT"}, 8080),
		BaseURL:       getEnvAny([]string{"VIBEDECK_BASE_URL", "VD_BASE_URL"}, ""),
		DBBackend:     DatabaseBackend(getEnvAny([]string{"VIBEDECK_DB_BACKEND", "VD_DB_BACKEND"}, string(DatabasePostgres))),
		DBDSN:         getEnvAny([]string{"VIBEDECK_DB_DSN", "VD_DB_DSN"}, ""),
		JWTSigningKey: getEnvAny([]string{"VIBEDECK_JWT_SIGNING_KEY", "VD_JWT_SIGNING_KEY"}, ""),
		MetricsBind:   getEnvAny([]string{"VIBEDECK_METRICS_BIND", "VD_METRICS_BIND"}, "127.0.0.1:9000"),

		// Vendor speaker cloud configuration
		SpeakerAPIBaseURL:    getEnvAny([]string{"VIBEDECK_SPEAKER_API_BASE_URL", "VD_SPEAKER_API_BASE_URL"}, "https://api.ws.sonos.com/control/api/v1"),
		OAuthClientID:        getEnvAny([]string{"VIBEDECK_OAUTH_CLIENT_ID", "VD_OAUTH_CLIENT_ID"}, ""),
		OAuthClientSecret:    getEnvAny([]string{"VIBEDECK_OAUTH_CLIENT_SECRET", "VD_OAUTH_CLIENT_SECRET"}, ""),
		OAuthAuthURL:         getEnvAny([]string{"VIBEDECK_OAUTH_AUTH_URL", "VD_OAUTH_AUTH_URL"}, "https://api.sonos.com/login/v3/oauth"),
		OAuthTokenURL:        getEnvAny([]string{"VIBEDECK_OAUTH_TOKEN_URL", "VD_OAUTH_TOKEN_URL"}, "https://api.sonos.com/login/v3/oauth/access"),
		TokenRefreshInterval: time.Duration(getEnvIntAny([]string{"VIBEDECK_TOKEN_REFRESH_MINUTES", "VD_TOKEN_REFRESH_MINUTES"}, 5)) * time.Minute,

		// Tracing configuration
		TracingEnabled:    getEnvBoolAny([]string{"VIBEDECK_TRACING_ENABLED", "VD_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnvAny([]string{"VIBEDECK_OTLP_ENDPOINT", "VD_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"VIBEDECK_TRACING_SAMPLE_RATE", "VD_TRACING_SAMPLE_RATE"}, 1.0),

		// Redis cache configuration
		CacheEnabled:  getEnvBoolAny([]string{"VIBEDECK_CACHE_ENABLED", "VD_CACHE_ENABLED"}, false),
		RedisAddr:     getEnvAny([]string{"VIBEDECK_REDIS_ADDR", "VD_REDIS_ADDR"}, "localhost:6379"),
		RedisPassword: getEnvAny([]string{"VIBEDECK_REDIS_PASSWORD", "VD_REDIS_PASSWORD"}, ""),
		RedisDB:       getEnvIntAny([]string{"VIBEDECK_REDIS_DB", "VD_REDIS_DB"}, 0),
		InstanceID:    getEnvAny([]string{"VIBEDECK_INSTANCE_ID", "VD_INSTANCE_ID"}, ""),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("VIBEDECK_DB_DSN or VD_DB_DSN must be provided")
	}

	if cfg.JWTSigningKey == "" {
		return nil, fmt.Errorf("VIBEDECK_JWT_SIGNING_KEY or VD_JWT_SIGNING_KEY must be provided")
	}

	if strings.EqualFold(cfg.Environment, "production") {
		if cfg.OAuthClientID == "" || cfg.OAuthClientSecret == "" {
			return nil, fmt.Errorf("VIBEDECK_OAUTH_CLIENT_ID and VIBEDECK_OAUTH_CLIENT_SECRET must be set in production")
		}
	}
	cfg.LegacyEnvWarnings = detectLegacyEnvWarnings()

	return cfg, nil
}

func detectLegacyEnvWarnings() []string {
	legacy := map[string]string{
		"ENVIRONMENT":         "use VIBEDECK_ENV (or VD_ENV)",
		"JWT_SIGNING_KEY":     "use VIBEDECK_JWT_SIGNING_KEY (or VD_JWT_SIGNING_KEY)",
		"TRACING_ENABLED":     "use VIBEDECK_TRACING_ENABLED (or VD_TRACING_ENABLED)",
		"OTLP_ENDPOINT":       "use VIBEDECK_OTLP_ENDPOINT (or VD_OTLP_ENDPOINT)",
		"TRACING_SAMPLE_RATE": "use VIBEDECK_TRACING_SAMPLE_RATE (or VD_TRACING_SAMPLE_RATE)",
	}

	warnings := make([]string, 0, len(legacy))
	for key, recommendation := range legacy {
		if os.Getenv(key) != "" {
			warnings = append(warnings, fmt.Sprintf("legacy env key %s is set; %s", key, recommendation))
		}
	}
	return warnings
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}
