package config

import "testing"

func TestLoadReadsCriticalEnvKeys(t *testing.T) {
	t.Setenv("VIBEDECK_DB_DSN", "host=localhost user=test dbname=test sslmode=disable")
	t.Setenv("VIBEDECK_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("VIBEDECK_ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DBDSN == "" {
		t.Fatal("expected DB DSN to be set")
	}
	if cfg.JWTSigningKey != "supersecret" {
		t.Fatalf("unexpected jwt signing key: %q", cfg.JWTSigningKey)
	}
}

func TestLoadRejectsUnknownDatabaseBackend(t *testing.T) {
	t.Setenv("VIBEDECK_DB_DSN", "file::memory:?cache=shared")
	t.Setenv("VIBEDECK_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("VIBEDECK_DB_BACKEND", "oracle")

	if _, err := Load(); err == nil {
		t.Fatal("expected config load to fail for unknown backend")
	}
}

func TestLoadReportsLegacyEnvWarnings(t *testing.T) {
	t.Setenv("VIBEDECK_DB_DSN", "host=localhost user=test dbname=test sslmode=disable")
	t.Setenv("VIBEDECK_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("JWT_SIGNING_KEY", "legacy")
	t.Setenv("TRACING_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.LegacyEnvWarnings) == 0 {
		t.Fatal("expected legacy env warnings")
	}
}

func TestLoadProductionRequiresOAuthCredentials(t *testing.T) {
	t.Setenv("VIBEDECK_DB_DSN", "host=localhost user=test dbname=test sslmode=disable")
	t.Setenv("VIBEDECK_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("VIBEDECK_ENV", "production")

	if _, err := Load(); err == nil {
		t.Fatal("expected production config load to fail without oauth credentials")
	}

	t.Setenv("VIBEDECK_OAUTH_CLIENT_ID", "client")
	t.Setenv("VIBEDECK_OAUTH_CLIENT_SECRET", "secret")
	if _, err := Load(); err != nil {
		t.Fatalf("expected production config load with oauth creds to succeed: %v", err)
	}
}
