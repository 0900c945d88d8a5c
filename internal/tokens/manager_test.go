/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/vibedeck/internal/events"
	"github.com/friendsincode/vibedeck/internal/models"
)

func newTestManager(t *testing.T, tokenURL string) *Manager {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.DeviceToken{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return NewManager(db, Config{
		ClientID:     "client",
		ClientSecret: "secret",
		TokenURL:     tokenURL,
	}, events.NewBus(), zerolog.Nop())
}

func TestManagerSaveLoadClear(t *testing.T) {
	m := newTestManager(t, "")
	ctx := context.Background()

	if _, err := m.Load(ctx, "dev-1"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("load missing = %v, want ErrTokenNotFound", err)
	}

	token := models.DeviceToken{
		DeviceID:     "dev-1",
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		TokenType:    "Bearer",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	if err := m.Save(ctx, token); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := m.Load(ctx, "dev-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.AccessToken != "at-1" || loaded.RefreshToken != "rt-1" {
		t.Errorf("loaded = %+v", loaded)
	}

	// Save again with a fresh access token: upsert, not duplicate.
	token.AccessToken = "at-2"
	if err := m.Save(ctx, token); err != nil {
		t.Fatalf("resave: %v", err)
	}
	loaded, err = m.Load(ctx, "dev-1")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.AccessToken != "at-2" {
		t.Errorf("access token = %q, want at-2", loaded.AccessToken)
	}

	if err := m.Clear(ctx, "dev-1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := m.Load(ctx, "dev-1"); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("load after clear = %v, want ErrTokenNotFound", err)
	}
}

func TestAccessTokenReturnsStoredWhenFresh(t *testing.T) {
	m := newTestManager(t, "http://unused.invalid/token")
	ctx := context.Background()

	if err := m.Save(ctx, models.DeviceToken{
		DeviceID:    "dev-1",
		AccessToken: "fresh-token",
		TokenType:   "Bearer",
		ExpiresAt:   time.Now().Add(time.Hour),
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := m.AccessToken(ctx, "dev-1")
	if err != nil {
		t.Fatalf("access token: %v", err)
	}
	if got != "fresh-token" {
		t.Errorf("access token = %q, want the stored one", got)
	}
}

func TestAccessTokenRefreshesExpiredGrant(t *testing.T) {
	var sawRefreshToken string
	vendor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		sawRefreshToken = r.Form.Get("refresh_token")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "minted-token",
			"refresh_token": "rt-rotated",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	}))
	defer vendor.Close()

	m := newTestManager(t, vendor.URL+"/token")
	ctx := context.Background()

	if err := m.Save(ctx, models.DeviceToken{
		DeviceID:     "dev-1",
		AccessToken:  "stale-token",
		RefreshToken: "rt-old",
		TokenType:    "Bearer",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := m.AccessToken(ctx, "dev-1")
	if err != nil {
		t.Fatalf("access token: %v", err)
	}
	if got != "minted-token" {
		t.Errorf("access token = %q, want the refreshed one", got)
	}
	if sawRefreshToken != "rt-old" {
		t.Errorf("vendor saw refresh_token %q, want rt-old", sawRefreshToken)
	}

	// The rotated grant must be persisted.
	stored, err := m.Load(ctx, "dev-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if stored.AccessToken != "minted-token" || stored.RefreshToken != "rt-rotated" {
		t.Errorf("stored after refresh = %+v", stored)
	}
}
