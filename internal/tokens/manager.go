/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package tokens manages per-device OAuth2 grants for the vendor
// cloud: durable storage, on-demand refresh, and a background
// refresher that keeps tokens warm.
package tokens

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/friendsincode/vibedeck/internal/events"
	"github.com/friendsincode/vibedeck/internal/models"
)

// ErrTokenNotFound is returned when a device has no stored grant.
var ErrTokenNotFound = errors.New("device token not found")

// Config carries the vendor OAuth2 client settings.
type Config struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	// RefreshInterval is the background refresher cadence.
	RefreshInterval time.Duration
}

// Manager loads, saves, clears, and refreshes device tokens.
type Manager struct {
	db     *gorm.DB
	cfg    Config
	oauth  *oauth2.Config
	bus    *events.Bus
	logger zerolog.Logger
}

// NewManager creates a token manager.
func NewManager(db *gorm.DB, cfg Config, bus *events.Bus, logger zerolog.Logger) *Manager {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 5 * time.Minute
	}
	return &Manager{
		db:  db,
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		bus:    bus,
		logger: logger.With().Str("component", "token_manager").Logger(),
	}
}

// Load returns the stored grant for a device.
func (m *Manager) Load(ctx context.Context, deviceID string) (models.DeviceToken, error) {
	var token models.DeviceToken
	err := m.db.WithContext(ctx).First(&token, "device_id = ?", deviceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DeviceToken{}, ErrTokenNotFound
	}
	if err != nil {
		return models.DeviceToken{}, err
	}
	return token, nil
}

// Save upserts the grant for a device.
func (m *Manager) Save(ctx context.Context, token models.DeviceToken) error {
	return m.db.WithContext(ctx).Save(&token).Error
}

// Clear removes the grant for a device.
func (m *Manager) Clear(ctx context.Context, deviceID string) error {
	err := m.db.WithContext(ctx).Delete(&models.DeviceToken{}, "device_id = ?", deviceID).Error
	if err != nil {
		return err
	}
	m.bus.Publish(events.EventTokenCleared, events.Payload{"device_id": deviceID})
	return nil
}

// AccessToken returns a valid access token for the device, refreshing
// through the vendor token endpoint when the stored one is stale.
func (m *Manager) AccessToken(ctx context.Context, deviceID string) (string, error) {
	stored, err := m.Load(ctx, deviceID)
	if err != nil {
		return "", err
	}

	if !stored.Expired() {
		return stored.AccessToken, nil
	}

	refreshed, err := m.refresh(ctx, stored)
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

// refresh exchanges the refresh token and persists the new grant.
func (m *Manager) refresh(ctx context.Context, stored models.DeviceToken) (models.DeviceToken, error) {
	source := m.oauth.TokenSource(ctx, &oauth2.Token{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		TokenType:    stored.TokenType,
		Expiry:       stored.ExpiresAt,
	})

	fresh, err := source.Token()
	if err != nil {
		return models.DeviceToken{}, err
	}

	stored.AccessToken = fresh.AccessToken
	if fresh.RefreshToken != "" {
		stored.RefreshToken = fresh.RefreshToken
	}
	stored.TokenType = fresh.TokenType
	stored.ExpiresAt = fresh.Expiry

	if err := m.Save(ctx, stored); err != nil {
		return models.DeviceToken{}, err
	}

	m.logger.Info().Str("device_id", stored.DeviceID).Time("expires_at", stored.ExpiresAt).Msg("device token refreshed")
	m.bus.Publish(events.EventTokenRefreshed, events.Payload{"device_id": stored.DeviceID})
	return stored, nil
}

// Run refreshes soon-to-expire tokens on a fixed cadence until the
// context is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.refreshExpiring(ctx)
		}
	}
}

func (m *Manager) refreshExpiring(ctx context.Context) {
	cutoff := time.Now().Add(m.cfg.RefreshInterval * 2)

	var stale []models.DeviceToken
	if err := m.db.WithContext(ctx).Where("expires_at < ?", cutoff).Find(&stale).Error; err != nil {
		m.logger.Warn().Err(err).Msg("expiring token scan failed")
		return
	}

	for _, token := range stale {
		if _, err := m.refresh(ctx, token); err != nil {
			m.logger.Warn().Err(err).Str("device_id", token.DeviceID).Msg("background token refresh failed")
		}
	}
}
