/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/friendsincode/vibedeck/internal/models"
)

// tokenSetRequest installs an OAuth grant for a household. The token
// pair comes from the vendor's authorization code flow, completed out
// of band (the vendor portal redirects to the operator's tooling).
type tokenSetRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// handleTokenSet stores the vendor OAuth grant for a household.
func (a *API) handleTokenSet(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "householdID")

	var hh models.Household
	err := a.db.WithContext(r.Context()).First(&hh, "id = ?", householdID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "household_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	var req tokenSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.AccessToken == "" || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "access_and_refresh_token_required")
		return
	}
	if req.TokenType == "" {
		req.TokenType = "Bearer"
	}
	if req.ExpiresIn <= 0 {
		req.ExpiresIn = 3600
	}

	token := models.DeviceToken{
		DeviceID:     hh.VendorID,
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		TokenType:    req.TokenType,
		ExpiresAt:    time.Now().Add(time.Duration(req.ExpiresIn) * time.Second),
	}
	if err := a.tokens.Save(r.Context(), token); err != nil {
		a.logger.Error().Err(err).Msg("save device token failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	a.logger.Info().Str("household_id", householdID).Msg("vendor token installed")
	writeJSON(w, http.StatusOK, map[string]any{
		"device_id":  token.DeviceID,
		"expires_at": token.ExpiresAt,
	})
}

// handleTokenClear revokes the stored grant for a household.
func (a *API) handleTokenClear(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "householdID")

	var hh models.Household
	err := a.db.WithContext(r.Context()).First(&hh, "id = ?", householdID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "household_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	if err := a.tokens.Clear(r.Context(), hh.VendorID); err != nil {
		a.logger.Error().Err(err).Msg("clear device token failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	a.logger.Info().Str("household_id", householdID).Msg("vendor token cleared")
	w.WriteHeader(http.StatusNoContent)
}
