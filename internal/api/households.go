/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/friendsincode/vibedeck/internal/models"
)

// householdCreateRequest is the request body for registering a household.
type householdCreateRequest struct {
	Name     string `json:"name"`
	VendorID string `json:"vendor_id"`
	Timezone string `json:"timezone"`
}

// speakerUpsertRequest registers or updates a speaker.
type speakerUpsertRequest struct {
	VendorID      string `json:"vendor_id"`
	Name          string `json:"name"`
	DefaultVolume int    `json:"default_volume"`
}

// speakerUpdateRequest patches a speaker's mutable fields.
type speakerUpdateRequest struct {
	Name          *string `json:"name"`
	DefaultVolume *int    `json:"default_volume"`
}

// handleHouseholdsList returns all registered households.
func (a *API) handleHouseholdsList(w http.ResponseWriter, r *http.Request) {
	var households []models.Household
	if err := a.db.WithContext(r.Context()).Order("name ASC").Find(&households).Error; err != nil {
		a.logger.Error().Err(err).Msg("list households failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"households": households})
}

// handleHouseholdsCreate registers a household.
func (a *API) handleHouseholdsCreate(w http.ResponseWriter, r *http.Request) {
	var req householdCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Name == "" || req.VendorID == "" {
		writeError(w, http.StatusBadRequest, "name_and_vendor_id_required")
		return
	}
	if req.Timezone == "" {
		req.Timezone = "UTC"
	}

	hh := models.Household{
		ID:       uuid.NewString(),
		Name:     req.Name,
		VendorID: req.VendorID,
		Timezone: req.Timezone,
	}
	if err := a.db.WithContext(r.Context()).Create(&hh).Error; err != nil {
		a.logger.Error().Err(err).Msg("create household failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	a.logger.Info().Str("household_id", hh.ID).Str("name", hh.Name).Msg("household registered")
	writeJSON(w, http.StatusCreated, hh)
}

// handleHouseholdsGet returns one household.
func (a *API) handleHouseholdsGet(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "householdID")

	var hh models.Household
	err := a.db.WithContext(r.Context()).First(&hh, "id = ?", householdID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "household_not_found")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("get household failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, hh)
}

// handleHouseholdsDelete removes a household and its scoped records.
func (a *API) handleHouseholdsDelete(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "householdID")

	err := a.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.Household{}, "id = ?", householdID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Where("household_id = ?", householdID).Delete(&models.Speaker{}).Error; err != nil {
			return err
		}
		if err := tx.Where("household_id = ?", householdID).Delete(&models.VibeTag{}).Error; err != nil {
			return err
		}
		return tx.Where("household_id = ?", householdID).Delete(&models.VibeRule{}).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "household_not_found")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("delete household failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	a.logger.Info().Str("household_id", householdID).Msg("household deleted")
	w.WriteHeader(http.StatusNoContent)
}

// handleSpeakersList returns the household's registered speakers.
func (a *API) handleSpeakersList(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "householdID")

	var speakers []models.Speaker
	if err := a.db.WithContext(r.Context()).Where("household_id = ?", householdID).Order("name ASC").Find(&speakers).Error; err != nil {
		a.logger.Error().Err(err).Msg("list speakers failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"speakers": speakers})
}

// handleSpeakersUpsert registers a speaker, or updates it if the
// vendor id is already known for this household.
func (a *API) handleSpeakersUpsert(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "householdID")

	var req speakerUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.VendorID == "" {
		writeError(w, http.StatusBadRequest, "vendor_id_required")
		return
	}
	if req.DefaultVolume < 0 || req.DefaultVolume > 100 {
		writeError(w, http.StatusBadRequest, "invalid_default_volume")
		return
	}

	var sp models.Speaker
	err := a.db.WithContext(r.Context()).
		Where("household_id = ? AND vendor_id = ?", householdID, req.VendorID).
		First(&sp).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		sp = models.Speaker{
			ID:            uuid.NewString(),
			HouseholdID:   householdID,
			VendorID:      req.VendorID,
			Name:          req.Name,
			DefaultVolume: req.DefaultVolume,
		}
		err = a.db.WithContext(r.Context()).Create(&sp).Error
	case err == nil:
		sp.Name = req.Name
		sp.DefaultVolume = req.DefaultVolume
		err = a.db.WithContext(r.Context()).Save(&sp).Error
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("upsert speaker failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	writeJSON(w, http.StatusOK, sp)
}

// handleSpeakersUpdate patches a speaker.
func (a *API) handleSpeakersUpdate(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "householdID")
	speakerID := chi.URLParam(r, "speakerID")

	var req speakerUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.DefaultVolume != nil {
		if *req.DefaultVolume < 0 || *req.DefaultVolume > 100 {
			writeError(w, http.StatusBadRequest, "invalid_default_volume")
			return
		}
		updates["default_volume"] = *req.DefaultVolume
	}
	if len(updates) == 0 {
		writeError(w, http.StatusBadRequest, "no_fields_to_update")
		return
	}

	result := a.db.WithContext(r.Context()).
		Model(&models.Speaker{}).
		Where("id = ? AND household_id = ?", speakerID, householdID).
		Updates(updates)
	if result.Error != nil {
		a.logger.Error().Err(result.Error).Msg("update speaker failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if result.RowsAffected == 0 {
		writeError(w, http.StatusNotFound, "speaker_not_found")
		return
	}

	var sp models.Speaker
	if err := a.db.WithContext(r.Context()).First(&sp, "id = ?", speakerID).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, sp)
}
