/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm/clause"

	"github.com/friendsincode/vibedeck/internal/events"
	"github.com/friendsincode/vibedeck/internal/models"
)

// vibeTagRequest is the request body for tagging a favorite.
type vibeTagRequest struct {
	Vibe models.Vibe `json:"vibe"`
}

// handleFavoritesList proxies the household's favorites from the
// vendor cloud, annotated with any local vibe tags.
func (a *API) handleFavoritesList(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "householdID")

	items, err := a.speakers.Favorites(r.Context(), householdID)
	if err != nil {
		a.writeSpeakerError(w, err)
		return
	}

	var tags []models.VibeTag
	if err := a.db.WithContext(r.Context()).Where("household_id = ?", householdID).Find(&tags).Error; err != nil {
		a.logger.Warn().Err(err).Msg("vibe tag load failed, returning untagged favorites")
		tags = nil
	}
	tagByFavorite := make(map[string]models.Vibe, len(tags))
	for _, tag := range tags {
		tagByFavorite[tag.FavoriteID] = tag.Vibe
	}

	type taggedFavorite struct {
		ID   string      `json:"id"`
		Name string      `json:"name"`
		Vibe models.Vibe `json:"vibe,omitempty"`
	}
	out := make([]taggedFavorite, 0, len(items))
	for _, item := range items {
		out = append(out, taggedFavorite{
			ID:   item.ID,
			Name: item.Name,
			Vibe: tagByFavorite[item.ID],
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"favorites": out})
}

// handleVibeTagsList returns the household's stored vibe tags.
func (a *API) handleVibeTagsList(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "householdID")

	var tags []models.VibeTag
	if err := a.db.WithContext(r.Context()).Where("household_id = ?", householdID).Order("favorite_id ASC").Find(&tags).Error; err != nil {
		a.logger.Error().Err(err).Msg("list vibe tags failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

// handleVibeTagSet creates or replaces the tag for a favorite.
func (a *API) handleVibeTagSet(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "householdID")
	favoriteID := chi.URLParam(r, "favoriteID")

	var req vibeTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if !models.IsCanonicalVibe(req.Vibe) {
		writeError(w, http.StatusBadRequest, "invalid_vibe")
		return
	}

	tag := models.VibeTag{
		HouseholdID: householdID,
		FavoriteID:  favoriteID,
		Vibe:        req.Vibe,
	}
	err := a.db.WithContext(r.Context()).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "household_id"}, {Name: "favorite_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"vibe", "updated_at"}),
	}).Create(&tag).Error
	if err != nil {
		a.logger.Error().Err(err).Msg("set vibe tag failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	a.bus.Publish(events.EventVibeTagUpdated, events.Payload{
		"household_id": householdID,
		"favorite_id":  favoriteID,
		"vibe":         string(req.Vibe),
	})
	writeJSON(w, http.StatusOK, tag)
}

// handleVibeTagDelete removes the tag for a favorite.
func (a *API) handleVibeTagDelete(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "householdID")
	favoriteID := chi.URLParam(r, "favoriteID")

	result := a.db.WithContext(r.Context()).
		Where("household_id = ? AND favorite_id = ?", householdID, favoriteID).
		Delete(&models.VibeTag{})
	if result.Error != nil {
		a.logger.Error().Err(result.Error).Msg("delete vibe tag failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if result.RowsAffected == 0 {
		writeError(w, http.StatusNotFound, "tag_not_found")
		return
	}

	a.bus.Publish(events.EventVibeTagUpdated, events.Payload{
		"household_id": householdID,
		"favorite_id":  favoriteID,
	})
	w.WriteHeader(http.StatusNoContent)
}
