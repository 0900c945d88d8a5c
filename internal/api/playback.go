/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/vibedeck/internal/speaker"
	"github.com/friendsincode/vibedeck/internal/telemetry"
)

// playFavoriteRequest is the request body for starting favorite playback.
type playFavoriteRequest struct {
	FavoriteID          string `json:"favorite_id"`
	Autogroup           bool   `json:"autogroup"`
	ApplyDefaultVolumes bool   `json:"apply_default_volumes"`
}

// groupVolumeRequest sets an absolute volume or a relative delta.
type groupVolumeRequest struct {
	Volume *int `json:"volume"`
	Delta  *int `json:"delta"`
}

// handleGroupsList returns the household's current group topology.
func (a *API) handleGroupsList(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "householdID")

	topo, err := a.speakers.Topology(r.Context(), householdID)
	if err != nil {
		telemetry.SpeakerCommandsTotal.WithLabelValues("topology", "error").Inc()
		a.writeSpeakerError(w, err)
		return
	}

	telemetry.SpeakerCommandsTotal.WithLabelValues("topology", "ok").Inc()
	writeJSON(w, http.StatusOK, topo)
}

// handlePlayFavorite starts playback of a favorite, with optional
// autogrouping and default volume application.
func (a *API) handlePlayFavorite(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "householdID")

	var req playFavoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.FavoriteID == "" {
		writeError(w, http.StatusBadRequest, "favorite_id_required")
		return
	}

	group, err := a.speakers.PlayFavorite(r.Context(), householdID, req.FavoriteID, speaker.PlayOptions{
		Autogroup:           req.Autogroup,
		ApplyDefaultVolumes: req.ApplyDefaultVolumes,
	})
	if err != nil {
		telemetry.SpeakerCommandsTotal.WithLabelValues("play_favorite", "error").Inc()
		a.writeSpeakerError(w, err)
		return
	}

	telemetry.SpeakerCommandsTotal.WithLabelValues("play_favorite", "ok").Inc()
	writeJSON(w, http.StatusOK, map[string]any{"group": group})
}

// handlePlay resumes playback on a group.
func (a *API) handlePlay(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "householdID")
	groupID := chi.URLParam(r, "groupID")

	if err := a.speakers.Play(r.Context(), householdID, groupID); err != nil {
		telemetry.SpeakerCommandsTotal.WithLabelValues("play", "error").Inc()
		a.writeSpeakerError(w, err)
		return
	}

	telemetry.SpeakerCommandsTotal.WithLabelValues("play", "ok").Inc()
	w.WriteHeader(http.StatusNoContent)
}

// handlePause pauses playback on a group.
func (a *API) handlePause(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "householdID")
	groupID := chi.URLParam(r, "groupID")

	if err := a.speakers.Pause(r.Context(), householdID, groupID); err != nil {
		telemetry.SpeakerCommandsTotal.WithLabelValues("pause", "error").Inc()
		a.writeSpeakerError(w, err)
		return
	}

	telemetry.SpeakerCommandsTotal.WithLabelValues("pause", "ok").Inc()
	w.WriteHeader(http.StatusNoContent)
}

// handleGroupVolume sets an absolute group volume, or adjusts it when
// only a delta is given.
func (a *API) handleGroupVolume(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "householdID")
	groupID := chi.URLParam(r, "groupID")

	var req groupVolumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	var err error
	switch {
	case req.Volume != nil:
		if *req.Volume < 0 || *req.Volume > 100 {
			writeError(w, http.StatusBadRequest, "invalid_volume")
			return
		}
		err = a.speakers.SetGroupVolume(r.Context(), householdID, groupID, *req.Volume)
	case req.Delta != nil:
		err = a.speakers.AdjustGroupVolume(r.Context(), householdID, groupID, *req.Delta)
	default:
		writeError(w, http.StatusBadRequest, "volume_or_delta_required")
		return
	}

	if err != nil {
		telemetry.SpeakerCommandsTotal.WithLabelValues("volume", "error").Inc()
		a.writeSpeakerError(w, err)
		return
	}

	telemetry.SpeakerCommandsTotal.WithLabelValues("volume", "ok").Inc()
	w.WriteHeader(http.StatusNoContent)
}
