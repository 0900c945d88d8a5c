/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/vibedeck/internal/speaker"
	"github.com/friendsincode/vibedeck/internal/telemetry"
	"github.com/friendsincode/vibedeck/internal/timerules"
	"github.com/friendsincode/vibedeck/internal/tokens"
)

// handleRecommendation computes the vibe recommendation for a moment.
// The moment defaults to server time; hour, day and tz_offset query
// parameters pin it for clients in other timezones.
func (a *API) handleRecommendation(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "householdID")

	now := time.Now()
	timeCtx := timerules.TimeContext{
		Hour: now.Hour(),
		Day:  int(now.Weekday()),
	}

	q := r.URL.Query()
	if raw := q.Get("tz_offset"); raw != "" {
		offset, err := strconv.ParseFloat(raw, 64)
		if err != nil || offset < -12 || offset > 14 {
			writeError(w, http.StatusBadRequest, "invalid_tz_offset")
			return
		}
		shifted := now.UTC().Add(time.Duration(offset * float64(time.Hour)))
		timeCtx.Hour = shifted.Hour()
		timeCtx.Day = int(shifted.Weekday())
		timeCtx.TimezoneOffsetHours = &offset
	}
	if raw := q.Get("hour"); raw != "" {
		hour, err := strconv.Atoi(raw)
		if err != nil || hour < 0 || hour > 23 {
			writeError(w, http.StatusBadRequest, "invalid_hour")
			return
		}
		timeCtx.Hour = hour
	}
	if raw := q.Get("day"); raw != "" {
		day, err := strconv.Atoi(raw)
		if err != nil || day < 0 || day > 6 {
			writeError(w, http.StatusBadRequest, "invalid_day")
			return
		}
		timeCtx.Day = day
	}

	rec, err := a.rules.RecommendNow(r.Context(), householdID, timeCtx)
	if err != nil {
		telemetry.RecommendationsTotal.WithLabelValues("error").Inc()
		a.writeSpeakerError(w, err)
		return
	}

	outcome := "empty"
	if rec.Primary != nil {
		outcome = "primary"
	}
	telemetry.RecommendationsTotal.WithLabelValues(outcome).Inc()

	writeJSON(w, http.StatusOK, rec)
}

// writeSpeakerError maps vendor cloud and lookup failures to response
// codes shared by the playback and recommendation handlers.
func (a *API) writeSpeakerError(w http.ResponseWriter, err error) {
	var apiErr *speaker.APIError
	switch {
	case errors.Is(err, speaker.ErrHouseholdNotFound):
		writeError(w, http.StatusNotFound, "household_not_found")
	case errors.Is(err, tokens.ErrTokenNotFound):
		writeError(w, http.StatusConflict, "household_not_authorized")
	case errors.As(err, &apiErr):
		a.logger.Error().Err(err).Int("vendor_status", apiErr.Status).Msg("vendor api error")
		writeError(w, http.StatusBadGateway, "vendor_api_error")
	default:
		a.logger.Error().Err(err).Msg("speaker operation failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}
