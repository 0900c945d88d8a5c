/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/vibedeck/internal/events"
	"github.com/friendsincode/vibedeck/internal/models"
	"github.com/friendsincode/vibedeck/internal/timerules"
)

// vibeRuleRequest is the request body for creating or updating a rule.
type vibeRuleRequest struct {
	Name         string              `json:"name"`
	StartHour    int                 `json:"start_hour"`
	EndHour      int                 `json:"end_hour"`
	AllowedVibes []models.Vibe       `json:"allowed_vibes"`
	RuleType     models.VibeRuleType `json:"rule_type"`
	Days         []int               `json:"days"`
}

// addVibeRuleRoutes registers rule routes under a household.
func (a *API) addVibeRuleRoutes(r chi.Router) {
	r.Route("/vibe-rules", func(r chi.Router) {
		r.Get("/", a.handleVibeRulesList)
		r.With(a.requireRoles(models.RoleAdmin)).Post("/", a.handleVibeRulesCreate)
		r.Route("/{ruleID}", func(r chi.Router) {
			r.Get("/", a.handleVibeRulesGet)
			r.With(a.requireRoles(models.RoleAdmin)).Put("/", a.handleVibeRulesUpdate)
			r.With(a.requireRoles(models.RoleAdmin)).Delete("/", a.handleVibeRulesDelete)
		})
	})
}

// handleVibeRulesList returns all rules for a household, raw (unsanitized),
// so the owner sees exactly what is stored.
func (a *API) handleVibeRulesList(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "householdID")

	rules, err := a.rules.Store().List(r.Context(), householdID)
	if err != nil {
		a.logger.Error().Err(err).Msg("list vibe rules failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"rules": rules})
}

// handleVibeRulesGet returns a single rule.
func (a *API) handleVibeRulesGet(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "householdID")
	id, err := strconv.ParseUint(chi.URLParam(r, "ruleID"), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_rule_id")
		return
	}

	rule, err := a.rules.Store().Get(r.Context(), householdID, uint(id))
	if errors.Is(err, timerules.ErrRuleNotFound) {
		writeError(w, http.StatusNotFound, "rule_not_found")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("get vibe rule failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	writeJSON(w, http.StatusOK, rule)
}

// handleVibeRulesCreate creates a new rule after overlap validation.
func (a *API) handleVibeRulesCreate(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "householdID")

	var req vibeRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	rule := models.VibeRule{
		HouseholdID:  householdID,
		Name:         req.Name,
		StartHour:    req.StartHour,
		EndHour:      req.EndHour,
		AllowedVibes: req.AllowedVibes,
		RuleType:     req.RuleType,
		Days:         req.Days,
	}

	saved, err := a.rules.Store().Save(r.Context(), rule)
	if err != nil {
		a.writeRuleSaveError(w, err)
		return
	}

	a.bus.Publish(events.EventRuleCreated, events.Payload{"household_id": householdID, "rule_id": saved.ID})
	a.bus.Publish(events.EventAuditRuleWrite, a.auditPayload(r))
	writeJSON(w, http.StatusCreated, saved)
}

// handleVibeRulesUpdate replaces an existing rule.
func (a *API) handleVibeRulesUpdate(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "householdID")
	id, err := strconv.ParseUint(chi.URLParam(r, "ruleID"), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_rule_id")
		return
	}

	var req vibeRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	rule := models.VibeRule{
		ID:           uint(id),
		HouseholdID:  householdID,
		Name:         req.Name,
		StartHour:    req.StartHour,
		EndHour:      req.EndHour,
		AllowedVibes: req.AllowedVibes,
		RuleType:     req.RuleType,
		Days:         req.Days,
	}

	saved, err := a.rules.Store().Save(r.Context(), rule)
	if err != nil {
		a.writeRuleSaveError(w, err)
		return
	}

	a.bus.Publish(events.EventRuleUpdated, events.Payload{"household_id": householdID, "rule_id": saved.ID})
	a.bus.Publish(events.EventAuditRuleWrite, a.auditPayload(r))
	writeJSON(w, http.StatusOK, saved)
}

// handleVibeRulesDelete removes a rule.
func (a *API) handleVibeRulesDelete(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "householdID")
	id, err := strconv.ParseUint(chi.URLParam(r, "ruleID"), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_rule_id")
		return
	}

	err = a.rules.Store().Delete(r.Context(), householdID, uint(id))
	if errors.Is(err, timerules.ErrRuleNotFound) {
		writeError(w, http.StatusNotFound, "rule_not_found")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("delete vibe rule failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	a.bus.Publish(events.EventRuleDeleted, events.Payload{"household_id": householdID, "rule_id": uint(id)})
	a.bus.Publish(events.EventAuditRuleWrite, a.auditPayload(r))
	w.WriteHeader(http.StatusNoContent)
}

// writeRuleSaveError maps validation failures to response codes. An
// overlap conflict carries enough detail for the client to point at
// the clashing rule.
func (a *API) writeRuleSaveError(w http.ResponseWriter, err error) {
	var conflict *timerules.OverlapConflictError
	if errors.As(err, &conflict) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":         "rule_overlap",
			"conflict_id":   conflict.ConflictID,
			"conflict_name": conflict.ConflictName,
			"start_hour":    conflict.StartHour,
			"end_hour":      conflict.EndHour,
			"shared_days":   conflict.SharedDays,
		})
		return
	}

	switch {
	case errors.Is(err, timerules.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "invalid_hour_range")
	case errors.Is(err, timerules.ErrNoValidVibes):
		writeError(w, http.StatusBadRequest, "no_valid_vibes")
	case errors.Is(err, timerules.ErrInvalidRuleType):
		writeError(w, http.StatusBadRequest, "invalid_rule_type")
	case errors.Is(err, timerules.ErrInvalidDays):
		writeError(w, http.StatusBadRequest, "invalid_days")
	case errors.Is(err, timerules.ErrRuleNotFound):
		writeError(w, http.StatusNotFound, "rule_not_found")
	default:
		a.logger.Error().Err(err).Msg("save vibe rule failed")
		writeError(w, http.StatusInternalServerError, "db_error")
	}
}
