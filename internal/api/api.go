/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/vibedeck/internal/audit"
	"github.com/friendsincode/vibedeck/internal/auth"
	"github.com/friendsincode/vibedeck/internal/events"
	"github.com/friendsincode/vibedeck/internal/models"
	"github.com/friendsincode/vibedeck/internal/speaker"
	"github.com/friendsincode/vibedeck/internal/timerules"
	"github.com/friendsincode/vibedeck/internal/tokens"
)

// API exposes HTTP handlers.
type API struct {
	db        *gorm.DB
	jwtSecret []byte
	rules     *timerules.Service
	speakers  *speaker.Service
	tokens    *tokens.Manager
	audit     *audit.Service
	bus       *events.Bus
	logger    zerolog.Logger
}

// New creates the API router wrapper.
func New(db *gorm.DB, jwtSecret []byte, rules *timerules.Service, speakers *speaker.Service, tokenMgr *tokens.Manager, bus *events.Bus, logger zerolog.Logger) *API {
	return &API{
		db:        db,
		jwtSecret: jwtSecret,
		rules:     rules,
		speakers:  speakers,
		tokens:    tokenMgr,
		bus:       bus,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

// Routes mounts all API routes on the router.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)

		r.Group(func(pr chi.Router) {
			pr.Use(auth.MiddlewareWithJWT(a.db, a.jwtSecret))

			pr.Route("/households", func(r chi.Router) {
				r.Get("/", a.handleHouseholdsList)
				r.With(a.requireRoles(models.RoleAdmin)).Post("/", a.handleHouseholdsCreate)

				r.Route("/{householdID}", func(r chi.Router) {
					r.Get("/", a.handleHouseholdsGet)
					r.With(a.requireRoles(models.RoleAdmin)).Delete("/", a.handleHouseholdsDelete)

					r.Route("/speakers", func(r chi.Router) {
						r.Get("/", a.handleSpeakersList)
						r.With(a.requireRoles(models.RoleAdmin)).Post("/", a.handleSpeakersUpsert)
						r.With(a.requireRoles(models.RoleAdmin)).Patch("/{speakerID}", a.handleSpeakersUpdate)
					})

					a.addVibeRuleRoutes(r)

					r.Get("/recommendation", a.handleRecommendation)

					r.Get("/favorites", a.handleFavoritesList)
					r.Route("/vibe-tags", func(r chi.Router) {
						r.Get("/", a.handleVibeTagsList)
						r.Put("/{favoriteID}", a.handleVibeTagSet)
						r.Delete("/{favoriteID}", a.handleVibeTagDelete)
					})

					r.Get("/groups", a.handleGroupsList)
					r.Route("/playback", func(r chi.Router) {
						r.Post("/favorite", a.handlePlayFavorite)
						r.Post("/groups/{groupID}/play", a.handlePlay)
						r.Post("/groups/{groupID}/pause", a.handlePause)
						r.Post("/groups/{groupID}/volume", a.handleGroupVolume)
					})

					r.Route("/token", func(r chi.Router) {
						r.With(a.requireRoles(models.RoleAdmin)).Put("/", a.handleTokenSet)
						r.With(a.requireRoles(models.RoleAdmin)).Delete("/", a.handleTokenClear)
					})
				})
			})

			pr.With(a.requireRoles(models.RoleAdmin)).Get("/audit", a.handleAuditList)

			pr.Route("/api-keys", func(r chi.Router) {
				r.Get("/", a.handleAPIKeysList)
				r.Post("/", a.handleAPIKeysCreate)
				r.Delete("/{keyID}", a.handleAPIKeysRevoke)
			})
		})
	})
}

// handleHealth is the unauthenticated liveness probe.
func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := a.db.DB()
	if err != nil || sqlDB.PingContext(r.Context()) != nil {
		writeError(w, http.StatusServiceUnavailable, "db_unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) requireRoles(allowed ...models.RoleName) func(http.Handler) http.Handler {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[string(role)] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.ClaimsFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			for _, role := range claims.Roles {
				if _, exists := allowedSet[role]; exists {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "insufficient_role")
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// auditPayload extracts user and request info for audit events.
func (a *API) auditPayload(r *http.Request) events.Payload {
	payload := events.Payload{
		"ip_address": r.RemoteAddr,
		"user_agent": r.UserAgent(),
	}
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok && claims != nil {
		payload["user_id"] = claims.UserID
	}
	return payload
}
