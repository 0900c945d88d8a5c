/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/vibedeck/internal/api"
	"github.com/friendsincode/vibedeck/internal/audit"
	"github.com/friendsincode/vibedeck/internal/cache"
	"github.com/friendsincode/vibedeck/internal/config"
	"github.com/friendsincode/vibedeck/internal/db"
	"github.com/friendsincode/vibedeck/internal/events"
	"github.com/friendsincode/vibedeck/internal/speaker"
	"github.com/friendsincode/vibedeck/internal/telemetry"
	"github.com/friendsincode/vibedeck/internal/timerules"
	"github.com/friendsincode/vibedeck/internal/tokens"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	db         *gorm.DB
	cache      *cache.Cache
	api        *api.API
	rules      *timerules.Service
	speakerSvc *speaker.Service
	tokenMgr   *tokens.Manager
	auditSvc   *audit.Service
	bus        *events.Bus

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New wires the full service graph and returns a ready-to-run server.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	for _, warn := range cfg.LegacyEnvWarnings {
		logger.Warn().Msg(warn)
	}

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("vibedeck-api"))
	router.Use(telemetry.MetricsMiddleware)
	router.Use(middleware.Timeout(60 * time.Second))

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
		bus:    events.NewBus(),
	}

	if err := srv.initDependencies(); err != nil {
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	addr := fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort)
	srv.httpServer = &http.Server{
		Addr:              addr,
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	return srv, nil
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; frame-ancestors 'none'; base-uri 'self'")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(database); err != nil {
		return err
	}
	if err := db.RegisterCallbacks(database); err != nil {
		return err
	}
	s.db = database
	s.DeferClose(func() error { return db.Close(database) })

	if s.cfg.CacheEnabled {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.RedisAddr = s.cfg.RedisAddr
		cacheCfg.RedisPassword = s.cfg.RedisPassword
		cacheCfg.RedisDB = s.cfg.RedisDB
		entityCache, err := cache.New(cacheCfg, s.logger)
		if err != nil {
			s.logger.Warn().Err(err).Msg("cache initialization failed, continuing without cache")
		} else {
			s.cache = entityCache
			s.DeferClose(func() error { return s.cache.Close() })
		}
	}

	s.tokenMgr = tokens.NewManager(database, tokens.Config{
		ClientID:        s.cfg.OAuthClientID,
		ClientSecret:    s.cfg.OAuthClientSecret,
		AuthURL:         s.cfg.OAuthAuthURL,
		TokenURL:        s.cfg.OAuthTokenURL,
		RefreshInterval: s.cfg.TokenRefreshInterval,
	}, s.bus, s.logger)

	client := speaker.NewClient(s.cfg.SpeakerAPIBaseURL, s.tokenMgr, s.logger)
	s.speakerSvc = speaker.NewService(database, client, s.bus, s.logger)

	ruleStore := timerules.NewStore(database, s.logger)
	s.rules = timerules.NewService(database, ruleStore, s.speakerSvc, s.logger)

	if s.cache != nil {
		s.speakerSvc.SetCache(s.cache)
		s.rules.SetCache(s.cache)
	}

	s.auditSvc = audit.NewService(database, s.bus, s.logger)

	s.api = api.New(database, []byte(s.cfg.JWTSigningKey), s.rules, s.speakerSvc, s.tokenMgr, s.bus, s.logger)
	s.api.SetAuditService(s.auditSvc)

	return nil
}

// HTTPServer exposes the configured http.Server for the caller to run.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Bus exposes the in-process event bus.
func (s *Server) Bus() *events.Bus {
	return s.bus
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	// Token refresh loop keeps vendor grants fresh ahead of expiry.
	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		if err := s.tokenMgr.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error().Err(err).Msg("token refresh loop exited")
		}
	}()

	// Database metrics updater.
	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				db.UpdateConnectionMetrics(s.db)
			}
		}
	}()

	// Audit trail consumer.
	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		s.auditSvc.Start(ctx)
	}()

	if s.cache != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.runCacheInvalidationListener(ctx)
		}()
	}
}

// runCacheInvalidationListener subscribes to write events and drops
// the affected cache entries so reads see fresh data.
func (s *Server) runCacheInvalidationListener(ctx context.Context) {
	ruleCreated := s.bus.Subscribe(events.EventRuleCreated)
	ruleUpdated := s.bus.Subscribe(events.EventRuleUpdated)
	ruleDeleted := s.bus.Subscribe(events.EventRuleDeleted)
	tagUpdated := s.bus.Subscribe(events.EventVibeTagUpdated)

	defer func() {
		s.bus.Unsubscribe(events.EventRuleCreated, ruleCreated)
		s.bus.Unsubscribe(events.EventRuleUpdated, ruleUpdated)
		s.bus.Unsubscribe(events.EventRuleDeleted, ruleDeleted)
		s.bus.Unsubscribe(events.EventVibeTagUpdated, tagUpdated)
	}()

	s.logger.Info().Msg("cache invalidation listener started")

	invalidateRules := func(payload events.Payload, reason string) {
		if householdID, ok := payload["household_id"].(string); ok && householdID != "" {
			s.logger.Debug().Str("household_id", householdID).Msg("invalidating rules cache (" + reason + ")")
			s.cache.InvalidateRules(ctx, householdID)
		}
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("cache invalidation listener stopped")
			return
		case payload := <-ruleCreated:
			invalidateRules(payload, "rule created")
		case payload := <-ruleUpdated:
			invalidateRules(payload, "rule updated")
		case payload := <-ruleDeleted:
			invalidateRules(payload, "rule deleted")
		case payload := <-tagUpdated:
			// Tags annotate favorites; drop the favorites entry so the
			// next list shows the new vibe.
			if householdID, ok := payload["household_id"].(string); ok && householdID != "" {
				s.cache.InvalidateFavorites(ctx, householdID)
			}
		}
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	s.router.Handle("/metrics", telemetry.Handler())

	s.api.Routes(s.router)
}
