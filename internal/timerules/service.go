/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package timerules

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/vibedeck/internal/cache"
	"github.com/friendsincode/vibedeck/internal/models"
)

// FavoriteSource supplies the candidate items, typically the vendor
// cloud favorites for a household.
type FavoriteSource interface {
	Favorites(ctx context.Context, householdID string) ([]Item, error)
}

// Service runs the recommendation flow end to end: load and sanitize
// rules, fetch candidates, resolve vibe tags, invoke the engine.
type Service struct {
	db        *gorm.DB
	store     *Store
	favorites FavoriteSource
	cache     *cache.Cache
	logger    zerolog.Logger
}

// NewService creates the recommendation service.
func NewService(db *gorm.DB, store *Store, favorites FavoriteSource, logger zerolog.Logger) *Service {
	return &Service{
		db:        db,
		store:     store,
		favorites: favorites,
		logger:    logger.With().Str("component", "vibe_recommender").Logger(),
	}
}

// SetCache wires the Redis cache for rule reads. Optional; without it
// every recommendation hits the database.
func (s *Service) SetCache(c *cache.Cache) {
	s.cache = c
}

// Store exposes the underlying rule store for the write path.
func (s *Service) Store() *Store {
	return s.store
}

// Rules returns the sanitized rule set for a household, from cache
// when possible. Never fails; see LoadRules.
func (s *Service) Rules(ctx context.Context, householdID string) []models.VibeRule {
	if s.cache != nil {
		var cached []models.VibeRule
		if hit, _ := s.cache.GetRules(ctx, householdID, &cached); hit {
			return SanitizeRules(cached, s.logger)
		}
	}

	raw, err := s.store.List(ctx, householdID)
	if err != nil {
		s.logger.Warn().Err(err).Str("household_id", householdID).Msg("vibe rule load failed, treating as empty rule set")
		return []models.VibeRule{}
	}

	if s.cache != nil {
		_ = s.cache.SetRules(ctx, householdID, raw)
	}
	return SanitizeRules(raw, s.logger)
}

// RecommendNow computes the recommendation for the query moment.
// Rule repository problems degrade to an empty rule set; a failing
// favorites source propagates so callers can report the vendor outage.
func (s *Service) RecommendNow(ctx context.Context, householdID string, timeCtx TimeContext) (Recommendation, error) {
	rules := s.Rules(ctx, householdID)

	items, err := s.favorites.Favorites(ctx, householdID)
	if err != nil {
		return Recommendation{}, err
	}

	tags := s.vibeTags(ctx, householdID)
	vibeOf := func(itemID string) (models.Vibe, bool) {
		vibe, ok := tags[itemID]
		return vibe, ok
	}

	rec := Recommend(timeCtx, rules, items, vibeOf)
	s.logger.Debug().
		Str("household_id", householdID).
		Int("hour", timeCtx.Hour).
		Int("day", timeCtx.Day).
		Int("active_rules", rec.Debug.ActiveRules).
		Int("filtered", rec.Debug.Filtered).
		Bool("has_primary", rec.Primary != nil).
		Msg("recommendation computed")
	return rec, nil
}

// vibeTags loads the household's favorite-to-vibe mapping. Read
// failures degrade to an empty map; the engine then filters everything
// out, which surfaces in the debug counters.
func (s *Service) vibeTags(ctx context.Context, householdID string) map[string]models.Vibe {
	var rows []models.VibeTag
	if err := s.db.WithContext(ctx).Where("household_id = ?", householdID).Find(&rows).Error; err != nil {
		s.logger.Warn().Err(err).Str("household_id", householdID).Msg("vibe tag load failed")
		return map[string]models.Vibe{}
	}

	tags := make(map[string]models.Vibe, len(rows))
	for _, row := range rows {
		tags[row.FavoriteID] = row.Vibe
	}
	return tags
}
