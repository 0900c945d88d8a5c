/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package timerules

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/vibedeck/internal/models"
)

// ErrRuleNotFound is returned for updates or deletes of unknown rules.
var ErrRuleNotFound = errors.New("vibe rule not found")

// Store persists vibe rules and guards every write with the validator.
type Store struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewStore creates a rule store.
func NewStore(db *gorm.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "vibe_rule_store").Logger(),
	}
}

// List returns the raw rules for a household in repository order.
// Callers on the matching path should go through LoadRules instead.
func (s *Store) List(ctx context.Context, householdID string) ([]models.VibeRule, error) {
	var rules []models.VibeRule
	err := s.db.WithContext(ctx).
		Where("household_id = ?", householdID).
		Order("id ASC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// Get returns one rule by id within a household.
func (s *Store) Get(ctx context.Context, householdID string, id uint) (models.VibeRule, error) {
	var rule models.VibeRule
	err := s.db.WithContext(ctx).
		First(&rule, "household_id = ? AND id = ?", householdID, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.VibeRule{}, ErrRuleNotFound
	}
	if err != nil {
		return models.VibeRule{}, err
	}
	return rule, nil
}

// Save normalizes, validates, and persists a rule. A zero ID inserts;
// a non-zero ID updates in place, excluding the rule itself from the
// sibling overlap comparison. The sibling set is re-fetched inside the
// transaction so concurrent writers cannot both validate against the
// same stale snapshot.
func (s *Store) Save(ctx context.Context, rule models.VibeRule) (models.VibeRule, error) {
	if rule.HouseholdID == "" {
		return models.VibeRule{}, fmt.Errorf("household id required")
	}

	rule.Name = strings.TrimSpace(rule.Name)
	if rule.RuleType == "" {
		rule.RuleType = models.RuleBase
	}
	if rule.RuleType == models.RuleOverride {
		rule.Days = filterDays(rule.Days)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var siblings []models.VibeRule
		if err := tx.Where("household_id = ?", rule.HouseholdID).Find(&siblings).Error; err != nil {
			return err
		}

		if err := Validate(rule, siblings); err != nil {
			return err
		}

		if rule.ID == 0 {
			return tx.Create(&rule).Error
		}

		result := tx.Model(&models.VibeRule{}).
			Where("household_id = ? AND id = ?", rule.HouseholdID, rule.ID).
			Select("name", "start_hour", "end_hour", "allowed_vibes", "rule_type", "days").
			Updates(&rule)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrRuleNotFound
		}
		return tx.First(&rule, "id = ?", rule.ID).Error
	})
	if err != nil {
		return models.VibeRule{}, err
	}

	s.logger.Info().
		Uint("rule_id", rule.ID).
		Str("household_id", rule.HouseholdID).
		Str("rule_type", string(rule.RuleType)).
		Int("start_hour", rule.StartHour).
		Int("end_hour", rule.EndHour).
		Msg("vibe rule saved")

	return rule, nil
}

// Delete removes a rule by id. Recommendations are never persisted, so
// there is nothing to cascade.
func (s *Store) Delete(ctx context.Context, householdID string, id uint) error {
	if id == 0 {
		return ErrRuleNotFound
	}
	result := s.db.WithContext(ctx).
		Where("household_id = ? AND id = ?", householdID, id).
		Delete(&models.VibeRule{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRuleNotFound
	}

	s.logger.Info().Uint("rule_id", id).Str("household_id", householdID).Msg("vibe rule deleted")
	return nil
}
