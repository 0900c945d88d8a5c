/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package timerules

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/friendsincode/vibedeck/internal/models"
)

// RuleLister is the read side of the rule repository.
type RuleLister interface {
	List(ctx context.Context, householdID string) ([]models.VibeRule, error)
}

// LoadRules reads the household's rules and returns a normalized set
// safe for matching. It never fails: repository errors are logged and
// collapse to an empty slice, so callers see "no schedule coverage"
// instead of an outage. Malformed rows are dropped row by row.
//
// Normalization per row:
//   - missing or unknown rule_type defaults to base (logged, so the
//     backward-compat path stays observable)
//   - allowed_vibes filtered to the canonical set; empty after
//     filtering drops the row
//   - days filtered to [0,6], deduplicated, sorted; an override with
//     no remaining days is dropped, a base carrying days is dropped
//
// Output is ordered ascending by start hour, stable on ties.
func LoadRules(ctx context.Context, lister RuleLister, householdID string, logger zerolog.Logger) []models.VibeRule {
	raw, err := lister.List(ctx, householdID)
	if err != nil {
		logger.Warn().Err(err).Str("household_id", householdID).Msg("vibe rule load failed, treating as empty rule set")
		return []models.VibeRule{}
	}
	return SanitizeRules(raw, logger)
}

// SanitizeRules applies the row-level normalization policy to an
// already loaded rule slice.
func SanitizeRules(raw []models.VibeRule, logger zerolog.Logger) []models.VibeRule {
	out := make([]models.VibeRule, 0, len(raw))
	for _, rule := range raw {
		sanitized, ok := sanitizeRule(rule, logger)
		if !ok {
			continue
		}
		out = append(out, sanitized)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartHour < out[j].StartHour
	})
	return out
}

func sanitizeRule(rule models.VibeRule, logger zerolog.Logger) (models.VibeRule, bool) {
	if rule.StartHour < 0 || rule.StartHour > 23 || rule.EndHour < 0 || rule.EndHour > 23 {
		logger.Debug().Uint("rule_id", rule.ID).Int("start_hour", rule.StartHour).Int("end_hour", rule.EndHour).Msg("dropping rule with out-of-range hours")
		return models.VibeRule{}, false
	}

	rule.Name = strings.TrimSpace(rule.Name)

	switch rule.RuleType {
	case models.RuleBase, models.RuleOverride:
	default:
		logger.Warn().Uint("rule_id", rule.ID).Str("rule_type", string(rule.RuleType)).Msg("defaulting missing or unknown rule_type to base")
		rule.RuleType = models.RuleBase
	}

	rule.AllowedVibes = filterVibes(rule.AllowedVibes)
	if len(rule.AllowedVibes) == 0 {
		logger.Debug().Uint("rule_id", rule.ID).Msg("dropping rule with no canonical vibes")
		return models.VibeRule{}, false
	}

	switch rule.RuleType {
	case models.RuleBase:
		if len(rule.Days) > 0 {
			logger.Debug().Uint("rule_id", rule.ID).Msg("dropping base rule carrying days")
			return models.VibeRule{}, false
		}
		rule.Days = nil
	case models.RuleOverride:
		rule.Days = filterDays(rule.Days)
		if len(rule.Days) == 0 {
			logger.Debug().Uint("rule_id", rule.ID).Msg("dropping override rule with no valid days")
			return models.VibeRule{}, false
		}
	}

	return rule, true
}
