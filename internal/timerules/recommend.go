/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package timerules

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"time"

	"github.com/friendsincode/vibedeck/internal/models"
)

// TimeContext is the caller-supplied query moment. Callers spanning
// timezones should always set TimezoneOffsetHours; the server-local
// fallback exists for single-site deployments only.
type TimeContext struct {
	Hour int // 0..23
	Day  int // 0..6, 0 = Sunday
	// TimezoneOffsetHours shifts the calendar date used for seeding.
	TimezoneOffsetHours *float64
}

// Item is a playable candidate, typically a vendor favorite.
type Item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Debug carries the matching counters operators need to answer "why
// was nothing recommended". Always populated.
type Debug struct {
	Hour             int                   `json:"hour"`
	Day              int                   `json:"day"`
	TotalRules       int                   `json:"total_rules"`
	BaseRules        int                   `json:"base_rules"`
	OverrideRules    int                   `json:"override_rules"`
	MatchingBase     int                   `json:"matching_base"`
	MatchingOverride int                   `json:"matching_override"`
	ActiveRules      int                   `json:"active_rules"`
	ActiveRuleIDs    []uint                `json:"active_rule_ids"`
	ActiveRuleTypes  []models.VibeRuleType `json:"active_rule_types"`
	AllowedVibes     []models.Vibe         `json:"allowed_vibes"`
	Candidates       int                   `json:"candidates"`
	Filtered         int                   `json:"filtered"`
	SeedInput        string                `json:"seed_input"`
}

// Recommendation is the ephemeral result of one engine invocation.
type Recommendation struct {
	Primary      *Item            `json:"primary"`
	Alternatives []Item           `json:"alternatives"`
	CurrentRule  *models.VibeRule `json:"current_rule"`
	Debug        Debug            `json:"debug"`
}

// VibeOfFunc resolves an item id to its vibe tag, if any.
type VibeOfFunc func(itemID string) (models.Vibe, bool)

// timeNow is swapped out in tests to pin the seeding date.
var timeNow = time.Now

// Recommend computes the active vibe set for the query moment and
// picks one primary item plus alternatives. The pick is deterministic
// per calendar day: a stable hash of the active rule ids and the date
// seeds the index, so repeated polls and concurrent callers agree
// until midnight instead of flip-flopping.
//
// An uncovered hour or an empty filtered set is a normal outcome, not
// an error; the engine degrades to an empty recommendation.
func Recommend(timeCtx TimeContext, rules []models.VibeRule, items []Item, vibeOf VibeOfFunc) Recommendation {
	rec := Recommendation{
		Alternatives: []Item{},
		Debug: Debug{
			Hour:       timeCtx.Hour,
			Day:        timeCtx.Day,
			TotalRules: len(rules),
			Candidates: len(items),
		},
	}

	var matchingBase, matchingOverride []models.VibeRule
	for _, rule := range rules {
		switch rule.RuleType {
		case models.RuleBase:
			rec.Debug.BaseRules++
			if ContainsHour(rule.StartHour, rule.EndHour, timeCtx.Hour) {
				matchingBase = append(matchingBase, rule)
			}
		case models.RuleOverride:
			rec.Debug.OverrideRules++
			if rule.HasDay(timeCtx.Day) && ContainsHour(rule.StartHour, rule.EndHour, timeCtx.Hour) {
				matchingOverride = append(matchingOverride, rule)
			}
		}
	}
	rec.Debug.MatchingBase = len(matchingBase)
	rec.Debug.MatchingOverride = len(matchingOverride)

	// Override fully replaces base for this hour; no union of tiers.
	active := matchingBase
	if len(matchingOverride) > 0 {
		active = matchingOverride
	}
	rec.Debug.ActiveRules = len(active)
	for _, rule := range active {
		rec.Debug.ActiveRuleIDs = append(rec.Debug.ActiveRuleIDs, rule.ID)
		rec.Debug.ActiveRuleTypes = append(rec.Debug.ActiveRuleTypes, rule.RuleType)
	}

	allowed := unionVibes(active)
	rec.Debug.AllowedVibes = allowed
	if len(allowed) == 0 {
		return rec
	}

	allowedSet := make(map[models.Vibe]bool, len(allowed))
	for _, v := range allowed {
		allowedSet[v] = true
	}

	filtered := make([]Item, 0, len(items))
	for _, item := range items {
		if vibe, ok := vibeOf(item.ID); ok && allowedSet[vibe] {
			filtered = append(filtered, item)
		}
	}
	rec.Debug.Filtered = len(filtered)

	currentRule := active[0]
	rec.CurrentRule = &currentRule
	if len(filtered) == 0 {
		return rec
	}

	seedInput := seedInput(active, timeCtx.TimezoneOffsetHours)
	rec.Debug.SeedInput = seedInput
	idx := int(hashSeed(seedInput) % uint32(len(filtered)))

	primary := filtered[idx]
	rec.Primary = &primary
	for i, item := range filtered {
		if i == idx {
			continue
		}
		rec.Alternatives = append(rec.Alternatives, item)
	}

	return rec
}

// unionVibes collects the allowed vibes of the active rules, first
// occurrence order preserved.
func unionVibes(rules []models.VibeRule) []models.Vibe {
	seen := make(map[models.Vibe]bool)
	var out []models.Vibe
	for _, rule := range rules {
		for _, v := range rule.AllowedVibes {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

// seedInput builds "<sorted active ids joined by comma>-<date>". The
// date comes from the caller's timezone offset when supplied so the
// pick rolls over at the caller's midnight, not the server's.
func seedInput(active []models.VibeRule, offsetHours *float64) string {
	ids := make([]int, 0, len(active))
	for _, rule := range active {
		ids = append(ids, int(rule.ID))
	}
	sort.Ints(ids)

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%d", id))
	}

	now := timeNow()
	if offsetHours != nil {
		now = now.UTC().Add(time.Duration(*offsetHours * float64(time.Hour)))
	}

	return strings.Join(parts, ",") + "-" + now.Format("2006-01-02")
}

// hashSeed is FNV-1a over the seed string. Any stable hash works here;
// clients never recompute it independently.
func hashSeed(input string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(input))
	return h.Sum32()
}
