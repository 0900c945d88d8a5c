/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package timerules

import (
	"errors"
	"fmt"
	"sort"

	"github.com/friendsincode/vibedeck/internal/models"
)

// Structural validation failures. Each wraps into a message naming the
// offending field so API handlers can surface it directly.
var (
	ErrInvalidRange    = errors.New("invalid hour range")
	ErrNoValidVibes    = errors.New("no valid vibes")
	ErrInvalidRuleType = errors.New("invalid rule type")
	ErrInvalidDays     = errors.New("invalid days")
)

// OverlapConflictError reports a collision with an existing rule in the
// same household. It carries enough detail for a human readable message.
type OverlapConflictError struct {
	ConflictID   uint
	ConflictName string
	StartHour    int
	EndHour      int
	// SharedDays is set only for override conflicts.
	SharedDays []int
}

func (e *OverlapConflictError) Error() string {
	label := e.ConflictName
	if label == "" {
		label = fmt.Sprintf("rule %d", e.ConflictID)
	}
	if len(e.SharedDays) > 0 {
		return fmt.Sprintf("time range overlaps %s (%d-%d) on shared days %v", label, e.StartHour, e.EndHour, e.SharedDays)
	}
	return fmt.Sprintf("time range overlaps %s (%d-%d)", label, e.StartHour, e.EndHour)
}

// Validate checks a candidate rule against the structural invariants
// and against its siblings in scope. siblings must be the current rule
// set for the candidate's household, fetched immediately before the
// write; the candidate's own id (when updating) is skipped during the
// overlap pass. Pure check, no side effects.
func Validate(candidate models.VibeRule, siblings []models.VibeRule) error {
	if candidate.StartHour < 0 || candidate.StartHour > 23 {
		return fmt.Errorf("%w: start_hour %d not in [0,23]", ErrInvalidRange, candidate.StartHour)
	}
	if candidate.EndHour < 0 || candidate.EndHour > 23 {
		return fmt.Errorf("%w: end_hour %d not in [0,23]", ErrInvalidRange, candidate.EndHour)
	}

	if len(filterVibes(candidate.AllowedVibes)) == 0 {
		return fmt.Errorf("%w: allowed_vibes must contain at least one of %v", ErrNoValidVibes, models.CanonicalVibes)
	}

	switch candidate.RuleType {
	case models.RuleBase, models.RuleOverride:
	default:
		return fmt.Errorf("%w: rule_type %q", ErrInvalidRuleType, candidate.RuleType)
	}

	if candidate.RuleType == models.RuleBase && len(candidate.Days) > 0 {
		return fmt.Errorf("%w: base rules must not carry days", ErrInvalidDays)
	}
	if candidate.RuleType == models.RuleOverride && len(filterDays(candidate.Days)) == 0 {
		return fmt.Errorf("%w: override rules need at least one weekday in [0,6]", ErrInvalidDays)
	}

	for _, sibling := range siblings {
		if candidate.ID != 0 && sibling.ID == candidate.ID {
			continue
		}
		if sibling.RuleType != candidate.RuleType {
			continue
		}

		var shared []int
		if candidate.RuleType == models.RuleOverride {
			shared = candidate.SharedDays(sibling)
			if len(shared) == 0 {
				continue
			}
		}

		if IntervalsOverlap(candidate.StartHour, candidate.EndHour, sibling.StartHour, sibling.EndHour) {
			return &OverlapConflictError{
				ConflictID:   sibling.ID,
				ConflictName: sibling.Name,
				StartHour:    sibling.StartHour,
				EndHour:      sibling.EndHour,
				SharedDays:   shared,
			}
		}
	}

	return nil
}

// filterVibes retains only canonical vibes, preserving input order.
func filterVibes(vibes []models.Vibe) []models.Vibe {
	out := make([]models.Vibe, 0, len(vibes))
	for _, v := range vibes {
		if models.IsCanonicalVibe(v) {
			out = append(out, v)
		}
	}
	return out
}

// filterDays retains weekdays in [0,6], deduplicated, ascending.
func filterDays(days []int) []int {
	seen := make(map[int]bool, len(days))
	out := make([]int, 0, len(days))
	for _, d := range days {
		if d < 0 || d > 6 || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Ints(out)
	return out
}
