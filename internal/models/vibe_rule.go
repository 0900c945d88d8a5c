/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// Vibe is a mood tag attached to a playable favorite.
type Vibe string

const (
	VibeDown    Vibe = "Down"
	VibeDownMid Vibe = "Down/Mid"
	VibeMid     Vibe = "Mid"
)

// CanonicalVibes is the closed set of vibes the system understands.
// Extending it means touching every place it is validated.
var CanonicalVibes = []Vibe{VibeDown, VibeDownMid, VibeMid}

// IsCanonicalVibe reports whether v is one of the three known vibes.
func IsCanonicalVibe(v Vibe) bool {
	switch v {
	case VibeDown, VibeDownMid, VibeMid:
		return true
	}
	return false
}

// VibeRuleType distinguishes the two rule tiers.
type VibeRuleType string

const (
	// RuleBase is a recurring daily schedule entry not tied to weekdays.
	RuleBase VibeRuleType = "base"
	// RuleOverride is tied to specific weekdays and takes precedence
	// over base rules when active.
	RuleOverride VibeRuleType = "override"
)

// VibeRule maps an hour window (and, for overrides, a weekday set) to
// the vibes allowed inside that window. StartHour/EndHour bound the
// half-open interval [StartHour, EndHour); EndHour < StartHour means
// the window wraps past midnight.
type VibeRule struct {
	ID           uint         `gorm:"primaryKey;autoIncrement" json:"id"`
	HouseholdID  string       `gorm:"type:uuid;index:idx_vibe_rules_household;not null" json:"household_id"`
	Name         string       `gorm:"type:varchar(255)" json:"name,omitempty"`
	StartHour    int          `gorm:"not null" json:"start_hour"`
	EndHour      int          `gorm:"not null" json:"end_hour"`
	AllowedVibes []Vibe       `gorm:"serializer:json;not null" json:"allowed_vibes"`
	RuleType     VibeRuleType `gorm:"type:varchar(16);not null;default:'base'" json:"rule_type"`
	// Days is nil for base rules. For overrides it is a deduplicated,
	// ascending weekday list, 0 = Sunday.
	Days      []int     `gorm:"serializer:json" json:"days,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (VibeRule) TableName() string {
	return "vibe_rules"
}

// HasDay reports whether the rule's weekday set contains day.
func (r VibeRule) HasDay(day int) bool {
	for _, d := range r.Days {
		if d == day {
			return true
		}
	}
	return false
}

// SharedDays returns the weekdays present in both rules, ascending.
func (r VibeRule) SharedDays(other VibeRule) []int {
	var shared []int
	for _, d := range r.Days {
		if other.HasDay(d) {
			shared = append(shared, d)
		}
	}
	return shared
}

// AllowsVibe reports whether v is in the rule's allowed set.
func (r VibeRule) AllowsVibe(v Vibe) bool {
	for _, allowed := range r.AllowedVibes {
		if allowed == v {
			return true
		}
	}
	return false
}
