/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package timerules

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/vibedeck/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.VibeRule{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return NewStore(db, zerolog.Nop())
}

func TestStoreSaveAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	saved, err := store.Save(ctx, models.VibeRule{
		HouseholdID:  "hh-1",
		Name:         "  mornings  ",
		StartHour:    6,
		EndHour:      12,
		AllowedVibes: []models.Vibe{models.VibeDown},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.ID == 0 {
		t.Error("saved rule has zero id")
	}
	if saved.Name != "mornings" {
		t.Errorf("name = %q, want trimmed %q", saved.Name, "mornings")
	}
	if saved.RuleType != models.RuleBase {
		t.Errorf("rule type = %q, want default base", saved.RuleType)
	}

	rules, err := store.List(ctx, "hh-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rules) != 1 || rules[0].ID != saved.ID {
		t.Fatalf("list = %+v, want the saved rule", rules)
	}

	// Other households see nothing.
	other, err := store.List(ctx, "hh-2")
	if err != nil {
		t.Fatalf("list other: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("other household sees %d rules, want 0", len(other))
	}
}

func TestStoreSaveRejectsOverlap(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.Save(ctx, models.VibeRule{
		HouseholdID:  "hh-1",
		Name:         "mornings",
		StartHour:    6,
		EndHour:      12,
		AllowedVibes: []models.Vibe{models.VibeDown},
	})
	if err != nil {
		t.Fatalf("save first: %v", err)
	}

	_, err = store.Save(ctx, models.VibeRule{
		HouseholdID:  "hh-1",
		Name:         "late breakfast",
		StartHour:    10,
		EndHour:      14,
		AllowedVibes: []models.Vibe{models.VibeMid},
	})
	var conflict *OverlapConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("save overlap = %v, want OverlapConflictError", err)
	}
	if conflict.ConflictID != first.ID {
		t.Errorf("conflict id = %d, want %d", conflict.ConflictID, first.ID)
	}

	// The rejected rule must not have been persisted.
	rules, err := store.List(ctx, "hh-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rules) != 1 {
		t.Errorf("list has %d rules after rejected save, want 1", len(rules))
	}

	// Same hours in a different household are fine.
	if _, err := store.Save(ctx, models.VibeRule{
		HouseholdID:  "hh-2",
		Name:         "late breakfast",
		StartHour:    10,
		EndHour:      14,
		AllowedVibes: []models.Vibe{models.VibeMid},
	}); err != nil {
		t.Fatalf("save in other household: %v", err)
	}
}

func TestStoreUpdateExcludesSelfFromOverlapCheck(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	saved, err := store.Save(ctx, models.VibeRule{
		HouseholdID:  "hh-1",
		Name:         "mornings",
		StartHour:    6,
		EndHour:      12,
		AllowedVibes: []models.Vibe{models.VibeDown},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	saved.EndHour = 13
	saved.AllowedVibes = []models.Vibe{models.VibeDown, models.VibeDownMid}
	updated, err := store.Save(ctx, saved)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != saved.ID {
		t.Errorf("update changed id: %d -> %d", saved.ID, updated.ID)
	}
	if updated.EndHour != 13 {
		t.Errorf("end hour = %d, want 13", updated.EndHour)
	}
	if len(updated.AllowedVibes) != 2 {
		t.Errorf("allowed vibes = %v, want two entries", updated.AllowedVibes)
	}
}

func TestStoreSaveUnknownIDReturnsNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Save(context.Background(), models.VibeRule{
		ID:           999,
		HouseholdID:  "hh-1",
		Name:         "ghost",
		StartHour:    6,
		EndHour:      12,
		AllowedVibes: []models.Vibe{models.VibeDown},
	})
	if !errors.Is(err, ErrRuleNotFound) {
		t.Fatalf("save unknown id = %v, want ErrRuleNotFound", err)
	}
}

func TestStoreSaveOverrideNormalizesDays(t *testing.T) {
	store := newTestStore(t)

	saved, err := store.Save(context.Background(), models.VibeRule{
		HouseholdID:  "hh-1",
		Name:         "weekend",
		StartHour:    9,
		EndHour:      14,
		AllowedVibes: []models.Vibe{models.VibeMid},
		RuleType:     models.RuleOverride,
		Days:         []int{6, 0, 6, 9},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(saved.Days) != 2 || saved.Days[0] != 0 || saved.Days[1] != 6 {
		t.Errorf("days = %v, want [0 6]", saved.Days)
	}
}

func TestStoreGetAndDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	saved, err := store.Save(ctx, models.VibeRule{
		HouseholdID:  "hh-1",
		Name:         "mornings",
		StartHour:    6,
		EndHour:      12,
		AllowedVibes: []models.Vibe{models.VibeDown},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Get(ctx, "hh-1", saved.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "mornings" {
		t.Errorf("get name = %q, want %q", got.Name, "mornings")
	}

	// Household scoping applies to reads too.
	if _, err := store.Get(ctx, "hh-2", saved.ID); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("cross-household get = %v, want ErrRuleNotFound", err)
	}

	if err := store.Delete(ctx, "hh-1", saved.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "hh-1", saved.ID); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("second delete = %v, want ErrRuleNotFound", err)
	}
	if _, err := store.Get(ctx, "hh-1", saved.ID); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("get after delete = %v, want ErrRuleNotFound", err)
	}
}
