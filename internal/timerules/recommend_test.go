/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package timerules

import (
	"testing"
	"time"

	"github.com/friendsincode/vibedeck/internal/models"
)

func fixedNow(t *testing.T, value string) {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("bad fixture time %q: %v", value, err)
	}
	orig := timeNow
	timeNow = func() time.Time { return parsed }
	t.Cleanup(func() { timeNow = orig })
}

func tagLookup(tags map[string]models.Vibe) VibeOfFunc {
	return func(itemID string) (models.Vibe, bool) {
		vibe, ok := tags[itemID]
		return vibe, ok
	}
}

func testItems() []Item {
	return []Item{
		{ID: "fav-1", Name: "Quiet Mornings"},
		{ID: "fav-2", Name: "Afternoon Flow"},
		{ID: "fav-3", Name: "Deep Focus"},
		{ID: "fav-4", Name: "Untagged Mix"},
	}
}

func testTags() map[string]models.Vibe {
	return map[string]models.Vibe{
		"fav-1": models.VibeDown,
		"fav-2": models.VibeMid,
		"fav-3": models.VibeDown,
	}
}

func TestRecommendPicksFromActiveBaseRule(t *testing.T) {
	fixedNow(t, "2026-03-10T09:30:00Z")

	rules := []models.VibeRule{
		func() models.VibeRule {
			r := baseRule(1, "mornings", 6, 12)
			r.AllowedVibes = []models.Vibe{models.VibeDown}
			return r
		}(),
		func() models.VibeRule {
			r := baseRule(2, "afternoons", 12, 19)
			r.AllowedVibes = []models.Vibe{models.VibeMid}
			return r
		}(),
	}

	rec := Recommend(TimeContext{Hour: 9, Day: 2}, rules, testItems(), tagLookup(testTags()))

	if rec.Primary == nil {
		t.Fatal("no primary picked")
	}
	if rec.Primary.ID != "fav-1" && rec.Primary.ID != "fav-3" {
		t.Errorf("primary %q is not a Down-tagged favorite", rec.Primary.ID)
	}
	if rec.CurrentRule == nil || rec.CurrentRule.ID != 1 {
		t.Errorf("current rule = %+v, want rule 1", rec.CurrentRule)
	}
	if rec.Debug.Filtered != 2 {
		t.Errorf("filtered = %d, want 2 (Down-tagged only)", rec.Debug.Filtered)
	}
	if len(rec.Alternatives) != 1 {
		t.Errorf("alternatives = %d, want 1", len(rec.Alternatives))
	}
	if rec.Primary.ID == rec.Alternatives[0].ID {
		t.Error("primary duplicated in alternatives")
	}
}

func TestRecommendOverrideReplacesBase(t *testing.T) {
	fixedNow(t, "2026-03-10T18:00:00Z")

	rules := []models.VibeRule{
		func() models.VibeRule {
			r := baseRule(1, "evenings", 17, 22)
			r.AllowedVibes = []models.Vibe{models.VibeMid}
			return r
		}(),
		func() models.VibeRule {
			// Tuesday wind-down overrides the Mid evening.
			r := overrideRule(2, "tuesday wind-down", 17, 22, []int{2})
			r.AllowedVibes = []models.Vibe{models.VibeDown}
			return r
		}(),
	}

	// Tuesday: the override is active and fully replaces the base tier.
	rec := Recommend(TimeContext{Hour: 18, Day: 2}, rules, testItems(), tagLookup(testTags()))
	if rec.Debug.MatchingBase != 1 || rec.Debug.MatchingOverride != 1 {
		t.Fatalf("matching base/override = %d/%d, want 1/1", rec.Debug.MatchingBase, rec.Debug.MatchingOverride)
	}
	if rec.CurrentRule == nil || rec.CurrentRule.ID != 2 {
		t.Errorf("current rule = %+v, want override rule 2", rec.CurrentRule)
	}
	if len(rec.Debug.AllowedVibes) != 1 || rec.Debug.AllowedVibes[0] != models.VibeDown {
		t.Errorf("allowed vibes = %v, want [Down]", rec.Debug.AllowedVibes)
	}

	// Wednesday: override day does not match, base rule is back.
	rec = Recommend(TimeContext{Hour: 18, Day: 3}, rules, testItems(), tagLookup(testTags()))
	if rec.CurrentRule == nil || rec.CurrentRule.ID != 1 {
		t.Errorf("current rule = %+v, want base rule 1", rec.CurrentRule)
	}
	if rec.Primary == nil || rec.Primary.ID != "fav-2" {
		t.Errorf("primary = %+v, want fav-2 (the only Mid favorite)", rec.Primary)
	}
}

func TestRecommendUncoveredHour(t *testing.T) {
	fixedNow(t, "2026-03-10T03:00:00Z")

	rules := []models.VibeRule{baseRule(1, "daytime", 8, 20)}
	rec := Recommend(TimeContext{Hour: 3, Day: 2}, rules, testItems(), tagLookup(testTags()))

	if rec.Primary != nil {
		t.Errorf("primary = %+v, want nil for uncovered hour", rec.Primary)
	}
	if rec.CurrentRule != nil {
		t.Errorf("current rule = %+v, want nil", rec.CurrentRule)
	}
	if rec.Alternatives == nil || len(rec.Alternatives) != 0 {
		t.Errorf("alternatives = %v, want empty non-nil slice", rec.Alternatives)
	}
	if rec.Debug.ActiveRules != 0 {
		t.Errorf("active rules = %d, want 0", rec.Debug.ActiveRules)
	}
}

func TestRecommendEmptyFilterKeepsCurrentRule(t *testing.T) {
	fixedNow(t, "2026-03-10T09:00:00Z")

	rules := []models.VibeRule{
		func() models.VibeRule {
			r := baseRule(1, "mornings", 6, 12)
			r.AllowedVibes = []models.Vibe{models.VibeDownMid}
			return r
		}(),
	}

	// No favorite carries the Down/Mid tag, so filtering empties the
	// candidate set while the rule itself stays reportable.
	rec := Recommend(TimeContext{Hour: 9, Day: 2}, rules, testItems(), tagLookup(testTags()))
	if rec.Primary != nil {
		t.Errorf("primary = %+v, want nil", rec.Primary)
	}
	if rec.CurrentRule == nil || rec.CurrentRule.ID != 1 {
		t.Errorf("current rule = %+v, want rule 1", rec.CurrentRule)
	}
	if rec.Debug.Candidates != 4 || rec.Debug.Filtered != 0 {
		t.Errorf("candidates/filtered = %d/%d, want 4/0", rec.Debug.Candidates, rec.Debug.Filtered)
	}
}

func TestRecommendDeterministicPerDay(t *testing.T) {
	fixedNow(t, "2026-03-10T09:00:00Z")

	rules := []models.VibeRule{
		func() models.VibeRule {
			r := baseRule(1, "mornings", 6, 12)
			r.AllowedVibes = []models.Vibe{models.VibeDown}
			return r
		}(),
	}

	first := Recommend(TimeContext{Hour: 9, Day: 2}, rules, testItems(), tagLookup(testTags()))
	second := Recommend(TimeContext{Hour: 11, Day: 2}, rules, testItems(), tagLookup(testTags()))
	if first.Primary == nil || second.Primary == nil {
		t.Fatal("expected primaries on both calls")
	}
	if first.Primary.ID != second.Primary.ID {
		t.Errorf("same day picked %q then %q, want a stable pick", first.Primary.ID, second.Primary.ID)
	}
	if first.Debug.SeedInput != "1-2026-03-10" {
		t.Errorf("seed input = %q, want %q", first.Debug.SeedInput, "1-2026-03-10")
	}
}

func TestRecommendTimezoneOffsetShiftsSeedDate(t *testing.T) {
	// 23:30 UTC on March 10th is already March 11th at UTC+10.
	fixedNow(t, "2026-03-10T23:30:00Z")

	rules := []models.VibeRule{
		func() models.VibeRule {
			r := baseRule(1, "all day", 0, 0)
			r.AllowedVibes = []models.Vibe{models.VibeDown}
			return r
		}(),
	}

	offset := 10.0
	rec := Recommend(TimeContext{Hour: 9, Day: 3, TimezoneOffsetHours: &offset}, rules, testItems(), tagLookup(testTags()))
	if rec.Debug.SeedInput != "1-2026-03-11" {
		t.Errorf("seed input = %q, want %q", rec.Debug.SeedInput, "1-2026-03-11")
	}

	behind := -2.0
	rec = Recommend(TimeContext{Hour: 21, Day: 2, TimezoneOffsetHours: &behind}, rules, testItems(), tagLookup(testTags()))
	if rec.Debug.SeedInput != "1-2026-03-10" {
		t.Errorf("seed input = %q, want %q", rec.Debug.SeedInput, "1-2026-03-10")
	}
}

func TestRecommendUnionsVibesAcrossActiveRules(t *testing.T) {
	fixedNow(t, "2026-03-10T09:00:00Z")

	// Two overrides active at the same hour on the same day can only
	// exist as legacy rows that predate overlap validation; the engine
	// still unions their vibes rather than picking one.
	rules := []models.VibeRule{
		func() models.VibeRule {
			r := overrideRule(1, "legacy a", 6, 12, []int{2})
			r.AllowedVibes = []models.Vibe{models.VibeDown}
			return r
		}(),
		func() models.VibeRule {
			r := overrideRule(2, "legacy b", 8, 14, []int{2})
			r.AllowedVibes = []models.Vibe{models.VibeMid}
			return r
		}(),
	}

	rec := Recommend(TimeContext{Hour: 9, Day: 2}, rules, testItems(), tagLookup(testTags()))
	if len(rec.Debug.AllowedVibes) != 2 {
		t.Fatalf("allowed vibes = %v, want union of Down and Mid", rec.Debug.AllowedVibes)
	}
	if rec.Debug.Filtered != 3 {
		t.Errorf("filtered = %d, want 3", rec.Debug.Filtered)
	}
	if rec.Debug.SeedInput != "1,2-2026-03-10" {
		t.Errorf("seed input = %q, want %q", rec.Debug.SeedInput, "1,2-2026-03-10")
	}
}
