/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package speaker

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/vibedeck/internal/cache"
	"github.com/friendsincode/vibedeck/internal/events"
	"github.com/friendsincode/vibedeck/internal/models"
	"github.com/friendsincode/vibedeck/internal/timerules"
)

// ErrHouseholdNotFound is returned for unknown household ids.
var ErrHouseholdNotFound = errors.New("household not found")

// ErrNoGroups is returned when a household has no addressable group.
var ErrNoGroups = errors.New("household has no speaker groups")

// PlayOptions tunes the orchestration around loading a favorite.
type PlayOptions struct {
	// Autogroup merges every player in the household into one group
	// before playback.
	Autogroup bool
	// ApplyDefaultVolumes pushes each speaker's configured default
	// volume before playback starts.
	ApplyDefaultVolumes bool
}

// Service orchestrates household playback over the vendor client.
type Service struct {
	db     *gorm.DB
	client *Client
	cache  *cache.Cache
	bus    *events.Bus
	logger zerolog.Logger
}

// NewService creates the orchestration service.
func NewService(db *gorm.DB, client *Client, bus *events.Bus, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		client: client,
		bus:    bus,
		logger: logger.With().Str("component", "speaker_service").Logger(),
	}
}

// SetCache wires the Redis cache for favorites and group topology.
func (s *Service) SetCache(c *cache.Cache) {
	s.cache = c
}

// household resolves the local household record. The household's
// vendor id doubles as the token device id: one control grant per
// household.
func (s *Service) household(ctx context.Context, householdID string) (models.Household, error) {
	var hh models.Household
	err := s.db.WithContext(ctx).First(&hh, "id = ?", householdID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Household{}, ErrHouseholdNotFound
	}
	if err != nil {
		return models.Household{}, err
	}
	return hh, nil
}

// Topology returns the household's current groups and players.
func (s *Service) Topology(ctx context.Context, householdID string) (Topology, error) {
	hh, err := s.household(ctx, householdID)
	if err != nil {
		return Topology{}, err
	}

	if s.cache != nil {
		var cached Topology
		if hit, _ := s.cache.GetGroups(ctx, householdID, &cached); hit {
			return cached, nil
		}
	}

	topo, err := s.client.Topology(ctx, hh.VendorID, hh.VendorID)
	if err != nil {
		return Topology{}, err
	}

	if s.cache != nil {
		_ = s.cache.SetGroups(ctx, householdID, topo)
	}
	return topo, nil
}

// Favorites lists the household favorites as recommendation items.
// Implements timerules.FavoriteSource.
func (s *Service) Favorites(ctx context.Context, householdID string) ([]timerules.Item, error) {
	hh, err := s.household(ctx, householdID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		var cached []timerules.Item
		if hit, _ := s.cache.GetFavorites(ctx, householdID, &cached); hit {
			return cached, nil
		}
	}

	favorites, err := s.client.Favorites(ctx, hh.VendorID, hh.VendorID)
	if err != nil {
		return nil, err
	}

	items := make([]timerules.Item, 0, len(favorites))
	for _, fav := range favorites {
		items = append(items, timerules.Item{ID: fav.ID, Name: fav.Name})
	}

	if s.cache != nil {
		_ = s.cache.SetFavorites(ctx, householdID, items)
	}
	s.bus.Publish(events.EventFavoritesFetched, events.Payload{"household_id": householdID, "count": len(items)})
	return items, nil
}

// PlayFavorite runs the full playback orchestration: optionally merge
// all players into one group, clear the target group's queue, apply
// per-speaker default volumes, load the favorite, play.
func (s *Service) PlayFavorite(ctx context.Context, householdID, favoriteID string, opts PlayOptions) (Group, error) {
	hh, err := s.household(ctx, householdID)
	if err != nil {
		return Group{}, err
	}

	topo, err := s.client.Topology(ctx, hh.VendorID, hh.VendorID)
	if err != nil {
		return Group{}, err
	}

	target, err := s.resolveTarget(ctx, hh, topo, opts.Autogroup)
	if err != nil {
		return Group{}, err
	}

	if err := s.client.ClearQueue(ctx, hh.VendorID, target.ID); err != nil {
		// Queue clearing is best effort: some firmware revisions
		// reject it while idle.
		s.logger.Warn().Err(err).Str("group_id", target.ID).Msg("queue clear failed")
	}

	if opts.ApplyDefaultVolumes {
		s.applyDefaultVolumes(ctx, hh, target)
	}

	if err := s.client.LoadFavorite(ctx, hh.VendorID, target.ID, favoriteID, true); err != nil {
		return Group{}, fmt.Errorf("load favorite: %w", err)
	}

	s.bus.Publish(events.EventPlaybackStarted, events.Payload{
		"household_id": householdID,
		"group_id":     target.ID,
		"favorite_id":  favoriteID,
	})
	if s.cache != nil {
		s.cache.InvalidateGroups(ctx, householdID)
	}

	s.logger.Info().
		Str("household_id", householdID).
		Str("group_id", target.ID).
		Str("favorite_id", favoriteID).
		Bool("autogroup", opts.Autogroup).
		Msg("favorite playback started")

	return target, nil
}

// resolveTarget picks the group to play on, merging all players first
// when autogrouping.
func (s *Service) resolveTarget(ctx context.Context, hh models.Household, topo Topology, autogroup bool) (Group, error) {
	if autogroup && len(topo.Players) > 1 {
		playerIDs := make([]string, 0, len(topo.Players))
		for _, p := range topo.Players {
			playerIDs = append(playerIDs, p.ID)
		}
		merged, err := s.client.CreateGroup(ctx, hh.VendorID, hh.VendorID, playerIDs)
		if err != nil {
			return Group{}, fmt.Errorf("autogroup: %w", err)
		}
		s.bus.Publish(events.EventGroupChanged, events.Payload{"household_id": hh.ID, "group_id": merged.ID})
		return merged, nil
	}

	if len(topo.Groups) == 0 {
		return Group{}, ErrNoGroups
	}
	// Prefer the largest existing group.
	target := topo.Groups[0]
	for _, g := range topo.Groups[1:] {
		if len(g.PlayerIDs) > len(target.PlayerIDs) {
			target = g
		}
	}
	return target, nil
}

// applyDefaultVolumes pushes configured per-speaker volumes for every
// player in the target group. Failures are logged, not fatal; playback
// matters more than a volume tweak.
func (s *Service) applyDefaultVolumes(ctx context.Context, hh models.Household, target Group) {
	var speakers []models.Speaker
	if err := s.db.WithContext(ctx).Where("household_id = ?", hh.ID).Find(&speakers).Error; err != nil {
		s.logger.Warn().Err(err).Str("household_id", hh.ID).Msg("speaker load failed, skipping default volumes")
		return
	}

	byVendorID := make(map[string]models.Speaker, len(speakers))
	for _, sp := range speakers {
		byVendorID[sp.VendorID] = sp
	}

	for _, playerID := range target.PlayerIDs {
		sp, ok := byVendorID[playerID]
		if !ok || sp.DefaultVolume <= 0 {
			continue
		}
		if err := s.client.SetPlayerVolume(ctx, hh.VendorID, playerID, sp.DefaultVolume); err != nil {
			s.logger.Warn().Err(err).Str("player_id", playerID).Msg("default volume apply failed")
			continue
		}
		s.bus.Publish(events.EventVolumeChanged, events.Payload{"player_id": playerID, "volume": sp.DefaultVolume})
	}
}

// Pause pauses the given group.
func (s *Service) Pause(ctx context.Context, householdID, groupID string) error {
	hh, err := s.household(ctx, householdID)
	if err != nil {
		return err
	}
	if err := s.client.Pause(ctx, hh.VendorID, groupID); err != nil {
		return err
	}
	s.bus.Publish(events.EventPlaybackStopped, events.Payload{"household_id": householdID, "group_id": groupID})
	return nil
}

// Play resumes the given group.
func (s *Service) Play(ctx context.Context, householdID, groupID string) error {
	hh, err := s.household(ctx, householdID)
	if err != nil {
		return err
	}
	if err := s.client.Play(ctx, hh.VendorID, groupID); err != nil {
		return err
	}
	s.bus.Publish(events.EventPlaybackStarted, events.Payload{"household_id": householdID, "group_id": groupID})
	return nil
}

// SetGroupVolume sets an absolute group volume.
func (s *Service) SetGroupVolume(ctx context.Context, householdID, groupID string, volume int) error {
	if volume < 0 || volume > 100 {
		return fmt.Errorf("volume %d not in [0,100]", volume)
	}
	hh, err := s.household(ctx, householdID)
	if err != nil {
		return err
	}
	if err := s.client.SetGroupVolume(ctx, hh.VendorID, groupID, volume); err != nil {
		return err
	}
	s.bus.Publish(events.EventVolumeChanged, events.Payload{"group_id": groupID, "volume": volume})
	return nil
}

// AdjustGroupVolume nudges the group volume by delta.
func (s *Service) AdjustGroupVolume(ctx context.Context, householdID, groupID string, delta int) error {
	hh, err := s.household(ctx, householdID)
	if err != nil {
		return err
	}
	if err := s.client.SetRelativeGroupVolume(ctx, hh.VendorID, groupID, delta); err != nil {
		return err
	}
	s.bus.Publish(events.EventVolumeChanged, events.Payload{"group_id": groupID, "delta": delta})
	return nil
}
