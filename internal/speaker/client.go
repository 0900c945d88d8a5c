/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package speaker talks to the vendor's speaker cloud control API and
// layers the household orchestration (autogrouping, queue clearing,
// default volumes) on top of it.
package speaker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// TokenProvider supplies a valid vendor access token for a device.
type TokenProvider interface {
	AccessToken(ctx context.Context, deviceID string) (string, error)
}

// APIError is a non-2xx response from the vendor control API.
type APIError struct {
	Status  int
	Code    string `json:"errorCode"`
	Message string `json:"reason"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("vendor api %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("vendor api %d", e.Status)
}

// Group is a synchronized set of players, the unit playback commands
// address.
type Group struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	PlayerIDs []string `json:"playerIds"`
}

// Player is a single speaker as the vendor reports it.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Topology is the household's current group layout.
type Topology struct {
	Groups  []Group  `json:"groups"`
	Players []Player `json:"players"`
}

// Favorite is an item saved in the vendor cloud.
type Favorite struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Client calls the vendor control API. All commands are scoped to a
// device whose OAuth grant authorizes the household.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenProvider
	logger  zerolog.Logger
}

// NewClient creates a control API client.
func NewClient(baseURL string, tokens TokenProvider, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		tokens:  tokens,
		logger:  logger.With().Str("component", "speaker_client").Logger(),
	}
}

// Topology fetches the household's groups and players.
func (c *Client) Topology(ctx context.Context, deviceID, householdID string) (Topology, error) {
	var topo Topology
	err := c.do(ctx, deviceID, http.MethodGet, fmt.Sprintf("/households/%s/groups", householdID), nil, &topo)
	return topo, err
}

// Favorites lists the household's saved favorites.
func (c *Client) Favorites(ctx context.Context, deviceID, householdID string) ([]Favorite, error) {
	var out struct {
		Items []Favorite `json:"items"`
	}
	err := c.do(ctx, deviceID, http.MethodGet, fmt.Sprintf("/households/%s/favorites", householdID), nil, &out)
	return out.Items, err
}

// CreateGroup merges the given players into one group and returns it.
func (c *Client) CreateGroup(ctx context.Context, deviceID, householdID string, playerIDs []string) (Group, error) {
	body := map[string]any{"playerIds": playerIDs}
	var out struct {
		Group Group `json:"group"`
	}
	err := c.do(ctx, deviceID, http.MethodPost, fmt.Sprintf("/households/%s/groups/createGroup", householdID), body, &out)
	return out.Group, err
}

// LoadFavorite replaces the group's content with a favorite.
func (c *Client) LoadFavorite(ctx context.Context, deviceID, groupID, favoriteID string, playOnCompletion bool) error {
	body := map[string]any{
		"favoriteId":       favoriteID,
		"playOnCompletion": playOnCompletion,
	}
	return c.do(ctx, deviceID, http.MethodPost, fmt.Sprintf("/groups/%s/favorites", groupID), body, nil)
}

// ClearQueue empties the group's queue. Done before loading new
// content so leftovers never bleed into the session.
func (c *Client) ClearQueue(ctx context.Context, deviceID, groupID string) error {
	return c.do(ctx, deviceID, http.MethodPost, fmt.Sprintf("/groups/%s/queue/clear", groupID), map[string]any{}, nil)
}

// Play starts group playback.
func (c *Client) Play(ctx context.Context, deviceID, groupID string) error {
	return c.do(ctx, deviceID, http.MethodPost, fmt.Sprintf("/groups/%s/playback/play", groupID), map[string]any{}, nil)
}

// Pause pauses group playback.
func (c *Client) Pause(ctx context.Context, deviceID, groupID string) error {
	return c.do(ctx, deviceID, http.MethodPost, fmt.Sprintf("/groups/%s/playback/pause", groupID), map[string]any{}, nil)
}

// SetGroupVolume sets the absolute group volume, 0-100.
func (c *Client) SetGroupVolume(ctx context.Context, deviceID, groupID string, volume int) error {
	body := map[string]any{"volume": volume}
	return c.do(ctx, deviceID, http.MethodPost, fmt.Sprintf("/groups/%s/groupVolume", groupID), body, nil)
}

// SetRelativeGroupVolume nudges the group volume by delta.
func (c *Client) SetRelativeGroupVolume(ctx context.Context, deviceID, groupID string, delta int) error {
	body := map[string]any{"volumeDelta": delta}
	return c.do(ctx, deviceID, http.MethodPost, fmt.Sprintf("/groups/%s/groupVolume/relative", groupID), body, nil)
}

// SetPlayerVolume sets one player's volume, 0-100.
func (c *Client) SetPlayerVolume(ctx context.Context, deviceID, playerID string, volume int) error {
	body := map[string]any{"volume": volume}
	return c.do(ctx, deviceID, http.MethodPost, fmt.Sprintf("/players/%s/playerVolume", playerID), body, nil)
}

func (c *Client) do(ctx context.Context, deviceID, method, path string, body, dest any) error {
	token, err := c.tokens.AccessToken(ctx, deviceID)
	if err != nil {
		return fmt.Errorf("resolve access token: %w", err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if data, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096)); readErr == nil {
			_ = json.Unmarshal(data, apiErr)
		}
		c.logger.Debug().Int("status", resp.StatusCode).Str("path", path).Msg("vendor api error")
		return apiErr
	}

	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}
