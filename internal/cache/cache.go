/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a Redis-based caching layer for per-household
// rule sets and vendor favorites.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Default TTL values for different cache types
const (
	DefaultRulesTTL     = 5 * time.Minute
	DefaultFavoritesTTL = 10 * time.Minute
	DefaultGroupsTTL    = 30 * time.Second
)

// Key prefixes for Redis cache
const (
	KeyRules     = "vibedeck:cache:rules:"     // + household_id
	KeyFavorites = "vibedeck:cache:favorites:" // + household_id
	KeyGroups    = "vibedeck:cache:groups:"    // + household_id
)

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// TTL overrides
	RulesTTL     time.Duration
	FavoritesTTL time.Duration
	GroupsTTL    time.Duration

	// Fallback behavior
	DisableOnError bool // If true, disable caching on Redis errors
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:      "localhost:6379",
		RulesTTL:       DefaultRulesTTL,
		FavoritesTTL:   DefaultFavoritesTTL,
		GroupsTTL:      DefaultGroupsTTL,
		DisableOnError: true,
	}
}

// Cache provides Redis-backed caching with graceful fallback.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config

	mu       sync.RWMutex
	disabled bool // Circuit breaker state
}

// New creates a new cache instance. A missing Redis is not an error;
// the cache runs disabled and every lookup misses.
func New(cfg Config, logger zerolog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis cache unavailable, running without caching")
		return &Cache{
			logger:   logger.With().Str("component", "cache").Logger(),
			config:   cfg,
			disabled: true,
		}, nil
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("Redis cache initialized")

	return &Cache{
		client: client,
		logger: logger.With().Str("component", "cache").Logger(),
		config: cfg,
	}, nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAvailable returns true if the cache is operational.
func (c *Cache) IsAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

// handleError handles Redis errors with circuit breaker logic.
func (c *Cache) handleError(err error, operation string) {
	if err == nil || err == redis.Nil {
		return
	}

	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")

	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling cache due to Redis error")
	}
}

// get retrieves a value from cache and unmarshals it.
func (c *Cache) get(ctx context.Context, key string, dest any) (bool, error) {
	if !c.IsAvailable() {
		return false, nil
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		c.handleError(err, "get")
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("failed to unmarshal cached value")
		return false, nil
	}

	return true, nil
}

// set stores a value in cache with TTL.
func (c *Cache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.IsAvailable() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.handleError(err, "set")
		return err
	}

	return nil
}

// delete removes a key from cache.
func (c *Cache) delete(ctx context.Context, key string) error {
	if !c.IsAvailable() {
		return nil
	}

	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.handleError(err, "delete")
		return err
	}

	return nil
}

// Rule caching

// GetRules retrieves the cached raw rule rows for a household.
func (c *Cache) GetRules(ctx context.Context, householdID string, dest any) (bool, error) {
	found, err := c.get(ctx, KeyRules+householdID, dest)
	if err != nil || !found {
		return false, err
	}
	c.logger.Debug().Str("household_id", householdID).Msg("rule cache hit")
	return true, nil
}

// SetRules stores a household's raw rule rows.
func (c *Cache) SetRules(ctx context.Context, householdID string, rules any) error {
	return c.set(ctx, KeyRules+householdID, rules, c.config.RulesTTL)
}

// InvalidateRules drops the cached rules for a household.
func (c *Cache) InvalidateRules(ctx context.Context, householdID string) {
	_ = c.delete(ctx, KeyRules+householdID)
}

// Favorites caching

// GetFavorites retrieves the cached vendor favorites for a household.
func (c *Cache) GetFavorites(ctx context.Context, householdID string, dest any) (bool, error) {
	found, err := c.get(ctx, KeyFavorites+householdID, dest)
	if err != nil || !found {
		return false, err
	}
	c.logger.Debug().Str("household_id", householdID).Msg("favorites cache hit")
	return true, nil
}

// SetFavorites stores a household's vendor favorites.
func (c *Cache) SetFavorites(ctx context.Context, householdID string, favorites any) error {
	return c.set(ctx, KeyFavorites+householdID, favorites, c.config.FavoritesTTL)
}

// InvalidateFavorites drops the cached favorites for a household.
func (c *Cache) InvalidateFavorites(ctx context.Context, householdID string) {
	_ = c.delete(ctx, KeyFavorites+householdID)
}

// Group topology caching

// GetGroups retrieves the cached group topology for a household.
func (c *Cache) GetGroups(ctx context.Context, householdID string, dest any) (bool, error) {
	found, err := c.get(ctx, KeyGroups+householdID, dest)
	if err != nil || !found {
		return false, err
	}
	c.logger.Debug().Str("household_id", householdID).Msg("group cache hit")
	return true, nil
}

// SetGroups stores a household's group topology.
func (c *Cache) SetGroups(ctx context.Context, householdID string, groups any) error {
	return c.set(ctx, KeyGroups+householdID, groups, c.config.GroupsTTL)
}

// InvalidateGroups drops the cached group topology for a household.
func (c *Cache) InvalidateGroups(ctx context.Context, householdID string) {
	_ = c.delete(ctx, KeyGroups+householdID)
}
