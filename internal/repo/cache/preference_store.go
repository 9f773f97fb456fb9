package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pulse-notify/internal/entity"
	"pulse-notify/pkg/logger"
)

const (
	preferenceKeyPrefix = "user:preferences:"
	preferencesTTL      = time.Hour

	// DefaultsCacheKey caches the system-wide default preferences.
	DefaultsCacheKey = "system:preferences:defaults"

	defaultsCacheTTL = time.Hour
)

// DefaultsSource provides system-wide default preferences, typically backed
// by the settings table in Postgres.
type DefaultsSource interface {
	GetDefaultPreferences(ctx context.Context) (entity.UserPreferences, error)
}

// PreferenceStore is a cache-through store for per-user delivery preferences.
// Reads never fail: a miss or an error falls back to defaults, because
// preferences are best-effort, not authoritative.
type PreferenceStore struct {
	cache    KVCache
	defaults DefaultsSource
	logger   *logger.Logger
}

// NewPreferenceStore builds the store. defaults may be nil, in which case
// built-in defaults are used.
func NewPreferenceStore(cache KVCache, defaults DefaultsSource, log *logger.Logger) *PreferenceStore {
	return &PreferenceStore{cache: cache, defaults: defaults, logger: log}
}

func preferenceKey(userID string) string {
	return preferenceKeyPrefix + userID
}

// Get returns the user's preferences, synthesizing defaults on a cache miss
// or any cache error.
func (s *PreferenceStore) Get(ctx context.Context, userID string) entity.UserPreferences {
	raw, err := s.cache.Get(ctx, preferenceKey(userID))
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn("Failed to read preferences for user %s, using defaults: %v", userID, err)
		}
		return s.defaultsFor(ctx, userID)
	}

	var prefs entity.UserPreferences
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		s.logger.Warn("Failed to decode preferences for user %s, using defaults: %v", userID, err)
		return s.defaultsFor(ctx, userID)
	}
	return prefs
}

// Set merges a partial update into the stored (or default) preferences and
// writes the result back with a refreshed TTL.
func (s *PreferenceStore) Set(ctx context.Context, userID string, update entity.PreferencesUpdate) (entity.UserPreferences, error) {
	prefs := s.Get(ctx, userID)
	prefs.Apply(update)

	raw, err := json.Marshal(prefs)
	if err != nil {
		return entity.UserPreferences{}, fmt.Errorf("failed to marshal preferences: %w", err)
	}
	if err := s.cache.Set(ctx, preferenceKey(userID), string(raw), preferencesTTL); err != nil {
		return entity.UserPreferences{}, fmt.Errorf("failed to save preferences: %w", err)
	}
	return prefs, nil
}

// Delete removes the stored preferences; subsequent reads synthesize
// defaults again.
func (s *PreferenceStore) Delete(ctx context.Context, userID string) error {
	if err := s.cache.Del(ctx, preferenceKey(userID)); err != nil {
		return fmt.Errorf("failed to delete preferences: %w", err)
	}
	return nil
}

// defaultsFor resolves default preferences for a user: the cached system-wide
// defaults if available, the persistent settings table on a cache miss, and
// the built-in defaults when neither can be reached.
func (s *PreferenceStore) defaultsFor(ctx context.Context, userID string) entity.UserPreferences {
	if s.defaults == nil {
		return entity.DefaultPreferences(userID)
	}

	if raw, err := s.cache.Get(ctx, DefaultsCacheKey); err == nil {
		var prefs entity.UserPreferences
		if err := json.Unmarshal([]byte(raw), &prefs); err == nil {
			return personalize(prefs, userID)
		}
	}

	prefs, err := s.defaults.GetDefaultPreferences(ctx)
	if err != nil {
		s.logger.Warn("Failed to load system default preferences, using built-in defaults: %v", err)
		return entity.DefaultPreferences(userID)
	}

	if raw, err := json.Marshal(prefs); err == nil {
		if err := s.cache.Set(ctx, DefaultsCacheKey, string(raw), defaultsCacheTTL); err != nil {
			s.logger.Warn("Failed to cache system default preferences: %v", err)
		}
	}
	return personalize(prefs, userID)
}

func personalize(prefs entity.UserPreferences, userID string) entity.UserPreferences {
	prefs.UserID = userID
	prefs.UpdatedAt = time.Now().UTC()
	return prefs
}
