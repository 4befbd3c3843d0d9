// Copyright 2025 Matthew Gall <me@matthewgall.dev>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cache is a TTL key/value cache held in memory and optionally
// persisted to a JSON file. Expired entries are only removed by Sweep.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/matthewgall/meterlens/internal/logging"
)

// Clock returns the current time
type Clock func() time.Time

// Entry is a single cached item with its expiry
type Entry struct {
	Data      json.RawMessage `json:"data"`
	CachedAt  time.Time       `json:"cached_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

type document struct {
	Entries map[string]*Entry `json:"entries"`
}

// Stats summarises the cache contents
type Stats struct {
	Total   int
	Expired int
}

// Options configures a Cache
type Options struct {
	// Path of the JSON file backing the cache; empty keeps it in memory
	Path   string
	Clock  Clock
	Logger *logging.Logger
}

// Cache maps keys to JSON-encoded values with an expiry
type Cache struct {
	path    string
	now     Clock
	logger  *logging.Logger
	mu      sync.RWMutex
	entries map[string]*Entry
}

// New creates a cache, loading any entries already persisted at opts.Path
func New(opts Options) (*Cache, error) {
	c := &Cache{
		path:    opts.Path,
		now:     opts.Clock,
		logger:  logging.OrDiscard(opts.Logger).WithComponent("cache"),
		entries: make(map[string]*Entry),
	}
	if c.now == nil {
		c.now = time.Now
	}

	if c.path != "" {
		if err := c.load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load cache: %w", err)
		}
	}

	c.logger.Debug("Cache initialized", "path", c.path, "entries", len(c.entries))
	return c, nil
}

// NewMemory returns an unpersisted cache driven by clock
func NewMemory(clock Clock) *Cache {
	c, _ := New(Options{Clock: clock})
	return c
}

// Set stores value under key for ttl
func (c *Cache) Set(key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	previous, existed := c.entries[key]
	c.entries[key] = &Entry{Data: data, CachedAt: now, ExpiresAt: now.Add(ttl)}
	if err := c.save(); err != nil {
		// Memory must match what is on disk
		if existed {
			c.entries[key] = previous
		} else {
			delete(c.entries, key)
		}
		return err
	}

	c.logger.Debug("Cache set", "key", key, "ttl", ttl)
	return nil
}

// Get decodes the value under key into target. It reports false on a miss
// or when the entry has expired.
func (c *Cache) Get(key string, target any) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		c.logger.Debug("Cache miss", "key", key)
		return false, nil
	}
	if c.now().After(entry.ExpiresAt) {
		c.logger.Debug("Cache expired", "key", key)
		return false, nil
	}

	if err := json.Unmarshal(entry.Data, target); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

// Delete removes the entry under key
func (c *Cache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return c.save()
}

// Sweep removes every expired entry and returns how many were dropped
func (c *Cache) Sweep() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
			removed++
		}
	}

	if removed == 0 {
		return 0, nil
	}
	c.logger.Info("Swept expired cache entries", "count", removed)
	return removed, c.save()
}

// Clear removes every entry
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := len(c.entries)
	c.entries = make(map[string]*Entry)
	if err := c.save(); err != nil {
		return err
	}

	c.logger.Info("Cleared cache", "count", count)
	return nil
}

// Stats counts live and expired entries
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	s := Stats{Total: len(c.entries)}
	for _, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			s.Expired++
		}
	}
	return s
}

func (c *Cache) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return err
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to unmarshal cache file: %w", err)
	}
	if doc.Entries != nil {
		c.entries = doc.Entries
	}
	return nil
}

// save writes the cache to disk; callers hold the lock
func (c *Cache) save() error {
	if c.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(document{Entries: c.entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}
