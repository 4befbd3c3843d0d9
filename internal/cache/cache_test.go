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

package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

type payload struct {
	Name  string
	Value float64
}

func TestSetGetExpiry(t *testing.T) {
	clock := newClock()
	c := NewMemory(clock.now)

	if err := c.Set("profile:house-1", payload{"winter", 1.35}, time.Hour); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	var got payload
	ok, err := c.Get("profile:house-1", &got)
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v; want hit", ok, err)
	}
	if got.Value != 1.35 {
		t.Fatalf("got %+v", got)
	}

	clock.advance(61 * time.Minute)
	if ok, _ := c.Get("profile:house-1", &got); ok {
		t.Fatal("expired entry should miss")
	}
	if s := c.Stats(); s.Total != 1 || s.Expired != 1 {
		t.Fatalf("stats before sweep = %+v", s)
	}

	removed, err := c.Sweep()
	if err != nil || removed != 1 {
		t.Fatalf("Sweep() = %d, %v", removed, err)
	}
	if s := c.Stats(); s.Total != 0 {
		t.Fatalf("stats after sweep = %+v", s)
	}
}

func TestGetMissing(t *testing.T) {
	c := NewMemory(newClock().now)
	var got payload
	if ok, err := c.Get("nope", &got); ok || err != nil {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
}

func TestPersistence(t *testing.T) {
	clock := newClock()
	path := filepath.Join(t.TempDir(), "nested", "cache.json")

	c, err := New(Options{Path: path, Clock: clock.now})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := c.Set("a", payload{"a", 1}, time.Hour); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := c.Set("b", payload{"b", 2}, time.Minute); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	clock.advance(10 * time.Minute)
	reopened, err := New(Options{Path: path, Clock: clock.now})
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	if s := reopened.Stats(); s.Total != 2 || s.Expired != 1 {
		t.Fatalf("reopened stats = %+v, sweeping must be explicit", s)
	}

	var got payload
	if ok, _ := reopened.Get("a", &got); !ok || got.Value != 1 {
		t.Fatalf("persisted entry lost: %+v", got)
	}

	if err := reopened.Delete("a"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if err := reopened.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if s := reopened.Stats(); s.Total != 0 {
		t.Fatalf("stats after clear = %+v", s)
	}
}

func TestSetFailureLeavesMemoryUnchanged(t *testing.T) {
	clock := newClock()
	path := filepath.Join(t.TempDir(), "cache.json")

	c, err := New(Options{Path: path, Clock: clock.now})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := c.Set("a", payload{"a", 1}, time.Hour); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	// A directory in place of the file makes every write fail
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatal(err)
	}

	if err := c.Set("a", payload{"a", 2}, time.Hour); err == nil {
		t.Fatal("expected Set() to fail when the file cannot be written")
	}
	if err := c.Set("b", payload{"b", 3}, time.Hour); err == nil {
		t.Fatal("expected Set() to fail when the file cannot be written")
	}

	var got payload
	if ok, _ := c.Get("a", &got); !ok || got.Value != 1 {
		t.Errorf("failed Set() replaced the entry: %+v", got)
	}
	if ok, _ := c.Get("b", &got); ok {
		t.Error("failed Set() left a new entry in memory")
	}
	if s := c.Stats(); s.Total != 1 {
		t.Errorf("stats = %+v, want 1 entry", s)
	}
}
