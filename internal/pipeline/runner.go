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

package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/matthewgall/meterlens/internal/logging"
	"github.com/matthewgall/meterlens/internal/models"
	"github.com/matthewgall/meterlens/internal/seasonal"
)

// DefaultTTL is how long cached profiles and results stay fresh
const DefaultTTL = 6 * time.Hour

// Cache is the subset of the cache the runner needs
type Cache interface {
	Get(key string, target any) (bool, error)
	Set(key string, value any, ttl time.Duration) error
}

// Enricher adds context to anomalies after detection
type Enricher interface {
	Enrich(ctx context.Context, anomalies []models.Anomaly) ([]models.Anomaly, error)
}

// Runner wraps Aggregate with caching and optional anomaly enrichment
type Runner struct {
	cache    Cache
	ttl      time.Duration
	enricher Enricher
	logger   *logging.Logger
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithTTL overrides DefaultTTL
func WithTTL(ttl time.Duration) RunnerOption {
	return func(r *Runner) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithEnricher enables anomaly enrichment
func WithEnricher(e Enricher) RunnerOption {
	return func(r *Runner) {
		r.enricher = e
	}
}

// NewRunner creates a runner. A nil cache disables caching.
func NewRunner(cache Cache, logger *logging.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{
		cache:  cache,
		ttl:    DefaultTTL,
		logger: logging.OrDiscard(logger).WithComponent("runner"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Profile returns the household's seasonal profile, from cache when the
// records and postcode are unchanged
func (r *Runner) Profile(in Input) models.SeasonalProfile {
	key := fmt.Sprintf("profile:%s:%s", in.UserID, Fingerprint(in.Postcode, in.Records))

	var profile models.SeasonalProfile
	if r.lookup(key, &profile) {
		return profile
	}

	profile = seasonal.Build(in.UserID, in.Postcode, in.Records, in.Now)
	r.store(key, profile)
	return profile
}

// Run returns the aggregate result for in, reusing a cached result when
// the inputs have not changed since it was computed
func (r *Runner) Run(ctx context.Context, in Input) (Result, error) {
	if in.Logger == nil {
		in.Logger = r.logger
	}
	key := fmt.Sprintf("result:%s:%s", in.UserID, Fingerprint(resultInputs(in)))

	var result Result
	if r.lookup(key, &result) {
		r.logger.Debug("Using cached analysis", "user_id", logging.MaskID(in.UserID))
		return result, nil
	}

	if in.Profile == nil {
		profile := r.Profile(in)
		in.Profile = &profile
	}
	result = Aggregate(in)

	if r.enricher != nil && len(result.Anomalies) > 0 {
		enriched, err := r.enricher.Enrich(ctx, result.Anomalies)
		if err != nil {
			r.logger.Warn("Anomaly enrichment failed", "error", err)
		} else {
			result.Anomalies = enriched
			result.Analytics.Anomalies = enriched
		}
	}

	r.store(key, result)
	return result, nil
}

func (r *Runner) lookup(key string, target any) bool {
	if r.cache == nil {
		return false
	}
	found, err := r.cache.Get(key, target)
	if err != nil {
		r.logger.Warn("Cache read failed", "key", key, "error", err)
		return false
	}
	return found
}

func (r *Runner) store(key string, value any) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(key, value, r.ttl); err != nil {
		r.logger.Warn("Cache write failed", "key", key, "error", err)
	}
}

// resultInputs lists everything that changes the result. The day rather
// than the instant is used so a result is reused within a day.
func resultInputs(in Input) []any {
	return []any{
		in.Postcode,
		in.HouseholdSize,
		in.Photos,
		in.Records,
		in.Tariffs,
		in.TariffHint,
		in.Profile,
		in.Now.Format("2006-01-02"),
		in.Now.Location().String(),
	}
}

// Fingerprint is a SHA-256 over the JSON encoding of parts
func Fingerprint(parts ...any) string {
	h := sha256.New()
	enc := json.NewEncoder(h)
	for _, p := range parts {
		if err := enc.Encode(p); err != nil {
			fmt.Fprintf(h, "%v\n", p)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
