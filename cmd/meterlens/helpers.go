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

package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/matthewgall/meterlens/internal/models"
	"github.com/matthewgall/meterlens/internal/pipeline"
	"github.com/matthewgall/meterlens/internal/store"
)

// rebuildRecords recomputes the user's records from every stored value
func rebuildRecords(s *store.Store, userID string) (pipeline.RecordSet, error) {
	values, err := s.ListValues(userID)
	if err != nil {
		return pipeline.RecordSet{}, err
	}
	profile, err := s.LoadProfile(userID)
	if err != nil {
		return pipeline.RecordSet{}, err
	}

	set := pipeline.BuildRecords(userID, values, profile)
	if err := s.ReplaceRecords(userID, set.Records); err != nil {
		return pipeline.RecordSet{}, err
	}
	logger.LogStage(fmt.Sprintf("Rebuilt %d records from %d values", len(set.Records), len(values)))
	return set, nil
}

// loadInput gathers everything the pipeline needs for the configured user
func loadInput(s *store.Store, now time.Time) (pipeline.Input, error) {
	userID := cfg.UserID

	records, err := s.ListRecords(userID)
	if err != nil {
		return pipeline.Input{}, err
	}
	photos, err := s.ListPhotos(userID)
	if err != nil {
		return pipeline.Input{}, err
	}
	values, err := s.ListValues(userID)
	if err != nil {
		return pipeline.Input{}, err
	}

	return pipeline.Input{
		UserID:        userID,
		Postcode:      cfg.Postcode,
		HouseholdSize: cfg.HouseholdSize,
		Photos:        len(photos),
		Records:       preferManual(records),
		Tariffs:       cfg.Agreements(),
		TariffHint:    pipeline.TariffHint(values),
		Now:           now,
		Logger:        logger,
	}, nil
}

// preferManual drops derived records that cover the same period as a
// manually entered one
func preferManual(records []models.ConsumptionRecord) []models.ConsumptionRecord {
	type key struct {
		start string
		gran  models.Granularity
	}
	manual := make(map[key]bool)
	for _, r := range records {
		if r.DataSource == models.SourceManual {
			manual[key{r.StartDate.Format("2006-01-02"), r.Granularity}] = true
		}
	}

	out := make([]models.ConsumptionRecord, 0, len(records))
	for _, r := range records {
		k := key{r.StartDate.Format("2006-01-02"), r.Granularity}
		if manual[k] && r.DataSource != models.SourceManual {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartDate.Before(out[j].StartDate)
	})
	return out
}

// parseDay parses a YYYY-MM-DD flag value
func parseDay(flag, value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q: expected YYYY-MM-DD", flag, value)
	}
	return t, nil
}
