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
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/matthewgall/meterlens/internal/models"
	"github.com/matthewgall/meterlens/internal/reconcile"
)

// Confirmation is a reconciliation the user should review
type Confirmation struct {
	RecordID       string                     `json:"recordId"`
	Start          time.Time                  `json:"start"`
	Granularity    models.Granularity         `json:"granularity"`
	Reconciliation models.ValueReconciliation `json:"reconciliation"`
}

// RecordSet is the output of BuildRecords
type RecordSet struct {
	Records       []models.ConsumptionRecord
	Confirmations []Confirmation
}

// InferredDateBelow is the date confidence under which a period was guessed
// rather than read, and the record needs the user to confirm it
const InferredDateBelow = 70

type periodKey struct {
	start time.Time
	gran  models.Granularity
}

type periodGroup struct {
	energy []models.ExtractedValue
	export []models.ExtractedValue
	cost   []models.ExtractedValue
	gas    []models.ExtractedValue
}

// BuildRecords groups values by period and reconciles each group into one
// consumption record. Periods with only cost, export or gas values produce
// no record, since import usage is required.
func BuildRecords(userID string, values []models.ExtractedValue, profile *models.SeasonalProfile) RecordSet {
	groups := make(map[periodKey]*periodGroup)
	var keys []periodKey

	for _, v := range values {
		if v.UserID != userID || v.Validate() != nil {
			continue
		}
		key := periodKey{start: models.StartOfDay(v.StartDate), gran: v.Granularity}
		g, ok := groups[key]
		if !ok {
			g = &periodGroup{}
			groups[key] = g
			keys = append(keys, key)
		}

		switch {
		case v.Unit == models.UnitCubicMetre:
			g.gas = append(g.gas, v)
		case v.ValueType.Kind() == models.KindCost && (v.Unit == models.UnitGBP || v.Unit == models.UnitPence):
			g.cost = append(g.cost, inPounds(v))
		case v.ValueType.Kind() == models.KindEnergy && v.Unit == models.UnitKWh:
			if v.MeterReadingType == models.ReadingExport {
				g.export = append(g.export, v)
			} else {
				g.energy = append(g.energy, v)
			}
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		if !keys[i].start.Equal(keys[j].start) {
			return keys[i].start.Before(keys[j].start)
		}
		return keys[i].gran < keys[j].gran
	})

	set := RecordSet{Records: []models.ConsumptionRecord{}}
	for _, key := range keys {
		g := groups[key]
		if len(g.energy) == 0 {
			continue
		}

		rec := reconcile.Reconcile(g.energy, profile)
		if d := lowestDateConfidence(g.energy); d < InferredDateBelow {
			rec.RequiresUserConfirmation = true
			rec.Reasoning += fmt.Sprintf(" Period inferred at %.0f%% date confidence, please confirm the dates.", d)
		}
		record := models.ConsumptionRecord{
			ID:                models.DerivedID(userID, key.start.Format("2006-01-02"), string(key.gran)),
			UserID:            userID,
			StartDate:         key.start,
			EndDate:           models.StartOfDay(latestEnd(g.energy)),
			Granularity:       key.gran,
			ElectricityImport: rec.RecommendedValue,
			DataSource:        models.SourceExtracted,
			Confidence:        scaledConfidence(g.energy),
			CreatedAt:         latestCreated(g.energy),
		}
		if len(g.export) > 0 {
			record.ElectricityExport = models.Float(reconcile.Reconcile(g.export, profile).RecommendedValue)
		}
		if len(g.cost) > 0 {
			record.ElectricityCost = models.Float(reconcile.Reconcile(g.cost, nil).RecommendedValue)
		}
		if len(g.gas) > 0 {
			record.GasConsumption = models.Float(reconcile.Reconcile(g.gas, profile).RecommendedValue)
		}

		seen := make(map[string]bool)
		for _, vs := range [][]models.ExtractedValue{g.energy, g.export, g.cost, g.gas} {
			for _, v := range vs {
				record.SourceValueIDs = append(record.SourceValueIDs, v.ID)
				if !seen[v.PhotoID] {
					seen[v.PhotoID] = true
					record.SourcePhotoIDs = append(record.SourcePhotoIDs, v.PhotoID)
				}
			}
		}

		set.Records = append(set.Records, record)
		if rec.RequiresUserConfirmation {
			set.Confirmations = append(set.Confirmations, Confirmation{
				RecordID:       record.ID,
				Start:          key.start,
				Granularity:    key.gran,
				Reconciliation: rec,
			})
		}
	}
	return set
}

func lowestDateConfidence(values []models.ExtractedValue) float64 {
	lowest := math.Inf(1)
	for _, v := range values {
		lowest = math.Min(lowest, v.DateConfidence)
	}
	return lowest
}

func inPounds(v models.ExtractedValue) models.ExtractedValue {
	if v.Unit == models.UnitPence {
		v.Value /= 100
		v.Unit = models.UnitGBP
	}
	return v
}

// scaledConfidence is the mean extraction confidence, each value weighted
// down by how sure we are of its dates
func scaledConfidence(values []models.ExtractedValue) float64 {
	var sum float64
	for _, v := range values {
		sum += v.ExtractionConfidence * v.DateConfidence / 100
	}
	return math.Round(sum/float64(len(values))*100) / 100
}

func latestEnd(values []models.ExtractedValue) time.Time {
	end := values[0].EndDate
	for _, v := range values[1:] {
		if v.EndDate.After(end) {
			end = v.EndDate
		}
	}
	return end
}

func latestCreated(values []models.ExtractedValue) time.Time {
	created := values[0].CreatedAt
	for _, v := range values[1:] {
		if v.CreatedAt.After(created) {
			created = v.CreatedAt
		}
	}
	return created
}
