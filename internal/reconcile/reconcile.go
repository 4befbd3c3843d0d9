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

// Package reconcile resolves several candidate values for the same period
// into one recommended value.
package reconcile

import (
	"fmt"
	"math"
	"sort"

	"github.com/matthewgall/meterlens/internal/models"
	"github.com/matthewgall/meterlens/internal/seasonal"
)

// Strategy names reported on a ValueReconciliation
const (
	StrategyNone                = "none"
	StrategySingle              = "single-value"
	StrategyWeightedAverage     = "weighted-average"
	StrategyDirectReadings      = "direct-readings"
	StrategyRecency             = "recency"
	StrategyDominantConfidence  = "dominant-confidence"
	StrategySeasonalConsistency = "seasonal-consistency"
	StrategyFallback            = "highest-confidence-fallback"
)

const (
	agreementThreshold   = 0.10 // Relative spread under which values agree
	recencyMinDays       = 7
	recencyMinConfidence = 60
	dominanceMargin      = 20
	seasonalTolerance    = 0.15
	seasonalMajority     = 0.6
	singleConfirmBelow   = 70
	directConfirmBelow   = 75
	recencyConfirmBelow  = 75
	dominantConfirmBelow = 80
)

type strategy func(values []models.ExtractedValue, profile *models.SeasonalProfile) *models.ValueReconciliation

// ordered is the sequence tried when values disagree
var ordered = []strategy{
	preferDirectReadings,
	preferRecent,
	preferDominantConfidence,
	checkSeasonalConsistency,
}

// Reconcile picks a recommended value from values that claim the same
// period. The result depends only on its inputs, and the recommended value
// always lies between the smallest and largest input.
func Reconcile(values []models.ExtractedValue, profile *models.SeasonalProfile) models.ValueReconciliation {
	r := reconcile(values, profile)
	if len(values) > 0 {
		lo, hi := bounds(values)
		r.RecommendedValue = math.Min(hi, math.Max(lo, r.RecommendedValue))
	}
	return r
}

func reconcile(values []models.ExtractedValue, profile *models.SeasonalProfile) models.ValueReconciliation {
	switch len(values) {
	case 0:
		return models.ValueReconciliation{
			ConflictingValues: []models.ExtractedValue{},
			Reasoning:         "No values to reconcile",
			Strategy:          StrategyNone,
		}
	case 1:
		v := values[0]
		return models.ValueReconciliation{
			ConflictingValues:        values,
			RecommendedValue:         round2(v.Value),
			Confidence:               v.ExtractionConfidence,
			Reasoning:                "Single value, no conflict",
			RequiresUserConfirmation: v.ExtractionConfidence < singleConfirmBelow,
			Strategy:                 StrategySingle,
		}
	}

	if Spread(values) < agreementThreshold {
		return weightedAverage(values)
	}

	for _, s := range ordered {
		if r := s(values, profile); r != nil {
			return *r
		}
	}

	best := byConfidence(values)[0]
	return models.ValueReconciliation{
		ConflictingValues:        values,
		RecommendedValue:         round2(best.Value),
		Confidence:               best.ExtractionConfidence,
		Reasoning:                "Significant variance detected, using highest confidence value. Please confirm.",
		RequiresUserConfirmation: true,
		Strategy:                 StrategyFallback,
	}
}

// Spread returns the relative variance (max-min)/max of the values
func Spread(values []models.ExtractedValue) float64 {
	if len(values) == 0 {
		return 0
	}
	lo, hi := bounds(values)
	switch {
	case hi == lo:
		return 0
	case hi <= 0:
		return 1
	}
	return (hi - lo) / hi
}

func weightedAverage(values []models.ExtractedValue) models.ValueReconciliation {
	var sum, weights, top float64
	for _, v := range values {
		sum += v.Value * v.ExtractionConfidence
		weights += v.ExtractionConfidence
		top = math.Max(top, v.ExtractionConfidence)
	}

	avg := sum / weights
	if weights == 0 {
		avg = meanValue(values)
	}

	return models.ValueReconciliation{
		ConflictingValues: values,
		RecommendedValue:  round2(avg),
		Confidence:        top,
		Reasoning:         fmt.Sprintf("All values are within 10%%, using weighted average of %d readings", len(values)),
		Strategy:          StrategyWeightedAverage,
	}
}

func preferDirectReadings(values []models.ExtractedValue, _ *models.SeasonalProfile) *models.ValueReconciliation {
	var direct []models.ExtractedValue
	for _, v := range values {
		if v.ValueType == models.ValueMeterReading {
			direct = append(direct, v)
		}
	}
	if len(direct) == 0 || len(direct) == len(values) {
		return nil
	}

	confidence := meanConfidence(direct)
	return &models.ValueReconciliation{
		ConflictingValues:        values,
		RecommendedValue:         round2(meanValue(direct)),
		Confidence:               confidence,
		Reasoning:                fmt.Sprintf("Preferring %d direct meter reading(s) over calculated values", len(direct)),
		RequiresUserConfirmation: len(direct) == 1 && confidence < directConfirmBelow,
		Strategy:                 StrategyDirectReadings,
	}
}

func preferRecent(values []models.ExtractedValue, _ *models.SeasonalProfile) *models.ValueReconciliation {
	sorted := append([]models.ExtractedValue(nil), values...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	newest, oldest := sorted[0], sorted[len(sorted)-1]
	days := newest.CreatedAt.Sub(oldest.CreatedAt).Hours() / 24
	if days <= recencyMinDays || newest.ExtractionConfidence <= recencyMinConfidence {
		return nil
	}

	return &models.ValueReconciliation{
		ConflictingValues:        values,
		RecommendedValue:         round2(newest.Value),
		Confidence:               newest.ExtractionConfidence,
		Reasoning:                fmt.Sprintf("Using most recent reading (%d days newer than oldest)", int(math.Round(days))),
		RequiresUserConfirmation: newest.ExtractionConfidence < recencyConfirmBelow,
		Strategy:                 StrategyRecency,
	}
}

func preferDominantConfidence(values []models.ExtractedValue, _ *models.SeasonalProfile) *models.ValueReconciliation {
	sorted := byConfidence(values)
	top, second := sorted[0], sorted[1]
	if top.ExtractionConfidence-second.ExtractionConfidence <= dominanceMargin {
		return nil
	}

	return &models.ValueReconciliation{
		ConflictingValues:        values,
		RecommendedValue:         round2(top.Value),
		Confidence:               top.ExtractionConfidence,
		Reasoning:                fmt.Sprintf("Using highest confidence value (%.0f%% vs %.0f%%)", top.ExtractionConfidence, second.ExtractionConfidence),
		RequiresUserConfirmation: top.ExtractionConfidence < dominantConfirmBelow,
		Strategy:                 StrategyDominantConfidence,
	}
}

func checkSeasonalConsistency(values []models.ExtractedValue, profile *models.SeasonalProfile) *models.ValueReconciliation {
	if profile == nil {
		return nil
	}

	normalized := make([]float64, len(values))
	var total float64
	for i, v := range values {
		normalized[i] = seasonal.Normalize(v.Value, v.StartDate, *profile)
		total += normalized[i]
	}
	avg := total / float64(len(values))
	if avg == 0 {
		return nil
	}

	var consistent []models.ExtractedValue
	for i, v := range values {
		if math.Abs(normalized[i]-avg)/math.Abs(avg) < seasonalTolerance {
			consistent = append(consistent, v)
		}
	}
	if len(consistent) == 0 || float64(len(consistent)) < float64(len(values))*seasonalMajority {
		return nil
	}

	return &models.ValueReconciliation{
		ConflictingValues: values,
		RecommendedValue:  round2(meanValue(consistent)),
		Confidence:        meanConfidence(consistent),
		Reasoning:         fmt.Sprintf("%d of %d values are seasonally consistent, using their average", len(consistent), len(values)),
		Strategy:          StrategySeasonalConsistency,
	}
}

// byConfidence returns a copy sorted by extraction confidence, highest first
func byConfidence(values []models.ExtractedValue) []models.ExtractedValue {
	sorted := append([]models.ExtractedValue(nil), values...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ExtractionConfidence > sorted[j].ExtractionConfidence
	})
	return sorted
}

// bounds returns the smallest and largest value
func bounds(values []models.ExtractedValue) (lo, hi float64) {
	lo, hi = values[0].Value, values[0].Value
	for _, v := range values[1:] {
		lo = math.Min(lo, v.Value)
		hi = math.Max(hi, v.Value)
	}
	return lo, hi
}

func meanValue(values []models.ExtractedValue) float64 {
	var sum float64
	for _, v := range values {
		sum += v.Value
	}
	return sum / float64(len(values))
}

func meanConfidence(values []models.ExtractedValue) float64 {
	var sum float64
	for _, v := range values {
		sum += v.ExtractionConfidence
	}
	return sum / float64(len(values))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
