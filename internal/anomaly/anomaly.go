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

// Package anomaly flags consumption records that deviate materially from
// what the rest of the household's history predicts.
package anomaly

import (
	"math"
	"sort"

	"github.com/matthewgall/meterlens/internal/models"
	"github.com/matthewgall/meterlens/internal/seasonal"
)

// MinRecords is the fewest records for which anomalies are reported
const MinRecords = 5

// Deviation thresholds as a fraction of the expected value
const (
	MinorThreshold    = 0.3
	ModerateThreshold = 0.5
	SevereThreshold   = 0.7
)

const lowConfidence = 70

// Detect compares each record's daily usage with the seasonally adjusted
// mean of every other record
func Detect(records []models.ConsumptionRecord, profile models.SeasonalProfile) []models.Anomaly {
	anomalies := []models.Anomaly{}
	if len(records) < MinRecords {
		return anomalies
	}

	normalized := make([]float64, len(records))
	var total float64
	for i, r := range records {
		normalized[i] = seasonal.Normalize(r.DailyImport(), r.StartDate, profile)
		total += normalized[i]
	}

	for i, r := range records {
		baseline := (total - normalized[i]) / float64(len(records)-1)
		expected := seasonal.Denormalize(baseline, r.StartDate, profile)
		if expected <= 0 {
			continue
		}

		actual := r.DailyImport()
		deviation := (actual - expected) / expected
		severity, ok := Classify(math.Abs(deviation))
		if !ok {
			continue
		}

		anomalies = append(anomalies, models.Anomaly{
			Record:           r,
			Severity:         severity,
			ActualDaily:      round2(actual),
			ExpectedDaily:    round2(expected),
			ExpectedValue:    round2(expected * float64(r.Days())),
			Deviation:        deviation,
			DeviationPercent: math.Round(math.Abs(deviation) * 100),
			PossibleCauses:   Causes(deviation, r),
		})
	}

	sort.SliceStable(anomalies, func(i, j int) bool {
		di, dj := math.Abs(anomalies[i].Deviation), math.Abs(anomalies[j].Deviation)
		if di != dj {
			return di > dj
		}
		return anomalies[i].Record.StartDate.Before(anomalies[j].Record.StartDate)
	})
	return anomalies
}

// Classify grades an absolute deviation, reporting false when it is not an anomaly
func Classify(deviation float64) (models.Severity, bool) {
	switch {
	case deviation > SevereThreshold:
		return models.SeveritySevere, true
	case deviation > ModerateThreshold:
		return models.SeverityModerate, true
	case deviation > MinorThreshold:
		return models.SeverityMinor, true
	}
	return "", false
}

// Causes suggests plausible explanations from the direction of the
// deviation, the season and how much the record can be trusted
func Causes(deviation float64, r models.ConsumptionRecord) []string {
	var causes []string
	season := seasonal.SeasonOf(r.StartDate)

	if deviation > 0 {
		switch season {
		case models.Winter:
			causes = append(causes, "Unusually cold weather requiring extra heating")
		case models.Summer:
			causes = append(causes, "Possible use of air conditioning or fans")
		}
		return append(causes,
			"Additional occupancy or guests",
			"New electrical appliances in use",
			"Possible faulty appliance or insulation issue",
		)
	}

	causes = append(causes,
		"Property unoccupied during this period",
		"Conscious energy-saving efforts",
		"Milder weather than usual",
	)
	if r.Confidence < lowConfidence {
		causes = append(causes, "Possible data extraction error, please verify reading")
	}
	return causes
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
