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

package estimate

import (
	"math"
	"sort"
	"time"

	"github.com/matthewgall/meterlens/internal/models"
	"github.com/matthewgall/meterlens/internal/tariff"
)

// DefaultUnitRate is the UK reference electricity rate in pence per kWh
const DefaultUnitRate = tariff.DefaultUnitRate

// Input is everything Calculate needs
type Input struct {
	UserID   string
	Records  []models.ConsumptionRecord
	Profile  models.SeasonalProfile
	UnitRate float64 // Pence per kWh; zero falls back to DefaultUnitRate
	Now      time.Time
}

// Trend is the direction of usage between the first and last third of the records
type Trend struct {
	Direction  models.TrendDirection
	Percentage float64 // Absolute change, one decimal place
}

// Calculate builds the user-facing usage estimate
func Calculate(in Input) models.UsageEstimate {
	annual := Annual(in.Records, in.Profile)
	trend := CalculateTrend(in.Records)

	rate := in.UnitRate
	if rate <= 0 {
		rate = DefaultUnitRate
	}

	daily := annual.Estimate / daysInYear

	est := models.UsageEstimate{
		UserID:              in.UserID,
		EstimatedAt:         in.Now,
		DailyAverage:        round2(daily),
		WeeklyAverage:       round2(daily * 7),
		MonthlyAverage:      round2(annual.Estimate / 12),
		YearlyTotal:         annual.Estimate,
		YearlyMin:           annual.Min,
		YearlyMax:           annual.Max,
		TrendDirection:      trend.Direction,
		TrendPercentage:     trend.Percentage,
		Confidence:          annual.Confidence,
		DataQuality:         Quality(in.Records),
		Method:              annual.Method,
		MonthsCovered:       annual.MonthsCovered,
		UnitRate:            rate,
		EstimatedAnnualCost: Cost(annual.Estimate, rate),
		CostMin:             Cost(annual.Min, rate),
		CostMax:             Cost(annual.Max, rate),
	}

	photos := make(map[string]struct{})
	for i, r := range in.Records {
		for _, id := range r.SourcePhotoIDs {
			photos[id] = struct{}{}
		}
		if r.DataSource == models.SourceExtracted {
			est.BasedOnReadings++
		}
		if i == 0 || r.StartDate.Before(est.CoverageStart) {
			est.CoverageStart = r.StartDate
		}
		if i == 0 || r.EndDate.After(est.CoverageEnd) {
			est.CoverageEnd = r.EndDate
		}
	}
	est.BasedOnPhotos = len(photos)

	return est
}

// Cost converts kWh at a rate in pence per kWh into pounds
func Cost(kwh, rate float64) float64 {
	return round2(kwh * rate / 100)
}

// CalculateTrend compares the per-day usage of the earliest third of the
// records with the latest third
func CalculateTrend(records []models.ConsumptionRecord) Trend {
	if len(records) < 3 {
		return Trend{Direction: models.TrendStable}
	}

	sorted := append([]models.ConsumptionRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartDate.Before(sorted[j].StartDate)
	})

	segment := len(sorted) / 3
	first := dailyMean(sorted[:segment])
	last := dailyMean(sorted[len(sorted)-segment:])
	if first <= 0 {
		return Trend{Direction: models.TrendStable}
	}

	change := (last - first) / first * 100
	t := Trend{Direction: models.TrendStable, Percentage: math.Round(math.Abs(change)*10) / 10}
	switch {
	case math.Abs(change) < 5:
		t.Direction = models.TrendStable
	case change > 0:
		t.Direction = models.TrendIncreasing
	default:
		t.Direction = models.TrendDecreasing
	}
	return t
}

// Quality grades the record set by average confidence and months covered
func Quality(records []models.ConsumptionRecord) models.DataQuality {
	if len(records) < 5 {
		return models.QualityPoor
	}

	var confidence float64
	months := make(map[time.Month]struct{})
	for _, r := range records {
		confidence += r.Confidence
		months[r.StartDate.Month()] = struct{}{}
	}
	avg := confidence / float64(len(records))
	covered := len(months)

	switch {
	case avg > 85 && covered >= 10:
		return models.QualityExcellent
	case avg > 70 && covered >= 6:
		return models.QualityGood
	case avg > 50 && covered >= 3:
		return models.QualityFair
	}
	return models.QualityPoor
}

func dailyMean(records []models.ConsumptionRecord) float64 {
	var sum float64
	for _, r := range records {
		sum += r.DailyImport()
	}
	return sum / float64(len(records))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
