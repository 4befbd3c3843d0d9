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

// Package estimate extrapolates sparse consumption records into an annual
// usage and cost estimate.
package estimate

import (
	"math"
	"time"

	"github.com/matthewgall/meterlens/internal/models"
	"github.com/matthewgall/meterlens/internal/seasonal"
)

const (
	daysInYear = 365

	// BaselineDailyKWh is assumed for every month when there is no data at all
	BaselineDailyKWh = 10.0

	// InterpolationMinMonths is the coverage at which the estimate is
	// considered mostly observed rather than mostly assumed
	InterpolationMinMonths = 6
)

// AnnualResult is the extrapolated yearly usage with its uncertainty band
type AnnualResult struct {
	Estimate      float64 // kWh
	Min           float64 // kWh
	Max           float64 // kWh
	Confidence    float64
	Method        models.EstimationMethod
	MonthsCovered int
	Monthly       [12]models.MonthValue
}

// Annual extrapolates records to a full year. Months with no data borrow
// from the nearest covered month, shifted through the seasonal profile.
func Annual(records []models.ConsumptionRecord, profile models.SeasonalProfile) AnnualResult {
	var buckets [12][]float64
	for _, r := range records {
		m := r.StartDate.Month() - 1
		buckets[m] = append(buckets[m], r.DailyImport())
	}

	var monthly [12]models.MonthValue
	var covered []time.Month
	for i, b := range buckets {
		month := time.Month(i + 1)
		monthly[i].Month = month
		if len(b) == 0 {
			continue
		}
		monthly[i].DailyKWh = mean(b)
		covered = append(covered, month)
	}

	for i := range monthly {
		month := time.Month(i + 1)
		if len(buckets[i]) > 0 {
			continue
		}
		monthly[i].Filled = true
		if source, ok := nearestMonth(month, covered); ok {
			monthly[i].DailyKWh = seasonal.Adjust(monthly[source-1].DailyKWh, source, month, profile)
			monthly[i].SourceFrom = source
			continue
		}
		monthly[i].DailyKWh = BaselineDailyKWh * profile.Factor(seasonal.SeasonForMonth(month))
	}

	var sum float64
	for _, m := range monthly {
		sum += m.DailyKWh
	}
	annual := sum / 12 * daysInYear

	monthsCovered := len(covered)
	uncertainty := Uncertainty(monthsCovered)

	confidence := 0.0
	if monthsCovered > 0 {
		confidence = math.Round(math.Min(95, 40+float64(monthsCovered)/12*60))
	}

	method := models.MethodSeasonalEstimation
	if monthsCovered >= InterpolationMinMonths {
		method = models.MethodInterpolation
	}

	return AnnualResult{
		Estimate:      math.Round(annual),
		Min:           math.Round(annual * (1 - uncertainty)),
		Max:           math.Round(annual * (1 + uncertainty)),
		Confidence:    confidence,
		Method:        method,
		MonthsCovered: monthsCovered,
		Monthly:       monthly,
	}
}

// Uncertainty is the half-width of the estimate band as a fraction.
// It narrows from 20% with no coverage to 5% with a full year.
func Uncertainty(monthsCovered int) float64 {
	return 0.20 - float64(monthsCovered)/12*0.15
}

// nearestMonth finds the covered month closest to target going around the
// calendar; ties go to the earlier month
func nearestMonth(target time.Month, covered []time.Month) (time.Month, bool) {
	best, bestDist := time.Month(0), 13
	for _, m := range covered {
		d := int(target) - int(m)
		if d < 0 {
			d = -d
		}
		if 12-d < d {
			d = 12 - d
		}
		if d < bestDist || (d == bestDist && earlier(m, best, target)) {
			best, bestDist = m, d
		}
	}
	return best, bestDist < 13
}

// earlier reports whether a precedes b when both sit the same distance from
// target, so the month before target wins over the month after
func earlier(a, b, target time.Month) bool {
	return (int(target)-int(a)+12)%12 < (int(target)-int(b)+12)%12
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
