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

// Package seasonal builds household seasonal profiles and converts usage
// between seasons.
package seasonal

import (
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/matthewgall/meterlens/internal/models"
)

// Default electricity factors for a UK household
const (
	DefaultWinterFactor = 1.35
	DefaultSpringFactor = 0.95
	DefaultSummerFactor = 0.85
	DefaultAutumnFactor = 1.00
)

// SeasonForMonth maps a calendar month onto a season
func SeasonForMonth(m time.Month) models.Season {
	switch m {
	case time.November, time.December, time.January, time.February:
		return models.Winter
	case time.March, time.April, time.May:
		return models.Spring
	case time.June, time.July, time.August:
		return models.Summer
	default:
		return models.Autumn
	}
}

// SeasonOf returns the season t falls in
func SeasonOf(t time.Time) models.Season {
	return SeasonForMonth(t.Month())
}

// RegionForPostcode looks up the region for a postcode by its area letters,
// trying the two-letter area before the one-letter area
func RegionForPostcode(postcode string) string {
	area := strings.ToUpper(strings.TrimSpace(postcode))
	end := strings.IndexFunc(area, func(r rune) bool { return !unicode.IsLetter(r) })
	if end >= 0 {
		area = area[:end]
	}

	if len(area) >= 2 {
		if region, ok := PostcodeAreas[area[:2]]; ok {
			return region
		}
	}
	if len(area) >= 1 {
		if region, ok := PostcodeAreas[area[:1]]; ok {
			return region
		}
	}
	return DefaultRegion
}

// ClimateFor returns the climate coefficients of a region
func ClimateFor(region string) Climate {
	if c, ok := Climates[region]; ok {
		return c
	}
	return Climates[DefaultRegion]
}

// DefaultProfile returns a profile built purely from UK defaults and the
// postcode's region
func DefaultProfile(userID, postcode string) models.SeasonalProfile {
	return Build(userID, postcode, nil, time.Time{})
}

// Build learns a household's seasonal profile from its consumption records.
// Yearly records are ignored because they carry no seasonal shape.
func Build(userID, postcode string, records []models.ConsumptionRecord, now time.Time) models.SeasonalProfile {
	region := RegionForPostcode(postcode)
	climate := ClimateFor(region)

	// Daily usage is averaged per calendar month first so a month of daily
	// records weighs the same as one monthly record
	byMonth := make(map[time.Month][]float64)
	for _, r := range records {
		if r.Granularity == models.Yearly {
			continue
		}
		m := r.StartDate.Month()
		byMonth[m] = append(byMonth[m], r.DailyImport())
	}

	var winter, summer, all []float64
	for m := time.January; m <= time.December; m++ {
		if len(byMonth[m]) == 0 {
			continue
		}
		daily := mean(byMonth[m])
		all = append(all, daily)
		switch SeasonForMonth(m) {
		case models.Winter:
			winter = append(winter, daily)
		case models.Summer:
			summer = append(summer, daily)
		}
	}

	winterAvg, summerAvg, yearAvg := mean(winter), mean(summer), mean(all)

	winterFactor := DefaultWinterFactor
	if winterAvg > 0 && yearAvg > 0 {
		winterFactor = winterAvg / yearAvg
	}
	summerFactor := DefaultSummerFactor
	if summerAvg > 0 && yearAvg > 0 {
		summerFactor = summerAvg / yearAvg
	}

	return models.SeasonalProfile{
		UserID:            userID,
		Postcode:          postcode,
		Region:            region,
		WinterFactor:      winterFactor * climate.HeatingIntensity,
		SpringFactor:      DefaultSpringFactor,
		SummerFactor:      summerFactor * climate.CoolingNeed,
		AutumnFactor:      DefaultAutumnFactor,
		HeatingDegreeDays: scaleDegreeDays(baseHeatingDegreeDays, climate.HeatingIntensity),
		CoolingDegreeDays: scaleDegreeDays(baseCoolingDegreeDays, climate.CoolingNeed),
		DataPoints:        len(records),
		Confidence:        Confidence(len(records)),
		UpdatedAt:         now,
	}
}

// Confidence grades a profile by how many records it was learned from.
// It never decreases as n grows.
func Confidence(n int) float64 {
	switch {
	case n <= 0:
		return 0
	case n < 4:
		return 30
	case n < 12:
		return 50 + float64(n)/12*30
	default:
		return 80 + math.Min(20, float64(n-12))
	}
}

// Normalize converts usage observed at a point in time to its
// season-neutral equivalent
func Normalize(v float64, at time.Time, p models.SeasonalProfile) float64 {
	return v / factor(p, SeasonOf(at))
}

// Denormalize converts a season-neutral value back into the season of at
func Denormalize(v float64, at time.Time, p models.SeasonalProfile) float64 {
	return v * factor(p, SeasonOf(at))
}

// Adjust moves usage observed in one month's season into another's
func Adjust(v float64, from, to time.Month, p models.SeasonalProfile) float64 {
	return v * factor(p, SeasonForMonth(to)) / factor(p, SeasonForMonth(from))
}

// factor guards against zero factors on hand-built profiles
func factor(p models.SeasonalProfile, s models.Season) float64 {
	f := p.Factor(s)
	if f <= 0 {
		return 1
	}
	return f
}

func scaleDegreeDays(base [12]float64, coefficient float64) [12]float64 {
	var out [12]float64
	for i, v := range base {
		out[i] = math.Round(v * coefficient)
	}
	return out
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
