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

package seasonal

import (
	"math"
	"testing"
	"time"

	"github.com/matthewgall/meterlens/internal/models"
)

func monthRecord(year int, month time.Month, daily float64) models.ConsumptionRecord {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return models.ConsumptionRecord{
		StartDate:         start,
		EndDate:           end,
		Granularity:       models.Monthly,
		ElectricityImport: daily * float64(models.DaysBetween(start, end)),
	}
}

func TestRegionForPostcode(t *testing.T) {
	tests := map[string]string{
		"EH1 1YZ":  "Scotland",
		"G2 3AB":   "Scotland",
		"sw1a 1aa": "London",
		"M1 1AE":   "North West",
		"BT7 1NN":  "Northern Ireland",
		"CF10 1AA": "Wales",
		"ZZ9 9ZZ":  DefaultRegion,
		"":         DefaultRegion,
	}
	for postcode, want := range tests {
		if got := RegionForPostcode(postcode); got != want {
			t.Errorf("RegionForPostcode(%q) = %q, want %q", postcode, got, want)
		}
	}
}

func TestSeasonForMonth(t *testing.T) {
	want := map[time.Month]models.Season{
		time.January: models.Winter, time.February: models.Winter, time.March: models.Spring,
		time.May: models.Spring, time.June: models.Summer, time.August: models.Summer,
		time.September: models.Autumn, time.October: models.Autumn, time.November: models.Winter,
		time.December: models.Winter,
	}
	for m, s := range want {
		if got := SeasonForMonth(m); got != s {
			t.Errorf("SeasonForMonth(%s) = %s, want %s", m, got, s)
		}
	}
}

func TestDefaultProfile(t *testing.T) {
	p := DefaultProfile("house-1", "")
	if p.WinterFactor != DefaultWinterFactor {
		t.Fatalf("winter factor = %v, want %v", p.WinterFactor, DefaultWinterFactor)
	}
	if math.Abs(p.SummerFactor-DefaultSummerFactor*0.9) > 1e-9 {
		t.Fatalf("summer factor = %v, want %v", p.SummerFactor, DefaultSummerFactor*0.9)
	}
	if p.Confidence != 0 || p.DataPoints != 0 {
		t.Fatalf("empty profile should have zero confidence, got %v", p.Confidence)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("default profile invalid: %v", err)
	}
}

func TestBuildLearnsFactors(t *testing.T) {
	records := []models.ConsumptionRecord{
		monthRecord(2024, time.January, 15),
		monthRecord(2024, time.April, 10),
		monthRecord(2024, time.July, 5),
		monthRecord(2024, time.October, 10),
	}
	p := Build("house-1", "EH1 1YZ", records, time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC))

	// year average is 10 kWh/day, Scotland heating 1.25 and cooling 0.7
	if math.Abs(p.WinterFactor-1.5*1.25) > 1e-9 {
		t.Fatalf("winter factor = %v, want %v", p.WinterFactor, 1.5*1.25)
	}
	if math.Abs(p.SummerFactor-0.5*0.7) > 1e-9 {
		t.Fatalf("summer factor = %v, want %v", p.SummerFactor, 0.5*0.7)
	}
	if p.Region != "Scotland" {
		t.Fatalf("region = %q", p.Region)
	}
	if p.HeatingDegreeDays[0] != math.Round(350*1.25) {
		t.Fatalf("January HDD = %v", p.HeatingDegreeDays[0])
	}
	if math.Abs(p.Confidence-60) > 1e-9 {
		t.Fatalf("confidence = %v", p.Confidence)
	}
}

func TestBuildWeighsMonthsEqually(t *testing.T) {
	records := []models.ConsumptionRecord{
		monthRecord(2024, time.January, 15),
		monthRecord(2024, time.April, 10),
		monthRecord(2024, time.October, 10),
	}
	for d := 1; d <= 31; d++ {
		day := time.Date(2024, time.July, d, 0, 0, 0, 0, time.UTC)
		records = append(records, models.ConsumptionRecord{
			StartDate:         day,
			EndDate:           day,
			Granularity:       models.Daily,
			ElectricityImport: 5,
		})
	}
	p := Build("house-1", "EH1 1YZ", records, time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC))

	// July's 31 daily records count once, so the factors match one record per month
	if math.Abs(p.WinterFactor-1.5*1.25) > 1e-9 {
		t.Fatalf("winter factor = %v, want %v", p.WinterFactor, 1.5*1.25)
	}
	if math.Abs(p.SummerFactor-0.5*0.7) > 1e-9 {
		t.Fatalf("summer factor = %v, want %v", p.SummerFactor, 0.5*0.7)
	}
	if p.DataPoints != 34 {
		t.Fatalf("data points = %d, want 34", p.DataPoints)
	}
}

func TestBuildIgnoresYearlyRecords(t *testing.T) {
	yearly := models.ConsumptionRecord{
		StartDate:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:           time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		Granularity:       models.Yearly,
		ElectricityImport: 100000,
	}
	p := Build("house-1", "", []models.ConsumptionRecord{yearly}, time.Time{})
	if p.WinterFactor != DefaultWinterFactor {
		t.Fatalf("yearly record should not shape factors, got winter %v", p.WinterFactor)
	}
}

func TestConfidenceMonotonic(t *testing.T) {
	prev := Confidence(0)
	for n := 1; n <= 60; n++ {
		c := Confidence(n)
		if c < prev {
			t.Fatalf("confidence(%d) = %v < confidence(%d) = %v", n, c, n-1, prev)
		}
		if c > 100 {
			t.Fatalf("confidence(%d) = %v exceeds 100", n, c)
		}
		prev = c
	}
	if Confidence(3) != 30 || Confidence(12) != 80 || Confidence(40) != 100 {
		t.Fatal("unexpected confidence anchors")
	}
}

func TestNormalizeRoundTrip(t *testing.T) {
	profiles := []models.SeasonalProfile{
		DefaultProfile("a", ""),
		DefaultProfile("b", "AB10"),
		{WinterFactor: 2.7, SpringFactor: 0.3, SummerFactor: 0.01, AutumnFactor: 1.9},
	}
	values := []float64{0, 0.001, 9.5, 312.25, 1e6}
	for _, p := range profiles {
		for m := time.January; m <= time.December; m++ {
			at := time.Date(2024, m, 10, 0, 0, 0, 0, time.UTC)
			for _, v := range values {
				got := Denormalize(Normalize(v, at, p), at, p)
				if math.Abs(got-v) > 1e-9*math.Max(1, v) {
					t.Fatalf("round trip of %v in %s = %v", v, m, got)
				}
				if back := Adjust(Adjust(v, m, time.July, p), time.July, m, p); math.Abs(back-v) > 1e-9*math.Max(1, v) {
					t.Fatalf("adjust round trip of %v in %s = %v", v, m, back)
				}
			}
		}
	}
}
