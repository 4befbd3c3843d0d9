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
	"math"
	"testing"
	"time"

	"github.com/matthewgall/meterlens/internal/cache"
	"github.com/matthewgall/meterlens/internal/models"
	"github.com/matthewgall/meterlens/internal/seasonal"
	"github.com/matthewgall/meterlens/internal/tariff"
)

var now = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

func monthlyRecords() []models.ConsumptionRecord {
	var records []models.ConsumptionRecord
	for m := time.January; m <= time.December; m++ {
		daily := 10.0
		switch seasonal.SeasonForMonth(m) {
		case models.Winter:
			daily = 12
		case models.Summer:
			daily = 8
		}
		start := date(2023, m, 1)
		end := start.AddDate(0, 1, -1)
		r := models.ConsumptionRecord{
			ID:          models.DerivedID("u1", start.Format("2006-01-02"), "monthly"),
			UserID:      "u1",
			StartDate:   start,
			EndDate:     end,
			Granularity: models.Monthly,
			DataSource:  models.SourceExtracted,
			Confidence:  80,
		}
		r.ElectricityImport = daily * float64(r.Days())
		records = append(records, r)
	}
	return records
}

func TestAggregate(t *testing.T) {
	records := monthlyRecords()
	res := Aggregate(Input{
		UserID:        "u1",
		Postcode:      "SW1A 1AA",
		HouseholdSize: 3,
		Photos:        4,
		Records:       records,
		Now:           now,
	})

	a := res.Analytics
	if a.TotalReadings != 12 || a.TotalPhotos != 4 || len(a.MonthlyUsage) != 12 || len(a.DailyUsage) != 0 {
		t.Errorf("unexpected series sizes: %+v", a)
	}
	if len(a.MonthlyProfile) != 12 {
		t.Errorf("expected 12 monthly profile entries, got %d", len(a.MonthlyProfile))
	}
	if a.WinterAverage != 12 || a.SummerAverage != 8 || a.SeasonalVariation != 50 {
		t.Errorf("seasonal averages = %v / %v (%v%%)", a.WinterAverage, a.SummerAverage, a.SeasonalVariation)
	}
	if a.DataCompleteness != 25 {
		t.Errorf("completeness = %v, want 25", a.DataCompleteness)
	}
	if a.VsNationalAverage == nil || a.VsNationalAverage.ReferenceAverage != 2700 {
		t.Errorf("national comparison = %+v", a.VsNationalAverage)
	}
	if a.VsSimilarHouseholds == nil || a.VsSimilarHouseholds.ReferenceAverage != 2900 {
		t.Errorf("household comparison = %+v", a.VsSimilarHouseholds)
	}
	if res.Estimate.Method != models.MethodInterpolation || res.Estimate.MonthsCovered != 12 {
		t.Errorf("unexpected estimate %+v", res.Estimate)
	}
	if res.RateSource != tariff.SourceDefault || res.Estimate.UnitRate != tariff.DefaultUnitRate {
		t.Errorf("expected default rate, got %v from %s", res.Estimate.UnitRate, res.RateSource)
	}
	if len(res.Insights) == 0 {
		t.Error("expected insights")
	}
	if res.Anomalies == nil {
		t.Error("anomalies should be non-nil")
	}
}

func TestAggregateUsesTariffs(t *testing.T) {
	records := monthlyRecords()
	agreements := []tariff.Agreement{{Name: "Fixed", ValidFrom: date(2023, 1, 1), UnitRate: 30}}

	res := Aggregate(Input{UserID: "u1", Records: records, Tariffs: agreements, TariffHint: 22, Now: now})

	if res.Estimate.UnitRate != 30 || res.RateSource != tariff.SourceAgreement {
		t.Errorf("expected agreement rate, got %v from %s", res.Estimate.UnitRate, res.RateSource)
	}
	jan := res.Records[0]
	if jan.ElectricityCost == nil || math.Abs(*jan.ElectricityCost-111.6) > 1e-9 {
		t.Errorf("January cost = %v, want 111.6", jan.ElectricityCost)
	}
	if records[0].ElectricityCost != nil {
		t.Error("input records must not be modified")
	}
}

func TestAggregateSkipsAnomaliesBelowMinimum(t *testing.T) {
	records := monthlyRecords()[:4]
	records[0].ElectricityImport *= 5
	res := Aggregate(Input{UserID: "u1", Records: records, Now: now})
	if len(res.Anomalies) != 0 {
		t.Fatalf("expected no anomalies with 4 records, got %d", len(res.Anomalies))
	}
	if res.Estimate.DataQuality != models.QualityPoor {
		t.Errorf("quality = %s, want poor", res.Estimate.DataQuality)
	}
}

func TestAggregateNoRecords(t *testing.T) {
	res := Aggregate(Input{UserID: "u1", Now: now})
	if res.Analytics.VsNationalAverage != nil {
		t.Error("no comparison without records")
	}
	if res.Estimate.Method != models.MethodSeasonalEstimation || res.Estimate.Confidence != 0 {
		t.Errorf("unexpected cold-start estimate %+v", res.Estimate)
	}
}

type countingEnricher struct {
	calls int
}

func (e *countingEnricher) Enrich(ctx context.Context, anomalies []models.Anomaly) ([]models.Anomaly, error) {
	e.calls++
	out := append([]models.Anomaly(nil), anomalies...)
	for i := range out {
		out[i].Weather = &models.WeatherSummary{MeanTemp: 3, Days: 1}
	}
	return out, nil
}

func spikeRecords() []models.ConsumptionRecord {
	var records []models.ConsumptionRecord
	for i, kwh := range []float64{10, 10, 10, 10, 10, 30} {
		day := date(2024, 3, 4+i)
		records = append(records, models.ConsumptionRecord{
			ID:                models.DerivedID("u1", day.Format("2006-01-02"), "daily"),
			UserID:            "u1",
			StartDate:         day,
			EndDate:           day,
			Granularity:       models.Daily,
			ElectricityImport: kwh,
			DataSource:        models.SourceExtracted,
			Confidence:        85,
		})
	}
	return records
}

func TestRunnerCachesAndEnriches(t *testing.T) {
	clock := now
	c := cache.NewMemory(func() time.Time { return clock })
	enricher := &countingEnricher{}
	runner := NewRunner(c, nil, WithEnricher(enricher), WithTTL(time.Hour))

	profile := seasonal.DefaultProfile("u1", "")
	in := Input{UserID: "u1", Records: spikeRecords(), Profile: &profile, Now: now}

	first, err := runner.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(first.Anomalies) != 1 || first.Anomalies[0].Weather == nil {
		t.Fatalf("expected one enriched anomaly, got %+v", first.Anomalies)
	}
	if first.Analytics.Anomalies[0].Weather == nil {
		t.Error("analytics should carry enriched anomalies")
	}

	second, err := runner.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if enricher.calls != 1 {
		t.Errorf("expected cached second run, enricher called %d times", enricher.calls)
	}
	if second.Anomalies[0].Weather == nil || second.Anomalies[0].Weather.MeanTemp != 3 {
		t.Errorf("cached result lost enrichment: %+v", second.Anomalies)
	}

	clock = clock.Add(2 * time.Hour)
	if _, err := runner.Run(context.Background(), in); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if enricher.calls != 2 {
		t.Errorf("expected recompute after TTL, enricher called %d times", enricher.calls)
	}

	changed := in
	changed.Records = spikeRecords()
	changed.Records[5].ElectricityImport = 45
	if _, err := runner.Run(context.Background(), changed); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if enricher.calls != 3 {
		t.Errorf("expected recompute for changed records, enricher called %d times", enricher.calls)
	}
}

func TestRunnerProfileCached(t *testing.T) {
	c := cache.NewMemory(func() time.Time { return now })
	runner := NewRunner(c, nil)
	in := Input{UserID: "u1", Postcode: "M1 1AA", Records: monthlyRecords(), Now: now}

	p1 := runner.Profile(in)
	p2 := runner.Profile(in)
	if p1.WinterFactor != p2.WinterFactor || p1.Region != p2.Region {
		t.Fatalf("profiles differ: %+v vs %+v", p1, p2)
	}
	if c.Stats().Total != 1 {
		t.Errorf("expected one cached profile, got %d entries", c.Stats().Total)
	}
}

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint("SW1", monthlyRecords())
	b := Fingerprint("SW1", monthlyRecords())
	if a != b || len(a) != 64 {
		t.Fatalf("fingerprint not stable: %s vs %s", a, b)
	}
	if a == Fingerprint("SW2", monthlyRecords()) {
		t.Fatal("fingerprint ignores postcode")
	}
}
