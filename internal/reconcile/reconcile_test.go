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

package reconcile

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/matthewgall/meterlens/internal/models"
	"github.com/matthewgall/meterlens/internal/seasonal"
)

var created = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func value(v, confidence float64, vt models.ValueType) models.ExtractedValue {
	return models.ExtractedValue{
		Value:                v,
		Unit:                 models.UnitKWh,
		ValueType:            vt,
		StartDate:            time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		EndDate:              time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		ExtractionConfidence: confidence,
		CreatedAt:            created,
	}
}

func TestReconcileEmpty(t *testing.T) {
	r := Reconcile(nil, nil)
	if r.RecommendedValue != 0 || r.Confidence != 0 || r.RequiresUserConfirmation {
		t.Fatalf("unexpected result for no values: %+v", r)
	}
}

func TestReconcileSingle(t *testing.T) {
	tests := []struct {
		confidence float64
		confirm    bool
	}{
		{95, false},
		{70, false},
		{69.9, true},
	}
	for _, tt := range tests {
		r := Reconcile([]models.ExtractedValue{value(250, tt.confidence, models.ValueMonthlyTotal)}, nil)
		if r.RecommendedValue != 250 || r.RequiresUserConfirmation != tt.confirm {
			t.Fatalf("confidence %v: got %+v", tt.confidence, r)
		}
		if r.Strategy != StrategySingle {
			t.Fatalf("strategy = %s", r.Strategy)
		}
	}
}

func TestReconcileWeightedAverage(t *testing.T) {
	values := []models.ExtractedValue{
		value(320, 80, models.ValueMonthlyTotal),
		value(300, 90, models.ValueMonthlyTotal),
	}
	r := Reconcile(values, nil)
	if r.RecommendedValue != 309.41 {
		t.Fatalf("recommended = %v, want 309.41", r.RecommendedValue)
	}
	if r.RequiresUserConfirmation {
		t.Fatal("agreeing values should not need confirmation")
	}
	if r.Confidence != 90 || r.Strategy != StrategyWeightedAverage {
		t.Fatalf("got confidence %v strategy %s", r.Confidence, r.Strategy)
	}
}

func TestReconcileWeightedAverageZeroConfidence(t *testing.T) {
	values := []models.ExtractedValue{
		value(100, 0, models.ValueMonthlyTotal),
		value(104, 0, models.ValueMonthlyTotal),
	}
	if r := Reconcile(values, nil); r.RecommendedValue != 102 {
		t.Fatalf("recommended = %v, want 102", r.RecommendedValue)
	}
}

func TestReconcileStrategies(t *testing.T) {
	profile := seasonal.DefaultProfile("house-1", "")

	older := value(400, 80, models.ValueMonthlyTotal)
	older.CreatedAt = created.AddDate(0, 0, -10)

	tests := []struct {
		name     string
		values   []models.ExtractedValue
		profile  *models.SeasonalProfile
		want     float64
		confirm  bool
		strategy string
	}{
		{
			name: "direct reading preferred",
			values: []models.ExtractedValue{
				value(200, 70, models.ValueMeterReading),
				value(300, 95, models.ValueChartDataPoint),
			},
			want: 200, confirm: true, strategy: StrategyDirectReadings,
		},
		{
			name: "two direct readings need no confirmation",
			values: []models.ExtractedValue{
				value(200, 60, models.ValueMeterReading),
				value(210, 60, models.ValueMeterReading),
				value(300, 95, models.ValueChartDataPoint),
			},
			want: 205, confirm: false, strategy: StrategyDirectReadings,
		},
		{
			name:   "recency",
			values: []models.ExtractedValue{older, value(300, 72, models.ValueMonthlyTotal)},
			want:   300, confirm: true, strategy: StrategyRecency,
		},
		{
			name: "dominant confidence",
			values: []models.ExtractedValue{
				value(300, 95, models.ValueMonthlyTotal),
				value(400, 60, models.ValueMonthlyTotal),
			},
			want: 300, confirm: false, strategy: StrategyDominantConfidence,
		},
		{
			name: "seasonal consistency",
			values: []models.ExtractedValue{
				value(300, 70, models.ValueMonthlyTotal),
				value(310, 70, models.ValueMonthlyTotal),
				value(320, 70, models.ValueMonthlyTotal),
				value(200, 70, models.ValueMonthlyTotal),
			},
			profile: &profile,
			want:    310, confirm: false, strategy: StrategySeasonalConsistency,
		},
		{
			name: "fallback",
			values: []models.ExtractedValue{
				value(300, 70, models.ValueMonthlyTotal),
				value(450, 65, models.ValueMonthlyTotal),
			},
			want: 300, confirm: true, strategy: StrategyFallback,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Reconcile(tt.values, tt.profile)
			if r.Strategy != tt.strategy {
				t.Fatalf("strategy = %s, want %s (%s)", r.Strategy, tt.strategy, r.Reasoning)
			}
			if r.RecommendedValue != tt.want {
				t.Fatalf("recommended = %v, want %v", r.RecommendedValue, tt.want)
			}
			if r.RequiresUserConfirmation != tt.confirm {
				t.Fatalf("confirmation = %v, want %v", r.RequiresUserConfirmation, tt.confirm)
			}
		})
	}
}

func TestReconcileIdempotent(t *testing.T) {
	profile := seasonal.DefaultProfile("house-1", "")
	values := []models.ExtractedValue{
		value(300, 70, models.ValueMonthlyTotal),
		value(310, 72, models.ValueMonthlyTotal),
		value(450, 65, models.ValueChartDataPoint),
	}
	first := Reconcile(values, &profile)
	second := Reconcile(values, &profile)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("results differ:\n%+v\n%+v", first, second)
	}
}

func TestReconcileConvergence(t *testing.T) {
	sets := [][]float64{
		{100, 105, 109},
		{42.5, 42.5},
		{1000, 950, 999, 920},
		{7.1, 7.0, 6.9, 7.05, 6.95},
		{0.004, 0.0042},
		{0.0031, 0.003, 0.00305},
	}
	for _, set := range sets {
		var values []models.ExtractedValue
		lo, hi := math.Inf(1), math.Inf(-1)
		for i, v := range set {
			values = append(values, value(v, float64(50+i*10), models.ValueMonthlyTotal))
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
		r := Reconcile(values, nil)
		if r.RecommendedValue < lo || r.RecommendedValue > hi {
			t.Fatalf("recommended %v outside [%v, %v]", r.RecommendedValue, lo, hi)
		}
	}
}

func TestReconcileSingleSmallValueKeepsRange(t *testing.T) {
	r := Reconcile([]models.ExtractedValue{value(0.004, 90, models.ValueDailyAverage)}, nil)
	if r.RecommendedValue != 0.004 {
		t.Fatalf("recommended %v, want 0.004", r.RecommendedValue)
	}
}

func TestSpread(t *testing.T) {
	values := []models.ExtractedValue{value(320, 0, ""), value(300, 0, "")}
	if got := Spread(values); math.Abs(got-0.0625) > 1e-12 {
		t.Fatalf("Spread() = %v, want 0.0625", got)
	}
	if got := Spread([]models.ExtractedValue{value(0, 0, ""), value(0, 0, "")}); got != 0 {
		t.Fatalf("Spread() of zeros = %v", got)
	}
}
