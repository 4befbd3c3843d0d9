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
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/matthewgall/meterlens/internal/extraction"
	"github.com/matthewgall/meterlens/internal/models"
)

var uploaded = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time {
	return &t
}

func TestValuesFromExtraction(t *testing.T) {
	photo := models.Photo{ID: "photo-1", UserID: "u1", DocumentType: models.DocUnknown}
	result := &extraction.Result{
		DocumentType: models.DocMonthlyChart,
		Values: []extraction.Candidate{
			{Value: 309.4, Unit: models.UnitKWh, Type: models.ValueMonthlyTotal, Confidence: 90, Date: ptr(date(2024, 2, 10))},
		},
		Chart: &extraction.ChartSeries{
			Unit:   models.UnitKWh,
			Points: []extraction.ChartPoint{{Label: "Wed", Value: 10}, {Label: "Thu", Value: 12}},
		},
	}

	values := ValuesFromExtraction(photo, result, uploaded)
	if len(values) != 3 {
		t.Fatalf("expected 3 values, got %d", len(values))
	}

	total := values[0]
	if total.Granularity != models.Monthly || !total.StartDate.Equal(date(2024, 2, 1)) || !total.EndDate.Equal(date(2024, 2, 29)) {
		t.Errorf("unexpected monthly period %v - %v (%s)", total.StartDate, total.EndDate, total.Granularity)
	}
	if total.DateConfidence != 80 || total.UserID != "u1" || total.PhotoID != "photo-1" {
		t.Errorf("unexpected total %+v", total)
	}

	first, second := values[1], values[2]
	if first.ValueType != models.ValueChartDataPoint || first.Granularity != models.Daily {
		t.Errorf("unexpected chart value %+v", first)
	}
	if !first.StartDate.Equal(date(2024, 3, 13)) || !second.StartDate.Equal(date(2024, 3, 14)) {
		t.Errorf("undated bars should end the day before upload, got %v and %v", first.StartDate, second.StartDate)
	}
	if first.DateConfidence != 60 {
		t.Errorf("positional bars should keep the chart window confidence, got %v", first.DateConfidence)
	}
	if first.ExtractionConfidence != extraction.ChartPointConfidence {
		t.Errorf("chart confidence = %v", first.ExtractionConfidence)
	}
	for _, v := range values {
		if err := v.Validate(); err != nil {
			t.Errorf("invalid value: %v", err)
		}
	}
}

func TestValuesFromExtractionIsDeterministic(t *testing.T) {
	photo := models.Photo{ID: "p", UserID: "u"}
	result := &extraction.Result{Values: []extraction.Candidate{{Value: 5, Unit: models.UnitKWh, Type: models.ValueDailyAverage, Confidence: 70}}}
	a := ValuesFromExtraction(photo, result, uploaded)
	b := ValuesFromExtraction(photo, result, uploaded)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("expected identical values for identical input")
	}
}

func TestValuesFromEmptyExtraction(t *testing.T) {
	photo := models.Photo{ID: "p", UserID: "u"}
	if got := ValuesFromExtraction(photo, nil, uploaded); len(got) != 0 {
		t.Fatalf("expected no values for nil result, got %d", len(got))
	}
	if got := ValuesFromExtraction(photo, &extraction.Result{}, uploaded); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", got)
	}
}

func TestDateRangeUsedWhenItMatchesGranularity(t *testing.T) {
	photo := models.Photo{ID: "p", UserID: "u"}
	candidate := extraction.Candidate{Value: 280, Unit: models.UnitKWh, Type: models.ValueMonthlyTotal, Confidence: 85}

	matching := &extraction.Result{
		DocumentType: models.DocPaperBill,
		DateRange:    &extraction.DateRange{Start: date(2024, 2, 1), End: date(2024, 2, 29)},
		Values:       []extraction.Candidate{candidate},
	}
	v := ValuesFromExtraction(photo, matching, uploaded)[0]
	if !v.StartDate.Equal(date(2024, 2, 1)) || v.DateConfidence != 80 {
		t.Errorf("expected February from the date range, got %v (%v)", v.StartDate, v.DateConfidence)
	}

	quarter := &extraction.Result{
		DocumentType: models.DocPaperBill,
		DateRange:    &extraction.DateRange{Start: date(2024, 1, 1), End: date(2024, 3, 31)},
		Values:       []extraction.Candidate{candidate},
	}
	v = ValuesFromExtraction(photo, quarter, uploaded)[0]
	if !v.StartDate.Equal(date(2024, 2, 15)) || v.DateConfidence != 50 {
		t.Errorf("expected fallback window, got %v (%v)", v.StartDate, v.DateConfidence)
	}
}

func TestTariffHint(t *testing.T) {
	values := []models.ExtractedValue{
		{ValueType: models.ValueTariffRate, Unit: models.UnitPence, Value: 24.5, ExtractionConfidence: 60},
		{ValueType: models.ValueTariffRate, Unit: models.UnitGBP, Value: 0.28, ExtractionConfidence: 90},
		{ValueType: models.ValueTariffRate, Unit: models.UnitKWh, Value: 99, ExtractionConfidence: 99},
		{ValueType: models.ValueMonthlyTotal, Unit: models.UnitKWh, Value: 300, ExtractionConfidence: 100},
	}
	if got := TariffHint(values); math.Abs(got-28) > 1e-9 {
		t.Errorf("TariffHint = %v, want 28", got)
	}
	if got := TariffHint(nil); got != 0 {
		t.Errorf("TariffHint(nil) = %v, want 0", got)
	}
}

func TestBarGranularity(t *testing.T) {
	if BarGranularity(models.DocYearlyChart) != models.Monthly {
		t.Error("yearly charts plot months")
	}
	if BarGranularity(models.DocWeeklyChart) != models.Daily {
		t.Error("weekly charts plot days")
	}
}
