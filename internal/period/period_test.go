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

package period

import (
	"testing"
	"time"

	"github.com/matthewgall/meterlens/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestInferExplicitDate(t *testing.T) {
	// Wednesday 14 February 2024
	on := time.Date(2024, 2, 14, 15, 30, 0, 0, time.UTC)
	upload := date(2024, 6, 1)

	tests := []struct {
		name       string
		vt         models.ValueType
		start, end time.Time
		confidence float64
	}{
		{"daily", models.ValueDailyAverage, date(2024, 2, 14), date(2024, 2, 14), 90},
		{"weekly", models.ValueWeeklyTotal, date(2024, 2, 12), date(2024, 2, 18), 85},
		{"monthly", models.ValueMonthlyTotal, date(2024, 2, 1), date(2024, 2, 29), 80},
		{"yearly", models.ValueYearlyTotal, date(2024, 1, 1), date(2024, 12, 31), 75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := models.ExtractedValue{ValueType: tt.vt, ExtractedDate: &on}
			got := Infer(v, upload, models.DocUnknown)
			if !got.Start.Equal(tt.start) || !got.End.Equal(tt.end) {
				t.Fatalf("got %s..%s, want %s..%s", got.Start, got.End, tt.start, tt.end)
			}
			if got.Confidence != tt.confidence {
				t.Fatalf("confidence = %v, want %v", got.Confidence, tt.confidence)
			}
		})
	}
}

func TestInferFromDocumentType(t *testing.T) {
	upload := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		doc        models.DocumentType
		start, end time.Time
		confidence float64
	}{
		{models.DocWeeklyChart, date(2024, 3, 8), date(2024, 3, 14), 65},
		{models.DocMonthlyChart, date(2024, 2, 15), date(2024, 3, 14), 60},
		{models.DocYearlyChart, date(2023, 3, 15), date(2024, 3, 14), 55},
		{models.DocSmartMeterReading, upload, upload, 70},
		{models.DocInHomeDisplay, upload, upload, 70},
		{models.DocPaperBill, date(2024, 2, 15), date(2024, 3, 14), 50},
	}
	for _, tt := range tests {
		t.Run(string(tt.doc), func(t *testing.T) {
			got := Infer(models.ExtractedValue{ValueType: models.ValueChartDataPoint}, upload, tt.doc)
			if !got.Start.Equal(tt.start) || !got.End.Equal(tt.end) {
				t.Fatalf("got %s..%s, want %s..%s", got.Start, got.End, tt.start, tt.end)
			}
			if got.Confidence != tt.confidence {
				t.Fatalf("confidence = %v, want %v", got.Confidence, tt.confidence)
			}
		})
	}
}

func TestInferWeeklyChartCoversSevenDays(t *testing.T) {
	upload := time.Date(2024, 1, 3, 8, 0, 0, 0, time.UTC)
	got := Infer(models.ExtractedValue{}, upload, models.DocWeeklyChart)
	if days := DaysBetween(got.Start, got.End); days != 7 {
		t.Fatalf("weekly chart covers %d days, want 7", days)
	}
}

func TestGranularityFor(t *testing.T) {
	tests := []struct {
		vt   models.ValueType
		doc  models.DocumentType
		want models.Granularity
	}{
		{models.ValueMonthlyTotal, models.DocWeeklyChart, models.Monthly},
		{models.ValueDailyAverage, models.DocYearlyChart, models.Daily},
		{models.ValueChartDataPoint, models.DocWeeklyChart, models.Weekly},
		{models.ValueChartDataPoint, models.DocYearlyChart, models.Yearly},
		{models.ValueMeterReading, models.DocSmartMeterReading, models.Daily},
	}
	for _, tt := range tests {
		if got := GranularityFor(tt.vt, tt.doc); got != tt.want {
			t.Fatalf("GranularityFor(%s, %s) = %s, want %s", tt.vt, tt.doc, got, tt.want)
		}
	}
}
