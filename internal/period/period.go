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

// Package period infers the calendar period an extracted value covers.
package period

import (
	"time"

	"github.com/matthewgall/meterlens/internal/models"
)

// Date confidence scores for each inference route
const (
	ConfidenceExplicitDaily   = 90
	ConfidenceExplicitWeekly  = 85
	ConfidenceExplicitMonthly = 80
	ConfidenceExplicitYearly  = 75
	ConfidenceWeeklyChart     = 65
	ConfidenceMonthlyChart    = 60
	ConfidenceYearlyChart     = 55
	ConfidenceInstantReading  = 70
	ConfidenceFallback        = 50
)

// Result is an inferred period with the confidence of the inference
type Result struct {
	Start      time.Time
	End        time.Time // Inclusive last day, or the reading instant
	Confidence float64
}

// Infer works out the period a value covers. An explicit date on the value
// is snapped to its granularity; otherwise the document type decides a
// window relative to the upload instant.
func Infer(value models.ExtractedValue, uploadedAt time.Time, doc models.DocumentType) Result {
	gran := value.Granularity
	if !gran.Valid() {
		gran = GranularityFor(value.ValueType, doc)
	}

	if value.ExtractedDate != nil {
		return explicit(*value.ExtractedDate, gran)
	}

	today := models.StartOfDay(uploadedAt)
	yesterday := today.AddDate(0, 0, -1)

	switch doc {
	case models.DocWeeklyChart:
		return Result{Start: today.AddDate(0, 0, -7), End: yesterday, Confidence: ConfidenceWeeklyChart}
	case models.DocMonthlyChart:
		return Result{Start: today.AddDate(0, -1, 0), End: yesterday, Confidence: ConfidenceMonthlyChart}
	case models.DocYearlyChart:
		return Result{Start: today.AddDate(-1, 0, 0), End: yesterday, Confidence: ConfidenceYearlyChart}
	case models.DocSmartMeterReading, models.DocInHomeDisplay:
		return Result{Start: uploadedAt, End: uploadedAt, Confidence: ConfidenceInstantReading}
	default:
		return Result{Start: today.AddDate(0, -1, 0), End: yesterday, Confidence: ConfidenceFallback}
	}
}

func explicit(d time.Time, gran models.Granularity) Result {
	day := models.StartOfDay(d)
	switch gran {
	case models.Weekly:
		start := WeekStart(day)
		return Result{Start: start, End: start.AddDate(0, 0, 6), Confidence: ConfidenceExplicitWeekly}
	case models.Monthly:
		start := MonthStart(day)
		return Result{Start: start, End: start.AddDate(0, 1, -1), Confidence: ConfidenceExplicitMonthly}
	case models.Yearly:
		start := time.Date(day.Year(), time.January, 1, 0, 0, 0, 0, day.Location())
		return Result{Start: start, End: start.AddDate(1, 0, -1), Confidence: ConfidenceExplicitYearly}
	default:
		return Result{Start: day, End: day, Confidence: ConfidenceExplicitDaily}
	}
}

// GranularityFor picks a granularity, preferring what the value type says
// over what the document type suggests
func GranularityFor(vt models.ValueType, doc models.DocumentType) models.Granularity {
	switch vt {
	case models.ValueWeeklyTotal:
		return models.Weekly
	case models.ValueMonthlyTotal:
		return models.Monthly
	case models.ValueYearlyTotal:
		return models.Yearly
	case models.ValueDailyAverage:
		return models.Daily
	}

	switch doc {
	case models.DocWeeklyChart:
		return models.Weekly
	case models.DocMonthlyChart:
		return models.Monthly
	case models.DocYearlyChart:
		return models.Yearly
	}
	return models.Daily
}

// DaysBetween returns the inclusive calendar-day count, minimum 1
func DaysBetween(start, end time.Time) int {
	return models.DaysBetween(start, end)
}

// WeekStart returns midnight on the Monday of the week containing t
func WeekStart(t time.Time) time.Time {
	day := models.StartOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// MonthStart returns midnight on the first of t's month
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
