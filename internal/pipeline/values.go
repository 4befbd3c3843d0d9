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

// Package pipeline connects extraction, period inference, reconciliation
// and the estimators into the flow that turns photos into analytics.
package pipeline

import (
	"strconv"
	"time"

	"github.com/matthewgall/meterlens/internal/extraction"
	"github.com/matthewgall/meterlens/internal/models"
	"github.com/matthewgall/meterlens/internal/period"
)

// ValuesFromExtraction maps an extraction result onto extracted values with
// inferred periods. An empty or nil result yields no values.
func ValuesFromExtraction(photo models.Photo, result *extraction.Result, uploadedAt time.Time) []models.ExtractedValue {
	values := []models.ExtractedValue{}
	if result.Empty() {
		return values
	}

	doc := result.DocumentType
	if doc == models.DocUnknown || doc == "" {
		doc = photo.DocumentType
	}

	for i, c := range result.Values {
		v := models.ExtractedValue{
			ID:                   models.DerivedID(photo.ID, "value", strconv.Itoa(i)),
			PhotoID:              photo.ID,
			UserID:               photo.UserID,
			Value:                c.Value,
			Unit:                 c.Unit,
			ValueType:            c.Type,
			MeterReadingType:     c.MeterType,
			ExtractedDate:        c.Date,
			Granularity:          period.GranularityFor(c.Type, doc),
			ExtractionConfidence: c.Confidence,
			CreatedAt:            uploadedAt,
		}
		if v.ExtractedDate == nil {
			v.ExtractedDate = rangeDate(result.DateRange, v.Granularity)
		}
		values = append(values, withPeriod(v, uploadedAt, doc))
	}

	if result.Chart != nil {
		values = append(values, chartValues(photo, result.Chart, doc, uploadedAt)...)
	}
	return values
}

// chartValues turns each bar of a chart into a value. Undated bars are laid
// out backwards from the end of the window the document type implies.
func chartValues(photo models.Photo, chart *extraction.ChartSeries, doc models.DocumentType, uploadedAt time.Time) []models.ExtractedValue {
	gran := BarGranularity(doc)
	window := period.Infer(models.ExtractedValue{}, uploadedAt, doc)
	n := len(chart.Points)

	values := make([]models.ExtractedValue, 0, n)
	for i, p := range chart.Points {
		v := models.ExtractedValue{
			ID:                   models.DerivedID(photo.ID, "chart", strconv.Itoa(i)),
			PhotoID:              photo.ID,
			UserID:               photo.UserID,
			Value:                p.Value,
			Unit:                 chart.Unit,
			ValueType:            models.ValueChartDataPoint,
			Granularity:          gran,
			ExtractionConfidence: extraction.ChartPointConfidence,
			CreatedAt:            uploadedAt,
		}

		positional := p.Date == nil
		if positional {
			d := stepBack(models.StartOfDay(window.End), gran, n-1-i)
			v.ExtractedDate = &d
		} else {
			v.ExtractedDate = p.Date
		}

		v = withPeriod(v, uploadedAt, doc)
		if positional && window.Confidence < v.DateConfidence {
			v.DateConfidence = window.Confidence
		}
		values = append(values, v)
	}
	return values
}

// BarGranularity is the period one bar of a chart covers: weekly and
// monthly charts plot days, yearly charts plot months
func BarGranularity(doc models.DocumentType) models.Granularity {
	if doc == models.DocYearlyChart {
		return models.Monthly
	}
	return models.Daily
}

func withPeriod(v models.ExtractedValue, uploadedAt time.Time, doc models.DocumentType) models.ExtractedValue {
	p := period.Infer(v, uploadedAt, doc)
	v.StartDate = p.Start
	v.EndDate = p.End
	v.DateConfidence = p.Confidence
	return v
}

// rangeDate uses the photo's date range as an explicit date when its length
// matches the granularity of the value
func rangeDate(r *extraction.DateRange, gran models.Granularity) *time.Time {
	if r == nil || r.End.Before(r.Start) {
		return nil
	}
	days := models.DaysBetween(r.Start, r.End)
	var match bool
	switch gran {
	case models.Daily:
		match = days == 1
	case models.Weekly:
		match = days >= 7 && days <= 8
	case models.Monthly:
		match = days >= 28 && days <= 32
	case models.Yearly:
		match = days >= 360 && days <= 367
	}
	if !match {
		return nil
	}
	start := r.Start
	return &start
}

func stepBack(t time.Time, gran models.Granularity, steps int) time.Time {
	switch gran {
	case models.Monthly:
		return period.MonthStart(t).AddDate(0, -steps, 0)
	case models.Weekly:
		return t.AddDate(0, 0, -7*steps)
	case models.Yearly:
		return t.AddDate(-steps, 0, 0)
	default:
		return t.AddDate(0, 0, -steps)
	}
}

// TariffHint returns the most confident extracted tariff rate in pence per
// kWh, or zero when no photo showed one
func TariffHint(values []models.ExtractedValue) float64 {
	var best *models.ExtractedValue
	for i := range values {
		v := &values[i]
		if v.ValueType != models.ValueTariffRate || v.Value <= 0 {
			continue
		}
		if v.Unit != models.UnitPence && v.Unit != models.UnitGBP {
			continue
		}
		if best == nil || v.ExtractionConfidence > best.ExtractionConfidence {
			best = v
		}
	}
	if best == nil {
		return 0
	}
	if best.Unit == models.UnitGBP {
		return best.Value * 100
	}
	return best.Value
}
