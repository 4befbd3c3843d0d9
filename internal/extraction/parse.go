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

package extraction

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/matthewgall/meterlens/internal/models"
)

// Defaults applied to candidates the provider left partially described
const (
	DefaultCandidateConfidence = 50.0
	ChartPointConfidence       = 80.0
)

// BoundingBox locates a value on the photo, in percent of width and height
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Candidate is one number the provider read off the photo
type Candidate struct {
	Value      float64                 `json:"value"`
	Unit       models.Unit             `json:"unit"`
	Type       models.ValueType        `json:"type"`
	MeterType  models.MeterReadingType `json:"meterType,omitempty"`
	Confidence float64                 `json:"confidence"`
	Location   BoundingBox             `json:"location"`
	RawText    string                  `json:"rawText,omitempty"`
	Date       *time.Time              `json:"date,omitempty"`
}

// DateRange is the period the whole photo covers
type DateRange struct {
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Description string    `json:"description,omitempty"`
}

// ChartPoint is one bar or point of a chart
type ChartPoint struct {
	Label string     `json:"label"`
	Value float64    `json:"value"`
	Date  *time.Time `json:"date,omitempty"`
}

// ChartSeries holds the data points read from a chart
type ChartSeries struct {
	Type       string       `json:"type"`
	Unit       models.Unit  `json:"unit"`
	Points     []ChartPoint `json:"points"`
	XAxisLabel string       `json:"xAxisLabel,omitempty"`
	YAxisLabel string       `json:"yAxisLabel,omitempty"`
}

// Result is the typed outcome of one photo extraction
type Result struct {
	DocumentType models.DocumentType `json:"documentType"`
	Confidence   float64             `json:"confidence"`
	Supplier     string              `json:"supplier,omitempty"`
	DateRange    *DateRange          `json:"dateRange,omitempty"`
	Values       []Candidate         `json:"values"`
	Chart        *ChartSeries        `json:"chart,omitempty"`
	FullText     string              `json:"fullText,omitempty"`
	Warnings     []string            `json:"warnings,omitempty"`
}

// Empty reports whether nothing usable was extracted
func (r *Result) Empty() bool {
	return r == nil || (len(r.Values) == 0 && (r.Chart == nil || len(r.Chart.Points) == 0))
}

type rawResponse struct {
	DocumentType    string        `json:"documentType"`
	Confidence      *float64      `json:"confidence"`
	Supplier        string        `json:"supplier"`
	DateRange       *rawDateRange `json:"dateRange"`
	ExtractedValues []rawValue    `json:"extractedValues"`
	ChartData       *rawChart     `json:"chartData"`
	FullText        string        `json:"fullText"`
	Warnings        []string      `json:"warnings"`
}

type rawDateRange struct {
	Start       string `json:"start"`
	End         string `json:"end"`
	Description string `json:"description"`
}

type rawValue struct {
	Value      float64  `json:"value"`
	Unit       string   `json:"unit"`
	Type       string   `json:"type"`
	MeterType  string   `json:"meterType"`
	Confidence *float64 `json:"confidence"`
	Label      string   `json:"label"`
	Position   string   `json:"position"`
	Date       string   `json:"date"`
}

type rawChart struct {
	Type       string          `json:"type"`
	DataPoints []rawChartPoint `json:"dataPoints"`
	XAxisLabel string          `json:"xAxisLabel"`
	YAxisLabel string          `json:"yAxisLabel"`
}

type rawChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Date  string  `json:"date"`
}

var jsonObject = regexp.MustCompile(`\{[\s\S]*\}`)

// ParseResponse turns a provider completion into a typed Result. Markdown
// fences or prose around the JSON object are ignored. Candidates with an
// unknown unit or value type are dropped and reported in Warnings.
func ParseResponse(content string, uploadedAt time.Time) (*Result, error) {
	payload := jsonObject.FindString(content)
	if payload == "" {
		return nil, &ParseError{Reason: "no JSON object in response"}
	}
	if err := validatePayload([]byte(payload)); err != nil {
		return nil, err
	}

	var raw rawResponse
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, &ParseError{Reason: "decode response", Err: err}
	}

	result := &Result{
		DocumentType: models.ParseDocumentType(raw.DocumentType),
		Supplier:     strings.TrimSpace(raw.Supplier),
		FullText:     raw.FullText,
		Warnings:     append([]string(nil), raw.Warnings...),
		Values:       []Candidate{},
	}
	if raw.Confidence != nil {
		result.Confidence = clamp(*raw.Confidence)
	}
	if raw.DateRange != nil {
		result.DateRange = resolveDateRange(*raw.DateRange, uploadedAt)
	}

	for i, v := range raw.ExtractedValues {
		c, err := toCandidate(v)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("value %d dropped: %v", i+1, err))
			continue
		}
		result.Values = append(result.Values, c)
	}

	if raw.ChartData != nil && len(raw.ChartData.DataPoints) > 0 {
		result.Chart = toChart(*raw.ChartData)
	}
	return result, nil
}

func toCandidate(v rawValue) (Candidate, error) {
	if math.IsNaN(v.Value) || math.IsInf(v.Value, 0) {
		return Candidate{}, fmt.Errorf("value is not finite")
	}

	c := Candidate{
		Value:      v.Value,
		Unit:       models.UnitKWh,
		Type:       models.ValueMeterReading,
		Confidence: DefaultCandidateConfidence,
		Location:   parseLocation(v.Position),
		RawText:    v.Label,
	}
	if v.Unit != "" {
		u, err := models.ParseUnit(v.Unit)
		if err != nil {
			return Candidate{}, err
		}
		c.Unit = u
	}
	if v.Type != "" {
		t := models.ValueType(v.Type)
		if !t.Valid() {
			return Candidate{}, fmt.Errorf("unknown value type %q", v.Type)
		}
		c.Type = t
	}
	if m := models.MeterReadingType(v.MeterType); m.Valid() {
		c.MeterType = m
	}
	if v.Confidence != nil && *v.Confidence > 0 {
		c.Confidence = clamp(*v.Confidence)
	}
	if d, ok := parseDate(v.Date); ok {
		c.Date = &d
	}
	return c, nil
}

func toChart(raw rawChart) *ChartSeries {
	series := &ChartSeries{
		Type:       raw.Type,
		Unit:       models.UnitKWh,
		XAxisLabel: raw.XAxisLabel,
		YAxisLabel: raw.YAxisLabel,
	}
	if series.Type == "" {
		series.Type = "line"
	}
	if u, err := models.ParseUnit(strings.TrimSpace(raw.YAxisLabel)); err == nil {
		series.Unit = u
	}
	for _, p := range raw.DataPoints {
		point := ChartPoint{Label: p.Label, Value: p.Value}
		if d, ok := parseDate(p.Date); ok {
			point.Date = &d
		}
		series.Points = append(series.Points, point)
	}
	return series
}

// resolveDateRange fills a missing bound from the description. A range with
// neither bound is discarded.
func resolveDateRange(raw rawDateRange, uploadedAt time.Time) *DateRange {
	start, hasStart := parseDate(raw.Start)
	end, hasEnd := parseDate(raw.End)
	if !hasStart && !hasEnd {
		return nil
	}
	if !hasStart {
		start = StartFromDescription(raw.Description, uploadedAt)
	}
	if !hasEnd {
		end = EndFromDescription(raw.Description, uploadedAt)
	}
	return &DateRange{Start: start, End: end, Description: raw.Description}
}

// StartFromDescription resolves phrases like "last 7 days" against the upload
// instant. Anything unrecognised means one month back.
func StartFromDescription(description string, uploadedAt time.Time) time.Time {
	desc := strings.ToLower(description)
	switch {
	case strings.Contains(desc, "last 7 days"), strings.Contains(desc, "last week"):
		return uploadedAt.AddDate(0, 0, -7)
	case strings.Contains(desc, "last 30 days"), strings.Contains(desc, "last month"):
		return uploadedAt.AddDate(0, -1, 0)
	case strings.Contains(desc, "last year"):
		return uploadedAt.AddDate(-1, 0, 0)
	case strings.Contains(desc, "yesterday"):
		return uploadedAt.AddDate(0, 0, -1)
	case strings.Contains(desc, "today"):
		return uploadedAt
	default:
		return uploadedAt.AddDate(0, -1, 0)
	}
}

// EndFromDescription is the upload instant, or the day before for "yesterday"
func EndFromDescription(description string, uploadedAt time.Time) time.Time {
	if strings.Contains(strings.ToLower(description), "yesterday") {
		return uploadedAt.AddDate(0, 0, -1)
	}
	return uploadedAt
}

var positions = map[string]BoundingBox{
	"top-left":     {X: 0, Y: 0},
	"top-right":    {X: 80, Y: 0},
	"center":       {X: 40, Y: 40},
	"bottom-left":  {X: 0, Y: 80},
	"bottom-right": {X: 80, Y: 80},
}

func parseLocation(position string) BoundingBox {
	box := positions[strings.ToLower(strings.TrimSpace(position))]
	box.Width = 20
	box.Height = 20
	return box
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02/01/2006",
	"2 January 2006",
	"January 2006",
	"Jan 2006",
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
