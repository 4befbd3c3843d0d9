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

// Package models holds the data types shared by every stage of the
// consumption inference pipeline.
package models

import (
	"fmt"
	"time"
)

// Photo is one uploaded image and its extraction status
type Photo struct {
	ID            string       `json:"id"`
	UserID        string       `json:"userId"`
	UploadedAt    time.Time    `json:"uploadedAt"`
	Path          string       `json:"path"`
	DocumentType  DocumentType `json:"documentType"`
	Status        PhotoStatus  `json:"status"`
	Confidence    float64      `json:"confidence"` // 0-100
	UserConfirmed bool         `json:"userConfirmed"`
	Error         string       `json:"error,omitempty"`
}

// ExtractedValue is one number pulled from one photo
type ExtractedValue struct {
	ID                   string            `json:"id"`
	PhotoID              string            `json:"photoId"`
	UserID               string            `json:"userId"`
	Value                float64           `json:"value"`
	Unit                 Unit              `json:"unit"`
	ValueType            ValueType         `json:"valueType"`
	MeterReadingType     MeterReadingType  `json:"meterReadingType,omitempty"`
	ExtractedDate        *time.Time        `json:"extractedDate,omitempty"` // Explicit date printed on the photo
	StartDate            time.Time         `json:"startDate"`
	EndDate              time.Time         `json:"endDate"` // Inclusive last day of the period
	Granularity          Granularity       `json:"granularity"`
	DateConfidence       float64           `json:"dateConfidence"`       // 0-100
	ExtractionConfidence float64           `json:"extractionConfidence"` // 0-100
	Validated            bool              `json:"validated"`
	Anomaly              bool              `json:"anomaly"`
	RelatedValueIDs      []string          `json:"relatedValueIds,omitempty"`
	CreatedAt            time.Time         `json:"createdAt"`
}

// Validate checks the structural invariants of an extracted value
func (v ExtractedValue) Validate() error {
	if v.EndDate.Before(v.StartDate) {
		return fmt.Errorf("value %s: end date %s before start date %s", v.ID, v.EndDate.Format("2006-01-02"), v.StartDate.Format("2006-01-02"))
	}
	if v.DateConfidence < 0 || v.DateConfidence > 100 {
		return fmt.Errorf("value %s: date confidence %.1f outside 0-100", v.ID, v.DateConfidence)
	}
	if v.ExtractionConfidence < 0 || v.ExtractionConfidence > 100 {
		return fmt.Errorf("value %s: extraction confidence %.1f outside 0-100", v.ID, v.ExtractionConfidence)
	}
	if !v.Unit.Valid() {
		return fmt.Errorf("value %s: unknown unit %q", v.ID, v.Unit)
	}
	if !v.ValueType.Valid() {
		return fmt.Errorf("value %s: unknown value type %q", v.ID, v.ValueType)
	}
	return nil
}

// ConsumptionRecord is one period's usage, possibly merged from several values
type ConsumptionRecord struct {
	ID                string      `json:"id"`
	UserID            string      `json:"userId"`
	StartDate         time.Time   `json:"startDate"`
	EndDate           time.Time   `json:"endDate"`
	Granularity       Granularity `json:"granularity"`
	ElectricityImport float64     `json:"electricityImport"`           // kWh
	ElectricityExport *float64    `json:"electricityExport,omitempty"` // kWh
	GasConsumption    *float64    `json:"gasConsumption,omitempty"`    // m3
	ElectricityCost   *float64    `json:"electricityCost,omitempty"`   // Pounds
	DataSource        DataSource  `json:"dataSource"`
	Confidence        float64     `json:"confidence"` // 0-100
	IsEstimated       bool        `json:"isEstimated"`
	SourcePhotoIDs    []string    `json:"sourcePhotoIds,omitempty"`
	SourceValueIDs    []string    `json:"sourceValueIds,omitempty"`
	CreatedAt         time.Time   `json:"createdAt"`
}

// Days returns the number of calendar days the record covers
func (r ConsumptionRecord) Days() int {
	return DaysBetween(r.StartDate, r.EndDate)
}

// DailyImport returns the record's import normalised to kWh per day
func (r ConsumptionRecord) DailyImport() float64 {
	return r.ElectricityImport / float64(r.Days())
}

// SeasonalProfile holds a household's seasonal adjustment factors
type SeasonalProfile struct {
	UserID            string      `json:"userId"`
	Postcode          string      `json:"postcode"`
	Region            string      `json:"region"`
	WinterFactor      float64     `json:"winterFactor"`
	SpringFactor      float64     `json:"springFactor"`
	SummerFactor      float64     `json:"summerFactor"`
	AutumnFactor      float64     `json:"autumnFactor"`
	HeatingDegreeDays [12]float64 `json:"heatingDegreeDays"` // January first
	CoolingDegreeDays [12]float64 `json:"coolingDegreeDays"` // January first
	DataPoints        int         `json:"dataPoints"`
	Confidence        float64     `json:"confidence"` // 0-100
	UpdatedAt         time.Time   `json:"updatedAt"`
}

// Factor returns the multiplicative factor for a season
func (p SeasonalProfile) Factor(s Season) float64 {
	switch s {
	case Winter:
		return p.WinterFactor
	case Spring:
		return p.SpringFactor
	case Summer:
		return p.SummerFactor
	case Autumn:
		return p.AutumnFactor
	}
	return 1.0
}

// Validate checks that every factor is strictly positive
func (p SeasonalProfile) Validate() error {
	for _, s := range []Season{Winter, Spring, Summer, Autumn} {
		if f := p.Factor(s); !(f > 0) {
			return fmt.Errorf("profile %s: %s factor must be positive, got %v", p.UserID, s, f)
		}
	}
	return nil
}

// UsageEstimate is the single "how much will I use and pay this year" answer
type UsageEstimate struct {
	UserID              string           `json:"userId"`
	EstimatedAt         time.Time        `json:"estimatedAt"`
	DailyAverage        float64          `json:"dailyAverage"`   // kWh/day
	WeeklyAverage       float64          `json:"weeklyAverage"`  // kWh/week
	MonthlyAverage      float64          `json:"monthlyAverage"` // kWh/month
	YearlyTotal         float64          `json:"yearlyTotal"`    // kWh/year
	YearlyMin           float64          `json:"yearlyMin"`
	YearlyMax           float64          `json:"yearlyMax"`
	TrendDirection      TrendDirection   `json:"trendDirection"`
	TrendPercentage     float64          `json:"trendPercentage"`
	Confidence          float64          `json:"confidence"` // 0-100
	DataQuality         DataQuality      `json:"dataQuality"`
	Method              EstimationMethod `json:"method"`
	MonthsCovered       int              `json:"monthsCovered"`
	BasedOnPhotos       int              `json:"basedOnPhotos"`
	BasedOnReadings     int              `json:"basedOnReadings"`
	CoverageStart       time.Time        `json:"coverageStart"`
	CoverageEnd         time.Time        `json:"coverageEnd"`
	UnitRate            float64          `json:"unitRate"`            // Pence per kWh
	EstimatedAnnualCost float64          `json:"estimatedAnnualCost"` // Pounds
	CostMin             float64          `json:"costMin"`             // Pounds
	CostMax             float64          `json:"costMax"`             // Pounds
}

// Metric is one number backing an insight
type Metric struct {
	Name           string   `json:"metric"`
	Value          float64  `json:"value"`
	Comparison     *float64 `json:"comparison,omitempty"`
	PercentageDiff *float64 `json:"percentageDiff,omitempty"`
}

// UsageInsight is a derived, user-facing finding
type UsageInsight struct {
	ID               string          `json:"id"`
	UserID           string          `json:"userId"`
	Type             InsightType     `json:"type"`
	Severity         InsightSeverity `json:"severity"`
	Priority         int             `json:"priority"` // 1-10
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	Explanation      string          `json:"explanation"`
	SupportingData   []Metric        `json:"supportingData"`
	Actionable       bool            `json:"actionable"`
	SuggestedActions []string        `json:"suggestedActions"`
	PotentialSavings *float64        `json:"potentialSavings,omitempty"` // Pounds per year
	Viewed           bool            `json:"viewed"`
	Dismissed        bool            `json:"dismissed"`
	CreatedAt        time.Time       `json:"createdAt"`
	ExpiresAt        *time.Time      `json:"expiresAt,omitempty"`
}

// ValueReconciliation is the outcome of resolving values that share a period
type ValueReconciliation struct {
	ConflictingValues        []ExtractedValue `json:"conflictingValues"`
	RecommendedValue         float64          `json:"recommendedValue"`
	Confidence               float64          `json:"confidence"`
	Reasoning                string           `json:"reasoning"`
	RequiresUserConfirmation bool             `json:"requiresUserConfirmation"`
	Strategy                 string           `json:"strategy"`
}

// Anomaly is a record that deviates materially from its seasonal expectation
type Anomaly struct {
	Record           ConsumptionRecord `json:"record"`
	Severity         Severity          `json:"severity"`
	ActualDaily      float64           `json:"actualDaily"`      // kWh/day
	ExpectedDaily    float64           `json:"expectedDaily"`    // kWh/day
	ExpectedValue    float64           `json:"expectedValue"`    // kWh over the record period
	Deviation        float64           `json:"deviation"`        // Signed fraction
	DeviationPercent float64           `json:"deviationPercent"` // Absolute, whole percent
	PossibleCauses   []string          `json:"possibleCauses"`
	Weather          *WeatherSummary   `json:"weather,omitempty"`
}

// WeatherSummary is optional weather context for an anomaly period
type WeatherSummary struct {
	MeanTemp      float64 `json:"meanTemp"`      // Celsius
	MinTemp       float64 `json:"minTemp"`       // Celsius
	MaxTemp       float64 `json:"maxTemp"`       // Celsius
	Precipitation float64 `json:"precipitation"` // mm
	Conditions    string  `json:"conditions,omitempty"`
	Days          int     `json:"days"`
}

// SeriesPoint is one entry of a usage time series
type SeriesPoint struct {
	Start time.Time `json:"start"`
	KWh   float64   `json:"kWh"`
	Cost  *float64  `json:"cost,omitempty"`
}

// MonthValue is the estimator's daily average for one calendar month
type MonthValue struct {
	Month      time.Month `json:"month"`
	DailyKWh   float64    `json:"dailyKWh"`
	Filled     bool       `json:"filled"` // True when extrapolated rather than observed
	SourceFrom time.Month `json:"sourceFrom,omitempty"`
}

// Comparison contrasts the household with a reference average
type Comparison struct {
	UserAverage      float64 `json:"userAverage"`
	ReferenceAverage float64 `json:"referenceAverage"`
	PercentageDiff   float64 `json:"percentageDiff"`
}

// SmartMeterAnalytics is the time-series and summary view consumed by reports
type SmartMeterAnalytics struct {
	UserID              string         `json:"userId"`
	GeneratedAt         time.Time      `json:"generatedAt"`
	DailyUsage          []SeriesPoint  `json:"dailyUsage"`
	WeeklyUsage         []SeriesPoint  `json:"weeklyUsage"`
	MonthlyUsage        []SeriesPoint  `json:"monthlyUsage"`
	MonthlyProfile      []MonthValue   `json:"monthlyProfile"`
	TotalPhotos         int            `json:"totalPhotos"`
	TotalReadings       int            `json:"totalReadings"`
	CoverageStart       time.Time      `json:"coverageStart"`
	CoverageEnd         time.Time      `json:"coverageEnd"`
	DataCompleteness    float64        `json:"dataCompleteness"` // 0-100
	CurrentTrend        TrendDirection `json:"currentTrend"`
	TrendConfidence     float64        `json:"trendConfidence"`
	ChangeRate          float64        `json:"changeRate"`        // kWh/month
	WinterAverage       float64        `json:"winterAverage"`     // kWh/day
	SummerAverage       float64        `json:"summerAverage"`     // kWh/day
	SeasonalVariation   float64        `json:"seasonalVariation"` // Percent
	VsNationalAverage   *Comparison    `json:"vsNationalAverage,omitempty"`
	VsSimilarHouseholds *Comparison    `json:"vsSimilarHouseholds,omitempty"`
	Anomalies           []Anomaly      `json:"anomalies"`
	EstimatedAnnualCost float64        `json:"estimatedAnnualCost"`
	CostTrend           TrendDirection `json:"costTrend"`
	PotentialSavings    float64        `json:"potentialSavings"`
}
