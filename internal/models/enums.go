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

package models

import "fmt"

// Unit is the unit an extracted number was printed in
type Unit string

const (
	UnitKWh        Unit = "kWh"
	UnitCubicMetre Unit = "m3"
	UnitGBP        Unit = "GBP"
	UnitPence      Unit = "pence"
	UnitPercentage Unit = "percentage"
)

// Valid reports whether u is a known unit
func (u Unit) Valid() bool {
	switch u {
	case UnitKWh, UnitCubicMetre, UnitGBP, UnitPence, UnitPercentage:
		return true
	}
	return false
}

// ParseUnit maps provider spellings onto a Unit
func ParseUnit(s string) (Unit, error) {
	switch s {
	case "kWh", "kwh", "KWH":
		return UnitKWh, nil
	case "m3", "m³", "M3":
		return UnitCubicMetre, nil
	case "GBP", "gbp", "£":
		return UnitGBP, nil
	case "pence", "p":
		return UnitPence, nil
	case "percentage", "%":
		return UnitPercentage, nil
	}
	return "", fmt.Errorf("unknown unit %q", s)
}

// ValueKind groups value types by what they measure
type ValueKind int

const (
	KindEnergy ValueKind = iota
	KindCost
	KindRate
)

// ValueType describes what an extracted number represents
type ValueType string

const (
	ValueMeterReading   ValueType = "meter-reading"
	ValueWeeklyTotal    ValueType = "weekly-total"
	ValueMonthlyTotal   ValueType = "monthly-total"
	ValueYearlyTotal    ValueType = "yearly-total"
	ValueDailyAverage   ValueType = "daily-average"
	ValueChartDataPoint ValueType = "chart-data-point"
	ValueCost           ValueType = "cost-value"
	ValueTariffRate     ValueType = "tariff-rate"
)

// Valid reports whether v is a known value type
func (v ValueType) Valid() bool {
	switch v {
	case ValueMeterReading, ValueWeeklyTotal, ValueMonthlyTotal, ValueYearlyTotal,
		ValueDailyAverage, ValueChartDataPoint, ValueCost, ValueTariffRate:
		return true
	}
	return false
}

// Kind returns the measurement family of the value type
func (v ValueType) Kind() ValueKind {
	switch v {
	case ValueCost:
		return KindCost
	case ValueTariffRate:
		return KindRate
	case ValueMeterReading, ValueWeeklyTotal, ValueMonthlyTotal, ValueYearlyTotal,
		ValueDailyAverage, ValueChartDataPoint:
		return KindEnergy
	}
	return KindEnergy
}

// MeterReadingType identifies which register a meter reading came from
type MeterReadingType string

const (
	ReadingImport MeterReadingType = "import"
	ReadingExport MeterReadingType = "export"
	ReadingDay    MeterReadingType = "day"
	ReadingNight  MeterReadingType = "night"
	ReadingTotal  MeterReadingType = "total"
)

// Valid reports whether m is a known register
func (m MeterReadingType) Valid() bool {
	switch m {
	case ReadingImport, ReadingExport, ReadingDay, ReadingNight, ReadingTotal:
		return true
	}
	return false
}

// Granularity is the time resolution of a reading
type Granularity string

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
	Yearly  Granularity = "yearly"
)

// Valid reports whether g is a known granularity
func (g Granularity) Valid() bool {
	switch g {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// DocumentType is the kind of photo the extraction provider detected
type DocumentType string

const (
	DocSmartMeterReading DocumentType = "smart-meter-reading"
	DocWeeklyChart       DocumentType = "weekly-chart"
	DocMonthlyChart      DocumentType = "monthly-chart"
	DocYearlyChart       DocumentType = "yearly-chart"
	DocSupplierApp       DocumentType = "supplier-app-screenshot"
	DocInHomeDisplay     DocumentType = "in-home-display"
	DocPaperBill         DocumentType = "paper-bill"
	DocUsageSummary      DocumentType = "usage-summary"
	DocConsumptionTable  DocumentType = "consumption-table"
	DocBarChart          DocumentType = "bar-chart"
	DocLineChart         DocumentType = "line-chart"
	DocPieChart          DocumentType = "pie-chart"
	DocUnknown           DocumentType = "unknown"
)

// ParseDocumentType returns DocUnknown for anything unrecognised
func ParseDocumentType(s string) DocumentType {
	d := DocumentType(s)
	switch d {
	case DocSmartMeterReading, DocWeeklyChart, DocMonthlyChart, DocYearlyChart,
		DocSupplierApp, DocInHomeDisplay, DocPaperBill, DocUsageSummary,
		DocConsumptionTable, DocBarChart, DocLineChart, DocPieChart:
		return d
	}
	return DocUnknown
}

// DataSource records where a consumption record came from
type DataSource string

const (
	SourceExtracted DataSource = "extracted"
	SourceManual    DataSource = "manual"
	SourceImported  DataSource = "imported"
	SourceEstimated DataSource = "estimated"
)

// Season of the UK year as used for seasonal factors
type Season string

const (
	Winter Season = "winter"
	Spring Season = "spring"
	Summer Season = "summer"
	Autumn Season = "autumn"
)

// Severity grades an anomaly
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// InsightType is the category of a generated insight
type InsightType string

const (
	InsightSeasonalComparison  InsightType = "seasonal-comparison"
	InsightTrendAlert          InsightType = "trend-alert"
	InsightAnomalyDetection    InsightType = "anomaly-detection"
	InsightBenchmarkComparison InsightType = "benchmark-comparison"
	InsightCostPrediction      InsightType = "cost-prediction"
	InsightEfficiencyTip       InsightType = "efficiency-tip"
)

// InsightSeverity is how loudly an insight should be shown
type InsightSeverity string

const (
	InsightInfo    InsightSeverity = "info"
	InsightWarning InsightSeverity = "warning"
	InsightAlert   InsightSeverity = "alert"
)

// TrendDirection summarises the direction of usage over time
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// DataQuality is a coarse grade combining confidence and coverage
type DataQuality string

const (
	QualityExcellent DataQuality = "excellent"
	QualityGood      DataQuality = "good"
	QualityFair      DataQuality = "fair"
	QualityPoor      DataQuality = "poor"
)

// EstimationMethod tells consumers how much of the year came from real data
type EstimationMethod string

const (
	MethodInterpolation      EstimationMethod = "interpolation"
	MethodSeasonalEstimation EstimationMethod = "seasonal-estimation"
)

// PhotoStatus tracks a photo through extraction and confirmation
type PhotoStatus string

const (
	PhotoPending   PhotoStatus = "pending"
	PhotoCompleted PhotoStatus = "completed"
	PhotoFailed    PhotoStatus = "failed"
	PhotoConfirmed PhotoStatus = "confirmed"
	PhotoRejected  PhotoStatus = "rejected"
)
