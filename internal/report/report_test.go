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

package report

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/matthewgall/meterlens/internal/models"
	"github.com/matthewgall/meterlens/internal/pipeline"
	"github.com/matthewgall/meterlens/internal/reconcile"
)

func fixtureResult(t *testing.T) pipeline.Result {
	t.Helper()

	var records []models.ConsumptionRecord
	for m := time.January; m <= time.June; m++ {
		start := time.Date(2024, m, 1, 0, 0, 0, 0, time.UTC)
		r := models.ConsumptionRecord{
			ID:          models.DerivedID("u1", start.Format("2006-01-02"), "monthly"),
			UserID:      "u1",
			StartDate:   start,
			EndDate:     start.AddDate(0, 1, -1),
			Granularity: models.Monthly,
			DataSource:  models.SourceExtracted,
			Confidence:  80,
		}
		r.ElectricityImport = 10 * float64(r.Days())
		records = append(records, r)
	}

	res := pipeline.Aggregate(pipeline.Input{
		UserID:        "u1",
		Postcode:      "SW1A 1AA",
		HouseholdSize: 2,
		Photos:        3,
		Records:       records,
		Now:           time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
	})

	res.Anomalies = []models.Anomaly{{
		Record:           records[2],
		Severity:         models.SeveritySevere,
		ActualDaily:      25,
		ExpectedDaily:    10,
		Deviation:        1.5,
		DeviationPercent: 150,
		PossibleCauses:   []string{"Cold snap", "New appliance"},
		Weather:          &models.WeatherSummary{MeanTemp: 2.5, Precipitation: 12.4, Conditions: "Light rain", Days: 31},
	}}
	savings := 42.0
	res.Insights = append(res.Insights, models.UsageInsight{
		ID:               "i-test",
		Type:             models.InsightEfficiencyTip,
		Severity:         models.InsightAlert,
		Priority:         9,
		Title:            "Usage spike in March",
		Description:      "March ran well above the expected level.",
		SuggestedActions: []string{"Check the immersion heater timer"},
		PotentialSavings: &savings,
	})
	return res
}

func TestReporterWrite(t *testing.T) {
	res := fixtureResult(t)
	pending := []pipeline.Confirmation{{
		RecordID:    "r1",
		Start:       time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Granularity: models.Monthly,
		Reconciliation: models.ValueReconciliation{
			RecommendedValue: 310,
			Confidence:       55,
			Reasoning:        "Two photos disagree",
			Strategy:         reconcile.StrategyFallback,
		},
	}}

	var buf bytes.Buffer
	if err := NewReporter(nil, nil).Write(&buf, res, pending); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# Household Electricity Report",
		"## 📊 Annual Estimate",
		"## 🌦️ Seasonal Profile",
		"## 📅 Monthly Profile",
		"## 🔍 Anomalies Detected",
		"| Mar 2024 | 🔴 severe ↑ | 25.00 kWh/day | 10.00 kWh/day | 150% | Light rain, 2.5°C, 12.4mm | Cold snap; New appliance |",
		"## ✋ Readings to Confirm",
		"Two photos disagree",
		"## Recommendations",
		"### 🔴 Needs Attention",
		"**Potential savings:** £42.00 a year",
		"**meterlens version:** ",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}
	if strings.Contains(out, "data:image/png") {
		t.Error("charts should be omitted without a generator")
	}
}

func TestReporterEmbedsCharts(t *testing.T) {
	var buf bytes.Buffer
	if err := NewReporter(nil, NewChartGenerator()).Write(&buf, fixtureResult(t), nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.Contains(buf.String(), "![Monthly profile](data:image/png;base64,") {
		t.Error("expected embedded monthly profile chart")
	}
	if strings.Contains(buf.String(), "Readings to Confirm") {
		t.Error("confirmation section should be omitted when nothing is pending")
	}
}

func TestReporterGenerateToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")
	if err := NewReporter(nil, nil).Generate(fixtureResult(t), nil, path); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# Household Electricity Report") {
		t.Errorf("unexpected report start: %.40q", data)
	}
}

func TestChartsRequireData(t *testing.T) {
	cg := NewChartGenerator()
	if _, err := cg.MonthlyProfileChart(nil); !errors.Is(err, ErrNoData) {
		t.Errorf("MonthlyProfileChart(nil) error = %v, want ErrNoData", err)
	}
	one := []models.SeriesPoint{{Start: time.Now(), KWh: 3}}
	if _, err := cg.UsageChart("Usage", one, "Jan"); !errors.Is(err, ErrNoData) {
		t.Errorf("UsageChart with one point error = %v, want ErrNoData", err)
	}
}

func TestFormatting(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{FormatCurrency(1234.5), "£1,234.50"},
		{FormatCurrency(-12), "-£12.00"},
		{FormatKWh(2700), "2,700.00"},
		{FormatPercentage(12.345), "+12.3%"},
		{FormatPercentage(-5), "-5.0%"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestWriteXLSX(t *testing.T) {
	res := fixtureResult(t)
	data, err := WriteXLSX(res)
	if err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	want := []string{SheetSummary, SheetMonthly, SheetRecords, SheetAnomalies, SheetInsights}
	if strings.Join(sheets, ",") != strings.Join(want, ",") {
		t.Fatalf("sheets = %v, want %v", sheets, want)
	}

	cells := []struct {
		sheet, cell, want string
	}{
		{SheetSummary, "A1", "Metric"},
		{SheetSummary, "A2", "Daily average (kWh)"},
		{SheetMonthly, "A2", "January"},
		{SheetRecords, "A2", "2024-01-01"},
		{SheetRecords, "C2", "monthly"},
		{SheetRecords, "D2", "310"},
		{SheetAnomalies, "A2", "Mar 2024"},
		{SheetAnomalies, "B2", "severe"},
		{SheetAnomalies, "G2", "Cold snap; New appliance"},
	}
	for _, c := range cells {
		got, err := f.GetCellValue(c.sheet, c.cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s!%s): %v", c.sheet, c.cell, err)
		}
		if got != c.want {
			t.Errorf("%s!%s = %q, want %q", c.sheet, c.cell, got, c.want)
		}
	}

	rows, err := f.GetRows(SheetRecords)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != len(res.Records)+1 {
		t.Errorf("records sheet has %d rows, want %d", len(rows), len(res.Records)+1)
	}
}

func TestExportXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.xlsx")
	if err := ExportXLSX(fixtureResult(t), path); err != nil {
		t.Fatalf("ExportXLSX: %v", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()
	if idx, _ := f.GetSheetIndex(SheetInsights); idx == -1 {
		t.Error("insights sheet missing")
	}
}
