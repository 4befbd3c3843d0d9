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
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/matthewgall/meterlens/internal/models"
	"github.com/matthewgall/meterlens/internal/pipeline"
)

// Sheet names in the exported workbook
const (
	SheetSummary   = "Summary"
	SheetMonthly   = "Monthly"
	SheetRecords   = "Records"
	SheetAnomalies = "Anomalies"
	SheetInsights  = "Insights"
)

type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
}

func newSheet(f *excelize.File, sheet string, headers ...string) (*sheetWriter, error) {
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", sheet, err)
		}
	}
	sw := &sheetWriter{f: f, sheet: sheet, row: 1}
	if len(headers) > 0 {
		values := make([]any, len(headers))
		for i, h := range headers {
			values[i] = h
		}
		sw.append(values...)
	}
	return sw, nil
}

func (sw *sheetWriter) append(values ...any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, sw.row)
		_ = sw.f.SetCellValue(sw.sheet, cell, v)
	}
	sw.row++
}

func (sw *sheetWriter) widths(widths ...float64) {
	for i, width := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = sw.f.SetColWidth(sw.sheet, col, col, width)
	}
}

// WriteXLSX returns the result as XLSX workbook bytes
func WriteXLSX(res pipeline.Result) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	if err := writeSummarySheet(f, res); err != nil {
		return nil, err
	}
	if err := writeMonthlySheet(f, res.Analytics.MonthlyProfile); err != nil {
		return nil, err
	}
	if err := writeRecordsSheet(f, res.Records); err != nil {
		return nil, err
	}
	if err := writeAnomaliesSheet(f, res.Anomalies); err != nil {
		return nil, err
	}
	if err := writeInsightsSheet(f, res.Insights); err != nil {
		return nil, err
	}

	activeIndex, _ := f.GetSheetIndex(SheetSummary)
	f.SetActiveSheet(activeIndex)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportXLSX writes the workbook to path
func ExportXLSX(res pipeline.Result, path string) error {
	data, err := WriteXLSX(res)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, res pipeline.Result) error {
	sw, err := newSheet(f, SheetSummary, "Metric", "Value")
	if err != nil {
		return err
	}
	est := res.Estimate
	sw.append("Daily average (kWh)", est.DailyAverage)
	sw.append("Weekly average (kWh)", est.WeeklyAverage)
	sw.append("Monthly average (kWh)", est.MonthlyAverage)
	sw.append("Yearly total (kWh)", est.YearlyTotal)
	sw.append("Yearly minimum (kWh)", est.YearlyMin)
	sw.append("Yearly maximum (kWh)", est.YearlyMax)
	sw.append("Unit rate (p/kWh)", est.UnitRate)
	sw.append("Rate source", res.RateSource)
	sw.append("Annual cost (£)", est.EstimatedAnnualCost)
	sw.append("Confidence (%)", est.Confidence)
	sw.append("Data quality", string(est.DataQuality))
	sw.append("Method", string(est.Method))
	sw.append("Trend", string(est.TrendDirection))
	sw.append("Trend (%)", est.TrendPercentage)
	sw.append("Data completeness (%)", res.Analytics.DataCompleteness)
	sw.append("Region", res.Profile.Region)
	sw.widths(26, 18)
	return nil
}

func writeMonthlySheet(f *excelize.File, profile []models.MonthValue) error {
	sw, err := newSheet(f, SheetMonthly, "Month", "kWh/day", "Estimated", "Source month")
	if err != nil {
		return err
	}
	for _, m := range profile {
		source := ""
		if m.SourceFrom != 0 {
			source = m.SourceFrom.String()
		}
		sw.append(m.Month.String(), m.DailyKWh, m.Filled, source)
	}
	sw.widths(12, 10, 10, 14)
	return nil
}

func writeRecordsSheet(f *excelize.File, records []models.ConsumptionRecord) error {
	sw, err := newSheet(f, SheetRecords,
		"Start", "End", "Granularity", "Import (kWh)", "Export (kWh)", "Gas (m3)", "Cost (£)", "Source", "Confidence", "Estimated",
	)
	if err != nil {
		return err
	}
	for _, r := range records {
		sw.append(
			r.StartDate.Format("2006-01-02"),
			r.EndDate.Format("2006-01-02"),
			string(r.Granularity),
			r.ElectricityImport,
			optional(r.ElectricityExport),
			optional(r.GasConsumption),
			optional(r.ElectricityCost),
			string(r.DataSource),
			r.Confidence,
			r.IsEstimated,
		)
	}
	sw.widths(12, 12, 12, 12, 12, 10, 10, 16, 12, 10)
	return nil
}

func writeAnomaliesSheet(f *excelize.File, anomalies []models.Anomaly) error {
	sw, err := newSheet(f, SheetAnomalies,
		"Period", "Severity", "Actual (kWh/day)", "Expected (kWh/day)", "Deviation (%)", "Mean temp (C)", "Possible causes",
	)
	if err != nil {
		return err
	}
	for _, a := range anomalies {
		var temp any = ""
		if a.Weather != nil {
			temp = a.Weather.MeanTemp
		}
		sw.append(
			pipeline.PeriodLabel(a.Record.StartDate, a.Record.Granularity),
			string(a.Severity),
			a.ActualDaily,
			a.ExpectedDaily,
			a.DeviationPercent,
			temp,
			strings.Join(a.PossibleCauses, "; "),
		)
	}
	sw.widths(18, 10, 16, 18, 12, 12, 60)
	return nil
}

func writeInsightsSheet(f *excelize.File, insights []models.UsageInsight) error {
	sw, err := newSheet(f, SheetInsights, "Priority", "Severity", "Type", "Title", "Description", "Savings (£/yr)")
	if err != nil {
		return err
	}
	for _, in := range insights {
		sw.append(in.Priority, string(in.Severity), string(in.Type), in.Title, in.Description, optional(in.PotentialSavings))
	}
	sw.widths(8, 10, 22, 36, 80, 14)
	return nil
}

func optional(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
