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

// Package report renders analysis results as Markdown and XLSX.
package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/matthewgall/meterlens/internal/logging"
	"github.com/matthewgall/meterlens/internal/models"
	"github.com/matthewgall/meterlens/internal/pipeline"
	"github.com/matthewgall/meterlens/internal/version"
)

const maxAnomalyRows = 10

// Reporter writes Markdown reports
type Reporter struct {
	logger *logging.Logger
	charts *ChartGenerator
}

// NewReporter creates a reporter. A nil chart generator leaves charts out.
func NewReporter(logger *logging.Logger, charts *ChartGenerator) *Reporter {
	return &Reporter{
		logger: logging.OrDiscard(logger).WithComponent("report"),
		charts: charts,
	}
}

// Generate writes the report to outputPath, or stdout when it is empty
func (r *Reporter) Generate(res pipeline.Result, pending []pipeline.Confirmation, outputPath string) error {
	r.logger.Info("Generating report")

	var w io.Writer = os.Stdout
	if outputPath != "" {
		file, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer file.Close()
		w = file
	}

	if err := r.Write(w, res, pending); err != nil {
		return err
	}
	if outputPath != "" {
		r.logger.Info("Report saved", "path", outputPath)
	}
	return nil
}

// Write renders the full report to w
func (r *Reporter) Write(w io.Writer, res pipeline.Result, pending []pipeline.Confirmation) error {
	var b strings.Builder
	r.writeHeader(&b, res)
	r.writeSummary(&b, res)
	r.writeSeasonal(&b, res)
	r.writeMonthly(&b, res)
	r.writeAnomalies(&b, res)
	r.writeConfirmations(&b, pending)
	r.writeInsights(&b, res)
	r.writeFooter(&b)

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func (r *Reporter) writeHeader(w io.Writer, res pipeline.Result) {
	fmt.Fprintf(w, "# Household Electricity Report\n\n")
	fmt.Fprintf(w, "**Generated:** %s\n\n", res.Analytics.GeneratedAt.Format("2006-01-02 15:04:05"))
	if res.Analytics.TotalReadings > 0 {
		fmt.Fprintf(w, "**Data Coverage:** %s to %s (%d readings from %d photos)\n\n",
			res.Estimate.CoverageStart.Format("2006-01-02"),
			res.Estimate.CoverageEnd.Format("2006-01-02"),
			res.Analytics.TotalReadings,
			res.Analytics.TotalPhotos,
		)
	}
	fmt.Fprintf(w, "**meterlens version:** %s\n\n", version.Get())
	fmt.Fprintf(w, "---\n\n")
}

func (r *Reporter) writeSummary(w io.Writer, res pipeline.Result) {
	est := res.Estimate
	fmt.Fprintf(w, "## 📊 Annual Estimate\n\n")

	fmt.Fprintf(w, "| Period | Usage |\n")
	fmt.Fprintf(w, "|--------|-------|\n")
	fmt.Fprintf(w, "| Daily | %s kWh |\n", FormatKWh(est.DailyAverage))
	fmt.Fprintf(w, "| Weekly | %s kWh |\n", FormatKWh(est.WeeklyAverage))
	fmt.Fprintf(w, "| Monthly | %s kWh |\n", FormatKWh(est.MonthlyAverage))
	fmt.Fprintf(w, "| **Yearly** | **%s kWh** (%s to %s) |\n\n",
		humanize.Comma(int64(math.Round(est.YearlyTotal))),
		humanize.Comma(int64(math.Round(est.YearlyMin))),
		humanize.Comma(int64(math.Round(est.YearlyMax))),
	)

	fmt.Fprintf(w, "> **💷 Projected Annual Cost:** %s (%s to %s at %.2fp/kWh, %s)\n\n",
		FormatCurrency(est.EstimatedAnnualCost),
		FormatCurrency(est.CostMin),
		FormatCurrency(est.CostMax),
		est.UnitRate,
		res.RateSource,
	)

	fmt.Fprintf(w, "- **Confidence:** %.0f%%\n", est.Confidence)
	fmt.Fprintf(w, "- **Data quality:** %s\n", est.DataQuality)
	fmt.Fprintf(w, "- **Method:** %s (%d of 12 months observed)\n", est.Method, est.MonthsCovered)
	fmt.Fprintf(w, "- **Trend:** %s", est.TrendDirection)
	if est.TrendDirection != models.TrendStable {
		fmt.Fprintf(w, " (%.1f%%)", est.TrendPercentage)
	}
	fmt.Fprintf(w, "\n")
	if c := res.Analytics.VsNationalAverage; c != nil {
		fmt.Fprintf(w, "- **vs UK average:** %s (%s kWh)\n", FormatPercentage(c.PercentageDiff), humanize.Comma(int64(c.ReferenceAverage)))
	}
	if c := res.Analytics.VsSimilarHouseholds; c != nil {
		fmt.Fprintf(w, "- **vs similar households:** %s (%s kWh)\n", FormatPercentage(c.PercentageDiff), humanize.Comma(int64(c.ReferenceAverage)))
	}
	fmt.Fprintf(w, "\n")
}

func (r *Reporter) writeSeasonal(w io.Writer, res pipeline.Result) {
	p := res.Profile
	fmt.Fprintf(w, "## 🌦️ Seasonal Profile\n\n")
	fmt.Fprintf(w, "Region **%s**, profile confidence %.0f%% from %d records.\n\n", p.Region, p.Confidence, p.DataPoints)
	fmt.Fprintf(w, "| Winter | Spring | Summer | Autumn |\n")
	fmt.Fprintf(w, "|--------|--------|--------|--------|\n")
	fmt.Fprintf(w, "| %.2f× | %.2f× | %.2f× | %.2f× |\n\n", p.WinterFactor, p.SpringFactor, p.SummerFactor, p.AutumnFactor)

	a := res.Analytics
	if a.WinterAverage > 0 && a.SummerAverage > 0 {
		fmt.Fprintf(w, "Winter averages %s kWh/day against %s kWh/day in summer (%s).\n\n",
			FormatKWh(a.WinterAverage), FormatKWh(a.SummerAverage), FormatPercentage(a.SeasonalVariation))
	}
}

func (r *Reporter) writeMonthly(w io.Writer, res pipeline.Result) {
	profile := res.Analytics.MonthlyProfile
	if len(profile) == 0 {
		return
	}

	fmt.Fprintf(w, "## 📅 Monthly Profile\n\n")
	r.embedChart(w, "Monthly profile", func(cg *ChartGenerator) (string, error) {
		return cg.MonthlyProfileChart(profile)
	})
	r.embedChart(w, "Monthly usage", func(cg *ChartGenerator) (string, error) {
		return cg.UsageChart("Monthly Usage (kWh)", res.Analytics.MonthlyUsage, "Jan 06")
	})

	fmt.Fprintf(w, "| Month | kWh/day | Source |\n")
	fmt.Fprintf(w, "|-------|---------|--------|\n")
	for _, m := range profile {
		source := "observed"
		if m.Filled {
			source = "estimated"
			if m.SourceFrom != 0 {
				source = fmt.Sprintf("estimated from %s", m.SourceFrom)
			}
		}
		fmt.Fprintf(w, "| %s | %s | %s |\n", m.Month, FormatKWh(m.DailyKWh), source)
	}
	fmt.Fprintf(w, "\n")
}

func (r *Reporter) embedChart(w io.Writer, alt string, render func(*ChartGenerator) (string, error)) {
	if r.charts == nil {
		return
	}
	data, err := render(r.charts)
	if err != nil {
		r.logger.Debug("Skipping chart", "chart", alt, "error", err)
		return
	}
	fmt.Fprintf(w, "![%s](data:image/png;base64,%s)\n\n", alt, data)
}

func (r *Reporter) writeAnomalies(w io.Writer, res pipeline.Result) {
	if len(res.Anomalies) == 0 {
		return
	}

	fmt.Fprintf(w, "## 🔍 Anomalies Detected\n\n")
	total := len(res.Anomalies)
	shown := min(total, maxAnomalyRows)
	if total > shown {
		fmt.Fprintf(w, "Found **%d anomalies**. Showing the **top %d most significant**:\n\n", total, shown)
	} else {
		fmt.Fprintf(w, "Found **%d anomalies**:\n\n", total)
	}

	fmt.Fprintf(w, "| Period | Severity | Actual | Expected | Deviation | Weather | Possible causes |\n")
	fmt.Fprintf(w, "|--------|----------|--------|----------|-----------|---------|-----------------|\n")
	for _, a := range res.Anomalies[:shown] {
		direction := "↑"
		if a.Deviation < 0 {
			direction = "↓"
		}
		weather := "-"
		if a.Weather != nil {
			weather = fmt.Sprintf("%s, %.1f°C", a.Weather.Conditions, a.Weather.MeanTemp)
			if a.Weather.Precipitation > 0 {
				weather += fmt.Sprintf(", %.1fmm", a.Weather.Precipitation)
			}
		}
		fmt.Fprintf(w, "| %s | %s %s | %s kWh/day | %s kWh/day | %.0f%% | %s | %s |\n",
			pipeline.PeriodLabel(a.Record.StartDate, a.Record.Granularity),
			severityIcon(a.Severity),
			direction,
			FormatKWh(a.ActualDaily),
			FormatKWh(a.ExpectedDaily),
			a.DeviationPercent,
			weather,
			strings.Join(a.PossibleCauses, "; "),
		)
	}
	fmt.Fprintf(w, "\n")
}

func (r *Reporter) writeConfirmations(w io.Writer, pending []pipeline.Confirmation) {
	if len(pending) == 0 {
		return
	}
	fmt.Fprintf(w, "## ✋ Readings to Confirm\n\n")
	for _, c := range pending {
		rec := c.Reconciliation
		fmt.Fprintf(w, "- **%s:** %s kWh (%.0f%% confidence). %s\n",
			pipeline.PeriodLabel(c.Start, c.Granularity),
			FormatKWh(rec.RecommendedValue),
			rec.Confidence,
			rec.Reasoning,
		)
	}
	fmt.Fprintf(w, "\n")
}

func (r *Reporter) writeInsights(w io.Writer, res pipeline.Result) {
	if len(res.Insights) == 0 {
		return
	}

	fmt.Fprintf(w, "## Recommendations\n\n")
	groups := []struct {
		severity models.InsightSeverity
		heading  string
	}{
		{models.InsightAlert, "### 🔴 Needs Attention"},
		{models.InsightWarning, "### 🟡 Worth a Look"},
		{models.InsightInfo, "### 🔵 For Information"},
	}
	for _, g := range groups {
		var matched []models.UsageInsight
		for _, in := range res.Insights {
			if in.Severity == g.severity {
				matched = append(matched, in)
			}
		}
		if len(matched) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s\n\n", g.heading)
		for _, in := range matched {
			r.writeInsight(w, in)
		}
	}
}

func (r *Reporter) writeInsight(w io.Writer, in models.UsageInsight) {
	fmt.Fprintf(w, "#### %s\n\n", in.Title)
	fmt.Fprintf(w, "%s\n\n", in.Description)
	if in.Explanation != "" {
		fmt.Fprintf(w, "*%s*\n\n", in.Explanation)
	}
	for _, action := range in.SuggestedActions {
		fmt.Fprintf(w, "- %s\n", action)
	}
	if in.PotentialSavings != nil && *in.PotentialSavings > 0 {
		fmt.Fprintf(w, "\n**Potential savings:** %s a year\n", FormatCurrency(*in.PotentialSavings))
	}
	fmt.Fprintf(w, "\n")
}

func (r *Reporter) writeFooter(w io.Writer) {
	fmt.Fprintf(w, "---\n\n")
	fmt.Fprintf(w, "*Estimates are extrapolated from photographed readings and seasonal patterns. Figures outside the observed months are projections; check your bills for exact amounts.*\n\n")
	fmt.Fprintf(w, "*Generated by [meterlens](https://github.com/matthewgall/meterlens)*\n")
}

func severityIcon(s models.Severity) string {
	switch s {
	case models.SeveritySevere:
		return "🔴 severe"
	case models.SeverityModerate:
		return "🟡 moderate"
	}
	return "🔵 minor"
}

// FormatCurrency formats pounds with thousands separators
func FormatCurrency(value float64) string {
	if value < 0 {
		return "-£" + humanize.FormatFloat("#,###.##", -value)
	}
	return "£" + humanize.FormatFloat("#,###.##", value)
}

// FormatKWh formats energy to at most two decimal places
func FormatKWh(value float64) string {
	return humanize.FormatFloat("#,###.##", value)
}

// FormatPercentage formats a signed percentage
func FormatPercentage(value float64) string {
	return fmt.Sprintf("%+.1f%%", value)
}
