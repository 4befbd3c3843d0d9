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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/matthewgall/meterlens/internal/models"
	"github.com/matthewgall/meterlens/internal/pipeline"
	"github.com/matthewgall/meterlens/internal/report"
	"github.com/matthewgall/meterlens/internal/store"
	"github.com/matthewgall/meterlens/internal/weather"
)

var analyzeOpts struct {
	output   string
	jsonOut  bool
	noCharts bool
	noCache  bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Estimate annual usage and cost, and look for anomalies",
	Long: `Builds the household's seasonal profile from stored records, projects annual
usage and cost, flags unusual periods and prints insights. Use --output to
write a Markdown report with charts.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeOpts.output, "output", "o", "", "write a Markdown report to this file")
	analyzeCmd.Flags().BoolVar(&analyzeOpts.jsonOut, "json", false, "print the full result as JSON")
	analyzeCmd.Flags().BoolVar(&analyzeOpts.noCharts, "no-charts", false, "leave charts out of the report")
	analyzeCmd.Flags().BoolVar(&analyzeOpts.noCache, "no-cache", false, "ignore cached results")
	rootCmd.AddCommand(analyzeCmd)
}

// analyze runs the cached pipeline for the configured user and stores the
// refreshed profile
func analyze(ctx context.Context, s *store.Store, useCache bool) (pipeline.Result, error) {
	in, err := loadInput(s, time.Now())
	if err != nil {
		return pipeline.Result{}, err
	}

	var opts []pipeline.RunnerOption
	opts = append(opts, pipeline.WithTTL(cfg.CacheTTL))
	if cfg.Weather.Enabled {
		opts = append(opts, pipeline.WithEnricher(weather.NewClient(logger,
			weather.WithLocation(cfg.Weather.Latitude, cfg.Weather.Longitude))))
	}

	var runner *pipeline.Runner
	if useCache {
		c, err := openCache()
		if err != nil {
			return pipeline.Result{}, err
		}
		runner = pipeline.NewRunner(c, logger, opts...)
	} else {
		runner = pipeline.NewRunner(nil, logger, opts...)
	}

	profile := runner.Profile(in)
	if err := s.SaveProfile(profile); err != nil {
		logger.Warn("Failed to save seasonal profile", "error", err)
	}
	in.Profile = &profile

	logger.LogStage(fmt.Sprintf("Analysing %d records", len(in.Records)))
	return runner.Run(ctx, in)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := analyze(cmd.Context(), s, !analyzeOpts.noCache)
	if err != nil {
		return err
	}

	if analyzeOpts.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	values, err := s.ListValues(cfg.UserID)
	if err != nil {
		return err
	}
	pending := pipeline.BuildRecords(cfg.UserID, values, &res.Profile).Confirmations

	printSummary(res)
	printAnomalies(res.Anomalies)
	printInsights(res.Insights)
	printConfirmations(pending)

	if analyzeOpts.output != "" {
		var charts *report.ChartGenerator
		if !analyzeOpts.noCharts {
			charts = report.NewChartGenerator()
		}
		if err := report.NewReporter(logger, charts).Generate(res, pending, analyzeOpts.output); err != nil {
			return err
		}
		fmt.Printf("Report written to %s\n", analyzeOpts.output)
	}
	return nil
}

func printSummary(res pipeline.Result) {
	est := res.Estimate
	rows := [][]string{
		{"Daily", report.FormatKWh(est.DailyAverage) + " kWh"},
		{"Monthly", report.FormatKWh(est.MonthlyAverage) + " kWh"},
		{"Yearly", fmt.Sprintf("%s kWh (%s to %s)",
			humanize.Comma(int64(est.YearlyTotal)), humanize.Comma(int64(est.YearlyMin)), humanize.Comma(int64(est.YearlyMax)))},
		{"Annual cost", fmt.Sprintf("%s at %.2fp/kWh", report.FormatCurrency(est.EstimatedAnnualCost), est.UnitRate)},
		{"Rate source", res.RateSource},
		{"Confidence", fmt.Sprintf("%.0f%% (%s)", est.Confidence, est.DataQuality)},
		{"Method", fmt.Sprintf("%s, %d/12 months", est.Method, est.MonthsCovered)},
		{"Trend", fmt.Sprintf("%s %s", est.TrendDirection, report.FormatPercentage(est.TrendPercentage))},
		{"Region", res.Profile.Region},
	}
	fmt.Println(renderTable("Annual estimate", []string{"Metric", "Value"}, rows, nil))
}

func printAnomalies(anomalies []models.Anomaly) {
	if len(anomalies) == 0 {
		return
	}
	rows := make([][]string, 0, len(anomalies))
	for _, a := range anomalies {
		rows = append(rows, []string{
			pipeline.PeriodLabel(a.Record.StartDate, a.Record.Granularity),
			string(a.Severity),
			fmt.Sprintf("%.2f", a.ActualDaily),
			fmt.Sprintf("%.2f", a.ExpectedDaily),
			fmt.Sprintf("%+.0f%%", a.Deviation*100),
			strings.Join(a.PossibleCauses, "; "),
		})
	}
	fmt.Println(renderTable("Anomalies",
		[]string{"Period", "Severity", "kWh/day", "Expected", "Deviation", "Possible causes"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	))
}

func printInsights(insights []models.UsageInsight) {
	if len(insights) == 0 {
		return
	}
	rows := make([][]string, 0, len(insights))
	for _, in := range insights {
		rows = append(rows, []string{string(in.Severity), in.Title, in.Description})
	}
	fmt.Println(renderTable("Insights", []string{"Severity", "Insight", "Detail"}, rows, nil))
}
