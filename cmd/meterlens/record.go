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
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matthewgall/meterlens/internal/models"
)

var recordOpts struct {
	start       string
	end         string
	granularity string
	kwh         float64
	export      float64
	gas         float64
	cost        float64
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Manage manually entered consumption records",
}

var recordAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a consumption record by hand",
	Long: `Stores a reading you typed in yourself. Manual records survive record rebuilds
and take precedence over extracted records for the same period.`,
	RunE: runRecordAdd,
}

var recordListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored consumption records",
	RunE:  runRecordList,
}

func init() {
	f := recordAddCmd.Flags()
	f.StringVar(&recordOpts.start, "start", "", "first day of the period (YYYY-MM-DD)")
	f.StringVar(&recordOpts.end, "end", "", "last day of the period (default: derived from --granularity)")
	f.StringVar(&recordOpts.granularity, "granularity", string(models.Monthly), "daily, weekly, monthly or yearly")
	f.Float64Var(&recordOpts.kwh, "kwh", 0, "electricity imported in kWh")
	f.Float64Var(&recordOpts.export, "export", 0, "electricity exported in kWh")
	f.Float64Var(&recordOpts.gas, "gas", 0, "gas used in m3")
	f.Float64Var(&recordOpts.cost, "cost", 0, "electricity cost in pounds")
	_ = recordAddCmd.MarkFlagRequired("start")
	_ = recordAddCmd.MarkFlagRequired("kwh")

	recordCmd.AddCommand(recordAddCmd, recordListCmd)
	rootCmd.AddCommand(recordCmd)
}

// manualRecord builds a record from the add flags
func manualRecord(userID string, now time.Time) (models.ConsumptionRecord, error) {
	gran := models.Granularity(recordOpts.granularity)
	if !gran.Valid() {
		return models.ConsumptionRecord{}, fmt.Errorf("invalid --granularity %q", recordOpts.granularity)
	}
	start, err := parseDay("start", recordOpts.start)
	if err != nil {
		return models.ConsumptionRecord{}, err
	}

	end := periodEnd(start, gran)
	if recordOpts.end != "" {
		if end, err = parseDay("end", recordOpts.end); err != nil {
			return models.ConsumptionRecord{}, err
		}
	}
	if end.Before(start) {
		return models.ConsumptionRecord{}, fmt.Errorf("--end %s is before --start %s", recordOpts.end, recordOpts.start)
	}
	if recordOpts.kwh < 0 {
		return models.ConsumptionRecord{}, fmt.Errorf("--kwh must not be negative")
	}

	r := models.ConsumptionRecord{
		ID:                models.DerivedID(userID, start.Format("2006-01-02"), string(gran), "manual"),
		UserID:            userID,
		StartDate:         start,
		EndDate:           end,
		Granularity:       gran,
		ElectricityImport: recordOpts.kwh,
		DataSource:        models.SourceManual,
		Confidence:        100,
		CreatedAt:         now,
	}
	if recordOpts.export > 0 {
		r.ElectricityExport = models.Float(recordOpts.export)
	}
	if recordOpts.gas > 0 {
		r.GasConsumption = models.Float(recordOpts.gas)
	}
	if recordOpts.cost > 0 {
		r.ElectricityCost = models.Float(recordOpts.cost)
	}
	return r, nil
}

// periodEnd returns the inclusive last day of a period starting at start
func periodEnd(start time.Time, gran models.Granularity) time.Time {
	switch gran {
	case models.Weekly:
		return start.AddDate(0, 0, 6)
	case models.Monthly:
		return start.AddDate(0, 1, -1)
	case models.Yearly:
		return start.AddDate(1, 0, -1)
	}
	return start
}

func runRecordAdd(cmd *cobra.Command, args []string) error {
	r, err := manualRecord(cfg.UserID, time.Now())
	if err != nil {
		return err
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.AddManualRecord(r); err != nil {
		return err
	}
	fmt.Printf("Added %s record for %s to %s: %.2f kWh\n",
		r.Granularity, r.StartDate.Format("2006-01-02"), r.EndDate.Format("2006-01-02"), r.ElectricityImport)
	return nil
}

func runRecordList(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	records, err := s.ListRecords(cfg.UserID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No records stored")
		return nil
	}

	rows := make([][]string, 0, len(records))
	var total float64
	for _, r := range records {
		total += r.ElectricityImport
		rows = append(rows, []string{
			r.StartDate.Format("2006-01-02"),
			r.EndDate.Format("2006-01-02"),
			string(r.Granularity),
			fmt.Sprintf("%.2f", r.ElectricityImport),
			string(r.DataSource),
			fmt.Sprintf("%.0f%%", r.Confidence),
		})
	}
	fmt.Println(renderTable("Consumption records",
		[]string{"Start", "End", "Granularity", "kWh", "Source", "Confidence"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight},
	))
	fmt.Printf("Total: %.2f kWh (%d records)\n", total, len(records))
	return nil
}
