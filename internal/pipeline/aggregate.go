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

package pipeline

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/matthewgall/meterlens/internal/anomaly"
	"github.com/matthewgall/meterlens/internal/estimate"
	"github.com/matthewgall/meterlens/internal/insights"
	"github.com/matthewgall/meterlens/internal/logging"
	"github.com/matthewgall/meterlens/internal/models"
	"github.com/matthewgall/meterlens/internal/seasonal"
	"github.com/matthewgall/meterlens/internal/tariff"
)

// Savings rates applied to the annual cost for the analytics headline
const (
	confidentSavingsRate = 0.15
	defaultSavingsRate   = 0.10
	confidentThreshold   = 75
)

// Input is everything Aggregate needs for one household
type Input struct {
	UserID        string
	Postcode      string
	HouseholdSize int
	Photos        int
	Records       []models.ConsumptionRecord
	Tariffs       []tariff.Agreement
	TariffHint    float64                 // p/kWh read off photos, zero when unknown
	Profile       *models.SeasonalProfile // Built from Records when nil
	Now           time.Time
	Logger        *logging.Logger
}

// Result bundles every derived view of a household
type Result struct {
	Profile    models.SeasonalProfile     `json:"profile"`
	Estimate   models.UsageEstimate       `json:"estimate"`
	Analytics  models.SmartMeterAnalytics `json:"analytics"`
	Insights   []models.UsageInsight      `json:"insights"`
	Anomalies  []models.Anomaly           `json:"anomalies"`
	Records    []models.ConsumptionRecord `json:"records"`
	RateSource string                     `json:"rateSource"`
}

// Aggregate runs profile building, estimation, anomaly detection and
// insight generation over a household's records
func Aggregate(in Input) Result {
	logger := logging.OrDiscard(in.Logger).WithComponent("pipeline").WithUser(in.UserID)

	records := append([]models.ConsumptionRecord(nil), in.Records...)
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].StartDate.Before(records[j].StartDate)
	})
	records = tariff.CostRecords(records, in.Tariffs)

	var profile models.SeasonalProfile
	if in.Profile != nil {
		profile = *in.Profile
	} else {
		profile = seasonal.Build(in.UserID, in.Postcode, records, in.Now)
	}
	logger.LogStage("profile")

	rate, source := tariff.Resolve(in.Now, in.Tariffs, in.TariffHint)
	est := estimate.Calculate(estimate.Input{
		UserID:   in.UserID,
		Records:  records,
		Profile:  profile,
		UnitRate: rate,
		Now:      in.Now,
	})
	logger.LogStage("estimate")

	anomalies := []models.Anomaly{}
	if len(records) >= anomaly.MinRecords {
		anomalies = anomaly.Detect(records, profile)
		for _, a := range anomalies {
			logger.LogAnomalyDetected(a.Record.StartDate.Format("2006-01-02"), string(a.Severity), a.Deviation*100)
		}
	}
	logger.LogStage("anomalies")

	analytics := Analytics(in, records, profile, est, anomalies)
	logger.LogStage("analytics")

	found := insights.Generate(insights.Input{
		UserID:        in.UserID,
		Estimate:      est,
		Records:       records,
		Profile:       profile,
		Anomalies:     anomalies,
		HouseholdSize: in.HouseholdSize,
		Now:           in.Now,
	})
	logger.LogStage("insights")

	return Result{
		Profile:    profile,
		Estimate:   est,
		Analytics:  analytics,
		Insights:   found,
		Anomalies:  anomalies,
		Records:    records,
		RateSource: source,
	}
}

// Analytics assembles the time-series and summary view
func Analytics(in Input, records []models.ConsumptionRecord, profile models.SeasonalProfile, est models.UsageEstimate, anomalies []models.Anomaly) models.SmartMeterAnalytics {
	a := models.SmartMeterAnalytics{
		UserID:              in.UserID,
		GeneratedAt:         in.Now,
		DailyUsage:          series(records, models.Daily),
		WeeklyUsage:         series(records, models.Weekly),
		MonthlyUsage:        series(records, models.Monthly),
		TotalPhotos:         in.Photos,
		TotalReadings:       len(records),
		CoverageStart:       est.CoverageStart,
		CoverageEnd:         est.CoverageEnd,
		DataCompleteness:    Completeness(records),
		CurrentTrend:        est.TrendDirection,
		TrendConfidence:     est.Confidence,
		WinterAverage:       seasonAverage(records, models.Winter),
		SummerAverage:       seasonAverage(records, models.Summer),
		Anomalies:           anomalies,
		EstimatedAnnualCost: est.EstimatedAnnualCost,
		CostTrend:           est.TrendDirection,
		PotentialSavings:    potentialSavings(est),
	}

	annual := estimate.Annual(records, profile)
	a.MonthlyProfile = annual.Monthly[:]

	change := est.TrendPercentage * est.MonthlyAverage / 100
	if est.TrendDirection == models.TrendDecreasing {
		change = -change
	}
	a.ChangeRate = round2(change)

	if a.SummerAverage > 0 {
		a.SeasonalVariation = math.Round((a.WinterAverage - a.SummerAverage) / a.SummerAverage * 100)
	}

	if len(records) > 0 {
		a.VsNationalAverage = comparison(est.YearlyTotal, insights.NationalAverageKWh)
		if in.HouseholdSize > 0 {
			a.VsSimilarHouseholds = comparison(est.YearlyTotal, insights.HouseholdAverage(in.HouseholdSize))
		}
	}
	return a
}

func series(records []models.ConsumptionRecord, gran models.Granularity) []models.SeriesPoint {
	out := []models.SeriesPoint{}
	for _, r := range records {
		if r.Granularity != gran {
			continue
		}
		out = append(out, models.SeriesPoint{Start: r.StartDate, KWh: r.ElectricityImport, Cost: r.ElectricityCost})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

// Completeness compares the record count with one reading a week across the
// covered span, capped at 100
func Completeness(records []models.ConsumptionRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	first, last := records[0].StartDate, records[0].StartDate
	for _, r := range records[1:] {
		if r.StartDate.Before(first) {
			first = r.StartDate
		}
		if r.StartDate.After(last) {
			last = r.StartDate
		}
	}
	expected := math.Ceil(last.Sub(first).Hours() / 24 / 7)
	if expected <= 0 {
		return 0
	}
	return math.Round(math.Min(100, float64(len(records))/expected*100))
}

func seasonAverage(records []models.ConsumptionRecord, season models.Season) float64 {
	var sum float64
	var n int
	for _, r := range records {
		if seasonal.SeasonOf(r.StartDate) != season {
			continue
		}
		sum += r.DailyImport()
		n++
	}
	if n == 0 {
		return 0
	}
	return round2(sum / float64(n))
}

func potentialSavings(est models.UsageEstimate) float64 {
	rate := defaultSavingsRate
	if est.Confidence > confidentThreshold {
		rate = confidentSavingsRate
	}
	return math.Round(est.EstimatedAnnualCost * rate)
}

func comparison(user, reference float64) *models.Comparison {
	return &models.Comparison{
		UserAverage:      user,
		ReferenceAverage: reference,
		PercentageDiff:   math.Round((user-reference)/reference*1000) / 10,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// PeriodLabel formats a record period for logs and reports
func PeriodLabel(start time.Time, gran models.Granularity) string {
	switch gran {
	case models.Monthly:
		return start.Format("Jan 2006")
	case models.Yearly:
		return start.Format("2006")
	case models.Weekly:
		return fmt.Sprintf("w/c %s", start.Format("2 Jan 2006"))
	}
	return start.Format("2 Jan 2006")
}
