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

package insights

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/matthewgall/meterlens/internal/models"
	"github.com/matthewgall/meterlens/internal/seasonal"
)

func seasonalComparison(in Input) []models.UsageInsight {
	var winter, summer []float64
	for _, r := range in.Records {
		switch seasonal.SeasonOf(r.StartDate) {
		case models.Winter:
			winter = append(winter, r.DailyImport())
		case models.Summer:
			summer = append(summer, r.DailyImport())
		}
	}
	if len(winter) == 0 || len(summer) == 0 {
		return nil
	}

	winterAvg, summerAvg := mean(winter), mean(summer)
	if summerAvg <= 0 {
		return nil
	}
	gap := (winterAvg - summerAvg) / summerAvg * 100
	if gap <= 50 {
		return nil
	}

	severity := models.InsightWarning
	if gap >= 100 {
		severity = models.InsightAlert
	}

	ins := newInsight(in, models.InsightSeasonalComparison, "winter-summer", severity, 7)
	ins.Title = "High Winter Usage Detected"
	ins.Description = fmt.Sprintf("Your winter energy usage is %.0f%% higher than summer.", gap)
	ins.Explanation = fmt.Sprintf("Winter days average %.1f kWh compared to %.1f kWh in summer. "+
		"An increase this large is usually heating, so insulation and heating controls are the first places to look.", winterAvg, summerAvg)
	ins.SupportingData = []models.Metric{
		compared("Winter Daily Average", round1(winterAvg), round1(summerAvg)),
		compared("Seasonal Factor", round2(in.Profile.WinterFactor), round2(in.Profile.SummerFactor)),
	}
	ins.Actionable = true
	ins.SuggestedActions = []string{
		"Check loft insulation is at least 270mm deep",
		"Seal draughts around windows and doors",
		"Consider upgrading to a heat pump for efficient heating",
		"Use a smart thermostat to optimise heating schedules",
		"Check radiator efficiency and bleed if necessary",
	}
	ins.PotentialSavings = savings((winterAvg - summerAvg) * winterDays * rate(in) / 100)
	return []models.UsageInsight{ins}
}

func trendAlert(in Input) []models.UsageInsight {
	est := in.Estimate
	if est.TrendPercentage < 10 {
		return nil
	}
	impact := est.EstimatedAnnualCost * est.TrendPercentage / 100

	switch est.TrendDirection {
	case models.TrendIncreasing:
		severity := models.InsightWarning
		if est.TrendPercentage > 20 {
			severity = models.InsightAlert
		}
		ins := newInsight(in, models.InsightTrendAlert, "increasing", severity, 8)
		ins.Title = "Rising Energy Usage Trend"
		ins.Description = fmt.Sprintf("Your energy usage has risen by %.1f%% over the period covered.", est.TrendPercentage)
		ins.Explanation = fmt.Sprintf("Across %d readings your consumption has been climbing. "+
			"Changes in occupancy, new appliances or failing equipment are the usual causes.", len(in.Records))
		ins.SupportingData = []models.Metric{
			metric("Trend Rate", est.TrendPercentage),
			metric("Current Daily Average", est.DailyAverage),
			metric("Projected Annual Increase", math.Round(est.YearlyTotal*est.TrendPercentage/100)),
		}
		ins.Actionable = true
		ins.SuggestedActions = []string{
			"Check for recently added appliances or electronics",
			"Review thermostat settings",
			"Inspect for faulty appliances running inefficiently",
			"Monitor daily usage to pinpoint when the increase occurs",
		}
		ins.PotentialSavings = savings(impact)
		return []models.UsageInsight{ins}

	case models.TrendDecreasing:
		ins := newInsight(in, models.InsightTrendAlert, "decreasing", models.InsightInfo, 5)
		ins.Title = "Energy Usage Decreasing"
		ins.Description = fmt.Sprintf("Your usage is down %.1f%% over the period covered.", est.TrendPercentage)
		ins.Explanation = fmt.Sprintf("Keeping this up is worth roughly £%s a year.", itoa(impact))
		ins.SupportingData = []models.Metric{
			metric("Reduction Rate", est.TrendPercentage),
			metric("Current Daily Average", est.DailyAverage),
			metric("Annual Savings", math.Round(impact)),
		}
		ins.SuggestedActions = []string{
			"Continue your current energy-saving practices",
		}
		ins.PotentialSavings = savings(impact)
		return []models.UsageInsight{ins}
	}
	return nil
}

func anomalyDetection(in Input) []models.UsageInsight {
	var out []models.UsageInsight
	for i, a := range in.Anomalies {
		if i >= maxAnomalyInsights {
			break
		}
		severity, priority := models.InsightWarning, 6
		switch a.Severity {
		case models.SeveritySevere:
			severity, priority = models.InsightAlert, 9
		case models.SeverityModerate:
		default:
			continue
		}

		when := a.Record.StartDate.Format("Jan 2006")
		actual := a.Record.ElectricityImport
		direction := "lower"
		if actual > a.ExpectedValue {
			direction = "higher"
		}

		ins := newInsight(in, models.InsightAnomalyDetection, a.Record.StartDate.Format("2006-01-02")+"/"+string(a.Record.Granularity), severity, priority)
		ins.Title = "Unusual Usage in " + when
		ins.Description = fmt.Sprintf("Your usage was %.0f%% %s than expected.", a.DeviationPercent, direction)
		ins.Explanation = fmt.Sprintf("In %s you used %s kWh against an expected %s kWh.", when,
			humanize.Comma(int64(math.Round(actual))), humanize.Comma(int64(math.Round(a.ExpectedValue))))
		ins.SupportingData = []models.Metric{
			metric("Actual Usage", math.Round(actual)),
			metric("Expected Usage", math.Round(a.ExpectedValue)),
			metric("Deviation", a.DeviationPercent),
		}
		ins.Actionable = true
		for _, c := range a.PossibleCauses {
			ins.SuggestedActions = append(ins.SuggestedActions, "Check: "+c)
		}
		ins.SuggestedActions = append(ins.SuggestedActions,
			"Review the meter reading photo to confirm accuracy",
			"Compare with your supplier bill if available",
		)
		if actual > a.ExpectedValue {
			ins.PotentialSavings = savings((actual - a.ExpectedValue) * rate(in) / 100)
		}
		out = append(out, ins)
	}
	return out
}

func benchmarkComparison(in Input) []models.UsageInsight {
	var out []models.UsageInsight
	yearly := in.Estimate.YearlyTotal

	diff := (yearly - NationalAverageKWh) / NationalAverageKWh * 100
	if math.Abs(diff) > 15 {
		higher := yearly > NationalAverageKWh
		severity, priority, word := models.InsightInfo, 4, "lower"
		if higher {
			severity, priority, word = models.InsightWarning, 7, "higher"
		}

		ins := newInsight(in, models.InsightBenchmarkComparison, "national", severity, priority)
		ins.Description = fmt.Sprintf("Your estimated usage is %.0f%% %s than the UK average.", math.Abs(diff), word)
		ins.Explanation = fmt.Sprintf("The average UK household uses around %s kWh a year. Your estimate is %s kWh.",
			humanize.Comma(int64(NationalAverageKWh)), humanize.Comma(int64(yearly)))
		ins.SupportingData = []models.Metric{
			compared("Your Estimate", yearly, NationalAverageKWh),
			metric("UK Average", NationalAverageKWh),
		}
		if higher {
			ins.Title = "Above UK Average Usage"
			ins.Actionable = true
			ins.SuggestedActions = []string{
				"Compare appliance efficiency ratings",
				"Review heating and hot water settings",
				"Consider upgrading old appliances",
				"Use an energy monitor to identify high-usage periods",
			}
			ins.PotentialSavings = savings((yearly - NationalAverageKWh) * rate(in) / 100)
		} else {
			ins.Title = "Below UK Average Usage"
			ins.SuggestedActions = []string{"Maintain your efficient habits"}
		}
		out = append(out, ins)
	}

	if in.HouseholdSize > 0 {
		avg := HouseholdAverage(in.HouseholdSize)
		sizeDiff := (yearly - avg) / avg * 100
		if sizeDiff > 20 {
			ins := newInsight(in, models.InsightBenchmarkComparison, "household-size", models.InsightWarning, 8)
			ins.Title = "Higher Than Similar Households"
			ins.Description = fmt.Sprintf("Your usage is %.0f%% above average for %d-person households.", sizeDiff, in.HouseholdSize)
			ins.Explanation = fmt.Sprintf("Households of %d typically use around %s kWh a year against your %s kWh.",
				in.HouseholdSize, humanize.Comma(int64(avg)), humanize.Comma(int64(yearly)))
			ins.SupportingData = []models.Metric{
				compared("Your Usage", yearly, avg),
				metric("Similar Households Average", avg),
			}
			ins.Actionable = true
			ins.SuggestedActions = []string{
				"Review your heating schedule for times nobody is home",
				"Switch off devices on standby",
				"Check your hot water temperature",
				"Evaluate appliance usage patterns",
			}
			ins.PotentialSavings = savings((yearly - avg) * rate(in) / 100 * 0.5)
			out = append(out, ins)
		}
	}
	return out
}

// HouseholdAverage returns the UK annual average for a household of n people
func HouseholdAverage(n int) float64 {
	switch {
	case n <= 2:
		return SmallHouseholdKWh
	case n <= 4:
		return MediumHouseholdKWh
	}
	return LargeHouseholdKWh
}

func costPrediction(in Input) []models.UsageInsight {
	var out []models.UsageInsight
	est := in.Estimate

	if est.EstimatedAnnualCost > HighCostThreshold {
		ins := newInsight(in, models.InsightCostPrediction, "high-cost", models.InsightWarning, 9)
		ins.Title = "High Annual Cost Predicted"
		ins.Description = fmt.Sprintf("Your estimated annual electricity cost is £%s.", money(est.EstimatedAnnualCost))
		ins.Explanation = fmt.Sprintf("At current usage you are on track to spend £%s a year (range £%s to £%s), above the UK average of around £%s.",
			money(est.EstimatedAnnualCost), money(est.CostMin), money(est.CostMax), money(NationalAverageCost))
		ins.SupportingData = []models.Metric{
			metric("Estimated Annual Cost", est.EstimatedAnnualCost),
			compared("UK Average Annual Cost", NationalAverageCost, est.EstimatedAnnualCost),
			compared("Potential Cost Range", est.CostMin, est.CostMax),
		}
		ins.Actionable = true
		ins.SuggestedActions = []string{
			"Compare your current tariff with others on the market",
			"Consider a time-of-use tariff if you can shift usage",
			"Check if you qualify for any energy bill support schemes",
		}
		ins.PotentialSavings = savings((est.EstimatedAnnualCost - NationalAverageCost) * 0.3)
		out = append(out, ins)
	}

	ins := newInsight(in, models.InsightCostPrediction, "tariff-switch", models.InsightInfo, 6)
	ins.Title = "Tariff Optimisation Opportunity"
	ins.Description = "Switching to the right tariff could save you money."
	ins.Explanation = "Households that compare and switch tariffs typically save around £200 a year."
	ins.SupportingData = []models.Metric{
		metric("Current Estimated Cost", est.EstimatedAnnualCost),
		metric("Average Switching Savings", TypicalSwitchSavings),
	}
	ins.Actionable = true
	ins.SuggestedActions = []string{
		"Review your current supplier contract end date",
		"Consider fixed against variable rate tariffs",
		"Check for dual fuel discounts",
	}
	ins.PotentialSavings = models.Float(TypicalSwitchSavings)
	return append(out, ins)
}

func efficiencyTips(in Input) []models.UsageInsight {
	var out []models.UsageInsight

	if in.Profile.WinterFactor > 1.4 {
		ins := newInsight(in, models.InsightEfficiencyTip, "heating", models.InsightInfo, 5)
		ins.Title = "Heating Efficiency Tips"
		ins.Description = "Your winter usage is high. Here is how to reduce it."
		ins.Explanation = "Heating drives most winter energy use. Small changes to heating habits and insulation save money without losing comfort."
		ins.SupportingData = []models.Metric{
			metric("Winter Factor", round2(in.Profile.WinterFactor)),
			metric("Heating Savings Potential", 30),
		}
		ins.Actionable = true
		ins.SuggestedActions = []string{
			"Turn the thermostat down by 1°C",
			"Bleed radiators for better heat distribution",
			"Close curtains at dusk to retain heat",
			"Only heat rooms you are using",
			"Install thermostatic radiator valves",
		}
		ins.PotentialSavings = models.Float(150)
		expires := in.Now.Add(heatingTipLifetime)
		ins.ExpiresAt = &expires
		out = append(out, ins)
	}

	ins := newInsight(in, models.InsightEfficiencyTip, "general", models.InsightInfo, 3)
	ins.Title = "Quick Energy Saving Tips"
	ins.Description = "Simple actions that can reduce your bills today."
	ins.Explanation = "These tips need little or no investment but together can save £100 to £300 a year."
	ins.SupportingData = []models.Metric{metric("Potential Annual Savings", 200)}
	ins.Actionable = true
	ins.SuggestedActions = []string{
		"Switch to LED bulbs",
		"Turn off devices at the wall",
		"Wash clothes at 30°C",
		"Fill the kettle with only what you need",
	}
	ins.PotentialSavings = models.Float(200)
	return append(out, ins)
}

func money(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
