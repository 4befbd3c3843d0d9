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

// Package insights turns estimates, anomalies and profiles into ranked,
// explainable findings for the household.
package insights

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/matthewgall/meterlens/internal/estimate"
	"github.com/matthewgall/meterlens/internal/models"
)

// UK reference figures
const (
	NationalAverageKWh   = 2700.0
	SmallHouseholdKWh    = 2000.0 // 1-2 people
	MediumHouseholdKWh   = 2900.0 // 3-4 people
	LargeHouseholdKWh    = 4300.0 // 5+ people
	NationalAverageCost  = 660.0  // Pounds per year
	HighCostThreshold    = 800.0  // Pounds per year
	TypicalSwitchSavings = 200.0  // Pounds per year
	winterDays           = 120
	heatingTipLifetime   = 90 * 24 * time.Hour
	maxAnomalyInsights   = 3
)

// Input is everything the generator looks at
type Input struct {
	UserID        string
	Estimate      models.UsageEstimate
	Records       []models.ConsumptionRecord
	Profile       models.SeasonalProfile
	Anomalies     []models.Anomaly
	HouseholdSize int
	Now           time.Time
}

type rule func(in Input) []models.UsageInsight

var rules = []rule{
	seasonalComparison,
	trendAlert,
	anomalyDetection,
	benchmarkComparison,
	costPrediction,
	efficiencyTips,
}

// Generate runs every rule and returns the insights ordered by priority.
// The same input always gives the same output.
func Generate(in Input) []models.UsageInsight {
	out := []models.UsageInsight{}
	for _, r := range rules {
		out = append(out, r(in)...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out
}

// newInsight fills in the fields every insight shares
func newInsight(in Input, t models.InsightType, discriminator string, severity models.InsightSeverity, priority int) models.UsageInsight {
	return models.UsageInsight{
		ID:        models.DerivedID(in.UserID, string(t), discriminator),
		UserID:    in.UserID,
		Type:      t,
		Severity:  severity,
		Priority:  priority,
		CreatedAt: in.Now,
	}
}

func metric(name string, value float64) models.Metric {
	return models.Metric{Name: name, Value: value}
}

func compared(name string, value, comparison float64) models.Metric {
	m := models.Metric{Name: name, Value: value, Comparison: models.Float(comparison)}
	if comparison != 0 {
		m.PercentageDiff = models.Float(round1((value - comparison) / comparison * 100))
	}
	return m
}

// rate returns the unit rate the estimate was costed at
func rate(in Input) float64 {
	if in.Estimate.UnitRate > 0 {
		return in.Estimate.UnitRate
	}
	return estimate.DefaultUnitRate
}

func savings(v float64) *float64 {
	return models.Float(math.Round(v))
}

func itoa(v float64) string {
	return strconv.FormatFloat(math.Round(v), 'f', 0, 64)
}
