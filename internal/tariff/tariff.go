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

// Package tariff resolves the electricity unit rate a household pays.
package tariff

import (
	"time"

	"github.com/matthewgall/meterlens/internal/models"
)

// DefaultUnitRate is the UK reference rate in pence per kWh
const DefaultUnitRate = 24.5

// Off-peak window used to blend day/night tariffs, 02:00-05:00
const (
	nightStartHour = 2
	nightEndHour   = 5
)

// Rate sources reported by Resolve
const (
	SourceAgreement = "tariff agreement"
	SourceExtracted = "extracted from photos"
	SourceDefault   = "UK reference rate"
)

// Agreement is a tariff that applied between two dates
type Agreement struct {
	Name      string     `yaml:"name" json:"name"`
	ValidFrom time.Time  `yaml:"valid_from" json:"validFrom"`
	ValidTo   *time.Time `yaml:"valid_to,omitempty" json:"validTo,omitempty"`
	UnitRate  float64    `yaml:"unit_rate" json:"unitRate"`             // p/kWh
	DayRate   float64    `yaml:"day_rate,omitempty" json:"dayRate"`     // p/kWh
	NightRate float64    `yaml:"night_rate,omitempty" json:"nightRate"` // p/kWh
}

// FindActive returns the agreement in force at t, or nil
func FindActive(t time.Time, agreements []Agreement) *Agreement {
	for i := range agreements {
		if t.Before(agreements[i].ValidFrom) {
			continue
		}
		if agreements[i].ValidTo != nil && t.After(*agreements[i].ValidTo) {
			continue
		}
		return &agreements[i]
	}
	return nil
}

// RateForTime returns the rate charged at t under the agreement
func (a Agreement) RateForTime(t time.Time) float64 {
	if a.DayRate == 0 && a.NightRate == 0 {
		return a.UnitRate
	}
	if IsNightRate(t) {
		return a.NightRate
	}
	return a.DayRate
}

// EffectiveRate is the average rate over a day of flat usage
func (a Agreement) EffectiveRate() float64 {
	if a.DayRate == 0 && a.NightRate == 0 {
		return a.UnitRate
	}
	night := float64(nightEndHour-nightStartHour) / 24
	return a.DayRate*(1-night) + a.NightRate*night
}

// IsNightRate reports whether t falls in the off-peak window
func IsNightRate(t time.Time) bool {
	hour := t.Hour()
	return hour >= nightStartHour && hour < nightEndHour
}

// Resolve picks the unit rate for a point in time, preferring a configured
// agreement, then a rate read off the household's own photos, then the UK
// reference rate
func Resolve(at time.Time, agreements []Agreement, extracted float64) (float64, string) {
	if a := FindActive(at, agreements); a != nil {
		if r := a.EffectiveRate(); r > 0 {
			return r, SourceAgreement
		}
	}
	if extracted > 0 {
		return extracted, SourceExtracted
	}
	return DefaultUnitRate, SourceDefault
}

// CostRecords fills ElectricityCost in pounds for records that have no
// extracted cost, using the agreement active at each record's start
func CostRecords(records []models.ConsumptionRecord, agreements []Agreement) []models.ConsumptionRecord {
	if len(records) == 0 || len(agreements) == 0 {
		return records
	}

	for i := range records {
		if records[i].ElectricityCost != nil {
			continue
		}
		a := FindActive(records[i].StartDate, agreements)
		if a == nil {
			continue
		}
		cost := records[i].ElectricityImport * a.EffectiveRate() / 100
		records[i].ElectricityCost = &cost
	}
	return records
}
