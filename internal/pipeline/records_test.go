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
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/matthewgall/meterlens/internal/extraction"
	"github.com/matthewgall/meterlens/internal/models"
)

func value(id, photo string, v float64, unit models.Unit, vt models.ValueType, start, end time.Time, gran models.Granularity, conf float64) models.ExtractedValue {
	return models.ExtractedValue{
		ID:                   id,
		PhotoID:              photo,
		UserID:               "u1",
		Value:                v,
		Unit:                 unit,
		ValueType:            vt,
		StartDate:            start,
		EndDate:              end,
		Granularity:          gran,
		DateConfidence:       80,
		ExtractionConfidence: conf,
		CreatedAt:            uploaded,
	}
}

func sampleValues() []models.ExtractedValue {
	febStart, febEnd := date(2024, 2, 1), date(2024, 2, 29)
	export := value("d", "p1", 20, models.UnitKWh, models.ValueMeterReading, febStart, febEnd, models.Monthly, 80)
	export.MeterReadingType = models.ReadingExport
	foreign := value("h", "p9", 999, models.UnitKWh, models.ValueMonthlyTotal, febStart, febEnd, models.Monthly, 99)
	foreign.UserID = "someone-else"

	return []models.ExtractedValue{
		value("a", "p1", 300, models.UnitKWh, models.ValueMonthlyTotal, febStart, febEnd, models.Monthly, 80),
		value("b", "p2", 310, models.UnitKWh, models.ValueMonthlyTotal, febStart, febEnd, models.Monthly, 90),
		value("c", "p1", 8500, models.UnitPence, models.ValueCost, febStart, febEnd, models.Monthly, 70),
		export,
		value("e", "p1", 50, models.UnitCubicMetre, models.ValueMonthlyTotal, febStart, febEnd, models.Monthly, 70),
		value("f", "p3", 10, models.UnitKWh, models.ValueDailyAverage, date(2024, 3, 1), date(2024, 3, 1), models.Daily, 60),
		value("g", "p3", 40, models.UnitGBP, models.ValueCost, date(2024, 4, 1), date(2024, 4, 30), models.Monthly, 90),
		foreign,
	}
}

func TestBuildRecords(t *testing.T) {
	set := BuildRecords("u1", sampleValues(), nil)

	if len(set.Records) != 2 {
		t.Fatalf("expected 2 records, got %d: %+v", len(set.Records), set.Records)
	}

	feb := set.Records[0]
	if feb.ID != models.DerivedID("u1", "2024-02-01", "monthly") {
		t.Errorf("record id not derived from user and period: %s", feb.ID)
	}
	if feb.ElectricityImport != 305.29 {
		t.Errorf("import = %v, want 305.29", feb.ElectricityImport)
	}
	if feb.Confidence != 68 {
		t.Errorf("confidence = %v, want 68", feb.Confidence)
	}
	if feb.ElectricityCost == nil || *feb.ElectricityCost != 85 {
		t.Errorf("cost = %v, want 85", feb.ElectricityCost)
	}
	if feb.ElectricityExport == nil || *feb.ElectricityExport != 20 {
		t.Errorf("export = %v, want 20", feb.ElectricityExport)
	}
	if feb.GasConsumption == nil || *feb.GasConsumption != 50 {
		t.Errorf("gas = %v, want 50", feb.GasConsumption)
	}
	if !reflect.DeepEqual(feb.SourcePhotoIDs, []string{"p1", "p2"}) {
		t.Errorf("photos = %v", feb.SourcePhotoIDs)
	}
	if len(feb.SourceValueIDs) != 5 {
		t.Errorf("expected 5 source values, got %v", feb.SourceValueIDs)
	}
	if feb.DataSource != models.SourceExtracted || feb.Days() != 29 {
		t.Errorf("unexpected record %+v", feb)
	}

	mar := set.Records[1]
	if mar.Granularity != models.Daily || mar.ElectricityImport != 10 {
		t.Errorf("unexpected March record %+v", mar)
	}

	if len(set.Confirmations) != 1 || set.Confirmations[0].RecordID != mar.ID {
		t.Fatalf("expected the low-confidence single value to need confirmation, got %+v", set.Confirmations)
	}
}

func TestBuildRecordsInferredPeriodNeedsConfirmation(t *testing.T) {
	bill := models.Photo{ID: "bill", UserID: "u1", DocumentType: models.DocPaperBill}
	result := &extraction.Result{
		DocumentType: models.DocPaperBill,
		Confidence:   95,
		Values: []extraction.Candidate{
			{Value: 280, Unit: models.UnitKWh, Type: models.ValueMonthlyTotal, Confidence: 95},
		},
	}
	values := ValuesFromExtraction(bill, result, uploaded)
	if len(values) != 1 || values[0].DateConfidence >= InferredDateBelow {
		t.Fatalf("expected one value with an inferred period, got %+v", values)
	}

	set := BuildRecords("u1", values, nil)
	if len(set.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(set.Records))
	}
	if len(set.Confirmations) != 1 {
		t.Fatalf("expected inferred period to need confirmation, got %+v", set.Confirmations)
	}
	rec := set.Confirmations[0].Reconciliation
	if !rec.RequiresUserConfirmation || !strings.Contains(rec.Reasoning, "Period inferred") {
		t.Errorf("unexpected reconciliation %+v", rec)
	}
	if rec.RecommendedValue != 280 {
		t.Errorf("recommended = %v, want 280", rec.RecommendedValue)
	}
}

func TestBuildRecordsIsIdempotent(t *testing.T) {
	a := BuildRecords("u1", sampleValues(), nil)
	b := BuildRecords("u1", sampleValues(), nil)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("expected identical record sets")
	}
}

func TestBuildRecordsSkipsInvalidValues(t *testing.T) {
	bad := value("x", "p", 10, models.UnitKWh, models.ValueDailyAverage, date(2024, 3, 2), date(2024, 3, 1), models.Daily, 80)
	set := BuildRecords("u1", []models.ExtractedValue{bad}, nil)
	if len(set.Records) != 0 {
		t.Fatalf("expected invalid value to be skipped, got %+v", set.Records)
	}
}
