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

package store

import (
	"database/sql"
	"fmt"

	"github.com/matthewgall/meterlens/internal/models"
)

const recordColumns = `id, user_id, start_date, end_date, granularity, electricity_import, electricity_export,
	gas_consumption, electricity_cost, data_source, confidence, is_estimated, source_photo_ids,
	source_value_ids, created_at`

const insertRecord = `INSERT OR REPLACE INTO consumption_records (` + recordColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// ReplaceRecords swaps a user's derived records for a freshly computed set.
// Manually entered records are kept.
func (s *Store) ReplaceRecords(userID string, records []models.ConsumptionRecord) error {
	s.logger.LogStorageOperation("replace_records", fmt.Sprintf("%d records", len(records)))

	tx, err := s.conn.Begin()
	if err != nil {
		return &StorageError{Operation: "replace_records", Path: s.path, Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM consumption_records WHERE user_id = ? AND data_source != ?`,
		userID, string(models.SourceManual)); err != nil {
		return &StorageError{Operation: "replace_records", Path: s.path, Err: err}
	}

	stmt, err := tx.Prepare(insertRecord)
	if err != nil {
		return &StorageError{Operation: "replace_records", Path: s.path, Err: err}
	}
	defer stmt.Close()

	for _, r := range records {
		if r.UserID != userID {
			return &StorageError{Operation: "replace_records", Path: s.path,
				Err: fmt.Errorf("record %s belongs to %s", r.ID, logMask(r.UserID))}
		}
		if _, err := stmt.Exec(recordArgs(r)...); err != nil {
			return &StorageError{Operation: "replace_records", Path: s.path, Err: fmt.Errorf("record %s: %w", r.ID, err)}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StorageError{Operation: "replace_records", Path: s.path, Err: err}
	}
	return nil
}

// AddManualRecord stores a record typed in by the user
func (s *Store) AddManualRecord(r models.ConsumptionRecord) error {
	r.DataSource = models.SourceManual
	s.logger.LogStorageOperation("add_manual_record", r.ID)

	if _, err := s.conn.Exec(insertRecord, recordArgs(r)...); err != nil {
		return &StorageError{Operation: "add_manual_record", Path: s.path, Err: err}
	}
	return nil
}

// ListRecords returns a user's records ordered by period start
func (s *Store) ListRecords(userID string) ([]models.ConsumptionRecord, error) {
	rows, err := s.conn.Query(`SELECT `+recordColumns+` FROM consumption_records WHERE user_id = ? ORDER BY start_date, id`, userID)
	if err != nil {
		return nil, &StorageError{Operation: "list_records", Path: s.path, Err: err}
	}
	defer rows.Close()

	var out []models.ConsumptionRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, &StorageError{Operation: "list_records", Path: s.path, Err: err}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func recordArgs(r models.ConsumptionRecord) []any {
	return []any{
		r.ID, r.UserID, formatTime(r.StartDate), formatTime(r.EndDate), string(r.Granularity),
		r.ElectricityImport, nullFloat(r.ElectricityExport), nullFloat(r.GasConsumption),
		nullFloat(r.ElectricityCost), string(r.DataSource), r.Confidence, boolInt(r.IsEstimated),
		encodeIDs(r.SourcePhotoIDs), encodeIDs(r.SourceValueIDs), formatTime(r.CreatedAt),
	}
}

func scanRecord(row scanner) (models.ConsumptionRecord, error) {
	var r models.ConsumptionRecord
	var start, end, gran, source, photos, values, created string
	var export, gas, cost sql.NullFloat64
	var estimated int

	err := row.Scan(&r.ID, &r.UserID, &start, &end, &gran, &r.ElectricityImport, &export, &gas, &cost,
		&source, &r.Confidence, &estimated, &photos, &values, &created)
	if err != nil {
		return r, err
	}

	r.Granularity = models.Granularity(gran)
	r.DataSource = models.DataSource(source)
	r.IsEstimated = estimated != 0
	r.ElectricityExport = floatPtr(export)
	r.GasConsumption = floatPtr(gas)
	r.ElectricityCost = floatPtr(cost)

	if r.StartDate, err = parseTime(start); err != nil {
		return r, err
	}
	if r.EndDate, err = parseTime(end); err != nil {
		return r, err
	}
	if r.CreatedAt, err = parseTime(created); err != nil {
		return r, err
	}
	if r.SourcePhotoIDs, err = decodeIDs(photos); err != nil {
		return r, err
	}
	if r.SourceValueIDs, err = decodeIDs(values); err != nil {
		return r, err
	}
	return r, nil
}
