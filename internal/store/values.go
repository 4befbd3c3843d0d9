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

const valueColumns = `id, photo_id, user_id, value, unit, value_type, meter_reading_type, extracted_date,
	start_date, end_date, granularity, date_confidence, extraction_confidence, validated, anomaly,
	related_value_ids, created_at`

// SaveValues inserts or replaces extracted values in one transaction
func (s *Store) SaveValues(values []models.ExtractedValue) error {
	if len(values) == 0 {
		return nil
	}
	s.logger.LogStorageOperation("save_values", fmt.Sprintf("%d values", len(values)))

	tx, err := s.conn.Begin()
	if err != nil {
		return &StorageError{Operation: "save_values", Path: s.path, Err: err}
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO extracted_values (` + valueColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return &StorageError{Operation: "save_values", Path: s.path, Err: err}
	}
	defer stmt.Close()

	for _, v := range values {
		_, err := stmt.Exec(v.ID, v.PhotoID, v.UserID, v.Value, string(v.Unit), string(v.ValueType),
			string(v.MeterReadingType), nullTime(v.ExtractedDate), formatTime(v.StartDate), formatTime(v.EndDate),
			string(v.Granularity), v.DateConfidence, v.ExtractionConfidence, boolInt(v.Validated),
			boolInt(v.Anomaly), encodeIDs(v.RelatedValueIDs), formatTime(v.CreatedAt))
		if err != nil {
			return &StorageError{Operation: "save_values", Path: s.path, Err: fmt.Errorf("value %s: %w", v.ID, err)}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StorageError{Operation: "save_values", Path: s.path, Err: err}
	}
	return nil
}

// ListValues returns a user's extracted values ordered by period start
func (s *Store) ListValues(userID string) ([]models.ExtractedValue, error) {
	rows, err := s.conn.Query(`SELECT `+valueColumns+` FROM extracted_values WHERE user_id = ? ORDER BY start_date, id`, userID)
	if err != nil {
		return nil, &StorageError{Operation: "list_values", Path: s.path, Err: err}
	}
	defer rows.Close()

	var out []models.ExtractedValue
	for rows.Next() {
		v, err := scanValue(rows)
		if err != nil {
			return nil, &StorageError{Operation: "list_values", Path: s.path, Err: err}
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanValue(row scanner) (models.ExtractedValue, error) {
	var v models.ExtractedValue
	var unit, valueType, meterType, gran, start, end, created, related string
	var extracted sql.NullString
	var validated, anomaly int

	err := row.Scan(&v.ID, &v.PhotoID, &v.UserID, &v.Value, &unit, &valueType, &meterType, &extracted,
		&start, &end, &gran, &v.DateConfidence, &v.ExtractionConfidence, &validated, &anomaly,
		&related, &created)
	if err != nil {
		return v, err
	}

	v.Unit = models.Unit(unit)
	v.ValueType = models.ValueType(valueType)
	v.MeterReadingType = models.MeterReadingType(meterType)
	v.Granularity = models.Granularity(gran)
	v.Validated = validated != 0
	v.Anomaly = anomaly != 0

	if extracted.Valid {
		t, err := parseTime(extracted.String)
		if err != nil {
			return v, err
		}
		v.ExtractedDate = &t
	}
	if v.StartDate, err = parseTime(start); err != nil {
		return v, err
	}
	if v.EndDate, err = parseTime(end); err != nil {
		return v, err
	}
	if v.CreatedAt, err = parseTime(created); err != nil {
		return v, err
	}
	if v.RelatedValueIDs, err = decodeIDs(related); err != nil {
		return v, err
	}
	return v, nil
}
