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

// Package store persists photos, extracted values, consumption records and
// seasonal profiles in SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/matthewgall/meterlens/internal/logging"
)

const timeLayout = time.RFC3339Nano

// Store wraps the database connection
type Store struct {
	conn   *sql.DB
	path   string
	logger *logging.Logger
}

// Open opens (creating if needed) the database at path and initialises the schema
func Open(path string, logger *logging.Logger) (*Store, error) {
	logger = logging.OrDiscard(logger).WithComponent("store")

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, &StorageError{Operation: "create_directory", Path: path, Err: err}
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &StorageError{Operation: "open", Path: path, Err: err}
	}
	// A single connection keeps :memory: databases coherent
	conn.SetMaxOpenConns(1)

	s := &Store{conn: conn, path: path, logger: logger}
	if err := s.initSchema(); err != nil {
		conn.Close()
		return nil, &StorageError{Operation: "init_schema", Path: path, Err: err}
	}

	logger.Debug("Store initialized", "path", path)
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS photos (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		uploaded_at TEXT NOT NULL,
		path TEXT NOT NULL,
		document_type TEXT NOT NULL,
		status TEXT NOT NULL,
		confidence REAL NOT NULL DEFAULT 0,
		user_confirmed INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_photos_user ON photos(user_id);

	CREATE TABLE IF NOT EXISTS extracted_values (
		id TEXT PRIMARY KEY,
		photo_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		value REAL NOT NULL,
		unit TEXT NOT NULL,
		value_type TEXT NOT NULL,
		meter_reading_type TEXT NOT NULL DEFAULT '',
		extracted_date TEXT,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		granularity TEXT NOT NULL,
		date_confidence REAL NOT NULL,
		extraction_confidence REAL NOT NULL,
		validated INTEGER NOT NULL DEFAULT 0,
		anomaly INTEGER NOT NULL DEFAULT 0,
		related_value_ids TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_values_user ON extracted_values(user_id);
	CREATE INDEX IF NOT EXISTS idx_values_photo ON extracted_values(photo_id);

	CREATE TABLE IF NOT EXISTS consumption_records (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		granularity TEXT NOT NULL,
		electricity_import REAL NOT NULL,
		electricity_export REAL,
		gas_consumption REAL,
		electricity_cost REAL,
		data_source TEXT NOT NULL,
		confidence REAL NOT NULL,
		is_estimated INTEGER NOT NULL DEFAULT 0,
		source_photo_ids TEXT NOT NULL DEFAULT '[]',
		source_value_ids TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_records_user ON consumption_records(user_id);
	CREATE INDEX IF NOT EXISTS idx_records_start ON consumption_records(start_date);

	CREATE TABLE IF NOT EXISTS seasonal_profiles (
		user_id TEXT PRIMARY KEY,
		profile TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	_, err := s.conn.Exec(schema)
	return err
}

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func formatTime(t time.Time) string {
	return t.Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing time %q: %w", s, err)
	}
	return t, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

func encodeIDs(ids []string) string {
	if len(ids) == 0 {
		return "[]"
	}
	data, _ := json.Marshal(ids)
	return string(data)
}

func decodeIDs(s string) ([]string, error) {
	var ids []string
	if err := json.Unmarshal([]byte(s), &ids); err != nil {
		return nil, fmt.Errorf("decoding id list: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return ids, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
