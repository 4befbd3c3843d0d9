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
	"encoding/json"
	"errors"

	"github.com/matthewgall/meterlens/internal/logging"
	"github.com/matthewgall/meterlens/internal/models"
)

// SaveProfile stores the latest seasonal profile for its user
func (s *Store) SaveProfile(p models.SeasonalProfile) error {
	s.logger.LogStorageOperation("save_profile", logMask(p.UserID))

	data, err := json.Marshal(p)
	if err != nil {
		return &StorageError{Operation: "save_profile", Path: s.path, Err: err}
	}
	_, err = s.conn.Exec(`INSERT OR REPLACE INTO seasonal_profiles (user_id, profile, updated_at) VALUES (?, ?, ?)`,
		p.UserID, string(data), formatTime(p.UpdatedAt))
	if err != nil {
		return &StorageError{Operation: "save_profile", Path: s.path, Err: err}
	}
	return nil
}

// LoadProfile returns the stored profile for a user, or nil when there is none
func (s *Store) LoadProfile(userID string) (*models.SeasonalProfile, error) {
	var data string
	err := s.conn.QueryRow(`SELECT profile FROM seasonal_profiles WHERE user_id = ?`, userID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &StorageError{Operation: "load_profile", Path: s.path, Err: err}
	}

	var p models.SeasonalProfile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, &StorageError{Operation: "load_profile", Path: s.path, Err: err}
	}
	return &p, nil
}

func logMask(id string) string {
	return logging.MaskID(id)
}
