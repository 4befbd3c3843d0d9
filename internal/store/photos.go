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
	"errors"
	"fmt"

	"github.com/matthewgall/meterlens/internal/models"
)

const photoColumns = `id, user_id, uploaded_at, path, document_type, status, confidence, user_confirmed, error`

// SavePhoto inserts or replaces a photo
func (s *Store) SavePhoto(p models.Photo) error {
	s.logger.LogStorageOperation("save_photo", p.ID)

	_, err := s.conn.Exec(`
	INSERT OR REPLACE INTO photos (`+photoColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, formatTime(p.UploadedAt), p.Path, string(p.DocumentType),
		string(p.Status), p.Confidence, boolInt(p.UserConfirmed), p.Error)
	if err != nil {
		return &StorageError{Operation: "save_photo", Path: s.path, Err: err}
	}
	return nil
}

// UpdatePhotoStatus records the outcome of extracting a photo
func (s *Store) UpdatePhotoStatus(id string, status models.PhotoStatus, doc models.DocumentType, confidence float64, message string) error {
	res, err := s.conn.Exec(`
	UPDATE photos SET status = ?, document_type = ?, confidence = ?, error = ?
	WHERE id = ?`, string(status), string(doc), confidence, message, id)
	if err != nil {
		return &StorageError{Operation: "update_photo", Path: s.path, Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &StorageError{Operation: "update_photo", Path: s.path, Err: fmt.Errorf("photo %s not found", id)}
	}
	return nil
}

// GetPhoto returns the photo with id, or nil when it does not exist
func (s *Store) GetPhoto(id string) (*models.Photo, error) {
	row := s.conn.QueryRow(`SELECT `+photoColumns+` FROM photos WHERE id = ?`, id)
	p, err := scanPhoto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &StorageError{Operation: "get_photo", Path: s.path, Err: err}
	}
	return &p, nil
}

// ListPhotos returns a user's photos, oldest upload first
func (s *Store) ListPhotos(userID string) ([]models.Photo, error) {
	rows, err := s.conn.Query(`SELECT `+photoColumns+` FROM photos WHERE user_id = ? ORDER BY uploaded_at`, userID)
	if err != nil {
		return nil, &StorageError{Operation: "list_photos", Path: s.path, Err: err}
	}
	defer rows.Close()

	var out []models.Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, &StorageError{Operation: "list_photos", Path: s.path, Err: err}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPhoto(row scanner) (models.Photo, error) {
	var p models.Photo
	var uploaded, doc, status string
	var confirmed int

	if err := row.Scan(&p.ID, &p.UserID, &uploaded, &p.Path, &doc, &status, &p.Confidence, &confirmed, &p.Error); err != nil {
		return p, err
	}

	var err error
	if p.UploadedAt, err = parseTime(uploaded); err != nil {
		return p, err
	}
	p.DocumentType = models.ParseDocumentType(doc)
	p.Status = models.PhotoStatus(status)
	p.UserConfirmed = confirmed != 0
	return p, nil
}
