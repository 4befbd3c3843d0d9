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

// Package logging wraps log/slog with meterlens-specific helpers.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with domain-specific methods
type Logger struct {
	*slog.Logger
}

// NewLogger creates a text-formatted logger writing to stderr
func NewLogger(debug bool) *Logger {
	return newLogger(os.Stderr, debug, false)
}

// NewJSONLogger creates a JSON-formatted logger writing to stderr
func NewJSONLogger(debug bool) *Logger {
	return newLogger(os.Stderr, debug, true)
}

// NewWriterLogger creates a text logger writing to w. Mostly useful in tests.
func NewWriterLogger(w io.Writer, debug bool) *Logger {
	return newLogger(w, debug, false)
}

// Discard returns a logger that drops everything
func Discard() *Logger {
	return &Logger{slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func newLogger(w io.Writer, debug, jsonFormat bool) *Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if jsonFormat {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return &Logger{slog.New(handler)}
}

// OrDiscard returns l, or a discarding logger when l is nil
func OrDiscard(l *Logger) *Logger {
	if l == nil {
		return Discard()
	}
	return l
}

// WithComponent adds a component field to the logger
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{l.With("component", component)}
}

// WithUser adds a masked user ID field to the logger
func (l *Logger) WithUser(userID string) *Logger {
	return &Logger{l.With("user_id", MaskID(userID))}
}

// MaskID keeps the first five characters of an identifier
func MaskID(id string) string {
	if len(id) > 5 {
		return id[:5] + "***"
	}
	return id
}

// LogStage logs pipeline stage completion
func (l *Logger) LogStage(stage string) {
	l.Debug("Pipeline stage completed",
		"stage", stage,
	)
}

// LogAPIRequest logs an outbound API request
func (l *Logger) LogAPIRequest(method, endpoint string) {
	l.Debug("API request",
		"method", method,
		"endpoint", endpoint,
	)
}

// LogAPIError logs a failed API call
func (l *Logger) LogAPIError(endpoint string, statusCode int, err error) {
	l.Error("API request failed",
		"endpoint", endpoint,
		"status_code", statusCode,
		"error", err,
	)
}

// LogExtraction logs the outcome of a single photo extraction
func (l *Logger) LogExtraction(photoID string, values int, err error) {
	if err != nil {
		l.Warn("Extraction failed",
			"photo_id", photoID,
			"error", err,
		)
		return
	}
	l.Info("Extraction completed",
		"photo_id", photoID,
		"values", values,
	)
}

// LogAnomalyDetected logs a detected anomaly
func (l *Logger) LogAnomalyDetected(period, severity string, deviation float64) {
	l.Warn("Anomaly detected",
		"period", period,
		"severity", severity,
		"deviation", fmt.Sprintf("%.1f%%", deviation),
	)
}

// LogConfirmationNeeded logs a reconciliation that must be confirmed by the user
func (l *Logger) LogConfirmationNeeded(period string, reasoning string) {
	l.Info("Reconciliation needs confirmation",
		"period", period,
		"reasoning", reasoning,
	)
}

// LogStorageOperation logs storage operations
func (l *Logger) LogStorageOperation(operation, path string) {
	l.Debug("Storage operation",
		"operation", operation,
		"path", path,
	)
}

// UserMessage outputs a message directly to stdout (bypassing structured logging)
func (l *Logger) UserMessage(format string, args ...interface{}) {
	fmt.Printf(format+"\n", args...)
}
