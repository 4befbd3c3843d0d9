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

package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestMaskID(t *testing.T) {
	cases := map[string]string{
		"":             "",
		"abc":          "abc",
		"abcde":        "abcde",
		"household-42": "house***",
	}
	for in, want := range cases {
		if got := MaskID(in); got != want {
			t.Errorf("MaskID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWithUserMasksIdentifier(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, false).WithUser("household-42")
	logger.Info("hello")

	out := buf.String()
	if strings.Contains(out, "household-42") {
		t.Fatalf("expected user id to be masked, got %q", out)
	}
	if !strings.Contains(out, "user_id=house***") {
		t.Fatalf("expected masked user id in output, got %q", out)
	}
}

func TestDebugLevelRespected(t *testing.T) {
	var buf bytes.Buffer
	NewWriterLogger(&buf, false).LogStage("profile")
	if buf.Len() != 0 {
		t.Fatalf("expected debug output to be suppressed, got %q", buf.String())
	}

	NewWriterLogger(&buf, true).LogStage("profile")
	if !strings.Contains(buf.String(), "stage=profile") {
		t.Fatalf("expected stage in debug output, got %q", buf.String())
	}
}

func TestLogExtractionFailure(t *testing.T) {
	var buf bytes.Buffer
	NewWriterLogger(&buf, false).LogExtraction("photo-1", 0, errors.New("timeout"))
	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "timeout") {
		t.Fatalf("expected warning with error, got %q", out)
	}
}

func TestOrDiscard(t *testing.T) {
	if OrDiscard(nil) == nil {
		t.Fatal("expected discard logger for nil input")
	}
	l := Discard()
	if OrDiscard(l) != l {
		t.Fatal("expected the same logger back")
	}
}
