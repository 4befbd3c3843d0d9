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

package version

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestIsNewer(t *testing.T) {
	tests := []struct {
		latest, current string
		want            bool
	}{
		{"v1.2.0", "v1.1.9", true},
		{"v1.10.0", "v1.9.0", true},
		{"v1.2.0", "v1.2.0", false},
		{"v1.2", "v1.2.1", false},
		{"v1.2.1", "v1.2", true},
		{"v0.9.0", "v1.0.0", false},
	}
	for _, tt := range tests {
		if got := IsNewer(tt.latest, tt.current); got != tt.want {
			t.Errorf("IsNewer(%q, %q) = %v, want %v", tt.latest, tt.current, got, tt.want)
		}
	}
}

func TestUserAgent(t *testing.T) {
	if !strings.HasPrefix(UserAgent(), "matthewgall/meterlens ") {
		t.Fatalf("unexpected user agent %q", UserAgent())
	}
}

func TestCheckForUpdates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tag_name":"v1.3.0","html_url":"https://example.com/r"}`))
	}))
	defer srv.Close()

	old := ReleasesURL
	ReleasesURL = srv.URL
	defer func() { ReleasesURL = old }()

	rel, err := CheckForUpdates(context.Background(), "v1.2.0", nil)
	if err != nil {
		t.Fatalf("CheckForUpdates: %v", err)
	}
	if rel == nil || rel.TagName != "v1.3.0" {
		t.Fatalf("expected v1.3.0 release, got %+v", rel)
	}

	rel, err = CheckForUpdates(context.Background(), "v1.3.0", nil)
	if err != nil || rel != nil {
		t.Fatalf("expected no update, got %+v, %v", rel, err)
	}

	rel, err = CheckForUpdates(context.Background(), "dev", nil)
	if err != nil || rel != nil {
		t.Fatalf("dev builds should skip, got %+v, %v", rel, err)
	}
}
