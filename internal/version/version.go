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

// Package version reports the build version and checks for newer releases.
package version

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/matthewgall/meterlens/internal/logging"
)

// Set via -ldflags at release time
var (
	Version = "dev"
	Commit  = "unknown"
)

// ReleasesURL is the GitHub endpoint queried by CheckForUpdates
var ReleasesURL = "https://api.github.com/repos/matthewgall/meterlens/releases/latest"

// Get returns the application version
func Get() string {
	if Version != "dev" {
		return Version
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			return info.Main.Version
		}
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" && setting.Value != "" {
				return short(setting.Value)
			}
		}
	}

	if Commit != "unknown" {
		return short(Commit)
	}
	return "dev"
}

// UserAgent returns the user agent string sent with outbound requests
func UserAgent() string {
	return fmt.Sprintf("matthewgall/meterlens %s", Get())
}

func short(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}

// Release is the subset of a GitHub release we read
type Release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
	Name    string `json:"name"`
}

// CheckForUpdates returns the latest release when it is newer than current.
// Development builds never check.
func CheckForUpdates(ctx context.Context, current string, logger *logging.Logger) (*Release, error) {
	logger = logging.OrDiscard(logger)
	if current == "dev" || !strings.HasPrefix(current, "v") {
		logger.Debug("Skipping update check for development build")
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ReleasesURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create release request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to check for updates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to check for updates: status %d", resp.StatusCode)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to parse release: %w", err)
	}
	if release.TagName == "" || !IsNewer(release.TagName, current) {
		return nil, nil
	}
	return &release, nil
}

// IsNewer compares dotted versions numerically, ignoring a leading "v"
func IsNewer(latest, current string) bool {
	lp := strings.Split(strings.TrimPrefix(latest, "v"), ".")
	cp := strings.Split(strings.TrimPrefix(current, "v"), ".")

	for i := 0; i < len(lp) && i < len(cp); i++ {
		l, lerr := strconv.Atoi(lp[i])
		c, cerr := strconv.Atoi(cp[i])
		if lerr != nil || cerr != nil {
			if lp[i] != cp[i] {
				return lp[i] > cp[i]
			}
			continue
		}
		if l != c {
			return l > c
		}
	}
	return len(lp) > len(cp)
}
