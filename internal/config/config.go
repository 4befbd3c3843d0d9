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

// Package config loads meterlens settings from YAML and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/matthewgall/meterlens/internal/extraction"
	"github.com/matthewgall/meterlens/internal/tariff"
	"github.com/matthewgall/meterlens/internal/weather"
)

// Environment variables are this prefix plus the upper-cased key
const envPrefix = "METERLENS_"

// DefaultCacheTTL is how long analysis results stay cached
const DefaultCacheTTL = 6 * time.Hour

// Config holds the application configuration
type Config struct {
	// Household
	UserID        string  `yaml:"user_id"`
	Postcode      string  `yaml:"postcode"`
	HouseholdSize int     `yaml:"household_size"`
	UnitRate      float64 `yaml:"unit_rate"` // p/kWh, used when no tariffs are listed

	Tariffs []tariff.Agreement `yaml:"tariffs"`

	// Storage
	DatabasePath string        `yaml:"database_path"`
	CachePath    string        `yaml:"cache_path"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`

	Vision  VisionConfig  `yaml:"vision"`
	Weather WeatherConfig `yaml:"weather"`

	// Debugging
	Debug bool `yaml:"debug"`
}

// VisionConfig configures the photo extraction provider
type VisionConfig struct {
	Endpoint   string        `yaml:"endpoint"`
	APIKey     string        `yaml:"api_key"`
	Model      string        `yaml:"model"`
	Timeout    time.Duration `yaml:"timeout"`
	BatchSize  int           `yaml:"batch_size"`
	BatchDelay time.Duration `yaml:"batch_delay"`
}

// WeatherConfig configures anomaly weather enrichment
type WeatherConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

// ValidationError lists every problem found in a configuration
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Problems, "\n  - "))
}

// Default returns the configuration used when no file is given
func Default() *Config {
	dir := DefaultDir()
	return &Config{
		UserID:       "home",
		DatabasePath: filepath.Join(dir, "meterlens.db"),
		CachePath:    filepath.Join(dir, "cache.json"),
		CacheTTL:     DefaultCacheTTL,
		Vision: VisionConfig{
			Endpoint:   extraction.DefaultEndpoint,
			Model:      extraction.DefaultModel,
			Timeout:    extraction.DefaultTimeout,
			BatchSize:  extraction.DefaultBatchSize,
			BatchDelay: extraction.DefaultBatchDelay,
		},
		Weather: WeatherConfig{
			Enabled:   true,
			Latitude:  weather.DefaultLatitude,
			Longitude: weather.DefaultLongitude,
		},
	}
}

// LoadConfig loads configuration from a YAML file. An empty path yields the
// defaults. Environment variables override both.
func LoadConfig(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := config.applyEnvironmentVariables(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultDir is where the database and cache live by default
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".meterlens"
	}
	return filepath.Join(home, ".config", "meterlens")
}

func (c *Config) applyEnvironmentVariables() error {
	strs := map[string]*string{
		"USER_ID":         &c.UserID,
		"POSTCODE":        &c.Postcode,
		"DATABASE_PATH":   &c.DatabasePath,
		"CACHE_PATH":      &c.CachePath,
		"VISION_ENDPOINT": &c.Vision.Endpoint,
		"VISION_API_KEY":  &c.Vision.APIKey,
		"VISION_MODEL":    &c.Vision.Model,
	}
	for key, target := range strs {
		if val := os.Getenv(envPrefix + key); val != "" {
			*target = val
		}
	}
	if c.Vision.APIKey == "" {
		c.Vision.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if val := os.Getenv(envPrefix + "HOUSEHOLD_SIZE"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %sHOUSEHOLD_SIZE: %w", envPrefix, err)
		}
		c.HouseholdSize = n
	}
	if val := os.Getenv(envPrefix + "UNIT_RATE"); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid %sUNIT_RATE: %w", envPrefix, err)
		}
		c.UnitRate = f
	}
	if val := os.Getenv(envPrefix + "CACHE_TTL"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid %sCACHE_TTL: %w", envPrefix, err)
		}
		c.CacheTTL = d
	}
	if val := os.Getenv(envPrefix + "WEATHER"); val != "" {
		c.Weather.Enabled = val == "true" || val == "1"
	}
	if val := os.Getenv(envPrefix + "DEBUG"); val == "true" || val == "1" {
		c.Debug = true
	}
	return nil
}

// Agreements returns the configured tariffs, or a single open-ended
// agreement at UnitRate when only a flat rate is set
func (c *Config) Agreements() []tariff.Agreement {
	if len(c.Tariffs) > 0 {
		return c.Tariffs
	}
	if c.UnitRate > 0 {
		return []tariff.Agreement{{Name: "configured rate", UnitRate: c.UnitRate}}
	}
	return nil
}

// Validate checks the configuration, reporting every problem at once
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.UserID) == "" {
		problems = append(problems, "user_id is required")
	}
	if c.HouseholdSize < 0 || c.HouseholdSize > 20 {
		problems = append(problems, "household_size must be between 0 and 20")
	}
	if c.UnitRate < 0 || c.UnitRate > 200 {
		problems = append(problems, "unit_rate must be between 0 and 200 p/kWh")
	}

	for i, t := range c.Tariffs {
		if t.UnitRate <= 0 && (t.DayRate <= 0 || t.NightRate <= 0) {
			problems = append(problems, fmt.Sprintf("tariffs[%d] needs unit_rate or both day_rate and night_rate", i))
		}
		if t.ValidTo != nil && t.ValidTo.Before(t.ValidFrom) {
			problems = append(problems, fmt.Sprintf("tariffs[%d] valid_to is before valid_from", i))
		}
	}

	if c.DatabasePath == "" {
		problems = append(problems, "database_path is required")
	}
	if c.CacheTTL < 0 {
		problems = append(problems, "cache_ttl must not be negative")
	}

	if c.Vision.BatchSize < 0 || c.Vision.BatchSize > 10 {
		problems = append(problems, "vision.batch_size must be between 0 and 10")
	}
	if c.Vision.Timeout < 0 {
		problems = append(problems, "vision.timeout must not be negative")
	}

	if c.Weather.Latitude < -90 || c.Weather.Latitude > 90 {
		problems = append(problems, "weather.latitude must be between -90 and 90")
	}
	if c.Weather.Longitude < -180 || c.Weather.Longitude > 180 {
		problems = append(problems, "weather.longitude must be between -180 and 180")
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
