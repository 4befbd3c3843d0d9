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

// Package weather fetches historical daily weather from Open-Meteo and
// attaches it to anomalies as context.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/matthewgall/meterlens/internal/logging"
	"github.com/matthewgall/meterlens/internal/models"
	"github.com/matthewgall/meterlens/internal/version"
)

// DefaultArchiveURL is the Open-Meteo historical endpoint
const DefaultArchiveURL = "https://archive-api.open-meteo.com/v1/archive"

// Central UK, used when no location is configured
const (
	DefaultLatitude  = 52.4862
	DefaultLongitude = -1.8904
)

// Temperatures outside this band are extreme enough to explain a spike
const (
	coldMean = 5.0
	hotMean  = 28.0
)

// Day is one day of observed weather
type Day struct {
	Date          time.Time
	TempMax       float64
	TempMin       float64
	TempMean      float64
	Precipitation float64
	WeatherCode   int
}

type archiveResponse struct {
	Daily struct {
		Time          []string   `json:"time"`
		TempMax       []*float64 `json:"temperature_2m_max"`
		TempMin       []*float64 `json:"temperature_2m_min"`
		TempMean      []*float64 `json:"temperature_2m_mean"`
		Precipitation []*float64 `json:"precipitation_sum"`
		WeatherCode   []*int     `json:"weather_code"`
	} `json:"daily"`
}

// Client fetches historical weather
type Client struct {
	baseURL    string
	latitude   float64
	longitude  float64
	httpClient *http.Client
	logger     *logging.Logger
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at a different archive endpoint
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithLocation sets the coordinates to query
func WithLocation(lat, lon float64) Option {
	return func(c *Client) {
		c.latitude = lat
		c.longitude = lon
	}
}

// NewClient creates a weather client for central UK unless a location is given
func NewClient(logger *logging.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultArchiveURL,
		latitude:   DefaultLatitude,
		longitude:  DefaultLongitude,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logging.OrDiscard(logger).WithComponent("weather"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchRange returns observed weather keyed by YYYY-MM-DD for every day from
// start to end inclusive. Days the archive has no data for are omitted.
func (c *Client) FetchRange(ctx context.Context, start, end time.Time) (map[string]Day, error) {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", c.latitude))
	q.Set("longitude", fmt.Sprintf("%.4f", c.longitude))
	q.Set("start_date", start.Format("2006-01-02"))
	q.Set("end_date", end.Format("2006-01-02"))
	q.Set("daily", "temperature_2m_max,temperature_2m_min,temperature_2m_mean,precipitation_sum,weather_code")
	q.Set("timezone", "Europe/London")
	endpoint := c.baseURL + "?" + q.Encode()

	c.logger.Info("Fetching weather data", "start", start.Format("2006-01-02"), "end", end.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create weather request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch weather data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather API returned status %d", resp.StatusCode)
	}

	var body archiveResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode weather response: %w", err)
	}

	days := make(map[string]Day, len(body.Daily.Time))
	for i, key := range body.Daily.Time {
		mean := at(body.Daily.TempMean, i)
		if mean == nil {
			continue
		}
		date, err := time.Parse("2006-01-02", key)
		if err != nil {
			continue
		}
		d := Day{Date: date, TempMean: *mean}
		if v := at(body.Daily.TempMax, i); v != nil {
			d.TempMax = *v
		}
		if v := at(body.Daily.TempMin, i); v != nil {
			d.TempMin = *v
		}
		if v := at(body.Daily.Precipitation, i); v != nil {
			d.Precipitation = *v
		}
		if v := at(body.Daily.WeatherCode, i); v != nil {
			d.WeatherCode = *v
		}
		days[key] = d
	}

	c.logger.Info("Fetched weather data", "days", len(days))
	return days, nil
}

func at[T any](values []*T, i int) *T {
	if i < len(values) {
		return values[i]
	}
	return nil
}

// Enrich attaches a weather summary to each anomaly and, for spikes during
// extreme temperatures, a weather cause. A single request covers all of them.
func (c *Client) Enrich(ctx context.Context, anomalies []models.Anomaly) ([]models.Anomaly, error) {
	if len(anomalies) == 0 {
		return anomalies, nil
	}

	start, end := anomalies[0].Record.StartDate, anomalies[0].Record.EndDate
	for _, a := range anomalies[1:] {
		if a.Record.StartDate.Before(start) {
			start = a.Record.StartDate
		}
		if a.Record.EndDate.After(end) {
			end = a.Record.EndDate
		}
	}

	days, err := c.FetchRange(ctx, start, end)
	if err != nil {
		return anomalies, err
	}

	out := make([]models.Anomaly, len(anomalies))
	for i, a := range anomalies {
		if s := Summarize(days, a.Record.StartDate, a.Record.EndDate); s != nil {
			a.Weather = s
			if cause := Cause(*s, a.Deviation); cause != "" {
				a.PossibleCauses = append([]string{cause}, a.PossibleCauses...)
			}
		}
		out[i] = a
	}
	return out, nil
}

// Summarize aggregates the days between start and end inclusive, or returns
// nil when none of them have data
func Summarize(days map[string]Day, start, end time.Time) *models.WeatherSummary {
	s := &models.WeatherSummary{MinTemp: math.Inf(1), MaxTemp: math.Inf(-1)}
	codes := make(map[string]int)

	var mean float64
	for d := models.StartOfDay(start); !d.After(end); d = d.AddDate(0, 0, 1) {
		day, ok := days[d.Format("2006-01-02")]
		if !ok {
			continue
		}
		s.Days++
		mean += day.TempMean
		s.MinTemp = math.Min(s.MinTemp, day.TempMin)
		s.MaxTemp = math.Max(s.MaxTemp, day.TempMax)
		s.Precipitation += day.Precipitation
		codes[Description(day.WeatherCode)]++
	}
	if s.Days == 0 {
		return nil
	}

	s.MeanTemp = math.Round(mean/float64(s.Days)*10) / 10
	s.Precipitation = math.Round(s.Precipitation*10) / 10
	best := 0
	for desc, n := range codes {
		if n > best || (n == best && desc < s.Conditions) {
			best = n
			s.Conditions = desc
		}
	}
	return s
}

// Cause explains a usage spike by the weather, or returns ""
func Cause(s models.WeatherSummary, deviation float64) string {
	if deviation <= 0 {
		return ""
	}
	switch {
	case s.MeanTemp < coldMean:
		return fmt.Sprintf("Cold weather (mean %.1f°C) likely increased heating use", s.MeanTemp)
	case s.MeanTemp > hotMean:
		return fmt.Sprintf("Hot weather (mean %.1f°C) likely increased cooling use", s.MeanTemp)
	}
	return ""
}

// Description converts a WMO weather code to text
func Description(code int) string {
	switch code {
	case 0:
		return "Clear sky"
	case 1, 2, 3:
		return "Partly cloudy"
	case 45, 48:
		return "Foggy"
	case 51, 53, 55:
		return "Drizzle"
	case 61, 63, 65:
		return "Rain"
	case 71, 73, 75:
		return "Snow"
	case 77:
		return "Snow grains"
	case 80, 81, 82:
		return "Rain showers"
	case 85, 86:
		return "Snow showers"
	case 95:
		return "Thunderstorm"
	case 96, 99:
		return "Thunderstorm with hail"
	default:
		return "Unknown"
	}
}
