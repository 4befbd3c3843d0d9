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

package report

import (
	"encoding/base64"
	"errors"
	"fmt"

	charts "github.com/vicanso/go-charts/v2"

	"github.com/matthewgall/meterlens/internal/models"
)

// ErrNoData is returned when a chart has nothing to plot
var ErrNoData = errors.New("no data to chart")

// ChartGenerator renders PNG charts as base64 strings
type ChartGenerator struct {
	theme  string
	width  int
	height int
}

// NewChartGenerator creates a chart generator with the light theme
func NewChartGenerator() *ChartGenerator {
	return &ChartGenerator{
		theme:  "light",
		width:  1000,
		height: 360,
	}
}

// MonthlyProfileChart plots the estimator's daily average for each month,
// observed months and extrapolated months as separate series
func (cg *ChartGenerator) MonthlyProfileChart(profile []models.MonthValue) (string, error) {
	if len(profile) == 0 {
		return "", ErrNoData
	}

	labels := make([]string, len(profile))
	observed := make([]float64, len(profile))
	filled := make([]float64, len(profile))
	for i, m := range profile {
		labels[i] = m.Month.String()[:3]
		if m.Filled {
			filled[i] = m.DailyKWh
		} else {
			observed[i] = m.DailyKWh
		}
	}

	p, err := charts.BarRender(
		[][]float64{observed, filled},
		charts.TitleTextOptionFunc("Daily Usage by Month (kWh/day)"),
		charts.XAxisDataOptionFunc(labels),
		charts.LegendLabelsOptionFunc([]string{"Observed", "Estimated"}, charts.PositionRight),
		charts.ThemeOptionFunc(cg.theme),
		charts.WidthOptionFunc(cg.width),
		charts.HeightOptionFunc(cg.height),
		charts.PaddingOptionFunc(charts.Box{
			Top:    20,
			Right:  20,
			Bottom: 20,
			Left:   20,
		}),
	)
	if err != nil {
		return "", fmt.Errorf("failed to render monthly profile chart: %w", err)
	}
	return encode(p)
}

// UsageChart plots a usage series as a line
func (cg *ChartGenerator) UsageChart(title string, points []models.SeriesPoint, layout string) (string, error) {
	if len(points) < 2 {
		return "", ErrNoData
	}

	labels := make([]string, len(points))
	values := make([]float64, len(points))
	for i, pt := range points {
		labels[i] = pt.Start.Format(layout)
		values[i] = pt.KWh
	}

	p, err := charts.LineRender(
		[][]float64{values},
		charts.TitleTextOptionFunc(title),
		charts.XAxisDataOptionFunc(labels),
		charts.LegendLabelsOptionFunc([]string{"Electricity (kWh)"}, charts.PositionRight),
		charts.ThemeOptionFunc(cg.theme),
		charts.WidthOptionFunc(cg.width),
		charts.HeightOptionFunc(cg.height),
		charts.PaddingOptionFunc(charts.Box{
			Top:    20,
			Right:  20,
			Bottom: 20,
			Left:   20,
		}),
	)
	if err != nil {
		return "", fmt.Errorf("failed to render usage chart: %w", err)
	}
	return encode(p)
}

func encode(p *charts.Painter) (string, error) {
	buf, err := p.Bytes()
	if err != nil {
		return "", fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}
