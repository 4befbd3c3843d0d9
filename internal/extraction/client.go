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

// Package extraction talks to the vision provider that reads numbers off
// meter photos, and validates what comes back.
package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/matthewgall/meterlens/internal/logging"
	"github.com/matthewgall/meterlens/internal/version"
)

// Provider defaults
const (
	DefaultEndpoint    = "https://api.openai.com/v1/chat/completions"
	DefaultModel       = "gpt-4o"
	DefaultTimeout     = 60 * time.Second
	DefaultMaxTokens   = 2000
	DefaultTemperature = 0.1
)

// ErrNoAPIKey is returned when the client is built without credentials
var ErrNoAPIKey = errors.New("vision API key not configured")

// Extractor reads energy values from one photo
type Extractor interface {
	Extract(ctx context.Context, req Request) (*Result, error)
}

// Request describes one photo to extract
type Request struct {
	PhotoID     string
	Path        string
	Image       []byte // Read from Path when nil
	ContentType string
	UploadedAt  time.Time
	Postcode    string
	Region      string
}

// Config configures a VisionClient
type Config struct {
	Endpoint    string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

// VisionClient calls an OpenAI-compatible chat completions endpoint
type VisionClient struct {
	cfg        Config
	httpClient *http.Client
	logger     *logging.Logger
}

// NewVisionClient creates a client, filling unset options with defaults
func NewVisionClient(cfg Config, logger *logging.Logger) (*VisionClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}
	return &VisionClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logging.OrDiscard(logger).WithComponent("extraction"),
	}, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Extract sends the photo to the provider and parses the answer
func (c *VisionClient) Extract(ctx context.Context, req Request) (*Result, error) {
	image, contentType, err := loadImage(req)
	if err != nil {
		return nil, err
	}

	payload := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: BuildPrompt(req)},
				{Type: "image_url", ImageURL: &imageURL{
					URL:    fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(image)),
					Detail: "high",
				}},
			},
		}},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal vision request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create vision request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("User-Agent", version.UserAgent())

	c.logger.LogAPIRequest(http.MethodPost, c.cfg.Endpoint)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &APIError{
			Endpoint: c.cfg.Endpoint,
			Message:  "vision request failed",
			Err:      err,
		}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read vision response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.LogAPIError(c.cfg.Endpoint, resp.StatusCode, fmt.Errorf("%s", string(bodyBytes)))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   c.cfg.Endpoint,
			Message:    string(bodyBytes),
		}
	}

	var chat chatResponse
	if err := json.Unmarshal(bodyBytes, &chat); err != nil {
		return nil, &ParseError{Reason: "decode completion", Err: err}
	}
	if len(chat.Choices) == 0 || strings.TrimSpace(chat.Choices[0].Message.Content) == "" {
		return nil, &ParseError{Reason: "empty completion"}
	}

	return ParseResponse(chat.Choices[0].Message.Content, req.UploadedAt)
}

func loadImage(req Request) ([]byte, string, error) {
	image := req.Image
	if image == nil {
		data, err := os.ReadFile(req.Path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read photo %s: %w", req.Path, err)
		}
		image = data
	}
	if len(image) == 0 {
		return nil, "", fmt.Errorf("photo %s is empty", req.PhotoID)
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(image)
	}
	return image, contentType, nil
}

const promptTemplate = `You are an expert energy data extraction assistant. Analyse this image and extract ALL energy-related information.

Your task:
1. Identify what type of energy document this is
2. Extract EVERY numeric value related to energy consumption, cost, or meter readings
3. For charts, extract ALL visible data points
4. Identify dates, time periods and ranges
5. Detect the energy supplier if visible

Image context:
- Upload timestamp: %s
- User location: %s
%s
Response format (JSON only):
{
  "documentType": "smart-meter-reading | weekly-chart | monthly-chart | yearly-chart | supplier-app-screenshot | in-home-display | paper-bill | usage-summary | consumption-table | bar-chart | line-chart | pie-chart | unknown",
  "confidence": 0-100,
  "supplier": "supplier name if visible",
  "dateRange": {"start": "ISO date or null", "end": "ISO date or null", "description": "e.g. 'Last 7 days'"},
  "extractedValues": [
    {
      "value": number,
      "unit": "kWh | m3 | GBP | pence | percentage",
      "type": "meter-reading | weekly-total | monthly-total | yearly-total | daily-average | chart-data-point | cost-value | tariff-rate",
      "meterType": "import | export | day | night | total | null",
      "confidence": 0-100,
      "label": "what this value represents",
      "position": "top-left | top-right | center | bottom-left | bottom-right",
      "date": "ISO date if a specific date is visible"
    }
  ],
  "chartData": {
    "type": "bar | line | area | pie",
    "dataPoints": [{"label": "Jan", "value": 450.5, "date": "2024-01-01"}],
    "xAxisLabel": "Month",
    "yAxisLabel": "kWh"
  },
  "fullText": "complete text visible in the image",
  "warnings": ["any uncertainties"]
}

Return ONLY the JSON response, no additional text.`

// BuildPrompt renders the extraction instructions for one photo
func BuildPrompt(req Request) string {
	region := req.Region
	if region == "" {
		region = "UK"
	}
	postcode := ""
	if req.Postcode != "" {
		postcode = "- Postcode: " + req.Postcode + "\n"
	}
	return fmt.Sprintf(promptTemplate, req.UploadedAt.UTC().Format(time.RFC3339), region, postcode)
}
