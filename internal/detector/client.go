// Package detector talks to the optional external AI-detection model. Every call is
// time-bounded; callers fall back to the heuristic score when the model is unavailable.
package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrDetectorUnavailable is returned when the model did not produce a usable score.
var ErrDetectorUnavailable = errors.New("ai detector unavailable")

// Client is a client for the AI-detection model API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// DetectRequest is a single text scoring request.
type DetectRequest struct {
	Text string `json:"text"`
}

// DetectResponse is the model output for one text.
type DetectResponse struct {
	AIProbability    float64 `json:"ai_probability"`
	Label            string  `json:"label"`
	Confidence       float64 `json:"confidence"`
	ProcessingTimeMs float64 `json:"processing_time_ms,omitempty"`
}

// HealthResponse represents the model health check response.
type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Device      string `json:"device"`
}

// NewClient creates a new detector client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Detect returns the probability that text was machine generated.
func (c *Client) Detect(ctx context.Context, text string) (float64, error) {
	jsonData, err := json.Marshal(DetectRequest{Text: text})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/detect", bytes.NewBuffer(jsonData))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("%w: status %d: %s", ErrDetectorUnavailable, resp.StatusCode, string(body))
	}

	var result DetectResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	if result.AIProbability < 0 || result.AIProbability > 1 {
		return 0, fmt.Errorf("%w: probability %v out of range", ErrDetectorUnavailable, result.AIProbability)
	}

	return result.AIProbability, nil
}

// HealthCheck checks if the detection service is healthy.
func (c *Client) HealthCheck(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("detector returned status %d: %s", resp.StatusCode, string(body))
	}

	var result HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}
