package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"slidestudio/types"
)

// RenderClient is a thin HTTP client for the render API
type RenderClient struct {
	baseURL string
	client  *http.Client
}

// NewRenderClient creates a new render API client
func NewRenderClient(baseURL string) *RenderClient {
	return &RenderClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Submit posts a render request and returns the run id
func (c *RenderClient) Submit(req types.RenderRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Post(c.baseURL+"/api/renders", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to submit render: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return "", readError(resp)
	}

	var out struct {
		RunID string `json:"run_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return out.RunID, nil
}

// GetStatus fetches the status of a run
func (c *RenderClient) GetStatus(runID string) (*types.RunStatus, error) {
	resp, err := c.client.Get(c.baseURL + "/api/renders/" + runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readError(resp)
	}

	var status types.RunStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &status, nil
}

// Retry re-runs a finished run
func (c *RenderClient) Retry(runID string) error {
	resp, err := c.client.Post(c.baseURL+"/api/renders/"+runID+"/retry", "application/json", bytes.NewReader([]byte("{}")))
	if err != nil {
		return fmt.Errorf("failed to retry run: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return readError(resp)
	}
	return nil
}

func readError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
}
