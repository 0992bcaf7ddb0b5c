package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"mediawatch/orchestrator"
	"mediawatch/types"
)

// PipelineClient is a thin HTTP client for the pipeline API
type PipelineClient struct {
	baseURL string
	client  *http.Client
}

// NewPipelineClient creates a new pipeline API client
func NewPipelineClient(baseURL string) *PipelineClient {
	return &PipelineClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// GetStatus fetches the current run status from the pipeline API
func (c *PipelineClient) GetStatus() (*orchestrator.StatusResponse, error) {
	resp, err := c.client.Get(c.baseURL + "/api/pipeline/status")
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}

	var status orchestrator.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &status, nil
}

// ListBatches fetches recent batch summaries, newest first
func (c *PipelineClient) ListBatches(limit int) ([]types.BatchSummary, error) {
	resp, err := c.client.Get(fmt.Sprintf("%s/api/batches?limit=%d", c.baseURL, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Batches []types.BatchSummary `json:"batches"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return payload.Batches, nil
}

// TriggerRun starts a pipeline run and returns its run ID
func (c *PipelineClient) TriggerRun() (string, error) {
	resp, err := c.client.Post(c.baseURL+"/api/pipeline/run", "application/json", bytes.NewReader([]byte("{}")))
	if err != nil {
		return "", fmt.Errorf("failed to start run: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		RunID string `json:"run_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return payload.RunID, nil
}
