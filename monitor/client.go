package monitor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"text2shorts/types"
)

// Client is a thin HTTP client for the control API
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a new control API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// GetStatus fetches the current batch status
func (c *Client) GetStatus() (*types.StatusResponse, error) {
	resp, err := c.client.Get(c.baseURL + "/api/status")
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}

	var status types.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &status, nil
}

// StartBatch asks the server to run a topic list
func (c *Client) StartBatch(req types.BatchRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return c.post("/api/batch", body, http.StatusAccepted)
}

// StopBatch asks the running batch to halt before its next topic
func (c *Client) StopBatch() error {
	return c.post("/api/batch/stop", []byte("{}"), http.StatusAccepted)
}

func (c *Client) post(path string, body []byte, want int) error {
	resp, err := c.client.Post(c.baseURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(data))
	}
	return nil
}
