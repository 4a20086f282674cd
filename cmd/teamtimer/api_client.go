package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fentz26/teamtimer/internal/controlplane"
)

// DefaultClientTimeout is the default timeout for API requests.
const DefaultClientTimeout = 20 * time.Second

// apiClient is the shared HTTP client with timeout.
var apiClient = &http.Client{
	Timeout: DefaultClientTimeout,
}

// apiGet performs a GET request to the daemon and decodes the JSON response into out.
func apiGet(path string, out interface{}) error {
	resp, err := apiClient.Get(strings.TrimRight(apiAddr, "/") + path)
	if err != nil {
		return fmt.Errorf("daemon request failed (is `teamtimer daemon` running?): %w", err)
	}
	defer resp.Body.Close()
	return readResponse(resp, out)
}

// apiPost performs a POST request to the daemon and decodes the JSON response into out.
func apiPost(path string, data, out interface{}) error {
	var body bytes.Buffer
	if data != nil {
		if err := json.NewEncoder(&body).Encode(data); err != nil {
			return err
		}
	}

	resp, err := apiClient.Post(strings.TrimRight(apiAddr, "/")+path, "application/json", &body)
	if err != nil {
		return fmt.Errorf("daemon request failed (is `teamtimer daemon` running?): %w", err)
	}
	defer resp.Body.Close()
	return readResponse(resp, out)
}

func readResponse(resp *http.Response, out interface{}) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("API error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

// CheckHealth checks if the daemon is healthy and returns the health response.
// The parsed payload is returned alongside the error on non-200 responses.
func CheckHealth(client *http.Client) (*controlplane.HealthResponse, error) {
	resp, err := client.Get(strings.TrimRight(apiAddr, "/") + "/health")
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	var health controlplane.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("failed to parse health response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &health, fmt.Errorf("health check failed (status %d): db %s", resp.StatusCode, health.DB)
	}
	return &health, nil
}
