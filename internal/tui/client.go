package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fentz26/teamtimer/internal/dailyplan"
	"github.com/fentz26/teamtimer/internal/engine"
	"github.com/fentz26/teamtimer/internal/models"
)

// DefaultClientTimeout is the default timeout for API requests.
const DefaultClientTimeout = 10 * time.Second

// Client wraps HTTP calls to the teamtimer daemon.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client with timeout
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultClientTimeout,
		},
	}
}

// Timer fetches the timer view.
func (c *Client) Timer(refresh bool) (*engine.View, error) {
	path := "/timer"
	if refresh {
		path += "?refresh=1"
	}
	var view engine.View
	if err := c.get(path, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Start starts the timer on taskID. An empty taskID keeps the last task.
func (c *Client) Start(taskID string) (*engine.View, error) {
	var view engine.View
	if err := c.post("/timer/start", map[string]string{"task_id": taskID}, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Stop stops the timer.
func (c *Client) Stop() (*engine.View, error) {
	var view engine.View
	if err := c.post("/timer/stop", nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Toggle toggles the timer.
func (c *Client) Toggle() (*engine.View, error) {
	var view engine.View
	if err := c.post("/timer/toggle", nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// SwitchTeam changes the active team and reports whether the timer was stopped.
func (c *Client) SwitchTeam(teamID string) (bool, error) {
	var res struct {
		Stopped bool `json:"stopped"`
	}
	if err := c.post("/team/switch", map[string]string{"team_id": teamID}, &res); err != nil {
		return false, err
	}
	return res.Stopped, nil
}

// ComparePlans fetches today's plan comparison.
func (c *Client) ComparePlans() (*dailyplan.Comparison, error) {
	var cmp dailyplan.Comparison
	if err := c.get("/plans/compare", &cmp); err != nil {
		return nil, err
	}
	return &cmp, nil
}

// Outstanding fetches unfinished tasks of past plans.
func (c *Client) Outstanding() ([]models.DailyPlanTask, error) {
	var tasks []models.DailyPlanTask
	if err := c.get("/plans/outstanding", &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *Client) get(path string, out interface{}) error {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decode(resp, out)
}

func (c *Client) post(path string, body, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	resp, err := c.httpClient.Post(c.baseURL+path, "application/json", &buf)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decode(resp, out)
}

func decode(resp *http.Response, out interface{}) error {
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error: %s", strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
