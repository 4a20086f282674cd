// Package gauzy is a JSON client for the Gauzy timer, task, statistics and
// daily plan endpoints.
package gauzy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fentz26/teamtimer/internal/models"
)

// DefaultTimeout is the default timeout for API requests.
const DefaultTimeout = 15 * time.Second

// Credentials supplies the session facts sent with every request.
type Credentials interface {
	Facts() models.Session
}

// Client wraps HTTP calls to the Gauzy API.
type Client struct {
	baseURL    string
	creds      Credentials
	httpClient *http.Client
	// now is swapped in tests.
	now func() time.Time
}

// NewClient creates a client. A zero timeout uses DefaultTimeout.
func NewClient(baseURL string, creds Credentials, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}
}

// TimerStatus fetches the authoritative timer status.
func (c *Client) TimerStatus(ctx context.Context) (*models.TimerStatus, error) {
	s, err := c.session()
	if err != nil {
		return nil, err
	}
	q := orgQuery(s)
	q.Set("source", string(models.SourceTeams))

	var st models.TimerStatus
	if err := c.do(ctx, http.MethodGet, "/timesheet/timer/status", q, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// StartTimer starts the timer.
func (c *Client) StartTimer(ctx context.Context, params models.TimerParams) (*models.TimeLog, error) {
	return c.timerAction(ctx, "/timesheet/timer/start", params)
}

// StopTimer stops the timer. The returned log is nil when the backend had
// nothing running.
func (c *Client) StopTimer(ctx context.Context, params models.TimerParams) (*models.TimeLog, error) {
	return c.timerAction(ctx, "/timesheet/timer/stop", params)
}

// ToggleTimer flips the timer.
func (c *Client) ToggleTimer(ctx context.Context, params models.TimerParams) (*models.TimeLog, error) {
	return c.timerAction(ctx, "/timesheet/timer/toggle", params)
}

func (c *Client) timerAction(ctx context.Context, path string, params models.TimerParams) (*models.TimeLog, error) {
	s, err := c.session()
	if err != nil {
		return nil, err
	}
	if params.TenantID == "" {
		params.TenantID = s.TenantID
	}
	if params.OrganizationID == "" {
		params.OrganizationID = s.OrganizationID
	}
	if params.Tags == nil {
		params.Tags = []string{}
	}

	var log *models.TimeLog
	if err := c.do(ctx, http.MethodPost, path, nil, params, &log); err != nil {
		return nil, err
	}
	return log, nil
}

// GetTask fetches a task with its members.
func (c *Client) GetTask(ctx context.Context, id string) (*models.Task, error) {
	s, err := c.session()
	if err != nil {
		return nil, err
	}
	q := orgQuery(s)
	q.Set("relations[0]", "members")

	var task models.Task
	if err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id), q, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTaskMembers replaces the member list of a task.
func (c *Client) UpdateTaskMembers(ctx context.Context, taskID string, members []models.Employee) (*models.Task, error) {
	s, err := c.session()
	if err != nil {
		return nil, err
	}
	body := struct {
		TenantID       string            `json:"tenantId"`
		OrganizationID string            `json:"organizationId"`
		Members        []models.Employee `json:"members"`
	}{s.TenantID, s.OrganizationID, members}

	var task models.Task
	if err := c.do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(taskID), nil, body, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// TaskStatistics fetches per-task durations for one employee.
func (c *Client) TaskStatistics(ctx context.Context, sq models.StatisticsQuery) ([]models.TaskStatistic, error) {
	s, err := c.session()
	if err != nil {
		return nil, err
	}
	if !sq.Scope.Valid() {
		return nil, fmt.Errorf("task statistics: unknown scope %q", sq.Scope)
	}
	employeeID := sq.EmployeeID
	if employeeID == "" {
		employeeID = s.EmployeeID
	}

	q := orgQuery(s)
	q.Set("employeeIds[0]", employeeID)
	for i, id := range sq.TaskIDs {
		q.Set("taskIds["+strconv.Itoa(i)+"]", id)
	}
	if sq.Scope == models.ScopeToday {
		day := sq.Day
		if day.IsZero() {
			day = c.now()
		}
		start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
		q.Set("startDate", start.UTC().Format(time.RFC3339))
		q.Set("endDate", start.AddDate(0, 0, 1).Add(-time.Second).UTC().Format(time.RFC3339))
	} else {
		q.Set("defaultRange", "false")
	}

	var rows []struct {
		ID       string `json:"id"`
		Duration int64  `json:"duration"`
	}
	if err := c.do(ctx, http.MethodGet, "/timesheet/statistic/tasks", q, nil, &rows); err != nil {
		return nil, err
	}

	out := make([]models.TaskStatistic, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.TaskStatistic{
			TaskID:     r.ID,
			EmployeeID: employeeID,
			Duration:   r.Duration,
			Scope:      sq.Scope,
		})
	}
	return out, nil
}

// DailyPlans lists the daily plans of an employee.
func (c *Client) DailyPlans(ctx context.Context, employeeID string) ([]models.DailyPlan, error) {
	s, err := c.session()
	if err != nil {
		return nil, err
	}
	q := orgQuery(s)
	q.Set("relations[0]", "tasks")

	var page struct {
		Items []models.DailyPlan `json:"items"`
		Total int                `json:"total"`
	}
	if err := c.do(ctx, http.MethodGet, "/daily-plan/employee/"+url.PathEscape(employeeID), q, nil, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

func (c *Client) session() (models.Session, error) {
	if c.creds == nil {
		return models.Session{}, ErrNoSession
	}
	s := c.creds.Facts()
	if s.Token == "" || s.TenantID == "" || s.OrganizationID == "" {
		return s, ErrNoSession
	}
	return s, nil
}

func orgQuery(s models.Session) url.Values {
	q := url.Values{}
	q.Set("tenantId", s.TenantID)
	q.Set("organizationId", s.OrganizationID)
	return q
}

// do performs one request and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out interface{}) error {
	s, err := c.session()
	if err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)
	req.Header.Set("Tenant-Id", s.TenantID)
	req.Header.Set("Organization-Id", s.OrganizationID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(data)}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
