package gauzy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/fentz26/teamtimer/internal/models"
)

type staticCreds models.Session

func (s staticCreds) Facts() models.Session { return models.Session(s) }

var testSession = staticCreds{
	Token:          "tok",
	TenantID:       "tenant-1",
	OrganizationID: "org-1",
	EmployeeID:     "emp-1",
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, testSession, time.Second)
}

func TestTimerStatusSendsSessionHeaders(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/timesheet/timer/status" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Tenant-Id"); got != "tenant-1" {
			t.Errorf("Tenant-Id = %q", got)
		}
		if got := r.Header.Get("Organization-Id"); got != "org-1" {
			t.Errorf("Organization-Id = %q", got)
		}
		q := r.URL.Query()
		if q.Get("tenantId") != "tenant-1" || q.Get("organizationId") != "org-1" {
			t.Errorf("unexpected query %v", q)
		}
		w.Write([]byte(`{"running":true,"duration":95,"lastLog":{"id":"log-1","organizationTeamId":"team-a","source":"TEAMS","taskId":"task-1"}}`))
	})

	st, err := c.TimerStatus(context.Background())
	if err != nil {
		t.Fatalf("TimerStatus failed: %v", err)
	}
	want := &models.TimerStatus{
		Running:  true,
		Duration: 95,
		LastLog:  &models.TimeLogRef{ID: "log-1", OrganizationTeamID: "team-a", Source: models.SourceTeams, TaskID: "task-1"},
	}
	if diff := cmp.Diff(want, st); diff != "" {
		t.Errorf("TimerStatus mismatch (-want +got):\n%s", diff)
	}
}

func TestStartTimerFillsOrganization(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/timesheet/timer/start" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var p models.TimerParams
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if p.TenantID != "tenant-1" || p.OrganizationID != "org-1" || p.TaskID != "task-1" {
			t.Errorf("unexpected params %+v", p)
		}
		if p.Tags == nil {
			t.Error("Expected tags to be sent as an empty list")
		}
		w.Write([]byte(`{"id":"log-9","isRunning":true,"source":"TEAMS","logType":"TRACKED","taskId":"task-1"}`))
	})

	log, err := c.StartTimer(context.Background(), models.TimerParams{TaskID: "task-1", Source: models.SourceTeams, LogType: models.LogTypeTracked})
	if err != nil {
		t.Fatalf("StartTimer failed: %v", err)
	}
	if log == nil || log.ID != "log-9" || !log.IsRunning {
		t.Errorf("unexpected log %+v", log)
	}
}

func TestStopTimerNullBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`null`))
	})

	log, err := c.StopTimer(context.Background(), models.TimerParams{})
	if err != nil {
		t.Fatalf("StopTimer failed: %v", err)
	}
	if log != nil {
		t.Errorf("Expected nil log, got %+v", log)
	}
}

func TestUnauthorizedIsMatchable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Unauthorized"}`, http.StatusUnauthorized)
	})

	_, err := c.TimerStatus(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Expected ErrUnauthorized, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected *APIError with 401, got %v", err)
	}
}

func TestMissingSession(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", staticCreds{}, 0)
	if _, err := c.TimerStatus(context.Background()); !errors.Is(err, ErrNoSession) {
		t.Errorf("Expected ErrNoSession, got %v", err)
	}
}

func TestUpdateTaskMembers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/tasks/task-1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body struct {
			Members []models.Employee `json:"members"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		json.NewEncoder(w).Encode(models.Task{ID: "task-1", Members: body.Members})
	})

	task, err := c.UpdateTaskMembers(context.Background(), "task-1", []models.Employee{{ID: "emp-1"}})
	if err != nil {
		t.Fatalf("UpdateTaskMembers failed: %v", err)
	}
	if !task.HasMember("emp-1") {
		t.Errorf("Expected emp-1 to be a member, got %+v", task.Members)
	}
}

func TestTaskStatisticsScopes(t *testing.T) {
	var queries []map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		queries = append(queries, map[string]string{
			"employee":  q.Get("employeeIds[0]"),
			"startDate": q.Get("startDate"),
			"endDate":   q.Get("endDate"),
		})
		w.Write([]byte(`[{"id":"task-1","duration":40},{"id":"task-2","duration":7}]`))
	})

	day := time.Date(2024, time.August, 21, 13, 0, 0, 0, time.UTC)
	got, err := c.TaskStatistics(context.Background(), models.StatisticsQuery{Scope: models.ScopeToday, Day: day})
	if err != nil {
		t.Fatalf("TaskStatistics failed: %v", err)
	}
	want := []models.TaskStatistic{
		{TaskID: "task-1", EmployeeID: "emp-1", Duration: 40, Scope: models.ScopeToday},
		{TaskID: "task-2", EmployeeID: "emp-1", Duration: 7, Scope: models.ScopeToday},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TaskStatistics mismatch (-want +got):\n%s", diff)
	}
	if queries[0]["startDate"] != "2024-08-21T00:00:00Z" || queries[0]["endDate"] != "2024-08-21T23:59:59Z" {
		t.Errorf("unexpected today range %v", queries[0])
	}

	if _, err := c.TaskStatistics(context.Background(), models.StatisticsQuery{Scope: models.ScopeTotal, EmployeeID: "emp-2"}); err != nil {
		t.Fatalf("TaskStatistics failed: %v", err)
	}
	if queries[1]["employee"] != "emp-2" || queries[1]["startDate"] != "" {
		t.Errorf("unexpected total query %v", queries[1])
	}

	if _, err := c.TaskStatistics(context.Background(), models.StatisticsQuery{Scope: "week"}); err == nil {
		t.Error("Expected error for unknown scope")
	}
}

func TestDailyPlans(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/daily-plan/employee/emp-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"items":[{"id":"plan-1","date":"2024-08-21T00:00:00.000Z","workTimePlanned":2,"tasks":[{"id":"t1","estimate":3600},{"id":"t2","estimate":null}]}],"total":1}`))
	})

	plans, err := c.DailyPlans(context.Background(), "emp-1")
	if err != nil {
		t.Fatalf("DailyPlans failed: %v", err)
	}
	if len(plans) != 1 || len(plans[0].Tasks) != 2 {
		t.Fatalf("unexpected plans %+v", plans)
	}
	if plans[0].Tasks[1].Estimate != nil {
		t.Error("Expected null estimate to decode as nil")
	}
}
