// Package models defines the core domain types for teamtimer.
//
// JSON names follow the Gauzy API wire format.
package models

import "time"

// TimerSource identifies the client that started a time log.
type TimerSource string

const (
	SourceTeams            TimerSource = "TEAMS"
	SourceDesktop          TimerSource = "DESKTOP"
	SourceBrowserExtension TimerSource = "BROWSER_EXTENSION"
	SourceMobile           TimerSource = "MOBILE"
	SourceCloud            TimerSource = "CLOUD"
)

// LogType is the kind of time log the timer writes.
type LogType string

const (
	LogTypeTracked LogType = "TRACKED"
	LogTypeManual  LogType = "MANUAL"
)

// TimeLogRef references the most recent time log of the tracking employee.
type TimeLogRef struct {
	ID                 string      `json:"id"`
	OrganizationTeamID string      `json:"organizationTeamId,omitempty"`
	Source             TimerSource `json:"source"`
	TaskID             string      `json:"taskId,omitempty"`
}

// TimerStatus is the authoritative timer state as reported by the backend.
type TimerStatus struct {
	Running  bool        `json:"running"`
	LastLog  *TimeLogRef `json:"lastLog"`
	Duration int64       `json:"duration"` // seconds
}

// Clone returns a deep copy of the status.
func (s TimerStatus) Clone() TimerStatus {
	if s.LastLog != nil {
		ref := *s.LastLog
		s.LastLog = &ref
	}
	return s
}

// ActiveTaskID returns the task of the running log, or "" when idle.
func (s TimerStatus) ActiveTaskID() string {
	if !s.Running || s.LastLog == nil {
		return ""
	}
	return s.LastLog.TaskID
}

// TimeLog is a time log entry as returned by start/stop.
type TimeLog struct {
	ID                 string      `json:"id"`
	StartedAt          time.Time   `json:"startedAt"`
	StoppedAt          *time.Time  `json:"stoppedAt,omitempty"`
	IsRunning          bool        `json:"isRunning"`
	Source             TimerSource `json:"source"`
	LogType            LogType     `json:"logType"`
	TaskID             string      `json:"taskId,omitempty"`
	OrganizationTeamID string      `json:"organizationTeamId,omitempty"`
	EmployeeID         string      `json:"employeeId,omitempty"`
}

// TimerParams is the request body of the timer start/stop/toggle endpoints.
type TimerParams struct {
	TenantID           string      `json:"tenantId"`
	OrganizationID     string      `json:"organizationId"`
	OrganizationTeamID string      `json:"organizationTeamId,omitempty"`
	TaskID             string      `json:"taskId,omitempty"`
	LogType            LogType     `json:"logType"`
	Source             TimerSource `json:"source"`
	Tags               []string    `json:"tags"`
}

// Employee is an organization member that can track time.
type Employee struct {
	ID       string `json:"id"`
	UserID   string `json:"userId,omitempty"`
	FullName string `json:"fullName,omitempty"`
}

// Task is the subset of a backend task the engine reads.
type Task struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Number   int        `json:"number,omitempty"`
	Status   string     `json:"status,omitempty"`
	Estimate *int64     `json:"estimate"` // seconds, nil when unestimated
	Members  []Employee `json:"members"`
}

// HasMember reports whether the employee is assigned to the task.
func (t *Task) HasMember(employeeID string) bool {
	for _, m := range t.Members {
		if m.ID == employeeID {
			return true
		}
	}
	return false
}

// StatScope selects the time window of a task statistic.
type StatScope string

const (
	ScopeToday StatScope = "today"
	ScopeTotal StatScope = "total"
)

// Valid reports whether s is a known scope.
func (s StatScope) Valid() bool {
	return s == ScopeToday || s == ScopeTotal
}

// TaskStatistic is the tracked duration of one task for one employee.
type TaskStatistic struct {
	TaskID     string    `json:"taskId"`
	EmployeeID string    `json:"employeeId"`
	Duration   int64     `json:"duration"` // seconds
	Scope      StatScope `json:"scope"`
}

// StatisticsQuery filters the task statistics endpoint.
type StatisticsQuery struct {
	EmployeeID string
	TaskIDs    []string
	Scope      StatScope
	// Day bounds the today scope; ignored for total.
	Day time.Time
}

// DailyPlanTask is a task entry of a daily plan.
type DailyPlanTask struct {
	ID       string `json:"id"`
	Title    string `json:"title,omitempty"`
	Status   string `json:"status,omitempty"`
	Estimate *int64 `json:"estimate"` // seconds
}

// DailyPlan is an employee's plan for a single day.
type DailyPlan struct {
	ID              string          `json:"id"`
	Date            string          `json:"date"`
	WorkTimePlanned float64         `json:"workTimePlanned"` // hours
	Status          string          `json:"status,omitempty"`
	Tasks           []DailyPlanTask `json:"tasks"`
}

// Session carries the opaque authentication facts the engine consumes.
type Session struct {
	Token          string `json:"token"`
	TenantID       string `json:"tenantId"`
	OrganizationID string `json:"organizationId"`
	UserID         string `json:"userId"`
	EmployeeID     string `json:"employeeId"`
	ActiveTeamID   string `json:"activeTeamId,omitempty"`
}

// JournalEntry is an audit record of a state-mutating engine action.
type JournalEntry struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	InputsHash string    `json:"inputs_hash"`
	Outcome    string    `json:"outcome"`
	TaskID     string    `json:"task_id,omitempty"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
