// Package stats derives today/total task durations from the authoritative
// status and the local ticker.
package stats

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/fentz26/teamtimer/internal/models"
)

// StatusReader exposes the current authoritative status. View must hold off
// status replacement while fn runs.
type StatusReader interface {
	Get() models.TimerStatus
	View(fn func(models.TimerStatus))
}

// Clock exposes the seconds elapsed since the last authoritative fetch.
type Clock interface {
	Seconds() int64
}

// Fetcher loads per-task statistics for one employee.
type Fetcher interface {
	TaskStatistics(ctx context.Context, q models.StatisticsQuery) ([]models.TaskStatistic, error)
}

// Aggregator combines fetched statistics with the live ticker.
type Aggregator struct {
	status     StatusReader
	clock      Clock
	fetcher    Fetcher
	employeeID string
	now        func() time.Time

	mu         sync.RWMutex
	cache      map[models.StatScope]map[string]models.TaskStatistic
	activeTask *models.Task
}

// New creates an aggregator for the authenticated employee.
func New(status StatusReader, clock Clock, f Fetcher, employeeID string) *Aggregator {
	return &Aggregator{
		status:     status,
		clock:      clock,
		fetcher:    f,
		employeeID: employeeID,
		now:        time.Now,
		cache:      make(map[models.StatScope]map[string]models.TaskStatistic),
	}
}

// Refresh reloads today and total statistics. The cache is replaced only
// when both scopes load.
func (a *Aggregator) Refresh(ctx context.Context) error {
	if a.employeeID == "" {
		return nil
	}

	next := make(map[models.StatScope]map[string]models.TaskStatistic, 2)
	for _, scope := range []models.StatScope{models.ScopeToday, models.ScopeTotal} {
		items, err := a.fetcher.TaskStatistics(ctx, models.StatisticsQuery{
			EmployeeID: a.employeeID,
			Scope:      scope,
			Day:        a.now(),
		})
		if err != nil {
			return fmt.Errorf("load %s statistics: %w", scope, err)
		}

		byTask := make(map[string]models.TaskStatistic, len(items))
		for _, it := range items {
			it.Scope = scope
			if it.EmployeeID == "" {
				it.EmployeeID = a.employeeID
			}
			byTask[it.TaskID] = it
		}
		next[scope] = byTask
	}

	a.mu.Lock()
	a.cache = next
	a.mu.Unlock()
	return nil
}

// SetActiveTask records the task object of the running log.
func (a *Aggregator) SetActiveTask(task *models.Task) {
	a.mu.Lock()
	a.activeTask = task
	a.mu.Unlock()
}

// ActiveTask returns the task object last set with SetActiveTask.
func (a *Aggregator) ActiveTask() *models.Task {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.activeTask
}

// GetTaskStatistic returns the duration of taskID in scope. The running task
// is extrapolated with the ticker; every other task is reported as fetched.
func (a *Aggregator) GetTaskStatistic(taskID string, scope models.StatScope) models.TaskStatistic {
	var (
		active   bool
		duration int64
	)
	// The ticker is reset while a new status is applied, so both values
	// must be read under the same view.
	a.status.View(func(st models.TimerStatus) {
		if taskID != "" && taskID == st.ActiveTaskID() {
			active = true
			duration = st.Duration + a.clock.Seconds()
		}
	})
	if active {
		return models.TaskStatistic{
			TaskID:     taskID,
			EmployeeID: a.employeeID,
			Duration:   duration,
			Scope:      scope,
		}
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if cached, ok := a.cache[scope][taskID]; ok {
		return cached
	}
	return models.TaskStatistic{TaskID: taskID, EmployeeID: a.employeeID, Scope: scope}
}

// Statistics lists every known task statistic of scope, sorted by task id,
// with the running task overlaid.
func (a *Aggregator) Statistics(scope models.StatScope) []models.TaskStatistic {
	a.mu.RLock()
	ids := make([]string, 0, len(a.cache[scope])+1)
	for id := range a.cache[scope] {
		ids = append(ids, id)
	}
	a.mu.RUnlock()

	if active := a.status.Get().ActiveTaskID(); active != "" {
		found := false
		for _, id := range ids {
			if id == active {
				found = true
				break
			}
		}
		if !found {
			ids = append(ids, active)
		}
	}
	sort.Strings(ids)

	out := make([]models.TaskStatistic, 0, len(ids))
	for _, id := range ids {
		out = append(out, a.GetTaskStatistic(id, scope))
	}
	return out
}

// ActiveTaskEstimationPercent returns how much of the active task's estimate
// has been tracked, rounded and clamped to [0, 100].
func (a *Aggregator) ActiveTaskEstimationPercent() int {
	task := a.ActiveTask()
	if task == nil || task.Estimate == nil || *task.Estimate <= 0 {
		return 0
	}
	worked := a.GetTaskStatistic(task.ID, models.ScopeTotal).Duration
	pct := math.Round(float64(worked) / float64(*task.Estimate) * 100)
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return int(pct)
}
