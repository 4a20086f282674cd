// Package dailyplan reconciles a day's planned work time against the
// estimates of the tasks in that day's plan.
package dailyplan

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/fentz26/teamtimer/internal/models"
)

// DateLayout is the calendar-day prefix plans are matched on.
const DateLayout = "2006-01-02"

// toleranceSeconds scales the estimate/plan difference before it is compared
// against [-1, 1].
const toleranceSeconds = 120

// Comparison is the result of CompareEstimated.
type Comparison struct {
	// Difference is true when the summed estimates are within tolerance of
	// the planned time.
	Difference bool `json:"difference"`
	// WorkTimePlanned is the plan's work time in seconds.
	WorkTimePlanned float64           `json:"workTimePlanned"`
	Estimated       []bool            `json:"estimated"`
	Plan            *models.DailyPlan `json:"plan,omitempty"`
}

// CompareEstimated selects the plan dated today and compares its planned work
// time against the sum of its task estimates. No plan for today yields the
// zero comparison.
func CompareEstimated(plans []models.DailyPlan, today time.Time) Comparison {
	plan := PlanFor(plans, today)
	if plan == nil {
		return Comparison{Estimated: []bool{}}
	}

	var estimatedTime int64
	estimated := make([]bool, len(plan.Tasks))
	for i, task := range plan.Tasks {
		if task.Estimate == nil {
			continue
		}
		estimatedTime += *task.Estimate
		estimated[i] = *task.Estimate > 0
	}

	planned := plan.WorkTimePlanned * 3600
	ratio := math.Abs(float64(estimatedTime)-planned) / toleranceSeconds

	return Comparison{
		Difference:      ratio >= -1 && ratio <= 1,
		WorkTimePlanned: planned,
		Estimated:       estimated,
		Plan:            plan,
	}
}

// PlanFor returns a copy of the first plan dated on day, or nil. Plan dates
// are UTC timestamps, so day is compared by its UTC calendar date.
func PlanFor(plans []models.DailyPlan, day time.Time) *models.DailyPlan {
	prefix := DayKey(day)
	for i := range plans {
		if strings.HasPrefix(plans[i].Date, prefix) {
			p := plans[i]
			return &p
		}
	}
	return nil
}

// Partition splits plans into those dated before, on and after day.
func Partition(plans []models.DailyPlan, day time.Time) (past, today, future []models.DailyPlan) {
	key := DayKey(day)
	for _, p := range plans {
		switch d := planDay(p); {
		case d == key:
			today = append(today, p)
		case d < key:
			past = append(past, p)
		default:
			future = append(future, p)
		}
	}
	sortByDate(past)
	sortByDate(future)
	return past, today, future
}

// Outstanding lists the unfinished tasks of plans dated before day. A task
// planned on several past days is listed once.
func Outstanding(plans []models.DailyPlan, day time.Time) []models.DailyPlanTask {
	past, _, _ := Partition(plans, day)

	seen := make(map[string]bool)
	var out []models.DailyPlanTask
	for _, p := range past {
		for _, task := range p.Tasks {
			if isDone(task.Status) || seen[task.ID] {
				continue
			}
			seen[task.ID] = true
			out = append(out, task)
		}
	}
	return out
}

// DayKey is the UTC calendar date of day, in the form plan dates start with.
func DayKey(day time.Time) string {
	return day.UTC().Format(DateLayout)
}

func planDay(p models.DailyPlan) string {
	if len(p.Date) < len(DateLayout) {
		return p.Date
	}
	return p.Date[:len(DateLayout)]
}

func sortByDate(plans []models.DailyPlan) {
	sort.SliceStable(plans, func(i, j int) bool {
		return planDay(plans[i]) < planDay(plans[j])
	})
}

func isDone(status string) bool {
	switch strings.ToLower(status) {
	case "done", "completed", "closed":
		return true
	}
	return false
}

// Fetcher is the daily plan API.
type Fetcher interface {
	DailyPlans(ctx context.Context, employeeID string) ([]models.DailyPlan, error)
}

// Reconciler loads an employee's plans and compares them for a given day.
type Reconciler struct {
	fetcher Fetcher
	now     func() time.Time
}

// NewReconciler creates a reconciler. now defaults to time.Now.
func NewReconciler(f Fetcher, now func() time.Time) *Reconciler {
	if now == nil {
		now = time.Now
	}
	return &Reconciler{fetcher: f, now: now}
}

// Compare loads the plans of employeeID and compares the plan for day. A
// zero day means today. An unknown employee yields the zero comparison.
func (r *Reconciler) Compare(ctx context.Context, employeeID string, day time.Time) (Comparison, error) {
	if employeeID == "" {
		return Comparison{Estimated: []bool{}}, nil
	}
	if day.IsZero() {
		day = r.now()
	}

	plans, err := r.fetcher.DailyPlans(ctx, employeeID)
	if err != nil {
		return Comparison{}, fmt.Errorf("load daily plans: %w", err)
	}
	return CompareEstimated(plans, day), nil
}

// Outstanding loads the plans of employeeID and lists unfinished tasks from
// days before today.
func (r *Reconciler) Outstanding(ctx context.Context, employeeID string) ([]models.DailyPlanTask, error) {
	if employeeID == "" {
		return nil, nil
	}
	plans, err := r.fetcher.DailyPlans(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("load daily plans: %w", err)
	}
	return Outstanding(plans, r.now()), nil
}
