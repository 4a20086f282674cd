package dailyplan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/fentz26/teamtimer/internal/models"
)

func int64Ptr(v int64) *int64 { return &v }

var today = time.Date(2024, time.August, 21, 15, 30, 0, 0, time.UTC)

func TestCompareEstimatedEmpty(t *testing.T) {
	got := CompareEstimated(nil, today)
	want := Comparison{Difference: false, WorkTimePlanned: 0, Estimated: []bool{}, Plan: nil}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CompareEstimated mismatch (-want +got):\n%s", diff)
	}

	got = CompareEstimated([]models.DailyPlan{{ID: "p", Date: "2024-08-20T00:00:00.000Z"}}, today)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CompareEstimated with no plan for today (-want +got):\n%s", diff)
	}
}

func TestCompareEstimatedWithinTolerance(t *testing.T) {
	plans := []models.DailyPlan{{
		ID:              "plan-1",
		Date:            "2024-08-21T00:00:00.000Z",
		WorkTimePlanned: 2,
		Tasks: []models.DailyPlanTask{
			{ID: "t1", Estimate: int64Ptr(3600)},
			{ID: "t2", Estimate: int64Ptr(3480)},
		},
	}}

	got := CompareEstimated(plans, today)
	if !got.Difference {
		t.Error("Expected |7080-7200|/120 = 1.0 to be within tolerance")
	}
	if got.WorkTimePlanned != 7200 {
		t.Errorf("Expected 7200 planned seconds, got %v", got.WorkTimePlanned)
	}
	if diff := cmp.Diff([]bool{true, true}, got.Estimated); diff != "" {
		t.Errorf("Estimated mismatch (-want +got):\n%s", diff)
	}
	if got.Plan == nil || got.Plan.ID != "plan-1" {
		t.Errorf("Expected plan-1 to be selected, got %+v", got.Plan)
	}
}

func TestCompareEstimatedOutsideTolerance(t *testing.T) {
	plans := []models.DailyPlan{{
		Date:            "2024-08-21T09:00:00.000Z",
		WorkTimePlanned: 2,
		Tasks: []models.DailyPlanTask{
			{ID: "t1", Estimate: int64Ptr(3600)},
			{ID: "t2", Estimate: nil},
			{ID: "t3", Estimate: int64Ptr(0)},
		},
	}}

	got := CompareEstimated(plans, today)
	if got.Difference {
		t.Error("Expected |3600-7200|/120 = 30 to be outside tolerance")
	}
	if diff := cmp.Diff([]bool{true, false, false}, got.Estimated); diff != "" {
		t.Errorf("Estimated mismatch (-want +got):\n%s", diff)
	}
}

func TestPartitionAndOutstanding(t *testing.T) {
	plans := []models.DailyPlan{
		{ID: "future", Date: "2024-08-22"},
		{ID: "today", Date: "2024-08-21T00:00:00Z"},
		{ID: "older", Date: "2024-08-19", Tasks: []models.DailyPlanTask{
			{ID: "t1", Status: "in-progress"},
			{ID: "t2", Status: "done"},
		}},
		{ID: "yesterday", Date: "2024-08-20", Tasks: []models.DailyPlanTask{
			{ID: "t1", Status: "in-progress"},
			{ID: "t3", Status: "open"},
			{ID: "t4", Status: "Completed"},
		}},
	}

	past, todays, future := Partition(plans, today)
	ids := func(ps []models.DailyPlan) []string {
		var out []string
		for _, p := range ps {
			out = append(out, p.ID)
		}
		return out
	}
	if diff := cmp.Diff([]string{"older", "yesterday"}, ids(past)); diff != "" {
		t.Errorf("past mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"today"}, ids(todays)); diff != "" {
		t.Errorf("today mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"future"}, ids(future)); diff != "" {
		t.Errorf("future mismatch (-want +got):\n%s", diff)
	}

	var outstanding []string
	for _, task := range Outstanding(plans, today) {
		outstanding = append(outstanding, task.ID)
	}
	if diff := cmp.Diff([]string{"t1", "t3"}, outstanding); diff != "" {
		t.Errorf("outstanding mismatch (-want +got):\n%s", diff)
	}
}

func TestPlanForUsesUTCDate(t *testing.T) {
	plans := []models.DailyPlan{
		{ID: "aug-21", Date: "2024-08-21T00:00:00.000Z"},
		{ID: "aug-22", Date: "2024-08-22T00:00:00.000Z"},
	}

	// 00:30 on Aug 22 in UTC+2 is still Aug 21 in UTC.
	east := time.FixedZone("UTC+2", 2*3600)
	day := time.Date(2024, time.August, 22, 0, 30, 0, 0, east)

	got := PlanFor(plans, day)
	if got == nil || got.ID != "aug-21" {
		t.Errorf("Expected aug-21, got %+v", got)
	}
	if key := DayKey(day); key != "2024-08-21" {
		t.Errorf("DayKey() = %s, want 2024-08-21", key)
	}

	past, todays, _ := Partition(plans, day)
	if len(past) != 0 || len(todays) != 1 || todays[0].ID != "aug-21" {
		t.Errorf("Partition() past=%v today=%v", past, todays)
	}
}

type fakeFetcher struct {
	plans    []models.DailyPlan
	err      error
	employee string
}

func (f *fakeFetcher) DailyPlans(ctx context.Context, employeeID string) ([]models.DailyPlan, error) {
	f.employee = employeeID
	return f.plans, f.err
}

func TestReconcilerCompare(t *testing.T) {
	f := &fakeFetcher{plans: []models.DailyPlan{{
		ID: "plan-1", Date: "2024-08-21", WorkTimePlanned: 1,
		Tasks: []models.DailyPlanTask{{ID: "t1", Estimate: int64Ptr(3600)}},
	}}}
	r := NewReconciler(f, func() time.Time { return today })

	got, err := r.Compare(context.Background(), "emp-1", time.Time{})
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if !got.Difference || got.Plan == nil {
		t.Errorf("Expected today's plan within tolerance, got %+v", got)
	}
	if f.employee != "emp-1" {
		t.Errorf("Expected plans of emp-1, got %q", f.employee)
	}

	got, err = r.Compare(context.Background(), "emp-1", today.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if got.Plan != nil {
		t.Errorf("Expected no plan tomorrow, got %+v", got.Plan)
	}
}

func TestReconcilerMissingEmployeeIsNoop(t *testing.T) {
	f := &fakeFetcher{err: errors.New("should not be called")}
	r := NewReconciler(f, nil)

	got, err := r.Compare(context.Background(), "", time.Time{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got.Plan != nil || got.Difference {
		t.Errorf("Expected zero comparison, got %+v", got)
	}
}

func TestReconcilerFetchError(t *testing.T) {
	boom := errors.New("unavailable")
	r := NewReconciler(&fakeFetcher{err: boom}, nil)

	if _, err := r.Compare(context.Background(), "emp-1", today); !errors.Is(err, boom) {
		t.Errorf("Expected wrapped fetch error, got %v", err)
	}
}
