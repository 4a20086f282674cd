package main

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	dps "github.com/markusmobius/go-dateparser"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/fentz26/teamtimer/internal/dailyplan"
	"github.com/fentz26/teamtimer/internal/models"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Compare daily plans with task estimates",
}

var planCompareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare a day's planned work time with its task estimates",
	RunE:  runPlanCompare,
}

var planOutstandingCmd = &cobra.Command{
	Use:   "outstanding",
	Short: "List unfinished tasks from earlier plans",
	RunE:  runPlanOutstanding,
}

var planDate string

func init() {
	planCmd.AddCommand(planCompareCmd, planOutstandingCmd)

	planCompareCmd.Flags().StringVar(&planDate, "date", "", `Day to compare, e.g. "2024-03-05", "yesterday", "last monday" (default today)`)
}

// parsePlanDate turns a natural language date into the plan date layout.
// Relative dates resolve to the UTC calendar day plans are keyed by.
func parsePlanDate(input string, now time.Time) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return dailyplan.DayKey(now), nil
	}
	if d, err := time.ParseInLocation(dailyplan.DateLayout, input, now.Location()); err == nil {
		return d.Format(dailyplan.DateLayout), nil
	}

	cfg := &dps.Configuration{CurrentTime: now}
	dt, err := dps.Parse(cfg, input)
	if err != nil {
		return "", fmt.Errorf("unable to parse date %q: %w", input, err)
	}
	return dailyplan.DayKey(dt.Time), nil
}

func runPlanCompare(cmd *cobra.Command, args []string) error {
	day, err := parsePlanDate(planDate, time.Now())
	if err != nil {
		return err
	}

	var cmp dailyplan.Comparison
	if err := apiGet("/plans/compare?date="+url.QueryEscape(day), &cmp); err != nil {
		return err
	}
	if cmp.Plan == nil {
		pterm.Info.Printfln("No plan for %s", day)
		return nil
	}

	planned := time.Duration(cmp.WorkTimePlanned * float64(time.Second))
	pterm.Info.Printfln("Plan for %s: %s planned, %d task(s)", day, planned, len(cmp.Plan.Tasks))

	data := pterm.TableData{{"Task", "Status", "Estimate", "Estimated"}}
	for i, t := range cmp.Plan.Tasks {
		estimate := "-"
		if t.Estimate != nil {
			estimate = formatSeconds(*t.Estimate)
		}
		match := "-"
		if i < len(cmp.Estimated) {
			match = fmt.Sprint(cmp.Estimated[i])
		}
		data = append(data, []string{taskLabel(t), t.Status, estimate, match})
	}
	printTable(data, true)

	// Difference is set when the estimates fall within tolerance of the plan.
	if cmp.Difference {
		pterm.Success.Println("Planned work time matches the task estimates")
	} else {
		pterm.Warning.Println("Planned work time differs from the task estimates")
	}
	return nil
}

func runPlanOutstanding(cmd *cobra.Command, args []string) error {
	var tasks []models.DailyPlanTask
	if err := apiGet("/plans/outstanding", &tasks); err != nil {
		return err
	}
	if len(tasks) == 0 {
		pterm.Success.Println("No outstanding tasks")
		return nil
	}

	data := pterm.TableData{{"Task", "Status"}}
	for _, t := range tasks {
		data = append(data, []string{taskLabel(t), t.Status})
	}
	printTable(data, true)
	return nil
}

func taskLabel(t models.DailyPlanTask) string {
	if t.Title == "" {
		return t.ID
	}
	return t.Title
}
