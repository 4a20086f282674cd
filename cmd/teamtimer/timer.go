package main

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/fentz26/teamtimer/internal/engine"
)

var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Show and control the timer",
}

var timerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the timer status",
	RunE:  runTimerStatus,
}

var timerStartCmd = &cobra.Command{
	Use:   "start [task-id]",
	Short: "Start the timer (defaults to the last task)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTimerStart,
}

var timerStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the timer",
	Args:  cobra.NoArgs,
	RunE:  runTimerStop,
}

var timerToggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Start the timer if stopped, stop it if running",
	Args:  cobra.NoArgs,
	RunE:  runTimerToggle,
}

var refreshStatus bool

func init() {
	timerCmd.AddCommand(timerStatusCmd, timerStartCmd, timerStopCmd, timerToggleCmd)

	timerStatusCmd.Flags().BoolVar(&refreshStatus, "refresh", false, "Fetch the status from the API before printing")
}

func runTimerStatus(cmd *cobra.Command, args []string) error {
	path := "/timer"
	if refreshStatus {
		path += "?refresh=1"
	}
	var view engine.View
	if err := apiGet(path, &view); err != nil {
		return err
	}
	printView(view)
	return nil
}

func runTimerStart(cmd *cobra.Command, args []string) error {
	body := map[string]string{}
	if len(args) == 1 {
		body["task_id"] = args[0]
	}
	var view engine.View
	if err := apiPost("/timer/start", body, &view); err != nil {
		return err
	}
	pterm.Success.Println("Timer started")
	printView(view)
	return nil
}

func runTimerStop(cmd *cobra.Command, args []string) error {
	var view engine.View
	if err := apiPost("/timer/stop", nil, &view); err != nil {
		return err
	}
	pterm.Success.Println("Timer stopped")
	printView(view)
	return nil
}

func runTimerToggle(cmd *cobra.Command, args []string) error {
	var view engine.View
	if err := apiPost("/timer/toggle", nil, &view); err != nil {
		return err
	}
	if view.EffectiveRunning {
		pterm.Success.Println("Timer started")
	} else {
		pterm.Success.Println("Timer stopped")
	}
	printView(view)
	return nil
}

func printView(v engine.View) {
	if !v.Loaded {
		pterm.Warning.Println("Timer status not loaded yet")
		return
	}

	state := pterm.Gray("stopped")
	switch {
	case v.Pending:
		state = pterm.Yellow("syncing")
	case v.EffectiveRunning:
		state = pterm.Green("running")
	}

	task := "-"
	if v.ActiveTask != nil {
		task = v.ActiveTask.Title
		if v.ActiveTask.Number > 0 {
			task = fmt.Sprintf("#%d %s", v.ActiveTask.Number, task)
		}
	}

	data := pterm.TableData{
		{"Timer", state},
		{"Elapsed", formatSeconds(v.Seconds)},
		{"Task", task},
		{"Today", formatSeconds(v.Today.Duration)},
		{"Total", formatSeconds(v.Total.Duration)},
	}
	if v.ActiveTask != nil && v.ActiveTask.Estimate != nil {
		data = append(data, []string{"Estimate", fmt.Sprintf("%s (%d%% used)",
			formatSeconds(*v.ActiveTask.Estimate), v.EstimationPercent)})
	}
	if v.ActiveTeamID != "" {
		data = append(data, []string{"Team", v.ActiveTeamID})
	}
	printTable(data, false)
}

func printTable(data pterm.TableData, header bool) {
	table := pterm.DefaultTable.WithBoxed().WithData(data)
	if header {
		table = table.WithHasHeader()
	}
	if err := table.Render(); err != nil {
		pterm.Error.Printfln("Failed to render table: %s", err)
	}
}

// formatSeconds renders a duration in seconds, e.g. 1h2m3s.
func formatSeconds(s int64) string {
	if s < 0 {
		s = 0
	}
	return (time.Duration(s) * time.Second).String()
}
