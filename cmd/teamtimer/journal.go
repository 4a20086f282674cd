package main

import (
	"net/url"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/fentz26/teamtimer/internal/audit"
	"github.com/fentz26/teamtimer/internal/models"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Show the action journal",
	Long:  `Lists the timer, team and task actions the daemon performed, newest first.`,
	RunE:  runJournal,
}

var (
	journalAction string
	journalTask   string
	journalLimit  int
)

func init() {
	journalCmd.Flags().StringVar(&journalAction, "action", "", "Filter by action (timer.start, timer.stop, timer.toggle, team.switch, task.assign)")
	journalCmd.Flags().StringVar(&journalTask, "task", "", "Filter by task ID")
	journalCmd.Flags().IntVar(&journalLimit, "limit", 20, "Maximum number of entries")
}

func runJournal(cmd *cobra.Command, args []string) error {
	q := url.Values{}
	if journalAction != "" {
		q.Set("action", journalAction)
	}
	if journalTask != "" {
		q.Set("task_id", journalTask)
	}
	q.Set("limit", strconv.Itoa(journalLimit))

	var entries []models.JournalEntry
	if err := apiGet("/journal?"+q.Encode(), &entries); err != nil {
		return err
	}
	if len(entries) == 0 {
		pterm.Info.Println("No journal entries")
		return nil
	}

	data := pterm.TableData{{"Time", "Action", "Outcome", "Task", "Details"}}
	for _, e := range entries {
		outcome := e.Outcome
		switch e.Outcome {
		case audit.OutcomeSuccess:
			outcome = pterm.Green(e.Outcome)
		case audit.OutcomeFailure:
			outcome = pterm.Red(e.Outcome)
		}
		data = append(data, []string{
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			e.Action,
			outcome,
			e.TaskID,
			e.Details,
		})
	}
	printTable(data, true)
	return nil
}
