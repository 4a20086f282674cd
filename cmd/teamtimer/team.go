package main

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/fentz26/teamtimer/internal/controlplane"
)

var teamCmd = &cobra.Command{
	Use:   "team",
	Short: "Manage the active team",
}

var teamSwitchCmd = &cobra.Command{
	Use:   "switch <team-id>",
	Short: "Switch the active team",
	Long: `Switches the active team. A timer running for the previous team is
stopped first; if stopping fails the switch is aborted.`,
	Args: cobra.ExactArgs(1),
	RunE: runTeamSwitch,
}

func init() {
	teamCmd.AddCommand(teamSwitchCmd)
}

func runTeamSwitch(cmd *cobra.Command, args []string) error {
	var res controlplane.SwitchResult
	if err := apiPost("/team/switch", map[string]string{"team_id": args[0]}, &res); err != nil {
		return err
	}
	if res.Stopped {
		pterm.Warning.Println("Your timer was stopped because you switched to another team.")
	}
	pterm.Success.Printfln("Active team: %s", res.ActiveTeamID)
	return nil
}
