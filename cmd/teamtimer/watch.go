package main

import (
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/fentz26/teamtimer/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"tui"},
	Short:   "Open the live timer view",
	RunE:    runWatch,
}

var noSpawn bool

func init() {
	watchCmd.Flags().BoolVar(&noSpawn, "no-spawn", false, "Do not start the daemon when it is not running")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if !isDaemonRunning() {
		if noSpawn {
			return fmt.Errorf("daemon not reachable at %s", apiAddr)
		}
		if err := startDaemon(); err != nil {
			return fmt.Errorf("failed to start daemon: %w", err)
		}
	}

	app := tui.New(apiAddr)
	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func isDaemonRunning() bool {
	_, err := CheckHealth(&http.Client{Timeout: 500 * time.Millisecond})
	return err == nil
}

func startDaemon() error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}

	args := []string{"daemon"}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	cmd := exec.Command(exe, args...)
	// Detach so the daemon survives the watch view exiting.
	detachDaemon(cmd)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return err
	}

	spinner, _ := pterm.DefaultSpinner.Start("Starting teamtimer daemon...")
	for i := 0; i < 20; i++ {
		if isDaemonRunning() {
			spinner.Success("Daemon started")
			return nil
		}
		time.Sleep(250 * time.Millisecond)
	}
	spinner.Fail("Timed out waiting for daemon")
	return fmt.Errorf("daemon started but API not reachable at %s", apiAddr)
}
