// Package teamswitch stops a timer that belongs to the team being left before
// the active team changes.
package teamswitch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fentz26/teamtimer/internal/models"
)

// ErrSwitchAborted is returned when the forced stop failed and the switch did
// not proceed.
var ErrSwitchAborted = errors.New("team switch aborted: running timer could not be stopped")

// StatusReader returns the authoritative timer status.
type StatusReader interface {
	Get() models.TimerStatus
}

// Notifier shows a notice to the user.
type Notifier interface {
	Notify(message string)
}

// StopFunc stops the timer through the manual stop path.
type StopFunc func(ctx context.Context) error

// ProceedFunc performs the team switch itself.
type ProceedFunc func(ctx context.Context, teamID string) error

// Guard decides whether a team switch needs a forced stop.
type Guard struct {
	status   StatusReader
	stop     StopFunc
	notifier Notifier
	log      *slog.Logger
}

// New creates a guard. notifier may be nil.
func New(status StatusReader, stop StopFunc, notifier Notifier, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{status: status, stop: stop, notifier: notifier, log: logger}
}

// ShouldStop reports whether st is a running TEAMS timer of currentTeamID.
func ShouldStop(st models.TimerStatus, currentTeamID string) bool {
	if !st.Running || st.LastLog == nil || currentTeamID == "" {
		return false
	}
	return st.LastLog.Source == models.SourceTeams &&
		st.LastLog.OrganizationTeamID == currentTeamID
}

// Switch moves from currentTeamID to nextTeamID. A timer running in the team
// being left is stopped and the user notified before proceed runs. It reports
// whether a stop was issued.
func (g *Guard) Switch(ctx context.Context, currentTeamID, nextTeamID string, proceed ProceedFunc) (bool, error) {
	if nextTeamID == "" {
		return false, fmt.Errorf("switch team: empty team id")
	}
	if nextTeamID == currentTeamID {
		return false, nil
	}

	stopped := false
	if ShouldStop(g.status.Get(), currentTeamID) {
		g.log.Info("stopping timer before team switch", "from", currentTeamID, "to", nextTeamID)
		if err := g.stop(ctx); err != nil {
			return false, fmt.Errorf("%w: %v", ErrSwitchAborted, err)
		}
		stopped = true
		if g.notifier != nil {
			g.notifier.Notify("Your timer was stopped because you switched to another team.")
		}
	}

	if err := proceed(ctx, nextTeamID); err != nil {
		return stopped, fmt.Errorf("switch team: %w", err)
	}
	return stopped, nil
}
