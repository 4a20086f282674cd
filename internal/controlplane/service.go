// Package controlplane provides the local HTTP API and service layer that
// expose the timer engine to the CLI and the watch view.
package controlplane

import (
	"context"
	"fmt"
	"time"

	"github.com/fentz26/teamtimer/internal/dailyplan"
	"github.com/fentz26/teamtimer/internal/engine"
	"github.com/fentz26/teamtimer/internal/models"
	"github.com/fentz26/teamtimer/internal/store"
)

// Engine is the subset of *engine.Engine the service drives.
type Engine interface {
	Snapshot() engine.View
	RefreshStatus(ctx context.Context) (models.TimerStatus, error)
	StartTimer(ctx context.Context, taskID string) error
	StopTimer(ctx context.Context) error
	ToggleTimer(ctx context.Context) error
	SwitchTeam(ctx context.Context, teamID string) (bool, error)
	Statistics(scope models.StatScope) ([]models.TaskStatistic, error)
	ComparePlans(ctx context.Context, day time.Time) (dailyplan.Comparison, error)
	OutstandingTasks(ctx context.Context) ([]models.DailyPlanTask, error)
}

// JournalStore reads the action journal.
type JournalStore interface {
	ListEntries(ctx context.Context, f store.Filter) ([]models.JournalEntry, error)
	Ping(ctx context.Context) error
}

// Service provides the control plane operations.
type Service struct {
	engine  Engine
	journal JournalStore
}

// NewService creates a new control plane service. journal may be nil.
func NewService(e Engine, journal JournalStore) *Service {
	return &Service{engine: e, journal: journal}
}

// --- Timer Operations ---

// Timer returns the current view, refreshing the status first when asked.
func (s *Service) Timer(ctx context.Context, refresh bool) (engine.View, error) {
	if refresh {
		if _, err := s.engine.RefreshStatus(ctx); err != nil {
			return s.engine.Snapshot(), err
		}
	}
	return s.engine.Snapshot(), nil
}

// StartTimer starts the timer and returns the resulting view.
func (s *Service) StartTimer(ctx context.Context, taskID string) (engine.View, error) {
	if err := s.engine.StartTimer(ctx, taskID); err != nil {
		return s.engine.Snapshot(), err
	}
	return s.engine.Snapshot(), nil
}

// StopTimer stops the timer and returns the resulting view.
func (s *Service) StopTimer(ctx context.Context) (engine.View, error) {
	if err := s.engine.StopTimer(ctx); err != nil {
		return s.engine.Snapshot(), err
	}
	return s.engine.Snapshot(), nil
}

// ToggleTimer toggles the timer and returns the resulting view.
func (s *Service) ToggleTimer(ctx context.Context) (engine.View, error) {
	if err := s.engine.ToggleTimer(ctx); err != nil {
		return s.engine.Snapshot(), err
	}
	return s.engine.Snapshot(), nil
}

// --- Team Operations ---

// SwitchResult is returned by SwitchTeam.
type SwitchResult struct {
	Stopped      bool   `json:"stopped"`
	ActiveTeamID string `json:"active_team_id"`
}

// SwitchTeam changes the active team.
func (s *Service) SwitchTeam(ctx context.Context, teamID string) (*SwitchResult, error) {
	if teamID == "" {
		return nil, ErrMissingTeam
	}
	stopped, err := s.engine.SwitchTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return &SwitchResult{Stopped: stopped, ActiveTeamID: s.engine.Snapshot().ActiveTeamID}, nil
}

// --- Statistics & Plans ---

// Statistics lists task statistics of scope. An empty scope means today.
func (s *Service) Statistics(scope string) ([]models.TaskStatistic, error) {
	if scope == "" {
		scope = string(models.ScopeToday)
	}
	return s.engine.Statistics(models.StatScope(scope))
}

// ComparePlans compares the plan of date (YYYY-MM-DD), taken as a UTC
// calendar date like plan dates are. An empty date means today.
func (s *Service) ComparePlans(ctx context.Context, date string) (dailyplan.Comparison, error) {
	var day time.Time
	if date != "" {
		var err error
		day, err = time.Parse(dailyplan.DateLayout, date)
		if err != nil {
			return dailyplan.Comparison{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
		}
	}
	return s.engine.ComparePlans(ctx, day)
}

// OutstandingTasks lists unfinished tasks of past plans.
func (s *Service) OutstandingTasks(ctx context.Context) ([]models.DailyPlanTask, error) {
	return s.engine.OutstandingTasks(ctx)
}

// --- Journal ---

// Journal lists journal entries.
func (s *Service) Journal(ctx context.Context, f store.Filter) ([]models.JournalEntry, error) {
	if s.journal == nil {
		return nil, ErrNoJournal
	}
	return s.journal.ListEntries(ctx, f)
}

// PingJournal checks the journal database.
func (s *Service) PingJournal(ctx context.Context) error {
	if s.journal == nil {
		return ErrNoJournal
	}
	return s.journal.Ping(ctx)
}
