// Package engine wires the timer components together and runs the poll loop
// that keeps them in sync with the backend.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fentz26/teamtimer/internal/assign"
	"github.com/fentz26/teamtimer/internal/audit"
	"github.com/fentz26/teamtimer/internal/clock"
	"github.com/fentz26/teamtimer/internal/dailyplan"
	"github.com/fentz26/teamtimer/internal/models"
	"github.com/fentz26/teamtimer/internal/notify"
	"github.com/fentz26/teamtimer/internal/optimistic"
	"github.com/fentz26/teamtimer/internal/stats"
	"github.com/fentz26/teamtimer/internal/status"
	"github.com/fentz26/teamtimer/internal/teamswitch"
)

// Journal action names.
const (
	ActionStart  = "timer.start"
	ActionStop   = "timer.stop"
	ActionToggle = "timer.toggle"
	ActionSwitch = "team.switch"
	ActionAssign = "task.assign"
)

// API is the backend the engine talks to.
type API interface {
	TimerStatus(ctx context.Context) (*models.TimerStatus, error)
	StartTimer(ctx context.Context, params models.TimerParams) (*models.TimeLog, error)
	StopTimer(ctx context.Context, params models.TimerParams) (*models.TimeLog, error)
	ToggleTimer(ctx context.Context, params models.TimerParams) (*models.TimeLog, error)
	GetTask(ctx context.Context, id string) (*models.Task, error)
	UpdateTaskMembers(ctx context.Context, taskID string, members []models.Employee) (*models.Task, error)
	TaskStatistics(ctx context.Context, q models.StatisticsQuery) ([]models.TaskStatistic, error)
	DailyPlans(ctx context.Context, employeeID string) ([]models.DailyPlan, error)
}

// Session provides the auth facts and persists the active team.
type Session interface {
	Facts() models.Session
	SetActiveTeam(teamID string) error
}

// Journal records state-mutating actions.
type Journal interface {
	Record(ctx context.Context, action string, inputs interface{}, outcome, taskID, details string) (*models.JournalEntry, error)
}

// Config defines the engine configuration.
type Config struct {
	// PollInterval is how often the timer status is refreshed.
	PollInterval time.Duration
	// StatsInterval is how often task statistics are refreshed.
	StatsInterval time.Duration
	// Clock configures the local ticker.
	Clock []clock.Option
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		PollInterval:  5 * time.Second,
		StatsInterval: time.Minute,
	}
}

// Engine owns one instance of every timer component.
type Engine struct {
	api     API
	session Session
	sink    notify.Sink
	journal Journal
	config  *Config
	log     *slog.Logger
	id      string

	ticker     *clock.Ticker
	status     *status.Store
	stats      *stats.Aggregator
	optimistic *optimistic.Controller
	assign     *assign.Coordinator
	guard      *teamswitch.Guard
	plans      *dailyplan.Reconciler

	// taskMu guards the id of the task loaded into the aggregator.
	taskMu       sync.Mutex
	loadedTaskID string

	unsubscribe func()

	// Control
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex
}

// New creates an engine. journal may be nil.
func New(api API, sess Session, sink notify.Sink, journal Journal, cfg *Config, logger *slog.Logger) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = notify.NewLogger(logger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	facts := sess.Facts()

	e := &Engine{
		api:     api,
		session: sess,
		sink:    sink,
		journal: journal,
		config:  cfg,
		log:     logger,
		id:      uuid.New().String(),
		ctx:     ctx,
		cancel:  cancel,
	}

	e.ticker = clock.New(cfg.Clock...)
	e.status = status.New(api, logger.With("component", "status"))
	e.stats = stats.New(e.status, e.ticker, api, facts.EmployeeID)
	e.optimistic = optimistic.New(sink)
	e.assign = assign.New(api, logger.With("component", "assign"))
	e.guard = teamswitch.New(e.status, e.StopTimer, sink, logger.With("component", "teamswitch"))
	e.plans = dailyplan.NewReconciler(api, nil)

	e.status.OnApply(e.alignTicker)
	e.unsubscribe = e.status.Subscribe(e.onStatusChange)
	return e
}

// ID returns the id of this engine session.
func (e *Engine) ID() string {
	return e.id
}

// alignTicker keeps the ticker aligned with the authoritative status. It runs
// while the status store applies the change, so readers never pair the new
// duration with seconds counted on top of the old one.
func (e *Engine) alignTicker(prev, next models.TimerStatus) {
	e.ticker.Reset()
	if next.Running {
		e.ticker.Start()
	} else {
		e.ticker.Stop()
	}
}

func (e *Engine) onStatusChange(prev, next models.TimerStatus) {
	e.log.Debug("timer status changed",
		"running", next.Running, "duration", next.Duration, "task", lastLogTask(next))
}

// RefreshStatus fetches the authoritative status, loads the task it points
// at and evaluates auto-assignment.
func (e *Engine) RefreshStatus(ctx context.Context) (models.TimerStatus, error) {
	st, err := e.status.Refresh(ctx)
	if err != nil {
		return st, err
	}

	e.syncActiveTask(ctx, st)
	if !e.assign.Armed() {
		e.assign.Arm()
	}
	e.evaluateAssign(ctx)
	return st, nil
}

// RefreshStatistics reloads the today and total task statistics.
func (e *Engine) RefreshStatistics(ctx context.Context) error {
	return e.stats.Refresh(ctx)
}

// syncActiveTask loads the task of the last log when it changed.
func (e *Engine) syncActiveTask(ctx context.Context, st models.TimerStatus) {
	id := lastLogTask(st)

	e.taskMu.Lock()
	defer e.taskMu.Unlock()

	if id == e.loadedTaskID {
		return
	}
	if id == "" {
		e.stats.SetActiveTask(nil)
		e.loadedTaskID = ""
		return
	}

	task, err := e.api.GetTask(ctx, id)
	if err != nil {
		// Retried on the next refresh.
		e.log.Warn("failed to load active task", "task", id, "error", err)
		return
	}
	e.stats.SetActiveTask(task)
	e.loadedTaskID = id
}

func (e *Engine) evaluateAssign(ctx context.Context) {
	facts := e.session.Facts()
	var employee *models.Employee
	if facts.EmployeeID != "" {
		employee = &models.Employee{ID: facts.EmployeeID, UserID: facts.UserID}
	}

	task := e.stats.ActiveTask()
	assigned, err := e.assign.Evaluate(ctx, assign.Input{
		Status:   e.status.Get(),
		Task:     task,
		Employee: employee,
	})
	if err != nil {
		e.log.Warn("auto-assign failed", "error", err)
		e.record(ctx, ActionAssign, task.ID, task.ID, err)
		return
	}
	if assigned {
		e.record(ctx, ActionAssign, task.ID, task.ID, nil)
		// The loaded task is stale now that its members changed.
		e.taskMu.Lock()
		e.loadedTaskID = ""
		e.taskMu.Unlock()
	}
}

// StartTimer starts the timer on taskID, or on the task of the last log when
// taskID is empty.
func (e *Engine) StartTimer(ctx context.Context, taskID string) error {
	params := e.timerParams(taskID)
	err := e.optimistic.PerformStart(ctx, func(ctx context.Context) error {
		e.status.MarkMutation()
		if _, err := e.api.StartTimer(ctx, params); err != nil {
			return err
		}
		e.refreshAfterAction(ctx)
		return nil
	})
	e.record(ctx, ActionStart, params, params.TaskID, err)
	if err != nil {
		return fmt.Errorf("start timer: %w", err)
	}
	return nil
}

// StopTimer stops the timer. This is the manual stop path.
func (e *Engine) StopTimer(ctx context.Context) error {
	params := e.timerParams("")
	err := e.optimistic.PerformStop(ctx, func(ctx context.Context) error {
		e.status.MarkMutation()
		if _, err := e.api.StopTimer(ctx, params); err != nil {
			return err
		}
		e.ticker.Stop()
		e.ticker.Reset()
		e.refreshAfterAction(ctx)
		return nil
	})
	e.record(ctx, ActionStop, params, params.TaskID, err)
	if err != nil {
		return fmt.Errorf("stop timer: %w", err)
	}
	return nil
}

// ToggleTimer flips the displayed running state.
func (e *Engine) ToggleTimer(ctx context.Context) error {
	if !e.status.Loaded() {
		return ErrNotLoaded
	}
	target := !e.optimistic.Effective(e.status.Get().Running)

	params := e.timerParams("")
	err := e.optimistic.Perform(ctx, target, func(ctx context.Context) error {
		e.status.MarkMutation()
		if _, err := e.api.ToggleTimer(ctx, params); err != nil {
			return err
		}
		if !target {
			e.ticker.Stop()
			e.ticker.Reset()
		}
		e.refreshAfterAction(ctx)
		return nil
	})
	e.record(ctx, ActionToggle, params, params.TaskID, err)
	if err != nil {
		return fmt.Errorf("toggle timer: %w", err)
	}
	return nil
}

// refreshAfterAction refreshes the status while the optimistic flag is still
// held. A failed refresh is retried by the poll loop.
func (e *Engine) refreshAfterAction(ctx context.Context) {
	if _, err := e.RefreshStatus(ctx); err != nil {
		e.log.Warn("refresh after timer action failed", "error", err)
	}
}

// SwitchTeam makes teamID the active team, stopping a timer that runs in the
// team being left. It reports whether the timer was stopped.
func (e *Engine) SwitchTeam(ctx context.Context, teamID string) (bool, error) {
	current := e.session.Facts().ActiveTeamID
	stopped, err := e.guard.Switch(ctx, current, teamID, func(ctx context.Context, next string) error {
		return e.session.SetActiveTeam(next)
	})
	e.record(ctx, ActionSwitch, map[string]string{"from": current, "to": teamID}, "", err)
	return stopped, err
}

// ComparePlans compares the employee's plan for day. A zero day means today.
func (e *Engine) ComparePlans(ctx context.Context, day time.Time) (dailyplan.Comparison, error) {
	return e.plans.Compare(ctx, e.session.Facts().EmployeeID, day)
}

// OutstandingTasks lists unfinished tasks planned on past days.
func (e *Engine) OutstandingTasks(ctx context.Context) ([]models.DailyPlanTask, error) {
	return e.plans.Outstanding(ctx, e.session.Facts().EmployeeID)
}

// Statistics lists the task statistics of scope.
func (e *Engine) Statistics(scope models.StatScope) ([]models.TaskStatistic, error) {
	if !scope.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidScope, scope)
	}
	return e.stats.Statistics(scope), nil
}

// View is the derived state hosts render.
type View struct {
	SessionID         string               `json:"session_id"`
	Loaded            bool                 `json:"loaded"`
	Running           bool                 `json:"running"`
	EffectiveRunning  bool                 `json:"effective_running"`
	Pending           bool                 `json:"pending"`
	Status            models.TimerStatus   `json:"status"`
	Seconds           int64                `json:"seconds"`
	ActiveTeamID      string               `json:"active_team_id,omitempty"`
	ActiveTask        *models.Task         `json:"active_task,omitempty"`
	Today             models.TaskStatistic `json:"today"`
	Total             models.TaskStatistic `json:"total"`
	EstimationPercent int                  `json:"estimation_percent"`
}

// Snapshot returns the current derived state.
func (e *Engine) Snapshot() View {
	st := e.status.Get()
	_, pending := e.optimistic.Flag()

	v := View{
		SessionID:         e.id,
		Loaded:            e.status.Loaded(),
		Running:           st.Running,
		EffectiveRunning:  e.optimistic.Effective(st.Running),
		Pending:           pending,
		Status:            st,
		Seconds:           e.ticker.Seconds(),
		ActiveTeamID:      e.session.Facts().ActiveTeamID,
		ActiveTask:        e.stats.ActiveTask(),
		EstimationPercent: e.stats.ActiveTaskEstimationPercent(),
	}
	if id := lastLogTask(st); id != "" {
		v.Today = e.stats.GetTaskStatistic(id, models.ScopeToday)
		v.Total = e.stats.GetTaskStatistic(id, models.ScopeTotal)
	}
	return v
}

func (e *Engine) timerParams(taskID string) models.TimerParams {
	facts := e.session.Facts()
	st := e.status.Get()

	teamID := facts.ActiveTeamID
	if taskID == "" {
		taskID = lastLogTask(st)
	}
	// A running log keeps its team.
	if st.Running && st.LastLog != nil && st.LastLog.OrganizationTeamID != "" {
		teamID = st.LastLog.OrganizationTeamID
	}

	return models.TimerParams{
		TenantID:           facts.TenantID,
		OrganizationID:     facts.OrganizationID,
		OrganizationTeamID: teamID,
		TaskID:             taskID,
		LogType:            models.LogTypeTracked,
		Source:             models.SourceTeams,
		Tags:               []string{},
	}
}

func (e *Engine) record(ctx context.Context, action string, inputs interface{}, taskID string, err error) {
	if e.journal == nil {
		return
	}
	outcome, details := audit.Outcome(err)
	if _, jerr := e.journal.Record(ctx, action, inputs, outcome, taskID, details); jerr != nil {
		e.log.Warn("failed to write journal entry", "action", action, "error", jerr)
	}
}

func lastLogTask(st models.TimerStatus) string {
	if st.LastLog == nil {
		return ""
	}
	return st.LastLog.TaskID
}
