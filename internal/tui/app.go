// Package tui provides the terminal watch view for the teamtimer daemon.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/teamtimer/internal/dailyplan"
	"github.com/fentz26/teamtimer/internal/engine"
)

var (
	// Colors
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	cyanColor    = lipgloss.Color("#06B6D4")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	clockStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(1, 4).
			Border(lipgloss.RoundedBorder())

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	mutedStyle  = lipgloss.NewStyle().Foreground(mutedColor)
	onlineStyle = lipgloss.NewStyle().Foreground(successColor).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(errorColor)
)

// refreshInterval is how often the watch view polls the daemon.
const refreshInterval = time.Second

type keyMap struct {
	Toggle  key.Binding
	Start   key.Binding
	Stop    key.Binding
	Refresh key.Binding
	Command key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Command, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Start, k.Stop},
		{k.Refresh, k.Command, k.Help, k.Quit},
	}
}

var keys = keyMap{
	Toggle:  key.NewBinding(key.WithKeys(" ", "t"), key.WithHelp("space", "toggle timer")),
	Start:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start")),
	Stop:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop")),
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Command: key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "command")),
	Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// App is the watch view model.
type App struct {
	client      *Client
	view        *engine.View
	plan        *dailyplan.Comparison
	outstanding int
	cmdbar      *CmdBarModel
	help        help.Model
	width       int
	online      bool
	err         error
}

// New creates a new watch view talking to the daemon at apiAddr.
func New(apiAddr string) *App {
	return &App{
		client: NewClient(apiAddr),
		cmdbar: NewCmdBarModel(),
		help:   help.New(),
	}
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

type viewMsg struct {
	view *engine.View
}

type planMsg struct {
	plan        *dailyplan.Comparison
	outstanding int
}

type cmdResultMsg struct {
	message string
	view    *engine.View
}

type tickMsg time.Time

type errMsg struct {
	err error
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		fetchView(a.client, true),
		fetchPlan(a.client),
		tick(),
	)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if a.cmdbar.Focused() {
			if msg.String() == "enter" {
				return a, a.cmdbar.Execute(a.client, a.cmdbar.Submit())
			}
			return a, a.cmdbar.Update(msg)
		}
		switch {
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Toggle):
			return a, a.cmdbar.Execute(a.client, "toggle")
		case key.Matches(msg, keys.Start):
			return a, a.cmdbar.Execute(a.client, "start")
		case key.Matches(msg, keys.Stop):
			return a, a.cmdbar.Execute(a.client, "stop")
		case key.Matches(msg, keys.Refresh):
			return a, tea.Batch(fetchView(a.client, true), fetchPlan(a.client))
		case key.Matches(msg, keys.Command):
			return a, a.cmdbar.Focus()
		case key.Matches(msg, keys.Help):
			a.help.ShowAll = !a.help.ShowAll
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.help.Width = msg.Width

	case tickMsg:
		return a, tea.Batch(fetchView(a.client, false), tick())

	case viewMsg:
		a.view = msg.view
		a.online = true
		a.err = nil

	case planMsg:
		a.plan = msg.plan
		a.outstanding = msg.outstanding

	case cmdResultMsg:
		a.cmdbar.SetMessage(msg.message)
		if msg.view != nil {
			a.view = msg.view
		}

	case errMsg:
		a.online = false
		a.err = msg.err
	}
	return a, nil
}

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	daemon := onlineStyle.Render("● DAEMON")
	if !a.online {
		daemon = errorStyle.Render("○ DAEMON")
	}
	header := titleStyle.Render("teamtimer") + "  " + daemon
	if a.view != nil && a.view.ActiveTeamID != "" {
		header += "  " + lipgloss.NewStyle().Foreground(cyanColor).Render("team "+a.view.ActiveTeamID)
	}
	b.WriteString(header + "\n\n")

	if a.view == nil {
		msg := "Connecting to daemon..."
		if a.err != nil {
			msg = "Error: " + a.err.Error()
		}
		b.WriteString(mutedStyle.Render(msg) + "\n")
	} else {
		b.WriteString(renderClock(a.view) + "\n")
		b.WriteString(renderTask(a.view) + "\n")
	}

	if a.plan != nil {
		b.WriteString(renderPlan(a.plan, a.outstanding) + "\n")
	}

	b.WriteString(a.cmdbar.View() + "\n")
	b.WriteString(a.help.View(keys))
	return b.String()
}

func renderClock(v *engine.View) string {
	style := clockStyle.BorderForeground(mutedColor).Foreground(mutedColor)
	state := "stopped"
	switch {
	case v.Pending:
		style = clockStyle.BorderForeground(warningColor).Foreground(warningColor)
		state = "syncing"
	case v.EffectiveRunning:
		style = clockStyle.BorderForeground(successColor).Foreground(successColor)
		state = "running"
	}
	if !v.Loaded {
		state = "loading"
	}
	return style.Render(formatClock(v.Seconds)) + "  " + mutedStyle.Render(state)
}

func renderTask(v *engine.View) string {
	var b strings.Builder
	if v.ActiveTask == nil {
		b.WriteString(mutedStyle.Render("No active task") + "\n")
	} else {
		title := v.ActiveTask.Title
		if v.ActiveTask.Number > 0 {
			title = fmt.Sprintf("#%d %s", v.ActiveTask.Number, title)
		}
		b.WriteString(lipgloss.NewStyle().Bold(true).Render(title) + "\n")
	}
	b.WriteString(fmt.Sprintf("Today %s   Total %s\n",
		formatClock(v.Today.Duration), formatClock(v.Total.Duration)))
	if v.ActiveTask != nil && v.ActiveTask.Estimate != nil && *v.ActiveTask.Estimate > 0 {
		b.WriteString(progressBar(v.EstimationPercent, 30) + fmt.Sprintf(" %d%% of estimate", v.EstimationPercent) + "\n")
	}
	return panelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func renderPlan(c *dailyplan.Comparison, outstanding int) string {
	if c.Plan == nil {
		return panelStyle.Render(mutedStyle.Render("No plan for today"))
	}
	planned := time.Duration(c.WorkTimePlanned * float64(time.Second))
	line := fmt.Sprintf("Planned %s", formatClock(int64(planned.Seconds())))
	if c.Difference {
		line += "  " + onlineStyle.Render("estimates match plan")
	} else {
		line += "  " + lipgloss.NewStyle().Foreground(warningColor).Render("estimates differ from plan")
	}
	if outstanding > 0 {
		line += "\n" + mutedStyle.Render(fmt.Sprintf("%d outstanding task(s) from earlier plans", outstanding))
	}
	return panelStyle.Render(line)
}

// formatClock renders seconds as HH:MM:SS.
func formatClock(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, seconds/60%60, seconds%60)
}

func progressBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	filled := percent * width / 100
	if filled > width {
		filled = width
	}
	color := successColor
	if percent >= 100 {
		color = errorColor
	} else if percent >= 80 {
		color = warningColor
	}
	return lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled)) +
		mutedStyle.Render(strings.Repeat("░", width-filled))
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchView(c *Client, refresh bool) tea.Cmd {
	return func() tea.Msg {
		view, err := c.Timer(refresh)
		if err != nil {
			return errMsg{err}
		}
		return viewMsg{view}
	}
}

func fetchPlan(c *Client) tea.Cmd {
	return func() tea.Msg {
		plan, err := c.ComparePlans()
		if err != nil {
			return cmdResultMsg{message: fmt.Sprintf("Plan unavailable: %v", err)}
		}
		tasks, err := c.Outstanding()
		if err != nil {
			return planMsg{plan: plan}
		}
		return planMsg{plan: plan, outstanding: len(tasks)}
	}
}
