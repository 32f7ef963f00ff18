// Package tui provides the terminal activity monitor for taskmap.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"taskmap/internal/monitor"
	"taskmap/internal/state"
	"taskmap/pkg/models"
)

const refreshInterval = 2 * time.Second

// snapshotMsg carries one refresh of the data shown on screen.
type snapshotMsg struct {
	tasks      []models.Task
	executions []models.TaskExecution
	recentPRs  []models.TaskExecution
	err        error
}

// tickMsg schedules the next refresh.
type tickMsg time.Time

// App is the bubbletea model for the activity monitor.
type App struct {
	store   state.StateStore
	monitor *monitor.PrMonitor
	window  int

	spinner  spinner.Model
	tasks    []models.Task
	active   []models.TaskExecution
	recent   []models.TaskExecution
	loadErr  error
	width    int
	quitting bool
}

// New creates an activity monitor over the store. window is the PR
// activity window in hours.
func New(store state.StateStore, windowHours int) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle
	return &App{
		store:   store,
		monitor: monitor.NewPrMonitor(store),
		window:  windowHours,
		spinner: sp,
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, a.refresh, tick())
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			a.quitting = true
			return a, tea.Quit
		case "r":
			return a, a.refresh
		}
	case tea.WindowSizeMsg:
		a.width = msg.Width
	case snapshotMsg:
		a.loadErr = msg.err
		if msg.err == nil {
			a.tasks = msg.tasks
			a.active = msg.executions
			a.recent = msg.recentPRs
		}
	case tickMsg:
		return a, tea.Batch(a.refresh, tick())
	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}
	return a, nil
}

// View implements tea.Model.
func (a *App) View() string {
	if a.quitting {
		return ""
	}

	var out string
	out += titleStyle.Render("taskmap activity") + "\n\n"
	if a.loadErr != nil {
		out += errorStyle.Render(fmt.Sprintf("error: %v", a.loadErr)) + "\n"
		return out
	}

	out += a.renderTasks()
	out += a.renderActive()
	out += a.renderRecentPRs()
	out += helpStyle.Render("r refresh · q quit") + "\n"
	return out
}

func (a *App) renderTasks() string {
	counts := map[models.TaskStatus]int{}
	for _, t := range a.tasks {
		counts[t.Status]++
	}
	line := fmt.Sprintf("Tasks: %d total · %d pending · %d in progress · %d done · %d failed",
		len(a.tasks),
		counts[models.TaskStatusPending],
		counts[models.TaskStatusInProgress],
		counts[models.TaskStatusDone],
		counts[models.TaskStatusFailed])
	return sectionStyle.Render(line) + "\n\n"
}

func (a *App) renderActive() string {
	out := headerStyle.Render("Active executions") + "\n"
	if len(a.active) == 0 {
		return out + dimStyle.Render("  none") + "\n\n"
	}
	for _, e := range a.active {
		out += fmt.Sprintf("  %s %s %s %s\n",
			a.spinner.View(),
			shortID(e.TaskID),
			statusBadge(e.Status),
			dimStyle.Render(formatElapsed(time.Since(e.StartedAt))))
	}
	return out + "\n"
}

func (a *App) renderRecentPRs() string {
	out := headerStyle.Render(fmt.Sprintf("PR activity (last %dh)", a.window)) + "\n"
	if len(a.recent) == 0 {
		return out + dimStyle.Render("  none") + "\n\n"
	}
	for _, e := range a.recent {
		label := e.PRUrl
		if e.PRNumber > 0 {
			label = fmt.Sprintf("#%d %s", e.PRNumber, e.PRUrl)
		}
		out += fmt.Sprintf("  %s %s %s\n", shortID(e.TaskID), statusBadge(e.Status), label)
	}
	return out + "\n"
}

// refresh loads one snapshot from the store.
func (a *App) refresh() tea.Msg {
	tasks, err := a.store.ListTasks()
	if err != nil {
		return snapshotMsg{err: err}
	}

	var active []models.TaskExecution
	executions, err := a.store.ListExecutions()
	if err != nil {
		return snapshotMsg{err: err}
	}
	for _, e := range executions {
		if !e.Status.Terminal() {
			active = append(active, e)
		}
	}

	recent, err := a.monitor.GetRecentPRActivity(a.window)
	if err != nil {
		return snapshotMsg{err: err}
	}
	return snapshotMsg{tasks: tasks, executions: active, recentPRs: recent}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatElapsed(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

func statusBadge(s models.ExecutionStatus) string {
	switch s {
	case models.ExecutionRunning:
		return runningStyle.Render(string(s))
	case models.ExecutionSuccess:
		return successStyle.Render(string(s))
	case models.ExecutionFailed:
		return errorStyle.Render(string(s))
	default:
		return dimStyle.Render(string(s))
	}
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	headerStyle  = lipgloss.NewStyle().Bold(true)
	sectionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)
