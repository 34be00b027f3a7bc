// Package tui renders the attached-tab overlay in the terminal with Bubble
// Tea. It owns no business logic: every state change goes through the
// overlay controller, every cross-tab concern through the daemon client.
package tui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/yourname/daybar/internal"
	"github.com/yourname/daybar/internal/client"
	"github.com/yourname/daybar/internal/overlay"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))
)

const pollWait = 10 * time.Second

type tickMsg time.Time

type eventsMsg struct {
	events []internal.TabEvent
	err    error
}

// Model drives the interactive overlay session for one attached tab.
type Model struct {
	ctrl   *overlay.Controller
	cli    *client.Client
	notice string
	err    error

	countdownMinutes int
}

func NewModel(ctrl *overlay.Controller, cli *client.Client, countdownMinutes int) Model {
	if countdownMinutes <= 0 {
		countdownMinutes = 25
	}
	return Model{ctrl: ctrl, cli: cli, countdownMinutes: countdownMinutes}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(), m.poll())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// poll long-polls the daemon for pushed events. A dead daemon is not fatal;
// the overlay keeps rendering from last-known state and the poll retries.
func (m Model) poll() tea.Cmd {
	cli := m.cli
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), pollWait+5*time.Second)
		defer cancel()
		events, err := cli.PollEvents(ctx, pollWait)
		return eventsMsg{events: events, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.ctrl.Render()
		return m, tick()

	case eventsMsg:
		if msg.err == nil {
			m.apply(msg.events)
		}
		return m, m.poll()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "h":
		m.err = m.ctrl.SetHidden(ctx, !m.ctrl.Hidden(), false)
	case "s":
		m.ctrl.ToggleSettingsPanel()
	case "c":
		m.ctrl.ToggleCountdownPanel()
	case "n":
		enabled, err := m.cli.CheckFeature(ctx, internal.FeatureCountdown)
		if err != nil {
			enabled = false
		}
		if !enabled {
			m.notice = "countdown is a pro feature, run `daybar trial` or `daybar upgrade`"
			return m, nil
		}
		m.notice = ""
		m.err = m.ctrl.StartCountdown(ctx, m.countdownMinutes)
	case "r":
		m.err = m.ctrl.ResetCountdown(ctx)
	case "x":
		m.ctrl.StopCountdown()
	}
	return m, nil
}

// apply folds daemon pushes into the controller. Visibility pushes are
// sync-originated, so they must not be written back or re-broadcast.
func (m *Model) apply(events []internal.TabEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, ev := range events {
		switch ev.Type {
		case internal.EventVisibility:
			if ev.Hidden != nil {
				if err := m.ctrl.SetHidden(ctx, *ev.Hidden, true); err != nil {
					m.err = err
				}
			}
		case internal.EventOpenSettings:
			m.ctrl.ToggleSettingsPanel()
		case internal.EventTrialStatus:
			if ev.TrialStatus != nil && ev.TrialStatus.IsActive {
				m.notice = "trial active, countdown unlocked"
			}
		}
	}
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("daybar"))
	b.WriteString("\n\n")
	b.WriteString(m.ctrl.RenderView())
	b.WriteString("\n")
	if m.notice != "" {
		b.WriteString(noticeStyle.Render(m.notice))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(statusBarStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(hintStyle.Render("h hide · s settings · c countdown · n start · r reset · x stop · q quit"))
	return b.String()
}

// Run attaches, starts the controller loop and blocks until the user quits.
func Run(ctrl *overlay.Controller, cli *client.Client, countdownMinutes int) error {
	ctx := context.Background()
	ctrl.Load(ctx)
	ctrl.EnsureMounted()
	ctrl.Start(ctx)
	defer ctrl.Stop()

	p := tea.NewProgram(NewModel(ctrl, cli, countdownMinutes), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
