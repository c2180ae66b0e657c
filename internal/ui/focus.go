// Package ui renders the terminal focus view and ledger charts.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ramanasai/nudge/internal/ledger"
	"github.com/ramanasai/nudge/internal/session"
)

type tickMsg time.Time

type totalsMsg ledger.Totals

func tickCmd(every time.Duration) tea.Cmd {
	return tea.Tick(every, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func waitTotals(ch <-chan ledger.Totals) tea.Cmd {
	return func() tea.Msg {
		t, ok := <-ch
		if !ok {
			return nil
		}
		return totalsMsg(t)
	}
}

// FocusModel drives a session clock from the keyboard.
type FocusModel struct {
	clock    *session.Clock
	duration time.Duration
	kind     session.Kind
	label    string
	every    time.Duration

	state  session.State
	totals ledger.Totals
	ch     <-chan ledger.Totals
	cancel func()
	err    error

	bar   progress.Model
	help  help.Model
	theme Theme
	width int
}

// NewFocusModel builds the view; s and space start runs of d with kind and label.
func NewFocusModel(c *session.Clock, l *ledger.Ledger, d time.Duration, kind session.Kind, label string) FocusModel {
	ch, cancel := l.Totals().Subscribe()
	m := FocusModel{
		clock:    c,
		duration: d,
		kind:     kind,
		label:    label,
		every:    time.Second,
		state:    c.State(),
		ch:       ch,
		cancel:   cancel,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		help:     help.New(),
		theme:    DefaultTheme,
	}
	if e, err := l.Today(); err == nil {
		m.totals = ledger.Totals{Day: e.Day, TotalFocusMinutes: e.TotalFocusMinutes(), TotalWorkMinutes: e.TotalWorkMinutes()}
	}
	return m
}

func (m FocusModel) Init() tea.Cmd {
	return tea.Batch(tickCmd(m.every), waitTotals(m.ch))
}

func (m FocusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(msg.Width-8, 60)
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		m.clock.Tick()
		m.state = m.clock.State()
		return m, tickCmd(m.every)

	case totalsMsg:
		m.totals = ledger.Totals(msg)
		return m, waitTotals(m.ch)

	case tea.KeyMsg:
		m.err = nil
		switch {
		case key.Matches(msg, keys.Quit):
			m.cancel()
			return m, tea.Quit
		case key.Matches(msg, keys.Start):
			m.err = m.clock.Start(m.duration, m.kind, m.label)
		case key.Matches(msg, keys.Toggle):
			switch m.clock.State().Status {
			case session.Running:
				m.err = m.clock.Pause()
			case session.Paused:
				m.err = m.clock.Resume()
			default:
				m.err = m.clock.Start(m.duration, m.kind, m.label)
			}
		case key.Matches(msg, keys.Reset):
			m.err = m.clock.Reset()
		case key.Matches(msg, keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
		m.state = m.clock.State()
	}
	return m, nil
}

func (m FocusModel) View() string {
	t := m.theme
	st := m.state

	var status string
	switch st.Status {
	case session.Running:
		status = t.Success.Render("RUNNING")
	case session.Paused:
		status = t.Paused.Render("PAUSED")
	case session.Completed:
		status = t.Success.Render("COMPLETE")
	default:
		status = t.Label.Render("IDLE")
	}

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		t.Title.Render(strings.ToUpper(string(st.Kind))), "  ", status)
	if st.Label != "" {
		header += "  " + t.Value.Render(st.Label)
	}

	var done float64
	if st.Total > 0 {
		done = 1 - float64(st.Remaining)/float64(st.Total)
	}

	lines := []string{
		header,
		"",
		t.Clock.Render(FormatClock(st.Remaining)),
		m.bar.ViewAs(done),
		"",
		t.Label.Render("today ") + t.Value.Render(fmt.Sprintf("focus %dm  work %dm", m.totals.TotalFocusMinutes, m.totals.TotalWorkMinutes)),
	}
	if m.err != nil {
		lines = append(lines, t.Error.Render(m.err.Error()))
	}
	lines = append(lines, "", m.help.View(keys))
	return t.Border.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// FormatClock renders a countdown as MM:SS, or H:MM:SS past an hour.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64((d + time.Second - 1) / time.Second)
	h, mm, ss := secs/3600, (secs%3600)/60, secs%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, mm, ss)
	}
	return fmt.Sprintf("%02d:%02d", mm, ss)
}
