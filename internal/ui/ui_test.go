package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"

	"github.com/ramanasai/nudge/internal/db"
	"github.com/ramanasai/nudge/internal/ledger"
	"github.com/ramanasai/nudge/internal/logging"
	"github.com/ramanasai/nudge/internal/session"
)

func newTestModel(t *testing.T) (FocusModel, clockwork.FakeClock, *session.Clock) {
	t.Helper()
	kv, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("open memory db: %v", err)
	}
	t.Cleanup(func() { kv.Close() })
	clk := clockwork.NewFakeClockAt(time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC))
	l := ledger.New(kv, clk, time.UTC, logging.Discard())
	c := session.New(clk, l, logging.Discard())
	m := NewFocusModel(c, l, 25*time.Minute, session.KindFocus, "essay")
	t.Cleanup(m.cancel)
	return m, clk, c
}

func press(m tea.Model, k string) tea.Model {
	var msg tea.KeyMsg
	if k == " " {
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	} else {
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	m, _ = m.Update(msg)
	return m
}

// ============================================================
// Focus model
// ============================================================

func TestFocusModelKeys(t *testing.T) {
	m, clk, c := newTestModel(t)

	var model tea.Model = m
	model = press(model, "s")
	if c.State().Status != session.Running {
		t.Fatalf("expected running, got %s", c.State().Status)
	}

	clk.Advance(5 * time.Minute)
	model, _ = model.Update(tickMsg(clk.Now()))
	if !strings.Contains(model.View(), "20:00") {
		t.Fatalf("view missing countdown:\n%s", model.View())
	}

	model = press(model, " ")
	if c.State().Status != session.Paused {
		t.Fatalf("expected paused, got %s", c.State().Status)
	}
	if !strings.Contains(model.View(), "PAUSED") {
		t.Fatalf("view missing paused marker:\n%s", model.View())
	}

	model = press(model, "s")
	if !strings.Contains(model.View(), "invalid session state") {
		t.Fatalf("expected error in view:\n%s", model.View())
	}

	model = press(model, "r")
	if c.State().Status != session.Idle {
		t.Fatalf("expected idle, got %s", c.State().Status)
	}
}

func TestFormatClock(t *testing.T) {
	cases := map[time.Duration]string{
		0:                                 "00:00",
		1500 * time.Second:                "25:00",
		59*time.Second + time.Millisecond: "01:00",
		time.Hour + 5*time.Second:         "1:00:05",
		-time.Second:                      "00:00",
	}
	for d, want := range cases {
		if got := FormatClock(d); got != want {
			t.Errorf("%v: got %q, want %q", d, got, want)
		}
	}
}

// ============================================================
// Charts
// ============================================================

func TestDayLabel(t *testing.T) {
	if got := dayLabel("2026-10-12", 7); got != "Mon" {
		t.Errorf("week label: got %q", got)
	}
	if got := dayLabel("2026-10-05", 30); got != "5" {
		t.Errorf("month label: got %q", got)
	}
	if got := dayLabel("bogus", 7); got != "bogus" {
		t.Errorf("bad day: got %q", got)
	}
}

func TestLedgerChartAndTable(t *testing.T) {
	entries := []ledger.Entry{
		{Day: "2026-10-12", FocusSeconds: 3600},
		{Day: "2026-10-13", FocusSeconds: 1800, WorkSeconds: 600},
		{Day: "2026-10-14"},
	}
	out := LedgerChart(entries, 40, 10)
	if !strings.Contains(out, "focus") || strings.Count(out, "\n") < 6 {
		t.Fatalf("chart:\n%s", out)
	}

	table := LedgerTable(entries)
	if !strings.Contains(table, "1h00m") || !strings.Contains(table, "1h30m") {
		t.Fatalf("table:\n%s", table)
	}
}
