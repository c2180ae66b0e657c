package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"

	"github.com/ramanasai/nudge/internal/ledger"
)

// LedgerChart draws one stacked bar per day, focus over work, in minutes.
func LedgerChart(entries []ledger.Entry, width, height int) string {
	if width < 20 {
		width = 20
	}
	if height < 6 {
		height = 6
	}
	t := DefaultTheme
	focusStyle := lipgloss.NewStyle().Foreground(t.Focus)
	workStyle := lipgloss.NewStyle().Foreground(t.Work)

	chart := barchart.New(width, height)
	bars := make([]barchart.BarData, 0, len(entries))
	for _, e := range entries {
		bars = append(bars, barchart.BarData{
			Label: dayLabel(e.Day, len(entries)),
			Values: []barchart.BarValue{
				{Name: "focus", Value: float64(e.FocusSeconds) / 60, Style: focusStyle},
				{Name: "work", Value: float64(e.WorkSeconds) / 60, Style: workStyle},
			},
		})
	}
	chart.PushAll(bars)
	chart.Draw()

	legend := lipgloss.JoinHorizontal(lipgloss.Top,
		focusStyle.Render("█ focus"), "  ", workStyle.Render("█ work"))
	return lipgloss.JoinVertical(lipgloss.Left, chart.View(), legend)
}

// dayLabel shortens labels as the range grows so bars stay readable.
func dayLabel(day string, n int) string {
	d, err := time.Parse("2006-01-02", day)
	if err != nil {
		return day
	}
	switch {
	case n <= 7:
		return d.Format("Mon")
	case n <= 14:
		return d.Format("02")
	}
	return d.Format("2")
}

// LedgerTable renders entries as aligned rows with a total line.
func LedgerTable(entries []ledger.Entry) string {
	t := DefaultTheme
	var b strings.Builder
	var focus, work int64
	b.WriteString(t.Label.Render(fmt.Sprintf("%-12s %8s %8s", "day", "focus", "work")))
	b.WriteString("\n")
	for _, e := range entries {
		focus += e.FocusSeconds
		work += e.WorkSeconds
		fmt.Fprintf(&b, "%-12s %8s %8s\n", e.Day, minutes(e.FocusSeconds), minutes(e.WorkSeconds))
	}
	b.WriteString(t.Title.Render(fmt.Sprintf("%-12s %8s %8s", "total", minutes(focus), minutes(work))))
	return b.String()
}

func minutes(secs int64) string {
	m := secs / 60
	if m >= 60 {
		return fmt.Sprintf("%dh%02dm", m/60, m%60)
	}
	return fmt.Sprintf("%dm", m)
}
