package notify

import (
	"fmt"
	"time"

	"github.com/ramanasai/nudge/internal/ledger"
	"github.com/ramanasai/nudge/internal/schedule"
)

var motivation = map[string]map[schedule.DayType][]string{
	"morning": {
		schedule.Weekday: {
			"Pick the one task that matters most today and give it your first focus block.",
			"A fresh day. Twenty-five minutes of focus is a good start.",
			"Clear the desk, silence the phone, start the timer.",
		},
		schedule.Weekend: {
			"Slow morning? A short focus session still counts.",
			"Weekend plans can include one thing for future you.",
		},
	},
	"evening": {
		schedule.Weekday: {
			"How did today go? Jot down what you finished before you switch off.",
			"Wind down: note tomorrow's first task so the morning starts easy.",
		},
		schedule.Weekend: {
			"Rest is part of the work. See you tomorrow.",
			"Take a minute to plan the week ahead.",
		},
	},
}

var slotTitles = map[string]string{
	"morning": "Good morning",
	"evening": "Evening check-in",
}

// Motivation returns the message for a named slot on a given day. The
// message rotates by day of year so repeated reschedules on one day agree.
func Motivation(slot string, day time.Time) Content {
	msgs := motivation[slot][schedule.DayTypeOf(day)]
	body := "Time for a focus session."
	if len(msgs) > 0 {
		body = msgs[day.YearDay()%len(msgs)]
	}
	title := slotTitles[slot]
	if title == "" {
		title = "Nudge"
	}
	return Content{Title: title, Body: body, Channel: ChannelMotivation}
}

func Reminder(title, body string) Content {
	if body == "" {
		body = title
		title = "Reminder"
	}
	return Content{Title: title, Body: body, Channel: ChannelReminders}
}

// DailySummary describes a day's ledger entry.
func DailySummary(e ledger.Entry) Content {
	var body string
	switch {
	case e.FocusSeconds == 0 && e.WorkSeconds == 0:
		body = "No focus time logged today. Tomorrow is a new start."
	case e.WorkSeconds == 0:
		body = fmt.Sprintf("You focused for %s today.", formatMinutes(e.TotalFocusMinutes()))
	default:
		body = fmt.Sprintf("Focus %s, work %s today.",
			formatMinutes(e.TotalFocusMinutes()), formatMinutes(e.TotalWorkMinutes()))
	}
	return Content{Title: "Daily summary", Body: body, Channel: ChannelSummary}
}

func Milestone(m ledger.Milestone) Content {
	return Content{
		Title:   "Milestone: " + m.Name,
		Body:    m.Subtitle + ". " + m.Message,
		Channel: ChannelAchievements,
	}
}

// SessionComplete is shown when a countdown reaches zero.
func SessionComplete(kind, label string, total time.Duration) Content {
	title := "Focus session complete"
	switch kind {
	case "work":
		title = "Work session complete"
	case "break":
		title = "Break is over"
	}
	body := fmt.Sprintf("%s finished.", formatMinutes(int64(total/time.Minute)))
	if label != "" {
		body = fmt.Sprintf("%s on %q finished.", formatMinutes(int64(total/time.Minute)), label)
	}
	return Content{Title: title, Body: body, Channel: ChannelSession}
}

func formatMinutes(m int64) string {
	h, mm := m/60, m%60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", mm)
	case mm == 0:
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, mm)
}
