// Package notify delivers reminders to the desktop. The Dispatcher contract
// mirrors an OS notification center: callers decide what to show and when,
// the dispatcher keeps the schedule and delivers it.
package notify

import (
	"errors"
	"time"

	"github.com/ramanasai/nudge/internal/schedule"
)

// ErrPermissionDenied means notifications are not allowed, so scheduling
// did nothing.
var ErrPermissionDenied = errors.New("notification permission denied")

type Channel string

const (
	ChannelMotivation   Channel = "motivation"
	ChannelReminders    Channel = "reminders"
	ChannelSummary      Channel = "summary"
	ChannelAchievements Channel = "achievements"
	ChannelSession      Channel = "session"
)

type Content struct {
	Title   string  `json:"title"`
	Body    string  `json:"body"`
	Channel Channel `json:"channel"`
}

// Handle identifies a scheduled notification.
type Handle struct {
	ID   string    `json:"id"`
	Next time.Time `json:"next"`
}

type Dispatcher interface {
	// ScheduleAt replaces any schedule already registered under id.
	ScheduleAt(id string, c Content, t schedule.Trigger) (Handle, error)
	Cancel(id string) error
	CancelAll() error
	List() ([]string, error)
	RequestPermission() bool
}

// Sink shows a notification right now.
type Sink interface {
	Send(c Content) error
}

// Permitter is implemented by sinks that can refuse delivery.
type Permitter interface {
	Permitted() bool
}
