// Package reminder turns the persisted settings and user reminders into a
// concrete notification schedule.
package reminder

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"

	"github.com/ramanasai/nudge/internal/config"
	"github.com/ramanasai/nudge/internal/db"
	"github.com/ramanasai/nudge/internal/ledger"
	"github.com/ramanasai/nudge/internal/notify"
	"github.com/ramanasai/nudge/internal/schedule"
)

const (
	MorningID = "morning-reminder"
	EveningID = "evening-reminder"
	SummaryID = "daily-summary"
)

// SummaryTime is when the daily summary goes out, local time.
var SummaryTime = schedule.TimeOfDay{Hour: 21}

// Skip records why something was not scheduled.
type Skip struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Result describes one reschedule pass.
type Result struct {
	Scheduled        []notify.Handle `json:"scheduled"`
	Skipped          []Skip          `json:"skipped,omitempty"`
	Invalid          []Skip          `json:"invalid,omitempty"`
	PermissionDenied bool            `json:"permissionDenied,omitempty"`
}

// IDs returns the scheduled ids, sorted.
func (r Result) IDs() []string {
	ids := make([]string, 0, len(r.Scheduled))
	for _, h := range r.Scheduled {
		ids = append(ids, h.ID)
	}
	sort.Strings(ids)
	return ids
}

type Planner struct {
	kv        db.KV
	seed      config.Settings
	disp      notify.Dispatcher
	sink      notify.Sink
	ledger    *ledger.Ledger
	reminders *Store
	clock     clockwork.Clock
	log       *log.Logger
}

// NewPlanner wires the planner. sink is used for immediate sends; seed is
// saved as the settings record the first time none exists.
func NewPlanner(kv db.KV, seed config.Settings, disp notify.Dispatcher, sink notify.Sink, l *ledger.Ledger, clock clockwork.Clock, logger *log.Logger) *Planner {
	return &Planner{
		kv:        kv,
		seed:      seed,
		disp:      disp,
		sink:      sink,
		ledger:    l,
		reminders: NewStore(kv),
		clock:     clock,
		log:       logger.With("component", "planner"),
	}
}

func (p *Planner) Reminders() *Store { return p.reminders }

// KV is the store holding settings and reminders.
func (p *Planner) KV() db.KV { return p.kv }

func (p *Planner) Settings() (config.Settings, error) {
	return config.LoadSettings(p.kv, p.seed)
}

// Location is the zone named by the current settings.
func (p *Planner) Location() *time.Location {
	s, err := p.Settings()
	if err != nil {
		p.log.Warn("settings unreadable, using seed timezone", "err", err)
		return p.seed.Location()
	}
	return s.Location()
}

// RescheduleAll cancels everything and schedules every enabled rule again
// from the current settings. Running it twice in a row leaves the same set.
func (p *Planner) RescheduleAll() (Result, error) {
	var res Result

	s, err := p.Settings()
	if err != nil {
		return res, err
	}
	if err := p.disp.CancelAll(); err != nil {
		return res, err
	}
	if !s.Enabled {
		p.log.Info("scheduling disabled, nothing scheduled")
		return res, nil
	}
	if !p.disp.RequestPermission() {
		p.log.Warn("notification permission denied, nothing scheduled")
		res.PermissionDenied = true
		return res, nil
	}

	loc := s.Location()
	now := p.clock.Now().In(loc)

	slots := []struct {
		id, name string
		enabled  bool
		at       string
	}{
		{MorningID, "morning", s.MorningEnabled, s.MorningTime},
		{EveningID, "evening", s.EveningEnabled, s.EveningTime},
	}
	for _, sl := range slots {
		if !sl.enabled {
			res.Skipped = append(res.Skipped, Skip{sl.id, "disabled"})
			continue
		}
		at, err := schedule.ParseTimeOfDay(sl.at)
		if err != nil {
			res.Invalid = append(res.Invalid, Skip{sl.id, err.Error()})
			p.log.Error("invalid slot time", "id", sl.id, "err", err)
			continue
		}
		slot := schedule.Slot{
			Name:           sl.name,
			At:             at,
			WeekdayEnabled: s.WeekdayMotivationEnabled,
			WeekendEnabled: s.WeekendMotivationEnabled,
		}
		tr, dt, ok, err := schedule.NextSlotTrigger(slot, now, loc)
		if err != nil {
			res.Invalid = append(res.Invalid, Skip{sl.id, err.Error()})
			continue
		}
		if !ok {
			res.Skipped = append(res.Skipped, Skip{sl.id, dt.String() + " motivation disabled"})
			continue
		}
		p.schedule(&res, sl.id, notify.Motivation(sl.name, now), tr)
	}

	if s.DailySummaryEnabled {
		tr, _, err := schedule.NextTrigger(schedule.Daily(SummaryTime), now, loc)
		if err != nil {
			return res, err
		}
		p.schedule(&res, SummaryID, notify.Content{Title: "Daily summary", Channel: notify.ChannelSummary}, tr)
	}

	if s.TaskRemindersEnabled {
		rems, err := p.reminders.List()
		if err != nil {
			return res, err
		}
		for _, r := range rems {
			id := r.ScheduleID()
			if !r.Active {
				res.Skipped = append(res.Skipped, Skip{id, "inactive"})
				continue
			}
			tr, ok, err := schedule.NextTrigger(r.Rule, now, loc)
			if err != nil {
				p.log.Error("invalid reminder rule", "id", id, "rule", r.Rule.String(), "err", err)
				res.Invalid = append(res.Invalid, Skip{id, err.Error()})
				continue
			}
			if !ok {
				p.log.Warn("one-time reminder is in the past, not scheduled", "id", id, "rule", r.Rule.String())
				res.Skipped = append(res.Skipped, Skip{id, "in the past"})
				continue
			}
			p.schedule(&res, id, notify.Reminder(r.Title, r.Body), tr)
		}
	}

	p.log.Info("rescheduled", "scheduled", len(res.Scheduled), "skipped", len(res.Skipped), "invalid", len(res.Invalid))
	return res, nil
}

func (p *Planner) schedule(res *Result, id string, c notify.Content, tr schedule.Trigger) {
	h, err := p.disp.ScheduleAt(id, c, tr)
	switch {
	case errors.Is(err, notify.ErrPermissionDenied):
		res.PermissionDenied = true
	case err != nil:
		p.log.Error("schedule failed", "id", id, "err", err)
		res.Invalid = append(res.Invalid, Skip{id, err.Error()})
	default:
		res.Scheduled = append(res.Scheduled, h)
	}
}

// SendNow delivers c immediately unless quiet hours are in effect. It
// reports whether the notification went out.
func (p *Planner) SendNow(c notify.Content) (bool, error) {
	s, err := p.Settings()
	if err != nil {
		return false, err
	}
	w, err := schedule.ParseWindow(s.QuietHoursEnabled, s.QuietStartTime, s.QuietEndTime)
	if err != nil {
		return false, err
	}
	if schedule.IsSuppressed(w, p.clock.Now().In(s.Location())) {
		p.log.Info("suppressed by quiet hours", "title", c.Title)
		return false, nil
	}
	if err := p.sink.Send(c); err != nil {
		return false, err
	}
	return true, nil
}

// Render fills in content that depends on delivery time. Install it with
// notify.Local.SetRenderer.
func (p *Planner) Render(id string, c notify.Content) notify.Content {
	if id != SummaryID || p.ledger == nil {
		return c
	}
	e, err := p.ledger.Today()
	if err != nil {
		p.log.Warn("summary uses partial ledger", "err", err)
	}
	return notify.DailySummary(e)
}

// SessionCompleted announces the end of a countdown.
func (p *Planner) SessionCompleted(kind, label string, total time.Duration) {
	if _, err := p.SendNow(notify.SessionComplete(kind, label, total)); err != nil {
		p.log.Warn("session notification failed", "err", err)
	}
}

// CheckMilestones sends a notification for each milestone crossed between
// two lifetime totals, if achievements are enabled.
func (p *Planner) CheckMilestones(before, after int64) []ledger.Milestone {
	crossed := ledger.Crossed(before, after)
	if len(crossed) == 0 {
		return nil
	}
	s, err := p.Settings()
	if err != nil || !s.AchievementsEnabled {
		return crossed
	}
	for _, m := range crossed {
		if _, err := p.SendNow(notify.Milestone(m)); err != nil {
			p.log.Warn("milestone notification failed", "milestone", m.Name, "err", err)
		}
	}
	return crossed
}

// WatchMilestones follows ledger commits until ctx is done.
func (p *Planner) WatchMilestones(ctx context.Context) {
	if p.ledger == nil {
		return
	}
	prev := int64(p.ledger.Lifetime() / time.Second)
	ch, cancel := p.ledger.Totals().Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-ch:
			if !ok {
				return
			}
			if t.LifetimeFocusSeconds > prev {
				p.CheckMilestones(prev, t.LifetimeFocusSeconds)
				prev = t.LifetimeFocusSeconds
			}
		}
	}
}
