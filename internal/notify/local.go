package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"

	"github.com/ramanasai/nudge/internal/db"
	"github.com/ramanasai/nudge/internal/schedule"
)

const schedulePrefix = "schedule/"

// Scheduled is one persisted schedule entry.
type Scheduled struct {
	ID        string           `json:"id"`
	Content   Content          `json:"content"`
	Trigger   schedule.Trigger `json:"trigger"`
	Fired     int              `json:"fired"`
	LastFired *time.Time       `json:"lastFired,omitempty"`
}

// Renderer may rewrite content at delivery time, e.g. to fill in totals
// that were unknown when the schedule was made.
type Renderer func(id string, c Content) Content

// Local is a Dispatcher that keeps its schedule in the key/value store and
// delivers due entries through a Sink from Run.
type Local struct {
	mu     sync.Mutex
	kv     db.KV
	clock  clockwork.Clock
	sink   Sink
	log    *log.Logger
	render Renderer
}

var _ Dispatcher = (*Local)(nil)

func NewLocal(kv db.KV, clock clockwork.Clock, sink Sink, logger *log.Logger) *Local {
	return &Local{
		kv:    kv,
		clock: clock,
		sink:  sink,
		log:   logger.With("component", "dispatcher"),
	}
}

func (d *Local) SetRenderer(r Renderer) {
	d.mu.Lock()
	d.render = r
	d.mu.Unlock()
}

// RequestPermission asks the sink whether it may deliver.
func (d *Local) RequestPermission() bool {
	if p, ok := d.sink.(Permitter); ok {
		return p.Permitted()
	}
	return true
}

func (d *Local) ScheduleAt(id string, c Content, t schedule.Trigger) (Handle, error) {
	if id == "" {
		return Handle{}, fmt.Errorf("schedule: empty id")
	}
	if !d.RequestPermission() {
		return Handle{}, ErrPermissionDenied
	}
	if t.Next.IsZero() {
		return Handle{}, fmt.Errorf("schedule %s: %w", id, schedule.ErrInvalidRule)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := db.PutJSON(d.kv, schedulePrefix+id, Scheduled{ID: id, Content: c, Trigger: t}); err != nil {
		return Handle{}, fmt.Errorf("schedule %s: %w", id, err)
	}
	d.log.Debug("scheduled", "id", id, "next", t.Next, "repeats", t.Repeats)
	return Handle{ID: id, Next: t.Next}, nil
}

func (d *Local) Cancel(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.kv.Delete(schedulePrefix + id)
}

func (d *Local) CancelAll() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	keys, err := d.kv.Keys(schedulePrefix)
	if err != nil {
		return err
	}
	var errs []error
	for _, k := range keys {
		if err := d.kv.Delete(k); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Local) List() ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	keys, err := d.kv.Keys(schedulePrefix)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, schedulePrefix))
	}
	sort.Strings(ids)
	return ids, nil
}

// Entries returns every schedule ordered by next delivery.
func (d *Local) Entries() ([]Scheduled, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.entriesLocked()
}

func (d *Local) entriesLocked() ([]Scheduled, error) {
	keys, err := d.kv.Keys(schedulePrefix)
	if err != nil {
		return nil, err
	}
	out := make([]Scheduled, 0, len(keys))
	for _, k := range keys {
		var s Scheduled
		if err := db.GetJSON(d.kv, k, &s); err != nil {
			d.log.Warn("skipping unreadable schedule", "key", k, "err", err)
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Trigger.Next.Before(out[j].Trigger.Next) })
	return out, nil
}

// FireDue delivers every entry whose next instant is not after now. Repeating
// entries move to their next occurrence after now, so occurrences missed
// while nothing was running collapse into one delivery; once entries are
// removed.
func (d *Local) FireDue() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock.Now()
	entries, err := d.entriesLocked()
	if err != nil {
		return 0, err
	}

	fired := 0
	for _, s := range entries {
		if s.Trigger.Next.After(now) {
			break
		}
		c := s.Content
		if d.render != nil {
			c = d.render(s.ID, c)
		}
		if err := d.sink.Send(c); err != nil {
			d.log.Warn("delivery failed", "id", s.ID, "err", err)
		} else {
			fired++
		}

		next, again := s.Trigger.NextAfter(now)
		if !again {
			if err := d.kv.Delete(schedulePrefix + s.ID); err != nil {
				d.log.Warn("could not drop fired schedule", "id", s.ID, "err", err)
			}
			continue
		}
		s.Trigger.Next = next
		s.Fired++
		s.LastFired = &now
		if err := db.PutJSON(d.kv, schedulePrefix+s.ID, s); err != nil {
			d.log.Warn("could not re-arm schedule", "id", s.ID, "err", err)
		}
	}
	return fired, nil
}

// Run checks for due schedules every period until ctx is done.
func (d *Local) Run(ctx context.Context, period time.Duration) error {
	t := d.clock.NewTicker(period)
	defer t.Stop()

	if _, err := d.FireDue(); err != nil {
		d.log.Error("fire due", "err", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.Chan():
			if _, err := d.FireDue(); err != nil {
				d.log.Error("fire due", "err", err)
			}
		}
	}
}
