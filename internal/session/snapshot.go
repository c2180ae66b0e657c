package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ramanasai/nudge/internal/db"
)

// SnapshotKey is where the singleton session is persisted.
const SnapshotKey = "session"

// Snapshot is the persisted form of a session. The stored copy is the
// session; every process holding a Clock reloads it before acting.
// RemainingMillis is the time left at RunStartedAt for a running session.
type Snapshot struct {
	Revision        string     `json:"revision,omitempty"`
	Status          Status     `json:"status"`
	Kind            Kind       `json:"kind"`
	Label           string     `json:"label,omitempty"`
	TotalMillis     int64      `json:"totalMs"`
	RemainingMillis int64      `json:"remainingMs"`
	RunStartedAt    *time.Time `json:"runStartedAt,omitempty"`
}

func snapshotOf(st State, base time.Duration) Snapshot {
	rem := st.Remaining
	if st.Status == Running {
		rem = base
	}
	return Snapshot{
		Revision:        uuid.NewString(),
		Status:          st.Status,
		Kind:            st.Kind,
		Label:           st.Label,
		TotalMillis:     st.Total.Milliseconds(),
		RemainingMillis: rem.Milliseconds(),
		RunStartedAt:    st.RunStartedAt,
	}
}

// saveLocked writes next over the copy this clock last saw. When the store
// supports it the write is conditional; losing means another process moved
// first, and its session is adopted instead.
func (c *Clock) saveLocked(next State, base time.Duration) error {
	if c.store == nil {
		return nil
	}
	b, err := json.Marshal(snapshotOf(next, base))
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	raw := string(b)

	sw, ok := c.store.(db.Swapper)
	if !ok {
		if err := c.store.Set(SnapshotKey, raw); err != nil {
			c.log.Warn("session not persisted", "err", err)
			return nil
		}
		c.raw = raw
		return nil
	}
	swapped, err := sw.Swap(SnapshotKey, c.raw, raw)
	if err != nil {
		c.log.Warn("session not persisted", "err", err)
		return nil
	}
	if !swapped {
		if err := c.syncLocked(); err != nil {
			return err
		}
		return ErrConflict
	}
	c.raw = raw
	return nil
}

// syncLocked adopts the stored session if it changed since this clock last
// read or wrote it.
func (c *Clock) syncLocked() error {
	if c.store == nil {
		return nil
	}
	raw, err := c.readLocked()
	if err != nil {
		return err
	}
	if raw == c.raw {
		return nil
	}
	if err := c.adoptLocked(raw); err != nil {
		c.log.Warn("ignoring unreadable session", "err", err)
	}
	c.raw = raw
	return nil
}

func (c *Clock) readLocked() (string, error) {
	raw, err := c.store.Get(SnapshotKey)
	if errors.Is(err, db.ErrNotFound) {
		return "", nil
	}
	return raw, err
}

func (c *Clock) adoptLocked(raw string) error {
	if raw == "" {
		return nil
	}
	var s Snapshot
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	return c.restoreLocked(s)
}

// Persist makes kv the home of the session: the stored session is restored
// now and reloaded before every later command and tick. A session that ran
// while no process was watching is recomputed from the wall clock, which
// may complete it.
func (c *Clock) Persist(kv db.KV) error {
	c.mu.Lock()
	c.store = kv
	raw, err := c.readLocked()
	if err == nil {
		err = c.adoptLocked(raw)
	}
	if err != nil {
		c.store = nil
		c.mu.Unlock()
		return err
	}
	c.raw = raw
	c.mu.Unlock()

	c.Tick()
	return nil
}

func (c *Clock) restoreLocked(s Snapshot) error {
	if s.TotalMillis < 0 || s.RemainingMillis < 0 || s.RemainingMillis > s.TotalMillis {
		return fmt.Errorf("restore session: remaining %dms outside total %dms", s.RemainingMillis, s.TotalMillis)
	}
	kind, err := ParseKind(string(s.Kind))
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	if s.Status == Running && s.RunStartedAt == nil {
		return fmt.Errorf("restore session: running without start time")
	}

	c.disarmLocked()
	c.st = State{
		Status:    s.Status,
		Kind:      kind,
		Label:     s.Label,
		Total:     time.Duration(s.TotalMillis) * time.Millisecond,
		Remaining: time.Duration(s.RemainingMillis) * time.Millisecond,
	}
	c.base = c.st.Remaining
	if s.Status == Running {
		started := *s.RunStartedAt
		c.st.RunStartedAt = &started
		c.lastTick = c.clock.Now()
		c.armLocked()
		if rem := c.base - c.clampedElapsedLocked(); rem < c.st.Remaining {
			c.st.Remaining = rem
		}
	}
	c.progress.Publish(c.st.progress())
	c.control.Publish(c.st.control())
	return nil
}
