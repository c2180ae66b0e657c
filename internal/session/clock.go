// Package session implements the countdown timer behind a focus session.
//
// Remaining time is always derived from the wall clock: a run remembers the
// instant it entered Running and how much time it had left at that instant,
// so a tick that arrives late, or not at all for hours, is handled by one
// recomputation.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"

	"github.com/ramanasai/nudge/internal/db"
	"github.com/ramanasai/nudge/internal/ledger"
	"github.com/ramanasai/nudge/internal/pubsub"
)

var (
	ErrInvalidState    = errors.New("invalid session state")
	ErrInvalidDuration = errors.New("duration must be positive")
	// ErrConflict means another process changed the session first; the
	// stored session has been adopted and the command can be retried.
	ErrConflict = errors.New("session changed by another process")
)

// Committer receives elapsed running time. *ledger.Ledger satisfies it.
type Committer interface {
	CommitNow(elapsed time.Duration, b ledger.Bucket) error
}

// DefaultAnomalyGap is the tick gap above which a ClockAnomaly is logged.
const DefaultAnomalyGap = 10 * time.Second

type Clock struct {
	mu     sync.Mutex
	clock  clockwork.Clock
	ledger Committer
	log    *log.Logger
	store  db.KV
	// raw is the stored session as last read or written by this clock.
	raw string

	st State
	// base is the remaining time at RunStartedAt.
	base     time.Duration
	lastTick time.Time
	timer    clockwork.Timer

	anomalyGap time.Duration
	onComplete []func(State)

	progress *pubsub.Topic[Progress]
	control  *pubsub.Topic[Control]
}

func New(clock clockwork.Clock, committer Committer, logger *log.Logger) *Clock {
	return &Clock{
		clock:      clock,
		ledger:     committer,
		log:        logger.With("component", "session"),
		st:         State{Status: Idle, Kind: KindFocus},
		anomalyGap: DefaultAnomalyGap,
		progress:   pubsub.NewTopic[Progress](),
		control:    pubsub.NewTopic[Control](),
	}
}

// SetAnomalyGap changes the tick gap considered a clock anomaly.
func (c *Clock) SetAnomalyGap(d time.Duration) {
	c.mu.Lock()
	c.anomalyGap = d
	c.mu.Unlock()
}

// OnComplete registers fn to run once per completed run, outside the lock.
func (c *Clock) OnComplete(fn func(State)) {
	c.mu.Lock()
	c.onComplete = append(c.onComplete, fn)
	c.mu.Unlock()
}

func (c *Clock) Progress() *pubsub.Topic[Progress] { return c.progress }
func (c *Clock) Control() *pubsub.Topic[Control]   { return c.control }

// State returns the session recomputed to now without committing anything.
func (c *Clock) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.syncLocked(); err != nil {
		c.log.Debug("session not reloaded", "err", err)
	}
	st := c.st
	if st.Status == Running {
		st.Remaining = c.base - c.elapsedLocked()
		if st.Remaining < 0 {
			st.Remaining = 0
		}
	}
	return st
}

// Start begins a new run. Valid from Idle or Completed.
func (c *Clock) Start(d time.Duration, kind Kind, label string) error {
	if d <= 0 {
		return ErrInvalidDuration
	}
	kind, err := ParseKind(string(kind))
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.syncLocked(); err != nil {
		return err
	}
	if c.st.Status != Idle && c.st.Status != Completed {
		c.log.Warn("start ignored", "status", c.st.Status)
		return fmt.Errorf("%w: start while %s", ErrInvalidState, c.st.Status)
	}
	now := c.clock.Now()
	next := State{Status: Running, Kind: kind, Label: label, Total: d, Remaining: d, RunStartedAt: &now}
	c.lastTick = now
	if err := c.applyLocked(next, d, 0); err != nil {
		return err
	}
	c.log.Info("session started", "kind", kind, "duration", d, "label", label)
	return nil
}

// Pause commits the time spent running and stops the countdown. If the run
// has already used up its time it completes instead.
func (c *Clock) Pause() error {
	c.mu.Lock()
	if err := c.syncLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.st.Status != Running {
		st := c.st.Status
		c.mu.Unlock()
		return fmt.Errorf("%w: pause while %s", ErrInvalidState, st)
	}
	elapsed := c.clampedElapsedLocked()
	if elapsed >= c.base {
		fire, err := c.completeLocked(elapsed)
		c.mu.Unlock()
		fire()
		return err
	}
	next := c.st
	next.Status = Paused
	next.Remaining = c.base - elapsed
	next.RunStartedAt = nil
	err := c.applyLocked(next, next.Remaining, elapsed)
	c.mu.Unlock()

	if err == nil {
		c.log.Debug("session paused", "elapsed", elapsed)
	}
	return err
}

// Resume restarts the countdown from where Pause left it.
func (c *Clock) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.syncLocked(); err != nil {
		return err
	}
	if c.st.Status != Paused {
		return fmt.Errorf("%w: resume while %s", ErrInvalidState, c.st.Status)
	}
	now := c.clock.Now()
	next := c.st
	next.Status = Running
	next.RunStartedAt = &now
	c.lastTick = now
	return c.applyLocked(next, next.Remaining, 0)
}

// Reset returns to Idle from any state, committing a running segment first.
func (c *Clock) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.syncLocked(); err != nil {
		return err
	}
	var elapsed time.Duration
	if c.st.Status == Running {
		elapsed = c.clampedElapsedLocked()
	}
	next := c.st
	next.Status = Idle
	next.Remaining = next.Total
	next.RunStartedAt = nil
	return c.applyLocked(next, next.Total, elapsed)
}

// SetDuration changes the length of the next run. Valid from Idle or
// Completed; a completed session returns to Idle.
func (c *Clock) SetDuration(d time.Duration) error {
	if d <= 0 {
		return ErrInvalidDuration
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.syncLocked(); err != nil {
		return err
	}
	if c.st.Status != Idle && c.st.Status != Completed {
		return fmt.Errorf("%w: set duration while %s", ErrInvalidState, c.st.Status)
	}
	next := c.st
	next.Status = Idle
	next.Total = d
	next.Remaining = d
	return c.applyLocked(next, d, 0)
}

// Tick recomputes the remaining time from the wall clock. It only has an
// effect while Running and completes the run when nothing is left.
func (c *Clock) Tick() { c.tick(true) }

// expire is the armed completion; it is not a periodic tick.
func (c *Clock) expire() { c.tick(false) }

func (c *Clock) tick(periodic bool) {
	c.mu.Lock()
	if err := c.syncLocked(); err != nil {
		c.log.Warn("session not reloaded", "err", err)
	}
	if c.st.Status != Running {
		c.mu.Unlock()
		return
	}
	now := c.clock.Now()
	if gap := now.Sub(c.lastTick); periodic && (gap > c.anomalyGap || gap < 0) {
		c.log.Warn("clock anomaly", "gap", gap)
	}
	c.lastTick = now

	elapsed := c.clampedElapsedLocked()
	if elapsed >= c.base {
		fire, err := c.completeLocked(elapsed)
		c.mu.Unlock()
		if err != nil {
			c.log.Debug("completion left to another process", "err", err)
		}
		fire()
		return
	}
	c.st.Remaining = c.base - elapsed
	c.publishLocked(false)
	c.mu.Unlock()
}

// Run ticks every period until ctx is done.
func (c *Clock) Run(ctx context.Context, period time.Duration) {
	t := c.clock.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.Chan():
			c.Tick()
		}
	}
}

func (c *Clock) elapsedLocked() time.Duration {
	if c.st.RunStartedAt == nil {
		return 0
	}
	return c.clock.Now().Sub(*c.st.RunStartedAt)
}

// clampedElapsedLocked keeps elapsed within [0, base] so a clock that jumps
// backwards commits nothing and a long suspension commits at most what was
// left.
func (c *Clock) clampedElapsedLocked() time.Duration {
	e := c.elapsedLocked()
	if e < 0 {
		return 0
	}
	if e > c.base {
		return c.base
	}
	return e
}

// completeLocked moves a running session to Completed and returns the
// callbacks to invoke once the lock is released.
func (c *Clock) completeLocked(elapsed time.Duration) (func(), error) {
	next := c.st
	next.Status = Completed
	next.Remaining = 0
	next.RunStartedAt = nil
	if err := c.applyLocked(next, 0, elapsed); err != nil {
		return func() {}, err
	}

	st := c.st
	fns := append([]func(State){}, c.onComplete...)
	c.log.Info("session completed", "kind", st.Kind, "label", st.Label)
	return func() {
		for _, fn := range fns {
			fn(st)
		}
	}, nil
}

// applyLocked makes next the current session. It is saved first; only when
// the save wins is elapsed committed for the run that is ending, so two
// processes can never commit the same segment.
func (c *Clock) applyLocked(next State, base, elapsed time.Duration) error {
	if err := c.saveLocked(next, base); err != nil {
		return err
	}
	c.commitLocked(elapsed)
	c.st = next
	c.base = base
	if next.Status == Running {
		c.armLocked()
	} else {
		c.disarmLocked()
	}
	c.publishLocked(true)
	return nil
}

func (c *Clock) commitLocked(elapsed time.Duration) {
	b, ok := c.st.Kind.bucket()
	if !ok || elapsed <= 0 || c.ledger == nil {
		return
	}
	if err := c.ledger.CommitNow(elapsed, b); err != nil {
		c.log.Debug("commit deferred", "err", err)
	}
}

// armLocked schedules the completion for what is left of the current run.
func (c *Clock) armLocked() {
	c.disarmLocked()
	c.timer = c.clock.AfterFunc(c.base-c.clampedElapsedLocked(), c.expire)
}

func (c *Clock) disarmLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Clock) publishLocked(control bool) {
	c.progress.Publish(c.st.progress())
	if control {
		c.control.Publish(c.st.control())
	}
}
