package ledger

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"

	"github.com/ramanasai/nudge/internal/db"
	"github.com/ramanasai/nudge/internal/pubsub"
)

const (
	keyPrefix   = "ledger/"
	lifetimeKey = "ledger-lifetime"
	dayLayout   = "2006-01-02"
)

// ErrClosedDay is returned when a commit targets a day other than today.
var ErrClosedDay = errors.New("ledger day is closed")

type Bucket string

const (
	BucketFocus Bucket = "focus"
	BucketWork  Bucket = "work"
)

// Entry accumulates committed time for one calendar day. Seconds are kept so
// that many short segments add up exactly; minutes are derived.
type Entry struct {
	Day          string    `json:"day"`
	FocusSeconds int64     `json:"focusSeconds"`
	WorkSeconds  int64     `json:"workSeconds"`
	LastUpdated  time.Time `json:"lastUpdated"`
}

func (e Entry) TotalFocusMinutes() int64 { return e.FocusSeconds / 60 }
func (e Entry) TotalWorkMinutes() int64  { return e.WorkSeconds / 60 }

func (e *Entry) add(d delta) {
	e.FocusSeconds += d.focus
	e.WorkSeconds += d.work
}

// Totals is published after every commit.
type Totals struct {
	Day                  string `json:"day"`
	TotalFocusMinutes    int64  `json:"totalFocusMinutes"`
	TotalWorkMinutes     int64  `json:"totalWorkMinutes"`
	LifetimeFocusSeconds int64  `json:"lifetimeFocusSeconds"`
}

type delta struct{ focus, work int64 }

func (d delta) zero() bool { return d.focus == 0 && d.work == 0 }

// DayKey formats t as the ledger's calendar-day key.
func DayKey(t time.Time) string { return t.Format(dayLayout) }

// Ledger is the per-day accumulator of focus and work time. Commits that
// fail to persist stay pending in memory and are retried by the next commit.
type Ledger struct {
	mu      sync.Mutex
	kv      db.KV
	clock   clockwork.Clock
	loc     *time.Location
	locate  atomic.Pointer[func() *time.Location]
	log     *log.Logger
	pending map[string]delta
	lifePad int64 // lifetime seconds not yet persisted
	totals  *pubsub.Topic[Totals]
}

func New(kv db.KV, clock clockwork.Clock, loc *time.Location, logger *log.Logger) *Ledger {
	if loc == nil {
		loc = time.Local
	}
	return &Ledger{
		kv:      kv,
		clock:   clock,
		loc:     loc,
		log:     logger.With("component", "ledger"),
		pending: map[string]delta{},
		totals:  pubsub.NewTopic[Totals](),
	}
}

// Totals is the low-frequency topic updated only on commit.
func (l *Ledger) Totals() *pubsub.Topic[Totals] { return l.totals }

// SetLocator makes the ledger ask fn for its zone whenever it works out a
// calendar day, so a timezone change takes effect without a restart. A nil
// fn, or a nil result, falls back to the zone given to New.
func (l *Ledger) SetLocator(fn func() *time.Location) {
	if fn == nil {
		l.locate.Store(nil)
		return
	}
	l.locate.Store(&fn)
}

func (l *Ledger) location() *time.Location {
	if fn := l.locate.Load(); fn != nil {
		if loc := (*fn)(); loc != nil {
			return loc
		}
	}
	return l.loc
}

func (l *Ledger) today() string { return DayKey(l.clock.Now().In(l.location())) }

// CommitNow attributes elapsed to the day in effect right now.
func (l *Ledger) CommitNow(elapsed time.Duration, b Bucket) error {
	_, err := l.Commit(l.today(), elapsed, b)
	return err
}

// Commit adds elapsed to day's bucket. Only today's entry accepts commits.
// On a persistence failure the returned entry still reflects the commit.
func (l *Ledger) Commit(day string, elapsed time.Duration, b Bucket) (Entry, error) {
	secs := int64(elapsed.Round(time.Second) / time.Second)
	if secs < 0 {
		secs = 0
	}

	l.mu.Lock()
	today := l.today()
	if day != today {
		l.mu.Unlock()
		return Entry{}, fmt.Errorf("%w: %s (today is %s)", ErrClosedDay, day, today)
	}

	var d delta
	switch b {
	case BucketFocus:
		d.focus = secs
	case BucketWork:
		d.work = secs
	default:
		l.mu.Unlock()
		return Entry{}, fmt.Errorf("unknown bucket %q", b)
	}

	l.foldStaleLocked(today)
	p := l.pending[day]
	p.focus += d.focus
	p.work += d.work
	l.pending[day] = p
	l.lifePad += d.focus

	err := l.flushLocked()
	entry, readErr := l.entryLocked(day)
	life := l.lifetimeLocked()
	l.mu.Unlock()

	if err == nil {
		err = readErr
	}
	if err != nil {
		l.log.Warn("commit not persisted, will retry", "day", day, "bucket", b, "seconds", secs, "err", err)
	}

	l.totals.Publish(Totals{
		Day:                  entry.Day,
		TotalFocusMinutes:    entry.TotalFocusMinutes(),
		TotalWorkMinutes:     entry.TotalWorkMinutes(),
		LifetimeFocusSeconds: life,
	})
	return entry, err
}

// foldStaleLocked moves time still pending from an earlier day onto today.
// A closed day never grows after midnight, so a retry lands where it is
// finally written.
func (l *Ledger) foldStaleLocked(today string) {
	for day, d := range l.pending {
		if day == today {
			continue
		}
		delete(l.pending, day)
		if d.zero() {
			continue
		}
		p := l.pending[today]
		p.focus += d.focus
		p.work += d.work
		l.pending[today] = p
		l.log.Info("retried commit attributed to today", "from", day, "to", today,
			"focusSeconds", d.focus, "workSeconds", d.work)
	}
}

// flushLocked persists every pending delta: read, add, write back.
func (l *Ledger) flushLocked() error {
	days := make([]string, 0, len(l.pending))
	for day := range l.pending {
		days = append(days, day)
	}
	sort.Strings(days)

	now := l.clock.Now()
	var errs []error
	for _, day := range days {
		d := l.pending[day]
		if d.zero() {
			delete(l.pending, day)
			continue
		}
		stored, err := l.load(day)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		stored.add(d)
		stored.LastUpdated = now
		if err := db.PutJSON(l.kv, keyPrefix+day, stored); err != nil {
			errs = append(errs, err)
			continue
		}
		delete(l.pending, day)
	}

	if l.lifePad != 0 {
		life, err := l.loadLifetime()
		if err == nil {
			err = l.kv.Set(lifetimeKey, fmt.Sprint(life+l.lifePad))
		}
		if err != nil {
			errs = append(errs, err)
		} else {
			l.lifePad = 0
		}
	}
	return errors.Join(errs...)
}

func (l *Ledger) load(day string) (Entry, error) {
	var e Entry
	err := db.GetJSON(l.kv, keyPrefix+day, &e)
	if errors.Is(err, db.ErrNotFound) {
		// First commit of a new day starts from zero.
		return Entry{Day: day}, nil
	}
	if err != nil {
		return Entry{}, err
	}
	e.Day = day
	return e, nil
}

func (l *Ledger) loadLifetime() (int64, error) {
	raw, err := l.kv.Get(lifetimeKey)
	if errors.Is(err, db.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var n int64
	if _, err := fmt.Sscan(strings.TrimSpace(raw), &n); err != nil {
		return 0, fmt.Errorf("decode lifetime: %w", err)
	}
	return n, nil
}

// entryLocked is the stored entry plus anything still pending.
func (l *Ledger) entryLocked(day string) (Entry, error) {
	e, err := l.load(day)
	if err != nil {
		e = Entry{Day: day}
	}
	e.add(l.pending[day])
	return e, err
}

func (l *Ledger) lifetimeLocked() int64 {
	n, _ := l.loadLifetime()
	return n + l.lifePad
}

// Today returns the entry for the current day, zeroed if nothing was
// committed yet.
func (l *Ledger) Today() (Entry, error) {
	return l.Entry(l.today())
}

func (l *Ledger) Entry(day string) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entryLocked(day)
}

// Lifetime returns total focus time committed across all days.
func (l *Ledger) Lifetime() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return time.Duration(l.lifetimeLocked()) * time.Second
}

// Range returns one entry per day in [from, to), zeroed where empty.
func (l *Ledger) Range(from, to time.Time) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Entry
	for d := from.In(l.location()); d.Before(to); d = d.AddDate(0, 0, 1) {
		e, err := l.entryLocked(DayKey(d))
		if err != nil {
			return out, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Reset removes a day's entry. Lifetime totals are left untouched.
func (l *Ledger) Reset(day string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.pending, day)
	return l.kv.Delete(keyPrefix + day)
}

// Days lists every day that has a stored entry.
func (l *Ledger) Days() ([]string, error) {
	keys, err := l.kv.Keys(keyPrefix)
	if err != nil {
		return nil, err
	}
	days := make([]string, 0, len(keys))
	for _, k := range keys {
		days = append(days, strings.TrimPrefix(k, keyPrefix))
	}
	return days, nil
}
