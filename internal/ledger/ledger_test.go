package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ramanasai/nudge/internal/db"
	"github.com/ramanasai/nudge/internal/logging"
)

// flakyKV fails writes while down is set.
type flakyKV struct {
	db.KV
	down bool
}

var errDiskFull = errors.New("disk full")

func (f *flakyKV) Set(key, value string) error {
	if f.down {
		return errDiskFull
	}
	return f.KV.Set(key, value)
}

func newTestKV(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("open memory db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

var start = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

// ============================================================
// Commit
// ============================================================

func TestCommitAccumulatesBuckets(t *testing.T) {
	clk := clockwork.NewFakeClockAt(start)
	l := New(newTestKV(t), clk, time.UTC, logging.Discard())

	if err := l.CommitNow(10*time.Minute, BucketFocus); err != nil {
		t.Fatal(err)
	}
	if err := l.CommitNow(90*time.Second, BucketFocus); err != nil {
		t.Fatal(err)
	}
	if err := l.CommitNow(30*time.Second, BucketFocus); err != nil {
		t.Fatal(err)
	}
	if err := l.CommitNow(45*time.Minute, BucketWork); err != nil {
		t.Fatal(err)
	}

	e, err := l.Today()
	if err != nil {
		t.Fatal(err)
	}
	if e.TotalFocusMinutes() != 12 || e.TotalWorkMinutes() != 45 {
		t.Fatalf("got focus=%d work=%d", e.TotalFocusMinutes(), e.TotalWorkMinutes())
	}
	if e.Day != "2026-10-14" {
		t.Fatalf("day %q", e.Day)
	}
	if l.Lifetime() != 12*time.Minute {
		t.Fatalf("lifetime %v", l.Lifetime())
	}
}

func TestCommitRejectsOtherDays(t *testing.T) {
	clk := clockwork.NewFakeClockAt(start)
	l := New(newTestKV(t), clk, time.UTC, logging.Discard())

	_, err := l.Commit("2026-10-13", time.Minute, BucketFocus)
	if !errors.Is(err, ErrClosedDay) {
		t.Fatalf("expected ErrClosedDay, got %v", err)
	}
	if _, err := l.Commit("2026-10-14", time.Minute, "sleep"); err == nil {
		t.Fatal("expected unknown bucket error")
	}
}

func TestDayRolloverStartsFresh(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Date(2026, 10, 14, 23, 50, 0, 0, time.UTC))
	l := New(newTestKV(t), clk, time.UTC, logging.Discard())

	l.CommitNow(20*time.Minute, BucketFocus)
	clk.Advance(20 * time.Minute)
	l.CommitNow(5*time.Minute, BucketFocus)

	prev, _ := l.Entry("2026-10-14")
	today, _ := l.Today()
	if prev.TotalFocusMinutes() != 20 {
		t.Fatalf("yesterday changed: %d", prev.TotalFocusMinutes())
	}
	if today.Day != "2026-10-15" || today.TotalFocusMinutes() != 5 {
		t.Fatalf("today: %+v", today)
	}
}

func TestDayKeyUsesLocation(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatal(err)
	}
	// 20:00 UTC is already the next morning in Tokyo.
	clk := clockwork.NewFakeClockAt(time.Date(2026, 10, 14, 20, 0, 0, 0, time.UTC))
	l := New(newTestKV(t), clk, tokyo, logging.Discard())
	e, _ := l.Commit("2026-10-15", time.Minute, BucketFocus)
	if e.TotalFocusMinutes() != 1 {
		t.Fatalf("got %+v", e)
	}
}

func TestLocatorChangeMovesToday(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatal(err)
	}
	clk := clockwork.NewFakeClockAt(time.Date(2026, 10, 14, 20, 0, 0, 0, time.UTC))
	l := New(newTestKV(t), clk, time.UTC, logging.Discard())
	zone := time.UTC
	l.SetLocator(func() *time.Location { return zone })

	if err := l.CommitNow(time.Minute, BucketFocus); err != nil {
		t.Fatal(err)
	}
	zone = tokyo
	if err := l.CommitNow(2*time.Minute, BucketFocus); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Commit("2026-10-14", time.Minute, BucketFocus); !errors.Is(err, ErrClosedDay) {
		t.Fatalf("expected closed day after zone change, got %v", err)
	}

	utcDay, _ := l.Entry("2026-10-14")
	tokyoDay, _ := l.Today()
	if utcDay.TotalFocusMinutes() != 1 {
		t.Fatalf("2026-10-14: %+v", utcDay)
	}
	if tokyoDay.Day != "2026-10-15" || tokyoDay.TotalFocusMinutes() != 2 {
		t.Fatalf("today: %+v", tokyoDay)
	}
}

func TestRetryAfterMidnightIsAttributedToToday(t *testing.T) {
	kv := &flakyKV{KV: newTestKV(t)}
	clk := clockwork.NewFakeClockAt(time.Date(2026, 10, 14, 23, 50, 0, 0, time.UTC))
	l := New(kv, clk, time.UTC, logging.Discard())

	kv.down = true
	if err := l.CommitNow(10*time.Minute, BucketFocus); !errors.Is(err, errDiskFull) {
		t.Fatalf("expected persistence error, got %v", err)
	}

	clk.Advance(time.Hour)
	kv.down = false
	if err := l.CommitNow(5*time.Minute, BucketWork); err != nil {
		t.Fatal(err)
	}

	fresh := New(kv, clk, time.UTC, logging.Discard())
	days, err := fresh.Days()
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 1 || days[0] != "2026-10-15" {
		t.Fatalf("stored days %v", days)
	}
	today, _ := fresh.Today()
	if today.TotalFocusMinutes() != 10 || today.TotalWorkMinutes() != 5 {
		t.Fatalf("today: %+v", today)
	}
	if fresh.Lifetime() != 10*time.Minute {
		t.Fatalf("lifetime %v", fresh.Lifetime())
	}
}

func TestFailedCommitIsRetried(t *testing.T) {
	kv := &flakyKV{KV: newTestKV(t)}
	clk := clockwork.NewFakeClockAt(start)
	l := New(kv, clk, time.UTC, logging.Discard())

	kv.down = true
	e, err := l.Commit("2026-10-14", 10*time.Minute, BucketFocus)
	if !errors.Is(err, errDiskFull) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if e.TotalFocusMinutes() != 10 {
		t.Fatalf("in-memory state lost: %+v", e)
	}

	kv.down = false
	if err := l.CommitNow(5*time.Minute, BucketFocus); err != nil {
		t.Fatal(err)
	}

	// A fresh ledger over the same store sees both commits.
	fresh := New(kv, clk, time.UTC, logging.Discard())
	got, _ := fresh.Today()
	if got.TotalFocusMinutes() != 15 {
		t.Fatalf("expected retried commit to persist, got %d", got.TotalFocusMinutes())
	}
	if fresh.Lifetime() != 15*time.Minute {
		t.Fatalf("lifetime %v", fresh.Lifetime())
	}
}

func TestTotalsPublishedOnCommit(t *testing.T) {
	clk := clockwork.NewFakeClockAt(start)
	l := New(newTestKV(t), clk, time.UTC, logging.Discard())
	ch, cancel := l.Totals().Subscribe()
	defer cancel()

	l.CommitNow(3*time.Minute, BucketWork)
	select {
	case tot := <-ch:
		if tot.TotalWorkMinutes != 3 || tot.Day != "2026-10-14" {
			t.Fatalf("got %+v", tot)
		}
	case <-time.After(time.Second):
		t.Fatal("no totals published")
	}
}

// ============================================================
// Reads
// ============================================================

func TestRangeFillsEmptyDays(t *testing.T) {
	clk := clockwork.NewFakeClockAt(start)
	l := New(newTestKV(t), clk, time.UTC, logging.Discard())
	l.CommitNow(30*time.Minute, BucketFocus)

	from := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	entries, err := l.Range(from, to)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 days, got %d", len(entries))
	}
	if entries[2].Day != "2026-10-14" || entries[2].TotalFocusMinutes() != 30 {
		t.Fatalf("unexpected %+v", entries[2])
	}
	if entries[0].FocusSeconds != 0 {
		t.Fatalf("expected empty day, got %+v", entries[0])
	}
}

func TestResetRemovesDayButKeepsLifetime(t *testing.T) {
	clk := clockwork.NewFakeClockAt(start)
	l := New(newTestKV(t), clk, time.UTC, logging.Discard())
	l.CommitNow(30*time.Minute, BucketFocus)

	days, _ := l.Days()
	if len(days) != 1 || days[0] != "2026-10-14" {
		t.Fatalf("days %v", days)
	}
	if err := l.Reset("2026-10-14"); err != nil {
		t.Fatal(err)
	}
	e, _ := l.Today()
	if e.FocusSeconds != 0 {
		t.Fatalf("expected reset, got %+v", e)
	}
	if l.Lifetime() != 30*time.Minute {
		t.Fatalf("lifetime %v", l.Lifetime())
	}
}

// ============================================================
// Milestones
// ============================================================

func TestCrossed(t *testing.T) {
	got := Crossed(0, 120)
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("got %+v", got)
	}
	if got := Crossed(60, 120); len(got) != 0 {
		t.Fatalf("threshold already passed, got %+v", got)
	}
	if got := Crossed(5*3600, 25*3600); len(got) != 2 {
		t.Fatalf("expected two milestones, got %+v", got)
	}
	if got := Unlocked(36 * 3600); len(got) != 4 {
		t.Fatalf("unlocked %+v", got)
	}
}
