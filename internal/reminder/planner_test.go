package reminder

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ramanasai/nudge/internal/config"
	"github.com/ramanasai/nudge/internal/db"
	"github.com/ramanasai/nudge/internal/ledger"
	"github.com/ramanasai/nudge/internal/logging"
	"github.com/ramanasai/nudge/internal/notify"
	"github.com/ramanasai/nudge/internal/schedule"
)

func allOn() config.Settings {
	return config.Settings{
		Enabled:                  true,
		MorningEnabled:           true,
		MorningTime:              "08:30",
		EveningEnabled:           true,
		EveningTime:              "20:00",
		TaskRemindersEnabled:     true,
		AchievementsEnabled:      true,
		Timezone:                 "UTC",
		QuietHoursEnabled:        false,
		QuietStartTime:           "22:00",
		QuietEndTime:             "07:00",
		WeekdayMotivationEnabled: true,
		WeekendMotivationEnabled: true,
		DailySummaryEnabled:      true,
	}
}

type fixture struct {
	kv      *db.DB
	clk     clockwork.FakeClock
	disp    *notify.Local
	sink    *notify.Memory
	ledger  *ledger.Ledger
	planner *Planner
}

func newFixture(t *testing.T, now time.Time, s config.Settings) *fixture {
	t.Helper()
	kv, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("open memory db: %v", err)
	}
	t.Cleanup(func() { kv.Close() })

	f := &fixture{kv: kv, clk: clockwork.NewFakeClockAt(now), sink: &notify.Memory{}}
	logger := logging.Discard()
	f.disp = notify.NewLocal(kv, f.clk, f.sink, logger)
	f.ledger = ledger.New(kv, f.clk, time.UTC, logger)
	f.planner = NewPlanner(kv, s, f.disp, f.sink, f.ledger, f.clk, logger)
	return f
}

func (f *fixture) addReminder(t *testing.T, title string, r schedule.Rule) Reminder {
	t.Helper()
	rem, err := f.planner.Reminders().Add(title, "", r, f.clk.Now())
	if err != nil {
		t.Fatal(err)
	}
	return rem
}

var wednesday = time.Date(2026, 10, 14, 6, 0, 0, 0, time.UTC)
var saturday = time.Date(2026, 10, 17, 6, 0, 0, 0, time.UTC)

// ============================================================
// RescheduleAll
// ============================================================

func TestRescheduleAllIsIdempotent(t *testing.T) {
	f := newFixture(t, wednesday, allOn())
	rem := f.addReminder(t, "stand-up", schedule.Daily(schedule.TimeOfDay{Hour: 9, Minute: 45}))

	first, err := f.planner.RescheduleAll()
	if err != nil {
		t.Fatal(err)
	}
	ids1, _ := f.disp.List()

	second, err := f.planner.RescheduleAll()
	if err != nil {
		t.Fatal(err)
	}
	ids2, _ := f.disp.List()

	want := []string{SummaryID, EveningID, MorningID, rem.ScheduleID()}
	if !reflect.DeepEqual(ids1, ids2) {
		t.Fatalf("schedules differ: %v vs %v", ids1, ids2)
	}
	if !reflect.DeepEqual(first.IDs(), second.IDs()) {
		t.Fatalf("results differ: %v vs %v", first.IDs(), second.IDs())
	}
	if len(ids2) != len(want) {
		t.Fatalf("got %v, want %v", ids2, want)
	}
}

func TestRescheduleAllDropsStaleSchedules(t *testing.T) {
	f := newFixture(t, wednesday, allOn())
	rem := f.addReminder(t, "water plants", schedule.Weekly(time.Friday, schedule.TimeOfDay{Hour: 18}))
	f.planner.RescheduleAll()

	if err := f.planner.Reminders().Remove(rem.ID); err != nil {
		t.Fatal(err)
	}
	f.disp.ScheduleAt("orphan", notify.Content{}, mustTrigger(t, wednesday))
	f.planner.RescheduleAll()

	ids, _ := f.disp.List()
	for _, id := range ids {
		if id == rem.ScheduleID() || id == "orphan" {
			t.Fatalf("stale schedule %q survived: %v", id, ids)
		}
	}
}

func TestWeekendToggleSkipsSlotsOnSaturday(t *testing.T) {
	s := allOn()
	s.WeekendMotivationEnabled = false
	f := newFixture(t, saturday, s)
	rem := f.addReminder(t, "groceries", schedule.Daily(schedule.TimeOfDay{Hour: 10}))

	res, err := f.planner.RescheduleAll()
	if err != nil {
		t.Fatal(err)
	}
	ids, _ := f.disp.List()
	want := []string{SummaryID, rem.ScheduleID()}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("got %v, want %v", ids, want)
	}
	if len(res.Skipped) != 2 {
		t.Fatalf("expected both slots skipped, got %+v", res.Skipped)
	}

	// The same settings on a weekday schedule both slots.
	f.clk.Advance(48 * time.Hour)
	f.planner.RescheduleAll()
	if ids, _ := f.disp.List(); len(ids) != 4 {
		t.Fatalf("monday: %v", ids)
	}
}

func TestRescheduleRespectsToggles(t *testing.T) {
	s := allOn()
	s.MorningEnabled = false
	s.DailySummaryEnabled = false
	s.TaskRemindersEnabled = false
	f := newFixture(t, wednesday, s)
	f.addReminder(t, "gated", schedule.Daily(schedule.TimeOfDay{Hour: 10}))

	f.planner.RescheduleAll()
	ids, _ := f.disp.List()
	if !reflect.DeepEqual(ids, []string{EveningID}) {
		t.Fatalf("got %v", ids)
	}

	s.Enabled = false
	if err := config.SaveSettings(f.kv, s); err != nil {
		t.Fatal(err)
	}
	f.planner.RescheduleAll()
	if ids, _ := f.disp.List(); len(ids) != 0 {
		t.Fatalf("master switch off, got %v", ids)
	}
}

func TestPastOnceAndInactiveAreSkipped(t *testing.T) {
	f := newFixture(t, wednesday, allOn())
	past := f.addReminder(t, "yesterday", schedule.Once("2026-10-13", schedule.TimeOfDay{Hour: 9}))
	off := f.addReminder(t, "paused", schedule.Daily(schedule.TimeOfDay{Hour: 9}))
	f.planner.Reminders().SetActive(off.ID, false)

	res, _ := f.planner.RescheduleAll()
	for _, id := range res.IDs() {
		if id == past.ScheduleID() || id == off.ScheduleID() {
			t.Fatalf("%s should not be scheduled", id)
		}
	}
	if len(res.Skipped) != 2 {
		t.Fatalf("skipped %+v", res.Skipped)
	}
}

func TestInvalidReminderRuleIsReported(t *testing.T) {
	f := newFixture(t, wednesday, allOn())
	bad := Reminder{ID: "bad", Title: "broken", Rule: schedule.Rule{Kind: schedule.KindWeekly, At: schedule.TimeOfDay{Hour: 9}}, Active: true}
	db.PutJSON(f.kv, keyPrefix+bad.ID, bad)

	res, err := f.planner.RescheduleAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Invalid) != 1 || res.Invalid[0].ID != "reminder-bad" {
		t.Fatalf("invalid %+v", res.Invalid)
	}
	if len(res.Scheduled) != 3 {
		t.Fatalf("other rules should still be scheduled: %v", res.IDs())
	}
}

func TestPermissionDenied(t *testing.T) {
	f := newFixture(t, wednesday, allOn())
	f.planner.RescheduleAll()
	f.sink.Denied = true

	res, err := f.planner.RescheduleAll()
	if err != nil {
		t.Fatal(err)
	}
	if !res.PermissionDenied || len(res.Scheduled) != 0 {
		t.Fatalf("got %+v", res)
	}
	if ids, _ := f.disp.List(); len(ids) != 0 {
		t.Fatalf("expected nothing scheduled, got %v", ids)
	}
}

// ============================================================
// Immediate sends
// ============================================================

func TestSendNowHonoursQuietHours(t *testing.T) {
	s := allOn()
	s.QuietHoursEnabled = true
	f := newFixture(t, time.Date(2026, 10, 14, 23, 30, 0, 0, time.UTC), s)

	sent, err := f.planner.SendNow(notify.Content{Title: "late"})
	if err != nil || sent {
		t.Fatalf("sent=%v err=%v", sent, err)
	}
	f.clk.Advance(13 * time.Hour) // 12:30
	sent, _ = f.planner.SendNow(notify.Content{Title: "noon"})
	if !sent || len(f.sink.Sent()) != 1 {
		t.Fatalf("expected delivery at noon, got %v", f.sink.Sent())
	}
}

func TestQuietHoursDoNotAffectScheduled(t *testing.T) {
	s := allOn()
	s.QuietHoursEnabled = true
	f := newFixture(t, time.Date(2026, 10, 14, 21, 0, 0, 0, time.UTC), s)
	rem := f.addReminder(t, "night", schedule.Daily(schedule.TimeOfDay{Hour: 23}))

	f.planner.RescheduleAll()
	ids, _ := f.disp.List()
	found := false
	for _, id := range ids {
		found = found || id == rem.ScheduleID()
	}
	if !found {
		t.Fatalf("reminder inside quiet hours was not scheduled: %v", ids)
	}
}

func TestMilestonesRespectToggle(t *testing.T) {
	f := newFixture(t, time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC), allOn())
	if got := f.planner.CheckMilestones(0, 120); len(got) != 1 {
		t.Fatalf("crossed %v", got)
	}
	if len(f.sink.Sent()) != 1 {
		t.Fatalf("sent %v", f.sink.Sent())
	}

	s := allOn()
	s.AchievementsEnabled = false
	config.SaveSettings(f.kv, s)
	f.planner.CheckMilestones(5*3600, 25*3600)
	if len(f.sink.Sent()) != 1 {
		t.Fatalf("achievements disabled but sent %v", f.sink.Sent())
	}
}

func TestSummaryRenderedFromLedger(t *testing.T) {
	f := newFixture(t, time.Date(2026, 10, 14, 20, 0, 0, 0, time.UTC), allOn())
	f.disp.SetRenderer(f.planner.Render)
	f.planner.RescheduleAll()
	f.ledger.CommitNow(40*time.Minute, ledger.BucketFocus)

	f.clk.Advance(time.Hour + time.Minute)
	if _, err := f.disp.FireDue(); err != nil {
		t.Fatal(err)
	}
	var body string
	for _, c := range f.sink.Sent() {
		if c.Channel == notify.ChannelSummary {
			body = c.Body
		}
	}
	if body != "You focused for 40m today." {
		t.Fatalf("summary body %q", body)
	}
}

func TestLedgerFollowsTimezoneSetting(t *testing.T) {
	f := newFixture(t, time.Date(2026, 10, 14, 20, 0, 0, 0, time.UTC), allOn())
	f.ledger.SetLocator(f.planner.Location)

	f.ledger.CommitNow(time.Minute, ledger.BucketFocus)
	s, err := f.planner.Settings()
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set("timezone", "Asia/Tokyo"); err != nil {
		t.Fatal(err)
	}
	if err := config.SaveSettings(f.kv, s); err != nil {
		t.Fatal(err)
	}
	f.ledger.CommitNow(3*time.Minute, ledger.BucketFocus)

	today, err := f.ledger.Today()
	if err != nil {
		t.Fatal(err)
	}
	if today.Day != "2026-10-15" || today.TotalFocusMinutes() != 3 {
		t.Fatalf("today after timezone change: %+v", today)
	}
	prev, _ := f.ledger.Entry("2026-10-14")
	if prev.TotalFocusMinutes() != 1 {
		t.Fatalf("earlier day: %+v", prev)
	}
}

// ============================================================
// Store
// ============================================================

func TestStoreResolveByPrefix(t *testing.T) {
	f := newFixture(t, wednesday, allOn())
	r := f.addReminder(t, "one", schedule.Daily(schedule.TimeOfDay{Hour: 9}))

	got, err := f.planner.Reminders().Resolve(r.ID[:8])
	if err != nil || got.ID != r.ID {
		t.Fatalf("resolve: %v %v", got, err)
	}
	if _, err := f.planner.Reminders().Resolve("zzzz"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := f.planner.Reminders().Add("  ", "", schedule.Daily(schedule.TimeOfDay{}), wednesday); err == nil {
		t.Fatal("expected title error")
	}
}

func mustTrigger(t *testing.T, now time.Time) schedule.Trigger {
	t.Helper()
	tr, _, err := schedule.NextTrigger(schedule.Daily(schedule.TimeOfDay{Hour: 12}), now, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	return tr
}
