package schedule

import "time"

type DayType int

const (
	Weekday DayType = iota
	Weekend
)

func (d DayType) String() string {
	if d == Weekend {
		return "weekend"
	}
	return "weekday"
}

// DayTypeOf classifies t in its own location.
func DayTypeOf(t time.Time) DayType {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return Weekend
	}
	return Weekday
}

// Slot is a named daily notification whose content depends on whether the
// day is a weekday or a weekend day, each independently toggleable.
type Slot struct {
	Name           string
	At             TimeOfDay
	WeekdayEnabled bool
	WeekendEnabled bool
}

// NextSlotTrigger resolves a slot for the day type of now in loc. It reports
// false, without error, when the toggle for that day type is off.
func NextSlotTrigger(s Slot, now time.Time, loc *time.Location) (Trigger, DayType, bool, error) {
	if loc == nil {
		loc = time.Local
	}
	dt := DayTypeOf(now.In(loc))
	if (dt == Weekday && !s.WeekdayEnabled) || (dt == Weekend && !s.WeekendEnabled) {
		return Trigger{}, dt, false, nil
	}
	t, ok, err := NextTrigger(Daily(s.At), now, loc)
	return t, dt, ok, err
}
