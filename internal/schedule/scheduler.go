package schedule

import (
	"time"
)

// Trigger is what gets handed to the notification center: the repeat
// pattern plus the next concrete instant it resolves to.
type Trigger struct {
	Rule    Rule      `json:"rule"`
	Repeats bool      `json:"repeats"`
	Next    time.Time `json:"next"`
	Zone    string    `json:"zone"`
}

// Location resolves the zone the trigger was computed in.
func (t Trigger) Location() *time.Location {
	if t.Zone != "" {
		if loc, err := time.LoadLocation(t.Zone); err == nil {
			return loc
		}
	}
	return time.Local
}

// NextTrigger computes the trigger for rule as seen at now in loc. The bool
// is false when the rule should not be scheduled at all (a once rule whose
// instant has already passed).
func NextTrigger(rule Rule, now time.Time, loc *time.Location) (Trigger, bool, error) {
	if err := rule.Validate(); err != nil {
		return Trigger{}, false, err
	}
	if loc == nil {
		loc = time.Local
	}

	next, ok := nextInstant(rule, now.In(loc), loc)
	if !ok {
		return Trigger{}, false, nil
	}
	return Trigger{
		Rule:    rule,
		Repeats: rule.Kind != KindOnce,
		Next:    next,
		Zone:    loc.String(),
	}, true, nil
}

// NextAfter returns the occurrence following after. Once triggers never
// fire again.
func (t Trigger) NextAfter(after time.Time) (time.Time, bool) {
	if !t.Repeats {
		return time.Time{}, false
	}
	loc := t.Location()
	return nextInstant(t.Rule, after.In(loc), loc)
}

// nextInstant finds the first occurrence of rule strictly after now, except
// for once rules which fire at their anchor unless it is already past.
func nextInstant(r Rule, now time.Time, loc *time.Location) (time.Time, bool) {
	y, m, d := now.Date()
	h, min := r.At.Hour, r.At.Minute

	switch r.Kind {
	case KindOnce:
		day, err := time.ParseInLocation(dateLayout, r.AnchorDate, loc)
		if err != nil {
			return time.Time{}, false
		}
		at := time.Date(day.Year(), day.Month(), day.Day(), h, min, 0, 0, loc)
		if at.Before(now) {
			return time.Time{}, false
		}
		return at, true

	case KindHourly:
		cand := time.Date(y, m, d, now.Hour(), min, 0, 0, loc)
		if !now.Before(cand) {
			cand = cand.Add(time.Hour)
		}
		return cand, true

	case KindDaily:
		cand := time.Date(y, m, d, h, min, 0, 0, loc)
		if !now.Before(cand) {
			cand = time.Date(y, m, d+1, h, min, 0, 0, loc)
		}
		return cand, true

	case KindWeekly:
		ahead := (int(*r.Weekday) - int(now.Weekday()) + 7) % 7
		cand := time.Date(y, m, d+ahead, h, min, 0, 0, loc)
		if !now.Before(cand) {
			cand = time.Date(y, m, d+ahead+7, h, min, 0, 0, loc)
		}
		return cand, true

	case KindMonthly:
		// Months without the requested day are skipped; 31 recurs within
		// two months, so a short horizon suffices.
		for i := 0; i < 13; i++ {
			first := time.Date(y, m+time.Month(i), 1, 0, 0, 0, 0, loc)
			if r.DayOfMonth > daysIn(first) {
				continue
			}
			cand := time.Date(first.Year(), first.Month(), r.DayOfMonth, h, min, 0, 0, loc)
			if now.Before(cand) {
				return cand, true
			}
		}
	}
	return time.Time{}, false
}

func daysIn(first time.Time) int {
	return first.AddDate(0, 1, -1).Day()
}
