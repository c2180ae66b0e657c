package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ramanasai/nudge/internal/utils"
)

// ErrInvalidRule marks a recurrence rule that is missing or carries fields
// that do not belong to its kind.
var ErrInvalidRule = errors.New("invalid recurrence rule")

type Kind string

const (
	KindOnce    Kind = "once"
	KindHourly  Kind = "hourly"
	KindDaily   Kind = "daily"
	KindWeekly  Kind = "weekly"
	KindMonthly Kind = "monthly"
)

const dateLayout = "2006-01-02"

type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// ParseTimeOfDay parses "HH:MM" (24h).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("time of day %q: want HH:MM", s)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

func (t TimeOfDay) minuteOfDay() int { return t.Hour*60 + t.Minute }

func (t TimeOfDay) valid() bool {
	return t.Hour >= 0 && t.Hour < 24 && t.Minute >= 0 && t.Minute < 60
}

// Rule describes when a notification repeats. Only the fields relevant to
// Kind may be set: Weekday for weekly, DayOfMonth for monthly, AnchorDate
// (YYYY-MM-DD) for once. Hourly rules only use At.Minute.
type Rule struct {
	Kind       Kind          `json:"kind"`
	At         TimeOfDay     `json:"at"`
	Weekday    *time.Weekday `json:"weekday,omitempty"`
	DayOfMonth int           `json:"dayOfMonth,omitempty"`
	AnchorDate string        `json:"anchorDate,omitempty"`
}

func Once(date string, at TimeOfDay) Rule { return Rule{Kind: KindOnce, At: at, AnchorDate: date} }

func Hourly(minute int) Rule { return Rule{Kind: KindHourly, At: TimeOfDay{Minute: minute}} }

func Daily(at TimeOfDay) Rule { return Rule{Kind: KindDaily, At: at} }

func Weekly(wd time.Weekday, at TimeOfDay) Rule {
	return Rule{Kind: KindWeekly, At: at, Weekday: &wd}
}

func Monthly(day int, at TimeOfDay) Rule { return Rule{Kind: KindMonthly, At: at, DayOfMonth: day} }

func (r Rule) invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidRule, r.Kind, fmt.Sprintf(format, args...))
}

func (r Rule) Validate() error {
	if !r.At.valid() {
		return r.invalid("time %02d:%02d out of range", r.At.Hour, r.At.Minute)
	}

	switch r.Kind {
	case KindOnce:
		if r.AnchorDate == "" {
			return r.invalid("anchor date is required")
		}
		if _, err := time.Parse(dateLayout, r.AnchorDate); err != nil {
			return r.invalid("anchor date %q is not YYYY-MM-DD", r.AnchorDate)
		}
	case KindHourly:
		if r.At.Hour != 0 {
			return r.invalid("only the minute is used")
		}
	case KindDaily:
	case KindWeekly:
		if r.Weekday == nil {
			return r.invalid("weekday is required")
		}
		if *r.Weekday < time.Sunday || *r.Weekday > time.Saturday {
			return r.invalid("weekday %d out of range", *r.Weekday)
		}
	case KindMonthly:
		if r.DayOfMonth < 1 || r.DayOfMonth > 31 {
			return r.invalid("day of month %d out of range", r.DayOfMonth)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRule, r.Kind)
	}

	if r.Kind != KindOnce && r.AnchorDate != "" {
		return r.invalid("anchor date only applies to once")
	}
	if r.Kind != KindWeekly && r.Weekday != nil {
		return r.invalid("weekday only applies to weekly")
	}
	if r.Kind != KindMonthly && r.DayOfMonth != 0 {
		return r.invalid("day of month only applies to monthly")
	}
	return nil
}

// String renders the rule in the grammar accepted by ParseRule.
func (r Rule) String() string {
	switch r.Kind {
	case KindOnce:
		return fmt.Sprintf("once:%s@%s", r.AnchorDate, r.At)
	case KindHourly:
		return fmt.Sprintf("hourly@:%02d", r.At.Minute)
	case KindWeekly:
		if r.Weekday != nil {
			return fmt.Sprintf("weekly:%s@%s", strings.ToLower(r.Weekday.String()[:3]), r.At)
		}
	case KindMonthly:
		return fmt.Sprintf("monthly:%d@%s", r.DayOfMonth, r.At)
	}
	return fmt.Sprintf("%s@%s", r.Kind, r.At)
}

// ParseRule parses the CLI grammar:
//
//	once:2026-10-20@09:00   once:tomorrow@09:00
//	hourly@:15
//	daily@09:00
//	weekly:mon@09:00
//	monthly:1@09:00
//
// Relative dates for once are resolved against now.
func ParseRule(s string, now time.Time) (Rule, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	i := strings.LastIndex(s, "@")
	if i < 0 {
		return Rule{}, fmt.Errorf("%w: %q: missing @time", ErrInvalidRule, s)
	}
	head, at := s[:i], s[i+1:]
	kind, arg, _ := strings.Cut(head, ":")

	var r Rule
	switch Kind(kind) {
	case KindHourly:
		m, err := strconv.Atoi(strings.TrimPrefix(at, ":"))
		if err != nil {
			return Rule{}, fmt.Errorf("%w: %q: hourly wants @:MM", ErrInvalidRule, s)
		}
		r = Hourly(m)
		return r, r.Validate()
	case KindOnce, KindDaily, KindWeekly, KindMonthly:
	default:
		return Rule{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidRule, kind)
	}

	tod, err := ParseTimeOfDay(at)
	if err != nil {
		return Rule{}, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}

	switch Kind(kind) {
	case KindOnce:
		d, err := utils.ParseFlexibleDate(arg, now)
		if err != nil {
			return Rule{}, fmt.Errorf("%w: %v", ErrInvalidRule, err)
		}
		r = Once(d.Format(dateLayout), tod)
	case KindDaily:
		r = Daily(tod)
	case KindWeekly:
		wd, err := parseWeekday(arg)
		if err != nil {
			return Rule{}, err
		}
		r = Weekly(wd, tod)
	case KindMonthly:
		day, err := strconv.Atoi(arg)
		if err != nil {
			return Rule{}, fmt.Errorf("%w: monthly wants a day number, got %q", ErrInvalidRule, arg)
		}
		r = Monthly(day, tod)
	}
	return r, r.Validate()
}

func parseWeekday(s string) (time.Weekday, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 3 {
		for d := time.Sunday; d <= time.Saturday; d++ {
			if strings.EqualFold(d.String()[:3], s[:3]) {
				return d, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: unknown weekday %q", ErrInvalidRule, s)
}
