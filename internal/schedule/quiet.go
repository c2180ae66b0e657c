package schedule

import (
	"fmt"
	"time"
)

// Window is a quiet-hours interval in local time. Start after End means the
// window wraps midnight.
type Window struct {
	Enabled bool      `json:"enabled"`
	Start   TimeOfDay `json:"start"`
	End     TimeOfDay `json:"end"`
}

func ParseWindow(enabled bool, start, end string) (Window, error) {
	s, err := ParseTimeOfDay(start)
	if err != nil {
		return Window{}, fmt.Errorf("quiet start: %w", err)
	}
	e, err := ParseTimeOfDay(end)
	if err != nil {
		return Window{}, fmt.Errorf("quiet end: %w", err)
	}
	return Window{Enabled: enabled, Start: s, End: e}, nil
}

// IsSuppressed reports whether an immediate send at now falls inside w.
// Both bounds are inclusive at minute resolution; now is read in its own
// location. Scheduled future triggers are never gated by this.
func IsSuppressed(w Window, now time.Time) bool {
	if !w.Enabled {
		return false
	}
	cur := now.Hour()*60 + now.Minute()
	start, end := w.Start.minuteOfDay(), w.End.minuteOfDay()
	if start <= end {
		return start <= cur && cur <= end
	}
	return cur >= start || cur <= end
}
