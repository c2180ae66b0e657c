package session

import (
	"fmt"
	"time"

	"github.com/ramanasai/nudge/internal/ledger"
)

type Status int

const (
	Idle Status = iota
	Running
	Paused
	Completed
)

var statusNames = [...]string{"idle", "running", "paused", "completed"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", int(s))
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(b []byte) error {
	for i, n := range statusNames {
		if n == string(b) {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", b)
}

type Kind string

const (
	KindFocus Kind = "focus"
	KindWork  Kind = "work"
	KindBreak Kind = "break"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindFocus, KindWork, KindBreak:
		return k, nil
	case "":
		return KindFocus, nil
	}
	return "", fmt.Errorf("unknown session kind %q (want focus, work or break)", s)
}

// bucket reports where a kind's elapsed time is committed. Breaks are not
// recorded.
func (k Kind) bucket() (ledger.Bucket, bool) {
	switch k {
	case KindFocus:
		return ledger.BucketFocus, true
	case KindWork:
		return ledger.BucketWork, true
	}
	return "", false
}

// State is a copy of the singleton timer session.
type State struct {
	Status       Status        `json:"status"`
	Kind         Kind          `json:"kind"`
	Label        string        `json:"label,omitempty"`
	Total        time.Duration `json:"-"`
	Remaining    time.Duration `json:"-"`
	RunStartedAt *time.Time    `json:"runStartedAt,omitempty"`
}

func (s State) TotalSeconds() int64     { return int64(s.Total / time.Second) }
func (s State) RemainingSeconds() int64 { return int64((s.Remaining + time.Second - 1) / time.Second) }

// Progress is the high-frequency view, published on every tick.
type Progress struct {
	Status           Status `json:"status"`
	RemainingSeconds int64  `json:"remainingSeconds"`
	IsPaused         bool   `json:"isPaused"`
}

// Control is published only when the status, kind or label changes.
type Control struct {
	Status       Status `json:"status"`
	Kind         Kind   `json:"kind"`
	Label        string `json:"label,omitempty"`
	TotalSeconds int64  `json:"totalSeconds"`
}

func (s State) progress() Progress {
	return Progress{Status: s.Status, RemainingSeconds: s.RemainingSeconds(), IsPaused: s.Status == Paused}
}

func (s State) control() Control {
	return Control{Status: s.Status, Kind: s.Kind, Label: s.Label, TotalSeconds: s.TotalSeconds()}
}
