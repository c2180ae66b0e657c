package reminder

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ramanasai/nudge/internal/db"
	"github.com/ramanasai/nudge/internal/schedule"
)

const keyPrefix = "reminder/"

var (
	ErrNotFound   = errors.New("reminder not found")
	ErrEmptyTitle = errors.New("reminder title is required")
)

// Reminder is a user-created notification with its own recurrence.
type Reminder struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Body      string        `json:"body,omitempty"`
	Rule      schedule.Rule `json:"rule"`
	Active    bool          `json:"active"`
	CreatedAt time.Time     `json:"createdAt"`
}

// ScheduleID is the dispatcher id derived from the reminder id.
func (r Reminder) ScheduleID() string { return "reminder-" + r.ID }

type Store struct {
	kv db.KV
}

func NewStore(kv db.KV) *Store { return &Store{kv: kv} }

// Add validates the rule and stores a new active reminder.
func (s *Store) Add(title, body string, rule schedule.Rule, now time.Time) (Reminder, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Reminder{}, ErrEmptyTitle
	}
	if err := rule.Validate(); err != nil {
		return Reminder{}, err
	}
	r := Reminder{
		ID:        uuid.NewString(),
		Title:     title,
		Body:      strings.TrimSpace(body),
		Rule:      rule,
		Active:    true,
		CreatedAt: now,
	}
	if err := db.PutJSON(s.kv, keyPrefix+r.ID, r); err != nil {
		return Reminder{}, err
	}
	return r, nil
}

func (s *Store) Get(id string) (Reminder, error) {
	var r Reminder
	err := db.GetJSON(s.kv, keyPrefix+id, &r)
	if errors.Is(err, db.ErrNotFound) {
		return Reminder{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, err
}

// Resolve accepts a full id or a unique prefix of one.
func (s *Store) Resolve(idOrPrefix string) (Reminder, error) {
	if r, err := s.Get(idOrPrefix); err == nil {
		return r, nil
	}
	all, err := s.List()
	if err != nil {
		return Reminder{}, err
	}
	var match []Reminder
	for _, r := range all {
		if strings.HasPrefix(r.ID, idOrPrefix) {
			match = append(match, r)
		}
	}
	switch len(match) {
	case 0:
		return Reminder{}, fmt.Errorf("%w: %s", ErrNotFound, idOrPrefix)
	case 1:
		return match[0], nil
	}
	return Reminder{}, fmt.Errorf("id prefix %q is ambiguous (%d matches)", idOrPrefix, len(match))
}

// List returns all reminders, oldest first.
func (s *Store) List() ([]Reminder, error) {
	keys, err := s.kv.Keys(keyPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]Reminder, 0, len(keys))
	for _, k := range keys {
		var r Reminder
		if err := db.GetJSON(s.kv, k, &r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) SetActive(id string, active bool) (Reminder, error) {
	r, err := s.Get(id)
	if err != nil {
		return Reminder{}, err
	}
	r.Active = active
	return r, db.PutJSON(s.kv, keyPrefix+id, r)
}

func (s *Store) Remove(id string) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	return s.kv.Delete(keyPrefix + id)
}
