package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ramanasai/nudge/internal/db"
)

// SettingsKey is where the configuration block lives in the store.
const SettingsKey = "settings"

// Settings is the user-chosen configuration block that drives scheduling.
type Settings struct {
	Enabled                  bool   `json:"enabled"`
	MorningEnabled           bool   `json:"morningEnabled"`
	MorningTime              string `json:"morningTime"`
	EveningEnabled           bool   `json:"eveningEnabled"`
	EveningTime              string `json:"eveningTime"`
	TaskRemindersEnabled     bool   `json:"taskRemindersEnabled"`
	AchievementsEnabled      bool   `json:"achievementsEnabled"`
	Timezone                 string `json:"timezone"`
	QuietHoursEnabled        bool   `json:"quietHoursEnabled"`
	QuietStartTime           string `json:"quietStartTime"`
	QuietEndTime             string `json:"quietEndTime"`
	WeekdayMotivationEnabled bool   `json:"weekdayMotivationEnabled"`
	WeekendMotivationEnabled bool   `json:"weekendMotivationEnabled"`
	DailySummaryEnabled      bool   `json:"dailySummaryEnabled"`
}

// SettingNames lists the recognized options in display order.
var SettingNames = []string{
	"enabled",
	"morningEnabled", "morningTime",
	"eveningEnabled", "eveningTime",
	"taskRemindersEnabled",
	"achievementsEnabled",
	"timezone",
	"quietHoursEnabled", "quietStartTime", "quietEndTime",
	"weekdayMotivationEnabled", "weekendMotivationEnabled",
	"dailySummaryEnabled",
}

func (s Settings) Location() *time.Location {
	if tz := strings.TrimSpace(s.Timezone); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc
		}
	}
	return time.Local
}

func (s Settings) Validate() error {
	var errs []error
	for name, v := range map[string]string{
		"morningTime":    s.MorningTime,
		"eveningTime":    s.EveningTime,
		"quietStartTime": s.QuietStartTime,
		"quietEndTime":   s.QuietEndTime,
	} {
		if _, err := time.Parse("15:04", v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not HH:MM", name, v))
		}
	}
	if tz := strings.TrimSpace(s.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			errs = append(errs, fmt.Errorf("timezone: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Get returns one option rendered as a string.
func (s Settings) Get(name string) (string, error) {
	if p := s.boolField(name); p != nil {
		return strconv.FormatBool(*p), nil
	}
	if p := s.stringField(name); p != nil {
		return *p, nil
	}
	return "", fmt.Errorf("unknown setting %q", name)
}

// Set updates one option by its recognized name.
func (s *Settings) Set(name, value string) error {
	if p := s.boolField(name); p != nil {
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*p = b
		return nil
	}
	if p := s.stringField(name); p != nil {
		next := *s
		*next.stringField(name) = strings.TrimSpace(value)
		if err := next.Validate(); err != nil {
			return err
		}
		*p = strings.TrimSpace(value)
		return nil
	}
	return fmt.Errorf("unknown setting %q", name)
}

func (s *Settings) boolField(name string) *bool {
	switch name {
	case "enabled":
		return &s.Enabled
	case "morningEnabled":
		return &s.MorningEnabled
	case "eveningEnabled":
		return &s.EveningEnabled
	case "taskRemindersEnabled":
		return &s.TaskRemindersEnabled
	case "achievementsEnabled":
		return &s.AchievementsEnabled
	case "quietHoursEnabled":
		return &s.QuietHoursEnabled
	case "weekdayMotivationEnabled":
		return &s.WeekdayMotivationEnabled
	case "weekendMotivationEnabled":
		return &s.WeekendMotivationEnabled
	case "dailySummaryEnabled":
		return &s.DailySummaryEnabled
	}
	return nil
}

func (s *Settings) stringField(name string) *string {
	switch name {
	case "morningTime":
		return &s.MorningTime
	case "eveningTime":
		return &s.EveningTime
	case "timezone":
		return &s.Timezone
	case "quietStartTime":
		return &s.QuietStartTime
	case "quietEndTime":
		return &s.QuietEndTime
	}
	return nil
}

// LoadSettings reads the persisted block, writing seed first if none exists.
func LoadSettings(kv db.KV, seed Settings) (Settings, error) {
	var s Settings
	err := db.GetJSON(kv, SettingsKey, &s)
	if errors.Is(err, db.ErrNotFound) {
		if err := SaveSettings(kv, seed); err != nil {
			return seed, err
		}
		return seed, nil
	}
	if err != nil {
		return seed, err
	}
	return s, nil
}

func SaveSettings(kv db.KV, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	return db.PutJSON(kv, SettingsKey, s)
}
