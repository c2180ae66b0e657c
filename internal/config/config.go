package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type FocusConfig struct {
	Duration time.Duration `mapstructure:"duration"` // default countdown for `timer start`
	Break    time.Duration `mapstructure:"break"`
}

type DesktopConfig struct {
	Enabled bool   `mapstructure:"enabled"` // false behaves like a denied OS permission
	AppName string `mapstructure:"app_name"`
}

type HTTPConfig struct {
	Addr  string  `mapstructure:"addr"`
	Rate  float64 `mapstructure:"rate"`  // requests per second per client
	Burst int     `mapstructure:"burst"`
}

// NotificationsConfig seeds the persisted Settings record on first use.
type NotificationsConfig struct {
	Enabled                  bool   `mapstructure:"enabled"`
	MorningEnabled           bool   `mapstructure:"morning_enabled"`
	MorningTime              string `mapstructure:"morning_time"`
	EveningEnabled           bool   `mapstructure:"evening_enabled"`
	EveningTime              string `mapstructure:"evening_time"`
	TaskRemindersEnabled     bool   `mapstructure:"task_reminders_enabled"`
	AchievementsEnabled      bool   `mapstructure:"achievements_enabled"`
	QuietHoursEnabled        bool   `mapstructure:"quiet_hours_enabled"`
	QuietStartTime           string `mapstructure:"quiet_start_time"`
	QuietEndTime             string `mapstructure:"quiet_end_time"`
	WeekdayMotivationEnabled bool   `mapstructure:"weekday_motivation_enabled"`
	WeekendMotivationEnabled bool   `mapstructure:"weekend_motivation_enabled"`
	DailySummaryEnabled      bool   `mapstructure:"daily_summary_enabled"`
}

type Config struct {
	Timezone      string              `mapstructure:"timezone"` // e.g. "Asia/Kolkata" (optional)
	LogLevel      string              `mapstructure:"log_level"`
	DataDir       string              `mapstructure:"data_dir"`
	Tick          time.Duration       `mapstructure:"tick"`
	Focus         FocusConfig         `mapstructure:"focus"`
	Desktop       DesktopConfig       `mapstructure:"desktop"`
	HTTP          HTTPConfig          `mapstructure:"http"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
}

func Default() Config {
	return Config{
		Timezone: "",
		LogLevel: "info",
		DataDir:  "",
		Tick:     time.Second,
		Focus: FocusConfig{
			Duration: 25 * time.Minute,
			Break:    5 * time.Minute,
		},
		Desktop: DesktopConfig{
			Enabled: true,
			AppName: "Nudge",
		},
		HTTP: HTTPConfig{
			Addr:  "127.0.0.1:7420",
			Rate:  5,
			Burst: 10,
		},
		Notifications: NotificationsConfig{
			Enabled:                  true,
			MorningEnabled:           true,
			MorningTime:              "08:30",
			EveningEnabled:           true,
			EveningTime:              "20:00",
			TaskRemindersEnabled:     true,
			AchievementsEnabled:      true,
			QuietHoursEnabled:        false,
			QuietStartTime:           "22:00",
			QuietEndTime:             "07:00",
			WeekdayMotivationEnabled: true,
			WeekendMotivationEnabled: true,
			DailySummaryEnabled:      true,
		},
	}
}

func xdgConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".config", "nudge")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads .env (if present), the YAML config file and NUDGE_* environment
// overrides. An empty path means ~/.config/nudge/config.yaml. A missing file
// is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	_ = godotenv.Load()

	if path == "" {
		p, err := xdgConfigPath()
		if err != nil {
			return cfg, err
		}
		path = p
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)
	v.SetEnvPrefix("NUDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// defaults
	v.SetDefault("timezone", cfg.Timezone)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("data_dir", cfg.DataDir)
	v.SetDefault("tick", cfg.Tick)
	v.SetDefault("focus.duration", cfg.Focus.Duration)
	v.SetDefault("focus.break", cfg.Focus.Break)
	v.SetDefault("desktop.enabled", cfg.Desktop.Enabled)
	v.SetDefault("desktop.app_name", cfg.Desktop.AppName)
	v.SetDefault("http.addr", cfg.HTTP.Addr)
	v.SetDefault("http.rate", cfg.HTTP.Rate)
	v.SetDefault("http.burst", cfg.HTTP.Burst)

	n := cfg.Notifications
	v.SetDefault("notifications.enabled", n.Enabled)
	v.SetDefault("notifications.morning_enabled", n.MorningEnabled)
	v.SetDefault("notifications.morning_time", n.MorningTime)
	v.SetDefault("notifications.evening_enabled", n.EveningEnabled)
	v.SetDefault("notifications.evening_time", n.EveningTime)
	v.SetDefault("notifications.task_reminders_enabled", n.TaskRemindersEnabled)
	v.SetDefault("notifications.achievements_enabled", n.AchievementsEnabled)
	v.SetDefault("notifications.quiet_hours_enabled", n.QuietHoursEnabled)
	v.SetDefault("notifications.quiet_start_time", n.QuietStartTime)
	v.SetDefault("notifications.quiet_end_time", n.QuietEndTime)
	v.SetDefault("notifications.weekday_motivation_enabled", n.WeekdayMotivationEnabled)
	v.SetDefault("notifications.weekend_motivation_enabled", n.WeekendMotivationEnabled)
	v.SetDefault("notifications.daily_summary_enabled", n.DailySummaryEnabled)

	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, fmt.Errorf("config read: %w", err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("config unmarshal: %w", err)
	}

	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}
	return cfg, nil
}

func (c Config) Location() *time.Location {
	if tz := strings.TrimSpace(c.Timezone); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc
		}
	}
	return time.Local
}

// SeedSettings converts the notifications section into the persisted
// configuration block.
func (c Config) SeedSettings() Settings {
	n := c.Notifications
	return Settings{
		Enabled:                  n.Enabled,
		MorningEnabled:           n.MorningEnabled,
		MorningTime:              n.MorningTime,
		EveningEnabled:           n.EveningEnabled,
		EveningTime:              n.EveningTime,
		TaskRemindersEnabled:     n.TaskRemindersEnabled,
		AchievementsEnabled:      n.AchievementsEnabled,
		Timezone:                 c.Timezone,
		QuietHoursEnabled:        n.QuietHoursEnabled,
		QuietStartTime:           n.QuietStartTime,
		QuietEndTime:             n.QuietEndTime,
		WeekdayMotivationEnabled: n.WeekdayMotivationEnabled,
		WeekendMotivationEnabled: n.WeekendMotivationEnabled,
		DailySummaryEnabled:      n.DailySummaryEnabled,
	}
}
