package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ramanasai/nudge/internal/session"
)

// newTestConfig points the commands at a throwaway data directory.
func newTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "data_dir: " + filepath.Join(dir, "data") + "\n" +
		"log_level: error\n" +
		"timezone: UTC\n" +
		"desktop:\n  enabled: false\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func run(t *testing.T, cfg string, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(append([]string{"--config", cfg}, args...))
	return rootCmd.Execute()
}

// ============================================================
// Timer commands
// ============================================================

func TestTimerStatePersistsAcrossInvocations(t *testing.T) {
	cfg := newTestConfig(t)

	if err := run(t, cfg, "timer", "start", "-d", "10m", "-k", "work", "planning"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := run(t, cfg, "timer", "pause"); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := run(t, cfg, "timer", "start"); err == nil {
		t.Fatal("start while paused should fail")
	}

	configPath = cfg
	a, err := openApp()
	if err != nil {
		t.Fatalf("open app: %v", err)
	}
	defer a.Close()
	st := a.session.State()
	if st.Status != session.Paused || st.Kind != session.KindWork || st.Label != "planning" {
		t.Fatalf("unexpected state: %+v", st)
	}
}

// ============================================================
// Reminders and settings
// ============================================================

func TestRemindAddAndRemove(t *testing.T) {
	cfg := newTestConfig(t)

	if err := run(t, cfg, "remind", "add", "stand", "up", "--rule", "daily@10:00"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := run(t, cfg, "remind", "add", "bad", "--rule", "fortnightly@10:00"); err == nil {
		t.Fatal("expected invalid rule error")
	}

	configPath = cfg
	a, err := openApp()
	if err != nil {
		t.Fatalf("open app: %v", err)
	}
	list, err := a.planner.Reminders().List()
	a.Close()
	if err != nil || len(list) != 1 || list[0].Title != "stand up" {
		t.Fatalf("reminders: %+v, %v", list, err)
	}

	if err := run(t, cfg, "remind", "rm", list[0].ID[:6]); err != nil {
		t.Fatalf("rm: %v", err)
	}
	if err := run(t, cfg, "remind", "rm", list[0].ID); err == nil {
		t.Fatal("second remove should fail")
	}
}

func TestSettingsSetValidates(t *testing.T) {
	cfg := newTestConfig(t)

	if err := run(t, cfg, "settings", "set", "morningTime", "07:45"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := run(t, cfg, "settings", "set", "morningTime", "7 o'clock"); err == nil {
		t.Fatal("expected validation error")
	}
	if err := run(t, cfg, "settings", "set", "nonsense", "true"); err == nil {
		t.Fatal("expected unknown setting error")
	}

	configPath = cfg
	a, err := openApp()
	if err != nil {
		t.Fatalf("open app: %v", err)
	}
	defer a.Close()
	s, err := a.planner.Settings()
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if s.MorningTime != "07:45" {
		t.Fatalf("morningTime = %q", s.MorningTime)
	}
}
