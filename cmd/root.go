package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/ramanasai/nudge/internal/config"
	"github.com/ramanasai/nudge/internal/db"
	"github.com/ramanasai/nudge/internal/ledger"
	"github.com/ramanasai/nudge/internal/logging"
	"github.com/ramanasai/nudge/internal/notify"
	"github.com/ramanasai/nudge/internal/reminder"
	"github.com/ramanasai/nudge/internal/session"
	"github.com/ramanasai/nudge/internal/version"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "nudge",
	Short:         "Focus timer, daily ledger and reminder scheduler",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	rootCmd.Version = version.String()
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/nudge/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.AddCommand(
		timerCmd, focusCmd, summaryCmd,
		remindCmd, rescheduleCmd, scheduledCmd,
		settingsCmd, serveCmd, daemonCmd, versionCmd,
	)
}

// app is everything one command invocation needs, opened from config.
type app struct {
	cfg        config.Config
	log        *log.Logger
	db         *db.DB
	clock      clockwork.Clock
	settings   config.Settings
	ledger     *ledger.Ledger
	session    *session.Clock
	sink       notify.Sink
	dispatcher *notify.Local
	planner    *reminder.Planner
}

func openApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logger := logging.New(cfg.LogLevel, os.Stderr)

	dbh, err := db.Open(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	settings, err := config.LoadSettings(dbh, cfg.SeedSettings())
	if err != nil {
		dbh.Close()
		return nil, fmt.Errorf("load settings: %w", err)
	}

	clk := clockwork.NewRealClock()
	a := &app{
		cfg:      cfg,
		log:      logger,
		db:       dbh,
		clock:    clk,
		settings: settings,
		ledger:   ledger.New(dbh, clk, settings.Location(), logger),
	}
	desktop := notify.NewDesktop(cfg.Desktop.AppName, cfg.Desktop.Enabled)
	a.sink = desktop
	if cfg.Desktop.Enabled {
		a.sink = notify.Fanout{desktop, notify.LogSink{Log: logger.With("component", "notify")}}
	}
	a.dispatcher = notify.NewLocal(dbh, clk, a.sink, logger)
	a.planner = reminder.NewPlanner(dbh, cfg.SeedSettings(), a.dispatcher, a.sink, a.ledger, clk, logger)
	a.dispatcher.SetRenderer(a.planner.Render)
	a.ledger.SetLocator(a.planner.Location)

	a.session = session.New(clk, a.ledger, logger)
	a.session.OnComplete(func(st session.State) {
		a.planner.SessionCompleted(string(st.Kind), st.Label, st.Total)
	})
	if err := a.session.Persist(dbh); err != nil {
		logger.Warn("discarding unreadable session", "err", err)
		if err := dbh.Delete(session.SnapshotKey); err != nil {
			dbh.Close()
			return nil, err
		}
		if err := a.session.Persist(dbh); err != nil {
			dbh.Close()
			return nil, err
		}
	}
	return a, nil
}

func (a *app) Close() error { return a.db.Close() }

// withApp opens the app for the length of fn.
func withApp(fn func(a *app) error) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
