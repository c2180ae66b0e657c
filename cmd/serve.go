package cmd

import (
	"context"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ramanasai/nudge/internal/api"
	"github.com/ramanasai/nudge/internal/utils"
)

var serveAddr string

// serveCmd runs the background loops plus the HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler and serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			wg := runBackground(ctx, a)
			defer wg.Wait()

			addr := serveAddr
			if addr == "" {
				addr = a.cfg.HTTP.Addr
			}
			srv := api.New(api.Deps{
				Session:         a.session,
				Ledger:          a.ledger,
				Planner:         a.planner,
				Dispatcher:      a.dispatcher,
				Clock:           a.clock,
				Log:             a.log,
				DefaultDuration: a.cfg.Focus.Duration,
				Rate:            a.cfg.HTTP.Rate,
				Burst:           a.cfg.HTTP.Burst,
			})
			err := srv.ListenAndServe(ctx, addr)
			stop()
			return err
		})
	},
}

// daemonCmd runs the background loops without the API.
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Deliver scheduled notifications until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a.log.Info("daemon started", "tick", a.cfg.Tick)
			runBackground(ctx, a).Wait()
			a.log.Info("daemon stopped")
			return nil
		})
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")
}

// runBackground starts the session ticker, the delivery loop, the
// milestone watcher and the nightly reschedule. All stop with ctx.
func runBackground(ctx context.Context, a *app) *sync.WaitGroup {
	var wg sync.WaitGroup
	spawn := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}
	spawn(func() { a.session.Run(ctx, a.cfg.Tick) })
	spawn(func() { a.planner.WatchMilestones(ctx) })
	spawn(func() { _ = a.dispatcher.Run(ctx, a.cfg.Tick) })
	spawn(func() { rescheduleNightly(ctx, a) })
	return &wg
}

// rescheduleNightly rebuilds the schedule now and again after every local
// midnight, since slot eligibility depends on the day type.
func rescheduleNightly(ctx context.Context, a *app) {
	for {
		res, err := a.planner.RescheduleAll()
		if err != nil {
			a.log.Error("reschedule failed", "err", err)
		} else {
			a.log.Info("rescheduled", "scheduled", len(res.Scheduled), "skipped", len(res.Skipped), "invalid", len(res.Invalid))
		}

		s, err := a.planner.Settings()
		if err != nil {
			s = a.settings
		}
		now := a.clock.Now().In(s.Location())
		wait := utils.StartOfDay(now).AddDate(0, 0, 1).Sub(now) + time.Second
		select {
		case <-ctx.Done():
			return
		case <-a.clock.After(wait):
		}
	}
}
