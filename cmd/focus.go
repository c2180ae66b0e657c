package cmd

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ramanasai/nudge/internal/session"
	"github.com/ramanasai/nudge/internal/ui"
)

var (
	focusDuration time.Duration
	focusKind     string
)

// focusCmd opens the full-screen countdown.
var focusCmd = &cobra.Command{
	Use:   "focus [label]",
	Short: "Open the interactive focus timer",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			kind, err := session.ParseKind(focusKind)
			if err != nil {
				return err
			}
			d := focusDuration
			if d <= 0 {
				d = a.cfg.Focus.Duration
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go a.planner.WatchMilestones(ctx)

			m := ui.NewFocusModel(a.session, a.ledger, d, kind, joinArgs(args))
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return err
		})
	},
}

func init() {
	focusCmd.Flags().DurationVarP(&focusDuration, "duration", "d", 0, "Countdown length (default from config)")
	focusCmd.Flags().StringVarP(&focusKind, "kind", "k", "focus", "Session kind: focus|work|break")
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
