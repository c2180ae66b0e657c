package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ramanasai/nudge/internal/session"
	"github.com/ramanasai/nudge/internal/ui"
)

var (
	timerDuration time.Duration
	timerKind     string
	timerJSON     bool
)

var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Control the countdown session",
	Long: `Examples:
	nudge timer start "write report"           # default focus length
	nudge timer start -d 50m -k work planning  # 50 minute work block
	nudge timer pause
	nudge timer resume
	nudge timer status --json`,
}

var timerStartCmd = &cobra.Command{
	Use:   "start [label]",
	Short: "Start a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			kind, err := session.ParseKind(timerKind)
			if err != nil {
				return err
			}
			d := timerDuration
			if d <= 0 {
				d = a.cfg.Focus.Duration
				if kind == session.KindBreak {
					d = a.cfg.Focus.Break
				}
			}
			if err := a.session.Start(d, kind, joinArgs(args)); err != nil {
				return err
			}
			return printState(a.session.State())
		})
	},
}

var timerPauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the running session and bank its time",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			if err := a.session.Pause(); err != nil {
				return err
			}
			return printState(a.session.State())
		})
	},
}

var timerResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a paused session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			if err := a.session.Resume(); err != nil {
				return err
			}
			return printState(a.session.State())
		})
	},
}

var timerResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Stop the session and return to idle",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			if err := a.session.Reset(); err != nil {
				return err
			}
			return printState(a.session.State())
		})
	},
}

var timerSetCmd = &cobra.Command{
	Use:   "set <duration>",
	Short: "Set the countdown length while idle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := time.ParseDuration(args[0])
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", args[0], err)
		}
		return withApp(func(a *app) error {
			if err := a.session.SetDuration(d); err != nil {
				return err
			}
			return printState(a.session.State())
		})
	},
}

var timerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			return printState(a.session.State())
		})
	},
}

func init() {
	timerStartCmd.Flags().DurationVarP(&timerDuration, "duration", "d", 0, "Countdown length (default from config)")
	timerStartCmd.Flags().StringVarP(&timerKind, "kind", "k", "focus", "Session kind: focus|work|break")
	timerCmd.PersistentFlags().BoolVar(&timerJSON, "json", false, "Print state as JSON")

	timerCmd.AddCommand(timerStartCmd, timerPauseCmd, timerResumeCmd, timerResetCmd, timerSetCmd, timerStatusCmd)
}

func printState(st session.State) error {
	if timerJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			session.State
			TotalSeconds     int64 `json:"totalSeconds"`
			RemainingSeconds int64 `json:"remainingSeconds"`
		}{st, st.TotalSeconds(), st.RemainingSeconds()})
	}
	t := ui.DefaultTheme
	status := t.Label.Render(st.Status.String())
	switch st.Status {
	case session.Running, session.Completed:
		status = t.Success.Render(st.Status.String())
	case session.Paused:
		status = t.Paused.Render(st.Status.String())
	}
	line := lipgloss.JoinHorizontal(lipgloss.Bottom,
		status, " ",
		t.Title.Render(string(st.Kind)), " ",
		t.Value.Render(ui.FormatClock(st.Remaining)),
		t.Label.Render(" of "+ui.FormatClock(st.Total)),
	)
	if st.Label != "" {
		line += "  " + t.Hint.Render(st.Label)
	}
	fmt.Println(line)
	return nil
}
