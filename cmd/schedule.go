package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ramanasai/nudge/internal/ui"
)

var rescheduleCmd = &cobra.Command{
	Use:   "reschedule",
	Short: "Cancel and rebuild every scheduled notification from settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(reschedule)
	},
}

var scheduledCmd = &cobra.Command{
	Use:   "scheduled",
	Short: "List pending notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			entries, err := a.dispatcher.Entries()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("Nothing scheduled. Run `nudge reschedule`.")
				return nil
			}
			t := ui.DefaultTheme
			loc := a.settings.Location()
			for _, e := range entries {
				repeat := "once"
				if e.Trigger.Repeats {
					repeat = e.Trigger.Rule.String()
				}
				fmt.Println(lipgloss.JoinHorizontal(lipgloss.Top,
					t.Value.Render(e.Trigger.Next.In(loc).Format("Mon Jan 02 15:04")), "  ",
					t.Title.Render(fmt.Sprintf("%-18s", e.ID)), "  ",
					t.Label.Render(fmt.Sprintf("%-24s", repeat)), "  ",
					e.Content.Title,
				))
			}
			return nil
		})
	},
}
