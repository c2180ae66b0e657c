package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ramanasai/nudge/internal/ledger"
	"github.com/ramanasai/nudge/internal/ui"
	"github.com/ramanasai/nudge/internal/utils"
)

var (
	summaryPreset string
	summaryChart  bool
	summaryWidth  int
)

// summaryCmd prints ledger totals for a date range.
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Focus and work totals",
	Long: `Examples:
	nudge summary                        # today
	nudge summary --preset last7days --chart
	nudge summary --preset month`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			now := a.clock.Now().In(a.settings.Location())
			from, to, err := utils.GetDateRange(summaryPreset, now)
			if err != nil {
				return err
			}
			entries, err := a.ledger.Range(from, to)
			if err != nil {
				return err
			}

			if summaryChart {
				fmt.Println(ui.LedgerChart(entries, summaryWidth, 12))
				fmt.Println()
			}
			fmt.Println(ui.LedgerTable(entries))

			life := int64(a.ledger.Lifetime().Seconds())
			t := ui.DefaultTheme
			fmt.Println()
			fmt.Println(t.Label.Render("lifetime focus ") + t.Value.Render(fmt.Sprintf("%dh%02dm", life/3600, life%3600/60)))
			for _, m := range ledger.Unlocked(life) {
				fmt.Println("  " + t.Success.Render("★ "+m.Name) + t.Label.Render("  "+m.Subtitle))
			}
			return nil
		})
	},
}

func init() {
	summaryCmd.Flags().StringVar(&summaryPreset, "preset", "today", "today|yesterday|week|month|last7days|last30days")
	summaryCmd.Flags().BoolVar(&summaryChart, "chart", false, "Draw a bar chart")
	summaryCmd.Flags().IntVar(&summaryWidth, "width", 60, "Chart width")
}
