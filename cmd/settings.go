package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ramanasai/nudge/internal/config"
	"github.com/ramanasai/nudge/internal/ui"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change notification settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			t := ui.DefaultTheme
			for _, name := range config.SettingNames {
				v, err := a.settings.Get(name)
				if err != nil {
					return err
				}
				fmt.Println(t.Label.Render(fmt.Sprintf("%-26s", name)) + t.Value.Render(v))
			}
			return nil
		})
	},
}

// settingsSetCmd saves one option and reschedules so the change applies
// right away.
var settingsSetCmd = &cobra.Command{
	Use:   "set <name> <value>",
	Short: "Change one setting",
	Args:  cobra.ExactArgs(2),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) == 0 {
			return config.SettingNames, cobra.ShellCompDirectiveNoFileComp
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			s := a.settings
			if err := s.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := config.SaveSettings(a.db, s); err != nil {
				return err
			}
			a.settings = s
			fmt.Printf("%s = %s\n", args[0], args[1])
			return reschedule(a)
		})
	},
}

func init() {
	settingsCmd.AddCommand(settingsSetCmd)
}
