package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ramanasai/nudge/internal/reminder"
	"github.com/ramanasai/nudge/internal/schedule"
	"github.com/ramanasai/nudge/internal/ui"
)

var (
	remindRule string
	remindBody string
)

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Manage task reminders",
	Long: `Rules:
	once:2026-10-20@09:00    once:tomorrow@18:30
	hourly@:15
	daily@09:00
	weekly:mon@09:00
	monthly:1@09:00

Examples:
	nudge remind add "stand up" --rule daily@10:00
	nudge remind add                    # interactive form
	nudge remind list
	nudge remind rm 3f2a`,
}

var remindAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Add a reminder and reschedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		title, rule, body := joinArgs(args), remindRule, remindBody
		if title == "" || rule == "" {
			if err := reminderForm(&title, &rule, &body); err != nil {
				return err
			}
		}
		return withApp(func(a *app) error {
			now := a.clock.Now().In(a.settings.Location())
			r, err := schedule.ParseRule(rule, now)
			if err != nil {
				return err
			}
			rem, err := a.planner.Reminders().Add(title, body, r, now)
			if err != nil {
				return err
			}
			fmt.Printf("Reminder %s added: %s (%s)\n", shortID(rem.ID), rem.Title, rem.Rule)
			return reschedule(a)
		})
	},
}

// reminderForm asks for whatever the flags left out.
func reminderForm(title, rule, body *string) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Title").Value(title).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("title is required")
					}
					return nil
				}),
			huh.NewInput().Title("Body").Value(body),
			huh.NewInput().Title("Rule").
				Description("once:DATE@HH:MM, hourly@:MM, daily@HH:MM, weekly:DAY@HH:MM, monthly:N@HH:MM").
				Placeholder("daily@09:00").
				Value(rule),
		).Title("New reminder"),
	).WithShowHelp(true).WithShowErrors(true)
	if err := form.Run(); err != nil {
		return err
	}
	if *rule == "" {
		*rule = "daily@09:00"
	}
	return nil
}

var remindListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reminders",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			list, err := a.planner.Reminders().List()
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Println("No reminders.")
				return nil
			}
			t := ui.DefaultTheme
			for _, r := range list {
				state := t.Success.Render("on ")
				if !r.Active {
					state = t.Label.Render("off")
				}
				fmt.Println(lipgloss.JoinHorizontal(lipgloss.Top,
					t.Hint.Render(shortID(r.ID)), "  ", state, "  ",
					t.Title.Render(r.Title), "  ", t.Label.Render(r.Rule.String()),
				))
				if r.Body != "" {
					fmt.Println("          " + r.Body)
				}
			}
			return nil
		})
	},
}

var remindRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"remove"},
	Short:   "Remove a reminder by id or unique prefix",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			store := a.planner.Reminders()
			r, err := store.Resolve(args[0])
			if err != nil {
				return err
			}
			if err := store.Remove(r.ID); err != nil {
				return err
			}
			fmt.Printf("Removed %s: %s\n", shortID(r.ID), r.Title)
			return reschedule(a)
		})
	},
}

func setActiveCmd(use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				store := a.planner.Reminders()
				r, err := store.Resolve(args[0])
				if err != nil {
					return err
				}
				if _, err := store.SetActive(r.ID, active); err != nil {
					return err
				}
				return reschedule(a)
			})
		},
	}
}

func init() {
	remindAddCmd.Flags().StringVarP(&remindRule, "rule", "r", "", "Recurrence rule, e.g. daily@09:00")
	remindAddCmd.Flags().StringVarP(&remindBody, "body", "b", "", "Notification body")

	remindCmd.AddCommand(
		remindAddCmd, remindListCmd, remindRmCmd,
		setActiveCmd("enable", "Enable a reminder", true),
		setActiveCmd("disable", "Disable a reminder", false),
	)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// printResult reports a reschedule pass. Skips are informational.
func printResult(res reminder.Result) {
	t := ui.DefaultTheme
	if res.PermissionDenied {
		fmt.Fprintln(os.Stderr, t.Error.Render("Notifications are not permitted; nothing scheduled."))
		return
	}
	fmt.Printf("%s %d scheduled\n", t.Success.Render("✓"), len(res.Scheduled))
	for _, s := range res.Skipped {
		fmt.Printf("  %s %s: %s\n", t.Label.Render("skip"), s.ID, s.Reason)
	}
	for _, s := range res.Invalid {
		fmt.Printf("  %s %s: %s\n", t.Error.Render("invalid"), s.ID, s.Reason)
	}
}

func reschedule(a *app) error {
	res, err := a.planner.RescheduleAll()
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}
