package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/taskpilot/internal/app"
	"github.com/nhle/taskpilot/internal/calendar"
	"github.com/nhle/taskpilot/internal/reminder"
)

var (
	remindersOnce bool
	authCode      string
)

func init() {
	rootCmd.AddCommand(remindersCmd, calendarAuthCmd)

	remindersCmd.Flags().BoolVar(&remindersOnce, "once", false, "Fire due reminders once and exit")
	calendarAuthCmd.Flags().StringVar(&authCode, "code", "", "Authorization code (prompted when omitted)")
}

var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Fire due reminders until interrupted",
	Long: `Poll for due reminders and deliver them until interrupted with Ctrl-C.

Examples:
  # Keep running in a terminal
  taskpilot reminders

  # Fire whatever is due now, e.g. from cron
  taskpilot reminders --once`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			out := cmd.OutOrStdout()

			if remindersOnce {
				n, err := a.Dispatcher.RunOnce(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%d reminder(s) fired\n", n)
				return nil
			}

			a.Dispatcher.Start(ctx)
			fmt.Fprintln(out, helpLine("Watching reminders, press Ctrl-C to stop."))
			for {
				select {
				case <-ctx.Done():
					return nil
				case r := <-a.Dispatcher.Fired():
					fmt.Fprintln(out, header("Reminder")+" "+reminder.Message(r))
				}
			}
		})
	},
}

var calendarAuthCmd = &cobra.Command{
	Use:   "calendar-auth",
	Short: "Authorize Google Calendar access",
	Long: `Authorize deadline mirroring into Google Calendar. Download OAuth client
credentials for a desktop app from the Google Cloud console and point
calendar.credentials_file at them first.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		oauthCfg, err := calendar.OAuthConfig(cfg.Calendar.CredentialsFile)
		if err != nil {
			return err
		}

		code := strings.TrimSpace(authCode)
		if code == "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Open this link and paste the authorization code:\n\n%s\n\nCode: ",
				calendar.AuthURL(oauthCfg))
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("reading authorization code: %w", err)
			}
			code = strings.TrimSpace(line)
		}

		if err := calendar.ExchangeCode(cmd.Context(), oauthCfg, code, cfg.Calendar.TokenFile); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s\n", cfg.Calendar.TokenFile)
		if !cfg.Calendar.Enabled {
			fmt.Fprintln(cmd.OutOrStdout(), helpLine("Set calendar.enabled: true in "+configPath+" to start syncing."))
		}
		return nil
	},
}
