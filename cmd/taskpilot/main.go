// Command taskpilot manages tasks, deadlines, reminders and assistant
// recommendations from the terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nhle/taskpilot/internal/app"
	"github.com/nhle/taskpilot/internal/model"
)

var (
	// configPath is the YAML configuration file
	configPath string
	// version information
	version = "dev"
)

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "taskpilot",
	Short: "Task manager with calendar sync, reminders and an assistant",
	Long: `taskpilot keeps a local task list in sync with Google Calendar and
scheduled reminders, tracks time spent on tasks, and suggests what to do next.

Examples:
  # Add a task with a deadline
  taskpilot add "Submit report" --priority high --deadline "2026-05-08 17:00"

  # See what the assistant recommends
  taskpilot recommend`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", model.DefaultConfigPath(), "configuration file")
	rootCmd.AddCommand(initConfigCmd)
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write the default configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config %s already exists", configPath)
		}
		if err := model.SaveConfig(configPath, model.DefaultConfig()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)
		return nil
	},
}

// loadConfig reads the configuration selected by --config.
func loadConfig() (*model.AppConfig, error) {
	return model.LoadConfig(configPath)
}

// withApp builds the application for one command and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}
