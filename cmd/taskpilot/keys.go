package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/taskpilot/internal/credential"
)

var (
	storeAIKey = credential.SetAIKey
	clearAIKey = credential.ClearAIKey
)

func init() {
	rootCmd.AddCommand(setKeyCmd, clearKeyCmd)
}

var setKeyCmd = &cobra.Command{
	Use:   "set-key [key]",
	Short: "Store the AI API key in the system keyring",
	Long: `Store the API key used for assistant requests in the system keyring.
The key is read from stdin when not given as an argument, which keeps it out
of shell history. TASKPILOT_AI_API_KEY still takes precedence when set.

Examples:
  taskpilot set-key sk-...
  pbpaste | taskpilot set-key`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var key string
		if len(args) == 1 {
			key = args[0]
		} else {
			fmt.Fprint(cmd.OutOrStdout(), "API key: ")
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("reading api key: %w", err)
			}
			key = line
		}

		if err := storeAIKey(strings.TrimSpace(key)); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "API key stored")
		return nil
	},
}

var clearKeyCmd = &cobra.Command{
	Use:   "clear-key",
	Short: "Remove the AI API key from the system keyring",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := clearAIKey(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "API key removed")
		return nil
	},
}
