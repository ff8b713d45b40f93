package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var actionCmd = &cobra.Command{
	Use:   "action",
	Short: "Manage the generic pending-action queue",
}

var actionAddCmd = &cobra.Command{
	Use:   "add <endpoint>",
	Short: "Queue a mutating API call for replay (works offline)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		method, _ := cmd.Flags().GetString("method")
		data, _ := cmd.Flags().GetString("data")

		var payload any
		if data != "" {
			var raw json.RawMessage
			if err := json.Unmarshal([]byte(data), &raw); err != nil {
				return fmt.Errorf("--data must be valid JSON: %w", err)
			}
			payload = raw
		}

		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		act, err := eng.Actions.Enqueue(cmd.Context(), method, args[0], payload)
		if err != nil {
			return err
		}

		fmt.Printf("Action queued: %s %s %s\n", act.ID, act.Method, act.Endpoint)
		autoSyncAfterMutation(cmd.Context())
		return nil
	},
}

var actionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued actions in replay order",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		acts, err := eng.Actions.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(acts) == 0 {
			fmt.Println("No pending actions.")
			return nil
		}
		for _, act := range acts {
			fmt.Printf("%-38s %-6s %-40s retries=%d\n", act.ID, act.Method, act.Endpoint, act.RetryCount)
		}
		return nil
	},
}

func init() {
	actionAddCmd.Flags().StringP("method", "X", "POST", "HTTP method (POST, PUT, DELETE)")
	actionAddCmd.Flags().StringP("data", "d", "", "JSON request body")

	actionCmd.AddCommand(actionAddCmd, actionListCmd)
	rootCmd.AddCommand(actionCmd)
}
