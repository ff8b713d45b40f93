package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/healthsync/hsync/internal/syncconfig"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Drain the offline queues against the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		res := eng.SyncWithServer(cmd.Context(), syncconfig.GetServerURL(), syncconfig.GetAuthToken())
		if !res.Success {
			fmt.Printf("Sync skipped: %s\n", res.Reason)
			return nil
		}

		fmt.Printf("Tokens:  %d synced, %d failed\n", res.Tokens.Synced, res.Tokens.Failed)
		fmt.Printf("Actions: %d synced, %d failed\n", res.Actions.Synced, res.Actions.Failed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
