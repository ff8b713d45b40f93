package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/healthsync/hsync/internal/tokens"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show offline queue and connectivity status",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		ctx := cmd.Context()

		all, err := eng.Tokens.All(ctx)
		if err != nil {
			return err
		}
		var pending, synced int
		for _, tok := range all {
			if tok.SyncStatus == tokens.StatusSynced {
				synced++
			} else {
				pending++
			}
		}

		acts, err := eng.Actions.List(ctx)
		if err != nil {
			return err
		}

		deviceID, err := eng.DeviceID(ctx)
		if err != nil {
			return err
		}

		online := eng.Monitor().CheckConnection(ctx)

		fmt.Printf("Device:  %s\n", deviceID)
		if online {
			fmt.Println("Network: online")
		} else {
			fmt.Println("Network: offline")
		}
		fmt.Printf("Tokens:  %d synced, %d pending\n", synced, pending)
		fmt.Printf("Actions: %d pending\n", len(acts))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
