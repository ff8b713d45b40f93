package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/healthsync/hsync/internal/syncconfig"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch connectivity and sync automatically on reconnect",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		serverURL := syncconfig.GetServerURL()
		eng.BindAutoSync(serverURL, syncconfig.GetAuthToken())

		events, unsubscribe := eng.Monitor().Subscribe()
		defer unsubscribe()
		go func() {
			for ev := range events {
				if ev.Online {
					fmt.Println("Back online, syncing...")
				} else {
					fmt.Println("Connection lost, queuing locally.")
				}
			}
		}()

		fmt.Printf("Watching %s (Ctrl-C to stop)\n", serverURL)
		eng.Monitor().Run(cmd.Context(), syncconfig.AutoSyncInterval())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
