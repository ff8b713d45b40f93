package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/healthsync/hsync/internal/syncconfig"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the bearer token used for sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, _ := cmd.Flags().GetString("token")
		server, _ := cmd.Flags().GetString("server")
		email, _ := cmd.Flags().GetString("email")

		creds := &syncconfig.AuthCredentials{
			AuthToken: token,
			Email:     email,
			ServerURL: server,
		}
		if err := syncconfig.SaveAuth(creds); err != nil {
			return err
		}
		fmt.Println("Credentials saved.")
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := syncconfig.SaveAuth(&syncconfig.AuthCredentials{}); err != nil {
			return err
		}
		fmt.Println("Credentials cleared.")
		return nil
	},
}

func init() {
	loginCmd.Flags().String("token", "", "bearer token")
	loginCmd.Flags().String("server", "", "sync server URL")
	loginCmd.Flags().String("email", "", "account email")
	loginCmd.MarkFlagRequired("token")

	rootCmd.AddCommand(loginCmd, logoutCmd)
}
