package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/healthsync/hsync/internal/engine"
	"github.com/healthsync/hsync/internal/tokens"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage locally created queue tokens",
}

var tokenAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a queue token (works offline)",
	RunE: func(cmd *cobra.Command, args []string) error {
		clinicID, _ := cmd.Flags().GetString("clinic")
		doctorID, _ := cmd.Flags().GetString("doctor")
		patient, _ := cmd.Flags().GetString("patient")
		phone, _ := cmd.Flags().GetString("phone")
		bookingType, _ := cmd.Flags().GetString("type")

		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		payload := map[string]string{
			"clinicId":     clinicID,
			"doctorId":     doctorID,
			"patientName":  patient,
			"patientPhone": phone,
			"bookingType":  bookingType,
		}
		tok, err := eng.Tokens.Save(cmd.Context(), clinicID, doctorID, payload)
		if err != nil {
			return err
		}

		fmt.Printf("Token queued: %s (%s)\n", tok.LocalID, tok.SyncStatus)
		autoSyncAfterMutation(cmd.Context())
		return nil
	},
}

var tokenListCmd = &cobra.Command{
	Use:   "list",
	Short: "List locally stored queue tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		today, _ := cmd.Flags().GetBool("today")
		pendingOnly, _ := cmd.Flags().GetBool("pending")
		clinicID, _ := cmd.Flags().GetString("clinic")
		doctorID, _ := cmd.Flags().GetString("doctor")

		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		ctx := cmd.Context()
		toks, err := listTokens(ctx, eng, today, pendingOnly, clinicID, doctorID)
		if err != nil {
			return err
		}

		if len(toks) == 0 {
			fmt.Println("No tokens.")
			return nil
		}
		for _, tok := range toks {
			serverID := tok.ServerID
			if serverID == "" {
				serverID = "-"
			}
			var payload map[string]any
			json.Unmarshal(tok.Payload, &payload)
			name, _ := payload["patientName"].(string)
			fmt.Printf("%-32s %-8s %-26s %s  %s\n",
				tok.LocalID, tok.SyncStatus, serverID, tok.TokenDate, name)
		}
		return nil
	},
}

func listTokens(ctx context.Context, eng *engine.Engine, today, pendingOnly bool, clinicID, doctorID string) ([]*tokens.Token, error) {
	switch {
	case today:
		return eng.Tokens.Today(ctx, clinicID, doctorID)
	case pendingOnly:
		return eng.Tokens.Pending(ctx)
	default:
		return eng.Tokens.All(ctx)
	}
}

func init() {
	tokenAddCmd.Flags().String("clinic", "", "clinic id")
	tokenAddCmd.Flags().String("doctor", "", "doctor id")
	tokenAddCmd.Flags().String("patient", "", "patient name")
	tokenAddCmd.Flags().String("phone", "", "patient phone")
	tokenAddCmd.Flags().String("type", "walk_in", "booking type")
	tokenAddCmd.MarkFlagRequired("clinic")
	tokenAddCmd.MarkFlagRequired("doctor")

	tokenListCmd.Flags().Bool("today", false, "only today's tokens for --clinic/--doctor")
	tokenListCmd.Flags().Bool("pending", false, "only tokens not yet synced")
	tokenListCmd.Flags().String("clinic", "", "clinic id (with --today)")
	tokenListCmd.Flags().String("doctor", "", "doctor id (with --today)")

	tokenCmd.AddCommand(tokenAddCmd, tokenListCmd)
	rootCmd.AddCommand(tokenCmd)
}
