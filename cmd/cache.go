package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the local response cache",
}

var cacheSetCmd = &cobra.Command{
	Use:   "set <key> <json>",
	Short: "Cache a JSON value under a key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ttl, _ := cmd.Flags().GetDuration("ttl")

		var raw json.RawMessage
		if err := json.Unmarshal([]byte(args[1]), &raw); err != nil {
			return fmt.Errorf("value must be valid JSON: %w", err)
		}

		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		if err := eng.Cache.Put(cmd.Context(), args[0], raw, ttl); err != nil {
			return err
		}
		fmt.Printf("Cached %q for %s\n", args[0], ttl)
		return nil
	},
}

var cacheGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Read a cached value (expired entries are a miss)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		data, ok, err := eng.Cache.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("(miss)")
			return nil
		}
		fmt.Println(string(data))
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear <key>",
	Short: "Invalidate a cached key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		if err := eng.Cache.Invalidate(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Invalidated %q\n", args[0])
		return nil
	},
}

func init() {
	cacheSetCmd.Flags().Duration("ttl", 60*time.Minute, "time to live")

	cacheCmd.AddCommand(cacheSetCmd, cacheGetCmd, cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
