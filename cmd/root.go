package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/healthsync/hsync/internal/engine"
	"github.com/healthsync/hsync/internal/syncconfig"
)

var version string

// SetVersion sets the version string shown by --version.
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

var rootCmd = &cobra.Command{
	Use:   "hsync",
	Short: "Offline-first queue token sync client",
	Long: `hsync - offline-first client for the clinic queue token service.

Queue tokens and mutating API calls created while offline are stored
durably on this device and synced to the server once connectivity returns.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openEngine builds the engine over the local data dir, probing the
// configured server for connectivity. Callers must Close it.
func openEngine() (*engine.Engine, error) {
	dir, err := syncconfig.DataDir()
	if err != nil {
		return nil, err
	}
	return engine.Open(dir, syncconfig.GetServerURL())
}
