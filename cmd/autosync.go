package cmd

import (
	"context"
	"log/slog"

	"github.com/healthsync/hsync/internal/syncconfig"
)

// autoSyncAfterMutation runs a quick best-effort sync after a mutating
// command completes. Errors are logged, never surfaced: the mutation is
// already durable locally, and the next sync cycle picks it up anyway.
func autoSyncAfterMutation(ctx context.Context) {
	if !syncconfig.AutoSyncEnabled() {
		return
	}
	if !syncconfig.IsAuthenticated() {
		return
	}

	eng, err := openEngine()
	if err != nil {
		slog.Debug("autosync: open engine", "err", err)
		return
	}
	defer eng.Close()

	res := eng.SyncWithServer(ctx, syncconfig.GetServerURL(), syncconfig.GetAuthToken())
	if !res.Success {
		slog.Debug("autosync skipped", "reason", res.Reason)
		return
	}
	slog.Debug("autosync finished",
		"tokens_synced", res.Tokens.Synced, "actions_synced", res.Actions.Synced)
}
