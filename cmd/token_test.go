package cmd

import (
	"context"
	"testing"

	"github.com/healthsync/hsync/internal/tokens"
)

// setupCLI points the CLI's config and data dirs at temp locations so each
// test runs against a fresh store with auto-sync disabled.
func setupCLI(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("HSYNC_DATA_DIR", t.TempDir())
	t.Setenv("HSYNC_AUTO_SYNC", "0")
}

func runCommand(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestTokenAddQueuesPending(t *testing.T) {
	setupCLI(t)

	err := runCommand(t, "token", "add",
		"--clinic", "clinic-1", "--doctor", "doc-1",
		"--patient", "Asha", "--phone", "555")
	if err != nil {
		t.Fatalf("token add: %v", err)
	}

	eng, err := openEngine()
	if err != nil {
		t.Fatalf("open engine: %v", err)
	}
	defer eng.Close()

	pending, err := eng.Tokens.Pending(context.Background())
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending: got %d, want 1", len(pending))
	}
	if pending[0].SyncStatus != tokens.StatusPending {
		t.Fatalf("status: got %s", pending[0].SyncStatus)
	}
	if pending[0].ClinicID != "clinic-1" || pending[0].DoctorID != "doc-1" {
		t.Fatalf("routing: %s/%s", pending[0].ClinicID, pending[0].DoctorID)
	}
}

func TestActionAddRejectsBadJSON(t *testing.T) {
	setupCLI(t)

	err := runCommand(t, "action", "add", "/api/x", "-X", "POST", "-d", "{not json")
	if err == nil {
		t.Fatal("expected error for invalid JSON body")
	}
}

func TestActionAddQueues(t *testing.T) {
	setupCLI(t)

	err := runCommand(t, "action", "add", "/api/appointments", "-X", "POST", "-d", `{"slot":"9am"}`)
	if err != nil {
		t.Fatalf("action add: %v", err)
	}

	eng, err := openEngine()
	if err != nil {
		t.Fatalf("open engine: %v", err)
	}
	defer eng.Close()

	acts, err := eng.Actions.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(acts) != 1 {
		t.Fatalf("actions: got %d, want 1", len(acts))
	}
	if acts[0].Method != "POST" || acts[0].Endpoint != "/api/appointments" {
		t.Fatalf("action: %s %s", acts[0].Method, acts[0].Endpoint)
	}
}
