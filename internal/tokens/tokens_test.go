package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/healthsync/hsync/internal/store"
)

func setupQueue(t *testing.T) (*Queue, *time.Time) {
	t.Helper()

	backend, err := store.OpenSQLite(t.TempDir())
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	t.Cleanup(func() { backend.Close() })

	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	q := New(backend)
	q.SetNow(func() time.Time { return now })
	return q, &now
}

type walkIn struct {
	PatientName  string `json:"patientName"`
	PatientPhone string `json:"patientPhone"`
}

func TestSaveCreatesPendingToken(t *testing.T) {
	ctx := context.Background()
	q, _ := setupQueue(t)

	tok, err := q.Save(ctx, "clinic-1", "doc-1", walkIn{PatientName: "Asha", PatientPhone: "555"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	if !strings.HasPrefix(tok.LocalID, "local_") {
		t.Fatalf("local id: got %q", tok.LocalID)
	}
	if tok.SyncStatus != StatusPending {
		t.Fatalf("status: got %q, want pending", tok.SyncStatus)
	}
	if tok.ServerID != "" {
		t.Fatalf("server id: got %q, want empty", tok.ServerID)
	}
	if tok.TokenDate != "2026-08-29" {
		t.Fatalf("token date: got %q", tok.TokenDate)
	}

	stored, err := q.Get(ctx, tok.LocalID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var p walkIn
	if err := json.Unmarshal(stored.Payload, &p); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if p.PatientName != "Asha" {
		t.Fatalf("payload name: got %q", p.PatientName)
	}
}

func TestPendingUsesStatusIndex(t *testing.T) {
	ctx := context.Background()
	q, _ := setupQueue(t)

	t1, _ := q.Save(ctx, "c", "d", walkIn{})
	t2, _ := q.Save(ctx, "c", "d", walkIn{})

	if err := q.MarkSynced(ctx, t1.LocalID, "srv_1"); err != nil {
		t.Fatalf("mark synced: %v", err)
	}

	pending, err := q.Pending(ctx)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending: got %d, want 1", len(pending))
	}
	if pending[0].LocalID != t2.LocalID {
		t.Fatalf("pending id: got %s, want %s", pending[0].LocalID, t2.LocalID)
	}
}

func TestMarkSyncedIdempotent(t *testing.T) {
	ctx := context.Background()
	q, _ := setupQueue(t)

	tok, _ := q.Save(ctx, "clinic-1", "doc-1", walkIn{})

	if err := q.MarkSynced(ctx, tok.LocalID, "srv_99"); err != nil {
		t.Fatalf("first mark: %v", err)
	}
	first, err := q.Get(ctx, tok.LocalID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if err := q.MarkSynced(ctx, tok.LocalID, "srv_99"); err != nil {
		t.Fatalf("second mark: %v", err)
	}
	second, err := q.Get(ctx, tok.LocalID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if second.SyncStatus != StatusSynced || second.ServerID != "srv_99" {
		t.Fatalf("state: got %s/%s", second.SyncStatus, second.ServerID)
	}
	if !second.SyncedAt.Equal(*first.SyncedAt) {
		t.Fatalf("syncedAt changed on repeat call: %v vs %v", second.SyncedAt, first.SyncedAt)
	}
}

func TestMarkSyncedLastCallWins(t *testing.T) {
	ctx := context.Background()
	q, now := setupQueue(t)

	tok, _ := q.Save(ctx, "c", "d", walkIn{})
	if err := q.MarkSynced(ctx, tok.LocalID, "srv_1"); err != nil {
		t.Fatalf("mark: %v", err)
	}

	*now = now.Add(time.Minute)
	if err := q.MarkSynced(ctx, tok.LocalID, "srv_2"); err != nil {
		t.Fatalf("re-mark: %v", err)
	}

	got, _ := q.Get(ctx, tok.LocalID)
	if got.ServerID != "srv_2" {
		t.Fatalf("server id: got %s, want srv_2", got.ServerID)
	}
}

func TestMarkSyncedUnknownID(t *testing.T) {
	ctx := context.Background()
	q, _ := setupQueue(t)

	err := q.MarkSynced(ctx, "local_missing", "srv_1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestTodayFiltersByClinicDoctorAndDate(t *testing.T) {
	ctx := context.Background()
	q, now := setupQueue(t)

	a, _ := q.Save(ctx, "clinic-1", "doc-1", walkIn{})
	q.Save(ctx, "clinic-1", "doc-2", walkIn{}) // other doctor
	q.Save(ctx, "clinic-2", "doc-1", walkIn{}) // other clinic

	// A token from yesterday must not show up
	*now = now.Add(-24 * time.Hour)
	q.Save(ctx, "clinic-1", "doc-1", walkIn{})
	*now = now.Add(24 * time.Hour)

	today, err := q.Today(ctx, "clinic-1", "doc-1")
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if len(today) != 1 {
		t.Fatalf("today: got %d, want 1", len(today))
	}
	if today[0].LocalID != a.LocalID {
		t.Fatalf("today id: got %s, want %s", today[0].LocalID, a.LocalID)
	}
}

func TestSyncedTokensAreKeptAsHistory(t *testing.T) {
	ctx := context.Background()
	q, _ := setupQueue(t)

	tok, _ := q.Save(ctx, "c", "d", walkIn{})
	q.MarkSynced(ctx, tok.LocalID, "srv_1")

	all, err := q.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("all: got %d, want 1 (synced token must not be deleted)", len(all))
	}
	if all[0].ServerID != "" && all[0].SyncStatus != StatusSynced {
		t.Fatal("serverId set but status not synced")
	}
}
