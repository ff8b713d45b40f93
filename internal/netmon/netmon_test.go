package netmon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fixedProbe returns whatever its pointer currently says.
func fixedProbe(online *bool) Probe {
	return func(ctx context.Context) bool { return *online }
}

func TestInitialStateUnknown(t *testing.T) {
	m := New(fixedProbe(new(bool)))
	if got := m.State(); got != StateUnknown {
		t.Fatalf("initial state: got %s, want unknown", got)
	}
	if m.IsOnline() {
		t.Fatal("unknown state must not report online")
	}
}

func TestCheckConnectionTransitions(t *testing.T) {
	ctx := context.Background()
	online := false
	m := New(fixedProbe(&online))

	if m.CheckConnection(ctx) {
		t.Fatal("probe says offline")
	}
	if got := m.State(); got != StateOffline {
		t.Fatalf("state: got %s, want offline", got)
	}

	online = true
	if !m.CheckConnection(ctx) {
		t.Fatal("probe says online")
	}
	if got := m.State(); got != StateOnline {
		t.Fatalf("state: got %s, want online", got)
	}
}

func TestEventsAreEdgeTriggered(t *testing.T) {
	ctx := context.Background()
	online := true
	m := New(fixedProbe(&online))

	events, unsubscribe := m.Subscribe()
	defer unsubscribe()

	// Three ticks with the same result: one transition event only
	m.CheckConnection(ctx)
	m.CheckConnection(ctx)
	m.CheckConnection(ctx)

	select {
	case ev := <-events:
		if !ev.Online {
			t.Fatal("expected online event")
		}
	default:
		t.Fatal("expected one transition event")
	}
	select {
	case <-events:
		t.Fatal("repeated probe ticks must not publish duplicate events")
	default:
	}

	online = false
	m.CheckConnection(ctx)
	select {
	case ev := <-events:
		if ev.Online {
			t.Fatal("expected offline event")
		}
	default:
		t.Fatal("expected offline transition event")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	m := New(fixedProbe(new(bool)))

	events, unsubscribe := m.Subscribe()
	unsubscribe()

	if _, open := <-events; open {
		t.Fatal("channel must be closed after unsubscribe")
	}
	// A second unsubscribe is a no-op
	unsubscribe()
}

func TestOnOnlineFiresOnlyOnOfflineToOnline(t *testing.T) {
	ctx := context.Background()
	online := true
	m := New(fixedProbe(&online))

	var fired int
	m.SetOnOnline(func() { fired++ })

	// unknown → online: state change but no sync trigger
	m.CheckConnection(ctx)
	if fired != 0 {
		t.Fatalf("unknown→online fired hook %d times", fired)
	}

	online = false
	m.CheckConnection(ctx)
	if fired != 0 {
		t.Fatalf("online→offline fired hook %d times", fired)
	}

	online = true
	m.CheckConnection(ctx)
	if fired != 1 {
		t.Fatalf("offline→online: hook fired %d times, want 1", fired)
	}

	// Staying online fires nothing further
	m.CheckConnection(ctx)
	if fired != 1 {
		t.Fatalf("steady online: hook fired %d times, want 1", fired)
	}
}

func TestHTTPProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx := context.Background()
	if !HTTPProbe(srv.URL)(ctx) {
		t.Fatal("healthy server must probe online")
	}

	srv.Close()
	if HTTPProbe(srv.URL)(ctx) {
		t.Fatal("unreachable server must probe offline")
	}
}
