package syncconfig

import (
	"testing"
	"time"
)

func TestAuthRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	creds, err := LoadAuth()
	if err != nil {
		t.Fatalf("load missing auth: %v", err)
	}
	if creds != nil {
		t.Fatal("expected nil creds before first save")
	}
	if IsAuthenticated() {
		t.Fatal("not authenticated yet")
	}

	if err := SaveAuth(&AuthCredentials{AuthToken: "tok-1", Email: "a@b.c"}); err != nil {
		t.Fatalf("save auth: %v", err)
	}

	creds, err = LoadAuth()
	if err != nil {
		t.Fatalf("load auth: %v", err)
	}
	if creds.AuthToken != "tok-1" || creds.Email != "a@b.c" {
		t.Fatalf("round trip: %+v", creds)
	}
	if !IsAuthenticated() {
		t.Fatal("expected authenticated")
	}
}

func TestServerURLResolution(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("HSYNC_SERVER_URL", "")

	if got := GetServerURL(); got != defaultServerURL {
		t.Fatalf("default url: got %s", got)
	}

	if err := SaveConfig(&Config{Sync: SyncConfig{URL: "https://cfg.example"}}); err != nil {
		t.Fatalf("save config: %v", err)
	}
	if got := GetServerURL(); got != "https://cfg.example" {
		t.Fatalf("config url: got %s", got)
	}

	t.Setenv("HSYNC_SERVER_URL", "https://env.example")
	if got := GetServerURL(); got != "https://env.example" {
		t.Fatalf("env url wins: got %s", got)
	}
}

func TestAutoSyncEnabled(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	t.Setenv("HSYNC_AUTO_SYNC", "")
	if !AutoSyncEnabled() {
		t.Fatal("default must be enabled")
	}

	t.Setenv("HSYNC_AUTO_SYNC", "0")
	if AutoSyncEnabled() {
		t.Fatal("env var must disable")
	}

	t.Setenv("HSYNC_AUTO_SYNC", "")
	off := false
	if err := SaveConfig(&Config{Sync: SyncConfig{Auto: AutoSyncConfig{Enabled: &off}}}); err != nil {
		t.Fatalf("save config: %v", err)
	}
	if AutoSyncEnabled() {
		t.Fatal("config must disable")
	}
}

func TestAutoSyncInterval(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if got := AutoSyncInterval(); got != 30*time.Second {
		t.Fatalf("default interval: got %s", got)
	}

	if err := SaveConfig(&Config{Sync: SyncConfig{Auto: AutoSyncConfig{Interval: "2m"}}}); err != nil {
		t.Fatalf("save config: %v", err)
	}
	if got := AutoSyncInterval(); got != 2*time.Minute {
		t.Fatalf("configured interval: got %s", got)
	}
}
