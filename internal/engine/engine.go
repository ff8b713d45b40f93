// Package engine is the sync coordinator: it owns the durable store, the
// token and action queues, and the network monitor, and drains the queues
// against the remote service when connectivity allows. All state lives on
// the Engine instance so tests can run several in isolation.
package engine

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/healthsync/hsync/internal/actions"
	"github.com/healthsync/hsync/internal/cache"
	"github.com/healthsync/hsync/internal/netmon"
	"github.com/healthsync/hsync/internal/store"
	"github.com/healthsync/hsync/internal/syncclient"
	"github.com/healthsync/hsync/internal/tokens"
)

const deviceIDKey = "deviceId"

// Counts summarises one queue's drain outcome.
type Counts struct {
	Synced int `json:"synced"`
	Failed int `json:"failed"`
}

// Result is the aggregate outcome of one sync call. Success is false only
// when the drain never started (offline, or another drain already running).
type Result struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
	Tokens  Counts `json:"tokens"`
	Actions Counts `json:"actions"`
}

// Engine coordinates the offline queues against the remote service.
type Engine struct {
	backend store.Backend
	monitor *netmon.Monitor

	Tokens  *tokens.Queue
	Actions *actions.Queue
	Cache   *cache.Cache

	syncing atomic.Bool
}

// New builds an engine over an already-open backend and monitor.
func New(backend store.Backend, monitor *netmon.Monitor) *Engine {
	return &Engine{
		backend: backend,
		monitor: monitor,
		Tokens:  tokens.New(backend),
		Actions: actions.New(backend),
		Cache:   cache.New(backend),
	}
}

// Open is the common construction path: open the store under dir (with
// fallback) and probe connectivity against baseURL.
func Open(dir, baseURL string) (*Engine, error) {
	backend, err := store.Open(dir)
	if err != nil {
		return nil, err
	}
	return New(backend, netmon.New(netmon.HTTPProbe(baseURL))), nil
}

// Close releases the underlying store.
func (e *Engine) Close() error {
	return e.backend.Close()
}

// Monitor returns the engine's network monitor.
func (e *Engine) Monitor() *netmon.Monitor {
	return e.monitor
}

// DeviceID returns the per-installation identifier, generating and
// persisting it on first use. The server uses it to recognize a retried
// batch from the same client.
func (e *Engine) DeviceID(ctx context.Context) (string, error) {
	raw, err := e.backend.Get(ctx, store.CollectionMeta, deviceIDKey)
	if err == nil {
		var id string
		if jsonErr := json.Unmarshal(raw, &id); jsonErr == nil && id != "" {
			return id, nil
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	b := make([]byte, 5)
	rand.Read(b)
	id := fmt.Sprintf("device_%d_%s", time.Now().UnixMilli(), hex.EncodeToString(b))
	data, _ := json.Marshal(id)
	if err := e.backend.Put(ctx, store.CollectionMeta, deviceIDKey, data, nil); err != nil {
		return "", fmt.Errorf("persist device id: %w", err)
	}
	return id, nil
}

// BindAutoSync makes every offline→online transition kick off a background
// sync against the given service.
func (e *Engine) BindAutoSync(baseURL, authToken string) {
	e.monitor.SetOnOnline(func() {
		go func() {
			res := e.SyncWithServer(context.Background(), baseURL, authToken)
			slog.Debug("auto sync finished",
				"success", res.Success, "reason", res.Reason,
				"tokens_synced", res.Tokens.Synced, "actions_synced", res.Actions.Synced)
		}()
	})
}

// SyncWithServer drains the token queue and the generic action queue.
// Offline and already-running are normal outcomes reported in the result,
// never errors; per-item failures are isolated and counted.
func (e *Engine) SyncWithServer(ctx context.Context, baseURL, authToken string) *Result {
	if e.monitor.State() == netmon.StateUnknown {
		e.monitor.CheckConnection(ctx)
	}
	if !e.monitor.IsOnline() {
		slog.Debug("sync skipped: offline")
		return &Result{Success: false, Reason: "offline"}
	}

	// Single-drain guard: a concurrent call is skipped, not queued.
	if !e.syncing.CompareAndSwap(false, true) {
		slog.Debug("sync skipped: already running")
		return &Result{Success: false, Reason: "sync already running"}
	}
	defer e.syncing.Store(false)

	client := syncclient.New(baseURL, authToken)
	result := &Result{Success: true}

	result.Tokens = e.drainTokens(ctx, client)
	result.Actions = e.drainActions(ctx, client)

	slog.Info("sync finished",
		"tokens_synced", result.Tokens.Synced, "tokens_failed", result.Tokens.Failed,
		"actions_synced", result.Actions.Synced, "actions_failed", result.Actions.Failed)
	return result
}

// drainTokens pushes all pending tokens in one batch. Records the server
// does not list as synced stay pending and retry on the next cycle.
func (e *Engine) drainTokens(ctx context.Context, client *syncclient.Client) Counts {
	var counts Counts

	pending, err := e.Tokens.Pending(ctx)
	if err != nil {
		slog.Warn("token sync: read pending", "err", err)
		return counts
	}
	if len(pending) == 0 {
		return counts
	}

	deviceID, err := e.DeviceID(ctx)
	if err != nil {
		slog.Warn("token sync: device id", "err", err)
		counts.Failed = len(pending)
		return counts
	}

	req := &syncclient.SyncRequest{DeviceID: deviceID}
	for _, tok := range pending {
		raw, err := json.Marshal(tok)
		if err != nil {
			slog.Warn("token sync: marshal", "localId", tok.LocalID, "err", err)
			continue
		}
		req.Tokens = append(req.Tokens, raw)
	}

	resp, err := client.SyncTokens(req)
	if err != nil {
		// Covers transport and response-shape failures alike; the batch
		// stays pending for the next cycle.
		slog.Warn("token sync failed", "count", len(pending), "err", err)
		counts.Failed = len(pending)
		return counts
	}

	for _, st := range resp.Details.Synced {
		if err := e.Tokens.MarkSynced(ctx, st.LocalID, st.ServerID); err != nil {
			slog.Warn("token sync: mark synced", "localId", st.LocalID, "err", err)
			counts.Failed++
			continue
		}
		counts.Synced++
	}
	counts.Failed += len(resp.Details.Errors) + len(resp.Details.Conflicts)
	return counts
}

// drainActions replays the current snapshot of the action queue in insertion
// order. Actions enqueued mid-drain are only visible on the next call.
func (e *Engine) drainActions(ctx context.Context, client *syncclient.Client) Counts {
	var counts Counts

	snapshot, err := e.Actions.List(ctx)
	if err != nil {
		slog.Warn("action sync: read queue", "err", err)
		return counts
	}

	for _, act := range snapshot {
		if err := client.Replay(act.Method, act.Endpoint, act.Payload); err != nil {
			counts.Failed++
			retries, rerr := e.Actions.IncrementRetry(ctx, act.ID)
			if rerr != nil {
				slog.Warn("action replay: bump retry", "id", act.ID, "err", rerr)
				continue
			}
			if retries > actions.RetryLimit {
				// Give-up policy: the action is dropped even though it
				// never succeeded.
				if derr := e.Actions.Remove(ctx, act.ID); derr != nil {
					slog.Warn("action replay: drop", "id", act.ID, "err", derr)
					continue
				}
				slog.Warn("action dropped after retry limit",
					"id", act.ID, "method", act.Method, "endpoint", act.Endpoint, "retries", retries)
			} else {
				slog.Debug("action replay failed", "id", act.ID, "retries", retries, "err", err)
			}
			continue
		}

		if err := e.Actions.Remove(ctx, act.ID); err != nil {
			slog.Warn("action replay: remove", "id", act.ID, "err", err)
			counts.Failed++
			continue
		}
		counts.Synced++
	}
	return counts
}
