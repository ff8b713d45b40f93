// Package netmon observes connectivity and raises edge-triggered events on
// transitions. Reachability, not link state, decides the boolean: the probe
// must reach the sync service, so a connection with no usable uplink counts
// as offline.
package netmon

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// State is the monitor's connectivity state.
type State string

// The monitor starts unknown and then only oscillates online/offline.
const (
	StateUnknown State = "unknown"
	StateOffline State = "offline"
	StateOnline  State = "online"
)

// Event is published once per transition, not per probe tick.
type Event struct {
	Online bool
	At     time.Time
}

// Probe reports whether the service is reachable right now.
type Probe func(ctx context.Context) bool

// HTTPProbe probes GET <baseURL>/healthz with a short timeout.
func HTTPProbe(baseURL string) Probe {
	client := &http.Client{Timeout: 3 * time.Second}
	return func(ctx context.Context) bool {
		req, err := http.NewRequestWithContext(ctx, "GET", baseURL+"/healthz", nil)
		if err != nil {
			return false
		}
		resp, err := client.Do(req)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode < 500
	}
}

// Monitor wraps a probe into a current state plus a pub/sub event channel.
type Monitor struct {
	probe Probe

	mu       sync.Mutex
	state    State
	subs     map[int]chan Event
	nextSub  int
	onOnline func()
}

// New creates a monitor in the unknown state.
func New(probe Probe) *Monitor {
	return &Monitor{
		probe: probe,
		state: StateUnknown,
		subs:  make(map[int]chan Event),
	}
}

// SetOnOnline registers the hook invoked on each offline→online transition.
// That transition is the only one that triggers the hook; unknown→online and
// online→offline just update state and notify subscribers.
func (m *Monitor) SetOnOnline(fn func()) {
	m.mu.Lock()
	m.onOnline = fn
	m.mu.Unlock()
}

// State returns the current connectivity state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsOnline reports the last observed state without probing.
func (m *Monitor) IsOnline() bool {
	return m.State() == StateOnline
}

// CheckConnection probes on demand, applies any resulting transition, and
// returns the fresh online boolean.
func (m *Monitor) CheckConnection(ctx context.Context) bool {
	online := m.probe(ctx)
	m.apply(online)
	return online
}

// Run probes at the given interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.CheckConnection(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckConnection(ctx)
		}
	}
}

// Subscribe returns a channel of transition events and an unsubscribe
// function. The channel is buffered; a slow subscriber drops events rather
// than blocking the monitor.
func (m *Monitor) Subscribe() (<-chan Event, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	ch := make(chan Event, 4)
	m.subs[id] = ch

	unsubscribe := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if c, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(c)
		}
	}
	return ch, unsubscribe
}

// apply records the probe result, notifying subscribers only on a state
// change.
func (m *Monitor) apply(online bool) {
	next := StateOffline
	if online {
		next = StateOnline
	}

	m.mu.Lock()
	prev := m.state
	if prev == next {
		m.mu.Unlock()
		return
	}
	m.state = next

	ev := Event{Online: online, At: time.Now()}
	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default: // subscriber not keeping up
		}
	}
	hook := m.onOnline
	m.mu.Unlock()

	slog.Debug("connectivity changed", "from", prev, "to", next)

	if prev == StateOffline && next == StateOnline && hook != nil {
		hook()
	}
}
