// Package actions is the generic pending-action queue: mutating HTTP calls
// recorded while offline and replayed in order once connectivity returns.
// Unlike queue tokens, a replayed action that keeps failing is eventually
// dropped rather than retried forever.
package actions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/healthsync/hsync/internal/store"
)

// RetryLimit is the number of failed replays tolerated before an action is
// dropped. An action is removed once its retry count exceeds this limit,
// whether or not it ever succeeded.
const RetryLimit = 3

// Methods accepted for a queued action.
const (
	MethodPost   = "POST"
	MethodPut    = "PUT"
	MethodDelete = "DELETE"
)

// Action is a replayable side-effecting call queued while offline.
type Action struct {
	ID         string          `json:"id"`
	Method     string          `json:"method"`
	Endpoint   string          `json:"endpoint"` // relative to the service base URL
	Payload    json.RawMessage `json:"payload,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	RetryCount int             `json:"retryCount"`
}

// ErrNotFound is returned when an action id is not in the queue.
var ErrNotFound = errors.New("actions: not found")

// Queue is the durable pending-action queue over a store backend.
type Queue struct {
	backend store.Backend
	now     func() time.Time
}

// New creates an action queue over the given backend.
func New(backend store.Backend) *Queue {
	return &Queue{backend: backend, now: time.Now}
}

// SetNow overrides the clock, for tests.
func (q *Queue) SetNow(now func() time.Time) {
	q.now = now
}

// Enqueue records an action locally and returns it with its queue id. It
// always succeeds regardless of connectivity; the id is queue-internal and
// is not the eventual server identifier.
func (q *Queue) Enqueue(ctx context.Context, method, endpoint string, payload any) (*Action, error) {
	switch method {
	case MethodPost, MethodPut, MethodDelete:
	default:
		return nil, fmt.Errorf("enqueue: unsupported method %q", method)
	}

	var data json.RawMessage
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal action payload: %w", err)
		}
	}

	act := &Action{
		ID:        uuid.NewString(),
		Method:    method,
		Endpoint:  endpoint,
		Payload:   data,
		CreatedAt: q.now(),
	}
	if err := q.put(ctx, act); err != nil {
		return nil, err
	}
	return act, nil
}

// List returns all queued actions in insertion order.
func (q *Queue) List(ctx context.Context) ([]*Action, error) {
	items, err := q.backend.GetAll(ctx, store.CollectionPendingActions)
	if err != nil {
		return nil, err
	}
	acts := make([]*Action, 0, len(items))
	for _, it := range items {
		var act Action
		if err := json.Unmarshal(it.Value, &act); err != nil {
			return nil, fmt.Errorf("parse action %s: %w", it.Key, err)
		}
		acts = append(acts, &act)
	}
	return acts, nil
}

// Remove deletes an action from the queue.
func (q *Queue) Remove(ctx context.Context, id string) error {
	return q.backend.Delete(ctx, store.CollectionPendingActions, id)
}

// IncrementRetry bumps the stored retry count by exactly one and returns the
// new count.
func (q *Queue) IncrementRetry(ctx context.Context, id string) (int, error) {
	raw, err := q.backend.Get(ctx, store.CollectionPendingActions, id)
	if errors.Is(err, store.ErrNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}

	var act Action
	if err := json.Unmarshal(raw, &act); err != nil {
		return 0, fmt.Errorf("parse action %s: %w", id, err)
	}
	act.RetryCount++
	if err := q.put(ctx, &act); err != nil {
		return 0, err
	}
	return act.RetryCount, nil
}

func (q *Queue) put(ctx context.Context, act *Action) error {
	raw, err := json.Marshal(act)
	if err != nil {
		return fmt.Errorf("marshal action %s: %w", act.ID, err)
	}
	return q.backend.Put(ctx, store.CollectionPendingActions, act.ID, raw, nil)
}
