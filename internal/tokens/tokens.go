// Package tokens manages the durable queue of locally created queue tokens:
// records created while the device may be offline, held as pending until the
// remote service accepts them. Records are never deleted here; a synced
// token stays in the store as local history.
package tokens

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/healthsync/hsync/internal/store"
)

// Sync statuses for a queued token.
const (
	StatusPending = "pending"
	StatusSynced  = "synced"
)

// Token is a locally created queue token awaiting server confirmation.
// Payload carries the domain fields (patient name, phone, booking type, ...)
// opaquely; the engine only needs the envelope.
type Token struct {
	LocalID        string          `json:"localId"`
	ServerID       string          `json:"serverId,omitempty"`
	SyncStatus     string          `json:"syncStatus"`
	ClinicID       string          `json:"clinicId"`
	DoctorID       string          `json:"doctorId"`
	TokenDate      string          `json:"tokenDate"` // YYYY-MM-DD
	Payload        json.RawMessage `json:"payload"`
	LocalCreatedAt time.Time       `json:"localCreatedAt"`
	SyncedAt       *time.Time      `json:"syncedAt,omitempty"`
}

// ErrNotFound is returned when a local id has no stored token.
var ErrNotFound = errors.New("tokens: not found")

// Queue is the durable token queue over a store backend.
type Queue struct {
	backend store.Backend
	now     func() time.Time
}

// New creates a token queue over the given backend.
func New(backend store.Backend) *Queue {
	return &Queue{backend: backend, now: time.Now}
}

// SetNow overrides the clock, for tests.
func (q *Queue) SetNow(now func() time.Time) {
	q.now = now
}

// Save stores a new pending token for the given clinic/doctor with a freshly
// generated local id. It never touches the network; the caller continues
// immediately and the sync coordinator picks the token up later.
func (q *Queue) Save(ctx context.Context, clinicID, doctorID string, payload any) (*Token, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal token payload: %w", err)
	}

	now := q.now()
	tok := &Token{
		LocalID:        newLocalID(now),
		SyncStatus:     StatusPending,
		ClinicID:       clinicID,
		DoctorID:       doctorID,
		TokenDate:      now.Format("2006-01-02"),
		Payload:        data,
		LocalCreatedAt: now,
	}
	if err := q.put(ctx, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// Get returns the token stored under localID.
func (q *Queue) Get(ctx context.Context, localID string) (*Token, error) {
	raw, err := q.backend.Get(ctx, store.CollectionQueuedRecords, localID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(raw)
}

// All returns every stored token in insertion order.
func (q *Queue) All(ctx context.Context) ([]*Token, error) {
	items, err := q.backend.GetAll(ctx, store.CollectionQueuedRecords)
	if err != nil {
		return nil, err
	}
	return decodeItems(items)
}

// Pending returns tokens still awaiting server confirmation, via the
// syncStatus index.
func (q *Queue) Pending(ctx context.Context) ([]*Token, error) {
	items, err := q.backend.GetAllByIndex(ctx, store.CollectionQueuedRecords, store.IndexSyncStatus, StatusPending)
	if err != nil {
		return nil, err
	}
	return decodeItems(items)
}

// Today returns today's tokens for one doctor at one clinic, via the compound
// date/clinic/doctor index — no full scan on the indexed backend.
func (q *Queue) Today(ctx context.Context, clinicID, doctorID string) ([]*Token, error) {
	day := q.now().Format("2006-01-02")
	items, err := q.backend.GetAllByIndex(ctx, store.CollectionQueuedRecords, store.IndexDayKey, dayKey(day, clinicID, doctorID))
	if err != nil {
		return nil, err
	}
	return decodeItems(items)
}

// MarkSynced records the server-assigned id for a locally created token and
// flips it to synced. Idempotent: repeating the call with the same arguments
// leaves the stored state unchanged; on an already-synced token the last
// call's serverId and syncedAt win.
func (q *Queue) MarkSynced(ctx context.Context, localID, serverID string) error {
	tok, err := q.Get(ctx, localID)
	if err != nil {
		return err
	}
	if tok.SyncStatus == StatusSynced && tok.ServerID == serverID {
		return nil
	}

	now := q.now()
	tok.SyncStatus = StatusSynced
	tok.ServerID = serverID
	tok.SyncedAt = &now
	return q.put(ctx, tok)
}

func (q *Queue) put(ctx context.Context, tok *Token) error {
	raw, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("marshal token %s: %w", tok.LocalID, err)
	}
	indexes := store.Indexes{
		store.IndexSyncStatus: tok.SyncStatus,
		store.IndexDayKey:     dayKey(tok.TokenDate, tok.ClinicID, tok.DoctorID),
	}
	return q.backend.Put(ctx, store.CollectionQueuedRecords, tok.LocalID, raw, indexes)
}

func dayKey(day, clinicID, doctorID string) string {
	return day + "|" + clinicID + "|" + doctorID
}

// newLocalID generates a client-side id stable for the life of the unsynced
// record: local_<unix ms>_<random suffix>.
func newLocalID(now time.Time) string {
	b := make([]byte, 5)
	rand.Read(b)
	return fmt.Sprintf("local_%d_%s", now.UnixMilli(), hex.EncodeToString(b))
}

func decode(raw []byte) (*Token, error) {
	var tok Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return &tok, nil
}

func decodeItems(items []store.Item) ([]*Token, error) {
	toks := make([]*Token, 0, len(items))
	for _, it := range items {
		tok, err := decode(it.Value)
		if err != nil {
			return nil, fmt.Errorf("token %s: %w", it.Key, err)
		}
		toks = append(toks, tok)
	}
	return toks, nil
}
