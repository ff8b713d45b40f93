package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileBackend is the fallback store: one JSON blob per collection, rewritten
// in full on every mutation. Index lookups scan the collection. Behavior is
// identical to the SQLite backend from the caller's point of view, just O(n)
// per write instead of indexed.
type FileBackend struct {
	dir string
	mu  sync.Mutex
}

// fileRecord is the on-disk shape of one record in a collection blob.
type fileRecord struct {
	Key     string            `json:"key"`
	Value   json.RawMessage   `json:"value"`
	Indexes map[string]string `json:"indexes,omitempty"`
}

// OpenFile creates the fallback backend rooted at baseDir.
func OpenFile(baseDir string) (*FileBackend, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileBackend{dir: baseDir}, nil
}

func (b *FileBackend) path(collection string) string {
	return filepath.Join(b.dir, collection+".json")
}

// load reads a collection blob. A missing file is an empty collection.
func (b *FileBackend) load(collection string) ([]fileRecord, error) {
	data, err := os.ReadFile(b.path(collection))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read collection %s: %w", collection, err)
	}
	var records []fileRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse collection %s: %w", collection, err)
	}
	return records, nil
}

// save writes a collection blob atomically (temp file + rename) so a crash
// mid-write never leaves a torn collection.
func (b *FileBackend) save(collection string, records []fileRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal collection %s: %w", collection, err)
	}

	path := b.path(collection)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write collection %s: %w", collection, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace collection %s: %w", collection, err)
	}
	return nil
}

func (b *FileBackend) Put(ctx context.Context, collection, key string, value []byte, indexes Indexes) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	records, err := b.load(collection)
	if err != nil {
		return err
	}

	rec := fileRecord{Key: key, Value: json.RawMessage(value), Indexes: indexes}
	replaced := false
	for i := range records {
		if records[i].Key == key {
			records[i] = rec // update in place, position preserved
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, rec)
	}
	return b.save(collection, records)
}

func (b *FileBackend) Get(ctx context.Context, collection, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	records, err := b.load(collection)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if r.Key == key {
			return r.Value, nil
		}
	}
	return nil, ErrNotFound
}

func (b *FileBackend) GetAll(ctx context.Context, collection string) ([]Item, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	records, err := b.load(collection)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(records))
	for _, r := range records {
		items = append(items, Item{Key: r.Key, Value: r.Value})
	}
	return items, nil
}

func (b *FileBackend) GetAllByIndex(ctx context.Context, collection, indexName, indexValue string) ([]Item, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	records, err := b.load(collection)
	if err != nil {
		return nil, err
	}
	var items []Item
	for _, r := range records {
		if r.Indexes[indexName] == indexValue {
			items = append(items, Item{Key: r.Key, Value: r.Value})
		}
	}
	return items, nil
}

func (b *FileBackend) Delete(ctx context.Context, collection, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	records, err := b.load(collection)
	if err != nil {
		return err
	}
	kept := records[:0]
	for _, r := range records {
		if r.Key != key {
			kept = append(kept, r)
		}
	}
	return b.save(collection, kept)
}

func (b *FileBackend) Close() error {
	return nil
}
