package modcache

import (
	"context"
	"errors"
	"io/fs"
	"maps"
	"sync"
)

// Key scopes a record to one section of one version of one output tree.
type Key struct {
	OutputRoot string
	Version    string // empty for the current version
	Section    string
}

// Record is the state captured after a successful run.
type Record struct {
	Source string
	Files  map[string]string // output-relative path -> fingerprint
}

// Store persists records.
type Store interface {
	Load(ctx context.Context, key Key) (Record, bool, error)
	Save(ctx context.Context, key Key, rec Record) error
	Close() error
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[Key]Record
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[Key]Record{}}
}

func (m *MemoryStore) Load(_ context.Context, key Key) (Record, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[key]
	if !ok {
		return Record{}, false, nil
	}
	return Record{Source: rec.Source, Files: maps.Clone(rec.Files)}, true, nil
}

func (m *MemoryStore) Save(_ context.Context, key Key, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = Record{Source: rec.Source, Files: maps.Clone(rec.Files)}
	return nil
}

func (m *MemoryStore) Close() error { return nil }

func errorsIsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
