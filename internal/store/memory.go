package store

import (
	"context"
	"sync"
	"time"
)

type memoryRecord struct {
	blob      []byte
	version   int
	updatedAt time.Time
}

// MemoryStore keeps encoded drafts in process. Drafts are stored encoded so
// callers never share mutable state with the store.
type MemoryStore struct {
	mu     sync.RWMutex
	drafts map[string]memoryRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{drafts: make(map[string]memoryRecord)}
}

func (s *MemoryStore) Load(_ context.Context, id string) (Record, error) {
	s.mu.RLock()
	r, ok := s.drafts[id]
	s.mu.RUnlock()
	if !ok {
		return Record{}, ErrNotFound
	}
	d, err := decode(id, r.blob)
	if err != nil {
		return Record{}, err
	}
	return Record{Draft: d, Version: r.version, UpdatedAt: r.updatedAt}, nil
}

func (s *MemoryStore) Save(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	blob, err := encode(rec.Draft)
	if err != nil {
		return err
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	s.drafts[rec.Draft.ID] = memoryRecord{blob: blob, version: rec.Version, updatedAt: rec.UpdatedAt}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }
