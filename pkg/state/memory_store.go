package state

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/goliatone/go-props/layering"
	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store keyed by Ref.Identifier(). Records are
// deep copied in both directions. Every Save issues a fresh ETag.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
}

type memoryRecord struct {
	values map[string]any
	meta   Meta
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]memoryRecord{}}
}

func (s *MemoryStore) Load(_ context.Context, ref Ref) (map[string]any, Meta, bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return nil, Meta{}, false, err
	}

	s.mu.RLock()
	record, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return nil, Meta{}, false, nil
	}
	return layering.Clone(record.values), cloneMeta(record.meta), true, nil
}

func (s *MemoryStore) Save(_ context.Context, ref Ref, values map[string]any, meta Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}

	stored := cloneMeta(meta)
	stored.ETag = uuid.NewString()
	if stored.SnapshotID == "" {
		stored.SnapshotID = uuid.NewString()
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	s.records[key] = memoryRecord{values: layering.Clone(values), meta: stored}
	s.mu.Unlock()
	return cloneMeta(stored), nil
}

func cloneMeta(meta Meta) Meta {
	out := meta
	out.Extra = maps.Clone(meta.Extra)
	return out
}
