package storage

import (
	"context"
	"sync"
)

// MemoryStorage keeps records in process memory. Ids are allocated under the
// same lock that guards the indexes, so they stay dense under concurrency.
type MemoryStorage struct {
	mu      sync.RWMutex
	byShort map[int64]URLRecord
	byOrig  map[string]int64
	seq     int64
}

func CreateMemoryStorage() (*MemoryStorage, error) {
	return &MemoryStorage{
		byShort: make(map[int64]URLRecord),
		byOrig:  make(map[string]int64),
	}, nil
}

func (m *MemoryStorage) Insert(_ context.Context, original string) (*URLRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byOrig[original]; exists {
		return nil, ErrConflict
	}

	r := URLRecord{ShortID: m.seq + 1, Original: original}
	m.put(r)

	return &r, nil
}

// put indexes r and moves the sequence past its id. Callers hold the lock.
func (m *MemoryStorage) put(r URLRecord) {
	m.byShort[r.ShortID] = r
	m.byOrig[r.Original] = r.ShortID
	if r.ShortID > m.seq {
		m.seq = r.ShortID
	}
}

func (m *MemoryStorage) FindByOriginal(_ context.Context, original string) (*URLRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, exists := m.byOrig[original]
	if !exists {
		return nil, ErrNotFound
	}
	r := m.byShort[id]
	return &r, nil
}

func (m *MemoryStorage) FindByShortID(_ context.Context, id int64) (*URLRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, exists := m.byShort[id]
	if !exists {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *MemoryStorage) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return int64(len(m.byShort)), nil
}

// PingContext always succeeds, there is no connection to check.
func (m *MemoryStorage) PingContext(_ context.Context) error {
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}
