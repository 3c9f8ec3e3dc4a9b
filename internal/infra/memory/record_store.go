package memory

import (
	"context"
	"sync"
)

// RecordStore is an in-memory implementation of app.RecordStore.
type RecordStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

func NewRecordStore() *RecordStore {
	return &RecordStore{records: make(map[string][]byte)}
}

func (s *RecordStore) Load(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.records[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (s *RecordStore) Save(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = append([]byte(nil), data...)
	return nil
}

func (s *RecordStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}
