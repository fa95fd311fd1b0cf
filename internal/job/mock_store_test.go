package job

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryStore is an in-memory Store for runner tests.
type memoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*Record

	saveErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[uuid.UUID]*Record)}
}

func (s *memoryStore) Save(ctx context.Context, job Job) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.records[job.ID()] = &Record{
		ID:        job.ID(),
		Type:      job.Type(),
		Payload:   job.Payload(),
		Status:    job.Status(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

func (s *memoryStore) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[id]; ok {
		rec.Status = status
		rec.ErrorMessage = errorMsg
		rec.UpdatedAt = time.Now()
	}
	return nil
}

func (s *memoryStore) ListByStatus(ctx context.Context, status Status, olderThan time.Duration) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for _, rec := range s.records {
		if rec.Status != status {
			continue
		}
		if olderThan > 0 && time.Since(rec.UpdatedAt) < olderThan {
			continue
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (s *memoryStore) WithTx(tx *sql.Tx) Store { return s }

// put inserts rec directly.
func (s *memoryStore) put(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = &rec
}

func (s *memoryStore) get(id uuid.UUID) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}
