package history

import (
	"context"
	"sync"

	"github.com/sells-group/fieldguide/internal/model"
)

// MemoryStore keeps history in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records []model.HistoryRecord
	max     int
}

// NewMemory creates an empty in-memory store.
func NewMemory(maxRecords int) *MemoryStore {
	return &MemoryStore{max: maxRecords}
}

func (s *MemoryStore) Append(_ context.Context, rec model.HistoryRecord) (model.HistoryRecord, error) {
	rec = prepare(rec)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	if s.max > 0 && len(s.records) > s.max {
		s.records = append([]model.HistoryRecord(nil), s.records[len(s.records)-s.max:]...)
	}
	return rec, nil
}

func (s *MemoryStore) List(_ context.Context, filter Filter) ([]model.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := filter.limit()
	out := make([]model.HistoryRecord, 0, min(limit, len(s.records)))
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		r := s.records[i]
		if filter.Category != "" && r.Category != filter.Category {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	return nil
}

func (s *MemoryStore) Migrate(_ context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
