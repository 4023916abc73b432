package session

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/graph"
)

// Record is a finished run.
type Record struct {
	RunID      string           `json:"run_id"`
	Stop       graph.StopReason `json:"stop"`
	Steps      int              `json:"steps"`
	Budget     int              `json:"budget"`
	Error      string           `json:"error,omitempty"`
	Duration   time.Duration    `json:"duration"`
	EndedAt    time.Time        `json:"ended_at"`
	Transcript []core.Message   `json:"transcript"`
}

// Options configure an InMemoryStore.
type Options struct {
	// MaxRecords bounds the store; the oldest record is evicted first.
	// 0 keeps every record.
	MaxRecords int
}

// InMemoryStore is a volatile run archive safe for concurrent access.
// Records are copied on the way in and out.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	order   []string
	max     int
}

// NewInMemoryStore constructs an empty store.
func NewInMemoryStore(optFns ...func(o *Options)) *InMemoryStore {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &InMemoryStore{records: make(map[string]Record), max: opts.MaxRecords}
}

// Save archives a run result, replacing an earlier record with the same id.
func (s *InMemoryStore) Save(res graph.RunResult) {
	rec := Record{
		RunID:      res.RunID,
		Stop:       res.Stop,
		Steps:      res.Steps,
		Budget:     res.Budget,
		Duration:   res.Duration,
		EndedAt:    time.Now().UTC(),
		Transcript: append([]core.Message(nil), res.Transcript...),
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.RunID]; !ok {
		s.order = append(s.order, rec.RunID)
	}
	s.records[rec.RunID] = rec
	s.evictLocked()
}

// evictLocked drops the oldest records beyond the limit; caller must hold
// the write lock.
func (s *InMemoryStore) evictLocked() {
	if s.max <= 0 {
		return
	}
	for len(s.order) > s.max {
		delete(s.records, s.order[0])
		s.order = s.order[1:]
	}
}

// Get returns the record of runID.
func (s *InMemoryStore) Get(runID string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[runID]
	if !ok {
		return Record{}, false
	}
	rec.Transcript = append([]core.Message(nil), rec.Transcript...)
	return rec, true
}

// List returns every record, oldest first, without transcripts.
func (s *InMemoryStore) List() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0, len(s.order))
	for _, id := range s.order {
		rec := s.records[id]
		rec.Transcript = nil
		out = append(out, rec)
	}
	return out
}

// Len returns the number of stored records.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Hooks returns run hooks that archive every finished run.
func (s *InMemoryStore) Hooks() graph.Hooks {
	return graph.Hooks{
		OnRunEnd: func(_ context.Context, res graph.RunResult) { s.Save(res) },
	}
}
