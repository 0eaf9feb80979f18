package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]JobRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]JobRecord),
	}
}

func (s *MemoryStore) Save(_ context.Context, rec JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.Files = append([]string(nil), rec.Files...)
	s.jobs[rec.ID] = rec
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	rec.Files = append([]string(nil), rec.Files...)
	return &rec, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return ErrJobNotFound
	}
	delete(s.jobs, id)
	return nil
}

func (s *MemoryStore) CreatedBefore(_ context.Context, cutoff time.Time) ([]JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []JobRecord
	for _, rec := range s.jobs {
		if rec.CreatedAt.Before(cutoff) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
