package session

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// Store persists session records with optimistic versioning.
type Store interface {
	// Load returns ErrSessionNotFound when id is unknown.
	Load(ctx context.Context, id string) (*Record, error)
	// SaveIfVersion writes rec when the stored version equals
	// expectedVersion (0 for a new record) and returns the new version.
	SaveIfVersion(ctx context.Context, rec *Record, expectedVersion int) (int, error)
	Delete(ctx context.Context, id string) error
	// ListIdle returns the ids of records last updated before cutoff.
	ListIdle(ctx context.Context, cutoff time.Time) ([]string, error)
}

var errRecordRequired = errors.New("session record required")

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

func (s *MemoryStore) Load(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[strings.TrimSpace(id)]
	if !ok {
		return nil, notFound(id)
	}
	return cloneRecord(rec), nil
}

func (s *MemoryStore) SaveIfVersion(_ context.Context, rec *Record, expectedVersion int) (int, error) {
	next := cloneRecord(rec)
	if next == nil {
		return 0, errRecordRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	version, err := applyVersionedUpdate(next, s.records[strings.TrimSpace(next.ID)], expectedVersion)
	if err != nil {
		return 0, err
	}
	s.records[next.ID] = next
	return version, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id = strings.TrimSpace(id)
	if _, ok := s.records[id]; !ok {
		return notFound(id)
	}
	delete(s.records, id)
	return nil
}

func (s *MemoryStore) ListIdle(_ context.Context, cutoff time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, rec := range s.records {
		if rec.UpdatedAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
