// Package store persists recordings. Save is an idempotent upsert by id.
package store

import (
	"errors"
	"sync"

	"github.com/ivikasavnish/go-replay/pkg/action"
)

var (
	// ErrNotFound is returned when no recording has the requested id.
	ErrNotFound = errors.New("recording not found")
	// ErrInvalidID is returned for an empty recording id.
	ErrInvalidID = errors.New("invalid recording ID")
)

// Store defines the recording persistence operations.
type Store interface {
	Save(*action.Recording) error
	Load(id string) (*action.Recording, error)
	List() ([]*action.Recording, error)
	Delete(id string) error
}

// MemoryStore implements Store using in-memory storage.
type MemoryStore struct {
	recordings map[string]*action.Recording
	mu         sync.RWMutex
}

// NewMemoryStore creates a new in-memory recording store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		recordings: make(map[string]*action.Recording),
	}
}

func (s *MemoryStore) Save(rec *action.Recording) error {
	if rec.ID == "" {
		return ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.recordings[rec.ID] = rec.Clone()
	return nil
}

func (s *MemoryStore) Load(id string) (*action.Recording, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.recordings[id]
	if !exists {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) List() ([]*action.Recording, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*action.Recording, 0, len(s.recordings))
	for _, rec := range s.recordings {
		out = append(out, rec.Clone())
	}
	return out, nil
}

func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.recordings[id]; !exists {
		return ErrNotFound
	}
	delete(s.recordings, id)
	return nil
}
