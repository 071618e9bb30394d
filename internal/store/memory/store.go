package memory

import (
	"context"
	"errors"
	"maps"
	"sync"

	storepkg "foodexplorer/internal/store"
)

// ErrQuotaExceeded mirrors the browser storage failure when a write would
// push the total stored size past the configured quota.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

type Store struct {
	mu sync.RWMutex

	values   map[string]string
	quota    int
	writeErr error
	writes   int
}

// NewStore returns an empty store. A quota of zero means unlimited.
func NewStore(quota int) *Store {
	return &Store{
		values: make(map[string]string),
		quota:  quota,
	}
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return "", storepkg.ErrNotFound
	}
	return v, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	if s.quota > 0 && s.sizeWith(key, value) > s.quota {
		return ErrQuotaExceeded
	}
	s.values[key] = value
	s.writes++
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// FailWrites makes every following Set return err. Pass nil to recover.
func (s *Store) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

// Writes reports how many Set calls succeeded.
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// Dump returns a copy of every stored value.
func (s *Store) Dump() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.values)
}

func (s *Store) sizeWith(key, value string) int {
	total := len(key) + len(value)
	for k, v := range s.values {
		if k == key {
			continue
		}
		total += len(k) + len(v)
	}
	return total
}
