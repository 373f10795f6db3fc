// Package cache provides the ports.CacheStore implementations the engine
// uses to avoid paying twice for the same translation: an in-memory store
// for single runs and a Redis-compatible store shared between processes.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/Antonio-Ardigo/Remote-Project/internal/ports"
)

// MemoryStore is a ports.CacheStore held in process memory.
type MemoryStore struct {
	mu         sync.RWMutex
	data       map[string]entry
	gcInterval time.Duration
	stopCh     chan struct{}
	stopOnce   sync.Once
	now        func() time.Time
}

type entry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

var _ ports.CacheStore = (*MemoryStore)(nil)

// NewMemoryStore creates a store that drops expired entries every
// gcInterval. A non-positive interval selects ten minutes.
func NewMemoryStore(gcInterval time.Duration) *MemoryStore {
	if gcInterval <= 0 {
		gcInterval = 10 * time.Minute
	}
	s := &MemoryStore{
		data:       make(map[string]entry),
		gcInterval: gcInterval,
		stopCh:     make(chan struct{}),
		now:        time.Now,
	}
	go s.gc()
	return s
}

// Get returns a copy of the stored value.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[key]
	if !ok || e.expired(s.now()) {
		return nil, false, nil
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

// Set stores a copy of value. A zero expiration keeps it until deleted.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, expiration time.Duration) error {
	e := entry{value: make([]byte, len(value))}
	copy(e.value, value)
	if expiration > 0 {
		e.expiresAt = s.now().Add(expiration)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = e
	return nil
}

// Delete removes key. Missing keys are not an error.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Len returns the number of live entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	n := 0
	for _, e := range s.data {
		if !e.expired(now) {
			n++
		}
	}
	return n
}

// Close stops the garbage collector.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	return nil
}

func (s *MemoryStore) gc() {
	ticker := time.NewTicker(s.gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for key, e := range s.data {
		if e.expired(now) {
			delete(s.data, key)
		}
	}
}
