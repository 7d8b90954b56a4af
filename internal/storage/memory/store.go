package memory

import (
	"context"
	"sync"
	"time"

	"driftmail/internal/storage"
)

// Store is an in-memory storage.KV used for development and tests. Keys
// expire the same way Redis keys do: lazily on access plus a background
// janitor sweep.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	done    chan struct{}
	once    sync.Once
}

type entry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// NewStore creates an in-memory store and starts its janitor.
func NewStore() *Store {
	s := &Store{
		entries: make(map[string]*entry),
		done:    make(chan struct{}),
	}
	go s.janitor(time.Minute)
	return s
}

// Get returns the value at key, treating expired entries as absent.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return "", storage.ErrKeyNotFound
	}
	if e.expired(time.Now()) {
		s.mu.Lock()
		// a Set may have replaced the entry between the locks; only
		// remove the expired entry we actually observed
		if cur, ok := s.entries[key]; ok && cur == e {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return "", storage.ErrKeyNotFound
	}
	return e.value, nil
}

// Set stores value at key. A zero expiresAt preserves whatever expiry the
// key already carries, matching Redis KEEPTTL semantics.
func (s *Store) Set(ctx context.Context, key, value string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expiresAt.IsZero() {
		if prev, ok := s.entries[key]; ok && !prev.expired(time.Now()) {
			expiresAt = prev.expiresAt
		}
	}
	s.entries[key] = &entry{value: value, expiresAt: expiresAt}
	return nil
}

// Delete removes key. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// Close stops the janitor.
func (s *Store) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

// ExpiresAt reports the expiry recorded for key, for tests that assert TTL
// propagation. The bool is false when the key is absent.
func (s *Store) ExpiresAt(key string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok || e.expired(time.Now()) {
		return time.Time{}, false
	}
	return e.expiresAt, true
}

func (s *Store) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for key, e := range s.entries {
				if e.expired(now) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		}
	}
}
