package kv

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/shule/core"
)

// MemoryStore is a core.KVStore kept in process memory.
type MemoryStore struct {
	mutex   sync.RWMutex
	table   map[string]string
	expires map[string]time.Time
}

var _ core.ExpiringKVStore = (*MemoryStore)(nil) // interface compliance check

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		table:   make(map[string]string),
		expires: make(map[string]time.Time),
	}
}

// expired must be called with the mutex held.
func (s *MemoryStore) expired(key string, now time.Time) bool {
	exp, ok := s.expires[key]
	return ok && !now.Before(exp)
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if val, ok := s.table[key]; ok && !s.expired(key, time.Now()) {
		return val, nil
	}
	return "", core.ErrKeyNotFound
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.table[key] = value
	delete(s.expires, key)
	return nil
}

// SetWithTTL also drops the entries that have expired so far.
func (s *MemoryStore) SetWithTTL(_ context.Context, key, value string, ttl time.Duration) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := time.Now()
	s.purge(now)
	s.table[key] = value
	if ttl > 0 {
		s.expires[key] = now.Add(ttl)
	} else {
		delete(s.expires, key)
	}
	return nil
}

// purge must be called with the mutex held.
func (s *MemoryStore) purge(now time.Time) {
	for key := range s.expires {
		if s.expired(key, now) {
			delete(s.table, key)
			delete(s.expires, key)
		}
	}
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, key := range keys {
		delete(s.table, key)
		delete(s.expires, key)
	}
	return nil
}

// Keys returns the number of live keys held.
func (s *MemoryStore) Keys() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	now := time.Now()
	var n int
	for key := range s.table {
		if !s.expired(key, now) {
			n++
		}
	}
	return n
}
