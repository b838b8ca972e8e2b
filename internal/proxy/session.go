package proxy

import "sync"

// sessionCache is the in-memory per-build cache. It is owned by exactly one
// Proxy instance and discarded on Stop. Concurrent misses for the same key may
// both pull and both store; pulls are idempotent, so last write wins without a
// correctness issue.
type sessionCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func newSessionCache() *sessionCache {
	return &sessionCache{entries: make(map[string][]byte)}
}

func (s *sessionCache) get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.entries[key]
	return data, ok
}

func (s *sessionCache) put(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = data
}

func (s *sessionCache) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string][]byte)
}
