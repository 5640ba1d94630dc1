package storage

import "sync"

// Memory is an in-process store. It backs the session-scoped storage area
// and stands in for the durable one in tests.
type Memory struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewMemory() *Memory {
	return &Memory{m: make(map[string]string)}
}

func (s *Memory) Get(key string) (string, bool) {
	s.mu.RLock()
	v, ok := s.m[key]
	s.mu.RUnlock()

	return v, ok
}

func (s *Memory) Set(key, value string) {
	s.mu.Lock()
	s.m[key] = value
	s.mu.Unlock()
}

func (s *Memory) Remove(key string) {
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
}

func (s *Memory) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.m))

	for k := range s.m {
		keys = append(keys, k)
	}

	return keys
}

func (s *Memory) Clear() {
	s.mu.Lock()
	s.m = make(map[string]string)
	s.mu.Unlock()
}
