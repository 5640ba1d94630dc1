package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// File is a durable store backed by a single JSON file. Every read reloads
// from disk first so that separate processes sharing the path observe each
// other's writes, the way browser tabs share one localStorage area. Writes
// go through a temp file + rename so a concurrent reader never sees a
// half-written document.
type File struct {
	mu   sync.Mutex
	path string
}

func NewFile(path string) (*File, error) {
	err := os.MkdirAll(filepath.Dir(path), 0o700)

	if err != nil {
		return nil, err
	}

	return &File{path: path}, nil
}

func (s *File) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.load()
	v, ok := m[key]

	return v, ok
}

func (s *File) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.load()
	m[key] = value
	s.save(m)
}

func (s *File) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.load()
	delete(m, key)
	s.save(m)
}

func (s *File) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.load()
	keys := make([]string, 0, len(m))

	for k := range m {
		keys = append(keys, k)
	}

	return keys
}

func (s *File) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.save(map[string]string{})
}

// load reads the whole document. A missing or corrupt file is an empty
// store, never an error to surface.
func (s *File) load() map[string]string {
	data, err := os.ReadFile(s.path)

	if err != nil {
		return map[string]string{}
	}

	var m map[string]string

	if json.Unmarshal(data, &m) != nil || m == nil {
		return map[string]string{}
	}

	return m
}

func (s *File) save(m map[string]string) {
	data, err := json.Marshal(m)

	if err != nil {
		return
	}

	tmp := s.path + ".tmp"

	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return
	}

	_ = os.Rename(tmp, s.path)
}
