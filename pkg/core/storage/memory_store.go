package storage

import (
	"bytes"
	"sort"
	"sync"

	json "github.com/nspcc-dev/go-ordered-json"
)

// MemoryStore is an in-memory document store holding named collections of
// JSON-like documents. It is the single state backend of the chain; replay
// throws the store away and rebuilds it from scratch, so nothing here ever
// touches the disk.
type MemoryStore struct {
	mut         sync.RWMutex
	collections map[string]*Collection
}

// NewMemoryStore creates a new empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]*Collection),
	}
}

// AddCollection creates a collection with the given name and returns it. If
// the collection already exists, the existing one is returned, making the
// call idempotent.
func (s *MemoryStore) AddCollection(name string) *Collection {
	s.mut.Lock()
	defer s.mut.Unlock()
	if c, ok := s.collections[name]; ok {
		return c
	}
	c := newCollection(name)
	s.collections[name] = c
	return c
}

// GetCollection returns the named collection or nil if it was never created.
func (s *MemoryStore) GetCollection(name string) *Collection {
	s.mut.RLock()
	defer s.mut.RUnlock()
	return s.collections[name]
}

// Collections returns the names of all collections in lexicographic order.
func (s *MemoryStore) Collections() []string {
	s.mut.RLock()
	defer s.mut.RUnlock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dump serialises the complete store into a canonical byte snapshot:
// collections in name order, documents in insertion order, object members in
// the order they were written. Two stores with the same history produce the
// same bytes, which is what the replay equivalence check compares.
func (s *MemoryStore) Dump() ([]byte, error) {
	names := s.Collections()
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		docs, err := json.Marshal(s.GetCollection(name).All())
		if err != nil {
			return nil, err
		}
		buf.Write(docs)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
