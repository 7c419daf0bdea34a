package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStorage keeps every collection in process memory.
type MemoryStorage struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		collections: make(map[string]*memoryCollection),
	}
}

func (s *MemoryStorage) Collection(ctx context.Context, name string, indexed ...string) (Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, exists := s.collections[name]; exists {
		return c, nil
	}
	c := &memoryCollection{
		indexed: append([]string(nil), indexed...),
		docs:    make(map[string]memoryDoc),
	}
	s.collections[name] = c
	return c, nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}

type memoryDoc struct {
	body []byte
	keys map[string][]string
}

type memoryCollection struct {
	mu      sync.RWMutex
	indexed []string
	docs    map[string]memoryDoc
}

func (c *memoryCollection) InsertOne(ctx context.Context, id string, doc []byte) error {
	keys, err := extractKeys(doc, c.indexed)
	if err != nil {
		return fmt.Errorf("error indexing document %s: %w", id, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.docs[id]; exists {
		return ErrDuplicate
	}
	c.docs[id] = memoryDoc{body: clone(doc), keys: keys}
	return nil
}

func (c *memoryCollection) FindOne(ctx context.Context, id string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if d, exists := c.docs[id]; exists {
		return clone(d.body), nil
	}
	return nil, ErrNotFound
}

func (c *memoryCollection) FindMany(ctx context.Context, filter Filter) ([][]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := c.match(filter)
	docs := make([][]byte, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, clone(c.docs[id].body))
	}
	return docs, nil
}

func (c *memoryCollection) UpdateOne(ctx context.Context, id string, doc []byte) error {
	keys, err := extractKeys(doc, c.indexed)
	if err != nil {
		return fmt.Errorf("error indexing document %s: %w", id, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.docs[id]; !exists {
		return ErrNotFound
	}
	c.docs[id] = memoryDoc{body: clone(doc), keys: keys}
	return nil
}

func (c *memoryCollection) DeleteOne(ctx context.Context, id string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.docs[id]; !exists {
		return 0, nil
	}
	delete(c.docs, id)
	return 1, nil
}

func (c *memoryCollection) DeleteMany(ctx context.Context, filter Filter) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := c.match(filter)
	for _, id := range ids {
		delete(c.docs, id)
	}
	return int64(len(ids)), nil
}

// match returns the sorted ids selected by filter. Callers hold c.mu.
func (c *memoryCollection) match(filter Filter) []string {
	if filter.matchesNothing() {
		return nil
	}

	var ids []string
	for id, d := range c.docs {
		switch filter.Field {
		case "":
			ids = append(ids, id)
		case FieldID:
			if containsAny([]string{id}, filter.Values) {
				ids = append(ids, id)
			}
		default:
			if containsAny(d.keys[filter.Field], filter.Values) {
				ids = append(ids, id)
			}
		}
	}
	sort.Strings(ids)
	return ids
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
