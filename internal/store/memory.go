package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/tidwall/gjson"
)

// memoryCollection is an in-process Collection used for tests and for
// running the bot without a configured database.
type memoryCollection struct {
	mu   sync.RWMutex
	docs map[string]json.RawMessage
}

// NewMemoryStore returns a Store holding all documents in process memory.
func NewMemoryStore() *Store {
	return &Store{
		PullRequests: newMemoryCollection(),
		Repositories: newMemoryCollection(),
		Admin:        newMemoryCollection(),
	}
}

func newMemoryCollection() *memoryCollection {
	return &memoryCollection{docs: make(map[string]json.RawMessage)}
}

func (c *memoryCollection) Get(ctx context.Context, key string) (Document, error) {
	c.mu.RLock()
	raw, ok := c.docs[key]
	c.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return DecodeDocument(raw)
}

func (c *memoryCollection) MergeSet(ctx context.Context, key string, doc Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	merged := doc
	if raw, ok := c.docs[key]; ok {
		current, err := DecodeDocument(raw)
		if err != nil {
			return err
		}
		merged = Merge(current, doc)
	}
	raw, err := json.Marshal(merged)
	if err != nil {
		return err
	}
	c.docs[key] = raw
	return nil
}

func (c *memoryCollection) Query(ctx context.Context, filter Filter) ([]Keyed, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.docs))
	for k := range c.docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var results []Keyed
	for _, key := range keys {
		raw := c.docs[key]
		if !matches(raw, filter) {
			continue
		}
		doc, err := DecodeDocument(raw)
		if err != nil {
			return nil, err
		}
		results = append(results, Keyed{Key: key, Doc: doc})
	}
	return results, nil
}

func matches(raw []byte, filter Filter) bool {
	for path, value := range filter {
		if gjson.GetBytes(raw, path).String() != value {
			return false
		}
	}
	return true
}
