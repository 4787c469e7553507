package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Memory is a process-local Backend. It is the default store for
// development and the one used by tests.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string][]byte
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]map[string][]byte)}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Get(_ context.Context, collection, key string) (json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.collections[collection][key]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(doc), nil
}

func (m *Memory) Insert(_ context.Context, collection, key string, doc json.RawMessage) error {
	if !json.Valid(doc) {
		return fmt.Errorf("insert %s/%s: invalid json", collection, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	docs := m.collection(collection)
	if _, exists := docs[key]; exists {
		return ErrDuplicateKey
	}
	docs[key] = clone(doc)
	return nil
}

func (m *Memory) Put(_ context.Context, collection, key string, doc json.RawMessage) error {
	if !json.Valid(doc) {
		return fmt.Errorf("put %s/%s: invalid json", collection, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collection(collection)[key] = clone(doc)
	return nil
}

func (m *Memory) Delete(_ context.Context, collection, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs := m.collections[collection]
	if _, ok := docs[key]; !ok {
		return ErrNotFound
	}
	delete(docs, key)
	return nil
}

func (m *Memory) Find(_ context.Context, collection string, filter Filter) ([]json.RawMessage, error) {
	want := make(map[string]interface{}, len(filter))
	for field, v := range filter {
		n, err := normalize(v)
		if err != nil {
			return nil, fmt.Errorf("filter field %s: %w", field, err)
		}
		want[field] = n
	}

	m.mu.RLock()
	docs := m.collections[collection]
	keys := make([]string, 0, len(docs))
	for k := range docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []json.RawMessage
	for _, k := range keys {
		doc := docs[k]
		if len(want) > 0 {
			var fields map[string]interface{}
			if err := json.Unmarshal(doc, &fields); err != nil {
				continue
			}
			if !matches(fields, want) {
				continue
			}
		}
		out = append(out, clone(doc))
	}
	m.mu.RUnlock()
	return out, nil
}

func (m *Memory) Truncate(_ context.Context, collection string) error {
	m.mu.Lock()
	delete(m.collections, collection)
	m.mu.Unlock()
	return nil
}

func (m *Memory) collection(name string) map[string][]byte {
	docs, ok := m.collections[name]
	if !ok {
		docs = make(map[string][]byte)
		m.collections[name] = docs
	}
	return docs
}

func matches(fields, want map[string]interface{}) bool {
	for k, v := range want {
		if !reflect.DeepEqual(fields[k], v) {
			return false
		}
	}
	return true
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
