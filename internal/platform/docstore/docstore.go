// Package docstore is a key-indexed JSON document store. Every entity type
// lives in its own named collection and is addressed by its domain id
// (e.g. "HOSP001", "BED-HOSP001-ICU-1"). Three backends are provided: an
// in-process Memory store, a Postgres JSONB table and MongoDB.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// ErrNotFound is returned when no document has the requested key.
	ErrNotFound = errors.New("docstore: document not found")
	// ErrDuplicateKey is returned by Insert when the key already exists.
	ErrDuplicateKey = errors.New("docstore: duplicate key")
)

// Filter selects documents whose top-level fields equal the given values.
// A nil or empty filter matches everything.
type Filter map[string]interface{}

// Backend stores raw JSON documents.
type Backend interface {
	Get(ctx context.Context, collection, key string) (json.RawMessage, error)
	// Insert stores doc under key and fails with ErrDuplicateKey if present.
	Insert(ctx context.Context, collection, key string, doc json.RawMessage) error
	// Put creates or replaces the document at key.
	Put(ctx context.Context, collection, key string, doc json.RawMessage) error
	// Delete removes the document; ErrNotFound when absent.
	Delete(ctx context.Context, collection, key string) error
	// Find returns matching documents ordered by key.
	Find(ctx context.Context, collection string, filter Filter) ([]json.RawMessage, error)
	// Truncate removes every document in the collection.
	Truncate(ctx context.Context, collection string) error
	Ping(ctx context.Context) error
	Name() string
}

// normalize round-trips v through JSON so values compare the way they will
// be stored (numbers as float64, structs as maps).
func normalize(v interface{}) (interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
