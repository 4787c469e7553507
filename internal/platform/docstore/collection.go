package docstore

import (
	"context"
	"encoding/json"
	"fmt"
)

// Collection is a typed view over one collection of a Backend.
type Collection[T any] struct {
	backend Backend
	name    string
}

// NewCollection binds name on backend to the document type T.
func NewCollection[T any](backend Backend, name string) *Collection[T] {
	return &Collection[T]{backend: backend, name: name}
}

// Name returns the collection name.
func (c *Collection[T]) Name() string { return c.name }

func (c *Collection[T]) Get(ctx context.Context, key string) (*T, error) {
	raw, err := c.backend.Get(ctx, c.name, key)
	if err != nil {
		return nil, err
	}
	return c.decode(raw)
}

func (c *Collection[T]) Insert(ctx context.Context, key string, v *T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", c.name, key, err)
	}
	return c.backend.Insert(ctx, c.name, key, raw)
}

func (c *Collection[T]) Put(ctx context.Context, key string, v *T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", c.name, key, err)
	}
	return c.backend.Put(ctx, c.name, key, raw)
}

func (c *Collection[T]) Delete(ctx context.Context, key string) error {
	return c.backend.Delete(ctx, c.name, key)
}

func (c *Collection[T]) Find(ctx context.Context, filter Filter) ([]*T, error) {
	raws, err := c.backend.Find(ctx, c.name, filter)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(raws))
	for _, raw := range raws {
		v, err := c.decode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// All returns every document in the collection.
func (c *Collection[T]) All(ctx context.Context) ([]*T, error) {
	return c.Find(ctx, nil)
}

func (c *Collection[T]) Truncate(ctx context.Context) error {
	return c.backend.Truncate(ctx, c.name)
}

func (c *Collection[T]) decode(raw json.RawMessage) (*T, error) {
	v := new(T)
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.name, err)
	}
	return v, nil
}
