package bed

import (
	"context"

	"github.com/rapidcare/rapidcare/internal/platform/docstore"
)

type Repository interface {
	Create(ctx context.Context, b *Bed) error
	Get(ctx context.Context, bedID string) (*Bed, error)
	Update(ctx context.Context, b *Bed) error
	Delete(ctx context.Context, bedID string) error
	ListByHospital(ctx context.Context, hospitalID string) ([]*Bed, error)
}

type docRepo struct {
	c *docstore.Collection[Bed]
}

func NewRepository(backend docstore.Backend) Repository {
	return &docRepo{c: docstore.NewCollection[Bed](backend, CollectionName)}
}

func (r *docRepo) Create(ctx context.Context, b *Bed) error {
	return r.c.Insert(ctx, b.BedID, b)
}

func (r *docRepo) Get(ctx context.Context, bedID string) (*Bed, error) {
	return r.c.Get(ctx, bedID)
}

func (r *docRepo) Update(ctx context.Context, b *Bed) error {
	return r.c.Put(ctx, b.BedID, b)
}

func (r *docRepo) Delete(ctx context.Context, bedID string) error {
	return r.c.Delete(ctx, bedID)
}

func (r *docRepo) ListByHospital(ctx context.Context, hospitalID string) ([]*Bed, error) {
	return r.c.Find(ctx, docstore.Filter{"hospitalId": hospitalID})
}
