package emergency

import (
	"context"

	"github.com/rapidcare/rapidcare/internal/platform/docstore"
)

type Repository interface {
	Create(ctx context.Context, e *Emergency) error
	Get(ctx context.Context, emergencyID string) (*Emergency, error)
	Update(ctx context.Context, e *Emergency) error
	ListByHospital(ctx context.Context, hospitalID string) ([]*Emergency, error)
}

type docRepo struct {
	c *docstore.Collection[Emergency]
}

func NewRepository(backend docstore.Backend) Repository {
	return &docRepo{c: docstore.NewCollection[Emergency](backend, CollectionName)}
}

func (r *docRepo) Create(ctx context.Context, e *Emergency) error {
	return r.c.Insert(ctx, e.EmergencyID, e)
}

func (r *docRepo) Get(ctx context.Context, emergencyID string) (*Emergency, error) {
	return r.c.Get(ctx, emergencyID)
}

func (r *docRepo) Update(ctx context.Context, e *Emergency) error {
	return r.c.Put(ctx, e.EmergencyID, e)
}

func (r *docRepo) ListByHospital(ctx context.Context, hospitalID string) ([]*Emergency, error) {
	return r.c.Find(ctx, docstore.Filter{"hospitalId": hospitalID})
}
