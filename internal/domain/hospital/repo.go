package hospital

import (
	"context"

	"github.com/rapidcare/rapidcare/internal/platform/docstore"
)

type Repository interface {
	Create(ctx context.Context, h *Hospital) error
	Get(ctx context.Context, hospitalID string) (*Hospital, error)
	Update(ctx context.Context, h *Hospital) error
	List(ctx context.Context) ([]*Hospital, error)
}

type docRepo struct {
	c *docstore.Collection[Hospital]
}

// NewRepository stores hospitals in backend keyed by hospitalId.
func NewRepository(backend docstore.Backend) Repository {
	return &docRepo{c: docstore.NewCollection[Hospital](backend, CollectionName)}
}

func (r *docRepo) Create(ctx context.Context, h *Hospital) error {
	return r.c.Insert(ctx, h.HospitalID, h)
}

func (r *docRepo) Get(ctx context.Context, hospitalID string) (*Hospital, error) {
	return r.c.Get(ctx, hospitalID)
}

func (r *docRepo) Update(ctx context.Context, h *Hospital) error {
	return r.c.Put(ctx, h.HospitalID, h)
}

func (r *docRepo) List(ctx context.Context) ([]*Hospital, error) {
	return r.c.All(ctx)
}
