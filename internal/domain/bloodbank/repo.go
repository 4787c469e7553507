package bloodbank

import (
	"context"

	"github.com/rapidcare/rapidcare/internal/platform/docstore"
)

type Repository interface {
	Create(ctx context.Context, u *Unit) error
	Get(ctx context.Context, bloodBankID string) (*Unit, error)
	Update(ctx context.Context, u *Unit) error
	ListByHospital(ctx context.Context, hospitalID string) ([]*Unit, error)
	ListByType(ctx context.Context, hospitalID, bloodType string) ([]*Unit, error)
}

type docRepo struct {
	c *docstore.Collection[Unit]
}

func NewRepository(backend docstore.Backend) Repository {
	return &docRepo{c: docstore.NewCollection[Unit](backend, CollectionName)}
}

func (r *docRepo) Create(ctx context.Context, u *Unit) error {
	return r.c.Insert(ctx, u.BloodBankID, u)
}

func (r *docRepo) Get(ctx context.Context, bloodBankID string) (*Unit, error) {
	return r.c.Get(ctx, bloodBankID)
}

func (r *docRepo) Update(ctx context.Context, u *Unit) error {
	return r.c.Put(ctx, u.BloodBankID, u)
}

func (r *docRepo) ListByHospital(ctx context.Context, hospitalID string) ([]*Unit, error) {
	return r.c.Find(ctx, docstore.Filter{"hospitalId": hospitalID})
}

func (r *docRepo) ListByType(ctx context.Context, hospitalID, bloodType string) ([]*Unit, error) {
	return r.c.Find(ctx, docstore.Filter{"hospitalId": hospitalID, "bloodType": bloodType})
}
