package announcement

import (
	"context"

	"github.com/rapidcare/rapidcare/internal/platform/docstore"
)

type Repository interface {
	Create(ctx context.Context, a *Announcement) error
	Get(ctx context.Context, announcementID string) (*Announcement, error)
	Update(ctx context.Context, a *Announcement) error
	Delete(ctx context.Context, announcementID string) error
	ListByHospital(ctx context.Context, hospitalID string) ([]*Announcement, error)
	List(ctx context.Context) ([]*Announcement, error)
}

type docRepo struct {
	c *docstore.Collection[Announcement]
}

func NewRepository(backend docstore.Backend) Repository {
	return &docRepo{c: docstore.NewCollection[Announcement](backend, CollectionName)}
}

func (r *docRepo) Create(ctx context.Context, a *Announcement) error {
	return r.c.Insert(ctx, a.AnnouncementID, a)
}

func (r *docRepo) Get(ctx context.Context, announcementID string) (*Announcement, error) {
	return r.c.Get(ctx, announcementID)
}

func (r *docRepo) Update(ctx context.Context, a *Announcement) error {
	return r.c.Put(ctx, a.AnnouncementID, a)
}

func (r *docRepo) Delete(ctx context.Context, announcementID string) error {
	return r.c.Delete(ctx, announcementID)
}

func (r *docRepo) ListByHospital(ctx context.Context, hospitalID string) ([]*Announcement, error) {
	return r.c.Find(ctx, docstore.Filter{"hospitalId": hospitalID})
}

func (r *docRepo) List(ctx context.Context) ([]*Announcement, error) {
	return r.c.All(ctx)
}
