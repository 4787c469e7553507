package ambulance

import (
	"context"
	"errors"

	"github.com/rapidcare/rapidcare/internal/platform/docstore"
)

type Repository interface {
	Create(ctx context.Context, a *Ambulance) error
	Get(ctx context.Context, ambulanceID string) (*Ambulance, error)
	Update(ctx context.Context, a *Ambulance) error
	Delete(ctx context.Context, ambulanceID string) error
	ListByHospital(ctx context.Context, hospitalID string) ([]*Ambulance, error)
	// FindByCrew returns the ambulance whose id or crew ids match ref.
	FindByCrew(ctx context.Context, ref string) (*Ambulance, error)
}

type EMTRepository interface {
	Create(ctx context.Context, e *EMT) error
	Get(ctx context.Context, emtID string) (*EMT, error)
	Update(ctx context.Context, e *EMT) error
	ListByHospital(ctx context.Context, hospitalID string) ([]*EMT, error)
}

type DriverRepository interface {
	Create(ctx context.Context, d *Driver) error
	Get(ctx context.Context, driverID string) (*Driver, error)
	Update(ctx context.Context, d *Driver) error
	ListByHospital(ctx context.Context, hospitalID string) ([]*Driver, error)
}

type ambulanceRepo struct {
	c *docstore.Collection[Ambulance]
}

func NewRepository(backend docstore.Backend) Repository {
	return &ambulanceRepo{c: docstore.NewCollection[Ambulance](backend, CollectionName)}
}

func (r *ambulanceRepo) Create(ctx context.Context, a *Ambulance) error {
	return r.c.Insert(ctx, a.AmbulanceID, a)
}

func (r *ambulanceRepo) Get(ctx context.Context, ambulanceID string) (*Ambulance, error) {
	return r.c.Get(ctx, ambulanceID)
}

func (r *ambulanceRepo) Update(ctx context.Context, a *Ambulance) error {
	return r.c.Put(ctx, a.AmbulanceID, a)
}

func (r *ambulanceRepo) Delete(ctx context.Context, ambulanceID string) error {
	return r.c.Delete(ctx, ambulanceID)
}

func (r *ambulanceRepo) ListByHospital(ctx context.Context, hospitalID string) ([]*Ambulance, error) {
	return r.c.Find(ctx, docstore.Filter{"hospitalId": hospitalID})
}

// FindByCrew scans the fleet; crew ids live in nested documents the filter
// cannot address.
func (r *ambulanceRepo) FindByCrew(ctx context.Context, ref string) (*Ambulance, error) {
	a, err := r.c.Get(ctx, ref)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return nil, err
	}
	all, err := r.c.All(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range all {
		if a.HasCrew(ref) {
			return a, nil
		}
	}
	return nil, docstore.ErrNotFound
}

type emtRepo struct {
	c *docstore.Collection[EMT]
}

func NewEMTRepository(backend docstore.Backend) EMTRepository {
	return &emtRepo{c: docstore.NewCollection[EMT](backend, EMTCollectionName)}
}

func (r *emtRepo) Create(ctx context.Context, e *EMT) error {
	return r.c.Insert(ctx, e.EMTID, e)
}

func (r *emtRepo) Get(ctx context.Context, emtID string) (*EMT, error) {
	return r.c.Get(ctx, emtID)
}

func (r *emtRepo) Update(ctx context.Context, e *EMT) error {
	return r.c.Put(ctx, e.EMTID, e)
}

func (r *emtRepo) ListByHospital(ctx context.Context, hospitalID string) ([]*EMT, error) {
	return r.c.Find(ctx, docstore.Filter{"hospitalId": hospitalID})
}

type driverRepo struct {
	c *docstore.Collection[Driver]
}

func NewDriverRepository(backend docstore.Backend) DriverRepository {
	return &driverRepo{c: docstore.NewCollection[Driver](backend, DriverCollectionName)}
}

func (r *driverRepo) Create(ctx context.Context, d *Driver) error {
	return r.c.Insert(ctx, d.DriverID, d)
}

func (r *driverRepo) Get(ctx context.Context, driverID string) (*Driver, error) {
	return r.c.Get(ctx, driverID)
}

func (r *driverRepo) Update(ctx context.Context, d *Driver) error {
	return r.c.Put(ctx, d.DriverID, d)
}

func (r *driverRepo) ListByHospital(ctx context.Context, hospitalID string) ([]*Driver, error) {
	return r.c.Find(ctx, docstore.Filter{"hospitalId": hospitalID})
}
