package doctor

import (
	"context"
	"sort"

	"github.com/rapidcare/rapidcare/internal/platform/docstore"
)

type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	Get(ctx context.Context, doctorID string) (*Doctor, error)
	Update(ctx context.Context, d *Doctor) error
	Delete(ctx context.Context, doctorID string) error
	ListByHospital(ctx context.Context, hospitalID string) ([]*Doctor, error)
}

type AttendanceRepository interface {
	Get(ctx context.Context, doctorID, day string) (*Attendance, error)
	Put(ctx context.Context, a *Attendance) error
	// ListByDoctor returns a doctor's records, newest day first.
	ListByDoctor(ctx context.Context, doctorID string) ([]*Attendance, error)
}

type LeaveRepository interface {
	Create(ctx context.Context, l *Leave) error
	Get(ctx context.Context, leaveID string) (*Leave, error)
	Update(ctx context.Context, l *Leave) error
	// ListByDoctor returns a doctor's requests, newest first.
	ListByDoctor(ctx context.Context, doctorID string) ([]*Leave, error)
}

type doctorRepo struct {
	c *docstore.Collection[Doctor]
}

func NewDoctorRepository(backend docstore.Backend) DoctorRepository {
	return &doctorRepo{c: docstore.NewCollection[Doctor](backend, CollectionName)}
}

func (r *doctorRepo) Create(ctx context.Context, d *Doctor) error {
	return r.c.Insert(ctx, d.DoctorID, d)
}

func (r *doctorRepo) Get(ctx context.Context, doctorID string) (*Doctor, error) {
	return r.c.Get(ctx, doctorID)
}

func (r *doctorRepo) Update(ctx context.Context, d *Doctor) error {
	return r.c.Put(ctx, d.DoctorID, d)
}

func (r *doctorRepo) Delete(ctx context.Context, doctorID string) error {
	return r.c.Delete(ctx, doctorID)
}

func (r *doctorRepo) ListByHospital(ctx context.Context, hospitalID string) ([]*Doctor, error) {
	return r.c.Find(ctx, docstore.Filter{"hospitalId": hospitalID})
}

type attendanceRepo struct {
	c *docstore.Collection[Attendance]
}

func NewAttendanceRepository(backend docstore.Backend) AttendanceRepository {
	return &attendanceRepo{c: docstore.NewCollection[Attendance](backend, AttendanceCollectionName)}
}

func (r *attendanceRepo) Get(ctx context.Context, doctorID, day string) (*Attendance, error) {
	return r.c.Get(ctx, AttendanceKey(doctorID, day))
}

func (r *attendanceRepo) Put(ctx context.Context, a *Attendance) error {
	return r.c.Put(ctx, AttendanceKey(a.DoctorID, a.Date), a)
}

func (r *attendanceRepo) ListByDoctor(ctx context.Context, doctorID string) ([]*Attendance, error) {
	list, err := r.c.Find(ctx, docstore.Filter{"doctorId": doctorID})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Date > list[j].Date })
	return list, nil
}

type leaveRepo struct {
	c *docstore.Collection[Leave]
}

func NewLeaveRepository(backend docstore.Backend) LeaveRepository {
	return &leaveRepo{c: docstore.NewCollection[Leave](backend, LeaveCollectionName)}
}

func (r *leaveRepo) Create(ctx context.Context, l *Leave) error {
	return r.c.Insert(ctx, l.LeaveID, l)
}

func (r *leaveRepo) Get(ctx context.Context, leaveID string) (*Leave, error) {
	return r.c.Get(ctx, leaveID)
}

func (r *leaveRepo) Update(ctx context.Context, l *Leave) error {
	return r.c.Put(ctx, l.LeaveID, l)
}

func (r *leaveRepo) ListByDoctor(ctx context.Context, doctorID string) ([]*Leave, error) {
	list, err := r.c.Find(ctx, docstore.Filter{"doctorId": doctorID})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}
