package doctor

import (
	"context"
	"errors"
	"time"

	"github.com/rapidcare/rapidcare/internal/domain/hospital"
	"github.com/rapidcare/rapidcare/internal/platform/apperr"
	"github.com/rapidcare/rapidcare/internal/platform/auth"
	"github.com/rapidcare/rapidcare/internal/platform/docstore"
	"github.com/rapidcare/rapidcare/internal/platform/realtime"
)

// DefaultGeofenceRadius is the GPS check-in radius in meters.
const DefaultGeofenceRadius = 100

type Service struct {
	doctors    DoctorRepository
	attendance AttendanceRepository
	leaves     LeaveRepository
	hospitals  hospital.Repository
	events     realtime.Publisher
	radius     int
	now        func() time.Time
}

func NewService(doctors DoctorRepository, attendance AttendanceRepository, leaves LeaveRepository,
	hospitals hospital.Repository, events realtime.Publisher) *Service {
	return &Service{
		doctors:    doctors,
		attendance: attendance,
		leaves:     leaves,
		hospitals:  hospitals,
		events:     events,
		radius:     DefaultGeofenceRadius,
		now:        time.Now,
	}
}

// SetGeofenceRadius overrides the check-in radius in meters.
func (s *Service) SetGeofenceRadius(meters int) {
	if meters > 0 {
		s.radius = meters
	}
}

// Get returns the stored doctor including its password hash.
func (s *Service) Get(ctx context.Context, doctorID string) (*Doctor, error) {
	d, err := s.doctors.Get(ctx, doctorID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, apperr.NotFound("Doctor not found")
	}
	return d, err
}

// ListByHospital returns a hospital's roster. A hospital caller may only
// read its own.
func (s *Service) ListByHospital(ctx context.Context, actor auth.Identity, hospitalID string) ([]Doctor, error) {
	if actor.Role == auth.RoleHospital && !actor.Owns(hospitalID) {
		return nil, apperr.Forbidden("Forbidden")
	}
	list, err := s.doctors.ListByHospital(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	out := make([]Doctor, 0, len(list))
	for _, d := range list {
		out = append(out, d.Redacted())
	}
	return out, nil
}

// Create registers a doctor with the default password, to be changed on
// first login.
func (s *Service) Create(ctx context.Context, actor auth.Identity, in CreateInput) (*Doctor, error) {
	if in.DoctorID == "" || in.HospitalID == "" {
		return nil, apperr.Validation("Doctor ID and Hospital ID are required")
	}
	if !actor.Owns(in.HospitalID) {
		return nil, apperr.Forbidden("Forbidden")
	}
	if in.Shift == "" {
		in.Shift = ShiftMorning
	}
	if !validShifts[in.Shift] {
		return nil, apperr.Validation("invalid shift: %s", in.Shift)
	}
	hash, err := auth.HashPassword(auth.DefaultPassword)
	if err != nil {
		return nil, err
	}

	now := s.now()
	d := &Doctor{
		DoctorID:            in.DoctorID,
		HospitalID:          in.HospitalID,
		Name:                in.Name,
		Qualification:       in.Qualification,
		Speciality:          in.Speciality,
		Experience:          in.Experience,
		Mobile:              in.Mobile,
		Availability:        NotAvailable,
		Shift:               in.Shift,
		Password:            hash,
		ForcePasswordChange: true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.doctors.Create(ctx, d); err != nil {
		if errors.Is(err, docstore.ErrDuplicateKey) {
			return nil, apperr.Conflict("Doctor ID already exists")
		}
		return nil, err
	}
	out := d.Redacted()
	return &out, nil
}

// Update edits a profile. The doctor or the owning hospital may do so.
func (s *Service) Update(ctx context.Context, actor auth.Identity, doctorID string, in UpdateInput) (*Doctor, error) {
	d, err := s.Get(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, d) {
		return nil, apperr.Forbidden("Forbidden: Cannot update this doctor")
	}
	if in.Name != nil {
		d.Name = *in.Name
	}
	if in.Qualification != nil {
		d.Qualification = *in.Qualification
	}
	if in.Speciality != nil {
		d.Speciality = *in.Speciality
	}
	if in.Experience != nil {
		d.Experience = *in.Experience
	}
	if in.Mobile != nil {
		d.Mobile = *in.Mobile
	}
	if in.PhotoURL != nil {
		d.PhotoURL = *in.PhotoURL
	}
	if in.Shift != nil {
		if !validShifts[*in.Shift] {
			return nil, apperr.Validation("invalid shift: %s", *in.Shift)
		}
		d.Shift = *in.Shift
	}
	d.UpdatedAt = s.now()
	if err := s.doctors.Update(ctx, d); err != nil {
		return nil, err
	}
	out := d.Redacted()
	return &out, nil
}

func (s *Service) Delete(ctx context.Context, actor auth.Identity, doctorID string) error {
	d, err := s.Get(ctx, doctorID)
	if err != nil {
		return err
	}
	if !actor.Owns(d.HospitalID) {
		return apperr.Forbidden("Forbidden")
	}
	return s.doctors.Delete(ctx, d.DoctorID)
}

// canManage reports whether actor may act on d's behalf: the doctor
// themself or the hospital the doctor belongs to.
func canManage(actor auth.Identity, d *Doctor) bool {
	switch {
	case actor.IsAdmin():
		return true
	case actor.Role == auth.RoleDoctor:
		return actor.Owns(d.DoctorID)
	case actor.Role == auth.RoleHospital:
		return actor.Owns(d.HospitalID)
	}
	return false
}
