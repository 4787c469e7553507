// Package reset wipes every collection and reloads the demo network.
package reset

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rapidcare/rapidcare/internal/domain/ambulance"
	"github.com/rapidcare/rapidcare/internal/domain/announcement"
	"github.com/rapidcare/rapidcare/internal/domain/bed"
	"github.com/rapidcare/rapidcare/internal/domain/bloodbank"
	"github.com/rapidcare/rapidcare/internal/domain/doctor"
	"github.com/rapidcare/rapidcare/internal/domain/emergency"
	"github.com/rapidcare/rapidcare/internal/domain/hospital"
	"github.com/rapidcare/rapidcare/internal/platform/auth"
	"github.com/rapidcare/rapidcare/internal/platform/docstore"
	"github.com/rapidcare/rapidcare/internal/platform/realtime"
)

// ResetMessage accompanies the database:reset event.
const ResetMessage = "Database has been reset with fresh dummy data"

// Collections lists every collection a reset clears.
var Collections = []string{
	hospital.CollectionName,
	doctor.CollectionName,
	doctor.AttendanceCollectionName,
	doctor.LeaveCollectionName,
	bed.CollectionName,
	ambulance.CollectionName,
	ambulance.EMTCollectionName,
	ambulance.DriverCollectionName,
	emergency.CollectionName,
	bloodbank.CollectionName,
	announcement.CollectionName,
}

type Counts struct {
	Hospitals  int `json:"hospitals"`
	Doctors    int `json:"doctors"`
	Ambulances int `json:"ambulances"`
	Beds       int `json:"beds"`
	Attendance int `json:"attendance"`
}

// Notice is the database:reset payload.
type Notice struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Counts    Counts    `json:"counts"`
}

type Service struct {
	backend    docstore.Backend
	hospitals  hospital.Repository
	doctors    doctor.DoctorRepository
	attendance doctor.AttendanceRepository
	ambulances ambulance.Repository
	beds       bed.Repository
	events     realtime.Publisher
	logger     zerolog.Logger
	now        func() time.Time
}

func NewService(backend docstore.Backend, events realtime.Publisher, logger zerolog.Logger) *Service {
	return &Service{
		backend:    backend,
		hospitals:  hospital.NewRepository(backend),
		doctors:    doctor.NewDoctorRepository(backend),
		attendance: doctor.NewAttendanceRepository(backend),
		ambulances: ambulance.NewRepository(backend),
		beds:       bed.NewRepository(backend),
		events:     events,
		logger:     logger,
		now:        time.Now,
	}
}

// Reset reloads the demo data and tells every connected client.
func (s *Service) Reset(ctx context.Context) (Counts, error) {
	counts, err := s.Seed(ctx)
	if err != nil {
		return Counts{}, err
	}
	s.events.ToAll(realtime.EventDatabaseReset, Notice{
		Message:   ResetMessage,
		Timestamp: s.now(),
		Counts:    counts,
	})
	return counts, nil
}

// Seed clears every collection and inserts the demo data without notifying
// anyone.
func (s *Service) Seed(ctx context.Context) (Counts, error) {
	start := s.now()
	if err := s.truncate(ctx); err != nil {
		return Counts{}, err
	}
	s.logger.Info().Int("collections", len(Collections)).Msg("cleared existing data")

	hash, err := auth.HashPassword(auth.DefaultPassword)
	if err != nil {
		return Counts{}, fmt.Errorf("hash default password: %w", err)
	}
	data := demoData(hash, start)
	if err := s.insert(ctx, data); err != nil {
		return Counts{}, err
	}

	counts := data.counts()
	s.logger.Info().
		Int("hospitals", counts.Hospitals).
		Int("doctors", counts.Doctors).
		Int("ambulances", counts.Ambulances).
		Int("beds", counts.Beds).
		Int("attendance", counts.Attendance).
		Dur("took", s.now().Sub(start)).
		Msg("seeded demo data")
	return counts, nil
}

func (s *Service) truncate(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, name := range Collections {
		name := name
		g.Go(func() error {
			if err := s.backend.Truncate(ctx, name); err != nil {
				return fmt.Errorf("truncate %s: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *Service) insert(ctx context.Context, d *dataset) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for _, h := range d.hospitals {
			if err := s.hospitals.Create(ctx, h); err != nil {
				return fmt.Errorf("seed hospital %s: %w", h.HospitalID, err)
			}
		}
		return nil
	})
	g.Go(func() error {
		for _, doc := range d.doctors {
			if err := s.doctors.Create(ctx, doc); err != nil {
				return fmt.Errorf("seed doctor %s: %w", doc.DoctorID, err)
			}
		}
		for _, a := range d.attendance {
			if err := s.attendance.Put(ctx, a); err != nil {
				return fmt.Errorf("seed attendance %s: %w", a.DoctorID, err)
			}
		}
		return nil
	})
	g.Go(func() error {
		for _, a := range d.ambulances {
			if err := s.ambulances.Create(ctx, a); err != nil {
				return fmt.Errorf("seed ambulance %s: %w", a.AmbulanceID, err)
			}
		}
		return nil
	})
	g.Go(func() error {
		for _, b := range d.beds {
			if err := s.beds.Create(ctx, b); err != nil {
				return fmt.Errorf("seed bed %s: %w", b.BedID, err)
			}
		}
		return nil
	})
	return g.Wait()
}
