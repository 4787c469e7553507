package hospital

import (
	"context"
	"errors"
	"time"

	"github.com/rapidcare/rapidcare/internal/platform/apperr"
	"github.com/rapidcare/rapidcare/internal/platform/auth"
	"github.com/rapidcare/rapidcare/internal/platform/docstore"
	"github.com/rapidcare/rapidcare/internal/platform/realtime"
)

type Service struct {
	hospitals Repository
	events    realtime.Publisher
	now       func() time.Time
}

func NewService(hospitals Repository, events realtime.Publisher) *Service {
	return &Service{hospitals: hospitals, events: events, now: time.Now}
}

func (s *Service) List(ctx context.Context) ([]Hospital, error) {
	list, err := s.hospitals.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Hospital, 0, len(list))
	for _, h := range list {
		out = append(out, h.Redacted())
	}
	return out, nil
}

// Get returns the stored hospital including its password hash. Callers
// outside the service layer should use Redacted.
func (s *Service) Get(ctx context.Context, hospitalID string) (*Hospital, error) {
	h, err := s.hospitals.Get(ctx, hospitalID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, apperr.NotFound("Hospital not found")
	}
	return h, err
}

// Update edits the hospital profile and announces it to the hospital's staff
// and to public dashboards.
func (s *Service) Update(ctx context.Context, actor auth.Identity, hospitalID string, in UpdateInput) (*Hospital, error) {
	if !actor.Owns(hospitalID) {
		return nil, apperr.Forbidden("Forbidden")
	}
	h, err := s.Get(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		if *in.Name == "" {
			return nil, apperr.Validation("name cannot be empty")
		}
		h.Name = *in.Name
	}
	if in.Contact != nil {
		h.Contact = *in.Contact
	}
	if in.Address != nil {
		h.Address = *in.Address
	}
	if in.Location != nil {
		if !in.Location.Valid() {
			return nil, apperr.Validation("location is out of range")
		}
		loc := *in.Location
		h.Location = &loc
	}
	if in.Services != nil {
		h.Services = in.Services
	}
	if in.Facilities != nil {
		h.Facilities = in.Facilities
	}
	if in.Insurance != nil {
		h.Insurance = in.Insurance
	}
	if in.Treatment != nil {
		h.Treatment = in.Treatment
	}
	if in.Surgery != nil {
		h.Surgery = in.Surgery
	}
	if in.Therapy != nil {
		h.Therapy = in.Therapy
	}
	h.UpdatedAt = s.now()
	if err := s.hospitals.Update(ctx, h); err != nil {
		return nil, err
	}

	public := h.Redacted()
	s.events.Dual(realtime.HospitalScope(h.HospitalID), realtime.EventHospitalUpdate, realtime.EventHospitalPublicUpdate, public)
	return &public, nil
}
