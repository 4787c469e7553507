package bed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rapidcare/rapidcare/internal/platform/apperr"
	"github.com/rapidcare/rapidcare/internal/platform/auth"
	"github.com/rapidcare/rapidcare/internal/platform/docstore"
	"github.com/rapidcare/rapidcare/internal/platform/realtime"
)

type Service struct {
	beds   Repository
	events realtime.Publisher
	now    func() time.Time
}

func NewService(beds Repository, events realtime.Publisher) *Service {
	return &Service{beds: beds, events: events, now: time.Now}
}

func (s *Service) ListByHospital(ctx context.Context, hospitalID string) ([]*Bed, error) {
	return s.beds.ListByHospital(ctx, hospitalID)
}

func (s *Service) Get(ctx context.Context, bedID string) (*Bed, error) {
	b, err := s.beds.Get(ctx, bedID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, apperr.NotFound("Bed not found")
	}
	return b, err
}

// Create registers a bed. When no id is given one is derived from the
// hospital, ward and bed number.
func (s *Service) Create(ctx context.Context, actor auth.Identity, in CreateInput) (*Bed, error) {
	if in.HospitalID == "" || in.BedNumber == "" {
		return nil, apperr.Validation("Hospital ID and bed number are required")
	}
	if !actor.Owns(in.HospitalID) {
		return nil, apperr.Forbidden("Forbidden")
	}
	if in.BedType == "" {
		in.BedType = TypeGeneral
	}
	if !validTypes[in.BedType] {
		return nil, apperr.Validation("invalid bed type: %s", in.BedType)
	}
	if in.BedID == "" {
		ward := in.WardNumber
		if ward == "" {
			ward = in.BedType
		}
		in.BedID = fmt.Sprintf("%s-%s-B%s", in.HospitalID, ward, in.BedNumber)
	}

	now := s.now()
	b := &Bed{
		BedID:       in.BedID,
		HospitalID:  in.HospitalID,
		BedNumber:   in.BedNumber,
		WardNumber:  in.WardNumber,
		BedType:     in.BedType,
		Status:      StatusVacant,
		LastUpdated: now,
		CreatedAt:   now,
	}
	if err := s.beds.Create(ctx, b); err != nil {
		if errors.Is(err, docstore.ErrDuplicateKey) {
			return nil, apperr.Conflict("Bed ID already exists")
		}
		return nil, err
	}
	return b, nil
}

func (s *Service) Delete(ctx context.Context, actor auth.Identity, bedID string) error {
	b, err := s.owned(ctx, actor, bedID)
	if err != nil {
		return err
	}
	return s.beds.Delete(ctx, b.BedID)
}

// UpdateStatus changes a bed's status. Staff in the hospital scope receive
// the full record; everyone else sees only id, type and status.
func (s *Service) UpdateStatus(ctx context.Context, actor auth.Identity, bedID string, in StatusInput) (*Bed, error) {
	if !validStatuses[in.Status] {
		return nil, apperr.Validation("invalid status: %s", in.Status)
	}
	b, err := s.owned(ctx, actor, bedID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	b.Status = in.Status
	b.LastUpdated = now
	switch in.Status {
	case StatusOccupied:
		b.OccupiedBy = in.OccupiedBy
		b.OccupiedAt = &now
	case StatusVacant:
		b.OccupiedBy = ""
		b.OccupiedAt = nil
	}
	if err := s.beds.Update(ctx, b); err != nil {
		return nil, err
	}

	s.publishStatus(realtime.EventBedUpdate, b, b.update())
	return b, nil
}

// Discharge releases an occupied bed into cleaning.
func (s *Service) Discharge(ctx context.Context, actor auth.Identity, bedID string, in DischargeInput) (*Bed, error) {
	b, err := s.owned(ctx, actor, bedID)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusOccupied {
		return nil, apperr.Validation("Bed is not occupied")
	}

	now := s.now()
	patient := b.OccupiedBy
	b.Status = StatusCleaning
	b.OccupiedBy = ""
	b.OccupiedAt = nil
	b.LastUpdated = now
	b.Discharge = &Discharge{
		DischargedAt: &now,
		DischargedBy: actor.Ref,
		Reason:       in.Reason,
		Notes:        in.Notes,
	}
	b.Cleaning = &Cleaning{StartedAt: &now, StartedBy: actor.Ref, ExpectedDuration: DefaultCleaningMinutes}
	if err := s.beds.Update(ctx, b); err != nil {
		return nil, err
	}

	s.events.ToScope(realtime.HospitalScope(b.HospitalID), realtime.EventBedDischarged, map[string]interface{}{
		"bedId":        b.BedID,
		"hospitalId":   b.HospitalID,
		"patientName":  patient,
		"reason":       in.Reason,
		"dischargedAt": now,
		"status":       b.Status,
	})
	return b, nil
}

// MarkCleaned returns a bed in cleaning to service.
func (s *Service) MarkCleaned(ctx context.Context, actor auth.Identity, bedID string) (*Bed, error) {
	b, err := s.owned(ctx, actor, bedID)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusCleaning {
		return nil, apperr.Validation("Bed is not being cleaned")
	}

	now := s.now()
	b.Status = StatusVacant
	b.LastUpdated = now
	if b.Cleaning == nil {
		b.Cleaning = &Cleaning{ExpectedDuration: DefaultCleaningMinutes}
	}
	b.Cleaning.CompletedAt = &now
	b.Cleaning.CompletedBy = actor.Ref
	if err := s.beds.Update(ctx, b); err != nil {
		return nil, err
	}

	s.publishStatus(realtime.EventBedCleaned, b, b.update())
	return b, nil
}

func (s *Service) publishStatus(scopedEvent string, b *Bed, payload Update) {
	s.events.ToScope(realtime.HospitalScope(b.HospitalID), scopedEvent, payload)
	s.events.ToAll(realtime.EventBedPublicUpdate, b.public())
}

func (s *Service) owned(ctx context.Context, actor auth.Identity, bedID string) (*Bed, error) {
	b, err := s.Get(ctx, bedID)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(b.HospitalID) {
		return nil, apperr.Forbidden("Forbidden")
	}
	return b, nil
}
