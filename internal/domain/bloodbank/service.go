package bloodbank

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rapidcare/rapidcare/internal/platform/apperr"
	"github.com/rapidcare/rapidcare/internal/platform/auth"
	"github.com/rapidcare/rapidcare/internal/platform/docstore"
	"github.com/rapidcare/rapidcare/internal/platform/realtime"
)

// DefaultHistoryLimit caps usage history when no limit is given.
const DefaultHistoryLimit = 20

type Service struct {
	units    Repository
	events   realtime.Publisher
	low      int
	critical int
	now      func() time.Time
}

func NewService(units Repository, events realtime.Publisher) *Service {
	return &Service{
		units:    units,
		events:   events,
		low:      DefaultLowStock,
		critical: DefaultCriticalStock,
		now:      time.Now,
	}
}

// SetThresholds overrides the low and critical stock levels. Stock strictly
// below a threshold triggers it.
func (s *Service) SetThresholds(low, critical int) {
	if low > 0 {
		s.low = low
	}
	if critical > 0 && critical <= s.low {
		s.critical = critical
	}
}

func (s *Service) Summary(ctx context.Context, hospitalID string) (*Summary, error) {
	list, err := s.units.ListByHospital(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	sum := &Summary{ByType: make(map[string]int, len(BloodTypes))}
	for _, t := range BloodTypes {
		sum.ByType[t] = 0
	}
	for _, u := range list {
		if u.usable(now) {
			sum.ByType[u.BloodType] += u.Quantity
			sum.TotalUnits += u.Quantity
		}
	}
	return sum, nil
}

// Add stores a new batch and reports the resulting stock for its type.
func (s *Service) Add(ctx context.Context, actor auth.Identity, in AddInput) (*Unit, int, error) {
	if in.HospitalID == "" {
		return nil, 0, apperr.Validation("hospitalId is required")
	}
	if !actor.Owns(in.HospitalID) {
		return nil, 0, apperr.Forbidden("Forbidden")
	}
	if !validType(in.BloodType) {
		return nil, 0, apperr.Validation("Invalid blood type")
	}
	if in.Quantity <= 0 {
		return nil, 0, apperr.Validation("quantity must be positive")
	}
	now := s.now()
	if !in.ExpiryDate.After(now) {
		return nil, 0, apperr.Validation("expiryDate must be in the future")
	}

	u := &Unit{
		BloodBankID: newID(in.HospitalID, in.BloodType),
		HospitalID:  in.HospitalID,
		BloodType:   in.BloodType,
		Quantity:    in.Quantity,
		ExpiryDate:  in.ExpiryDate,
		Status:      StatusAvailable,
		DonorInfo:   in.DonorInfo,
		AddedBy:     actor.Ref,
		Notes:       in.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.units.Create(ctx, u); err != nil {
		if errors.Is(err, docstore.ErrDuplicateKey) {
			return nil, 0, apperr.Conflict("Blood unit ID already exists")
		}
		return nil, 0, err
	}

	total, err := s.stock(ctx, u.HospitalID, u.BloodType, now)
	if err != nil {
		return nil, 0, err
	}
	scope := realtime.HospitalScope(u.HospitalID)
	s.events.ToScope(scope, realtime.EventBloodAdded, Added{
		BloodType:  u.BloodType,
		Quantity:   u.Quantity,
		TotalUnits: total,
		LowStock:   total < s.low,
	})
	s.alertIfLow(scope, u.BloodType, total)
	return u, total, nil
}

// Use draws units from a batch. Zero units means the whole batch.
func (s *Service) Use(ctx context.Context, actor auth.Identity, bloodBankID string, in UseInput) (*Unit, int, error) {
	u, err := s.units.Get(ctx, bloodBankID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, 0, apperr.NotFound("Blood unit not found")
	}
	if err != nil {
		return nil, 0, err
	}
	if !actor.Owns(u.HospitalID) {
		return nil, 0, apperr.Forbidden("Forbidden")
	}
	now := s.now()
	if !u.usable(now) {
		return nil, 0, apperr.Validation("Blood unit not available")
	}
	used := in.UnitsUsed
	if used < 0 {
		return nil, 0, apperr.Validation("unitsUsed must not be negative")
	}
	if used == 0 {
		used = u.Quantity
	}
	if used > u.Quantity {
		return nil, 0, apperr.Validation("Not enough units available")
	}

	u.Quantity -= used
	if u.Quantity == 0 {
		u.Status = StatusUsed
	}
	u.UsedFor = &Usage{EmergencyID: in.EmergencyID, PatientName: in.PatientName, UsedAt: now, UsedBy: actor.Ref}
	u.UpdatedAt = now
	if err := s.units.Update(ctx, u); err != nil {
		return nil, 0, err
	}

	remaining, err := s.stock(ctx, u.HospitalID, u.BloodType, now)
	if err != nil {
		return nil, 0, err
	}
	scope := realtime.HospitalScope(u.HospitalID)
	s.events.ToScope(scope, realtime.EventBloodUsed, Used{
		BloodType:      u.BloodType,
		UnitsUsed:      used,
		RemainingUnits: remaining,
		EmergencyID:    in.EmergencyID,
		PatientName:    in.PatientName,
	})
	s.alertIfLow(scope, u.BloodType, remaining)
	return u, remaining, nil
}

// Alerts lists every blood type below the low threshold.
func (s *Service) Alerts(ctx context.Context, hospitalID string) ([]Alert, error) {
	sum, err := s.Summary(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	alerts := []Alert{}
	for _, t := range BloodTypes {
		total := sum.ByType[t]
		if total >= s.low {
			continue
		}
		level := LevelLow
		if total < s.critical {
			level = LevelCritical
		}
		alerts = append(alerts, Alert{BloodType: t, TotalUnits: total, Level: level})
	}
	return alerts, nil
}

// Expiring lists available batches that expire within ExpiryWindow, soonest
// first.
func (s *Service) Expiring(ctx context.Context, hospitalID string) ([]*Unit, error) {
	list, err := s.units.ListByHospital(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	horizon := now.Add(ExpiryWindow)
	out := []*Unit{}
	for _, u := range list {
		if u.usable(now) && u.ExpiryDate.Before(horizon) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiryDate.Before(out[j].ExpiryDate) })
	return out, nil
}

// History lists fully used batches, most recently used first.
func (s *Service) History(ctx context.Context, hospitalID string, limit int) ([]*Unit, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	list, err := s.units.ListByHospital(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	out := []*Unit{}
	for _, u := range list {
		if u.Status == StatusUsed && u.UsedFor != nil {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UsedFor.UsedAt.After(out[j].UsedFor.UsedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Service) stock(ctx context.Context, hospitalID, bloodType string, now time.Time) (int, error) {
	list, err := s.units.ListByType(ctx, hospitalID, bloodType)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, u := range list {
		if u.usable(now) {
			total += u.Quantity
		}
	}
	return total, nil
}

func (s *Service) alertIfLow(scope, bloodType string, total int) {
	if total >= s.low {
		return
	}
	s.events.ToScope(scope, realtime.EventBloodLowStock, LowStock{
		BloodType:  bloodType,
		TotalUnits: total,
		Critical:   total < s.critical,
	})
}

func newID(hospitalID, bloodType string) string {
	return fmt.Sprintf("BLOOD-%s-%s-%s", hospitalID, bloodType, strings.ToUpper(uuid.NewString()[:8]))
}
