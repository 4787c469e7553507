package emergency

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rapidcare/rapidcare/internal/domain/ambulance"
	"github.com/rapidcare/rapidcare/internal/domain/hospital"
	"github.com/rapidcare/rapidcare/internal/platform/apperr"
	"github.com/rapidcare/rapidcare/internal/platform/auth"
	"github.com/rapidcare/rapidcare/internal/platform/docstore"
	"github.com/rapidcare/rapidcare/internal/platform/geo"
	"github.com/rapidcare/rapidcare/internal/platform/realtime"
)

type Service struct {
	emergencies Repository
	hospitals   hospital.Repository
	ambulances  ambulance.Repository
	events      realtime.Publisher
	speedKmh    float64
	now         func() time.Time
}

func NewService(emergencies Repository, hospitals hospital.Repository, ambulances ambulance.Repository, events realtime.Publisher) *Service {
	return &Service{
		emergencies: emergencies,
		hospitals:   hospitals,
		ambulances:  ambulances,
		events:      events,
		speedKmh:    ambulance.DefaultSpeedKmh,
		now:         time.Now,
	}
}

// SetSpeed overrides the speed in km/h used for ETA estimates.
func (s *Service) SetSpeed(kmh float64) {
	if kmh > 0 {
		s.speedKmh = kmh
	}
}

// Create files a new request against a hospital and alerts its staff.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Emergency, error) {
	if in.HospitalID == "" || in.Patient.Name == "" || in.EmergencyType == "" {
		return nil, apperr.Validation("hospitalId, patient name and emergencyType are required")
	}
	if in.Severity == "" {
		in.Severity = SeverityMedium
	}
	if !validSeverities[in.Severity] {
		return nil, apperr.Validation("invalid severity: %s", in.Severity)
	}
	if in.Patient.Location != nil && !in.Patient.Location.Valid() {
		return nil, apperr.Validation("patient location is out of range")
	}
	if _, err := s.hospitals.Get(ctx, in.HospitalID); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, apperr.NotFound("Hospital not found")
		}
		return nil, err
	}

	now := s.now()
	e := &Emergency{
		EmergencyID:   newID(in.HospitalID),
		HospitalID:    in.HospitalID,
		Patient:       in.Patient,
		EmergencyType: in.EmergencyType,
		Severity:      in.Severity,
		Description:   in.Description,
		Status:        StatusPending,
		Timeline:      []TimelineEntry{{Status: StatusPending, Timestamp: now, Notes: "Request received"}},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.emergencies.Create(ctx, e); err != nil {
		if errors.Is(err, docstore.ErrDuplicateKey) {
			return nil, apperr.Conflict("Emergency ID already exists")
		}
		return nil, err
	}

	s.events.ToScope(realtime.HospitalScope(e.HospitalID), realtime.EventEmergencyNew, NewRequest{
		EmergencyID:   e.EmergencyID,
		HospitalID:    e.HospitalID,
		Patient:       e.Patient,
		EmergencyType: e.EmergencyType,
		Severity:      e.Severity,
		Status:        e.Status,
		CreatedAt:     now,
	})
	return e, nil
}

func (s *Service) Get(ctx context.Context, emergencyID string) (*Emergency, error) {
	e, err := s.emergencies.Get(ctx, emergencyID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, apperr.NotFound("Emergency request not found")
	}
	return e, err
}

// ListByHospital returns a hospital's requests, newest first. An empty
// status returns every request.
func (s *Service) ListByHospital(ctx context.Context, actor auth.Identity, hospitalID, status string) ([]*Emergency, error) {
	if actor.Role == auth.RoleHospital && !actor.Owns(hospitalID) {
		return nil, apperr.Forbidden("Forbidden")
	}
	list, err := s.emergencies.ListByHospital(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	out := list[:0]
	for _, e := range list {
		if status == "" || e.Status == status {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// UpdateStatus moves a request along its lifecycle. Only the hospital
// dispatches or rejects; after dispatch the assigned crew may report progress.
func (s *Service) UpdateStatus(ctx context.Context, actor auth.Identity, emergencyID string, in StatusInput) (*Emergency, error) {
	e, err := s.Get(ctx, emergencyID)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(e, in.Status); err != nil {
		return nil, err
	}

	var amb *ambulance.Ambulance
	if in.AmbulanceID != "" {
		if in.Status != StatusDispatched {
			return nil, apperr.Validation("an ambulance can only be assigned when dispatching")
		}
		amb, err = s.assignable(ctx, e, in.AmbulanceID)
		if err != nil {
			return nil, err
		}
	} else if e.AssignedAmbulanceID != "" {
		amb, err = s.loadAmbulance(ctx, e.AssignedAmbulanceID)
		if err != nil {
			return nil, err
		}
	}
	if err := authorize(actor, e, amb, in.Status); err != nil {
		return nil, err
	}

	now := s.now()
	switch in.Status {
	case StatusDispatched:
		if amb == nil {
			return nil, apperr.Validation("ambulanceId is required to dispatch")
		}
		e.AssignedAmbulanceID = amb.AmbulanceID
		e.DispatchedAt = &now
	case StatusAtScene:
		e.ArrivedAtPatientAt = &now
	case StatusTransporting:
		e.DepartedFromPatientAt = &now
	case StatusArrived:
		e.ArrivedAtHospitalAt = &now
	case StatusCompleted:
		e.CompletedAt = &now
	case StatusRejected:
		if in.Reason == "" {
			return nil, apperr.Validation("reason is required to reject a request")
		}
		e.RejectionReason = in.Reason
		e.AlternateHospitals = in.AlternateHospitals
	}

	notes := in.Notes
	if notes == "" && in.Status == StatusRejected {
		notes = in.Reason
	}
	e.Status = in.Status
	e.Timeline = append(e.Timeline, TimelineEntry{Status: in.Status, Timestamp: now, Notes: notes})
	if amb != nil && !e.Closed() {
		e.ETA = s.estimate(ctx, e, amb, now)
	}
	e.UpdatedAt = now
	if err := s.emergencies.Update(ctx, e); err != nil {
		return nil, err
	}
	if amb != nil {
		if err := s.syncAmbulance(ctx, e, amb, now); err != nil {
			return nil, err
		}
	}

	update := Update{
		EmergencyID:         e.EmergencyID,
		HospitalID:          e.HospitalID,
		Status:              e.Status,
		AssignedAmbulanceID: e.AssignedAmbulanceID,
		Reason:              e.RejectionReason,
		AlternateHospitals:  e.AlternateHospitals,
		ETA:                 e.ETA,
		Timestamp:           now,
	}
	s.events.ToScope(realtime.HospitalScope(e.HospitalID), realtime.EventEmergencyUpdate, update)
	if e.AssignedAmbulanceID != "" {
		s.events.ToScope(realtime.AmbulanceScope(e.AssignedAmbulanceID), realtime.EventEmergencyUpdate, update)
	}
	return e, nil
}

func checkTransition(e *Emergency, next string) error {
	if e.Closed() {
		return apperr.Validation("emergency request is already %s", strings.ToLower(e.Status))
	}
	if next == StatusRejected {
		if e.Status != StatusPending {
			return apperr.Validation("only pending requests can be rejected")
		}
		return nil
	}
	from, to := stage(e.Status), stage(next)
	if to < 0 {
		return apperr.Validation("invalid status: %s", next)
	}
	if to <= from {
		return apperr.Validation("cannot move from %s to %s", e.Status, next)
	}
	if from == 0 && to != 1 {
		return apperr.Validation("a pending request must be dispatched first")
	}
	return nil
}

func stage(status string) int {
	for i, s := range progression {
		if s == status {
			return i
		}
	}
	return -1
}

// authorize limits dispatch and rejection to the owning hospital and progress
// reports to the hospital or the assigned crew.
func authorize(actor auth.Identity, e *Emergency, amb *ambulance.Ambulance, next string) error {
	switch actor.Role {
	case auth.RoleAdmin:
		return nil
	case auth.RoleHospital:
		if actor.Owns(e.HospitalID) {
			return nil
		}
	case auth.RoleAmbulance, auth.RoleEMT, auth.RoleDriver:
		switch next {
		case StatusDispatched, StatusRejected:
			return apperr.Forbidden("only the hospital can dispatch or reject a request")
		}
		if amb != nil && amb.AmbulanceID == e.AssignedAmbulanceID && amb.HasCrew(actor.Ref) {
			return nil
		}
	}
	return apperr.Forbidden("Forbidden")
}

func (s *Service) assignable(ctx context.Context, e *Emergency, ambulanceID string) (*ambulance.Ambulance, error) {
	a, err := s.loadAmbulance(ctx, ambulanceID)
	if err != nil {
		return nil, err
	}
	if a.HospitalID != e.HospitalID {
		return nil, apperr.Validation("ambulance %s belongs to another hospital", ambulanceID)
	}
	if a.CurrentEmergencyID != "" && a.CurrentEmergencyID != e.EmergencyID {
		return nil, apperr.Validation("ambulance %s is already assigned to %s", ambulanceID, a.CurrentEmergencyID)
	}
	return a, nil
}

func (s *Service) loadAmbulance(ctx context.Context, ambulanceID string) (*ambulance.Ambulance, error) {
	a, err := s.ambulances.Get(ctx, ambulanceID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, apperr.NotFound("Ambulance not found")
	}
	return a, err
}

// syncAmbulance ties the ambulance to the request while it is open and frees
// it once the request closes.
func (s *Service) syncAmbulance(ctx context.Context, e *Emergency, amb *ambulance.Ambulance, now time.Time) error {
	switch {
	case e.Status == StatusDispatched:
		amb.CurrentEmergencyID = e.EmergencyID
		amb.Status = ambulance.StatusEnRoute
	case e.Closed():
		if amb.CurrentEmergencyID != e.EmergencyID {
			return nil
		}
		amb.CurrentEmergencyID = ""
		amb.Status = ambulance.StatusAvailable
	default:
		return nil
	}
	amb.UpdatedAt = now
	return s.ambulances.Update(ctx, amb)
}

// estimate returns travel estimates from the ambulance's last fix through the
// patient to the hospital. Legs without coordinates are left at zero and the
// previous estimate is kept when nothing can be computed.
func (s *Service) estimate(ctx context.Context, e *Emergency, amb *ambulance.Ambulance, now time.Time) *ETA {
	patient := e.Patient.Location
	if patient == nil || patient.IsZero() {
		return e.ETA
	}
	eta := &ETA{LastUpdated: now}
	computed := false
	if stage(e.Status) < stage(StatusAtScene) && amb.Location != nil && !amb.Location.IsZero() {
		eta.ToPatient = geo.ETAMinutes(geo.Distance(*amb.Location, *patient), s.speedKmh)
		computed = true
	}
	if h, err := s.hospitals.Get(ctx, e.HospitalID); err == nil && h.HasLocation() {
		eta.ToHospital = geo.ETAMinutes(geo.Distance(*patient, *h.Location), s.speedKmh)
		computed = true
	}
	if !computed {
		return e.ETA
	}
	eta.TotalETA = eta.ToPatient + eta.ToHospital
	return eta
}

func newID(hospitalID string) string {
	return fmt.Sprintf("EMG-%s-%s", hospitalID, strings.ToUpper(uuid.NewString()[:8]))
}
