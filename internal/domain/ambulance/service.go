package ambulance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rapidcare/rapidcare/internal/platform/apperr"
	"github.com/rapidcare/rapidcare/internal/platform/auth"
	"github.com/rapidcare/rapidcare/internal/platform/docstore"
	"github.com/rapidcare/rapidcare/internal/platform/geo"
	"github.com/rapidcare/rapidcare/internal/platform/realtime"
)

// DefaultSpeedKmh is the average city speed used for ETA estimates.
const DefaultSpeedKmh = 40

type Service struct {
	ambulances Repository
	emts       EMTRepository
	drivers    DriverRepository
	events     realtime.Publisher
	speedKmh   float64
	now        func() time.Time
}

func NewService(ambulances Repository, emts EMTRepository, drivers DriverRepository, events realtime.Publisher) *Service {
	return &Service{
		ambulances: ambulances,
		emts:       emts,
		drivers:    drivers,
		events:     events,
		speedKmh:   DefaultSpeedKmh,
		now:        time.Now,
	}
}

// SetSpeed overrides the ETA speed in km/h.
func (s *Service) SetSpeed(kmh float64) {
	if kmh > 0 {
		s.speedKmh = kmh
	}
}

// Get returns the stored ambulance including its password hash.
func (s *Service) Get(ctx context.Context, ambulanceID string) (*Ambulance, error) {
	a, err := s.ambulances.Get(ctx, ambulanceID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, apperr.NotFound("Ambulance not found")
	}
	return a, err
}

func (s *Service) ListByHospital(ctx context.Context, actor auth.Identity, hospitalID string) ([]Ambulance, error) {
	if actor.Role == auth.RoleHospital && !actor.Owns(hospitalID) {
		return nil, apperr.Forbidden("Forbidden")
	}
	list, err := s.ambulances.ListByHospital(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	out := make([]Ambulance, 0, len(list))
	for _, a := range list {
		out = append(out, a.Redacted())
	}
	return out, nil
}

// FindByUsername resolves an ambulance from its id or a crew member's id.
func (s *Service) FindByUsername(ctx context.Context, username string) (*Ambulance, error) {
	if username == "" {
		return nil, apperr.Validation("username required")
	}
	a, err := s.ambulances.FindByCrew(ctx, username)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, apperr.NotFound("not found")
	}
	if err != nil {
		return nil, err
	}
	out := a.Redacted()
	return &out, nil
}

// Create registers an ambulance. New vehicles start Offline with the default
// password.
func (s *Service) Create(ctx context.Context, actor auth.Identity, in CreateInput) (*Ambulance, error) {
	if in.AmbulanceNumber == "" {
		in.AmbulanceNumber = in.VehicleNumber
	}
	if in.AmbulanceID == "" || in.HospitalID == "" || in.AmbulanceNumber == "" {
		return nil, apperr.Validation("Ambulance ID, Hospital ID, and Ambulance Number are required")
	}
	if !actor.Owns(in.HospitalID) {
		return nil, apperr.Forbidden("Forbidden: Your hospital ID (%s) does not match the request (%s)", actor.Ref, in.HospitalID)
	}
	if in.VehicleNumber == "" {
		in.VehicleNumber = in.AmbulanceNumber
	}
	if in.VehicleType == "" {
		in.VehicleType = VehicleBLS
	}
	if !validVehicleTypes[in.VehicleType] {
		return nil, apperr.Validation("invalid vehicle type: %s", in.VehicleType)
	}
	hash, err := auth.HashPassword(auth.DefaultPassword)
	if err != nil {
		return nil, err
	}

	now := s.now()
	a := &Ambulance{
		AmbulanceID:         in.AmbulanceID,
		HospitalID:          in.HospitalID,
		AmbulanceNumber:     in.AmbulanceNumber,
		VehicleNumber:       in.VehicleNumber,
		VehicleType:         in.VehicleType,
		EMT:                 in.EMT,
		Pilot:               in.Pilot,
		Equipment:           in.Equipment,
		Status:              StatusOffline,
		Password:            hash,
		ForcePasswordChange: true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if in.EMT != nil {
		a.EMTID = in.EMT.EMTID
	}
	if in.Pilot != nil {
		a.DriverID = in.Pilot.PilotID
	}
	if err := s.ambulances.Create(ctx, a); err != nil {
		if errors.Is(err, docstore.ErrDuplicateKey) {
			return nil, apperr.Conflict("Ambulance ID already exists")
		}
		return nil, err
	}
	out := a.Redacted()
	return &out, nil
}

// Update edits an ambulance. The owning hospital and the ambulance's own
// crew may do so.
func (s *Service) Update(ctx context.Context, actor auth.Identity, ambulanceID string, in UpdateInput) (*Ambulance, error) {
	a, err := s.Get(ctx, ambulanceID)
	if err != nil {
		return nil, err
	}
	if !canOperate(actor, a) {
		return nil, apperr.Forbidden("Forbidden")
	}
	if in.VehicleType != nil && !validVehicleTypes[*in.VehicleType] {
		return nil, apperr.Validation("invalid vehicle type: %s", *in.VehicleType)
	}
	if in.Status != nil && !validStatuses[*in.Status] {
		return nil, apperr.Validation("invalid status: %s", *in.Status)
	}
	if in.AmbulanceNumber != nil {
		a.AmbulanceNumber = *in.AmbulanceNumber
	}
	if in.VehicleNumber != nil {
		a.VehicleNumber = *in.VehicleNumber
	}
	if in.VehicleType != nil {
		a.VehicleType = *in.VehicleType
	}
	if in.Status != nil {
		a.Status = *in.Status
	}
	if in.EMT != nil {
		a.EMT = in.EMT
		a.EMTID = in.EMT.EMTID
	}
	if in.Pilot != nil {
		a.Pilot = in.Pilot
		a.DriverID = in.Pilot.PilotID
	}
	if in.CurrentEmergencyID != nil {
		a.CurrentEmergencyID = *in.CurrentEmergencyID
	}
	if in.Equipment != nil {
		a.Equipment = in.Equipment
	}
	a.UpdatedAt = s.now()
	if err := s.ambulances.Update(ctx, a); err != nil {
		return nil, err
	}
	out := a.Redacted()
	return &out, nil
}

func (s *Service) Delete(ctx context.Context, actor auth.Identity, ambulanceID string) error {
	a, err := s.Get(ctx, ambulanceID)
	if err != nil {
		return err
	}
	if !actor.Owns(a.HospitalID) {
		return apperr.Forbidden("Forbidden")
	}
	return s.ambulances.Delete(ctx, a.AmbulanceID)
}

// UpdateLocation stores the latest fix and streams it to the hospital's
// dispatch view and to the ambulance's own scope.
func (s *Service) UpdateLocation(ctx context.Context, actor auth.Identity, ambulanceID string, loc geo.Point) (*Ambulance, error) {
	if !loc.Valid() {
		return nil, apperr.Validation("location is out of range")
	}
	a, err := s.Get(ctx, ambulanceID)
	if err != nil {
		return nil, err
	}
	if !canOperate(actor, a) {
		return nil, apperr.Forbidden("Forbidden")
	}

	now := s.now()
	a.Location = &loc
	a.LastLocationUpdate = &now
	a.UpdatedAt = now
	if err := s.ambulances.Update(ctx, a); err != nil {
		return nil, err
	}

	s.events.ToScope(realtime.HospitalScope(a.HospitalID), realtime.EventAmbulanceLocationUpdate, map[string]interface{}{
		"ambulanceId": a.AmbulanceID,
		"location":    loc,
		"timestamp":   now,
	})
	s.events.ToScope(realtime.AmbulanceScope(a.AmbulanceID), realtime.EventAmbulanceLocation, map[string]interface{}{
		"ambulanceId": a.AmbulanceID,
		"lat":         loc.Lat,
		"lng":         loc.Lng,
	})
	return a, nil
}

// ReportPosition records a fix sent while driving: the ambulance moves to
// In Transit and the hospital's dispatch view receives the coordinates.
func (s *Service) ReportPosition(ctx context.Context, actor auth.Identity, ambulanceID string, loc geo.Point) (*Ambulance, error) {
	if !loc.Valid() {
		return nil, apperr.Validation("location is out of range")
	}
	a, err := s.Get(ctx, ambulanceID)
	if err != nil {
		return nil, err
	}
	if !canOperate(actor, a) {
		return nil, apperr.Forbidden("Forbidden")
	}

	now := s.now()
	a.Location = &loc
	a.LastLocationUpdate = &now
	a.Status = StatusInTransit
	a.UpdatedAt = now
	if err := s.ambulances.Update(ctx, a); err != nil {
		return nil, err
	}

	s.events.ToScope(realtime.HospitalScope(a.HospitalID), realtime.EventAmbulanceLocation, map[string]interface{}{
		"ambulanceId": a.AmbulanceID,
		"lat":         loc.Lat,
		"lng":         loc.Lng,
	})
	out := a.Redacted()
	return &out, nil
}

// UpdateStatus changes the duty status and notifies the hospital.
func (s *Service) UpdateStatus(ctx context.Context, actor auth.Identity, ambulanceID, status string) (*Ambulance, error) {
	if !validStatuses[status] {
		return nil, apperr.Validation("invalid status: %s", status)
	}
	a, err := s.Get(ctx, ambulanceID)
	if err != nil {
		return nil, err
	}
	if !canOperate(actor, a) {
		return nil, apperr.Forbidden("Forbidden")
	}

	now := s.now()
	a.Status = status
	a.UpdatedAt = now
	if err := s.ambulances.Update(ctx, a); err != nil {
		return nil, err
	}

	s.events.ToScope(realtime.HospitalScope(a.HospitalID), realtime.EventAmbulanceStatusUpdate, StatusUpdate{
		AmbulanceID: a.AmbulanceID,
		Status:      a.Status,
		Location:    a.Location,
		LastSeen:    now,
	})
	out := a.Redacted()
	return &out, nil
}

// EstimateArrival computes distance and travel time from the ambulance's
// last known location to dest.
func (s *Service) EstimateArrival(ctx context.Context, ambulanceID string, dest geo.Point) (*ETA, error) {
	if !dest.Valid() {
		return nil, apperr.Validation("destination is out of range")
	}
	a, err := s.Get(ctx, ambulanceID)
	if err != nil {
		return nil, err
	}
	if a.Location == nil || a.Location.IsZero() {
		return nil, apperr.Validation("Ambulance location not available")
	}
	d := geo.Distance(*a.Location, dest)
	return &ETA{
		Distance:          d,
		DistanceKm:        fmt.Sprintf("%.2f", float64(d)/1000),
		ETAMinutes:        geo.ETAMinutes(d, s.speedKmh),
		AmbulanceLocation: *a.Location,
	}, nil
}

// canOperate reports whether actor is the owning hospital or crew of a.
func canOperate(actor auth.Identity, a *Ambulance) bool {
	switch actor.Role {
	case auth.RoleAdmin:
		return true
	case auth.RoleHospital:
		return actor.Owns(a.HospitalID)
	case auth.RoleAmbulance, auth.RoleEMT, auth.RoleDriver:
		return a.HasCrew(actor.Ref)
	}
	return false
}
