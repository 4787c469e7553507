package ambulance

import (
	"context"
	"errors"
	"time"

	"github.com/rapidcare/rapidcare/internal/platform/apperr"
	"github.com/rapidcare/rapidcare/internal/platform/auth"
	"github.com/rapidcare/rapidcare/internal/platform/docstore"
)

// RegisterEMT adds an EMT to a hospital's roster and, when an ambulance is
// named, assigns them to it.
func (s *Service) RegisterEMT(ctx context.Context, actor auth.Identity, in EMTInput) (*EMT, error) {
	if in.EMTID == "" || in.HospitalID == "" || in.Name == "" || in.Mobile == "" || in.LicenseNumber == "" {
		return nil, apperr.Validation("emtId, hospitalId, name, mobile and licenseNumber are required")
	}
	if !actor.Owns(in.HospitalID) {
		return nil, apperr.Forbidden("Forbidden")
	}
	if !validQualifications[in.Qualification] {
		return nil, apperr.Validation("invalid qualification: %s", in.Qualification)
	}
	expiry, err := optionalDate(in.LicenseExpiryDate)
	if err != nil {
		return nil, err
	}
	amb, err := s.crewAmbulance(ctx, in.HospitalID, in.AmbulanceID)
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(auth.DefaultPassword)
	if err != nil {
		return nil, err
	}

	now := s.now()
	e := &EMT{
		EMTID:               in.EMTID,
		HospitalID:          in.HospitalID,
		AmbulanceID:         in.AmbulanceID,
		Name:                in.Name,
		Qualification:       in.Qualification,
		Mobile:              in.Mobile,
		LicenseNumber:       in.LicenseNumber,
		LicenseExpiryDate:   expiry,
		IsActive:            true,
		Password:            hash,
		ForcePasswordChange: true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.emts.Create(ctx, e); err != nil {
		if errors.Is(err, docstore.ErrDuplicateKey) {
			return nil, apperr.Conflict("EMT ID already exists")
		}
		return nil, err
	}

	if amb != nil {
		amb.EMTID = e.EMTID
		amb.EMT = &CrewMember{EMTID: e.EMTID, Name: e.Name, Mobile: e.Mobile}
		amb.UpdatedAt = now
		if err := s.ambulances.Update(ctx, amb); err != nil {
			return nil, err
		}
	}
	out := e.Redacted()
	return &out, nil
}

// RegisterDriver adds a driver (pilot) and optionally assigns them.
func (s *Service) RegisterDriver(ctx context.Context, actor auth.Identity, in DriverInput) (*Driver, error) {
	if in.DriverID == "" || in.HospitalID == "" || in.Name == "" || in.Mobile == "" || in.LicenseNumber == "" {
		return nil, apperr.Validation("driverId, hospitalId, name, mobile and licenseNumber are required")
	}
	if !actor.Owns(in.HospitalID) {
		return nil, apperr.Forbidden("Forbidden")
	}
	if in.LicenseExpiryDate == "" {
		return nil, apperr.Validation("licenseExpiryDate is required")
	}
	expiry, err := optionalDate(in.LicenseExpiryDate)
	if err != nil {
		return nil, err
	}
	if in.LicenseType == "" {
		in.LicenseType = DefaultLicenseType
	}
	amb, err := s.crewAmbulance(ctx, in.HospitalID, in.AmbulanceID)
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(auth.DefaultPassword)
	if err != nil {
		return nil, err
	}

	now := s.now()
	d := &Driver{
		DriverID:            in.DriverID,
		HospitalID:          in.HospitalID,
		AmbulanceID:         in.AmbulanceID,
		Name:                in.Name,
		Mobile:              in.Mobile,
		LicenseNumber:       in.LicenseNumber,
		LicenseType:         in.LicenseType,
		LicenseExpiryDate:   expiry,
		IsActive:            true,
		Password:            hash,
		ForcePasswordChange: true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.drivers.Create(ctx, d); err != nil {
		if errors.Is(err, docstore.ErrDuplicateKey) {
			return nil, apperr.Conflict("Driver ID already exists")
		}
		return nil, err
	}

	if amb != nil {
		amb.DriverID = d.DriverID
		amb.Pilot = &CrewMember{PilotID: d.DriverID, Name: d.Name, Mobile: d.Mobile}
		amb.UpdatedAt = now
		if err := s.ambulances.Update(ctx, amb); err != nil {
			return nil, err
		}
	}
	out := d.Redacted()
	return &out, nil
}

func (s *Service) ListEMTs(ctx context.Context, hospitalID string) ([]EMT, error) {
	list, err := s.emts.ListByHospital(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	out := make([]EMT, 0, len(list))
	for _, e := range list {
		out = append(out, e.Redacted())
	}
	return out, nil
}

func (s *Service) ListDrivers(ctx context.Context, hospitalID string) ([]Driver, error) {
	list, err := s.drivers.ListByHospital(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	out := make([]Driver, 0, len(list))
	for _, d := range list {
		out = append(out, d.Redacted())
	}
	return out, nil
}

// crewAmbulance loads the ambulance a new crew member is assigned to. An
// empty id means no assignment.
func (s *Service) crewAmbulance(ctx context.Context, hospitalID, ambulanceID string) (*Ambulance, error) {
	if ambulanceID == "" {
		return nil, nil
	}
	a, err := s.Get(ctx, ambulanceID)
	if err != nil {
		return nil, err
	}
	if a.HospitalID != hospitalID {
		return nil, apperr.Validation("ambulance %s belongs to another hospital", ambulanceID)
	}
	return a, nil
}

func optionalDate(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, apperr.Validation("invalid date: %s", v)
}
