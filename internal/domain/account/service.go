// Package account authenticates staff and ambulance crews and manages their
// passwords. Credentials live on the hospital, doctor, ambulance, EMT and
// driver records themselves.
package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rapidcare/rapidcare/internal/domain/ambulance"
	"github.com/rapidcare/rapidcare/internal/domain/doctor"
	"github.com/rapidcare/rapidcare/internal/domain/hospital"
	"github.com/rapidcare/rapidcare/internal/platform/apperr"
	"github.com/rapidcare/rapidcare/internal/platform/auth"
	"github.com/rapidcare/rapidcare/internal/platform/docstore"
)

// MinPasswordLength is the shortest password accepted on change.
const MinPasswordLength = 8

type LoginInput struct {
	Role     string `json:"role"`
	ID       string `json:"id"`
	Password string `json:"password"`
}

type Session struct {
	Token               string `json:"token"`
	Role                string `json:"role"`
	Ref                 string `json:"ref"`
	Name                string `json:"name,omitempty"`
	HospitalID          string `json:"hospitalId,omitempty"`
	ForcePasswordChange bool   `json:"forcePasswordChange"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Repositories holds the stores that carry credentials.
type Repositories struct {
	Hospitals  hospital.Repository
	Doctors    doctor.DoctorRepository
	Ambulances ambulance.Repository
	EMTs       ambulance.EMTRepository
	Drivers    ambulance.DriverRepository
}

type Service struct {
	repos  Repositories
	issuer *auth.Issuer
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repos Repositories, issuer *auth.Issuer, logger zerolog.Logger) *Service {
	return &Service{repos: repos, issuer: issuer, logger: logger, now: time.Now}
}

// credential is the password-bearing view of one login record.
type credential struct {
	ref        string
	name       string
	hospitalID string
	hash       string
	force      bool
	// save stores a new hash and force flag.
	save func(ctx context.Context, hash string, force bool) error
	// touch records a successful login; nil when the record does not track it.
	touch func(ctx context.Context, at time.Time) error
}

// Login verifies a password and issues a bearer token.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	in.ID = strings.TrimSpace(in.ID)
	if in.Role == "" || in.ID == "" || in.Password == "" {
		return nil, apperr.Validation("role, id and password are required")
	}
	cred, err := s.lookup(ctx, in.Role, in.ID)
	if errors.Is(err, apperr.ErrNotFound) {
		s.logger.Info().Str("role", in.Role).Str("id", in.ID).Msg("login for unknown account")
		return nil, apperr.Unauthorized("Invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if err := auth.ComparePassword(cred.hash, in.Password); err != nil {
		s.logger.Info().Str("role", in.Role).Str("id", in.ID).Msg("login with wrong password")
		return nil, apperr.Unauthorized("Invalid credentials")
	}

	if cred.touch != nil {
		if err := cred.touch(ctx, s.now()); err != nil {
			return nil, err
		}
	}
	token, err := s.issuer.Issue(auth.Identity{Role: in.Role, Ref: cred.ref})
	if err != nil {
		return nil, err
	}
	return &Session{
		Token:               token,
		Role:                in.Role,
		Ref:                 cred.ref,
		Name:                cred.name,
		HospitalID:          cred.hospitalID,
		ForcePasswordChange: cred.force,
	}, nil
}

// ChangePassword replaces the caller's password and clears the forced-change
// flag.
func (s *Service) ChangePassword(ctx context.Context, actor auth.Identity, in ChangePasswordInput) error {
	if actor.Role == "" || actor.Ref == "" || actor.IsAdmin() {
		return apperr.Forbidden("password change requires a staff or crew login")
	}
	if len(in.NewPassword) < MinPasswordLength {
		return apperr.Validation("new password must be at least %d characters", MinPasswordLength)
	}
	if in.NewPassword == in.CurrentPassword {
		return apperr.Validation("new password must differ from the current one")
	}
	cred, err := s.lookup(ctx, actor.Role, actor.Ref)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(cred.hash, in.CurrentPassword); err != nil {
		return apperr.Unauthorized("Current password is incorrect")
	}
	hash, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		return err
	}
	return cred.save(ctx, hash, false)
}

func (s *Service) lookup(ctx context.Context, role, id string) (*credential, error) {
	switch role {
	case auth.RoleHospital:
		return s.hospitalCredential(ctx, id)
	case auth.RoleDoctor:
		return s.doctorCredential(ctx, id)
	case auth.RoleAmbulance:
		a, err := s.repos.Ambulances.Get(ctx, id)
		if err != nil {
			return nil, notFound(err)
		}
		return s.ambulanceCredential(a, a.AmbulanceID), nil
	case auth.RoleEMT:
		return s.emtCredential(ctx, id)
	case auth.RoleDriver:
		return s.driverCredential(ctx, id)
	}
	return nil, apperr.Validation("invalid role: %s", role)
}

func (s *Service) hospitalCredential(ctx context.Context, id string) (*credential, error) {
	h, err := s.repos.Hospitals.Get(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return &credential{
		ref: h.HospitalID, name: h.Name, hospitalID: h.HospitalID,
		hash: h.Password, force: h.ForcePasswordChange,
		save: func(ctx context.Context, hash string, force bool) error {
			h.Password, h.ForcePasswordChange, h.UpdatedAt = hash, force, s.now()
			return s.repos.Hospitals.Update(ctx, h)
		},
	}, nil
}

func (s *Service) doctorCredential(ctx context.Context, id string) (*credential, error) {
	d, err := s.repos.Doctors.Get(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return &credential{
		ref: d.DoctorID, name: d.Name, hospitalID: d.HospitalID,
		hash: d.Password, force: d.ForcePasswordChange,
		save: func(ctx context.Context, hash string, force bool) error {
			d.Password, d.ForcePasswordChange, d.UpdatedAt = hash, force, s.now()
			return s.repos.Doctors.Update(ctx, d)
		},
	}, nil
}

// ambulanceCredential uses the vehicle's shared password. ref is the id the
// caller logged in with.
func (s *Service) ambulanceCredential(a *ambulance.Ambulance, ref string) *credential {
	return &credential{
		ref: ref, name: a.AmbulanceNumber, hospitalID: a.HospitalID,
		hash: a.Password, force: a.ForcePasswordChange,
		save: func(ctx context.Context, hash string, force bool) error {
			a.Password, a.ForcePasswordChange, a.UpdatedAt = hash, force, s.now()
			return s.repos.Ambulances.Update(ctx, a)
		},
		touch: func(ctx context.Context, at time.Time) error {
			a.LastLogin = &at
			return s.repos.Ambulances.Update(ctx, a)
		},
	}
}

// emtCredential prefers the EMT's own record and falls back to the password
// of the ambulance they crew.
func (s *Service) emtCredential(ctx context.Context, id string) (*credential, error) {
	e, err := s.repos.EMTs.Get(ctx, id)
	if err == nil {
		if !e.IsActive {
			return nil, apperr.NotFound("account not found")
		}
		return &credential{
			ref: e.EMTID, name: e.Name, hospitalID: e.HospitalID,
			hash: e.Password, force: e.ForcePasswordChange,
			save: func(ctx context.Context, hash string, force bool) error {
				e.Password, e.ForcePasswordChange, e.UpdatedAt = hash, force, s.now()
				return s.repos.EMTs.Update(ctx, e)
			},
		}, nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return nil, err
	}
	return s.crewFallback(ctx, id)
}

func (s *Service) driverCredential(ctx context.Context, id string) (*credential, error) {
	d, err := s.repos.Drivers.Get(ctx, id)
	if err == nil {
		if !d.IsActive {
			return nil, apperr.NotFound("account not found")
		}
		return &credential{
			ref: d.DriverID, name: d.Name, hospitalID: d.HospitalID,
			hash: d.Password, force: d.ForcePasswordChange,
			save: func(ctx context.Context, hash string, force bool) error {
				d.Password, d.ForcePasswordChange, d.UpdatedAt = hash, force, s.now()
				return s.repos.Drivers.Update(ctx, d)
			},
		}, nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return nil, err
	}
	return s.crewFallback(ctx, id)
}

func (s *Service) crewFallback(ctx context.Context, id string) (*credential, error) {
	a, err := s.repos.Ambulances.FindByCrew(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	// The vehicle id itself is not a crew login.
	if strings.EqualFold(a.AmbulanceID, id) {
		return nil, apperr.NotFound("account not found")
	}
	return s.ambulanceCredential(a, id), nil
}

func notFound(err error) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return apperr.NotFound("account not found")
	}
	return err
}
