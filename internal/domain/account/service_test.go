package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/rapidcare/rapidcare/internal/domain/ambulance"
	"github.com/rapidcare/rapidcare/internal/domain/doctor"
	"github.com/rapidcare/rapidcare/internal/domain/hospital"
	"github.com/rapidcare/rapidcare/internal/platform/apperr"
	"github.com/rapidcare/rapidcare/internal/platform/auth"
	"github.com/rapidcare/rapidcare/internal/platform/docstore"
)

var testJWT = auth.JWTConfig{Issuer: "rapidcare-test", SigningKey: []byte("account-test-signing-key")}

type fixture struct {
	svc   *Service
	repos Repositories
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := docstore.NewMemory()
	repos := Repositories{
		Hospitals:  hospital.NewRepository(store),
		Doctors:    doctor.NewDoctorRepository(store),
		Ambulances: ambulance.NewRepository(store),
		EMTs:       ambulance.NewEMTRepository(store),
		Drivers:    ambulance.NewDriverRepository(store),
	}
	hash, err := auth.HashPassword(auth.DefaultPassword)
	if err != nil {
		t.Fatal(err)
	}

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(repos.Hospitals.Create(ctx, &hospital.Hospital{HospitalID: "HOSP001", Name: "RapidCare General Hospital", Password: hash, ForcePasswordChange: true}))
	must(repos.Doctors.Create(ctx, &doctor.Doctor{DoctorID: "DOC100", HospitalID: "HOSP001", Name: "Dr. A Sharma", Password: hash}))
	must(repos.Ambulances.Create(ctx, &ambulance.Ambulance{
		AmbulanceID: "AMB001", HospitalID: "HOSP001", AmbulanceNumber: "CG04-1234",
		EMTID: "EMT01", EMT: &ambulance.CrewMember{EMTID: "EMT01"},
		DriverID: "PIL01", Pilot: &ambulance.CrewMember{PilotID: "PIL01"},
		Password: hash, ForcePasswordChange: true,
	}))
	must(repos.EMTs.Create(ctx, &ambulance.EMT{EMTID: "EMT05", HospitalID: "HOSP001", Name: "Asha", IsActive: true, Password: hash}))
	must(repos.Drivers.Create(ctx, &ambulance.Driver{DriverID: "PIL09", HospitalID: "HOSP001", Name: "Gone", IsActive: false, Password: hash}))

	svc := NewService(repos, auth.NewIssuer(testJWT, time.Hour), zerolog.Nop())
	return &fixture{svc: svc, repos: repos}
}

func TestService_LoginRoles(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		role, id, ref string
		force         bool
	}{
		{auth.RoleHospital, "HOSP001", "HOSP001", true},
		{auth.RoleDoctor, "DOC100", "DOC100", false},
		{auth.RoleAmbulance, "AMB001", "AMB001", true},
		{auth.RoleEMT, "EMT05", "EMT05", false},
		{auth.RoleEMT, "EMT01", "EMT01", true},
		{auth.RoleDriver, "PIL01", "PIL01", true},
	}
	for _, tt := range tests {
		t.Run(tt.role+"/"+tt.id, func(t *testing.T) {
			sess, err := f.svc.Login(context.Background(), LoginInput{Role: tt.role, ID: tt.id, Password: auth.DefaultPassword})
			if err != nil {
				t.Fatalf("Login: %v", err)
			}
			if sess.Ref != tt.ref || sess.Role != tt.role || sess.ForcePasswordChange != tt.force || sess.Token == "" {
				t.Errorf("unexpected session %+v", sess)
			}
			if sess.HospitalID != "HOSP001" {
				t.Errorf("hospitalId = %q", sess.HospitalID)
			}
		})
	}
}

func TestService_LoginRecordsAmbulanceLastLogin(t *testing.T) {
	f := newFixture(t)
	fixed := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return fixed }

	if _, err := f.svc.Login(context.Background(), LoginInput{Role: auth.RoleDriver, ID: "PIL01", Password: auth.DefaultPassword}); err != nil {
		t.Fatal(err)
	}
	a, _ := f.repos.Ambulances.Get(context.Background(), "AMB001")
	if a.LastLogin == nil || !a.LastLogin.Equal(fixed) {
		t.Errorf("lastLogin = %v", a.LastLogin)
	}
}

func TestService_LoginRejects(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		in   LoginInput
		want error
	}{
		{"wrong password", LoginInput{Role: auth.RoleHospital, ID: "HOSP001", Password: "nope"}, apperr.ErrUnauthorized},
		{"unknown id", LoginInput{Role: auth.RoleDoctor, ID: "DOC999", Password: auth.DefaultPassword}, apperr.ErrUnauthorized},
		{"inactive driver", LoginInput{Role: auth.RoleDriver, ID: "PIL09", Password: auth.DefaultPassword}, apperr.ErrUnauthorized},
		{"vehicle id as emt", LoginInput{Role: auth.RoleEMT, ID: "AMB001", Password: auth.DefaultPassword}, apperr.ErrUnauthorized},
		{"admin role", LoginInput{Role: auth.RoleAdmin, ID: "root", Password: "x"}, apperr.ErrValidation},
		{"missing password", LoginInput{Role: auth.RoleDoctor, ID: "DOC100"}, apperr.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Login(context.Background(), tt.in); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestService_ChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := auth.Identity{Role: auth.RoleHospital, Ref: "HOSP001"}

	err := f.svc.ChangePassword(ctx, actor, ChangePasswordInput{CurrentPassword: "wrong", NewPassword: "n3w-password"})
	if !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	err = f.svc.ChangePassword(ctx, actor, ChangePasswordInput{CurrentPassword: auth.DefaultPassword, NewPassword: "short"})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if err := f.svc.ChangePassword(ctx, actor, ChangePasswordInput{CurrentPassword: auth.DefaultPassword, NewPassword: "n3w-password"}); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	h, _ := f.repos.Hospitals.Get(ctx, "HOSP001")
	if h.ForcePasswordChange {
		t.Error("forcePasswordChange should be cleared")
	}
	if _, err := f.svc.Login(ctx, LoginInput{Role: auth.RoleHospital, ID: "HOSP001", Password: auth.DefaultPassword}); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("old password should stop working, got %v", err)
	}
	sess, err := f.svc.Login(ctx, LoginInput{Role: auth.RoleHospital, ID: "HOSP001", Password: "n3w-password"})
	if err != nil || sess.ForcePasswordChange {
		t.Errorf("new password login: %+v, %v", sess, err)
	}
}

func TestService_ChangePasswordCrewFallbackUpdatesAmbulance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := auth.Identity{Role: auth.RoleEMT, Ref: "EMT01"}
	if err := f.svc.ChangePassword(ctx, actor, ChangePasswordInput{CurrentPassword: auth.DefaultPassword, NewPassword: "crew-secret-1"}); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := f.svc.Login(ctx, LoginInput{Role: auth.RoleAmbulance, ID: "AMB001", Password: "crew-secret-1"}); err != nil {
		t.Errorf("shared ambulance password should change: %v", err)
	}
	if err := f.svc.ChangePassword(ctx, auth.Identity{Role: auth.RoleAdmin, Ref: "ops"}, ChangePasswordInput{NewPassword: "whatever-123"}); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("expected ErrForbidden for admin, got %v", err)
	}
}
