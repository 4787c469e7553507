package ambulance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rapidcare/rapidcare/internal/platform/apperr"
	"github.com/rapidcare/rapidcare/internal/platform/auth"
	"github.com/rapidcare/rapidcare/internal/platform/docstore"
	"github.com/rapidcare/rapidcare/internal/platform/geo"
	"github.com/rapidcare/rapidcare/internal/platform/realtime"
	"github.com/rapidcare/rapidcare/internal/platform/realtime/realtimetest"
)

var (
	hosp1 = auth.Identity{Role: auth.RoleHospital, Ref: "HOSP001"}
	hosp2 = auth.Identity{Role: auth.RoleHospital, Ref: "HOSP002"}
)

func newTestService(t *testing.T) (*Service, *realtimetest.Recorder) {
	t.Helper()
	store := docstore.NewMemory()
	rec := realtimetest.New()
	svc := NewService(NewRepository(store), NewEMTRepository(store), NewDriverRepository(store), rec)
	fixed := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	_, err := svc.Create(context.Background(), hosp1, CreateInput{
		AmbulanceID:     "AMB001",
		HospitalID:      "HOSP001",
		AmbulanceNumber: "CG04-1234",
		EMT:             &CrewMember{EMTID: "EMT01", Name: "Ravi Kumar"},
		Pilot:           &CrewMember{PilotID: "PIL01", Name: "Vikram Singh"},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return svc, rec
}

func TestService_CreateDefaults(t *testing.T) {
	svc, _ := newTestService(t)
	a, err := svc.Get(context.Background(), "AMB001")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if a.Status != StatusOffline || a.VehicleType != VehicleBLS || a.VehicleNumber != "CG04-1234" {
		t.Errorf("unexpected defaults %+v", a)
	}
	if !auth.IsHashed(a.Password) || !a.ForcePasswordChange {
		t.Error("expected hashed default password")
	}
	if a.EMTID != "EMT01" || a.DriverID != "PIL01" {
		t.Errorf("crew ids not linked: %+v", a)
	}
}

func TestService_CreateErrors(t *testing.T) {
	svc, _ := newTestService(t)
	tests := []struct {
		name  string
		actor auth.Identity
		in    CreateInput
		want  error
	}{
		{"duplicate", hosp1, CreateInput{AmbulanceID: "AMB001", HospitalID: "HOSP001", AmbulanceNumber: "X"}, apperr.ErrConflict},
		{"missing number", hosp1, CreateInput{AmbulanceID: "AMB009", HospitalID: "HOSP001"}, apperr.ErrValidation},
		{"other hospital", hosp2, CreateInput{AmbulanceID: "AMB009", HospitalID: "HOSP001", AmbulanceNumber: "X"}, apperr.ErrForbidden},
		{"bad vehicle", hosp1, CreateInput{AmbulanceID: "AMB009", HospitalID: "HOSP001", AmbulanceNumber: "X", VehicleType: "Bus"}, apperr.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), tt.actor, tt.in); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestService_FindByUsername(t *testing.T) {
	svc, _ := newTestService(t)
	for _, username := range []string{"AMB001", "EMT01", "PIL01", "pil01"} {
		a, err := svc.FindByUsername(context.Background(), username)
		if err != nil {
			t.Errorf("FindByUsername(%q): %v", username, err)
			continue
		}
		if a.AmbulanceID != "AMB001" || a.Password != "" {
			t.Errorf("FindByUsername(%q) = %+v", username, a)
		}
	}
	if _, err := svc.FindByUsername(context.Background(), "EMT99"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.FindByUsername(context.Background(), ""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestService_UpdateLocationEmitsToBothScopes(t *testing.T) {
	svc, rec := newTestService(t)
	crew := auth.Identity{Role: auth.RoleEMT, Ref: "EMT01"}
	loc := geo.Point{Lat: 21.25, Lng: 81.63}

	a, err := svc.UpdateLocation(context.Background(), crew, "AMB001", loc)
	if err != nil {
		t.Fatalf("UpdateLocation: %v", err)
	}
	if a.Location == nil || *a.Location != loc || a.LastLocationUpdate == nil {
		t.Errorf("location not stored: %+v", a)
	}

	hospEv, ok := rec.Find(realtime.EventAmbulanceLocationUpdate)
	if !ok || hospEv.Scope != "hospital_HOSP001" {
		t.Errorf("expected ambulance:location-update to hospital scope, got %+v", hospEv)
	}
	ambEv, ok := rec.Find(realtime.EventAmbulanceLocation)
	if !ok || ambEv.Scope != "ambulance_AMB001" {
		t.Errorf("expected ambulance:location to ambulance scope, got %+v", ambEv)
	}
	body := ambEv.Payload.(map[string]interface{})
	if body["lat"] != loc.Lat || body["lng"] != loc.Lng {
		t.Errorf("unexpected payload %+v", body)
	}
}

func TestService_UpdateLocationForbiddenForOtherCrew(t *testing.T) {
	svc, rec := newTestService(t)
	other := auth.Identity{Role: auth.RoleDriver, Ref: "PIL02"}
	_, err := svc.UpdateLocation(context.Background(), other, "AMB001", geo.Point{Lat: 1, Lng: 1})
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if len(rec.Emissions()) != 0 {
		t.Error("expected no emissions")
	}
}

func TestService_ReportPositionNotifiesHospital(t *testing.T) {
	svc, rec := newTestService(t)
	crew := auth.Identity{Role: auth.RoleAmbulance, Ref: "AMB001"}
	loc := geo.Point{Lat: 21.2514, Lng: 81.6296}

	a, err := svc.ReportPosition(context.Background(), crew, "AMB001", loc)
	if err != nil {
		t.Fatalf("ReportPosition: %v", err)
	}
	if a.Status != StatusInTransit || a.Location == nil || *a.Location != loc {
		t.Errorf("unexpected ambulance %+v", a)
	}

	ev, ok := rec.Find(realtime.EventAmbulanceLocation)
	if !ok || ev.Scope != "hospital_HOSP001" {
		t.Fatalf("expected ambulance:location to hospital scope, got %+v", ev)
	}
	body := ev.Payload.(map[string]interface{})
	if body["ambulanceId"] != "AMB001" || body["lat"] != loc.Lat || body["lng"] != loc.Lng {
		t.Errorf("unexpected payload %+v", body)
	}
	if len(rec.Emissions()) != 1 {
		t.Errorf("expected a single emission, got %d", len(rec.Emissions()))
	}

	stored, _ := svc.Get(context.Background(), "AMB001")
	if stored.Status != StatusInTransit || stored.LastLocationUpdate == nil {
		t.Errorf("position not stored: %+v", stored)
	}
}

func TestService_ReportPositionErrors(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()
	crew := auth.Identity{Role: auth.RoleAmbulance, Ref: "AMB001"}

	if _, err := svc.ReportPosition(ctx, auth.Identity{Role: auth.RoleDriver, Ref: "PIL02"}, "AMB001", geo.Point{Lat: 1, Lng: 1}); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.ReportPosition(ctx, crew, "AMB001", geo.Point{Lat: 95, Lng: 1}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	if _, err := svc.ReportPosition(ctx, crew, "AMB404", geo.Point{Lat: 1, Lng: 1}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if len(rec.Emissions()) != 0 {
		t.Error("expected no emissions")
	}
}

func TestService_UpdateStatus(t *testing.T) {
	svc, rec := newTestService(t)
	a, err := svc.UpdateStatus(context.Background(), auth.Identity{Role: auth.RoleAmbulance, Ref: "AMB001"}, "AMB001", StatusEnRoute)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if a.Status != StatusEnRoute {
		t.Errorf("status = %q", a.Status)
	}
	ev, ok := rec.Find(realtime.EventAmbulanceStatusUpdate)
	if !ok || ev.Scope != "hospital_HOSP001" {
		t.Fatalf("expected scoped ambulance:statusUpdate, got %+v", ev)
	}
	if p := ev.Payload.(StatusUpdate); p.AmbulanceID != "AMB001" || p.Status != StatusEnRoute {
		t.Errorf("unexpected payload %+v", p)
	}

	if _, err := svc.UpdateStatus(context.Background(), hosp1, "AMB001", "Flying"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestService_EstimateArrival(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	dest := geo.Point{Lat: 21.3414, Lng: 81.6296}

	if _, err := svc.EstimateArrival(ctx, "AMB001", dest); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected ErrValidation without a fix, got %v", err)
	}
	if _, err := svc.UpdateLocation(ctx, hosp1, "AMB001", geo.Point{Lat: 21.2514, Lng: 81.6296}); err != nil {
		t.Fatal(err)
	}

	eta, err := svc.EstimateArrival(ctx, "AMB001", dest)
	if err != nil {
		t.Fatalf("EstimateArrival: %v", err)
	}
	// 0.09 degrees of latitude is about 10 km, 15 minutes at 40 km/h.
	if eta.Distance < 9900 || eta.Distance > 10100 {
		t.Errorf("distance = %d", eta.Distance)
	}
	if eta.ETAMinutes != 15 {
		t.Errorf("etaMinutes = %d, want 15", eta.ETAMinutes)
	}
	if eta.DistanceKm != "10.01" {
		t.Errorf("distanceKm = %q", eta.DistanceKm)
	}

	svc.SetSpeed(60)
	eta, _ = svc.EstimateArrival(ctx, "AMB001", dest)
	if eta.ETAMinutes != 10 {
		t.Errorf("etaMinutes at 60 km/h = %d, want 10", eta.ETAMinutes)
	}
}

func TestService_UpdateAndDelete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	vt := VehicleALS
	a, err := svc.Update(ctx, auth.Identity{Role: auth.RoleDriver, Ref: "PIL01"}, "AMB001", UpdateInput{VehicleType: &vt})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if a.VehicleType != VehicleALS || a.Password != "" {
		t.Errorf("unexpected ambulance %+v", a)
	}
	if _, err := svc.Update(ctx, hosp2, "AMB001", UpdateInput{VehicleType: &vt}); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if err := svc.Delete(ctx, hosp2, "AMB001"); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if err := svc.Delete(ctx, hosp1, "AMB001"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, "AMB001"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
