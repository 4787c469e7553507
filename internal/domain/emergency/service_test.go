package emergency

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rapidcare/rapidcare/internal/domain/ambulance"
	"github.com/rapidcare/rapidcare/internal/domain/hospital"
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
	emt1  = auth.Identity{Role: auth.RoleEMT, Ref: "EMT01"}

	hospitalLoc  = geo.Point{Lat: 21.2514, Lng: 81.6296}
	patientLoc   = geo.Point{Lat: 21.2964, Lng: 81.6296}
	ambulanceLoc = geo.Point{Lat: 21.3414, Lng: 81.6296}
)

type fixture struct {
	svc        *Service
	rec        *realtimetest.Recorder
	ambulances ambulance.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := docstore.NewMemory()
	hospitals := hospital.NewRepository(store)
	ambulances := ambulance.NewRepository(store)

	loc := hospitalLoc
	for _, h := range []*hospital.Hospital{
		{HospitalID: "HOSP001", Name: "RapidCare General Hospital", Location: &loc},
		{HospitalID: "HOSP002", Name: "City Multispeciality Hospital"},
	} {
		if err := hospitals.Create(ctx, h); err != nil {
			t.Fatal(err)
		}
	}
	ambLoc := ambulanceLoc
	for _, a := range []*ambulance.Ambulance{
		{AmbulanceID: "AMB001", HospitalID: "HOSP001", EMTID: "EMT01", Status: ambulance.StatusOnDuty, Location: &ambLoc},
		{AmbulanceID: "AMB002", HospitalID: "HOSP002", EMTID: "EMT02", Status: ambulance.StatusOffline},
	} {
		if err := ambulances.Create(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	rec := realtimetest.New()
	svc := NewService(NewRepository(store), hospitals, ambulances, rec)
	fixed := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	return &fixture{svc: svc, rec: rec, ambulances: ambulances}
}

func (f *fixture) create(t *testing.T) *Emergency {
	t.Helper()
	loc := patientLoc
	e, err := f.svc.Create(context.Background(), CreateInput{
		HospitalID:    "HOSP001",
		Patient:       Patient{Name: "Meera", Age: 54, Location: &loc},
		EmergencyType: "Cardiac",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return e
}

func TestService_Create(t *testing.T) {
	f := newFixture(t)
	e := f.create(t)

	if !strings.HasPrefix(e.EmergencyID, "EMG-HOSP001-") {
		t.Errorf("unexpected id %q", e.EmergencyID)
	}
	if e.Status != StatusPending || e.Severity != SeverityMedium {
		t.Errorf("unexpected defaults %+v", e)
	}
	if len(e.Timeline) != 1 || e.Timeline[0].Status != StatusPending {
		t.Errorf("unexpected timeline %+v", e.Timeline)
	}

	ev, ok := f.rec.Find(realtime.EventEmergencyNew)
	if !ok || ev.Scope != "hospital_HOSP001" {
		t.Fatalf("expected emergency:new to hospital scope, got %+v", ev)
	}
	if p := ev.Payload.(NewRequest); p.EmergencyID != e.EmergencyID || p.Patient.Name != "Meera" {
		t.Errorf("unexpected payload %+v", p)
	}
}

func TestService_CreateValidation(t *testing.T) {
	f := newFixture(t)
	bad := geo.Point{Lat: 95, Lng: 0}
	tests := []struct {
		name string
		in   CreateInput
		want error
	}{
		{"missing patient", CreateInput{HospitalID: "HOSP001", EmergencyType: "Trauma"}, apperr.ErrValidation},
		{"missing type", CreateInput{HospitalID: "HOSP001", Patient: Patient{Name: "A"}}, apperr.ErrValidation},
		{"bad severity", CreateInput{HospitalID: "HOSP001", Patient: Patient{Name: "A"}, EmergencyType: "Trauma", Severity: "Urgent"}, apperr.ErrValidation},
		{"bad location", CreateInput{HospitalID: "HOSP001", Patient: Patient{Name: "A", Location: &bad}, EmergencyType: "Trauma"}, apperr.ErrValidation},
		{"unknown hospital", CreateInput{HospitalID: "HOSP404", Patient: Patient{Name: "A"}, EmergencyType: "Trauma"}, apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Create(context.Background(), tt.in); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if len(f.rec.Emissions()) != 0 {
		t.Error("rejected requests must not be broadcast")
	}
}

func TestService_DispatchAssignsAmbulance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.create(t)
	f.rec.Reset()

	got, err := f.svc.UpdateStatus(ctx, hosp1, e.EmergencyID, StatusInput{Status: StatusDispatched, AmbulanceID: "AMB001"})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if got.AssignedAmbulanceID != "AMB001" || got.DispatchedAt == nil {
		t.Errorf("dispatch not recorded: %+v", got)
	}
	if len(got.Timeline) != 2 || got.Timeline[1].Status != StatusDispatched {
		t.Errorf("unexpected timeline %+v", got.Timeline)
	}
	if got.ETA == nil || got.ETA.ToPatient != 8 || got.ETA.ToHospital != 8 || got.ETA.TotalETA != 16 {
		t.Errorf("unexpected eta %+v", got.ETA)
	}

	amb, _ := f.ambulances.Get(ctx, "AMB001")
	if amb.CurrentEmergencyID != e.EmergencyID || amb.Status != ambulance.StatusEnRoute {
		t.Errorf("ambulance not linked: %+v", amb)
	}

	if f.rec.Count(realtime.EventEmergencyUpdate) != 2 {
		t.Fatalf("expected two emergency:update emissions, got %d", f.rec.Count(realtime.EventEmergencyUpdate))
	}
	scopes := map[string]bool{}
	for _, ev := range f.rec.Emissions() {
		scopes[ev.Scope] = true
	}
	if !scopes["hospital_HOSP001"] || !scopes["ambulance_AMB001"] {
		t.Errorf("expected hospital and ambulance scopes, got %v", scopes)
	}
}

func TestService_FullLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.create(t)

	if _, err := f.svc.UpdateStatus(ctx, hosp1, e.EmergencyID, StatusInput{Status: StatusDispatched, AmbulanceID: "AMB001"}); err != nil {
		t.Fatal(err)
	}
	for _, status := range []string{StatusAtScene, StatusTransporting, StatusArrived, StatusCompleted} {
		if _, err := f.svc.UpdateStatus(ctx, emt1, e.EmergencyID, StatusInput{Status: status}); err != nil {
			t.Fatalf("%s: %v", status, err)
		}
	}

	got, _ := f.svc.Get(ctx, e.EmergencyID)
	if got.ArrivedAtPatientAt == nil || got.DepartedFromPatientAt == nil || got.ArrivedAtHospitalAt == nil || got.CompletedAt == nil {
		t.Errorf("milestones not recorded: %+v", got)
	}
	if len(got.Timeline) != 6 {
		t.Errorf("expected 6 timeline entries, got %d", len(got.Timeline))
	}
	amb, _ := f.ambulances.Get(ctx, "AMB001")
	if amb.CurrentEmergencyID != "" || amb.Status != ambulance.StatusAvailable {
		t.Errorf("ambulance not released: %+v", amb)
	}

	if _, err := f.svc.UpdateStatus(ctx, hosp1, e.EmergencyID, StatusInput{Status: StatusArrived}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected ErrValidation on closed request, got %v", err)
	}
}

func TestService_Reject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.create(t)

	if _, err := f.svc.UpdateStatus(ctx, hosp1, e.EmergencyID, StatusInput{Status: StatusRejected}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected ErrValidation without reason, got %v", err)
	}
	got, err := f.svc.UpdateStatus(ctx, hosp1, e.EmergencyID, StatusInput{
		Status:             StatusRejected,
		Reason:             "No ICU beds",
		AlternateHospitals: []string{"HOSP002"},
	})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if got.RejectionReason != "No ICU beds" || len(got.AlternateHospitals) != 1 {
		t.Errorf("rejection not recorded: %+v", got)
	}
	ev, _ := f.rec.Find(realtime.EventEmergencyUpdate)
	if p := ev.Payload.(Update); p.Reason != "No ICU beds" || p.AlternateHospitals[0] != "HOSP002" {
		t.Errorf("unexpected payload %+v", p)
	}
	if f.rec.Count(realtime.EventEmergencyUpdate) != 1 {
		t.Error("unassigned request must only notify the hospital")
	}
}

func TestService_TransitionRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.create(t)

	tests := []struct {
		name  string
		actor auth.Identity
		in    StatusInput
		want  error
	}{
		{"skip dispatch", hosp1, StatusInput{Status: StatusAtScene}, apperr.ErrValidation},
		{"dispatch without ambulance", hosp1, StatusInput{Status: StatusDispatched}, apperr.ErrValidation},
		{"unknown status", hosp1, StatusInput{Status: "Lost"}, apperr.ErrValidation},
		{"ambulance of another hospital", hosp1, StatusInput{Status: StatusDispatched, AmbulanceID: "AMB002"}, apperr.ErrValidation},
		{"unknown ambulance", hosp1, StatusInput{Status: StatusDispatched, AmbulanceID: "AMB404"}, apperr.ErrNotFound},
		{"other hospital", hosp2, StatusInput{Status: StatusDispatched, AmbulanceID: "AMB001"}, apperr.ErrForbidden},
		{"crew dispatching", emt1, StatusInput{Status: StatusDispatched, AmbulanceID: "AMB001"}, apperr.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.UpdateStatus(ctx, tt.actor, e.EmergencyID, tt.in); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if _, err := f.svc.UpdateStatus(ctx, hosp1, e.EmergencyID, StatusInput{Status: StatusDispatched, AmbulanceID: "AMB001"}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.UpdateStatus(ctx, hosp1, e.EmergencyID, StatusInput{Status: StatusRejected, Reason: "late"}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected ErrValidation rejecting a dispatched request, got %v", err)
	}
	stranger := auth.Identity{Role: auth.RoleEMT, Ref: "EMT02"}
	if _, err := f.svc.UpdateStatus(ctx, stranger, e.EmergencyID, StatusInput{Status: StatusEnRoute}); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("expected ErrForbidden for unassigned crew, got %v", err)
	}

	second := f.create(t)
	if _, err := f.svc.UpdateStatus(ctx, hosp1, second.EmergencyID, StatusInput{Status: StatusDispatched, AmbulanceID: "AMB001"}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected ErrValidation for busy ambulance, got %v", err)
	}
}

func TestService_ListByHospital(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.create(t)
	f.svc.now = func() time.Time { return time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC) }
	second := f.create(t)
	if _, err := f.svc.UpdateStatus(ctx, hosp1, first.EmergencyID, StatusInput{Status: StatusRejected, Reason: "full"}); err != nil {
		t.Fatal(err)
	}

	list, err := f.svc.ListByHospital(ctx, hosp1, "HOSP001", "")
	if err != nil {
		t.Fatalf("ListByHospital: %v", err)
	}
	if len(list) != 2 || list[0].EmergencyID != second.EmergencyID {
		t.Errorf("expected newest first, got %d items", len(list))
	}

	pending, _ := f.svc.ListByHospital(ctx, hosp1, "HOSP001", StatusPending)
	if len(pending) != 1 || pending[0].EmergencyID != second.EmergencyID {
		t.Errorf("status filter failed: %+v", pending)
	}

	if _, err := f.svc.ListByHospital(ctx, hosp2, "HOSP001", ""); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}
