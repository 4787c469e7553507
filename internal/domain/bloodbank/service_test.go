package bloodbank

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rapidcare/rapidcare/internal/platform/apperr"
	"github.com/rapidcare/rapidcare/internal/platform/auth"
	"github.com/rapidcare/rapidcare/internal/platform/docstore"
	"github.com/rapidcare/rapidcare/internal/platform/realtime"
	"github.com/rapidcare/rapidcare/internal/platform/realtime/realtimetest"
)

var (
	hosp1 = auth.Identity{Role: auth.RoleHospital, Ref: "HOSP001"}
	hosp2 = auth.Identity{Role: auth.RoleHospital, Ref: "HOSP002"}
	today = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
)

func newTestService(t *testing.T) (*Service, *realtimetest.Recorder, Repository) {
	t.Helper()
	repo := NewRepository(docstore.NewMemory())
	rec := realtimetest.New()
	svc := NewService(repo, rec)
	svc.now = func() time.Time { return today }
	return svc, rec, repo
}

func add(t *testing.T, svc *Service, bloodType string, qty int, expiresIn time.Duration) *Unit {
	t.Helper()
	u, _, err := svc.Add(context.Background(), hosp1, AddInput{
		HospitalID: "HOSP001",
		BloodType:  bloodType,
		Quantity:   qty,
		ExpiryDate: today.Add(expiresIn),
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	return u
}

func TestService_AddEmitsStockEvents(t *testing.T) {
	svc, rec, _ := newTestService(t)

	add(t, svc, "O+", 3, 60*24*time.Hour)
	added, ok := rec.Find(realtime.EventBloodAdded)
	if !ok || added.Scope != "hospital_HOSP001" {
		t.Fatalf("expected scoped blood:added, got %+v", added)
	}
	if p := added.Payload.(Added); p.TotalUnits != 3 || !p.LowStock || p.Quantity != 3 {
		t.Errorf("unexpected payload %+v", p)
	}
	low, ok := rec.Find(realtime.EventBloodLowStock)
	if !ok {
		t.Fatal("expected blood:low-stock")
	}
	if p := low.Payload.(LowStock); p.TotalUnits != 3 || p.Critical {
		t.Errorf("unexpected low-stock payload %+v", p)
	}

	rec.Reset()
	_, total, err := svc.Add(context.Background(), hosp1, AddInput{HospitalID: "HOSP001", BloodType: "O+", Quantity: 4, ExpiryDate: today.AddDate(0, 2, 0)})
	if err != nil {
		t.Fatal(err)
	}
	if total != 7 {
		t.Errorf("total = %d, want 7", total)
	}
	if rec.Count(realtime.EventBloodLowStock) != 0 {
		t.Error("no low-stock alert expected at 7 units")
	}
}

func TestService_AddValidation(t *testing.T) {
	svc, rec, _ := newTestService(t)
	future := today.AddDate(0, 1, 0)
	tests := []struct {
		name  string
		actor auth.Identity
		in    AddInput
		want  error
	}{
		{"bad type", hosp1, AddInput{HospitalID: "HOSP001", BloodType: "C+", Quantity: 1, ExpiryDate: future}, apperr.ErrValidation},
		{"zero quantity", hosp1, AddInput{HospitalID: "HOSP001", BloodType: "A+", ExpiryDate: future}, apperr.ErrValidation},
		{"already expired", hosp1, AddInput{HospitalID: "HOSP001", BloodType: "A+", Quantity: 1, ExpiryDate: today}, apperr.ErrValidation},
		{"other hospital", hosp2, AddInput{HospitalID: "HOSP001", BloodType: "A+", Quantity: 1, ExpiryDate: future}, apperr.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := svc.Add(context.Background(), tt.actor, tt.in); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if len(rec.Emissions()) != 0 {
		t.Error("failed adds must not emit")
	}
}

func TestService_SummaryIgnoresExpiredAndUsed(t *testing.T) {
	svc, _, repo := newTestService(t)
	ctx := context.Background()
	add(t, svc, "A+", 6, 40*24*time.Hour)
	add(t, svc, "B-", 2, 10*24*time.Hour)
	used := add(t, svc, "A+", 1, 40*24*time.Hour)
	if _, _, err := svc.Use(ctx, hosp1, used.BloodBankID, UseInput{}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Create(ctx, &Unit{BloodBankID: "OLD", HospitalID: "HOSP001", BloodType: "A+", Quantity: 9, Status: StatusAvailable, ExpiryDate: today.Add(-time.Hour)}); err != nil {
		t.Fatal(err)
	}

	sum, err := svc.Summary(ctx, "HOSP001")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.ByType["A+"] != 6 || sum.ByType["B-"] != 2 || sum.ByType["AB+"] != 0 {
		t.Errorf("unexpected summary %+v", sum.ByType)
	}
	if len(sum.ByType) != len(BloodTypes) || sum.TotalUnits != 8 {
		t.Errorf("unexpected totals %+v", sum)
	}
}

func TestService_Use(t *testing.T) {
	svc, rec, _ := newTestService(t)
	ctx := context.Background()
	u := add(t, svc, "AB-", 4, 20*24*time.Hour)
	rec.Reset()

	got, remaining, err := svc.Use(ctx, hosp1, u.BloodBankID, UseInput{EmergencyID: "EMG-1", PatientName: "Meera", UnitsUsed: 3})
	if err != nil {
		t.Fatalf("Use: %v", err)
	}
	if got.Quantity != 1 || got.Status != StatusAvailable || remaining != 1 {
		t.Errorf("unexpected partial use %+v remaining=%d", got, remaining)
	}
	if got.UsedFor == nil || got.UsedFor.UsedBy != "HOSP001" || got.UsedFor.EmergencyID != "EMG-1" {
		t.Errorf("usage not recorded: %+v", got.UsedFor)
	}
	ev, _ := rec.Find(realtime.EventBloodUsed)
	if p := ev.Payload.(Used); p.UnitsUsed != 3 || p.RemainingUnits != 1 || p.PatientName != "Meera" {
		t.Errorf("unexpected payload %+v", p)
	}
	low, _ := rec.Find(realtime.EventBloodLowStock)
	if p := low.Payload.(LowStock); !p.Critical {
		t.Errorf("expected critical alert, got %+v", p)
	}

	if _, _, err := svc.Use(ctx, hosp1, u.BloodBankID, UseInput{UnitsUsed: 2}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected ErrValidation overdrawing, got %v", err)
	}
	got, _, err = svc.Use(ctx, hosp1, u.BloodBankID, UseInput{})
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusUsed || got.Quantity != 0 {
		t.Errorf("expected batch used up, got %+v", got)
	}
	if _, _, err := svc.Use(ctx, hosp1, u.BloodBankID, UseInput{}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected ErrValidation on used batch, got %v", err)
	}
	if _, _, err := svc.Use(ctx, hosp2, u.BloodBankID, UseInput{}); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if _, _, err := svc.Use(ctx, hosp1, "BLOOD-missing", UseInput{}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestService_AlertsUseThresholds(t *testing.T) {
	svc, _, _ := newTestService(t)
	add(t, svc, "O-", 1, 50*24*time.Hour)
	add(t, svc, "A-", 3, 50*24*time.Hour)
	for _, bt := range []string{"O+", "A+", "B+", "B-", "AB+", "AB-"} {
		add(t, svc, bt, 5, 50*24*time.Hour)
	}

	alerts, err := svc.Alerts(context.Background(), "HOSP001")
	if err != nil {
		t.Fatalf("Alerts: %v", err)
	}
	want := map[string]string{"O-": LevelCritical, "A-": LevelLow}
	if len(alerts) != len(want) {
		t.Fatalf("expected %d alerts, got %+v", len(want), alerts)
	}
	for _, a := range alerts {
		if want[a.BloodType] != a.Level {
			t.Errorf("%s: level %q, want %q", a.BloodType, a.Level, want[a.BloodType])
		}
	}

	svc.SetThresholds(4, 3)
	alerts, _ = svc.Alerts(context.Background(), "HOSP001")
	for _, a := range alerts {
		if a.BloodType == "A-" && a.Level != LevelLow {
			t.Errorf("A- at 3 units should be low with critical=3, got %q", a.Level)
		}
	}
}

func TestService_ExpiringAndHistory(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	late := add(t, svc, "B+", 2, 20*24*time.Hour)
	soon := add(t, svc, "B+", 2, 5*24*time.Hour)
	add(t, svc, "B+", 2, 90*24*time.Hour)

	expiring, err := svc.Expiring(ctx, "HOSP001")
	if err != nil {
		t.Fatalf("Expiring: %v", err)
	}
	if len(expiring) != 2 || expiring[0].BloodBankID != soon.BloodBankID || expiring[1].BloodBankID != late.BloodBankID {
		t.Errorf("unexpected expiring order %+v", expiring)
	}

	if _, _, err := svc.Use(ctx, hosp1, late.BloodBankID, UseInput{}); err != nil {
		t.Fatal(err)
	}
	svc.now = func() time.Time { return today.Add(time.Hour) }
	if _, _, err := svc.Use(ctx, hosp1, soon.BloodBankID, UseInput{}); err != nil {
		t.Fatal(err)
	}

	history, err := svc.History(ctx, "HOSP001", 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 || history[0].BloodBankID != soon.BloodBankID {
		t.Errorf("expected most recent first, got %+v", history)
	}
	history, _ = svc.History(ctx, "HOSP001", 1)
	if len(history) != 1 {
		t.Errorf("limit not applied: %d", len(history))
	}
}
