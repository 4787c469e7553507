package reset

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/rapidcare/rapidcare/internal/domain/bed"
	"github.com/rapidcare/rapidcare/internal/domain/bloodbank"
	"github.com/rapidcare/rapidcare/internal/domain/doctor"
	"github.com/rapidcare/rapidcare/internal/domain/hospital"
	"github.com/rapidcare/rapidcare/internal/platform/auth"
	"github.com/rapidcare/rapidcare/internal/platform/docstore"
	"github.com/rapidcare/rapidcare/internal/platform/realtime"
	"github.com/rapidcare/rapidcare/internal/platform/realtime/realtimetest"
)

func newTestService(t *testing.T) (*Service, *realtimetest.Recorder, docstore.Backend) {
	t.Helper()
	store := docstore.NewMemory()
	rec := realtimetest.New()
	svc := NewService(store, rec, zerolog.Nop())
	fixed := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	return svc, rec, store
}

func TestService_SeedCounts(t *testing.T) {
	svc, rec, _ := newTestService(t)
	counts, err := svc.Seed(context.Background())
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	want := Counts{Hospitals: 3, Doctors: 4, Ambulances: 2, Beds: 39, Attendance: 2}
	if counts != want {
		t.Errorf("counts = %+v, want %+v", counts, want)
	}
	if len(rec.Emissions()) != 0 {
		t.Error("Seed must not broadcast")
	}
}

func TestService_SeedData(t *testing.T) {
	svc, _, store := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Seed(ctx); err != nil {
		t.Fatal(err)
	}

	h, err := hospital.NewRepository(store).Get(ctx, "HOSP001")
	if err != nil {
		t.Fatalf("Get hospital: %v", err)
	}
	if !h.HasLocation() || !h.ForcePasswordChange {
		t.Errorf("unexpected hospital %+v", h)
	}
	if err := auth.ComparePassword(h.Password, auth.DefaultPassword); err != nil {
		t.Errorf("default password should verify: %v", err)
	}

	beds, err := bed.NewRepository(store).ListByHospital(ctx, "HOSP002")
	if err != nil {
		t.Fatal(err)
	}
	occupied := 0
	for _, b := range beds {
		if b.Status == bed.StatusOccupied {
			occupied++
		}
	}
	// ICU bed 2 and general beds 3, 6 and 9.
	if len(beds) != 13 || occupied != 4 {
		t.Errorf("HOSP002 beds: %d total, %d occupied", len(beds), occupied)
	}
	if _, err := bed.NewRepository(store).Get(ctx, "HOSP003-W1-B10"); err != nil {
		t.Errorf("expected general bed id format: %v", err)
	}

	att, err := doctor.NewAttendanceRepository(store).Get(ctx, "DOC101", "2026-03-02")
	if err != nil {
		t.Fatalf("attendance: %v", err)
	}
	if att.Availability != doctor.Present || att.Shift != doctor.ShiftAfternoon {
		t.Errorf("unexpected attendance %+v", att)
	}
}

func TestService_ResetClearsAndBroadcasts(t *testing.T) {
	svc, rec, store := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Seed(ctx); err != nil {
		t.Fatal(err)
	}
	stray := &bloodbank.Unit{BloodBankID: "BLOOD-X", HospitalID: "HOSP001", BloodType: "O+", Quantity: 3}
	if err := bloodbank.NewRepository(store).Create(ctx, stray); err != nil {
		t.Fatal(err)
	}
	extra := &doctor.Doctor{DoctorID: "DOC999", HospitalID: "HOSP001", Name: "Temp"}
	if err := doctor.NewDoctorRepository(store).Create(ctx, extra); err != nil {
		t.Fatal(err)
	}

	counts, err := svc.Reset(ctx)
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if counts.Beds != 39 {
		t.Errorf("beds = %d", counts.Beds)
	}
	if _, err := bloodbank.NewRepository(store).Get(ctx, "BLOOD-X"); err == nil {
		t.Error("blood bank should be cleared")
	}
	if _, err := doctor.NewDoctorRepository(store).Get(ctx, "DOC999"); err == nil {
		t.Error("extra doctor should be cleared")
	}

	ev, ok := rec.Find(realtime.EventDatabaseReset)
	if !ok || ev.Scope != "" {
		t.Fatalf("expected global database:reset, got %+v", ev)
	}
	n := ev.Payload.(Notice)
	if n.Message != ResetMessage || n.Counts != counts || n.Timestamp.IsZero() {
		t.Errorf("unexpected notice %+v", n)
	}
}
