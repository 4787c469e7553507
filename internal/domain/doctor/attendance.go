package doctor

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rapidcare/rapidcare/internal/platform/apperr"
	"github.com/rapidcare/rapidcare/internal/platform/auth"
	"github.com/rapidcare/rapidcare/internal/platform/docstore"
	"github.com/rapidcare/rapidcare/internal/platform/geo"
	"github.com/rapidcare/rapidcare/internal/platform/realtime"
)

// AvailabilityUpdate is the payload of doctor:attendance and
// doctor:publicUpdate.
type AvailabilityUpdate struct {
	DoctorID     string `json:"doctorId"`
	HospitalID   string `json:"hospitalId"`
	Availability string `json:"availability"`
	Shift        string `json:"shift"`
}

// MarkAttendance records a doctor's day. Doctors mark their own; a hospital
// marks for its doctors (markedBy Reception).
func (s *Service) MarkAttendance(ctx context.Context, actor auth.Identity, in AttendanceInput) (*Attendance, error) {
	if in.DoctorID == "" || in.Date == "" || in.Availability == "" {
		return nil, apperr.Validation("Missing required fields: doctorId, date, and availability are required")
	}
	if actor.Role == auth.RoleDoctor && !actor.Owns(in.DoctorID) {
		return nil, apperr.Forbidden("Forbidden: You can only mark your own attendance")
	}
	d, err := s.Get(ctx, in.DoctorID)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, d) {
		return nil, apperr.Forbidden("Forbidden: Cannot mark attendance for doctors from other hospitals")
	}
	markedBy := MarkedByReception
	if actor.Role == auth.RoleDoctor {
		markedBy = MarkedByDoctor
	}
	return s.record(ctx, d, in, markedBy)
}

// ManualUpdate is the reception override of a doctor's attendance.
func (s *Service) ManualUpdate(ctx context.Context, actor auth.Identity, in AttendanceInput) (*Attendance, error) {
	if in.DoctorID == "" || in.Date == "" || in.Availability == "" {
		return nil, apperr.Validation("DoctorId, date, and availability are required")
	}
	d, err := s.Get(ctx, in.DoctorID)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(d.HospitalID) {
		return nil, apperr.Forbidden("Cannot edit attendance for doctors from other hospitals")
	}
	in.Method = MethodManual
	att, err := s.record(ctx, d, in, MarkedByReception)
	if err != nil {
		return nil, err
	}
	s.events.ToScope(realtime.HospitalScope(d.HospitalID), realtime.EventAttendanceUpdated, map[string]interface{}{
		"doctorId":   d.DoctorID,
		"attendance": att,
	})
	return att, nil
}

func (s *Service) record(ctx context.Context, d *Doctor, in AttendanceInput, markedBy string) (*Attendance, error) {
	if in.Availability != Present && in.Availability != Absent {
		return nil, apperr.Validation("availability must be Present or Absent")
	}
	if in.Shift == "" {
		in.Shift = ShiftMorning
	}
	if !validShifts[in.Shift] {
		return nil, apperr.Validation("invalid shift: %s", in.Shift)
	}
	if in.Method == "" {
		in.Method = MethodManual
	}
	if !validMethods[in.Method] {
		return nil, apperr.Validation("invalid method: %s", in.Method)
	}
	day, err := parseDay(in.Date)
	if err != nil {
		return nil, err
	}

	att, err := s.attendanceFor(ctx, d, day)
	if err != nil {
		return nil, err
	}
	att.Availability = in.Availability
	att.Shift = in.Shift
	att.MarkedBy = markedBy
	att.Method = in.Method
	att.UpdatedAt = s.now()
	if err := s.attendance.Put(ctx, att); err != nil {
		return nil, err
	}

	status := NotAvailable
	if in.Availability == Present {
		status = Available
	}
	if err := s.setAvailability(ctx, d, status, ""); err != nil {
		return nil, err
	}

	s.events.Dual(realtime.HospitalScope(d.HospitalID), realtime.EventDoctorAttendance, realtime.EventDoctorPublicUpdate,
		AvailabilityUpdate{DoctorID: d.DoctorID, HospitalID: d.HospitalID, Availability: status, Shift: in.Shift})
	s.events.ToAll(realtime.EventDoctorUpdate, map[string]interface{}{
		"doctorId":     d.DoctorID,
		"availability": status,
	})
	return att, nil
}

// History returns a doctor's attendance, newest first.
func (s *Service) History(ctx context.Context, doctorID string) ([]*Attendance, error) {
	return s.attendance.ListByDoctor(ctx, doctorID)
}

// GPSCheckIn opens today's attendance from the doctor's position. Check-ins
// outside the geofence are recorded but marked unverified.
func (s *Service) GPSCheckIn(ctx context.Context, actor auth.Identity, in GPSInput) (*GPSResult, error) {
	d, hospLoc, err := s.gpsPrecheck(ctx, actor, in)
	if err != nil {
		return nil, err
	}
	if in.Shift == "" {
		in.Shift = ShiftMorning
	}
	if !validShifts[in.Shift] {
		return nil, apperr.Validation("invalid shift: %s", in.Shift)
	}

	now := s.now()
	att, err := s.attendanceFor(ctx, d, now.Format(dateLayout))
	if err != nil {
		return nil, err
	}
	if att.CheckInTime != nil {
		return nil, apperr.Validation("Already checked in today at %s", att.CheckInTime.Format("15:04:05"))
	}

	v := geo.VerifyWithinRadius(in.Location.Lat, in.Location.Lng, hospLoc.Lat, hospLoc.Lng, s.radius)
	loc := *in.Location
	dist := v.Distance
	att.HospitalID = d.HospitalID
	att.Availability = Present
	att.Shift = in.Shift
	att.MarkedBy = MarkedByDoctor
	att.Method = MethodGPS
	att.CheckInTime = &now
	att.CheckInLocation = &loc
	att.CheckInVerified = v.Verified
	att.CheckInDistance = &dist
	att.UpdatedAt = now
	if err := s.attendance.Put(ctx, att); err != nil {
		return nil, err
	}
	if err := s.setAvailability(ctx, d, Available, in.Shift); err != nil {
		return nil, err
	}

	s.events.ToScope(realtime.HospitalScope(d.HospitalID), realtime.EventDoctorGPSCheckIn, map[string]interface{}{
		"doctorId":    d.DoctorID,
		"hospitalId":  d.HospitalID,
		"doctorName":  d.Name,
		"checkInTime": now,
		"verified":    v.Verified,
		"distance":    v.Distance,
	})
	return &GPSResult{Attendance: att, Verified: v.Verified, Distance: v.Distance}, nil
}

// GPSCheckOut closes today's attendance and computes hours worked, rounded
// to two decimals.
func (s *Service) GPSCheckOut(ctx context.Context, actor auth.Identity, in GPSInput) (*GPSResult, error) {
	d, hospLoc, err := s.gpsPrecheck(ctx, actor, in)
	if err != nil {
		return nil, err
	}

	now := s.now()
	att, err := s.attendance.Get(ctx, d.DoctorID, now.Format(dateLayout))
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return nil, err
	}
	if att == nil || att.CheckInTime == nil {
		return nil, apperr.Validation("No check-in found for today. Please check in first.")
	}
	if att.CheckOutTime != nil {
		return nil, apperr.Validation("Already checked out today at %s", att.CheckOutTime.Format("15:04:05"))
	}

	v := geo.VerifyWithinRadius(in.Location.Lat, in.Location.Lng, hospLoc.Lat, hospLoc.Lng, s.radius)
	loc := *in.Location
	dist := v.Distance
	att.CheckOutTime = &now
	att.CheckOutLocation = &loc
	att.CheckOutVerified = v.Verified
	att.CheckOutDistance = &dist
	att.HoursWorked = math.Round(now.Sub(*att.CheckInTime).Hours()*100) / 100
	att.UpdatedAt = now
	if err := s.attendance.Put(ctx, att); err != nil {
		return nil, err
	}
	if err := s.setAvailability(ctx, d, NotAvailable, ""); err != nil {
		return nil, err
	}

	s.events.ToScope(realtime.HospitalScope(d.HospitalID), realtime.EventDoctorGPSCheckOut, map[string]interface{}{
		"doctorId":     d.DoctorID,
		"hospitalId":   d.HospitalID,
		"doctorName":   d.Name,
		"checkOutTime": now,
		"hoursWorked":  att.HoursWorked,
		"verified":     v.Verified,
		"distance":     v.Distance,
	})
	return &GPSResult{Attendance: att, Verified: v.Verified, Distance: v.Distance}, nil
}

func (s *Service) gpsPrecheck(ctx context.Context, actor auth.Identity, in GPSInput) (*Doctor, geo.Point, error) {
	if in.DoctorID == "" || in.Location == nil {
		return nil, geo.Point{}, apperr.Validation("doctorId and location are required")
	}
	if !in.Location.Valid() {
		return nil, geo.Point{}, apperr.Validation("location is out of range")
	}
	if !actor.Owns(in.DoctorID) {
		return nil, geo.Point{}, apperr.Forbidden("Forbidden: Can only mark your own attendance")
	}
	d, err := s.Get(ctx, in.DoctorID)
	if err != nil {
		return nil, geo.Point{}, err
	}
	h, err := s.hospitals.Get(ctx, d.HospitalID)
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return nil, geo.Point{}, err
	}
	if h == nil || !h.HasLocation() {
		return nil, geo.Point{}, apperr.Validation("Hospital location not configured. Please contact administration.")
	}
	return d, *h.Location, nil
}

// attendanceFor loads the record for day or starts a new one.
func (s *Service) attendanceFor(ctx context.Context, d *Doctor, day string) (*Attendance, error) {
	att, err := s.attendance.Get(ctx, d.DoctorID, day)
	if err == nil {
		return att, nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return nil, err
	}
	return &Attendance{DoctorID: d.DoctorID, HospitalID: d.HospitalID, Date: day, CreatedAt: s.now()}, nil
}

func (s *Service) setAvailability(ctx context.Context, d *Doctor, status, shift string) error {
	d.Availability = status
	if shift != "" {
		d.Shift = shift
	}
	d.UpdatedAt = s.now()
	return s.doctors.Update(ctx, d)
}

// parseDay accepts YYYY-MM-DD or an RFC 3339 timestamp and returns the
// calendar day.
func parseDay(v string) (string, error) {
	if t, err := time.Parse(dateLayout, v); err == nil {
		return t.Format(dateLayout), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return "", apperr.Validation("invalid date: %s", v)
	}
	return t.Format(dateLayout), nil
}
