package doctor

import (
	"time"

	"github.com/rapidcare/rapidcare/internal/platform/geo"
)

const (
	CollectionName           = "doctors"
	AttendanceCollectionName = "attendance"
	LeaveCollectionName      = "leaves"
)

// Doctor availability as shown on dashboards.
const (
	Available    = "Available"
	NotAvailable = "Not Available"
)

const (
	Present = "Present"
	Absent  = "Absent"
)

const (
	ShiftMorning   = "Morning"
	ShiftAfternoon = "Afternoon"
	ShiftEvening   = "Evening"
	ShiftNight     = "Night"
)

const (
	MarkedByDoctor    = "Doctor"
	MarkedByReception = "Reception"
)

const (
	MethodManual = "Manual"
	MethodQR     = "QR"
	MethodGPS    = "GPS"
)

const (
	LeaveSick      = "Sick"
	LeaveCasual    = "Casual"
	LeaveEmergency = "Emergency"
	LeaveVacation  = "Vacation"
)

const (
	LeavePending  = "Pending"
	LeaveApproved = "Approved"
	LeaveRejected = "Rejected"
)

const dateLayout = "2006-01-02"

var (
	validShifts = map[string]bool{
		ShiftMorning: true, ShiftAfternoon: true, ShiftEvening: true, ShiftNight: true,
	}
	validMethods = map[string]bool{
		MethodManual: true, MethodQR: true, MethodGPS: true,
	}
	validLeaveTypes = map[string]bool{
		LeaveSick: true, LeaveCasual: true, LeaveEmergency: true, LeaveVacation: true,
	}
)

type Doctor struct {
	DoctorID            string    `json:"doctorId"`
	HospitalID          string    `json:"hospitalId"`
	Name                string    `json:"name"`
	Qualification       string    `json:"qualification,omitempty"`
	Speciality          string    `json:"speciality,omitempty"`
	Experience          string    `json:"experience,omitempty"`
	Mobile              string    `json:"mobile,omitempty"`
	PhotoURL            string    `json:"photoUrl"`
	Availability        string    `json:"availability"`
	Shift               string    `json:"shift"`
	Password            string    `json:"password,omitempty"`
	ForcePasswordChange bool      `json:"forcePasswordChange"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// Redacted returns a copy safe to serialise to clients.
func (d Doctor) Redacted() Doctor {
	d.Password = ""
	return d
}

// Attendance is one doctor-day. The document key is AttendanceKey.
type Attendance struct {
	DoctorID         string     `json:"doctorId"`
	HospitalID       string     `json:"hospitalId"`
	Date             string     `json:"date"`
	Availability     string     `json:"availability"`
	Shift            string     `json:"shift"`
	MarkedBy         string     `json:"markedBy"`
	Method           string     `json:"method,omitempty"`
	CheckInTime      *time.Time `json:"checkInTime,omitempty"`
	CheckInLocation  *geo.Point `json:"checkInLocation,omitempty"`
	CheckInVerified  bool       `json:"checkInVerified"`
	CheckInDistance  *int       `json:"checkInDistance,omitempty"`
	CheckOutTime     *time.Time `json:"checkOutTime,omitempty"`
	CheckOutLocation *geo.Point `json:"checkOutLocation,omitempty"`
	CheckOutVerified bool       `json:"checkOutVerified"`
	CheckOutDistance *int       `json:"checkOutDistance,omitempty"`
	HoursWorked      float64    `json:"hoursWorked"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// AttendanceKey identifies the attendance record of doctorID on day
// (YYYY-MM-DD).
func AttendanceKey(doctorID, day string) string {
	return doctorID + ":" + day
}

type Leave struct {
	LeaveID         string     `json:"leaveId"`
	DoctorID        string     `json:"doctorId"`
	HospitalID      string     `json:"hospitalId"`
	DoctorName      string     `json:"doctorName,omitempty"`
	StartDate       time.Time  `json:"startDate"`
	EndDate         time.Time  `json:"endDate"`
	LeaveType       string     `json:"leaveType"`
	Reason          string     `json:"reason"`
	Status          string     `json:"status"`
	ApprovedBy      string     `json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time `json:"approvedAt,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
	Remarks         string     `json:"remarks,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

type CreateInput struct {
	DoctorID      string `json:"doctorId"`
	HospitalID    string `json:"hospitalId"`
	Name          string `json:"name"`
	Qualification string `json:"qualification"`
	Speciality    string `json:"speciality"`
	Experience    string `json:"experience"`
	Mobile        string `json:"mobile"`
	Shift         string `json:"shift"`
}

// UpdateInput holds the editable profile fields; nil leaves a field as is.
type UpdateInput struct {
	Name          *string `json:"name"`
	Qualification *string `json:"qualification"`
	Speciality    *string `json:"speciality"`
	Experience    *string `json:"experience"`
	Mobile        *string `json:"mobile"`
	PhotoURL      *string `json:"photoUrl"`
	Shift         *string `json:"shift"`
}

type AttendanceInput struct {
	DoctorID     string `json:"doctorId"`
	Date         string `json:"date"`
	Availability string `json:"availability"`
	Shift        string `json:"shift"`
	Method       string `json:"method"`
}

type GPSInput struct {
	DoctorID string     `json:"doctorId"`
	Location *geo.Point `json:"location"`
	Shift    string     `json:"shift"`
}

// GPSResult is the outcome of a check-in or check-out.
type GPSResult struct {
	Attendance *Attendance `json:"attendance"`
	Verified   bool        `json:"verified"`
	Distance   int         `json:"distance"`
}

type LeaveInput struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	LeaveType string `json:"leaveType"`
	Reason    string `json:"reason"`
}

type LeaveDecision struct {
	Status          string `json:"status"`
	RejectionReason string `json:"rejectionReason"`
	Remarks         string `json:"remarks"`
}
