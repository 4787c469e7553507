package emergency

import (
	"time"

	"github.com/rapidcare/rapidcare/internal/platform/geo"
)

const CollectionName = "emergencies"

const (
	StatusPending      = "Pending"
	StatusDispatched   = "Dispatched"
	StatusEnRoute      = "En Route"
	StatusAtScene      = "At Scene"
	StatusTransporting = "Transporting"
	StatusArrived      = "Arrived"
	StatusCompleted    = "Completed"
	StatusRejected     = "Rejected"
)

const (
	SeverityLow      = "Low"
	SeverityMedium   = "Medium"
	SeverityHigh     = "High"
	SeverityCritical = "Critical"
)

// progression is the forward order of an accepted request. Rejected is only
// reachable from Pending.
var progression = []string{
	StatusPending, StatusDispatched, StatusEnRoute, StatusAtScene,
	StatusTransporting, StatusArrived, StatusCompleted,
}

var validSeverities = map[string]bool{
	SeverityLow: true, SeverityMedium: true, SeverityHigh: true, SeverityCritical: true,
}

type Patient struct {
	Name     string     `json:"name"`
	Age      int        `json:"age,omitempty"`
	Gender   string     `json:"gender,omitempty"`
	Mobile   string     `json:"mobile,omitempty"`
	Address  string     `json:"address,omitempty"`
	Location *geo.Point `json:"location,omitempty"`
}

// ETA holds travel estimates in minutes.
type ETA struct {
	ToPatient   int       `json:"toPatient"`
	ToHospital  int       `json:"toHospital"`
	TotalETA    int       `json:"totalETA"`
	LastUpdated time.Time `json:"lastUpdated"`
}

type TimelineEntry struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Notes     string    `json:"notes,omitempty"`
}

type Emergency struct {
	EmergencyID           string          `json:"emergencyId"`
	HospitalID            string          `json:"hospitalId"`
	Patient               Patient         `json:"patient"`
	EmergencyType         string          `json:"emergencyType"`
	Severity              string          `json:"severity"`
	Description           string          `json:"description,omitempty"`
	Status                string          `json:"status"`
	AssignedAmbulanceID   string          `json:"assignedAmbulanceId,omitempty"`
	ETA                   *ETA            `json:"eta,omitempty"`
	Timeline              []TimelineEntry `json:"timeline"`
	DispatchedAt          *time.Time      `json:"dispatchedAt,omitempty"`
	ArrivedAtPatientAt    *time.Time      `json:"arrivedAtPatientAt,omitempty"`
	DepartedFromPatientAt *time.Time      `json:"departedFromPatientAt,omitempty"`
	ArrivedAtHospitalAt   *time.Time      `json:"arrivedAtHospitalAt,omitempty"`
	CompletedAt           *time.Time      `json:"completedAt,omitempty"`
	RejectionReason       string          `json:"rejectionReason,omitempty"`
	AlternateHospitals    []string        `json:"alternateHospitals,omitempty"`
	CreatedAt             time.Time       `json:"createdAt"`
	UpdatedAt             time.Time       `json:"updatedAt"`
}

// Closed reports whether the request accepts no further transitions.
func (e *Emergency) Closed() bool {
	return e.Status == StatusCompleted || e.Status == StatusRejected
}

type CreateInput struct {
	HospitalID    string  `json:"hospitalId"`
	Patient       Patient `json:"patient"`
	EmergencyType string  `json:"emergencyType"`
	Severity      string  `json:"severity"`
	Description   string  `json:"description"`
}

type StatusInput struct {
	Status             string   `json:"status"`
	AmbulanceID        string   `json:"ambulanceId"`
	Notes              string   `json:"notes"`
	Reason             string   `json:"reason"`
	AlternateHospitals []string `json:"alternateHospitals"`
}

// NewRequest is the emergency:new payload.
type NewRequest struct {
	EmergencyID   string    `json:"emergencyId"`
	HospitalID    string    `json:"hospitalId"`
	Patient       Patient   `json:"patient"`
	EmergencyType string    `json:"emergencyType"`
	Severity      string    `json:"severity"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Update is the emergency:update payload.
type Update struct {
	EmergencyID         string    `json:"emergencyId"`
	HospitalID          string    `json:"hospitalId"`
	Status              string    `json:"status"`
	AssignedAmbulanceID string    `json:"assignedAmbulanceId,omitempty"`
	Reason              string    `json:"reason,omitempty"`
	AlternateHospitals  []string  `json:"alternateHospitals,omitempty"`
	ETA                 *ETA      `json:"eta,omitempty"`
	Timestamp           time.Time `json:"timestamp"`
}
