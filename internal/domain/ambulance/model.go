package ambulance

import (
	"strings"
	"time"

	"github.com/rapidcare/rapidcare/internal/platform/geo"
)

const (
	CollectionName       = "ambulances"
	EMTCollectionName    = "emts"
	DriverCollectionName = "drivers"
)

const (
	StatusAvailable    = "Available"
	StatusOnDuty       = "On Duty"
	StatusEnRoute      = "En Route"
	StatusAtScene      = "At Scene"
	StatusTransporting = "Transporting"
	StatusInTransit    = "In Transit"
	StatusOffline      = "Offline"
)

const (
	VehicleBLS = "BLS"
	VehicleALS = "ALS"
	VehicleICU = "ICU"
)

const (
	QualificationBasic     = "Basic EMT"
	QualificationAdvanced  = "Advanced EMT"
	QualificationParamedic = "Paramedic"
)

// DefaultLicenseType is assigned to drivers registered without one.
const DefaultLicenseType = "Commercial"

var (
	validStatuses = map[string]bool{
		StatusAvailable: true, StatusOnDuty: true, StatusEnRoute: true,
		StatusAtScene: true, StatusTransporting: true, StatusInTransit: true,
		StatusOffline: true,
	}
	validVehicleTypes = map[string]bool{
		VehicleBLS: true, VehicleALS: true, VehicleICU: true,
	}
	validQualifications = map[string]bool{
		QualificationBasic: true, QualificationAdvanced: true, QualificationParamedic: true,
	}
)

// CrewMember is the denormalised EMT or pilot shown on the ambulance.
type CrewMember struct {
	EMTID   string `json:"emtId,omitempty"`
	PilotID string `json:"pilotId,omitempty"`
	Name    string `json:"name,omitempty"`
	Mobile  string `json:"mobile,omitempty"`
}

type Ambulance struct {
	AmbulanceID         string      `json:"ambulanceId"`
	HospitalID          string      `json:"hospitalId"`
	AmbulanceNumber     string      `json:"ambulanceNumber,omitempty"`
	VehicleNumber       string      `json:"vehicleNumber"`
	VehicleType         string      `json:"vehicleType"`
	EMTID               string      `json:"emtId,omitempty"`
	EMT                 *CrewMember `json:"emt,omitempty"`
	DriverID            string      `json:"driverId,omitempty"`
	Pilot               *CrewMember `json:"pilot,omitempty"`
	Status              string      `json:"status"`
	Location            *geo.Point  `json:"location,omitempty"`
	LastLocationUpdate  *time.Time  `json:"lastLocationUpdate,omitempty"`
	CurrentEmergencyID  string      `json:"currentEmergencyId,omitempty"`
	Equipment           []string    `json:"equipment,omitempty"`
	LastLogin           *time.Time  `json:"lastLogin,omitempty"`
	Password            string      `json:"password,omitempty"`
	ForcePasswordChange bool        `json:"forcePasswordChange"`
	CreatedAt           time.Time   `json:"createdAt"`
	UpdatedAt           time.Time   `json:"updatedAt"`
}

// Redacted returns a copy safe to serialise to clients.
func (a Ambulance) Redacted() Ambulance {
	a.Password = ""
	return a
}

// HasCrew reports whether ref is the ambulance itself or one of its crew.
func (a *Ambulance) HasCrew(ref string) bool {
	if ref == "" {
		return false
	}
	ids := []string{a.AmbulanceID, a.EMTID, a.DriverID}
	if a.EMT != nil {
		ids = append(ids, a.EMT.EMTID)
	}
	if a.Pilot != nil {
		ids = append(ids, a.Pilot.PilotID)
	}
	for _, id := range ids {
		if id != "" && strings.EqualFold(id, ref) {
			return true
		}
	}
	return false
}

type EMT struct {
	EMTID               string     `json:"emtId"`
	HospitalID          string     `json:"hospitalId"`
	AmbulanceID         string     `json:"ambulanceId,omitempty"`
	Name                string     `json:"name"`
	Qualification       string     `json:"qualification"`
	Mobile              string     `json:"mobile"`
	LicenseNumber       string     `json:"licenseNumber"`
	LicenseExpiryDate   *time.Time `json:"licenseExpiryDate,omitempty"`
	PhotoURL            string     `json:"photoUrl,omitempty"`
	IsActive            bool       `json:"isActive"`
	Password            string     `json:"password,omitempty"`
	ForcePasswordChange bool       `json:"forcePasswordChange"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

func (e EMT) Redacted() EMT {
	e.Password = ""
	return e
}

type Driver struct {
	DriverID            string     `json:"driverId"`
	HospitalID          string     `json:"hospitalId"`
	AmbulanceID         string     `json:"ambulanceId,omitempty"`
	Name                string     `json:"name"`
	Mobile              string     `json:"mobile"`
	LicenseNumber       string     `json:"licenseNumber"`
	LicenseType         string     `json:"licenseType"`
	LicenseExpiryDate   *time.Time `json:"licenseExpiryDate,omitempty"`
	PhotoURL            string     `json:"photoUrl,omitempty"`
	IsActive            bool       `json:"isActive"`
	Password            string     `json:"password,omitempty"`
	ForcePasswordChange bool       `json:"forcePasswordChange"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

func (d Driver) Redacted() Driver {
	d.Password = ""
	return d
}

type CreateInput struct {
	AmbulanceID     string      `json:"ambulanceId"`
	HospitalID      string      `json:"hospitalId"`
	AmbulanceNumber string      `json:"ambulanceNumber"`
	VehicleNumber   string      `json:"vehicleNumber"`
	VehicleType     string      `json:"vehicleType"`
	EMT             *CrewMember `json:"emt"`
	Pilot           *CrewMember `json:"pilot"`
	Equipment       []string    `json:"equipment"`
}

// UpdateInput holds editable fields; nil leaves a field unchanged.
type UpdateInput struct {
	AmbulanceNumber    *string     `json:"ambulanceNumber"`
	VehicleNumber      *string     `json:"vehicleNumber"`
	VehicleType        *string     `json:"vehicleType"`
	Status             *string     `json:"status"`
	EMT                *CrewMember `json:"emt"`
	Pilot              *CrewMember `json:"pilot"`
	CurrentEmergencyID *string     `json:"currentEmergencyId"`
	Equipment          []string    `json:"equipment"`
}

// StatusUpdate is the ambulance:statusUpdate payload.
type StatusUpdate struct {
	AmbulanceID string     `json:"ambulanceId"`
	Status      string     `json:"status"`
	Location    *geo.Point `json:"location"`
	LastSeen    time.Time  `json:"lastSeen"`
}

// ETA is a straight-line travel estimate from the ambulance's last fix.
type ETA struct {
	Distance          int       `json:"distance"`
	DistanceKm        string    `json:"distanceKm"`
	ETAMinutes        int       `json:"etaMinutes"`
	AmbulanceLocation geo.Point `json:"ambulanceLocation"`
}

type EMTInput struct {
	EMTID             string `json:"emtId"`
	HospitalID        string `json:"hospitalId"`
	AmbulanceID       string `json:"ambulanceId"`
	Name              string `json:"name"`
	Qualification     string `json:"qualification"`
	Mobile            string `json:"mobile"`
	LicenseNumber     string `json:"licenseNumber"`
	LicenseExpiryDate string `json:"licenseExpiryDate"`
}

type DriverInput struct {
	DriverID          string `json:"driverId"`
	HospitalID        string `json:"hospitalId"`
	AmbulanceID       string `json:"ambulanceId"`
	Name              string `json:"name"`
	Mobile            string `json:"mobile"`
	LicenseNumber     string `json:"licenseNumber"`
	LicenseType       string `json:"licenseType"`
	LicenseExpiryDate string `json:"licenseExpiryDate"`
}
