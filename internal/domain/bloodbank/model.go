package bloodbank

import "time"

const CollectionName = "blood"

const (
	StatusAvailable = "Available"
	StatusUsed      = "Used"
	StatusExpired   = "Expired"
)

// BloodTypes lists every tracked type in reporting order.
var BloodTypes = []string{"O+", "O-", "A+", "A-", "B+", "B-", "AB+", "AB-"}

// Default stock thresholds in units.
const (
	DefaultLowStock      = 5
	DefaultCriticalStock = 2
)

// ExpiryWindow is how far ahead expiry warnings look.
const ExpiryWindow = 30 * 24 * time.Hour

const (
	LevelLow      = "low"
	LevelCritical = "critical"
)

func validType(t string) bool {
	for _, bt := range BloodTypes {
		if bt == t {
			return true
		}
	}
	return false
}

type DonorInfo struct {
	DonorID      string     `json:"donorId,omitempty"`
	DonorName    string     `json:"donorName,omitempty"`
	DonationDate *time.Time `json:"donationDate,omitempty"`
}

type Usage struct {
	EmergencyID string    `json:"emergencyId,omitempty"`
	PatientName string    `json:"patientName,omitempty"`
	UsedAt      time.Time `json:"usedAt"`
	UsedBy      string    `json:"usedBy,omitempty"`
}

// Unit is one stored batch of a single blood type.
type Unit struct {
	BloodBankID string     `json:"bloodBankId"`
	HospitalID  string     `json:"hospitalId"`
	BloodType   string     `json:"bloodType"`
	Quantity    int        `json:"quantity"`
	ExpiryDate  time.Time  `json:"expiryDate"`
	Status      string     `json:"status"`
	DonorInfo   *DonorInfo `json:"donorInfo,omitempty"`
	UsedFor     *Usage     `json:"usedFor,omitempty"`
	AddedBy     string     `json:"addedBy,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// usable reports whether the unit counts towards stock at now.
func (u *Unit) usable(now time.Time) bool {
	return u.Status == StatusAvailable && u.ExpiryDate.After(now)
}

type AddInput struct {
	HospitalID string     `json:"hospitalId"`
	BloodType  string     `json:"bloodType"`
	Quantity   int        `json:"quantity"`
	ExpiryDate time.Time  `json:"expiryDate"`
	DonorInfo  *DonorInfo `json:"donorInfo"`
	Notes      string     `json:"notes"`
}

type UseInput struct {
	EmergencyID string `json:"emergencyId"`
	PatientName string `json:"patientName"`
	UnitsUsed   int    `json:"unitsUsed"`
}

// Summary is available unexpired units per blood type.
type Summary struct {
	ByType     map[string]int `json:"summary"`
	TotalUnits int            `json:"totalUnits"`
}

type Alert struct {
	BloodType  string `json:"bloodType"`
	TotalUnits int    `json:"totalUnits"`
	Level      string `json:"level"`
}

// Added is the blood:added payload.
type Added struct {
	BloodType  string `json:"bloodType"`
	Quantity   int    `json:"quantity"`
	TotalUnits int    `json:"totalUnits"`
	LowStock   bool   `json:"lowStock"`
}

// Used is the blood:used payload.
type Used struct {
	BloodType      string `json:"bloodType"`
	UnitsUsed      int    `json:"unitsUsed"`
	RemainingUnits int    `json:"remainingUnits"`
	EmergencyID    string `json:"emergencyId,omitempty"`
	PatientName    string `json:"patientName,omitempty"`
}

// LowStock is the blood:low-stock payload.
type LowStock struct {
	BloodType  string `json:"bloodType"`
	TotalUnits int    `json:"totalUnits"`
	Critical   bool   `json:"critical"`
}
