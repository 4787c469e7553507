package bed

import "time"

const CollectionName = "beds"

const (
	StatusVacant   = "Vacant"
	StatusOccupied = "Occupied"
	StatusReserved = "Reserved"
	StatusCleaning = "Cleaning"
)

const (
	TypeICU     = "ICU"
	TypeGeneral = "General"
	TypeOther   = "Other"
)

// DefaultCleaningMinutes is the expected turnaround after a discharge.
const DefaultCleaningMinutes = 30

var validStatuses = map[string]bool{
	StatusVacant: true, StatusOccupied: true, StatusReserved: true, StatusCleaning: true,
}

var validTypes = map[string]bool{
	TypeICU: true, TypeGeneral: true, TypeOther: true,
}

type Discharge struct {
	DischargedAt *time.Time `json:"dischargedAt,omitempty"`
	DischargedBy string     `json:"dischargedBy,omitempty"`
	Reason       string     `json:"reason,omitempty"`
	Notes        string     `json:"notes,omitempty"`
}

type Cleaning struct {
	StartedAt        *time.Time `json:"startedAt,omitempty"`
	StartedBy        string     `json:"startedBy,omitempty"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
	CompletedBy      string     `json:"completedBy,omitempty"`
	ExpectedDuration int        `json:"expectedDuration"`
}

type Bed struct {
	BedID       string     `json:"bedId"`
	HospitalID  string     `json:"hospitalId"`
	BedNumber   string     `json:"bedNumber"`
	WardNumber  string     `json:"wardNumber"`
	BedType     string     `json:"bedType"`
	Status      string     `json:"status"`
	OccupiedBy  string     `json:"occupiedBy"`
	OccupiedAt  *time.Time `json:"occupiedAt,omitempty"`
	Discharge   *Discharge `json:"discharge,omitempty"`
	Cleaning    *Cleaning  `json:"cleaning,omitempty"`
	LastUpdated time.Time  `json:"lastUpdated"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Update is the staff-facing bed:update payload.
type Update struct {
	BedID       string    `json:"bedId"`
	HospitalID  string    `json:"hospitalId"`
	BedNumber   string    `json:"bedNumber"`
	WardNumber  string    `json:"wardNumber"`
	BedType     string    `json:"bedType"`
	Status      string    `json:"status"`
	OccupiedBy  string    `json:"occupiedBy"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// PublicUpdate is broadcast to every connection and carries no patient data.
type PublicUpdate struct {
	BedID      string `json:"bedId"`
	HospitalID string `json:"hospitalId"`
	Status     string `json:"status"`
	BedType    string `json:"bedType"`
}

func (b *Bed) update() Update {
	return Update{
		BedID:       b.BedID,
		HospitalID:  b.HospitalID,
		BedNumber:   b.BedNumber,
		WardNumber:  b.WardNumber,
		BedType:     b.BedType,
		Status:      b.Status,
		OccupiedBy:  b.OccupiedBy,
		LastUpdated: b.LastUpdated,
	}
}

func (b *Bed) public() PublicUpdate {
	return PublicUpdate{BedID: b.BedID, HospitalID: b.HospitalID, Status: b.Status, BedType: b.BedType}
}

type CreateInput struct {
	BedID      string `json:"bedId"`
	HospitalID string `json:"hospitalId"`
	BedNumber  string `json:"bedNumber"`
	WardNumber string `json:"wardNumber"`
	BedType    string `json:"bedType"`
}

type StatusInput struct {
	Status     string `json:"status"`
	OccupiedBy string `json:"occupiedBy"`
}

type DischargeInput struct {
	Reason string `json:"reason"`
	Notes  string `json:"notes"`
}
