package announcement

import "time"

const CollectionName = "announcements"

// MaxContentLength is the longest accepted announcement body in characters.
const MaxContentLength = 500

// Lifetime is how long an announcement stays visible.
const Lifetime = 24 * time.Hour

// ListLimit caps the announcements returned for a hospital.
const ListLimit = 10

const (
	TypeCapacity  = "Capacity"
	TypeBlood     = "Blood"
	TypeDoctor    = "Doctor"
	TypeService   = "Service"
	TypeEmergency = "Emergency"
	TypeGeneral   = "General"
)

const (
	PriorityLow      = "Low"
	PriorityMedium   = "Medium"
	PriorityHigh     = "High"
	PriorityCritical = "Critical"
)

var (
	validTypes = map[string]bool{
		TypeCapacity: true, TypeBlood: true, TypeDoctor: true,
		TypeService: true, TypeEmergency: true, TypeGeneral: true,
	}
	validPriorities = map[string]bool{
		PriorityLow: true, PriorityMedium: true, PriorityHigh: true, PriorityCritical: true,
	}
)

type Announcement struct {
	AnnouncementID string    `json:"announcementId"`
	HospitalID     string    `json:"hospitalId"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	Type           string    `json:"type"`
	Priority       string    `json:"priority"`
	CreatedBy      string    `json:"createdBy"`
	ExpiresAt      time.Time `json:"expiresAt"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Visible reports whether the announcement is shown at now.
func (a *Announcement) Visible(now time.Time) bool {
	return a.IsActive && a.ExpiresAt.After(now)
}

type CreateInput struct {
	HospitalID string `json:"hospitalId"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Type       string `json:"type"`
	Priority   string `json:"priority"`
}

// UpdateInput holds editable fields; empty values leave a field unchanged.
type UpdateInput struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Type     string `json:"type"`
	Priority string `json:"priority"`
}

// Notice is the announcement:posted and announcement:updated payload.
type Notice struct {
	HospitalID     string `json:"hospitalId"`
	AnnouncementID string `json:"announcementId"`
	Title          string `json:"title"`
	Content        string `json:"content"`
	Type           string `json:"type"`
	Priority       string `json:"priority"`
}

// Removed is the announcement:deleted payload.
type Removed struct {
	HospitalID     string `json:"hospitalId"`
	AnnouncementID string `json:"announcementId"`
}
