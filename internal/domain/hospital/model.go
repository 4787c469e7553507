package hospital

import (
	"time"

	"github.com/rapidcare/rapidcare/internal/platform/geo"
)

// CollectionName is the document collection hospitals are stored in.
const CollectionName = "hospitals"

type Address struct {
	State    string `json:"state,omitempty"`
	District string `json:"district,omitempty"`
	City     string `json:"city,omitempty"`
	Street   string `json:"street,omitempty"`
}

// Hospital is a facility in the network. Location is the reference point for
// GPS attendance; a hospital without one cannot verify check-ins.
type Hospital struct {
	HospitalID          string     `json:"hospitalId"`
	Name                string     `json:"name"`
	Contact             string     `json:"contact,omitempty"`
	Address             Address    `json:"address"`
	Location            *geo.Point `json:"location,omitempty"`
	Services            []string   `json:"services,omitempty"`
	Facilities          []string   `json:"facilities,omitempty"`
	Insurance           []string   `json:"insurance,omitempty"`
	Treatment           []string   `json:"treatment,omitempty"`
	Surgery             []string   `json:"surgery,omitempty"`
	Therapy             []string   `json:"therapy,omitempty"`
	Password            string     `json:"password,omitempty"`
	ForcePasswordChange bool       `json:"forcePasswordChange"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// Redacted returns a copy safe to serialise to clients.
func (h Hospital) Redacted() Hospital {
	h.Password = ""
	return h
}

// HasLocation reports whether a geofence reference point is configured.
func (h *Hospital) HasLocation() bool {
	return h.Location != nil && !h.Location.IsZero()
}

// UpdateInput carries the editable profile fields. Nil fields are left
// unchanged.
type UpdateInput struct {
	Name       *string    `json:"name"`
	Contact    *string    `json:"contact"`
	Address    *Address   `json:"address"`
	Location   *geo.Point `json:"location"`
	Services   []string   `json:"services"`
	Facilities []string   `json:"facilities"`
	Insurance  []string   `json:"insurance"`
	Treatment  []string   `json:"treatment"`
	Surgery    []string   `json:"surgery"`
	Therapy    []string   `json:"therapy"`
}
