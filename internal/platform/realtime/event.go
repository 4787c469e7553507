// Package realtime implements room-scoped fan-out of domain events to
// WebSocket clients. Clients join hospital or ambulance scopes; domain
// services publish events to a scope, to every connection, or to both.
// Delivery is best-effort: no acknowledgment, no retry, no durability.
package realtime

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Server-to-client event names. Existing dashboards subscribe to these
// exact strings.
const (
	EventBedUpdate       = "bed:update"
	EventBedPublicUpdate = "bed:publicUpdate"
	EventBedDischarged   = "bed:discharged"
	EventBedCleaned      = "bed:cleaned"

	EventDoctorAttendance   = "doctor:attendance"
	EventDoctorPublicUpdate = "doctor:publicUpdate"
	EventDoctorUpdate       = "doctor:update"
	EventAttendanceUpdated  = "attendance:updated"
	EventDoctorGPSCheckIn   = "doctor:gps-check-in"
	EventDoctorGPSCheckOut  = "doctor:gps-check-out"

	EventAmbulanceLocation       = "ambulance:location"
	EventAmbulanceLocationUpdate = "ambulance:location-update"
	EventAmbulanceStatusUpdate   = "ambulance:statusUpdate"

	EventEmergencyNew    = "emergency:new"
	EventEmergencyUpdate = "emergency:update"

	EventAnnouncementPosted  = "announcement:posted"
	EventAnnouncementUpdated = "announcement:updated"
	EventAnnouncementDeleted = "announcement:deleted"

	EventLeaveRequested = "leave:requested"
	EventLeaveUpdated   = "leave:updated"

	EventBloodAdded    = "blood:added"
	EventBloodUsed     = "blood:used"
	EventBloodLowStock = "blood:low-stock"

	EventHospitalUpdate       = "hospital:update"
	EventHospitalPublicUpdate = "hospital:publicUpdate"

	EventNotification  = "notification"
	EventDatabaseReset = "database:reset"
)

const (
	hospitalScopePrefix  = "hospital_"
	ambulanceScopePrefix = "ambulance_"
)

// HospitalScope returns the room name for a hospital's staff view.
func HospitalScope(hospitalID string) string {
	return hospitalScopePrefix + hospitalID
}

// AmbulanceScope returns the room name for an ambulance crew.
func AmbulanceScope(ambulanceID string) string {
	return ambulanceScopePrefix + ambulanceID
}

// IsHospitalScope reports whether scope belongs to the hospital family.
func IsHospitalScope(scope string) bool {
	return strings.HasPrefix(scope, hospitalScopePrefix)
}

// Event is one named payload on its way to clients. Events are immutable
// once built; the encoded frame is computed once and shared by every
// recipient of a broadcast.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`

	frame []byte
}

// NewEvent encodes payload and the resulting wire frame.
func NewEvent(name string, payload interface{}) (Event, error) {
	var data json.RawMessage
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("encode %s payload: %w", name, err)
		}
		data = raw
	}
	e := Event{Name: name, Data: data}
	frame, err := json.Marshal(e)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s frame: %w", name, err)
	}
	e.frame = frame
	return e, nil
}

// Frame returns the JSON text frame sent over the wire.
func (e Event) Frame() ([]byte, error) {
	if e.frame != nil {
		return e.frame, nil
	}
	return json.Marshal(e)
}
