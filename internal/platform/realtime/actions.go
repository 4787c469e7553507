package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

type actionFunc func(m *Manager, c *Client, payload json.RawMessage) error

// relay describes how a client-originated event is re-emitted: scoped goes
// to the payload's hospital room, global to every connection.
type relay struct {
	scoped string
	global string
	// globalIfUnscoped sends to everyone when the payload names no hospital.
	globalIfUnscoped bool
	transform        func(body map[string]interface{}) map[string]interface{}
}

var actions = map[string]actionFunc{
	"joinHospitalRoom":   joinAction(HospitalScope),
	"joinAmbulanceRoom":  joinAction(AmbulanceScope),
	"leaveHospitalRoom":  leaveAction(HospitalScope),
	"leaveAmbulanceRoom": leaveAction(AmbulanceScope),
}

var relays = map[string]relay{
	"ambulanceLocation":    {scoped: EventAmbulanceLocation},
	"bedStatusUpdate":      {scoped: EventBedUpdate, global: EventBedPublicUpdate},
	"doctorAttendance":     {scoped: EventDoctorAttendance, global: EventDoctorPublicUpdate},
	"emergencyUpdate":      {scoped: EventEmergencyUpdate},
	"newEmergency":         {scoped: EventEmergencyNew},
	"databaseReset":        {global: EventDatabaseReset},
	"doctor:gps-check-in":  {scoped: EventDoctorGPSCheckIn},
	"doctor:gps-check-out": {scoped: EventDoctorGPSCheckOut},
	"bed:discharged":       {scoped: EventBedDischarged},
	"bed:cleaned":          {scoped: EventBedCleaned, global: EventBedPublicUpdate},
	"blood:added":          {scoped: EventBloodAdded},
	"blood:used":           {scoped: EventBloodUsed},
	"blood:low-stock":      {scoped: EventBloodLowStock},
	"announcement:posted":  {global: EventAnnouncementPosted},
	"announcement:updated": {global: EventAnnouncementUpdated},
	"announcement:deleted": {global: EventAnnouncementDeleted},
	"leave:requested":      {scoped: EventLeaveRequested},
	"leave:updated":        {global: EventLeaveUpdated},
	"hospitalInfoUpdate":   {scoped: EventHospitalUpdate, global: EventHospitalPublicUpdate},
	"notification":         {scoped: EventNotification, global: EventNotification, globalIfUnscoped: true},
	"ambulance:heartbeat": {
		scoped:    EventAmbulanceStatusUpdate,
		transform: ambulanceStatus("On Duty", false),
	},
	"ambulance:statusChange": {
		scoped:    EventAmbulanceStatusUpdate,
		transform: ambulanceStatus("", false),
	},
	"ambulance:disconnect": {
		scoped:    EventAmbulanceStatusUpdate,
		transform: ambulanceStatus("Offline", true),
	},
}

func init() {
	for name, r := range relays {
		actions[name] = relayAction(r)
	}
}

func joinAction(scopeFor func(string) string) actionFunc {
	return func(m *Manager, c *Client, payload json.RawMessage) error {
		id, err := decodeID(payload)
		if err != nil {
			return err
		}
		m.Join(c, scopeFor(id))
		return nil
	}
}

func leaveAction(scopeFor func(string) string) actionFunc {
	return func(m *Manager, c *Client, payload json.RawMessage) error {
		id, err := decodeID(payload)
		if err != nil {
			return err
		}
		m.Leave(c, scopeFor(id))
		return nil
	}
}

func relayAction(r relay) actionFunc {
	return func(m *Manager, _ *Client, payload json.RawMessage) error {
		body := map[string]interface{}{}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &body); err != nil {
				return fmt.Errorf("decode payload: %w", err)
			}
		}
		hospitalID := stringField(body, "hospitalId")
		if r.transform != nil {
			body = r.transform(body)
		}

		switch {
		case r.globalIfUnscoped:
			if hospitalID != "" {
				m.publisher.ToScope(HospitalScope(hospitalID), r.scoped, body)
			} else {
				m.publisher.ToAll(r.global, body)
			}
		default:
			if r.scoped != "" {
				if hospitalID != "" {
					m.publisher.ToScope(HospitalScope(hospitalID), r.scoped, body)
				} else {
					m.logger.Debug().Str("event", r.scoped).Msg("relay without hospitalId, scoped leg dropped")
				}
			}
			if r.global != "" {
				m.publisher.ToAll(r.global, body)
			}
		}
		return nil
	}
}

// ambulanceStatus reshapes crew status messages into the statusUpdate body.
// def is used when the client sent no status; force overrides it and clears
// the location.
func ambulanceStatus(def string, force bool) func(map[string]interface{}) map[string]interface{} {
	return func(in map[string]interface{}) map[string]interface{} {
		status := stringField(in, "status")
		if status == "" || force {
			status = def
		}
		var location interface{}
		if !force {
			location = in["location"]
		}
		return map[string]interface{}{
			"ambulanceId": in["ambulanceId"],
			"status":      status,
			"location":    location,
			"lastSeen":    time.Now().UTC(),
		}
	}
}

// decodeID accepts a bare JSON string or {"id": "..."}; some clients send
// numeric ids.
func decodeID(payload json.RawMessage) (string, error) {
	var raw interface{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return "", fmt.Errorf("decode id: %w", err)
	}
	if obj, ok := raw.(map[string]interface{}); ok {
		raw = obj["id"]
	}
	id := strings.TrimSpace(scalarString(raw))
	if id == "" {
		return "", errors.New("empty id")
	}
	return id, nil
}

func stringField(body map[string]interface{}, key string) string {
	return scalarString(body[key])
}

func scalarString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%v", t)
	default:
		return ""
	}
}
