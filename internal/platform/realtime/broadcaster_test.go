package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu     sync.Mutex
	events []Event
	fail   error
}

func (s *recordingSender) Send(e Event) error {
	if s.fail != nil {
		return s.fail
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSender) received() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func newTestBroadcaster() *Broadcaster {
	return NewBroadcaster(NewRegistry(), zerolog.Nop())
}

func attach(b *Broadcaster, id string, scopes ...string) *recordingSender {
	s := &recordingSender{}
	b.Attach(id, s)
	for _, scope := range scopes {
		b.Registry().Join(id, scope)
	}
	return s
}

func decodeData(t *testing.T, e Event) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(e.Data, &body))
	return body
}

func TestBroadcaster_EmptyScopeIsNoop(t *testing.T) {
	b := newTestBroadcaster()
	outsider := attach(b, "c1")

	assert.Equal(t, 0, b.ToScope("hospital_empty", EventBedUpdate, map[string]string{"bedId": "B1"}))
	assert.Empty(t, outsider.received())
}

func TestBroadcaster_ToScopeReachesEveryMemberOnce(t *testing.T) {
	b := newTestBroadcaster()
	const n = 5
	members := make([]*recordingSender, n)
	for i := range members {
		members[i] = attach(b, fmt.Sprintf("m%d", i), "hospital_H1")
	}
	outsider := attach(b, "x", "hospital_H2")

	payload := map[string]interface{}{"bedId": "B7", "hospitalId": "H1", "status": "Occupied"}
	delivered := b.ToScope("hospital_H1", EventBedUpdate, payload)

	assert.Equal(t, n, delivered)
	for i, m := range members {
		got := m.received()
		require.Len(t, got, 1, "member %d", i)
		assert.Equal(t, EventBedUpdate, got[0].Name)
		assert.Equal(t, map[string]interface{}{"bedId": "B7", "hospitalId": "H1", "status": "Occupied"}, decodeData(t, got[0]))
	}
	assert.Empty(t, outsider.received())
}

func TestBroadcaster_FailingRecipientIsIsolated(t *testing.T) {
	b := newTestBroadcaster()
	ok1 := attach(b, "ok1", "hospital_H1")
	broken := &recordingSender{fail: errors.New("closed")}
	b.Attach("broken", broken)
	b.Registry().Join("broken", "hospital_H1")
	ok2 := attach(b, "ok2", "hospital_H1")

	delivered := b.ToScope("hospital_H1", EventBloodLowStock, map[string]interface{}{"bloodType": "O-"})

	assert.Equal(t, 2, delivered)
	assert.Len(t, ok1.received(), 1)
	assert.Len(t, ok2.received(), 1)
}

func TestBroadcaster_DetachedMemberIsSkipped(t *testing.T) {
	b := newTestBroadcaster()
	attach(b, "gone", "hospital_H1")
	b.Detach("gone")

	assert.Equal(t, 0, b.ToScope("hospital_H1", EventBedUpdate, nil))
}

func TestBroadcaster_ToAll(t *testing.T) {
	b := newTestBroadcaster()
	a := attach(b, "a", "hospital_H1")
	c := attach(b, "c")

	assert.Equal(t, 2, b.ToAll(EventAnnouncementPosted, map[string]string{"content": "Blood drive"}))
	assert.Len(t, a.received(), 1)
	assert.Len(t, c.received(), 1)
	assert.Equal(t, 2, b.ConnectionCount())
}

func TestBroadcaster_HospitalScopesAreIsolated(t *testing.T) {
	b := newTestBroadcaster()
	a := attach(b, "staffA", HospitalScope("A"))
	bb := attach(b, "staffB", HospitalScope("B"))

	b.ToScope(HospitalScope("A"), EventAmbulanceLocation, map[string]interface{}{"ambulanceId": "AMB1", "lat": 28.6, "lng": 77.2})

	require.Len(t, a.received(), 1)
	assert.Equal(t, EventAmbulanceLocation, a.received()[0].Name)
	assert.Empty(t, bb.received())
}

func TestBroadcaster_DualEmit(t *testing.T) {
	b := newTestBroadcaster()
	staff := attach(b, "staff", HospitalScope("H1"))
	public := attach(b, "public")

	b.Dual(HospitalScope("H1"), EventBedUpdate, EventBedPublicUpdate, map[string]string{"bedId": "B1", "status": "Vacant"})

	names := func(events []Event) []string {
		out := make([]string, len(events))
		for i, e := range events {
			out[i] = e.Name
		}
		return out
	}
	assert.Equal(t, []string{EventBedUpdate, EventBedPublicUpdate}, names(staff.received()))
	assert.Equal(t, []string{EventBedPublicUpdate}, names(public.received()))
}

func TestBroadcaster_UnencodablePayloadDropped(t *testing.T) {
	b := newTestBroadcaster()
	s := attach(b, "c", "hospital_H1")

	assert.Equal(t, 0, b.ToScope("hospital_H1", EventBedUpdate, make(chan int)))
	assert.Empty(t, s.received())
}

func TestEvent_Frame(t *testing.T) {
	e, err := NewEvent(EventBedUpdate, map[string]string{"bedId": "B1"})
	require.NoError(t, err)

	frame, err := e.Frame()
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"bed:update","data":{"bedId":"B1"}}`, string(frame))

	empty, err := NewEvent(EventDatabaseReset, nil)
	require.NoError(t, err)
	frame, err = empty.Frame()
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"database:reset"}`, string(frame))
}

func TestScopeNames(t *testing.T) {
	assert.Equal(t, "hospital_H1", HospitalScope("H1"))
	assert.Equal(t, "ambulance_AMB001", AmbulanceScope("AMB001"))
	assert.True(t, IsHospitalScope("hospital_H1"))
	assert.False(t, IsHospitalScope("ambulance_AMB001"))
}
