// Package realtimetest provides a recording Publisher for service tests.
package realtimetest

import (
	"sync"
)

// Emission is one recorded publish. Scope is empty for global emits.
type Emission struct {
	Scope   string
	Event   string
	Payload interface{}
}

// Recorder records every publish in call order.
type Recorder struct {
	mu        sync.Mutex
	emissions []Emission
}

// New returns an empty Recorder.
func New() *Recorder {
	return &Recorder{}
}

func (r *Recorder) ToScope(scope, event string, payload interface{}) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emissions = append(r.emissions, Emission{Scope: scope, Event: event, Payload: payload})
	return 1
}

func (r *Recorder) ToAll(event string, payload interface{}) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emissions = append(r.emissions, Emission{Event: event, Payload: payload})
	return 1
}

func (r *Recorder) Dual(scope, scopedEvent, globalEvent string, payload interface{}) {
	r.ToScope(scope, scopedEvent, payload)
	r.ToAll(globalEvent, payload)
}

// Emissions returns a copy of everything recorded so far.
func (r *Recorder) Emissions() []Emission {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Emission, len(r.emissions))
	copy(out, r.emissions)
	return out
}

// Find returns the first emission named event.
func (r *Recorder) Find(event string) (Emission, bool) {
	for _, e := range r.Emissions() {
		if e.Event == event {
			return e, true
		}
	}
	return Emission{}, false
}

// Count returns how many emissions are named event.
func (r *Recorder) Count(event string) int {
	n := 0
	for _, e := range r.Emissions() {
		if e.Event == event {
			n++
		}
	}
	return n
}

// Reset discards recorded emissions.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.emissions = nil
	r.mu.Unlock()
}
