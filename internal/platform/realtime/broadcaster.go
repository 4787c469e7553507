package realtime

import (
	"sync"

	"github.com/rs/zerolog"
)

// Sender is the one capability the Broadcaster needs from a connection.
// Send must not block on network I/O; a slow or closed recipient reports an
// error instead.
type Sender interface {
	Send(event Event) error
}

// Publisher is what domain services depend on to announce mutations.
// Implementations never return delivery failures to the caller.
type Publisher interface {
	// ToScope delivers to every connection joined to scope and returns the
	// number of successful deliveries.
	ToScope(scope, event string, payload interface{}) int
	// ToAll delivers to every connected connection.
	ToAll(event string, payload interface{}) int
	// Dual emits a staff-facing event to scope and a public event to every
	// connection. The two emits are independent.
	Dual(scope, scopedEvent, globalEvent string, payload interface{})
}

// Broadcaster fans events out to the connections tracked by a Registry.
type Broadcaster struct {
	registry *Registry
	logger   zerolog.Logger

	mu    sync.RWMutex
	conns map[string]Sender
}

// NewBroadcaster creates a Broadcaster reading memberships from registry.
func NewBroadcaster(registry *Registry, logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		registry: registry,
		logger:   logger.With().Str("component", "broadcaster").Logger(),
		conns:    make(map[string]Sender),
	}
}

// Registry returns the membership registry the broadcaster reads from.
func (b *Broadcaster) Registry() *Registry {
	return b.registry
}

// Attach makes id reachable for delivery.
func (b *Broadcaster) Attach(id string, s Sender) {
	b.mu.Lock()
	b.conns[id] = s
	b.mu.Unlock()
}

// Detach stops delivery to id.
func (b *Broadcaster) Detach(id string) {
	b.mu.Lock()
	delete(b.conns, id)
	b.mu.Unlock()
}

// ConnectionCount returns the number of attached connections.
func (b *Broadcaster) ConnectionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.conns)
}

// ToScope implements Publisher.
func (b *Broadcaster) ToScope(scope, event string, payload interface{}) int {
	e, err := NewEvent(event, payload)
	if err != nil {
		b.logger.Error().Err(err).Str("scope", scope).Msg("drop event")
		return 0
	}
	return b.PublishScope(scope, e)
}

// ToAll implements Publisher.
func (b *Broadcaster) ToAll(event string, payload interface{}) int {
	e, err := NewEvent(event, payload)
	if err != nil {
		b.logger.Error().Err(err).Msg("drop event")
		return 0
	}
	return b.PublishAll(e)
}

// Dual implements Publisher.
func (b *Broadcaster) Dual(scope, scopedEvent, globalEvent string, payload interface{}) {
	b.ToScope(scope, scopedEvent, payload)
	b.ToAll(globalEvent, payload)
}

// PublishScope delivers a prebuilt event to the current members of scope.
func (b *Broadcaster) PublishScope(scope string, e Event) int {
	ids := b.registry.MembersOf(scope)
	if len(ids) == 0 {
		return 0
	}

	b.mu.RLock()
	targets := make(map[string]Sender, len(ids))
	for _, id := range ids {
		if s, ok := b.conns[id]; ok {
			targets[id] = s
		}
	}
	b.mu.RUnlock()

	return b.deliver(scope, e, targets)
}

// PublishAll delivers a prebuilt event to every attached connection.
func (b *Broadcaster) PublishAll(e Event) int {
	b.mu.RLock()
	targets := make(map[string]Sender, len(b.conns))
	for id, s := range b.conns {
		targets[id] = s
	}
	b.mu.RUnlock()

	return b.deliver("*", e, targets)
}

// deliver runs outside the lock so a recipient that misbehaves cannot hold
// up Attach/Detach. Each failure is logged and skipped.
func (b *Broadcaster) deliver(scope string, e Event, targets map[string]Sender) int {
	delivered := 0
	for id, s := range targets {
		if err := s.Send(e); err != nil {
			b.logger.Debug().Err(err).
				Str("scope", scope).
				Str("event", e.Name).
				Str("conn_id", id).
				Msg("delivery failed")
			continue
		}
		delivered++
	}
	return delivered
}
