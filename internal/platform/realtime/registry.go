package realtime

import "sync"

// Registry maps scope names to the ids of the connections joined to them.
// A reverse index of connection → scopes makes LeaveAll proportional to the
// connection's own memberships. All operations are safe for concurrent use
// and degrade to no-ops for unknown ids.
type Registry struct {
	mu          sync.RWMutex
	rooms       map[string]map[string]struct{} // scope -> connection ids
	memberships map[string]map[string]struct{} // connection id -> scopes
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:       make(map[string]map[string]struct{}),
		memberships: make(map[string]map[string]struct{}),
	}
}

// Join adds connID to scope, creating the scope if needed. Joining twice is
// a no-op. Scope names are not validated here.
func (r *Registry) Join(connID, scope string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[scope]
	if !ok {
		members = make(map[string]struct{})
		r.rooms[scope] = members
	}
	members[connID] = struct{}{}

	scopes, ok := r.memberships[connID]
	if !ok {
		scopes = make(map[string]struct{})
		r.memberships[connID] = scopes
	}
	scopes[scope] = struct{}{}
}

// Leave removes connID from scope if present. Empty scopes are kept until
// Compact runs.
func (r *Registry) Leave(connID, scope string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if members, ok := r.rooms[scope]; ok {
		delete(members, connID)
	}
	if scopes, ok := r.memberships[connID]; ok {
		delete(scopes, scope)
		if len(scopes) == 0 {
			delete(r.memberships, connID)
		}
	}
}

// LeaveAll removes connID from every scope it belongs to and returns the
// scopes it left.
func (r *Registry) LeaveAll(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	scopes, ok := r.memberships[connID]
	if !ok {
		return nil
	}
	left := make([]string, 0, len(scopes))
	for scope := range scopes {
		if members, ok := r.rooms[scope]; ok {
			delete(members, connID)
		}
		left = append(left, scope)
	}
	delete(r.memberships, connID)
	return left
}

// MembersOf returns a snapshot of the connection ids in scope. The slice is
// owned by the caller; membership may change while it is iterated.
func (r *Registry) MembersOf(scope string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[scope]
	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	return ids
}

// ScopesOf returns a snapshot of the scopes connID has joined.
func (r *Registry) ScopesOf(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	scopes := r.memberships[connID]
	out := make([]string, 0, len(scopes))
	for scope := range scopes {
		out = append(out, scope)
	}
	return out
}

// IsMember reports whether connID has joined scope.
func (r *Registry) IsMember(connID, scope string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[scope][connID]
	return ok
}

// ScopeCount returns the number of known scopes, including empty ones.
func (r *Registry) ScopeCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Compact drops scopes with no members and returns how many were removed.
func (r *Registry) Compact() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for scope, members := range r.rooms {
		if len(members) == 0 {
			delete(r.rooms, scope)
			removed++
		}
	}
	return removed
}
