// Package registry tracks the live endpoints of the pairing server and the
// lifecycle state each one is in. It holds no locks of its own; the lobby
// owns a Registry and serializes every access to it.
package registry

// State is the lifecycle state of a live endpoint.
type State int

const (
	Idle State = iota
	Waiting
	InSession
)

// String returns the lowercase state name used in logs and snapshots.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Waiting:
		return "waiting"
	case InSession:
		return "in_session"
	default:
		return "unknown"
	}
}

// Registry maps endpoint ids to their current state.
type Registry struct {
	states map[string]State
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{states: make(map[string]State)}
}

// Register adds an endpoint in the Idle state. Registering a live endpoint
// again is a no-op and reports false.
func (r *Registry) Register(endpoint string) bool {
	if _, ok := r.states[endpoint]; ok {
		return false
	}
	r.states[endpoint] = Idle
	return true
}

// Unregister removes an endpoint and returns the state it was in. Unknown
// endpoints report false.
func (r *Registry) Unregister(endpoint string) (State, bool) {
	st, ok := r.states[endpoint]
	if ok {
		delete(r.states, endpoint)
	}
	return st, ok
}

// StateOf returns the current state of an endpoint.
func (r *Registry) StateOf(endpoint string) (State, bool) {
	st, ok := r.states[endpoint]
	return st, ok
}

// Set moves a live endpoint to the given state. It returns false and changes
// nothing if the endpoint is not registered.
func (r *Registry) Set(endpoint string, st State) bool {
	if _, ok := r.states[endpoint]; !ok {
		return false
	}
	r.states[endpoint] = st
	return true
}

// IsLive reports whether the endpoint is registered.
func (r *Registry) IsLive(endpoint string) bool {
	_, ok := r.states[endpoint]
	return ok
}

// Count returns the number of live endpoints.
func (r *Registry) Count() int {
	return len(r.states)
}

// CountByState returns how many live endpoints are in each state.
func (r *Registry) CountByState() map[State]int {
	out := map[State]int{Idle: 0, Waiting: 0, InSession: 0}
	for _, st := range r.states {
		out[st]++
	}
	return out
}
