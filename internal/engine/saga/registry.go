package saga

import (
	"errors"
	"fmt"

	"meridian/internal/shared/events"
)

// Registration binds a named reaction to the events it handles. Predicates
// are explicit: registration fails fast on a missing predicate or a
// duplicate name rather than relying on structural lookup at dispatch time.
type Registration struct {
	Name      string
	Predicate func(event events.Event) bool
	Handler   Reaction
}

// Registry dispatches events to registered reactions.
type Registry struct {
	entries []Registration
	names   map[string]struct{}
}

var (
	// ErrDuplicateRegistration reports a reused registration name.
	ErrDuplicateRegistration = errors.New("saga reaction name already registered")
	// ErrInvalidRegistration reports a registration missing its name,
	// predicate or handler.
	ErrInvalidRegistration = errors.New("saga registration is incomplete")
)

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// Register validates and adds a reaction.
func (r *Registry) Register(reg Registration) error {
	if reg.Name == "" || reg.Predicate == nil || reg.Handler == nil {
		return fmt.Errorf("%w: name=%q", ErrInvalidRegistration, reg.Name)
	}
	if _, exists := r.names[reg.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateRegistration, reg.Name)
	}
	r.names[reg.Name] = struct{}{}
	r.entries = append(r.entries, reg)
	return nil
}

// MustRegister panics on registration error; intended for static wiring at
// composition time.
func (r *Registry) MustRegister(reg Registration) {
	if err := r.Register(reg); err != nil {
		panic(err)
	}
}

// Match returns the registrations whose predicate accepts the event, in
// registration order.
func (r *Registry) Match(event events.Event) []Registration {
	var matched []Registration
	for _, entry := range r.entries {
		if entry.Predicate(event) {
			matched = append(matched, entry)
		}
	}
	return matched
}
