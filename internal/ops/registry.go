// Package ops is the explicit, auditable registry of tensor operations the
// trace engine can record and replay. Every interceptable operation is a
// named handler; there is no implicit global interception surface. Both
// the tracer (which needs real results during the single trace pass) and
// the procedure replayer dispatch through the same registry.
package ops

import (
	"fmt"
	"log/slog"
	"sort"
)

// Registry maps operation identifiers to their handlers for a single
// engine instance.
type Registry struct {
	handlers map[string]Handler
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Default returns a fresh registry populated with the builtin tensor
// operations.
func Default() *Registry {
	r := New()
	registerBuiltins(r)
	return r
}

// Register adds a handler under the given operation name. Registering the
// same name twice is a programmer error.
func (r *Registry) Register(name string, h Handler) {
	if _, exists := r.handlers[name]; exists {
		panic(fmt.Sprintf("ops: handler %q already registered", name))
	}
	slog.Debug("Registering op handler.", "op", name)
	r.handlers[name] = h
}

// Lookup resolves an operation name to its handler.
func (r *Registry) Lookup(name string) (Handler, error) {
	h, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("ops: unknown operation %q", name)
	}
	return h, nil
}

// Names lists the registered operation identifiers in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
