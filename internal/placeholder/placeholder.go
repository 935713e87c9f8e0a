// Package placeholder defines the identified stand-ins for tensor values
// that the trace engine binds graph inputs, intermediates and outputs to.
// Identity is a process-unique integer; cross-references between action
// records always go through these IDs, never through direct pointers, so
// a recorded graph serializes and clones without ownership cycles.
package placeholder

import (
	"sync/atomic"

	"github.com/vk/planweave/internal/tensor"
)

// ID identifies one placeholder. IDs are stable across build and every
// subsequent call; only the value bound to an ID changes per call.
type ID int64

var counter atomic.Int64

// NextID mints a fresh process-unique placeholder ID.
func NextID() ID {
	return ID(counter.Add(1))
}

// Placeholder is a typed slot in a recorded graph.
type Placeholder struct {
	ID    ID           `msgpack:"id"`
	Tags  []string     `msgpack:"tags,omitempty"`
	Shape tensor.Shape `msgpack:"shape,omitempty"`
}

// New mints a placeholder with a fresh ID.
func New(tags ...string) *Placeholder {
	return &Placeholder{ID: NextID(), Tags: tags}
}

// WithShape records the expected shape for the slot.
func (p *Placeholder) WithShape(s tensor.Shape) *Placeholder {
	p.Shape = s
	return p
}
