// Package action defines the immutable records a trace pass produces: one
// Compute record per intercepted tensor operation, plus Communication
// records for object movement between workers. Operand references are
// placeholder IDs or captured literals; replay dispatches each record with
// exactly the argument ordering and keyword names that were recorded.
package action

import (
	"fmt"

	"github.com/vk/planweave/internal/placeholder"
)

// Compute records one intercepted tensor operation.
//
// Target is the receiver for method-style operations (x.abs()) and nil for
// namespace functions (lib.arange(3)). Args preserve call order exactly.
// Returns holds one placeholder per produced output; multi-output
// operations get one entry per output so every downstream-consumed value
// has its own slot.
type Compute struct {
	Op      string              `msgpack:"op"`
	Target  *Argument           `msgpack:"target,omitempty"`
	Args    []Argument          `msgpack:"args"`
	Kwargs  map[string]Argument `msgpack:"kwargs,omitempty"`
	Returns []placeholder.ID    `msgpack:"returns"`
}

// NewCompute builds a compute record.
func NewCompute(op string, target *Argument, args []Argument, returns ...placeholder.ID) Compute {
	return Compute{Op: op, Target: target, Args: args, Returns: returns}
}

// communicationVerbs is the closed set of pointer-level operations a
// Communication record may describe.
var communicationVerbs = map[string]struct{}{
	"move":        {},
	"remote_send": {},
	"mid_get":     {},
	"remote_get":  {},
	"get":         {},
	"share":       {},
	"share_":      {},
}

// Communication records a pointer-level action performed on a stored
// object: moving it between workers, retrieving it, or sharing it.
type Communication struct {
	ObjectID     int64               `msgpack:"object_id"`
	Verb         string              `msgpack:"verb"`
	Source       string              `msgpack:"source"`
	Destinations []string            `msgpack:"destinations"`
	Kwargs       map[string]Argument `msgpack:"kwargs,omitempty"`
}

// NewCommunication builds a communication record, rejecting verbs outside
// the supported set.
func NewCommunication(objectID int64, verb, source string, destinations []string, kwargs map[string]Argument) (Communication, error) {
	if _, ok := communicationVerbs[verb]; !ok {
		return Communication{}, fmt.Errorf("action: verb %q is not a supported communication action", verb)
	}
	return Communication{
		ObjectID:     objectID,
		Verb:         verb,
		Source:       source,
		Destinations: destinations,
		Kwargs:       kwargs,
	}, nil
}

// Equal reports field-wise equality of two communication records.
func (c Communication) Equal(o Communication) bool {
	if c.ObjectID != o.ObjectID || c.Verb != o.Verb || c.Source != o.Source {
		return false
	}
	if len(c.Destinations) != len(o.Destinations) {
		return false
	}
	for i, d := range c.Destinations {
		if o.Destinations[i] != d {
			return false
		}
	}
	return true
}
