// Package state holds a plan's persistent tensors: values that are not
// part of the call signature but are read inside the traced body, such as
// trained weights. Each state tensor is bound to a placeholder so it can
// appear as an implicit input of the recorded graph. The engine treats
// state as read-only during replay; mutation (a training step) happens
// through the surrounding model API, never through the trace engine.
package state

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/vk/planweave/internal/placeholder"
	"github.com/vk/planweave/internal/tensor"
)

// State is an ordered collection of plan-owned tensors.
type State struct {
	ids     []placeholder.ID
	tensors []*tensor.Tensor
}

// New builds a state container, minting one placeholder ID per tensor.
func New(tensors ...*tensor.Tensor) *State {
	s := &State{tensors: tensors}
	for range tensors {
		s.ids = append(s.ids, placeholder.NextID())
	}
	return s
}

// Read projects the current values, in declaration order. This is the only
// channel by which a traced body accesses persistent values.
func (s *State) Read() []*tensor.Tensor {
	return append([]*tensor.Tensor(nil), s.tensors...)
}

// IDs returns the placeholder IDs the state tensors are bound to.
func (s *State) IDs() []placeholder.ID {
	return append([]placeholder.ID(nil), s.ids...)
}

// Len returns the number of owned tensors.
func (s *State) Len() int {
	return len(s.tensors)
}

// Set replaces the i-th tensor. It exists for the surrounding model API
// (training updates); the engine itself never calls it.
func (s *State) Set(i int, t *tensor.Tensor) error {
	if i < 0 || i >= len(s.tensors) {
		return fmt.Errorf("state: index %d out of range [0,%d)", i, len(s.tensors))
	}
	s.tensors[i] = t
	return nil
}

// Copy produces a deep, independently-owned duplicate. Placeholder IDs are
// preserved because recorded actions reference them; only tensor storage
// is duplicated, so the copy cannot alias the original's values.
func (s *State) Copy() *State {
	out := &State{
		ids:     append([]placeholder.ID(nil), s.ids...),
		tensors: make([]*tensor.Tensor, len(s.tensors)),
	}
	for i, t := range s.tensors {
		out.tensors[i] = t.Clone()
	}
	return out
}

var (
	_ msgpack.CustomEncoder = (*State)(nil)
	_ msgpack.CustomDecoder = (*State)(nil)
)

// EncodeMsgpack writes the state as one two-element array: placeholder
// bindings, then tensor values. A custom codec must produce exactly one
// top-level value, otherwise any stream embedding a state desyncs.
func (s *State) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(2); err != nil {
		return err
	}
	if err := enc.Encode(s.ids); err != nil {
		return err
	}
	return enc.Encode(s.tensors)
}

// DecodeMsgpack is the inverse of EncodeMsgpack.
func (s *State) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n != 2 {
		return fmt.Errorf("state: malformed encoding, want 2 elements, got %d", n)
	}
	if err := dec.Decode(&s.ids); err != nil {
		return err
	}
	return dec.Decode(&s.tensors)
}
