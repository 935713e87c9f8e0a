package plan

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/vk/planweave/internal/ops"
	"github.com/vk/planweave/internal/procedure"
	"github.com/vk/planweave/internal/state"
)

// payload is the wire form of a plan: procedure, state, identity and the
// built flag. The original callable is structurally absent, replay relies
// solely on the action list.
type payload struct {
	ID    int64                `msgpack:"id"`
	Name  string               `msgpack:"name"`
	Tags  []string             `msgpack:"tags,omitempty"`
	Proc  *procedure.Procedure `msgpack:"procedure"`
	State *state.State         `msgpack:"state"`
	Built bool                 `msgpack:"built"`
}

// Marshal serializes the plan. Only built plans are serializable, since an
// unbuilt plan has no replayable form.
func (p *Plan) Marshal() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.marshalLocked()
}

func (p *Plan) marshalLocked() ([]byte, error) {
	if p.status != Built {
		return nil, ErrUnbuilt
	}
	return msgpack.Marshal(payload{
		ID:    p.id,
		Name:  p.name,
		Tags:  p.tags,
		Proc:  p.proc,
		State: p.st,
		Built: true,
	})
}

// Unmarshal reconstructs a plan from its serialized form. The result is
// built and callable, indistinguishable in calling behavior from the
// original, with no callable reference.
func Unmarshal(blob []byte, opts ...Option) (*Plan, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	reg := o.reg
	if reg == nil {
		reg = ops.Default()
	}

	var pl payload
	if err := msgpack.Unmarshal(blob, &pl); err != nil {
		return nil, fmt.Errorf("plan: decoding: %w", err)
	}
	if !pl.Built || pl.Proc == nil {
		return nil, fmt.Errorf("plan: serialized form is not a built plan")
	}
	st := pl.State
	if st == nil {
		st = state.New()
	}
	return &Plan{
		id:       pl.ID,
		name:     pl.Name,
		tags:     pl.Tags,
		reg:      reg,
		status:   Built,
		proc:     pl.Proc,
		st:       st,
		pointers: make(map[string]*Pointer),
	}, nil
}

// CopyState replaces the plan's state with a deep copy of itself, breaking
// any tensor aliasing with the blob's source. Used by fetch-with-copy.
func (p *Plan) CopyState() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.st = p.st.Copy()
}
