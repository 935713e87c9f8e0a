package plan

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vk/planweave/internal/ctxlog"
	"github.com/vk/planweave/internal/tensor"
)

// Result is a reference to a remotely produced value. The caller must
// retrieve it explicitly.
type Result interface {
	Get(ctx context.Context) (*tensor.Tensor, error)
}

// ObjectRef identifies a tensor already resident at a destination, so a
// pointer call can execute against remote data without moving it.
type ObjectRef interface {
	ObjectID() int64
	Location() string
}

// Destination is the remote-object collaborator boundary. Workers, local
// or behind a transport, implement it.
type Destination interface {
	// ID identifies the destination worker.
	ID() string
	// StorePlan materializes a serialized plan at the destination.
	StorePlan(ctx context.Context, blob []byte) error
	// CallPlan replays a stored plan against the given arguments. Each
	// argument is a *tensor.Tensor forwarded by value or an ObjectRef to
	// data already held by the destination.
	CallPlan(ctx context.Context, planID int64, args []any) (Result, error)
	// PlanBlob returns the serialized form of a stored plan.
	PlanBlob(ctx context.Context, planID int64) ([]byte, error)
}

// Pointer is the local handle to a plan materialized at one destination
// set. Calls route to the destination holding the referenced arguments.
type Pointer struct {
	planID int64
	name   string
	dests  []Destination
}

// PlanID returns the remote plan's identifier.
func (ptr *Pointer) PlanID() int64 { return ptr.planID }

// Destinations lists the destination IDs this pointer covers.
func (ptr *Pointer) Destinations() []string {
	ids := make([]string, len(ptr.dests))
	for i, d := range ptr.dests {
		ids[i] = d.ID()
	}
	return ids
}

// Call executes the remote plan. If an argument is an ObjectRef, the call
// routes to the destination holding that object; otherwise the first
// destination of the set is used.
func (ptr *Pointer) Call(ctx context.Context, args ...any) (Result, error) {
	dest := ptr.dests[0]
	for _, a := range args {
		ref, ok := a.(ObjectRef)
		if !ok {
			continue
		}
		for _, d := range ptr.dests {
			if d.ID() == ref.Location() {
				dest = d
			}
		}
	}
	ctxlog.FromContext(ctx).Debug("Calling plan through pointer.", "plan", ptr.name, "destination", dest.ID())
	return dest.CallPlan(ctx, ptr.planID, args)
}

// destKey canonicalizes a destination set for the pointer cache.
func destKey(dests []Destination) string {
	ids := make([]string, len(dests))
	for i, d := range dests {
		ids[i] = d.ID()
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}

// Send materializes the plan at every destination of the set and returns a
// pointer to the remote copy. A plan that never built cannot be sent;
// send never triggers a build. The first successful send to a destination
// set stores the serialized form remotely, drops the local callable (the
// source is never transmitted), and caches the pointer: sending the same
// plan to the same destination set again returns the identical pointer.
func (p *Plan) Send(ctx context.Context, dests ...Destination) (*Pointer, error) {
	if len(dests) == 0 {
		return nil, fmt.Errorf("plan %s: send needs at least one destination", p.name)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != Built {
		return nil, ErrUnbuilt
	}

	key := destKey(dests)
	if ptr, ok := p.pointers[key]; ok {
		return ptr, nil
	}

	blob, err := p.marshalLocked()
	if err != nil {
		return nil, fmt.Errorf("plan %s: serializing for send: %w", p.name, err)
	}
	logger := ctxlog.FromContext(ctx).With("plan", p.name)
	for _, d := range dests {
		if err := d.StorePlan(ctx, blob); err != nil {
			return nil, fmt.Errorf("plan %s: sending to %s: %w", p.name, d.ID(), err)
		}
		logger.Debug("Plan materialized at destination.", "destination", d.ID())
	}

	// Remote parties replay actions, never execute code: once the plan
	// exists anywhere else, the callable reference is dropped for good.
	p.forward = nil

	ptr := &Pointer{planID: p.id, name: p.name, dests: append([]Destination(nil), dests...)}
	p.pointers[key] = ptr
	return ptr, nil
}

// Pointers returns the cached pointers, one per distinct destination set
// sent to so far.
func (p *Plan) Pointers() []*Pointer {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Pointer, 0, len(p.pointers))
	for _, ptr := range p.pointers {
		out = append(out, ptr)
	}
	return out
}
