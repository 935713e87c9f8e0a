package worker

import (
	"context"
	"fmt"

	"github.com/vk/planweave/internal/ctxlog"
	"github.com/vk/planweave/internal/plan"
	"github.com/vk/planweave/internal/tensor"
)

// Worker implements plan.Destination.
var _ plan.Destination = (*Worker)(nil)

// StorePlan reconstructs a serialized plan and keeps it addressable by its
// original ID. Re-sending the same plan overwrites the stored copy.
func (w *Worker) StorePlan(ctx context.Context, blob []byte) error {
	p, err := plan.Unmarshal(blob, plan.WithRegistry(w.reg))
	if err != nil {
		return fmt.Errorf("worker %s: %w", w.id, err)
	}
	w.mu.Lock()
	w.plans[p.ID()] = p
	w.mu.Unlock()
	ctxlog.FromContext(ctx).Debug("Stored plan.", "worker", w.id, "plan", p.Name(), "planID", p.ID())
	return nil
}

// Plan returns a stored plan by ID.
func (w *Worker) Plan(id int64) (*plan.Plan, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	p, ok := w.plans[id]
	if !ok {
		return nil, fmt.Errorf("worker %s: no plan %d", w.id, id)
	}
	return p, nil
}

// PlanBlob serializes a stored plan for fetch.
func (w *Worker) PlanBlob(ctx context.Context, planID int64) ([]byte, error) {
	p, err := w.Plan(planID)
	if err != nil {
		return nil, err
	}
	return p.Marshal()
}

// Results references the outputs of one remote plan execution.
type Results struct {
	w   *Worker
	ids []int64
}

// Get retrieves the result of a single-output execution.
func (r *Results) Get(ctx context.Context) (*tensor.Tensor, error) {
	if len(r.ids) != 1 {
		return nil, fmt.Errorf("worker %s: execution produced %d outputs, use GetAll", r.w.id, len(r.ids))
	}
	return r.w.Object(r.ids[0])
}

// GetAll retrieves every output of the execution, in output order.
func (r *Results) GetAll(ctx context.Context) ([]*tensor.Tensor, error) {
	out := make([]*tensor.Tensor, len(r.ids))
	for i, id := range r.ids {
		t, err := r.w.Object(id)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// Refs exposes the stored outputs as tensor references.
func (r *Results) Refs() []*TensorRef {
	out := make([]*TensorRef, len(r.ids))
	for i, id := range r.ids {
		out[i] = &TensorRef{id: id, w: r.w}
	}
	return out
}

// CallPlan replays a stored plan. Arguments arrive either as tensors
// forwarded by value or as references to objects this worker already
// holds. Outputs stay on the worker; the caller gets references and must
// retrieve explicitly.
func (w *Worker) CallPlan(ctx context.Context, planID int64, args []any) (plan.Result, error) {
	p, err := w.Plan(planID)
	if err != nil {
		return nil, err
	}

	concrete := make([]*tensor.Tensor, len(args))
	for i, a := range args {
		switch x := a.(type) {
		case *tensor.Tensor:
			concrete[i] = x
		case plan.ObjectRef:
			if x.Location() != w.id {
				return nil, fmt.Errorf("worker %s: argument %d references object on %s", w.id, i, x.Location())
			}
			t, err := w.Object(x.ObjectID())
			if err != nil {
				return nil, err
			}
			concrete[i] = t
		default:
			return nil, fmt.Errorf("worker %s: unsupported argument type %T", w.id, a)
		}
	}

	outs, err := p.Call(ctx, concrete...)
	if err != nil {
		return nil, fmt.Errorf("worker %s: replaying plan %s: %w", w.id, p.Name(), err)
	}

	res := &Results{w: w}
	for _, t := range outs {
		res.ids = append(res.ids, w.Put(ctx, t).id)
	}
	return res, nil
}

// FetchPlan retrieves a remote plan's serialized form and reconstructs it
// locally. With copy set, the fetched instance gets a deep state copy so
// it cannot alias the source's tensors.
func (w *Worker) FetchPlan(ctx context.Context, planID int64, location plan.Destination, copy bool) (*plan.Plan, error) {
	blob, err := location.PlanBlob(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("worker %s: fetching plan %d from %s: %w", w.id, planID, location.ID(), err)
	}
	p, err := plan.Unmarshal(blob, plan.WithRegistry(w.reg))
	if err != nil {
		return nil, err
	}
	if copy {
		p.CopyState()
	}
	return p, nil
}
