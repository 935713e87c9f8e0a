// Package trace implements the single-pass interception mechanism that
// turns one run of a callable into an ordered action list. Recording
// state lives in an explicit Recorder owned by the build call, never in a
// process-wide flag, and is released when the trace pass ends.
//
// Errors during tracing are deferred: the recorder keeps the first error
// and turns every subsequent operation into a no-op, so traced bodies can
// chain operations without per-op error plumbing. Build surfaces the
// stored error and discards all partial records.
package trace

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/planweave/internal/action"
	"github.com/vk/planweave/internal/ops"
	"github.com/vk/planweave/internal/placeholder"
	"github.com/vk/planweave/internal/tensor"
)

// Recorder is the scoped recording context for one trace pass. Every
// intercepted operation both computes its real result (so downstream trace
// steps see real values for shape and branch decisions) and appends an
// action record.
type Recorder struct {
	ctx     context.Context
	reg     *ops.Registry
	env     *ops.Env
	actions []action.Compute
	err     error
}

// newRecorder creates a recorder dispatching against the given registry.
func newRecorder(ctx context.Context, reg *ops.Registry, env *ops.Env) *Recorder {
	return &Recorder{ctx: ctx, reg: reg, env: env}
}

// Err returns the first error the trace pass hit, if any.
func (r *Recorder) Err() error {
	return r.err
}

// fail stores the first error; later operations become no-ops.
func (r *Recorder) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// Failf lets a traced body abort the trace with its own error.
func (r *Recorder) Failf(format string, args ...any) {
	r.fail(fmt.Errorf(format, args...))
}

// apply intercepts one operation: it resolves real operand values,
// dispatches the handler for the real result, records the action with
// traced operands replaced by placeholder references, and binds each
// output to a fresh placeholder.
func (r *Recorder) apply(op string, target *Value, args []any, kwargs map[string]any) []*Value {
	if r.err != nil {
		return nil
	}

	call := &ops.Call{Env: r.env}
	rec := action.Compute{Op: op}
	if target != nil {
		call.Target = target.t
		ref := action.Ref(target.id)
		rec.Target = &ref
	}
	for _, a := range args {
		captured, real, err := r.capture(a)
		if err != nil {
			r.fail(fmt.Errorf("trace: op %s: %w", op, err))
			return nil
		}
		rec.Args = append(rec.Args, captured)
		call.Args = append(call.Args, real)
	}
	for k, a := range kwargs {
		captured, real, err := r.capture(a)
		if err != nil {
			r.fail(fmt.Errorf("trace: op %s: kwarg %s: %w", op, k, err))
			return nil
		}
		if rec.Kwargs == nil {
			rec.Kwargs = make(map[string]action.Argument)
			call.Kwargs = make(map[string]any)
		}
		rec.Kwargs[k] = captured
		call.Kwargs[k] = real
	}

	handler, err := r.reg.Lookup(op)
	if err != nil {
		r.fail(fmt.Errorf("trace: %w", err))
		return nil
	}
	outs, err := handler(r.ctx, call)
	if err != nil {
		r.fail(fmt.Errorf("trace: op %s: %w", op, err))
		return nil
	}

	values := make([]*Value, len(outs))
	for i, out := range outs {
		v := &Value{rec: r, id: placeholder.NextID(), t: out}
		rec.Returns = append(rec.Returns, v.id)
		values[i] = v
	}
	r.actions = append(r.actions, rec)
	return values
}

// applyOne is apply for single-output operations.
func (r *Recorder) applyOne(op string, target *Value, args []any, kwargs map[string]any) *Value {
	outs := r.apply(op, target, args, kwargs)
	if len(outs) != 1 {
		if r.err == nil {
			r.fail(fmt.Errorf("trace: op %s produced %d outputs, expected 1", op, len(outs)))
		}
		return &Value{rec: r}
	}
	return outs[0]
}

// capture classifies one operand: traced values become placeholder
// references, everything else is frozen into the record as a literal. A
// later call can never override a literal; scalars that shaped the traced
// control flow are compile-time constants of the graph.
func (r *Recorder) capture(a any) (action.Argument, any, error) {
	switch x := a.(type) {
	case *Value:
		if x == nil || x.rec == nil {
			return action.Argument{}, nil, fmt.Errorf("nil traced value")
		}
		if x.rec != r {
			return action.Argument{}, nil, fmt.Errorf("traced value from a different trace pass")
		}
		return action.Ref(x.id), x.t, nil
	case *tensor.Tensor:
		return action.TensorLit(x.Clone()), x, nil
	case float64:
		return action.Float(x), x, nil
	case int:
		return action.Int(x), x, nil
	case string:
		return action.Str(x), x, nil
	case bool:
		return action.Lit(cty.BoolVal(x)), x, nil
	case []int:
		elems := make([]action.Argument, len(x))
		for i, n := range x {
			elems[i] = action.Int(n)
		}
		return action.ListOf(elems...), x, nil
	case []float64:
		elems := make([]action.Argument, len(x))
		for i, f := range x {
			elems[i] = action.Float(f)
		}
		return action.ListOf(elems...), x, nil
	default:
		return action.Argument{}, nil, fmt.Errorf("unsupported operand type %T", a)
	}
}
