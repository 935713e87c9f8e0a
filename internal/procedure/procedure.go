// Package procedure owns the ordered action list of a built plan together
// with its declared input and output placeholder IDs, and knows how to
// substitute concrete values and replay the actions. It is deliberately
// independent of plan-level metadata so it can be serialized and cloned on
// its own.
package procedure

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/planweave/internal/action"
	"github.com/vk/planweave/internal/ctxlog"
	"github.com/vk/planweave/internal/ops"
	"github.com/vk/planweave/internal/placeholder"
	"github.com/vk/planweave/internal/tensor"
)

// Procedure is the replayable core of a plan: recorded actions in exactly
// the order they were traced, plus the formal input/output slots. Slots
// carries the tagged placeholder metadata for those formal positions.
type Procedure struct {
	Actions   []action.Compute          `msgpack:"actions"`
	InputIDs  []placeholder.ID          `msgpack:"inputs"`
	OutputIDs []placeholder.ID          `msgpack:"outputs"`
	Slots     []placeholder.Placeholder `msgpack:"slots,omitempty"`
}

// Slot finds formal-position metadata by tag, such as "#input-0".
func (p *Procedure) Slot(tag string) (placeholder.Placeholder, bool) {
	for _, s := range p.Slots {
		for _, t := range s.Tags {
			if t == tag {
				return s, true
			}
		}
	}
	return placeholder.Placeholder{}, false
}

// Copy produces a structurally identical but independently-mutable
// procedure. A fetched plan must not alias the original's captured tensor
// literals.
func (p *Procedure) Copy() *Procedure {
	out := &Procedure{
		Actions:   make([]action.Compute, len(p.Actions)),
		InputIDs:  append([]placeholder.ID(nil), p.InputIDs...),
		OutputIDs: append([]placeholder.ID(nil), p.OutputIDs...),
		Slots:     append([]placeholder.Placeholder(nil), p.Slots...),
	}
	for i, a := range p.Actions {
		out.Actions[i] = a.Clone()
	}
	return out
}

// Execute replays every action strictly in recorded order. The bindings
// map provides concrete values for input and state placeholders; it is
// copied into a call-local table, so concurrent executions of the same
// procedure cannot corrupt each other. Execution order is never reordered:
// later actions may depend on environment effects of earlier ones, such as
// RNG seeding.
func (p *Procedure) Execute(ctx context.Context, reg *ops.Registry, env *ops.Env, bindings map[placeholder.ID]*tensor.Tensor) ([]*tensor.Tensor, error) {
	logger := ctxlog.FromContext(ctx)
	values := make(map[placeholder.ID]*tensor.Tensor, len(bindings)+len(p.Actions))
	for id, t := range bindings {
		values[id] = t
	}

	for i, act := range p.Actions {
		call := &ops.Call{Env: env}
		if act.Target != nil {
			resolved, err := resolveArg(*act.Target, values)
			if err != nil {
				return nil, fmt.Errorf("action %d (%s): target: %w", i, act.Op, err)
			}
			t, ok := resolved.(*tensor.Tensor)
			if !ok {
				return nil, fmt.Errorf("action %d (%s): target is not a tensor", i, act.Op)
			}
			call.Target = t
		}
		for _, a := range act.Args {
			resolved, err := resolveArg(a, values)
			if err != nil {
				return nil, fmt.Errorf("action %d (%s): %w", i, act.Op, err)
			}
			call.Args = append(call.Args, resolved)
		}
		if len(act.Kwargs) > 0 {
			call.Kwargs = make(map[string]any, len(act.Kwargs))
			for k, a := range act.Kwargs {
				resolved, err := resolveArg(a, values)
				if err != nil {
					return nil, fmt.Errorf("action %d (%s): kwarg %s: %w", i, act.Op, k, err)
				}
				call.Kwargs[k] = resolved
			}
		}

		handler, err := reg.Lookup(act.Op)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		outs, err := handler(ctx, call)
		if err != nil {
			return nil, fmt.Errorf("action %d (%s): %w", i, act.Op, err)
		}
		if len(outs) != len(act.Returns) {
			return nil, fmt.Errorf("action %d (%s): produced %d outputs, recorded %d return slots", i, act.Op, len(outs), len(act.Returns))
		}
		for j, out := range outs {
			values[act.Returns[j]] = out
		}
		logger.Debug("Replayed action.", "index", i, "op", act.Op, "outputs", len(outs))
	}

	results := make([]*tensor.Tensor, len(p.OutputIDs))
	for i, id := range p.OutputIDs {
		t, ok := values[id]
		if !ok {
			return nil, fmt.Errorf("procedure: output placeholder %d was never bound", id)
		}
		results[i] = t
	}
	return results, nil
}

// resolveArg maps a recorded argument to a dispatchable operand: a tensor
// from the value table, a captured literal as a native Go value, or a
// nested slice of those.
func resolveArg(a action.Argument, values map[placeholder.ID]*tensor.Tensor) (any, error) {
	switch a.Kind {
	case action.KindPlaceholder:
		t, ok := values[a.Ref]
		if !ok {
			return nil, fmt.Errorf("placeholder %d has no bound value", a.Ref)
		}
		return t, nil
	case action.KindTensor:
		return a.Tensor, nil
	case action.KindLiteral:
		return ctyToNative(a.Literal)
	case action.KindList:
		out := make([]any, len(a.List))
		for i, elem := range a.List {
			v, err := resolveArg(elem, values)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported argument kind %d", a.Kind)
	}
}

// ctyToNative converts a captured literal to the Go value handlers expect.
func ctyToNative(v cty.Value) (any, error) {
	ty := v.Type()
	switch {
	case ty == cty.Number:
		f, _ := v.AsBigFloat().Float64()
		return f, nil
	case ty == cty.String:
		return v.AsString(), nil
	case ty == cty.Bool:
		return v.True(), nil
	case ty.IsTupleType() || ty.IsListType():
		var out []any
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported literal type %s", ty.FriendlyName())
	}
}
