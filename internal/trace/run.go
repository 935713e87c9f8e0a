package trace

import (
	"context"
	"fmt"

	"github.com/vk/planweave/internal/ctxlog"
	"github.com/vk/planweave/internal/ops"
	"github.com/vk/planweave/internal/placeholder"
	"github.com/vk/planweave/internal/procedure"
	"github.com/vk/planweave/internal/state"
	"github.com/vk/planweave/internal/tensor"
)

// defaultTraceSeed keeps the real values a trace pass computes
// deterministic when the traced body never seeds explicitly.
const defaultTraceSeed = 1

// Context is what a traced callable receives: the library namespace, the
// plan's state projected as traced values, and an escape hatch to abort.
type Context struct {
	rec       *Recorder
	lib       *Lib
	stateVals []*Value
}

// Lib returns the recorded library namespace.
func (c *Context) Lib() *Lib {
	return c.lib
}

// State projects the plan's persistent tensors as traced values, in
// declaration order. Reading them during the trace binds the state
// placeholders as implicit inputs of the graph.
func (c *Context) State() []*Value {
	return append([]*Value(nil), c.stateVals...)
}

// Failf aborts the trace with the body's own error.
func (c *Context) Failf(format string, args ...any) {
	c.rec.Failf(format, args...)
}

// Callable is a traceable computation body. It runs exactly once, against
// placeholder-bound example inputs, and returns the values that become the
// graph's formal outputs.
type Callable func(tc *Context, args ...*Value) []*Value

// Run executes fn exactly once in a recording context and assembles the
// resulting procedure. On any failure no partial action list survives: the
// error propagates and the caller keeps its unbuilt state.
func Run(ctx context.Context, reg *ops.Registry, st *state.State, inputs []*tensor.Tensor, fn Callable) (*procedure.Procedure, error) {
	logger := ctxlog.FromContext(ctx)
	rec := newRecorder(ctx, reg, ops.NewEnv(defaultTraceSeed))
	tc := &Context{rec: rec, lib: &Lib{rec: rec}}

	args := make([]*Value, len(inputs))
	inputIDs := make([]placeholder.ID, len(inputs))
	slots := make([]placeholder.Placeholder, 0, 2*len(inputs))
	for i, t := range inputs {
		ph := placeholder.New(fmt.Sprintf("#input-%d", i)).WithShape(tensor.Shape(t.Shape()))
		args[i] = &Value{rec: rec, id: ph.ID, t: t}
		inputIDs[i] = ph.ID
		slots = append(slots, *ph)
	}
	if st != nil {
		ids := st.IDs()
		for i, t := range st.Read() {
			tc.stateVals = append(tc.stateVals, &Value{rec: rec, id: ids[i], t: t})
		}
	}

	logger.Debug("Starting trace pass.", "inputs", len(inputs), "state", len(tc.stateVals))
	outs := fn(tc, args...)
	if err := rec.Err(); err != nil {
		return nil, err
	}
	if len(outs) == 0 {
		// A body may return an input untouched, but returning nothing at
		// all leaves the graph without output slots.
		if len(rec.actions) == 0 {
			return nil, fmt.Errorf("trace: callable returned no outputs and recorded no actions")
		}
		return nil, fmt.Errorf("trace: callable returned no outputs")
	}

	outputIDs := make([]placeholder.ID, len(outs))
	for i, v := range outs {
		if v == nil || v.rec != rec {
			return nil, fmt.Errorf("trace: output %d is not a value of this trace pass", i)
		}
		outputIDs[i] = v.id
		slots = append(slots, placeholder.Placeholder{
			ID:    v.id,
			Tags:  []string{fmt.Sprintf("#output-%d", i)},
			Shape: tensor.Shape(v.t.Shape()),
		})
	}

	logger.Debug("Trace pass complete.", "actions", len(rec.actions), "outputs", len(outputIDs))
	return &procedure.Procedure{
		Actions:   rec.actions,
		InputIDs:  inputIDs,
		OutputIDs: outputIDs,
		Slots:     slots,
	}, nil
}
