package trace

import (
	"github.com/vk/planweave/internal/placeholder"
	"github.com/vk/planweave/internal/tensor"
)

// Value is a traced tensor: the real value computed during the trace pass
// together with the placeholder its position in the graph is bound to.
// Every method call on a Value is intercepted and recorded.
type Value struct {
	rec *Recorder
	id  placeholder.ID
	t   *tensor.Tensor
}

// ID returns the placeholder bound to this value.
func (v *Value) ID() placeholder.ID {
	return v.id
}

// Tensor returns the real value the trace pass computed for this slot.
func (v *Value) Tensor() *tensor.Tensor {
	return v.t
}

// Add records and computes v + other. The operand may be another traced
// Value, a *tensor.Tensor, or a numeric scalar.
func (v *Value) Add(other any) *Value {
	return v.rec.applyOne("add", v, []any{scalarOperand(other)}, nil)
}

// Sub records and computes v - other.
func (v *Value) Sub(other any) *Value {
	return v.rec.applyOne("sub", v, []any{scalarOperand(other)}, nil)
}

// Mul records and computes v * other.
func (v *Value) Mul(other any) *Value {
	return v.rec.applyOne("mul", v, []any{scalarOperand(other)}, nil)
}

// Div records and computes v / other.
func (v *Value) Div(other any) *Value {
	return v.rec.applyOne("div", v, []any{scalarOperand(other)}, nil)
}

// Gt records and computes the elementwise comparison v > other.
func (v *Value) Gt(other any) *Value {
	return v.rec.applyOne("gt", v, []any{scalarOperand(other)}, nil)
}

// Mm records and computes the matrix product v x other.
func (v *Value) Mm(other any) *Value {
	return v.rec.applyOne("mm", v, []any{scalarOperand(other)}, nil)
}

// Abs records and computes |v|.
func (v *Value) Abs() *Value {
	return v.rec.applyOne("abs", v, nil, nil)
}

// Neg records and computes -v.
func (v *Value) Neg() *Value {
	return v.rec.applyOne("neg", v, nil, nil)
}

// Relu records and computes max(v, 0).
func (v *Value) Relu() *Value {
	return v.rec.applyOne("relu", v, nil, nil)
}

// Sum records and computes the total reduction of v.
func (v *Value) Sum() *Value {
	return v.rec.applyOne("sum", v, nil, nil)
}

// LogSoftmax records and computes log(softmax(v)) along dim.
func (v *Value) LogSoftmax(dim int) *Value {
	return v.rec.applyOne("log_softmax", v, nil, map[string]any{"dim": dim})
}

// scalarOperand widens untyped numeric literals so traced bodies can write
// x.Add(1) without caring about capture types.
func scalarOperand(a any) any {
	switch x := a.(type) {
	case int:
		return tensor.Scalar(float64(x))
	case float64:
		return tensor.Scalar(x)
	default:
		return a
	}
}
