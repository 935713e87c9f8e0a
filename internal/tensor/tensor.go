// Package tensor provides the minimal dense tensor type the trace engine
// records operations over. Values are float64, row-major, at most rank 2.
// The package deliberately stays small: the engine cares about which
// operation ran with which operands, not about kernel performance.
package tensor

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Tensor is a dense, row-major float64 tensor.
type Tensor struct {
	shape []int
	data  []float64
}

// New builds a tensor from raw data and an explicit shape. The product of
// the shape dimensions must match len(data).
func New(data []float64, shape ...int) (*Tensor, error) {
	n := 1
	for _, d := range shape {
		if d <= 0 {
			return nil, fmt.Errorf("tensor: invalid dimension %d in shape %v", d, shape)
		}
		n *= d
	}
	if len(shape) == 0 {
		shape = []int{len(data)}
		n = len(data)
	}
	if n != len(data) {
		return nil, fmt.Errorf("tensor: shape %v wants %d elements, got %d", shape, n, len(data))
	}
	return &Tensor{shape: append([]int(nil), shape...), data: append([]float64(nil), data...)}, nil
}

// Vector builds a 1-D tensor from the given values.
func Vector(vals ...float64) *Tensor {
	return &Tensor{shape: []int{len(vals)}, data: append([]float64(nil), vals...)}
}

// Scalar builds a single-element 1-D tensor.
func Scalar(v float64) *Tensor {
	return Vector(v)
}

// Zeros builds a zero-filled tensor of the given shape.
func Zeros(shape ...int) *Tensor {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return &Tensor{shape: append([]int(nil), shape...), data: make([]float64, n)}
}

// Shape returns a copy of the tensor's dimensions.
func (t *Tensor) Shape() []int {
	return append([]int(nil), t.shape...)
}

// Len returns the total number of elements.
func (t *Tensor) Len() int {
	return len(t.data)
}

// Data returns the underlying storage. Callers must not mutate it; use
// Clone for an independent copy.
func (t *Tensor) Data() []float64 {
	return t.data
}

// At returns the element at the given flat index.
func (t *Tensor) At(i int) float64 {
	return t.data[i]
}

// Clone returns a deep, independently-owned copy.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{
		shape: append([]int(nil), t.shape...),
		data:  append([]float64(nil), t.data...),
	}
}

// Equal reports whether two tensors have identical shape and bitwise-equal
// elements.
func (t *Tensor) Equal(o *Tensor) bool {
	if o == nil || len(t.shape) != len(o.shape) || len(t.data) != len(o.data) {
		return false
	}
	for i, d := range t.shape {
		if o.shape[i] != d {
			return false
		}
	}
	for i, v := range t.data {
		if o.data[i] != v {
			return false
		}
	}
	return true
}

// AllClose reports whether two tensors match elementwise within tol.
func (t *Tensor) AllClose(o *Tensor, tol float64) bool {
	if o == nil || len(t.data) != len(o.data) {
		return false
	}
	for i, v := range t.data {
		if math.Abs(v-o.data[i]) > tol {
			return false
		}
	}
	return true
}

// String renders the tensor for logs and test failures.
func (t *Tensor) String() string {
	var sb strings.Builder
	sb.WriteString("tensor(")
	sb.WriteByte('[')
	for i, v := range t.data {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	sb.WriteByte(']')
	if len(t.shape) > 1 {
		fmt.Fprintf(&sb, ", shape=%v", t.shape)
	}
	sb.WriteByte(')')
	return sb.String()
}
