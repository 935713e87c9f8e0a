package tensor

import (
	"fmt"
	"math"
	"math/rand"
)

// broadcastPair runs an elementwise binary kernel. Operands must have the
// same element count, or one of them must be a single-element tensor which
// is then broadcast across the other.
func broadcastPair(a, b *Tensor, f func(x, y float64) float64) (*Tensor, error) {
	switch {
	case a.Len() == b.Len():
		out := a.Clone()
		for i := range out.data {
			out.data[i] = f(a.data[i], b.data[i])
		}
		return out, nil
	case b.Len() == 1:
		out := a.Clone()
		for i := range out.data {
			out.data[i] = f(a.data[i], b.data[0])
		}
		return out, nil
	case a.Len() == 1:
		out := b.Clone()
		for i := range out.data {
			out.data[i] = f(a.data[0], b.data[i])
		}
		return out, nil
	default:
		return nil, fmt.Errorf("tensor: shapes %v and %v are not broadcastable", a.shape, b.shape)
	}
}

// Add returns a + b elementwise.
func Add(a, b *Tensor) (*Tensor, error) {
	return broadcastPair(a, b, func(x, y float64) float64 { return x + y })
}

// Sub returns a - b elementwise.
func Sub(a, b *Tensor) (*Tensor, error) {
	return broadcastPair(a, b, func(x, y float64) float64 { return x - y })
}

// Mul returns a * b elementwise.
func Mul(a, b *Tensor) (*Tensor, error) {
	return broadcastPair(a, b, func(x, y float64) float64 { return x * y })
}

// Div returns a / b elementwise.
func Div(a, b *Tensor) (*Tensor, error) {
	return broadcastPair(a, b, func(x, y float64) float64 { return x / y })
}

// Gt compares elementwise and returns 1.0 where a > b, else 0.0.
func Gt(a, b *Tensor) (*Tensor, error) {
	return broadcastPair(a, b, func(x, y float64) float64 {
		if x > y {
			return 1
		}
		return 0
	})
}

// Abs returns |a| elementwise.
func Abs(a *Tensor) *Tensor {
	out := a.Clone()
	for i := range out.data {
		out.data[i] = math.Abs(out.data[i])
	}
	return out
}

// Neg returns -a elementwise.
func Neg(a *Tensor) *Tensor {
	out := a.Clone()
	for i := range out.data {
		out.data[i] = -out.data[i]
	}
	return out
}

// Relu returns max(a, 0) elementwise.
func Relu(a *Tensor) *Tensor {
	out := a.Clone()
	for i := range out.data {
		if out.data[i] < 0 {
			out.data[i] = 0
		}
	}
	return out
}

// Sum reduces the tensor to a single-element tensor.
func Sum(a *Tensor) *Tensor {
	var s float64
	for _, v := range a.data {
		s += v
	}
	return Scalar(s)
}

// LogSoftmax computes log(softmax(a)) along the given dimension. Only
// rank-1 tensors (dim 0) and rank-2 tensors (dim 0 or 1) are supported.
func LogSoftmax(a *Tensor, dim int) (*Tensor, error) {
	switch len(a.shape) {
	case 1:
		if dim != 0 && dim != -1 {
			return nil, fmt.Errorf("tensor: log_softmax dim %d out of range for rank 1", dim)
		}
		out := a.Clone()
		logSoftmaxRow(out.data)
		return out, nil
	case 2:
		rows, cols := a.shape[0], a.shape[1]
		out := a.Clone()
		if dim == 1 || dim == -1 {
			for r := 0; r < rows; r++ {
				logSoftmaxRow(out.data[r*cols : (r+1)*cols])
			}
			return out, nil
		}
		if dim == 0 {
			col := make([]float64, rows)
			for c := 0; c < cols; c++ {
				for r := 0; r < rows; r++ {
					col[r] = out.data[r*cols+c]
				}
				logSoftmaxRow(col)
				for r := 0; r < rows; r++ {
					out.data[r*cols+c] = col[r]
				}
			}
			return out, nil
		}
		return nil, fmt.Errorf("tensor: log_softmax dim %d out of range for rank 2", dim)
	default:
		return nil, fmt.Errorf("tensor: log_softmax unsupported for rank %d", len(a.shape))
	}
}

func logSoftmaxRow(row []float64) {
	max := math.Inf(-1)
	for _, v := range row {
		if v > max {
			max = v
		}
	}
	var sum float64
	for _, v := range row {
		sum += math.Exp(v - max)
	}
	lse := max + math.Log(sum)
	for i := range row {
		row[i] -= lse
	}
}

// Split partitions a rank-1 tensor into chunks of the given size along its
// only dimension. The final chunk may be shorter.
func Split(a *Tensor, size int) ([]*Tensor, error) {
	if size <= 0 {
		return nil, fmt.Errorf("tensor: split size must be positive, got %d", size)
	}
	if len(a.shape) != 1 {
		return nil, fmt.Errorf("tensor: split supports rank-1 tensors, got rank %d", len(a.shape))
	}
	var parts []*Tensor
	for off := 0; off < len(a.data); off += size {
		end := off + size
		if end > len(a.data) {
			end = len(a.data)
		}
		parts = append(parts, Vector(a.data[off:end]...))
	}
	return parts, nil
}

// MatMul multiplies a (m,k) by b (k,n). A rank-1 right operand of length k
// is treated as a column vector and yields a rank-1 result of length m.
func MatMul(a, b *Tensor) (*Tensor, error) {
	if len(a.shape) != 2 {
		return nil, fmt.Errorf("tensor: mm left operand must be rank 2, got %v", a.shape)
	}
	m, k := a.shape[0], a.shape[1]
	if len(b.shape) == 1 {
		if b.shape[0] != k {
			return nil, fmt.Errorf("tensor: mm shapes %v and %v do not align", a.shape, b.shape)
		}
		out := Zeros(m)
		for i := 0; i < m; i++ {
			var s float64
			for j := 0; j < k; j++ {
				s += a.data[i*k+j] * b.data[j]
			}
			out.data[i] = s
		}
		return out, nil
	}
	if b.shape[0] != k {
		return nil, fmt.Errorf("tensor: mm shapes %v and %v do not align", a.shape, b.shape)
	}
	n := b.shape[1]
	out := Zeros(m, n)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var s float64
			for l := 0; l < k; l++ {
				s += a.data[i*k+l] * b.data[l*n+j]
			}
			out.data[i*n+j] = s
		}
	}
	return out, nil
}

// Linear computes w·x + b for a rank-1 input, the usual dense layer
// applied with weight shape (out, in).
func Linear(x, w, b *Tensor) (*Tensor, error) {
	y, err := MatMul(w, x)
	if err != nil {
		return nil, err
	}
	return Add(y, b)
}

// Arange builds the rank-1 tensor [0, 1, ..., n-1].
func Arange(n int) *Tensor {
	out := Zeros(n)
	for i := range out.data {
		out.data[i] = float64(i)
	}
	return out
}

// Rand fills a tensor of the given shape with uniform [0,1) samples drawn
// from rng.
func Rand(rng *rand.Rand, shape ...int) *Tensor {
	out := Zeros(shape...)
	for i := range out.data {
		out.data[i] = rng.Float64()
	}
	return out
}

// RandInt fills a tensor of the given shape with integers in [0, max)
// drawn from rng.
func RandInt(rng *rand.Rand, max int, shape ...int) *Tensor {
	out := Zeros(shape...)
	for i := range out.data {
		out.data[i] = float64(rng.Intn(max))
	}
	return out
}
