package ops

import (
	"context"
	"fmt"

	"github.com/vk/planweave/internal/tensor"
)

// single wraps a one-output kernel result.
func single(t *tensor.Tensor, err error) ([]*tensor.Tensor, error) {
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor{t}, nil
}

func binaryOp(f func(a, b *tensor.Tensor) (*tensor.Tensor, error)) Handler {
	return func(_ context.Context, c *Call) ([]*tensor.Tensor, error) {
		ts, err := c.operands(2)
		if err != nil {
			return nil, err
		}
		return single(f(ts[0], ts[1]))
	}
}

func unaryOp(f func(a *tensor.Tensor) *tensor.Tensor) Handler {
	return func(_ context.Context, c *Call) ([]*tensor.Tensor, error) {
		ts, err := c.operands(1)
		if err != nil {
			return nil, err
		}
		return []*tensor.Tensor{f(ts[0])}, nil
	}
}

// registerBuiltins wires the builtin operation set. Names double as the
// wire-format operation identifiers, so renaming one breaks replay of
// previously serialized plans.
func registerBuiltins(r *Registry) {
	r.Register("add", binaryOp(tensor.Add))
	r.Register("sub", binaryOp(tensor.Sub))
	r.Register("mul", binaryOp(tensor.Mul))
	r.Register("div", binaryOp(tensor.Div))
	r.Register("gt", binaryOp(tensor.Gt))
	r.Register("mm", binaryOp(tensor.MatMul))

	r.Register("abs", unaryOp(tensor.Abs))
	r.Register("neg", unaryOp(tensor.Neg))
	r.Register("relu", unaryOp(tensor.Relu))
	r.Register("sum", unaryOp(tensor.Sum))

	r.Register("log_softmax", func(_ context.Context, c *Call) ([]*tensor.Tensor, error) {
		ts, err := c.operands(1)
		if err != nil {
			return nil, err
		}
		dim := 0
		if v, ok := c.Kwargs["dim"]; ok {
			if dim, err = asInt(v); err != nil {
				return nil, err
			}
		}
		return single(tensor.LogSoftmax(ts[0], dim))
	})

	r.Register("linear", func(_ context.Context, c *Call) ([]*tensor.Tensor, error) {
		ts, err := c.operands(3)
		if err != nil {
			return nil, err
		}
		return single(tensor.Linear(ts[0], ts[1], ts[2]))
	})

	r.Register("split", func(_ context.Context, c *Call) ([]*tensor.Tensor, error) {
		ts, err := c.operands(1)
		if err != nil {
			return nil, err
		}
		raw, err := c.arg(len(c.Args) - 1)
		if err != nil {
			return nil, err
		}
		size, err := asInt(raw)
		if err != nil {
			return nil, err
		}
		return tensor.Split(ts[0], size)
	})

	r.Register("tensor", func(_ context.Context, c *Call) ([]*tensor.Tensor, error) {
		raw, err := c.arg(0)
		if err != nil {
			return nil, err
		}
		vals, err := asFloats(raw)
		if err != nil {
			return nil, err
		}
		return []*tensor.Tensor{tensor.Vector(vals...)}, nil
	})

	r.Register("arange", func(_ context.Context, c *Call) ([]*tensor.Tensor, error) {
		raw, err := c.arg(0)
		if err != nil {
			return nil, err
		}
		n, err := asInt(raw)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, fmt.Errorf("ops: arange bound must be non-negative, got %d", n)
		}
		return []*tensor.Tensor{tensor.Arange(n)}, nil
	})

	r.Register("rand", func(_ context.Context, c *Call) ([]*tensor.Tensor, error) {
		raw, err := c.arg(0)
		if err != nil {
			return nil, err
		}
		shape, err := asInts(raw)
		if err != nil {
			return nil, err
		}
		return []*tensor.Tensor{tensor.Rand(c.Env.RNG(), shape...)}, nil
	})

	r.Register("randint", func(_ context.Context, c *Call) ([]*tensor.Tensor, error) {
		rawMax, err := c.arg(0)
		if err != nil {
			return nil, err
		}
		max, err := asInt(rawMax)
		if err != nil {
			return nil, err
		}
		if max <= 0 {
			return nil, fmt.Errorf("ops: randint bound must be positive, got %d", max)
		}
		rawSize, err := c.arg(1)
		if err != nil {
			return nil, err
		}
		size, err := asInts(rawSize)
		if err != nil {
			return nil, err
		}
		return []*tensor.Tensor{tensor.RandInt(c.Env.RNG(), max, size...)}, nil
	})

	// manual_seed mutates the execution environment and produces no
	// outputs. Replay order matters: later random operations observe it.
	r.Register("manual_seed", func(_ context.Context, c *Call) ([]*tensor.Tensor, error) {
		raw, err := c.arg(0)
		if err != nil {
			return nil, err
		}
		seed, err := asInt(raw)
		if err != nil {
			return nil, err
		}
		c.Env.Seed(int64(seed))
		return nil, nil
	})
}
