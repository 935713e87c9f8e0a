package ops

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/vk/planweave/internal/tensor"
)

// Handler executes one operation against already-resolved operands and
// returns the produced tensors, one per output.
type Handler func(ctx context.Context, call *Call) ([]*tensor.Tensor, error)

// Call carries the resolved operands of a single dispatch. Target is the
// receiver for method-style operations and nil for namespace functions.
// Args and Kwargs hold tensors for data-flow operands and native Go values
// for captured literals.
type Call struct {
	Target *tensor.Tensor
	Args   []any
	Kwargs map[string]any
	Env    *Env
}

// Env is the per-execution environment. It owns the RNG shared by the
// random operations so that a manual_seed action replayed in recorded
// order reproduces the traced values exactly.
type Env struct {
	rng *rand.Rand
}

// NewEnv creates an execution environment with the given RNG seed.
func NewEnv(seed int64) *Env {
	return &Env{rng: rand.New(rand.NewSource(seed))}
}

// RNG returns the environment's random source.
func (e *Env) RNG() *rand.Rand {
	return e.rng
}

// Seed re-seeds the environment's random source.
func (e *Env) Seed(s int64) {
	e.rng = rand.New(rand.NewSource(s))
}

// operands returns the receiver (if any) followed by all positional tensor
// arguments, enforcing the expected count.
func (c *Call) operands(want int) ([]*tensor.Tensor, error) {
	var out []*tensor.Tensor
	if c.Target != nil {
		out = append(out, c.Target)
	}
	for _, a := range c.Args {
		if t, ok := a.(*tensor.Tensor); ok {
			out = append(out, t)
		}
	}
	if len(out) != want {
		return nil, fmt.Errorf("ops: expected %d tensor operands, got %d", want, len(out))
	}
	return out, nil
}

// arg returns the i-th positional argument.
func (c *Call) arg(i int) (any, error) {
	if i >= len(c.Args) {
		return nil, fmt.Errorf("ops: missing positional argument %d", i)
	}
	return c.Args[i], nil
}

func asInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		return int(x), nil
	default:
		return 0, fmt.Errorf("ops: expected integer, got %T", v)
	}
}

func asInts(v any) ([]int, error) {
	switch x := v.(type) {
	case []int:
		return x, nil
	case []any:
		out := make([]int, len(x))
		for i, e := range x {
			n, err := asInt(e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("ops: expected integer list, got %T", v)
	}
}

func asFloats(v any) ([]float64, error) {
	switch x := v.(type) {
	case []float64:
		return x, nil
	case []any:
		out := make([]float64, len(x))
		for i, e := range x {
			switch f := e.(type) {
			case float64:
				out[i] = f
			case int:
				out[i] = float64(f)
			case int64:
				out[i] = float64(f)
			default:
				return nil, fmt.Errorf("ops: expected number, got %T", e)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("ops: expected number list, got %T", v)
	}
}
