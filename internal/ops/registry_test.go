package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/planweave/internal/tensor"
)

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	r.Register("double", func(_ context.Context, c *Call) ([]*tensor.Tensor, error) {
		ts, err := c.operands(1)
		if err != nil {
			return nil, err
		}
		return single(tensor.Mul(ts[0], tensor.Scalar(2)))
	})

	h, err := r.Lookup("double")
	require.NoError(t, err)
	outs, err := h(context.Background(), &Call{Target: tensor.Vector(1, 2)})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4}, outs[0].Data())

	_, err = r.Lookup("missing")
	assert.ErrorContains(t, err, `unknown operation "missing"`)
}

func TestRegisterDuplicatePanics(t *testing.T) {
	r := New()
	r.Register("noop", func(context.Context, *Call) ([]*tensor.Tensor, error) { return nil, nil })
	assert.Panics(t, func() {
		r.Register("noop", func(context.Context, *Call) ([]*tensor.Tensor, error) { return nil, nil })
	})
}

func TestDefaultCarriesBuiltins(t *testing.T) {
	r := Default()
	names := r.Names()
	assert.Contains(t, names, "add")
	assert.Contains(t, names, "split")
	assert.Contains(t, names, "manual_seed")
	assert.IsIncreasing(t, names)
}

func TestSplitHandlerMultiOutput(t *testing.T) {
	r := Default()
	h, err := r.Lookup("split")
	require.NoError(t, err)

	outs, err := h(context.Background(), &Call{Target: tensor.Vector(1, 2, 3), Args: []any{2}})
	require.NoError(t, err)
	require.Len(t, outs, 2)
	assert.Equal(t, []float64{1, 2}, outs[0].Data())
	assert.Equal(t, []float64{3}, outs[1].Data())
}

func TestManualSeedReseedsEnv(t *testing.T) {
	r := Default()
	seed, err := r.Lookup("manual_seed")
	require.NoError(t, err)
	randint, err := r.Lookup("randint")
	require.NoError(t, err)

	draw := func(env *Env) []float64 {
		c := &Call{Args: []any{100, []int{8}}, Env: env}
		outs, err := randint(context.Background(), c)
		require.NoError(t, err)
		return outs[0].Data()
	}

	env := NewEnv(1)
	first := draw(env)

	_, err = seed(context.Background(), &Call{Args: []any{7}, Env: env})
	require.NoError(t, err)
	afterSeed := draw(env)

	_, err = seed(context.Background(), &Call{Args: []any{7}, Env: env})
	require.NoError(t, err)
	assert.Equal(t, afterSeed, draw(env), "identical seeds must reproduce the draw")
	assert.NotEqual(t, first, afterSeed)
}
