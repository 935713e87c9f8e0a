package tensor

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("explicit shape", func(t *testing.T) {
		tt, err := New([]float64{1, 2, 3, 4}, 2, 2)
		require.NoError(t, err)
		assert.Equal(t, []int{2, 2}, tt.Shape())
		assert.Equal(t, 4, tt.Len())
	})

	t.Run("default shape is rank 1", func(t *testing.T) {
		tt, err := New([]float64{1, 2, 3})
		require.NoError(t, err)
		assert.Equal(t, []int{3}, tt.Shape())
	})

	t.Run("element count mismatch", func(t *testing.T) {
		_, err := New([]float64{1, 2, 3}, 2, 2)
		assert.ErrorContains(t, err, "wants 4 elements")
	})

	t.Run("non-positive dimension", func(t *testing.T) {
		_, err := New([]float64{}, 0)
		assert.ErrorContains(t, err, "invalid dimension")
	})
}

func TestCloneIsIndependent(t *testing.T) {
	a := Vector(1, 2, 3)
	b := a.Clone()
	b.Data()[0] = 99
	assert.Equal(t, 1.0, a.At(0))
	assert.True(t, a.Equal(Vector(1, 2, 3)))
	assert.False(t, a.Equal(b))
}

func TestElementwiseKernels(t *testing.T) {
	a := Vector(1, -2, 3)
	b := Vector(2, 2, 2)

	sum, err := Add(a, b)
	require.NoError(t, err)
	assert.True(t, sum.Equal(Vector(3, 0, 5)))

	prod, err := Mul(a, b)
	require.NoError(t, err)
	assert.True(t, prod.Equal(Vector(2, -4, 6)))

	diff, err := Sub(a, b)
	require.NoError(t, err)
	assert.True(t, diff.Equal(Vector(-1, -4, 1)))

	quot, err := Div(a, b)
	require.NoError(t, err)
	assert.True(t, quot.Equal(Vector(0.5, -1, 1.5)))

	cmp, err := Gt(a, b)
	require.NoError(t, err)
	assert.True(t, cmp.Equal(Vector(0, 0, 1)))

	assert.True(t, Abs(a).Equal(Vector(1, 2, 3)))
	assert.True(t, Neg(a).Equal(Vector(-1, 2, -3)))
	assert.True(t, Relu(a).Equal(Vector(1, 0, 3)))
	assert.True(t, Sum(a).Equal(Vector(2)))
}

func TestBroadcast(t *testing.T) {
	t.Run("scalar against vector", func(t *testing.T) {
		out, err := Add(Vector(1, 2, 3), Scalar(10))
		require.NoError(t, err)
		assert.True(t, out.Equal(Vector(11, 12, 13)))

		out, err = Mul(Scalar(2), Vector(1, 2, 3))
		require.NoError(t, err)
		assert.True(t, out.Equal(Vector(2, 4, 6)))
	})

	t.Run("incompatible shapes", func(t *testing.T) {
		_, err := Add(Vector(1, 2), Vector(1, 2, 3))
		assert.ErrorContains(t, err, "not broadcastable")
	})
}

func TestSplit(t *testing.T) {
	parts, err := Split(Vector(1, 2, 3, 4), 2)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.True(t, parts[0].Equal(Vector(1, 2)))
	assert.True(t, parts[1].Equal(Vector(3, 4)))

	parts, err = Split(Vector(1, 2, 3), 2)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.True(t, parts[1].Equal(Vector(3)))

	_, err = Split(Vector(1), 0)
	assert.ErrorContains(t, err, "split size must be positive")
}

func TestMatMul(t *testing.T) {
	w, err := New([]float64{1, 2, 3, 4}, 2, 2)
	require.NoError(t, err)

	out, err := MatMul(w, Vector(1, 1))
	require.NoError(t, err)
	assert.True(t, out.Equal(Vector(3, 7)))

	_, err = MatMul(w, Vector(1, 1, 1))
	assert.ErrorContains(t, err, "do not align")
}

func TestLinear(t *testing.T) {
	w, err := New([]float64{2, 0, 0, 2}, 2, 2)
	require.NoError(t, err)
	out, err := Linear(Vector(1, 2), w, Vector(1, 1))
	require.NoError(t, err)
	assert.True(t, out.Equal(Vector(3, 5)))
}

func TestLogSoftmaxSumsToOne(t *testing.T) {
	out, err := LogSoftmax(Vector(1, 2, 3), 0)
	require.NoError(t, err)
	var total float64
	for i := 0; i < out.Len(); i++ {
		total += math.Exp(out.At(i))
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestRandDeterministicPerSeed(t *testing.T) {
	a := Rand(rand.New(rand.NewSource(7)), 4)
	b := Rand(rand.New(rand.NewSource(7)), 4)
	assert.True(t, a.Equal(b))

	r := RandInt(rand.New(rand.NewSource(7)), 2, 3)
	for i := 0; i < r.Len(); i++ {
		assert.Contains(t, []float64{0, 1}, r.At(i))
	}
}

func TestArange(t *testing.T) {
	assert.True(t, Arange(3).Equal(Vector(0, 1, 2)))
	assert.Equal(t, 0, Arange(0).Len())
}

func TestShapeValidate(t *testing.T) {
	assert.NoError(t, Shape{1}.Validate())
	assert.NoError(t, Shape{-1, 1}.Validate())
	assert.ErrorContains(t, Shape{-1, -1}.Validate(), "wildcard")
	assert.ErrorContains(t, Shape{1, -20}.Validate(), "invalid dimension")
}

func TestShapeMaterializeAndMatches(t *testing.T) {
	s := Shape{-1, 2}
	assert.Equal(t, []int{1, 2}, s.Materialize())
	assert.True(t, s.Matches([]int{5, 2}))
	assert.False(t, s.Matches([]int{5, 3}))
	assert.False(t, s.Matches([]int{2}))
}
