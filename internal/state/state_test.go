package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/vk/planweave/internal/tensor"
)

func TestNewMintsDistinctIDs(t *testing.T) {
	s := New(tensor.Vector(1), tensor.Vector(2))
	ids := s.IDs()
	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
	assert.Equal(t, 2, s.Len())
}

func TestReadReturnsDeclarationOrder(t *testing.T) {
	s := New(tensor.Vector(1), tensor.Vector(2, 3))
	ts := s.Read()
	require.Len(t, ts, 2)
	assert.Equal(t, []float64{1}, ts[0].Data())
	assert.Equal(t, []float64{2, 3}, ts[1].Data())
}

func TestSetBounds(t *testing.T) {
	s := New(tensor.Vector(1))
	require.NoError(t, s.Set(0, tensor.Vector(9)))
	assert.Equal(t, []float64{9}, s.Read()[0].Data())
	assert.Error(t, s.Set(1, tensor.Vector(0)))
	assert.Error(t, s.Set(-1, tensor.Vector(0)))
}

func TestCopyKeepsIDsButNotStorage(t *testing.T) {
	s := New(tensor.Vector(5))
	cp := s.Copy()

	assert.Equal(t, s.IDs(), cp.IDs())

	cp.Read()[0].Data()[0] = 99
	require.NoError(t, cp.Set(0, tensor.Vector(42)))
	assert.Equal(t, []float64{5}, s.Read()[0].Data())
}

func TestEmptyStateKeepsStreamAligned(t *testing.T) {
	// A pure function's plan carries an empty state. The codec must emit
	// exactly one msgpack value for it, or fields encoded after the state
	// in an embedding struct are misread.
	type envelope struct {
		State *State `msgpack:"state"`
		Built bool   `msgpack:"built"`
	}

	raw, err := msgpack.Marshal(envelope{State: New(), Built: true})
	require.NoError(t, err)

	var back envelope
	require.NoError(t, msgpack.Unmarshal(raw, &back))
	assert.True(t, back.Built)
	require.NotNil(t, back.State)
	assert.Equal(t, 0, back.State.Len())
}

func TestStateRoundTrip(t *testing.T) {
	s := New(tensor.Vector(1, 2), tensor.Scalar(3))
	raw, err := msgpack.Marshal(s)
	require.NoError(t, err)

	var back State
	require.NoError(t, msgpack.Unmarshal(raw, &back))
	assert.Equal(t, s.IDs(), back.IDs())
	require.Equal(t, 2, back.Len())
	assert.True(t, s.Read()[0].Equal(back.Read()[0]))
	assert.True(t, s.Read()[1].Equal(back.Read()[1]))
}
