package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/planweave/internal/placeholder"
	"github.com/vk/planweave/internal/tensor"
)

func TestArgumentRoundTrip(t *testing.T) {
	cases := map[string]Argument{
		"placeholder": Ref(placeholder.ID(42)),
		"tensor":      TensorLit(tensor.Vector(1, -2, 3)),
		"int":         Int(7),
		"float":       Float(2.5),
		"string":      Str("dim"),
		"bool":        Lit(cty.True),
		"nested list": ListOf(Int(1), ListOf(Float(2), Str("x")), Ref(placeholder.ID(9))),
	}

	for name, arg := range cases {
		t.Run(name, func(t *testing.T) {
			raw, err := msgpack.Marshal(arg)
			require.NoError(t, err)

			var back Argument
			require.NoError(t, msgpack.Unmarshal(raw, &back))
			assert.Equal(t, arg.Kind, back.Kind)

			switch arg.Kind {
			case KindPlaceholder:
				assert.Equal(t, arg.Ref, back.Ref)
			case KindTensor:
				assert.True(t, arg.Tensor.Equal(back.Tensor))
			case KindLiteral:
				assert.True(t, arg.Literal.RawEquals(back.Literal))
			case KindList:
				require.Len(t, back.List, len(arg.List))
				assert.Equal(t, arg.List[0].Kind, back.List[0].Kind)
			}
		})
	}
}

func TestArgumentKeepsStreamAligned(t *testing.T) {
	// An argument must encode as exactly one msgpack value so that fields
	// following it in an embedding struct decode from the right offset.
	type envelope struct {
		Arg   Argument `msgpack:"arg"`
		After int64    `msgpack:"after"`
	}

	for name, arg := range map[string]Argument{
		"ref":     Ref(placeholder.ID(3)),
		"tensor":  TensorLit(tensor.Vector(1, 2)),
		"literal": Int(5),
		"list":    ListOf(Int(1), Str("x")),
	} {
		t.Run(name, func(t *testing.T) {
			raw, err := msgpack.Marshal(envelope{Arg: arg, After: 77})
			require.NoError(t, err)

			var back envelope
			require.NoError(t, msgpack.Unmarshal(raw, &back))
			assert.Equal(t, arg.Kind, back.Arg.Kind)
			assert.Equal(t, int64(77), back.After)
		})
	}
}

func TestComputeRoundTrip(t *testing.T) {
	target := Ref(placeholder.ID(1))
	rec := Compute{
		Op:      "log_softmax",
		Target:  &target,
		Args:    []Argument{TensorLit(tensor.Vector(1, 2))},
		Kwargs:  map[string]Argument{"dim": Int(0)},
		Returns: []placeholder.ID{2},
	}

	raw, err := msgpack.Marshal(rec)
	require.NoError(t, err)

	var back Compute
	require.NoError(t, msgpack.Unmarshal(raw, &back))
	assert.Equal(t, "log_softmax", back.Op)
	require.NotNil(t, back.Target)
	assert.Equal(t, placeholder.ID(1), back.Target.Ref)
	assert.Equal(t, []placeholder.ID{2}, back.Returns)

	dim, err := back.Kwargs["dim"].AsInt()
	require.NoError(t, err)
	assert.Equal(t, 0, dim)
}

func TestArgumentAccessors(t *testing.T) {
	i, err := Int(3).AsInt()
	require.NoError(t, err)
	assert.Equal(t, 3, i)

	f, err := Float(1.5).AsFloat()
	require.NoError(t, err)
	assert.Equal(t, 1.5, f)

	s, err := Str("abs").AsString()
	require.NoError(t, err)
	assert.Equal(t, "abs", s)

	_, err = Ref(1).AsInt()
	assert.Error(t, err)
	_, err = Int(3).AsString()
	assert.Error(t, err)
}

func TestCommunicationVerbValidation(t *testing.T) {
	comm, err := NewCommunication(5, "move", "alice", []string{"bob"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "move", comm.Verb)

	_, err = NewCommunication(5, "float_prec", "alice", []string{"bob"}, nil)
	assert.ErrorContains(t, err, "not a supported communication action")
}

func TestCommunicationRoundTrip(t *testing.T) {
	comm, err := NewCommunication(5, "remote_send", "alice", []string{"bob", "charlie"}, nil)
	require.NoError(t, err)

	raw, err := msgpack.Marshal(comm)
	require.NoError(t, err)

	var back Communication
	require.NoError(t, msgpack.Unmarshal(raw, &back))
	assert.True(t, comm.Equal(back))
}

func TestCloneIndependence(t *testing.T) {
	target := TensorLit(tensor.Vector(1, 2))
	rec := Compute{
		Op:      "add",
		Target:  &target,
		Args:    []Argument{TensorLit(tensor.Vector(3, 4))},
		Returns: []placeholder.ID{7},
	}

	cp := rec.Clone()
	cp.Target.Tensor.Data()[0] = 99
	cp.Args[0].Tensor.Data()[0] = 99

	assert.Equal(t, 1.0, rec.Target.Tensor.At(0))
	assert.Equal(t, 3.0, rec.Args[0].Tensor.At(0))
}
