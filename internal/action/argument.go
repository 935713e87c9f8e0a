package action

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zclconf/go-cty/cty"
	ctymsgpack "github.com/zclconf/go-cty/cty/msgpack"

	"github.com/vk/planweave/internal/placeholder"
	"github.com/vk/planweave/internal/tensor"
)

// Kind discriminates the argument union.
type Kind uint8

const (
	// KindPlaceholder references a placeholder slot by ID.
	KindPlaceholder Kind = iota + 1
	// KindTensor captures a tensor literal verbatim at trace time.
	KindTensor
	// KindLiteral captures a plain (non-tensor) value: numbers, strings,
	// bools, shape tuples. Literals are trace-time constants and cannot be
	// overridden at replay.
	KindLiteral
	// KindList is an ordered nested sequence of arguments.
	KindList
)

// Argument is one operand of a recorded action: a placeholder reference, a
// captured literal, or a nested sequence of those.
type Argument struct {
	Kind    Kind
	Ref     placeholder.ID
	Tensor  *tensor.Tensor
	Literal cty.Value
	List    []Argument
}

// Ref builds a placeholder-reference argument.
func Ref(id placeholder.ID) Argument {
	return Argument{Kind: KindPlaceholder, Ref: id}
}

// TensorLit builds a captured tensor-literal argument.
func TensorLit(t *tensor.Tensor) Argument {
	return Argument{Kind: KindTensor, Tensor: t}
}

// Lit builds a plain literal argument from a cty value.
func Lit(v cty.Value) Argument {
	return Argument{Kind: KindLiteral, Literal: v}
}

// Int builds an integer literal argument.
func Int(i int) Argument {
	return Lit(cty.NumberIntVal(int64(i)))
}

// Float builds a float literal argument.
func Float(f float64) Argument {
	return Lit(cty.NumberFloatVal(f))
}

// Str builds a string literal argument.
func Str(s string) Argument {
	return Lit(cty.StringVal(s))
}

// ListOf builds a nested-sequence argument.
func ListOf(args ...Argument) Argument {
	return Argument{Kind: KindList, List: args}
}

// AsInt extracts an integer from a literal argument.
func (a Argument) AsInt() (int, error) {
	if a.Kind != KindLiteral || a.Literal.Type() != cty.Number {
		return 0, fmt.Errorf("action: argument is not a numeric literal")
	}
	i, _ := a.Literal.AsBigFloat().Int64()
	return int(i), nil
}

// AsFloat extracts a float from a literal argument.
func (a Argument) AsFloat() (float64, error) {
	if a.Kind != KindLiteral || a.Literal.Type() != cty.Number {
		return 0, fmt.Errorf("action: argument is not a numeric literal")
	}
	f, _ := a.Literal.AsBigFloat().Float64()
	return f, nil
}

// AsString extracts a string from a literal argument.
func (a Argument) AsString() (string, error) {
	if a.Kind != KindLiteral || a.Literal.Type() != cty.String {
		return "", fmt.Errorf("action: argument is not a string literal")
	}
	return a.Literal.AsString(), nil
}

var (
	_ msgpack.CustomEncoder = Argument{}
	_ msgpack.CustomDecoder = (*Argument)(nil)
)

// EncodeMsgpack writes one two-element array: the kind tag, then the
// variant payload. Literals go through cty's msgpack codec with a dynamic
// type so that the concrete cty type survives the round trip. The codec
// emits exactly one top-level value so embedding streams stay aligned.
func (a Argument) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(2); err != nil {
		return err
	}
	if err := enc.EncodeUint8(uint8(a.Kind)); err != nil {
		return err
	}
	switch a.Kind {
	case KindPlaceholder:
		return enc.EncodeInt64(int64(a.Ref))
	case KindTensor:
		return enc.Encode(a.Tensor)
	case KindLiteral:
		raw, err := ctymsgpack.Marshal(a.Literal, cty.DynamicPseudoType)
		if err != nil {
			return fmt.Errorf("action: encoding literal: %w", err)
		}
		return enc.EncodeBytes(raw)
	case KindList:
		if err := enc.EncodeArrayLen(len(a.List)); err != nil {
			return err
		}
		for _, elem := range a.List {
			if err := elem.EncodeMsgpack(enc); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("action: cannot encode argument kind %d", a.Kind)
	}
}

// DecodeMsgpack is the inverse of EncodeMsgpack.
func (a *Argument) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n != 2 {
		return fmt.Errorf("action: malformed argument encoding, want 2 elements, got %d", n)
	}
	kind, err := dec.DecodeUint8()
	if err != nil {
		return err
	}
	a.Kind = Kind(kind)
	switch a.Kind {
	case KindPlaceholder:
		id, err := dec.DecodeInt64()
		if err != nil {
			return err
		}
		a.Ref = placeholder.ID(id)
		return nil
	case KindTensor:
		a.Tensor = &tensor.Tensor{}
		return dec.Decode(a.Tensor)
	case KindLiteral:
		raw, err := dec.DecodeBytes()
		if err != nil {
			return err
		}
		v, err := ctymsgpack.Unmarshal(raw, cty.DynamicPseudoType)
		if err != nil {
			return fmt.Errorf("action: decoding literal: %w", err)
		}
		a.Literal = v
		return nil
	case KindList:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return err
		}
		a.List = make([]Argument, n)
		for i := range a.List {
			if err := a.List[i].DecodeMsgpack(dec); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("action: cannot decode argument kind %d", kind)
	}
}
