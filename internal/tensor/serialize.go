package tensor

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	_ msgpack.CustomEncoder = (*Tensor)(nil)
	_ msgpack.CustomDecoder = (*Tensor)(nil)
)

// EncodeMsgpack writes the tensor as one two-element array holding the
// shape and the data. Unexported storage keeps Tensor immutable from the
// outside, so the codec is explicit rather than struct-tag driven; the
// single-value framing keeps embedding streams aligned.
func (t *Tensor) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(2); err != nil {
		return err
	}
	if err := enc.Encode(t.shape); err != nil {
		return err
	}
	return enc.Encode(t.data)
}

// DecodeMsgpack is the inverse of EncodeMsgpack.
func (t *Tensor) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n != 2 {
		return fmt.Errorf("tensor: malformed encoding, want 2 elements, got %d", n)
	}
	if err := dec.Decode(&t.shape); err != nil {
		return err
	}
	return dec.Decode(&t.data)
}
