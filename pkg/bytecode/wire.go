package bytecode

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/chazu/lox/lib/runtime"
	"github.com/fxamacker/cbor/v2"
)

// BytecodeMagic prefixes every serialized chunk: "LXBC" (Lox ByteCode).
var BytecodeMagic = []byte{'L', 'X', 'B', 'C'}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// wireValue is the serialized form of a constant. Only numbers and
// strings appear in the pool.
type wireValue struct {
	Type   runtime.ValueType `cbor:"1,keyasint"`
	Number float64           `cbor:"2,keyasint,omitempty"`
	Bool   bool              `cbor:"3,keyasint,omitempty"`
	String string            `cbor:"4,keyasint,omitempty"`
}

type wireChunk struct {
	Version   uint16        `cbor:"1,keyasint"`
	Code      []Instruction `cbor:"2,keyasint"`
	Lines     []int         `cbor:"3,keyasint"`
	Constants []wireValue   `cbor:"4,keyasint"`
}

// MarshalChunk serializes a Chunk to bytes: the magic prefix followed by
// canonical CBOR, so equal chunks encode identically.
func MarshalChunk(c *Chunk) ([]byte, error) {
	w := wireChunk{
		Version: c.Version,
		Code:    c.Code,
		Lines:   c.Lines,
	}
	for i, v := range c.Constants.Values() {
		switch v.Type {
		case runtime.TypeNil, runtime.TypeNumber, runtime.TypeBool, runtime.TypeString:
			w.Constants = append(w.Constants, wireValue{Type: v.Type, Number: v.NumberVal, Bool: v.BoolVal, String: v.StringVal})
		default:
			return nil, fmt.Errorf("bytecode: constant %d: cannot serialize %s", i, v.Type)
		}
	}

	body, err := cborEncMode.Marshal(&w)
	if err != nil {
		return nil, fmt.Errorf("bytecode: marshal chunk: %w", err)
	}
	return append(append([]byte{}, BytecodeMagic...), body...), nil
}

// UnmarshalChunk deserializes and validates a chunk produced by
// MarshalChunk.
func UnmarshalChunk(data []byte) (*Chunk, error) {
	if !bytes.HasPrefix(data, BytecodeMagic) {
		return nil, errors.New("bytecode: not a serialized chunk (bad magic)")
	}

	var w wireChunk
	if err := cbor.Unmarshal(data[len(BytecodeMagic):], &w); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal chunk: %w", err)
	}
	if w.Version != BytecodeVersion {
		return nil, fmt.Errorf("bytecode: unsupported version %d (want %d)", w.Version, BytecodeVersion)
	}

	c := &Chunk{Version: w.Version, Code: w.Code, Lines: w.Lines}
	for _, wv := range w.Constants {
		v := runtime.Value{Type: wv.Type, NumberVal: wv.Number, BoolVal: wv.Bool, StringVal: wv.String}
		if _, err := c.Constants.Add(v); err != nil {
			return nil, fmt.Errorf("bytecode: unmarshal chunk: %w", err)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal chunk: %w", err)
	}
	return c, nil
}
