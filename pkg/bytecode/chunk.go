package bytecode

import (
	"fmt"

	"github.com/chazu/lox/lib/runtime"
)

// BytecodeVersion is the current bytecode format version.
// Increment when making incompatible changes to the format.
const BytecodeVersion uint16 = 1

// MaxConstants is the size of the constant pool. Indexes are a single byte.
const MaxConstants = 256

// ConstantPool is the append-only table of literal values referenced by
// Constant instructions.
type ConstantPool struct {
	values []runtime.Value
}

// Add appends v and returns its index. It fails with ErrConstantPoolFull
// once the pool holds MaxConstants values.
func (p *ConstantPool) Add(v runtime.Value) (byte, error) {
	if len(p.values) >= MaxConstants {
		return 0, ErrConstantPoolFull
	}
	p.values = append(p.values, v)
	return byte(len(p.values) - 1), nil
}

// Get returns the constant at idx.
func (p *ConstantPool) Get(idx byte) (runtime.Value, bool) {
	if int(idx) >= len(p.values) {
		return runtime.Value{}, false
	}
	return p.values[idx], true
}

// Len returns the number of constants in the pool.
func (p *ConstantPool) Len() int {
	return len(p.values)
}

// Values returns the pool contents in index order.
func (p *ConstantPool) Values() []runtime.Value {
	return p.values
}

// Chunk is a compiled unit: a flat instruction buffer, the source line of
// each instruction, and the constants the instructions refer to.
// len(Code) == len(Lines) always holds.
type Chunk struct {
	Version   uint16
	Code      []Instruction
	Lines     []int
	Constants ConstantPool
}

// NewChunk creates a new empty chunk with the current version.
func NewChunk() *Chunk {
	return &Chunk{
		Version: BytecodeVersion,
		Code:    make([]Instruction, 0, 16),
		Lines:   make([]int, 0, 16),
	}
}

// Write appends an instruction and the line it came from. It returns the
// instruction's offset.
func (c *Chunk) Write(in Instruction, line int) int {
	c.Code = append(c.Code, in)
	c.Lines = append(c.Lines, line)
	return len(c.Code) - 1
}

// Emit appends an operand-free instruction.
func (c *Chunk) Emit(op Opcode, line int) int {
	return c.Write(Instr(op), line)
}

// AddConstant adds v to the constant pool and returns its index.
func (c *Chunk) AddConstant(v runtime.Value) (byte, error) {
	return c.Constants.Add(v)
}

// EmitConstant adds v to the pool and emits a Constant instruction for it.
func (c *Chunk) EmitConstant(v runtime.Value, line int) (int, error) {
	idx, err := c.AddConstant(v)
	if err != nil {
		return 0, err
	}
	return c.Write(Constant(idx), line), nil
}

// Constant returns the value a Constant instruction refers to. An index
// outside the pool is an InternalError.
func (c *Chunk) Constant(offset int, idx byte) (runtime.Value, error) {
	v, ok := c.Constants.Get(idx)
	if !ok {
		return runtime.Value{}, &InternalError{
			Offset: offset,
			Err:    fmt.Errorf("constant index %d out of range (pool has %d)", idx, c.Constants.Len()),
		}
	}
	return v, nil
}

// Line returns the source line of the instruction at offset, or 0.
func (c *Chunk) Line(offset int) int {
	if offset < 0 || offset >= len(c.Lines) {
		return 0
	}
	return c.Lines[offset]
}

// CodeLen returns the number of instructions.
func (c *Chunk) CodeLen() int {
	return len(c.Code)
}

// Validate checks the chunk invariants: matching code and line lengths,
// known opcodes, constant indexes inside the pool, and constants the wire
// format can carry (nil, number, bool, string). Chunks loaded from
// outside the compiler must pass before they run.
func (c *Chunk) Validate() error {
	if len(c.Code) != len(c.Lines) {
		return &InternalError{Offset: 0, Err: fmt.Errorf("%d instructions but %d line entries", len(c.Code), len(c.Lines))}
	}
	for i, v := range c.Constants.Values() {
		switch v.Type {
		case runtime.TypeNil, runtime.TypeNumber, runtime.TypeBool, runtime.TypeString:
		default:
			return &InternalError{Offset: 0, Err: fmt.Errorf("constant %d has unsupported type %s", i, v.Type)}
		}
	}
	for i, in := range c.Code {
		if !in.Op.Valid() {
			return &InternalError{Offset: i, Err: fmt.Errorf("unknown opcode 0x%02X", byte(in.Op))}
		}
		if in.Op == OpConstant {
			if _, err := c.Constant(i, in.Operand); err != nil {
				return err
			}
		}
	}
	return nil
}
