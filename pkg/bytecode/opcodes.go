package bytecode

import "fmt"

// Opcode represents a bytecode instruction.
// Opcodes are organized into ranges by category for easy identification.
type Opcode byte

const (
	// ========================================================================
	// Constants (0x10-0x1F)
	// ========================================================================

	OpConstant Opcode = 0x10 // Push constant from pool: Constant <index:u8>
	OpNil      Opcode = 0x11 // Push nil
	OpTrue     Opcode = 0x12 // Push true
	OpFalse    Opcode = 0x13 // Push false

	// ========================================================================
	// Arithmetic (0x50-0x5F)
	// ========================================================================

	OpAdd Opcode = 0x50 // Pop two, push sum (or concatenation of two strings)
	OpSub Opcode = 0x51 // Pop two, push difference (a - b where b is TOS)
	OpMul Opcode = 0x52 // Pop two, push product
	OpDiv Opcode = 0x53 // Pop two, push quotient
	OpNeg Opcode = 0x55 // Negate top of stack

	// ========================================================================
	// Comparison (0x60-0x6F)
	// ========================================================================

	OpEqual   Opcode = 0x60 // Pop two, push true if equal
	OpLess    Opcode = 0x62 // Pop two, push true if a < b
	OpGreater Opcode = 0x64 // Pop two, push true if a > b

	// ========================================================================
	// Logical operations (0x68-0x6F)
	// ========================================================================

	OpNot Opcode = 0x68 // Push true if TOS is falsy

	// ========================================================================
	// Return (0xF0-0xFF)
	// ========================================================================

	OpReturn Opcode = 0xF0 // Pop and print TOS, stop execution
)

// OpcodeInfo contains metadata about an opcode.
type OpcodeInfo struct {
	Name       string // Human-readable name
	StackPop   int    // Number of values popped from stack
	StackPush  int    // Number of values pushed to stack
	HasOperand bool   // Whether the instruction carries an operand
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpConstant: {"CONSTANT", 0, 1, true},
	OpNil:      {"NIL", 0, 1, false},
	OpTrue:     {"TRUE", 0, 1, false},
	OpFalse:    {"FALSE", 0, 1, false},

	OpAdd: {"ADD", 2, 1, false},
	OpSub: {"SUB", 2, 1, false},
	OpMul: {"MUL", 2, 1, false},
	OpDiv: {"DIV", 2, 1, false},
	OpNeg: {"NEG", 1, 1, false},

	OpEqual:   {"EQUAL", 2, 1, false},
	OpLess:    {"LESS", 2, 1, false},
	OpGreater: {"GREATER", 2, 1, false},

	OpNot: {"NOT", 1, 1, false},

	OpReturn: {"RETURN", 1, 0, false},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// Valid reports whether op is a defined opcode.
func (op Opcode) Valid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// AllOpcodes returns a slice of all defined opcodes.
// Useful for testing that all opcodes have metadata.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// Instruction is one fixed-width instruction. The operand travels inside
// the instruction; it is only meaningful for opcodes that carry one.
type Instruction struct {
	Op      Opcode `cbor:"1,keyasint"`
	Operand byte   `cbor:"2,keyasint,omitempty"`
}

// Instr builds an instruction without an operand.
func Instr(op Opcode) Instruction {
	return Instruction{Op: op}
}

// Constant builds a Constant instruction for pool index idx.
func Constant(idx byte) Instruction {
	return Instruction{Op: OpConstant, Operand: idx}
}

func (in Instruction) String() string {
	if GetOpcodeInfo(in.Op).HasOperand {
		return fmt.Sprintf("%s %d", in.Op, in.Operand)
	}
	return in.Op.String()
}
