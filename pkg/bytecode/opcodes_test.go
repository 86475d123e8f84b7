package bytecode

import (
	"strings"
	"testing"
)

func TestAllOpcodesHaveMetadata(t *testing.T) {
	// Ensure every defined opcode has metadata
	for _, op := range AllOpcodes() {
		info := GetOpcodeInfo(op)
		if info.Name == "" || strings.HasPrefix(info.Name, "UNKNOWN") {
			t.Errorf("Opcode 0x%02X has no metadata", byte(op))
		}
		if strings.ToUpper(info.Name) != info.Name {
			t.Errorf("Opcode name %q is not uppercase", info.Name)
		}
	}
	if len(AllOpcodes()) != 14 {
		t.Errorf("got %d opcodes, want 14", len(AllOpcodes()))
	}
}

func TestOpcodeString(t *testing.T) {
	tests := []struct {
		op   Opcode
		want string
	}{
		{OpConstant, "CONSTANT"},
		{OpNil, "NIL"},
		{OpTrue, "TRUE"},
		{OpFalse, "FALSE"},
		{OpAdd, "ADD"},
		{OpSub, "SUB"},
		{OpMul, "MUL"},
		{OpDiv, "DIV"},
		{OpNeg, "NEG"},
		{OpNot, "NOT"},
		{OpEqual, "EQUAL"},
		{OpGreater, "GREATER"},
		{OpLess, "LESS"},
		{OpReturn, "RETURN"},
	}

	for _, tt := range tests {
		got := tt.op.String()
		if got != tt.want {
			t.Errorf("Opcode(0x%02X).String() = %q, want %q", byte(tt.op), got, tt.want)
		}
	}
}

func TestUnknownOpcodeString(t *testing.T) {
	op := Opcode(0xEE) // Not defined
	if got := op.String(); !strings.HasPrefix(got, "UNKNOWN") {
		t.Errorf("Unknown opcode should return UNKNOWN, got %q", got)
	}
	if op.Valid() {
		t.Error("0xEE reported as valid")
	}
}

func TestInstructionString(t *testing.T) {
	if got := Constant(3).String(); got != "CONSTANT 3" {
		t.Errorf("Constant(3) = %q", got)
	}
	if got := Instr(OpAdd).String(); got != "ADD" {
		t.Errorf("Instr(OpAdd) = %q", got)
	}
}
