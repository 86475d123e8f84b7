package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable bytecode listing for the chunk.
func (c *Chunk) Disassemble() string {
	return c.DisassembleWithName("")
}

// DisassembleWithName returns a human-readable bytecode listing with a name header.
func (c *Chunk) DisassembleWithName(name string) string {
	var sb strings.Builder

	if name != "" {
		sb.WriteString(fmt.Sprintf("== %s ==\n", name))
	}
	for offset := range c.Code {
		sb.WriteString(c.DisassembleInstruction(offset))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// DisassembleInstruction formats one instruction:
//
//	0000    1 CONSTANT         0 '1.2'
//	0001    | NEG
//
// A line number equal to the previous instruction's is shown as '|'.
func (c *Chunk) DisassembleInstruction(offset int) string {
	if offset < 0 || offset >= len(c.Code) {
		return fmt.Sprintf("%04d <out of range>", offset)
	}
	in := c.Code[offset]

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%04d ", offset))
	if offset > 0 && c.Line(offset) == c.Line(offset-1) {
		sb.WriteString("   | ")
	} else {
		sb.WriteString(fmt.Sprintf("%4d ", c.Line(offset)))
	}

	if in.Op != OpConstant {
		sb.WriteString(in.Op.String())
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("%-16s %4d", in.Op.String(), in.Operand))
	if v, ok := c.Constants.Get(in.Operand); ok {
		sb.WriteString(fmt.Sprintf(" '%s'", v))
	} else {
		sb.WriteString(" <invalid>")
	}
	return sb.String()
}
