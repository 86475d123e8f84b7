package bytecode

import (
	"strings"
	"testing"

	"github.com/chazu/lox/lib/runtime"
)

func TestDisassemble(t *testing.T) {
	chunk, err := Compile("-1.2 +\n3")
	if err != nil {
		t.Fatal(err)
	}

	want := strings.Join([]string{
		"== test ==",
		"0000    1 CONSTANT            0 '1.2'",
		"0001    | NEG",
		"0002    2 CONSTANT            1 '3'",
		"0003    1 ADD",
		"0004    2 RETURN",
		"",
	}, "\n")
	if got := chunk.DisassembleWithName("test"); got != want {
		t.Errorf("Disassemble =\n%s\nwant\n%s", got, want)
	}
}

func TestDisassembleInvalidConstant(t *testing.T) {
	c := NewChunk()
	c.Write(Constant(3), 1)
	if got := c.DisassembleInstruction(0); !strings.Contains(got, "<invalid>") {
		t.Errorf("got %q", got)
	}
	if got := c.DisassembleInstruction(5); !strings.Contains(got, "out of range") {
		t.Errorf("got %q", got)
	}
}

func TestDisassembleStringConstant(t *testing.T) {
	c := NewChunk()
	c.EmitConstant(runtime.StringValue("hi"), 7)
	if got := c.Disassemble(); !strings.Contains(got, "'hi'") || !strings.HasPrefix(got, "0000    7 ") {
		t.Errorf("got %q", got)
	}
}
