package bytecode

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/chazu/lox/lib/runtime"
)

// run compiles and executes source, returning the printed output.
func run(t *testing.T, source string) (string, runtime.Value, error) {
	t.Helper()
	chunk, err := Compile(source)
	if err != nil {
		t.Fatalf("Compile(%q): %v", source, err)
	}
	var out bytes.Buffer
	v, err := NewVM(&out).Run(chunk)
	return out.String(), v, err
}

func TestVMEvaluation(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"1 + 2 * 3", "7"},
		{"8 - 4 - 2", "2"},
		{"8 / 4 / 2", "1"},
		{"(1 + 2) * 3", "9"},
		{"-(3 - 5)", "2"},
		{"1.5 * 2", "3"},
		{"7 / 2", "3.5"},
		{`"a" + "b"`, "ab"},
		{"!nil", "true"},
		{"!0", "false"},
		{`!""`, "false"},
		{"1 == 1", "true"},
		{"1 != 1", "false"},
		{`"a" == "a"`, "true"},
		{`1 == "1"`, "false"},
		{"nil == nil", "true"},
		{"nil == false", "false"},
		{"2 > 1", "true"},
		{"2 < 1", "false"},
		{"1 <= 1", "true"},
		{"1 >= 2", "false"},
		{"!(5 - 4 > 3 * 2 == !nil)", "true"},
		{"nil", "nil"},
	}

	for _, tt := range tests {
		out, _, err := run(t, tt.source)
		if err != nil {
			t.Errorf("Run(%q): %v", tt.source, err)
			continue
		}
		if got := strings.TrimSuffix(out, "\n"); got != tt.want {
			t.Errorf("Run(%q) printed %q, want %q", tt.source, got, tt.want)
		}
	}
}

func TestVMReturnValue(t *testing.T) {
	_, v, err := run(t, "1 + 2 * 3")
	if err != nil {
		t.Fatal(err)
	}
	if !v.IsNumber() || v.NumberVal != 7 {
		t.Errorf("Run returned %v, want 7", v)
	}
}

func TestVMTypeErrors(t *testing.T) {
	tests := []struct {
		source  string
		message string
	}{
		{`1 + "a"`, "Operands must be two numbers or two strings."},
		{`"a" + 1`, "Operands must be two numbers or two strings."},
		{`nil + 1`, "Operands must be two numbers or two strings."},
		{`"a" - "b"`, "Operands must be numbers."},
		{`true * 2`, "Operands must be numbers."},
		{`"a" < 1`, "Operands must be numbers."},
		{`-"a"`, "Operand must be a number."},
		{`-nil`, "Operand must be a number."},
	}

	for _, tt := range tests {
		chunk, err := Compile(tt.source)
		if err != nil {
			t.Fatalf("Compile(%q): %v", tt.source, err)
		}
		var out bytes.Buffer
		vm := NewVM(&out)
		_, err = vm.Run(chunk)

		var re *RuntimeError
		if !errors.As(err, &re) {
			t.Errorf("Run(%q): err = %v, want RuntimeError", tt.source, err)
			continue
		}
		if re.Message != tt.message {
			t.Errorf("Run(%q): message = %q, want %q", tt.source, re.Message, tt.message)
		}
		if vm.StackDepth() != 0 {
			t.Errorf("Run(%q): stack depth %d after error, want 0", tt.source, vm.StackDepth())
		}
		if out.Len() != 0 {
			t.Errorf("Run(%q): printed %q after error; execution must halt", tt.source, out.String())
		}
	}
}

func TestVMNaNComparisons(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"0/0 < 1", "false\n"},
		{"0/0 > 1", "false\n"},
		{"0/0 >= 1", "true\n"},
		{"0/0 <= 1", "true\n"},
		{"0/0 == 0/0", "false\n"},
	}
	for _, tt := range tests {
		out, _, err := run(t, tt.source)
		if err != nil {
			t.Errorf("%s: %v", tt.source, err)
			continue
		}
		if out != tt.want {
			t.Errorf("%s = %q, want %q", tt.source, out, tt.want)
		}
	}
}

func TestVMRuntimeErrorLine(t *testing.T) {
	chunk, err := Compile("1 +\n\n  nil")
	if err != nil {
		t.Fatal(err)
	}
	_, err = NewVM(&bytes.Buffer{}).Run(chunk)
	var re *RuntimeError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v", err)
	}
	if re.Line != 1 {
		t.Errorf("Line = %d, want 1 (the operator's line)", re.Line)
	}
	if !strings.HasPrefix(re.Error(), "line 1: ") {
		t.Errorf("Error() = %q", re.Error())
	}
}

func TestVMStackOverflow(t *testing.T) {
	c := NewChunk()
	c.AddConstant(runtime.NumberValue(1))
	for i := 0; i <= StackMax; i++ {
		c.Write(Constant(0), 1)
	}
	c.Emit(OpReturn, 1)

	_, err := NewVM(&bytes.Buffer{}).Run(c)
	if !errors.Is(err, ErrStackOverflow) {
		t.Errorf("err = %v, want ErrStackOverflow", err)
	}
}

func TestVMStackUnderflow(t *testing.T) {
	c := NewChunk()
	c.Emit(OpAdd, 1)
	c.Emit(OpReturn, 1)

	_, err := NewVM(&bytes.Buffer{}).Run(c)
	var ie *InternalError
	if !errors.As(err, &ie) || !errors.Is(err, ErrStackUnderflow) {
		t.Errorf("err = %v, want InternalError wrapping ErrStackUnderflow", err)
	}
}

func TestVMInvalidConstant(t *testing.T) {
	c := NewChunk()
	c.Write(Constant(9), 1)
	c.Emit(OpReturn, 1)

	_, err := NewVM(&bytes.Buffer{}).Run(c)
	var ie *InternalError
	if !errors.As(err, &ie) {
		t.Errorf("err = %v, want InternalError", err)
	}
}

func TestVMMissingReturn(t *testing.T) {
	c := NewChunk()
	c.Emit(OpNil, 1)

	_, err := NewVM(&bytes.Buffer{}).Run(c)
	var ie *InternalError
	if !errors.As(err, &ie) {
		t.Errorf("err = %v, want InternalError", err)
	}
}

func TestVMTrace(t *testing.T) {
	chunk, err := Compile("1 + 2")
	if err != nil {
		t.Fatal(err)
	}
	var out, trace bytes.Buffer
	vm := NewVM(&out)
	vm.Trace = true
	vm.TraceOut = &trace
	if _, err := vm.Run(chunk); err != nil {
		t.Fatal(err)
	}

	got := trace.String()
	for _, want := range []string{"CONSTANT", "ADD", "RETURN", "[ 1 ][ 2 ]", "[ 3 ]"} {
		if !strings.Contains(got, want) {
			t.Errorf("trace missing %q:\n%s", want, got)
		}
	}
}

func TestVMReuse(t *testing.T) {
	var out bytes.Buffer
	vm := NewVM(&out)
	for _, src := range []string{`1 + "x"`, "2 * 2"} {
		chunk, err := Compile(src)
		if err != nil {
			t.Fatal(err)
		}
		vm.Run(chunk)
	}
	if out.String() != "4\n" {
		t.Errorf("output = %q, want a clean run after a failed one", out.String())
	}
}

func TestInterpret(t *testing.T) {
	var out bytes.Buffer
	if err := Interpret("10 - 2 - 3", &out); err != nil {
		t.Fatal(err)
	}
	if out.String() != "5\n" {
		t.Errorf("output = %q", out.String())
	}

	var ce *CompileError
	if err := Interpret("1 +", &out); !errors.As(err, &ce) {
		t.Errorf("err = %v, want CompileError", err)
	}
}
