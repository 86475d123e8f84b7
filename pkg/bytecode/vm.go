package bytecode

import (
	"fmt"
	"io"
	"os"

	"github.com/chazu/lox/lib/runtime"
)

// StackMax is the fixed depth of the operand stack.
const StackMax = 256

// VM executes bytecode chunks.
type VM struct {
	chunk *Chunk
	ip    int // Instruction pointer

	stack [StackMax]runtime.Value
	sp    int // Stack pointer: index of the next free slot

	out io.Writer

	// Trace writes each instruction and the stack before executing it.
	Trace    bool
	TraceOut io.Writer
}

// NewVM creates a VM that prints Return values to out. A nil out means
// os.Stdout.
func NewVM(out io.Writer) *VM {
	if out == nil {
		out = os.Stdout
	}
	return &VM{out: out, TraceOut: os.Stderr}
}

// push places v on the stack.
func (vm *VM) push(v runtime.Value) error {
	if vm.sp >= StackMax {
		return &InternalError{Offset: vm.ip, Err: ErrStackOverflow}
	}
	vm.stack[vm.sp] = v
	vm.sp++
	return nil
}

// pop removes and returns the top of the stack.
func (vm *VM) pop() (runtime.Value, error) {
	if vm.sp == 0 {
		return runtime.Value{}, &InternalError{Offset: vm.ip, Err: ErrStackUnderflow}
	}
	vm.sp--
	v := vm.stack[vm.sp]
	vm.stack[vm.sp] = runtime.Value{}
	return v, nil
}

// peek returns the value n slots below the top without removing it.
func (vm *VM) peek(n int) (runtime.Value, error) {
	if n < 0 || n >= vm.sp {
		return runtime.Value{}, &InternalError{Offset: vm.ip, Err: ErrStackUnderflow}
	}
	return vm.stack[vm.sp-1-n], nil
}

func (vm *VM) resetStack() {
	for i := 0; i < vm.sp; i++ {
		vm.stack[i] = runtime.Value{}
	}
	vm.sp = 0
}

// StackDepth returns the number of values on the stack.
func (vm *VM) StackDepth() int {
	return vm.sp
}

// runtimeError resets the stack and builds an error positioned on the
// instruction being executed. Execution always halts afterwards.
func (vm *VM) runtimeError(format string, args ...any) error {
	vm.resetStack()
	return &RuntimeError{
		Line:    vm.chunk.Line(vm.ip),
		Message: fmt.Sprintf(format, args...),
	}
}

// Run executes chunk until Return. It returns the value Return printed.
func (vm *VM) Run(chunk *Chunk) (runtime.Value, error) {
	vm.chunk = chunk
	vm.ip = 0
	vm.resetStack()

	for vm.ip < len(chunk.Code) {
		in := chunk.Code[vm.ip]
		if vm.Trace {
			vm.traceInstruction()
		}

		switch in.Op {
		case OpConstant:
			v, err := chunk.Constant(vm.ip, in.Operand)
			if err != nil {
				return runtime.Value{}, err
			}
			if err := vm.push(v); err != nil {
				return runtime.Value{}, err
			}

		case OpNil:
			if err := vm.push(runtime.NilValue()); err != nil {
				return runtime.Value{}, err
			}
		case OpTrue:
			if err := vm.push(runtime.BoolValue(true)); err != nil {
				return runtime.Value{}, err
			}
		case OpFalse:
			if err := vm.push(runtime.BoolValue(false)); err != nil {
				return runtime.Value{}, err
			}

		case OpNeg:
			v, err := vm.peek(0)
			if err != nil {
				return runtime.Value{}, err
			}
			if !v.IsNumber() {
				return runtime.Value{}, vm.runtimeError("Operand must be a number.")
			}
			vm.stack[vm.sp-1] = runtime.NumberValue(-v.NumberVal)

		case OpNot:
			v, err := vm.pop()
			if err != nil {
				return runtime.Value{}, err
			}
			if err := vm.push(runtime.BoolValue(!v.IsTruthy())); err != nil {
				return runtime.Value{}, err
			}

		case OpAdd:
			if err := vm.add(); err != nil {
				return runtime.Value{}, err
			}

		case OpSub, OpMul, OpDiv, OpGreater, OpLess:
			if err := vm.numericBinary(in.Op); err != nil {
				return runtime.Value{}, err
			}

		case OpEqual:
			b, err := vm.pop()
			if err != nil {
				return runtime.Value{}, err
			}
			a, err := vm.pop()
			if err != nil {
				return runtime.Value{}, err
			}
			if err := vm.push(runtime.BoolValue(runtime.Equal(a, b))); err != nil {
				return runtime.Value{}, err
			}

		case OpReturn:
			v, err := vm.pop()
			if err != nil {
				return runtime.Value{}, err
			}
			fmt.Fprintln(vm.out, v.String())
			return v, nil

		default:
			return runtime.Value{}, &InternalError{Offset: vm.ip, Err: fmt.Errorf("unknown opcode 0x%02X", byte(in.Op))}
		}

		vm.ip++
	}

	return runtime.Value{}, &InternalError{Offset: vm.ip, Err: fmt.Errorf("chunk ended without RETURN")}
}

// add handles both numeric addition and string concatenation.
func (vm *VM) add() error {
	b, err := vm.peek(0)
	if err != nil {
		return err
	}
	a, err := vm.peek(1)
	if err != nil {
		return err
	}

	var result runtime.Value
	switch {
	case a.IsString() && b.IsString():
		result = runtime.StringValue(a.StringVal + b.StringVal)
	case a.IsNumber() && b.IsNumber():
		result = runtime.NumberValue(a.NumberVal + b.NumberVal)
	default:
		return vm.runtimeError("Operands must be two numbers or two strings.")
	}
	vm.sp -= 2
	return vm.push(result)
}

func (vm *VM) numericBinary(op Opcode) error {
	b, err := vm.peek(0)
	if err != nil {
		return err
	}
	a, err := vm.peek(1)
	if err != nil {
		return err
	}
	if !a.IsNumber() || !b.IsNumber() {
		return vm.runtimeError("Operands must be numbers.")
	}

	x, y := a.NumberVal, b.NumberVal
	var result runtime.Value
	switch op {
	case OpSub:
		result = runtime.NumberValue(x - y)
	case OpMul:
		result = runtime.NumberValue(x * y)
	case OpDiv:
		result = runtime.NumberValue(x / y)
	case OpGreater:
		result = runtime.BoolValue(x > y)
	case OpLess:
		result = runtime.BoolValue(x < y)
	}
	vm.sp -= 2
	return vm.push(result)
}

func (vm *VM) traceInstruction() {
	fmt.Fprint(vm.TraceOut, "          ")
	for i := 0; i < vm.sp; i++ {
		fmt.Fprintf(vm.TraceOut, "[ %s ]", vm.stack[i])
	}
	fmt.Fprintln(vm.TraceOut)
	fmt.Fprintln(vm.TraceOut, vm.chunk.DisassembleInstruction(vm.ip))
}

// Interpret compiles and runs a single expression, printing its value.
func Interpret(source string, out io.Writer) error {
	chunk, err := Compile(source)
	if err != nil {
		return err
	}
	_, err = NewVM(out).Run(chunk)
	return err
}
