package vm

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/chazu/lox/compiler"
	"github.com/chazu/lox/lib/runtime"
)

// MaxCallDepth bounds nested function calls. Exceeding it is a runtime
// error rather than a Go stack overflow.
const MaxCallDepth = 1024

// RuntimeError reports a failure while executing a program: a type
// mismatch, an undefined variable, a bad call.
type RuntimeError struct {
	Line    int
	Message string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

func runtimeErrorf(line int, format string, args ...any) *RuntimeError {
	return &RuntimeError{Line: line, Message: fmt.Sprintf(format, args...)}
}

// flow is how a statement completed: normally, or by executing return.
// Errors travel separately.
type flow struct {
	returning bool
	value     runtime.Value
	line      int // line of the return statement
}

var normal = flow{}

// ---------------------------------------------------------------------------
// Interpreter: tree-walking evaluator
// ---------------------------------------------------------------------------

// Interpreter executes parsed statements. Globals persist across calls to
// Interpret, so a REPL can feed it one line at a time.
type Interpreter struct {
	envs *Environments
	env  EnvID // current scope

	out   io.Writer
	now   func() time.Time
	ctx   context.Context
	depth int
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithClock replaces the time source used by clock().
func WithClock(now func() time.Time) Option {
	return func(in *Interpreter) { in.now = now }
}

// New creates an interpreter that prints to out. A nil out means
// os.Stdout.
func New(out io.Writer, opts ...Option) *Interpreter {
	if out == nil {
		out = os.Stdout
	}
	in := &Interpreter{
		envs: NewEnvironments(),
		env:  GlobalEnv,
		out:  out,
		now:  time.Now,
		ctx:  context.Background(),
	}
	for _, opt := range opts {
		opt(in)
	}
	in.defineBuiltins()
	return in
}

func (in *Interpreter) defineBuiltins() {
	in.envs.Define(GlobalEnv, "clock", runtime.CallableValue(NewBuiltin("clock", 0,
		func([]runtime.Value) (runtime.Value, error) {
			return runtime.NumberValue(float64(in.now().UnixMilli())), nil
		})))
}

// Globals returns the names defined in the global scope, sorted.
func (in *Interpreter) Globals() []string {
	return in.envs.Names(GlobalEnv)
}

// Interpret executes stmts in order and stops at the first runtime error.
func (in *Interpreter) Interpret(stmts []compiler.Stmt) error {
	return in.InterpretContext(context.Background(), stmts)
}

// InterpretContext is Interpret with cancellation. ctx is checked on every
// loop iteration and function call, so a runaway loop can be stopped.
func (in *Interpreter) InterpretContext(ctx context.Context, stmts []compiler.Stmt) error {
	in.ctx = ctx
	defer func() { in.ctx = context.Background() }()

	for _, stmt := range stmts {
		f, err := in.execute(stmt)
		if err != nil {
			return err
		}
		if f.returning {
			return runtimeErrorf(f.line, "Can't return from top-level code.")
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (in *Interpreter) execute(stmt compiler.Stmt) (flow, error) {
	switch s := stmt.(type) {
	case *compiler.ExprStmt:
		_, err := in.evaluate(s.Expr)
		return normal, err

	case *compiler.PrintStmt:
		v, err := in.evaluate(s.Expr)
		if err != nil {
			return normal, err
		}
		fmt.Fprintln(in.out, v.String())
		return normal, nil

	case *compiler.VarStmt:
		v := runtime.NilValue()
		if s.Initializer != nil {
			var err error
			if v, err = in.evaluate(s.Initializer); err != nil {
				return normal, err
			}
		}
		in.envs.Define(in.env, s.Name.Lexeme, v)
		return normal, nil

	case *compiler.BlockStmt:
		return in.executeBlock(s.Statements, in.envs.New(in.env))

	case *compiler.IfStmt:
		cond, err := in.evaluate(s.Condition)
		if err != nil {
			return normal, err
		}
		if cond.IsTruthy() {
			return in.execute(s.Then)
		}
		if s.Else != nil {
			return in.execute(s.Else)
		}
		return normal, nil

	case *compiler.WhileStmt:
		for {
			if err := in.ctx.Err(); err != nil {
				return normal, err
			}
			cond, err := in.evaluate(s.Condition)
			if err != nil {
				return normal, err
			}
			if !cond.IsTruthy() {
				return normal, nil
			}
			f, err := in.execute(s.Body)
			if err != nil || f.returning {
				return f, err
			}
		}

	case *compiler.FunctionStmt:
		fn := &Function{Decl: s, Closure: in.env}
		in.envs.Capture(in.env)
		in.envs.Define(in.env, s.Name.Lexeme, runtime.CallableValue(fn))
		return normal, nil

	case *compiler.ReturnStmt:
		v := runtime.NilValue()
		if s.Value != nil {
			var err error
			if v, err = in.evaluate(s.Value); err != nil {
				return normal, err
			}
		}
		return flow{returning: true, value: v, line: s.Keyword.Line}, nil

	case *compiler.BadStmt:
		return normal, nil

	default:
		return normal, runtimeErrorf(stmt.Line(), "cannot execute %T", stmt)
	}
}

// executeBlock runs stmts in env and restores the previous scope on every
// exit path.
func (in *Interpreter) executeBlock(stmts []compiler.Stmt, env EnvID) (flow, error) {
	prev := in.env
	in.env = env
	defer func() {
		in.env = prev
		in.envs.Release(env)
	}()

	for _, stmt := range stmts {
		f, err := in.execute(stmt)
		if err != nil || f.returning {
			return f, err
		}
	}
	return normal, nil
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (in *Interpreter) evaluate(expr compiler.Expr) (runtime.Value, error) {
	switch e := expr.(type) {
	case *compiler.Literal:
		return e.Value, nil

	case *compiler.Grouping:
		return in.evaluate(e.Expr)

	case *compiler.Variable:
		v, ok := in.envs.Get(in.env, e.Name.Lexeme)
		if !ok {
			return runtime.Value{}, runtimeErrorf(e.Name.Line, "Undefined variable '%s'.", e.Name.Lexeme)
		}
		return v, nil

	case *compiler.Assign:
		v, err := in.evaluate(e.Value)
		if err != nil {
			return runtime.Value{}, err
		}
		if !in.envs.Assign(in.env, e.Name.Lexeme, v) {
			return runtime.Value{}, runtimeErrorf(e.Name.Line, "Undefined variable '%s'.", e.Name.Lexeme)
		}
		return v, nil

	case *compiler.Logical:
		left, err := in.evaluate(e.Left)
		if err != nil {
			return runtime.Value{}, err
		}
		if e.Op.Type == compiler.TokenOr {
			if left.IsTruthy() {
				return left, nil
			}
		} else if !left.IsTruthy() {
			return left, nil
		}
		return in.evaluate(e.Right)

	case *compiler.Unary:
		right, err := in.evaluate(e.Right)
		if err != nil {
			return runtime.Value{}, err
		}
		switch e.Op.Type {
		case compiler.TokenBang:
			return runtime.BoolValue(!right.IsTruthy()), nil
		case compiler.TokenMinus:
			if !right.IsNumber() {
				return runtime.Value{}, runtimeErrorf(e.Op.Line, "Operand of '%s' must be a number.", e.Op.Lexeme)
			}
			return runtime.NumberValue(-right.NumberVal), nil
		}
		return runtime.Value{}, runtimeErrorf(e.Op.Line, "unknown unary operator '%s'", e.Op.Lexeme)

	case *compiler.Binary:
		left, err := in.evaluate(e.Left)
		if err != nil {
			return runtime.Value{}, err
		}
		right, err := in.evaluate(e.Right)
		if err != nil {
			return runtime.Value{}, err
		}
		return binary(e.Op, left, right)

	case *compiler.Call:
		return in.call(e)

	default:
		return runtime.Value{}, runtimeErrorf(expr.Line(), "cannot evaluate %T", expr)
	}
}

func binary(op compiler.Token, left, right runtime.Value) (runtime.Value, error) {
	switch op.Type {
	case compiler.TokenEqualEqual:
		return runtime.BoolValue(runtime.Equal(left, right)), nil
	case compiler.TokenBangEqual:
		return runtime.BoolValue(!runtime.Equal(left, right)), nil

	case compiler.TokenPlus:
		if left.IsString() || right.IsString() {
			if !left.IsString() || !right.IsString() {
				return runtime.Value{}, runtimeErrorf(op.Line, "Operands of '+' must both be strings when either is.")
			}
			return runtime.StringValue(left.StringVal + right.StringVal), nil
		}
		fallthrough

	case compiler.TokenMinus, compiler.TokenStar, compiler.TokenSlash:
		if !left.IsNumber() || !right.IsNumber() {
			return runtime.Value{}, runtimeErrorf(op.Line, "Operands of '%s' must be numbers.", op.Lexeme)
		}
		x, y := left.NumberVal, right.NumberVal
		switch op.Type {
		case compiler.TokenPlus:
			return runtime.NumberValue(x + y), nil
		case compiler.TokenMinus:
			return runtime.NumberValue(x - y), nil
		case compiler.TokenStar:
			return runtime.NumberValue(x * y), nil
		default:
			return runtime.NumberValue(x / y), nil
		}

	case compiler.TokenGreater, compiler.TokenGreaterEqual, compiler.TokenLess, compiler.TokenLessEqual:
		if !left.IsNumber() || !right.IsNumber() {
			return runtime.Value{}, runtimeErrorf(op.Line, "Operands of '%s' must be numbers.", op.Lexeme)
		}
		x, y := left.NumberVal, right.NumberVal
		var result bool
		switch op.Type {
		case compiler.TokenGreater:
			result = x > y
		case compiler.TokenGreaterEqual:
			result = x >= y
		case compiler.TokenLess:
			result = x < y
		case compiler.TokenLessEqual:
			result = x <= y
		}
		return runtime.BoolValue(result), nil
	}
	return runtime.Value{}, runtimeErrorf(op.Line, "unknown binary operator '%s'", op.Lexeme)
}

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

func (in *Interpreter) call(e *compiler.Call) (runtime.Value, error) {
	callee, err := in.evaluate(e.Callee)
	if err != nil {
		return runtime.Value{}, err
	}
	args := make([]runtime.Value, 0, len(e.Args))
	for _, a := range e.Args {
		v, err := in.evaluate(a)
		if err != nil {
			return runtime.Value{}, err
		}
		args = append(args, v)
	}

	if !callee.IsCallable() {
		return runtime.Value{}, runtimeErrorf(e.Paren.Line, "Can only call functions.")
	}
	fn := callee.CallableVal
	if len(args) != fn.Arity() {
		return runtime.Value{}, runtimeErrorf(e.Paren.Line, "Expected %d arguments but got %d.", fn.Arity(), len(args))
	}
	if err := in.ctx.Err(); err != nil {
		return runtime.Value{}, err
	}

	switch fn := fn.(type) {
	case *Function:
		return in.callFunction(fn, args, e.Paren.Line)
	case *Builtin:
		return fn.fn(args)
	default:
		return runtime.Value{}, runtimeErrorf(e.Paren.Line, "Can only call functions.")
	}
}

// callFunction binds args in a new scope under the function's closure and
// runs the body. This is the only place a return completion turns back
// into a value.
func (in *Interpreter) callFunction(fn *Function, args []runtime.Value, line int) (runtime.Value, error) {
	if in.depth >= MaxCallDepth {
		return runtime.Value{}, runtimeErrorf(line, "Stack overflow.")
	}
	in.depth++
	defer func() { in.depth-- }()

	env := in.envs.New(fn.Closure)
	for i, param := range fn.Decl.Params {
		in.envs.Define(env, param.Lexeme, args[i])
	}

	f, err := in.executeBlock(fn.Decl.Body, env)
	if err != nil {
		return runtime.Value{}, err
	}
	if f.returning {
		return f.value, nil
	}
	return runtime.NilValue(), nil
}
