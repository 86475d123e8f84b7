package engine

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/chazu/lox/cache"
	"github.com/chazu/lox/compiler"
	"github.com/chazu/lox/pkg/bytecode"
	"github.com/chazu/lox/vm"
)

func TestParseBackend(t *testing.T) {
	tests := []struct {
		name string
		want Backend
		ok   bool
	}{
		{"", TreeWalk, true},
		{"treewalk", TreeWalk, true},
		{"bytecode", Bytecode, true},
		{"jit", "", false},
	}
	for _, tt := range tests {
		got, err := ParseBackend(tt.name)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseBackend(%q) = %q, %v", tt.name, got, err)
		}
	}
}

func TestRunTreeWalk(t *testing.T) {
	var out bytes.Buffer
	e := New(WithOutput(&out))

	if err := e.Run(context.Background(), "var a = 1; print a + 2;"); err != nil {
		t.Fatal(err)
	}
	// Globals persist between runs, as a REPL needs.
	if err := e.Run(context.Background(), "print a * 10;"); err != nil {
		t.Fatal(err)
	}
	if out.String() != "3\n10\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunTreeWalkParseErrorRunsNothing(t *testing.T) {
	var out bytes.Buffer
	e := New(WithOutput(&out))

	err := e.Run(context.Background(), "print 1; var = 2; print 3;")
	var perr *compiler.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want ParseError", err)
	}
	if out.Len() != 0 {
		t.Errorf("printed %q despite a parse error", out.String())
	}
	if !IsCompileError(err) || IsRuntimeError(err) {
		t.Errorf("classification of %v is wrong", err)
	}
}

func TestRunBytecode(t *testing.T) {
	var out bytes.Buffer
	e := New(WithBackend(Bytecode), WithOutput(&out))

	if err := e.Run(context.Background(), "1 + 2 * 3"); err != nil {
		t.Fatal(err)
	}
	if out.String() != "7\n" {
		t.Errorf("output = %q", out.String())
	}

	err := e.Run(context.Background(), `1 + "a"`)
	var re *bytecode.RuntimeError
	if !errors.As(err, &re) {
		t.Errorf("err = %v, want bytecode.RuntimeError", err)
	}
	if !IsRuntimeError(err) || IsCompileError(err) {
		t.Errorf("classification of %v is wrong", err)
	}
}

func TestRunWithOverridesBackend(t *testing.T) {
	var out bytes.Buffer
	e := New(WithOutput(&out))
	if err := e.RunWith(context.Background(), Bytecode, "8 - 4 - 2"); err != nil {
		t.Fatal(err)
	}
	if err := e.RunWith(context.Background(), "nope", "1"); err == nil {
		t.Error("unknown backend accepted")
	}
	if out.String() != "2\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunRuntimeErrorClassification(t *testing.T) {
	e := New(WithOutput(&bytes.Buffer{}))
	err := e.Run(context.Background(), "print undefinedName;")
	var re *vm.RuntimeError
	if !errors.As(err, &re) || !IsRuntimeError(err) {
		t.Errorf("err = %v, want vm.RuntimeError", err)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	e := New(WithOutput(&out))
	if err := e.Run(ctx, "print 1;"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if out.Len() != 0 {
		t.Errorf("printed %q after cancellation", out.String())
	}
}

func TestCompileUsesCache(t *testing.T) {
	store, err := cache.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	var out bytes.Buffer
	e := New(WithBackend(Bytecode), WithOutput(&out), WithCache(store))
	for i := 0; i < 2; i++ {
		if err := e.Run(context.Background(), `"a" + "b"`); err != nil {
			t.Fatal(err)
		}
	}
	if n, _ := store.Len(); n != 1 {
		t.Errorf("cache holds %d chunks, want 1", n)
	}
	if out.String() != "ab\nab\n" {
		t.Errorf("output = %q", out.String())
	}

	// Compile errors are not cached.
	if err := e.Run(context.Background(), "1 +"); !IsCompileError(err) {
		t.Errorf("err = %v", err)
	}
	if n, _ := store.Len(); n != 1 {
		t.Errorf("cache holds %d chunks after a failed compile", n)
	}
}

func TestTrace(t *testing.T) {
	var out, trace bytes.Buffer
	e := New(WithBackend(Bytecode), WithOutput(&out), WithTrace(&trace))
	if err := e.Run(context.Background(), "-1"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(trace.String(), "NEG") {
		t.Errorf("trace = %q", trace.String())
	}
}

func TestCheck(t *testing.T) {
	e := New(WithOutput(&bytes.Buffer{}))

	if errs := e.Check("var a = 1; print a;"); len(errs) != 0 {
		t.Errorf("clean source: %v", errs)
	}

	errs := e.Check("var a = @;\nprint ;\nprint 3;")
	var scanErrs, parseErrs int
	for _, err := range errs {
		var se *compiler.ScanError
		var pe *compiler.ParseError
		switch {
		case errors.As(err, &se):
			scanErrs++
		case errors.As(err, &pe):
			parseErrs++
		}
	}
	// '@' is a scan error; dropping it leaves "var a = ;" which fails to
	// parse, as does "print ;".
	if scanErrs != 1 || parseErrs != 2 {
		t.Errorf("got %d scan and %d parse errors: %v", scanErrs, parseErrs, errs)
	}
}

func TestCheckDoesNotRun(t *testing.T) {
	var out bytes.Buffer
	e := New(WithOutput(&out))
	e.Check("var x = 1; print x;")
	if out.Len() != 0 {
		t.Error("Check executed the program")
	}
	for _, g := range e.Globals() {
		if g == "x" {
			t.Error("Check defined a global")
		}
	}
}

func TestBackendsRejectNonNumberOperands(t *testing.T) {
	tests := []struct {
		treewalk string
		bytecode string
	}{
		{"print nil < 1;", "nil < 1"},
		{`print "2" > 1;`, `"2" > 1`},
		{"print true + true;", "true + true"},
		{"print nil + 1;", "nil + 1"},
	}
	for _, tt := range tests {
		e := New(WithOutput(&bytes.Buffer{}))
		if err := e.RunWith(context.Background(), TreeWalk, tt.treewalk); !IsRuntimeError(err) {
			t.Errorf("treewalk %q: err = %v, want runtime error", tt.treewalk, err)
		}
		if err := e.RunWith(context.Background(), Bytecode, tt.bytecode); !IsRuntimeError(err) {
			t.Errorf("bytecode %q: err = %v, want runtime error", tt.bytecode, err)
		}
	}
}
