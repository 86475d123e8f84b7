package vm

import (
	"testing"

	"github.com/chazu/lox/lib/runtime"
)

func TestEnvironmentDefineGet(t *testing.T) {
	e := NewEnvironments()
	e.Define(GlobalEnv, "a", runtime.NumberValue(1))

	child := e.New(GlobalEnv)
	if v, ok := e.Get(child, "a"); !ok || v.NumberVal != 1 {
		t.Errorf("child Get(a) = %v, %v", v, ok)
	}

	// Shadowing in the child leaves the parent alone.
	e.Define(child, "a", runtime.NumberValue(2))
	if v, _ := e.Get(child, "a"); v.NumberVal != 2 {
		t.Errorf("child a = %v, want 2", v)
	}
	if v, _ := e.Get(GlobalEnv, "a"); v.NumberVal != 1 {
		t.Errorf("global a = %v, want 1", v)
	}

	if _, ok := e.Get(child, "missing"); ok {
		t.Error("Get(missing) succeeded")
	}
}

func TestEnvironmentAssignNearest(t *testing.T) {
	e := NewEnvironments()
	e.Define(GlobalEnv, "x", runtime.NumberValue(1))
	mid := e.New(GlobalEnv)
	e.Define(mid, "x", runtime.NumberValue(2))
	inner := e.New(mid)

	if !e.Assign(inner, "x", runtime.NumberValue(3)) {
		t.Fatal("Assign failed")
	}
	if v, _ := e.Get(mid, "x"); v.NumberVal != 3 {
		t.Errorf("mid x = %v, want 3", v)
	}
	if v, _ := e.Get(GlobalEnv, "x"); v.NumberVal != 1 {
		t.Errorf("global x = %v, want 1", v)
	}

	if e.Assign(inner, "nope", runtime.NilValue()) {
		t.Error("Assign to undefined name succeeded")
	}
	if _, ok := e.Get(inner, "nope"); ok {
		t.Error("failed Assign created a binding")
	}
}

func TestEnvironmentRelease(t *testing.T) {
	e := NewEnvironments()
	a := e.New(GlobalEnv)
	b := e.New(a)

	// Only the top scope can be freed.
	e.Release(a)
	if e.Len() != 3 {
		t.Fatalf("Len = %d after releasing a non-top scope, want 3", e.Len())
	}
	e.Release(b)
	e.Release(a)
	if e.Len() != 1 {
		t.Errorf("Len = %d, want 1", e.Len())
	}

	e.Release(GlobalEnv)
	if e.Len() != 1 {
		t.Error("global scope was released")
	}

	c := e.New(GlobalEnv)
	e.Capture(c)
	e.Release(c)
	if e.Len() != 2 {
		t.Error("captured scope was released")
	}
	if e.Parent(c) != GlobalEnv || e.Parent(GlobalEnv) != NoEnv {
		t.Error("unexpected parent chain")
	}
}

func TestEnvironmentNames(t *testing.T) {
	e := NewEnvironments()
	e.Define(GlobalEnv, "b", runtime.NilValue())
	e.Define(GlobalEnv, "a", runtime.NilValue())
	names := e.Names(GlobalEnv)
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Names = %v", names)
	}
}
