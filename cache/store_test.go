package cache

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/chazu/lox/pkg/bytecode"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGet(t *testing.T) {
	s := openMemory(t)
	src := "1 + 2 * 3"

	if _, err := s.Get(src); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get before Put: err = %v, want ErrNotFound", err)
	}

	chunk, err := bytecode.Compile(src)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put(src, chunk); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(src)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Disassemble() != chunk.Disassemble() {
		t.Errorf("cached chunk differs:\n%s", got.Disassemble())
	}

	var out bytes.Buffer
	if _, err := bytecode.NewVM(&out).Run(got); err != nil {
		t.Fatal(err)
	}
	if out.String() != "7\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestPutReplaces(t *testing.T) {
	s := openMemory(t)
	a, _ := bytecode.Compile("1")
	if err := s.Put("x", a); err != nil {
		t.Fatal(err)
	}
	if err := s.Put("x", a); err != nil {
		t.Fatal(err)
	}
	if n, err := s.Len(); err != nil || n != 1 {
		t.Errorf("Len = %d, %v; want 1", n, err)
	}
}

func TestPersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	chunk, _ := bytecode.Compile(`"a" + "b"`)
	if err := s.Put("src", chunk); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, err := s.Get("src"); err != nil {
		t.Errorf("Get after reopen: %v", err)
	}
}

func TestPrune(t *testing.T) {
	s := openMemory(t)
	chunk, _ := bytecode.Compile("1")
	s.Put("old", chunk)

	n, err := s.Prune(time.Now().Add(time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("Prune = %d, %v; want 1", n, err)
	}
	if _, err := s.Get("old"); !errors.Is(err, ErrNotFound) {
		t.Errorf("pruned entry still present: %v", err)
	}
}

func TestKey(t *testing.T) {
	if Key("a") == Key("b") {
		t.Error("distinct sources share a key")
	}
	if len(Key("")) != 64 {
		t.Errorf("key length = %d, want 64 hex chars", len(Key("")))
	}
}
