package server

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/chazu/lox/engine"
)

func newTestClient(t *testing.T, opts ...ServerOption) *Client {
	t.Helper()
	s := New(opts...)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Stop()
	})
	return NewClient(ts.Client(), ts.URL)
}

func bg() context.Context {
	return context.Background()
}

func TestEvaluate(t *testing.T) {
	c := newTestClient(t)

	tests := []struct {
		name    string
		req     EvaluateRequest
		output  string
		success bool
		kind    string
	}{
		{"print", EvaluateRequest{Source: "print 1 + 2;"}, "3\n", true, ""},
		{"bytecode", EvaluateRequest{Source: "(1 + 2) * 4", Backend: "bytecode"}, "12\n", true, ""},
		{"parse error", EvaluateRequest{Source: "print ;"}, "", false, ErrorKindCompile},
		{"compile error", EvaluateRequest{Source: "1 +", Backend: "bytecode"}, "", false, ErrorKindCompile},
		{"runtime error", EvaluateRequest{Source: "print 1; print nope;"}, "1\n", false, ErrorKindRuntime},
		{"bytecode runtime error", EvaluateRequest{Source: "-true", Backend: "bytecode"}, "", false, ErrorKindRuntime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			resp, err := c.Evaluate(bg(), &req)
			if err != nil {
				t.Fatalf("Evaluate returned error: %v", err)
			}
			if resp.Output != tt.output {
				t.Errorf("output = %q, want %q", resp.Output, tt.output)
			}
			if resp.Success != tt.success {
				t.Errorf("success = %v, want %v (error %q)", resp.Success, tt.success, resp.Error)
			}
			if resp.ErrorKind != tt.kind {
				t.Errorf("error kind = %q, want %q", resp.ErrorKind, tt.kind)
			}
			if !tt.success && resp.Error == "" {
				t.Error("failed evaluation carries no error message")
			}
		})
	}
}

func TestEvaluateKeepsGlobals(t *testing.T) {
	c := newTestClient(t)

	if _, err := c.Evaluate(bg(), &EvaluateRequest{Source: "fun sq(x) { return x * x; }"}); err != nil {
		t.Fatal(err)
	}
	resp, err := c.Evaluate(bg(), &EvaluateRequest{Source: "print sq(9);"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Output != "81\n" {
		t.Errorf("output = %q, want 81", resp.Output)
	}
}

func TestEvaluateInvalidArgument(t *testing.T) {
	c := newTestClient(t)

	for _, req := range []*EvaluateRequest{
		{Source: ""},
		{Source: "print 1;", Backend: "jit"},
	} {
		_, err := c.Evaluate(bg(), req)
		if connect.CodeOf(err) != connect.CodeInvalidArgument {
			t.Errorf("Evaluate(%+v) err = %v, want invalid_argument", req, err)
		}
	}
}

func TestEvaluateTimeout(t *testing.T) {
	c := newTestClient(t, WithEvalTimeout(50*time.Millisecond))

	_, err := c.Evaluate(bg(), &EvaluateRequest{Source: "while (true) {}"})
	if connect.CodeOf(err) != connect.CodeDeadlineExceeded {
		t.Fatalf("err = %v, want deadline_exceeded", err)
	}

	// The engine is usable again once the runaway loop is cut off.
	resp, err := c.Evaluate(bg(), &EvaluateRequest{Source: "print 5;"})
	if err != nil || resp.Output != "5\n" {
		t.Errorf("Evaluate after timeout = %+v, %v", resp, err)
	}
}

func TestEvaluateDefaultBackend(t *testing.T) {
	c := newTestClient(t, WithEngineOptions(engine.WithBackend(engine.Bytecode)))

	resp, err := c.Evaluate(bg(), &EvaluateRequest{Source: `"a" + "b"`})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Output != "ab\n" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestEvaluateReadLimit(t *testing.T) {
	c := newTestClient(t, WithReadLimit(16))

	_, err := c.Evaluate(bg(), &EvaluateRequest{Source: "print 11111111111111111111111111;"})
	var cerr *connect.Error
	if !errors.As(err, &cerr) {
		t.Errorf("oversized request err = %v, want a connect error", err)
	}
}

func TestCheck(t *testing.T) {
	c := newTestClient(t)

	resp, err := c.Check(bg(), &CheckRequest{Source: "var a = 1;\nprint a;"})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Valid || len(resp.Diagnostics) != 0 {
		t.Errorf("clean source: %+v", resp)
	}

	resp, err = c.Check(bg(), &CheckRequest{Source: "var a = 1;\nprint ;\nvar b = #;"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Valid {
		t.Error("broken source reported valid")
	}
	lines := map[int]bool{}
	for _, d := range resp.Diagnostics {
		lines[d.Line] = true
		if d.Message == "" {
			t.Errorf("diagnostic without message: %+v", d)
		}
	}
	if !lines[2] || !lines[3] {
		t.Errorf("diagnostics = %+v, want errors on lines 2 and 3", resp.Diagnostics)
	}
}

func TestCheckDoesNotExecute(t *testing.T) {
	c := newTestClient(t)

	if _, err := c.Check(bg(), &CheckRequest{Source: "var secret = 1;"}); err != nil {
		t.Fatal(err)
	}
	resp, err := c.Evaluate(bg(), &EvaluateRequest{Source: "print secret;"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Success {
		t.Error("Check defined a global")
	}
}
