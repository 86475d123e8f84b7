package server

import (
	"errors"
	"strings"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/lox/compiler"
	"github.com/chazu/lox/engine"
)

// ---------------------------------------------------------------------------
// LSP text extraction helpers
// ---------------------------------------------------------------------------

func TestExtractPrefix(t *testing.T) {
	tests := []struct {
		text string
		pos  protocol.Position
		want string
	}{
		{"print total", protocol.Position{Line: 0, Character: 11}, "total"},
		{"cl", protocol.Position{Line: 0, Character: 2}, "cl"},
		{"", protocol.Position{Line: 0, Character: 0}, ""},
		{"first line\nsecond\nvar x = fo", protocol.Position{Line: 2, Character: 10}, "fo"},
		{"a + b_c", protocol.Position{Line: 0, Character: 7}, "b_c"},
		{"hello", protocol.Position{Line: 0, Character: 0}, ""},
		{"single line", protocol.Position{Line: 5, Character: 0}, ""},
		{"short", protocol.Position{Line: 0, Character: 99}, "short"},
	}
	for _, tt := range tests {
		if got := extractPrefix(tt.text, tt.pos); got != tt.want {
			t.Errorf("extractPrefix(%q, %v) = %q, want %q", tt.text, tt.pos, got, tt.want)
		}
	}
}

func TestExtractWord(t *testing.T) {
	tests := []struct {
		text string
		pos  protocol.Position
		want string
	}{
		{"print counter;", protocol.Position{Line: 0, Character: 8}, "counter"},
		{"print counter;", protocol.Position{Line: 0, Character: 6}, "counter"},
		{"print counter;", protocol.Position{Line: 0, Character: 13}, "counter"},
		{"a + b", protocol.Position{Line: 0, Character: 2}, ""},
		{"x\nfib(3)", protocol.Position{Line: 1, Character: 1}, "fib"},
		{"x", protocol.Position{Line: 3, Character: 0}, ""},
	}
	for _, tt := range tests {
		if got := extractWord(tt.text, tt.pos); got != tt.want {
			t.Errorf("extractWord(%q, %v) = %q, want %q", tt.text, tt.pos, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Symbols, completion and hover
// ---------------------------------------------------------------------------

const sampleDoc = `var total = 0;
fun add(a, b) {
  var sum = a + b;
  return sum;
}
if (true) { var inner = 1; } else { var other = 2; }
while (false) { var looped = 3; }
`

func TestDocumentSymbols(t *testing.T) {
	syms := documentSymbols(sampleDoc)
	var names []string
	for _, s := range syms {
		names = append(names, s.Name)
	}
	got := strings.Join(names, " ")
	want := "total add a b sum inner other looped"
	if got != want {
		t.Errorf("symbols = %q, want %q", got, want)
	}

	add, ok := lookupSymbol(syms, "add")
	if !ok || add.detail() != "fun add(a, b)" {
		t.Errorf("add = %+v", add)
	}
	if add.Tok.Line != 2 || add.Tok.Column != 5 {
		t.Errorf("add declared at %d:%d, want 2:5", add.Tok.Line, add.Tok.Column)
	}
	if b, _ := lookupSymbol(syms, "b"); b.detail() != "parameter b" {
		t.Errorf("b detail = %q", b.detail())
	}
}

func TestDocumentSymbolsWithErrors(t *testing.T) {
	syms := documentSymbols("var good = 1;\nvar = 2;\nfun ok() {}")
	if _, ok := lookupSymbol(syms, "good"); !ok {
		t.Error("declaration before the error was lost")
	}
	if _, ok := lookupSymbol(syms, "ok"); !ok {
		t.Error("declaration after the error was lost")
	}
}

func TestComplete(t *testing.T) {
	e := engine.New()
	items := complete("c", e.Globals(), documentSymbols("var count = 1;"))

	labels := map[string]string{}
	for _, it := range items {
		labels[it.Label] = *it.Detail
	}
	if labels["clock"] != "global" {
		t.Errorf("clock missing from %v", labels)
	}
	if labels["class"] != "keyword" {
		t.Errorf("class keyword missing from %v", labels)
	}
	if labels["count"] != "var count" {
		t.Errorf("count missing from %v", labels)
	}
	for label := range labels {
		if !strings.HasPrefix(label, "c") {
			t.Errorf("completion %q does not match prefix", label)
		}
	}
}

func TestCompleteDeduplicates(t *testing.T) {
	items := complete("x", nil, documentSymbols("var x = 1; var x = 2;"))
	if len(items) != 1 {
		t.Errorf("got %d items, want 1", len(items))
	}
}

func TestHover(t *testing.T) {
	syms := documentSymbols(sampleDoc)

	h := hover("add", syms)
	if h == nil || !strings.Contains(h.Contents.(protocol.MarkupContent).Value, "fun add(a, b)") {
		t.Errorf("hover(add) = %+v", h)
	}
	if h := hover("clock", syms); h == nil {
		t.Error("no hover for clock")
	}
	if h := hover("while", syms); h == nil {
		t.Error("no hover for keyword")
	}
	if h := hover("missing", syms); h != nil {
		t.Errorf("hover(missing) = %+v", h)
	}
}

func TestTokenRange(t *testing.T) {
	r := tokenRange(compiler.Token{Lexeme: "add", Line: 2, Column: 5})
	if r.Start.Line != 1 || r.Start.Character != 4 || r.End.Character != 7 {
		t.Errorf("range = %+v", r)
	}
}

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

func TestLspDiagnostics(t *testing.T) {
	text := "var a = 1;\nprint ;\nvar b = @;"
	e := engine.New()
	diags := lspDiagnostics(e.Check(text), text)
	if len(diags) == 0 {
		t.Fatal("no diagnostics")
	}
	for _, d := range diags {
		if d.Severity == nil || *d.Severity != protocol.DiagnosticSeverityError {
			t.Errorf("severity = %v", d.Severity)
		}
		if d.Range.Start.Line != 1 && d.Range.Start.Line != 2 {
			t.Errorf("diagnostic on line %d: %s", d.Range.Start.Line, d.Message)
		}
		if d.Range.End.Character < d.Range.Start.Character {
			t.Errorf("inverted range %+v", d.Range)
		}
	}

	// The '@' is at column 9 of line 3.
	var found bool
	for _, d := range diags {
		if d.Range.Start.Line == 2 && d.Range.Start.Character == 8 && d.Range.End.Character == 9 {
			found = true
		}
	}
	if !found {
		t.Errorf("no diagnostic spanning '@': %+v", diags)
	}
}

func TestLspDiagnosticsClean(t *testing.T) {
	diags := lspDiagnostics(nil, "print 1;")
	if diags == nil || len(diags) != 0 {
		t.Errorf("diags = %v, want an empty non-nil slice", diags)
	}
}

func TestLspDiagnosticsUnpositioned(t *testing.T) {
	diags := lspDiagnostics([]error{errors.New("odd")}, "print 1;\n")
	if len(diags) != 1 || diags[0].Range.Start.Line != 0 || diags[0].Range.End.Character != 8 {
		t.Errorf("diags = %+v", diags)
	}
}

func TestDiagnosticFor(t *testing.T) {
	e := engine.New()
	errs := e.Check("print ;")
	if len(errs) != 1 {
		t.Fatalf("errs = %v", errs)
	}
	d := diagnosticFor(errs[0])
	if d.Line != 1 || d.Column != 7 || d.Message == "" {
		t.Errorf("diagnostic = %+v", d)
	}
}
