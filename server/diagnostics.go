package server

import (
	"errors"

	"github.com/chazu/lox/compiler"
	"github.com/chazu/lox/pkg/bytecode"
)

// Diagnostic is a positioned error report. Line and Column are 1-based;
// zero means unknown.
type Diagnostic struct {
	Line    int    `json:"line"`
	Column  int    `json:"column,omitempty"`
	Message string `json:"message"`
}

func diagnosticFor(err error) Diagnostic {
	var scanErr *compiler.ScanError
	var parseErr *compiler.ParseError
	var compileErr *bytecode.CompileError
	switch {
	case errors.As(err, &scanErr):
		return Diagnostic{Line: scanErr.Line, Column: scanErr.Column, Message: scanErr.Message}
	case errors.As(err, &parseErr):
		return Diagnostic{Line: parseErr.Line, Column: parseErr.Column, Message: parseErr.Message}
	case errors.As(err, &compileErr):
		return Diagnostic{Line: compileErr.Line, Message: compileErr.Message}
	}
	return Diagnostic{Message: err.Error()}
}

func diagnosticsFor(errs []error) []Diagnostic {
	diags := make([]Diagnostic, 0, len(errs))
	for _, err := range errs {
		diags = append(diags, diagnosticFor(err))
	}
	return diags
}
