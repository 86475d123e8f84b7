package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/chazu/lox/compiler"
	"github.com/chazu/lox/engine"
	"github.com/chazu/lox/pkg/bytecode"
)

// runSource runs a whole script and maps its outcome to an exit code.
func runSource(ctx context.Context, e *engine.Engine, source string) int {
	return exitCode(e.Run(ctx, source))
}

// exitCode reports err on stderr and picks the matching exit status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	reportError(err)
	switch {
	case engine.IsCompileError(err):
		return exitData
	case engine.IsRuntimeError(err):
		return exitRuntime
	case errors.Is(err, context.Canceled):
		return 130
	}
	return 1
}

// reportError prints each joined error on its own line.
func reportError(err error) {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			fmt.Fprintln(os.Stderr, e)
		}
		return
	}
	fmt.Fprintln(os.Stderr, err)
}

func disassemble(name, source string) int {
	chunk, err := bytecode.Compile(source)
	if err != nil {
		return exitCode(err)
	}
	fmt.Print(chunk.DisassembleWithName(name))
	return 0
}

func dumpAST(source string) int {
	stmts, err := compiler.ParseSource(source)
	if err != nil {
		return exitCode(err)
	}
	fmt.Println(compiler.SexprProgram(stmts))
	return 0
}

// compileToFile writes the CBOR encoding of the compiled chunk to path.
func compileToFile(source, path string) int {
	chunk, err := bytecode.Compile(source)
	if err != nil {
		return exitCode(err)
	}
	data, err := bytecode.MarshalChunk(chunk)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding chunk: %v\n", err)
		return 1
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitIOErr
	}
	log.Infof("wrote %s (%d bytes, %d instructions)", path, len(data), chunk.CodeLen())
	return 0
}

func runChunkFile(ctx context.Context, path string, opts []engine.Option) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitIOErr
	}
	chunk, err := bytecode.UnmarshalChunk(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", path, err)
		return exitData
	}
	return exitCode(engine.New(opts...).RunChunk(ctx, chunk))
}
