// Lox CLI - runs scripts, starts the REPL, and hosts the RPC and LSP servers
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/tliron/commonlog"

	"github.com/chazu/lox/cache"
	"github.com/chazu/lox/engine"
	"github.com/chazu/lox/manifest"
	"github.com/chazu/lox/server"

	_ "github.com/tliron/commonlog/simple"
)

// Exit codes follow sysexits.h.
const (
	exitUsage   = 64
	exitData    = 65
	exitIOErr   = 74
	exitRuntime = 70
)

var log = commonlog.GetLogger("lox")

func main() {
	os.Exit(run())
}

func run() int {
	backendName := flag.String("backend", "", "Execution backend: treewalk or bytecode (default from lox.toml, else treewalk)")
	interactive := flag.Bool("i", false, "Start interactive REPL")
	disasm := flag.Bool("disasm", false, "Compile the script with the bytecode compiler and print its disassembly")
	printAST := flag.Bool("ast", false, "Parse the script and print its syntax tree")
	trace := flag.Bool("trace", false, "Trace bytecode VM instructions to stderr")
	verbose := flag.Bool("v", false, "Verbose (debug) logging")
	serveMode := flag.Bool("serve", false, "Start the RPC server (Connect, gRPC, gRPC-Web)")
	servePort := flag.Int("port", 0, "RPC server port (used with -serve; default from lox.toml, else 4567)")
	lspMode := flag.Bool("lsp", false, "Start the language server on stdio")
	outPath := flag.String("o", "", "Compile the script to a chunk file instead of running it")
	loadPath := flag.String("load", "", "Run a compiled chunk file")
	noCache := flag.Bool("no-cache", false, "Disable the compiled chunk cache")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: lox [options] [script]\n\n")
		fmt.Fprintf(os.Stderr, "Runs a Lox script, or starts a REPL when no script is given.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  lox                               # Start REPL\n")
		fmt.Fprintf(os.Stderr, "  lox hello.lox                     # Run a script\n")
		fmt.Fprintf(os.Stderr, "  lox -backend bytecode -trace expr.lox\n")
		fmt.Fprintf(os.Stderr, "  lox -disasm expr.lox              # Show bytecode\n")
		fmt.Fprintf(os.Stderr, "  lox -o expr.loxc expr.lox         # Compile to a chunk file\n")
		fmt.Fprintf(os.Stderr, "  lox -load expr.loxc               # Run a chunk file\n")
		fmt.Fprintf(os.Stderr, "\nServers:\n")
		fmt.Fprintf(os.Stderr, "  lox -serve -port 8080             # RPC server on :8080\n")
		fmt.Fprintf(os.Stderr, "  lox -lsp                          # Language server on stdio\n")
	}
	flag.Parse()

	if flag.NArg() > 1 {
		flag.Usage()
		return exitUsage
	}

	m, err := loadManifest()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}

	verbosity := m.Log.Verbosity
	if *verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, m.LogPath())

	backend, err := engine.ParseBackend(m.Run.Backend)
	if *backendName != "" {
		backend, err = engine.ParseBackend(*backendName)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}

	opts := []engine.Option{engine.WithBackend(backend)}
	if *trace || m.Run.Trace {
		opts = append(opts, engine.WithTrace(os.Stderr))
	}
	if path := m.CachePath(); path != "" && !*noCache {
		store, err := cache.Open(path)
		if err != nil {
			log.Errorf("chunk cache disabled: %s", err)
		} else {
			defer store.Close()
			opts = append(opts, engine.WithCache(store))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Start language server if requested
	if *lspMode {
		if err := server.NewLSP(opts...).Run(); err != nil {
			fmt.Fprintf(os.Stderr, "LSP error: %v\n", err)
			return 1
		}
		return 0
	}

	// Start RPC server if requested
	if *serveMode {
		addr := m.Server.Addr
		if *servePort != 0 {
			addr = fmt.Sprintf(":%d", *servePort)
		}
		return serve(ctx, addr, opts)
	}

	if *loadPath != "" {
		return runChunkFile(ctx, *loadPath, opts)
	}

	script := flag.Arg(0)
	if script == "" && !*interactive {
		script = m.EntryPath()
	}

	if script == "" || *interactive {
		runREPL(engine.New(opts...))
		return 0
	}

	source, err := os.ReadFile(script)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitIOErr
	}

	switch {
	case *disasm:
		return disassemble(script, string(source))
	case *printAST:
		return dumpAST(string(source))
	case *outPath != "":
		return compileToFile(string(source), *outPath)
	}
	return runSource(ctx, engine.New(opts...), string(source))
}

// loadManifest finds lox.toml above the working directory, falling back to
// defaults when there is none.
func loadManifest() (*manifest.Manifest, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	m, err := manifest.FindAndLoad(wd)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return manifest.Default(), nil
	}
	return m, nil
}

func serve(ctx context.Context, addr string, opts []engine.Option) int {
	srv := server.New(server.WithEngineOptions(opts...))
	go func() {
		<-ctx.Done()
		srv.Stop()
	}()
	if err := srv.ListenAndServe(addr); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		return 1
	}
	return 0
}
