package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"

	"github.com/chazu/lox/engine"
)

var log = commonlog.GetLogger("lox.server")

// LoxServer serves the evaluation RPCs over Connect, gRPC and gRPC-Web on
// one port.
type LoxServer struct {
	worker *Worker
	mux    *http.ServeMux

	mu         sync.Mutex
	httpServer *http.Server
}

// ServerOption configures a LoxServer.
type ServerOption func(*serverConfig)

type serverConfig struct {
	engineOpts  []engine.Option
	evalTimeout time.Duration
	readLimit   int
}

// WithEngineOptions passes options to the engine the server runs programs
// on.
func WithEngineOptions(opts ...engine.Option) ServerOption {
	return func(c *serverConfig) { c.engineOpts = append(c.engineOpts, opts...) }
}

// WithEvalTimeout bounds how long one Evaluate may run. Zero means no
// limit beyond the client's own deadline.
func WithEvalTimeout(d time.Duration) ServerOption {
	return func(c *serverConfig) { c.evalTimeout = d }
}

// WithReadLimit caps the size of a request message in bytes.
func WithReadLimit(n int) ServerOption {
	return func(c *serverConfig) { c.readLimit = n }
}

// New creates a LoxServer with its own engine worker.
func New(opts ...ServerOption) *LoxServer {
	cfg := &serverConfig{
		evalTimeout: 10 * time.Second,
		readLimit:   1 << 20,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &LoxServer{
		worker: NewWorker(cfg.engineOpts...),
		mux:    http.NewServeMux(),
	}

	evalSvc := NewEvalService(s.worker)
	handlerOpts := []connect.HandlerOption{
		connect.WithReadMaxBytes(cfg.readLimit),
		connect.WithInterceptors(timeoutInterceptor(cfg.evalTimeout)),
	}
	for path, h := range evalSvc.Handlers(handlerOpts...) {
		s.mux.Handle(path, h)
	}
	return s
}

// timeoutInterceptor bounds every unary call by d and logs how long it
// took. A shorter client deadline still wins.
func timeoutInterceptor(d time.Duration) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if d > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, d)
				defer cancel()
			}
			start := time.Now()
			resp, err := next(ctx, req)
			log.Debugf("%s took %s", req.Spec().Procedure, time.Since(start))
			return resp, err
		}
	}
}

// Handler returns the HTTP handler serving every RPC, for embedding or
// tests.
func (s *LoxServer) Handler() http.Handler {
	return s.mux
}

// ListenAndServe starts the HTTP server on the given address.
// The address should be in the form "host:port" or ":port".
func (s *LoxServer) ListenAndServe(addr string) error {
	protocols := new(http.Protocols)
	protocols.SetHTTP1(true)
	protocols.SetUnencryptedHTTP2(true)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		Protocols:         protocols,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	fmt.Printf("Lox server listening on %s\n", addr)
	fmt.Printf("  Connect (HTTP/JSON): http://%s%s\n", addr, EvaluateProcedure)
	fmt.Printf("  gRPC (h2c):          grpc://%s\n", addr)
	log.Infof("listening on %s", addr)

	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts down the HTTP server, if running, and the engine worker.
func (s *LoxServer) Stop() {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Errorf("shutdown: %s", err)
		}
	}
	s.worker.Stop()
}
