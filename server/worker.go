package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chazu/lox/engine"
)

var errStopped = errors.New("worker stopped")

// workRequest is a unit of work to run on the engine goroutine.
type workRequest struct {
	fn   func(*engine.Engine) interface{}
	done chan workResult
}

// workResult holds the return value from an engine operation.
type workResult struct {
	value interface{}
	err   error
}

// Worker serializes all engine access through a single goroutine.
// An Engine is single-threaded; every RPC and LSP handler goes through
// the worker.
type Worker struct {
	engine   *engine.Engine
	out      *bytes.Buffer
	requests chan workRequest
	quit     chan struct{}
	stopOnce sync.Once
}

// NewWorker creates a Worker around a fresh Engine and starts the
// processing goroutine. Program output is captured in a buffer that
// Capture hands back per request.
func NewWorker(opts ...engine.Option) *Worker {
	out := &bytes.Buffer{}
	w := &Worker{
		engine:   engine.New(append(opts, engine.WithOutput(out))...),
		out:      out,
		requests: make(chan workRequest, 64),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *Worker) loop() {
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs fn on the engine, recovering from panics.
func (w *Worker) execute(fn func(*engine.Engine) interface{}) workResult {
	var result workResult
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("worker panic: %v", r)
				result.err = fmt.Errorf("%v", r)
			}
		}()
		result.value = fn(w.engine)
	}()
	return result
}

// Do submits fn for execution on the engine goroutine and blocks until it
// completes or ctx is done. A cancelled ctx does not abort fn itself; pass
// ctx into Run for that.
func (w *Worker) Do(ctx context.Context, fn func(*engine.Engine) interface{}) (interface{}, error) {
	select {
	case <-w.quit:
		return nil, errStopped
	default:
	}

	req := workRequest{
		fn:   fn,
		done: make(chan workResult, 1),
	}
	select {
	case w.requests <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.quit:
		return nil, errStopped
	}
	select {
	case result := <-req.done:
		return result.value, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.quit:
		return nil, errStopped
	}
}

// Capture runs fn like Do and also returns whatever the program printed
// while fn ran.
func (w *Worker) Capture(ctx context.Context, fn func(*engine.Engine) error) (string, error) {
	type captured struct {
		output string
		err    error
	}
	v, err := w.Do(ctx, func(e *engine.Engine) interface{} {
		w.out.Reset()
		runErr := fn(e)
		c := captured{output: w.out.String(), err: runErr}
		w.out.Reset()
		return c
	})
	if err != nil {
		return "", err
	}
	c := v.(captured)
	return c.output, c.err
}

// Stop shuts down the worker goroutine.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
}
