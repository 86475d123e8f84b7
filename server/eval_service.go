package server

import (
	"context"
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"

	"github.com/chazu/lox/engine"
)

// Procedure paths served by EvalService.
const (
	EvalServiceName   = "lox.v1.EvalService"
	EvaluateProcedure = "/" + EvalServiceName + "/Evaluate"
	CheckProcedure    = "/" + EvalServiceName + "/Check"
)

// EvaluateResponse.ErrorKind values.
const (
	ErrorKindCompile = "compile"
	ErrorKindRuntime = "runtime"
)

// EvaluateRequest asks for source to be run. An empty Backend uses the
// worker engine's default.
type EvaluateRequest struct {
	Source  string `json:"source"`
	Backend string `json:"backend,omitempty"`
}

// EvaluateResponse carries what the program printed. A program that fails
// to compile or run is still a successful RPC: Success is false and Error
// holds the message.
type EvaluateResponse struct {
	Output    string `json:"output"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"errorKind,omitempty"`
}

// CheckRequest asks for diagnostics without running anything.
type CheckRequest struct {
	Source string `json:"source"`
}

// CheckResponse lists every scan and parse error found.
type CheckResponse struct {
	Valid       bool         `json:"valid"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// jsonCodec lets Connect carry plain Go structs. It replaces the built-in
// "json" codec, which only accepts protobuf messages.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// EvalService implements the evaluation RPCs.
type EvalService struct {
	worker *Worker
}

// NewEvalService creates an EvalService backed by worker.
func NewEvalService(worker *Worker) *EvalService {
	return &EvalService{worker: worker}
}

// Evaluate runs source on the shared engine. Globals defined by one call
// stay visible to the next.
func (s *EvalService) Evaluate(
	ctx context.Context,
	req *connect.Request[EvaluateRequest],
) (*connect.Response[EvaluateResponse], error) {
	source := req.Msg.Source
	if source == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}
	backend := engine.Backend("")
	if req.Msg.Backend != "" {
		b, err := engine.ParseBackend(req.Msg.Backend)
		if err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		backend = b
	}

	output, runErr := s.worker.Capture(ctx, func(e *engine.Engine) error {
		if backend == "" {
			return e.Run(ctx, source)
		}
		return e.RunWith(ctx, backend, source)
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, connect.NewError(connect.CodeDeadlineExceeded, ctxErr)
	}

	resp := &EvaluateResponse{Output: output, Success: runErr == nil}
	if runErr != nil {
		resp.Error = runErr.Error()
		switch {
		case engine.IsCompileError(runErr):
			resp.ErrorKind = ErrorKindCompile
		case engine.IsRuntimeError(runErr):
			resp.ErrorKind = ErrorKindRuntime
		default:
			return nil, connect.NewError(connect.CodeInternal, runErr)
		}
	}
	return connect.NewResponse(resp), nil
}

// Check reports diagnostics for source without executing it.
func (s *EvalService) Check(
	ctx context.Context,
	req *connect.Request[CheckRequest],
) (*connect.Response[CheckResponse], error) {
	v, err := s.worker.Do(ctx, func(e *engine.Engine) interface{} {
		return e.Check(req.Msg.Source)
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	diags := diagnosticsFor(v.([]error))
	return connect.NewResponse(&CheckResponse{
		Valid:       len(diags) == 0,
		Diagnostics: diags,
	}), nil
}

// Handlers returns the mux paths and handlers for the service.
func (s *EvalService) Handlers(opts ...connect.HandlerOption) map[string]*connect.Handler {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)
	return map[string]*connect.Handler{
		EvaluateProcedure: connect.NewUnaryHandler(EvaluateProcedure, s.Evaluate, opts...),
		CheckProcedure:    connect.NewUnaryHandler(CheckProcedure, s.Check, opts...),
	}
}

// Client calls an EvalService over HTTP.
type Client struct {
	evaluate *connect.Client[EvaluateRequest, EvaluateResponse]
	check    *connect.Client[CheckRequest, CheckResponse]
}

// NewClient creates a Client for the server at baseURL.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &Client{
		evaluate: connect.NewClient[EvaluateRequest, EvaluateResponse](httpClient, baseURL+EvaluateProcedure, opts...),
		check:    connect.NewClient[CheckRequest, CheckResponse](httpClient, baseURL+CheckProcedure, opts...),
	}
}

// Evaluate calls EvalService.Evaluate.
func (c *Client) Evaluate(ctx context.Context, req *EvaluateRequest) (*EvaluateResponse, error) {
	resp, err := c.evaluate.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// Check calls EvalService.Check.
func (c *Client) Check(ctx context.Context, req *CheckRequest) (*CheckResponse, error) {
	resp, err := c.check.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}
