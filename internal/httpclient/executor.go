package httpclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/sourcegraph/conc/panics"
	"go.opentelemetry.io/otel/attribute"

	"github.com/torosent/surge/internal/metrics"
	"github.com/torosent/surge/internal/tracing"
)

const maxLoggedBodyBytes = 256

// Executor sends one GET per call and records its outcome.
type Executor struct {
	client   *http.Client
	builder  *RequestBuilder
	recorder *metrics.Recorder
	tracing  *tracing.Provider
}

// ExecutorOption customizes an Executor.
type ExecutorOption func(*Executor)

// WithTracing emits a client span per request using provider.
func WithTracing(provider *tracing.Provider) ExecutorOption {
	return func(e *Executor) {
		e.tracing = provider
	}
}

// NewExecutor wires a client, a request builder and the shared recorder.
// A nil recorder is allowed; outcomes are then only returned.
func NewExecutor(client *http.Client, builder *RequestBuilder, recorder *metrics.Recorder, opts ...ExecutorOption) *Executor {
	if client == nil {
		client = http.DefaultClient
	}
	e := &Executor{client: client, builder: builder, recorder: recorder}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Do executes a request, records it and returns its failure as an error.
func (e *Executor) Do(ctx context.Context) error {
	outcome := e.Execute(ctx)
	if e.recorder != nil {
		e.recorder.Record(outcome)
	}
	return outcome.Err
}

// Execute sends one request and classifies the result. It never panics.
func (e *Executor) Execute(ctx context.Context) (outcome metrics.Outcome) {
	if ctx == nil {
		ctx = context.Background()
	}
	if r := panics.Try(func() { outcome = e.execute(ctx) }); r != nil {
		outcome = metrics.TransportFailure(&TransportError{Err: r.AsError()})
	}
	return outcome
}

func (e *Executor) execute(ctx context.Context) metrics.Outcome {
	ctx, span := tracing.StartRequestSpan(ctx, e.tracing.Tracer(), http.MethodGet, e.builder.Target())

	req, err := e.builder.Build(ctx)
	if err != nil {
		tracing.EndSpan(span, err)
		return metrics.TransportFailure(&TransportError{Err: err})
	}
	if e.tracing.ShouldPropagate() {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		tracing.EndSpan(span, err)
		return metrics.TransportFailure(&TransportError{Err: err})
	}
	defer resp.Body.Close()

	var snippet []byte
	if resp.StatusCode != http.StatusOK {
		snippet, _ = io.ReadAll(io.LimitReader(resp.Body, maxLoggedBodyBytes))
	}
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		tracing.EndSpan(span, err)
		return metrics.TransportFailure(&TransportError{Err: err})
	}
	latency := time.Since(start)

	statusAttr := attribute.Int("http.response.status_code", resp.StatusCode)
	if resp.StatusCode != http.StatusOK {
		perr := &ProtocolError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
		tracing.EndSpan(span, perr, statusAttr)
		return metrics.HTTPFailure(latency, resp.StatusCode, perr)
	}

	tracing.EndSpan(span, nil, statusAttr)
	return metrics.Success(latency, resp.StatusCode)
}
