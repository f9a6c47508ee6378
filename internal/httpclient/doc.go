// Package httpclient issues the single GET requests that make up a load test.
//
// # Request Building
//
// [NewRequestBuilder] validates the configured target once, up front:
//
//	builder, err := httpclient.NewRequestBuilder(cfg)
//	if err != nil {
//		return err
//	}
//	req, err := builder.Build(ctx)
//
// Requests carry no body and no custom headers. Trace context headers are only
// added when tracing propagation is switched on.
//
// # Executor
//
// [Executor] sends one request, measures it and classifies the result:
//
//	exec := httpclient.NewExecutor(httpclient.NewClient(time.Second, 64), builder, recorder)
//	outcome := exec.Execute(ctx)
//
// Execute never panics and never returns an error. A 200 response is a success,
// any other status is a [ProtocolError] and a request that never got a response is a
// [TransportError]. [Executor.Do] records the outcome and satisfies runner.Requester.
package httpclient
