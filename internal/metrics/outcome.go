package metrics

import (
	"strconv"
	"time"
)

// Status classifies the result of a single request attempt.
type Status string

const (
	StatusSuccess        Status = "success"
	StatusHTTPError      Status = "http_error"
	StatusTransportError Status = "transport_error"
)

// Outcome is the immutable result of one request attempt.
type Outcome struct {
	Status     Status
	Latency    time.Duration // zero when HasLatency is false
	HasLatency bool
	StatusCode int   // zero for transport failures
	Err        error // nil on success
}

// Success builds a successful outcome.
func Success(latency time.Duration, code int) Outcome {
	if latency < 0 {
		latency = 0
	}
	return Outcome{Status: StatusSuccess, Latency: latency, HasLatency: true, StatusCode: code}
}

// HTTPFailure builds an outcome for a response with an unexpected status code.
// The latency is kept on the outcome but never enters the sample set.
func HTTPFailure(latency time.Duration, code int, err error) Outcome {
	if latency < 0 {
		latency = 0
	}
	return Outcome{Status: StatusHTTPError, Latency: latency, HasLatency: true, StatusCode: code, Err: err}
}

// TransportFailure builds an outcome for a request that never produced a response.
func TransportFailure(err error) Outcome {
	return Outcome{Status: StatusTransportError, Err: err}
}

// OK reports whether the outcome counts as a success.
func (o Outcome) OK() bool {
	return o.Status == StatusSuccess
}

// Bucket returns the status bucket label used in breakdowns: the status code
// for responses, a transport error class otherwise.
func (o Outcome) Bucket() string {
	switch o.Status {
	case StatusTransportError:
		return ClassifyTransportError(o.Err)
	default:
		if o.StatusCode > 0 {
			return strconv.Itoa(o.StatusCode)
		}
		return string(o.Status)
	}
}
