package httpclient

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/torosent/surge/internal/config"
)

// RequestBuilder produces identical GET requests for one target.
type RequestBuilder struct {
	target string
}

func NewRequestBuilder(cfg *config.Config) (*RequestBuilder, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	target := strings.TrimSpace(cfg.TargetURL)
	if target == "" {
		return nil, errors.New("target URL is required")
	}
	if err := config.ValidateTargetURL(target); err != nil {
		return nil, err
	}

	return &RequestBuilder{target: target}, nil
}

// Target returns the request URL.
func (b *RequestBuilder) Target() string {
	if b == nil {
		return ""
	}
	return b.target
}

func (b *RequestBuilder) Build(ctx context.Context) (*http.Request, error) {
	if b == nil {
		return nil, errors.New("builder cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return http.NewRequestWithContext(ctx, http.MethodGet, b.target, nil)
}

// NewClient returns a client whose Timeout bounds each request end to end.
// maxConns sizes the idle pool to the expected number of in-flight requests.
func NewClient(timeout time.Duration, maxConns int) *http.Client {
	if timeout < 0 {
		timeout = 0
	}
	if maxConns <= 0 {
		maxConns = 32
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          maxConns,
		MaxIdleConnsPerHost:   maxConns,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
