package metrics

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
)

// Transport error classes used as status buckets.
const (
	BucketTimeout           = "timeout"
	BucketDNS               = "dns"
	BucketConnectionRefused = "connection_refused"
	BucketConnectionReset   = "connection_reset"
	BucketCanceled          = "canceled"
	BucketTLS               = "tls"
	BucketTransport         = "transport"
)

var friendlyBuckets = map[string]string{
	BucketTimeout:           "Timeout",
	BucketDNS:               "DNS lookup failed",
	BucketConnectionRefused: "Connection refused",
	BucketConnectionReset:   "Connection reset",
	BucketCanceled:          "Canceled",
	BucketTLS:               "TLS handshake failed",
	BucketTransport:         "Transport error",
}

// ClassifyTransportError maps a client error to a coarse bucket label.
func ClassifyTransportError(err error) string {
	if err == nil {
		return BucketTransport
	}
	if errors.Is(err, context.Canceled) {
		return BucketCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return BucketTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return BucketTimeout
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return BucketDNS
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return BucketConnectionRefused
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return BucketConnectionReset
	}
	var recordErr tls.RecordHeaderError
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &recordErr) || errors.As(err, &certErr) {
		return BucketTLS
	}
	return BucketTransport
}

// FriendlyBucketName returns a human label for a status bucket.
func FriendlyBucketName(bucket string) string {
	cleaned := strings.TrimSpace(bucket)
	if cleaned == "" {
		return "Unknown error"
	}
	if code, err := strconv.Atoi(cleaned); err == nil {
		if text := http.StatusText(code); text != "" {
			return "HTTP " + cleaned + " " + text
		}
		return "HTTP " + cleaned
	}
	if alias, ok := friendlyBuckets[cleaned]; ok {
		return alias
	}
	return capitalize(strings.ReplaceAll(cleaned, "_", " "))
}

func capitalize(s string) string {
	if s == "" {
		return ""
	}
	lower := strings.ToLower(s)
	return strings.ToUpper(lower[:1]) + lower[1:]
}
