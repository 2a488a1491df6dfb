package service

import (
	"context"
	"errors"
	"io"
	"net"
	"net/url"
	"syscall"

	"playlist-porter/internal/client"
)

// Cause names why the upstream could not be reached.
type Cause string

const (
	CauseConnectionRefused Cause = "connection_refused"
	CauseTimeout           Cause = "timeout"
	CauseDNS               Cause = "dns"
	CauseCanceled          Cause = "canceled"
	CauseTransport         Cause = "transport"
)

// ClassifyTransportError inspects the error kind returned by the HTTP client.
// It reports false when err is not a transport failure at all, for example
// when the request could not be built. URL parse failures are *url.Error too,
// so the build marker is checked first.
func ClassifyTransportError(err error) (Cause, bool) {
	if err == nil || errors.Is(err, client.ErrBuildRequest) || errors.Is(err, client.ErrBodyTooLarge) {
		return "", false
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return CauseConnectionRefused, true
	case errors.Is(err, context.DeadlineExceeded):
		return CauseTimeout, true
	case errors.Is(err, context.Canceled):
		return CauseCanceled, true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return CauseTimeout, true
		}
		return CauseDNS, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CauseTimeout, true
	}

	var opErr *net.OpError
	var urlErr *url.Error
	if errors.As(err, &opErr) || errors.As(err, &urlErr) {
		return CauseTransport, true
	}

	// Connection dropped while the body was being read.
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return CauseTransport, true
	}

	return "", false
}
