package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"syscall"
	"testing"

	"playlist-porter/internal/client"
)

func TestClassifyTransportError(t *testing.T) {
	refused := &url.Error{
		Op:  "Post",
		URL: "http://127.0.0.1:1/process",
		Err: &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)},
	}

	tests := []struct {
		name   string
		err    error
		want   Cause
		wantOK bool
	}{
		{"connection refused", fmt.Errorf("upstream request: %w", refused), CauseConnectionRefused, true},
		{"deadline", &url.Error{Op: "Post", URL: "http://x", Err: context.DeadlineExceeded}, CauseTimeout, true},
		{"canceled", &url.Error{Op: "Post", URL: "http://x", Err: context.Canceled}, CauseCanceled, true},
		{"dns", &url.Error{Op: "Post", URL: "http://x", Err: &net.DNSError{Err: "no such host", Name: "x"}}, CauseDNS, true},
		{"dns timeout", &net.DNSError{Err: "i/o timeout", Name: "x", IsTimeout: true}, CauseTimeout, true},
		{"generic url error", &url.Error{Op: "Post", URL: "http://x", Err: errors.New("tls: handshake failure")}, CauseTransport, true},
		{"op error reset", &net.OpError{Op: "read", Net: "tcp", Err: syscall.ECONNRESET}, CauseTransport, true},
		{"body cut short", fmt.Errorf("read upstream body: %w", io.ErrUnexpectedEOF), CauseTransport, true},
		{"not transport", errors.New("bad method"), "", false},
		{"url parse failure", fmt.Errorf("%w: %w", client.ErrBuildRequest, &url.Error{Op: "parse", URL: "http://x/a%zz", Err: url.EscapeError("%zz")}), "", false},
		{"body too large", fmt.Errorf("%w: limit 10 bytes", client.ErrBodyTooLarge), "", false},
		{"nil", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ClassifyTransportError(tt.err)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ClassifyTransportError() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
