// Package client provides the HTTP client for the upstream processing service.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"playlist-porter/internal/config"
	"playlist-porter/internal/metrics"
	"playlist-porter/internal/model"
)

const userAgent = "playlist-porter/1.0"

var (
	// ErrBuildRequest marks failures that happened before any network I/O.
	ErrBuildRequest = errors.New("build upstream request")

	// ErrBodyTooLarge is returned when an upstream reply exceeds the
	// configured maximum body size.
	ErrBodyTooLarge = errors.New("upstream response body too large")
)

// UpstreamClient sends requests to the upstream processing service.
type UpstreamClient struct {
	httpClient   *http.Client
	maxBodyBytes int64
	logger       *slog.Logger
	metrics    *metrics.Metrics
}

// NewUpstreamClient creates an UpstreamClient with connection pooling and timeouts.
// The metrics parameter is optional; pass nil to disable upstream metrics recording.
func NewUpstreamClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *UpstreamClient {
	transport := &http.Transport{
		MaxIdleConns:        cfg.Upstream.IdleConnections,
		MaxIdleConnsPerHost: cfg.Upstream.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return &UpstreamClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second,
		},
		maxBodyBytes: cfg.Upstream.MaxBodyBytes,
		logger:       logger.With("component", "upstream_client"),
		metrics:      m,
	}
}

// PostJSON sends body to url as application/json and returns the fully read reply.
func (c *UpstreamClient) PostJSON(ctx context.Context, url string, body []byte) (*model.UpstreamReply, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.Do(req)
}

// Get issues a GET to url and returns the fully read reply.
func (c *UpstreamClient) Get(ctx context.Context, url string) (*model.UpstreamReply, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildRequest, err)
	}

	return c.Do(req)
}

// Do executes req and reads the whole response body before returning, so a
// malformed body is still observable by the caller. A body longer than the
// configured maximum fails with ErrBodyTooLarge; zero means no limit.
func (c *UpstreamClient) Do(req *http.Request) (*model.UpstreamReply, error) {
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug("upstream request",
		"method", req.Method,
		"path", req.URL.Path,
	)

	method := metrics.NormalizeMethod(req.Method)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, start, "")
		return nil, fmt.Errorf("upstream request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var r io.Reader = resp.Body
	if c.maxBodyBytes > 0 {
		r = io.LimitReader(resp.Body, c.maxBodyBytes+1)
	}
	body, err := io.ReadAll(r)
	c.observe(method, start, strconv.Itoa(resp.StatusCode))
	if err != nil {
		return nil, fmt.Errorf("read upstream body: %w", err)
	}
	if c.maxBodyBytes > 0 && int64(len(body)) > c.maxBodyBytes {
		return nil, fmt.Errorf("%w: status %d, limit %d bytes", ErrBodyTooLarge, resp.StatusCode, c.maxBodyBytes)
	}

	return &model.UpstreamReply{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func (c *UpstreamClient) observe(method string, start time.Time, status string) {
	if c.metrics == nil {
		return
	}
	c.metrics.UpstreamDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if status != "" {
		c.metrics.UpstreamResponses.WithLabelValues(method, status).Inc()
	}
}
