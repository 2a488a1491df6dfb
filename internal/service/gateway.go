// Package service implements the forwarding gateway: the single path through
// which calls to the upstream processing service pass.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/sync/singleflight"

	"playlist-porter/internal/client"
	"playlist-porter/internal/config"
	"playlist-porter/internal/metrics"
	"playlist-porter/internal/model"
)

var (
	// ErrMalformedBody is returned when an inbound body is not a JSON object.
	ErrMalformedBody = errors.New("request body must be a JSON object")

	errMissingEndpoint = errors.New("missing logical endpoint")
)

const genericUpstreamMessage = "error received from upstream service"

// Upstream is the transport the gateway forwards over.
type Upstream interface {
	PostJSON(ctx context.Context, url string, body []byte) (*model.UpstreamReply, error)
	Get(ctx context.Context, url string) (*model.UpstreamReply, error)
}

// Gateway forwards tagged JSON requests to the upstream service and
// normalizes every outcome into a model.Result. Forwards share no mutable
// state; only status probes are coalesced.
type Gateway struct {
	upstream Upstream
	baseURL  string // normalized; empty when unconfigured
	probe    bool
	maxBody  int64
	probes   singleflight.Group
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewGateway creates a Gateway. An empty upstream base URL is accepted and
// logged; every forward then returns a misconfigured result.
func NewGateway(c *client.UpstreamClient, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *Gateway {
	g := &Gateway{
		upstream: c,
		baseURL:  NormalizeBaseURL(cfg.Upstream.BaseURL),
		probe:    cfg.Upstream.ProbeEnabled(),
		maxBody:  cfg.Upstream.MaxBodyBytes,
		logger:   logger.With("component", "gateway"),
		metrics:  m,
	}
	if !g.Configured() {
		g.logger.Error("upstream base URL is not set; forwarded requests will fail as misconfigured")
	}
	return g
}

// NormalizeBaseURL strips trailing slashes so that concatenating a logical
// endpoint never produces a double slash. It is idempotent.
func NormalizeBaseURL(u string) string {
	return strings.TrimRight(u, "/")
}

// Configured reports whether an upstream base URL is set.
func (g *Gateway) Configured() bool {
	return g.baseURL != ""
}

// ForwardJSON is the HTTP-facing entry point: raw is the inbound body, a JSON
// object carrying the logical endpoint next to the payload fields.
func (g *Gateway) ForwardJSON(ctx context.Context, raw []byte) *model.Result {
	if !g.Configured() {
		return g.finish(model.Misconfigured())
	}

	req, err := DecodeForwardRequest(raw)
	if err != nil {
		return g.finish(model.ClientError(err.Error()))
	}
	return g.Forward(ctx, req)
}

// Forward sends req.Payload to the upstream operation named by
// req.LogicalEndpoint. It never returns an error: every failure is reported
// as one of the model.Result kinds.
func (g *Gateway) Forward(ctx context.Context, req *model.ForwardRequest) *model.Result {
	if !g.Configured() {
		return g.finish(model.Misconfigured())
	}

	endpoint, err := cleanEndpoint(req.LogicalEndpoint)
	if err != nil {
		return g.finish(model.ClientError(err.Error()))
	}

	payload, err := stripDiscriminator(req.Payload)
	if err != nil {
		return g.finish(model.ClientError(err.Error()))
	}

	g.logger.Debug("forwarding request", "endpoint", endpoint, "bytes", len(payload))

	reply, err := g.upstream.PostJSON(ctx, g.baseURL+endpoint, payload)
	if err != nil {
		return g.finish(g.transportFailure(endpoint, err))
	}

	res := interpret(reply)
	switch res.Kind {
	case model.KindUpstreamError:
		g.logger.Warn("upstream returned error",
			"endpoint", endpoint,
			"status", res.StatusCode,
			"details", string(res.Details),
		)
	case model.KindBadGateway:
		g.logger.Error("upstream returned non-JSON success body",
			"endpoint", endpoint,
			"status", reply.StatusCode,
			"bytes", len(reply.Body),
		)
	}
	return g.finish(res)
}

// DecodeForwardRequest splits an inbound body into its logical endpoint and
// payload. A missing endpoint is not an error here; Forward rejects it.
func DecodeForwardRequest(raw []byte) (*model.ForwardRequest, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, ErrMalformedBody
	}

	var endpoint string
	if v, ok := fields[model.LogicalEndpointField]; ok {
		if err := json.Unmarshal(v, &endpoint); err != nil {
			return nil, fmt.Errorf("%s must be a string", model.LogicalEndpointField)
		}
	}

	return &model.ForwardRequest{LogicalEndpoint: endpoint, Payload: raw}, nil
}

// cleanEndpoint validates a logical endpoint and returns it as an absolute path.
// It must parse as a URL path on its own: no scheme, no host, no control
// characters and no ".." segment, escaped or not.
func cleanEndpoint(ep string) (string, error) {
	ep = strings.TrimSpace(ep)
	if ep == "" {
		return "", errMissingEndpoint
	}
	if strings.Contains(ep, "://") {
		return "", fmt.Errorf("logical endpoint must be a path, got %q", ep)
	}
	if strings.IndexFunc(ep, unicode.IsControl) >= 0 {
		return "", fmt.Errorf("logical endpoint must not contain control characters, got %q", ep)
	}
	if !strings.HasPrefix(ep, "/") {
		ep = "/" + ep
	}

	u, err := url.Parse(ep)
	if err != nil {
		return "", fmt.Errorf("logical endpoint is not a valid path: %q", ep)
	}
	if u.Scheme != "" || u.Host != "" {
		return "", fmt.Errorf("logical endpoint must be a path, got %q", ep)
	}
	for _, seg := range strings.Split(u.Path, "/") {
		if seg == ".." {
			return "", fmt.Errorf("logical endpoint must not contain '..', got %q", ep)
		}
	}
	return ep, nil
}

// stripDiscriminator removes the logical endpoint field from a payload object.
// An empty payload becomes {}.
func stripDiscriminator(payload json.RawMessage) ([]byte, error) {
	if len(payload) == 0 {
		return []byte("{}"), nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil || fields == nil {
		return nil, errors.New("payload must be a JSON object")
	}
	if _, ok := fields[model.LogicalEndpointField]; !ok {
		return payload, nil
	}

	delete(fields, model.LogicalEndpointField)
	out, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return out, nil
}

// interpret maps a fully read upstream reply onto a result.
func interpret(reply *model.UpstreamReply) *model.Result {
	if reply.StatusCode < 200 || reply.StatusCode > 299 {
		details := json.RawMessage(reply.Body)
		if !json.Valid(details) {
			details, _ = json.Marshal(string(reply.Body))
		}
		return model.UpstreamError(reply.StatusCode, upstreamMessage(details), details)
	}

	if !json.Valid(reply.Body) {
		return model.BadGateway(string(reply.Body))
	}
	return model.Success(json.RawMessage(reply.Body))
}

// upstreamMessage prefers a message or error string from the upstream body.
func upstreamMessage(details json.RawMessage) string {
	var fields struct {
		Message any `json:"message"`
		Error   any `json:"error"`
	}
	if json.Unmarshal(details, &fields) != nil {
		return genericUpstreamMessage
	}
	for _, v := range []any{fields.Message, fields.Error} {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return genericUpstreamMessage
}

func (g *Gateway) transportFailure(endpoint string, err error) *model.Result {
	if errors.Is(err, client.ErrBodyTooLarge) {
		g.logger.Error("upstream reply over size limit", "endpoint", endpoint, "err", err)
		return model.ReplyTooLarge(g.maxBody)
	}

	cause, ok := ClassifyTransportError(err)
	if !ok {
		g.logger.Error("forward failed", "endpoint", endpoint, "err", err)
		return model.Internal(err.Error())
	}
	g.logger.Warn("upstream unreachable", "endpoint", endpoint, "cause", cause, "err", err)
	return model.ServiceUnavailable(string(cause))
}

func (g *Gateway) finish(res *model.Result) *model.Result {
	if g.metrics != nil {
		g.metrics.ForwardOutcomes.WithLabelValues(string(res.Kind)).Inc()
	}
	return res
}
