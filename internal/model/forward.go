// Package model defines shared types for the gateway and its callers.
package model

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// LogicalEndpointField is the inbound body field that names the upstream operation.
// It is consumed by the gateway and never forwarded.
const LogicalEndpointField = "logicalEndpoint"

// Kind discriminates the variants of a normalized gateway Result.
type Kind string

const (
	KindSuccess            Kind = "success"
	KindUpstreamError      Kind = "upstream_error"
	KindBadGateway         Kind = "bad_gateway"
	KindServiceUnavailable Kind = "service_unavailable"
	KindMisconfigured      Kind = "misconfigured"
	KindClientError        Kind = "client_error"
	KindInternal           Kind = "internal_error"
)

// ForwardRequest is a JSON payload tagged with the upstream operation it targets.
type ForwardRequest struct {
	LogicalEndpoint string
	Payload         json.RawMessage
}

// UpstreamReply is a fully read upstream response.
type UpstreamReply struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Result is the normalized outcome of a single forward call. Which fields are
// populated depends on Kind.
type Result struct {
	Kind       Kind
	StatusCode int // upstream status, UpstreamError only
	Message    string
	Data       json.RawMessage // Success only
	Details    json.RawMessage // UpstreamError and Internal
	RawBody    string          // BadGateway only
	Cause      string          // ServiceUnavailable only
}

// Success wraps a parsed upstream JSON body.
func Success(data json.RawMessage) *Result {
	return &Result{Kind: KindSuccess, Data: data}
}

// UpstreamError reports a non-2xx upstream reply.
func UpstreamError(statusCode int, message string, details json.RawMessage) *Result {
	return &Result{Kind: KindUpstreamError, StatusCode: statusCode, Message: message, Details: details}
}

// BadGateway reports a 2xx upstream reply whose body is not JSON.
func BadGateway(rawBody string) *Result {
	return &Result{
		Kind:    KindBadGateway,
		Message: "received non-JSON response from upstream service",
		RawBody: rawBody,
	}
}

// ReplyTooLarge reports an upstream reply over the size limit. The body is
// discarded.
func ReplyTooLarge(limit int64) *Result {
	return &Result{
		Kind:    KindBadGateway,
		Message: fmt.Sprintf("upstream response exceeded the %d byte limit", limit),
	}
}

// ServiceUnavailable reports an upstream that could not be reached.
func ServiceUnavailable(cause string) *Result {
	return &Result{
		Kind:    KindServiceUnavailable,
		Message: "could not connect to the upstream service; ensure it is running and accessible",
		Cause:   cause,
	}
}

// Misconfigured reports a gateway with no upstream base URL.
func Misconfigured() *Result {
	return &Result{
		Kind:    KindMisconfigured,
		Message: "upstream service URL is not configured on the server",
	}
}

// ClientError reports a malformed request to the gateway itself.
func ClientError(message string) *Result {
	return &Result{Kind: KindClientError, Message: message}
}

// Internal reports a failure that is neither transport nor upstream related.
func Internal(details string) *Result {
	raw, _ := json.Marshal(details)
	return &Result{Kind: KindInternal, Message: "internal server error in gateway", Details: raw}
}

// HTTPStatus returns the status code the gateway answers with for this result.
func (r *Result) HTTPStatus() int {
	switch r.Kind {
	case KindSuccess:
		return http.StatusOK
	case KindUpstreamError:
		return r.StatusCode
	case KindBadGateway:
		return http.StatusBadGateway
	case KindServiceUnavailable:
		return http.StatusServiceUnavailable
	case KindClientError:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether a caller may reasonably retry the same request.
func (r *Result) Retryable() bool {
	return r.Kind == KindUpstreamError || r.Kind == KindServiceUnavailable
}

type errorBody struct {
	Kind       Kind            `json:"kind"`
	Message    string          `json:"message"`
	StatusCode int             `json:"statusCode,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
	RawBody    string          `json:"rawBody,omitempty"`
	Cause      string          `json:"cause,omitempty"`
}

// Body encodes the caller-visible JSON body. A Success body is the upstream
// data unchanged.
func (r *Result) Body() ([]byte, error) {
	if r.Kind == KindSuccess {
		return r.Data, nil
	}
	return json.Marshal(errorBody{
		Kind:       r.Kind,
		Message:    r.Message,
		StatusCode: r.StatusCode,
		Details:    r.Details,
		RawBody:    r.RawBody,
		Cause:      r.Cause,
	})
}
