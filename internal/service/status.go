package service

import (
	"context"
	"net/http"
	"time"
	"unicode/utf8"

	"playlist-porter/internal/model"
)

// State is the coarse health of the gateway.
type State string

const (
	StateRunning          State = "running"
	StatePartiallyRunning State = "partially_running"
	StateMisconfigured    State = "misconfigured"
)

const (
	probeTimeout   = 5 * time.Second
	maxProbeResult = 512
)

// StatusReport describes the gateway configuration and, when probing is
// enabled, what the upstream root answered.
type StatusReport struct {
	Status          State  `json:"status"`
	Message         string `json:"message"`
	Target          string `json:"target,omitempty"`
	ProbeStatusCode int    `json:"probeStatusCode,omitempty"`
	ProbeResult     string `json:"probeResult,omitempty"`
	ProbeError      string `json:"probeError,omitempty"`

	// HTTPStatus is the status code the report is served with.
	HTTPStatus int `json:"-"`
}

// Status reports whether the gateway can forward. It never fails and never
// changes gateway state; a failed probe is part of the report.
func (g *Gateway) Status(ctx context.Context) *StatusReport {
	if !g.Configured() {
		return &StatusReport{
			Status:     StateMisconfigured,
			Message:    "gateway is misconfigured: upstream base URL is not set",
			HTTPStatus: http.StatusInternalServerError,
		}
	}

	report := &StatusReport{
		Status:     StateRunning,
		Message:    "gateway is running; POST a JSON body with a logicalEndpoint to forward it",
		Target:     g.baseURL,
		HTTPStatus: http.StatusOK,
	}
	if !g.probe {
		return report
	}

	reply, err := g.probeRoot(ctx)
	if err != nil {
		g.logger.Warn("upstream probe failed", "err", err)
		report.Status = StatePartiallyRunning
		report.Message = "gateway is running but the upstream service is unreachable"
		report.ProbeError = err.Error()
		report.HTTPStatus = http.StatusServiceUnavailable
		return report
	}

	report.ProbeStatusCode = reply.StatusCode
	report.ProbeResult = truncate(string(reply.Body), maxProbeResult)
	if reply.StatusCode < 200 || reply.StatusCode > 299 {
		report.Status = StatePartiallyRunning
		report.Message = "gateway is running but the upstream service reported an error"
	}
	return report
}

// probeRoot fetches the upstream root. Concurrent callers share one request;
// it runs detached from any single caller's cancellation and is bounded by
// probeTimeout instead.
func (g *Gateway) probeRoot(ctx context.Context) (*model.UpstreamReply, error) {
	v, err, _ := g.probes.Do("root", func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), probeTimeout)
		defer cancel()
		return g.upstream.Get(ctx, g.baseURL+"/")
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.UpstreamReply), nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
