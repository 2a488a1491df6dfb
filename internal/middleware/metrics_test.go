package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"playlist-porter/internal/metrics"
)

// requestSamples returns the label sets and counter values of the inbound
// request counter.
func requestSamples(t *testing.T, m *metrics.Metrics) []map[string]string {
	t.Helper()
	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	var out []map[string]string
	for _, f := range families {
		if f.GetName() != "playlist_porter_http_requests_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			labels := make(map[string]string)
			for _, lp := range metric.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			out = append(out, labels)
		}
	}
	return out
}

func serve(e *echo.Echo, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestMetricsMiddleware_Labels(t *testing.T) {
	tests := []struct {
		name     string
		register func(e *echo.Echo)
		method   string
		path     string
		want     map[string]string
	}{
		{
			name: "gateway success",
			register: func(e *echo.Echo) {
				e.POST("/api/gateway", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
			},
			method: http.MethodPost,
			path:   "/api/gateway",
			want:   map[string]string{"method": "POST", "status_code": "200", "path_prefix": "/api/gateway"},
		},
		{
			name: "HTTPError status resolved",
			register: func(e *echo.Echo) {
				e.GET("/api/library", func(c echo.Context) error { return echo.NewHTTPError(http.StatusConflict, "no source") })
			},
			method: http.MethodGet,
			path:   "/api/library",
			want:   map[string]string{"method": "GET", "status_code": "409", "path_prefix": "/api/library"},
		},
		{
			name: "unknown method normalized",
			register: func(e *echo.Echo) {
				e.Any("/api/copy", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
			},
			method: "XYZZY",
			path:   "/api/copy",
			want:   map[string]string{"method": "other", "path_prefix": "/api/copy"},
		},
		{
			name:     "router not found",
			register: func(*echo.Echo) {},
			method:   http.MethodGet,
			path:     "/nonexistent",
			want:     map[string]string{"method": "GET", "status_code": "404", "path_prefix": "other"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New()
			e := echo.New()
			e.Use(MetricsMiddleware(m))
			tt.register(e)

			serve(e, tt.method, tt.path)

			samples := requestSamples(t, m)
			if len(samples) != 1 {
				t.Fatalf("got %d request samples, want 1: %v", len(samples), samples)
			}
			for k, v := range tt.want {
				if samples[0][k] != v {
					t.Errorf("label %s = %q, want %q", k, samples[0][k], v)
				}
			}
		})
	}
}

func TestMetricsMiddleware_RecordsDuration(t *testing.T) {
	m := metrics.New()
	e := echo.New()
	e.Use(MetricsMiddleware(m))
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	serve(e, http.MethodGet, "/healthz")

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, f := range families {
		if f.GetName() != "playlist_porter_http_request_duration_seconds" {
			continue
		}
		for _, metric := range f.GetMetric() {
			if metric.GetHistogram().GetSampleCount() > 0 {
				return
			}
		}
	}
	t.Error("expected playlist_porter_http_request_duration_seconds with at least one sample")
}
