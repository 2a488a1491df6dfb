package handler

import (
	"io"
	"log/slog"

	"playlist-porter/internal/client"
	"playlist-porter/internal/config"
	"playlist-porter/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig returns a config pointing at baseURL with defaults a test needs.
func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Upstream: config.UpstreamConfig{
			BaseURL:         baseURL,
			TimeoutSeconds:  5,
			IdleConnections: 10,
		},
		Genre: config.GenreConfig{Endpoint: "/genre-analysis"},
	}
}

func newTestGateway(cfg *config.Config) *service.Gateway {
	logger := discardLogger()
	return service.NewGateway(client.NewUpstreamClient(cfg, logger, nil), cfg, logger, nil)
}
