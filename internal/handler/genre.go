package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"playlist-porter/internal/genre"
	"playlist-porter/internal/model"
)

const genreFailureMessage = "Failed to analyze genres. Please try again later."

// GenreHandler serves the genre analysis endpoint.
type GenreHandler struct {
	analyzer *genre.Analyzer
	logger   *slog.Logger
}

// NewGenreHandler creates a GenreHandler.
func NewGenreHandler(a *genre.Analyzer, logger *slog.Logger) *GenreHandler {
	return &GenreHandler{
		analyzer: a,
		logger:   logger.With("component", "genre_handler"),
	}
}

// Analyze handles POST /api/genre-analysis.
func (h *GenreHandler) Analyze(c echo.Context) error {
	var in genre.Input
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "request body must be a JSON object of name lists",
		})
	}

	out, err := h.analyzer.Analyze(c.Request().Context(), in)
	if err != nil {
		var ae *genre.AnalysisError
		if !errors.As(err, &ae) {
			h.logger.Error("genre analysis", "err", err)
			return c.JSON(http.StatusInternalServerError, map[string]any{
				"error":     genreFailureMessage,
				"retryable": false,
			})
		}
		return c.JSON(analysisStatus(ae), map[string]any{
			"error":     genreFailureMessage,
			"kind":      ae.Kind,
			"retryable": ae.Retryable,
		})
	}
	return c.JSON(http.StatusOK, out)
}

func analysisStatus(ae *genre.AnalysisError) int {
	switch ae.Kind {
	case model.KindMisconfigured, model.KindInternal:
		return http.StatusInternalServerError
	case model.KindServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
