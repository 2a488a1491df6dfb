package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"playlist-porter/internal/library"
	"playlist-porter/internal/middleware"
	"playlist-porter/internal/model"
)

// LibraryHandler serves the simulated account operations. The session is
// identified by the X-Session-Id header; connect returns a new one when the
// header is absent.
type LibraryHandler struct {
	service *library.Service
	logger  *slog.Logger
}

// NewLibraryHandler creates a LibraryHandler.
func NewLibraryHandler(svc *library.Service, logger *slog.Logger) *LibraryHandler {
	return &LibraryHandler{
		service: svc,
		logger:  logger.With("component", "library_handler"),
	}
}

// Connect handles POST /api/accounts/:role/connect.
func (h *LibraryHandler) Connect(c echo.Context) error {
	role := model.Role(c.Param("role"))
	conn, err := h.service.ConnectAccount(c.Request().Context(), sessionID(c), role)
	if err != nil {
		return h.mapError(c, err)
	}
	c.Response().Header().Set(middleware.HeaderSessionID, conn.Session.ID)
	return c.JSON(http.StatusOK, conn)
}

// Library handles GET /api/library.
func (h *LibraryHandler) Library(c echo.Context) error {
	lib, err := h.service.FetchLibrary(c.Request().Context(), sessionID(c))
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, lib)
}

// Copy handles POST /api/copy. A simulated copy failure is still a 200; the
// body carries success=false and the error message.
func (h *LibraryHandler) Copy(c echo.Context) error {
	var sel model.Selection
	if err := c.Bind(&sel); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "request body must be a JSON selection",
		})
	}

	res, err := h.service.CopyItems(c.Request().Context(), sessionID(c), sel)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *LibraryHandler) mapError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, library.ErrInvalidRole),
		errors.Is(err, library.ErrEmptySelection),
		errors.Is(err, library.ErrUnknownItem):
		status = http.StatusBadRequest
	case errors.Is(err, library.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, library.ErrSourceNotConnected),
		errors.Is(err, library.ErrDestinationNotConnected):
		status = http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("library request failed", "err", err, "path", c.Request().URL.Path)
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}

func sessionID(c echo.Context) string {
	return c.Request().Header.Get(middleware.HeaderSessionID)
}
