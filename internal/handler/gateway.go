package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"playlist-porter/internal/model"
	"playlist-porter/internal/service"
)

// GatewayHandler exposes the forwarding gateway over HTTP.
type GatewayHandler struct {
	gateway *service.Gateway
	logger  *slog.Logger
}

// NewGatewayHandler creates a GatewayHandler.
func NewGatewayHandler(gw *service.Gateway, logger *slog.Logger) *GatewayHandler {
	return &GatewayHandler{
		gateway: gw,
		logger:  logger.With("component", "gateway_handler"),
	}
}

// Forward reads the JSON body and forwards it to the logical endpoint it names.
// The response status and body come from the normalized result.
func (h *GatewayHandler) Forward(c echo.Context) error {
	ctx := c.Request().Context()
	if !h.gateway.Configured() {
		// Answer before touching the body; ForwardJSON reports the
		// misconfiguration without decoding anything.
		return h.write(c, h.gateway.ForwardJSON(ctx, nil))
	}

	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		// BodyLimit rejects oversized bodies before this point; anything
		// else is a broken client connection.
		h.logger.Warn("reading request body", "err", err)
		return h.write(c, model.ClientError("could not read request body"))
	}

	return h.write(c, h.gateway.ForwardJSON(ctx, raw))
}

// Status reports whether the gateway is configured and the upstream reachable.
func (h *GatewayHandler) Status(c echo.Context) error {
	report := h.gateway.Status(c.Request().Context())
	return c.JSON(report.HTTPStatus, report)
}

func (h *GatewayHandler) write(c echo.Context, res *model.Result) error {
	body, err := res.Body()
	if err != nil {
		h.logger.Error("encoding gateway result", "err", err, "kind", res.Kind)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "internal server error in gateway",
		})
	}
	return c.JSONBlob(res.HTTPStatus(), body)
}
