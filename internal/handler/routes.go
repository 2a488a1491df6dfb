package handler

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes wires all route handlers onto the Echo instance.
func RegisterRoutes(e *echo.Echo, gw *GatewayHandler, lib *LibraryHandler, g *GenreHandler, health *HealthHandler) {
	e.GET("/healthz", health.Healthz)

	api := e.Group("/api")
	api.POST("/gateway", gw.Forward)
	api.GET("/gateway", gw.Status)

	api.POST("/accounts/:role/connect", lib.Connect)
	api.GET("/library", lib.Library)
	api.POST("/copy", lib.Copy)

	api.POST("/genre-analysis", g.Analyze)
}
