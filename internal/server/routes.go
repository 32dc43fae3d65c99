package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes mounts every HTTP endpoint on e.
func RegisterRoutes(e *echo.Echo, srv *Server, audit *auditServer, candidates *candidateServer, jwtSecret string) {
	e.GET("/health", srv.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")

	auditLogs := api.Group("/audit")
	auditLogs.GET("/entity/:id", audit.GetEntityAuditLogs)
	auditLogs.GET("/audit-logs/:id", audit.GetUserAuditLogs)

	requireActor := ActorMiddleware(jwtSecret)
	cands := api.Group("/candidates")
	cands.GET("", candidates.ListCandidates)
	cands.GET("/:id", candidates.GetCandidate)
	cands.POST("", candidates.CreateCandidate, requireActor)
	cands.PUT("/:id", candidates.UpdateCandidate, requireActor)
	cands.DELETE("/:id", candidates.DeleteCandidate, requireActor)
}
