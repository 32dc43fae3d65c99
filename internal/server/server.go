package server

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	db Pinger
}

func NewServer(db Pinger) *Server {
	return &Server{
		db: db,
	}
}

// Response is the envelope every API handler writes.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func respond(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, Response{Success: true, Data: data})
}

func respondMessage(c echo.Context, status int, message string) error {
	return c.JSON(status, Response{Success: true, Message: message})
}

func respondError(c echo.Context, status int, message, detail string) error {
	return c.JSON(status, Response{Success: false, Message: message, Error: detail})
}

func (s *Server) HealthCheck(c echo.Context) error {
	if err := s.db.PingContext(c.Request().Context()); err != nil {
		log.WithError(err).Error("Health check failed: database is down")
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  "database connection error",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
