package server

import (
	"context"
	"errors"
	"net/http"

	"hr-service/internal/domain"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

type AuditService interface {
	GetEntityAuditLogs(ctx context.Context, entityID string) (*domain.AuditLogEntry, error)
	GetUserAuditLogs(ctx context.Context, id string) ([]domain.AuditLogEntry, error)
}

type auditServer struct {
	auditService AuditService
}

func NewAuditServer(auditService AuditService) *auditServer {
	return &auditServer{
		auditService: auditService,
	}
}

func handleAuditError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidEntityID):
		return http.StatusBadRequest, "entity ID is required"
	case errors.Is(err, domain.ErrAuditLogNotFound):
		return http.StatusNotFound, "no audit logs found for this user"
	default:
		return http.StatusInternalServerError, "failed to fetch audit logs"
	}
}

// GetEntityAuditLogs answers with the latest entry, or a null data field
// when the entity has no history.
func (s *auditServer) GetEntityAuditLogs(c echo.Context) error {
	id := c.Param("id")

	entry, err := s.auditService.GetEntityAuditLogs(c.Request().Context(), id)
	if err != nil {
		statusCode, message := handleAuditError(err)
		if statusCode == http.StatusInternalServerError {
			log.WithError(err).WithField("entity_id", id).Error("Failed to get entity audit logs")
		}
		return respondError(c, statusCode, message, errorDetail(statusCode))
	}

	if entry == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    nil,
		})
	}
	return respond(c, http.StatusOK, entry)
}

func (s *auditServer) GetUserAuditLogs(c echo.Context) error {
	id := c.Param("id")

	entries, err := s.auditService.GetUserAuditLogs(c.Request().Context(), id)
	if err != nil {
		statusCode, message := handleAuditError(err)
		if statusCode == http.StatusInternalServerError {
			log.WithError(err).WithField("user_id", id).Error("Failed to get user audit logs")
		}
		return respondError(c, statusCode, message, errorDetail(statusCode))
	}

	return respond(c, http.StatusOK, entries)
}

// errorDetail keeps store internals out of responses.
func errorDetail(statusCode int) string {
	switch statusCode {
	case http.StatusInternalServerError:
		return "internal server error"
	default:
		return http.StatusText(statusCode)
	}
}
