package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"hr-service/internal/domain"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

type CandidateService interface {
	ListCandidates(ctx context.Context, limit, offset int) ([]domain.Candidate, error)
	GetCandidate(ctx context.Context, id string) (*domain.Candidate, error)
	CreateCandidate(ctx context.Context, data map[string]interface{}, actorID string) (*domain.Candidate, error)
	UpdateCandidate(ctx context.Context, id string, patch map[string]interface{}, actorID string) (*domain.Candidate, error)
	DeleteCandidate(ctx context.Context, id string, actorID string) error
}

type candidateServer struct {
	candidateService CandidateService
}

func NewCandidateServer(candidateService CandidateService) *candidateServer {
	return &candidateServer{
		candidateService: candidateService,
	}
}

func handleCandidateError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrCandidateNotFound):
		return http.StatusNotFound, "candidate not found"
	case errors.Is(err, domain.ErrInvalidCandidateID), errors.Is(err, domain.ErrEmptyCandidateData):
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, domain.ErrActorRequired):
		return http.StatusUnauthorized, "unauthorized"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func (s *candidateServer) ListCandidates(c echo.Context) error {
	limitStr := c.QueryParam("limit")
	offsetStr := c.QueryParam("offset")

	limit := domain.DefaultListLimit
	offset := 0

	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	if offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	candidates, err := s.candidateService.ListCandidates(c.Request().Context(), limit, offset)
	if err != nil {
		log.WithError(err).Error("Failed to list candidates")
		statusCode, message := handleCandidateError(err)
		return respondError(c, statusCode, message, errorDetail(statusCode))
	}

	return respond(c, http.StatusOK, candidates)
}

func (s *candidateServer) GetCandidate(c echo.Context) error {
	id := c.Param("id")

	candidate, err := s.candidateService.GetCandidate(c.Request().Context(), id)
	if err != nil {
		statusCode, message := handleCandidateError(err)
		if statusCode == http.StatusInternalServerError {
			log.WithError(err).WithField("candidate_id", id).Error("Failed to get candidate")
		}
		return respondError(c, statusCode, message, errorDetail(statusCode))
	}

	return respond(c, http.StatusOK, candidate)
}

func (s *candidateServer) CreateCandidate(c echo.Context) error {
	data, err := bindDocument(c)
	if err != nil {
		return respondError(c, http.StatusBadRequest, "invalid request body", err.Error())
	}

	candidate, err := s.candidateService.CreateCandidate(c.Request().Context(), data, ActorFromContext(c))
	if err != nil {
		statusCode, message := handleCandidateError(err)
		if statusCode == http.StatusInternalServerError {
			log.WithError(err).Error("Failed to create candidate")
		}
		return respondError(c, statusCode, message, errorDetail(statusCode))
	}

	return respond(c, http.StatusCreated, candidate)
}

func (s *candidateServer) UpdateCandidate(c echo.Context) error {
	id := c.Param("id")

	patch, err := bindDocument(c)
	if err != nil {
		return respondError(c, http.StatusBadRequest, "invalid request body", err.Error())
	}

	candidate, err := s.candidateService.UpdateCandidate(c.Request().Context(), id, patch, ActorFromContext(c))
	if err != nil {
		statusCode, message := handleCandidateError(err)
		if statusCode == http.StatusInternalServerError {
			log.WithError(err).WithField("candidate_id", id).Error("Failed to update candidate")
		}
		return respondError(c, statusCode, message, errorDetail(statusCode))
	}

	return c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    candidate,
		Message: "Candidate updated successfully",
	})
}

func (s *candidateServer) DeleteCandidate(c echo.Context) error {
	id := c.Param("id")

	if err := s.candidateService.DeleteCandidate(c.Request().Context(), id, ActorFromContext(c)); err != nil {
		statusCode, message := handleCandidateError(err)
		if statusCode == http.StatusInternalServerError {
			log.WithError(err).WithField("candidate_id", id).Error("Failed to delete candidate")
		}
		return respondError(c, statusCode, message, errorDetail(statusCode))
	}

	return respondMessage(c, http.StatusOK, "Candidate deleted successfully")
}

// bindDocument decodes the request body only; path params must not leak
// into the document.
func bindDocument(c echo.Context) (map[string]interface{}, error) {
	var data map[string]interface{}
	if err := (&echo.DefaultBinder{}).BindBody(c, &data); err != nil {
		return nil, err
	}
	return data, nil
}
