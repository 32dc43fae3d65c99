package service

import (
	"context"
	"fmt"

	"hr-service/internal/domain"
	"hr-service/internal/tracker"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type CandidateRepository interface {
	List(ctx context.Context, limit, offset int) ([]domain.Candidate, error)
	GetByID(ctx context.Context, id string) (*domain.Candidate, error)
	Create(ctx context.Context, candidate *domain.Candidate) error
	Update(ctx context.Context, candidate *domain.Candidate) error
	Delete(ctx context.Context, id string) (*domain.Candidate, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, entityID, entityType string, changeType domain.ChangeType, changes []domain.FieldChange, actorID string) (*domain.AuditLogEntry, error)
}

type candidateService struct {
	candidateRepo CandidateRepository
	audit         AuditRecorder
}

func NewCandidateService(candidateRepo CandidateRepository, audit AuditRecorder) *candidateService {
	return &candidateService{
		candidateRepo: candidateRepo,
		audit:         audit,
	}
}

func (s *candidateService) ListCandidates(ctx context.Context, limit, offset int) ([]domain.Candidate, error) {
	if limit <= 0 {
		limit = domain.DefaultListLimit
	}
	if limit > domain.MaxListLimit {
		limit = domain.MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	candidates, err := s.candidateRepo.List(ctx, limit, offset)
	if err != nil {
		log.WithError(err).Error("Failed to list candidates")
		return nil, err
	}
	return candidates, nil
}

func (s *candidateService) GetCandidate(ctx context.Context, id string) (*domain.Candidate, error) {
	if err := validateCandidateID(id); err != nil {
		return nil, err
	}
	return s.candidateRepo.GetByID(ctx, id)
}

func (s *candidateService) CreateCandidate(ctx context.Context, data map[string]interface{}, actorID string) (*domain.Candidate, error) {
	if actorID == "" {
		return nil, domain.ErrActorRequired
	}
	data = domain.SanitizeCandidateData(data)
	if err := domain.ValidateCandidateData(data); err != nil {
		return nil, err
	}

	candidate := &domain.Candidate{
		ID:        uuid.NewString(),
		Data:      data,
		UpdatedBy: actorID,
	}

	if err := s.candidateRepo.Create(ctx, candidate); err != nil {
		return nil, fmt.Errorf("failed to create candidate: %w", err)
	}

	changes := tracker.ComputeChanges(tracker.Document{}, candidate.Data)
	s.recordChanges(ctx, candidate.ID, domain.ChangeTypeCreate, changes, actorID)

	log.WithFields(log.Fields{
		"candidate_id": candidate.ID,
		"actor_id":     actorID,
	}).Info("Candidate successfully created")

	return candidate, nil
}

// UpdateCandidate merges patch over the stored document, commits it, then
// records the field-level diff. Concurrent editors are not coordinated.
func (s *candidateService) UpdateCandidate(ctx context.Context, id string, patch map[string]interface{}, actorID string) (*domain.Candidate, error) {
	if err := validateCandidateID(id); err != nil {
		return nil, err
	}
	if actorID == "" {
		return nil, domain.ErrActorRequired
	}
	patch = domain.SanitizeCandidateData(patch)
	if err := domain.ValidateCandidateData(patch); err != nil {
		return nil, err
	}

	existing, err := s.candidateRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]interface{}, len(existing.Data)+len(patch))
	for k, v := range existing.Data {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}

	updated := &domain.Candidate{
		ID:        existing.ID,
		Data:      merged,
		CreatedAt: existing.CreatedAt,
		UpdatedBy: actorID,
	}

	changes := tracker.ComputeChanges(existing.Document(), updated.Document())

	if err := s.candidateRepo.Update(ctx, updated); err != nil {
		log.WithError(err).WithField("candidate_id", id).Error("Failed to update candidate")
		return nil, err
	}

	if len(changes) > 0 {
		s.recordChanges(ctx, id, domain.ChangeTypeUpdate, changes, actorID)
	}

	log.WithFields(log.Fields{
		"candidate_id": id,
		"actor_id":     actorID,
		"changed":      len(changes),
	}).Info("Candidate successfully updated")

	return updated, nil
}

func (s *candidateService) DeleteCandidate(ctx context.Context, id string, actorID string) error {
	if err := validateCandidateID(id); err != nil {
		return err
	}
	if actorID == "" {
		return domain.ErrActorRequired
	}

	removed, err := s.candidateRepo.Delete(ctx, id)
	if err != nil {
		log.WithError(err).WithField("candidate_id", id).Error("Failed to delete candidate")
		return err
	}

	changes := tracker.ComputeChanges(removed.Data, tracker.Document{})
	s.recordChanges(ctx, id, domain.ChangeTypeDelete, changes, actorID)

	log.WithFields(log.Fields{
		"candidate_id": id,
		"actor_id":     actorID,
	}).Info("Candidate successfully deleted")

	return nil
}

// recordChanges writes the audit entry. The entity mutation is already
// committed, so a failed audit write is logged and not returned.
func (s *candidateService) recordChanges(ctx context.Context, id string, changeType domain.ChangeType, changes []domain.FieldChange, actorID string) {
	if s.audit == nil {
		return
	}
	if _, err := s.audit.Record(ctx, id, domain.EntityTypeCandidate, changeType, changes, actorID); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"candidate_id": id,
			"change_type":  changeType,
		}).Warn("Candidate changed but audit log was not recorded")
	}
}

func validateCandidateID(id string) error {
	if id == "" {
		return domain.ErrInvalidCandidateID
	}
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrInvalidCandidateID
	}
	return nil
}
