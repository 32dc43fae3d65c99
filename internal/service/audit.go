package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"hr-service/internal/domain"
	"hr-service/internal/metrics"
	"hr-service/internal/publisher"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type AuditLogRepository interface {
	Append(ctx context.Context, entry *domain.AuditLogEntry) error
	FindLatestByEntity(ctx context.Context, entityID string) (*domain.AuditLogEntry, error)
	ListByEntity(ctx context.Context, entityID, entityType string) ([]domain.AuditLogEntry, error)
}

type ActorDirectory interface {
	FindActors(ctx context.Context, ids []string) (map[string]domain.ActorRef, error)
}

type AuditPublisher interface {
	Publish(ctx context.Context, event domain.AuditEvent) error
}

// AuditService persists audit entries and serves the audit read views.
type AuditService struct {
	repo      AuditLogRepository
	actors    ActorDirectory
	publisher AuditPublisher
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewAuditService wires the recorder. publisher and m may be nil.
func NewAuditService(repo AuditLogRepository, actors ActorDirectory, publisher AuditPublisher, m *metrics.Metrics) *AuditService {
	return &AuditService{
		repo:      repo,
		actors:    actors,
		publisher: publisher,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Record appends an audit entry. It does not check that changes is non-empty
// and does not retry; store failures come back wrapped in ErrPersistence.
func (s *AuditService) Record(ctx context.Context, entityID, entityType string, changeType domain.ChangeType, changes []domain.FieldChange, actorID string) (*domain.AuditLogEntry, error) {
	if !changeType.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidChange, changeType)
	}

	entry := &domain.AuditLogEntry{
		ID:         uuid.NewString(),
		EntityID:   entityID,
		EntityType: entityType,
		ChangeType: changeType,
		Changes:    changes,
		UpdatedBy:  actorID,
		UpdatedAt:  s.now(),
	}

	if err := s.repo.Append(ctx, entry); err != nil {
		s.metrics.IncrementRecordFailures()
		log.WithError(err).WithFields(log.Fields{
			"entity_id":   entityID,
			"entity_type": entityType,
			"change_type": changeType,
		}).Error("Failed to record audit log")
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	s.metrics.IncrementRecorded(string(changeType))
	log.WithFields(log.Fields{
		"audit_log_id": entry.ID,
		"entity_id":    entityID,
		"change_type":  changeType,
		"fields":       len(changes),
	}).Debug("Audit log recorded")

	s.publish(ctx, entry)
	return entry, nil
}

func (s *AuditService) publish(ctx context.Context, entry *domain.AuditLogEntry) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, publisher.EventFromEntry(entry)); err != nil {
		s.metrics.IncrementPublishFailures()
		log.WithError(err).WithField("audit_log_id", entry.ID).Warn("Failed to publish audit event")
	}
}

// GetEntityAuditLogs returns the most recent entry for entityID, or nil when
// the entity has no history.
func (s *AuditService) GetEntityAuditLogs(ctx context.Context, entityID string) (*domain.AuditLogEntry, error) {
	if entityID == "" {
		return nil, domain.ErrInvalidEntityID
	}

	entry, err := s.repo.FindLatestByEntity(ctx, entityID)
	if errors.Is(err, domain.ErrAuditLogNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	entries := []domain.AuditLogEntry{*entry}
	if err := s.resolveActors(ctx, entries); err != nil {
		return nil, err
	}
	return &entries[0], nil
}

// GetUserAuditLogs lists the candidate history for id, newest first, with
// no-op changes filtered out for display. It returns ErrAuditLogNotFound when
// nothing matches.
func (s *AuditService) GetUserAuditLogs(ctx context.Context, id string) ([]domain.AuditLogEntry, error) {
	if id == "" {
		return nil, domain.ErrInvalidEntityID
	}

	entries, err := s.repo.ListByEntity(ctx, id, domain.EntityTypeCandidate)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	if len(entries) == 0 {
		return nil, domain.ErrAuditLogNotFound
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
	})

	if err := s.resolveActors(ctx, entries); err != nil {
		return nil, err
	}

	for i := range entries {
		entries[i].Changes = displayableChanges(entries[i].Changes)
	}
	return entries, nil
}

func (s *AuditService) resolveActors(ctx context.Context, entries []domain.AuditLogEntry) error {
	if s.actors == nil {
		return nil
	}

	seen := make(map[string]struct{}, len(entries))
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.UpdatedBy == "" {
			continue
		}
		if _, ok := seen[e.UpdatedBy]; ok {
			continue
		}
		seen[e.UpdatedBy] = struct{}{}
		ids = append(ids, e.UpdatedBy)
	}

	actors, err := s.actors.FindActors(ctx, ids)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	for i := range entries {
		if ref, ok := actors[entries[i].UpdatedBy]; ok {
			entries[i].Actor = &ref
		}
	}
	return nil
}

func displayableChanges(changes []domain.FieldChange) []domain.FieldChange {
	kept := make([]domain.FieldChange, 0, len(changes))
	for _, c := range changes {
		if isDisplayable(c) {
			kept = append(kept, c)
		}
	}
	return kept
}

// isDisplayable keeps a change that carries a new value, or that cleared a
// non-empty old value.
func isDisplayable(c domain.FieldChange) bool {
	if len(c.NewValue) > 0 && !isJSONNull(c.NewValue) {
		return true
	}
	if len(c.OldValue) == 0 {
		return false
	}

	var old interface{}
	if err := json.Unmarshal(c.OldValue, &old); err != nil {
		return true
	}
	switch v := old.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case []interface{}:
		return len(v) > 0
	default:
		return true
	}
}

func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
