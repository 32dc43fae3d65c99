package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"hr-service/internal/domain"

	log "github.com/sirupsen/logrus"
)

type postgresAuditLogRepository struct {
	db *sql.DB
}

func NewPostgresAuditLogRepository(db *sql.DB) *postgresAuditLogRepository {
	return &postgresAuditLogRepository{db: db}
}

const auditLogColumns = `id, entity_id, entity_type, change_type, changes, updated_by, updated_at`

func (r *postgresAuditLogRepository) Append(ctx context.Context, entry *domain.AuditLogEntry) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	changes := entry.Changes
	if changes == nil {
		changes = []domain.FieldChange{}
	}
	payload, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("failed to encode audit changes: %w", err)
	}

	query := `
		INSERT INTO audit_logs (` + auditLogColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.db.ExecContext(ctx, query,
		entry.ID,
		entry.EntityID,
		entry.EntityType,
		string(entry.ChangeType),
		payload,
		entry.UpdatedBy,
		entry.UpdatedAt,
	)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"entity_id":   entry.EntityID,
			"entity_type": entry.EntityType,
		}).Error("Failed to insert audit log")
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	return nil
}

func (r *postgresAuditLogRepository) FindLatestByEntity(ctx context.Context, entityID string) (*domain.AuditLogEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT ` + auditLogColumns + `
		FROM audit_logs
		WHERE entity_id = $1
		ORDER BY updated_at DESC
		LIMIT 1
	`

	entry, err := scanAuditLog(r.db.QueryRowContext(ctx, query, entityID))
	if err == sql.ErrNoRows {
		return nil, domain.ErrAuditLogNotFound
	}
	if err != nil {
		log.WithError(err).WithField("entity_id", entityID).Error("Failed to get audit log by entity")
		return nil, fmt.Errorf("failed to get audit log: %w", err)
	}

	return entry, nil
}

func (r *postgresAuditLogRepository) ListByEntity(ctx context.Context, entityID, entityType string) ([]domain.AuditLogEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT ` + auditLogColumns + `
		FROM audit_logs
		WHERE entity_id = $1 AND entity_type = $2
		ORDER BY updated_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, entityID, entityType)
	if err != nil {
		log.WithError(err).WithField("entity_id", entityID).Error("Failed to list audit logs")
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditLogEntry
	for rows.Next() {
		entry, err := scanAuditLog(rows)
		if err != nil {
			log.WithError(err).Error("Failed to scan audit log row")
			return nil, fmt.Errorf("failed to scan audit log row: %w", err)
		}
		entries = append(entries, *entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over audit log rows: %w", err)
	}

	return entries, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAuditLog(row rowScanner) (*domain.AuditLogEntry, error) {
	var entry domain.AuditLogEntry
	var changeType string
	var changes []byte

	err := row.Scan(
		&entry.ID,
		&entry.EntityID,
		&entry.EntityType,
		&changeType,
		&changes,
		&entry.UpdatedBy,
		&entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.ChangeType = domain.ChangeType(changeType)
	entry.UpdatedAt = entry.UpdatedAt.UTC()
	if len(changes) > 0 {
		if err := json.Unmarshal(changes, &entry.Changes); err != nil {
			return nil, fmt.Errorf("failed to decode audit changes: %w", err)
		}
	}

	return &entry, nil
}
