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

type postgresCandidateRepository struct {
	db *sql.DB
}

func NewPostgresCandidateRepository(db *sql.DB) *postgresCandidateRepository {
	return &postgresCandidateRepository{db: db}
}

const candidateColumns = `id, data, created_at, updated_at, updated_by`

func (r *postgresCandidateRepository) List(ctx context.Context, limit, offset int) ([]domain.Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT ` + candidateColumns + `
		FROM candidates
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		log.WithError(err).Error("Failed to list candidates")
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	var candidates []domain.Candidate
	for rows.Next() {
		candidate, err := scanCandidate(rows)
		if err != nil {
			log.WithError(err).Error("Failed to scan candidate row")
			return nil, fmt.Errorf("failed to scan candidate row: %w", err)
		}
		candidates = append(candidates, *candidate)
	}

	return candidates, rows.Err()
}

func (r *postgresCandidateRepository) GetByID(ctx context.Context, id string) (*domain.Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE id = $1`

	candidate, err := scanCandidate(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrCandidateNotFound
	}
	if err != nil {
		log.WithError(err).WithField("candidate_id", id).Error("Failed to get candidate by ID")
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}

	return candidate, nil
}

func (r *postgresCandidateRepository) Create(ctx context.Context, candidate *domain.Candidate) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	payload, err := json.Marshal(candidate.Data)
	if err != nil {
		return fmt.Errorf("failed to encode candidate data: %w", err)
	}

	log.WithField("candidate_id", candidate.ID).Info("Creating new candidate")

	query := `
		INSERT INTO candidates (id, data, updated_by)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`

	err = r.db.QueryRowContext(ctx, query,
		candidate.ID,
		payload,
		nullableString(candidate.UpdatedBy),
	).Scan(&candidate.CreatedAt, &candidate.UpdatedAt)
	if err != nil {
		log.WithError(err).WithField("candidate_id", candidate.ID).Error("Failed to create candidate")
		return fmt.Errorf("failed to create candidate: %w", err)
	}

	return nil
}

// Update replaces the candidate document and stamps updated_at.
func (r *postgresCandidateRepository) Update(ctx context.Context, candidate *domain.Candidate) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	payload, err := json.Marshal(candidate.Data)
	if err != nil {
		return fmt.Errorf("failed to encode candidate data: %w", err)
	}

	query := `
		UPDATE candidates
		SET data = $1, updated_by = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING created_at, updated_at
	`

	err = r.db.QueryRowContext(ctx, query,
		payload,
		nullableString(candidate.UpdatedBy),
		candidate.ID,
	).Scan(&candidate.CreatedAt, &candidate.UpdatedAt)
	if err == sql.ErrNoRows {
		return domain.ErrCandidateNotFound
	}
	if err != nil {
		log.WithError(err).WithField("candidate_id", candidate.ID).Error("Failed to update candidate")
		return fmt.Errorf("failed to update candidate: %w", err)
	}

	return nil
}

// Delete removes the candidate and returns the deleted record.
func (r *postgresCandidateRepository) Delete(ctx context.Context, id string) (*domain.Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	log.WithField("candidate_id", id).Info("Deleting candidate")

	query := `DELETE FROM candidates WHERE id = $1 RETURNING ` + candidateColumns

	candidate, err := scanCandidate(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrCandidateNotFound
	}
	if err != nil {
		log.WithError(err).WithField("candidate_id", id).Error("Failed to delete candidate")
		return nil, fmt.Errorf("failed to delete candidate: %w", err)
	}

	return candidate, nil
}

func scanCandidate(row rowScanner) (*domain.Candidate, error) {
	var candidate domain.Candidate
	var data []byte
	var updatedBy sql.NullString

	err := row.Scan(
		&candidate.ID,
		&data,
		&candidate.CreatedAt,
		&candidate.UpdatedAt,
		&updatedBy,
	)
	if err != nil {
		return nil, err
	}

	if updatedBy.Valid {
		candidate.UpdatedBy = updatedBy.String
	}
	candidate.Data = map[string]interface{}{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &candidate.Data); err != nil {
			return nil, fmt.Errorf("failed to decode candidate data: %w", err)
		}
	}

	return &candidate, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
