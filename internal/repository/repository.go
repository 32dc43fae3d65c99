package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"hr-service/internal/domain"

	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

type postgresUserRepository struct {
	db *sql.DB
}

// NewPostgresUserRepository reads back-office users as audit actors.
func NewPostgresUserRepository(db *sql.DB) *postgresUserRepository {
	return &postgresUserRepository{db: db}
}

// FindActors resolves user ids to their public projection. Unknown ids are
// absent from the result.
func (r *postgresUserRepository) FindActors(ctx context.Context, ids []string) (map[string]domain.ActorRef, error) {
	actors := make(map[string]domain.ActorRef, len(ids))
	if len(ids) == 0 {
		return actors, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `SELECT id, name, email FROM users WHERE id = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		log.WithError(err).WithField("actor_count", len(ids)).Error("Failed to look up actors")
		return nil, fmt.Errorf("failed to look up actors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ref domain.ActorRef
		if err := rows.Scan(&ref.ID, &ref.Name, &ref.Email); err != nil {
			return nil, fmt.Errorf("failed to scan actor row: %w", err)
		}
		actors[ref.ID] = ref
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over actor rows: %w", err)
	}

	return actors, nil
}
