package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/simaogato/portfolio-ledger/internal/domain"
)

// foreignKeyViolation is the PostgreSQL SQLSTATE for a missing referenced row
const foreignKeyViolation = "23503"

// institutionRepository implements domain.InstitutionRepository
type institutionRepository struct {
	q querier
}

// NewInstitutionRepository creates a new institution repository
func NewInstitutionRepository(db *DB) domain.InstitutionRepository {
	return &institutionRepository{q: db}
}

// FindByName looks an institution up by name
func (r *institutionRepository) FindByName(ctx context.Context, name string) (*domain.Institution, error) {
	var institution domain.Institution
	err := r.q.QueryRowContext(ctx, `SELECT id, name FROM institutions WHERE name = $1`, name).
		Scan(&institution.ID, &institution.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrInstitutionNotFound
		}
		return nil, fmt.Errorf("failed to get institution by name: %w", err)
	}
	return &institution, nil
}

// Create inserts an institution with a unique name
func (r *institutionRepository) Create(ctx context.Context, institution *domain.Institution) error {
	if err := institution.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO institutions (id, name)
		VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING
	`

	result, err := r.q.ExecContext(ctx, query, institution.ID, institution.Name)
	if err != nil {
		return mapInsertError("institution", err)
	}
	return conflictIfUnchanged("institution", result)
}

// LinkOwner records an owner-institution relationship; repeated links are no-ops
func (r *institutionRepository) LinkOwner(ctx context.Context, institutionID uuid.UUID, ownerID int64) error {
	query := `
		INSERT INTO institution_owners (institution_id, owner_id)
		VALUES ($1, $2)
		ON CONFLICT (institution_id, owner_id) DO NOTHING
	`

	if _, err := r.q.ExecContext(ctx, query, institutionID, ownerID); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
			return domain.ErrInstitutionNotFound
		}
		return fmt.Errorf("failed to link institution owner: %w", err)
	}
	return nil
}
