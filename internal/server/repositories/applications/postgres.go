package applications

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/packkeeper/internal/common"
	"github.com/dmitrijs2005/packkeeper/internal/dbx"
	"github.com/dmitrijs2005/packkeeper/internal/server/models"
)

// PostgresRepository reads applications over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get returns the application with the given id or common.ErrorNotFound.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Application, error) {
	query := `SELECT id, reference, lpa_code, applicant_name, property_address, application_type, created_at
		FROM applications WHERE id=$1`

	a := &models.Application{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.Reference, &a.LPACode, &a.ApplicantName, &a.PropertyAddress, &a.ApplicationType, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}
