package verifications

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/packkeeper/internal/dbx"
	"github.com/dmitrijs2005/packkeeper/internal/server/models"
)

// PostgresRepository stores the verification log over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, v *models.AuthorityVerification) error {
	query := `INSERT INTO authority_verifications (submission_id, lpa_code, verified_by, status, notes, verified_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query, v.SubmissionID, v.LPACode, v.VerifiedBy, v.Status, v.Notes, v.VerifiedAt).Scan(&v.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ListBySubmission returns the log of a submission, newest first.
func (r *PostgresRepository) ListBySubmission(ctx context.Context, submissionID string) ([]*models.AuthorityVerification, error) {
	query := `SELECT id, submission_id, lpa_code, verified_by, status, notes, verified_at
		FROM authority_verifications WHERE submission_id=$1 ORDER BY verified_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to select verifications: %w", err)
	}
	defer rows.Close()

	result := []*models.AuthorityVerification{}
	for rows.Next() {
		var v models.AuthorityVerification
		if err := rows.Scan(&v.ID, &v.SubmissionID, &v.LPACode, &v.VerifiedBy, &v.Status, &v.Notes, &v.VerifiedAt); err != nil {
			return nil, err
		}
		result = append(result, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
