package manifestversions

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/packkeeper/internal/dbx"
	"github.com/dmitrijs2005/packkeeper/internal/server/models"
)

// PostgresRepository implements the append-only manifest history over a
// dbx.DBTX. Concurrent appends for one submission must be serialized by the
// caller (see submissions.Repository.GetForUpdate); the unique constraint on
// (submission_id, version_number) rejects the loser otherwise.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, v *models.ManifestVersion) (int, error) {
	query := `INSERT INTO manifest_versions (submission_id, version_number, manifest_version, manifest_json, change_description, created_by)
		SELECT $1, COALESCE(MAX(version_number), 0) + 1, $2, $3, $4, $5
		FROM manifest_versions WHERE submission_id=$1
		RETURNING version_number`

	var n int
	err := r.db.QueryRowContext(ctx, query,
		v.SubmissionID, v.ManifestVersion, v.ManifestJSON, v.ChangeDescription, v.CreatedBy).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	v.VersionNumber = n
	return n, nil
}

// List returns every version of a submission, oldest first.
func (r *PostgresRepository) List(ctx context.Context, submissionID string) ([]*models.ManifestVersion, error) {
	query := `SELECT id, submission_id, version_number, manifest_version, manifest_json, change_description, created_by, created_at
		FROM manifest_versions WHERE submission_id=$1 ORDER BY version_number`

	rows, err := r.db.QueryContext(ctx, query, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to select manifest versions: %w", err)
	}
	defer rows.Close()

	result := []*models.ManifestVersion{}
	for rows.Next() {
		var v models.ManifestVersion
		if err := rows.Scan(&v.ID, &v.SubmissionID, &v.VersionNumber, &v.ManifestVersion, &v.ManifestJSON,
			&v.ChangeDescription, &v.CreatedBy, &v.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
