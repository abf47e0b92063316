package documents

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/packkeeper/internal/dbx"
	"github.com/dmitrijs2005/packkeeper/internal/server/models"
)

// PostgresRepository implements document checksum storage over a dbx.DBTX.
// Replace issues several statements and should run inside dbx.WithTx.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Replace(ctx context.Context, submissionID string, docs []models.DocumentRecord) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM document_checksums WHERE submission_id=$1`, submissionID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	query := `INSERT INTO document_checksums (submission_id, filename, original_name, file_size, sha256_hash,
		mime_type, document_type, required, upload_timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for _, d := range docs {
		_, err := r.db.ExecContext(ctx, query, submissionID, d.Filename, d.OriginalName, d.FileSize, d.SHA256Hash,
			d.MimeType, d.DocumentType, d.Required, d.UploadTimestamp)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

// ListBySubmission returns documents in insertion order, which is manifest order.
func (r *PostgresRepository) ListBySubmission(ctx context.Context, submissionID string) ([]*models.DocumentRecord, error) {
	query := `SELECT id, submission_id, filename, original_name, file_size, sha256_hash, mime_type,
		document_type, required, upload_timestamp, created_at
		FROM document_checksums WHERE submission_id=$1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to select documents: %w", err)
	}
	defer rows.Close()

	result := []*models.DocumentRecord{}
	for rows.Next() {
		var d models.DocumentRecord
		if err := rows.Scan(&d.ID, &d.SubmissionID, &d.Filename, &d.OriginalName, &d.FileSize, &d.SHA256Hash,
			&d.MimeType, &d.DocumentType, &d.Required, &d.UploadTimestamp, &d.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
