package documents

import (
	"context"

	"github.com/dmitrijs2005/packkeeper/internal/server/models"
)

type Repository interface {
	// Replace makes docs the complete document list of submissionID.
	Replace(ctx context.Context, submissionID string, docs []models.DocumentRecord) error
	ListBySubmission(ctx context.Context, submissionID string) ([]*models.DocumentRecord, error)
}
