package verifications

import (
	"context"

	"github.com/dmitrijs2005/packkeeper/internal/server/models"
)

type Repository interface {
	Insert(ctx context.Context, v *models.AuthorityVerification) error
	ListBySubmission(ctx context.Context, submissionID string) ([]*models.AuthorityVerification, error)
}
