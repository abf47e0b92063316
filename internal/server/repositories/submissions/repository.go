package submissions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/packkeeper/internal/server/models"
)

// ManifestUpdate replaces the manifest snapshot of a submission.
type ManifestUpdate struct {
	ManifestJSON      string
	ManifestSHA256    string
	ManifestVersion   string
	TotalDocuments    int
	TotalSizeBytes    int64
	IntegrityVerified bool
}

// VerificationUpdate records the outcome of a verification run.
type VerificationUpdate struct {
	IntegrityVerified bool
	Status            models.SubmissionStatus
	Errors            []string
	VerifiedAt        time.Time
}

type Repository interface {
	Create(ctx context.Context, s *models.Submission) error
	Get(ctx context.Context, id string) (*models.Submission, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*models.Submission, error)
	UpdateManifest(ctx context.Context, id string, u ManifestUpdate) error
	UpdateVerification(ctx context.Context, id string, u VerificationUpdate) error
	Search(ctx context.Context, f models.SearchFilter) ([]*models.Submission, error)
	Statistics(ctx context.Context, since time.Time, top int) (*models.Statistics, error)
}
