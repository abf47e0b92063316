package manifestversions

import (
	"context"

	"github.com/dmitrijs2005/packkeeper/internal/server/models"
)

type Repository interface {
	// Append stores v as the next version of its submission and returns the
	// assigned version number.
	Append(ctx context.Context, v *models.ManifestVersion) (int, error)
	List(ctx context.Context, submissionID string) ([]*models.ManifestVersion, error)
}
