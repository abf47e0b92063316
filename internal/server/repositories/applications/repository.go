package applications

import (
	"context"

	"github.com/dmitrijs2005/packkeeper/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, id int64) (*models.Application, error)
}
