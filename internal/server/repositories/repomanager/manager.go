package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/packkeeper/internal/dbx"
	"github.com/dmitrijs2005/packkeeper/internal/server/repositories/applications"
	"github.com/dmitrijs2005/packkeeper/internal/server/repositories/documents"
	"github.com/dmitrijs2005/packkeeper/internal/server/repositories/manifestversions"
	"github.com/dmitrijs2005/packkeeper/internal/server/repositories/submissions"
	"github.com/dmitrijs2005/packkeeper/internal/server/repositories/verifications"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Applications(db dbx.DBTX) applications.Repository
	Submissions(db dbx.DBTX) submissions.Repository
	Documents(db dbx.DBTX) documents.Repository
	ManifestVersions(db dbx.DBTX) manifestversions.Repository
	Verifications(db dbx.DBTX) verifications.Repository
}
