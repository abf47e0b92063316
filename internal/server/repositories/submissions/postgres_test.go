package submissions

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/packkeeper/internal/common"
	"github.com/dmitrijs2005/packkeeper/internal/server/models"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

var columns = []string{
	"submission_id", "application_id", "s3_url", "archive_key", "manifest_key",
	"manifest_json", "manifest_sha256", "manifest_version", "total_documents", "total_size_bytes",
	"integrity_verified", "status", "verification_errors", "last_verified", "created_at",
	"reference", "lpa_code",
}

var created = time.Date(2024, 3, 15, 10, 15, 0, 0, time.UTC)

func row(id string, lastVerified any, errs string) []driver.Value {
	return []driver.Value{
		id, int64(7), "s3://packs/k.zip", "k.zip", "k_manifest.json",
		`{"submission_id":"` + id + `"}`, "abc", "1.0", int64(5), int64(1024),
		true, "verified", errs, lastVerified, created,
		"APP/24/1", "E07000223",
	}
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+submission_packs\b.*VALUES\s*\(\$1,.*\$14\)$`).
		WithArgs("SUB_1", int64(7), "s3://packs/k.zip", "k.zip", "k_manifest.json",
			"{}", "abc", "1.0", 5, int64(1024), false, "published", "[]", created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &models.Submission{
		SubmissionID:    "SUB_1",
		ApplicationID:   7,
		Locator:         "s3://packs/k.zip",
		ArchiveKey:      "k.zip",
		ManifestKey:     "k_manifest.json",
		ManifestJSON:    "{}",
		ManifestSHA256:  "abc",
		ManifestVersion: "1.0",
		TotalDocuments:  5,
		TotalSizeBytes:  1024,
		Status:          models.StatusPublished,
		CreatedAt:       created,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT\s+INTO\s+submission_packs`).WillReturnError(errors.New("duplicate key"))

	err := repo.Create(context.Background(), &models.Submission{SubmissionID: "SUB_1"})
	require.ErrorContains(t, err, "db error")
}

func TestGet_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	verifiedAt := created.Add(time.Hour)
	mock.ExpectQuery(`(?s)^SELECT\s+s\.submission_id,.*FROM\s+submission_packs\s+s\s+JOIN\s+applications\s+a.*WHERE\s+s\.submission_id=\$1$`).
		WithArgs("SUB_1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(row("SUB_1", verifiedAt, `["Missing file in ZIP: a.pdf"]`)...))

	s, err := repo.Get(context.Background(), "SUB_1")
	require.NoError(t, err)
	require.Equal(t, "SUB_1", s.SubmissionID)
	require.Equal(t, int64(7), s.ApplicationID)
	require.Equal(t, 5, s.TotalDocuments)
	require.Equal(t, models.StatusVerified, s.Status)
	require.Equal(t, []string{"Missing file in ZIP: a.pdf"}, s.VerificationErrors)
	require.NotNil(t, s.LastVerified)
	require.Equal(t, verifiedAt, *s.LastVerified)
	require.Equal(t, "APP/24/1", s.ApplicationReference)
	require.Equal(t, "E07000223", s.LPACode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NeverVerified(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+submission_packs`).
		WithArgs("SUB_1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(row("SUB_1", nil, "[]")...))

	s, err := repo.Get(context.Background(), "SUB_1")
	require.NoError(t, err)
	require.Nil(t, s.LastVerified)
	require.NotNil(t, s.VerificationErrors)
	require.Empty(t, s.VerificationErrors)
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+submission_packs`).WithArgs("nope").WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "nope")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGetForUpdate_LocksRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)WHERE\s+s\.submission_id=\$1\s+FOR\s+UPDATE\s+OF\s+s$`).
		WithArgs("SUB_1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(row("SUB_1", nil, "[]")...))

	_, err := repo.GetForUpdate(context.Background(), "SUB_1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateManifest(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+submission_packs\s+SET\s+manifest_json=\$2,.*WHERE\s+submission_id=\$1$`
	mock.ExpectExec(q).
		WithArgs("SUB_1", "{}", "def", "1.1", 4, int64(10), false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).
		WithArgs("SUB_2", "{}", "def", "1.1", 4, int64(10), false).
		WillReturnResult(sqlmock.NewResult(0, 0))

	u := ManifestUpdate{ManifestJSON: "{}", ManifestSHA256: "def", ManifestVersion: "1.1", TotalDocuments: 4, TotalSizeBytes: 10}
	require.NoError(t, repo.UpdateManifest(context.Background(), "SUB_1", u))
	require.ErrorIs(t, repo.UpdateManifest(context.Background(), "SUB_2", u), common.ErrorNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateVerification(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	at := created.Add(time.Minute)
	mock.ExpectExec(`(?s)^UPDATE\s+submission_packs\s+SET\s+integrity_verified=\$2,\s*status=\$3,\s*verification_errors=\$4,\s*last_verified=\$5`).
		WithArgs("SUB_1", false, "failed", `["Hash mismatch for a.pdf: expected x, got y"]`, at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateVerification(context.Background(), "SUB_1", VerificationUpdate{
		IntegrityVerified: false,
		Status:            models.StatusFailed,
		Errors:            []string{"Hash mismatch for a.pdf: expected x, got y"},
		VerifiedAt:        at,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateVerification_UnexpectedRows(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+submission_packs`).WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.UpdateVerification(context.Background(), "SUB_1", VerificationUpdate{Status: models.StatusVerified})
	require.ErrorContains(t, err, "unexpected rows affected")
}

func TestSearch(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)WHERE\s+a\.lpa_code\s+ILIKE\s+\$1\s+AND\s+a\.reference\s+ILIKE\s+\$2.*ORDER\s+BY\s+s\.created_at\s+DESC\s+LIMIT\s+\$4$`).
		WithArgs(`E07%`, `%24\_1%`, true, 20).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(row("SUB_2", nil, "[]")...).
			AddRow(row("SUB_1", nil, "[]")...))

	got, err := repo.Search(context.Background(), models.SearchFilter{
		LPACode:              "E07",
		ApplicationReference: "24_1",
		VerifiedOnly:         true,
		Limit:                20,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "SUB_2", got[0].SubmissionID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSearch_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+submission_packs`).WillReturnError(errors.New("db down"))

	_, err := repo.Search(context.Background(), models.SearchFilter{Limit: 1})
	require.ErrorContains(t, err, "failed to search submissions")
}

func TestStatistics(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	since := created.Add(-7 * 24 * time.Hour)
	mock.ExpectQuery(`(?s)^SELECT\s+COUNT\(\*\),.*FILTER\s+\(WHERE\s+integrity_verified\).*FROM\s+submission_packs$`).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"total", "verified", "docs", "bytes", "recent"}).
			AddRow(int64(10), int64(7), int64(50), int64(1<<20), int64(3)))
	mock.ExpectQuery(`(?s)^SELECT\s+a\.lpa_code,\s*COUNT\(\*\).*GROUP\s+BY\s+a\.lpa_code.*LIMIT\s+\$1$`).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"lpa_code", "n"}).
			AddRow("E07000223", int64(6)).
			AddRow("E07000001", int64(4)))

	st, err := repo.Statistics(context.Background(), since, 10)
	require.NoError(t, err)
	require.Equal(t, &models.Statistics{
		TotalSubmissions:    10,
		VerifiedSubmissions: 7,
		TotalDocuments:      50,
		TotalSizeBytes:      1 << 20,
		RecentSubmissions:   3,
		TopLPAs: []models.LPACount{
			{LPACode: "E07000223", Count: 6},
			{LPACode: "E07000001", Count: 4},
		},
	}, st)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEscapeLike(t *testing.T) {
	require.Equal(t, `50\%\_off\\`, escapeLike(`50%_off\`))
	require.Equal(t, "plain", escapeLike("plain"))
}
