package submissions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/packkeeper/internal/common"
	"github.com/dmitrijs2005/packkeeper/internal/dbx"
	"github.com/dmitrijs2005/packkeeper/internal/server/models"
)

// PostgresRepository implements submission storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `s.submission_id, s.application_id, s.s3_url, s.archive_key, s.manifest_key,
		s.manifest_json, s.manifest_sha256, s.manifest_version, s.total_documents, s.total_size_bytes,
		s.integrity_verified, s.status, s.verification_errors, s.last_verified, s.created_at,
		a.reference, a.lpa_code`

// Create inserts a new submission record. The record must not exist yet.
func (r *PostgresRepository) Create(ctx context.Context, s *models.Submission) error {
	errs, err := encodeErrors(s.VerificationErrors)
	if err != nil {
		return err
	}

	query := `INSERT INTO submission_packs (submission_id, application_id, s3_url, archive_key, manifest_key,
		manifest_json, manifest_sha256, manifest_version, total_documents, total_size_bytes,
		integrity_verified, status, verification_errors, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	res, err := r.db.ExecContext(ctx, query,
		s.SubmissionID, s.ApplicationID, s.Locator, s.ArchiveKey, s.ManifestKey,
		s.ManifestJSON, s.ManifestSHA256, s.ManifestVersion, s.TotalDocuments, s.TotalSizeBytes,
		s.IntegrityVerified, string(s.Status), errs, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Submission, error) {
	query := `SELECT ` + selectColumns + `
		FROM submission_packs s JOIN applications a ON a.id = s.application_id
		WHERE s.submission_id=$1`
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, id string) (*models.Submission, error) {
	query := `SELECT ` + selectColumns + `
		FROM submission_packs s JOIN applications a ON a.id = s.application_id
		WHERE s.submission_id=$1
		FOR UPDATE OF s`
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query, id string) (*models.Submission, error) {
	s, err := scanSubmission(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) UpdateManifest(ctx context.Context, id string, u ManifestUpdate) error {
	query := `UPDATE submission_packs SET manifest_json=$2, manifest_sha256=$3, manifest_version=$4,
		total_documents=$5, total_size_bytes=$6, integrity_verified=$7
		WHERE submission_id=$1`

	res, err := r.db.ExecContext(ctx, query, id,
		u.ManifestJSON, u.ManifestSHA256, u.ManifestVersion, u.TotalDocuments, u.TotalSizeBytes, u.IntegrityVerified)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) UpdateVerification(ctx context.Context, id string, u VerificationUpdate) error {
	errs, err := encodeErrors(u.Errors)
	if err != nil {
		return err
	}

	query := `UPDATE submission_packs SET integrity_verified=$2, status=$3, verification_errors=$4, last_verified=$5
		WHERE submission_id=$1`

	res, err := r.db.ExecContext(ctx, query, id, u.IntegrityVerified, string(u.Status), errs, u.VerifiedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

// Search returns submissions whose LPA code starts with f.LPACode and whose
// application reference contains f.ApplicationReference, newest first.
func (r *PostgresRepository) Search(ctx context.Context, f models.SearchFilter) ([]*models.Submission, error) {
	query := `SELECT ` + selectColumns + `
		FROM submission_packs s JOIN applications a ON a.id = s.application_id
		WHERE a.lpa_code ILIKE $1 AND a.reference ILIKE $2 AND (NOT $3 OR s.integrity_verified)
		ORDER BY s.created_at DESC
		LIMIT $4`

	rows, err := r.db.QueryContext(ctx, query,
		escapeLike(f.LPACode)+"%", "%"+escapeLike(f.ApplicationReference)+"%", f.VerifiedOnly, f.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search submissions: %w", err)
	}
	defer rows.Close()

	var result []*models.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Statistics aggregates over all submissions. Recent counts submissions
// created at or after since; TopLPAs holds at most top entries.
func (r *PostgresRepository) Statistics(ctx context.Context, since time.Time, top int) (*models.Statistics, error) {
	query := `SELECT COUNT(*),
		COUNT(*) FILTER (WHERE integrity_verified),
		COALESCE(SUM(total_documents), 0),
		COALESCE(SUM(total_size_bytes), 0),
		COUNT(*) FILTER (WHERE created_at >= $1)
		FROM submission_packs`

	st := &models.Statistics{}
	err := r.db.QueryRowContext(ctx, query, since).Scan(
		&st.TotalSubmissions, &st.VerifiedSubmissions, &st.TotalDocuments, &st.TotalSizeBytes, &st.RecentSubmissions)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	topQuery := `SELECT a.lpa_code, COUNT(*) AS n
		FROM submission_packs s JOIN applications a ON a.id = s.application_id
		GROUP BY a.lpa_code
		ORDER BY n DESC, a.lpa_code
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, topQuery, top)
	if err != nil {
		return nil, fmt.Errorf("failed to select lpa counts: %w", err)
	}
	defer rows.Close()

	st.TopLPAs = []models.LPACount{}
	for rows.Next() {
		var c models.LPACount
		if err := rows.Scan(&c.LPACode, &c.Count); err != nil {
			return nil, err
		}
		st.TopLPAs = append(st.TopLPAs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return st, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row scanner) (*models.Submission, error) {
	var (
		s        models.Submission
		status   string
		errsJSON string
		verified sql.NullTime
	)
	err := row.Scan(
		&s.SubmissionID, &s.ApplicationID, &s.Locator, &s.ArchiveKey, &s.ManifestKey,
		&s.ManifestJSON, &s.ManifestSHA256, &s.ManifestVersion, &s.TotalDocuments, &s.TotalSizeBytes,
		&s.IntegrityVerified, &status, &errsJSON, &verified, &s.CreatedAt,
		&s.ApplicationReference, &s.LPACode)
	if err != nil {
		return nil, err
	}

	s.Status = models.SubmissionStatus(status)
	if verified.Valid {
		t := verified.Time
		s.LastVerified = &t
	}
	s.VerificationErrors = []string{}
	if errsJSON != "" {
		if err := json.Unmarshal([]byte(errsJSON), &s.VerificationErrors); err != nil {
			return nil, fmt.Errorf("decode verification_errors: %w", err)
		}
	}
	return &s, nil
}

func encodeErrors(errs []string) (string, error) {
	if errs == nil {
		errs = []string{}
	}
	b, err := json.Marshal(errs)
	if err != nil {
		return "", fmt.Errorf("encode verification_errors: %w", err)
	}
	return string(b), nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
