// Package services contains server-side business logic. This file implements
// PackService, which drives a submission through build, archive, publish and
// persist, and later re-verifies or regenerates it.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/packkeeper/internal/common"
	"github.com/dmitrijs2005/packkeeper/internal/dbx"
	"github.com/dmitrijs2005/packkeeper/internal/logging"
	"github.com/dmitrijs2005/packkeeper/internal/pack"
	"github.com/dmitrijs2005/packkeeper/internal/server/blobstore"
	"github.com/dmitrijs2005/packkeeper/internal/server/config"
	"github.com/dmitrijs2005/packkeeper/internal/server/models"
	"github.com/dmitrijs2005/packkeeper/internal/server/publisher"
	"github.com/dmitrijs2005/packkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/packkeeper/internal/server/repositories/submissions"
)

const (
	initialChangeDescription     = "Initial manifest"
	regeneratedChangeDescription = "Manifest regenerated"

	defaultSearchLimit = 20
	maxSearchLimit     = 100

	statisticsWindow = 7 * 24 * time.Hour
	statisticsTopLPA = 10
)

// CreateResult is returned by PackService.Create.
type CreateResult struct {
	Submission *models.Submission
	Manifest   *pack.Manifest
	Missing    []pack.DocumentType
	Skipped    []pack.Source
}

// VerifyOutcome is returned by PackService.Verify. An invalid pack is a
// normal outcome, not an error.
type VerifyOutcome struct {
	SubmissionID string
	Status       models.SubmissionStatus
	Result       pack.VerifyResult
	VerifiedAt   time.Time
}

// RegenerateResult is returned by PackService.RegenerateManifest.
type RegenerateResult struct {
	SubmissionID    string
	VersionNumber   int
	ManifestVersion string
	Manifest        *pack.Manifest
	Missing         []pack.DocumentType
}

// StatisticsReport adds derived figures to models.Statistics.
type StatisticsReport struct {
	models.Statistics
	VerificationRate float64
	TotalSizeMB      float64
}

// DownloadLink is a presigned archive URL.
type DownloadLink struct {
	SubmissionID string
	URL          string
	ExpiresAt    time.Time
	ArchiveKey   string
}

type PackService struct {
	db               *sql.DB
	repomanager      repomanager.RepositoryManager
	store            blobstore.Store
	builder          *pack.Builder
	archiver         *pack.Archiver
	verifier         *pack.Verifier
	publisher        *publisher.Publisher
	logger           logging.Logger
	workDir          string
	presignTTL       time.Duration
	verifierIdentity string
	now              func() time.Time
	newSubmissionID  func(applicationID int64, at time.Time) (string, error)
}

func NewPackService(db *sql.DB, m repomanager.RepositoryManager, store blobstore.Store, cfg *config.Config, logger logging.Logger) *PackService {
	return &PackService{
		db:               db,
		repomanager:      m,
		store:            store,
		builder:          pack.NewBuilder(pack.DefaultPolicy(), logger),
		archiver:         pack.NewArchiver(cfg.WorkDir, logger),
		verifier:         pack.NewVerifier(logger),
		publisher:        publisher.New(store, logger),
		logger:           logger.With("module", "pack-service"),
		workDir:          cfg.WorkDir,
		presignTTL:       cfg.PresignTTL,
		verifierIdentity: cfg.VerifierIdentity,
		now:              time.Now,
		newSubmissionID:  NewSubmissionID,
	}
}

// NewSubmissionID returns SUB_{YYYYMMDD_HHMMSS}_{application_id}_{8 hex}.
func NewSubmissionID(applicationID int64, at time.Time) (string, error) {
	suffix, err := common.MakeRandHexString(4)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SUB_%s_%d_%s", at.UTC().Format("20060102_150405"), applicationID, suffix), nil
}

func (s *PackService) transition(ctx context.Context, id string, from, to models.SubmissionStatus) (models.SubmissionStatus, error) {
	next, err := from.Transition(to)
	if err != nil {
		return from, err
	}
	s.logger.Info(ctx, "submission status changed", "submission_id", id, "from", from, "to", next)
	return next, nil
}

// Create builds, archives and publishes a pack for the application and
// persists its record. On any failure nothing is left behind: the local
// archive is always removed and published objects are deleted again if the
// record cannot be stored.
func (s *PackService) Create(ctx context.Context, applicationID int64, files []pack.Source) (*CreateResult, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files uploaded", common.ErrorValidation)
	}

	app, err := s.repomanager.Applications(s.db).Get(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("application %d: %w", applicationID, err)
	}

	createdAt := s.now().UTC()
	id, err := s.newSubmissionID(app.ID, createdAt)
	if err != nil {
		return nil, err
	}
	status := models.StatusCreated
	s.logger.Info(ctx, "submission created", "submission_id", id, "application_id", app.ID, "files", len(files))

	built, err := s.builder.Build(ctx, pack.Header{
		SubmissionID:         id,
		ApplicationReference: app.Reference,
		LPACode:              app.LPACode,
		ApplicantName:        app.ApplicantName,
		PropertyAddress:      app.PropertyAddress,
		ApplicationType:      app.ApplicationType,
		SubmittedAt:          createdAt,
	}, files)
	if err != nil {
		return nil, fmt.Errorf("build manifest: %w", err)
	}
	m := built.Manifest
	if m.TotalDocuments == 0 {
		return nil, fmt.Errorf("%w: none of the uploaded files could be read", common.ErrorValidation)
	}

	archive, err := s.archiver.Archive(ctx, m, files)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	defer func() {
		if rerr := archive.Remove(); rerr != nil {
			s.logger.Warn(ctx, "failed to remove local archive", "path", archive.Path, "error", rerr)
		}
	}()
	if status, err = s.transition(ctx, id, status, models.StatusArchived); err != nil {
		return nil, err
	}

	pub, err := s.publisher.Publish(ctx, archive, m)
	if err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}
	if status, err = s.transition(ctx, id, status, models.StatusPublished); err != nil {
		s.publisher.Unpublish(context.WithoutCancel(ctx), pub)
		return nil, err
	}

	manifestJSON, digest, err := encodeManifest(m)
	if err != nil {
		s.publisher.Unpublish(context.WithoutCancel(ctx), pub)
		return nil, err
	}

	sub := &models.Submission{
		SubmissionID:         id,
		ApplicationID:        app.ID,
		Locator:              pub.Locator,
		ArchiveKey:           pub.ArchiveKey,
		ManifestKey:          pub.ManifestKey,
		ManifestJSON:         manifestJSON,
		ManifestSHA256:       digest,
		ManifestVersion:      m.ManifestVersion,
		TotalDocuments:       m.TotalDocuments,
		TotalSizeBytes:       m.TotalSizeBytes,
		IntegrityVerified:    m.IntegrityVerified,
		Status:               status,
		VerificationErrors:   []string{},
		CreatedAt:            createdAt,
		ApplicationReference: app.Reference,
		LPACode:              app.LPACode,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Submissions(tx).Create(ctx, sub); err != nil {
			return fmt.Errorf("store submission: %w", err)
		}
		if err := s.repomanager.Documents(tx).Replace(ctx, id, documentRecords(id, m)); err != nil {
			return fmt.Errorf("store documents: %w", err)
		}
		_, err := s.repomanager.ManifestVersions(tx).Append(ctx, &models.ManifestVersion{
			SubmissionID:      id,
			ManifestVersion:   m.ManifestVersion,
			ManifestJSON:      manifestJSON,
			ChangeDescription: initialChangeDescription,
			CreatedBy:         s.verifierIdentity,
		})
		if err != nil {
			return fmt.Errorf("store manifest version: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error(ctx, "failed to persist submission, unpublishing", "submission_id", id, "error", err)
		s.publisher.Unpublish(context.WithoutCancel(ctx), pub)
		return nil, err
	}

	s.logger.Info(ctx, "submission pack stored",
		"submission_id", id,
		"documents", m.TotalDocuments,
		"bytes", m.TotalSizeBytes,
		"integrity_verified", m.IntegrityVerified)

	return &CreateResult{Submission: sub, Manifest: m, Missing: built.Missing, Skipped: built.Skipped}, nil
}

// Verify downloads the published archive, rechecks every document and
// records the outcome on the submission and in the verification log.
func (s *PackService) Verify(ctx context.Context, id string) (*VerifyOutcome, error) {
	sub, err := s.repomanager.Submissions(s.db).Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("submission %s: %w", id, err)
	}

	var result pack.VerifyResult
	err = s.withArchive(ctx, sub, func(r io.ReaderAt, size int64) error {
		result = s.verifier.VerifyReaderAt(ctx, r, size)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The stored manifest records whether every required type was present
	// under the policy it was built with.
	current, err := pack.ParseManifest([]byte(sub.ManifestJSON))
	if err != nil {
		return nil, fmt.Errorf("submission %s: stored manifest: %w", id, err)
	}

	to := models.StatusFailed
	if result.Valid {
		to = models.StatusVerified
	}
	status, err := s.transition(ctx, id, sub.Status, to)
	if err != nil {
		return nil, err
	}

	verifiedAt := s.now().UTC()
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		err := s.repomanager.Submissions(tx).UpdateVerification(ctx, id, submissions.VerificationUpdate{
			IntegrityVerified: result.Valid && current.IntegrityVerified,
			Status:            status,
			Errors:            result.Errors,
			VerifiedAt:        verifiedAt,
		})
		if err != nil {
			return err
		}
		return s.repomanager.Verifications(tx).Insert(ctx, &models.AuthorityVerification{
			SubmissionID: id,
			LPACode:      sub.LPACode,
			VerifiedBy:   s.verifierIdentity,
			Status:       string(status),
			Notes:        verificationNotes(result),
			VerifiedAt:   verifiedAt,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("record verification: %w", err)
	}

	return &VerifyOutcome{SubmissionID: id, Status: status, Result: result, VerifiedAt: verifiedAt}, nil
}

func verificationNotes(r pack.VerifyResult) string {
	if r.Valid {
		return fmt.Sprintf("%d file(s) verified", r.FilesChecked)
	}
	return fmt.Sprintf("%d error(s)", len(r.Errors))
}

// RegenerateManifest rebuilds the manifest from the published archive and
// appends it as a new version. The submission row stays locked while the
// version is assigned, so concurrent regenerations get distinct numbers.
// An archive that no longer matches its manifest is refused with
// common.ErrArchiveTampered. The standalone manifest copy is replaced only
// after the new version is committed.
func (s *PackService) RegenerateManifest(ctx context.Context, id string) (*RegenerateResult, error) {
	sub, err := s.repomanager.Submissions(s.db).Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("submission %s: %w", id, err)
	}

	var (
		out         *RegenerateResult
		manifestKey string
	)
	err = s.withArchive(ctx, sub, func(r io.ReaderAt, size int64) error {
		return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			locked, err := s.repomanager.Submissions(tx).GetForUpdate(ctx, id)
			if err != nil {
				return err
			}

			res, err := s.builder.Regenerate(ctx, r, size, locked.ManifestVersion)
			if err != nil {
				return fmt.Errorf("regenerate: %w", err)
			}
			m := res.Manifest

			manifestJSON, digest, err := encodeManifest(m)
			if err != nil {
				return err
			}

			n, err := s.repomanager.ManifestVersions(tx).Append(ctx, &models.ManifestVersion{
				SubmissionID:      id,
				ManifestVersion:   m.ManifestVersion,
				ManifestJSON:      manifestJSON,
				ChangeDescription: regeneratedChangeDescription,
				CreatedBy:         s.verifierIdentity,
			})
			if err != nil {
				return err
			}

			err = s.repomanager.Submissions(tx).UpdateManifest(ctx, id, submissions.ManifestUpdate{
				ManifestJSON:      manifestJSON,
				ManifestSHA256:    digest,
				ManifestVersion:   m.ManifestVersion,
				TotalDocuments:    m.TotalDocuments,
				TotalSizeBytes:    m.TotalSizeBytes,
				IntegrityVerified: m.IntegrityVerified,
			})
			if err != nil {
				return err
			}

			if err := s.repomanager.Documents(tx).Replace(ctx, id, documentRecords(id, m)); err != nil {
				return err
			}

			manifestKey = locked.ManifestKey
			out = &RegenerateResult{
				SubmissionID:    id,
				VersionNumber:   n,
				ManifestVersion: m.ManifestVersion,
				Manifest:        m,
				Missing:         res.Missing,
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "manifest version appended", "submission_id", id, "version_number", out.VersionNumber, "manifest_version", out.ManifestVersion)

	if err := s.publisher.PublishManifest(ctx, manifestKey, out.Manifest); err != nil {
		s.logger.Error(ctx, "failed to replace published manifest copy", "submission_id", id, "key", manifestKey, "error", err)
		return nil, fmt.Errorf("publish manifest %s: %w", manifestKey, err)
	}
	return out, nil
}

// withArchive downloads the submission's archive into a scoped temporary
// file and hands it to fn. The file is removed before returning.
func (s *PackService) withArchive(ctx context.Context, sub *models.Submission, fn func(r io.ReaderAt, size int64) error) error {
	obj, err := s.store.Get(ctx, sub.ArchiveKey)
	if err != nil {
		return fmt.Errorf("download archive %s: %w", sub.ArchiveKey, err)
	}
	defer obj.Body.Close()

	f, err := os.CreateTemp(s.workDir, "verify-*.zip")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = f.Close()
		if rerr := os.Remove(f.Name()); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			s.logger.Warn(ctx, "failed to remove temp archive", "path", f.Name(), "error", rerr)
		}
	}()

	size, err := io.Copy(f, obj.Body)
	if err != nil {
		return fmt.Errorf("download archive %s: %w", sub.ArchiveKey, err)
	}
	return fn(f, size)
}

func (s *PackService) Get(ctx context.Context, id string) (*models.Submission, error) {
	return s.repomanager.Submissions(s.db).Get(ctx, id)
}

// Manifest returns the current manifest of a submission.
func (s *PackService) Manifest(ctx context.Context, id string) (*pack.Manifest, error) {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return pack.ParseManifest([]byte(sub.ManifestJSON))
}

// Versions lists the manifest history of a submission, oldest first.
func (s *PackService) Versions(ctx context.Context, id string) ([]*models.ManifestVersion, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repomanager.ManifestVersions(s.db).List(ctx, id)
}

// Checksums lists the stored document checksums of a submission.
func (s *PackService) Checksums(ctx context.Context, id string) ([]*models.DocumentRecord, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repomanager.Documents(s.db).ListBySubmission(ctx, id)
}

// Search applies the default limit when none is given and caps it at 100.
func (s *PackService) Search(ctx context.Context, f models.SearchFilter) ([]*models.Submission, error) {
	switch {
	case f.Limit <= 0:
		f.Limit = defaultSearchLimit
	case f.Limit > maxSearchLimit:
		f.Limit = maxSearchLimit
	}
	return s.repomanager.Submissions(s.db).Search(ctx, f)
}

func (s *PackService) Statistics(ctx context.Context) (*StatisticsReport, error) {
	st, err := s.repomanager.Submissions(s.db).Statistics(ctx, s.now().Add(-statisticsWindow), statisticsTopLPA)
	if err != nil {
		return nil, err
	}
	r := &StatisticsReport{Statistics: *st, TotalSizeMB: SizeMB(st.TotalSizeBytes)}
	if st.TotalSubmissions > 0 {
		r.VerificationRate = round2(float64(st.VerifiedSubmissions) / float64(st.TotalSubmissions) * 100)
	}
	return r, nil
}

// DownloadURL presigns a GET of the submission's archive.
func (s *PackService) DownloadURL(ctx context.Context, id string) (*DownloadLink, error) {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	url, err := s.store.PresignGet(ctx, sub.ArchiveKey, s.presignTTL)
	if err != nil {
		return nil, fmt.Errorf("presign %s: %w", sub.ArchiveKey, err)
	}
	return &DownloadLink{
		SubmissionID: id,
		URL:          url,
		ExpiresAt:    s.now().Add(s.presignTTL).UTC(),
		ArchiveKey:   sub.ArchiveKey,
	}, nil
}

func encodeManifest(m *pack.Manifest) (string, string, error) {
	b, err := m.MarshalIndented()
	if err != nil {
		return "", "", fmt.Errorf("encode manifest: %w", err)
	}
	digest, err := m.Digest()
	if err != nil {
		return "", "", fmt.Errorf("digest manifest: %w", err)
	}
	return string(b), digest, nil
}

func documentRecords(id string, m *pack.Manifest) []models.DocumentRecord {
	out := make([]models.DocumentRecord, 0, len(m.Documents))
	for _, d := range m.Documents {
		out = append(out, models.DocumentRecord{
			SubmissionID:    id,
			Filename:        d.Filename,
			OriginalName:    d.OriginalName,
			FileSize:        d.FileSize,
			SHA256Hash:      d.SHA256Hash,
			MimeType:        d.MimeType,
			DocumentType:    string(d.DocumentType),
			Required:        d.Required,
			UploadTimestamp: d.UploadTimestamp,
		})
	}
	return out
}
