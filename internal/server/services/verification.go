package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/packkeeper/internal/common"
	"github.com/dmitrijs2005/packkeeper/internal/logging"
	"github.com/dmitrijs2005/packkeeper/internal/pack"
	"github.com/dmitrijs2005/packkeeper/internal/server/repositories/repomanager"
	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultManifestCacheSize = 256

// DocumentMatch describes the manifest document a hash lookup matched.
type DocumentMatch struct {
	Filename        string
	DocumentType    string
	FileSize        int64
	UploadTimestamp string
	Required        bool
}

// DocumentLookup is the result of VerifyDocument. Document is nil when the
// hash is not part of the submission.
type DocumentLookup struct {
	SubmissionID string
	DocumentHash string
	Verified     bool
	Document     *DocumentMatch
}

// VerificationService answers single-document hash lookups against the
// persisted manifest without touching the archive.
//
// Parsed manifests are cached by their canonical digest, so a regenerated
// manifest is never served from a stale entry.
type VerificationService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	manifests   *lru.Cache[string, *pack.Manifest]
	logger      logging.Logger
}

func NewVerificationService(db *sql.DB, m repomanager.RepositoryManager, cacheSize int, logger logging.Logger) (*VerificationService, error) {
	if cacheSize <= 0 {
		cacheSize = defaultManifestCacheSize
	}
	cache, err := lru.New[string, *pack.Manifest](cacheSize)
	if err != nil {
		return nil, err
	}
	return &VerificationService{
		db:          db,
		repomanager: m,
		manifests:   cache,
		logger:      logger.With("module", "verification-service"),
	}, nil
}

// VerifyDocument reports whether documentHash belongs to the submission.
// A malformed hash is a validation error; an unknown submission is
// common.ErrorNotFound; an unknown hash is a normal, unverified result.
func (s *VerificationService) VerifyDocument(ctx context.Context, submissionID, documentHash string) (*DocumentLookup, error) {
	digest := strings.ToLower(strings.TrimSpace(documentHash))
	if !pack.IsSHA256Hex(digest) {
		return nil, fmt.Errorf("%w: document hash must be 64 hex characters", common.ErrorValidation)
	}

	m, err := s.manifest(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	out := &DocumentLookup{SubmissionID: submissionID, DocumentHash: digest}
	d, ok := m.FindByHash(digest)
	if !ok {
		s.logger.Debug(ctx, "document hash not found", "submission_id", submissionID, "sha256", digest)
		return out, nil
	}

	out.Verified = true
	out.Document = &DocumentMatch{
		Filename:        d.OriginalName,
		DocumentType:    string(d.DocumentType),
		FileSize:        d.FileSize,
		UploadTimestamp: d.UploadTimestamp,
		Required:        d.Required,
	}
	return out, nil
}

// manifest loads the current manifest of a submission and checks it against
// the stored digest before it is trusted.
func (s *VerificationService) manifest(ctx context.Context, submissionID string) (*pack.Manifest, error) {
	sub, err := s.repomanager.Submissions(s.db).Get(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("submission %s: %w", submissionID, err)
	}

	if m, ok := s.manifests.Get(sub.ManifestSHA256); ok {
		return m, nil
	}

	m, err := pack.ParseManifest([]byte(sub.ManifestJSON))
	if err != nil {
		return nil, err
	}
	digest, err := m.Digest()
	if err != nil {
		return nil, err
	}
	if digest != sub.ManifestSHA256 {
		s.logger.Error(ctx, "stored manifest digest mismatch", "submission_id", submissionID, "expected", sub.ManifestSHA256, "actual", digest)
		return nil, fmt.Errorf("%w: submission %s", common.ErrManifestDigestMismatch, submissionID)
	}

	s.manifests.Add(digest, m)
	return m, nil
}
