package pack

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/packkeeper/internal/logging"
)

// Source is an uploaded document: where its bytes are on disk and the name
// the applicant gave it.
type Source struct {
	Path         string
	OriginalName string
}

// BuildResult is the outcome of Builder.Build.
type BuildResult struct {
	Manifest *Manifest
	// Missing lists required document types absent from the pack.
	Missing []DocumentType
	// Skipped lists sources that were not included.
	Skipped []Source
}

// Complete reports whether every required document type is present.
func (r *BuildResult) Complete() bool {
	return len(r.Missing) == 0
}

// Builder turns uploaded sources into a manifest under a classification
// policy.
type Builder struct {
	policy Policy
	logger logging.Logger
	now    func() time.Time
}

// NewBuilder returns a builder for policy, or for DefaultPolicy when nil.
func NewBuilder(policy Policy, logger logging.Logger) *Builder {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Builder{
		policy: policy,
		logger: logger.With("module", "manifest-builder"),
		now:    time.Now,
	}
}

// Build hashes and classifies every source and assembles the manifest.
//
// Sources whose file is missing or empty are logged and skipped. An
// incomplete document set is not an error: IntegrityVerified is false and
// the missing types are returned in the result.
func (b *Builder) Build(ctx context.Context, h Header, sources []Source) (*BuildResult, error) {
	at := h.SubmittedAt
	if at.IsZero() {
		at = b.now()
	}

	res := &BuildResult{}
	docs := make([]DocumentChecksum, 0, len(sources))

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		doc, ok, err := b.describe(ctx, h.ApplicationType, src, at)
		if err != nil {
			return nil, err
		}
		if !ok {
			res.Skipped = append(res.Skipped, src)
			continue
		}
		docs = append(docs, doc)
	}

	m := NewManifest(h, at, docs, InitialManifestVersion)
	res.Missing = b.policy.Missing(h.ApplicationType, m.DocumentTypes())
	m.IntegrityVerified = len(res.Missing) == 0
	res.Manifest = m

	if len(res.Missing) > 0 {
		b.logger.Warn(ctx, "required documents missing",
			"submission_id", h.SubmissionID,
			"application_type", h.ApplicationType,
			"missing", res.Missing)
	}

	return res, nil
}

func (b *Builder) describe(ctx context.Context, appType string, src Source, at time.Time) (DocumentChecksum, bool, error) {
	fi, err := os.Stat(src.Path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && fi.IsDir()) {
		b.logger.Warn(ctx, "file not found, skipping", "path", src.Path, "original_name", src.OriginalName)
		return DocumentChecksum{}, false, nil
	}
	if err != nil {
		return DocumentChecksum{}, false, fmt.Errorf("stat %s: %w", src.Path, err)
	}

	digest, size, err := HashFileWithSize(src.Path)
	if err != nil {
		return DocumentChecksum{}, false, err
	}
	if size == 0 {
		b.logger.Warn(ctx, "empty file, skipping", "path", src.Path, "original_name", src.OriginalName)
		return DocumentChecksum{}, false, nil
	}

	docType := Classify(src.OriginalName)
	b.logger.Debug(ctx, "document hashed", "original_name", src.OriginalName, "document_type", docType, "sha256", digest)

	return DocumentChecksum{
		Filename:        filepath.Base(src.Path),
		OriginalName:    src.OriginalName,
		FileSize:        size,
		SHA256Hash:      digest,
		MimeType:        DetectMimeType(src.OriginalName),
		UploadTimestamp: FormatTimestamp(at),
		DocumentType:    docType,
		Required:        b.policy.IsRequired(appType, docType),
	}, true, nil
}
