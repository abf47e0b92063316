package pack

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/packkeeper/internal/common"
)

// Regenerate rebuilds the manifest of an existing archive: every document
// is reclassified under the builder's current policy and the manifest
// version is bumped. current is the latest persisted version; the archive's
// own manifest version is used when it is empty.
//
// The archive must still match its embedded manifest. A missing, unreadable
// or altered document fails with common.ErrArchiveTampered and nothing is
// rebuilt.
func (b *Builder) Regenerate(ctx context.Context, r io.ReaderAt, size int64, current string) (*BuildResult, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: open archive: %v", common.ErrInvalidManifest, err)
	}

	files := indexEntries(zr)
	mf, ok := files[ManifestEntryName]
	if !ok {
		return nil, fmt.Errorf("%w: %s not found", common.ErrInvalidManifest, ManifestEntryName)
	}
	raw, err := readZipFile(mf, maxManifestBytes)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ManifestEntryName, err)
	}
	prev, err := ParseManifest(raw)
	if err != nil {
		return nil, err
	}

	if current == "" {
		current = prev.ManifestVersion
	}
	version, err := NextManifestVersion(current)
	if err != nil {
		return nil, err
	}

	var problems []string
	docs := make([]DocumentChecksum, 0, len(prev.Documents))
	for _, d := range prev.Documents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, problem := checkDocument(files, d); problem != "" {
			problems = append(problems, problem)
			continue
		}

		docType := Classify(d.OriginalName)
		d.FileSize = int64(files[d.OriginalName].UncompressedSize64)
		d.DocumentType = docType
		d.Required = b.policy.IsRequired(prev.ApplicationType, docType)
		d.Verified = false
		docs = append(docs, d)
	}
	if len(problems) > 0 {
		b.logger.Warn(ctx, "archive does not match its manifest, not regenerating",
			"submission_id", prev.SubmissionID,
			"errors", len(problems))
		return nil, fmt.Errorf("%w: %s", common.ErrArchiveTampered, strings.Join(problems, "; "))
	}

	m := NewManifest(prev.Header(), time.Time{}, docs, version)
	m.SubmissionTimestamp = prev.SubmissionTimestamp
	res := &BuildResult{Manifest: m}
	res.Missing = b.policy.Missing(m.ApplicationType, m.DocumentTypes())
	m.IntegrityVerified = len(res.Missing) == 0

	b.logger.Info(ctx, "manifest regenerated",
		"submission_id", m.SubmissionID,
		"from_version", current,
		"to_version", version,
		"documents", m.TotalDocuments)

	return res, nil
}
