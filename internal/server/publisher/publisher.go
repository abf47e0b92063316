// Package publisher uploads a finished pack archive and a standalone copy
// of its manifest to the blob store under a content-addressed key.
package publisher

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/packkeeper/internal/logging"
	"github.com/dmitrijs2005/packkeeper/internal/pack"
	"github.com/dmitrijs2005/packkeeper/internal/server/blobstore"
)

const (
	archiveContentType  = "application/zip"
	manifestContentType = "application/json"
	manifestKeySuffix   = "_manifest.json"
)

// Publication names where a pack was stored.
type Publication struct {
	Locator     string
	ArchiveKey  string
	ManifestKey string
}

type Publisher struct {
	store  blobstore.Store
	logger logging.Logger
}

func New(store blobstore.Store, logger logging.Logger) *Publisher {
	return &Publisher{store: store, logger: logger.With("module", "blob-publisher")}
}

// ArchiveKey returns {lpa_code}/{YYYY}/{MM}/{submission_id}/{archive_name},
// with year and month taken from the manifest's submission time.
func ArchiveKey(m *pack.Manifest, archiveName string) string {
	ts, err := time.Parse(time.RFC3339Nano, m.SubmissionTimestamp)
	if err != nil {
		ts = time.Now().UTC()
	}
	return fmt.Sprintf("%s/%04d/%02d/%s/%s", m.LPACode, ts.Year(), int(ts.Month()), m.SubmissionID, archiveName)
}

// ManifestKey returns the sibling key of the standalone manifest copy.
func ManifestKey(archiveKey string) string {
	return strings.TrimSuffix(archiveKey, ".zip") + manifestKeySuffix
}

// Metadata returns the descriptive object metadata attached to both uploads.
func Metadata(m *pack.Manifest) map[string]string {
	return map[string]string{
		"submission-id":         m.SubmissionID,
		"application-reference": m.ApplicationReference,
		"lpa-code":              m.LPACode,
		"application-type":      m.ApplicationType,
		"document-count":        strconv.Itoa(m.TotalDocuments),
		"total-size":            strconv.FormatInt(m.TotalSizeBytes, 10),
		"integrity-verified":    strconv.FormatBool(m.IntegrityVerified),
	}
}

// Publish uploads the archive and then the manifest copy. If the manifest
// upload fails the archive is deleted again, so a failed publish leaves
// nothing behind.
func (p *Publisher) Publish(ctx context.Context, archive *pack.ArchiveFile, m *pack.Manifest) (*Publication, error) {
	archiveKey := ArchiveKey(m, archive.Name)
	manifestKey := ManifestKey(archiveKey)
	meta := Metadata(m)

	manifestJSON, err := m.MarshalIndented()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(archive.Path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	err = p.store.Put(ctx, archiveKey, f, blobstore.PutOptions{
		ContentType:          archiveContentType,
		Metadata:             meta,
		ServerSideEncryption: true,
	})
	if err != nil {
		p.logger.Error(ctx, "archive upload failed", "submission_id", m.SubmissionID, "key", archiveKey, "error", err)
		return nil, fmt.Errorf("upload archive: %w", err)
	}

	err = p.putManifest(ctx, manifestKey, manifestJSON, meta)
	if err != nil {
		p.logger.Error(ctx, "manifest upload failed", "submission_id", m.SubmissionID, "key", manifestKey, "error", err)
		if derr := p.store.Delete(context.WithoutCancel(ctx), archiveKey); derr != nil {
			p.logger.Warn(ctx, "failed to remove archive after partial publish", "key", archiveKey, "error", derr)
		}
		return nil, fmt.Errorf("upload manifest: %w", err)
	}

	pub := &Publication{
		Locator:     p.store.Locator(archiveKey),
		ArchiveKey:  archiveKey,
		ManifestKey: manifestKey,
	}
	p.logger.Info(ctx, "pack published", "submission_id", m.SubmissionID, "locator", pub.Locator)
	return pub, nil
}

func (p *Publisher) putManifest(ctx context.Context, key string, manifestJSON []byte, meta map[string]string) error {
	return p.store.Put(ctx, key, bytes.NewReader(manifestJSON), blobstore.PutOptions{
		ContentType:          manifestContentType,
		Metadata:             meta,
		ServerSideEncryption: true,
	})
}

// PublishManifest overwrites the standalone manifest copy at key, used when
// a manifest is regenerated. The archive is left untouched.
func (p *Publisher) PublishManifest(ctx context.Context, key string, m *pack.Manifest) error {
	manifestJSON, err := m.MarshalIndented()
	if err != nil {
		return err
	}
	if err := p.putManifest(ctx, key, manifestJSON, Metadata(m)); err != nil {
		p.logger.Error(ctx, "manifest upload failed", "submission_id", m.SubmissionID, "key", key, "error", err)
		return fmt.Errorf("upload manifest: %w", err)
	}
	p.logger.Info(ctx, "manifest copy replaced", "submission_id", m.SubmissionID, "key", key, "manifest_version", m.ManifestVersion)
	return nil
}

// Unpublish removes both objects of a publication, best-effort.
func (p *Publisher) Unpublish(ctx context.Context, pub *Publication) {
	for _, key := range []string{pub.ArchiveKey, pub.ManifestKey} {
		if err := p.store.Delete(ctx, key); err != nil {
			p.logger.Warn(ctx, "failed to remove published object", "key", key, "error", err)
		}
	}
}
