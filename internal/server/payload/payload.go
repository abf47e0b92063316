// Package payload renders service results as the field maps shared by the
// HTTP API (encoded as JSON) and the gRPC API (encoded as
// google.protobuf.Struct). Values are limited to types structpb accepts.
package payload

import (
	"time"

	"github.com/dmitrijs2005/packkeeper/internal/pack"
	"github.com/dmitrijs2005/packkeeper/internal/server/models"
	"github.com/dmitrijs2005/packkeeper/internal/server/services"
)

// Map is a JSON object.
type Map = map[string]any

// MessageHashNotFound is reported when a lookup hash is not in the manifest.
const MessageHashNotFound = "Document hash not found in submission"

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func optionalTimestamp(t *time.Time) any {
	if t == nil {
		return nil
	}
	return timestamp(*t)
}

func stringList(xs []string) []any {
	out := make([]any, 0, len(xs))
	for _, x := range xs {
		out = append(out, x)
	}
	return out
}

func documentTypes(xs []pack.DocumentType) []any {
	out := make([]any, 0, len(xs))
	for _, x := range xs {
		out = append(out, string(x))
	}
	return out
}

func Submission(s *models.Submission) Map {
	return Map{
		"submission_id":         s.SubmissionID,
		"application_id":        s.ApplicationID,
		"application_reference": s.ApplicationReference,
		"lpa_code":              s.LPACode,
		"status":                string(s.Status),
		"s3_url":                s.Locator,
		"manifest_version":      s.ManifestVersion,
		"manifest_sha256":       s.ManifestSHA256,
		"total_documents":       s.TotalDocuments,
		"total_size_bytes":      s.TotalSizeBytes,
		"total_size_mb":         services.SizeMB(s.TotalSizeBytes),
		"integrity_verified":    s.IntegrityVerified,
		"verification_errors":   stringList(s.VerificationErrors),
		"last_verified":         optionalTimestamp(s.LastVerified),
		"created_at":            timestamp(s.CreatedAt),
	}
}

func Submissions(subs []*models.Submission) []any {
	out := make([]any, 0, len(subs))
	for _, s := range subs {
		out = append(out, Submission(s))
	}
	return out
}

func Created(r *services.CreateResult) Map {
	skipped := make([]any, 0, len(r.Skipped))
	for _, s := range r.Skipped {
		skipped = append(skipped, s.OriginalName)
	}
	out := Submission(r.Submission)
	out["missing_document_types"] = documentTypes(r.Missing)
	out["skipped_files"] = skipped
	return out
}

func Verification(v *services.VerifyOutcome) Map {
	return Map{
		"submission_id":          v.SubmissionID,
		"integrity_verified":     v.Result.Valid,
		"status":                 string(v.Status),
		"errors":                 stringList(v.Result.Errors),
		"files_checked":          v.Result.FilesChecked,
		"verification_timestamp": timestamp(v.VerifiedAt),
	}
}

func Lookup(l *services.DocumentLookup) Map {
	out := Map{
		"submission_id": l.SubmissionID,
		"document_hash": l.DocumentHash,
		"verified":      l.Verified,
	}
	if l.Document == nil {
		out["error"] = MessageHashNotFound
		return out
	}
	out["document"] = Map{
		"filename":         l.Document.Filename,
		"document_type":    l.Document.DocumentType,
		"file_size":        l.Document.FileSize,
		"upload_timestamp": l.Document.UploadTimestamp,
		"required":         l.Document.Required,
	}
	return out
}

func Summary(s *services.Summary) Map {
	docs := make([]any, 0, len(s.Documents))
	for _, d := range s.Documents {
		docs = append(docs, Map{
			"filename":      d.OriginalName,
			"document_type": d.DocumentType,
			"file_size":     d.FileSize,
			"required":      d.Required,
			"sha256_hash":   d.HashPreview,
		})
	}
	return Map{
		"submission_id":         s.SubmissionID,
		"application_reference": s.ApplicationReference,
		"lpa_code":              s.LPACode,
		"status":                string(s.Status),
		"manifest_version":      s.ManifestVersion,
		"total_documents":       s.TotalDocuments,
		"total_size_mb":         s.TotalSizeMB,
		"integrity_verified":    s.IntegrityVerified,
		"verification_errors":   stringList(s.VerificationErrors),
		"last_verified":         optionalTimestamp(s.LastVerified),
		"created_at":            timestamp(s.CreatedAt),
		"documents":             docs,
	}
}

func Statistics(r *services.StatisticsReport) Map {
	byLPA := make([]any, 0, len(r.TopLPAs))
	for _, l := range r.TopLPAs {
		byLPA = append(byLPA, Map{"lpa_code": l.LPACode, "submission_count": l.Count})
	}
	return Map{
		"total_submissions":    r.TotalSubmissions,
		"verified_submissions": r.VerifiedSubmissions,
		"total_documents":      r.TotalDocuments,
		"total_size_bytes":     r.TotalSizeBytes,
		"total_size_mb":        r.TotalSizeMB,
		"recent_submissions":   r.RecentSubmissions,
		"verification_rate":    r.VerificationRate,
		"by_lpa":               byLPA,
	}
}

func Checksums(docs []*models.DocumentRecord) []any {
	out := make([]any, 0, len(docs))
	for _, d := range docs {
		out = append(out, Map{
			"filename":         d.Filename,
			"original_name":    d.OriginalName,
			"file_size":        d.FileSize,
			"sha256_hash":      d.SHA256Hash,
			"mime_type":        d.MimeType,
			"document_type":    d.DocumentType,
			"required":         d.Required,
			"upload_timestamp": d.UploadTimestamp,
		})
	}
	return out
}

func Versions(vs []*models.ManifestVersion) []any {
	out := make([]any, 0, len(vs))
	for _, v := range vs {
		out = append(out, Map{
			"version_number":     v.VersionNumber,
			"manifest_version":   v.ManifestVersion,
			"change_description": v.ChangeDescription,
			"created_by":         v.CreatedBy,
			"created_at":         timestamp(v.CreatedAt),
		})
	}
	return out
}

func Download(d *services.DownloadLink, now time.Time) Map {
	return Map{
		"submission_id":      d.SubmissionID,
		"download_url":       d.URL,
		"archive_key":        d.ArchiveKey,
		"expires_at":         timestamp(d.ExpiresAt),
		"expires_in_seconds": int64(d.ExpiresAt.Sub(now).Seconds()),
	}
}

func Regenerated(r *services.RegenerateResult) Map {
	return Map{
		"submission_id":          r.SubmissionID,
		"version_number":         r.VersionNumber,
		"manifest_version":       r.ManifestVersion,
		"integrity_verified":     r.Manifest.IntegrityVerified,
		"total_documents":        r.Manifest.TotalDocuments,
		"missing_document_types": documentTypes(r.Missing),
	}
}
