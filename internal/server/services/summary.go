package services

import (
	"context"
	"math"
	"time"

	"github.com/dmitrijs2005/packkeeper/internal/common"
	"github.com/dmitrijs2005/packkeeper/internal/pack"
	"github.com/dmitrijs2005/packkeeper/internal/server/models"
)

// hashPreviewLength is how many hex characters of a digest summaries show.
const hashPreviewLength = 16

// DocumentSummary is a shortened view of one manifest document.
type DocumentSummary struct {
	OriginalName string
	DocumentType string
	FileSize     int64
	HashPreview  string
	Required     bool
}

// Summary is a compact overview of a submission for reviewers.
type Summary struct {
	SubmissionID         string
	ApplicationReference string
	LPACode              string
	Status               models.SubmissionStatus
	ManifestVersion      string
	TotalDocuments       int
	TotalSizeBytes       int64
	TotalSizeMB          float64
	IntegrityVerified    bool
	VerificationErrors   []string
	LastVerified         *time.Time
	CreatedAt            time.Time
	Documents            []DocumentSummary
}

// Summary returns the submission record with its documents, digests
// truncated for display.
func (s *PackService) Summary(ctx context.Context, id string) (*Summary, error) {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	m, err := pack.ParseManifest([]byte(sub.ManifestJSON))
	if err != nil {
		return nil, err
	}

	out := &Summary{
		SubmissionID:         sub.SubmissionID,
		ApplicationReference: sub.ApplicationReference,
		LPACode:              sub.LPACode,
		Status:               sub.Status,
		ManifestVersion:      sub.ManifestVersion,
		TotalDocuments:       sub.TotalDocuments,
		TotalSizeBytes:       sub.TotalSizeBytes,
		TotalSizeMB:          SizeMB(sub.TotalSizeBytes),
		IntegrityVerified:    sub.IntegrityVerified,
		VerificationErrors:   sub.VerificationErrors,
		LastVerified:         sub.LastVerified,
		CreatedAt:            sub.CreatedAt,
		Documents:            make([]DocumentSummary, 0, len(m.Documents)),
	}
	for _, d := range m.Documents {
		out.Documents = append(out.Documents, DocumentSummary{
			OriginalName: d.OriginalName,
			DocumentType: string(d.DocumentType),
			FileSize:     d.FileSize,
			HashPreview:  HashPreview(d.SHA256Hash),
			Required:     d.Required,
		})
	}
	return out, nil
}

// HashPreview shortens a digest to its first 16 characters followed by "...".
func HashPreview(digest string) string {
	if len(digest) <= hashPreviewLength {
		return digest
	}
	return digest[:hashPreviewLength] + "..."
}

// SizeMB converts bytes to MiB rounded to two decimals.
func SizeMB(bytes int64) float64 {
	return round2(float64(bytes) / common.BytesPerMiB)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
