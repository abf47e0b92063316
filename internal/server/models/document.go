package models

import "time"

// DocumentRecord is one manifest document, stored next to the submission
// so checksums can be listed without parsing the manifest.
type DocumentRecord struct {
	ID              int64
	SubmissionID    string
	Filename        string
	OriginalName    string
	FileSize        int64
	SHA256Hash      string
	MimeType        string
	DocumentType    string
	Required        bool
	UploadTimestamp string
	CreatedAt       time.Time
}

// ManifestVersion is an append-only snapshot of a submission's manifest.
type ManifestVersion struct {
	ID                int64
	SubmissionID      string
	VersionNumber     int
	ManifestVersion   string
	ManifestJSON      string
	ChangeDescription string
	CreatedBy         string
	CreatedAt         time.Time
}

// Verification outcomes recorded in the authority log.
const (
	VerificationVerified = "verified"
	VerificationFailed   = "failed"
)

// AuthorityVerification logs one verification run.
type AuthorityVerification struct {
	ID           int64
	SubmissionID string
	LPACode      string
	VerifiedBy   string
	Status       string
	Notes        string
	VerifiedAt   time.Time
}
