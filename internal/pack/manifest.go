package pack

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/packkeeper/internal/common"
	"github.com/gowebpki/jcs"
)

// ManifestEntryName is the archive path of the embedded manifest.
const ManifestEntryName = "manifest.json"

// InitialManifestVersion is written on every newly created pack.
const InitialManifestVersion = "1.0"

// DocumentChecksum describes one document of a pack. Field order is the
// wire order of manifest.json.
type DocumentChecksum struct {
	Filename        string       `json:"filename"`
	OriginalName    string       `json:"original_name"`
	FileSize        int64        `json:"file_size"`
	SHA256Hash      string       `json:"sha256_hash"`
	MimeType        string       `json:"mime_type"`
	UploadTimestamp string       `json:"upload_timestamp"`
	DocumentType    DocumentType `json:"document_type"`
	Required        bool         `json:"required"`
	Verified        bool         `json:"verified"`
}

// Manifest is the self-describing index of a submission pack.
// TotalDocuments and TotalSizeBytes are derived from Documents by NewManifest
// and must not be set independently.
type Manifest struct {
	SubmissionID         string             `json:"submission_id"`
	ApplicationReference string             `json:"application_reference"`
	LPACode              string             `json:"lpa_code"`
	ApplicantName        string             `json:"applicant_name"`
	PropertyAddress      string             `json:"property_address"`
	ApplicationType      string             `json:"application_type"`
	SubmissionTimestamp  string             `json:"submission_timestamp"`
	Documents            []DocumentChecksum `json:"documents"`
	TotalDocuments       int                `json:"total_documents"`
	TotalSizeBytes       int64              `json:"total_size_bytes"`
	ManifestVersion      string             `json:"manifest_version"`
	IntegrityVerified    bool               `json:"integrity_verified"`
}

// Header carries the application metadata copied into a manifest.
type Header struct {
	SubmissionID         string
	ApplicationReference string
	LPACode              string
	ApplicantName        string
	PropertyAddress      string
	ApplicationType      string
	// SubmittedAt stamps the manifest and its documents. Zero means now.
	SubmittedAt time.Time
}

// FormatTimestamp renders t as ISO-8601 UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// NewManifest assembles a manifest and derives its totals from docs.
func NewManifest(h Header, submittedAt time.Time, docs []DocumentChecksum, version string) *Manifest {
	if docs == nil {
		docs = []DocumentChecksum{}
	}
	if version == "" {
		version = InitialManifestVersion
	}

	m := &Manifest{
		SubmissionID:         h.SubmissionID,
		ApplicationReference: h.ApplicationReference,
		LPACode:              h.LPACode,
		ApplicantName:        h.ApplicantName,
		PropertyAddress:      h.PropertyAddress,
		ApplicationType:      h.ApplicationType,
		SubmissionTimestamp:  FormatTimestamp(submittedAt),
		Documents:            docs,
		ManifestVersion:      version,
	}
	m.TotalDocuments, m.TotalSizeBytes = totals(docs)
	return m
}

// Header returns the application metadata of m.
func (m *Manifest) Header() Header {
	return Header{
		SubmissionID:         m.SubmissionID,
		ApplicationReference: m.ApplicationReference,
		LPACode:              m.LPACode,
		ApplicantName:        m.ApplicantName,
		PropertyAddress:      m.PropertyAddress,
		ApplicationType:      m.ApplicationType,
	}
}

func totals(docs []DocumentChecksum) (int, int64) {
	var size int64
	for _, d := range docs {
		size += d.FileSize
	}
	return len(docs), size
}

// CheckTotals reports whether the stored totals agree with Documents.
func (m *Manifest) CheckTotals() error {
	count, size := totals(m.Documents)
	if m.TotalDocuments != count {
		return fmt.Errorf("%w: total_documents is %d, documents has %d entries", common.ErrInvalidManifest, m.TotalDocuments, count)
	}
	if m.TotalSizeBytes != size {
		return fmt.Errorf("%w: total_size_bytes is %d, documents sum to %d", common.ErrInvalidManifest, m.TotalSizeBytes, size)
	}
	return nil
}

// FindByHash returns the first document whose hash equals digest.
func (m *Manifest) FindByHash(digest string) (DocumentChecksum, bool) {
	for _, d := range m.Documents {
		if d.SHA256Hash == digest {
			return d, true
		}
	}
	return DocumentChecksum{}, false
}

// DocumentTypes lists the type of every document in manifest order.
func (m *Manifest) DocumentTypes() []DocumentType {
	out := make([]DocumentType, 0, len(m.Documents))
	for _, d := range m.Documents {
		out = append(out, d.DocumentType)
	}
	return out
}

// MarshalIndented renders m as the two-space indented JSON stored in the
// archive and in the blob store.
func (m *Manifest) MarshalIndented() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Digest returns the SHA-256 of the JCS canonical form of m. Two manifests
// with the same content have the same digest regardless of formatting.
func (m *Manifest) Digest() (string, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}
	canon, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize manifest: %w", err)
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

// ParseManifest decodes and validates manifest JSON.
func ParseManifest(data []byte) (*Manifest, error) {
	if err := ValidateManifestJSON(data); err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidManifest, err)
	}
	if m.Documents == nil {
		m.Documents = []DocumentChecksum{}
	}
	if err := m.CheckTotals(); err != nil {
		return nil, err
	}
	return &m, nil
}
