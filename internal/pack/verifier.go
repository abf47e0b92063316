package pack

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/packkeeper/internal/logging"
)

// maxManifestBytes caps how much of manifest.json is read into memory.
const maxManifestBytes = 16 << 20

// VerifyResult is the outcome of an integrity check. Valid is true iff
// Errors is empty.
type VerifyResult struct {
	Valid        bool      `json:"integrity_verified"`
	Errors       []string  `json:"errors"`
	FilesChecked int       `json:"files_checked"`
	Manifest     *Manifest `json:"-"`
}

func (r *VerifyResult) fail(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

type Verifier struct {
	logger logging.Logger
}

func NewVerifier(logger logging.Logger) *Verifier {
	return &Verifier{logger: logger.With("module", "integrity-verifier")}
}

// VerifyFile checks the archive at path. Problems with the archive are
// reported in the result, never as an error.
func (v *Verifier) VerifyFile(ctx context.Context, path string) VerifyResult {
	zr, err := zip.OpenReader(path)
	if err != nil {
		res := VerifyResult{Errors: []string{}}
		res.fail("Failed to read ZIP file: %v", err)
		return res
	}
	defer zr.Close()
	return v.verify(ctx, &zr.Reader)
}

// VerifyReaderAt checks an archive held in r.
func (v *Verifier) VerifyReaderAt(ctx context.Context, r io.ReaderAt, size int64) VerifyResult {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		res := VerifyResult{Errors: []string{}}
		res.fail("Failed to read ZIP file: %v", err)
		return res
	}
	return v.verify(ctx, zr)
}

func (v *Verifier) VerifyBytes(ctx context.Context, b []byte) VerifyResult {
	return v.VerifyReaderAt(ctx, bytes.NewReader(b), int64(len(b)))
}

// verify rehashes every document named by the embedded manifest. It always
// scans the full manifest so every problem is reported at once.
func (v *Verifier) verify(ctx context.Context, zr *zip.Reader) VerifyResult {
	res := VerifyResult{Errors: []string{}}

	files := indexEntries(zr)
	mf, ok := files[ManifestEntryName]
	if !ok {
		res.fail("Failed to read ZIP file: %s not found", ManifestEntryName)
		return res
	}
	raw, err := readZipFile(mf, maxManifestBytes)
	if err != nil {
		res.fail("Failed to read ZIP file: %s: %v", ManifestEntryName, err)
		return res
	}
	m, err := ParseManifest(raw)
	if err != nil {
		res.fail("Failed to read ZIP file: %v", err)
		return res
	}
	res.Manifest = m

	for _, d := range m.Documents {
		if err := ctx.Err(); err != nil {
			res.fail("Error verifying %s: %v", d.OriginalName, err)
			continue
		}
		got, problem := checkDocument(files, d)
		if got != "" {
			res.FilesChecked++
		}
		if problem != "" {
			res.Errors = append(res.Errors, problem)
		}
	}

	res.Valid = len(res.Errors) == 0
	v.logger.Info(ctx, "pack verified",
		"submission_id", m.SubmissionID,
		"valid", res.Valid,
		"files_checked", res.FilesChecked,
		"errors", len(res.Errors))
	return res
}

// indexEntries maps entry names to files. The first entry wins on duplicates.
func indexEntries(zr *zip.Reader) map[string]*zip.File {
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		if _, ok := files[f.Name]; !ok {
			files[f.Name] = f
		}
	}
	return files
}

// checkDocument rehashes the entry recorded for d. digest is empty when the
// entry is absent or unreadable; problem is empty when the hashes match.
func checkDocument(files map[string]*zip.File, d DocumentChecksum) (digest, problem string) {
	f, ok := files[d.OriginalName]
	if !ok {
		return "", fmt.Sprintf("Missing file in ZIP: %s", d.OriginalName)
	}
	got, err := hashZipFile(f)
	if err != nil {
		return "", fmt.Sprintf("Error verifying %s: %v", d.OriginalName, err)
	}
	if got != d.SHA256Hash {
		return got, fmt.Sprintf("Hash mismatch for %s: expected %s, got %s", d.OriginalName, d.SHA256Hash, got)
	}
	return got, ""
}

func readZipFile(f *zip.File, limit int64) ([]byte, error) {
	r, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	payload, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(payload)) > limit {
		return nil, fmt.Errorf("zip entry too large")
	}
	return payload, nil
}

func hashZipFile(f *zip.File) (string, error) {
	r, err := f.Open()
	if err != nil {
		return "", err
	}
	defer r.Close()

	digest, _, err := HashReader(r)
	return digest, err
}
