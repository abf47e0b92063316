package pack

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/packkeeper/internal/logging"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, content, 0o600))
	return p
}

var householderFiles = []struct {
	name    string
	content string
}{
	{"Application_Form.pdf", "application form body"},
	{"Location_Plan.pdf", "location plan body"},
	{"Site_Plan.pdf", "site plan body"},
	{"Existing_Elevations.pdf", "existing elevations body"},
	{"Proposed_Elevations.pdf", "proposed elevations body"},
}

// householderSources writes the five documents of a complete householder
// application under stored names that differ from the original names.
func householderSources(t *testing.T) []Source {
	t.Helper()
	dir := t.TempDir()
	out := make([]Source, 0, len(householderFiles))
	for i, f := range householderFiles {
		p := writeFile(t, dir, "upload_"+string(rune('a'+i))+".bin", []byte(f.content))
		out = append(out, Source{Path: p, OriginalName: f.name})
	}
	return out
}

func testHeader() Header {
	return Header{
		SubmissionID:         "SUB_20240101_120000_42_abcd1234",
		ApplicationReference: "APP/2024/0001",
		LPACode:              "E07000001",
		ApplicantName:        "Jane Doe",
		PropertyAddress:      "1 High Street",
		ApplicationType:      "householder",
	}
}

func newTestBuilder() *Builder {
	b := NewBuilder(DefaultPolicy(), logging.NewDiscardLogger())
	b.now = func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) }
	return b
}

func buildAndArchive(t *testing.T, sources []Source) (*BuildResult, *ArchiveFile) {
	t.Helper()
	ctx := context.Background()
	res, err := newTestBuilder().Build(ctx, testHeader(), sources)
	require.NoError(t, err)

	a, err := NewArchiver(t.TempDir(), logging.NewDiscardLogger()).Archive(ctx, res.Manifest, sources)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Remove() })
	return res, a
}

// rewriteZip copies the archive at path, letting mutate replace or drop
// entries. Returning keep=false drops the entry.
func rewriteZip(t *testing.T, path string, mutate func(name string, data []byte) ([]byte, bool)) []byte {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())

		data, keep := mutate(f.Name, data)
		if !keep {
			continue
		}
		w, err := zw.Create(f.Name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// appendZipEntry copies the archive at path and adds one more entry.
func appendZipEntry(t *testing.T, path, name string, data []byte) []byte {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range zr.File {
		require.NoError(t, zw.Copy(f))
	}
	w, err := zw.Create(name)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}
