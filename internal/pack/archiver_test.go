package pack

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/packkeeper/internal/common"
	"github.com/dmitrijs2005/packkeeper/internal/logging"
	"github.com/stretchr/testify/require"
)

func TestArchiveName(t *testing.T) {
	m := &Manifest{SubmissionID: "SUB_1", ApplicationReference: "APP/2024/0001"}
	require.Equal(t, "submission_SUB_1_APP_2024_0001.zip", ArchiveName(m))
}

func TestArchiver_Archive_Layout(t *testing.T) {
	sources := householderSources(t)
	res, a := buildAndArchive(t, sources)

	require.Equal(t, ArchiveName(res.Manifest), a.Name)
	require.Equal(t, a.Name, filepath.Base(a.Path))
	fi, err := os.Stat(a.Path)
	require.NoError(t, err)
	require.Equal(t, fi.Size(), a.Size)

	zr, err := zip.OpenReader(a.Path)
	require.NoError(t, err)
	defer zr.Close()

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
		require.Equal(t, zip.Deflate, f.Method)
	}
	want := []string{ManifestEntryName}
	for _, f := range householderFiles {
		want = append(want, f.name)
	}
	require.Equal(t, want, names)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	raw, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	embedded, err := ParseManifest(raw)
	require.NoError(t, err)
	require.Equal(t, res.Manifest, embedded)
}

func TestArchiver_Archive_Remove(t *testing.T) {
	_, a := buildAndArchive(t, householderSources(t))
	dir := filepath.Dir(a.Path)

	require.NoError(t, a.Remove())
	_, err := os.Stat(dir)
	require.True(t, os.IsNotExist(err))
	require.NoError(t, (*ArchiveFile)(nil).Remove())
}

func TestArchiver_Archive_MissingSourceFails(t *testing.T) {
	ctx := context.Background()
	sources := householderSources(t)
	res, err := newTestBuilder().Build(ctx, testHeader(), sources)
	require.NoError(t, err)

	require.NoError(t, os.Remove(sources[2].Path))

	work := t.TempDir()
	_, err = NewArchiver(work, logging.NewDiscardLogger()).Archive(ctx, res.Manifest, sources)
	require.ErrorIs(t, err, common.ErrMissingSourceFile)

	entries, err := os.ReadDir(work)
	require.NoError(t, err)
	require.Empty(t, entries, "partial archive is cleaned up")
}

func TestArchiver_Archive_UnlistedSourceFails(t *testing.T) {
	ctx := context.Background()
	sources := householderSources(t)
	res, err := newTestBuilder().Build(ctx, testHeader(), sources)
	require.NoError(t, err)

	_, err = NewArchiver(t.TempDir(), logging.NewDiscardLogger()).Archive(ctx, res.Manifest, sources[1:])
	require.ErrorIs(t, err, common.ErrMissingSourceFile)
}

func TestArchiver_Archive_SourceChangedFails(t *testing.T) {
	ctx := context.Background()
	sources := householderSources(t)
	res, err := newTestBuilder().Build(ctx, testHeader(), sources)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(sources[0].Path, []byte("rewritten"), 0o600))

	_, err = NewArchiver(t.TempDir(), logging.NewDiscardLogger()).Archive(ctx, res.Manifest, sources)
	require.ErrorIs(t, err, common.ErrSourceChanged)
}

func TestArchiver_Archive_DuplicateNames(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a := writeFile(t, dir, "a.bin", []byte("one"))
	b := writeFile(t, dir, "b.bin", []byte("two"))
	c := writeFile(t, dir, "c.bin", []byte("{}"))

	tests := []struct {
		name    string
		sources []Source
	}{
		{"same original name", []Source{{Path: a, OriginalName: "Site_Plan.pdf"}, {Path: b, OriginalName: "Site_Plan.pdf"}}},
		{"clashes with manifest", []Source{{Path: c, OriginalName: ManifestEntryName}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newTestBuilder().Build(ctx, testHeader(), tt.sources)
			require.NoError(t, err)
			_, err = NewArchiver(t.TempDir(), logging.NewDiscardLogger()).Archive(ctx, res.Manifest, tt.sources)
			require.ErrorIs(t, err, common.ErrDuplicateEntry)
		})
	}
}
