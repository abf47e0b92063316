package pack

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/packkeeper/internal/common"
	"github.com/dmitrijs2005/packkeeper/internal/logging"
)

// ArchiveFile is a pack written to a private temporary directory. Remove
// deletes the directory and must always be called by the owner.
type ArchiveFile struct {
	Path string
	Name string
	Size int64
	dir  string
}

// Remove deletes the archive together with its private temp directory.
func (a *ArchiveFile) Remove() error {
	if a == nil || a.dir == "" {
		return nil
	}
	return os.RemoveAll(a.dir)
}

// ArchiveName returns the file name of the pack archive for m.
func ArchiveName(m *Manifest) string {
	ref := strings.ReplaceAll(m.ApplicationReference, "/", "_")
	return fmt.Sprintf("submission_%s_%s.zip", m.SubmissionID, ref)
}

// Archiver writes a manifest and its documents into a ZIP archive.
type Archiver struct {
	workDir string
	logger  logging.Logger
}

// NewArchiver creates archives under workDir, or the system temp dir when
// workDir is empty.
func NewArchiver(workDir string, logger logging.Logger) *Archiver {
	return &Archiver{workDir: workDir, logger: logger.With("module", "pack-archiver")}
}

// Archive writes manifest.json followed by every document of m. Each
// document is read from the source with the same original name and file
// name. A referenced source that is missing, or whose bytes no longer match
// the manifest hash, fails the whole archive.
func (a *Archiver) Archive(ctx context.Context, m *Manifest, sources []Source) (*ArchiveFile, error) {
	if err := checkEntryNames(m); err != nil {
		return nil, err
	}

	paths, err := resolveSources(m, sources)
	if err != nil {
		return nil, err
	}

	manifestJSON, err := m.MarshalIndented()
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(a.workDir, "pack-*")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	out := &ArchiveFile{Name: ArchiveName(m), dir: dir}
	out.Path = filepath.Join(dir, out.Name)

	if err := writeArchive(ctx, out.Path, manifestJSON, m, paths); err != nil {
		_ = out.Remove()
		return nil, err
	}

	fi, err := os.Stat(out.Path)
	if err != nil {
		_ = out.Remove()
		return nil, fmt.Errorf("stat archive: %w", err)
	}
	out.Size = fi.Size()

	a.logger.Info(ctx, "archive created",
		"submission_id", m.SubmissionID,
		"archive", out.Name,
		"documents", m.TotalDocuments,
		"size", out.Size)

	return out, nil
}

func checkEntryNames(m *Manifest) error {
	seen := map[string]struct{}{ManifestEntryName: {}}
	for _, d := range m.Documents {
		if _, dup := seen[d.OriginalName]; dup {
			return fmt.Errorf("%w: %q", common.ErrDuplicateEntry, d.OriginalName)
		}
		seen[d.OriginalName] = struct{}{}
	}
	return nil
}

type sourceKey struct {
	originalName string
	filename     string
}

func resolveSources(m *Manifest, sources []Source) ([]string, error) {
	index := make(map[sourceKey]string, len(sources))
	for _, s := range sources {
		k := sourceKey{originalName: s.OriginalName, filename: filepath.Base(s.Path)}
		if _, ok := index[k]; !ok {
			index[k] = s.Path
		}
	}

	paths := make([]string, 0, len(m.Documents))
	for _, d := range m.Documents {
		p, ok := index[sourceKey{originalName: d.OriginalName, filename: d.Filename}]
		if !ok {
			return nil, fmt.Errorf("%w: no source for %q", common.ErrMissingSourceFile, d.OriginalName)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func writeArchive(ctx context.Context, path string, manifestJSON []byte, m *Manifest, paths []string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close archive: %w", cerr)
		}
	}()

	zw := zip.NewWriter(f)
	modified := time.Now().UTC()

	w, err := zw.CreateHeader(&zip.FileHeader{Name: ManifestEntryName, Method: zip.Deflate, Modified: modified})
	if err != nil {
		return fmt.Errorf("add manifest: %w", err)
	}
	if _, err := w.Write(manifestJSON); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	for i, d := range m.Documents {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := addDocument(zw, d, paths[i], modified); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}

func addDocument(zw *zip.Writer, d DocumentChecksum, path string, modified time.Time) error {
	src, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", common.ErrMissingSourceFile, path)
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer src.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{Name: d.OriginalName, Method: zip.Deflate, Modified: modified})
	if err != nil {
		return fmt.Errorf("add %s: %w", d.OriginalName, err)
	}

	h := sha256.New()
	buf := make([]byte, ChunkSize)
	if _, err := io.CopyBuffer(io.MultiWriter(w, h), struct{ io.Reader }{src}, buf); err != nil {
		return fmt.Errorf("write %s: %w", d.OriginalName, err)
	}
	if got := hex.EncodeToString(h.Sum(nil)); got != d.SHA256Hash {
		return fmt.Errorf("%w: %s", common.ErrSourceChanged, d.OriginalName)
	}
	return nil
}
