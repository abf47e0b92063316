package publisher

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/packkeeper/internal/logging"
	"github.com/dmitrijs2005/packkeeper/internal/pack"
	"github.com/dmitrijs2005/packkeeper/internal/server/blobstore"
	"github.com/stretchr/testify/require"
)

// failingStore fails Put for keys with the given suffix.
type failingStore struct {
	*blobstore.MemoryStore
	failSuffix string
}

func (f *failingStore) Put(ctx context.Context, key string, body io.ReadSeeker, opts blobstore.PutOptions) error {
	if strings.HasSuffix(key, f.failSuffix) {
		return errors.New("storage unavailable")
	}
	return f.MemoryStore.Put(ctx, key, body, opts)
}

func testPack(t *testing.T) (*pack.Manifest, *pack.ArchiveFile) {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "a.bin")
	require.NoError(t, os.WriteFile(p, []byte("site plan"), 0o600))
	sources := []pack.Source{{Path: p, OriginalName: "Site_Plan.pdf"}}

	h := pack.Header{
		SubmissionID:         "SUB_20240315_101500_7_00ff00ff",
		ApplicationReference: "APP/24/1",
		LPACode:              "E07000223",
		ApplicationType:      "householder",
	}
	ctx := context.Background()
	res, err := pack.NewBuilder(nil, logging.NewDiscardLogger()).Build(ctx, h, sources)
	require.NoError(t, err)
	res.Manifest.SubmissionTimestamp = pack.FormatTimestamp(time.Date(2024, 3, 15, 10, 15, 0, 0, time.UTC))

	a, err := pack.NewArchiver(t.TempDir(), logging.NewDiscardLogger()).Archive(ctx, res.Manifest, sources)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Remove() })
	return res.Manifest, a
}

func TestKeys(t *testing.T) {
	m, a := testPack(t)

	key := ArchiveKey(m, a.Name)
	require.Equal(t, "E07000223/2024/03/SUB_20240315_101500_7_00ff00ff/submission_SUB_20240315_101500_7_00ff00ff_APP_24_1.zip", key)
	require.Equal(t, "E07000223/2024/03/SUB_20240315_101500_7_00ff00ff/submission_SUB_20240315_101500_7_00ff00ff_APP_24_1_manifest.json", ManifestKey(key))
}

func TestMetadata(t *testing.T) {
	m, _ := testPack(t)

	require.Equal(t, map[string]string{
		"submission-id":         m.SubmissionID,
		"application-reference": "APP/24/1",
		"lpa-code":              "E07000223",
		"application-type":      "householder",
		"document-count":        "1",
		"total-size":            "9",
		"integrity-verified":    "false",
	}, Metadata(m))
}

func TestPublish_Success(t *testing.T) {
	m, a := testPack(t)
	store := blobstore.NewMemoryStore("packs")
	p := New(store, logging.NewDiscardLogger())
	ctx := context.Background()

	pub, err := p.Publish(ctx, a, m)
	require.NoError(t, err)
	require.Equal(t, "memory://packs/"+pub.ArchiveKey, pub.Locator)
	require.ElementsMatch(t, []string{pub.ArchiveKey, pub.ManifestKey}, store.Keys())

	obj, err := store.Get(ctx, pub.ArchiveKey)
	require.NoError(t, err)
	archived, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	local, err := os.ReadFile(a.Path)
	require.NoError(t, err)
	require.Equal(t, local, archived)
	require.Equal(t, "application/zip", obj.ContentType)
	require.Equal(t, m.SubmissionID, obj.Metadata["submission-id"])

	opts, _ := store.Options(pub.ArchiveKey)
	require.True(t, opts.ServerSideEncryption)

	obj, err = store.Get(ctx, pub.ManifestKey)
	require.NoError(t, err)
	raw, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	require.Equal(t, "application/json", obj.ContentType)
	copyOf, err := pack.ParseManifest(raw)
	require.NoError(t, err)
	require.Equal(t, m, copyOf)

	p.Unpublish(ctx, pub)
	require.Empty(t, store.Keys())
}

func TestPublish_ArchiveFailure(t *testing.T) {
	m, a := testPack(t)
	store := &failingStore{MemoryStore: blobstore.NewMemoryStore("packs"), failSuffix: ".zip"}

	_, err := New(store, logging.NewDiscardLogger()).Publish(context.Background(), a, m)
	require.ErrorContains(t, err, "upload archive")
	require.Empty(t, store.Keys())
}

func TestPublish_ManifestFailureRemovesArchive(t *testing.T) {
	m, a := testPack(t)
	store := &failingStore{MemoryStore: blobstore.NewMemoryStore("packs"), failSuffix: "_manifest.json"}

	_, err := New(store, logging.NewDiscardLogger()).Publish(context.Background(), a, m)
	require.ErrorContains(t, err, "upload manifest")
	require.Empty(t, store.Keys(), "no partial publication survives")
}

func TestPublishManifest_ReplacesCopy(t *testing.T) {
	m, a := testPack(t)
	store := blobstore.NewMemoryStore("packs")
	p := New(store, logging.NewDiscardLogger())
	ctx := context.Background()

	pub, err := p.Publish(ctx, a, m)
	require.NoError(t, err)

	next := *m
	next.ManifestVersion = "1.1"
	require.NoError(t, p.PublishManifest(ctx, pub.ManifestKey, &next))

	obj, err := store.Get(ctx, pub.ManifestKey)
	require.NoError(t, err)
	raw, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	got, err := pack.ParseManifest(raw)
	require.NoError(t, err)
	require.Equal(t, "1.1", got.ManifestVersion)
	require.Len(t, store.Keys(), 2)
}

func TestPublishManifest_Failure(t *testing.T) {
	m, _ := testPack(t)
	store := &failingStore{MemoryStore: blobstore.NewMemoryStore("packs"), failSuffix: "_manifest.json"}

	err := New(store, logging.NewDiscardLogger()).PublishManifest(context.Background(), "k_manifest.json", m)
	require.ErrorContains(t, err, "upload manifest")
}
