package services

import (
	"context"
	"strings"
	"testing"

	"github.com/dmitrijs2005/packkeeper/internal/common"
	"github.com/dmitrijs2005/packkeeper/internal/logging"
	"github.com/dmitrijs2005/packkeeper/internal/pack"
	"github.com/stretchr/testify/require"
)

func newVerificationFixture(t *testing.T) (*VerificationService, *packFixture) {
	t.Helper()
	f := newPackFixture(t)
	f.create(t)
	svc, err := NewVerificationService(f.db, &fakeRepoManager{st: f.st}, 4, logging.NewDiscardLogger())
	require.NoError(t, err)
	return svc, f
}

func TestVerifyDocument_Found(t *testing.T) {
	svc, _ := newVerificationFixture(t)
	digest := pack.HashBytes([]byte("site plan body"))

	got, err := svc.VerifyDocument(context.Background(), testSubmissionID, strings.ToUpper(digest))
	require.NoError(t, err)
	require.True(t, got.Verified)
	require.Equal(t, digest, got.DocumentHash)
	require.Equal(t, &DocumentMatch{
		Filename:        "Site_Plan.pdf",
		DocumentType:    string(pack.SitePlan),
		FileSize:        int64(len("site plan body")),
		UploadTimestamp: got.Document.UploadTimestamp,
		Required:        true,
	}, got.Document)
	require.NotEmpty(t, got.Document.UploadTimestamp)
}

func TestVerifyDocument_NotFound(t *testing.T) {
	svc, _ := newVerificationFixture(t)

	got, err := svc.VerifyDocument(context.Background(), testSubmissionID, pack.HashBytes([]byte("never uploaded")))
	require.NoError(t, err)
	require.False(t, got.Verified)
	require.Nil(t, got.Document)
}

func TestVerifyDocument_Errors(t *testing.T) {
	svc, f := newVerificationFixture(t)
	ctx := context.Background()

	_, err := svc.VerifyDocument(ctx, testSubmissionID, "abc")
	require.ErrorIs(t, err, common.ErrorValidation)

	_, err = svc.VerifyDocument(ctx, "SUB_nope", pack.HashBytes(nil))
	require.ErrorIs(t, err, common.ErrorNotFound)

	f.st.subs[testSubmissionID].ManifestSHA256 = strings.Repeat("0", 64)
	_, err = svc.VerifyDocument(ctx, testSubmissionID, pack.HashBytes(nil))
	require.ErrorIs(t, err, common.ErrManifestDigestMismatch)
}

func TestVerifyDocument_CachesByDigest(t *testing.T) {
	svc, f := newVerificationFixture(t)
	ctx := context.Background()
	digest := pack.HashBytes([]byte("site plan body"))

	_, err := svc.VerifyDocument(ctx, testSubmissionID, digest)
	require.NoError(t, err)
	require.Equal(t, 1, svc.manifests.Len())

	_, err = svc.VerifyDocument(ctx, testSubmissionID, digest)
	require.NoError(t, err)
	require.Equal(t, 1, svc.manifests.Len())

	// A regenerated manifest has a new digest and gets its own entry.
	f.expectTx()
	_, err = f.svc.RegenerateManifest(ctx, testSubmissionID)
	require.NoError(t, err)

	got, err := svc.VerifyDocument(ctx, testSubmissionID, digest)
	require.NoError(t, err)
	require.True(t, got.Verified)
	require.Equal(t, 2, svc.manifests.Len())
}
