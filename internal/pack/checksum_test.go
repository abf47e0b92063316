package pack

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

func TestHashFile_KnownVectors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"empty", "", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{"abc", "abc", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeFile(t, dir, tt.name, []byte(tt.content))
			got, err := HashFile(p)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.True(t, IsSHA256Hex(got))
		})
	}
}

func TestHashFileWithSize_AcrossChunkBoundaries(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []int{ChunkSize - 1, ChunkSize, ChunkSize + 1, 3*ChunkSize + 17} {
		content := bytes.Repeat([]byte{'x'}, n)
		p := writeFile(t, dir, "f", content)

		digest, size, err := HashFileWithSize(p)
		require.NoError(t, err)
		require.Equal(t, int64(n), size)
		require.Equal(t, HashBytes(content), digest)
	}
}

func TestHashFile_Missing(t *testing.T) {
	_, err := HashFile(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestIsSHA256Hex(t *testing.T) {
	good := HashBytes([]byte("x"))
	require.True(t, IsSHA256Hex(good))
	require.False(t, IsSHA256Hex(strings.ToUpper(good)))
	require.False(t, IsSHA256Hex(good[:63]))
	require.False(t, IsSHA256Hex(strings.Repeat("g", 64)))
	require.False(t, IsSHA256Hex(""))
}

func TestHashDeterminism_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("streamed hash equals one-shot hash and is stable", prop.ForAll(
		func(content []byte) bool {
			a, n, err := HashReader(bytes.NewReader(content))
			if err != nil || n != int64(len(content)) {
				return false
			}
			b, _, err := HashReader(bytes.NewReader(content))
			if err != nil {
				return false
			}
			return a == b && a == HashBytes(content) && IsSHA256Hex(a)
		},
		gen.SliceOf(gen.UInt8()),
	))

	properties.TestingRun(t)
}
