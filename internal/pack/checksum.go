// Package pack builds and verifies submission packs: a manifest of SHA-256
// checksums for every uploaded document, the ZIP archive that carries the
// manifest and the documents, and the offline integrity check over that
// archive.
package pack

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// ChunkSize is the read size used when streaming file content into the hasher.
const ChunkSize = 4096

// HashFile returns the lowercase hex SHA-256 of the file at path.
func HashFile(path string) (string, error) {
	digest, _, err := HashFileWithSize(path)
	return digest, err
}

// HashFileWithSize hashes the file at path and also reports how many bytes
// were hashed, so the size recorded next to a digest always describes the
// same bytes.
func HashFileWithSize(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	digest, n, err := HashReader(f)
	if err != nil {
		return "", 0, fmt.Errorf("hash %s: %w", path, err)
	}
	return digest, n, nil
}

// HashReader streams r through SHA-256 in ChunkSize reads.
func HashReader(r io.Reader) (string, int64, error) {
	h := sha256.New()
	buf := make([]byte, ChunkSize)
	// struct wrapper hides WriterTo so CopyBuffer honours the chunk size
	n, err := io.CopyBuffer(h, struct{ io.Reader }{r}, buf)
	if err != nil {
		return "", n, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// HashBytes returns the lowercase hex SHA-256 of b.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// IsSHA256Hex reports whether s is a 64-character lowercase hex digest.
func IsSHA256Hex(s string) bool {
	if len(s) != sha256.Size*2 || strings.ToLower(s) != s {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
