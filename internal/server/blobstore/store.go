// Package blobstore stores pack archives and manifest copies by key.
// The S3 implementation is used in production; the in-memory one backs
// tests and local development.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// SSE algorithm requested for every object written with ServerSideEncryption.
const SSEAlgorithm = "AES256"

// PutOptions describe how an object is stored.
type PutOptions struct {
	ContentType          string
	Metadata             map[string]string
	ServerSideEncryption bool
}

// Object is a stored blob. The caller must close Body.
type Object struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// Store is the blob store used by the publisher and the pack service.
// Get returns common.ErrorNotFound for absent keys; Delete of an absent key
// is not an error.
type Store interface {
	Put(ctx context.Context, key string, body io.ReadSeeker, opts PutOptions) error
	Get(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	// Locator renders a key as a URL naming the object, e.g. s3://bucket/key.
	Locator(key string) string
}

// ParseLocator splits a locator produced by Locator into scheme, bucket and key.
func ParseLocator(locator string) (scheme, bucket, key string, err error) {
	scheme, rest, ok := strings.Cut(locator, "://")
	if !ok {
		return "", "", "", fmt.Errorf("invalid locator %q", locator)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", "", fmt.Errorf("invalid locator %q", locator)
	}
	return scheme, bucket, key, nil
}
