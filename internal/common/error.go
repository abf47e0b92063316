// Package common defines shared constants and sentinel errors used across
// the server, the pack engine and the CLI. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal   = errors.New("internal error")
	ErrorValidation = errors.New("validation error")

	// Pack errors.
	ErrMissingSourceFile = errors.New("source file missing")
	ErrSourceChanged     = errors.New("source file changed since manifest was built")
	ErrDuplicateEntry    = errors.New("duplicate archive entry")
	ErrInvalidManifest   = errors.New("invalid manifest")
	ErrArchiveTampered   = errors.New("archive does not match its manifest")

	// Submission lifecycle errors.
	ErrInvalidTransition      = errors.New("invalid submission status transition")
	ErrManifestDigestMismatch = errors.New("stored manifest does not match its digest")
)
