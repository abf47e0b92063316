// Package client contains the remote clients used by packctl.
//
// GRPCClient talks to the verification gRPC endpoint (document lookups,
// submission summaries) and HTTPClient to the pack management HTTP API
// (presigned download links). Both map transport failures to the sentinel
// errors in errors.go so callers can match them with errors.Is.
package client
