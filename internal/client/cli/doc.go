// Package cli implements packctl, the command-line companion of the
// packkeeper server.
//
// Commands
//
//	hash <file|->                       print the SHA-256 of a file (or stdin)
//	classify <name>...                  print the document type of each name
//	verify <archive.zip>                check a pack offline
//	lookup <submission_id> <sha256>     ask the server whether a document belongs to a pack
//	summary <submission_id>             print a submission summary
//	fetch <submission_id> <out.zip>     download a pack and verify it locally
//
// Exit status is 0 on success, 1 when a check fails or a remote call errors,
// and 2 on usage errors.
package cli
