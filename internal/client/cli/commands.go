package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/dmitrijs2005/packkeeper/internal/filex"
	"github.com/dmitrijs2005/packkeeper/internal/netx"
	"github.com/dmitrijs2005/packkeeper/internal/pack"
)

func (a *App) hash(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "usage: packctl hash <file|->")
		return ExitUsage
	}

	var (
		digest string
		err    error
	)
	if args[0] == "-" {
		digest, _, err = pack.HashReader(a.in)
	} else {
		digest, err = pack.HashFile(args[0])
	}
	if err != nil {
		return a.fail(context.Background(), "hash failed", err)
	}
	fmt.Fprintf(a.out, "%s  %s\n", digest, args[0])
	return ExitOK
}

func (a *App) classify(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(a.out, "usage: packctl classify <name>...")
		return ExitUsage
	}
	for _, name := range args {
		fmt.Fprintf(a.out, "%s\t%s\n", name, pack.Classify(name))
	}
	return ExitOK
}

func (a *App) verify(ctx context.Context, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "usage: packctl verify <archive.zip>")
		return ExitUsage
	}
	return a.report(a.verifier.VerifyFile(ctx, args[0]))
}

func (a *App) report(res pack.VerifyResult) int {
	if res.Valid {
		fmt.Fprintf(a.out, "OK: %d file(s) verified\n", res.FilesChecked)
		if res.Manifest != nil {
			fmt.Fprintf(a.out, "submission %s, manifest %s\n", res.Manifest.SubmissionID, res.Manifest.ManifestVersion)
		}
		return ExitOK
	}
	fmt.Fprintf(a.out, "INVALID: %d error(s)\n", len(res.Errors))
	for _, e := range res.Errors {
		fmt.Fprintf(a.out, "  - %s\n", e)
	}
	return ExitFail
}

func (a *App) lookup(ctx context.Context, args []string) int {
	if len(args) != 2 {
		fmt.Fprintln(a.out, "usage: packctl lookup <submission_id> <sha256>")
		return ExitUsage
	}

	rv, err := newRemoteVerifier(a.config.ServerEndpointAddr)
	if err != nil {
		return a.fail(ctx, "connect failed", err)
	}
	defer rv.Close()

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	res, err := rv.LookupDocument(ctx, args[0], args[1])
	if err != nil {
		return a.fail(ctx, "lookup failed", err)
	}
	if code := a.printJSON(res); code != ExitOK {
		return code
	}
	if verified, _ := res["verified"].(bool); !verified {
		return ExitFail
	}
	return ExitOK
}

func (a *App) summary(ctx context.Context, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "usage: packctl summary <submission_id>")
		return ExitUsage
	}

	rv, err := newRemoteVerifier(a.config.ServerEndpointAddr)
	if err != nil {
		return a.fail(ctx, "connect failed", err)
	}
	defer rv.Close()

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	res, err := rv.Summary(ctx, args[0])
	if err != nil {
		return a.fail(ctx, "summary failed", err)
	}
	return a.printJSON(res)
}

// fetch downloads the archive through a presigned link into out and
// verifies the local copy.
func (a *App) fetch(ctx context.Context, args []string) int {
	if len(args) != 2 {
		fmt.Fprintln(a.out, "usage: packctl fetch <submission_id> <out.zip>")
		return ExitUsage
	}
	id, out := args[0], filepath.Clean(args[1])

	lp := newLinkProvider(a.config.HTTPBaseURL)

	linkCtx, cancel := a.withTimeout(ctx)
	link, err := lp.DownloadLink(linkCtx, id)
	cancel()
	if err != nil {
		return a.fail(ctx, "download link failed", err)
	}

	var n int64
	err = filex.WriteAtomic(out, func(w io.Writer) error {
		var err error
		n, err = netx.DownloadFromPresignedURL(ctx, lp.HTTP(), link.URL, w)
		return err
	})
	if err != nil {
		return a.fail(ctx, "download failed", err)
	}
	fmt.Fprintf(a.out, "downloaded %s (%d bytes)\n", out, n)

	return a.report(a.verifier.VerifyFile(ctx, out))
}

func (a *App) printJSON(v any) int {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return a.fail(context.Background(), "encode failed", err)
	}
	fmt.Fprintln(a.out, string(b))
	return ExitOK
}
