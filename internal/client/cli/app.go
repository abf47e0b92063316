package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/dmitrijs2005/packkeeper/internal/client/client"
	"github.com/dmitrijs2005/packkeeper/internal/client/config"
	"github.com/dmitrijs2005/packkeeper/internal/logging"
	"github.com/dmitrijs2005/packkeeper/internal/pack"
)

// Exit codes.
const (
	ExitOK    = 0
	ExitFail  = 1
	ExitUsage = 2
)

// RemoteVerifier is the verification gRPC surface packctl uses.
type RemoteVerifier interface {
	LookupDocument(ctx context.Context, submissionID, documentHash string) (map[string]any, error)
	Summary(ctx context.Context, submissionID string) (map[string]any, error)
	Close() error
}

// LinkProvider resolves presigned download links over the HTTP API.
type LinkProvider interface {
	DownloadLink(ctx context.Context, submissionID string) (*client.DownloadLink, error)
	HTTP() *http.Client
}

// Seams for tests.
var (
	newRemoteVerifier = func(addr string) (RemoteVerifier, error) {
		return client.NewGRPCClient(addr)
	}
	newLinkProvider = func(baseURL string) LinkProvider {
		return client.NewHTTPClient(baseURL, &http.Client{})
	}
)

type App struct {
	config   *config.Config
	in       io.Reader
	out      io.Writer
	logger   logging.Logger
	verifier *pack.Verifier
}

func NewApp(c *config.Config) *App {
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	return &App{
		config:   c,
		in:       os.Stdin,
		out:      os.Stdout,
		logger:   logger.With("module", "packctl"),
		verifier: pack.NewVerifier(logger),
	}
}

// Run executes one command and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		a.usage()
		return ExitUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "hash":
		return a.hash(rest)
	case "classify":
		return a.classify(rest)
	case "verify":
		return a.verify(ctx, rest)
	case "lookup":
		return a.lookup(ctx, rest)
	case "summary":
		return a.summary(ctx, rest)
	case "fetch":
		return a.fetch(ctx, rest)
	case "help":
		a.usage()
		return ExitOK
	default:
		fmt.Fprintf(a.out, "unknown command %q\n", cmd)
		a.usage()
		return ExitUsage
	}
}

func (a *App) usage() {
	fmt.Fprintln(a.out, "usage: packctl [-a grpc_addr] [-h http_url] [-t seconds] [-c config] <command> [args]")
	fmt.Fprintln(a.out, "commands: hash, classify, verify, lookup, summary, fetch, help")
}

// withTimeout bounds a remote call by the configured request timeout.
func (a *App) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}

func (a *App) fail(ctx context.Context, msg string, err error) int {
	a.logger.Error(ctx, msg, "error", err)
	fmt.Fprintf(a.out, "%s: %v\n", msg, err)
	return ExitFail
}
