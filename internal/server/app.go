// Package server wires the packkeeper server together: configuration,
// database and migrations, blob storage, services, and the HTTP and gRPC
// endpoints, with graceful shutdown on SIGINT/SIGTERM/SIGQUIT.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/packkeeper/internal/filex"
	"github.com/dmitrijs2005/packkeeper/internal/logging"
	"github.com/dmitrijs2005/packkeeper/internal/server/blobstore"
	"github.com/dmitrijs2005/packkeeper/internal/server/config"
	"github.com/dmitrijs2005/packkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/packkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/packkeeper/internal/server/services"

	gs "github.com/dmitrijs2005/packkeeper/internal/server/grpc"
)

// Seams for tests.
var (
	openDB = func(dsn string) (*sql.DB, error) {
		return sql.Open("pgx", dsn)
	}
	newS3Store = func(ctx context.Context, c blobstore.S3Config) (blobstore.Store, error) {
		return blobstore.NewS3Store(ctx, c)
	}
)

type App struct {
	config       *config.Config
	logger       logging.Logger
	db           *sql.DB
	packService  *services.PackService
	verifService *services.VerificationService
}

// NewApp opens the database, applies migrations and builds the services.
func NewApp(ctx context.Context, c *config.Config, m repomanager.RepositoryManager) (*App, error) {
	logger, err := logging.NewJSONLogger(os.Stdout, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	workDir, err := filex.EnsureDir(c.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("work dir init error: %w", err)
	}
	c.WorkDir = workDir

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	store, err := newBlobStore(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	vs, err := services.NewVerificationService(db, m, c.ManifestCacheSize, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("verification service init error: %w", err)
	}

	return &App{
		config:       c,
		logger:       logger,
		db:           db,
		packService:  services.NewPackService(db, m, store, c, logger),
		verifService: vs,
	}, nil
}

func newBlobStore(ctx context.Context, c *config.Config) (blobstore.Store, error) {
	switch c.BlobBackend {
	case config.BlobBackendS3:
		return newS3Store(ctx, blobstore.S3Config{
			User:         c.S3RootUser,
			Password:     c.S3RootPassword,
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
		})
	case config.BlobBackendMemory:
		return blobstore.NewMemoryStore(c.S3Bucket), nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", c.BlobBackend)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.verifService, app.packService)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "grpc server failed", "error", err)
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	h := httpapi.NewHandler(app.packService, app.verifService, app.config.WorkDir, app.logger)
	s := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, h)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server failed", "error", err)
		cancelFunc()
	}
}

// Run serves both endpoints until ctx is canceled, a signal arrives or
// either server fails, then closes the database.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...",
		"http", app.config.EndpointAddrHTTP,
		"grpc", app.config.EndpointAddrGRPC,
		"blob_backend", app.config.BlobBackend)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close failed", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
