// Package app initializes and runs the main application service.
// It configures logging, storage, blob storage, authentication and
// routing, and handles graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/userauth/internal/auth"
	"github.com/patric-chuzhbe/userauth/internal/blobremover"
	"github.com/patric-chuzhbe/userauth/internal/blobstorage/diskstorage"
	"github.com/patric-chuzhbe/userauth/internal/blobstorage/s3storage"
	"github.com/patric-chuzhbe/userauth/internal/config"
	"github.com/patric-chuzhbe/userauth/internal/db/jsondb"
	"github.com/patric-chuzhbe/userauth/internal/db/memorystorage"
	"github.com/patric-chuzhbe/userauth/internal/db/postgresdb"
	"github.com/patric-chuzhbe/userauth/internal/db/storage"
	"github.com/patric-chuzhbe/userauth/internal/hasher"
	"github.com/patric-chuzhbe/userauth/internal/ipchecker"
	"github.com/patric-chuzhbe/userauth/internal/logger"
	"github.com/patric-chuzhbe/userauth/internal/models"
	"github.com/patric-chuzhbe/userauth/internal/router"
	"github.com/patric-chuzhbe/userauth/internal/service"
)

const shutdownTimeout = 10 * time.Second

type blobStore interface {
	Save(ctx context.Context, originalName string, content io.Reader) (string, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
}

// App encapsulates the configuration, HTTP handler, storage backends
// and the background blob remover.
type App struct {
	cfg             *config.Config
	db              storage.Storage
	blobs           blobStore
	blobRemover     *blobremover.BlobRemover
	stopBlobRemover context.CancelFunc
	httpHandler     http.Handler
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - selecting and setting up storage and blob storage
// - starting the background blob remover
// - setting up the router and middleware
func New(optionsProto ...config.InitOption) (*App, error) {
	cfg, err := config.New(optionsProto...)
	if err != nil {
		return nil, err
	}

	return NewWithConfig(cfg)
}

// NewWithConfig is New for an already loaded configuration.
func NewWithConfig(cfg *config.Config) (*App, error) {
	var err error
	app := &App{cfg: cfg}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}

	app.blobs, err = getBlobStorageByType(app.cfg)
	if err != nil {
		return nil, errors.Join(err, app.db.Close())
	}

	ipChecker, err := ipchecker.New(app.cfg.TrustedSubnet)
	if err != nil {
		return nil, errors.Join(err, app.db.Close())
	}

	app.blobRemover = blobremover.New(
		app.blobs,
		app.cfg.RemoverQueueCapacity,
		app.cfg.RemoverFlushInterval,
	)
	blobRemoverRunCtx, stopBlobRemover := context.WithCancel(context.Background())
	app.stopBlobRemover = stopBlobRemover

	app.blobRemover.Run(blobRemoverRunCtx)
	app.blobRemover.ListenErrors(func(err error) {
		logger.Log.Debugln("Error passed from the `app.blobRemover.ListenErrors()`:", zap.Error(err))
	})

	theAuth := auth.New([]byte(app.cfg.JWTSecretKey), app.cfg.JWTExpiresIn)

	s := service.New(
		app.db,
		hasher.New(app.cfg.BcryptCost),
		theAuth,
		app.blobRemover,
	)

	app.httpHandler = router.New(
		s,
		app.blobs,
		theAuth,
		ipChecker,
		app.cfg.FilesBaseURL,
		app.cfg.MaxAvatarSize,
	)

	return app, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.httpHandler
}

// Run starts the HTTP server with graceful shutdown support.
// It listens for system signals and cleans up resources upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return a.Serve(ctx)
}

// Serve runs the HTTP server until ctx is done, then shuts everything down.
func (a *App) Serve(ctx context.Context) error {
	logger.Log.Infoln("server running", "RunAddr", a.cfg.RunAddr)

	server := &http.Server{
		Addr:              a.cfg.RunAddr,
		Handler:           a.httpHandler,
		ReadHeaderTimeout: a.cfg.ReadHeaderTimeout,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Finishing requests and exiting...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		shutdownErr := server.Shutdown(shutdownCtx)
		if shutdownErr != nil {
			shutdownErr = fmt.Errorf("server shutdown error: %w", shutdownErr)
		}

		return errors.Join(shutdownErr, a.shutdown(shutdownCtx))

	case err := <-serverErrCh:
		return errors.Join(fmt.Errorf("server error: %w", err), a.shutdown(context.Background()))
	}
}

func (a *App) shutdown(ctx context.Context) error {
	a.stopBlobRemover()
	select {
	case <-a.blobRemover.Done():
	case <-ctx.Done():
		logger.Log.Infoln("Blob remover did not finish before the shutdown deadline")
	}

	return a.db.Close()
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypePostgresql
	}

	if cfg.DBFileName != "" {
		return models.StorageTypeFile
	}

	return models.StorageTypeMemory
}

func getStorageByType(cfg *config.Config) (storage.Storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypePostgresql:
		return postgresdb.New(
			context.Background(),
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
			cfg.MigrationsDir,
		)

	case models.StorageTypeFile:
		return jsondb.New(cfg.DBFileName)
	}

	return memorystorage.New()
}

func getAvailableBlobStorageType(cfg *config.Config) int {
	if cfg.UseS3() {
		return models.BlobStorageTypeS3
	}

	return models.BlobStorageTypeDisk
}

func getBlobStorageByType(cfg *config.Config) (blobStore, error) {
	if getAvailableBlobStorageType(cfg) == models.BlobStorageTypeS3 {
		return s3storage.New(context.Background(), s3storage.Options{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
		})
	}

	return diskstorage.New(cfg.UploadDirectory)
}
