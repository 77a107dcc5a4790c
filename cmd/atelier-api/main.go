package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atelierhq/atelier/backend/internal/assets"
	"github.com/atelierhq/atelier/backend/internal/catalog"
	"github.com/atelierhq/atelier/backend/internal/config"
	"github.com/atelierhq/atelier/backend/internal/ident"
	"github.com/atelierhq/atelier/backend/internal/intake"
	"github.com/atelierhq/atelier/backend/internal/logging"
	"github.com/atelierhq/atelier/backend/internal/notify"
	"github.com/atelierhq/atelier/backend/internal/server"
	"github.com/atelierhq/atelier/backend/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "atelier-api",
		Short: "Atelier portfolio backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("store-backend", defaults.GetString("store.backend"), "Document store backend (file, sqlite, blob)")
	cmd.PersistentFlags().String("data-dir", defaults.GetString("store.file.dir"), "Collection directory for the file backend")
	cmd.PersistentFlags().String("database-path", defaults.GetString("store.sqlite.path"), "SQLite database path for the sqlite backend")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("secret-token", "", "Catalog secret token (overrides env)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "store.backend", "store-backend")
	bindFlag(cmd, "store.file.dir", "data-dir")
	bindFlag(cmd, "store.sqlite.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "auth.secret_token", "secret-token")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	documentStore, err := openStore(appConfig, logger)
	if err != nil {
		return err
	}

	uploader := assets.NewClient(assets.Config{
		CloudName:    appConfig.Assets.CloudName,
		UploadPreset: appConfig.Assets.UploadPreset,
		Endpoint:     appConfig.Assets.Endpoint,
	})

	notifier := notify.NewMailer(notify.Config{
		Host:     appConfig.Mail.Host,
		Port:     appConfig.Mail.Port,
		Username: appConfig.Mail.Username,
		Password: appConfig.Mail.Password,
		From:     appConfig.Mail.From,
		To:       appConfig.Mail.To,
	})

	idProvider := ident.NewUUIDProvider()

	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		Store:      documentStore,
		Clock:      time.Now,
		IDProvider: idProvider,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	intakeService, err := intake.NewService(intake.ServiceConfig{
		Store:      documentStore,
		Uploader:   uploader,
		Notifier:   notifier,
		Clock:      time.Now,
		IDProvider: idProvider,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		CatalogService: catalogService,
		IntakeService:  intakeService,
		SecretToken:    appConfig.SecretToken,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("address", appConfig.HTTPAddress),
			zap.String("store_backend", appConfig.StoreBackend))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func openStore(appConfig config.AppConfig, logger *zap.Logger) (store.Store, error) {
	switch appConfig.StoreBackend {
	case config.StoreBackendFile:
		return store.NewFileStore(appConfig.DataDir)
	case config.StoreBackendSQLite:
		return store.NewSQLiteStore(appConfig.DatabasePath, logger)
	case config.StoreBackendBlob:
		return store.NewBlobStore(store.BlobConfig{
			Endpoint:  appConfig.Blob.Endpoint,
			AccessKey: appConfig.Blob.AccessKey,
			SecretKey: appConfig.Blob.SecretKey,
			Bucket:    appConfig.Blob.Bucket,
			UseSSL:    appConfig.Blob.UseSSL,
		})
	default:
		return nil, fmt.Errorf("unsupported store backend %q", appConfig.StoreBackend)
	}
}
