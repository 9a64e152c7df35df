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

	"ducksearch/ducksearch/config"
	"ducksearch/ducksearch/controllers"
	"ducksearch/ducksearch/routes"
	"ducksearch/ducksearch/services/search"
	"ducksearch/ducksearch/sources/psql"
	"ducksearch/ducksearch/sources/psql/dao"
	"ducksearch/ducksearch/sources/storage"
	"ducksearch/ducksearch/utils/logging"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	if err := logging.InitLogger(cfg.Log); err != nil {
		fmt.Fprintln(os.Stderr, "logger error:", err)
		os.Exit(1)
	}
	defer logging.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	health := controllers.NewHealthController()
	files := storage.NewFileStore(cfg.Storage.ResultsDir)

	// MinIO and Postgres are optional; without them saves only hit the disk.
	var uploader controllers.ResultUploader
	if cfg.Storage.MinIO.Enabled() {
		minioClient, err := storage.NewMinIOClient(ctx, cfg.Storage.MinIO)
		if err != nil {
			logging.ErrorLogger.Error("minio connection error", zap.Error(err))
			os.Exit(1)
		}
		uploader = minioClient
		health.AddCheck("minio", minioClient.Ping)
	}

	var savedLog controllers.SavedSearchStore
	if cfg.Storage.DB.Enabled() {
		db, err := psql.NewDatabase(ctx, cfg.Storage.DB)
		if err != nil {
			logging.ErrorLogger.Error("database connection error", zap.Error(err))
			os.Exit(1)
		}
		defer db.Close()
		savedLog = dao.NewSavedSearchDAO(db.DB)
		health.AddCheck("postgres", db.Ping)
	}

	r := routes.NewRouter(routes.Deps{
		Search:         controllers.NewSearchController(search.NewFromConfig(cfg)),
		Save:           controllers.NewSaveController(files, uploader, savedLog),
		Health:         health,
		ResultsDir:     cfg.Storage.ResultsDir,
		RequestTimeout: cfg.Server.RequestTimeout(),
	})

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}
	go func() {
		logging.AppLogger.Info("server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorLogger.Error("server listen error", zap.Error(err))
			os.Exit(1)
		}
	}()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.ErrorLogger.Error("server shutdown error", zap.Error(err))
	}
	logging.AppLogger.Info("server shutdown complete")
}
