// Command imageflowd runs the image variant service: HTTP uploads in,
// rendered variants and visual metadata out.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/leeforge/imageflow/config"
	"github.com/leeforge/imageflow/http/handler"
	"github.com/leeforge/imageflow/logging"
	"github.com/leeforge/imageflow/meta"
	"github.com/leeforge/imageflow/pipeline"
	"github.com/leeforge/imageflow/storage"
	"github.com/leeforge/imageflow/validate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Error("load config", zap.Error(err))
		os.Exit(1)
	}

	logging.Init(cfg.Logging)
	logger := logging.Global()
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("shutdown with error", zap.Error(err))
		os.Exit(1)
	}
}

// buildPipeline assembles the orchestrator from the bound configuration.
// Every config section reaches its component here; nothing falls back to
// package defaults unless the section is genuinely empty.
func buildPipeline(cfg *config.Config, logger logging.Logger) (*pipeline.Pipeline, storage.Store, error) {
	store, err := cfg.Store()
	if err != nil {
		return nil, nil, err
	}

	table, err := cfg.Table()
	if err != nil {
		return nil, nil, err
	}

	metaCache, err := cfg.MetadataCache(logger)
	if err != nil {
		return nil, nil, err
	}

	opts := []pipeline.Option{
		pipeline.WithConfig(cfg.Pipeline),
		pipeline.WithTable(table),
		pipeline.WithValidator(validate.New(cfg.Validation, logger)),
		pipeline.WithExtractor(meta.New(cfg.Meta, logger)),
		pipeline.WithLogger(logger),
	}
	if metaCache != nil {
		opts = append(opts, pipeline.WithMetadataCache(metaCache))
	}
	pipe, err := pipeline.New(store, opts...)
	if err != nil {
		return nil, nil, err
	}
	return pipe, store, nil
}

func run(cfg *config.Config, logger logging.Logger) error {
	pipe, store, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}

	images := handler.NewImages(pipe, store, cfg.HTTP.MaxUploadBytes, logger)
	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: handler.NewRouter(images),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTP.Addr))
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
