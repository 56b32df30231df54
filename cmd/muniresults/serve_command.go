package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"muniresults/internal/config"
	"muniresults/internal/handlers"
	"muniresults/internal/storage"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve archived runs over a read-only HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), ctx)
		},
	}
	cmd.Flags().String("archive-dir", "", "PocketBase data directory written by scrape --archive-dir (required)")
	cmd.Flags().String("addr", config.DefaultAddr, "Listen address")
	return cmd
}

func runServe(ctx context.Context, cc *commandContext) error {
	cfg := cc.cfg
	logger := cc.logger
	if cfg.ArchiveDir == "" {
		return &config.ConfigurationError{Key: "archive_dir", Reason: "is required"}
	}

	archive, err := storage.OpenArchive(cfg.ArchiveDir, logger)
	if err != nil {
		return err
	}
	defer archive.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handlers.NewResultsHandler(archive, logger).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", cfg.Addr), zap.String("archive", cfg.ArchiveDir))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
